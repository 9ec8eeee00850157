package tests

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/prior-it/addressbook/config"
)

var Faker = gofakeit.New(rand.Uint64())

// Config returns a configuration suitable for tests: no artificial delay, no cache, quiet logging.
func Config() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:            "addressbook-test",
			Host:            "localhost",
			Port:            3000,
			Env:             config.AppEnvDev,
			ShutdownTimeout: 1,
			RequestTimeout:  5,
		},
		Log: config.LogConfig{
			Format: config.LogFormatJSON,
			Level:  config.LogLevelError,
		},
		Lookup: config.LookupConfig{
			Delay:         0,
			MaxCandidates: 5,
			Country:       "NL",
		},
		Client: config.ClientConfig{
			Timeout: 5,
		},
	}
}

// Digits returns a random string of n digits that does not start with a zero.
func Digits(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(Faker.IntRange(1, 9)) + Faker.Numerify(strings.Repeat("#", n-1))
}
