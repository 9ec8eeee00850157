package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/biter777/countries"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

func (l LogLevel) ToSlog() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type LogFormat string

const (
	LogFormatPlaintext LogFormat = "plaintext"
	LogFormatJSON      LogFormat = "json"
)

type AppEnv string

const (
	AppEnvDev        AppEnv = "dev"
	AppEnvProduction AppEnv = "production"
)

type Config struct {
	App    AppConfig
	Sentry SentryConfig
	Log    LogConfig
	Lookup LookupConfig
	Cache  CacheConfig
	Client ClientConfig
	Book   BookConfig
}

type AppConfig struct {
	Debug           bool
	SSL             bool   `default:"false"`
	Port            uint32 `default:"3000"`
	ProxyPort       uint32
	Host            string
	URL             string
	Name            string `default:"addressbook"`
	ShutdownTimeout int32  `default:"2"` // in seconds
	Env             AppEnv `default:"production"`
	Version         string
	RequestTimeout  uint32 `default:"30"` // in seconds
}

type SentryConfig struct {
	Enabled      bool
	DSN          string
	SampleRate   float64
	TracesRate   float64
	ProfilesRate float64
}

type LogConfig struct {
	Format  LogFormat `default:"json"`
	Level   LogLevel
	Verbose bool
}

type LookupConfig struct {
	// Artificial latency before a successful lookup response, in milliseconds
	Delay int32 `default:"500"`
	// Maximum amount of candidates per lookup
	MaxCandidates int `default:"5"`
	// Country of all synthesized addresses, either a name or an ISO 3166 code
	Country string `default:"NL"`
}

type CacheConfig struct {
	// Redis url, e.g. "redis://localhost:6379/0". Caching is disabled if this is empty.
	URL string
	// Time-to-live of cached lookups, in seconds
	TTL int32 `default:"3600"`
}

type ClientConfig struct {
	// Base url of the lookup server. Defaults to the server's own base url.
	URL string
	// Request timeout, in seconds
	Timeout int32 `default:"10"`
	// Search while typing once both fields are filled in
	AutoSearch bool
	// Debounce timer between keystrokes before an automatic search, in milliseconds
	Debounce int32 `default:"300"`
}

type BookConfig struct {
	// Local file to keep the address book in. The address book only lives in memory if this is empty.
	Path string
}

func (c Config) BaseURL() string {
	url := c.App.URL
	// If no url was specified, build one from the host and port values
	if len(c.App.URL) == 0 {
		port := c.App.Port
		if c.App.ProxyPort > 0 {
			port = c.App.ProxyPort
		}
		url = fmt.Sprintf("%v:%v", c.App.Host, port)
	}
	protocol := "http"
	if c.App.SSL {
		protocol = "https"
	}
	return fmt.Sprintf(
		"%s://%s",
		protocol,
		url,
	)
}

// LookupURL returns the base url that lookup clients should connect to.
func (c Config) LookupURL() string {
	if len(c.Client.URL) > 0 {
		return strings.TrimSuffix(c.Client.URL, "/")
	}
	return c.BaseURL()
}

func (c Config) LookupDelay() time.Duration {
	return time.Duration(c.Lookup.Delay) * time.Millisecond
}

// LookupCountry returns the configured country, or the Netherlands if it is empty.
func (c Config) LookupCountry() (countries.CountryCode, error) {
	if len(c.Lookup.Country) == 0 {
		return countries.Netherlands, nil
	}
	country := countries.ByName(c.Lookup.Country)
	if !country.IsValid() {
		return countries.Unknown, fmt.Errorf("unknown lookup country %q", c.Lookup.Country)
	}
	return country, nil
}

func (c *Config) IsTest() bool {
	return flag.Lookup("test.v") != nil || strings.HasSuffix(os.Args[0], ".test") ||
		strings.Contains(os.Args[0], "/_test/")
}

func setDefaults(reader *viper.Viper) {
	reader.SetDefault("app_port", 3000)
	reader.SetDefault("app_host", "localhost")
	reader.SetDefault("app_name", "addressbook")
	reader.SetDefault("app_shutdowntimeout", 2)
	reader.SetDefault("app_env", AppEnvProduction)
	reader.SetDefault("app_requesttimeout", 30)
	reader.SetDefault("log_format", LogFormatJSON)
	reader.SetDefault("log_level", LogLevelInfo)
	reader.SetDefault("lookup_delay", 500)
	reader.SetDefault("lookup_maxcandidates", 5)
	reader.SetDefault("lookup_country", "NL")
	reader.SetDefault("cache_ttl", 3600)
	reader.SetDefault("client_timeout", 10)
	reader.SetDefault("client_debounce", 300)
}

// Load the configuration file from the specified filesystem.
// You can specify additional .env files to load, by default this only checks for ".env" in the
// current working directory.
func Load(configFS fs.FS, dotenvFiles ...string) (*Config, error) {
	file, err := configFS.Open("config.toml")
	if err != nil {
		return nil, fmt.Errorf("could not find config.toml in the configFS: %w", err)
	}
	defer file.Close()

	reader := viper.NewWithOptions(viper.KeyDelimiter("_"))
	reader.SetConfigType("toml")
	setDefaults(reader)

	if err = reader.ReadConfig(file); err != nil {
		return nil, fmt.Errorf("could not load the app configuration: %w", err)
	}

	// Environment override
	err = godotenv.Load(dotenvFiles...)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("No .env file found, continuing...")
	} else if err != nil {
		return nil, fmt.Errorf(".env file found, but could not load it: %w", err)
	}
	reader.AutomaticEnv()

	var config Config
	if err := reader.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("invalid config format: %w", err)
	}

	if _, err := config.LookupCountry(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if config.App.Debug && !config.IsTest() {
		slog.Warn("APP_DEBUG is turned on, do not run this mode in production!")
	}

	return &config, nil
}
