package core

import (
	"hash/fnv"
	"math"
	"strings"

	"github.com/biter777/countries"
	"github.com/brianvoe/gofakeit/v7"
)

const DefaultMaxCandidates = 5

// Synthesizer generates mock address candidates for a postcode and street number.
// It does not look anything up: the same input will always produce the same candidates, so results can be
// cached and tested.
type Synthesizer struct {
	maxCandidates int
	country       countries.CountryCode
}

// NewSynthesizer creates a synthesizer that generates at most maxCandidates addresses per lookup, all of them
// located in the specified country.
// Invalid values fall back to DefaultMaxCandidates and the Netherlands.
func NewSynthesizer(maxCandidates int, country countries.CountryCode) *Synthesizer {
	if maxCandidates < 1 {
		maxCandidates = DefaultMaxCandidates
	}
	if !country.IsValid() {
		country = countries.Netherlands
	}
	return &Synthesizer{
		maxCandidates: maxCandidates,
		country:       country,
	}
}

// Synthesize returns the candidates for an already validated postcode and street number.
// An empty result means that nothing was found, which happens for house number 0 and for postcode 0.
//
// All candidates share the queried postcode, house number and the postcode's city, but have a distinct street.
func (s *Synthesizer) Synthesize(postcode string, streetNumber string) []RawAddress {
	if isZero(postcode) || isZero(streetNumber) {
		return nil
	}

	// The city only depends on the postcode so that every house number in a postcode lives in the same city
	city := gofakeit.New(seed(postcode)).City()

	faker := gofakeit.New(seed(postcode, streetNumber))
	count := faker.IntRange(1, s.maxCandidates)

	addresses := make([]RawAddress, 0, count)
	seen := make(map[string]bool, count)
	for attempts := 0; len(addresses) < count && attempts < count*4; attempts++ {
		street := faker.StreetName() + faker.StreetSuffix()
		if seen[street] {
			continue
		}
		seen[street] = true
		addresses = append(addresses, RawAddress{
			Street:      street,
			HouseNumber: streetNumber,
			Postcode:    postcode,
			City:        city,
			Country:     s.country.Alpha2(),
			Lat:         round(faker.Latitude()),
			Long:        round(faker.Longitude()),
		})
	}
	return addresses
}

// seed hashes the parts into a non-zero faker seed, gofakeit treats 0 as "pick a random seed".
func seed(parts ...string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.Join(parts, "\x00")))
	if sum := h.Sum64(); sum != 0 {
		return sum
	}
	return 1
}

func isZero(digits string) bool {
	return strings.TrimLeft(digits, "0") == ""
}

func round(coordinate float64) float64 {
	return math.Round(coordinate*1e6) / 1e6
}
