package core

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Namespace for address ids, ids are name-based (v5) UUIDs within this namespace.
var addressNamespace = uuid.MustParse("4b0f3c2e-8d51-4c6a-9a61-2f3e7d9c5b10")

// NewAddressID derives the id of a raw address from the fields that distinguish it from the other candidates of
// the same lookup. The same raw address always results in the same id.
func NewAddressID(raw RawAddress) AddressID {
	name := strings.Join([]string{
		raw.Street,
		raw.HouseNumber,
		raw.Postcode,
		raw.City,
		strconv.FormatFloat(raw.Lat, 'f', -1, 64),
		strconv.FormatFloat(raw.Long, 'f', -1, 64),
	}, "|")
	return AddressID(uuid.NewSHA1(addressNamespace, []byte(name)).String())
}

// Transform converts a raw lookup candidate into an address.
func Transform(raw RawAddress) Address {
	return Address{
		ID:          NewAddressID(raw),
		Street:      raw.Street,
		HouseNumber: raw.HouseNumber,
		Postcode:    raw.Postcode,
		City:        raw.City,
		Country:     raw.Country,
		Lat:         raw.Lat,
		Long:        raw.Long,
	}
}

// TransformAll converts every candidate, keeping their order.
func TransformAll(raws []RawAddress) []Address {
	addresses := make([]Address, len(raws))
	for i, raw := range raws {
		addresses[i] = Transform(raw)
	}
	return addresses
}
