package core

import (
	"context"
	"fmt"
)

/**
 * DOMAIN
 */

// LookupQuery is the untrusted input of a single address lookup.
type LookupQuery struct {
	Postcode     string `schema:"postcode"`
	StreetNumber string `schema:"streetnumber"`
}

// RawAddress is a synthesized lookup candidate as it travels over the wire.
type RawAddress struct {
	Street      string  `json:"street"`
	HouseNumber string  `json:"houseNumber"`
	Postcode    string  `json:"postcode"`
	City        string  `json:"city"`
	Country     string  `json:"country"`
	Lat         float64 `json:"lat"`
	Long        float64 `json:"long"`
}

// Address is a normalized candidate that can be selected, displayed and, once the person's name has been
// attached, stored in an address book.
type Address struct {
	ID          AddressID `json:"id"`
	Street      string    `json:"street"`
	HouseNumber string    `json:"houseNumber"`
	Postcode    string    `json:"postcode"`
	City        string    `json:"city"`
	Country     string    `json:"country"`
	Lat         float64   `json:"lat"`
	Long        float64   `json:"long"`
	FirstName   string    `json:"firstName,omitempty"`
	LastName    string    `json:"lastName,omitempty"`
}

type (
	AddressID string
)

func (id AddressID) String() string {
	return string(id)
}

// Label returns the single display line for this address, e.g. "Main Street 10, 1234 Springfield".
func (a Address) Label() string {
	return fmt.Sprintf("%s %s, %s %s", a.Street, a.HouseNumber, a.Postcode, a.City)
}

// FullName returns the name of the person attached to this address, or the empty string if there is none.
func (a Address) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

/**
 * WIRE
 */

type ResponseStatus string

const (
	StatusOK    ResponseStatus = "ok"
	StatusError ResponseStatus = "error"
)

// LookupResponse is the body of every lookup endpoint response.
type LookupResponse struct {
	Status       ResponseStatus `json:"status"`
	Details      []RawAddress   `json:"details,omitempty"`
	ErrorMessage string         `json:"errormessage,omitempty"`
}

/**
 * SERVICES
 */

// AddressBook is the collection that composed addresses are handed to.
type AddressBook interface {
	// Add stores the address. An address with the same id replaces the existing one.
	Add(ctx context.Context, address Address) error
	// List returns all stored addresses in the order they were first added.
	List(ctx context.Context) ([]Address, error)
	// Remove deletes the address with the specified id.
	// If there is no such address, this returns core.ErrNotFound.
	Remove(ctx context.Context, id AddressID) error
}

// AddressLookup retrieves candidates for a postcode and street number.
type AddressLookup interface {
	Lookup(ctx context.Context, postcode string, streetNumber string) ([]RawAddress, error)
}
