// Package addressbook contains the stores that composed addresses are added to.
package addressbook

import (
	"slices"

	"github.com/prior-it/addressbook/core"
)

// entries is an ordered list of addresses with unique ids.
type entries []core.Address

// with returns a copy of the entries with address added.
// An address with the same id replaces the existing entry in place.
func (e entries) with(address core.Address) entries {
	result := slices.Clone(e)
	idx := slices.IndexFunc(result, func(a core.Address) bool { return a.ID == address.ID })
	if idx >= 0 {
		result[idx] = address
		return result
	}
	return append(result, address)
}

// without returns a copy of the entries without the address with the specified id.
// The second return value is false if no such address exists.
func (e entries) without(id core.AddressID) (entries, bool) {
	idx := slices.IndexFunc(e, func(a core.Address) bool { return a.ID == id })
	if idx < 0 {
		return e, false
	}
	return slices.Delete(slices.Clone(e), idx, idx+1), true
}

func (e entries) list() []core.Address {
	if e == nil {
		return []core.Address{}
	}
	return slices.Clone(e)
}
