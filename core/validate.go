package core

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var digitsRegex = regexp.MustCompile(`^[0-9]+$`)

// Validator checks lookup queries before any candidates are synthesized.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a new Validator with the "digits" tag registered.
func NewValidator() *Validator {
	v := validator.New()
	// Cannot fail: the tag name is valid and not one of the baked-in tags.
	_ = v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		return digitsRegex.MatchString(fl.Field().String())
	})
	return &Validator{v}
}

// Validate returns nil if the query can be looked up, or the *ValidationError of the first rule that fails.
// Rules are checked in a fixed order, so the same query always produces the same message:
//
//  1. postcode and street number are both filled in
//  2. the postcode is at least 4 characters long
//  3. the postcode only contains digits
//  4. the street number only contains digits
func (val *Validator) Validate(query LookupQuery) error {
	switch {
	case val.fails(query.Postcode, "required"), val.fails(query.StreetNumber, "required"):
		return ErrMissingFields
	case val.fails(query.Postcode, "min=4"):
		return ErrPostcodeTooShort
	case val.fails(query.Postcode, "digits"):
		return ErrPostcodeNotNumeric
	case val.fails(query.StreetNumber, "digits"):
		return ErrStreetNumberNotNumeric
	}
	return nil
}

func (val *Validator) fails(value string, tag string) bool {
	return val.v.Var(value, tag) != nil
}
