package core

import "errors"

var ErrNotFound = errors.New("not found")

// MessageNoResults is returned to clients when a valid lookup has no candidates.
// DO NOT MODIFY - clients match on this text.
const MessageNoResults = "No results found!"

// ValidationError is returned when a lookup query is rejected.
// Message is shown to the user as-is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// DO NOT MODIFY the messages below - clients match on this text.
var (
	ErrMissingFields = &ValidationError{
		Field:   "postcode,streetnumber",
		Message: "Postcode and street number fields mandatory!",
	}
	ErrPostcodeTooShort = &ValidationError{
		Field:   "postcode",
		Message: "Postcode must be at least 4 digits!",
	}
	ErrPostcodeNotNumeric = &ValidationError{
		Field:   "postcode",
		Message: "Postcode must be all digits and non negative!",
	}
	ErrStreetNumberNotNumeric = &ValidationError{
		Field:   "streetnumber",
		Message: "Street Number must be all digits and non negative!",
	}
)
