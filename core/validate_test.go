package core_test

import (
	"errors"
	"testing"

	"github.com/prior-it/addressbook/core"
	"github.com/prior-it/addressbook/tests"
	"github.com/stretchr/testify/assert"
)

func FuzzValidate(f *testing.F) {
	for _, seed := range [][2]string{
		{"", ""},
		{"1234", "10"},
		{"12", "10"},
		{"12a4", "10"},
		{"-123", "1"},
		{"1234", "1.5"},
		{"１２３４", "1"},
	} {
		f.Add(seed[0], seed[1])
	}
	validator := core.NewValidator()
	f.Fuzz(func(t *testing.T, postcode string, streetNumber string) {
		err := validator.Validate(core.LookupQuery{Postcode: postcode, StreetNumber: streetNumber})
		// We're not checking the rules here but rather that every error is one of the known validation errors
		if err != nil {
			var validationErr *core.ValidationError
			assert.True(t, errors.As(err, &validationErr), "%v should be a validation error", err)
		}
	})
}

func TestValidate(t *testing.T) {
	validator := core.NewValidator()
	validate := func(postcode, streetNumber string) error {
		return validator.Validate(core.LookupQuery{Postcode: postcode, StreetNumber: streetNumber})
	}

	t.Run("ok: numeric postcode and street number", func(t *testing.T) {
		assert.Nil(t, validate("1234", "10"))
		assert.Nil(t, validate("0000", "0"))
		assert.Nil(t, validate(tests.Digits(4), tests.Digits(3)))
		assert.Nil(t, validate(tests.Digits(12), tests.Digits(1)))
	})

	t.Run("err: missing fields", func(t *testing.T) {
		for _, query := range [][2]string{
			{"", ""},
			{"1234", ""},
			{"", "10"},
			{"", "abc"},
		} {
			assert.ErrorIs(t, validate(query[0], query[1]), core.ErrMissingFields, "query %q", query)
		}
	})

	t.Run("err: postcode shorter than 4 characters", func(t *testing.T) {
		for _, postcode := range []string{"1", "12", "123", "12a", "-1"} {
			for _, streetNumber := range []string{"10", "abc", "-1", tests.Digits(2)} {
				assert.ErrorIs(
					t,
					validate(postcode, streetNumber),
					core.ErrPostcodeTooShort,
					"postcode %q with street number %q",
					postcode,
					streetNumber,
				)
			}
		}
	})

	t.Run("err: postcode with letters, signs or decimals", func(t *testing.T) {
		for _, postcode := range []string{"12a4", "-1234", "+1234", "12.34", "1234 ", " 1234", "abcd", "1e10"} {
			assert.ErrorIs(t, validate(postcode, "10"), core.ErrPostcodeNotNumeric, "postcode %q", postcode)
		}
	})

	t.Run("err: street number with letters, signs or decimals", func(t *testing.T) {
		for _, streetNumber := range []string{"10a", "-10", "+10", "1.5", "ten", " 10"} {
			assert.ErrorIs(
				t,
				validate("1234", streetNumber),
				core.ErrStreetNumberNotNumeric,
				"street number %q",
				streetNumber,
			)
		}
	})

	t.Run("err: rules are checked in order", func(t *testing.T) {
		// Both fields are invalid, only the postcode error should be returned
		assert.ErrorIs(t, validate("12a4", "x"), core.ErrPostcodeNotNumeric)
		// Too short wins over not numeric
		assert.ErrorIs(t, validate("a", "x"), core.ErrPostcodeTooShort)
	})

	t.Run("ok: messages are unchanged", func(t *testing.T) {
		assert.Equal(t, "Postcode and street number fields mandatory!", validate("", "").Error())
		assert.Equal(t, "Postcode must be at least 4 digits!", validate("12", "10").Error())
		assert.Equal(t, "Postcode must be all digits and non negative!", validate("12a4", "10").Error())
		assert.Equal(t, "Street Number must be all digits and non negative!", validate("1234", "-1").Error())
	})
}
