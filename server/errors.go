package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/prior-it/addressbook/core"
)

// DefaultErrorHandler writes the JSON error body for err:
// validation errors become a 400 with their own message, core.ErrNotFound a 404 and everything else a 500.
// Nothing is written if the request was cancelled or timed out, there is nobody left to read it.
func DefaultErrorHandler(apollo *Apollo, err error) {
	var validationErr *core.ValidationError
	switch {
	case errors.As(err, &validationErr):
		apollo.LogString("rejected", validationErr.Field)
		apollo.JSON(http.StatusBadRequest, core.LookupResponse{
			Status:       core.StatusError,
			ErrorMessage: validationErr.Message,
		})
	case errors.Is(err, core.ErrNotFound):
		apollo.JSON(http.StatusNotFound, core.LookupResponse{
			Status:       core.StatusError,
			ErrorMessage: core.MessageNoResults,
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		apollo.Debug("Request ended before a response was written", "error", err)
	default:
		apollo.Error("Server error", "error", err)
		apollo.JSON(http.StatusInternalServerError, core.LookupResponse{
			Status:       core.StatusError,
			ErrorMessage: "Internal server error",
		})
	}
}
