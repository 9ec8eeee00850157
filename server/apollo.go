package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/gorilla/schema"
)

var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return decoder
}

// Apollo wraps a single request and its response writer.
type Apollo struct {
	Writer  http.ResponseWriter
	Request *http.Request
	logger  *slog.Logger
}

// Log the specified error message. args is a list of structured fields to add to the error message.
// The arguments should alternate between a field's name (string) and its value (any).
// This behaves the same as [log/slog.Error]
//
// # Example
//
//	server.Error("Something went wrong", "error", err, "postcode", postcode)
func (apollo *Apollo) Error(msg string, args ...any) {
	apollo.logger.Error(msg, args...)
}

// Log the specified debug message. args is a list of structured fields to add to the message.
// The arguments should alternate between a field's name (string) and its value (any).
// This behaves the same as [log/slog.Debug]
func (apollo *Apollo) Debug(msg string, args ...any) {
	apollo.logger.Debug(msg, args...)
}

// LogString will add the specified field and its value to the current request's span
func (apollo *Apollo) LogString(field string, value string) {
	apollo.LogField(field, slog.StringValue(value))
}

// LogField will add the specified field and its value to the current request's span
//
// # Example
//
// apollo.LogField("candidates", slog.IntValue(len(addresses)))
func (apollo *Apollo) LogField(field string, value slog.Value) {
	httplog.LogEntrySetField(apollo.Context(), field, value)
}

// Context returns the request's context.
//
// The context is canceled when the client's connection closes, the request is canceled (with HTTP/2),
// the request times out or when the ServeHTTP method returns.
func (apollo *Apollo) Context() context.Context {
	return apollo.Request.Context()
}

// Path returns the full path of the request.
func (apollo *Apollo) Path() string {
	return apollo.Request.URL.Path
}

// ParseQuery decodes the request's query parameters into a struct using its `schema` tags.
// Unknown parameters are ignored, missing parameters leave their field untouched.
//
// # Example:
//
//	var query core.LookupQuery
//	if err := apollo.ParseQuery(&query); err != nil {
//		return fmt.Errorf("cannot parse query: %w", err)
//	}
func (apollo *Apollo) ParseQuery(v any) error {
	return queryDecoder.Decode(v, apollo.Request.URL.Query())
}

// JSON writes v as the JSON response body with the specified status code.
func (apollo *Apollo) JSON(code int, v any) {
	render.Status(apollo.Request, code)
	render.JSON(apollo.Writer, apollo.Request, v)
}

// PlainText writes text as the response body with the specified status code.
func (apollo *Apollo) PlainText(code int, text string) {
	render.Status(apollo.Request, code)
	render.PlainText(apollo.Writer, apollo.Request, text)
}
