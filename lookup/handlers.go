package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prior-it/addressbook/core"
	"github.com/prior-it/addressbook/server"
)

func Ping(apollo *server.Apollo, _ *State) error {
	apollo.PlainText(http.StatusOK, "pong")
	return nil
}

// GetAddresses validates the postcode and street number query parameters and responds with the synthesized
// candidates for them.
//
// Invalid queries are rejected with a 400 and a lookup without candidates results in a 404, both right away.
// Successful lookups are delayed by the configured latency.
func GetAddresses(apollo *server.Apollo, state *State) error {
	var query core.LookupQuery
	if err := apollo.ParseQuery(&query); err != nil {
		return fmt.Errorf("cannot parse lookup query: %w", err)
	}
	apollo.LogString("postcode", query.Postcode)
	apollo.LogString("streetnumber", query.StreetNumber)

	if err := state.Validator.Validate(query); err != nil {
		return err
	}

	addresses := state.candidates(apollo.Context(), query)
	apollo.LogField("candidates", slog.IntValue(len(addresses)))
	if len(addresses) == 0 {
		return core.ErrNotFound
	}

	if err := sleep(apollo.Context(), state.Delay); err != nil {
		return err
	}

	apollo.JSON(http.StatusOK, core.LookupResponse{
		Status:  core.StatusOK,
		Details: addresses,
	})
	return nil
}

// candidates returns the cached candidates for the query, or synthesizes them.
// Cache failures are logged but never fail the lookup.
func (s *State) candidates(ctx context.Context, query core.LookupQuery) []core.RawAddress {
	if s.Cache == nil {
		return s.Synthesizer.Synthesize(query.Postcode, query.StreetNumber)
	}

	addresses, found, err := s.Cache.Get(ctx, query)
	if err != nil {
		slog.Warn("Could not read from the lookup cache", "error", err)
	} else if found {
		return addresses
	}

	addresses = s.Synthesizer.Synthesize(query.Postcode, query.StreetNumber)
	if err := s.Cache.Set(ctx, query, addresses); err != nil {
		slog.Warn("Could not write to the lookup cache", "error", err)
	}
	return addresses
}

// sleep waits for d, or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
