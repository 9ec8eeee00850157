package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prior-it/addressbook/cache"
	"github.com/prior-it/addressbook/config"
	"github.com/prior-it/addressbook/core"
	"github.com/prior-it/addressbook/server"
)

// State holds the dependencies of the lookup handlers. It is shared by all requests but never modified after
// creation.
type State struct {
	Validator   *core.Validator
	Synthesizer *core.Synthesizer
	// Optional, lookups are synthesized on every request if this is nil
	Cache cache.Cache
	// Artificial latency of successful lookups
	Delay time.Duration
}

// Force struct to implement the server interface
var _ server.State = &State{}

// NewState creates the lookup state from the configuration.
// If a cache url is configured, this connects to the cache as well.
func NewState(ctx context.Context, cfg *config.Config) (*State, error) {
	country, err := cfg.LookupCountry()
	if err != nil {
		return nil, err
	}
	state := &State{
		Validator:   core.NewValidator(),
		Synthesizer: core.NewSynthesizer(cfg.Lookup.MaxCandidates, country),
		Delay:       cfg.LookupDelay(),
	}

	if len(cfg.Cache.URL) > 0 {
		namespace := fmt.Sprintf("%d:%s", cfg.Lookup.MaxCandidates, country.Alpha2())
		ttl := time.Duration(cfg.Cache.TTL) * time.Second
		c, err := cache.NewRedisCache(ctx, cfg.Cache.URL, ttl, namespace)
		if err != nil {
			return nil, fmt.Errorf("cannot create lookup cache: %w", err)
		}
		state.Cache = c
	} else {
		slog.Info("No cache url configured, lookups will not be cached")
	}

	return state, nil
}

// Close implements server.State
func (s *State) Close(_ context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Close(); err != nil {
		slog.Error("Could not close the lookup cache", "error", err)
	}
}

// Routes attaches all lookup routes to the server.
func Routes(srv *server.Server[*State]) {
	srv.Get("/ping", Ping)
	srv.Group("/api").
		Get("/getAddresses", GetAddresses)
}
