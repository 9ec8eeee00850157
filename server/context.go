package server

import (
	"context"

	"github.com/prior-it/addressbook/config"
)

type contextKey uint

const (
	ctxConfig contextKey = iota
)

// Config returns the configuration that was attached to the context by [Server.ContextMiddleware].
// This returns nil if there is none.
func Config(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(ctxConfig).(*config.Config)
	return cfg
}
