/*
Package server provides a HTTP server implementation for the address lookup service.
Handlers in this stack take an application-specific state object (used for dependency injection)
and a [Apollo] object which wraps the current request and response.

Handlers return errors instead of writing error responses themselves, the server's error handler
turns them into a JSON body (see [DefaultErrorHandler]).

Basic example:

	import (
		"context"
		"log"

		"github.com/prior-it/addressbook/lookup"
		"github.com/prior-it/addressbook/server"
	)

	func main() {
		ctx := context.Background()
		state, err := lookup.NewState(ctx, cfg)
		if err != nil {
			log.Fatal(err)
		}
		srv := server.New(state, cfg)
		srv.AttachDefaultMiddleware()

		srv.Get("/ping", lookup.Ping)
		srv.Group("/api").
			Get("/getAddresses", lookup.GetAddresses)

		log.Fatal(srv.Start(ctx, nil))
	}
*/
package server
