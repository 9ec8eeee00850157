package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/prior-it/addressbook/bootstrap"
	"github.com/prior-it/addressbook/config"
	"github.com/prior-it/addressbook/lookup"
)

var (
	debug     bool
	configDir string
)

func init() {
	flag.Usage = helpMessage
	flag.BoolVar(&debug, "d", false, "Debug mode")
	flag.StringVar(&configDir, "config", ".", "Directory that contains config.toml")
}

func helpMessage() {
	cmdName := os.Args[0]
	output := flag.CommandLine.Output()
	fmt.Fprintf(output, "Usage of %s:\n\n", cmdName)
	fmt.Fprintln(
		output,
		"This will run the address lookup server, which answers GET /api/getAddresses?postcode=...&streetnumber=...",
	)
	fmt.Fprintln(output, "Flags:")
	flag.PrintDefaults()
}

func main() {
	flag.Parse()

	cfg, err := config.Load(os.DirFS(configDir))
	if err != nil {
		log.Fatalf("Could not load the configuration: %v\n", err)
	}
	if debug {
		cfg.App.Debug = true
		cfg.Log.Level = config.LogLevelDebug
	}
	logger := bootstrap.NewLogger(cfg, os.Stdout)

	ctx := context.Background()
	state, err := lookup.NewState(ctx, cfg)
	if err != nil {
		logger.Error("Could not initialise the lookup service", "error", err)
		os.Exit(1)
	}

	srv := bootstrap.New(state, cfg)
	lookup.Routes(srv)

	if err := srv.Start(ctx, nil); err != nil {
		slog.Error("Server stopped unexpectedly", "error", err)
		os.Exit(1)
	}
}
