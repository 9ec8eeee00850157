package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/prior-it/addressbook/addressbook"
	"github.com/prior-it/addressbook/bootstrap"
	"github.com/prior-it/addressbook/client"
	"github.com/prior-it/addressbook/config"
	"github.com/prior-it/addressbook/core"
	"github.com/prior-it/addressbook/search"
)

var (
	debug     bool
	configDir string
	serverURL string
	bookPath  string
)

func init() {
	flag.Usage = helpMessage
	flag.BoolVar(&debug, "d", false, "Debug mode")
	flag.StringVar(&configDir, "config", ".", "Directory that contains config.toml")
	flag.StringVar(&serverURL, "url", "", "Base url of the lookup server (overrides the configuration)")
	flag.StringVar(
		&bookPath,
		"book",
		"",
		"File to keep the address book in (overrides the configuration, use \"-\" to keep it in memory)",
	)
}

func helpMessage() {
	cmdName := os.Args[0]
	output := flag.CommandLine.Output()
	fmt.Fprintf(output, "Usage of %s:\n\n", cmdName)
	fmt.Fprintln(
		output,
		"This tool looks up addresses by postcode and street number and adds them to your address book.",
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
	if len(serverURL) > 0 {
		cfg.Client.URL = serverURL
	}
	switch bookPath {
	case "":
	case "-":
		cfg.Book.Path = ""
	default:
		cfg.Book.Path = bookPath
	}
	if debug {
		cfg.App.Debug = true
		cfg.Log.Level = config.LogLevelDebug
	}

	// The terminal belongs to the interface, so logs go to a file instead
	logPath := filepath.Join(os.TempDir(), "addressbook.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:mnd
	if err != nil {
		log.Fatalf("Could not open log file %q: %v\n", logPath, err)
	}
	defer logFile.Close()
	logger := bootstrap.NewLogger(cfg, logFile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lookup := client.New(
		cfg.LookupURL(),
		client.WithTimeout(time.Duration(cfg.Client.Timeout)*time.Second),
		client.WithLogger(logger),
	)

	var book core.AddressBook
	var store *addressbook.FileStore
	if len(cfg.Book.Path) > 0 {
		store, err = addressbook.OpenFileStore(cfg.Book.Path, addressbook.WithLogger(logger))
		if err != nil {
			log.Fatalf("Could not open the address book: %v\n", err)
		}
		book = store
		logger.Info("Using address book", "path", store.Path())
	} else {
		book = addressbook.NewMemoryStore()
		logger.Info("Address book is kept in memory")
	}

	orchestrator := search.New(lookup, book, search.WithLogger(logger))
	ui := NewUI(ctx, orchestrator, book)
	program := tea.NewProgram(ui, tea.WithAltScreen(), tea.WithContext(ctx))

	if cfg.Client.AutoSearch {
		debouncer := debounce.New(time.Duration(cfg.Client.Debounce) * time.Millisecond)
		ui.autoSearch = func(postcode string, streetNumber string) {
			debouncer(func() {
				program.Send(autoSearchMsg{postcode: postcode, streetNumber: streetNumber})
			})
		}
	}

	// Reflect changes made to the address book by other processes
	if store != nil {
		go func() {
			err := store.Watch(ctx, func(addresses []core.Address) {
				program.Send(bookMsg{addresses: addresses})
			})
			if err != nil {
				slog.Error("Could not watch the address book", "error", err, "path", store.Path())
			}
		}()
	}

	if _, err := program.Run(); err != nil {
		fmt.Println(err)
		os.Exit(1) //nolint:gocritic // exitAfterDefer
	}
}
