package addressbook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/prior-it/addressbook/core"
)

const DefaultReloadDebounce = 100 * time.Millisecond

// FileStore is an address book that is persisted as a JSON list in a single file.
//
// Every change is written to disk before it becomes visible. Changes made to the file by other processes are
// picked up by Reload, or automatically while Watch is running.
type FileStore struct {
	path     string
	log      *slog.Logger
	debounce time.Duration

	mu      sync.RWMutex
	entries entries
}

var _ core.AddressBook = &FileStore{}

type FileOption func(*FileStore)

func WithLogger(log *slog.Logger) FileOption {
	return func(s *FileStore) { s.log = log }
}

// WithReloadDebounce sets how long Watch waits for the file to settle before reloading it.
func WithReloadDebounce(d time.Duration) FileOption {
	return func(s *FileStore) { s.debounce = d }
}

// OpenFileStore opens the address book at path. A file that does not exist yet is treated as an empty address
// book and will be created on the first change.
func OpenFileStore(path string, opts ...FileOption) (*FileStore, error) {
	if len(path) == 0 {
		return nil, errors.New("address book path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve address book path %q: %w", path, err)
	}
	store := &FileStore{
		path:     abs,
		log:      slog.Default(),
		debounce: DefaultReloadDebounce,
	}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.Reload(); err != nil {
		return nil, err
	}
	return store, nil
}

// Path returns the absolute path of the backing file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Add(_ context.Context, address core.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := s.entries.with(address)
	if err := s.write(updated); err != nil {
		return err
	}
	s.entries = updated
	return nil
}

func (s *FileStore) List(context.Context) ([]core.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries.list(), nil
}

func (s *FileStore) Remove(_ context.Context, id core.AddressID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated, ok := s.entries.without(id)
	if !ok {
		return core.ErrNotFound
	}
	if err := s.write(updated); err != nil {
		return err
	}
	s.entries = updated
	return nil
}

// Reload replaces the in-memory entries with the contents of the file.
// If the file cannot be parsed, the current entries are kept and an error is returned.
func (s *FileStore) Reload() error {
	loaded, err := s.read()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = loaded
	return nil
}

func (s *FileStore) read() (entries, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read address book %q: %w", s.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var loaded entries
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("cannot parse address book %q: %w", s.path, err)
	}
	return loaded, nil
}

// write atomically replaces the file with the specified entries. Must be called with the write lock held.
func (s *FileStore) write(e entries) error {
	data, err := json.MarshalIndent(e.list(), "", "  ")
	if err != nil {
		return fmt.Errorf("cannot encode address book: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("cannot create address book directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("cannot create temporary address book file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("cannot write address book: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cannot write address book: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("cannot replace address book %q: %w", s.path, err)
	}
	return nil
}

// Watch reloads the address book whenever its file changes on disk and calls onChange with the new entries.
// Bursts of changes are debounced into a single reload.
// This blocks until the context is cancelled.
func (s *FileStore) Watch(ctx context.Context, onChange func([]core.Address)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file, since atomic writes replace the file
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("cannot create address book directory %q: %w", dir, err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("cannot add directory %q to watcher: %w", dir, err)
	}

	debouncer := debounce.New(s.debounce)
	reload := func() {
		if ctx.Err() != nil {
			return
		}
		if err := s.Reload(); err != nil {
			s.log.Error("Could not reload the address book", "error", err, "path", s.path)
			return
		}
		s.log.Debug("Address book reloaded", "path", s.path)
		if onChange != nil {
			list, _ := s.List(ctx)
			onChange(list)
		}
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				debouncer(reload)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("Address book watcher error", "error", err, "path", s.path)
		case <-ctx.Done():
			return nil
		}
	}
}
