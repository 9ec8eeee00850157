// Package search drives the lookup, selection and composition of addresses for a single user.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/prior-it/addressbook/client"
	"github.com/prior-it/addressbook/core"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Error is an error whose text is shown to the user as-is.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrFetchFailed       Error = "Failed to fetch addresses."
	ErrNoAddresses       Error = "No addresses found."
	ErrNamesMandatory    Error = "First name and last name fields mandatory!"
	ErrNoSelection       Error = "No address selected, try to select an address or find one if you haven't"
	ErrSelectionNotFound Error = "Selected address not found"
	ErrSaveFailed        Error = "Could not save address."
)

// State is everything a search form needs to render itself.
type State struct {
	Status       Status
	Results      []core.Address
	ErrorMessage string

	Postcode    string
	HouseNumber string
	FirstName   string
	LastName    string
	Selected    core.AddressID
}

// Selection returns the selected candidate, if it is part of the current results.
func (s State) Selection() (core.Address, bool) {
	if len(s.Selected) == 0 {
		return core.Address{}, false
	}
	idx := slices.IndexFunc(s.Results, func(a core.Address) bool { return a.ID == s.Selected })
	if idx < 0 {
		return core.Address{}, false
	}
	return s.Results[idx], true
}

// Ticket identifies a single search between Begin and Complete.
type Ticket struct {
	generation   uint64
	postcode     string
	streetNumber string
}

// Orchestrator owns the search state of one user.
//
// Every search gets a new generation. Only the outcome of the latest generation is ever applied, so a slow
// response to an earlier search can never overwrite the results of a newer one.
type Orchestrator struct {
	lookup core.AddressLookup
	book   core.AddressBook
	log    *slog.Logger

	mu         sync.Mutex
	state      State
	generation uint64
	cancel     context.CancelFunc
}

type Option func(*Orchestrator)

func WithLogger(log *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// New creates an idle orchestrator that looks up addresses with lookup and adds composed addresses to book.
func New(lookup core.AddressLookup, book core.AddressBook, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		lookup: lookup,
		book:   book,
		log:    slog.Default(),
		state:  State{Status: StatusIdle},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns a copy of the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshot()
}

func (o *Orchestrator) snapshot() State {
	state := o.state
	state.Results = slices.Clone(o.state.Results)
	return state
}

// Search looks up the candidates for the postcode and street number and returns the resulting state.
// If another search is started before this one completes, this search's outcome is discarded and the returned
// state is that of the newer search.
func (o *Orchestrator) Search(ctx context.Context, postcode string, streetNumber string) State {
	return o.Complete(ctx, o.Begin(postcode, streetNumber))
}

// Begin starts a new search: previous results and errors are cleared and the state changes to loading.
// Any search that is still in progress is superseded.
// The returned ticket should be passed to Complete, which performs the actual lookup.
func (o *Orchestrator) Begin(postcode string, streetNumber string) Ticket {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.supersede()
	o.state.Postcode = postcode
	o.state.HouseNumber = streetNumber
	o.state.Results = nil
	o.state.ErrorMessage = ""
	o.state.Status = StatusLoading
	return Ticket{
		generation:   o.generation,
		postcode:     postcode,
		streetNumber: streetNumber,
	}
}

// supersede invalidates the search in progress, if any. Must be called with the lock held.
func (o *Orchestrator) supersede() {
	o.generation++
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// Complete performs the lookup for a ticket returned by Begin and applies its outcome, unless a newer search
// was started (or the state was reset) in the meantime.
func (o *Orchestrator) Complete(ctx context.Context, ticket Ticket) State {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	if ticket.generation != o.generation {
		defer o.mu.Unlock()
		return o.snapshot()
	}
	o.cancel = cancel
	o.mu.Unlock()

	raws, err := o.lookup.Lookup(ctx, ticket.postcode, ticket.streetNumber)

	o.mu.Lock()
	defer o.mu.Unlock()
	if ticket.generation != o.generation {
		o.log.Debug("Discarding superseded search",
			"postcode", ticket.postcode,
			"streetnumber", ticket.streetNumber,
			"error", err,
		)
		return o.snapshot()
	}
	o.cancel = nil

	if err != nil {
		o.log.Debug("Search failed", "postcode", ticket.postcode, "streetnumber", ticket.streetNumber, "error", err)
		o.state.Status = StatusError
		o.state.ErrorMessage = lookupErrorMessage(err)
		return o.snapshot()
	}

	o.state.Status = StatusSuccess
	o.state.Results = core.TransformAll(raws)
	return o.snapshot()
}

// lookupErrorMessage returns the message to show the user for a failed lookup.
func lookupErrorMessage(err error) string {
	var responseErr *client.ResponseError
	switch {
	case errors.As(err, &responseErr) && len(responseErr.Message) > 0:
		return responseErr.Message
	case errors.Is(err, client.ErrMalformedResponse):
		return ErrNoAddresses.Error()
	default:
		return ErrFetchFailed.Error()
	}
}

// Reset clears all fields, results, the selection and the error, and supersedes any search in progress.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reset()
}

func (o *Orchestrator) reset() {
	o.supersede()
	o.state = State{Status: StatusIdle}
}

// SelectCandidate marks the candidate with the specified id as the one to compose.
// The id is only checked when composing.
func (o *Orchestrator) SelectCandidate(id core.AddressID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Selected = id
}

// SetName updates the name fields without composing.
func (o *Orchestrator) SetName(firstName string, lastName string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.FirstName = firstName
	o.state.LastName = lastName
}

// Compose attaches the name to the selected candidate and adds it to the address book, after which the state is
// reset.
//
// If the name is incomplete, nothing is selected or the selection is no longer part of the results, this returns
// the corresponding Error and only the state's error message changes.
// The address book is called without holding the lock, so the state stays readable while it writes. If a new
// search or reset happens in the meantime, the address is still added but the newer state is left alone.
func (o *Orchestrator) Compose(ctx context.Context, firstName string, lastName string) error {
	o.mu.Lock()
	o.state.FirstName = firstName
	o.state.LastName = lastName
	address, err := o.composed()
	if err != nil {
		o.state.ErrorMessage = err.Error()
		o.mu.Unlock()
		return err
	}
	generation := o.generation
	o.mu.Unlock()

	err = o.book.Add(ctx, address)

	o.mu.Lock()
	defer o.mu.Unlock()
	current := generation == o.generation
	if err != nil {
		o.log.Error("Could not add address to the address book", "error", err, "address_id", address.ID)
		if current {
			o.state.ErrorMessage = ErrSaveFailed.Error()
		}
		return errors.Join(ErrSaveFailed, fmt.Errorf("cannot add address: %w", err))
	}

	o.log.Info("Address added to the address book", "address_id", address.ID)
	if current {
		o.reset()
	}
	return nil
}

// composed returns the selected candidate with the name attached. Must be called with the lock held.
func (o *Orchestrator) composed() (core.Address, error) {
	if len(o.state.FirstName) == 0 || len(o.state.LastName) == 0 {
		return core.Address{}, ErrNamesMandatory
	}
	if len(o.state.Selected) == 0 || len(o.state.Results) == 0 {
		return core.Address{}, ErrNoSelection
	}
	address, ok := o.state.Selection()
	if !ok {
		return core.Address{}, ErrSelectionNotFound
	}
	address.FirstName = o.state.FirstName
	address.LastName = o.state.LastName
	return address, nil
}
