package search_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/biter777/countries"
	"github.com/prior-it/addressbook/client"
	"github.com/prior-it/addressbook/core"
	"github.com/prior-it/addressbook/search"
	"github.com/prior-it/addressbook/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var synthesizer = core.NewSynthesizer(core.DefaultMaxCandidates, countries.Netherlands)

// stubLookup answers every lookup immediately with synthesized addresses, or with err if it is set.
type stubLookup struct {
	err error
}

func (s *stubLookup) Lookup(_ context.Context, postcode string, streetNumber string) ([]core.RawAddress, error) {
	if s.err != nil {
		return nil, s.err
	}
	return synthesizer.Synthesize(postcode, streetNumber), nil
}

type lookupCall struct {
	ctx      context.Context
	postcode string
	reply    chan error
}

// gatedLookup blocks every lookup until the test replies to it, so tests control the order of completion.
type gatedLookup struct {
	calls chan lookupCall
}

func newGatedLookup() *gatedLookup {
	return &gatedLookup{calls: make(chan lookupCall)}
}

func (g *gatedLookup) Lookup(ctx context.Context, postcode string, streetNumber string) ([]core.RawAddress, error) {
	call := lookupCall{ctx: ctx, postcode: postcode, reply: make(chan error)}
	g.calls <- call
	if err := <-call.reply; err != nil {
		return nil, err
	}
	return synthesizer.Synthesize(postcode, streetNumber), nil
}

type fakeBook struct {
	mu        sync.Mutex
	addresses []core.Address
	err       error
}

func (b *fakeBook) Add(_ context.Context, address core.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.addresses = append(b.addresses, address)
	return nil
}

func (b *fakeBook) List(context.Context) ([]core.Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addresses, nil
}

func (b *fakeBook) Remove(context.Context, core.AddressID) error {
	return nil
}

// gatedBook blocks every Add until the test releases it.
type gatedBook struct {
	fakeBook
	adding  chan core.Address
	release chan error
}

func newGatedBook() *gatedBook {
	return &gatedBook{adding: make(chan core.Address), release: make(chan error)}
}

func (b *gatedBook) Add(ctx context.Context, address core.Address) error {
	b.adding <- address
	if err := <-b.release; err != nil {
		return err
	}
	return b.fakeBook.Add(ctx, address)
}

// stateWithin reads the state in the background and fails if it takes longer than a second.
func stateWithin(t *testing.T, orchestrator *search.Orchestrator) search.State {
	t.Helper()
	done := make(chan search.State, 1)
	go func() { done <- orchestrator.State() }()
	select {
	case state := <-done:
		return state
	case <-time.After(time.Second):
		require.FailNow(t, "the state cannot be read while the address book is busy")
		return search.State{}
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("ok: initial state is idle", func(t *testing.T) {
		state := search.New(&stubLookup{}, &fakeBook{}).State()
		assert.Equal(t, search.StatusIdle, state.Status)
		assert.Empty(t, state.Results)
		assert.Empty(t, state.ErrorMessage)
	})

	t.Run("ok: results are transformed candidates", func(t *testing.T) {
		orchestrator := search.New(&stubLookup{}, &fakeBook{})
		state := orchestrator.Search(ctx, "1234", "10")
		assert.Equal(t, search.StatusSuccess, state.Status)
		assert.Empty(t, state.ErrorMessage)
		assert.Equal(t, core.TransformAll(synthesizer.Synthesize("1234", "10")), state.Results)
		assert.Equal(t, "1234", state.Postcode)
		assert.Equal(t, "10", state.HouseNumber)
		assert.Equal(t, state, orchestrator.State())
	})

	t.Run("ok: begin clears previous results and errors", func(t *testing.T) {
		lookup := &stubLookup{err: client.ErrTransport}
		orchestrator := search.New(lookup, &fakeBook{})
		state := orchestrator.Search(ctx, "1234", "10")
		require.Equal(t, search.StatusError, state.Status)

		orchestrator.Begin("5678", "1")
		state = orchestrator.State()
		assert.Equal(t, search.StatusLoading, state.Status)
		assert.Empty(t, state.ErrorMessage)
		assert.Empty(t, state.Results)
	})

	t.Run("err: server messages are shown as-is", func(t *testing.T) {
		lookup := &stubLookup{err: &client.ResponseError{StatusCode: 400, Message: core.ErrPostcodeTooShort.Error()}}
		state := search.New(lookup, &fakeBook{}).Search(ctx, "12", "10")
		assert.Equal(t, search.StatusError, state.Status)
		assert.Equal(t, "Postcode must be at least 4 digits!", state.ErrorMessage)
		assert.Empty(t, state.Results)
	})

	t.Run("err: failure messages", func(t *testing.T) {
		errEOF := errors.New("unexpected EOF")
		for _, test := range []struct {
			err     error
			message string
		}{
			{client.ErrTransport, "Failed to fetch addresses."},
			{errors.Join(client.ErrTransport, errEOF), "Failed to fetch addresses."},
			{context.DeadlineExceeded, "Failed to fetch addresses."},
			{&client.ResponseError{StatusCode: 500}, "Failed to fetch addresses."},
			{client.ErrMalformedResponse, "No addresses found."},
			{errors.Join(client.ErrMalformedResponse, errEOF), "No addresses found."},
			{&client.ResponseError{StatusCode: 404, Message: "No results found!"}, "No results found!"},
		} {
			state := search.New(&stubLookup{err: test.err}, &fakeBook{}).Search(ctx, "1234", "10")
			assert.Equal(t, search.StatusError, state.Status, "error %v", test.err)
			assert.Equal(t, test.message, state.ErrorMessage, "error %v", test.err)
		}
	})

	t.Run("ok: only the latest search is applied when responses arrive out of order", func(t *testing.T) {
		lookup := newGatedLookup()
		orchestrator := search.New(lookup, &fakeBook{})

		doneFirst := make(chan search.State)
		go func() { doneFirst <- orchestrator.Search(ctx, "1111", "1") }()
		first := <-lookup.calls
		assert.Equal(t, "1111", first.postcode)

		doneSecond := make(chan search.State)
		go func() { doneSecond <- orchestrator.Search(ctx, "2222", "2") }()
		second := <-lookup.calls
		assert.Equal(t, "2222", second.postcode)
		assert.Error(t, first.ctx.Err(), "the superseded lookup should be cancelled")
		assert.NoError(t, second.ctx.Err())

		second.reply <- nil
		state := <-doneSecond
		assert.Equal(t, search.StatusSuccess, state.Status)
		expected := core.TransformAll(synthesizer.Synthesize("2222", "2"))
		assert.Equal(t, expected, state.Results)

		first.reply <- nil
		state = <-doneFirst
		assert.Equal(t, expected, state.Results, "the stale response should be discarded")
		assert.Equal(t, expected, orchestrator.State().Results)
		assert.Equal(t, "2222", orchestrator.State().Postcode)
	})

	t.Run("ok: a stale response arriving first does not end the loading state", func(t *testing.T) {
		lookup := newGatedLookup()
		orchestrator := search.New(lookup, &fakeBook{})

		doneFirst := make(chan search.State)
		go func() { doneFirst <- orchestrator.Search(ctx, "1111", "1") }()
		first := <-lookup.calls

		doneSecond := make(chan search.State)
		go func() { doneSecond <- orchestrator.Search(ctx, "2222", "2") }()
		second := <-lookup.calls

		first.reply <- errors.New("connection reset")
		state := <-doneFirst
		assert.Equal(t, search.StatusLoading, state.Status)
		assert.Empty(t, state.ErrorMessage)
		assert.Empty(t, state.Results)

		second.reply <- nil
		state = <-doneSecond
		assert.Equal(t, search.StatusSuccess, state.Status)
		assert.Equal(t, core.TransformAll(synthesizer.Synthesize("2222", "2")), state.Results)
	})

	t.Run("ok: a ticket that was superseded before completing never performs a lookup", func(t *testing.T) {
		lookup := newGatedLookup()
		orchestrator := search.New(lookup, &fakeBook{})
		stale := orchestrator.Begin("1111", "1")
		current := orchestrator.Begin("2222", "2")

		state := orchestrator.Complete(ctx, stale)
		assert.Equal(t, search.StatusLoading, state.Status)
		assert.Equal(t, "2222", state.Postcode)

		done := make(chan search.State)
		go func() { done <- orchestrator.Complete(ctx, current) }()
		call := <-lookup.calls
		assert.Equal(t, "2222", call.postcode)
		call.reply <- nil
		assert.Equal(t, search.StatusSuccess, (<-done).Status)
	})

	t.Run("ok: reset discards the search in progress", func(t *testing.T) {
		lookup := newGatedLookup()
		orchestrator := search.New(lookup, &fakeBook{})
		done := make(chan search.State)
		go func() { done <- orchestrator.Search(ctx, "1111", "1") }()
		call := <-lookup.calls

		orchestrator.Reset()
		assert.Error(t, call.ctx.Err())
		call.reply <- nil
		state := <-done
		assert.Equal(t, search.StatusIdle, state.Status)
		assert.Empty(t, state.Results)
		assert.Empty(t, state.Postcode)
	})

	t.Run("ok: concurrent searches settle on a consistent state", func(t *testing.T) {
		orchestrator := search.New(&stubLookup{}, &fakeBook{})
		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				orchestrator.Search(ctx, tests.Digits(4), tests.Digits(2))
			}()
		}
		wg.Wait()
		state := orchestrator.State()
		assert.Equal(t, search.StatusSuccess, state.Status)
		assert.Equal(t, core.TransformAll(synthesizer.Synthesize(state.Postcode, state.HouseNumber)), state.Results)
	})
}

func TestCompose(t *testing.T) {
	ctx := context.Background()

	searched := func(t *testing.T, book core.AddressBook) (*search.Orchestrator, search.State) {
		t.Helper()
		orchestrator := search.New(&stubLookup{}, book)
		state := orchestrator.Search(ctx, "1234", "10")
		require.Equal(t, search.StatusSuccess, state.Status)
		require.NotEmpty(t, state.Results)
		return orchestrator, state
	}

	t.Run("ok: selected candidate is added with its name", func(t *testing.T) {
		book := &fakeBook{}
		orchestrator, state := searched(t, book)
		selected := state.Results[len(state.Results)-1]
		orchestrator.SelectCandidate(selected.ID)

		firstName, lastName := tests.Faker.FirstName(), tests.Faker.LastName()
		require.NoError(t, orchestrator.Compose(ctx, firstName, lastName))

		require.Len(t, book.addresses, 1)
		added := book.addresses[0]
		assert.Equal(t, selected.ID, added.ID)
		assert.Equal(t, selected.Street, added.Street)
		assert.Equal(t, firstName, added.FirstName)
		assert.Equal(t, lastName, added.LastName)

		state = orchestrator.State()
		assert.Equal(t, search.StatusIdle, state.Status)
		assert.Empty(t, state.Results)
		assert.Empty(t, state.Selected)
		assert.Empty(t, state.FirstName)
		assert.Empty(t, state.Postcode)
	})

	t.Run("err: missing names", func(t *testing.T) {
		for _, name := range [][2]string{{"", ""}, {"Ada", ""}, {"", "Lovelace"}} {
			book := &fakeBook{}
			orchestrator, state := searched(t, book)
			orchestrator.SelectCandidate(state.Results[0].ID)

			err := orchestrator.Compose(ctx, name[0], name[1])
			assert.ErrorIs(t, err, search.ErrNamesMandatory)
			assert.Empty(t, book.addresses)

			after := orchestrator.State()
			assert.Equal(t, "First name and last name fields mandatory!", after.ErrorMessage)
			assert.Equal(t, search.StatusSuccess, after.Status, "the status should not change")
			assert.Equal(t, state.Results, after.Results)
			assert.Equal(t, state.Results[0].ID, after.Selected)
		}
	})

	t.Run("err: nothing selected", func(t *testing.T) {
		book := &fakeBook{}
		orchestrator, _ := searched(t, book)
		err := orchestrator.Compose(ctx, "Ada", "Lovelace")
		assert.ErrorIs(t, err, search.ErrNoSelection)
		assert.Equal(
			t,
			"No address selected, try to select an address or find one if you haven't",
			orchestrator.State().ErrorMessage,
		)
		assert.Empty(t, book.addresses)
	})

	t.Run("err: nothing to select from", func(t *testing.T) {
		orchestrator := search.New(&stubLookup{}, &fakeBook{})
		orchestrator.SelectCandidate("some-id")
		assert.ErrorIs(t, orchestrator.Compose(ctx, "Ada", "Lovelace"), search.ErrNoSelection)
		assert.Equal(t, search.StatusIdle, orchestrator.State().Status)
	})

	t.Run("err: selection is not among the results", func(t *testing.T) {
		book := &fakeBook{}
		orchestrator, _ := searched(t, book)
		orchestrator.SelectCandidate(core.AddressID("unknown"))
		err := orchestrator.Compose(ctx, "Ada", "Lovelace")
		assert.ErrorIs(t, err, search.ErrSelectionNotFound)
		assert.Equal(t, "Selected address not found", orchestrator.State().ErrorMessage)
		assert.Empty(t, book.addresses)
	})

	t.Run("err: address book failure keeps the form", func(t *testing.T) {
		book := &fakeBook{err: errors.New("disk full")}
		orchestrator, state := searched(t, book)
		orchestrator.SelectCandidate(state.Results[0].ID)

		err := orchestrator.Compose(ctx, "Ada", "Lovelace")
		assert.ErrorIs(t, err, search.ErrSaveFailed)
		after := orchestrator.State()
		assert.Equal(t, "Could not save address.", after.ErrorMessage)
		assert.Equal(t, "Ada", after.FirstName)
		assert.Equal(t, "Lovelace", after.LastName)
		assert.Equal(t, state.Results, after.Results)
	})

	t.Run("ok: retry after fixing the name", func(t *testing.T) {
		book := &fakeBook{}
		orchestrator, state := searched(t, book)
		orchestrator.SelectCandidate(state.Results[0].ID)
		require.Error(t, orchestrator.Compose(ctx, "Ada", ""))
		require.NoError(t, orchestrator.Compose(ctx, "Ada", "Lovelace"))
		assert.Len(t, book.addresses, 1)
		assert.Empty(t, orchestrator.State().ErrorMessage)
	})

	t.Run("ok: set name and selection", func(t *testing.T) {
		orchestrator, state := searched(t, &fakeBook{})
		orchestrator.SetName("Ada", "Lovelace")
		orchestrator.SelectCandidate(state.Results[0].ID)
		after := orchestrator.State()
		assert.Equal(t, "Ada", after.FirstName)
		assert.Equal(t, "Lovelace", after.LastName)
		selection, ok := after.Selection()
		assert.True(t, ok)
		assert.Equal(t, state.Results[0], selection)
	})

	t.Run("ok: state stays readable while the address book is busy", func(t *testing.T) {
		book := newGatedBook()
		orchestrator := search.New(&stubLookup{}, book)
		state := orchestrator.Search(ctx, "1234", "10")
		require.NotEmpty(t, state.Results)
		orchestrator.SelectCandidate(state.Results[0].ID)

		done := make(chan error)
		go func() { done <- orchestrator.Compose(ctx, "Ada", "Lovelace") }()
		added := <-book.adding
		assert.Equal(t, state.Results[0].ID, added.ID)

		busy := stateWithin(t, orchestrator)
		assert.Equal(t, search.StatusSuccess, busy.Status)
		assert.Equal(t, "Ada", busy.FirstName)

		book.release <- nil
		require.NoError(t, <-done)
		assert.Equal(t, search.StatusIdle, orchestrator.State().Status)
		assert.Len(t, book.addresses, 1)
	})

	t.Run("ok: a search started while saving is not reset", func(t *testing.T) {
		book := newGatedBook()
		orchestrator := search.New(&stubLookup{}, book)
		state := orchestrator.Search(ctx, "1234", "10")
		orchestrator.SelectCandidate(state.Results[0].ID)

		done := make(chan error)
		go func() { done <- orchestrator.Compose(ctx, "Ada", "Lovelace") }()
		<-book.adding
		newer := orchestrator.Search(ctx, "5678", "2")
		require.Equal(t, search.StatusSuccess, newer.Status)

		book.release <- errors.New("disk full")
		assert.ErrorIs(t, <-done, search.ErrSaveFailed)
		after := orchestrator.State()
		assert.Equal(t, "5678", after.Postcode)
		assert.Equal(t, newer.Results, after.Results)
		assert.Empty(t, after.ErrorMessage)
	})
}
