package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/prior-it/addressbook/core"
	"github.com/prior-it/addressbook/search"
)

var (
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#139DFF"))
	StyleError    = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626"))
	StyleSucces   = lipgloss.NewStyle().Foreground(lipgloss.Color("#1EA97C"))
	StyleMuted    = lipgloss.NewStyle().Foreground(lipgloss.Color("#525252"))
	StyleFocused  = lipgloss.NewStyle().Foreground(lipgloss.Color("#139DFF"))
	StyleSection  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder(), true).Padding(0, 1)
	StyleSelected = lipgloss.NewStyle().Bold(true)
)

var keys = keyMap{
	Next: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next field"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "previous field    "),
	),
	// Up and Down only apply to the candidate and address book lists
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "move up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "move down    "),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "search / select / save"),
	),
	Save: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "save address    "),
	),
	Remove: key.NewBinding(
		key.WithKeys("d", "delete"),
		key.WithHelp("d", "remove from address book"),
	),
	Reset: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "clear all    "),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "quit    "),
	),
}

type focus int

const (
	focusPostcode focus = iota
	focusStreetNumber
	focusCandidates
	focusFirstName
	focusLastName
	focusBook
	focusCount
)

type (
	searchDoneMsg struct{ state search.State }
	autoSearchMsg struct{ postcode, streetNumber string }
	composedMsg   struct{ err error }
	bookMsg       struct {
		addresses []core.Address
		err       error
	}
	removedMsg struct{ err error }
)

// AddressBookUI is the terminal front-end of the search orchestrator and the address book.
type AddressBookUI struct {
	ctx          context.Context
	orchestrator *search.Orchestrator
	book         core.AddressBook
	// Called whenever the postcode or street number changes, nil if searching while typing is disabled
	autoSearch func(postcode string, streetNumber string)

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	postcode     textinput.Model
	streetNumber textinput.Model
	firstName    textinput.Model
	lastName     textinput.Model

	focus           focus
	candidateCursor int
	bookCursor      int
	addresses       []core.Address
	err             error
	width           int
	quitting        bool
}

func newInput(placeholder string, charLimit int) textinput.Model {
	input := textinput.New()
	input.Placeholder = placeholder
	input.CharLimit = charLimit
	input.Width = 20 //nolint:mnd
	input.Prompt = ""
	return input
}

func NewUI(ctx context.Context, orchestrator *search.Orchestrator, book core.AddressBook) *AddressBookUI {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = StyleTitle

	h := help.New()
	// Workaround for the column spacing in the full help view, see the trailing spaces in the key descriptions
	h.Styles.FullSeparator = lipgloss.NewStyle().Width(0)

	ui := &AddressBookUI{
		ctx:          ctx,
		orchestrator: orchestrator,
		book:         book,
		keys:         keys,
		help:         h,
		spinner:      s,
		postcode:     newInput("1234", 12),
		streetNumber: newInput("10", 8),
		firstName:    newInput("First name", 64),
		lastName:     newInput("Last name", 64),
		addresses:    []core.Address{},
	}
	ui.postcode.Focus()
	return ui
}

func (ui *AddressBookUI) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, ui.spinner.Tick, ui.loadBook())
}

// input returns the text input that belongs to the specified focus, or nil if it is not a text input.
func (ui *AddressBookUI) input(f focus) *textinput.Model {
	switch f {
	case focusPostcode:
		return &ui.postcode
	case focusStreetNumber:
		return &ui.streetNumber
	case focusFirstName:
		return &ui.firstName
	case focusLastName:
		return &ui.lastName
	default:
		return nil
	}
}

func (ui *AddressBookUI) setFocus(f focus) tea.Cmd {
	if input := ui.input(ui.focus); input != nil {
		input.Blur()
	}
	ui.focus = f
	if input := ui.input(f); input != nil {
		return input.Focus()
	}
	return nil
}

func (ui *AddressBookUI) clearInputs() {
	ui.postcode.Reset()
	ui.streetNumber.Reset()
	ui.firstName.Reset()
	ui.lastName.Reset()
	ui.candidateCursor = 0
}

func (ui *AddressBookUI) search() tea.Cmd {
	ticket := ui.orchestrator.Begin(ui.postcode.Value(), ui.streetNumber.Value())
	orchestrator, ctx := ui.orchestrator, ui.ctx
	return func() tea.Msg {
		return searchDoneMsg{state: orchestrator.Complete(ctx, ticket)}
	}
}

func (ui *AddressBookUI) compose() tea.Cmd {
	orchestrator, ctx := ui.orchestrator, ui.ctx
	firstName, lastName := ui.firstName.Value(), ui.lastName.Value()
	return func() tea.Msg {
		return composedMsg{err: orchestrator.Compose(ctx, firstName, lastName)}
	}
}

func (ui *AddressBookUI) loadBook() tea.Cmd {
	book, ctx := ui.book, ui.ctx
	return func() tea.Msg {
		addresses, err := book.List(ctx)
		return bookMsg{addresses: addresses, err: err}
	}
}

func (ui *AddressBookUI) remove() tea.Cmd {
	if ui.bookCursor >= len(ui.addresses) {
		return nil
	}
	book, ctx, id := ui.book, ui.ctx, ui.addresses[ui.bookCursor].ID
	return func() tea.Msg {
		return removedMsg{err: book.Remove(ctx, id)}
	}
}

// submit handles the enter key, which moves the form forward depending on the focused field.
func (ui *AddressBookUI) submit() tea.Cmd {
	switch ui.focus {
	case focusPostcode:
		return ui.setFocus(focusStreetNumber)
	case focusStreetNumber:
		return ui.search()
	case focusCandidates:
		results := ui.orchestrator.State().Results
		if ui.candidateCursor < len(results) {
			ui.orchestrator.SelectCandidate(results[ui.candidateCursor].ID)
		}
		return ui.setFocus(focusFirstName)
	case focusFirstName:
		return ui.setFocus(focusLastName)
	case focusLastName:
		return ui.compose()
	default:
		return nil
	}
}

// move moves the cursor of the focused list.
func (ui *AddressBookUI) move(delta int) {
	switch ui.focus {
	case focusCandidates:
		ui.candidateCursor = clamp(ui.candidateCursor+delta, len(ui.orchestrator.State().Results))
	case focusBook:
		ui.bookCursor = clamp(ui.bookCursor+delta, len(ui.addresses))
	default:
	}
}

func clamp(cursor int, length int) int {
	return max(0, min(cursor, length-1))
}

//nolint:cyclop
func (ui *AddressBookUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		isList := ui.focus == focusCandidates || ui.focus == focusBook
		switch {
		case key.Matches(msg, ui.keys.Quit):
			ui.quitting = true
			return ui, tea.Quit
		case key.Matches(msg, ui.keys.Next):
			return ui, ui.setFocus((ui.focus + 1) % focusCount)
		case key.Matches(msg, ui.keys.Prev):
			return ui, ui.setFocus((ui.focus + focusCount - 1) % focusCount)
		case key.Matches(msg, ui.keys.Reset):
			ui.orchestrator.Reset()
			ui.clearInputs()
			ui.err = nil
			return ui, ui.setFocus(focusPostcode)
		case key.Matches(msg, ui.keys.Save):
			return ui, ui.compose()
		case key.Matches(msg, ui.keys.Enter):
			return ui, ui.submit()
		case isList && key.Matches(msg, ui.keys.Up):
			ui.move(-1)
			return ui, nil
		case isList && key.Matches(msg, ui.keys.Down):
			ui.move(1)
			return ui, nil
		case ui.focus == focusBook && key.Matches(msg, ui.keys.Remove):
			return ui, ui.remove()
		case isList && key.Matches(msg, ui.keys.Help):
			ui.help.ShowAll = !ui.help.ShowAll
			return ui, nil
		}
		cmds = append(cmds, ui.updateInput(msg))

	case searchDoneMsg:
		ui.candidateCursor = 0
		if msg.state.Status == search.StatusSuccess && len(msg.state.Results) > 0 &&
			(ui.focus == focusPostcode || ui.focus == focusStreetNumber) {
			cmds = append(cmds, ui.setFocus(focusCandidates))
		}

	case autoSearchMsg:
		// Ignore searches for values that have been changed since
		if msg.postcode == ui.postcode.Value() && msg.streetNumber == ui.streetNumber.Value() {
			cmds = append(cmds, ui.search())
		}

	case composedMsg:
		if msg.err == nil {
			ui.clearInputs()
			ui.err = nil
			cmds = append(cmds, ui.setFocus(focusPostcode), ui.loadBook())
		}

	case bookMsg:
		if msg.err != nil {
			ui.err = msg.err
		} else {
			ui.addresses = msg.addresses
			ui.bookCursor = clamp(ui.bookCursor, len(ui.addresses))
		}

	case removedMsg:
		if msg.err != nil {
			ui.err = fmt.Errorf("could not remove address: %w", msg.err)
		} else {
			cmds = append(cmds, ui.loadBook())
		}

	case tea.WindowSizeMsg:
		ui.width = msg.Width
		ui.help.Width = msg.Width
	}

	ui.spinner, cmd = ui.spinner.Update(msg)
	cmds = append(cmds, cmd)

	return ui, tea.Batch(cmds...)
}

// updateInput passes a key press to the focused text input.
func (ui *AddressBookUI) updateInput(msg tea.KeyMsg) tea.Cmd {
	input := ui.input(ui.focus)
	if input == nil {
		return nil
	}
	before := input.Value()
	var cmd tea.Cmd
	*input, cmd = input.Update(msg)
	if input.Value() == before {
		return cmd
	}

	switch ui.focus {
	case focusPostcode, focusStreetNumber:
		if ui.autoSearch != nil && len(ui.postcode.Value()) > 0 && len(ui.streetNumber.Value()) > 0 {
			ui.autoSearch(ui.postcode.Value(), ui.streetNumber.Value())
		}
	case focusFirstName, focusLastName:
		ui.orchestrator.SetName(ui.firstName.Value(), ui.lastName.Value())
	default:
	}
	return cmd
}

func (ui *AddressBookUI) View() string {
	if ui.quitting {
		return "\nBye!\n"
	}
	state := ui.orchestrator.State()

	var b strings.Builder
	b.WriteString(StyleTitle.Render("Address book") + "\n\n")
	b.WriteString(ui.SearchView(state) + "\n")
	b.WriteString(ui.CandidatesView(state) + "\n")
	b.WriteString(ui.NameView() + "\n")
	b.WriteString(ui.BookView() + "\n")
	b.WriteString(ui.FooterView(state))
	return b.String()
}

func (ui *AddressBookUI) label(f focus, text string) string {
	if ui.focus == f {
		return StyleFocused.Render("> " + text)
	}
	return "  " + text
}

func (ui *AddressBookUI) SearchView(state search.State) string {
	line := fmt.Sprintf(
		"%v %v   %v %v",
		ui.label(focusPostcode, "Postcode:"),
		ui.postcode.View(),
		ui.label(focusStreetNumber, "Street number:"),
		ui.streetNumber.View(),
	)
	if state.Status == search.StatusLoading {
		line += "  " + ui.spinner.View() + " Searching…"
	}
	return line
}

func (ui *AddressBookUI) CandidatesView(state search.State) string {
	lines := []string{ui.label(focusCandidates, "Candidates")}
	switch {
	case state.Status == search.StatusIdle:
		lines = append(lines, StyleMuted.Render("    Enter a postcode and street number to search"))
	case state.Status == search.StatusSuccess && len(state.Results) == 0:
		lines = append(lines, StyleMuted.Render("    No addresses found."))
	}
	for i, address := range state.Results {
		cursor := "  "
		if ui.focus == focusCandidates && i == ui.candidateCursor {
			cursor = "> "
		}
		radio := "( )"
		if address.ID == state.Selected {
			radio = StyleSucces.Render("(•)")
		}
		line := fmt.Sprintf("  %v%v %v", cursor, radio, address.Label())
		if address.ID == state.Selected {
			line = StyleSelected.Render(line)
		}
		lines = append(lines, line)
	}
	return StyleSection.Render(strings.Join(lines, "\n"))
}

func (ui *AddressBookUI) NameView() string {
	return fmt.Sprintf(
		"%v %v   %v %v",
		ui.label(focusFirstName, "First name:"),
		ui.firstName.View(),
		ui.label(focusLastName, "Last name:"),
		ui.lastName.View(),
	)
}

func (ui *AddressBookUI) BookView() string {
	lines := []string{ui.label(focusBook, fmt.Sprintf("Address book (%d)", len(ui.addresses)))}
	if len(ui.addresses) == 0 {
		lines = append(lines, StyleMuted.Render("    No addresses yet"))
	}
	for i, address := range ui.addresses {
		cursor := "  "
		if ui.focus == focusBook && i == ui.bookCursor {
			cursor = "> "
		}
		lines = append(lines, fmt.Sprintf("  %v%v: %v", cursor, address.FullName(), address.Label()))
	}
	return StyleSection.Render(strings.Join(lines, "\n"))
}

// The view underneath the form
func (ui *AddressBookUI) FooterView(state search.State) string {
	var errView string
	if len(state.ErrorMessage) > 0 {
		errView += StyleError.Render(state.ErrorMessage) + "\n"
	}
	if ui.err != nil {
		errView += StyleError.Render(fmt.Sprintf("[ERROR] %v", ui.err.Error())) + "\n"
	}
	return errView + "\n" + ui.help.View(ui.keys)
}

// KeyMap is basically only used to generate the help menu, we don't allow rebinding keys atm
type keyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Save   key.Binding
	Remove key.Binding
	Reset  key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view. It's part
// of the key.Map interface.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Enter, k.Reset, k.Quit, k.Help}
}

// FullHelp returns keybindings for the expanded help view. It's part of the
// key.Map interface.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev},
		{k.Up, k.Down},
		{k.Enter, k.Save},
		{k.Remove, k.Reset},
		{k.Help, k.Quit},
	}
}
