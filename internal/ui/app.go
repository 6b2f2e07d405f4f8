package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nocdn/volumes/internal/bookmark"
	"github.com/nocdn/volumes/internal/prefs"
	"github.com/nocdn/volumes/internal/search"
	"github.com/nocdn/volumes/internal/selection"
	"github.com/nocdn/volumes/internal/state"
)

// Session is the part of state.Session the UI drives.
type Session interface {
	Events() <-chan state.Event
	Rows() []state.Row
	Snapshot() state.Snapshot
	SetQuery(query string)
	SearchMode() search.Mode
	SetSearchMode(mode search.Mode)
	Add(sub bookmark.Submission) (string, error)
	Retry(clientID string) error
	Edit(id string, field bookmark.Field, value bookmark.Value) error
	DeleteRow(row state.Row) error
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Session   Session
	ThemeName string
	PrefsPath string
	Prefs     prefs.Prefs

	// OpenURL and CopyText default to the system browser and clipboard.
	OpenURL  func(url string) error
	CopyText func(text string) error
}

// mode is what currently receives key presses.
type mode int

const (
	modeBrowse mode = iota
	modeMenu
	modeEdit
)

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	session   Session
	keys      keyMap
	prefsPath string
	prefs     prefs.Prefs
	openURL   func(string) error
	copyText  func(string) error

	// UI state
	theme    Theme
	width    int
	height   int
	ready    bool
	showHelp bool

	input     textinput.Model
	editInput textinput.Model
	spinner   spinner.Model
	help      help.Model

	// Data state
	rows     []state.Row
	snapshot state.Snapshot
	cursor   *selection.Controller
	offset   int

	// Edit menu state
	mode      mode
	editID    string
	editField bookmark.Field

	notice    string
	noticeErr bool
	noticeGen int
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = opts.Prefs.Theme
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	openURL := opts.OpenURL
	if openURL == nil {
		openURL = openInBrowser
	}
	copyText := opts.CopyText
	if copyText == nil {
		copyText = copyToClipboard
	}

	input := textinput.New()
	input.Prompt = "› "
	input.Placeholder = "Search, or paste a URL to add (#tag, // comment)"
	input.Focus()

	editInput := textinput.New()
	editInput.Prompt = ""

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	m := Model{
		ctx:       ctx,
		session:   opts.Session,
		keys:      DefaultKeyMap(),
		prefsPath: prefsPath,
		prefs:     opts.Prefs,
		openURL:   openURL,
		copyText:  copyText,
		theme:     GetTheme(themeName),
		input:     input,
		editInput: editInput,
		spinner:   sp,
		help:      help.New(),
		cursor:    selection.New(),
	}
	m.applyTheme()
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		textinput.Blink,
		m.spinner.Tick,
		waitForEvent(m.session.Events()),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.input.Width = max(msg.Width-6, 10)
		m.editInput.Width = max(msg.Width-24, 10)
		m.help.Width = msg.Width
		m.scroll()
		return m, nil

	case eventMsg:
		cmd := m.handleEvent(state.Event(msg))
		return m, tea.Batch(cmd, waitForEvent(m.session.Events()))

	case sessionClosedMsg:
		return m, tea.Quit

	case noticeMsg:
		cmd := m.setNotice(msg.text, msg.isErr)
		return m, cmd

	case noticeExpiredMsg:
		if int(msg) == m.noticeGen {
			m.notice = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Cursor blink and other input-internal messages.
	var cmd tea.Cmd
	if m.mode == modeEdit {
		m.editInput, cmd = m.editInput.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderInput())
	b.WriteString("\n")
	b.WriteString(m.renderRule())
	b.WriteString("\n")
	b.WriteString(m.renderList())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch m.mode {
	case modeMenu:
		return m.handleMenuKey(msg)
	case modeEdit:
		return m.handleEditKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Help) && m.input.Value() == "":
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.cursor.Up()
		m.scroll()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.cursor.Down()
		m.scroll()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		if m.input.Value() != "" {
			m.input.Reset()
			m.setQuery("")
		}
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		return m.submit()

	case key.Matches(msg, m.keys.Complete):
		if completed, ok := completeTag(m.input.Value(), search.Tags(m.snapshot.Items)); ok {
			m.input.SetValue(completed)
			m.input.CursorEnd()
			m.setQuery(completed)
		}
		return m, nil

	case key.Matches(msg, m.keys.Edit):
		return m.openMenu()

	case key.Matches(msg, m.keys.Delete):
		return m.deleteSelected()

	case key.Matches(msg, m.keys.Retry):
		return m.retrySelected()

	case key.Matches(msg, m.keys.Copy):
		return m.copySelected()

	case key.Matches(msg, m.keys.CycleTheme):
		return m.cycleTheme()

	case key.Matches(msg, m.keys.SearchMode):
		return m.toggleSearchMode()
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.setQuery(after)
	}
	return m, cmd
}

// handleMenuKey routes keys while the edit menu is open. Arrow keys move
// the menu cursor, not the list.
func (m Model) handleMenuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.cursor.Up()
	case key.Matches(msg, m.keys.Down):
		m.cursor.Down()
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Edit):
		m.closeMenu()
	case key.Matches(msg, m.keys.Enter):
		item, ok := m.menuItem()
		if !ok {
			m.closeMenu()
			return m, nil
		}
		m.editField = bookmark.EditableFields[m.cursor.MenuIndex()]
		m.editInput.SetValue(editValue(item, m.editField))
		m.editInput.CursorEnd()
		m.mode = modeEdit
		m.scroll()
		cmd := m.editInput.Focus()
		return m, cmd
	}
	return m, nil
}

// handleEditKey routes keys to the field editor.
func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.closeMenu()
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		id, field := m.editID, m.editField
		value := parseEditValue(field, m.editInput.Value())
		m.closeMenu()
		if err := m.session.Edit(id, field, value); err != nil {
			cmd := m.setNotice(fmt.Sprintf("Cannot edit %s: %v", field, err), true)
			return m, cmd
		}
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.editInput, cmd = m.editInput.Update(msg)
	return m, cmd
}

// handleMouse applies pointer hover and clicks to the selection.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Action {
	case tea.MouseActionMotion:
		m.cursor.PointerMoved()
		if row, ok := m.rowAt(msg.Y); ok {
			m.cursor.Hover(row)
		}
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonLeft:
			m.cursor.PointerMoved()
			if row, ok := m.rowAt(msg.Y); ok {
				m.cursor.Select(row)
			}
		case tea.MouseButtonWheelUp:
			m.cursor.Up()
			m.cursor.PointerMoved()
			m.scroll()
		case tea.MouseButtonWheelDown:
			m.cursor.Down()
			m.cursor.PointerMoved()
			m.scroll()
		}
	}
	return m, nil
}

// handleEvent re-reads the view after a session change and surfaces
// failures in the footer.
func (m *Model) handleEvent(ev state.Event) tea.Cmd {
	m.refresh()
	switch ev.Kind {
	case state.EventCreateFailed:
		return m.setNotice("Save failed: "+errText(ev.Err)+" (ctrl+r retry, ctrl+x dismiss)", true)
	case state.EventEditFailed:
		return m.setNotice(fmt.Sprintf("Could not save %s: %s", ev.Field, errText(ev.Err)), true)
	case state.EventDeleteFailed:
		return m.setNotice("Delete failed: "+errText(ev.Err), true)
	}
	return nil
}

// submit adds the input as a bookmark when it looks like a URL and
// otherwise opens the selected row.
func (m Model) submit() (tea.Model, tea.Cmd) {
	sub := bookmark.ParseSubmission(m.input.Value())
	if bookmark.LooksLikeURL(sub.Text) {
		if _, err := m.session.Add(sub); err != nil {
			cmd := m.setNotice("Cannot add: "+err.Error(), true)
			return m, cmd
		}
		m.input.Reset()
		m.setQuery("")
		return m, nil
	}

	row, ok := m.selectedRow()
	if !ok {
		return m, nil
	}
	return m, openCmd(m.openURL, row.Item.URL)
}

func (m Model) openMenu() (tea.Model, tea.Cmd) {
	row, ok := m.selectedRow()
	if !ok {
		return m, nil
	}
	if row.IsPending() {
		cmd := m.setNotice("Still saving, edit it once it is confirmed", false)
		return m, cmd
	}
	if !m.cursor.OpenMenu(len(bookmark.EditableFields)) {
		return m, nil
	}
	m.editID = row.Item.ID
	m.mode = modeMenu
	m.scroll()
	return m, nil
}

func (m *Model) closeMenu() {
	m.cursor.CloseMenu()
	m.mode = modeBrowse
	m.editID = ""
	m.editField = ""
	m.editInput.Blur()
	m.editInput.Reset()
	m.scroll()
}

func (m Model) deleteSelected() (tea.Model, tea.Cmd) {
	row, ok := m.selectedRow()
	if !ok {
		return m, nil
	}
	if err := m.session.DeleteRow(row); err != nil {
		if errors.Is(err, state.ErrInFlight) {
			cmd := m.setNotice("Still saving, delete it once it is confirmed", false)
			return m, cmd
		}
		cmd := m.setNotice("Cannot delete: "+err.Error(), true)
		return m, cmd
	}
	m.refresh()
	return m, nil
}

func (m Model) retrySelected() (tea.Model, tea.Cmd) {
	row, ok := m.selectedRow()
	if !ok || !row.IsPending() || row.Pending.State != bookmark.PendingFailed {
		return m, nil
	}
	if err := m.session.Retry(row.Pending.ClientID); err != nil {
		cmd := m.setNotice("Cannot retry: "+err.Error(), true)
		return m, cmd
	}
	m.refresh()
	return m, nil
}

func (m Model) copySelected() (tea.Model, tea.Cmd) {
	row, ok := m.selectedRow()
	if !ok {
		return m, nil
	}
	if err := m.copyText(row.Item.URL); err != nil {
		cmd := m.setNotice("Copy failed: "+err.Error(), true)
		return m, cmd
	}
	cmd := m.setNotice("Copied "+row.Item.URL, false)
	return m, cmd
}

func (m Model) cycleTheme() (tea.Model, tea.Cmd) {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	m.applyTheme()
	m.prefs.Theme = m.theme.Name
	if err := m.savePrefs(); err != nil {
		cmd := m.setNotice("Cannot save preferences: "+err.Error(), true)
		return m, cmd
	}
	return m, nil
}

func (m Model) toggleSearchMode() (tea.Model, tea.Cmd) {
	next := m.session.SearchMode().Next()
	m.session.SetSearchMode(next)
	m.prefs.SearchMode = string(next)
	m.refresh()
	if err := m.savePrefs(); err != nil {
		cmd := m.setNotice("Cannot save preferences: "+err.Error(), true)
		return m, cmd
	}
	cmd := m.setNotice("Search: "+string(next), false)
	return m, cmd
}

func (m *Model) savePrefs() error {
	if m.prefsPath == "" {
		return nil
	}
	return prefs.Save(m.prefsPath, m.prefs)
}

// setQuery filters the list by the search part of the input: free text and
// #tags, without any // comment.
func (m *Model) setQuery(raw string) {
	m.session.SetQuery(searchQuery(raw))
	m.refresh()
}

// refresh re-materializes the rows and reconciles the selection with them.
func (m *Model) refresh() {
	m.rows = m.session.Rows()
	m.snapshot = m.session.Snapshot()
	m.cursor.SetLength(len(m.rows))
	if m.mode != modeBrowse {
		if _, ok := m.menuItem(); !ok || !m.cursor.MenuOpen() {
			m.closeMenu()
		}
	}
	m.scroll()
}

// scroll keeps the selected row (or the row the menu belongs to) visible.
func (m *Model) scroll() {
	h := m.listHeight()
	anchor := m.cursor.Index()
	if anchor == selection.None {
		anchor = m.cursor.MenuRow()
	}
	if anchor != selection.None {
		if anchor < m.offset {
			m.offset = anchor
		}
		if anchor >= m.offset+h {
			m.offset = anchor - h + 1
		}
	}
	m.offset = max(min(m.offset, len(m.rows)-h), 0)
}

// listHeight is the number of bookmark rows that fit on screen.
func (m Model) listHeight() int {
	h := m.height - chromeHeight
	switch m.mode {
	case modeMenu:
		h -= len(bookmark.EditableFields)
	case modeEdit:
		h--
	}
	return max(h, 1)
}

// rowAt maps a screen line to a list row.
func (m Model) rowAt(y int) (int, bool) {
	if m.mode != modeBrowse || y < listTop || y >= listTop+m.listHeight() {
		return 0, false
	}
	row := m.offset + y - listTop
	if row >= len(m.rows) {
		return 0, false
	}
	return row, true
}

func (m Model) selectedRow() (state.Row, bool) {
	idx, ok := m.cursor.Selected()
	if !ok || idx >= len(m.rows) {
		return state.Row{}, false
	}
	return m.rows[idx], true
}

// menuItem returns the item the open menu edits, wherever it now sits.
func (m Model) menuItem() (bookmark.Item, bool) {
	if m.editID == "" {
		return bookmark.Item{}, false
	}
	for _, row := range m.rows {
		if !row.IsPending() && row.Item.ID == m.editID {
			return row.Item, true
		}
	}
	return bookmark.Item{}, false
}

func (m *Model) applyTheme() {
	styles := m.theme.Styles()
	m.input.PromptStyle = styles.AccentText
	m.input.TextStyle = styles.Text
	m.input.PlaceholderStyle = styles.FaintText
	m.editInput.TextStyle = styles.Text
	m.spinner.Style = styles.AccentText
	m.help.Styles.ShortKey = styles.AccentText
	m.help.Styles.ShortDesc = styles.MutedText
	m.help.Styles.ShortSeparator = styles.FaintText
}

func (m *Model) setNotice(text string, isErr bool) tea.Cmd {
	m.noticeGen++
	gen := m.noticeGen
	m.notice = text
	m.noticeErr = isErr
	return tea.Tick(NoticeTTL, func(time.Time) tea.Msg {
		return noticeExpiredMsg(gen)
	})
}

// searchQuery strips the comment from input text so it can be used as a
// search query.
func searchQuery(raw string) string {
	sub := bookmark.ParseSubmission(raw)
	return strings.TrimSpace(sub.Text + " " + formatTags(sub.Tags))
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// Messages

type eventMsg state.Event

type sessionClosedMsg struct{}

type noticeMsg struct {
	text  string
	isErr bool
}

type noticeExpiredMsg int

// Commands

// waitForEvent blocks on the next session event. Each eventMsg handler
// re-arms it.
func waitForEvent(events <-chan state.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return sessionClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func openCmd(open func(string) error, url string) tea.Cmd {
	return func() tea.Msg {
		if err := open(url); err != nil {
			return noticeMsg{text: "Cannot open " + url + ": " + err.Error(), isErr: true}
		}
		return nil
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	if opts.Session == nil {
		return fmt.Errorf("ui requires a session")
	}
	m := New(opts)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(m.ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
