// Copyright © 2025 Jake Rogers <code@supportoss.org>
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JakeTRogers/hpoBuddy/filter"
	"github.com/JakeTRogers/hpoBuddy/hierarchy"
	"github.com/JakeTRogers/hpoBuddy/logger"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// defaultDebounce is how long search input must be idle before the term is applied.
const defaultDebounce = 300 * time.Millisecond

// loadState tracks the data load of a browsing session.
type loadState int

const (
	stateLoading loadState = iota
	stateReady
	stateFailed
)

// loaderFunc builds the hierarchy from the configured source.
type loaderFunc func(ctx context.Context) (*hierarchy.Tree, error)

// loadedMsg carries the outcome of one load. Only the load with the current generation is applied.
type loadedMsg struct {
	gen  int
	tree *hierarchy.Tree
	err  error
}

// searchTickMsg fires once the search input has been idle for the debounce interval.
type searchTickMsg struct {
	seq  int
	term string
}

// filterChangedMsg reports a filter value written by the host.
type filterChangedMsg struct {
	value string
}

// browseModel is the Bubbletea model for the phenotype browser.
type browseModel struct {
	// Data
	loader    loaderFunc
	tree      *hierarchy.Tree
	channel   filter.Channel
	publisher *filter.Publisher
	changes   <-chan string

	// Load
	state      loadState
	gen        int
	loadCtx    context.Context
	cancelLoad context.CancelFunc
	loadErr    error

	// Search
	input    textinput.Model
	seq      int
	debounce time.Duration

	// UI State
	cursor  int
	spinner spinner.Model

	// Dimensions
	width  int
	height int

	// Exit state
	quitting bool
}

// Key bindings
type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Home        key.Binding
	End         key.Binding
	Expand      key.Binding
	Collapse    key.Binding
	Toggle      key.Binding
	Clear       key.Binding
	CollapseAll key.Binding
	Search      key.Binding
	Escape      key.Binding
	Accept      key.Binding
	Retry       key.Binding
	Quit        key.Binding
}

var keys = keyMap{
	Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	PageUp:      key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
	PageDown:    key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
	Home:        key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
	End:         key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
	Expand:      key.NewBinding(key.WithKeys("enter", "right", "l"), key.WithHelp("enter/→", "expand/collapse")),
	Collapse:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "collapse")),
	Toggle:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
	Clear:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear selection")),
	CollapseAll: key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "collapse all")),
	Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Escape:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear search")),
	Accept:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply search")),
	Retry:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Styles
var (
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")). // Purple/blue
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // Bright pink
			Bold(true)

	checkStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")). // Green
			Bold(true)

	partialCheckStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214")). // Orange
				Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	searchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Background(lipgloss.Color("236"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")). // Yellow
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)
)

// newBrowseModel creates a browser that loads its data with loader and publishes the selection
// through publisher. changes may be nil when the host side is not watched.
func newBrowseModel(loader loaderFunc, ch filter.Channel, publisher *filter.Publisher, changes <-chan string, debounce time.Duration) browseModel {
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	ti := textinput.New()
	ti.Prompt = "🔍 "
	ti.Placeholder = "search by label or id"
	ti.CharLimit = 128

	m := browseModel{
		loader:    loader,
		channel:   ch,
		publisher: publisher,
		changes:   changes,
		input:     ti,
		debounce:  debounce,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		width:     80,
		height:    24,
	}
	m.beginLoad()
	return m
}

// Init implements tea.Model
func (m browseModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd(), m.waitForChange())
}

// beginLoad starts a new load generation, cancelling any load still in flight.
func (m *browseModel) beginLoad() {
	m.stopLoad()
	m.gen++
	m.state = stateLoading
	m.loadErr = nil
	m.loadCtx, m.cancelLoad = context.WithCancel(context.Background())
}

// loadCmd runs the loader for the current generation.
func (m browseModel) loadCmd() tea.Cmd {
	gen, ctx, loader := m.gen, m.loadCtx, m.loader
	return func() tea.Msg {
		tree, err := loader(ctx)
		return loadedMsg{gen: gen, tree: tree, err: err}
	}
}

// waitForChange delivers the next host-side filter change.
func (m browseModel) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	changes := m.changes
	return func() tea.Msg {
		value, ok := <-changes
		if !ok {
			return nil
		}
		return filterChangedMsg{value: value}
	}
}

// Update implements tea.Model
func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		return m.handleLoaded(msg), nil

	case searchTickMsg:
		if msg.seq != m.seq || m.state != stateReady {
			return m, nil
		}
		m.applySearch(msg.term)
		return m, nil

	case filterChangedMsg:
		if m.state == stateReady && (m.publisher == nil || msg.value != m.publisher.Last()) {
			ids, err := filter.Parse(msg.value)
			if err != nil {
				l.Warn().Err(err).Msg("ignoring host filter value")
			} else {
				m.tree.Restore(ids)
			}
		}
		return m, m.waitForChange()

	case spinner.TickMsg:
		if m.state != stateLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.input.Focused() {
			return m.handleSearchInput(msg)
		}

		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			m.stopLoad()
			return m, tea.Quit

		case key.Matches(msg, keys.Retry):
			wasLoading := m.state == stateLoading
			m.beginLoad()
			if wasLoading {
				return m, m.loadCmd()
			}
			return m, tea.Batch(m.spinner.Tick, m.loadCmd())
		}

		if m.state != stateReady {
			return m, nil
		}

		switch {
		case key.Matches(msg, keys.Search):
			return m, m.input.Focus()

		case key.Matches(msg, keys.Escape):
			m.input.Reset()
			m.seq++
			m.applySearch("")
			return m, nil

		case key.Matches(msg, keys.Up):
			m.moveCursor(-1)
		case key.Matches(msg, keys.Down):
			m.moveCursor(1)
		case key.Matches(msg, keys.PageUp):
			m.moveCursor(-m.pageSize())
		case key.Matches(msg, keys.PageDown):
			m.moveCursor(m.pageSize())
		case key.Matches(msg, keys.Home):
			m.cursor = 0
		case key.Matches(msg, keys.End):
			m.cursor = len(m.tree.Visible()) - 1
		case key.Matches(msg, keys.Expand):
			if id, ok := m.current(); ok {
				m.tree.ToggleExpanded(id)
			}
		case key.Matches(msg, keys.Collapse):
			m.collapseOrParent()
		case key.Matches(msg, keys.Toggle):
			if id, ok := m.current(); ok {
				m.tree.Toggle(id)
			}
		case key.Matches(msg, keys.Clear):
			m.tree.Clear()
		case key.Matches(msg, keys.CollapseAll):
			m.tree.CollapseAll()
		}
		m.clampCursor()
		return m, nil
	}

	return m, nil
}

// handleLoaded applies a finished load unless a newer one has started since.
func (m browseModel) handleLoaded(msg loadedMsg) browseModel {
	if msg.gen != m.gen {
		l.Debug().Int("gen", msg.gen).Int("current", m.gen).Msg("discarding superseded load")
		return m
	}
	m.stopLoad()

	if msg.err != nil {
		m.state = stateFailed
		m.loadErr = msg.err
		m.tree = nil
		l.Error().Stack().Err(msg.err).Msg("loading phenotype data")
		return m
	}

	m.tree = msg.tree
	if m.channel != nil {
		restoreSelection(m.tree, m.channel)
	}
	if m.publisher != nil {
		m.tree.OnSelectionChange(m.publisher.Publish)
	}
	m.tree.SetSearch(m.input.Value())
	m.state = stateReady
	m.cursor = 0
	return m
}

// stopLoad releases the context of the current load.
func (m *browseModel) stopLoad() {
	if m.cancelLoad != nil {
		m.cancelLoad()
		m.cancelLoad = nil
	}
}

// handleSearchInput handles keyboard input while the search field has focus. Typing only schedules
// a debounced update; the tree changes once the input has been idle.
func (m browseModel) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		m.quitting = true
		m.stopLoad()
		return m, tea.Quit

	case key.Matches(msg, keys.Escape):
		m.input.Reset()
		m.input.Blur()
		m.seq++
		m.applySearch("")
		return m, nil

	case key.Matches(msg, keys.Accept):
		m.input.Blur()
		m.seq++
		m.applySearch(m.input.Value())
		return m, nil

	case msg.String() == "up":
		m.moveCursor(-1)
		return m, nil

	case msg.String() == "down":
		m.moveCursor(1)
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return m, cmd
	}

	m.seq++
	seq, term := m.seq, m.input.Value()
	tick := tea.Tick(m.debounce, func(time.Time) tea.Msg {
		return searchTickMsg{seq: seq, term: term}
	})
	return m, tea.Batch(cmd, tick)
}

// applySearch hands the term to the tree and resets the cursor when the projection changes.
func (m *browseModel) applySearch(term string) {
	if m.tree == nil || m.tree.SearchTerm() == term {
		return
	}
	m.tree.SetSearch(term)
	m.cursor = 0
}

// current returns the id under the cursor.
func (m browseModel) current() (string, bool) {
	if m.tree == nil {
		return "", false
	}
	rows := m.tree.Visible()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return "", false
	}
	return rows[m.cursor].ID, true
}

// collapseOrParent collapses the current node, or moves to its parent when it is already collapsed.
func (m *browseModel) collapseOrParent() {
	id, ok := m.current()
	if !ok {
		return
	}
	if m.tree.IsExpanded(id) && m.tree.SetExpanded(id, false) {
		return
	}
	parent := m.tree.Index().ParentOf(id)
	if parent == "" {
		return
	}
	for i, rec := range m.tree.Visible() {
		if rec.ID == parent {
			m.cursor = i
			return
		}
	}
}

func (m *browseModel) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
}

func (m *browseModel) clampCursor() {
	n := 0
	if m.tree != nil {
		n = len(m.tree.Visible())
	}
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// pageSize is the number of tree rows that fit on screen.
func (m browseModel) pageSize() int {
	rows := m.height - 10
	if rows < 5 {
		rows = 5
	}
	return rows
}

// View implements tea.Model
func (m browseModel) View() string {
	if m.quitting {
		if m.tree == nil {
			return "No phenotypes loaded.\n"
		}
		return fmt.Sprintf("%d phenotype(s) selected.\n", m.tree.SelectedCount())
	}

	width := m.width - 4
	if width < 40 {
		width = 40
	}

	title := titleStyle.Render("🧬 HPO Phenotypes")

	var body string
	switch m.state {
	case stateLoading:
		body = fmt.Sprintf("%s Loading phenotype data…", m.spinner.View())
	case stateFailed:
		body = errorStyle.Render("Could not load phenotype data") + "\n" +
			dimStyle.Render(m.loadErr.Error()) + "\n\n" +
			helpStyle.Render("press r to retry, q to quit")
	default:
		body = m.renderTree(width - 4)
	}
	panel := borderStyle.Width(width).Height(m.pageSize() + 1).Render(body)

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s", title, m.renderSearchBar(), panel, m.renderStatus(), m.renderHelp())
}

// renderSearchBar renders the search input and the match count of the applied term.
func (m browseModel) renderSearchBar() string {
	bar := searchStyle.Render(m.input.View())
	if m.tree == nil || !m.tree.Searching() {
		return bar
	}
	if n := m.tree.MatchCount(); n > 0 {
		return bar + dimStyle.Render(fmt.Sprintf(" (%d matches)", n))
	}
	return bar + dimStyle.Render(" (no matches)")
}

// renderTree renders the visible rows around the cursor.
func (m browseModel) renderTree(width int) string {
	rows := m.tree.Visible()
	if len(rows) == 0 {
		return dimStyle.Render("  No matches found")
	}

	var b strings.Builder

	// Calculate visible range for scrolling
	visibleCount := m.pageSize()
	startIdx := 0
	if m.cursor >= visibleCount {
		startIdx = m.cursor - visibleCount + 1
	}
	endIdx := startIdx + visibleCount
	if endIdx > len(rows) {
		endIdx = len(rows)
	}

	for i := startIdx; i < endIdx; i++ {
		line := m.renderNode(rows[i], width-2)
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("► ") + line)
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	// Scroll indicator
	if len(rows) > visibleCount {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(rows))))
	}

	return b.String()
}

// renderNode renders a single tree row: indentation, expander, checkbox, id and label.
func (m browseModel) renderNode(rec hierarchy.Record, maxWidth int) string {
	f := m.tree.Flags(rec.ID)
	depth := rec.Level

	expandIcon := " "
	if f.HasChildren {
		expandIcon = "▸"
		if f.Expanded {
			expandIcon = "▾"
		}
	}

	checkBox := "[ ]"
	switch {
	case f.Selected:
		checkBox = checkStyle.Render("[✓]")
	case f.Partial:
		checkBox = partialCheckStyle.Render("[-]")
	}

	label := rec.Label
	maxLen := maxWidth - 2*depth - len(rec.ID) - 16
	if maxLen > 1 && len([]rune(label)) > maxLen {
		label = string([]rune(label)[:maxLen-1]) + "…"
	}
	if f.Match {
		label = m.highlightMatch(label)
	}

	badge := ""
	if f.Partial {
		selected, total := m.tree.Coverage(rec.ID)
		badge = partialCheckStyle.Render(fmt.Sprintf(" [%d/%d]", selected, total))
	}

	return fmt.Sprintf("%s%s %s %s %s%s", strings.Repeat("  ", depth), expandIcon, checkBox, dimStyle.Render(rec.ID), label, badge)
}

// highlightMatch highlights the applied search term within a label
func (m browseModel) highlightMatch(s string) string {
	term := m.tree.SearchTerm()
	if term == "" {
		return s
	}

	start, end, ok := foldIndex(s, term)
	if !ok {
		return s
	}
	return s[:start] + matchStyle.Render(s[start:end]) + s[end:]
}

// foldIndex finds the first case-insensitive occurrence of term in s and returns its byte range in s.
// Windows are compared rune by rune, so the range never splits a multi-byte character.
func foldIndex(s, term string) (start, end int, ok bool) {
	n := utf8.RuneCountInString(term)
	if n == 0 {
		return 0, 0, false
	}
	offsets := make([]int, 0, len(s)+1)
	for i := range s {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(s))
	for i := 0; i+n < len(offsets); i++ {
		if strings.EqualFold(s[offsets[i]:offsets[i+n]], term) {
			return offsets[i], offsets[i+n], true
		}
	}
	return 0, 0, false
}

// renderStatus renders the selection count and the state of the filter channel.
func (m browseModel) renderStatus() string {
	count := 0
	if m.tree != nil {
		count = m.tree.SelectedCount()
	}
	status := fmt.Sprintf("%d selected", count)
	if fc, ok := m.channel.(*filter.FileChannel); ok {
		status += " → " + fc.Path()
	}
	if m.publisher != nil && m.publisher.Err() != nil {
		return dimStyle.Render(status) + "  " + errorStyle.Render("filter not written: "+m.publisher.Err().Error())
	}
	return dimStyle.Render(status)
}

// renderHelp renders the help bar at the bottom
func (m browseModel) renderHelp() string {
	var parts []string
	switch {
	case m.input.Focused():
		parts = []string{"type to search", "↑↓: navigate", "Enter: apply", "Esc: clear"}
	case m.state == stateFailed:
		parts = []string{"r: retry", "q: quit"}
	case m.state == stateLoading:
		parts = []string{"q: quit"}
	default:
		parts = []string{
			"↑↓: navigate",
			"Enter/→←: expand/collapse",
			"Space: toggle",
			"c: clear",
			"C: collapse all",
			"/: search",
			"r: reload",
			"q: quit",
		}
	}
	return helpStyle.Render(strings.Join(parts, " • "))
}

// runBrowse starts the interactive browser and returns the final selection count.
func runBrowse(ctx context.Context, v *viper.Viper, log *zerolog.Logger, logFile string) (int, error) {
	ch, mode, err := cfg.channel()
	if err != nil {
		return 0, err
	}
	debounce := v.GetDuration("debounce")

	// Keep log output away from the TUI
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logger.SetOutput(f)
	} else {
		log.Warn().Msg("disabling logging for interactive browser")
		logger.Disable()
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	changes, err := ch.Watch(watchCtx)
	if err != nil {
		log.Warn().Err(err).Msg("host filter changes will not be picked up")
		changes = nil
	}

	model := newBrowseModel(cfg.loadTree, ch, filter.NewPublisher(ch, mode), changes, debounce)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := p.Run()
	if err != nil {
		return 0, fmt.Errorf("error running browser: %w", err)
	}

	m, ok := finalModel.(browseModel)
	if !ok {
		return 0, fmt.Errorf("unexpected model type: %T", finalModel)
	}
	if m.tree == nil {
		return 0, nil
	}
	return m.tree.SelectedCount(), nil
}

// NewBrowseCmd creates and returns a new browse command.
// Each call returns a fresh instance for test isolation.
func NewBrowseCmd(v *viper.Viper) *cobra.Command {
	log := logger.GetLogger()
	var logFile string

	browseCmd := &cobra.Command{
		Use:   "browse",
		Short: "Interactive phenotype browser",
		Long: `Launch an interactive browser over the HPO hierarchy.

Selecting a term selects all of its descendants. A term whose descendants are only partly selected shows [-] and
how many of them are selected. Every change is written to the filter file immediately, and changes other tools make
to that file are picked up while the browser runs.

Typing a search term shows only matching terms and their ancestors, with the path to each match expanded. Clearing
the search collapses the tree again.

Navigation:
  - ↑/↓ or j/k: Navigate up/down
  - Enter/→: Expand or collapse a term
  - ←: Collapse, or jump to the parent term
  - Space: Toggle selection
  - c: Clear the selection
  - C: Collapse all terms
  - /: Search, Esc clears it
  - r: Reload the data, or retry after a failed load
  - q: Quit

Example:
  $ hpoBuddy browse --debounce 500ms`,
		Args: cobra.NoArgs,
	}

	// runBrowseCmd executes the browse command.
	runBrowseCmd := func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		savePreferences(v)

		count, err := runBrowse(ctx, v, log, logFile)
		if err != nil {
			return fmt.Errorf("browser failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d phenotype(s) in %s.\n", count, cfg.filterPath())
		return nil
	}

	browseCmd.RunE = runBrowseCmd
	browseCmd.Flags().Duration("debounce", defaultDebounce, "``delay after the last keystroke before a search is applied")
	browseCmd.Flags().StringVar(&logFile, "log-file", "", "``write logs to this file while the browser runs instead of discarding them")
	if err := v.BindPFlag("debounce", browseCmd.Flags().Lookup("debounce")); err != nil {
		log.Error().Err(err).Send()
	}

	return browseCmd
}
