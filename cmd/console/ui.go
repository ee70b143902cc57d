package main

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/murder-valley/internal/services"
	"github.com/jwebster45206/murder-valley/pkg/board"
	"github.com/jwebster45206/murder-valley/pkg/puzzle"
	"github.com/muesli/reflow/wordwrap"
)

// footerHeight is the space below the board viewport: help line and padding.
const footerHeight = 4

type focus int

const (
	focusBlanks focus = iota
	focusPool
)

// BoardUI is the BubbleTea model that plays one puzzle session.
// https://github.com/charmbracelet/bubbletea
type BoardUI struct {
	api      *puzzleClient
	view     *services.SessionView
	blanks   []string // blank ids in reading order
	viewport viewport.Model
	help     help.Model
	keys     keyMap
	copyText func(string) error

	focus       focus
	blankCursor int
	poolCursor  int
	holding     string // token id of the drag in progress
	dropTarget  string // blank the server said would accept the held token

	notice   string
	followUp string
	err      error
	loading  bool
	ready    bool
	width    int
	height   int

	// Quit confirmation state
	showQuitModal bool
}

type sessionMsg struct {
	view *services.SessionView
	err  error
}

type outcomeMsg struct {
	gesture services.Gesture
	out     *services.Outcome
	err     error
}

type closedMsg struct {
	err error
}

type keyMap struct {
	Prev   key.Binding
	Next   key.Binding
	Switch key.Binding
	Grab   key.Binding
	ToPool key.Binding
	Cancel key.Binding
	Return key.Binding
	Submit key.Binding
	Copy   key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Grab, k.Switch, k.Submit, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next, k.Switch},
		{k.Grab, k.ToPool, k.Cancel, k.Return},
		{k.Submit, k.Copy, k.Help, k.Quit},
	}
}

var defaultKeys = keyMap{
	Prev: key.NewBinding(
		key.WithKeys("up", "left", "k", "h"),
		key.WithHelp("↑/←", "previous"),
	),
	Next: key.NewBinding(
		key.WithKeys("down", "right", "j", "l"),
		key.WithHelp("↓/→", "next"),
	),
	Switch: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "board/pool"),
	),
	Grab: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "pick up/drop"),
	),
	ToPool: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "drop on pool"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel drag"),
	),
	Return: key.NewBinding(
		key.WithKeys("r", "backspace"),
		key.WithHelp("r", "return to pool"),
	),
	Submit: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "submit"),
	),
	Copy: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "copy statement"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "more keys"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

var (
	boardPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingLeft(2).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	headingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	emptyBlankStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	filledBlankStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")). // teal
				Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("205")).
			Bold(true)

	dropTargetStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("86")) // green

	heldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")). // yellow
			Underline(true)

	tokenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	victoryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")). // green
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

var statusLabels = map[board.Status]string{
	board.StatusIncomplete: "Incomplete",
	board.StatusReady:      "Ready to submit",
	board.StatusWarning:    "Close, but not quite",
	board.StatusFailure:    "Too many errors",
	board.StatusVictory:    "Solved!",
	board.StatusClosed:     "Closed",
}

func NewBoardUI(api *puzzleClient) BoardUI {
	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	return BoardUI{
		api:      api,
		viewport: vp,
		help:     help.New(),
		keys:     defaultKeys,
		copyText: clipboard.WriteAll,
		loading:  true,
	}
}

func (m BoardUI) Init() tea.Cmd {
	return m.openPuzzle()
}

func (m BoardUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width - 4 // Account for left(2) + right(2) padding
		m.viewport.Height = msg.Height - footerHeight
		m.ready = true
		m.refresh()
		return m, nil

	case sessionMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.setView(msg.view)
		return m, nil

	case outcomeMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.refresh()
			return m, nil
		}
		m.applyOutcome(msg)
		return m, nil

	case closedMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m BoardUI) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.showQuitModal = true
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if m.view == nil || m.loading {
		return m, nil
	}
	m.err = nil

	if key.Matches(msg, m.keys.Copy) {
		if err := m.copyText(m.view.Statement()); err != nil {
			m.err = fmt.Errorf("failed to copy statement: %w", err)
		} else {
			m.notice = "Copied the statement to the clipboard."
		}
		m.refresh()
		return m, nil
	}

	// A solved board only takes copy, help and quit.
	if m.view.Status.Terminal() {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Switch):
		if m.focus == focusBlanks {
			m.focus = focusPool
		} else {
			m.focus = focusBlanks
		}
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Prev):
		return m.move(-1)

	case key.Matches(msg, m.keys.Next):
		return m.move(1)

	case key.Matches(msg, m.keys.Grab):
		return m.grab()

	case key.Matches(msg, m.keys.ToPool):
		if m.holding != "" {
			return m.send(services.Gesture{Type: services.GestureDrop, ToPool: true})
		}

	case key.Matches(msg, m.keys.Cancel):
		if m.holding != "" {
			return m.send(services.Gesture{Type: services.GestureDragEnd})
		}

	case key.Matches(msg, m.keys.Return):
		if m.focus == focusBlanks && len(m.blanks) > 0 {
			if tok := m.tokenIn(m.blanks[m.blankCursor]); tok != nil {
				return m.send(services.Gesture{Type: services.GestureReturn, TokenID: tok.ID})
			}
		}

	case key.Matches(msg, m.keys.Submit):
		return m.send(services.Gesture{Type: services.GestureSubmit})

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m BoardUI) move(delta int) (tea.Model, tea.Cmd) {
	if m.focus == focusPool {
		m.poolCursor = clamp(m.poolCursor+delta, len(m.view.Pool))
		m.refresh()
		return m, nil
	}

	m.blankCursor = clamp(m.blankCursor+delta, len(m.blanks))
	m.refresh()
	if m.holding != "" && len(m.blanks) > 0 {
		return m.send(services.Gesture{Type: services.GestureDragOver, BlankID: m.blanks[m.blankCursor]})
	}
	return m, nil
}

// grab picks up the focused token, or drops the held one on the focused
// blank or the pool.
func (m BoardUI) grab() (tea.Model, tea.Cmd) {
	if m.holding == "" {
		tokenID := m.focusedToken()
		if tokenID == "" {
			return m, nil
		}
		return m.send(services.Gesture{Type: services.GestureDragStart, TokenID: tokenID})
	}

	if m.focus == focusPool {
		return m.send(services.Gesture{Type: services.GestureDrop, ToPool: true})
	}
	if len(m.blanks) == 0 {
		return m, nil
	}
	return m.send(services.Gesture{Type: services.GestureDrop, BlankID: m.blanks[m.blankCursor]})
}

func (m BoardUI) send(g services.Gesture) (tea.Model, tea.Cmd) {
	m.loading = true
	api, id := m.api, m.view.SessionID
	return m, func() tea.Msg {
		out, err := api.sendGesture(id, g)
		return outcomeMsg{gesture: g, out: out, err: err}
	}
}

func (m BoardUI) openPuzzle() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		view, err := api.openPuzzle()
		return sessionMsg{view: view, err: err}
	}
}

func (m BoardUI) closePuzzle() tea.Cmd {
	api, id := m.api, m.view.SessionID
	return func() tea.Msg {
		return closedMsg{err: api.closePuzzle(id)}
	}
}

func (m *BoardUI) applyOutcome(msg outcomeMsg) {
	out := msg.out
	m.notice = ""
	m.dropTarget = ""

	switch msg.gesture.Type {
	case services.GestureDragOver:
		if out.Accepted {
			m.dropTarget = msg.gesture.BlankID
		}
	case services.GestureSubmit:
		if !out.Accepted {
			m.notice = "Fill every blank before submitting."
		} else if out.Result != nil {
			m.notice = out.Result.Message
		}
	}
	if out.FollowUp != "" {
		m.followUp = out.FollowUp
	}

	m.setView(&out.SessionView)
}

func (m *BoardUI) setView(view *services.SessionView) {
	m.view = view
	m.blanks = nil
	for _, s := range view.Sentences {
		for _, seg := range s.Segments {
			if seg.Type == puzzle.SegmentBlank {
				m.blanks = append(m.blanks, seg.BlankID)
			}
		}
	}
	m.blankCursor = clamp(m.blankCursor, len(m.blanks))
	m.poolCursor = clamp(m.poolCursor, len(view.Pool))

	m.holding = ""
	if view.Drag != nil {
		m.holding = view.Drag.TokenID
	}
	m.refresh()
}

func (m *BoardUI) refresh() {
	if m.view == nil {
		return
	}
	m.viewport.SetContent(m.renderBoard())
}

func (m BoardUI) focusedToken() string {
	if m.focus == focusPool {
		if len(m.view.Pool) == 0 {
			return ""
		}
		return m.view.Pool[m.poolCursor].ID
	}
	if len(m.blanks) == 0 {
		return ""
	}
	if tok := m.tokenIn(m.blanks[m.blankCursor]); tok != nil {
		return tok.ID
	}
	return ""
}

func (m BoardUI) tokenIn(blankID string) *puzzle.Token {
	for _, s := range m.view.Sentences {
		for _, seg := range s.Segments {
			if seg.Type == puzzle.SegmentBlank && seg.BlankID == blankID {
				return seg.Token
			}
		}
	}
	return nil
}

func (m BoardUI) renderBoard() string {
	width := m.viewport.Width
	if width < 20 {
		width = 20
	}

	var content strings.Builder
	title := m.view.Title
	if title == "" {
		title = m.view.PuzzleID
	}
	content.WriteString(titleStyle.Render(strings.ToUpper(title)) + "\n\n")

	blankIndex := 0
	for i, s := range m.view.Sentences {
		var line strings.Builder
		fmt.Fprintf(&line, "%d. ", i+1)
		for _, seg := range s.Segments {
			if seg.Type == puzzle.SegmentText {
				line.WriteString(seg.Text)
				continue
			}
			line.WriteString(m.renderBlank(seg, blankIndex))
			blankIndex++
		}
		content.WriteString(wordwrap.String(line.String(), width) + "\n")
	}

	content.WriteString("\n" + separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	content.WriteString(headingStyle.Render("Pool") + "\n")
	if len(m.view.Pool) == 0 {
		content.WriteString(promptStyle.Render("(empty)"))
	}
	tokens := make([]string, len(m.view.Pool))
	for i, tok := range m.view.Pool {
		label := tok.Value
		style := tokenStyle
		switch {
		case m.focus == focusPool && i == m.poolCursor:
			style = selectedStyle
		case tok.ID == m.holding:
			style = heldStyle
		}
		tokens[i] = style.Render(label)
	}
	content.WriteString(wordwrap.String(strings.Join(tokens, "  "), width) + "\n\n")

	status := statusLabels[m.view.Status]
	if status == "" {
		status = string(m.view.Status)
	}
	content.WriteString(fmt.Sprintf("Status: %s (%d/%d filled)", status, m.view.Filled, m.view.Total))
	if m.holding != "" {
		content.WriteString(promptStyle.Render("  holding " + m.holding))
	}
	content.WriteString("\n")

	if m.notice != "" {
		style := warningStyle
		if m.view.Status == board.StatusVictory {
			style = victoryStyle
		}
		content.WriteString("\n" + style.Render(wordwrap.String(m.notice, width)) + "\n")
	}
	if m.followUp != "" {
		content.WriteString("\n" + promptStyle.Render(wordwrap.String("Follow-up: "+m.followUp, width)) + "\n")
	}
	if m.err != nil {
		content.WriteString("\n" + errorStyle.Render(wordwrap.String("Error: "+m.err.Error(), width)) + "\n")
	}

	return content.String()
}

func (m BoardUI) renderBlank(seg board.SegmentView, index int) string {
	label := "____"
	style := emptyBlankStyle
	if seg.Token != nil {
		label = seg.Token.Value
		style = filledBlankStyle
		if seg.Token.ID == m.holding {
			style = heldStyle
		}
	}

	switch {
	case m.focus == focusBlanks && index == m.blankCursor:
		style = selectedStyle
	case seg.BlankID == m.dropTarget:
		style = dropTargetStyle
	}
	return style.Render("[" + label + "]")
}

func (m BoardUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case closedMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "y", "Y", "enter":
			// Solved sessions are already gone from the server.
			if m.view == nil || m.view.Status.Terminal() {
				return m, tea.Quit
			}
			return m, m.closePuzzle()
		case "n", "N", "esc":
			m.showQuitModal = false
		}
	}

	return m, nil
}

func (m BoardUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Puzzle?"))
	content.WriteString("\n\n")
	content.WriteString("Quitting closes the board without scoring it.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m BoardUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	if m.view == nil {
		if m.err != nil {
			return "\n  " + errorStyle.Render("Error: "+m.err.Error()) + "\n\n  Press q to quit"
		}
		return "\n  Opening puzzle..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		boardPanelStyle.Render(m.viewport.View()),
		"  "+m.help.View(m.keys),
	)
}

func clamp(i, n int) int {
	switch {
	case n == 0 || i < 0:
		return 0
	case i >= n:
		return n - 1
	}
	return i
}
