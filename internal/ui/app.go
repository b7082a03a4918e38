// Package ui implements the terminal interface: a login form and a
// dashboard showing the signed-in user's bookmarks and practice streak.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/breadtm/examtie/internal/bookmarks"
	"github.com/breadtm/examtie/internal/prefs"
	"github.com/breadtm/examtie/internal/session"
	"github.com/breadtm/examtie/internal/streak"
	"github.com/breadtm/examtie/internal/toast"
)

const tickEvery = 500 * time.Millisecond

// Options configures the UI program.
type Options struct {
	Context   context.Context
	Session   *session.Session
	Bookmarks *bookmarks.Cache
	Streak    *streak.Cache
	Toasts    *toast.Queue
	Prefs     *prefs.Store
}

type view int

const (
	viewLogin view = iota
	viewDashboard
)

type tickMsg time.Time

// refreshMsg re-reads the store snapshots without scheduling another tick.
type refreshMsg struct{}

type loginDoneMsg struct {
	ok bool
}

type toggleDoneMsg struct {
	examID string
	err    error
}

type addDoneMsg struct {
	examID string
	err    error
}

// Model is the bubbletea model for the whole program.
type Model struct {
	opts   Options
	theme  Theme
	styles Styles
	lang   string

	width  int
	height int

	view view

	identifier textinput.Model
	password   textinput.Model
	focusIdx   int
	loggingIn  bool

	selected int
	adding   bool
	addInput textinput.Model

	sess   session.State
	marks  bookmarks.State
	strk   streak.State
	toasts []toast.Toast
}

// NewModel builds the initial model from options.
func NewModel(opts Options) Model {
	identifier := textinput.New()
	identifier.Placeholder = "email or username"
	identifier.CharLimit = 128
	identifier.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 128
	password.EchoMode = textinput.EchoPassword

	addInput := textinput.New()
	addInput.Placeholder = "exam id"
	addInput.CharLimit = 64

	theme := GetTheme(opts.Prefs.Theme())
	m := Model{
		opts:       opts,
		theme:      theme,
		styles:     theme.Styles(),
		lang:       opts.Prefs.Language(),
		identifier: identifier,
		password:   password,
		addInput:   addInput,
	}
	m.refresh()
	return m
}

// Init starts the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), textinput.Blink)
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refresh pulls the latest snapshots out of the state containers.
func (m *Model) refresh() {
	m.sess = m.opts.Session.Current()
	m.marks = m.opts.Bookmarks.Current()
	m.strk = m.opts.Streak.Current()
	m.toasts = m.opts.Toasts.Current()

	if m.sess.Authenticated {
		m.view = viewDashboard
	} else {
		m.view = viewLogin
	}
	if n := len(m.marks.Bookmarks); m.selected >= n && n > 0 {
		m.selected = n - 1
	}
	if len(m.marks.Bookmarks) == 0 {
		m.selected = 0
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.FocusMsg:
		// Mirrors the web client's focus listeners: revalidate the token and
		// freshen the streak when the user comes back.
		if m.opts.Session.CheckTokenValidity() {
			m.opts.Streak.RefreshOnResume(m.opts.Context)
		}
		m.refresh()
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tickCmd()

	case refreshMsg:
		m.refresh()
		return m, nil

	case loginDoneMsg:
		m.loggingIn = false
		m.refresh()
		if msg.ok {
			m.password.SetValue("")
			m.opts.Toasts.Success("Logged in")
			return m, tea.Batch(
				m.loadBookmarksCmd(),
				m.loadStreakCmd(),
			)
		}
		return m, nil

	case toggleDoneMsg:
		m.refresh()
		if msg.err != nil {
			m.opts.Toasts.Error(msg.err.Error())
		}
		return m, nil

	case addDoneMsg:
		m.refresh()
		if msg.err != nil {
			m.opts.Toasts.Error(msg.err.Error())
		} else {
			m.opts.Toasts.Success("Bookmark added")
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.view {
	case viewLogin:
		return m.handleLoginKey(msg)
	case viewDashboard:
		return m.handleDashboardKey(msg)
	}
	return m, nil
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, tea.Quit

	case "tab", "shift+tab", "up", "down":
		m.focusIdx = 1 - m.focusIdx
		if m.focusIdx == 0 {
			m.identifier.Focus()
			m.password.Blur()
		} else {
			m.identifier.Blur()
			m.password.Focus()
		}
		return m, nil

	case "enter":
		if m.loggingIn {
			return m, nil
		}
		identifier := strings.TrimSpace(m.identifier.Value())
		secret := m.password.Value()
		if identifier == "" || secret == "" {
			return m, nil
		}
		m.loggingIn = true
		m.opts.Session.ClearError()
		return m, m.loginCmd(identifier, secret)
	}

	var cmd tea.Cmd
	if m.focusIdx == 0 {
		m.identifier, cmd = m.identifier.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.adding {
		switch msg.String() {
		case "esc":
			m.adding = false
			m.addInput.SetValue("")
			m.addInput.Blur()
			return m, nil
		case "enter":
			examID := strings.TrimSpace(m.addInput.Value())
			m.adding = false
			m.addInput.SetValue("")
			m.addInput.Blur()
			if examID == "" {
				return m, nil
			}
			return m, m.addCmd(examID)
		}
		var cmd tea.Cmd
		m.addInput, cmd = m.addInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit

	case "j", "down":
		if m.selected < len(m.marks.Bookmarks)-1 {
			m.selected++
		}
		return m, nil

	case "k", "up":
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case "a":
		m.adding = true
		m.addInput.Focus()
		return m, textinput.Blink

	case "x", "delete":
		if m.selected < len(m.marks.Bookmarks) {
			examID := m.marks.Bookmarks[m.selected].ExamID
			return m, m.toggleCmd(examID)
		}
		return m, nil

	case "r":
		return m, tea.Batch(m.loadBookmarksCmd(), m.loadStreakCmd())

	case "t":
		m.opts.Prefs.ToggleTheme()
		m.theme = GetTheme(m.opts.Prefs.Theme())
		m.styles = m.theme.Styles()
		return m, nil

	case "l":
		if m.lang == prefs.LangEnglish {
			m.opts.Prefs.SetLanguage(prefs.LangThai)
		} else {
			m.opts.Prefs.SetLanguage(prefs.LangEnglish)
		}
		m.lang = m.opts.Prefs.Language()
		return m, nil

	case "o":
		m.opts.Session.Logout()
		m.refresh()
		m.opts.Toasts.Info("Logged out")
		return m, nil
	}

	return m, nil
}

func (m Model) loginCmd(identifier, secret string) tea.Cmd {
	return func() tea.Msg {
		ok := m.opts.Session.Login(m.opts.Context, identifier, secret)
		return loginDoneMsg{ok: ok}
	}
}

func (m Model) addCmd(examID string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.opts.Bookmarks.Add(m.opts.Context, examID)
		return addDoneMsg{examID: examID, err: err}
	}
}

func (m Model) toggleCmd(examID string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.opts.Bookmarks.Toggle(m.opts.Context, examID)
		return toggleDoneMsg{examID: examID, err: err}
	}
}

func (m Model) loadBookmarksCmd() tea.Cmd {
	return func() tea.Msg {
		_ = m.opts.Bookmarks.Load(m.opts.Context, true)
		return refreshMsg{}
	}
}

func (m Model) loadStreakCmd() tea.Cmd {
	return func() tea.Msg {
		_ = m.opts.Streak.Refresh(m.opts.Context)
		return refreshMsg{}
	}
}

// View renders the current screen.
func (m Model) View() string {
	if !m.sess.Initialized {
		return m.styles.Muted.Render(m.tr("loading"))
	}

	var body string
	switch m.view {
	case viewLogin:
		body = m.loginView()
	default:
		body = m.dashboardView()
	}

	if overlay := m.toastView(); overlay != "" {
		body += "\n" + overlay
	}
	return body
}

func (m Model) toastView() string {
	if len(m.toasts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.toasts))
	for _, t := range m.toasts {
		style := m.styles.Muted
		switch t.Kind {
		case toast.KindSuccess:
			style = m.styles.Success
		case toast.KindError:
			style = m.styles.Danger
		}
		lines = append(lines, style.Render("• "+t.Message))
	}
	return strings.Join(lines, "\n")
}

func (m Model) loginView() string {
	var b strings.Builder
	b.WriteString(m.styles.Header.Render("ExamTie"))
	b.WriteString("\n\n")
	b.WriteString(m.styles.Muted.Render(m.tr("identifier")))
	b.WriteString("\n")
	b.WriteString(m.identifier.View())
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render(m.tr("password")))
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n\n")

	if m.loggingIn {
		b.WriteString(m.styles.Muted.Render(m.tr("logging_in")))
		b.WriteString("\n")
	} else if m.sess.Err != "" {
		b.WriteString(m.styles.Danger.Render(m.sess.Err))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render(m.tr("login_hint")))
	return m.styles.Box.Render(b.String())
}

func (m Model) dashboardView() string {
	var b strings.Builder

	name := ""
	if m.sess.User != nil {
		name = m.sess.User.Username
		if name == "" {
			name = m.sess.User.Email
		}
	}
	header := fmt.Sprintf("ExamTie · %s", name)
	b.WriteString(m.styles.Header.Render(header))
	b.WriteString("\n")

	if m.strk.Streak != nil {
		line := fmt.Sprintf("%s: %d", m.tr("streak"), m.strk.Streak.Current)
		if m.strk.Streak.RevivesUsed > 0 {
			line += fmt.Sprintf(" (%d %s)", m.strk.Streak.RevivesUsed, m.tr("revives"))
		}
		b.WriteString(m.styles.Accent.Render(line))
		b.WriteString("\n")
	}

	if m.sess.ExpiringSoon {
		b.WriteString(m.styles.Danger.Render(m.tr("expiring_soon")))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Text.Render(m.tr("bookmarks")))
	b.WriteString("\n")
	b.WriteString(m.bookmarkList())

	if m.adding {
		b.WriteString("\n")
		b.WriteString(m.styles.Muted.Render(m.tr("add_prompt")))
		b.WriteString("\n")
		b.WriteString(m.addInput.View())
	}

	if m.marks.Err != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Danger.Render(m.marks.Err))
	}

	b.WriteString("\n\n")
	b.WriteString(m.styles.Muted.Render(m.tr("dash_hint")))
	return b.String()
}

func (m Model) bookmarkList() string {
	if m.marks.Loading && len(m.marks.Bookmarks) == 0 {
		return m.styles.Muted.Render(m.tr("loading"))
	}
	if len(m.marks.Bookmarks) == 0 {
		return m.styles.Muted.Render(m.tr("no_bookmarks"))
	}

	var b strings.Builder
	for i, bm := range m.marks.Bookmarks {
		label := bm.ExamID
		if strings.HasPrefix(bm.ID, "temp-") {
			label += " " + m.tr("saving")
		}
		line := "  " + label
		if i == m.selected {
			line = m.styles.Selected.Render("> " + label)
		}
		b.WriteString(line)
		if i < len(m.marks.Bookmarks)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Run builds the program and blocks until it exits.
func Run(opts Options) error {
	m := NewModel(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithReportFocus())
	_, err := p.Run()
	return err
}
