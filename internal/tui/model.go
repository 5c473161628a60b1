package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"veil-cli/internal/api"
	"veil-cli/internal/chat"
	"veil-cli/internal/config"
	"veil-cli/internal/state"
)

// ─── App mode ───────────────────────────────────────────────────────────────

type appMode int

const (
	modeIdle appMode = iota
	modeStreaming
)

// ─── Slash command registry ─────────────────────────────────────────────────

type slashCmd struct {
	name string
	desc string
}

var slashCommands = []slashCmd{
	{"/clear", "Clear the screen"},
	{"/config", "Show current configuration"},
	{"/delete", "Delete a session"},
	{"/docs", "List session documents"},
	{"/domain", "Set the session domain"},
	{"/help", "Show all commands"},
	{"/model", "Select provider/model"},
	{"/models", "List available models"},
	{"/new", "Start a new session"},
	{"/quit", "Exit Veil"},
	{"/rename", "Rename the active session"},
	{"/session", "Switch to a session"},
	{"/sessions", "List sessions"},
	{"/settings", "Show settings"},
	{"/view", "Toggle redacted/unredacted view"},
}

// ─── Model ──────────────────────────────────────────────────────────────────

type model struct {
	width  int
	height int

	// Bubble Tea components
	input   textinput.Model
	spinner spinner.Model

	// App state
	mode    appMode
	cfg     *config.Config
	client  api.VeilAPI
	orch    *chat.Orchestrator
	store   *state.Store
	version string
	profile string

	// Streaming state
	exchange      *chat.Exchange
	printedStream int // bytes of the streaming buffer already printed

	// UI state
	ready        bool
	cmdMenuIdx   int
	cmdMenuOpen  bool
	lastInputVal string

	// Command history
	history      []string
	historyIdx   int // -1 = not browsing
	historySaved string
}

func initialModel(version, profile string) model {
	ti := textinput.New()
	ti.Placeholder = "Ask a question or type /help..."
	ti.Focus()
	ti.CharLimit = 4096
	ti.Prompt = "❯ "
	ti.PromptStyle = promptSymbol
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(colorViolet)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorViolet)

	cfg, _ := config.Load(profile)

	var client api.VeilAPI
	var orch *chat.Orchestrator
	if cfg != nil && cfg.Server != "" {
		c := api.NewClient(cfg)
		client = c
		orch = chat.New(c)
	}

	initial := state.State{}
	if cfg != nil {
		if cfg.Redacted {
			initial.View = state.ViewRedacted
		}
		initial.Selection = state.ModelSelection{Provider: cfg.Provider, Model: cfg.Model}
	}

	return model{
		input:      ti,
		spinner:    sp,
		version:    version,
		profile:    profile,
		cfg:        cfg,
		client:     client,
		orch:       orch,
		store:      state.NewStore(initial),
		mode:       modeIdle,
		history:    make([]string, 0),
		historyIdx: -1,
	}
}

// ─── Init ───────────────────────────────────────────────────────────────────

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
	)
}

// ─── Update ─────────────────────────────────────────────────────────────────

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = m.width - 6

		if !m.ready {
			m.ready = true
			welcome := renderWelcome(m.version, serverStr(m.cfg), config.ProfileName(m.profile))
			cmds = append(cmds, tea.Println(welcome))
			if m.client != nil {
				cmds = append(cmds, loadSessions(m.client))
			}
		}

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.mode == modeStreaming {
				cmds = append(cmds, m.cancelStream())
				return m, tea.Batch(cmds...)
			}
			return m, tea.Quit

		case tea.KeyEsc:
			if m.mode == modeStreaming {
				cmds = append(cmds, m.cancelStream())
				return m, tea.Batch(cmds...)
			}
			if m.cmdMenuOpen {
				m.cmdMenuOpen = false
				m.cmdMenuIdx = 0
				return m, nil
			}

		case tea.KeyUp:
			if m.mode == modeIdle {
				if m.cmdMenuOpen {
					matches := matchCommands(m.input.Value())
					if len(matches) > 0 {
						m.cmdMenuIdx--
						if m.cmdMenuIdx < 0 {
							m.cmdMenuIdx = len(matches) - 1
						}
						return m, nil
					}
				} else if len(m.history) > 0 {
					if m.historyIdx == -1 {
						m.historySaved = m.input.Value()
						m.historyIdx = len(m.history) - 1
					} else if m.historyIdx > 0 {
						m.historyIdx--
					}
					m.input.SetValue(m.history[m.historyIdx])
					m.input.CursorEnd()
					return m, nil
				}
			}

		case tea.KeyDown:
			if m.mode == modeIdle {
				if m.cmdMenuOpen {
					matches := matchCommands(m.input.Value())
					if len(matches) > 0 {
						m.cmdMenuIdx++
						if m.cmdMenuIdx >= len(matches) {
							m.cmdMenuIdx = 0
						}
						return m, nil
					}
				} else if m.historyIdx != -1 {
					m.historyIdx++
					if m.historyIdx >= len(m.history) {
						m.historyIdx = -1
						m.input.SetValue(m.historySaved)
						m.historySaved = ""
					} else {
						m.input.SetValue(m.history[m.historyIdx])
					}
					m.input.CursorEnd()
					return m, nil
				}
			}

		case tea.KeyTab:
			if m.mode == modeIdle && m.cmdMenuOpen {
				matches := matchCommands(m.input.Value())
				if len(matches) > 0 {
					idx := m.cmdMenuIdx
					if idx < 0 || idx >= len(matches) {
						idx = 0
					}
					m.input.SetValue(matches[idx].name + " ")
					m.input.CursorEnd()
					m.cmdMenuOpen = false
					m.cmdMenuIdx = 0
				}
				return m, nil
			}

		case tea.KeyEnter:
			if m.mode == modeIdle && m.cmdMenuOpen && m.cmdMenuIdx >= 0 {
				matches := matchCommands(m.input.Value())
				if m.cmdMenuIdx < len(matches) {
					m.input.SetValue(matches[m.cmdMenuIdx].name + " ")
					m.input.CursorEnd()
					m.cmdMenuOpen = false
					m.cmdMenuIdx = 0
					return m, nil
				}
			}

			value := strings.TrimSpace(m.input.Value())
			if value == "" {
				return m, nil
			}

			if len(m.history) == 0 || m.history[len(m.history)-1] != value {
				m.history = append(m.history, value)
				if len(m.history) > 1000 {
					m.history = m.history[len(m.history)-1000:]
				}
			}
			m.historyIdx = -1
			m.historySaved = ""

			m.input.SetValue("")
			m.cmdMenuOpen = false
			m.cmdMenuIdx = 0

			return m.dispatchInput(value)
		}

	// ── Stream messages ───────────────────────────────────────────────
	case streamActionMsg:
		if m.exchange == nil {
			// Cancelled: late deliveries are dropped on the floor.
			return m, nil
		}
		return m.handleStreamAction(msg.action)

	case streamClosedMsg:
		if m.exchange != nil {
			m.exchange = nil
			if m.mode == modeStreaming {
				// Channel closed without a flag-clear action (cancelled pump).
				m.mode = modeIdle
			}
		}
		return m, nil

	// ── Async command results ─────────────────────────────────────────
	case sessionsLoadedMsg:
		return m.handleSessionsLoaded(msg)

	case sessionCreatedMsg:
		return m.handleSessionCreated(msg)

	case sessionUpdatedMsg:
		return m.handleSessionUpdated(msg)

	case sessionDeletedMsg:
		return m.handleSessionDeleted(msg)

	case historyLoadedMsg:
		return m.handleHistoryLoaded(msg)

	case docsLoadedMsg:
		return m.handleDocsLoaded(msg)

	case modelsLoadedMsg:
		return m.handleModelsLoaded(msg)
	}

	// Update sub-components
	var cmd tea.Cmd

	if m.mode != modeStreaming {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)

	// Track input changes to open/close the command menu
	newVal := m.input.Value()
	if newVal != m.lastInputVal {
		m.lastInputVal = newVal
		if m.historyIdx != -1 {
			if m.historyIdx < len(m.history) && m.history[m.historyIdx] != newVal {
				m.historyIdx = -1
				m.historySaved = ""
			}
		}
		if strings.HasPrefix(newVal, "/") {
			m.cmdMenuOpen = true
			m.cmdMenuIdx = 0
		} else {
			m.cmdMenuOpen = false
			m.cmdMenuIdx = 0
		}
	}

	return m, tea.Batch(cmds...)
}

// ─── Stream action handling ─────────────────────────────────────────────────

// handleStreamAction dispatches one exchange action into the store and prints
// whatever that action makes visible.
func (m model) handleStreamAction(a state.Action) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// The flag-clear discards the buffer inside the store, so the partial
	// tail line has to flush first.
	if flag, ok := a.(state.SetStreaming); ok && !flag.Streaming {
		buf := m.store.State().StreamText
		if m.printedStream < len(buf) {
			if tail := strings.TrimRight(buf[m.printedStream:], "\n"); tail != "" {
				cmds = append(cmds, tea.Println("  "+tail))
			}
		}
	}

	st := m.store.Dispatch(a)

	switch a := a.(type) {
	case state.AppendStreamText:
		lines, printed := drainStreamLines(st.StreamText, m.printedStream)
		m.printedStream = printed
		for _, line := range lines {
			cmds = append(cmds, tea.Println("  "+line))
		}

	case state.RenameSession:
		cmds = append(cmds, tea.Println(dimStyle.Render("  📛 "+a.Title)))

	case state.SetMessages:
		// Reconciled history: re-print the final answer with full rendering,
		// replacing the raw preview above it.
		if last, ok := lastAssistant(st.Messages); ok {
			cmds = append(cmds,
				tea.Println(""),
				tea.Println(renderMessage(last, st.View, min(m.width, 100))),
			)
		}

	case state.SetError:
		cmds = append(cmds, tea.Println(errorMsgStyle.Render("  ✗ "+a.Message)))

	case state.SetStreaming:
		if !a.Streaming {
			m.mode = modeIdle
			m.printedStream = 0
			cmds = append(cmds, tea.Println(""))
		}
	}

	if m.exchange != nil {
		cmds = append(cmds, waitForExchange(m.exchange.Actions))
	}
	return m, tea.Batch(cmds...)
}

func lastAssistant(msgs []state.Message) (state.Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == state.RoleAssistant {
			return msgs[i], true
		}
	}
	return state.Message{}, false
}

// cancelStream aborts the in-flight exchange and resets local stream state.
func (m *model) cancelStream() tea.Cmd {
	if m.exchange != nil {
		m.exchange.Cancel()
		m.exchange = nil
	}
	m.mode = modeIdle
	m.printedStream = 0
	st := m.store.State()
	m.store.Dispatch(state.SetStreaming{SessionID: st.ActiveSession, Streaming: false})
	return tea.Println(warnMsgStyle.Render("  ! Cancelled."))
}

// ─── View ───────────────────────────────────────────────────────────────────
//
// Inline mode: View() only shows the input prompt + hints.
// All output is printed above via tea.Println.

func (m model) View() string {
	if !m.ready {
		return ""
	}

	var s strings.Builder

	if m.mode == modeStreaming {
		s.WriteString(m.spinner.View() + " " + statusStyle.Render("Thinking..."))
	} else {
		s.WriteString(m.input.View())
	}
	s.WriteString("\n")

	sepWidth := min(m.width, 80)
	if sepWidth < 20 {
		sepWidth = 20
	}
	s.WriteString(separatorStyle.Render(strings.Repeat("─", sepWidth)))
	s.WriteString("\n")

	s.WriteString(m.renderHints())

	return s.String()
}

// ─── Hint bar ───────────────────────────────────────────────────────────────

func (m model) renderHints() string {
	if m.mode == modeStreaming {
		return hintBarStyle.Render("  Esc cancel")
	}

	if m.cmdMenuOpen {
		matches := matchCommands(m.input.Value())
		if len(matches) > 0 {
			return m.renderCommandMenu(matches)
		}
	}

	status := ""
	if sess, ok := m.store.State().Active(); ok {
		title := sess.Title
		if title == "" {
			title = "(untitled)"
		}
		status = "  · " + title + " · " + m.store.State().View.String()
	}
	return hintBarStyle.Render("  ? for help" + status)
}

func (m model) renderCommandMenu(matches []slashCmd) string {
	maxLen := 0
	for _, c := range matches {
		if len(c.name) > maxLen {
			maxLen = len(c.name)
		}
	}

	var lines []string
	for i, c := range matches {
		padded := c.name
		for len(padded) < maxLen {
			padded += " "
		}

		var line string
		if i == m.cmdMenuIdx {
			line = "  " + cmdSelectedNameStyle.Render(padded) + "  " + cmdSelectedDescStyle.Render(c.desc)
		} else {
			line = "  " + cmdNameStyle.Render(padded) + "  " + cmdDescStyle.Render(c.desc)
		}
		lines = append(lines, line)
	}

	lines = append(lines, hintBarStyle.Render("  ↑↓ navigate  Tab/Enter select"))

	return strings.Join(lines, "\n")
}

// matchCommands returns all slash commands matching a prefix.
func matchCommands(prefix string) []slashCmd {
	prefix = strings.ToLower(prefix)
	if prefix == "/" {
		return slashCommands
	}
	var matches []slashCmd
	for _, c := range slashCommands {
		if strings.HasPrefix(c.name, prefix) {
			matches = append(matches, c)
		}
	}
	return matches
}

func serverStr(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	return cfg.Server
}
