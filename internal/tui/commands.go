package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"veil-cli/internal/api"
	"veil-cli/internal/config"
	"veil-cli/internal/state"
)

var validDomains = []string{"legal", "finance", "healthcare", "hr", "general"}

// ─── Input dispatcher ───────────────────────────────────────────────────────

func (m model) dispatchInput(input string) (tea.Model, tea.Cmd) {
	if input == "?" {
		return m.cmdHelp()
	}
	if strings.HasPrefix(input, "/") {
		return m.dispatchCommand(input)
	}
	return m.submitChat(input)
}

func (m model) dispatchCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/help", "/h":
		return m.cmdHelp()
	case "/sessions":
		return m.cmdSessions()
	case "/new":
		return m.cmdNew(args)
	case "/session":
		return m.cmdSelectSession(args)
	case "/rename":
		return m.cmdRename(args)
	case "/domain":
		return m.cmdDomain(args)
	case "/delete":
		return m.cmdDelete(args)
	case "/docs":
		return m.cmdDocs()
	case "/models":
		return m.cmdModels()
	case "/model":
		return m.cmdModel(args)
	case "/view":
		return m.cmdView(args)
	case "/settings":
		return m.cmdSettings()
	case "/config":
		return m.cmdConfig()
	case "/clear":
		return m, tea.ClearScreen
	case "/quit", "/exit", "/q":
		return m, tea.Quit
	default:
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Unknown command: %s (type /help)", cmd)))
	}
}

func (m model) requireClient() tea.Cmd {
	if m.client != nil {
		return nil
	}
	return tea.Println(errorMsgStyle.Render("  ✗ Not connected. Run: veil connect <server-url>"))
}

// ─── Chat submission ────────────────────────────────────────────────────────

func (m model) submitChat(input string) (tea.Model, tea.Cmd) {
	if cmd := m.requireClient(); cmd != nil {
		return m, cmd
	}

	// No session yet: create one first, then submit the prompt against it.
	if m.store.State().ActiveSession == "" {
		return m, createSession(m.client, "New Session", input)
	}

	return m.startExchange(input)
}

func (m model) startExchange(input string) (tea.Model, tea.Cmd) {
	ex := m.orch.Submit(m.store.State(), input)
	if ex == nil {
		return m, nil
	}

	for _, a := range ex.Opening {
		m.store.Dispatch(a)
	}
	m.exchange = ex
	m.mode = modeStreaming
	m.printedStream = 0

	return m, tea.Batch(
		tea.Println(userPromptStyle.Render("❯ ")+input),
		waitForExchange(ex.Actions),
	)
}

// ─── /help ──────────────────────────────────────────────────────────────────

func (m model) cmdHelp() (tea.Model, tea.Cmd) {
	entry := func(usage, desc string) tea.Cmd {
		padded := usage
		for len(padded) < 28 {
			padded += " "
		}
		return tea.Println("  " + hintKeyStyle.Render(padded) + dimStyle.Render(desc))
	}

	lines := []tea.Cmd{
		tea.Println(""),
		tea.Println(dimStyle.Render("  Commands:")),
		tea.Println(""),
		entry("/sessions", "List sessions"),
		entry("/new [title]", "Start a new session"),
		entry("/session <n|id>", "Switch to a session"),
		entry("/rename <title>", "Rename the active session"),
		entry("/domain <domain>", "Set the session domain"),
		entry("/delete [n|id]", "Delete a session"),
		entry("/docs", "List session documents"),
		entry("/models", "List available models"),
		entry("/model <provider> <model>", "Select a model (or: /model default)"),
		entry("/view [redacted|unredacted]", "Switch content projection"),
		entry("/settings", "Show settings"),
		entry("/config", "Show current configuration"),
		entry("/clear", "Clear the screen"),
		entry("/quit", "Exit Veil"),
		tea.Println(""),
		tea.Println(dimStyle.Render("  Or just type a message to start chatting.")),
		tea.Println(""),
	}
	return m, tea.Sequence(lines...)
}

// ─── /sessions ──────────────────────────────────────────────────────────────

type sessionsLoadedMsg struct {
	sessions []state.Session
	err      error
}

func loadSessions(client api.VeilAPI) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.ListSessions()
		if err != nil {
			return sessionsLoadedMsg{err: err}
		}
		sessions := make([]state.Session, 0, len(resp.Sessions))
		for _, r := range resp.Sessions {
			sessions = append(sessions, r.Session())
		}
		return sessionsLoadedMsg{sessions: sessions}
	}
}

func (m model) cmdSessions() (tea.Model, tea.Cmd) {
	if cmd := m.requireClient(); cmd != nil {
		return m, cmd
	}
	return m, tea.Sequence(
		tea.Println(statusStyle.Render("  ⟳ Loading sessions...")),
		loadSessions(m.client),
	)
}

func (m model) handleSessionsLoaded(msg sessionsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Failed to load sessions: %v", msg.err)))
	}

	st := m.store.Dispatch(state.SetSessions{Sessions: msg.sessions})
	return m, tea.Println("\n" + renderSessionList(st.Sessions, st.ActiveSession) + "\n")
}

// ─── /new ───────────────────────────────────────────────────────────────────

type sessionCreatedMsg struct {
	session state.Session
	prompt  string // non-empty when a chat message triggered the creation
	err     error
}

func createSession(client api.VeilAPI, title, prompt string) tea.Cmd {
	return func() tea.Msg {
		rec, err := client.CreateSession(title)
		if err != nil {
			return sessionCreatedMsg{err: err}
		}
		return sessionCreatedMsg{session: rec.Session(), prompt: prompt}
	}
}

func (m model) cmdNew(args []string) (tea.Model, tea.Cmd) {
	if cmd := m.requireClient(); cmd != nil {
		return m, cmd
	}
	title := strings.Join(args, " ")
	if title == "" {
		title = "New Session"
	}
	return m, createSession(m.client, title, "")
}

func (m model) handleSessionCreated(msg sessionCreatedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Failed to create session: %v", msg.err)))
	}

	m.store.Dispatch(state.AddSession{Session: msg.session})

	created := tea.Println(successMsgStyle.Render("  ✓ Session: ") + msg.session.Title + dimStyle.Render("  ["+msg.session.Domain+"]"))

	if msg.prompt != "" {
		next, cmd := m.startExchange(msg.prompt)
		return next, tea.Sequence(created, cmd)
	}
	return m, created
}

// ─── /session ───────────────────────────────────────────────────────────────

type historyLoadedMsg struct {
	sessionID string
	messages  []state.Message
	documents []state.Document
	err       error
}

func loadHistory(client api.VeilAPI, sessionID string) tea.Cmd {
	return func() tea.Msg {
		hist, err := client.History(sessionID)
		if err != nil {
			return historyLoadedMsg{sessionID: sessionID, err: err}
		}
		docs, err := client.ListDocuments(sessionID)
		if err != nil {
			return historyLoadedMsg{sessionID: sessionID, err: err}
		}
		out := historyLoadedMsg{sessionID: sessionID, messages: hist.StateMessages()}
		for _, d := range docs.Documents {
			out.documents = append(out.documents, d.Document())
		}
		return out
	}
}

func (m model) cmdSelectSession(args []string) (tea.Model, tea.Cmd) {
	if cmd := m.requireClient(); cmd != nil {
		return m, cmd
	}
	if len(args) == 0 {
		return m, tea.Println(warnMsgStyle.Render("  ! Usage: /session <number|id>"))
	}

	id, err := resolveSessionArg(m.store.State().Sessions, args[0])
	if err != nil {
		return m, tea.Println(errorMsgStyle.Render("  ✗ " + err.Error()))
	}

	m.store.Dispatch(state.SelectSession{ID: id})
	return m, tea.Sequence(
		tea.Println(statusStyle.Render("  ⟳ Loading history...")),
		loadHistory(m.client, id),
	)
}

func (m model) handleHistoryLoaded(msg historyLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Failed to load history: %v", msg.err)))
	}

	m.store.Dispatch(state.SetMessages{SessionID: msg.sessionID, Messages: msg.messages})
	st := m.store.Dispatch(state.SetDocuments{SessionID: msg.sessionID, Documents: msg.documents})
	if st.ActiveSession != msg.sessionID {
		// Switched away while the load was in flight.
		return m, nil
	}
	return m, tea.Println("\n" + renderHistory(st, min(m.width, 100)) + "\n")
}

// ─── /rename and /domain ────────────────────────────────────────────────────

type sessionUpdatedMsg struct {
	session state.Session
	err     error
}

func updateSession(client api.VeilAPI, id string, update api.SessionUpdateRequest) tea.Cmd {
	return func() tea.Msg {
		rec, err := client.UpdateSession(id, update)
		if err != nil {
			return sessionUpdatedMsg{err: err}
		}
		return sessionUpdatedMsg{session: rec.Session()}
	}
}

func (m model) cmdRename(args []string) (tea.Model, tea.Cmd) {
	if cmd := m.requireClient(); cmd != nil {
		return m, cmd
	}
	sess, ok := m.store.State().Active()
	if !ok {
		return m, tea.Println(warnMsgStyle.Render("  ! No active session. Run /session first."))
	}
	title := strings.Join(args, " ")
	if title == "" {
		return m, tea.Println(warnMsgStyle.Render("  ! Usage: /rename <new title>"))
	}
	return m, updateSession(m.client, sess.ID, api.SessionUpdateRequest{Title: &title})
}

func (m model) cmdDomain(args []string) (tea.Model, tea.Cmd) {
	if cmd := m.requireClient(); cmd != nil {
		return m, cmd
	}
	sess, ok := m.store.State().Active()
	if !ok {
		return m, tea.Println(warnMsgStyle.Render("  ! No active session. Run /session first."))
	}
	if len(args) != 1 || !isValidDomain(args[0]) {
		return m, tea.Println(warnMsgStyle.Render("  ! Usage: /domain <" + strings.Join(validDomains, "|") + ">"))
	}
	domain := args[0]
	return m, updateSession(m.client, sess.ID, api.SessionUpdateRequest{Domain: &domain})
}

func (m model) handleSessionUpdated(msg sessionUpdatedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Update failed: %v", msg.err)))
	}

	m.store.Dispatch(state.RenameSession{ID: msg.session.ID, Title: msg.session.Title})
	m.store.Dispatch(state.RetagSession{ID: msg.session.ID, Domain: msg.session.Domain})
	return m, tea.Println(successMsgStyle.Render("  ✓ ") + msg.session.Title + dimStyle.Render("  ["+msg.session.Domain+"]"))
}

func isValidDomain(d string) bool {
	for _, v := range validDomains {
		if d == v {
			return true
		}
	}
	return false
}

// ─── /delete ────────────────────────────────────────────────────────────────

type sessionDeletedMsg struct {
	id  string
	err error
}

func (m model) cmdDelete(args []string) (tea.Model, tea.Cmd) {
	if cmd := m.requireClient(); cmd != nil {
		return m, cmd
	}

	var id string
	if len(args) > 0 {
		var err error
		id, err = resolveSessionArg(m.store.State().Sessions, args[0])
		if err != nil {
			return m, tea.Println(errorMsgStyle.Render("  ✗ " + err.Error()))
		}
	} else if sess, ok := m.store.State().Active(); ok {
		id = sess.ID
	} else {
		return m, tea.Println(warnMsgStyle.Render("  ! Usage: /delete <number|id>"))
	}

	client := m.client
	return m, func() tea.Msg {
		if err := client.DeleteSession(id); err != nil {
			return sessionDeletedMsg{err: err}
		}
		return sessionDeletedMsg{id: id}
	}
}

func (m model) handleSessionDeleted(msg sessionDeletedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Delete failed: %v", msg.err)))
	}

	m.store.Dispatch(state.RemoveSession{ID: msg.id})
	return m, tea.Println(successMsgStyle.Render("  ✓ Session deleted."))
}

// ─── /docs ──────────────────────────────────────────────────────────────────

type docsLoadedMsg struct {
	sessionID string
	documents []state.Document
	err       error
}

func (m model) cmdDocs() (tea.Model, tea.Cmd) {
	if cmd := m.requireClient(); cmd != nil {
		return m, cmd
	}
	sess, ok := m.store.State().Active()
	if !ok {
		return m, tea.Println(warnMsgStyle.Render("  ! No active session. Run /session first."))
	}

	client := m.client
	return m, func() tea.Msg {
		resp, err := client.ListDocuments(sess.ID)
		if err != nil {
			return docsLoadedMsg{sessionID: sess.ID, err: err}
		}
		out := docsLoadedMsg{sessionID: sess.ID}
		for _, d := range resp.Documents {
			out.documents = append(out.documents, d.Document())
		}
		return out
	}
}

func (m model) handleDocsLoaded(msg docsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Failed to load documents: %v", msg.err)))
	}

	st := m.store.Dispatch(state.SetDocuments{SessionID: msg.sessionID, Documents: msg.documents})
	return m, tea.Println("\n" + renderDocumentList(st.Documents) + "\n")
}

// ─── /models and /model ─────────────────────────────────────────────────────

type modelsLoadedMsg struct {
	catalog state.ModelCatalog
	err     error
}

func (m model) cmdModels() (tea.Model, tea.Cmd) {
	if cmd := m.requireClient(); cmd != nil {
		return m, cmd
	}

	client := m.client
	return m, tea.Sequence(
		tea.Println(statusStyle.Render("  ⟳ Loading models...")),
		func() tea.Msg {
			resp, err := client.Models()
			if err != nil {
				return modelsLoadedMsg{err: err}
			}
			return modelsLoadedMsg{catalog: resp.Catalog()}
		},
	)
}

func (m model) handleModelsLoaded(msg modelsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Failed to load models: %v", msg.err)))
	}

	st := m.store.Dispatch(state.SetCatalog{Catalog: msg.catalog})
	return m, tea.Println("\n" + renderModelCatalog(st.Catalog, st.Selection) + "\n")
}

func (m model) cmdModel(args []string) (tea.Model, tea.Cmd) {
	var sel state.ModelSelection
	switch {
	case len(args) == 1 && args[0] == "default":
		// zero selection defers to the server default
	case len(args) == 2:
		sel = state.ModelSelection{Provider: args[0], Model: args[1]}
	default:
		return m, tea.Println(warnMsgStyle.Render("  ! Usage: /model <provider> <model>  or  /model default"))
	}

	m.store.Dispatch(state.SetModel{Selection: sel})

	if m.cfg != nil {
		m.cfg.Provider = sel.Provider
		m.cfg.Model = sel.Model
		if err := m.cfg.Save(); err != nil {
			return m, tea.Println(warnMsgStyle.Render(fmt.Sprintf("  ! Selected, but saving config failed: %v", err)))
		}
	}

	label := "server default"
	if !sel.IsDefault() {
		label = sel.Provider + " / " + sel.Model
	}
	return m, tea.Println(successMsgStyle.Render("  ✓ Model: ") + label)
}

// ─── /view ──────────────────────────────────────────────────────────────────

func (m model) cmdView(args []string) (tea.Model, tea.Cmd) {
	var st state.State
	switch {
	case len(args) == 0:
		st = m.store.Dispatch(state.ToggleView{})
	case args[0] == "redacted":
		st = m.store.Dispatch(state.SetView{View: state.ViewRedacted})
	case args[0] == "unredacted":
		st = m.store.Dispatch(state.SetView{View: state.ViewUnredacted})
	default:
		return m, tea.Println(warnMsgStyle.Render("  ! Usage: /view [redacted|unredacted]"))
	}

	if m.cfg != nil {
		m.cfg.Redacted = st.View == state.ViewRedacted
		_ = m.cfg.Save()
	}

	cmds := []tea.Cmd{
		tea.Println(successMsgStyle.Render("  ✓ View: ") + st.View.String()),
	}
	if len(st.Messages) > 0 {
		cmds = append(cmds, tea.Println("\n"+renderHistory(st, min(m.width, 100))+"\n"))
	}
	return m, tea.Sequence(cmds...)
}

// ─── /settings ──────────────────────────────────────────────────────────────

func (m model) cmdSettings() (tea.Model, tea.Cmd) {
	st := m.store.Dispatch(state.ToggleSettings{})
	if !st.SettingsOpen {
		return m, nil
	}
	return m, tea.Println("\n" + renderSettings(st) + "\n")
}

// ─── /config ────────────────────────────────────────────────────────────────

func (m model) cmdConfig() (tea.Model, tea.Cmd) {
	if m.cfg == nil {
		return m, tea.Println(warnMsgStyle.Render("  ! No configuration found. Run: veil connect <server-url>"))
	}

	val := func(s string) string {
		if s == "" {
			return dimStyle.Render("(not set)")
		}
		return s
	}

	return m, tea.Sequence(
		tea.Println(""),
		tea.Println(dimStyle.Render("  Configuration:")),
		tea.Println(fmt.Sprintf("    Profile:  %s", config.ProfileName(m.profile))),
		tea.Println(fmt.Sprintf("    Server:   %s", val(m.cfg.Server))),
		tea.Println(fmt.Sprintf("    Provider: %s", val(m.cfg.Provider))),
		tea.Println(fmt.Sprintf("    Model:    %s", val(m.cfg.Model))),
		tea.Println(fmt.Sprintf("    View:     %s", m.store.State().View)),
		tea.Println(""),
	)
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// resolveSessionArg accepts a 1-based list index or a session id (full or
// unambiguous prefix).
func resolveSessionArg(sessions []state.Session, arg string) (string, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(sessions) {
			return "", fmt.Errorf("no session %d, run /sessions first", n)
		}
		return sessions[n-1].ID, nil
	}

	var match string
	for _, s := range sessions {
		if s.ID == arg {
			return s.ID, nil
		}
		if strings.HasPrefix(s.ID, arg) {
			if match != "" {
				return "", fmt.Errorf("ambiguous session id %q", arg)
			}
			match = s.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("unknown session %q, run /sessions first", arg)
	}
	return match, nil
}
