// Package state is the single source of truth for session-scoped client
// state. Every mutation flows through Apply, a deterministic transition
// function over a closed action vocabulary; nothing here performs I/O or
// scheduling. The Store wrapper is the one mutator path — I/O callbacks
// never touch State directly, which is what makes torn-state races
// impossible without locks.
package state

// Action is one element of the transition vocabulary. The set is closed:
// only the types in this file implement it.
type Action interface {
	isAction()
}

// sessionScoped is implemented by actions that derive from traffic belonging
// to a specific session. Apply drops them when that session is no longer
// active, so a stream left running across a session switch cannot leak
// chunks, reloads, or flag flips into the wrong conversation.
type sessionScoped interface {
	sessionID() string
}

type (
	// SetSessions replaces the whole session list.
	SetSessions struct{ Sessions []Session }
	// AddSession prepends a freshly created session and makes it active.
	AddSession struct{ Session Session }
	// RemoveSession deletes a session by id.
	RemoveSession struct{ ID string }
	// SelectSession makes a session active, resetting all per-session state.
	SelectSession struct{ ID string }
	// RenameSession updates a session's title in place.
	RenameSession struct {
		ID    string
		Title string
	}
	// RetagSession updates a session's domain tag in place.
	RetagSession struct {
		ID     string
		Domain string
	}

	// SetMessages replaces the active session's history wholesale.
	SetMessages struct {
		SessionID string
		Messages  []Message
	}
	// AppendMessage appends one message to the active session's history.
	AppendMessage struct {
		SessionID string
		Message   Message
	}
	// SetDocuments replaces the active session's document list.
	SetDocuments struct {
		SessionID string
		Documents []Document
	}
	// AppendDocument appends one document to the active session's list.
	AppendDocument struct {
		SessionID string
		Document  Document
	}

	// AppendStreamText appends one decoded chunk to the streaming buffer.
	AppendStreamText struct {
		SessionID string
		Text      string
	}
	// SetStreamText replaces the streaming buffer wholesale.
	SetStreamText struct {
		SessionID string
		Text      string
	}
	// SetStreaming raises or clears the streaming flag. Clearing it always
	// discards the streaming buffer — partial text never outlives a stream.
	SetStreaming struct {
		SessionID string
		Streaming bool
	}

	// ToggleView flips between the unredacted and redacted projections.
	ToggleView struct{}
	// SetView selects a projection explicitly.
	SetView struct{ View ViewMode }

	// SetError records a user-visible error, overwriting any prior one.
	SetError struct{ Message string }
	// ClearError dismisses the current error.
	ClearError struct{}

	// SetModel records the provider/model override; zero values defer to the
	// server default.
	SetModel struct{ Selection ModelSelection }
	// SetCatalog replaces the provider/model catalog.
	SetCatalog struct{ Catalog ModelCatalog }

	// SetSettingsOpen shows or hides the settings panel.
	SetSettingsOpen struct{ Open bool }
	// ToggleSettings flips settings panel visibility.
	ToggleSettings struct{}
)

func (SetSessions) isAction()      {}
func (AddSession) isAction()       {}
func (RemoveSession) isAction()    {}
func (SelectSession) isAction()    {}
func (RenameSession) isAction()    {}
func (RetagSession) isAction()     {}
func (SetMessages) isAction()      {}
func (AppendMessage) isAction()    {}
func (SetDocuments) isAction()     {}
func (AppendDocument) isAction()   {}
func (AppendStreamText) isAction() {}
func (SetStreamText) isAction()    {}
func (SetStreaming) isAction()     {}
func (ToggleView) isAction()       {}
func (SetView) isAction()          {}
func (SetError) isAction()         {}
func (ClearError) isAction()       {}
func (SetModel) isAction()         {}
func (SetCatalog) isAction()       {}
func (SetSettingsOpen) isAction()  {}
func (ToggleSettings) isAction()   {}

func (a SetMessages) sessionID() string      { return a.SessionID }
func (a AppendMessage) sessionID() string    { return a.SessionID }
func (a SetDocuments) sessionID() string     { return a.SessionID }
func (a AppendDocument) sessionID() string   { return a.SessionID }
func (a AppendStreamText) sessionID() string { return a.SessionID }
func (a SetStreamText) sessionID() string    { return a.SessionID }
func (a SetStreaming) sessionID() string     { return a.SessionID }

// Apply is the transition function: given any state and any single action
// the result is fully determined. The input state is never mutated.
func Apply(s State, a Action) State {
	if scoped, ok := a.(sessionScoped); ok {
		if scoped.sessionID() != s.ActiveSession || s.ActiveSession == "" {
			return s
		}
	}

	switch a := a.(type) {
	case SetSessions:
		s.Sessions = cloneSlice(a.Sessions)

	case AddSession:
		sessions := make([]Session, 0, len(s.Sessions)+1)
		sessions = append(sessions, a.Session)
		sessions = append(sessions, s.Sessions...)
		s.Sessions = sessions
		// A freshly created session has no history to fetch.
		s = resetSessionScope(s, a.Session.ID)

	case RemoveSession:
		s.Sessions = filterSessions(s.Sessions, a.ID)
		if a.ID == s.ActiveSession {
			s = resetSessionScope(s, "")
		}

	case SelectSession:
		// State never leaks across sessions: every per-session field resets
		// even when re-selecting the current session.
		s = resetSessionScope(s, a.ID)

	case RenameSession:
		s.Sessions = updateSession(s.Sessions, a.ID, func(sess *Session) {
			sess.Title = a.Title
		})

	case RetagSession:
		s.Sessions = updateSession(s.Sessions, a.ID, func(sess *Session) {
			sess.Domain = a.Domain
		})

	case SetMessages:
		s.Messages = cloneSlice(a.Messages)

	case AppendMessage:
		s.Messages = append(cloneSlice(s.Messages), a.Message)

	case SetDocuments:
		s.Documents = cloneSlice(a.Documents)

	case AppendDocument:
		s.Documents = append(cloneSlice(s.Documents), a.Document)

	case AppendStreamText:
		s.StreamText += a.Text

	case SetStreamText:
		s.StreamText = a.Text

	case SetStreaming:
		s.Streaming = a.Streaming
		if !a.Streaming {
			s.StreamText = ""
		}

	case ToggleView:
		if s.View == ViewUnredacted {
			s.View = ViewRedacted
		} else {
			s.View = ViewUnredacted
		}

	case SetView:
		s.View = a.View

	case SetError:
		s.LastError = a.Message

	case ClearError:
		s.LastError = ""

	case SetModel:
		s.Selection = a.Selection

	case SetCatalog:
		s.Catalog = cloneCatalog(a.Catalog)

	case SetSettingsOpen:
		s.SettingsOpen = a.Open

	case ToggleSettings:
		s.SettingsOpen = !s.SettingsOpen
	}

	return s
}

// resetSessionScope points the active session at id and empties everything
// scoped to it.
func resetSessionScope(s State, id string) State {
	s.ActiveSession = id
	s.Messages = nil
	s.Documents = nil
	s.StreamText = ""
	s.Streaming = false
	s.LastError = ""
	return s
}

func filterSessions(sessions []Session, id string) []Session {
	out := make([]Session, 0, len(sessions))
	for _, sess := range sessions {
		if sess.ID != id {
			out = append(out, sess)
		}
	}
	return out
}

func updateSession(sessions []Session, id string, fn func(*Session)) []Session {
	out := cloneSlice(sessions)
	for i := range out {
		if out[i].ID == id {
			fn(&out[i])
		}
	}
	return out
}

// cloneCatalog copies the catalog's nested slices so the stored snapshot
// shares no backing arrays with the action's payload.
func cloneCatalog(cat ModelCatalog) ModelCatalog {
	cat.Providers = cloneSlice(cat.Providers)
	for i := range cat.Providers {
		cat.Providers[i].Models = cloneSlice(cat.Providers[i].Models)
	}
	return cat
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// Store serializes mutations: it is the only place Apply is driven from at
// runtime, giving a single serialization point for all writers.
type Store struct {
	current State
}

// NewStore returns a store holding the given initial snapshot.
func NewStore(initial State) *Store {
	return &Store{current: initial}
}

// State returns the current snapshot.
func (st *Store) State() State {
	return st.current
}

// Dispatch applies one action and returns the new snapshot.
func (st *Store) Dispatch(a Action) State {
	st.current = Apply(st.current, a)
	return st.current
}
