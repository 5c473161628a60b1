package state

import (
	"time"

	"veil-cli/internal/citation"
)

// ViewMode selects which of a message's two content projections renders.
// It affects rendering only; stored content is never mutated by it.
type ViewMode int

const (
	// ViewUnredacted shows original content as the end user wrote/received it.
	ViewUnredacted ViewMode = iota
	// ViewRedacted shows the pseudonymized content the external model saw.
	ViewRedacted
)

func (v ViewMode) String() string {
	if v == ViewRedacted {
		return "redacted"
	}
	return "unredacted"
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Session is one conversation, newest first in the session list.
type Session struct {
	ID        string
	Title     string
	Domain    string
	CreatedAt time.Time
}

// Threat is one sanitizer annotation attached to a message.
type Threat struct {
	Type        string
	Description string
	Severity    string
}

// Message carries both content projections in parallel; exactly one is
// rendered at a time, chosen by the session-global view mode. Pending marks
// a locally-synthesized placeholder that the next history reload replaces
// wholesale — it is never patched field by field.
type Message struct {
	ID         string
	Role       Role
	Unredacted string
	Redacted   string
	Threats    []Threat
	Citations  []citation.Record
	CreatedAt  time.Time
	Pending    bool
}

// Content returns the projection selected by the view mode.
func (m Message) Content(v ViewMode) string {
	if v == ViewRedacted {
		return m.Redacted
	}
	return m.Unredacted
}

// Document is an uploaded source file belonging to the active session.
type Document struct {
	ID       string
	Filename string
	PIICount int
}

// ModelInfo describes one selectable model.
type ModelInfo struct {
	ID       string
	Name     string
	Provider string
	Context  string
}

// Provider groups the models of one backend provider.
type Provider struct {
	Name      string
	Available bool
	Models    []ModelInfo
}

// ModelCatalog is the server-declared provider/model inventory.
type ModelCatalog struct {
	Providers       []Provider
	DefaultProvider string
	DefaultModel    string
}

// ModelSelection is the user's provider/model override. The zero value
// defers to the server-declared default. It survives session switches.
type ModelSelection struct {
	Provider string
	Model    string
}

// IsDefault reports whether the selection defers to the server default.
func (s ModelSelection) IsDefault() bool {
	return s.Provider == "" && s.Model == ""
}

// State is the immutable snapshot handed to the render layer. Messages,
// Documents, StreamText, and LastError are scoped to ActiveSession; the
// rest is process-wide.
type State struct {
	Sessions      []Session
	ActiveSession string
	Messages      []Message
	Documents     []Document
	StreamText    string
	Streaming     bool
	View          ViewMode
	LastError     string
	Selection     ModelSelection
	Catalog       ModelCatalog
	SettingsOpen  bool
}

// Active returns the active session record, if any.
func (s State) Active() (Session, bool) {
	for _, sess := range s.Sessions {
		if sess.ID == s.ActiveSession {
			return sess, true
		}
	}
	return Session{}, false
}
