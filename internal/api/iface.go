package api

import "context"

// VeilAPI defines the interface for the blinder backend client.
// *Client satisfies this interface. TUI and tests can use mock implementations.
type VeilAPI interface {
	CreateSession(title string) (*SessionRecord, error)
	ListSessions() (*SessionListResponse, error)
	UpdateSession(sessionID string, update SessionUpdateRequest) (*SessionRecord, error)
	DeleteSession(sessionID string) error
	History(sessionID string) (*HistoryResponse, error)
	ListDocuments(sessionID string) (*DocumentListResponse, error)
	Models() (*ModelsResponse, error)
	ChatStream(ctx context.Context, sessionID string, chatReq ChatRequest, cb StreamCallback) error
}
