package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"veil-cli/internal/config"
	"veil-cli/internal/sse"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	// streamClient carries no overall timeout: a chat stream stays open as
	// long as the model keeps talking. Cancellation is the caller's context.
	streamClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.Server, "/") + "/api",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		streamClient: &http.Client{},
	}
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
}

// --- Sessions ---

func (c *Client) CreateSession(title string) (*SessionRecord, error) {
	var resp SessionRecord
	if err := c.doJSON("POST", "/sessions/", SessionCreateRequest{Title: title}, &resp); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return &resp, nil
}

func (c *Client) ListSessions() (*SessionListResponse, error) {
	var resp SessionListResponse
	if err := c.doJSON("GET", "/sessions/", nil, &resp); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return &resp, nil
}

func (c *Client) UpdateSession(sessionID string, update SessionUpdateRequest) (*SessionRecord, error) {
	var resp SessionRecord
	if err := c.doJSON("PATCH", "/sessions/"+sessionID, update, &resp); err != nil {
		return nil, fmt.Errorf("updating session: %w", err)
	}
	return &resp, nil
}

func (c *Client) DeleteSession(sessionID string) error {
	if err := c.doJSON("DELETE", "/sessions/"+sessionID, nil, nil); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// --- History / documents / models ---

func (c *Client) History(sessionID string) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.doJSON("GET", "/sessions/"+sessionID+"/chat/history", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	return &resp, nil
}

func (c *Client) ListDocuments(sessionID string) (*DocumentListResponse, error) {
	var resp DocumentListResponse
	if err := c.doJSON("GET", "/sessions/"+sessionID+"/documents", nil, &resp); err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return &resp, nil
}

func (c *Client) Models() (*ModelsResponse, error) {
	var resp ModelsResponse
	if err := c.doJSON("GET", "/models/", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching models: %w", err)
	}
	return &resp, nil
}

// --- Chat stream ---

// StreamCallback receives each decoded logical event in arrival order.
type StreamCallback func(ev sse.Event)

// ChatStream posts one user message and consumes the SSE reply until the
// done record, the context is cancelled, or the transport fails. Raw reads
// go through a frame decoder, so chunk boundaries that split a record are
// invisible to the callback.
func (c *Client) ChatStream(ctx context.Context, sessionID string, chatReq ChatRequest, cb StreamCallback) error {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/sessions/"+sessionID+"/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req, true)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))
	}

	var dec sse.Decoder
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for _, ev := range dec.Feed(string(buf[:n])) {
				cb(ev)
				if ev.Kind == sse.KindDone {
					return nil
				}
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				for _, ev := range dec.Flush() {
					cb(ev)
				}
				return nil
			}
			return fmt.Errorf("reading stream: %w", readErr)
		}
	}
}

// --- Generic JSON helper ---

func (c *Client) doJSON(method, path string, reqBody interface{}, result interface{}) error {
	var bodyReader io.Reader
	hasBody := reqBody != nil && method != "GET"
	if hasBody {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req, hasBody)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}
