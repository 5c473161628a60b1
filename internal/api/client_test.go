package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"veil-cli/internal/config"
	"veil-cli/internal/sse"
)

func newTestClient(serverURL string) *Client {
	return NewClient(&config.Config{Server: serverURL})
}

func TestSetHeaders(t *testing.T) {
	t.Run("with body", func(t *testing.T) {
		c := newTestClient("http://example.com")
		req, _ := http.NewRequest("POST", "http://example.com", nil)
		c.setHeaders(req, true)

		if got := req.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want %q", got, "application/json")
		}
		if got := req.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q, want %q", got, "application/json")
		}
	})

	t.Run("without body", func(t *testing.T) {
		c := newTestClient("http://example.com")
		req, _ := http.NewRequest("GET", "http://example.com", nil)
		c.setHeaders(req, false)

		if got := req.Header.Get("Content-Type"); got != "" {
			t.Errorf("Content-Type = %q, want empty for GET", got)
		}
	})
}

func TestCreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/sessions/" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req SessionCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Title != "New Session" {
			t.Errorf("Title = %q, want %q", req.Title, "New Session")
		}
		w.WriteHeader(201)
		fmt.Fprint(w, `{"id": "s1", "title": "New Session", "domain": "general", "created_at": "2026-02-10T12:00:00Z"}`)
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).CreateSession("New Session")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if resp.ID != "s1" {
		t.Errorf("ID = %q, want %q", resp.ID, "s1")
	}
	if resp.Domain != "general" {
		t.Errorf("Domain = %q, want %q", resp.Domain, "general")
	}
}

func TestUpdateSessionPartial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "PATCH" {
			t.Errorf("method = %s, want PATCH", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		// Only the domain field should be present in a domain-only update.
		if strings.Contains(string(body), "title") {
			t.Errorf("partial update leaked nil field: %s", body)
		}
		fmt.Fprint(w, `{"id": "s1", "title": "kept", "domain": "legal", "created_at": "2026-02-10T12:00:00Z"}`)
	}))
	defer srv.Close()

	domain := "legal"
	resp, err := newTestClient(srv.URL).UpdateSession("s1", SessionUpdateRequest{Domain: &domain})
	if err != nil {
		t.Fatalf("UpdateSession() error = %v", err)
	}
	if resp.Domain != "legal" {
		t.Errorf("Domain = %q, want %q", resp.Domain, "legal")
	}
}

func TestHistoryConversion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sessions/s1/chat/history" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"messages": [
			{"id": "m1", "session_id": "s1", "role": "user",
			 "lawyer_content": "John Smith signed.", "blinded_content": "[PERSON_1] signed.",
			 "threats_detected": [{"threat_type": "prompt_injection", "description": "d", "severity": "low"}],
			 "citations": [], "created_at": "2026-02-10T12:00:00Z"},
			{"id": "m2", "session_id": "s1", "role": "assistant",
			 "lawyer_content": "See [1].", "blinded_content": "See [1].",
			 "threats_detected": [],
			 "citations": [{"document_id": "d1", "filename": "x.pdf", "chunk_index": 0,
			   "score": 0.7, "snippet_blinded": "b", "snippet_lawyer": "l", "marker": 1}],
			 "created_at": "2026-02-10T12:00:05Z"}
		]}`)
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL).History("s1")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}

	msgs := resp.StateMessages()
	if len(msgs) != 2 {
		t.Fatalf("len(messages) = %d, want 2", len(msgs))
	}
	if msgs[0].Unredacted != "John Smith signed." {
		t.Errorf("Unredacted = %q", msgs[0].Unredacted)
	}
	if msgs[0].Redacted != "[PERSON_1] signed." {
		t.Errorf("Redacted = %q", msgs[0].Redacted)
	}
	if len(msgs[0].Threats) != 1 || msgs[0].Threats[0].Type != "prompt_injection" {
		t.Errorf("Threats = %+v", msgs[0].Threats)
	}
	if len(msgs[1].Citations) != 1 {
		t.Fatalf("Citations = %+v", msgs[1].Citations)
	}
	if msgs[1].Citations[0].Marker != 1 {
		t.Errorf("Marker = %d, want 1", msgs[1].Citations[0].Marker)
	}
	if msgs[1].Citations[0].SnippetUnredacted != "l" {
		t.Errorf("SnippetUnredacted = %q", msgs[1].Citations[0].SnippetUnredacted)
	}
}

func TestCitationNullMarker(t *testing.T) {
	var rec CitationRecord
	if err := json.Unmarshal([]byte(`{"filename": "x.pdf", "score": 0.5, "marker": null}`), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := rec.Record()
	if got.Marker != 0 {
		t.Errorf("Marker = %d, want 0 for null", got.Marker)
	}
}

func TestServerErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
		fmt.Fprint(w, `{"detail": "Session not found"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).History("nope")
	if err == nil {
		t.Fatal("expected error on 404")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %q, should mention status", err)
	}
}

func TestChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sessions/s1/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Message != "hello" {
			t.Errorf("Message = %q", req.Message)
		}

		f := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\": \"start\"}\n\n")
		f.Flush()
		fmt.Fprint(w, "data: {\"type\": \"chunk\", \"content\": \"Hel\"}\n\n")
		f.Flush()
		fmt.Fprint(w, "data: {\"type\": \"chunk\", \"content\": \"lo\"}\n\n")
		f.Flush()
		fmt.Fprint(w, "data: {\"type\": \"done\", \"title\": \"Greeting\"}\n\n")
		f.Flush()
	}))
	defer srv.Close()

	var events []sse.Event
	err := newTestClient(srv.URL).ChatStream(context.Background(), "s1", ChatRequest{Message: "hello"}, func(ev sse.Event) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("ChatStream() error = %v", err)
	}

	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3 (start is ignored)", len(events))
	}
	if events[0].Content != "Hel" || events[1].Content != "lo" {
		t.Errorf("chunks = %q, %q", events[0].Content, events[1].Content)
	}
	if events[2].Kind != sse.KindDone || events[2].Title != "Greeting" {
		t.Errorf("done = %+v", events[2])
	}
}

func TestChatStreamCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"type\": \"chunk\", \"content\": \"x\"}\n")
		f.Flush()
		<-release // hold the stream open until the test is over
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan error, 1)
	go func() {
		got <- newTestClient(srv.URL).ChatStream(ctx, "s1", ChatRequest{Message: "hi"}, func(ev sse.Event) {
			cancel() // cancel as soon as the first chunk lands
		})
	}()

	select {
	case err := <-got:
		if err == nil {
			t.Fatal("expected cancellation error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ChatStream did not return after cancellation")
	}
}

func TestChatStreamNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		fmt.Fprint(w, "boom")
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).ChatStream(context.Background(), "s1", ChatRequest{Message: "hi"}, func(sse.Event) {
		t.Error("callback must not fire on HTTP error")
	})
	if err == nil {
		t.Fatal("expected error on 500")
	}
}
