// Package chat drives one streamed exchange end to end: optimistic local
// echo, chunk relay, and the history reconciliation that replaces the
// optimistic state with what the server actually persisted. It owns no UI
// and no state; it emits actions for the store and leaves dispatch to the
// caller.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"veil-cli/internal/api"
	"veil-cli/internal/sse"
	"veil-cli/internal/state"
)

// PendingRedaction stands in for a placeholder message's redacted projection
// until the history reload delivers the server's actual redaction.
const PendingRedaction = "[pending redaction]"

type Orchestrator struct {
	client api.VeilAPI
}

func New(client api.VeilAPI) *Orchestrator {
	return &Orchestrator{client: client}
}

// Exchange is one in-flight chat turn.
//
// Opening holds the actions the caller dispatches synchronously before the
// first channel read: the placeholder user message and the streaming flag.
// Actions then delivers everything produced by the pump goroutine, in order,
// and is closed when the exchange is over. Cancel aborts the transport;
// nothing is delivered after cancellation, even for data already buffered.
type Exchange struct {
	SessionID string
	Opening   []state.Action
	Actions   <-chan state.Action
	Cancel    context.CancelFunc
}

// Submit opens a streamed exchange for the given input against the snapshot's
// active session. It returns nil without side effects when the input is
// blank, no session is active, or a stream is already running.
func (o *Orchestrator) Submit(snapshot state.State, input string) *Exchange {
	input = strings.TrimSpace(input)
	if input == "" || snapshot.ActiveSession == "" || snapshot.Streaming {
		return nil
	}
	sessionID := snapshot.ActiveSession

	// The raw input goes into the unredacted projection only; its redaction
	// does not exist until the server processes the turn, so the redacted
	// projection holds a provisional placeholder until reconciliation. The
	// temp id never collides with server ids, so the wholesale history
	// replace erases it.
	placeholder := state.Message{
		ID:         uuid.NewString(),
		Role:       state.RoleUser,
		Unredacted: input,
		Redacted:   PendingRedaction,
		CreatedAt:  time.Now(),
		Pending:    true,
	}

	req := api.ChatRequest{
		Message:  input,
		Provider: snapshot.Selection.Provider,
		Model:    snapshot.Selection.Model,
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan state.Action, 64)

	go o.pump(ctx, sessionID, req, ch)

	return &Exchange{
		SessionID: sessionID,
		Opening: []state.Action{
			state.AppendMessage{SessionID: sessionID, Message: placeholder},
			state.SetStreaming{SessionID: sessionID, Streaming: true},
		},
		Actions: ch,
		Cancel:  cancel,
	}
}

func (o *Orchestrator) pump(ctx context.Context, sessionID string, req api.ChatRequest, ch chan<- state.Action) {
	defer close(ch)

	emit := func(a state.Action) {
		if ctx.Err() != nil {
			return
		}
		select {
		case ch <- a:
		case <-ctx.Done():
		}
	}

	var doneEv sse.Event
	var sawDone bool
	var serverErr string

	err := o.client.ChatStream(ctx, sessionID, req, func(ev sse.Event) {
		switch ev.Kind {
		case sse.KindChunk:
			emit(state.AppendStreamText{SessionID: sessionID, Text: ev.Content})
		case sse.KindDone:
			doneEv = ev
			sawDone = true
		case sse.KindError:
			serverErr = ev.Message
		}
	})

	if ctx.Err() != nil {
		// Cancelled. The caller already cleaned up its own state; emitting
		// anything here would race the next exchange.
		return
	}

	switch {
	case err != nil:
		emit(state.SetError{Message: err.Error()})

	case serverErr != "":
		emit(state.SetError{Message: serverErr})

	case sawDone:
		if doneEv.Title != "" {
			emit(state.RenameSession{ID: sessionID, Title: doneEv.Title})
		}
		if doneEv.Domain != "" {
			emit(state.RetagSession{ID: sessionID, Domain: doneEv.Domain})
		}
		// The streamed text is a preview; the persisted messages carry the
		// real redaction, citations, and threat annotations. Replace the
		// whole history rather than patching the placeholder.
		hist, herr := o.client.History(sessionID)
		if herr != nil {
			emit(state.SetError{Message: fmt.Sprintf("response finished but history reload failed: %v", herr)})
		} else {
			emit(state.SetMessages{SessionID: sessionID, Messages: hist.StateMessages()})
		}

	default:
		emit(state.SetError{Message: "stream ended before completion"})
	}

	emit(state.SetStreaming{SessionID: sessionID, Streaming: false})
}
