package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"veil-cli/internal/state"
)

// ─── Messages from the exchange pump to Bubble Tea ──────────────────────────

// streamActionMsg wraps one store action produced by an in-flight exchange.
type streamActionMsg struct {
	action state.Action
}

// streamClosedMsg signals that the exchange's action channel closed.
type streamClosedMsg struct{}

// waitForExchange reads the next action from the channel. The model's Update
// re-arms it after every message, so actions arrive one per Update cycle and
// dispatch in order.
func waitForExchange(ch <-chan state.Action) tea.Cmd {
	return func() tea.Msg {
		a, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return streamActionMsg{action: a}
	}
}

// drainStreamLines takes the store's streaming buffer and the count of bytes
// already printed, and returns the complete lines not yet shown plus the new
// printed offset. The trailing partial line stays in the buffer until more
// text or stream end completes it.
func drainStreamLines(buf string, printed int) ([]string, int) {
	if printed >= len(buf) {
		return nil, printed
	}
	last := strings.LastIndexByte(buf, '\n')
	if last < printed {
		return nil, printed
	}
	lines := strings.Split(buf[printed:last], "\n")
	return lines, last + 1
}
