// Package sse decodes the blinder chat stream: server-sent events carrying
// one JSON record per "data:" line. Network chunk boundaries carry no
// meaning here — a record may arrive split across any number of chunks, and
// a single chunk may carry any number of records.
package sse

import (
	"encoding/json"
	"strings"
)

// Kind classifies a decoded stream record.
type Kind int

const (
	// KindChunk is an incremental fragment of assistant text.
	KindChunk Kind = iota
	// KindDone terminates the stream, optionally carrying revised session
	// metadata and the authoritative message id.
	KindDone
	// KindError is a server-reported stream failure with a human-readable
	// message.
	KindError
)

// Event is one fully-decoded logical record, independent of how many
// network chunks its bytes spanned.
type Event struct {
	Kind    Kind
	Content string // KindChunk: the text fragment
	Title   string // KindDone: revised session title, if any
	Domain  string // KindDone: revised session domain, if any
	Message string // KindError: human-readable failure description
}

// record is the wire shape. Fields not listed (lawyer_content, citations,
// provider, ...) ride on the done record but the client re-fetches history
// instead of trusting them, so they are not decoded.
type record struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Title   string `json:"title"`
	Domain  string `json:"domain"`
	Error   string `json:"error"`
}

const dataPrefix = "data:"

// Decoder reassembles logical records from arbitrary text chunks. The zero
// value is ready to use. Not safe for concurrent use; one decoder serves
// exactly one stream.
type Decoder struct {
	pending string
}

// Feed appends a raw chunk and returns every complete record it finishes,
// in arrival order. The trailing piece after the last newline is retained —
// it may be the front half of a record still in flight.
func (d *Decoder) Feed(chunk string) []Event {
	d.pending += chunk
	parts := strings.Split(d.pending, "\n")
	d.pending = parts[len(parts)-1]

	var events []Event
	for _, line := range parts[:len(parts)-1] {
		if ev, ok := decodeLine(line); ok {
			events = append(events, ev)
		}
	}
	return events
}

// Flush drains a complete trailing record at end of stream, for servers
// that omit the final newline.
func (d *Decoder) Flush() []Event {
	line := d.pending
	d.pending = ""
	if ev, ok := decodeLine(line); ok {
		return []Event{ev}
	}
	return nil
}

// decodeLine parses one line into an event. Lines without the data prefix
// (blank keep-alives, "event:"/"id:" fields, comments) and payloads that
// fail to parse are dropped without error — interstitial garbage must not
// kill a healthy stream.
func decodeLine(line string) (Event, bool) {
	line = strings.TrimSuffix(line, "\r")
	rest, ok := strings.CutPrefix(line, dataPrefix)
	if !ok {
		return Event{}, false
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return Event{}, false
	}

	var rec record
	if err := json.Unmarshal([]byte(rest), &rec); err != nil {
		return Event{}, false
	}

	switch rec.Type {
	case "chunk":
		return Event{Kind: KindChunk, Content: rec.Content}, true
	case "done":
		return Event{Kind: KindDone, Title: rec.Title, Domain: rec.Domain}, true
	case "error":
		return Event{Kind: KindError, Message: rec.Error}, true
	default:
		// start, keep-alives, future record types: recognized as well-formed
		// but produce nothing.
		return Event{}, false
	}
}
