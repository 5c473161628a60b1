package sse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormed = `data: {"type": "start"}
data: {"type": "chunk", "content": "Hel"}
data: {"type": "chunk", "content": "lo"}
data: {"type": "done", "title": "Greeting", "domain": "general"}
`

func feedAll(d *Decoder, chunks []string) []Event {
	var events []Event
	for _, c := range chunks {
		events = append(events, d.Feed(c)...)
	}
	return append(events, d.Flush()...)
}

func TestDecodeWholeStream(t *testing.T) {
	var d Decoder
	events := feedAll(&d, []string{wellFormed})

	require.Len(t, events, 3)
	assert.Equal(t, Event{Kind: KindChunk, Content: "Hel"}, events[0])
	assert.Equal(t, Event{Kind: KindChunk, Content: "lo"}, events[1])
	assert.Equal(t, Event{Kind: KindDone, Title: "Greeting", Domain: "general"}, events[2])
}

func TestDecodeIsSplitInvariant(t *testing.T) {
	var whole Decoder
	want := feedAll(&whole, []string{wellFormed})

	// Every possible two-way split, plus byte-at-a-time.
	for i := 1; i < len(wellFormed); i++ {
		var d Decoder
		got := feedAll(&d, []string{wellFormed[:i], wellFormed[i:]})
		require.Equal(t, want, got, "split at byte %d", i)
	}

	var d Decoder
	got := feedAll(&d, strings.Split(wellFormed, ""))
	assert.Equal(t, want, got)
}

func TestMalformedInterstitialLinesAreDropped(t *testing.T) {
	var d Decoder
	events := feedAll(&d, []string{
		"data: {\"type\": \"chunk\", \"content\": \"a\"}\n",
		"this line has no prefix\n",
		": sse comment\n",
		"event: error\n",
		"data: {\"type\": \"chunk\", \"content\":\n", // truncated JSON
		"\n",
		"data: {\"type\": \"chunk\", \"content\": \"b\"}\n",
	})

	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].Content)
	assert.Equal(t, "b", events[1].Content)
}

func TestUnknownTypeTagIgnored(t *testing.T) {
	var d Decoder
	events := d.Feed("data: {\"type\": \"telemetry\", \"content\": \"x\"}\ndata: {\"type\": \"chunk\", \"content\": \"y\"}\n")

	require.Len(t, events, 1)
	assert.Equal(t, "y", events[0].Content)
}

func TestErrorRecordSurfacesMessage(t *testing.T) {
	var d Decoder
	events := d.Feed("data: {\"type\": \"error\", \"error\": \"LLM provider rate limit exceeded.\"}\n")

	require.Len(t, events, 1)
	assert.Equal(t, KindError, events[0].Kind)
	assert.Equal(t, "LLM provider rate limit exceeded.", events[0].Message)
}

func TestCRLFTolerated(t *testing.T) {
	var d Decoder
	events := d.Feed("data: {\"type\": \"chunk\", \"content\": \"x\"}\r\n")

	require.Len(t, events, 1)
	assert.Equal(t, "x", events[0].Content)
}

func TestDoneWithoutMetadata(t *testing.T) {
	var d Decoder
	events := d.Feed("data: {\"type\": \"done\", \"message_id\": \"abc\"}\n")

	require.Len(t, events, 1)
	assert.Equal(t, KindDone, events[0].Kind)
	assert.Empty(t, events[0].Title)
	assert.Empty(t, events[0].Domain)
}

func TestFlushDrainsUnterminatedRecord(t *testing.T) {
	var d Decoder
	events := d.Feed("data: {\"type\": \"chunk\", \"content\": \"tail\"}")
	assert.Empty(t, events)

	flushed := d.Flush()
	require.Len(t, flushed, 1)
	assert.Equal(t, "tail", flushed[0].Content)

	// Flush is drained; a second call yields nothing.
	assert.Empty(t, d.Flush())
}

func TestNoDataAfterPrefixDropped(t *testing.T) {
	var d Decoder
	assert.Empty(t, d.Feed("data:\ndata:   \n"))
}
