package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(marker int, filename string, score float64) Record {
	return Record{Filename: filename, Marker: marker, Score: score}
}

func TestResolveBindsMarkerAndLeavesPseudonymAlone(t *testing.T) {
	segs := Resolve("See [1] and [PERSON_2] report.", []Record{rec(1, "x.pdf", 0.8)})

	require.Len(t, segs, 3)
	assert.Equal(t, "See ", segs[0].Text)
	assert.Equal(t, 0, segs[0].Marker)

	assert.Equal(t, "[1]", segs[1].Text)
	assert.Equal(t, 1, segs[1].Marker)
	assert.Equal(t, "x.pdf", segs[1].Filename)

	assert.Equal(t, " and [PERSON_2] report.", segs[2].Text)
	assert.Equal(t, 0, segs[2].Marker)
}

func TestResolveUndeclaredNumberStaysLiteral(t *testing.T) {
	segs := Resolve("Compare [1] with [7].", []Record{rec(1, "a.pdf", 0)})

	require.Len(t, segs, 3)
	assert.Equal(t, "Compare ", segs[0].Text)
	assert.Equal(t, "[1]", segs[1].Text)
	assert.Equal(t, 1, segs[1].Marker)
	// [7] is absorbed into the trailing literal segment untouched.
	assert.Equal(t, " with [7].", segs[2].Text)
}

func TestResolveTrailingLiteralKeepsUnmatchedBrackets(t *testing.T) {
	segs := Resolve("[2] then [9] end", []Record{rec(2, "b.pdf", 0)})

	require.Len(t, segs, 2)
	assert.Equal(t, 2, segs[0].Marker)
	assert.Equal(t, " then [9] end", segs[1].Text)
}

func TestResolveNoMarkersIsPassthrough(t *testing.T) {
	records := []Record{{Filename: "a.pdf", Score: 0.9}}
	segs := Resolve("Plain text with [3] inside.", records)

	require.Len(t, segs, 1)
	assert.Equal(t, "Plain text with [3] inside.", segs[0].Text)
	assert.Equal(t, 0, segs[0].Marker)
}

func TestResolveEmptyInputs(t *testing.T) {
	assert.Nil(t, Resolve("", nil))
	assert.Nil(t, Resolve("", []Record{rec(1, "a.pdf", 0)}))
	assert.Empty(t, Panel(nil))
}

func TestResolveAdjacentMarkers(t *testing.T) {
	records := []Record{rec(1, "a.pdf", 0), rec(2, "b.pdf", 0)}
	segs := Resolve("[1][2]", records)

	require.Len(t, segs, 2)
	assert.Equal(t, 1, segs[0].Marker)
	assert.Equal(t, 2, segs[1].Marker)
}

func TestResolveRepeatedMarkerBindsEachOccurrence(t *testing.T) {
	segs := Resolve("[1] and again [1]", []Record{rec(1, "a.pdf", 0)})

	require.Len(t, segs, 3)
	assert.Equal(t, 1, segs[0].Marker)
	assert.Equal(t, " and again ", segs[1].Text)
	assert.Equal(t, 1, segs[2].Marker)
}

func TestPanelOrdering(t *testing.T) {
	records := []Record{
		rec(2, "two.pdf", 0.1),
		rec(1, "one.pdf", 0.2),
		rec(0, "unmarked.pdf", 0.9),
	}

	panel := Panel(records)

	require.Len(t, panel, 3)
	assert.Equal(t, "one.pdf", panel[0].Filename)
	assert.Equal(t, "two.pdf", panel[1].Filename)
	assert.Equal(t, "unmarked.pdf", panel[2].Filename)
}

func TestPanelUnmarkedSortByScoreDescending(t *testing.T) {
	records := []Record{
		rec(0, "low.pdf", 0.2),
		rec(0, "high.pdf", 0.8),
		rec(3, "marked.pdf", 0.0),
	}

	panel := Panel(records)

	assert.Equal(t, "marked.pdf", panel[0].Filename)
	assert.Equal(t, "high.pdf", panel[1].Filename)
	assert.Equal(t, "low.pdf", panel[2].Filename)
}

func TestPanelDoesNotMutateInput(t *testing.T) {
	records := []Record{rec(2, "two.pdf", 0), rec(1, "one.pdf", 0)}
	_ = Panel(records)
	assert.Equal(t, 2, records[0].Marker)
}

func TestResolvePanelIndexMatchesPanelOrder(t *testing.T) {
	records := []Record{
		rec(3, "three.pdf", 0),
		rec(1, "one.pdf", 0),
	}

	segs := Resolve("cite [3]", records)

	require.Len(t, segs, 2)
	// Panel order is [1, 3], so marker 3 sits at panel index 1.
	assert.Equal(t, 1, segs[1].PanelIndex)
}
