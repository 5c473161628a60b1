package citation

import (
	"regexp"
	"sort"
	"strconv"
)

// Record is one source citation attached to an assistant message.
// Marker is the inline reference number ([N] in the reply text);
// zero means the record has no inline marker.
type Record struct {
	DocumentID        string
	Filename          string
	Score             float64
	SnippetRedacted   string
	SnippetUnredacted string
	Marker            int
}

// Segment is one piece of a resolved message body. Either plain literal
// text (Marker == 0) or an inline citation marker bound to a record.
// PanelIndex is the position of the bound record in Panel() order, so the
// render layer can highlight the matching panel entry on activation.
type Segment struct {
	Text       string
	Marker     int
	Filename   string
	PanelIndex int
}

// markerRe matches a bracketed run of ASCII digits and nothing else.
// Pseudonym tokens from the redaction layer look like [PERSON_2] — an
// entity class, an underscore, then a number — so requiring digits-only
// content is what keeps them out. If the redaction layer ever emits a
// purely numeric placeholder this heuristic breaks; the two formats are
// coupled here.
var markerRe = regexp.MustCompile(`\[(\d+)\]`)

// Resolve splits text into literal and marker segments, binding each
// recognized [N] to the record that declares marker N. Bracketed numbers
// with no matching record stay literal, as does everything else. When no
// record declares a marker the whole text passes through as one segment.
func Resolve(text string, records []Record) []Segment {
	byMarker := make(map[int]Record)
	for _, r := range records {
		if r.Marker > 0 {
			byMarker[r.Marker] = r
		}
	}
	if len(byMarker) == 0 {
		if text == "" {
			return nil
		}
		return []Segment{{Text: text}}
	}

	panelPos := panelIndexByMarker(records)

	var segs []Segment
	last := 0
	for _, loc := range markerRe.FindAllStringSubmatchIndex(text, -1) {
		n, err := strconv.Atoi(text[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		rec, ok := byMarker[n]
		if !ok {
			// A bare number that cites nothing — leave it as written.
			continue
		}
		if loc[0] > last {
			segs = append(segs, Segment{Text: text[last:loc[0]]})
		}
		segs = append(segs, Segment{
			Text:       text[loc[0]:loc[1]],
			Marker:     n,
			Filename:   rec.Filename,
			PanelIndex: panelPos[n],
		})
		last = loc[1]
	}
	if last < len(text) {
		segs = append(segs, Segment{Text: text[last:]})
	}
	return segs
}

// Panel returns the records in citation-panel order: marker-bearing records
// first, ascending by marker; the rest after, descending by score. The sort
// is stable so equal-score records keep their source order.
func Panel(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Marker > 0 && b.Marker > 0:
			return a.Marker < b.Marker
		case a.Marker > 0:
			return true
		case b.Marker > 0:
			return false
		default:
			return a.Score > b.Score
		}
	})
	return out
}

func panelIndexByMarker(records []Record) map[int]int {
	pos := make(map[int]int)
	for i, r := range Panel(records) {
		if r.Marker > 0 {
			pos[r.Marker] = i
		}
	}
	return pos
}
