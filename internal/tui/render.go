package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"veil-cli/internal/citation"
	"veil-cli/internal/state"
)

// ─── Welcome Screen ─────────────────────────────────────────────────────────

func renderWelcome(version, server, profile string) string {
	titleLine := logoTitleStyle.Render("Veil CLI") + " " + versionStyle.Render("v"+version)

	var infoLine string
	if server == "" {
		infoLine = welcomeHintStyle.Render("Run: veil connect <server-url> to get started")
	} else {
		serverDisplay := server
		if len(serverDisplay) > 40 {
			serverDisplay = serverDisplay[:37] + "..."
		}
		infoLine = welcomeInfoLabel.Render(fmt.Sprintf("%s · profile %s", serverDisplay, profile))
	}

	return fmt.Sprintf("\n%s\n\n%s\n%s\n", renderShieldArt(), titleLine, infoLine)
}

const shieldASCIIArt = `
      **********************
    ***++++++++++++++++++***
   ***++++++++++++++++++++***
   ***++++++++++++++++++++***
   ***++++++++++++++++++++***
    ***++++++++++++++++++***
     ***++++++++++++++++***
      ***++++++++++++++***
        ***++++++++++***
          ***++++++***
            ***++***
              ****
               **
`

func renderShieldArt() string {
	lines := strings.Split(shieldASCIIArt, "\n")
	lines = trimEmptyEdgeLines(lines)

	minIndent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := countLeadingSpaces(line)
		if minIndent == -1 || indent < minIndent {
			minIndent = indent
		}
	}

	for i, line := range lines {
		line = strings.TrimRight(line, " ")
		if minIndent > 0 && len(line) >= minIndent {
			line = line[minIndent:]
		}
		lines[i] = colorizeArtLine(line)
	}

	return strings.Join(lines, "\n")
}

func trimEmptyEdgeLines(lines []string) []string {
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}

	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}

func countLeadingSpaces(s string) int {
	i := 0
	for i < len(s) && s[i] == ' ' {
		i++
	}
	return i
}

func colorizeArtLine(line string) string {
	const (
		stylePlain = iota
		styleBody
		styleAccent
	)

	styleFor := func(r rune) int {
		switch r {
		case '*':
			return styleBody
		case '+':
			return styleAccent
		default:
			return stylePlain
		}
	}

	render := func(style int, s string) string {
		switch style {
		case styleBody:
			return logoBodyStyle.Render(s)
		case styleAccent:
			return logoAccentStyle.Render(s)
		default:
			return s
		}
	}

	var out strings.Builder
	var run strings.Builder
	currentStyle := stylePlain
	first := true

	flush := func() {
		if run.Len() == 0 {
			return
		}
		out.WriteString(render(currentStyle, run.String()))
		run.Reset()
	}

	for _, r := range line {
		nextStyle := styleFor(r)
		if first {
			currentStyle = nextStyle
			first = false
		} else if nextStyle != currentStyle {
			flush()
			currentStyle = nextStyle
		}
		run.WriteRune(r)
	}

	flush()
	return out.String()
}

// ─── Messages ───────────────────────────────────────────────────────────────

// renderMessage renders one message in the given projection. User messages
// are a prompt-prefixed echo with threat annotations; assistant messages get
// full markdown treatment plus the citation panel.
func renderMessage(m state.Message, view state.ViewMode, width int) string {
	var b strings.Builder

	switch m.Role {
	case state.RoleUser:
		b.WriteString(userPromptStyle.Render("❯ ") + m.Content(view))
		if m.Pending {
			b.WriteString(dimStyle.Render("  (sending)"))
		}
		for _, th := range m.Threats {
			b.WriteString("\n" + renderThreat(th))
		}

	case state.RoleAssistant:
		b.WriteString(renderAssistantBody(m.Content(view), m.Citations, width))
		if panel := renderCitationPanel(m.Citations, view); panel != "" {
			b.WriteString("\n" + panel)
		}
	}

	return b.String()
}

// renderAssistantBody renders markdown via glamour and styles any citation
// markers the message declares. Undeclared bracket text, pseudonyms included,
// passes through untouched.
//
// The styling replaces the literal "[N]" token in glamour's output. Glamour
// passes bracket text through its word wrap verbatim, so the token survives
// rendering; if a marker does land on a wrap boundary the replacement misses
// and the marker shows unstyled, which is cosmetic only. The source panel
// below stays correct either way.
func renderAssistantBody(text string, records []citation.Record, width int) string {
	rendered := renderMarkdown(text, width)

	for _, seg := range citation.Resolve(text, records) {
		if seg.Marker == 0 {
			continue
		}
		raw := fmt.Sprintf("[%d]", seg.Marker)
		rendered = strings.ReplaceAll(rendered, raw, citationMarkerStyle.Render(raw))
	}

	return rendered
}

// renderMarkdown renders markdown for terminal display, falling back to the
// raw text when the renderer cannot be built.
func renderMarkdown(text string, width int) string {
	if width < 20 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// renderCitationPanel lists a message's sources: marked entries first in
// marker order, unmarked after by score.
func renderCitationPanel(records []citation.Record, view state.ViewMode) string {
	panel := citation.Panel(records)
	if len(panel) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(panelHeaderStyle.Render("  Sources:"))
	for _, rec := range panel {
		label := "•"
		if rec.Marker != 0 {
			label = fmt.Sprintf("[%d]", rec.Marker)
		}
		b.WriteString(fmt.Sprintf("\n  %s %s %s",
			citationMarkerStyle.Render(label),
			rec.Filename,
			dimStyle.Render(fmt.Sprintf("(%.2f)", rec.Score)),
		))

		snippet := rec.SnippetUnredacted
		if view == state.ViewRedacted {
			snippet = rec.SnippetRedacted
		}
		if snippet != "" {
			b.WriteString("\n" + dimStyle.Render("      "+firstLine(snippet, 76)))
		}
	}
	return b.String()
}

func renderThreat(th state.Threat) string {
	return threatStyle.Render(fmt.Sprintf("  ⚠ %s %s: %s", th.Severity, th.Type, th.Description))
}

func firstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > max {
		s = s[:max-3] + "..."
	}
	return s
}

// renderHistory renders the whole conversation in the selected projection.
func renderHistory(st state.State, width int) string {
	if len(st.Messages) == 0 {
		return warnMsgStyle.Render("  ! No messages in this session yet.")
	}

	parts := make([]string, 0, len(st.Messages)+1)
	parts = append(parts, dimStyle.Render(fmt.Sprintf("  ── history · %s view ──", st.View)))
	for _, m := range st.Messages {
		parts = append(parts, renderMessage(m, st.View, width))
	}
	return strings.Join(parts, "\n\n")
}

// ─── Lists ──────────────────────────────────────────────────────────────────

func renderSessionList(sessions []state.Session, activeID string) string {
	if len(sessions) == 0 {
		return warnMsgStyle.Render("  ! No sessions. Start one with /new.")
	}

	var b strings.Builder
	b.WriteString(dimStyle.Render(fmt.Sprintf("  Sessions (%d):", len(sessions))))
	for i, s := range sessions {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		marker := "  "
		if s.ID == activeID {
			marker = successMsgStyle.Render("▸ ")
		}
		b.WriteString(fmt.Sprintf("\n  %s%d. %s %s", marker, i+1, title, dimStyle.Render("["+s.Domain+"]")))
		b.WriteString("\n" + dimStyle.Render(fmt.Sprintf("       %s  %s", s.ID, s.CreatedAt.Format("2006-01-02 15:04"))))
	}
	b.WriteString("\n\n" + dimStyle.Render("  Tip: /session <n> to switch · /new <title> to create"))
	return b.String()
}

func renderModelCatalog(cat state.ModelCatalog, sel state.ModelSelection) string {
	if len(cat.Providers) == 0 {
		return warnMsgStyle.Render("  ! No model catalog loaded. Run /models.")
	}

	var b strings.Builder
	b.WriteString(dimStyle.Render("  Models:"))
	for _, p := range cat.Providers {
		status := successMsgStyle.Render("available")
		if !p.Available {
			status = errorMsgStyle.Render("unavailable")
		}
		b.WriteString(fmt.Sprintf("\n  %s %s", logoTitleStyle.Render(p.Name), status))
		for _, mi := range p.Models {
			current := ""
			if sel.Provider == p.Name && sel.Model == mi.ID {
				current = successMsgStyle.Render("  ◂ selected")
			} else if sel.IsDefault() && cat.DefaultProvider == p.Name && cat.DefaultModel == mi.ID {
				current = dimStyle.Render("  ◂ default")
			}
			ctx := ""
			if mi.Context != "" {
				ctx = dimStyle.Render(" (" + mi.Context + ")")
			}
			b.WriteString(fmt.Sprintf("\n    %s%s%s", mi.ID, ctx, current))
		}
	}
	b.WriteString("\n\n" + dimStyle.Render("  Tip: /model <provider> <model> · /model default"))
	return b.String()
}

func renderDocumentList(docs []state.Document) string {
	if len(docs) == 0 {
		return warnMsgStyle.Render("  ! No documents in this session.")
	}

	var b strings.Builder
	b.WriteString(dimStyle.Render(fmt.Sprintf("  Documents (%d):", len(docs))))
	for _, d := range docs {
		b.WriteString(fmt.Sprintf("\n  📄 %s %s", d.Filename,
			dimStyle.Render(fmt.Sprintf("(%d PII entities)", d.PIICount))))
	}
	return b.String()
}

func renderSettings(st state.State) string {
	model := "server default"
	if !st.Selection.IsDefault() {
		model = st.Selection.Provider + " / " + st.Selection.Model
	}

	var b strings.Builder
	b.WriteString(dimStyle.Render("  Settings:"))
	b.WriteString(fmt.Sprintf("\n    View:   %s", st.View))
	b.WriteString(fmt.Sprintf("\n    Model:  %s", model))
	b.WriteString("\n\n" + dimStyle.Render("  Tip: /view toggles projection · /model changes the model"))
	return b.String()
}
