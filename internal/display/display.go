// Package display holds the plain-stdout helpers used by the one-shot
// command mode. The interactive TUI has its own lipgloss styles; these stay
// raw ANSI so command output pipes cleanly.
package display

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Dim     = "\033[2m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"
	Gray    = "\033[90m"
)

func Header(text string) {
	fmt.Printf("\n%s%s%s\n", Bold+Cyan, text, Reset)
	fmt.Println(strings.Repeat("─", min(len(text)+4, 80)))
}

func SubHeader(text string) {
	fmt.Printf("%s%s%s\n", Bold+White, text, Reset)
}

func Success(text string) {
	fmt.Printf("%s✓%s %s\n", Green, Reset, text)
}

func Error(text string) {
	fmt.Fprintf(os.Stderr, "%s✗%s %s\n", Red, Reset, text)
}

func Warn(text string) {
	fmt.Printf("%s!%s %s\n", Yellow, Reset, text)
}

func Info(label, value string) {
	fmt.Printf("  %s%-20s%s %s\n", Dim, label, Reset, value)
}

func Spinner(text string) {
	fmt.Printf("\r%s⟳%s %s", Yellow, Reset, text)
}

func ClearLine() {
	fmt.Print("\r\033[K")
}

// DomainLabel colors a session domain tag.
func DomainLabel(domain string) string {
	labels := map[string]string{
		"legal":      Blue + "legal" + Reset,
		"finance":    Green + "finance" + Reset,
		"healthcare": Magenta + "healthcare" + Reset,
		"hr":         Cyan + "hr" + Reset,
		"general":    Gray + "general" + Reset,
	}
	if label, ok := labels[domain]; ok {
		return label
	}
	return Gray + domain + Reset
}

// SeverityLabel colors a threat severity.
func SeverityLabel(severity string) string {
	labels := map[string]string{
		"low":      Yellow + "low" + Reset,
		"medium":   Yellow + "medium" + Reset,
		"high":     Red + "high" + Reset,
		"critical": Red + Bold + "critical" + Reset,
	}
	if label, ok := labels[severity]; ok {
		return label
	}
	return severity
}

func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
