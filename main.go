package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"veil-cli/internal/api"
	"veil-cli/internal/config"
	"veil-cli/internal/display"
	"veil-cli/internal/sse"
	"veil-cli/internal/state"
	"veil-cli/internal/tui"
)

const version = "0.1.0"

var activeProfile string

func main() {
	args := os.Args[1:]

	// Parse global flags first (--profile)
	args = parseGlobalFlags(args)

	// No args → launch interactive mode (default)
	if len(args) == 0 {
		if err := tui.Run(version, activeProfile); err != nil {
			display.Error(err.Error())
			os.Exit(1)
		}
		return
	}

	// Explicit -i flag also launches interactive mode
	if args[0] == "-i" || args[0] == "--interactive" || args[0] == "interactive" {
		if err := tui.Run(version, activeProfile); err != nil {
			display.Error(err.Error())
			os.Exit(1)
		}
		return
	}

	var err error

	switch args[0] {
	case "connect":
		err = cmdConnect(args[1:])
	case "config":
		err = cmdConfig()
	case "ask":
		err = cmdAsk(args[1:])
	case "sessions":
		err = cmdSessions()
	case "models":
		err = cmdModels()
	case "profiles":
		err = cmdProfiles()
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		fmt.Printf("veil %s\n", version)
	default:
		display.Error(fmt.Sprintf("Unknown command: %s", args[0]))
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		display.Error(err.Error())
		os.Exit(1)
	}
}

// ─── connect ────────────────────────────────────────────────────────────────

func cmdConnect(args []string) error {
	if len(args) == 0 {
		fmt.Println("Usage: veil connect <server-url>")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  veil connect http://localhost:8000")
		fmt.Println("  veil --profile staging connect https://veil.internal.example.com")
		return nil
	}

	serverURL := strings.TrimRight(args[0], "/")

	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	cfg.Server = serverURL

	display.Spinner("Checking " + serverURL + " ...")
	client := api.NewClient(cfg)
	resp, err := client.Models()
	display.ClearLine()
	if err != nil {
		display.Warn(fmt.Sprintf("Server not reachable: %v", err))
		display.Warn("Saving anyway; check the URL or start the server.")
	} else {
		display.Success(fmt.Sprintf("Connected — default model %s/%s", resp.DefaultProvider, resp.DefaultModel))
	}

	if err := cfg.Save(); err != nil {
		return err
	}

	display.Info("Server:", serverURL)
	display.Info("Profile:", config.ProfileName(activeProfile))

	pf := ""
	if activeProfile != "" {
		pf = " --profile " + activeProfile
	}
	fmt.Printf("\n  %sNext:%s Run %sveil%s%s to start chatting, or %sveil%s ask \"<question>\"%s.\n\n",
		display.Dim, display.Reset, display.Cyan, pf, display.Reset, display.Cyan, pf, display.Reset)

	return nil
}

// ─── config ─────────────────────────────────────────────────────────────────

func cmdConfig() error {
	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}

	display.Header("Veil CLI Configuration")

	display.Info("Profile:", config.ProfileName(activeProfile))

	notSet := display.Dim + "(not set)" + display.Reset
	server := cfg.Server
	if server == "" {
		server = notSet
	}
	display.Info("Server:", server)

	provider := cfg.Provider
	if provider == "" {
		provider = display.Dim + "(server default)" + display.Reset
	}
	display.Info("Provider:", provider)

	model := cfg.Model
	if model == "" {
		model = display.Dim + "(server default)" + display.Reset
	}
	display.Info("Model:", model)

	view := "unredacted"
	if cfg.Redacted {
		view = "redacted"
	}
	display.Info("View:", view)
	fmt.Println()

	return nil
}

// ─── ask ────────────────────────────────────────────────────────────────────

func cmdAsk(args []string) error {
	var sessionID string
	var redacted bool
	var positional []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-s", "--session":
			if i+1 < len(args) {
				i++
				sessionID = args[i]
			} else {
				return fmt.Errorf("--session requires a value")
			}
		case "--redacted":
			redacted = true
		default:
			positional = append(positional, args[i])
		}
	}

	if len(positional) == 0 {
		fmt.Println("Usage: veil ask <message> [--session <id>] [--redacted]")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println(`  veil ask "Summarize the indemnification clause"`)
		fmt.Println(`  veil ask "And the termination terms?" --session <id>`)
		return nil
	}
	message := strings.Join(positional, " ")

	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	view := state.ViewUnredacted
	if redacted || cfg.Redacted {
		view = state.ViewRedacted
	}

	client := api.NewClient(cfg)

	if sessionID == "" {
		display.Spinner("Creating session...")
		rec, err := client.CreateSession("New Session")
		display.ClearLine()
		if err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		sessionID = rec.ID
		display.Success(fmt.Sprintf("Session created: %s", sessionID))
	} else {
		display.Success(fmt.Sprintf("Continuing session: %s", sessionID))
	}

	fmt.Printf("\n  %s❯%s %s\n\n", display.Cyan, display.Reset, message)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	req := api.ChatRequest{Message: message, Provider: cfg.Provider, Model: cfg.Model}
	var failed string
	err = client.ChatStream(ctx, sessionID, req, func(ev sse.Event) {
		switch ev.Kind {
		case sse.KindChunk:
			fmt.Print(ev.Content)
		case sse.KindError:
			failed = ev.Message
		}
	})
	fmt.Println()
	if err != nil {
		return fmt.Errorf("stream error: %w", err)
	}
	if failed != "" {
		return fmt.Errorf("server error: %s", failed)
	}

	// The stream carries text only; citations and threat annotations live on
	// the persisted message.
	hist, err := client.History(sessionID)
	if err != nil {
		display.Warn(fmt.Sprintf("Could not load annotations: %v", err))
	} else {
		printAnnotations(hist.StateMessages(), view)
	}

	fmt.Println()
	display.Success("Done")
	fmt.Printf("  %sTip:%s Run %sveil ask \"...\" --session %s%s to continue this conversation.\n\n",
		display.Dim, display.Reset, display.Cyan, sessionID, display.Reset)

	return nil
}

// printAnnotations prints the citations and threats of the newest exchange.
func printAnnotations(messages []state.Message, view state.ViewMode) {
	if len(messages) == 0 {
		return
	}

	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role == state.RoleUser {
			for _, th := range m.Threats {
				fmt.Printf("  %s⚠%s %s %s: %s\n", display.Yellow, display.Reset,
					display.SeverityLabel(th.Severity), th.Type, th.Description)
			}
			break
		}
	}

	last := messages[len(messages)-1]
	if last.Role != state.RoleAssistant || len(last.Citations) == 0 {
		return
	}

	fmt.Printf("\n  %s📎 Sources:%s\n", display.Blue, display.Reset)
	for _, rec := range last.Citations {
		label := "•"
		if rec.Marker != 0 {
			label = fmt.Sprintf("[%d]", rec.Marker)
		}
		fmt.Printf("    %s %s %s(%.2f)%s\n", label, rec.Filename, display.Dim, rec.Score, display.Reset)
		snippet := rec.SnippetUnredacted
		if view == state.ViewRedacted {
			snippet = rec.SnippetRedacted
		}
		if snippet != "" {
			fmt.Printf("      %s%s%s\n", display.Gray, truncate(snippet, 100), display.Reset)
		}
	}
}

// ─── sessions ───────────────────────────────────────────────────────────────

func cmdSessions() error {
	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := api.NewClient(cfg)

	resp, err := client.ListSessions()
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	display.Header(fmt.Sprintf("Sessions (%d)", len(resp.Sessions)))

	if len(resp.Sessions) == 0 {
		display.Warn("No sessions found.")
		return nil
	}

	for _, s := range resp.Sessions {
		title := s.Title
		if title == "" {
			title = display.Dim + "(untitled)" + display.Reset
		}
		fmt.Printf("\n  💬 %s%s%s  [%s]\n", display.Bold, title, display.Reset, display.DomainLabel(s.Domain))
		fmt.Printf("    %sID:%s      %s\n", display.Dim, display.Reset, s.ID)
		fmt.Printf("    %sCreated:%s %s\n", display.Dim, display.Reset, display.FormatTime(s.CreatedAt))
	}

	fmt.Println()
	fmt.Printf("  %sTip:%s Run %sveil ask \"...\" --session <id>%s to continue one.\n\n",
		display.Dim, display.Reset, display.Cyan, display.Reset)

	return nil
}

// ─── models ─────────────────────────────────────────────────────────────────

func cmdModels() error {
	cfg, err := config.Load(activeProfile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client := api.NewClient(cfg)

	resp, err := client.Models()
	if err != nil {
		return fmt.Errorf("listing models: %w", err)
	}

	display.Header("Models")

	for _, p := range resp.Providers {
		status := display.Green + "available" + display.Reset
		if !p.Available {
			status = display.Red + "unavailable" + display.Reset
		}
		fmt.Printf("\n  %s%s%s  %s\n", display.Bold, p.Provider, display.Reset, status)
		for _, m := range p.Models {
			def := ""
			if p.Provider == resp.DefaultProvider && m.ID == resp.DefaultModel {
				def = display.Dim + "  (default)" + display.Reset
			}
			ctx := ""
			if m.Context != "" {
				ctx = fmt.Sprintf(" %s(%s)%s", display.Dim, m.Context, display.Reset)
			}
			fmt.Printf("    • %s%s%s\n", m.ID, ctx, def)
		}
	}

	fmt.Println()
	return nil
}

// ─── profiles ───────────────────────────────────────────────────────────────

func cmdProfiles() error {
	profiles, err := config.ListProfiles()
	if err != nil {
		return err
	}

	display.Header(fmt.Sprintf("Profiles (%d)", len(profiles)))

	if len(profiles) == 0 {
		display.Warn("No profiles found.")
		return nil
	}

	for _, p := range profiles {
		marker := " "
		if p == config.ProfileName(activeProfile) {
			marker = display.Green + "●" + display.Reset
		}
		fmt.Printf("  %s %s\n", marker, p)
	}
	fmt.Println()

	return nil
}

// ─── helpers ────────────────────────────────────────────────────────────────

func parseGlobalFlags(args []string) []string {
	var remaining []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--profile" {
			if i+1 < len(args) {
				i++
				activeProfile = args[i]
			}
			continue
		}
		remaining = append(remaining, args[i])
	}
	return remaining
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// ─── usage ──────────────────────────────────────────────────────────────────

func printUsage() {
	fmt.Printf(`%sVeil CLI%s — privacy-mediated document chat (v%s)

%sUsage:%s
  veil                                               Launch interactive mode (default)
  veil [--profile <name>] <command> [arguments]      Run a specific command

%sGetting Started:%s
  connect <server-url>      Point the CLI at a Veil server
  config                    Show current configuration

%sChat:%s
  ask "<message>"           Send one message and stream the reply
    -s, --session <id>      Continue in an existing session
    --redacted              Show redacted snippets in annotations

%sSessions:%s
  sessions                  List sessions
  models                    List available providers and models

%sProfiles:%s
  profiles                  List all config profiles
  --profile <name>          Use a named config profile (default: unnamed)

%sExamples:%s
  veil                                               # Start interactive mode
  veil connect http://localhost:8000
  veil ask "Summarize the indemnification clause"
  veil ask "And the termination terms?" -s <session-id>
  veil --profile staging sessions

`, display.Bold, display.Reset, version,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset,
		display.Cyan, display.Reset)
}
