package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tgienger/planx/internal/client"
	"github.com/tgienger/planx/internal/ui"
	"github.com/tgienger/planx/internal/ui/styles"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("planx %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	server := flag.String("server", envOr("PLANX_SERVER", "http://localhost:8080"), "Plan-X API base URL (env PLANX_SERVER)")
	email := flag.String("email", os.Getenv("PLANX_EMAIL"), "email to prefill on the login screen")
	theme := flag.String("theme", envOr("PLANX_THEME", styles.Current.Name),
		"color theme: "+strings.Join(styles.ThemeNames(), ", "))
	flag.Parse()

	if err := styles.Use(*theme); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	api, err := client.New(*server)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	app := ui.NewApp(api, api.BaseURL(), *email)
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running application: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
