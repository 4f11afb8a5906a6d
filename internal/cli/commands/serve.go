package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/lakeshift/internal/cli/config"
	"github.com/leapstack-labs/lakeshift/internal/site"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Port      int
	NoBrowser bool
	Watch     bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive migration map",
		Long: `Start a local web server with the interactive migration map.

The page shows the three architecture states behind a toggle, a live
diagnostics panel, and a per-browser picker for the warehouses routed
through the virtualisation layer. With watching enabled, saving the
inventory re-derives the snapshots and reloads connected browsers.`,
		Example: `  # Serve on the default port
  lakeshift serve

  # Serve on a custom port
  lakeshift serve --port 3000

  # Start without auto-opening a browser
  lakeshift serve --no-browser`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: 8000)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Re-derive when the inventory changes")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cc := NewCommandContext(cmd)
	cfg := cc.Cfg

	serveCfg := cfg.GetServeConfig()

	// CLI flags override config file
	port := serveCfg.Port
	if opts.Port != 0 {
		port = opts.Port
	}

	autoOpen := serveCfg.AutoOpen
	if opts.NoBrowser {
		autoOpen = false
	}

	watch := serveCfg.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}

	// A missing inventory is not fatal here: the page reports it and the
	// watcher picks the file up once it appears.
	if _, err := cfg.Source().Resolve(); err != nil {
		cc.Renderer.Warning(err.Error())
	}

	server := site.NewServer(site.Config{
		Pipeline:      cc.Pipeline,
		Events:        cc.Events,
		Source:        cfg.Source(),
		Port:          port,
		Watch:         watch,
		SessionSecret: sessionSecret(serveCfg),
		Logger:        cc.Logger,
	})

	if autoOpen {
		url := fmt.Sprintf("http://localhost:%d", port)
		go openBrowser(url)
	}

	cc.Renderer.Printf("Serving migration map on http://localhost:%d\n", port)
	cc.Renderer.Println("Press Ctrl+C to stop")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Ctrl+C cancels the context so the server shuts down gracefully.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return server.Serve(ctx)
}

// sessionSecret resolves the cookie-signing secret: environment first,
// then config file, then a fixed development fallback.
func sessionSecret(serveCfg *config.ServeConfig) string {
	if secret := os.Getenv("LAKESHIFT_SESSION_SECRET"); secret != "" {
		return secret
	}
	if serveCfg.SessionSecret != "" {
		return serveCfg.SessionSecret
	}
	// Default secret for development (nolint:gosec)
	return "lakeshift-dev-secret-change-in-production" //nolint:gosec
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
