package commands

import (
	"log/slog"
	"os"
	"strings"

	"github.com/leapstack-labs/lakeshift/internal/cli/config"
	"github.com/leapstack-labs/lakeshift/internal/cli/output"
	"github.com/leapstack-labs/lakeshift/internal/diag"
	"github.com/leapstack-labs/lakeshift/internal/pipeline"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Events   *diag.Buffer
	Pipeline *pipeline.Pipeline
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with a pipeline wired to a
// diagnostics buffer sized from the configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cmdCtx := NewCommandContextWithoutPipeline(cmd)

	cmdCtx.Events = diag.NewBuffer(cmdCtx.Cfg.LogBuffer)
	cmdCtx.Pipeline = pipeline.New(pipeline.Config{
		Source:      cmdCtx.Cfg.Source(),
		Virtualised: cmdCtx.Cfg.Virtualise,
		Placeholder: cmdCtx.Cfg.Placeholder,
		Positions:   cmdCtx.Cfg.Positions,
		Sink:        cmdCtx.Events,
		Logger:      cmdCtx.Logger,
	})

	return cmdCtx
}

// NewCommandContextWithoutPipeline creates a CommandContext for commands
// that never read the inventory.
func NewCommandContextWithoutPipeline(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// Helper functions shared across commands

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise falls back to
// environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	// Fallback: read from environment with defaults
	dataPath := getEnvOrDefault("LAKESHIFT_DATA_PATH", config.DefaultDataPath)
	placeholder := getEnvOrDefault("LAKESHIFT_PLACEHOLDER_LABEL", config.DefaultPlaceholder)
	verbose := os.Getenv("LAKESHIFT_VERBOSE") == "true"
	outputFormat := os.Getenv("LAKESHIFT_OUTPUT")

	var virtualise []string
	if v := os.Getenv("LAKESHIFT_VIRTUALISE"); v != "" {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				virtualise = append(virtualise, name)
			}
		}
	}

	return &config.Config{
		DataPath:      dataPath,
		FallbackPaths: []string{config.DefaultFallbackPath},
		Virtualise:    virtualise,
		Placeholder:   placeholder,
		Positions:     true,
		LogBuffer:     config.DefaultLogBuffer,
		Verbose:       verbose,
		OutputFormat:  outputFormat,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
