package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/lakeshift/internal/cli/output"
	"github.com/leapstack-labs/lakeshift/internal/site"
)

// BuildOptions holds options for the build command.
type BuildOptions struct {
	Output string
	Minify bool
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Export the migration map as a static site",
		Long: `Derive the snapshots once and write a self-contained bundle.

The output directory holds index.html, the wire JSON under
data/graphs.json, and the page assets. The bundle renders offline; only
live reload and the per-browser warehouse picker need the server.`,
		Example: `  # Export to ./dist
  lakeshift build

  # Minified assets, custom directory
  lakeshift build --dest site --minify

  # Machine-readable report
  lakeshift build --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}

	// The bundle directory is --dest, not --output, which already selects
	// the report format on every command.
	cmd.Flags().StringVarP(&opts.Output, "dest", "d", "dist", "Destination directory for the bundle")
	cmd.Flags().BoolVar(&opts.Minify, "minify", false, "Minify JS and CSS assets")

	return cmd
}

func runBuild(cmd *cobra.Command, opts *BuildOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	if err := cmdCtx.Cfg.ValidateData(); err != nil {
		return err
	}

	result, err := site.Build(cmd.Context(), cmdCtx.Pipeline, cmdCtx.Events, site.BuildOptions{
		OutputDir: opts.Output,
		Minify:    opts.Minify,
		Logger:    cmdCtx.Logger,
	})
	if err != nil {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(result)
	case output.ModeMarkdown:
		return renderBuildMarkdown(r, result)
	default:
		return renderBuildText(r, result)
	}
}

func renderBuildText(r *output.Renderer, result *site.BuildResult) error {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("Static Export"))
	r.Println("")

	for _, file := range result.Files {
		r.StatusLine(file, "success", "")
	}

	r.Println("")
	r.Success(fmt.Sprintf("Exported %d files to %s", len(result.Files), result.OutputDir))
	if result.Anomalies > 0 {
		r.Warning(fmt.Sprintf("%d connectivity anomalies in the inventory (run 'lakeshift inspect' for details)", result.Anomalies))
	}

	return nil
}

func renderBuildMarkdown(r *output.Renderer, result *site.BuildResult) error {
	r.Println(output.FormatHeader(1, "Static Export"))
	r.Println("")
	r.Println(output.FormatKeyValue("Output", result.OutputDir))
	r.Println(output.FormatKeyValue("Rows", fmt.Sprintf("%d", result.Rows)))
	r.Println(output.FormatKeyValue("Anomalies", fmt.Sprintf("%d", result.Anomalies)))
	r.Println("")
	r.Println(output.FormatHeader(2, "Files"))
	r.Println("")
	for _, file := range result.Files {
		r.Println("- " + file)
	}

	return nil
}
