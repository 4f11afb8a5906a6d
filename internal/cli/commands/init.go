package commands

import (
	"fmt"
	"os"

	"github.com/leapstack-labs/lakeshift/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new Lakeshift project",
		Long: `Initialize a new Lakeshift project with a starter inventory and
configuration.

This creates:
  - lakeshift.yaml configuration file
  - data/legacy_feeds.csv feed inventory

Use --example to create a richer demo inventory with a dozen feeds,
six warehouses, and the messy cells (blank names, unexpected
connectivity values) that the inspect command reports on.`,
		Example: `  # Initialize in current directory
  lakeshift init

  # Initialize with the demo inventory
  lakeshift init --example

  # Initialize in a new directory
  lakeshift init my-estate --example

  # Force overwrite existing config
  lakeshift init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			// Create renderer
			cfg := getConfig()
			mode := output.Mode(cfg.OutputFormat)
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

			if example {
				return runInitExample(r, dir, force)
			}
			return runInit(r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&example, "example", false, "Create a demo inventory with anomalies to explore")

	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if err := prepareProjectDir(dir, force); err != nil {
		return err
	}

	// Copy minimal template
	if err := copyTemplate("minimal", dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	// List created files
	files, _ := listTemplateFiles("minimal")
	for _, f := range files {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("Lakeshift project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Replace data/legacy_feeds.csv with your feed inventory")
	r.Println("  2. Run 'lakeshift serve' to explore the migration snapshots")
	r.Println("  3. Run 'lakeshift inspect' to check the inventory for anomalies")
	r.Println("  4. Run 'lakeshift build' to export a static site")

	return nil
}

func runInitExample(r *output.Renderer, dir string, force bool) error {
	if err := prepareProjectDir(dir, force); err != nil {
		return err
	}

	// Copy example template
	if err := copyTemplate("example", dir, force); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	// List created files by category
	files, _ := listTemplateFiles("example")
	groups := groupTemplateFiles(files)

	r.Header(2, "Configuration")
	for _, f := range groups["config"] {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Header(2, "Data")
	for _, f := range groups["data"] {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("Lakeshift project initialized with demo inventory!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  lakeshift serve     Explore the snapshots in a browser")
	r.Println("  lakeshift graph     Render the snapshots in the terminal")
	r.Println("  lakeshift inspect   Report the anomalies hidden in the demo data")
	r.Println("  lakeshift build     Export a static site to dist/")

	return nil
}

// prepareProjectDir creates the target directory and refuses to clobber an
// existing configuration unless forced.
func prepareProjectDir(dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := dir + "/lakeshift.yaml"
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("lakeshift.yaml already exists. Use --force to overwrite")
	}
	return nil
}
