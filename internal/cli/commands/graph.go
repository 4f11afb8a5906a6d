package commands

import (
	"encoding/json"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/lakeshift/internal/cli/output"
	"github.com/leapstack-labs/lakeshift/internal/graph"
	"github.com/leapstack-labs/lakeshift/internal/pipeline"
	"github.com/spf13/cobra"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph [past|current|future]",
		Short: "Render migration snapshots from the feed inventory",
		Long: `Read the feed inventory and derive the three architecture snapshots:
the legacy estate (past), the estate mid-migration (current), and the
data lake target (future).

Output adapts to environment:
  - Terminal: styled tables
  - Piped/Scripted: markdown format
  - JSON: the exact wire format served to the browser UI`,
		Example: `  # All three snapshots
  lakeshift graph

  # Only the target architecture
  lakeshift graph future

  # Machine-readable wire format
  lakeshift graph --output json`,
		ValidArgs: []string{"past", "current", "future"},
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ""
			if len(args) > 0 {
				filter = args[0]
			}
			return runGraph(cmd, filter)
		},
	}
	return cmd
}

func runGraph(cmd *cobra.Command, filter string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	if err := cmdCtx.Cfg.ValidateData(); err != nil {
		return err
	}

	result, err := cmdCtx.Pipeline.Run(cmd.Context())
	if err != nil {
		return err
	}

	named := filterSnapshots(result.Snapshots.Named(), filter)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if filter != "" && len(named) == 1 {
			return r.JSON(named[0].Snapshot)
		}
		return r.JSON(result.Snapshots)
	case output.ModeMarkdown:
		return renderGraphMarkdown(r, result, named)
	default:
		return renderGraphText(r, result, named)
	}
}

// filterSnapshots narrows the rendered set to a single named state.
func filterSnapshots(named []graph.NamedSnapshot, filter string) []graph.NamedSnapshot {
	if filter == "" {
		return named
	}
	for _, ns := range named {
		if ns.Name == filter {
			return []graph.NamedSnapshot{ns}
		}
	}
	return named
}

func renderGraphText(r *output.Renderer, result *pipeline.Result, named []graph.NamedSnapshot) error {
	styles := r.Styles()
	titleCaser := cases.Title(language.English)

	r.Println("")
	r.Println(styles.Header1.Render("Migration Snapshots"))
	r.Muted(fmt.Sprintf("Inventory: %s (%d rows, %d warehouses)", result.Path, result.Rows, len(result.Schema.Warehouses)))
	r.Println("")

	for _, ns := range named {
		r.Println(styles.Header2.Render(titleCaser.String(ns.Name)))
		renderNodeTable(r, ns.Snapshot, false)
		renderEdgeList(r, ns.Snapshot)
		r.Println("")
	}

	if result.Anomalies > 0 {
		r.Warning(fmt.Sprintf("%d connectivity anomalies in the inventory (run 'lakeshift inspect' for details)", result.Anomalies))
	}

	return nil
}

func renderGraphMarkdown(r *output.Renderer, result *pipeline.Result, named []graph.NamedSnapshot) error {
	r.Println(output.FormatHeader(1, "Migration Snapshots"))
	r.Println("")
	r.Println(output.FormatKeyValue("Inventory", result.Path))
	r.Println(output.FormatKeyValue("Rows", fmt.Sprintf("%d", result.Rows)))
	r.Println(output.FormatKeyValue("Warehouses", fmt.Sprintf("%d", len(result.Schema.Warehouses))))
	r.Println(output.FormatKeyValue("Anomalies", fmt.Sprintf("%d", result.Anomalies)))
	r.Println("")

	titleCaser := cases.Title(language.English)
	for _, ns := range named {
		r.Println(output.FormatHeader(2, titleCaser.String(ns.Name)))
		r.Println("")
		renderNodeTable(r, ns.Snapshot, true)
		r.Println("")

		if len(ns.Snapshot.Edges) > 0 {
			r.Println(output.FormatHeader(3, "Edges"))
			r.Println("")
			for _, e := range ns.Snapshot.Edges {
				r.Printf("- %s -> %s\n", e.Source, e.Target)
			}
			r.Println("")
		}
	}

	// A single selected snapshot also gets its wire form, ready to paste
	// into a vis-network dataset.
	if len(named) == 1 {
		data, err := json.MarshalIndent(named[0].Snapshot, "", "  ")
		if err != nil {
			return err
		}
		r.Println(output.FormatHeader(3, "Wire Format"))
		r.Println("")
		r.Println(output.FormatCodeBlock("json", string(data)))
	}

	return nil
}

func renderNodeTable(r *output.Renderer, snap graph.Snapshot, markdown bool) {
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Label", "Group", "Level"})
	for _, n := range snap.Nodes {
		t.AppendRow(table.Row{n.ID, n.Label, n.Group, n.Level})
	}
	if markdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
	r.Printf("(%d nodes)\n", len(snap.Nodes))
}

func renderEdgeList(r *output.Renderer, snap graph.Snapshot) {
	if len(snap.Edges) == 0 {
		r.Muted("(no edges)")
		return
	}
	for _, e := range snap.Edges {
		r.Printf("  %s -> %s\n", e.Source, e.Target)
	}
}
