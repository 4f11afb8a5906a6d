package commands

import (
	"fmt"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/lakeshift/internal/cli/output"
	"github.com/leapstack-labs/lakeshift/internal/diag"
	"github.com/leapstack-labs/lakeshift/internal/graph"
	"github.com/leapstack-labs/lakeshift/internal/pipeline"
	"github.com/spf13/cobra"
)

// InspectOptions holds options for the inspect command.
type InspectOptions struct {
	Strict bool
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	opts := &InspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Check the feed inventory for anomalies",
		Long: `Parse the feed inventory, derive the snapshots, and report every
connectivity cell that could not be interpreted.

Unrecognised connectivity values never abort a run; they are treated as
not connected and recorded here so the data owner can fix the source
table. Use --strict to fail the command when any anomaly is present,
for example in CI.`,
		Example: `  # Report inventory health
  lakeshift inspect

  # Fail when the inventory has anomalies
  lakeshift inspect --strict

  # Machine-readable report
  lakeshift inspect --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Exit non-zero when anomalies are found")

	return cmd
}

// InspectOutput is the JSON output for the inspect command.
type InspectOutput struct {
	Inventory  string    `json:"inventory"`
	Warehouses []string  `json:"warehouses"`
	Rows       int       `json:"rows"`
	Feeds      int       `json:"feeds"`
	Skipped    int       `json:"skipped"`
	Anomalies  []Anomaly `json:"anomalies"`
}

// Anomaly is one diagnostic raised while interpreting the inventory.
type Anomaly struct {
	Row     string `json:"row,omitempty"`
	Column  string `json:"column,omitempty"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func runInspect(cmd *cobra.Command, opts *InspectOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	if err := cmdCtx.Cfg.ValidateData(); err != nil {
		return err
	}

	result, err := cmdCtx.Pipeline.Run(cmd.Context())
	if err != nil {
		return err
	}

	inspectOutput := buildInspectOutput(result, cmdCtx.Events)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(inspectOutput); err != nil {
			return err
		}
	case output.ModeMarkdown:
		renderInspectMarkdown(r, inspectOutput)
	default:
		renderInspectText(r, inspectOutput)
	}

	if opts.Strict && len(inspectOutput.Anomalies) > 0 {
		return fmt.Errorf("%d connectivity anomalies found", len(inspectOutput.Anomalies))
	}
	return nil
}

func buildInspectOutput(result *pipeline.Result, events *diag.Buffer) *InspectOutput {
	feeds := 0
	for _, n := range result.Snapshots.Past.Nodes {
		if n.Group == graph.GroupFeed {
			feeds++
		}
	}

	anomalies := make([]Anomaly, 0)
	for _, e := range events.Events() {
		if e.Level < slog.LevelWarn {
			continue
		}
		anomalies = append(anomalies, toAnomaly(e))
	}

	return &InspectOutput{
		Inventory:  result.Path,
		Warehouses: result.Schema.Warehouses,
		Rows:       result.Rows,
		Feeds:      feeds,
		Skipped:    result.Rows - feeds,
		Anomalies:  anomalies,
	}
}

// toAnomaly flattens a diagnostic event into the report row shape. Events
// about missing virtualised warehouses carry a warehouse field instead of a
// cell position.
func toAnomaly(e diag.Event) Anomaly {
	a := Anomaly{
		Message: e.Message,
		Row:     e.Fields["row"],
		Column:  e.Fields["column"],
		Value:   e.Fields["value"],
	}
	if a.Column == "" {
		a.Column = e.Fields["warehouse"]
	}
	return a
}

func renderInspectText(r *output.Renderer, out *InspectOutput) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("Inventory Health"))
	r.Muted(out.Inventory)
	r.Println("")
	r.Printf("   Rows: %d | Feeds: %d | Skipped: %d | Warehouses: %d\n",
		out.Rows, out.Feeds, out.Skipped, len(out.Warehouses))
	r.Println("")

	if len(out.Anomalies) == 0 {
		r.Success("No anomalies found")
		return
	}

	r.Println(styles.Header2.Render(fmt.Sprintf("Anomalies (%d)", len(out.Anomalies))))
	renderAnomalyTable(r, out.Anomalies, false)
}

func renderInspectMarkdown(r *output.Renderer, out *InspectOutput) {
	r.Println(output.FormatHeader(1, "Inventory Health"))
	r.Println("")
	r.Println(output.FormatKeyValue("Inventory", out.Inventory))
	r.Println(output.FormatKeyValue("Rows", fmt.Sprintf("%d", out.Rows)))
	r.Println(output.FormatKeyValue("Feeds", fmt.Sprintf("%d", out.Feeds)))
	r.Println(output.FormatKeyValue("Skipped", fmt.Sprintf("%d", out.Skipped)))
	r.Println(output.FormatKeyValue("Warehouses", fmt.Sprintf("%d", len(out.Warehouses))))
	r.Println("")

	if len(out.Anomalies) == 0 {
		r.Println("No anomalies found.")
		return
	}

	r.Println(output.FormatHeader(2, fmt.Sprintf("Anomalies (%d)", len(out.Anomalies))))
	r.Println("")
	renderAnomalyTable(r, out.Anomalies, true)
}

func renderAnomalyTable(r *output.Renderer, anomalies []Anomaly, markdown bool) {
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Row", "Column", "Value", "Message"})
	for _, a := range anomalies {
		t.AppendRow(table.Row{a.Row, a.Column, a.Value, a.Message})
	}
	if markdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}
