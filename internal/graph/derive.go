package graph

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/leapstack-labs/lakeshift/internal/diag"
	"github.com/leapstack-labs/lakeshift/internal/feed"
)

const (
	// DefaultPlaceholder replaces labels that would otherwise be blank.
	DefaultPlaceholder = "Unknown"

	// DefaultVirtualisedCount is how many warehouse columns (in table
	// order) are routed through the virtualisation layer when no explicit
	// selection is configured.
	DefaultVirtualisedCount = 4
)

// Display names for the fixed, non-tabular nodes.
const (
	labelDataLake       = "Data Lake"
	labelVirtualisation = "Data Virtualisation"
)

// ldwDomains are the consumption domains served by the logical warehouses,
// in fixed creation order.
var ldwDomains = [...]struct{ key, domain string }{
	{keyLDWSales, "Sales"},
	{keyLDWMarketing, "Marketing"},
	{keyLDWFinance, "Finance"},
}

// Options tune one derivation. The zero value derives with defaults and
// discards diagnostics.
type Options struct {
	// Virtualised lists the warehouse columns routed through the
	// virtualisation layer in the current state. Names may be given raw or
	// normalized. Empty selects the first DefaultVirtualisedCount
	// warehouse columns in table order.
	Virtualised []string

	// Placeholder substitutes blank labels. Empty means DefaultPlaceholder.
	Placeholder string

	// Positions adds advisory circle coordinates to warehouse nodes.
	// A rendering hint only; layout stays the renderer's decision.
	Positions bool

	// Sink receives anomaly diagnostics. Nil discards them.
	Sink diag.Sink
}

// Derive runs the transform: one parsed table in, all three snapshots out.
// Only a table violating the positional column contract fails; every
// cell-level anomaly is absorbed with a best-effort default and a
// diagnostic, so the caller gets either all three complete snapshots or a
// single explicit error, never a partial result. Output is deterministic:
// the same table and options yield byte-identical JSON.
func Derive(tab feed.Table, opts Options) (*Snapshots, error) {
	schema, err := tab.Schema()
	if err != nil {
		return nil, err
	}

	d := &deriver{
		tab:    tab,
		schema: schema,
		ids:    newIdentifiers(),
		opts:   opts,
		sink:   opts.Sink,
	}
	if d.sink == nil {
		d.sink = diag.Discard
	}
	if d.opts.Placeholder == "" {
		d.opts.Placeholder = DefaultPlaceholder
	}

	d.buildNodes()

	past := d.past()
	current := d.current(past)
	future := d.future()

	return &Snapshots{Past: past, Current: current, Future: future}, nil
}

// deriver holds the working state of a single Derive call.
type deriver struct {
	tab    feed.Table
	schema feed.Schema
	ids    *identifiers
	opts   Options
	sink   diag.Sink

	feeds      []Node // surviving feed rows, table order
	feedRows   []int  // table row index per feeds entry
	warehouses []Node // warehouse columns, table order
	lake       Node
	virt       Node
	ldws       []Node
}

// buildNodes mints every identifier in the fixed creation order (feed rows,
// warehouse columns, data lake, virtualisation, logical warehouses) and
// materializes the corresponding nodes.
func (d *deriver) buildNodes() {
	d.feeds = make([]Node, 0, len(d.tab.Rows))
	d.feedRows = make([]int, 0, len(d.tab.Rows))
	for i := range d.tab.Rows {
		name := strings.TrimSpace(d.tab.Cell(i, d.schema.FeedColumn))
		if name == "" {
			// Blank feed name: the row is excluded entirely. No id is
			// registered, so edge construction cannot reference it.
			continue
		}
		title := strings.TrimSpace(d.tab.Cell(i, d.schema.TitleColumn))
		if title == "" {
			title = name
		}
		d.feeds = append(d.feeds, Node{
			ID:    d.ids.assign(feedKey(i), name),
			Label: d.label(name),
			Level: LevelFeed,
			Group: GroupFeed,
			Title: "Feed: " + title,
			Color: GroupFeed.Palette(),
		})
		d.feedRows = append(d.feedRows, i)
	}

	count := len(d.schema.Warehouses)
	d.warehouses = make([]Node, 0, count)
	for i, col := range d.schema.Warehouses {
		name := Normalize(col)
		node := Node{
			ID:    d.ids.assign(name, col),
			Label: d.label(name),
			Level: LevelWarehouse,
			Group: GroupWarehouse,
			Title: "Legacy Warehouse: " + name,
			Color: GroupWarehouse.Palette(),
		}
		if d.opts.Positions {
			x, y := circlePosition(i, count)
			node.X, node.Y = &x, &y
		}
		d.warehouses = append(d.warehouses, node)
	}

	d.lake = Node{
		ID:    d.ids.assign(keyDataLake, labelDataLake),
		Label: labelDataLake,
		Level: LevelDataLake,
		Group: GroupDataLake,
		Title: "Central Data Lake",
		Color: GroupDataLake.Palette(),
	}
	d.virt = Node{
		ID:    d.ids.assign(keyVirtualisation, labelVirtualisation),
		Label: labelVirtualisation,
		Level: LevelVirtualisation,
		Group: GroupVirtualisation,
		Title: "Data Virtualisation Layer",
		Color: GroupVirtualisation.Palette(),
	}

	d.ldws = make([]Node, 0, len(ldwDomains))
	for _, l := range ldwDomains {
		d.ldws = append(d.ldws, Node{
			ID:    d.ids.assign(l.key, "LDW "+l.domain),
			Label: "LDW: " + l.domain,
			Level: LevelLogicalDW,
			Group: GroupLogicalDW,
			Title: "Logical DW for " + l.domain,
			Color: GroupLogicalDW.Palette(),
		})
	}
}

// label applies the blank-label fallback: output labels are never empty.
func (d *deriver) label(s string) string {
	if strings.TrimSpace(s) == "" {
		return d.opts.Placeholder
	}
	return s
}

// circlePosition places warehouse i of count on a circle whose radius grows
// with the warehouse count, rounded to whole coordinates. Callers must not
// pass a zero count; buildNodes emits no hint when there are no warehouses.
func circlePosition(i, count int) (x, y int) {
	radius := 50 * float64(count)
	theta := 2 * math.Pi * float64(i) / float64(count)
	x = int(math.Round(radius * math.Cos(theta)))
	y = int(math.Round(radius * math.Sin(theta)))
	return x, y
}

// connected interprets one raw connectivity cell. Y means connected; N, 0,
// and blank mean not connected. Anything else defaults to not connected and
// is reported through the sink so the data owner can fix the source table;
// a malformed cell never aborts the transform.
func (d *deriver) connected(rowIdx int, col, raw string) bool {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "Y":
		return true
	case "N", "0", "":
		return false
	default:
		d.sink.Emit(slog.LevelWarn, "unexpected connectivity value, treating as not connected", map[string]string{
			"row":    strconv.Itoa(rowIdx),
			"column": col,
			"value":  raw,
		})
		return false
	}
}

// VirtualisedSelection resolves which warehouse columns route through the
// virtualisation layer: the explicit selection when non-empty, otherwise
// the first DefaultVirtualisedCount columns in table order.
func VirtualisedSelection(schema feed.Schema, explicit []string) []string {
	if len(explicit) > 0 {
		return explicit
	}
	n := min(DefaultVirtualisedCount, len(schema.Warehouses))
	return schema.Warehouses[:n]
}

// virtualised resolves the warehouse selection for this derivation.
func (d *deriver) virtualised() []string {
	return VirtualisedSelection(d.schema, d.opts.Virtualised)
}

// past is the point-to-point state: every feed loading directly into the
// legacy warehouses it is marked as connected to.
func (d *deriver) past() Snapshot {
	nodes := make([]Node, 0, len(d.feeds)+len(d.warehouses))
	nodes = append(nodes, d.feeds...)
	nodes = append(nodes, d.warehouses...)

	// Row-major edge order: outer loop over surviving rows, inner loop
	// over warehouse columns in table order.
	edges := make([]Edge, 0)
	for fi, row := range d.feedRows {
		feedID := d.feeds[fi].ID
		for _, col := range d.schema.Warehouses {
			if !d.connected(row, col, d.tab.Cell(row, col)) {
				continue
			}
			whID, ok := d.ids.lookup(Normalize(col))
			if !ok {
				// A connected cell for a column that minted no id would
				// mean node and edge construction disagree; skip rather
				// than emit a dangling reference.
				continue
			}
			edges = append(edges, Edge{Source: feedID, Target: whID})
		}
	}

	return Snapshot{Nodes: nodes, Edges: edges}
}

// current is the transitional state: the legacy layer still in place, the
// virtualisation layer introduced, and a subset of warehouses already
// routed through it toward the logical warehouses.
func (d *deriver) current(past Snapshot) Snapshot {
	nodes := make([]Node, 0, len(past.Nodes)+1+len(d.ldws))
	nodes = append(nodes, past.Nodes...)
	nodes = append(nodes, d.virt)
	nodes = append(nodes, d.ldws...)

	edges := make([]Edge, 0, len(past.Edges)+DefaultVirtualisedCount+len(d.ldws))
	edges = append(edges, past.Edges...)

	for _, col := range d.virtualised() {
		whID, ok := d.ids.lookup(Normalize(col))
		if !ok {
			d.sink.Emit(slog.LevelWarn, "virtualised warehouse not present in table", map[string]string{
				"warehouse": col,
			})
			continue
		}
		edges = append(edges, Edge{Source: whID, Target: d.virt.ID})
	}
	for _, ldw := range d.ldws {
		edges = append(edges, Edge{Source: d.virt.ID, Target: ldw.ID})
	}

	return Snapshot{Nodes: nodes, Edges: edges}
}

// future is the target state: the legacy layer fully retired, every feed
// landing in the data lake and all consumption served through the
// virtualisation layer.
func (d *deriver) future() Snapshot {
	nodes := make([]Node, 0, len(d.feeds)+2+len(d.ldws))
	nodes = append(nodes, d.feeds...)
	nodes = append(nodes, d.lake, d.virt)
	nodes = append(nodes, d.ldws...)

	edges := make([]Edge, 0, len(d.feeds)+1+len(d.ldws))
	for _, f := range d.feeds {
		edges = append(edges, Edge{Source: f.ID, Target: d.lake.ID})
	}
	edges = append(edges, Edge{Source: d.lake.ID, Target: d.virt.ID})
	for _, ldw := range d.ldws {
		edges = append(edges, Edge{Source: d.virt.ID, Target: ldw.ID})
	}

	return Snapshot{Nodes: nodes, Edges: edges}
}
