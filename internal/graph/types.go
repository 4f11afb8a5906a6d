// Package graph derives the three architecture snapshots (past, current,
// future) from the parsed feed inventory. The transform is a pure function
// of its input table plus fixed domain constants: no I/O, no shared state,
// re-entrant by construction.
package graph

// Group classifies a node and selects its display palette.
type Group string

// Node groups, one per architecture layer.
const (
	GroupFeed           Group = "feed"
	GroupWarehouse      Group = "warehouse"
	GroupDataLake       Group = "datalake"
	GroupVirtualisation Group = "virtualisation"
	GroupLogicalDW      Group = "logical_dw"
)

// Groups returns all node groups in layer order.
func Groups() []Group {
	return []Group{GroupFeed, GroupWarehouse, GroupDataLake, GroupVirtualisation, GroupLogicalDW}
}

// Layout levels for the hierarchical renderer. Warehouses and the data lake
// share a level; the lake replaces the legacy layer, it does not sit above it.
const (
	LevelFeed           = 0
	LevelWarehouse      = 1
	LevelDataLake       = 1
	LevelVirtualisation = 2
	LevelLogicalDW      = 3
)

// Color is a vis-network background/border pair.
type Color struct {
	Background string `json:"background"`
	Border     string `json:"border"`
}

// Palette returns the fixed color pair for the group.
func (g Group) Palette() *Color {
	switch g {
	case GroupFeed:
		return &Color{Background: "#e0f2fe", Border: "#38bdf8"} // sky
	case GroupWarehouse:
		return &Color{Background: "#ffedd5", Border: "#fb923c"} // orange
	case GroupDataLake:
		return &Color{Background: "#dcfce7", Border: "#4ade80"} // green
	case GroupVirtualisation:
		return &Color{Background: "#ede9fe", Border: "#a78bfa"} // violet
	case GroupLogicalDW:
		return &Color{Background: "#fee2e2", Border: "#f87171"} // red
	}
	return nil
}

// Node is one vertex in a snapshot, shaped for the vis-network client.
// Optional fields are omitted from the wire form when unset, never null.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Level int    `json:"level"`
	Group Group  `json:"group"`
	Title string `json:"title,omitempty"`
	Color *Color `json:"color,omitempty"`
	X     *int   `json:"x,omitempty"`
	Y     *int   `json:"y,omitempty"`
}

// Edge is a directed connection between two node ids. The wire keys keep
// the from/to aliases the client library expects; duplicates are permitted.
type Edge struct {
	Source string `json:"from"`
	Target string `json:"to"`
}

// Snapshot is one complete architecture state: an ordered node roster plus
// an ordered edge roster.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// HasNode reports whether id is present in the snapshot's node roster.
func (s Snapshot) HasNode(id string) bool {
	for _, n := range s.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

// Snapshots holds the three architecture states. Its wire form is a mapping
// with exactly the keys past, current, and future.
type Snapshots struct {
	Past    Snapshot `json:"past"`
	Current Snapshot `json:"current"`
	Future  Snapshot `json:"future"`
}

// Named returns the snapshots keyed by state name, for surfaces that
// iterate rather than address them by field.
func (s *Snapshots) Named() []NamedSnapshot {
	return []NamedSnapshot{
		{Name: "past", Snapshot: s.Past},
		{Name: "current", Snapshot: s.Current},
		{Name: "future", Snapshot: s.Future},
	}
}

// NamedSnapshot pairs a snapshot with its state name.
type NamedSnapshot struct {
	Name string
	Snapshot
}
