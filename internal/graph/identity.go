package graph

import (
	"fmt"
	"strings"
)

// Stable lookup keys for the fixed, non-tabular nodes. Feed rows are keyed
// feed_<row-index> and warehouse columns by their normalized name.
const (
	keyDataLake       = "dl"
	keyVirtualisation = "dv"
	keyLDWSales       = "ldw1"
	keyLDWMarketing   = "ldw2"
	keyLDWFinance     = "ldw3"
)

// feedKey is the IdentifierMap key for the feed row at index i.
func feedKey(i int) string {
	return fmt.Sprintf("feed_%d", i)
}

// Normalize makes a raw name safe for use as a lookup key and id suffix:
// spaces become underscores. It is also the display form for warehouse
// names, so a column "Data Warehouse 1" renders as Data_Warehouse_1.
func Normalize(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}

// identifiers mints the counter-prefixed node ids and remembers which
// logical keys exist. Raw names are not guaranteed unique or safe, so every
// node gets a fresh <counter>-<normalized-name> id while edge construction
// resolves "the node for warehouse X" through the map. State is local to
// one Derive call; two concurrent derivations never share a counter.
type identifiers struct {
	next int
	ids  map[string]string // logical key -> assigned node id
}

func newIdentifiers() *identifiers {
	return &identifiers{ids: make(map[string]string)}
}

// assign mints the next id for key using name as the id suffix.
// Assigning an existing key returns the id minted first.
func (m *identifiers) assign(key, name string) string {
	if id, ok := m.ids[key]; ok {
		return id
	}
	id := fmt.Sprintf("%d-%s", m.next, Normalize(name))
	m.next++
	m.ids[key] = id
	return id
}

// lookup resolves a logical key. Absence means the key was skipped at
// creation time and must not appear in any edge.
func (m *identifiers) lookup(key string) (string, bool) {
	id, ok := m.ids[key]
	return id, ok
}
