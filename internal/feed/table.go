// Package feed parses the legacy feed inventory into the tabular shape the
// graph transform consumes. The contract is positional: the first column
// names the feed, the last carries its full title, and every column between
// the two is a legacy warehouse.
package feed

import (
	"errors"
	"fmt"
)

// ErrTooFewColumns reports a table that cannot satisfy the positional
// contract (at minimum a feed column and a title column are required).
var ErrTooFewColumns = errors.New("table needs at least a feed column and a title column")

// Row is one record keyed by column name. Cells are raw strings; missing
// cells are blank-filled by the loader so the transform never sees a
// ragged row.
type Row map[string]string

// Table is the ordered-column view of the parsed input.
type Table struct {
	Columns []string
	Rows    []Row
}

// Schema is the positional contract derived from a table's column order.
type Schema struct {
	// FeedColumn names the feed identifier column (first).
	FeedColumn string
	// TitleColumn names the feed full-title column (last).
	TitleColumn string
	// Warehouses lists the legacy warehouse columns (everything between),
	// in table order. May be empty.
	Warehouses []string
}

// Schema validates the column order against the positional contract.
// Tables with fewer than two columns cannot name both a feed and a title
// and are rejected rather than silently misread.
func (t Table) Schema() (Schema, error) {
	if len(t.Columns) < 2 {
		return Schema{}, fmt.Errorf("%w: got %d", ErrTooFewColumns, len(t.Columns))
	}

	last := len(t.Columns) - 1
	return Schema{
		FeedColumn:  t.Columns[0],
		TitleColumn: t.Columns[last],
		Warehouses:  t.Columns[1:last],
	}, nil
}

// Cell returns the raw value of column col in row i, or the empty string
// when the row does not carry it.
func (t Table) Cell(i int, col string) string {
	if i < 0 || i >= len(t.Rows) {
		return ""
	}
	return t.Rows[i][col]
}
