package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// NotFoundError reports that none of the candidate input files exist.
// Its message names every attempted location so the data owner can see
// where the inventory was expected.
type NotFoundError struct {
	Attempted []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no input table found (tried: %s)", strings.Join(e.Attempted, ", "))
}

// Source locates and parses the feed inventory CSV.
type Source struct {
	// Path is the primary input location.
	Path string
	// Fallbacks are tried in order when Path does not exist.
	Fallbacks []string
}

// Candidates returns the locations Load will try, in order.
func (s Source) Candidates() []string {
	out := make([]string, 0, 1+len(s.Fallbacks))
	if s.Path != "" {
		out = append(out, s.Path)
	}
	out = append(out, s.Fallbacks...)
	return out
}

// Resolve returns the first candidate path that exists on disk.
func (s Source) Resolve() (string, error) {
	candidates := s.Candidates()
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", &NotFoundError{Attempted: candidates}
}

// Load parses the first existing candidate into a Table, returning the
// path actually read so callers can name it in messages.
func (s Source) Load() (Table, string, error) {
	path, err := s.Resolve()
	if err != nil {
		return Table{}, "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return Table{}, "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	tab, err := Parse(f)
	if err != nil {
		return Table{}, "", fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return tab, path, nil
}

// Parse reads CSV data into a Table. The first record is the header; every
// following record becomes a Row keyed by header name. Short records are
// blank-filled and long records truncated to the header width, so rows are
// rectangular by the time the transform sees them. An empty input produces
// a table with no columns (rejected later by Schema).
func Parse(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // rows are normalized below, not by the reader

	header, err := cr.Read()
	if err == io.EOF {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	tab := Table{Columns: header}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("failed to read row %d: %w", len(tab.Rows)+1, err)
		}

		row := make(Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		tab.Rows = append(tab.Rows, row)
	}

	return tab, nil
}
