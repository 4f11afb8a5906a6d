package feed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	input := "Feed ID,Data Warehouse 1,Data Warehouse 2,Feed Full Title\n" +
		"F1,Y,,Feed One\n" +
		"F2,N,Y,Feed Two\n"

	tab, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"Feed ID", "Data Warehouse 1", "Data Warehouse 2", "Feed Full Title"}, tab.Columns)
	require.Len(t, tab.Rows, 2)
	assert.Equal(t, "F1", tab.Rows[0]["Feed ID"])
	assert.Equal(t, "", tab.Rows[0]["Data Warehouse 2"])
	assert.Equal(t, "Y", tab.Rows[1]["Data Warehouse 2"])
	assert.Equal(t, "Feed Two", tab.Rows[1]["Feed Full Title"])
}

func TestParse_RaggedRows(t *testing.T) {
	input := "Feed ID,DW,Feed Full Title\n" +
		"F1\n" + // short: blank-filled
		"F2,Y,Feed Two,extra\n" // long: truncated

	tab, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, tab.Rows, 2)

	assert.Equal(t, "F1", tab.Rows[0]["Feed ID"])
	assert.Equal(t, "", tab.Rows[0]["DW"])
	assert.Equal(t, "", tab.Rows[0]["Feed Full Title"])

	assert.Equal(t, "Y", tab.Rows[1]["DW"])
	assert.Len(t, tab.Rows[1], 3)
}

func TestParse_StripsBOM(t *testing.T) {
	tab, err := Parse(strings.NewReader("\uFEFFFeed ID,Feed Full Title\nF1,One\n"))
	require.NoError(t, err)
	assert.Equal(t, "Feed ID", tab.Columns[0])
}

func TestParse_Empty(t *testing.T) {
	tab, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, tab.Columns)
	assert.Empty(t, tab.Rows)

	_, err = tab.Schema()
	assert.ErrorIs(t, err, ErrTooFewColumns)
}

func TestParse_HeaderOnly(t *testing.T) {
	tab, err := Parse(strings.NewReader("Feed ID,Feed Full Title\n"))
	require.NoError(t, err)
	assert.Len(t, tab.Columns, 2)
	assert.Empty(t, tab.Rows)
}

func TestSource_Resolve_FallbackOrder(t *testing.T) {
	dir := t.TempDir()
	fallback := filepath.Join(dir, "fallback.csv")
	require.NoError(t, os.WriteFile(fallback, []byte("Feed ID,Feed Full Title\n"), 0o644))

	s := Source{
		Path:      filepath.Join(dir, "missing.csv"),
		Fallbacks: []string{fallback},
	}

	path, err := s.Resolve()
	require.NoError(t, err)
	assert.Equal(t, fallback, path)
}

func TestSource_Resolve_PrimaryWins(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "primary.csv")
	fallback := filepath.Join(dir, "fallback.csv")
	for _, p := range []string{primary, fallback} {
		require.NoError(t, os.WriteFile(p, []byte("Feed ID,Feed Full Title\n"), 0o644))
	}

	path, err := Source{Path: primary, Fallbacks: []string{fallback}}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, primary, path)
}

func TestSource_Load_NotFound(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")

	_, _, err := Source{Path: a, Fallbacks: []string{b}}.Load()
	require.Error(t, err)

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, []string{a, b}, nf.Attempted)

	// The message names every attempted location.
	assert.Contains(t, err.Error(), a)
	assert.Contains(t, err.Error(), b)
}

func TestSource_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feeds.csv")
	require.NoError(t, os.WriteFile(path, []byte("Feed ID,DW,Feed Full Title\nF1,Y,Feed One\n"), 0o644))

	tab, readPath, err := Source{Path: path}.Load()
	require.NoError(t, err)
	assert.Equal(t, path, readPath)
	require.Len(t, tab.Rows, 1)
	assert.Equal(t, "Y", tab.Rows[0]["DW"])
}
