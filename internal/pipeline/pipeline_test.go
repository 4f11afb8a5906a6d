package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/lakeshift/internal/diag"
	"github.com/leapstack-labs/lakeshift/internal/feed"
	"github.com/leapstack-labs/lakeshift/internal/testutil"
)

func TestPipeline_Run(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteInventory(t, dir, "feeds.csv", testutil.Inventory)

	p := New(Config{
		Source: feed.Source{Path: path},
		Logger: testutil.NewTestLogger(t),
	})

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, path, res.Path)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, 0, res.Anomalies)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []string{"Data Warehouse 1", "Data Warehouse 2"}, res.Schema.Warehouses)

	require.NotNil(t, res.Snapshots)
	assert.Len(t, res.Snapshots.Past.Nodes, 4)
	assert.Len(t, res.Snapshots.Past.Edges, 2)
	assert.Len(t, res.Snapshots.Current.Nodes, 8)
	assert.Len(t, res.Snapshots.Future.Nodes, 7)
}

func TestPipeline_Run_CountsAnomalies(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteInventory(t, dir, "feeds.csv",
		"Feed ID,DW,Feed Full Title\nF1,Maybe,One\nF2,Y,Two\n")

	ring := diag.NewBuffer(8)
	p := New(Config{
		Source: feed.Source{Path: path},
		Sink:   ring,
		Logger: testutil.NewTestLogger(t),
	})

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Anomalies)
	require.Equal(t, 1, ring.Len())
	assert.Equal(t, "Maybe", ring.Events()[0].Fields["value"])

	// The malformed cell never blocks the other rows.
	assert.Len(t, res.Snapshots.Past.Edges, 1)
}

func TestPipeline_Run_MissingInput(t *testing.T) {
	p := New(Config{
		Source: feed.Source{Path: "/nonexistent/a.csv", Fallbacks: []string{"/nonexistent/b.csv"}},
	})

	_, err := p.Run(context.Background())
	require.Error(t, err)

	var nf *feed.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Len(t, nf.Attempted, 2)
}

func TestPipeline_Run_InvalidSchema(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteInventory(t, dir, "feeds.csv", "OnlyColumn\nF1\n")

	p := New(Config{Source: feed.Source{Path: path}})

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, feed.ErrTooFewColumns)
	assert.Contains(t, err.Error(), path)
}

func TestPipeline_Run_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(Config{Source: feed.Source{Path: "irrelevant.csv"}})
	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_Run_Deterministic(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteInventory(t, dir, "feeds.csv", testutil.Inventory)

	p := New(Config{Source: feed.Source{Path: path}, Positions: true})

	first, err := p.Run(context.Background())
	require.NoError(t, err)
	second, err := p.Run(context.Background())
	require.NoError(t, err)

	// Run ids differ per invocation; the derived payload does not.
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Snapshots, second.Snapshots)
}
