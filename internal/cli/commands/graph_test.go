package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/lakeshift/internal/cli/testutil"
	"github.com/leapstack-labs/lakeshift/internal/diag"
	"github.com/leapstack-labs/lakeshift/internal/feed"
	"github.com/leapstack-labs/lakeshift/internal/pipeline"
)

// messyInventory mixes clean rows with the cases inspect reports on: a
// blank feed name and an unrecognised connectivity value.
const messyInventory = `Feed,DW Alpha,DW Beta,Title
Orders,Y,N,Order intake
,Y,Y,Orphaned extract
Billing,Maybe,y,Billing extracts
`

// deriveResult runs the pipeline over an inline inventory and returns the
// result plus the diagnostics it emitted.
func deriveResult(t *testing.T, csv string) (*pipeline.Result, *diag.Buffer) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "legacy_feeds.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	events := diag.NewBuffer(64)
	p := pipeline.New(pipeline.Config{
		Source: feed.Source{Path: path},
		Sink:   events,
	})
	result, err := p.Run(context.Background())
	require.NoError(t, err)
	return result, events
}

func TestFilterSnapshots(t *testing.T) {
	result, _ := deriveResult(t, messyInventory)
	named := result.Snapshots.Named()

	assert.Len(t, filterSnapshots(named, ""), 3)

	future := filterSnapshots(named, "future")
	require.Len(t, future, 1)
	assert.Equal(t, "future", future[0].Name)
}

func TestRenderGraphText(t *testing.T) {
	result, _ := deriveResult(t, messyInventory)
	tr := testutil.NewTestRendererText()

	require.NoError(t, renderGraphText(tr.Renderer, result, result.Snapshots.Named()))

	out := tr.Output()
	testutil.AssertContains(t, out, "Migration Snapshots")
	testutil.AssertContains(t, out, "Past")
	testutil.AssertContains(t, out, "Current")
	testutil.AssertContains(t, out, "Future")

	// The skipped blank row consumes no counter, so Billing is feed 1.
	testutil.AssertContains(t, out, "0-Orders")
	testutil.AssertContains(t, out, "1-Billing")
	testutil.AssertContains(t, out, "2-DW_Alpha")

	// Past holds the two feeds and both warehouses.
	testutil.AssertContains(t, out, "(4 nodes)")
	testutil.AssertContains(t, out, "1 connectivity anomalies in the inventory")
}

func TestRenderGraphMarkdown(t *testing.T) {
	result, _ := deriveResult(t, messyInventory)
	tr := testutil.NewTestRendererMarkdown()

	require.NoError(t, renderGraphMarkdown(tr.Renderer, result, result.Snapshots.Named()))

	out := tr.Output()
	testutil.AssertValidMarkdown(t, out)
	testutil.AssertNoANSI(t, out)
	testutil.AssertContains(t, out, "# Migration Snapshots")
	testutil.AssertContains(t, out, "## Past")
	testutil.AssertContains(t, out, "## Future")
	testutil.AssertContains(t, out, "| ID |")
	testutil.AssertContains(t, out, "- 0-Orders -> 2-DW_Alpha")
}

func TestRenderGraphMarkdown_SingleSnapshotIncludesWireFormat(t *testing.T) {
	result, _ := deriveResult(t, messyInventory)
	tr := testutil.NewTestRendererMarkdown()

	named := filterSnapshots(result.Snapshots.Named(), "future")
	require.NoError(t, renderGraphMarkdown(tr.Renderer, result, named))

	out := tr.Output()
	testutil.AssertContains(t, out, "### Wire Format")
	testutil.AssertContains(t, out, "```json")
	testutil.AssertContains(t, out, `"from"`)
	testutil.AssertNotContains(t, out, "## Past")
}
