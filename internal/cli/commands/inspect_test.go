package commands

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/lakeshift/internal/cli/testutil"
	"github.com/leapstack-labs/lakeshift/internal/diag"
)

func TestBuildInspectOutput(t *testing.T) {
	result, events := deriveResult(t, messyInventory)

	out := buildInspectOutput(result, events)

	assert.Equal(t, 3, out.Rows)
	assert.Equal(t, 2, out.Feeds)
	assert.Equal(t, 1, out.Skipped)
	assert.Equal(t, []string{"DW Alpha", "DW Beta"}, out.Warehouses)
	require.Len(t, out.Anomalies, 1)

	a := out.Anomalies[0]
	assert.Equal(t, "2", a.Row)
	assert.Equal(t, "DW Alpha", a.Column)
	assert.Equal(t, "Maybe", a.Value)
	assert.Contains(t, a.Message, "unexpected connectivity value")
}

func TestToAnomalyWarehouseFieldFillsColumn(t *testing.T) {
	a := toAnomaly(diag.Event{
		Level:   slog.LevelWarn,
		Message: "virtualised warehouse not present in table",
		Fields:  map[string]string{"warehouse": "DW Retired"},
	})

	assert.Equal(t, "DW Retired", a.Column)
	assert.Empty(t, a.Row)
	assert.Empty(t, a.Value)
}

func TestRenderInspectTextCleanInventory(t *testing.T) {
	result, events := deriveResult(t, "Feed,DW Alpha,Title\nOrders,Y,Order intake\n")
	tr := testutil.NewTestRendererText()

	renderInspectText(tr.Renderer, buildInspectOutput(result, events))

	out := tr.Output()
	testutil.AssertContains(t, out, "Inventory Health")
	testutil.AssertContains(t, out, "Rows: 1 | Feeds: 1 | Skipped: 0 | Warehouses: 1")
	testutil.AssertContains(t, out, "No anomalies found")
}

func TestRenderInspectMarkdownReportsAnomalies(t *testing.T) {
	result, events := deriveResult(t, messyInventory)
	tr := testutil.NewTestRendererMarkdown()

	renderInspectMarkdown(tr.Renderer, buildInspectOutput(result, events))

	out := tr.Output()
	testutil.AssertValidMarkdown(t, out)
	testutil.AssertNoANSI(t, out)
	testutil.AssertContains(t, out, "# Inventory Health")
	testutil.AssertContains(t, out, "## Anomalies (1)")
	testutil.AssertContains(t, out, "Maybe")
}

func TestInspectStrictFailsOnAnomalies(t *testing.T) {
	projectDir := testutil.SetupTestProject(t)
	testutil.WriteInventory(t, projectDir, messyInventory)

	oldWd, _ := os.Getwd()
	require.NoError(t, os.Chdir(projectDir))
	defer func() { _ = os.Chdir(oldWd) }()

	cmd := NewInspectCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--strict"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 connectivity anomalies found")
}

func TestInspectStrictPassesOnCleanInventory(t *testing.T) {
	projectDir := testutil.SetupTestProject(t)

	oldWd, _ := os.Getwd()
	require.NoError(t, os.Chdir(projectDir))
	defer func() { _ = os.Chdir(oldWd) }()

	cmd := NewInspectCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--strict"})

	require.NoError(t, cmd.Execute())
}
