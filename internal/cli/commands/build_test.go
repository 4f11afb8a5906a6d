package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/lakeshift/internal/cli/testutil"
)

func TestBuildCommandWritesBundle(t *testing.T) {
	projectDir := testutil.SetupTestProject(t)

	oldWd, _ := os.Getwd()
	require.NoError(t, os.Chdir(projectDir))
	defer func() { _ = os.Chdir(oldWd) }()

	dest := filepath.Join(t.TempDir(), "site")

	cmd := NewBuildCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--dest", dest})

	require.NoError(t, cmd.Execute())

	for _, f := range []string{"index.html", "data/graphs.json", "static/app.js", "static/style.css"} {
		_, err := os.Stat(filepath.Join(dest, f))
		assert.NoError(t, err, "expected %q in the bundle", f)
	}

	// A buffer is not a TTY, so the report renders as markdown.
	out := buf.String()
	testutil.AssertContains(t, out, "# Static Export")
	testutil.AssertContains(t, out, "- index.html")
}

func TestBuildCommandMissingInventory(t *testing.T) {
	tmpDir := t.TempDir()

	oldWd, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmpDir))
	defer func() { _ = os.Chdir(oldWd) }()

	cmd := NewBuildCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input table found")
}
