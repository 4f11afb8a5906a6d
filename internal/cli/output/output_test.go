package output

import (
	"bytes"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func newBufRenderer(mode Mode, isTTY bool) (*Renderer, *bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return NewRendererWithTTY(out, errOut, isTTY, mode), out, errOut
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  Mode
		isTTY bool
		want  OutputMode
	}{
		{"auto tty", ModeAuto, true, ModeText},
		{"auto piped", ModeAuto, false, ModeMarkdown},
		{"explicit json", ModeJSON, true, ModeJSON},
		{"explicit text piped", ModeText, false, ModeText},
		{"explicit markdown tty", ModeMarkdown, true, ModeMarkdown},
		{"empty defaults to auto", "", false, ModeMarkdown},
		{"unknown falls back to auto", "yaml", true, ModeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newBufRenderer(tt.mode, tt.isTTY)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestRenderer_NoANSIWhenPiped(t *testing.T) {
	r, out, errOut := newBufRenderer(ModeMarkdown, false)

	r.Header(1, "Snapshots")
	r.Success("done")
	r.Warning("careful")
	r.Muted("quiet")
	r.Error("broken")
	r.StatusLine("lakeshift.yaml", "success", "created")

	combined := out.String() + errOut.String()
	assert.False(t, ansiPattern.MatchString(combined), "piped output must not contain ANSI codes: %q", combined)
}

func TestRenderer_HeaderModes(t *testing.T) {
	r, out, _ := newBufRenderer(ModeMarkdown, false)
	r.Header(2, "Edges")
	assert.Contains(t, out.String(), "## Edges")

	r2, out2, _ := newBufRenderer(ModeText, false)
	r2.Header(2, "Edges")
	assert.Contains(t, out2.String(), "Edges")
	assert.NotContains(t, out2.String(), "##")
}

func TestRenderer_StatusLine(t *testing.T) {
	r, out, _ := newBufRenderer(ModeText, false)

	r.StatusLine("data/legacy_feeds.csv", "success", "")
	r.StatusLine("lakeshift.yaml", "skipped", "already exists")
	r.StatusLine("assets", "failed", "")

	s := out.String()
	assert.Contains(t, s, "✓ data/legacy_feeds.csv")
	assert.Contains(t, s, "- lakeshift.yaml (already exists)")
	assert.Contains(t, s, "✗ assets")
}

func TestRenderer_ErrorGoesToErrWriter(t *testing.T) {
	r, out, errOut := newBufRenderer(ModeText, false)

	r.Error("no input table found")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "no input table found")
}

func TestRenderer_JSON(t *testing.T) {
	r, out, _ := newBufRenderer(ModeJSON, false)

	require.NoError(t, r.JSON(map[string]int{"rows": 3}))

	var got map[string]int
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 3, got["rows"])
	// Indented output
	assert.Contains(t, out.String(), "\n  \"rows\": 3\n")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(1, "Title"))
	assert.Equal(t, "### Deep", FormatHeader(3, "Deep"))
	assert.Equal(t, "# Clamped", FormatHeader(0, "Clamped"))
	assert.Equal(t, "- **Rows**: 12", FormatKeyValue("Rows", "12"))
	assert.Equal(t, "```json\n{}\n```", FormatCodeBlock("json", "{}\n"))
}
