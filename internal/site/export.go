package site

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/leapstack-labs/lakeshift/internal/diag"
	"github.com/leapstack-labs/lakeshift/internal/pipeline"
)

// BuildOptions configures a static export.
type BuildOptions struct {
	// OutputDir receives the bundle.
	OutputDir string
	// Minify runs the JS and CSS assets through esbuild.
	Minify bool
	Logger *slog.Logger
}

// BuildResult reports what an export wrote.
type BuildResult struct {
	OutputDir string   `json:"output_dir"`
	Files     []string `json:"files"`
	Rows      int      `json:"rows"`
	Anomalies int      `json:"anomalies"`
}

// Build derives the snapshots once and writes a self-contained bundle:
// the page, the wire JSON under data/graphs.json, and the static assets.
// Opening index.html from disk shows the same map the server serves,
// minus the live wiring.
func Build(ctx context.Context, p *pipeline.Pipeline, events *diag.Buffer, opts BuildOptions) (*BuildResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	res, err := p.Run(ctx)
	if err != nil {
		return nil, err
	}

	out := &BuildResult{OutputDir: opts.OutputDir, Rows: res.Rows, Anomalies: res.Anomalies}
	write := func(rel string, content []byte) error {
		path := filepath.Join(opts.OutputDir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		out.Files = append(out.Files, rel)
		return nil
	}

	page, err := RenderPage(PageData{
		Result:  res,
		Events:  events.Events(),
		LastSeq: events.LastSeq(),
		Live:    false,
	})
	if err != nil {
		return nil, err
	}
	if err := write("index.html", page); err != nil {
		return nil, err
	}

	wire, err := json.MarshalIndent(res.Snapshots, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshots: %w", err)
	}
	if err := write(filepath.Join("data", "graphs.json"), append(wire, '\n')); err != nil {
		return nil, err
	}

	if err := copyAssets(write, opts.Minify); err != nil {
		return nil, err
	}

	logger.Debug("export complete", "dir", opts.OutputDir, "files", len(out.Files))
	return out, nil
}

// copyAssets walks the static tree into the bundle, optionally minified.
func copyAssets(write func(string, []byte) error, minify bool) error {
	assets := Assets()
	return fs.WalkDir(assets, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		content, err := fs.ReadFile(assets, path)
		if err != nil {
			return fmt.Errorf("failed to read asset %s: %w", path, err)
		}
		if minify {
			content, err = minifyAsset(path, content)
			if err != nil {
				return err
			}
		}
		return write(filepath.Join("static", filepath.FromSlash(path)), content)
	})
}

// minifyAsset runs JS and CSS through esbuild; other files pass through.
func minifyAsset(path string, content []byte) ([]byte, error) {
	var loader api.Loader
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js":
		loader = api.LoaderJS
	case ".css":
		loader = api.LoaderCSS
	default:
		return content, nil
	}

	result := api.Transform(string(content), api.TransformOptions{
		Loader:            loader,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		Target:            api.ES2020,
	})
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("failed to minify %s: %s", path, formatMessages(result.Errors))
	}
	return result.Code, nil
}

// formatMessages renders esbuild diagnostics into one error string.
func formatMessages(msgs []api.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Location != nil {
			parts = append(parts, fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text))
			continue
		}
		parts = append(parts, msg.Text)
	}
	return strings.Join(parts, "; ")
}
