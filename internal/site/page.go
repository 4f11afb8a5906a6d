package site

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/leapstack-labs/lakeshift/internal/diag"
	"github.com/leapstack-labs/lakeshift/internal/graph"
	"github.com/leapstack-labs/lakeshift/internal/pipeline"
)

// PageData carries everything the page needs: the derivation result, the
// diagnostics to embed, and whether the page is served live or exported.
type PageData struct {
	Result  *pipeline.Result
	Events  []diag.Event
	LastSeq uint64
	// Live wires the reload and diagnostics streams; a static export
	// renders without them.
	Live bool
}

// warehouseOption is one row of the virtualisation picker.
type warehouseOption struct {
	Name    string
	Checked bool
}

// pageConfig is handed to the page script as JSON.
type pageConfig struct {
	Live      bool   `json:"live"`
	Source    string `json:"source"`
	Rows      int    `json:"rows"`
	Anomalies int    `json:"anomalies"`
}

type templateData struct {
	Title      string
	SourcePath string
	Warehouses []warehouseOption
	Live       bool
	LastSeq    uint64
	GraphsJSON template.JS
	EventsJSON template.JS
	ConfigJSON template.JS
}

var pageTmpl = template.Must(template.New("site").Parse(pageTemplate))

// RenderPage renders the visualization page with the snapshots and
// diagnostics embedded, so the exported form needs no server to be useful.
func RenderPage(data PageData) ([]byte, error) {
	graphsJSON, err := json.Marshal(data.Result.Snapshots)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshots: %w", err)
	}
	eventsJSON, err := json.Marshal(data.Events)
	if err != nil {
		return nil, fmt.Errorf("failed to encode events: %w", err)
	}
	configJSON, err := json.Marshal(pageConfig{
		Live:      data.Live,
		Source:    data.Result.Path,
		Rows:      data.Result.Rows,
		Anomalies: data.Result.Anomalies,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode page config: %w", err)
	}

	selected := make(map[string]struct{}, len(data.Result.Virtualised))
	for _, name := range data.Result.Virtualised {
		selected[graph.Normalize(name)] = struct{}{}
	}
	warehouses := make([]warehouseOption, 0, len(data.Result.Schema.Warehouses))
	for _, col := range data.Result.Schema.Warehouses {
		_, checked := selected[graph.Normalize(col)]
		warehouses = append(warehouses, warehouseOption{Name: col, Checked: checked})
	}

	td := templateData{
		Title:      "Lakeshift Migration Map",
		SourcePath: data.Result.Path,
		Warehouses: warehouses,
		Live:       data.Live,
		LastSeq:    data.LastSeq,
		//nolint:gosec // G203: JSON from encoding/json, which escapes <, > and &
		GraphsJSON: template.JS(graphsJSON),
		//nolint:gosec // G203: JSON from encoding/json, which escapes <, > and &
		EventsJSON: template.JS(eventsJSON),
		//nolint:gosec // G203: JSON from encoding/json, which escapes <, > and &
		ConfigJSON: template.JS(configJSON),
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, td); err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}
	return buf.Bytes(), nil
}

// pageTemplate is the single-page shell. Asset references are relative so
// the same markup works served from the root and opened from an exported
// directory; vis-network and the datastar client come from their CDNs.
const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8"/>
<meta name="viewport" content="width=device-width, initial-scale=1"/>
<title>{{.Title}}</title>
<link rel="stylesheet" href="static/style.css"/>
<script src="https://unpkg.com/vis-network@9.1.9/standalone/umd/vis-network.min.js"></script>
{{- if .Live}}
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0/bundles/datastar.js"></script>
{{- end}}
</head>
<body>
<header>
<div class="brand">
<h1>{{.Title}}</h1>
<span class="source">{{.SourcePath}}</span>
</div>
<nav id="state-toggle">
<button type="button" data-state="past">Past</button>
<button type="button" data-state="current" class="active">Current</button>
<button type="button" data-state="future">Future</button>
</nav>
</header>
<main>
<div id="network"></div>
<aside id="sidebar">
{{- if .Live}}
<section id="virtualise-panel">
<h2>Virtualised Warehouses</h2>
<p class="hint">Warehouses routed through the virtualisation layer in the current state. Applies to this browser only.</p>
<form id="virtualise-form">
{{- range .Warehouses}}
<label><input type="checkbox" name="warehouse" value="{{.Name}}"{{if .Checked}} checked{{end}}/> {{.Name}}</label>
{{- end}}
<div class="actions">
<button type="submit">Apply</button>
<button type="button" id="virtualise-reset">Reset</button>
</div>
</form>
</section>
{{- end}}
<section id="events-panel">
<h2>Diagnostics <span id="event-count"></span></h2>
<p id="no-events" class="hint">No anomalies recorded.</p>
<table id="events">
<thead>
<tr><th>Level</th><th>Row</th><th>Column</th><th>Value</th><th>Message</th></tr>
</thead>
<tbody></tbody>
</table>
</section>
</aside>
</main>
{{- if .Live}}
<div data-on-load="@get('/reload')" hidden></div>
<div data-on-load="@get('/api/events/stream?after={{.LastSeq}}')" hidden></div>
{{- end}}
<script>
window.LAKESHIFT = {
graphs: {{.GraphsJSON}},
events: {{.EventsJSON}},
config: {{.ConfigJSON}}
};
</script>
<script src="static/app.js"></script>
</body>
</html>
`
