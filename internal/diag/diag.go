// Package diag carries anomaly diagnostics from the graph transform to the
// surfaces that display them (CLI tables, the live panel in the browser).
//
// The transform never writes to a logger or a process-wide buffer directly;
// it is handed a Sink and stays re-entrant. The serving layer owns a bounded
// ring Buffer and streams its contents to connected clients.
package diag

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// Event is one recorded diagnostic.
type Event struct {
	Seq     uint64            `json:"seq"`
	Time    time.Time         `json:"time"`
	Level   slog.Level        `json:"level"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Sink receives diagnostics as they are produced.
// Implementations must be safe for concurrent use.
type Sink interface {
	Emit(level slog.Level, msg string, fields map[string]string)
}

// Discard is a Sink that drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(slog.Level, string, map[string]string) {}

// Tee forwards each event to a Sink and mirrors it to a structured logger.
// Either side may be nil.
type Tee struct {
	Sink   Sink
	Logger *slog.Logger
}

// Emit implements Sink.
func (t Tee) Emit(level slog.Level, msg string, fields map[string]string) {
	if t.Sink != nil {
		t.Sink.Emit(level, msg, fields)
	}
	if t.Logger != nil {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		args := make([]any, 0, len(keys)*2)
		for _, k := range keys {
			args = append(args, k, fields[k])
		}
		t.Logger.Log(context.Background(), level, msg, args...)
	}
}
