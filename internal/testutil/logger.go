// Package testutil provides shared helpers for package tests.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// NewTestLogger returns a logger that writes to t.Log().
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// WriteInventory writes a CSV inventory file under dir and returns its path.
func WriteInventory(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write inventory %s: %v", name, err)
	}
	return path
}

// Inventory is a small, well-formed feed inventory used across tests:
// two feeds, two warehouses, one connected cell each.
const Inventory = "Feed ID,Data Warehouse 1,Data Warehouse 2,Feed Full Title\n" +
	"F1,Y,,Feed One\n" +
	"F2,,Y,Feed Two\n"
