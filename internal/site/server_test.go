package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/lakeshift/internal/diag"
	"github.com/leapstack-labs/lakeshift/internal/feed"
	"github.com/leapstack-labs/lakeshift/internal/pipeline"
)

const testInventory = `Feed,DW Alpha,DW Beta,DW Gamma,DW Delta,DW Epsilon,Title
Orders,Y,N,Y,N,N,Orders Extract
Billing,N,Y,N,N,Y,Billing Extract
Returns,y,N,Maybe,N,N,Returns Feed
`

// newTestServer derives snapshots from a throwaway inventory and returns
// a server ready to take requests.
func newTestServer(t *testing.T, inventory string) *Server {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "feeds.csv")
	require.NoError(t, os.WriteFile(path, []byte(inventory), 0o644))

	events := diag.NewBuffer(32)
	source := feed.Source{Path: path}
	p := pipeline.New(pipeline.Config{Source: source, Sink: events})

	s := NewServer(Config{
		Pipeline:      p,
		Events:        events,
		Source:        source,
		Port:          8000,
		SessionSecret: "test-secret",
	})
	s.refresh(context.Background())
	return s
}

// newBrokenServer points the pipeline at paths that do not exist.
func newBrokenServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	source := feed.Source{
		Path:      filepath.Join(dir, "feeds.csv"),
		Fallbacks: []string{filepath.Join(dir, "legacy.csv")},
	}
	events := diag.NewBuffer(32)
	p := pipeline.New(pipeline.Config{Source: source, Sink: events})

	s := NewServer(Config{
		Pipeline:      p,
		Events:        events,
		Source:        source,
		Port:          8000,
		SessionSecret: "test-secret",
	})
	s.refresh(context.Background())
	return s
}

// serve runs one request through the full route table.
func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	mux := chi.NewMux()
	s.routes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestRefresh_StoresResult(t *testing.T) {
	s := newTestServer(t, testInventory)

	res, err := s.latest()
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, 1, res.Anomalies) // the Maybe cell
	assert.Len(t, res.Schema.Warehouses, 5)
}

func TestRefresh_KeepsErrorUntilRecovery(t *testing.T) {
	s := newBrokenServer(t)

	_, err := s.latest()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input table found")
	assert.Contains(t, err.Error(), "feeds.csv")
	assert.Contains(t, err.Error(), "legacy.csv")

	// The inventory appearing on the expected path clears the error on
	// the next refresh, the same path the watcher takes.
	require.NoError(t, os.WriteFile(s.source.Path, []byte(testInventory), 0o644))
	s.refresh(context.Background())

	res, err := s.latest()
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
}

func TestWatchTargets(t *testing.T) {
	set := watchTargets([]string{
		filepath.Join("data", "feeds.csv"),
		filepath.Join("data", "legacy.csv"),
		filepath.Join("shared", "feeds.csv"),
	})

	assert.Equal(t, []string{"data", "shared"}, set.dirs)
	assert.True(t, set.matches(filepath.Join("data", "feeds.csv")))
	assert.True(t, set.matches(filepath.Join("shared", "feeds.csv")))
	assert.False(t, set.matches(filepath.Join("data", "unrelated.csv")))
	assert.False(t, set.matches("feeds.csv"))
}

func TestReloadHub_Broadcast(t *testing.T) {
	h := newReloadHub()

	a := h.Subscribe()
	b := h.Subscribe()
	h.Broadcast()

	select {
	case <-a:
	case <-time.After(time.Second):
		t.Fatal("listener a did not receive a ping")
	}
	select {
	case <-b:
	case <-time.After(time.Second):
		t.Fatal("listener b did not receive a ping")
	}

	h.Unsubscribe(a)
	h.Unsubscribe(b)

	// Unsubscribed channels are closed.
	_, ok := <-a
	assert.False(t, ok)
}

func TestReloadHub_SlowListenerDoesNotBlock(t *testing.T) {
	h := newReloadHub()

	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	// The buffered slot absorbs one ping; further broadcasts must not
	// block even though nobody is reading.
	done := make(chan struct{})
	go func() {
		h.Broadcast()
		h.Broadcast()
		h.Broadcast()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow listener")
	}
}
