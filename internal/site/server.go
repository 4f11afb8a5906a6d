// Package site serves the derived architecture snapshots to a browser:
// the interactive vis-network page, the wire JSON behind it, and a live
// diagnostics stream. The same page can be exported as a static bundle.
//
// The server owns the diagnostics ring and re-runs the pipeline when the
// inventory changes on disk, pushing a reload to connected browsers.
// Per-browser warehouse selections live in a session cookie and are
// applied at derivation time, so two analysts can preview different
// virtualisation cuts against one shared inventory.
package site

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/lakeshift/internal/diag"
	"github.com/leapstack-labs/lakeshift/internal/feed"
	"github.com/leapstack-labs/lakeshift/internal/pipeline"
)

// Server is the visualization server.
type Server struct {
	pipeline     *pipeline.Pipeline
	events       *diag.Buffer
	source       feed.Source
	sessionStore *sessions.CookieStore
	port         int
	watch        bool
	logger       *slog.Logger
	reload       *reloadHub

	mu      sync.RWMutex
	current *pipeline.Result
	runErr  error
}

// Config holds configuration for the visualization server.
type Config struct {
	Pipeline      *pipeline.Pipeline
	Events        *diag.Buffer
	Source        feed.Source
	Port          int
	Watch         bool
	SessionSecret string
	Logger        *slog.Logger
}

// NewServer creates a new visualization server instance.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Server{
		pipeline:     cfg.Pipeline,
		events:       cfg.Events,
		source:       cfg.Source,
		sessionStore: sessionStore,
		port:         cfg.Port,
		watch:        cfg.Watch,
		logger:       logger,
		reload:       newReloadHub(),
	}
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting visualization server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	// Derive once up front so the first page hit has data.
	s.refresh(ctx)

	eg, egctx := errgroup.WithContext(ctx)

	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)
	s.routes(r)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start inventory watcher if enabled
	if s.watch {
		eg.Go(func() error {
			return s.watchInventory(egctx)
		})
	}

	// Start HTTP server
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down visualization server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// refresh runs the pipeline once and stores the outcome. A failed run
// keeps the server up; handlers surface the stored error until a later
// run succeeds.
func (s *Server) refresh(ctx context.Context) {
	res, err := s.pipeline.Run(ctx)

	s.mu.Lock()
	if err != nil {
		s.runErr = err
	} else {
		s.current = res
		s.runErr = nil
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("derivation failed", "error", err)
		return
	}
	s.logger.Info("derivation complete",
		"path", res.Path, "rows", res.Rows, "anomalies", res.Anomalies)
}

// latest returns the newest shared result, or the error from the most
// recent failed run.
func (s *Server) latest() (*pipeline.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.runErr != nil {
		return nil, s.runErr
	}
	if s.current == nil {
		return nil, fmt.Errorf("no derivation has completed yet")
	}
	return s.current, nil
}

// resultFor returns the snapshots for one request: the shared result, or
// a per-session derivation when the browser carries a warehouse override.
// Override runs discard diagnostics; the shared buffer holds exactly one
// run's worth of anomalies, and cell anomalies do not depend on the
// selection anyway.
func (s *Server) resultFor(r *http.Request) (*pipeline.Result, error) {
	if override := s.virtualiseOverride(r); override != nil {
		return s.pipeline.RunWith(r.Context(), pipeline.RunOptions{
			Virtualised: override,
			Sink:        diag.Discard,
		})
	}
	return s.latest()
}

// watchInventory watches the inventory candidates and re-derives on
// change. The containing directories are watched rather than the files
// themselves so atomic replaces (write temp, rename over) keep firing.
func (s *Server) watchInventory(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	targets := watchTargets(s.source.Candidates())
	for _, dir := range targets.dirs {
		if err := watcher.Add(dir); err != nil {
			s.logger.Error("failed to watch inventory directory", "dir", dir, "error", err)
			// Don't fail - continue without watching this directory
		}
	}

	// Debounce timer
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !targets.matches(event.Name) {
				continue
			}

			// Debounce
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				s.logger.Debug("inventory changed, re-deriving", "file", event.Name)
				s.refresh(ctx)
				s.reload.Broadcast()
			})

		case err := <-watcher.Errors:
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// watchSet is the resolved watch surface: the directories to register and
// the exact files whose events matter.
type watchSet struct {
	dirs  []string
	files map[string]struct{}
}

func watchTargets(candidates []string) watchSet {
	set := watchSet{files: make(map[string]struct{}, len(candidates))}
	seen := make(map[string]struct{})
	for _, p := range candidates {
		clean := filepath.Clean(p)
		set.files[clean] = struct{}{}
		dir := filepath.Dir(clean)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		set.dirs = append(set.dirs, dir)
	}
	return set
}

func (w watchSet) matches(name string) bool {
	_, ok := w.files[filepath.Clean(name)]
	return ok
}
