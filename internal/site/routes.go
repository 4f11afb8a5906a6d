package site

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/lakeshift/internal/diag"
	"github.com/leapstack-labs/lakeshift/internal/graph"
)

const (
	sessionName          = "lakeshift_session"
	sessionVirtualiseKey = "virtualise"
)

// routes mounts every handler on the mux.
func (s *Server) routes(r chi.Router) {
	r.Get("/", s.handleIndex)
	r.Get("/api/graphs", s.handleGraphs)
	r.Get("/api/events", s.handleEvents)
	r.Get("/api/events/stream", s.handleEventsStream)
	r.Get("/reload", s.handleReload)
	r.Post("/api/virtualise", s.handleVirtualise)
	r.Handle("/static/*", Handler())
}

// handleIndex renders the visualization page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	res, err := s.resultFor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	page, err := RenderPage(PageData{
		Result:  res,
		Events:  s.events.Events(),
		LastSeq: s.events.LastSeq(),
		Live:    true,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	_, _ = w.Write(page)
}

// handleGraphs serves the three snapshots in their wire form.
func (s *Server) handleGraphs(w http.ResponseWriter, r *http.Request) {
	res, err := s.resultFor(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(res.Snapshots); err != nil {
		s.logger.Error("failed to encode snapshots", "error", err)
	}
}

// EventsResponse is the wire form of the diagnostics buffer.
type EventsResponse struct {
	Events  []diag.Event `json:"events"`
	LastSeq uint64       `json:"last_seq"`
}

// handleEvents serves the retained diagnostics, oldest first.
func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	resp := EventsResponse{
		Events:  s.events.Events(),
		LastSeq: s.events.LastSeq(),
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode events", "error", err)
	}
}

// handleEventsStream pushes diagnostics to the page's panel as they are
// emitted. The optional after parameter skips events the page already has
// embedded; everything newer is replayed on connect.
func (s *Server) handleEventsStream(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	after := uint64(0)
	if raw := r.URL.Query().Get("after"); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 64); err == nil {
			after = v
		}
	}

	updates := s.events.Subscribe()
	defer s.events.Unsubscribe(updates)

	push := func() {
		fresh := s.events.EventsSince(after)
		if len(fresh) == 0 {
			return
		}
		after = fresh[len(fresh)-1].Seq

		payload, err := json.Marshal(fresh)
		if err != nil {
			_ = sse.ConsoleError(err)
			return
		}
		if err := sse.ExecuteScript(fmt.Sprintf("window.lakeshift.appendEvents(%s)", payload)); err != nil {
			_ = sse.ConsoleError(err)
		}
	}

	// Replay anything emitted since the page was rendered, then follow.
	push()

	for {
		select {
		case <-r.Context().Done():
			return
		case _, ok := <-updates:
			if !ok {
				return
			}
			push()
		}
	}
}

// handleReload holds the connection open until the snapshots are
// re-derived, then tells the page to reload itself. The browser
// reconnects after the reload, so one ping per connection is enough.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	ping := s.reload.Subscribe()
	defer s.reload.Unsubscribe(ping)

	select {
	case <-ping:
		_ = sse.ExecuteScript("window.location.reload()")
	case <-r.Context().Done():
	}
}

// virtualiseRequest is the body of POST /api/virtualise.
type virtualiseRequest struct {
	Warehouses []string `json:"warehouses"`
}

// handleVirtualise stores a per-browser warehouse selection in the
// session cookie. An empty list clears the override. Names are validated
// against the current inventory so a stale picker cannot store columns
// that no longer exist.
func (s *Server) handleVirtualise(w http.ResponseWriter, r *http.Request) {
	var req virtualiseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	names := make([]string, 0, len(req.Warehouses))
	for _, n := range req.Warehouses {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}

	if len(names) > 0 {
		res, err := s.latest()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if unknown := unknownWarehouses(names, res.Schema.Warehouses); len(unknown) > 0 {
			http.Error(w, fmt.Sprintf("unknown warehouses: %s", strings.Join(unknown, ", ")), http.StatusBadRequest)
			return
		}
	}

	sess, _ := s.sessionStore.Get(r, sessionName)
	if len(names) == 0 {
		delete(sess.Values, sessionVirtualiseKey)
	} else {
		sess.Values[sessionVirtualiseKey] = strings.Join(names, ",")
	}
	if err := sess.Save(r, w); err != nil {
		http.Error(w, "failed to save session: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// virtualiseOverride returns the warehouse selection stored in the
// request's session, or nil when the browser has none. The value is kept
// as a comma-joined string; session cookies round-trip strings without
// extra codec registration.
func (s *Server) virtualiseOverride(r *http.Request) []string {
	sess, err := s.sessionStore.Get(r, sessionName)
	if err != nil {
		// Undecodable cookie (e.g. rotated secret): treat as no override.
		return nil
	}
	raw, ok := sess.Values[sessionVirtualiseKey].(string)
	if !ok || raw == "" {
		return nil
	}

	var names []string
	for _, n := range strings.Split(raw, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// unknownWarehouses returns the names with no matching inventory column.
// Matching is by normalized form, the same resolution edge construction
// uses.
func unknownWarehouses(names, columns []string) []string {
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[graph.Normalize(c)] = struct{}{}
	}

	var unknown []string
	for _, n := range names {
		if _, ok := known[graph.Normalize(n)]; !ok {
			unknown = append(unknown, n)
		}
	}
	return unknown
}
