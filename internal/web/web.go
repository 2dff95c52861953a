package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"icsfix/internal/config"
	"icsfix/internal/ics"
	appLog "icsfix/internal/log"
	"icsfix/internal/metrics"
	"icsfix/internal/model"
	"icsfix/internal/scheduler"
)

const maxRequestBytes = 8 << 20

// Server exposes the reshaping engine and the published feeds over HTTP.
type Server struct {
	cfg   *config.Config
	store *scheduler.Store
	mux   *http.ServeMux
	now   func() time.Time
}

// NewServer constructs a new Server. store may be nil when no feed jobs are
// served.
func NewServer(cfg *config.Config, store *scheduler.Store) *Server {
	if store == nil {
		store = scheduler.NewStore()
	}
	s := &Server{
		cfg:   cfg,
		store: store,
		mux:   http.NewServeMux(),
		now:   time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		h = s.basicAuthMiddleware(h)
	}
	return requestIDMiddleware(h)
}

// Run serves on cfg.Listen until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "basic_auth", s.basicAuthEnabled())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/generate", s.handleGenerate)
	s.mux.HandleFunc("/api/jobs", s.handleJobs)
	s.mux.HandleFunc("/calendars/", s.handleCalendar)
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password means disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="icsfix", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware echoes a client supplied X-Request-ID or assigns one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// generateRequest carries the fields of the generate form.
type generateRequest struct {
	Text        string `json:"text"`
	StartDate   string `json:"startDate"`
	IsWeekly    bool   `json:"isWeekly"`
	WeeklyCount int    `json:"weeklyCount"`
}

// handleGenerate reshapes the posted document.
//
// POST /api/generate[?download=1]
//   - JSON body: {"text", "startDate", "isWeekly", "weeklyCount"}
//   - default: JSON model.Result
//   - download=1: the .ics file itself as an attachment
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}

	var req generateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		metrics.ObserveFailure("api", metrics.OutcomeInvalid)
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	now := s.now()
	start, err := ics.AnchorOption(req.StartDate, now.In(s.cfg.Location()))
	if err != nil {
		metrics.ObserveFailure("api", metrics.OutcomeInvalid)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := ics.Process(req.Text, model.Options{
		StartDate:   start,
		Weekly:      req.IsWeekly,
		WeeklyCount: req.WeeklyCount,
		GeneratedAt: now,
	})
	if err != nil {
		switch {
		case errors.Is(err, ics.ErrEmptyInput):
			metrics.ObserveFailure("api", metrics.OutcomeEmpty)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, ics.ErrTooManyOccurrences):
			metrics.ObserveFailure("api", metrics.OutcomeInvalid)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		metrics.ObserveFailure("api", metrics.OutcomeFailed)
		appLog.Error("api generate failed", err)
		writeError(w, http.StatusInternalServerError, "failed to process calendar")
		return
	}
	metrics.ObserveResult("api", res)

	appLog.Info("api generate",
		"request_id", w.Header().Get("X-Request-ID"),
		"blocks", res.Blocks,
		"occurrences", res.Occurrences,
		"filename", res.Filename,
	)

	if r.URL.Query().Get("download") == "1" {
		writeCalendar(w, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// jobsResponse is the JSON response shape for /api/jobs.
type jobsResponse struct {
	Jobs    []scheduler.JobStatus `json:"jobs"`
	Refresh string                `json:"refresh"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}
	writeJSON(w, http.StatusOK, jobsResponse{
		Jobs:    s.store.Statuses(),
		Refresh: s.cfg.RefreshCron,
	})
}

// handleCalendar serves the latest reshaped feed: GET /calendars/<id>.ics
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/calendars/"), ".ics")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	res, ok := s.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no calendar published for %q", id))
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write([]byte(res.ICSContent))
	}
}

func writeCalendar(w http.ResponseWriter, res model.Result) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(res.ICSContent))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
