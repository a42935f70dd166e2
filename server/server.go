// Package server exposes isolated sandbox sessions over an HTTP JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/brettbedarf/sandboxfs"
	"github.com/brettbedarf/sandboxfs/config"
	"github.com/brettbedarf/sandboxfs/filesystem"
	"github.com/brettbedarf/sandboxfs/internal/util"
	"github.com/brettbedarf/sandboxfs/interpreter"
	"github.com/brettbedarf/sandboxfs/session"
)

// maxCommandBytes bounds a single submitted request body
const maxCommandBytes = 64 * 1024

// Server is the gateway: one session manager behind a set of JSON routes.
type Server struct {
	cfg      *config.Config
	sessions *session.Manager
	metrics  *Metrics
	handler  http.Handler
	logger   util.Logger
}

type options struct {
	seed *filesystem.SnapshotNode
}

type Option func(*options)

// WithSeed starts every session from seed instead of the builtin tree
func WithSeed(seed *filesystem.SnapshotNode) Option {
	return func(o *options) { o.seed = seed }
}

// New creates a Server given your config.
func New(cfg *config.Config, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	s := &Server{
		cfg:    cfg,
		logger: util.GetLogger("Server"),
	}
	managerOpts := []session.ManagerOption{session.OnCreate(s.onSessionCreated)}
	if o.seed != nil {
		managerOpts = append(managerOpts, session.WithSeed(o.seed))
	}
	s.sessions = session.NewManager(cfg, managerOpts...)
	s.metrics = NewMetrics(interpreter.DefaultRegistry().Names(), s.sessions.Len)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /sessions/{id}/commands", s.handleSubmit)
	mux.HandleFunc("POST /sessions/{id}/recall", s.handleRecall)
	mux.HandleFunc("GET /sessions/{id}/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /sessions/{id}/transcript", s.handleTranscript)
	if cfg.MetricsPath != "" {
		mux.Handle("GET "+cfg.MetricsPath, s.metrics.Handler())
	}
	s.handler = s.instrument(mux)
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Sessions exposes the underlying manager
func (s *Server) Sessions() *session.Manager {
	return s.sessions
}

// Serve listens on the configured address until ctx is done, then shuts
// down gracefully. Idle sessions are swept in the background meanwhile.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          util.NewLogLogger("HTTPServer", util.ErrorLevel),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.sessions.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("Gateway listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		s.logger.Info().Msg("Shutting down gateway")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) onSessionCreated(sess *session.Session) {
	sess.Subscribe(s.metrics)
	s.metrics.sessionCreated()
}

type sessionView struct {
	ID        string                   `json:"id"`
	Cwd       string                   `json:"cwd"`
	CreatedAt time.Time                `json:"created_at"`
	History   []sandboxfs.HistoryEntry `json:"history"`
}

type commandRequest struct {
	Command string `json:"command"`
}

type commandResponse struct {
	Entry    sandboxfs.HistoryEntry `json:"entry"`
	Recorded bool                   `json:"recorded"`
	Cwd      string                 `json:"cwd"`
}

type recallResponse struct {
	Command string `json:"command"`
	OK      bool   `json:"ok"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newSessionView(sess *session.Session) sessionView {
	history := sess.History()
	if history == nil {
		history = []sandboxfs.HistoryEntry{}
	}
	return sessionView{
		ID:        sess.ID(),
		Cwd:       sess.Cwd(),
		CreatedAt: sess.CreatedAt(),
		History:   history,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.Len()})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		if errors.Is(err, session.ErrTooManySessions) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Location", "/sessions/"+sess.ID())
	writeJSON(w, http.StatusCreated, newSessionView(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req commandRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	entry, recorded := sess.Submit(req.Command)
	writeJSON(w, http.StatusOK, commandResponse{Entry: entry, Recorded: recorded, Cwd: sess.Cwd()})
}

func (s *Server) handleRecall(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var resp recallResponse
	switch dir := r.URL.Query().Get("dir"); dir {
	case "prev", "":
		resp.Command, resp.OK = sess.RecallPrev()
	case "next":
		resp.Command, resp.OK = sess.RecallNext()
	default:
		writeError(w, http.StatusBadRequest, "dir must be prev or next")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	format := session.JSONFormat
	if q := r.URL.Query().Get("format"); q != "" {
		var err error
		if format, err = session.ParseFormat(q); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	contentType := "application/json"
	if format == session.YAMLFormat {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	if err := session.WriteTranscript(w, sess.Transcript(), format); err != nil {
		s.logger.Error().Err(err).Str("session", sess.ID()).Msg("Failed to write transcript")
	}
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
	}
	return sess, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := util.GetLogger("Server.writeJSON")
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusRecorder captures the response status for logging and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) instrument(next *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.metrics.observeRequest(r.Method, route, rec.status, elapsed)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", elapsed).
			Msg("Handled request")
	})
}
