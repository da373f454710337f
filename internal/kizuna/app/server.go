package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/bdobrica/Kizuna/common/trace"
	"github.com/bdobrica/Kizuna/common/version"
	"github.com/bdobrica/Kizuna/internal/kizuna/memory"
	"github.com/bdobrica/Kizuna/internal/kizuna/tools"
)

// maxBodyBytes caps request bodies on the JSON endpoints.
const maxBodyBytes = 1 << 20

// Server exposes the engine to an external agent loop over HTTP:
//
//	GET  /health            liveness
//	GET  /status            version, uptime and configured components
//	POST /v1/context        memory prompt block for a message
//	GET  /v1/tools          tool definitions
//	POST /v1/tools/{name}   execute a tool
type Server struct {
	addr      string
	app       *App
	startedAt time.Time
	server    *http.Server
	mux       *http.ServeMux
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

type statusResponse struct {
	Status     string    `json:"status"`
	Version    string    `json:"version"`
	Commit     string    `json:"commit"`
	BuildTime  string    `json:"build_time"`
	StartedAt  time.Time `json:"started_at"`
	UptimeSecs float64   `json:"uptime_seconds"`
	Store      string    `json:"store"`
	Embedder   string    `json:"embedder"`
	Tools      int       `json:"tools"`
}

// sessionPayload is the wire form of memory.SessionContext.
type sessionPayload struct {
	CoupleID    string `json:"couple_id"`
	UserID      string `json:"user_id"`
	Visibility  string `json:"visibility"`
	UserName    string `json:"user_name,omitempty"`
	PartnerName string `json:"partner_name,omitempty"`
}

func (p sessionPayload) session() (memory.SessionContext, error) {
	s := memory.SessionContext{
		CoupleID:    p.CoupleID,
		UserID:      p.UserID,
		Visibility:  memory.Visibility(p.Visibility),
		UserName:    p.UserName,
		PartnerName: p.PartnerName,
	}
	if s.Visibility == "" {
		s.Visibility = memory.VisibilityShared
	}
	switch {
	case s.CoupleID == "":
		return s, errors.New("session.couple_id is required")
	case !s.Visibility.Valid():
		return s, fmt.Errorf("session.visibility %q is not shared or private", p.Visibility)
	}
	return s, nil
}

type contextRequest struct {
	Session sessionPayload `json:"session"`
	Message string         `json:"message"`
}

type contextResponse struct {
	TraceID string `json:"trace_id"`
	Context string `json:"context"`
}

type toolRequest struct {
	Session   sessionPayload  `json:"session"`
	Arguments json.RawMessage `json:"arguments"`
}

type toolResponse struct {
	TraceID string          `json:"trace_id"`
	Result  json.RawMessage `json:"result"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer creates and configures the HTTP server (does not start it).
func NewServer(addr string, a *App) *Server {
	mux := http.NewServeMux()
	s := &Server{
		addr:      addr,
		app:       a,
		startedAt: time.Now(),
		mux:       mux,
	}
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /v1/context", s.handleContext)
	mux.HandleFunc("GET /v1/tools", s.handleToolList)
	mux.HandleFunc("POST /v1/tools/{name}", s.handleToolCall)
	return s
}

// ServeHTTP implements http.Handler so the server can be tested with
// httptest.NewRecorder.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start begins listening in the background. It returns once the listener is
// bound and shuts the server down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.addr, err)
	}

	s.server = &http.Server{
		Handler:      s,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.app.logger.Info("server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.app.logger.Error("server stopped", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop shuts down the HTTP server.
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.app.logger.Warn("server shutdown error", "err", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: version.Version,
		Commit:  version.GitCommit,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:     "ok",
		Version:    version.Version,
		Commit:     version.GitCommit,
		BuildTime:  version.BuildTime,
		StartedAt:  s.startedAt,
		UptimeSecs: time.Since(s.startedAt).Seconds(),
		Store:      s.app.Backend(),
		Embedder:   s.app.Embedder(),
		Tools:      len(s.app.Tools().Definitions()),
	})
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if !decodeBody(w, r, &req) {
		return
	}
	session, err := req.Session.session()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, traceID := trace.Ensure(r.Context())
	block, err := s.app.MemoryContext(ctx, session, req.Message)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, contextResponse{TraceID: traceID, Context: block})
}

func (s *Server) handleToolList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Tools().Definitions())
}

func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request) {
	var req toolRequest
	if !decodeBody(w, r, &req) {
		return
	}
	session, err := req.Session.session()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx, traceID := trace.Ensure(r.Context())
	out, err := s.app.Tools().Call(ctx, session, r.PathValue("name"), req.Arguments)
	switch {
	case errors.Is(err, tools.ErrUnknownTool):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, tools.ErrInvalidArguments):
		writeError(w, http.StatusBadRequest, err)
	case err != nil:
		writeError(w, http.StatusBadGateway, err)
	default:
		writeJSON(w, http.StatusOK, toolResponse{TraceID: traceID, Result: json.RawMessage(out)})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

// writeJSON serialises v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("server: failed to encode JSON response", "err", err)
	}
}
