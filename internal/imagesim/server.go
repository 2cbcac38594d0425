package imagesim

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
)

// Server serves an Image over the Webside REST surface.
type Server struct {
	img     *Image
	logger  *slog.Logger
	dialect string
	trace   tracer

	mu             sync.Mutex
	changesEnabled bool
	failures       []failure
	runtime        runtime
}

type failure struct {
	method string
	path   string
	status int
}

// Option configures a Server.
type Option func(*Server)

// WithChanges enables or disables the change-log endpoints.
func WithChanges(enabled bool) Option {
	return func(s *Server) { s.changesEnabled = enabled }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithDialect sets the dialect reported by GET /dialect.
func WithDialect(d string) Option {
	return func(s *Server) { s.dialect = d }
}

// NewServer creates a server over img. The change log is enabled by default.
func NewServer(img *Image, opts ...Option) *Server {
	s := &Server{
		img:            img,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		dialect:        "Pharo",
		changesEnabled: true,
		runtime:        newRuntime(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Image returns the served image.
func (s *Server) Image() *Image {
	return s.img
}

// SetChangesEnabled toggles the change-log endpoints at runtime.
func (s *Server) SetChangesEnabled(enabled bool) {
	s.mu.Lock()
	s.changesEnabled = enabled
	s.mu.Unlock()
}

func (s *Server) changesOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changesEnabled
}

// FailNext makes the next request matching method and path answer status.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	s.failures = append(s.failures, failure{method: method, path: path, status: status})
	s.mu.Unlock()
}

func (s *Server) takeFailure(r *http.Request) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.failures {
		if f.method == r.Method && f.path == r.URL.Path {
			s.failures = append(s.failures[:i], s.failures[i+1:]...)
			return f.status, true
		}
	}
	return 0, false
}

// Trace returns every request received so far, in arrival order.
func (s *Server) Trace() []Request {
	return s.trace.snapshot()
}

// ResetTrace clears the request trace.
func (s *Server) ResetTrace() {
	s.trace.reset()
}

// Count returns how many traced requests match method and path.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.trace.snapshot() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Handler returns the HTTP handler with tracing and logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)

	inject := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status, ok := s.takeFailure(r); ok {
			writeError(w, status, http.StatusText(status), nil)
			return
		}
		mux.ServeHTTP(w, r)
	})
	return LoggingMiddleware(s.logger, s.trace.middleware(inject))
}

// --- Helpers ---

// errorResponse is the JSON error body.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeImageError maps model errors to statuses.
func writeImageError(w http.ResponseWriter, what string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, what+" not found", nil)
	case errors.Is(err, ErrExists):
		writeError(w, http.StatusConflict, what+" already exists", nil)
	default:
		writeError(w, http.StatusBadRequest, "invalid request", err)
	}
}

func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
