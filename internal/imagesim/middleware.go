package imagesim

import (
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Request is one entry of the request trace.
type Request struct {
	Method string
	Path   string // decoded path
	Query  string // raw query
	Author string // X-Webside-Author header
}

// tracer records every request that reaches the server.
type tracer struct {
	mu       sync.Mutex
	requests []Request
}

func (t *tracer) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.mu.Lock()
		t.requests = append(t.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Author: r.Header.Get("X-Webside-Author"),
		})
		t.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (t *tracer) snapshot() []Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Request(nil), t.requests...)
}

func (t *tracer) reset() {
	t.mu.Lock()
	t.requests = nil
	t.mu.Unlock()
}

// LoggingMiddleware logs every request at debug level.
func LoggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lw, r)
		logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", lw.status),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
}

func (lw *loggingResponseWriter) WriteHeader(status int) {
	lw.status = status
	lw.ResponseWriter.WriteHeader(status)
}
