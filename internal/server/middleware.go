package server

import (
	"net/http"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/seqtools/degbrowser/internal/logging"
)

// requestIDCounter assigns monotonically increasing request IDs for log
// correlation.
var requestIDCounter atomic.Uint64

// statusWriter records the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// requestLogger tags each request with an ID and logs method, path, status,
// and duration on completion.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := requestIDCounter.Add(1)
		ctx := logging.ContextWithRequestID(r.Context(), id)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r.WithContext(ctx))

		logging.WithContext(ctx).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote", clientIP(r))
	})
}

// recoverer turns handler panics into 500s instead of killing the daemon.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("handler panic", "path", r.URL.Path, "panic", rec,
					"stack", string(debug.Stack()))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
