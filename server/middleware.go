package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"canon-router/services"
)

// requestIDHeader carries the request ID assigned by the middleware
const requestIDHeader = "X-Request-ID"

// requestIDMiddleware assigns a request ID when the client supplied none
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests with the structured logger
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		s.services.Logger.Info("HTTP request",
			services.String("method", r.Method),
			services.String("path", r.URL.Path),
			services.String("request_id", r.Header.Get(requestIDHeader)),
			services.Int("status_code", wrapper.statusCode),
			services.Duration("duration", time.Since(start)),
		)
	})
}

// contentTypeMiddleware sets a default content type on mutating requests
func (s *Server) contentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") == "" && (r.Method == http.MethodPost || r.Method == http.MethodPut) {
			r.Header.Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
