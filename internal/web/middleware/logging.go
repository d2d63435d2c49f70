// Package middleware provides HTTP middleware for the web server.
package middleware

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/filecompare/internal/logging"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Logger writes one structured line per request with method, path, status,
// bytes written, duration and client address. The request ID from chi's
// RequestID middleware is attached through logging.FromContext.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger := logging.FromContext(r.Context())
			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"ip", ClientIP(r),
			}
			if status >= http.StatusInternalServerError {
				logger.Error("request", args...)
				return
			}
			logger.Info("request", args...)
		}()

		next.ServeHTTP(ww, r)
	})
}
