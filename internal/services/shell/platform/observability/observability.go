// Package observability provides request logging for the shell.
package observability

import (
	"log"
	"net/http"
	"time"

	"github.com/louisbranch/gatehouse/internal/services/shell/platform/httpx"
)

// RequestLogger writes one access log line per request.
func RequestLogger(logger *log.Logger) httpx.Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			rec := httpx.NewResponseRecorder(w)
			next.ServeHTTP(rec, r)

			status := rec.Status()
			if status == 0 {
				status = http.StatusOK
			}
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = "-"
			}
			logger.Printf(
				"http request method=%s path=%s status=%d bytes=%d latency=%s request_id=%s",
				r.Method,
				r.URL.Path,
				status,
				rec.Bytes(),
				time.Since(started).Round(time.Microsecond),
				requestID,
			)
		})
	}
}
