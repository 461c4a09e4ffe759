package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// RequestLogger logs every request at INFO once it is finished.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			// Call the next handler (The Request happens here)
			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			httpRequests.WithLabelValues(r.Method, strconv.Itoa(rec.statusCode)).Inc()
			httpDuration.Observe(elapsed.Seconds())

			logger.InfoContext(r.Context(), r.Method+" "+r.URL.Path,
				"status", rec.statusCode,
				"remote", r.RemoteAddr,
				"duration", elapsed,
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}
