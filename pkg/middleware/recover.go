package middleware

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"github.com/ngoyal88/logwise/pkg/capture"
)

// Recover captures panics raised by next at ERROR severity, attributed to the
// source line that panicked, and replies 500. http.ErrAbortHandler is re-raised.
func Recover(c *capture.Capturer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}
				panicsRecovered.Inc()

				loc := PanicLocation()
				recommendation, err := c.Capture(r.Context(), panicMessage(v), capture.SeverityError, loc)
				if err != nil {
					c.Logger().Error("capture failed: " + err.Error())
				}
				if recommendation != "" {
					w.Header().Set("X-LogWise-Analyzed", "true")
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func panicMessage(v any) string {
	switch e := v.(type) {
	case error:
		return e.Error()
	case string:
		return e
	default:
		return fmt.Sprint(v)
	}
}

// PanicLocation returns the frame that raised the current panic. It must be
// called from a deferred function while the panic is being recovered.
func PanicLocation() capture.Location {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	panicking := false
	for {
		f, more := frames.Next()
		if f.Function == "runtime.gopanic" {
			panicking = true
		} else if panicking && !strings.HasPrefix(f.Function, "runtime.") {
			return capture.Location{File: f.File, Line: f.Line}
		}
		if !more {
			break
		}
	}
	return capture.Location{}
}
