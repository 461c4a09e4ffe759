package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/ngoyal88/logwise/pkg/capture"
	"github.com/ngoyal88/logwise/pkg/config"
	"github.com/ngoyal88/logwise/pkg/logwise"
	"github.com/ngoyal88/logwise/pkg/middleware"
)

func newServeCmd(cfgFile *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo server whose /test_errors route panics at random",
		RunE: func(cmd *cobra.Command, args []string) error {
			// 1. Load Config with hot reload
			cfgStore, err := config.LoadAndWatch(*cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg := cfgStore.Get()
			if addr == "" {
				addr = cfg.Server.Addr
			}

			// 2. Build the capture pipeline and route process logging through its sink
			c, closeFn, err := logwise.NewFromStore(cfgStore, logwise.WithWriter(cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			defer closeFn()
			slog.SetDefault(c.Logger())

			// 3. Keep a flood of /test_errors hits from exhausting the model quota
			var limiter middleware.Allower
			if cfg.Server.RPS > 0 {
				limiter = rate.NewLimiter(rate.Limit(cfg.Server.RPS), max(1, cfg.Server.Burst))
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           newServeMux(c, limiter),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()

			fmt.Fprintln(cmd.OutOrStdout(), "LogWise demo listening on "+addr)
			fmt.Fprintln(cmd.OutOrStdout(), "   - Errors:  http://localhost"+addr+"/test_errors")
			fmt.Fprintln(cmd.OutOrStdout(), "   - Metrics: http://localhost"+addr+"/metrics")
			fmt.Fprintln(cmd.OutOrStdout(), "   - Health:  http://localhost"+addr+"/health")

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	return cmd
}

// newServeMux wires the demo routes. Panics under /test_errors are captured
// and analyzed; every request is logged through c's sink.
func newServeMux(c *capture.Capturer, limiter middleware.Allower) http.Handler {
	mux := http.NewServeMux()

	// Metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	errorsHandler := middleware.Recover(c)(http.HandlerFunc(testErrors))
	mux.Handle("/test_errors", middleware.RateLimit(limiter)(errorsHandler))

	return middleware.RequestLogger(c.Logger())(mux)
}

var scenarios = []func(http.ResponseWriter){
	divideByZero,
	indexOutOfRange,
	missingKey,
}

func testErrors(w http.ResponseWriter, r *http.Request) {
	scenarios[rand.IntN(len(scenarios))](w)
}

func divideByZero(w http.ResponseWriter) {
	divisor := 0
	fmt.Fprint(w, 1/divisor)
}

func indexOutOfRange(w http.ResponseWriter) {
	items := []int{1, 2, 3}
	idx := 5
	fmt.Fprint(w, items[idx])
}

func missingKey(w http.ResponseWriter) {
	values := map[string]int{"a": 1, "b": 2}
	fmt.Fprint(w, mustGet(values, "c"))
}

func mustGet(m map[string]int, key string) int {
	v, ok := m[key]
	if !ok {
		panic(fmt.Sprintf("key not found: %q", key))
	}
	return v
}
