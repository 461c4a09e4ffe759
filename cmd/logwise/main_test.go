package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/ngoyal88/logwise/pkg/capture"
	"github.com/ngoyal88/logwise/pkg/logsink"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "gemini:\n  base_url: " + baseURL + "\n  api_key: test\nlogging:\n  framework: cli\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	assert.Equal(t, "logwise", root.Use)

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["analyze"])
	assert.True(t, names["serve"])
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestAnalyzeCommand(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"Fix: check divisor"}]}}]}`)
	}))
	defer srv.Close()

	cfg := writeConfig(t, srv.URL)
	out, err := executeCommand(newRootCmd(), "analyze", "--config", cfg, "--message", "division by zero", "--file", "app.py", "--line", "10")
	require.NoError(t, err)

	assert.Contains(t, out, " - LogWise - ERROR - division by zero - app.py:10")
	assert.True(t, strings.HasSuffix(out, "Fix: check divisor\n"), out)
	assert.Equal(t, int32(1), hits.Load())
}

func TestAnalyzeCommand_InfoSkipsModel(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits.Add(1) }))
	defer srv.Close()

	out, err := executeCommand(newRootCmd(), "analyze", "-c", writeConfig(t, srv.URL), "-m", "all good", "-l", "INFO")
	require.NoError(t, err)
	assert.Contains(t, out, " - INFO - all good - unknown:0")
	assert.Zero(t, hits.Load())
}

func TestAnalyzeCommand_Errors(t *testing.T) {
	_, err := executeCommand(newRootCmd(), "analyze", "-m", "x", "-l", "FATAL")
	require.Error(t, err)
	assert.ErrorIs(t, err, capture.ErrUnknownSeverity)

	_, err = executeCommand(newRootCmd(), "analyze")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"message" not set`)
}

func TestServeMux(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logsink.NewHandler(&buf, &logsink.Options{Name: "LogWise"}))
	c := capture.New(logger, nil, "net/http")
	srv := httptest.NewServer(newServeMux(c, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, err = http.Get(srv.URL + "/test_errors")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "logwise_panics_recovered_total ")

	out := buf.String()
	assert.Contains(t, out, " - ERROR - ")
	assert.Contains(t, out, "serve.go:")
	assert.Contains(t, out, "GET /test_errors - unknown:0 status=500")
}

func TestServeMux_RateLimited(t *testing.T) {
	c := capture.New(nil, nil, "net/http")
	srv := httptest.NewServer(newServeMux(c, rate.NewLimiter(0, 1)))
	defer srv.Close()

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		resp, err := http.Get(srv.URL + "/test_errors")
		require.NoError(t, err)
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	assert.Equal(t, []int{http.StatusInternalServerError, http.StatusTooManyRequests}, codes)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestScenariosPanic(t *testing.T) {
	for _, fn := range scenarios {
		assert.Panics(t, func() { fn(httptest.NewRecorder()) })
	}
	assert.Equal(t, 2, mustGet(map[string]int{"b": 2}, "b"))
}
