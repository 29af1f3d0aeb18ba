package logging

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForVerbosity(t *testing.T) {
	t.Parallel()
	cases := []struct {
		v    int
		want slog.Level
	}{
		{-1, slog.LevelWarn},
		{0, slog.LevelWarn},
		{1, slog.LevelInfo},
		{2, slog.LevelDebug},
		{3, LevelTrace},
		{7, LevelTrace},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LevelForVerbosity(tc.v), "verbosity %d", tc.v)
	}
}

func TestNewFiltersByVerbosity(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, 0)
	logger.Info("hidden")
	logger.Warn("shown")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestTraceLevelName(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, 3)
	Trace(logger, "deep")
	assert.Contains(t, buf.String(), "level=TRACE")
	assert.Contains(t, buf.String(), "deep")
}

func TestDumpBodyTextAndBinary(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, 3)

	DumpBody(logger, "page", []byte("<html>hello</html>"), 6)
	assert.Contains(t, buf.String(), "<html>")
	assert.NotContains(t, buf.String(), "hello")

	buf.Reset()
	DumpBody(logger, "blob", []byte{0xff, 0xfe, 0x00}, 0)
	assert.Contains(t, buf.String(), "hex=fffe00")
}

func TestTransportLogsRequestAndResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	client := &http.Client{Transport: WithLogging(New(&buf, 3), nil)}
	resp, err := client.Get(srv.URL + "/path")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	out := buf.String()
	assert.Contains(t, out, "http request")
	assert.Contains(t, out, "/path")
	assert.Contains(t, out, "status=418")
	assert.True(t, strings.Contains(out, "X-Test"), "expected response headers at trace level")
}
