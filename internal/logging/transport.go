package logging

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Transport wraps an http.RoundTripper and logs every hop, redirects
// included. Request and response lines go out at debug, headers at trace.
type Transport struct {
	Base   http.RoundTripper
	Logger *slog.Logger
}

// WithLogging wraps base (http.DefaultTransport when nil).
func WithLogging(logger *slog.Logger, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{Base: base, Logger: logger}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	t.Logger.DebugContext(ctx, "http request", "method", r.Method, "url", r.URL.String())
	if t.Logger.Enabled(ctx, LevelTrace) {
		logHeader(ctx, t.Logger, "request header", r.Header)
	}
	start := time.Now()
	resp, err := t.Base.RoundTrip(r)
	if err != nil {
		t.Logger.DebugContext(ctx, "http request failed", "url", r.URL.String(), "error", err)
		return nil, err
	}
	t.Logger.DebugContext(ctx, "http response",
		"status", resp.StatusCode,
		"url", r.URL.String(),
		"duration_ms", time.Since(start).Milliseconds())
	if t.Logger.Enabled(ctx, LevelTrace) {
		logHeader(ctx, t.Logger, "response header", resp.Header)
	}
	return resp, nil
}

func logHeader(ctx context.Context, logger *slog.Logger, msg string, h http.Header) {
	for name, vs := range h {
		for _, v := range vs {
			logger.Log(ctx, LevelTrace, msg, "name", name, "value", v)
		}
	}
}
