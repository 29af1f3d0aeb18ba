// Package fetch drives the landing page -> form -> download exchange.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"formfetch/internal/config"
	"formfetch/internal/form"
	"formfetch/internal/logging"
)

const defaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"

// Options configures a Session.
type Options struct {
	// Proxy, when set, receives every request. Otherwise the usual
	// HTTP_PROXY/HTTPS_PROXY/NO_PROXY variables apply.
	Proxy          *url.URL
	// Timeout bounds dialing, the TLS handshake and the wait for response
	// headers. Body transfer is not bounded. Zero keeps the transport
	// defaults.
	Timeout        time.Duration
	UserAgent      string
	AcceptLanguage string
	Logger         *slog.Logger
	// Transport replaces the default transport; Proxy and Timeout are
	// ignored then.
	Transport http.RoundTripper
}

// Session owns the client and cookie jar shared by the two requests of a
// run.
type Session struct {
	client *http.Client
	header http.Header
	logger *slog.Logger
}

// Response is a fully read reply.
type Response struct {
	// URL is the final URL after redirects.
	URL        *url.URL
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Err returns a *StatusError for non-2xx responses.
func (r *Response) Err() error {
	if r.StatusCode >= 200 && r.StatusCode < 300 {
		return nil
	}
	return &StatusError{URL: r.URL.String(), StatusCode: r.StatusCode}
}

// NewSession builds a Session with a fresh cookie jar.
func NewSession(opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	base := opts.Transport
	if base == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if opts.Proxy != nil {
			tr.Proxy = http.ProxyURL(opts.Proxy)
		}
		if opts.Timeout > 0 {
			dialer := &net.Dialer{Timeout: opts.Timeout, KeepAlive: 30 * time.Second}
			tr.DialContext = dialer.DialContext
			tr.TLSHandshakeTimeout = opts.Timeout
			tr.ResponseHeaderTimeout = opts.Timeout
		}
		base = tr
	}
	hdr := http.Header{}
	hdr.Set("User-Agent", firstNonEmpty(opts.UserAgent, config.DefaultUserAgent))
	hdr.Set("Accept", defaultAccept)
	hdr.Set("Accept-Language", firstNonEmpty(opts.AcceptLanguage, config.DefaultAcceptLanguage))
	hdr.Set("Connection", "keep-alive")
	return &Session{
		client: &http.Client{
			Jar:       jar,
			Transport: logging.WithLogging(logger, base),
		},
		header: hdr,
		logger: logger,
	}, nil
}

// Get fetches target with the session headers.
func (s *Session) Get(ctx context.Context, target string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	return s.do(req)
}

// Submit replays a form. GET forms carry their fields in the query
// string, POST forms in an urlencoded body. referer is the page the form
// came from.
func (s *Session) Submit(ctx context.Context, d *form.Descriptor, referer *url.URL) (*Response, error) {
	target := *d.Action
	var body io.Reader
	if d.Method == form.MethodGet {
		if enc := d.Encode(); enc != "" {
			if target.RawQuery != "" {
				target.RawQuery += "&" + enc
			} else {
				target.RawQuery = enc
			}
		}
	} else {
		body = strings.NewReader(d.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, string(d.Method), target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if d.Method == form.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if referer != nil {
		ref := *referer
		ref.Fragment = ""
		ref.RawFragment = ""
		req.Header.Set("Referer", ref.String())
		if d.Method == form.MethodPost {
			req.Header.Set("Origin", referer.Scheme+"://"+referer.Host)
		}
	}
	return s.do(req)
}

func (s *Session) do(req *http.Request) (*Response, error) {
	for k, vs := range s.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()
	final := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ReadBodyError{URL: final.String(), Err: err}
	}
	return &Response{
		URL:        final,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
