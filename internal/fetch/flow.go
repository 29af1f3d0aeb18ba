package fetch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"

	"golang.org/x/net/html/charset"

	"formfetch/internal/config"
	"formfetch/internal/filename"
	"formfetch/internal/form"
	"formfetch/internal/logging"
	"formfetch/internal/store"
)

// bodyDumpLimit caps the landing page dump at trace level.
const bodyDumpLimit = 64 << 10

// Flow runs one download: AwaitingForm -> AwaitingDownload -> persist.
// Nothing but the landing URL and the session cookies carries over from
// one step to the next.
type Flow struct {
	session *Session
	logger  *slog.Logger
	// write persists the body; store.Write unless a test swaps it.
	write func(name string, content []byte) (store.Outcome, error)
}

// NewFlow returns a Flow bound to session.
func NewFlow(session *Session, logger *slog.Logger) *Flow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Flow{session: session, logger: logger, write: store.Write}
}

// Run builds a session from cfg and executes one flow.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Outcome, error) {
	proxy, err := cfg.ProxyURL()
	if err != nil {
		return store.Outcome{}, err
	}
	session, err := NewSession(Options{
		Proxy:          proxy,
		Timeout:        cfg.Timeout,
		UserAgent:      cfg.UserAgent,
		AcceptLanguage: cfg.AcceptLanguage,
		Logger:         logger,
	})
	if err != nil {
		return store.Outcome{}, err
	}
	return NewFlow(session, logger).Run(ctx, cfg.URL, cfg.Output)
}

// Run fetches target, replays its first form and stores the reply.
// output, when set, overrides the derived filename.
func (f *Flow) Run(ctx context.Context, target, output string) (store.Outcome, error) {
	landing, d, err := f.awaitForm(ctx, target)
	if err != nil {
		return store.Outcome{}, err
	}
	resp, err := f.awaitDownload(ctx, landing, d)
	if err != nil {
		return store.Outcome{}, err
	}
	return f.persist(target, output, resp)
}

// awaitForm loads the landing page and extracts its first form. A non-2xx
// status is only logged; some hosts serve the form inside an error page.
func (f *Flow) awaitForm(ctx context.Context, target string) (*url.URL, *form.Descriptor, error) {
	resp, err := f.session.Get(ctx, target)
	if err != nil {
		return nil, nil, &FlowError{Phase: requestPhase(PhaseInitialFetch, err), Err: err}
	}
	f.logger.Debug("landing page", "url", resp.URL.String(), "status", resp.StatusCode)
	if serr := resp.Err(); serr != nil {
		f.logger.Warn("landing page status", "error", serr)
	}
	logging.DumpBody(f.logger, "landing page body", resp.Body, bodyDumpLimit)

	d, err := form.Extract(decodeHTML(resp.Body, resp.Header.Get("Content-Type")), resp.URL)
	if err != nil {
		return nil, nil, &FlowError{Phase: PhaseExtract, Err: err}
	}
	f.logger.Info("form found", "action", d.Action.String(), "method", string(d.Method))
	f.logger.Info("form params", "params", d.Fields)
	return resp.URL, d, nil
}

func (f *Flow) awaitDownload(ctx context.Context, landing *url.URL, d *form.Descriptor) (*Response, error) {
	f.logger.Info("next request", "url", d.Action.String(), "method", string(d.Method), "params", d.Fields)
	resp, err := f.session.Submit(ctx, d, landing)
	if err != nil {
		return nil, &FlowError{Phase: requestPhase(PhaseResubmit, err), Err: err}
	}
	f.logger.Info("download response",
		"url", resp.URL.String(),
		"status", resp.StatusCode,
		"bytes", len(resp.Body),
		"content_type", resp.Header.Get("Content-Type"))
	if serr := resp.Err(); serr != nil {
		f.logger.Warn("download status", "error", serr)
	}
	return resp, nil
}

func (f *Flow) persist(target, output string, resp *Response) (store.Outcome, error) {
	name := filename.Resolve(target, output, resp.Header)
	if cd := resp.Header.Get("Content-Disposition"); cd != "" && output == "" {
		if _, ok := filename.FromContentDisposition(cd); !ok {
			f.logger.Debug("content-disposition unusable, using url", "header", cd)
		}
	}
	f.logger.Info("output file", "name", name)
	out, err := f.write(name, resp.Body)
	if err != nil {
		return store.Outcome{}, &FlowError{Phase: PhasePersist, Err: err}
	}
	f.logger.Debug("stored", "outcome", out.Kind.String(), "path", out.Path)
	return out, nil
}

// requestPhase reports PhaseReadBody for failures after the status line
// arrived, p otherwise.
func requestPhase(p Phase, err error) Phase {
	var rb *ReadBodyError
	if errors.As(err, &rb) {
		return PhaseReadBody
	}
	return p
}

// decodeHTML converts body to UTF-8 using the Content-Type charset or the
// document's own meta declaration.
func decodeHTML(body []byte, contentType string) io.Reader {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return bytes.NewReader(body)
	}
	return r
}
