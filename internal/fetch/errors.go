package fetch

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// Phase names the step of a run an error came from.
type Phase string

const (
	PhaseInitialFetch Phase = "initial-fetch"
	PhaseExtract      Phase = "extract"
	PhaseResubmit     Phase = "resubmit"
	PhaseReadBody     Phase = "read-body"
	PhasePersist      Phase = "persist"
)

// FlowError is the single terminal error of a run.
type FlowError struct {
	Phase Phase
	Err   error
}

func (e *FlowError) Error() string { return string(e.Phase) + ": " + e.Err.Error() }

func (e *FlowError) Unwrap() error { return e.Err }

// TransportError reports a request that produced no response at all
// (DNS, TLS, connection, timeout).
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	cause := e.Err
	// *url.Error repeats method and URL.
	var uerr *url.Error
	if errors.As(cause, &uerr) {
		cause = uerr.Err
	}
	return fmt.Sprintf("transport error: %s %s: %v", e.Method, e.URL, cause)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ReadBodyError reports a response whose body could not be read in full.
type ReadBodyError struct {
	URL string
	Err error
}

func (e *ReadBodyError) Error() string { return fmt.Sprintf("read body from %s: %v", e.URL, e.Err) }

func (e *ReadBodyError) Unwrap() error { return e.Err }

// StatusError describes a non-2xx response. Runs log it and carry on.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s from %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}
