package scraper

import "fmt"

// StatusError reports a status a strategy could not turn into content.
// The pipeline classifies it by code: 403 and 429 are soft-block
// signals that stay retryable, 5xx is an upstream failure.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("target returned status %d for %s", e.StatusCode, e.URL)
}

// RenderError wraps a browser-side failure so the pipeline can report
// it separately from plain network errors. Stage names the phase that
// failed: launch, connect, page, navigate, or html.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
