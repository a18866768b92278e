package pipeline

import (
	"context"
	"errors"
	"net"

	"tavola/internal/model"
	"tavola/internal/scraper"
)

// failure is one classified fetch error, ready to be surfaced on a
// ScrapeResult.
type failure struct {
	kind       model.ErrorKind
	message    string
	detail     string
	suggestion string
}

// classify maps a fetch error onto the kind the caller sees. The
// http.Client wraps transport errors in *url.Error, so matching is
// done with errors.As/Is rather than direct type switches.
func classify(err error) failure {
	var statusErr *scraper.StatusError
	var renderErr *scraper.RenderError
	var dnsErr *net.DNSError
	var opErr *net.OpError

	switch {
	case errors.As(err, &statusErr):
		switch {
		case statusErr.StatusCode == 403:
			return failure{model.ErrForbidden, "access denied by the target site", err.Error(),
				"Wait before retrying, or switch to the rod-stealth engine."}
		case statusErr.StatusCode == 429:
			return failure{model.ErrRateLimited, "the target site is rate limiting requests", err.Error(),
				"Reduce request frequency and retry after a longer pause."}
		case statusErr.StatusCode >= 500:
			return failure{model.ErrUpstreamServer, "the target site returned a server error", err.Error(),
				"Retry later; the failure is on the target's side."}
		default:
			return failure{model.ErrUnknown, "unexpected response from the target site", err.Error(), ""}
		}
	case errors.As(err, &renderErr):
		return failure{model.ErrRenderingFailure, "browser rendering failed", err.Error(),
			"Check that Chromium is available, or fall back to the http engine."}
	case errors.Is(err, context.DeadlineExceeded):
		return failure{model.ErrTimeout, "the request timed out", err.Error(),
			"Increase timeoutMs or reduce retries in the request options."}
	case errors.As(err, &dnsErr), errors.As(err, &opErr):
		return failure{model.ErrNetworkUnreachable, "could not reach the target site", err.Error(),
			"Check outbound connectivity and DNS."}
	default:
		return failure{model.ErrUnknown, "scrape failed", err.Error(), ""}
	}
}
