// Package scraper provides the page fetch strategies: a plain HTTP
// client, a rendered fetch through a shared headless browser, and a
// stealth variant that pays browser startup cost per attempt in
// exchange for a cleaner fingerprint. All three present realistic
// browser identities built by the fingerprint package.
package scraper

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"

	"tavola/internal/fingerprint"
)

// Fetcher retrieves one page body for one attempt. Implementations are
// safe for concurrent use; per-attempt state travels in the
// AttemptContext.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, pageURL string, attempt fingerprint.AttemptContext) (string, error)
}

// HTTPFetcher is the plain strategy: one GET with a realistic header
// set and no script execution. It is the cheapest option and the
// default engine.
type HTTPFetcher struct {
	Client *http.Client
	Src    *fingerprint.Source
}

func NewHTTPFetcher(src *fingerprint.Source) *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return errors.New("stopped after 5 redirects")
				}
				return nil
			},
		},
		Src: src,
	}
}

func (f *HTTPFetcher) Name() string { return "http" }

func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string, attempt fingerprint.AttemptContext) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	for k, v := range fingerprint.Headers(attempt, f.Src) {
		req.Header.Set(k, v)
	}
	// The transport negotiates compression itself and decompresses
	// transparently only when it set the header; an explicit value
	// would hand us a gzip body.
	req.Header.Del("Accept-Encoding")

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	// 4xx responses usually carry the block interstitial in their body;
	// they return as content so the detector can name the block. Only
	// 5xx is a transport failure.
	if resp.StatusCode >= 500 {
		return "", &StatusError{StatusCode: resp.StatusCode, URL: u.String()}
	}
	return string(body), nil
}
