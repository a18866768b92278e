package scraper

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"

	"tavola/internal/fingerprint"
)

const testURL = "https://www.tripadvisor.it/Restaurant_Review-g123-d456-Reviews-Test.html"

func TestHTTPFetcherSuccess(t *testing.T) {
	f := NewHTTPFetcher(fingerprint.NewSource(1))
	httpmock.ActivateNonDefault(f.Client)
	defer httpmock.DeactivateAndReset()

	var gotUA, gotAccept string
	httpmock.RegisterResponder(http.MethodGet, testURL,
		func(req *http.Request) (*http.Response, error) {
			gotUA = req.Header.Get("User-Agent")
			gotAccept = req.Header.Get("Accept")
			return httpmock.NewStringResponse(http.StatusOK, "<html><body>ok</body></html>"), nil
		})

	body, err := f.Fetch(context.Background(), testURL, fingerprint.AttemptContext{UserAgent: "test-agent"})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if body != "<html><body>ok</body></html>" {
		t.Fatalf("body = %q", body)
	}
	if gotUA != "test-agent" {
		t.Fatalf("User-Agent = %q", gotUA)
	}
	if gotAccept == "" {
		t.Fatalf("expected Accept header on outbound request")
	}
}

func TestHTTPFetcherStatusError(t *testing.T) {
	f := NewHTTPFetcher(fingerprint.NewSource(1))
	httpmock.ActivateNonDefault(f.Client)
	defer httpmock.DeactivateAndReset()

	for _, status := range []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable} {
		httpmock.RegisterResponder(http.MethodGet, testURL,
			httpmock.NewStringResponder(status, "no"))

		_, err := f.Fetch(context.Background(), testURL, fingerprint.AttemptContext{UserAgent: "ua"})
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("status %d: expected StatusError, got %v", status, err)
		}
		if statusErr.StatusCode != status {
			t.Fatalf("StatusCode = %d, want %d", statusErr.StatusCode, status)
		}
	}
}

// 4xx pages are content, not errors: a 403 is the dominant block mode
// and its body carries the interstitial the detector classifies.
func TestHTTPFetcherClientErrorReturnsBody(t *testing.T) {
	f := NewHTTPFetcher(fingerprint.NewSource(1))
	httpmock.ActivateNonDefault(f.Client)
	defer httpmock.DeactivateAndReset()

	const interstitial = "<html><body>please complete the captcha</body></html>"
	for _, status := range []int{http.StatusForbidden, http.StatusNotFound, http.StatusTooManyRequests} {
		httpmock.RegisterResponder(http.MethodGet, testURL,
			httpmock.NewStringResponder(status, interstitial))

		body, err := f.Fetch(context.Background(), testURL, fingerprint.AttemptContext{UserAgent: "ua"})
		if err != nil {
			t.Fatalf("status %d: unexpected error %v", status, err)
		}
		if body != interstitial {
			t.Fatalf("status %d: body = %q", status, body)
		}
	}
}

func TestHTTPFetcherAttemptHeaders(t *testing.T) {
	f := NewHTTPFetcher(fingerprint.NewSource(1))
	httpmock.ActivateNonDefault(f.Client)
	defer httpmock.DeactivateAndReset()

	var headers http.Header
	httpmock.RegisterResponder(http.MethodGet, testURL,
		func(req *http.Request) (*http.Response, error) {
			headers = req.Header.Clone()
			return httpmock.NewStringResponse(http.StatusOK, "ok"), nil
		})

	if _, err := f.Fetch(context.Background(), testURL, fingerprint.AttemptContext{Attempt: 1, UserAgent: "ua"}); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if headers.Get("X-Requested-With") != "XMLHttpRequest" {
		t.Fatalf("attempt 1 missing X-Requested-With")
	}

	if _, err := f.Fetch(context.Background(), testURL, fingerprint.AttemptContext{Attempt: 2, UserAgent: "ua"}); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if headers.Get("Sec-CH-UA") == "" {
		t.Fatalf("attempt 2 missing Sec-CH-UA")
	}
	if headers.Get("Accept-Language") != "en-US,en;q=0.9" {
		t.Fatalf("attempt 2 Accept-Language = %q", headers.Get("Accept-Language"))
	}
}

func TestHTTPFetcherBadURL(t *testing.T) {
	f := NewHTTPFetcher(fingerprint.NewSource(1))

	if _, err := f.Fetch(context.Background(), "://not-a-url", fingerprint.AttemptContext{UserAgent: "ua"}); err == nil {
		t.Fatalf("expected error for unparseable URL")
	}
}

func TestDocumentReady(t *testing.T) {
	cases := []struct {
		state string
		want  bool
	}{
		{"loading", false},
		{"interactive", true},
		{"complete", true},
		{"", false},
	}
	for _, tc := range cases {
		if got := documentReady(tc.state); got != tc.want {
			t.Fatalf("documentReady(%q) = %v, want %v", tc.state, got, tc.want)
		}
	}
}
