package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tavola/internal/config"
	"tavola/internal/model"
)

type stubPipeline struct {
	res    model.ScrapeResult
	status model.ServiceStatus
}

func (s *stubPipeline) Scrape(ctx context.Context, url string, opts model.ScrapeOptions) model.ScrapeResult {
	return s.res
}

func (s *stubPipeline) Engine() string { return "http" }

func (s *stubPipeline) Capability() model.ServiceStatus {
	if s.status == "" {
		return model.StatusOperational
	}
	return s.status
}

func successResult() model.ScrapeResult {
	return model.ScrapeResult{
		Success: true,
		Data: &model.ExtractedListing{
			Name:     "Trattoria Nina",
			Rating:   "4.5",
			Cuisine:  "pugliese",
			Cuisines: []string{"pugliese"},
		},
		ProcessingTimeMs: 12,
	}
}

func postScrape(t *testing.T, srv *Server, body string, headers map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/scrape", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) model.APIResponse {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var env model.APIResponse
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, raw)
	}
	return env
}

func TestScrapeEndpointSuccess(t *testing.T) {
	srv := NewServer(config.Default(), &stubPipeline{res: successResult()}, nil)

	resp := postScrape(t, srv, `{"url":"https://www.tripadvisor.it/Restaurant_Review-x.html"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	env := decodeEnvelope(t, resp)
	if !env.Success {
		t.Fatalf("expected success envelope: %+v", env)
	}
	if env.Version != apiVersion || env.Timestamp == "" {
		t.Fatalf("envelope meta = %q %q", env.Version, env.Timestamp)
	}
	data, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("data type %T", env.Data)
	}
	if data["name"] != "Trattoria Nina" {
		t.Fatalf("data.name = %v", data["name"])
	}
}

func TestScrapeEndpointMalformedJSON(t *testing.T) {
	srv := NewServer(config.Default(), &stubPipeline{res: successResult()}, nil)

	resp := postScrape(t, srv, `{"url": `, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestScrapeEndpointFailureMapping(t *testing.T) {
	cases := []struct {
		kind model.ErrorKind
		want int
	}{
		{model.ErrInvalidInput, http.StatusBadRequest},
		{model.ErrBlockedByTarget, http.StatusForbidden},
		{model.ErrForbidden, http.StatusForbidden},
		{model.ErrTimeout, http.StatusRequestTimeout},
		{model.ErrRateLimited, http.StatusServiceUnavailable},
		{model.ErrUpstreamServer, http.StatusServiceUnavailable},
		{model.ErrNetworkUnreachable, http.StatusServiceUnavailable},
		{model.ErrRenderingFailure, http.StatusInternalServerError},
		{model.ErrUnknown, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		stub := &stubPipeline{res: model.ScrapeResult{
			ErrorKind:  tc.kind,
			Error:      "boom",
			Suggestion: "try later",
		}}
		srv := NewServer(config.Default(), stub, nil)

		resp := postScrape(t, srv, `{"url":"https://www.tripadvisor.it/x.html"}`, nil)
		if resp.StatusCode != tc.want {
			t.Fatalf("%s: status = %d, want %d", tc.kind, resp.StatusCode, tc.want)
		}

		env := decodeEnvelope(t, resp)
		if env.Success {
			t.Fatalf("%s: expected failure envelope", tc.kind)
		}
		data, ok := env.Data.(map[string]any)
		if !ok {
			t.Fatalf("%s: data type %T", tc.kind, env.Data)
		}
		if data["errorKind"] != string(tc.kind) {
			t.Fatalf("%s: errorKind = %v", tc.kind, data["errorKind"])
		}
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.Enabled = true
	cfg.Auth.APIKey = "sekret"
	srv := NewServer(cfg, &stubPipeline{res: successResult()}, nil)

	resp := postScrape(t, srv, `{"url":"https://www.tripadvisor.it/x.html"}`, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing key: status = %d", resp.StatusCode)
	}

	resp = postScrape(t, srv, `{"url":"https://www.tripadvisor.it/x.html"}`, map[string]string{"X-API-Key": "sekret"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valid key: status = %d", resp.StatusCode)
	}

	// Health stays open even with auth on.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	hr, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if hr.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", hr.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := NewServer(config.Default(), &stubPipeline{status: model.StatusDegraded}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var health model.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "degraded" {
		t.Fatalf("status = %q", health.Status)
	}
	if health.Services["scraper"] != model.StatusDegraded {
		t.Fatalf("scraper = %q", health.Services["scraper"])
	}
	if health.Services["api"] != model.StatusOperational {
		t.Fatalf("api = %q", health.Services["api"])
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := NewServer(config.Default(), &stubPipeline{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/v1/scrape", nil)
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS origin header")
	}
	if !strings.Contains(resp.Header.Get("Access-Control-Allow-Headers"), "X-API-Key") {
		t.Fatalf("allow-headers = %q", resp.Header.Get("Access-Control-Allow-Headers"))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewServer(config.Default(), &stubPipeline{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "tavola_http_requests_total") {
		t.Fatalf("metrics output missing counter: %s", body)
	}
}

func TestInfoEndpoint(t *testing.T) {
	srv := NewServer(config.Default(), &stubPipeline{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/info", nil)
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	env := decodeEnvelope(t, resp)
	data, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("data type %T", env.Data)
	}
	if data["engine"] != "http" {
		t.Fatalf("engine = %v", data["engine"])
	}
}
