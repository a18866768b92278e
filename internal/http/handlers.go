package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"tavola/internal/config"
	"tavola/internal/model"
)

// Scraper is the pipeline surface the handlers need.
type Scraper interface {
	Scrape(ctx context.Context, url string, opts model.ScrapeOptions) model.ScrapeResult
	Engine() string
	Capability() model.ServiceStatus
}

var startTime = time.Now()

// statusForKind maps a scrape failure onto an HTTP status. Blocked and
// forbidden map to 403 so callers can tell anti-bot pushback from
// service faults.
func statusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.ErrInvalidInput:
		return fiber.StatusBadRequest
	case model.ErrBlockedByTarget, model.ErrForbidden:
		return fiber.StatusForbidden
	case model.ErrTimeout:
		return fiber.StatusRequestTimeout
	case model.ErrRateLimited, model.ErrUpstreamServer, model.ErrNetworkUnreachable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// scrapeHandler runs one scrape, racing the pipeline against the
// server's request budget so a stuck browser can never hold an HTTP
// connection open indefinitely.
func scrapeHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)
	pipe := c.Locals("pipeline").(Scraper)

	var req ScrapeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorEnvelope("malformed JSON body"))
	}

	budget := time.Duration(cfg.Server.RequestBudgetMs) * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	done := make(chan model.ScrapeResult, 1)
	go func() { done <- pipe.Scrape(ctx, req.URL, req.Options) }()

	var res model.ScrapeResult
	select {
	case res = <-done:
	case <-ctx.Done():
		return c.Status(fiber.StatusRequestTimeout).JSON(errorEnvelope("scrape did not finish within the request budget"))
	}

	if res.Success {
		return c.JSON(envelope(res.Data))
	}

	resp := errorEnvelope(res.Error)
	resp.Data = ScrapeFailure{
		ErrorKind:        res.ErrorKind,
		Detail:           res.Detail,
		Suggestion:       res.Suggestion,
		ProcessingTimeMs: res.ProcessingTimeMs,
	}
	return c.Status(statusForKind(res.ErrorKind)).JSON(resp)
}

func healthHandler(c *fiber.Ctx) error {
	pipe := c.Locals("pipeline").(Scraper)

	scraperStatus := pipe.Capability()
	status := "healthy"
	if scraperStatus != model.StatusOperational {
		status = "degraded"
	}

	return c.JSON(model.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		UptimeSec: int64(time.Since(startTime).Seconds()),
		Version:   apiVersion,
		Services: map[string]model.ServiceStatus{
			"api":     model.StatusOperational,
			"scraper": scraperStatus,
		},
	})
}

func infoHandler(c *fiber.Ctx) error {
	pipe := c.Locals("pipeline").(Scraper)

	return c.JSON(envelope(fiber.Map{
		"name":   "tavola",
		"engine": pipe.Engine(),
		"endpoints": []string{
			"POST /v1/scrape",
			"GET /v1/info",
			"GET /v1/config",
			"GET /healthz",
			"GET /metrics",
		},
	}))
}

// configHandler exposes the non-secret runtime configuration so
// operators can confirm what a deployment is running without shell
// access.
func configHandler(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)
	pipe := c.Locals("pipeline").(Scraper)

	return c.JSON(envelope(fiber.Map{
		"engine":           pipe.Engine(),
		"timeoutMs":        cfg.Scraper.TimeoutMs,
		"retries":          cfg.Scraper.Retries,
		"overallBudgetMs":  cfg.Scraper.OverallBudgetMs,
		"selectorsVersion": selectorsVersion(cfg),
		"defaults":         cfg.Defaults,
	}))
}

func selectorsVersion(cfg *config.Config) string {
	if cfg.Selectors.Version != "" {
		return cfg.Selectors.Version
	}
	return "builtin"
}
