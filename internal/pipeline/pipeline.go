// Package pipeline orchestrates one scrape end to end: input
// validation, paced fetch attempts with rotating fingerprints, block
// detection, and extraction, all inside an overall time budget.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"tavola/internal/config"
	"tavola/internal/detector"
	"tavola/internal/extract"
	"tavola/internal/fingerprint"
	"tavola/internal/metrics"
	"tavola/internal/model"
	"tavola/internal/scraper"
)

type Pipeline struct {
	cfg     *config.Config
	fetcher scraper.Fetcher
	ext     extract.Extractor
	src     *fingerprint.Source
	log     *slog.Logger
}

func New(cfg *config.Config, fetcher scraper.Fetcher, ext extract.Extractor, src *fingerprint.Source, logger *slog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, fetcher: fetcher, ext: ext, src: src, log: logger}
}

// Engine returns the active fetch strategy's name.
func (p *Pipeline) Engine() string { return p.fetcher.Name() }

// Capability reports whether the active strategy can serve requests.
// Strategies with external requirements expose their own Ready probe;
// plain HTTP always works.
func (p *Pipeline) Capability() model.ServiceStatus {
	if probe, ok := p.fetcher.(interface{ Ready() bool }); ok && !probe.Ready() {
		return model.StatusDegraded
	}
	return model.StatusOperational
}

func validateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("url must be an absolute http(s) URL")
	}
	if !strings.Contains(strings.ToLower(u.Hostname()), "tripadvisor.") {
		return fmt.Errorf("url must point to a tripadvisor listing")
	}
	return nil
}

// Scrape runs one invocation. It always returns a ScrapeResult; fetch
// and render errors are classified, never propagated. The overall
// budget is enforced by racing the attempt loop against the deadline,
// so a hung attempt cannot stall the caller past the budget.
func (p *Pipeline) Scrape(ctx context.Context, rawURL string, opts model.ScrapeOptions) model.ScrapeResult {
	start := time.Now()

	if err := validateURL(rawURL); err != nil {
		metrics.RecordResult(p.fetcher.Name(), string(model.ErrInvalidInput))
		return model.ScrapeResult{
			ErrorKind:        model.ErrInvalidInput,
			Error:            err.Error(),
			Suggestion:       "Provide a full listing URL such as https://www.tripadvisor.it/Restaurant_Review-g187871-d123456-Reviews-Example.html",
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		}
	}

	budget := time.Duration(p.cfg.Scraper.OverallBudgetMs) * time.Millisecond
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	done := make(chan model.ScrapeResult, 1)
	go func() { done <- p.run(ctx, rawURL, opts, start) }()

	var res model.ScrapeResult
	select {
	case res = <-done:
	case <-ctx.Done():
		p.log.Warn("scrape budget exhausted", "url", rawURL, "budget_ms", p.cfg.Scraper.OverallBudgetMs)
		res = p.timeoutResult(start)
	}

	kind := "success"
	if !res.Success {
		kind = string(res.ErrorKind)
	}
	metrics.RecordResult(p.fetcher.Name(), kind)
	return res
}

func (p *Pipeline) timeoutResult(start time.Time) model.ScrapeResult {
	return model.ScrapeResult{
		ErrorKind:        model.ErrTimeout,
		Error:            "scrape did not finish within the overall budget",
		Suggestion:       "Increase the overall budget, or lower retries so attempts fit inside it.",
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
}

func (p *Pipeline) run(ctx context.Context, pageURL string, opts model.ScrapeOptions, start time.Time) model.ScrapeResult {
	cfg := p.cfg.Scraper
	engine := p.fetcher.Name()

	retries := cfg.Retries
	if opts.Retries != nil && *opts.Retries >= 0 {
		retries = *opts.Retries
	}
	timeoutMs := cfg.TimeoutMs
	if opts.TimeoutMs > 0 {
		timeoutMs = opts.TimeoutMs
	}
	// Per-attempt timeouts are clamped so every attempt fits inside
	// the overall budget and the loop terminates with a classified
	// result instead of hitting the outer deadline.
	if maxPer := cfg.OverallBudgetMs / (retries + 1); timeoutMs > maxPer {
		timeoutMs = maxPer
	}

	// Pause briefly before the first request. A fetch that lands the
	// instant the API call arrives looks scripted.
	initial := p.src.Delay(
		time.Duration(cfg.InitialDelayMinMs)*time.Millisecond,
		time.Duration(cfg.InitialDelayMaxMs)*time.Millisecond,
	)
	if p.sleep(ctx, initial) != nil {
		return p.timeoutResult(start)
	}

	var lastFailure failure
	var lastVerdict detector.Verdict
	lastBlocked := false
	usedAgents := map[string]bool{}

	for attempt := 0; attempt <= retries; attempt++ {
		ua := opts.UserAgent
		if ua == "" {
			ua = cfg.UserAgent
		}
		if ua == "" {
			// Unpinned attempts never repeat an agent already presented
			// in this call while the pool lasts.
			ua = p.src.UserAgentExcluding(usedAgents)
			usedAgents[ua] = true
		}

		attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
		html, err := p.fetcher.Fetch(attemptCtx, pageURL, fingerprint.AttemptContext{
			Attempt:   attempt,
			TimeoutMs: timeoutMs,
			UserAgent: ua,
		})
		cancel()

		if err != nil {
			lastFailure = classify(err)
			lastBlocked = false
			metrics.RecordAttempt(engine, "error")
			p.log.Warn("fetch attempt failed", "url", pageURL, "attempt", attempt, "error", err)
			if attempt < retries {
				base := time.Duration(cfg.ErrorBackoffBaseMs*(attempt+1)) * time.Millisecond
				if p.sleep(ctx, p.src.Delay(base, 2*base)) != nil {
					return p.timeoutResult(start)
				}
			}
			continue
		}

		minLen := cfg.MinHTMLLength
		if engine != "http" {
			minLen = cfg.MinRenderedLength
		}
		verdict := detector.Detect(html, detector.Config{
			MinLength: minLen,
			Landmarks: p.cfg.Selectors.Landmarks,
		})
		if verdict.Blocked {
			lastVerdict = verdict
			lastBlocked = true
			metrics.RecordAttempt(engine, "blocked")
			metrics.RecordBlockVerdict(verdict.Category)
			p.log.Warn("block detected", "url", pageURL, "attempt", attempt, "reason", verdict.Reason)
			if attempt < retries {
				base := time.Duration(cfg.BlockBackoffBaseMs+cfg.BlockBackoffStepMs*attempt) * time.Millisecond
				jitter := p.src.Delay(0, time.Duration(cfg.BlockBackoffJitterMs)*time.Millisecond)
				if p.sleep(ctx, base+jitter) != nil {
					return p.timeoutResult(start)
				}
			}
			continue
		}

		metrics.RecordAttempt(engine, "ok")
		listing := p.ext.Extract(html, pageURL)
		p.log.Info("scrape succeeded", "url", pageURL, "attempt", attempt, "name", listing.Name)
		return model.ScrapeResult{
			Success:          true,
			Data:             &listing,
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		}
	}

	// All attempts used. The last attempt decides how the failure is
	// reported: a block verdict outranks earlier transport errors and
	// vice versa.
	if lastBlocked {
		return model.ScrapeResult{
			ErrorKind:        model.ErrBlockedByTarget,
			Error:            "the target site blocked every attempt",
			Detail:           lastVerdict.Reason,
			Suggestion:       "Wait a few minutes before retrying, or switch to the rod-stealth engine.",
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		}
	}
	return model.ScrapeResult{
		ErrorKind:        lastFailure.kind,
		Error:            lastFailure.message,
		Detail:           lastFailure.detail,
		Suggestion:       lastFailure.suggestion,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
}

// sleep waits for d or until ctx is done, whichever comes first.
func (p *Pipeline) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
