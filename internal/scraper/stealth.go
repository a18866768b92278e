package scraper

import (
	"context"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"tavola/internal/fingerprint"
)

// StealthFetcher launches a fresh browser for every attempt and
// injects the stealth evasion script before navigation. Paying browser
// startup per attempt buys a profile with no cross-attempt state, which
// matters once the target has started challenging the shared browser.
type StealthFetcher struct {
	Settle time.Duration
	Src    *fingerprint.Source
}

func NewStealthFetcher(settle time.Duration, src *fingerprint.Source) *StealthFetcher {
	return &StealthFetcher{Settle: settle, Src: src}
}

func (f *StealthFetcher) Name() string { return "rod-stealth" }

// Ready probes for a launchable browser binary without starting one.
// This strategy boots its own browser per attempt, so a present binary
// is the whole capability.
func (f *StealthFetcher) Ready() bool {
	_, has := launcher.LookPath()
	return has
}

func (f *StealthFetcher) Fetch(ctx context.Context, pageURL string, attempt fingerprint.AttemptContext) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}

	l := launchFlags(launcher.New())
	controlURL, err := l.Launch()
	if err != nil {
		return "", &RenderError{Stage: "launch", Err: err}
	}
	defer l.Kill()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", &RenderError{Stage: "connect", Err: err}
	}
	defer func() { _ = browser.Close() }()

	page, err := stealth.Page(browser)
	if err != nil {
		return "", &RenderError{Stage: "page", Err: err}
	}
	defer func() { _ = page.Close() }()

	return renderPage(ctx, page, u.String(), attempt, f.Settle, f.Src)
}
