package scraper

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"tavola/internal/fingerprint"
)

// RodFetcher renders pages in the shared headless browser. Each attempt
// gets a fresh page and user-agent override; the browser itself
// persists across attempts and requests.
type RodFetcher struct {
	Handle *BrowserHandle
	Settle time.Duration
	Src    *fingerprint.Source
}

func NewRodFetcher(handle *BrowserHandle, settle time.Duration, src *fingerprint.Source) *RodFetcher {
	return &RodFetcher{Handle: handle, Settle: settle, Src: src}
}

func (f *RodFetcher) Name() string { return "rod" }

// Ready reports whether the shared browser can serve a page. The
// health endpoint uses it as the rendering capability probe.
func (f *RodFetcher) Ready() bool { return f.Handle.Ready() }

func (f *RodFetcher) Fetch(ctx context.Context, pageURL string, attempt fingerprint.AttemptContext) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}

	browser, err := f.Handle.Acquire()
	if err != nil {
		return "", err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		// A failed page create usually means the browser process
		// died; drop it so the next attempt relaunches.
		f.Handle.Drop(browser)
		return "", &RenderError{Stage: "page", Err: err}
	}
	defer func() { _ = page.Close() }()

	return renderPage(ctx, page, u.String(), attempt, f.Settle, f.Src)
}

// renderPage drives one page through user-agent override, asset
// blocking, navigation, and a settle window, then returns the rendered
// document. Shared by the rod and stealth strategies.
func renderPage(ctx context.Context, page *rod.Page, pageURL string, attempt fingerprint.AttemptContext, settle time.Duration, src *fingerprint.Source) (string, error) {
	page = page.Context(ctx)

	if attempt.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      attempt.UserAgent,
			AcceptLanguage: src.Language(),
		}); err != nil {
			return "", &RenderError{Stage: "page", Err: err}
		}
	}

	router := page.HijackRequests()
	err := router.Add("*", "", func(h *rod.Hijack) {
		switch h.Request.Type() {
		case proto.NetworkResourceTypeImage, proto.NetworkResourceTypeFont, proto.NetworkResourceTypeMedia:
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		host := h.Request.URL().Host
		for _, tracker := range trackerHosts {
			if strings.HasSuffix(host, tracker) {
				h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err == nil {
		go router.Run()
		defer func() { _ = router.Stop() }()
	}

	if err := page.Navigate(pageURL); err != nil {
		return "", &RenderError{Stage: "navigate", Err: err}
	}

	// The load event is the strict readiness signal. Pages that stream
	// beacons past it can fail the wait, so fall back to polling for a
	// parsed document before relying on the settle window.
	if err := page.WaitLoad(); err != nil {
		waitDocumentReady(ctx, page)
	}

	// Nudge lazy-loaded sections into the DOM. The scroll depth varies
	// so consecutive attempts do not replay identical interaction.
	if src.Chance(0.5) {
		_, _ = page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	} else {
		_, _ = page.Eval(`() => window.scrollTo(0, document.body.scrollHeight / 2)`)
	}

	select {
	case <-time.After(settle):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	html, err := page.HTML()
	if err != nil {
		return "", &RenderError{Stage: "html", Err: err}
	}
	return html, nil
}

// documentReady reports whether a readyState value means the document
// has at least been parsed.
func documentReady(state string) bool {
	return state == "interactive" || state == "complete"
}

// waitDocumentReady polls document.readyState until the document is
// parsed or ctx expires. Looser fallback for pages whose load event
// never fires.
func waitDocumentReady(ctx context.Context, page *rod.Page) {
	for {
		if res, err := page.Eval(`() => document.readyState`); err == nil && documentReady(res.Value.Str()) {
			return
		}
		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			return
		}
	}
}
