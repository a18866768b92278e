package scraper

import (
	"errors"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// trackerHosts are third-party hosts the rendered strategies refuse to
// load. Blocking them cuts render time and avoids feeding analytics
// beacons.
var trackerHosts = []string{
	"google-analytics.com",
	"googletagmanager.com",
	"doubleclick.net",
	"facebook.net",
	"hotjar.com",
}

// BrowserHandle owns the process-wide headless browser used by the rod
// strategy. Launch is lazy: the first Acquire boots Chromium, later
// calls reuse the live connection. The stealth strategy deliberately
// bypasses this and launches per attempt.
type BrowserHandle struct {
	mu      sync.Mutex
	browser *rod.Browser
	lnchr   *launcher.Launcher
	closed  bool
}

var sharedHandle = &BrowserHandle{}

// Shared returns the process-wide handle.
func Shared() *BrowserHandle { return sharedHandle }

func launchFlags(l *launcher.Launcher) *launcher.Launcher {
	return l.Headless(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-gpu").
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("window-size", "1920,1080").
		Set("lang", "it-IT")
}

func (h *BrowserHandle) Acquire() (*rod.Browser, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, errors.New("browser handle closed")
	}
	if h.browser != nil {
		return h.browser, nil
	}

	l := launchFlags(launcher.New())
	u, err := l.Launch()
	if err != nil {
		return nil, &RenderError{Stage: "launch", Err: err}
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, &RenderError{Stage: "connect", Err: err}
	}

	h.lnchr = l
	h.browser = b
	return b, nil
}

// Drop discards a dead connection so the next Acquire relaunches. Safe
// to call with any browser; only the currently held one is dropped.
func (h *BrowserHandle) Drop(b *rod.Browser) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.browser != b {
		return
	}
	_ = h.browser.Close()
	if h.lnchr != nil {
		h.lnchr.Kill()
		h.lnchr = nil
	}
	h.browser = nil
}

// Ready reports whether a browser can be acquired. The health endpoint
// uses it as the rendering capability probe.
func (h *BrowserHandle) Ready() bool {
	_, err := h.Acquire()
	return err == nil
}

// Close tears the browser down and refuses further Acquires.
// Idempotent; called on shutdown.
func (h *BrowserHandle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	if h.browser != nil {
		_ = h.browser.Close()
		h.browser = nil
	}
	if h.lnchr != nil {
		h.lnchr.Kill()
		h.lnchr = nil
	}
}
