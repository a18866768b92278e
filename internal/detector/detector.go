// Package detector classifies a fetched page body as genuine listing
// content or a block/challenge response. Rules run cheapest first:
// length, then keyword scans, then the structural landmark check, so
// obviously bad payloads fail fast.
package detector

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Verdict is the classification of one page body. Reason and Category
// are always set when Blocked is true; Reason is free-form for humans,
// Category is bounded for metric labels.
type Verdict struct {
	Blocked  bool   `json:"blocked"`
	Reason   string `json:"reason,omitempty"`
	Category string `json:"category,omitempty"`
}

// blockPhrases are scanned case-insensitively in the page title and
// body text. Any hit flags the page.
var blockPhrases = []string{
	"blocked", "captcha", "security", "access denied", "forbidden",
	"bot detected", "suspicious activity", "verification required",
	"cloudflare", "rate limit", "too many requests",
	"temporarily unavailable", "challenge",
}

// challengeMarkers identify the target CDN's interstitial challenge
// page even when it avoids the generic phrases above.
var challengeMarkers = []string{"captcha-delive", "cf-challenge"}

// bareTitles are the page titles the challenge interstitial ships with
// instead of a listing name.
var bareTitles = []string{"tripadvisor.it", "tripadvisor.com", "tripadvisor"}

// DefaultLandmarks are the content containers a genuine listing page is
// expected to carry. Selector drift makes these configuration in
// practice; callers can override via Config.
var DefaultLandmarks = []string{
	"h1",
	".biGQs._P.hzzSG.rRtyp",
	".HjBfq",
	"[data-test-target]",
}

// Config tunes the detector per fetch strategy. MinLength is higher for
// plain-HTTP payloads than for rendered documents, which arrive
// pre-stripped of heavy assets.
type Config struct {
	MinLength int
	Landmarks []string
}

// Detect classifies html. Rules are evaluated in order and the first
// match wins.
func Detect(html string, cfg Config) Verdict {
	landmarks := cfg.Landmarks
	if len(landmarks) == 0 {
		landmarks = DefaultLandmarks
	}

	if len(html) < cfg.MinLength {
		return Verdict{Blocked: true, Reason: fmt.Sprintf("page too short (%d chars)", len(html)), Category: "short"}
	}

	lower := strings.ToLower(html)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// Unparseable payloads never contain listing landmarks.
		return Verdict{Blocked: true, Reason: "missing expected content landmarks", Category: "landmarks"}
	}

	title := strings.ToLower(strings.TrimSpace(doc.Find("title").First().Text()))

	for _, phrase := range blockPhrases {
		if strings.Contains(title, phrase) {
			return Verdict{Blocked: true, Reason: fmt.Sprintf("title contains %q", phrase), Category: "phrase"}
		}
	}

	bodyText := strings.ToLower(doc.Find("body").Text())
	for _, phrase := range blockPhrases {
		if strings.Contains(bodyText, phrase) {
			return Verdict{Blocked: true, Reason: fmt.Sprintf("body contains %q", phrase), Category: "phrase"}
		}
	}

	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return Verdict{Blocked: true, Reason: "interstitial challenge detected", Category: "challenge"}
		}
	}
	for _, bare := range bareTitles {
		if title == bare && len(html) < 5000 {
			return Verdict{Blocked: true, Reason: "interstitial challenge detected", Category: "challenge"}
		}
	}

	for _, sel := range landmarks {
		if doc.Find(sel).Length() > 0 {
			return Verdict{}
		}
	}
	return Verdict{Blocked: true, Reason: "missing expected content landmarks", Category: "landmarks"}
}
