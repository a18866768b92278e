package detector

import (
	"strings"
	"testing"
)

// listingPage builds a plausible listing document padded to at least
// size bytes.
func listingPage(size int) string {
	page := `<html><head><title>Trattoria del Porto, Gallipoli - Menu e recensioni</title></head><body>` +
		`<h1 class="biGQs _P hzzSG rRtyp">Trattoria del Porto</h1>` +
		`<div data-test-target="restaurant-detail-overview">Cucina pugliese e di mare nel cuore di Gallipoli.</div>`
	for len(page) < size {
		page += "<!-- pad -->"
	}
	return page + "</body></html>"
}

func TestDetectGenuinePage(t *testing.T) {
	v := Detect(listingPage(3000), Config{MinLength: 3000})
	if v.Blocked {
		t.Fatalf("expected genuine page, got blocked: %s", v.Reason)
	}
}

func TestDetectTooShort(t *testing.T) {
	v := Detect("<html><body>ciao</body></html>", Config{MinLength: 3000})
	if !v.Blocked {
		t.Fatalf("expected short page to be blocked")
	}
	if v.Category != "short" {
		t.Fatalf("expected category short, got %q (%s)", v.Category, v.Reason)
	}
}

// A page with genuine landmarks is still rejected when it is shorter
// than the plain-HTTP threshold: block interstitials sometimes echo
// listing markup.
func TestDetectShortDespiteLandmarks(t *testing.T) {
	page := listingPage(1500)
	if len(page) >= 3000 {
		t.Fatalf("fixture too large: %d", len(page))
	}
	v := Detect(page, Config{MinLength: 3000})
	if !v.Blocked || v.Category != "short" {
		t.Fatalf("expected short verdict, got %+v", v)
	}
}

func TestDetectTitlePhrase(t *testing.T) {
	page := `<html><head><title>Access Denied</title></head><body>` +
		strings.Repeat("<p>x</p>", 20) + `</body></html>`
	v := Detect(page, Config{MinLength: 10})
	if !v.Blocked || v.Category != "phrase" {
		t.Fatalf("expected phrase verdict, got %+v", v)
	}
	if !strings.Contains(v.Reason, "title") {
		t.Fatalf("expected title reason, got %q", v.Reason)
	}
}

func TestDetectBodyPhrase(t *testing.T) {
	page := `<html><head><title>Un momento</title></head><body>` +
		`<p>Please complete the CAPTCHA to continue.</p></body></html>`
	v := Detect(page, Config{MinLength: 10})
	if !v.Blocked || v.Category != "phrase" {
		t.Fatalf("expected phrase verdict, got %+v", v)
	}
}

// Challenge markers hide in attributes, not body text, and must be
// caught even when the page carries listing landmarks.
func TestDetectChallengeMarker(t *testing.T) {
	page := `<html><head><title>Un momento</title></head><body>` +
		`<h1>Quasi fatto</h1><div id="captcha-delive-frame"></div></body></html>`
	v := Detect(page, Config{MinLength: 10})
	if !v.Blocked || v.Category != "challenge" {
		t.Fatalf("expected challenge verdict, got %+v", v)
	}
}

func TestDetectBareTitleInterstitial(t *testing.T) {
	page := `<html><head><title>tripadvisor.it</title></head><body><h1>Benvenuto</h1></body></html>`
	v := Detect(page, Config{MinLength: 10})
	if !v.Blocked || v.Category != "challenge" {
		t.Fatalf("expected challenge verdict, got %+v", v)
	}
}

func TestDetectMissingLandmarks(t *testing.T) {
	page := `<html><head><title>Pagina</title></head><body>` +
		strings.Repeat("<div>testo generico</div>", 10) + `</body></html>`
	v := Detect(page, Config{MinLength: 10})
	if !v.Blocked || v.Category != "landmarks" {
		t.Fatalf("expected landmarks verdict, got %+v", v)
	}
}

func TestDetectCustomLandmarks(t *testing.T) {
	page := `<html><head><title>Pagina</title></head><body>` +
		`<section class="listing-root">contenuto</section></body></html>`
	v := Detect(page, Config{MinLength: 10, Landmarks: []string{".listing-root"}})
	if v.Blocked {
		t.Fatalf("expected custom landmark to pass, got %+v", v)
	}
}

// Phrase scanning runs before the interstitial special case, so a
// challenge page that also says "blocked" reports the phrase.
func TestDetectPhraseBeforeChallenge(t *testing.T) {
	page := `<html><head><title>Request blocked</title></head><body>` +
		`<div id="cf-challenge"></div></body></html>`
	v := Detect(page, Config{MinLength: 10})
	if !v.Blocked || v.Category != "phrase" {
		t.Fatalf("expected phrase verdict, got %+v", v)
	}
}
