package fingerprint

import (
	"strings"
	"testing"
	"time"
)

func TestSourceDeterminism(t *testing.T) {
	a := NewSource(42)
	b := NewSource(42)
	for i := 0; i < 20; i++ {
		if ua, ub := a.UserAgent(), b.UserAgent(); ua != ub {
			t.Fatalf("draw %d diverged: %q vs %q", i, ua, ub)
		}
	}
}

func TestUserAgentFromPool(t *testing.T) {
	src := NewSource(1)
	for i := 0; i < 50; i++ {
		ua := src.UserAgent()
		if !strings.HasPrefix(ua, "Mozilla/5.0") {
			t.Fatalf("unexpected user agent %q", ua)
		}
	}
}

func TestUserAgentExcluding(t *testing.T) {
	src := NewSource(3)

	used := map[string]bool{}
	for _, ua := range userAgents[1:] {
		used[ua] = true
	}
	for i := 0; i < 5; i++ {
		if got := src.UserAgentExcluding(used); got != userAgents[0] {
			t.Fatalf("got %q, want the only unused agent", got)
		}
	}

	used[userAgents[0]] = true
	if got := src.UserAgentExcluding(used); got == "" {
		t.Fatalf("exhausted pool must still yield an agent")
	}
}

func TestDelayBounds(t *testing.T) {
	src := NewSource(7)
	min, max := 100*time.Millisecond, 300*time.Millisecond
	for i := 0; i < 100; i++ {
		d := src.Delay(min, max)
		if d < min || d > max {
			t.Fatalf("delay %v outside [%v, %v]", d, min, max)
		}
	}
	if d := src.Delay(max, min); d != max {
		t.Fatalf("inverted range should return min, got %v", d)
	}
}

func TestHeadersBaseSet(t *testing.T) {
	src := NewSource(3)
	h := Headers(AttemptContext{Attempt: 0, UserAgent: "test-ua"}, src)

	if h["User-Agent"] != "test-ua" {
		t.Fatalf("User-Agent = %q", h["User-Agent"])
	}
	for _, key := range []string{"Accept", "Accept-Language", "Sec-Fetch-Dest", "Sec-Fetch-Site", "DNT", "Cache-Control"} {
		if h[key] == "" {
			t.Fatalf("missing header %s", key)
		}
	}
	if _, ok := h["X-Requested-With"]; ok {
		t.Fatalf("attempt 0 must not carry X-Requested-With")
	}
}

func TestHeadersAttemptVariation(t *testing.T) {
	src := NewSource(3)

	h1 := Headers(AttemptContext{Attempt: 1, UserAgent: "ua"}, src)
	if h1["X-Requested-With"] != "XMLHttpRequest" {
		t.Fatalf("attempt 1 missing X-Requested-With, got %q", h1["X-Requested-With"])
	}

	h2 := Headers(AttemptContext{Attempt: 2, UserAgent: "ua"}, src)
	if h2["Accept-Language"] != "en-US,en;q=0.9" {
		t.Fatalf("attempt 2 Accept-Language = %q", h2["Accept-Language"])
	}
	for _, key := range []string{"Sec-CH-UA", "Sec-CH-UA-Mobile", "Sec-CH-UA-Platform"} {
		if h2[key] == "" {
			t.Fatalf("attempt 2 missing %s", key)
		}
	}
}
