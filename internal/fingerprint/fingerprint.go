// Package fingerprint builds per-attempt request identities: user
// agent, headers, referrer, language, and timing jitter. Repeating an
// identical fingerprint across attempts is itself a block signal, so
// every attempt draws fresh values and varies a few headers by attempt
// index.
package fingerprint

import (
	"math/rand"
	"sync"
	"time"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36 Edg/121.0.0.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
}

var referrers = []string{
	"https://www.google.it/",
	"https://www.google.com/",
	"https://www.tripadvisor.it/",
	"https://www.tripadvisor.com/",
	"https://www.booking.com/",
	"",
}

var languages = []string{
	"it-IT,it;q=0.9,en-US;q=0.8,en;q=0.7",
	"en-US,en;q=0.9,it;q=0.8",
	"it-IT,it;q=0.9,en;q=0.8",
	"en-US,en;q=0.9",
}

// AttemptContext is the ephemeral identity for one fetch attempt. It is
// created fresh per attempt and never reused.
type AttemptContext struct {
	Attempt   int
	TimeoutMs int
	UserAgent string
}

// Source is a seedable random source shared by one pipeline. Tests
// inject a fixed seed to make user-agent draws and delays
// deterministic.
type Source struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSource(seed int64) *Source {
	return &Source{rnd: rand.New(rand.NewSource(seed))}
}

// NewTimeSource seeds from the wall clock, the production default.
func NewTimeSource() *Source {
	return NewSource(time.Now().UnixNano())
}

func (s *Source) pick(pool []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pool[s.rnd.Intn(len(pool))]
}

func (s *Source) UserAgent() string { return s.pick(userAgents) }

// UserAgentExcluding draws a user agent outside used, so retry attempts
// present pairwise-distinct identities. Once the pool is exhausted it
// falls back to a plain draw.
func (s *Source) UserAgentExcluding(used map[string]bool) string {
	avail := make([]string, 0, len(userAgents))
	for _, ua := range userAgents {
		if !used[ua] {
			avail = append(avail, ua)
		}
	}
	if len(avail) == 0 {
		return s.UserAgent()
	}
	return s.pick(avail)
}
func (s *Source) Referrer() string  { return s.pick(referrers) }
func (s *Source) Language() string  { return s.pick(languages) }

// Chance returns true with probability p.
func (s *Source) Chance(p float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64() < p
}

// Delay returns a random duration in [min, max].
func (s *Source) Delay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + time.Duration(s.rnd.Int63n(int64(max-min)+1))
}

// Headers builds the realistic header set for one attempt. Language,
// referrer, DNT, Sec-Fetch-Site, Cache-Control, and Pragma vary per
// call; attempt index adds further variation so consecutive attempts
// never present the same shape.
func Headers(ctx AttemptContext, src *Source) map[string]string {
	h := map[string]string{
		"User-Agent":                ctx.UserAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
		"Accept-Language":           src.Language(),
		"Accept-Encoding":           "gzip, deflate, br",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-User":            "?1",
	}

	if src.Chance(0.5) {
		h["DNT"] = "1"
	} else {
		h["DNT"] = "0"
	}
	if src.Chance(0.5) {
		h["Sec-Fetch-Site"] = "cross-site"
	} else {
		h["Sec-Fetch-Site"] = "none"
	}
	if src.Chance(0.5) {
		h["Cache-Control"] = "max-age=0"
	} else {
		h["Cache-Control"] = "no-cache"
	}
	if src.Chance(0.7) {
		h["Pragma"] = "no-cache"
	}
	if ref := src.Referrer(); ref != "" {
		h["Referer"] = ref
	}

	switch ctx.Attempt {
	case 1:
		h["X-Requested-With"] = "XMLHttpRequest"
	case 2:
		h["Accept-Language"] = "en-US,en;q=0.9"
		h["Sec-CH-UA"] = `"Google Chrome";v="119", "Chromium";v="119", "Not?A_Brand";v="24"`
		h["Sec-CH-UA-Mobile"] = "?0"
		h["Sec-CH-UA-Platform"] = `"Windows"`
	}

	return h
}
