package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for HTTP and scrape activity.
// This is intentionally minimal and in-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	scrapeAttempts = make(map[attemptKey]int64)
	scrapeResults  = make(map[resultKey]int64)
	blockVerdicts  = make(map[string]int64)
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

type attemptKey struct {
	Engine  string
	Outcome string
}

type resultKey struct {
	Engine string
	Kind   string
}

// RecordRequest increments request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordAttempt counts one fetch attempt. Outcome is ok, blocked, or
// error.
func RecordAttempt(engine, outcome string) {
	mu.Lock()
	defer mu.Unlock()
	scrapeAttempts[attemptKey{Engine: engine, Outcome: outcome}]++
}

// RecordResult counts one finished scrape invocation. Kind is "success"
// or the failure's error kind.
func RecordResult(engine, kind string) {
	mu.Lock()
	defer mu.Unlock()
	scrapeResults[resultKey{Engine: engine, Kind: kind}]++
}

// RecordBlockVerdict counts a block detection by reason category.
func RecordBlockVerdict(reason string) {
	mu.Lock()
	defer mu.Unlock()
	blockVerdicts[reason]++
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP tavola_http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE tavola_http_requests_total counter\n")

	// Sort keys for stable output
	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})

	for _, k := range reqKeys {
		v := requestsTotal[k]
		fmt.Fprintf(&b, "tavola_http_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, v)
	}

	b.WriteString("# HELP tavola_http_request_duration_ms_sum Total request duration in milliseconds\n")
	b.WriteString("# TYPE tavola_http_request_duration_ms_sum counter\n")
	b.WriteString("# HELP tavola_http_request_duration_ms_count Request count for latency metric\n")
	b.WriteString("# TYPE tavola_http_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})

	for _, k := range latKeys {
		sum := latencyMsSum[k]
		cnt := latencyMsCount[k]
		fmt.Fprintf(&b, "tavola_http_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, sum)
		fmt.Fprintf(&b, "tavola_http_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, cnt)
	}

	b.WriteString("# HELP tavola_scrape_attempts_total Total fetch attempts by engine and outcome\n")
	b.WriteString("# TYPE tavola_scrape_attempts_total counter\n")

	var attemptKeys []attemptKey
	for k := range scrapeAttempts {
		attemptKeys = append(attemptKeys, k)
	}
	sort.Slice(attemptKeys, func(i, j int) bool {
		if attemptKeys[i].Engine != attemptKeys[j].Engine {
			return attemptKeys[i].Engine < attemptKeys[j].Engine
		}
		return attemptKeys[i].Outcome < attemptKeys[j].Outcome
	})

	for _, k := range attemptKeys {
		v := scrapeAttempts[k]
		fmt.Fprintf(&b, "tavola_scrape_attempts_total{engine=\"%s\",outcome=\"%s\"} %d\n",
			k.Engine, k.Outcome, v)
	}

	b.WriteString("# HELP tavola_scrape_results_total Total scrape invocations by engine and result kind\n")
	b.WriteString("# TYPE tavola_scrape_results_total counter\n")

	var resultKeys []resultKey
	for k := range scrapeResults {
		resultKeys = append(resultKeys, k)
	}
	sort.Slice(resultKeys, func(i, j int) bool {
		if resultKeys[i].Engine != resultKeys[j].Engine {
			return resultKeys[i].Engine < resultKeys[j].Engine
		}
		return resultKeys[i].Kind < resultKeys[j].Kind
	})

	for _, k := range resultKeys {
		v := scrapeResults[k]
		fmt.Fprintf(&b, "tavola_scrape_results_total{engine=\"%s\",kind=\"%s\"} %d\n",
			k.Engine, k.Kind, v)
	}

	b.WriteString("# HELP tavola_block_verdicts_total Total block detections by reason\n")
	b.WriteString("# TYPE tavola_block_verdicts_total counter\n")

	var reasons []string
	for r := range blockVerdicts {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Fprintf(&b, "tavola_block_verdicts_total{reason=\"%s\"} %d\n", r, blockVerdicts[r])
	}

	return b.String()
}
