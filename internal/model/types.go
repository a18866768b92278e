package model

// ScrapeOptions configures a single scrape invocation. Zero values fall
// back to server configuration; Retries is a pointer so that an explicit
// 0 (no retries) can be distinguished from "not set".
type ScrapeOptions struct {
	TimeoutMs int    `json:"timeoutMs,omitempty"`
	Retries   *int   `json:"retries,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// ErrorKind classifies a scrape failure for the caller. The HTTP layer
// maps these onto status codes; the pipeline guarantees every failure
// carries exactly one kind.
type ErrorKind string

const (
	ErrInvalidInput       ErrorKind = "INVALID_INPUT"
	ErrBlockedByTarget    ErrorKind = "BLOCKED_BY_TARGET"
	ErrForbidden          ErrorKind = "FORBIDDEN"
	ErrRateLimited        ErrorKind = "RATE_LIMITED"
	ErrUpstreamServer     ErrorKind = "UPSTREAM_SERVER_ERROR"
	ErrTimeout            ErrorKind = "TIMEOUT"
	ErrNetworkUnreachable ErrorKind = "NETWORK_UNREACHABLE"
	ErrRenderingFailure   ErrorKind = "RENDERING_FAILURE"
	ErrUnknown            ErrorKind = "UNKNOWN"
)

// ExtractedListing is the fully-populated record for one restaurant
// page. Every field except Phone and ImageURL always carries a value:
// extractors resolve to documented defaults rather than returning
// partial records. Cuisine is always Cuisines[0].
type ExtractedListing struct {
	Name        string   `json:"name"`
	Rating      string   `json:"rating"`
	PriceRange  string   `json:"priceRange"`
	Cuisine     string   `json:"cuisine"`
	Cuisines    []string `json:"cuisines"`
	Description string   `json:"description"`
	Address     string   `json:"address"`
	Location    string   `json:"location"`
	Latitude    string   `json:"latitude"`
	Longitude   string   `json:"longitude"`
	Phone       string   `json:"phone,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	ExtractedAt string   `json:"extractedAt"`
	SourceURL   string   `json:"sourceUrl"`
}

// ScrapeResult is the tagged union returned by the pipeline. It is
// always returned, never raised: transport and render errors are
// translated into an ErrorKind before they reach the caller.
type ScrapeResult struct {
	Success          bool              `json:"success"`
	Data             *ExtractedListing `json:"data,omitempty"`
	ErrorKind        ErrorKind         `json:"errorKind,omitempty"`
	Error            string            `json:"error,omitempty"`
	Detail           string            `json:"detail,omitempty"`
	Suggestion       string            `json:"suggestion,omitempty"`
	ProcessingTimeMs int64             `json:"processingTimeMs"`
}

// APIResponse is the versioned envelope the HTTP layer wraps every
// response in.
type APIResponse struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ServiceStatus reports the operational state of one dependency as seen
// by the health endpoint.
type ServiceStatus string

const (
	StatusOperational ServiceStatus = "operational"
	StatusDegraded    ServiceStatus = "degraded"
	StatusDown        ServiceStatus = "down"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	UptimeSec int64                    `json:"uptime"`
	Version   string                   `json:"version"`
	Services  map[string]ServiceStatus `json:"services"`
}
