package http

import (
	"time"

	"tavola/internal/model"
)

const apiVersion = "1.0.0"

// ScrapeRequest is the payload for POST /v1/scrape.
type ScrapeRequest struct {
	URL     string              `json:"url"`
	Options model.ScrapeOptions `json:"options"`
}

// ScrapeFailure is the data payload accompanying a failed scrape. The
// envelope's Error field carries the human message; this carries the
// machine-readable classification.
type ScrapeFailure struct {
	ErrorKind        model.ErrorKind `json:"errorKind"`
	Detail           string          `json:"detail,omitempty"`
	Suggestion       string          `json:"suggestion,omitempty"`
	ProcessingTimeMs int64           `json:"processingTimeMs"`
}

func envelope(data any) model.APIResponse {
	return model.APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   apiVersion,
	}
}

func errorEnvelope(msg string) model.APIResponse {
	return model.APIResponse{
		Error:     msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   apiVersion,
	}
}
