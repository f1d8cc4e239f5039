package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Document is the single JSON value served and persisted by the service.
// It is kept as raw bytes so numbers and key order are stored verbatim.
type Document = json.RawMessage

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// SaveResult is the outcome of a save request.
type SaveResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func Ok() SaveResult {
	return SaveResult{Status: StatusSuccess}
}

func Failed(err error) SaveResult {
	return SaveResult{Status: StatusError, Message: err.Error()}
}

func (r SaveResult) OK() bool {
	return r.Status == StatusSuccess
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// MissingPolicy selects what GET /data answers when no document is stored.
type MissingPolicy string

const (
	PolicyFallback MissingPolicy = "fallback" // serve the embedded default document
	PolicyNotFound MissingPolicy = "notfound" // answer 404 {"error": ...}
)

func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch p := MissingPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyFallback, PolicyNotFound:
		return p, nil
	case "not_found", "not-found", "strict":
		return PolicyNotFound, nil
	}
	return "", fmt.Errorf("unknown missing document policy %q", s)
}
