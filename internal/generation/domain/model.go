package domain

import (
	"context"
	"encoding/json"
	"errors"
)

// GenerateRequest carries the caller's model selection plus the upstream
// payload verbatim. Contents and Config are forwarded without inspection so
// the gate stays agnostic to upstream schema changes.
type GenerateRequest struct {
	Model    string          `json:"model"`
	Contents json.RawMessage `json:"contents"`
	Config   json.RawMessage `json:"config,omitempty"`
}

// GenerateResponse is the reduced upstream answer surfaced to clients.
type GenerateResponse struct {
	Text string `json:"text"`
}

// Service produces text completions from the upstream provider.
type Service interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}

var (
	ErrUpstreamGeneration      = errors.New("upstream_generation_error")
	ErrGenerationNotConfigured = errors.New("generation_not_configured")
	ErrEmptyGenerateRequest    = errors.New("empty_generate_request")
)
