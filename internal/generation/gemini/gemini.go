package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/textcraft/creditgate/internal/config"
	"github.com/textcraft/creditgate/internal/generation/domain"
	"go.uber.org/zap"
)

// Client calls the Gemini generateContent REST endpoint. It forwards the
// caller's contents and generation config untouched and reduces the response
// to the concatenated text of the first candidate.
type Client struct {
	baseURL      string
	apiKey       string
	defaultModel string
	http         *http.Client
	log          *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.Generation.BaseURL, "/"),
		apiKey:       cfg.Generation.APIKey,
		defaultModel: cfg.Generation.DefaultModel,
		http:         &http.Client{Timeout: cfg.Generation.Timeout},
		log:          log.Named("generation.gemini"),
	}
}

type generatePayload struct {
	Contents         json.RawMessage `json:"contents"`
	GenerationConfig json.RawMessage `json:"generationConfig,omitempty"`
}

type generateResult struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResponse, error) {
	if c.apiKey == "" {
		return domain.GenerateResponse{}, domain.ErrGenerationNotConfigured
	}
	if len(req.Contents) == 0 {
		return domain.GenerateResponse{}, domain.ErrEmptyGenerateRequest
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	body, err := json.Marshal(generatePayload{
		Contents:         req.Contents,
		GenerationConfig: req.Config,
	})
	if err != nil {
		return domain.GenerateResponse{}, err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.GenerateResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return domain.GenerateResponse{}, fmt.Errorf("%w: %v", domain.ErrUpstreamGeneration, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return domain.GenerateResponse{}, fmt.Errorf("%w: %v", domain.ErrUpstreamGeneration, err)
	}

	var result generateResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return domain.GenerateResponse{}, fmt.Errorf("%w: %v", domain.ErrUpstreamGeneration, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		msg := fmt.Sprintf("unexpected status %d", httpResp.StatusCode)
		if result.Error != nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		c.log.Warn("generation request rejected",
			zap.Int("status_code", httpResp.StatusCode),
			zap.String("model", model),
		)
		return domain.GenerateResponse{}, fmt.Errorf("%w: %s", domain.ErrUpstreamGeneration, msg)
	}

	if len(result.Candidates) == 0 {
		return domain.GenerateResponse{}, fmt.Errorf("%w: no candidates returned", domain.ErrUpstreamGeneration)
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return domain.GenerateResponse{Text: text.String()}, nil
}
