// Package contractllm is the boundary to the hosted language model used for
// contract clause extraction and notice letter drafting.  It owns the prompt
// text, the chat-completion HTTP client, and the tolerant parsing of model
// output back into structured clauses.
package contractllm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
	"github.com/efilo-ai/compliance-engine/pkg/errors"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Config holds the model endpoint and per-task generation parameters.
type Config struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`

	// ExtractionModel handles clause extraction: low temperature, large
	// output budget.  DraftingModel handles notice letters.
	ExtractionModel string `json:"extraction_model"`
	DraftingModel   string `json:"drafting_model"`

	ExtractionMaxTokens int     `json:"extraction_max_tokens"`
	DraftingMaxTokens   int     `json:"drafting_max_tokens"`
	ExtractionTemp      float64 `json:"extraction_temperature"`
	DraftingTemp        float64 `json:"drafting_temperature"`

	// MaxContractChars caps document text fed into a single extraction call.
	MaxContractChars int `json:"max_contract_chars"`

	RequestTimeout time.Duration `json:"request_timeout"`
}

// DefaultConfig returns generation parameters tuned for contract work.
func DefaultConfig() Config {
	return Config{
		ExtractionMaxTokens: 8000,
		DraftingMaxTokens:   4000,
		ExtractionTemp:      0.1,
		DraftingTemp:        0.2,
		MaxContractChars:    100_000,
		RequestTimeout:      120 * time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.InvalidParam("contractllm: base_url is required")
	}
	if c.ExtractionModel == "" || c.DraftingModel == "" {
		return errors.InvalidParam("contractllm: extraction and drafting models are required")
	}
	if c.ExtractionTemp < 0 || c.ExtractionTemp > 2 || c.DraftingTemp < 0 || c.DraftingTemp > 2 {
		return errors.InvalidParam("contractllm: temperature must be between 0 and 2")
	}
	if c.MaxContractChars <= 0 {
		return errors.InvalidParam("contractllm: max_contract_chars must be positive")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Client contract
// ---------------------------------------------------------------------------

// Usage is the token accounting returned by a completion.
type Usage struct {
	InputTokens  int `json:"input"`
	OutputTokens int `json:"output"`
}

// Completion is a finished model response.
type Completion struct {
	Content   string        `json:"content"`
	Model     string        `json:"model"`
	Usage     Usage         `json:"usage"`
	LatencyMS int64         `json:"latencyMs"`
}

// Request is a single system+user chat exchange.
type Request struct {
	Model       string
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Client generates completions from the hosted model.
type Client interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// ---------------------------------------------------------------------------
// HTTP implementation (OpenAI-compatible chat completions)
// ---------------------------------------------------------------------------

type httpClient struct {
	cfg    Config
	http   *http.Client
	logger logging.Logger
}

// NewClient constructs an HTTP-backed Client.
func NewClient(cfg Config, logger logging.Logger) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &httpClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger.Named("contractllm"),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *httpClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	if req.Model == "" {
		return nil, errors.New(errors.ErrCodeAIInputInvalid, "model is required")
	}
	if req.User == "" {
		return nil, errors.New(errors.ErrCodeAIInputInvalid, "user prompt is required")
	}

	body := chatRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.User})

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAIGenerationFailed, "encode completion request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAIGenerationFailed, "build completion request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Upstream(err, "language model request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, errors.Upstream(err, "read language model response")
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.New(errors.ErrCodeAIModelNotAvailable,
			fmt.Sprintf("model %s not available", req.Model))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errors.New(errors.ErrCodeTooManyRequests, "language model rate limited")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, errors.New(errors.ErrCodeAIGenerationFailed,
			fmt.Sprintf("language model returned status %d", resp.StatusCode))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeAIResponseUnparseable, "decode completion response")
	}
	if parsed.Error != nil {
		return nil, errors.New(errors.ErrCodeAIGenerationFailed, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New(errors.ErrCodeAIResponseUnparseable, "completion has no choices")
	}

	latency := time.Since(start).Milliseconds()
	c.logger.Debug("completion finished",
		logging.String("model", parsed.Model),
		logging.Int("input_tokens", parsed.Usage.PromptTokens),
		logging.Int("output_tokens", parsed.Usage.CompletionTokens),
		logging.Int64("latency_ms", latency),
	)

	return &Completion{
		Content: parsed.Choices[0].Message.Content,
		Model:   parsed.Model,
		Usage: Usage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
		},
		LatencyMS: latency,
	}, nil
}
