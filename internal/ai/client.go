// Package ai is a client for the Anthropic Messages API used to generate
// product description copy.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/IliasHad/shopify-remix-meetup-app/pkg/errors"
)

const (
	defaultEndpoint  = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
)

// ErrUnusableResponse marks replies the API delivered but that cannot be
// used as generated copy: a non-2xx status or a body with no text content.
// Callers treat this differently from transport failures.
var ErrUnusableResponse = errors.New("ai: unusable model response")

// Doer is the HTTP client surface the AI client depends on.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Config holds the Messages API settings.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
	// BaseURL overrides the API endpoint. Used in tests.
	BaseURL string
}

// ImageData is a base64-encoded image attached to a completion request.
type ImageData struct {
	MediaType  string
	Base64Data string
}

// CompletionRequest is a single-turn generation request.
type CompletionRequest struct {
	System string
	Prompt string
	Image  *ImageData
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Client calls the Anthropic Messages API.
type Client struct {
	cfg      Config
	endpoint string
	http     Doer
	logger   *slog.Logger
}

// NewClient builds a Client. The API key is required up front so a
// misconfigured deployment fails at startup, not on the first request.
func NewClient(cfg Config, doer Doer, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ai: api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ai: model is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		cfg:      cfg,
		endpoint: endpoint,
		http:     doer,
		logger:   logger,
	}, nil
}

// Complete sends a single user turn and returns the concatenated text
// content of the reply.
//
// A reply the API delivered but that cannot be used (non-2xx status, or a
// body without text content) returns ErrUnusableResponse. A transport
// failure returns an upstream error instead.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	blocks := []contentBlock{}
	if req.Image != nil {
		blocks = append(blocks, contentBlock{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: req.Image.MediaType,
				Data:      req.Image.Base64Data,
			},
		})
	}
	blocks = append(blocks, contentBlock{Type: "text", Text: req.Prompt})

	body, err := json.Marshal(messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		System:    req.System,
		Messages:  []message{{Role: "user", Content: blocks}},
	})
	if err != nil {
		return "", apperrors.Internal(fmt.Errorf("marshal messages request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.Internal(fmt.Errorf("build messages request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.http.Do(ctx, httpReq)
	if err != nil {
		return "", apperrors.Upstream("anthropic", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("anthropic rejected completion request",
			"status", resp.StatusCode,
			"body", string(snippet),
		)
		return "", fmt.Errorf("%w: status %d", ErrUnusableResponse, resp.StatusCode)
	}

	var decoded messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnusableResponse, err)
	}

	// Blocks without a type are treated as text; only an explicit non-text
	// type (tool_use, thinking) is skipped.
	var parts []string
	for _, block := range decoded.Content {
		if (block.Type == "text" || block.Type == "") && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no text content", ErrUnusableResponse)
	}
	return strings.Join(parts, ""), nil
}
