// Package gemini implements the model backend on the Google Gen AI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/joseph-ayodele/roster-scan/internal/common"
	"github.com/joseph-ayodele/roster-scan/internal/llm"
)

// Config for the Gemini client.
type Config struct {
	APIKey  string
	BaseURL string        // optional override, mainly for tests
	Timeout time.Duration // http client timeout
}

// Client is a vision-capable llm.Generator backed by the Gemini API.
type Client struct {
	client *genai.Client
	log    *slog.Logger
}

var _ llm.Generator = (*Client)(nil)

// NewClient creates the Gemini client.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Client{client: client, log: common.LoggerOr(logger)}, nil
}

// Generate implements llm.Generator.
func (c *Client) Generate(ctx context.Context, model string, req llm.Request) (string, error) {
	parts := make([]*genai.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.IsImage() {
			parts = append(parts, genai.NewPartFromBytes(p.Data, p.MIMEType))
			continue
		}
		parts = append(parts, genai.NewPartFromText(p.Text))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(req.Temperature)}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", toModelError(err, model)
	}
	text := responseText(resp)
	if text == "" {
		reason := ""
		if resp != nil && resp.PromptFeedback != nil {
			reason = string(resp.PromptFeedback.BlockReason)
		}
		c.log.Warn("llm.gemini.empty_response", "model", model, "block_reason", reason)
		if reason != "" {
			return "", fmt.Errorf("%w: %s returned no text (blocked: %s)", llm.ErrMalformed, model, reason)
		}
		return "", fmt.Errorf("%w: %s returned no text", llm.ErrMalformed, model)
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return strings.TrimSpace(b.String())
}

func toModelError(err error, model string) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fromAPIError(apiErr, model)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return fromAPIError(*apiErrPtr, model)
	}
	return llm.AsModelError(err, model)
}

func fromAPIError(e genai.APIError, model string) *llm.ModelError {
	me := &llm.ModelError{Status: e.Code, Model: model, Message: e.Message, Details: e.Status}
	if len(e.Details) > 0 {
		me.Details = strings.TrimSpace(fmt.Sprintf("%s %v", e.Status, e.Details))
	}
	return me
}
