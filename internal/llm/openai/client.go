package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/roster-scan/internal/common"
	"github.com/joseph-ayodele/roster-scan/internal/llm"
)

var _ llm.Generator = (*Client)(nil)

// Generate implements llm.Generator over chat/completions. Images are sent inline as data URLs.
func (c *Client) Generate(ctx context.Context, model string, req llm.Request) (string, error) {
	body := map[string]any{
		"model":       model,
		"temperature": req.Temperature,
		"messages": []map[string]any{
			{"role": "user", "content": buildContent(req.Parts)},
		},
	}
	if req.JSON {
		body["response_format"] = map[string]any{"type": "json_object"}
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, status, err := common.SendJSON(ctx, c.httpClient, endpoint, body, headers, c.log)
	if err != nil {
		if status == 0 {
			return "", llm.AsModelError(err, model)
		}
		return "", apiError(status, model, raw)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", &llm.ModelError{Status: status, Model: model, Message: fmt.Sprintf("decode openai response: %v", err)}
	}
	if len(cc.Choices) == 0 || strings.TrimSpace(cc.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: %s returned no content", llm.ErrMalformed, model)
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}

func buildContent(parts []llm.Part) []map[string]any {
	out := make([]map[string]any, 0, len(parts))
	for _, p := range parts {
		if p.IsImage() {
			url := "data:" + p.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
			out = append(out, map[string]any{
				"type":      "image_url",
				"image_url": map[string]any{"url": url},
			})
			continue
		}
		out = append(out, map[string]any{"type": "text", "text": p.Text})
	}
	return out
}

// apiError reads the provider's {"error": {...}} envelope.
func apiError(status int, model string, raw []byte) *llm.ModelError {
	var env struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    any    `json:"code"`
		} `json:"error"`
	}
	me := &llm.ModelError{Status: status, Model: model}
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Message != "" {
		me.Message = env.Error.Message
		me.Details = env.Error.Type
		if env.Error.Code != nil {
			me.Details = strings.TrimSpace(fmt.Sprintf("%s %v", me.Details, env.Error.Code))
		}
		return me
	}
	me.Message = fmt.Sprintf("openai status %d", status)
	if len(raw) > 0 {
		me.Details = string(raw[:min(len(raw), 512)])
	}
	return me
}
