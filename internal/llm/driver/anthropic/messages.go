package anthropic

import (
	"fmt"
	"strings"

	"github.com/movienighthub/movienight/internal/llm/driver"
)

const defaultMaxTokens = 1024

type messagesRequest struct {
	Model       string           `json:"model"`
	MaxTokens   int              `json:"max_tokens"`
	System      string           `json:"system,omitempty"`
	Messages    []message        `json:"messages"`
	Tools       []map[string]any `json:"tools,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      *usage         `json:"usage,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type errorEnvelope struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func buildMessagesRequest(req *driver.Request) (*messagesRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}

	payload := &messagesRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		System:      req.System,
		Temperature: req.Temperature,
	}
	if payload.MaxTokens <= 0 {
		payload.MaxTokens = defaultMaxTokens
	}

	for _, m := range req.Messages {
		if m.Role == "system" {
			// The Messages API takes the system prompt out of band.
			payload.System = strings.TrimSpace(payload.System + "\n" + m.Text)
			continue
		}
		payload.Messages = append(payload.Messages, message{Role: m.Role, Content: m.Text})
	}
	if len(payload.Messages) == 0 {
		return nil, fmt.Errorf("at least one user message is required")
	}

	for _, tool := range req.Tools {
		flat := map[string]any{"type": tool.Type}
		if tool.Name != "" {
			flat["name"] = tool.Name
		}
		for k, v := range tool.Config {
			flat[k] = v
		}
		payload.Tools = append(payload.Tools, flat)
	}

	return payload, nil
}

func toDriverResponse(resp *messagesResponse) *driver.Response {
	out := &driver.Response{StopReason: resp.StopReason}
	for _, block := range resp.Content {
		out.Blocks = append(out.Blocks, driver.Block{Type: block.Type, Text: block.Text})
	}
	if resp.Usage != nil {
		out.Usage = &driver.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		}
	}
	return out
}
