package driver

import (
	"context"
	"strings"
)

// Driver defines the interface for LLM completion providers.
type Driver interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Name returns the driver identifier (e.g., "anthropic").
	Name() string
	// Capabilities returns what this driver supports.
	Capabilities() Capabilities
}

// Capabilities describes driver features.
type Capabilities struct {
	SupportsWebSearch bool
	SupportsJSONMode  bool
}

// Tool is a provider-side tool such as web search.
type Tool struct {
	Type   string         `json:"type"`
	Name   string         `json:"name,omitempty"`
	Config map[string]any `json:"config,omitempty"`
}

// Message is a single chat turn.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Usage contains token usage statistics.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Tools       []Tool
	JSONOutput  bool
	Temperature *float64
	MaxTokens   int
	RequestID   string
}

// Block is one piece of response content.
type Block struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Response is a provider-agnostic completion response.
type Response struct {
	Blocks     []Block
	StopReason string
	Usage      *Usage
}

// Text concatenates all text blocks in order.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	for _, block := range r.Blocks {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}
