package types

import (
	"encoding/json"
	"fmt"
)

// Content block discriminators used on the request path.
const (
	BlockTypeText       = "text"
	BlockTypeImage      = "image"
	BlockTypeToolUse    = "tool_use"
	BlockTypeToolResult = "tool_result"
	BlockTypeThinking   = "thinking"
)

// MessagesRequest is the body of POST /v1/messages.
type MessagesRequest struct {
	Model     string    `json:"model" validate:"required"`
	MaxTokens int       `json:"max_tokens" validate:"required,gt=0"`
	Messages  []Message `json:"messages" validate:"required,min=1,dive"`

	System   *SystemPrompt   `json:"system,omitempty"`
	Tools    []Tool          `json:"tools,omitempty"`
	Thinking *ThinkingConfig `json:"thinking,omitempty"`

	Temperature   *float64 `json:"temperature,omitempty"`
	TopP          *float64 `json:"top_p,omitempty"`
	TopK          *int     `json:"top_k,omitempty"`
	StopSequences []string `json:"stop_sequences,omitempty"`
	Stream        bool     `json:"stream,omitempty"`

	// Unsupported fields, retained raw so the translator can log their
	// dropping (they have no upstream equivalent).
	ToolChoice        json.RawMessage `json:"tool_choice,omitempty"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
	ServiceTier       json.RawMessage `json:"service_tier,omitempty"`
	ContextManagement json.RawMessage `json:"context_management,omitempty"`
	Container         json.RawMessage `json:"container,omitempty"`
}

// ThinkingConfig is the extended-thinking parameter. Only the type
// discriminator matters to the proxy; the budget is not forwarded.
type ThinkingConfig struct {
	Type         string `json:"type"`
	BudgetTokens int64  `json:"budget_tokens,omitempty"`
}

// Enabled reports whether the request asks for extended thinking,
// which routes it to the reasoning model override.
func (t *ThinkingConfig) Enabled() bool {
	return t != nil && t.Type == "enabled"
}

// Message is one conversation turn.
type Message struct {
	Role    string         `json:"role" validate:"required,oneof=user assistant"`
	Content MessageContent `json:"content"`
}

// MessageContent is the string-or-blocks union of a message body.
// Exactly one of Text/Blocks is meaningful; IsText distinguishes them
// (an empty string and an empty block list are both valid payloads).
type MessageContent struct {
	IsText bool
	Text   string
	Blocks []ContentBlock
}

// UnmarshalJSON decodes either a JSON string or an array of content blocks.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*c = MessageContent{IsText: true, Text: text}
		return nil
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("message content must be a string or an array of content blocks: %w", err)
	}
	*c = MessageContent{Blocks: blocks}
	return nil
}

// MarshalJSON re-encodes the union in its original shape.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.IsText {
		return json.Marshal(c.Text)
	}
	if c.Blocks == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Blocks)
}

// ContentBlock is a request-direction content block. Type discriminates
// the variant; only the fields of the active variant are populated.
type ContentBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// image
	Source *ImageSource `json:"source,omitempty"`

	// tool_use
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result
	ToolUseID string             `json:"tool_use_id,omitempty"`
	Content   *ToolResultContent `json:"content,omitempty"`
	IsError   bool               `json:"is_error,omitempty"`
}

// ImageSource carries inline image data. Only base64 sources are supported.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// ToolResultContent is the string-or-text-blocks union of a tool_result body.
type ToolResultContent struct {
	IsText bool
	Text   string
	Blocks []TextBlock
}

// UnmarshalJSON decodes either a JSON string or an array of text blocks.
func (c *ToolResultContent) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*c = ToolResultContent{IsText: true, Text: text}
		return nil
	}

	var blocks []TextBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("tool_result content must be a string or an array of text blocks: %w", err)
	}
	*c = ToolResultContent{Blocks: blocks}
	return nil
}

// MarshalJSON re-encodes the union in its original shape.
func (c ToolResultContent) MarshalJSON() ([]byte, error) {
	if c.IsText {
		return json.Marshal(c.Text)
	}
	if c.Blocks == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Blocks)
}

// TextBlock is a bare text content block, used inside system prompts and
// tool_result bodies.
type TextBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SystemPrompt is the string-or-text-blocks union of the system field.
type SystemPrompt struct {
	IsText bool
	Text   string
	Blocks []TextBlock
}

// UnmarshalJSON decodes either a JSON string or an array of text blocks.
func (s *SystemPrompt) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*s = SystemPrompt{IsText: true, Text: text}
		return nil
	}

	var blocks []TextBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("system must be a string or an array of text blocks: %w", err)
	}
	*s = SystemPrompt{Blocks: blocks}
	return nil
}

// MarshalJSON re-encodes the union in its original shape.
func (s SystemPrompt) MarshalJSON() ([]byte, error) {
	if s.IsText {
		return json.Marshal(s.Text)
	}
	if s.Blocks == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.Blocks)
}

// Tool is a client-declared tool definition.
type Tool struct {
	Name        string         `json:"name" validate:"required"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`

	// Some clients tag synthetic tools with a type; used to filter
	// BatchTool, which has no upstream equivalent.
	Type string `json:"type,omitempty"`
}
