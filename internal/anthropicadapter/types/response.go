package types

import "encoding/json"

// Stop reasons of an assistant turn.
const (
	StopReasonEndTurn   = "end_turn"
	StopReasonMaxTokens = "max_tokens"
	StopReasonToolUse   = "tool_use"
)

// MessagesResponse is the non-streaming response body of POST /v1/messages.
// It doubles as the message envelope inside message_start stream events,
// where StopReason and StopSequence are serialized as explicit nulls.
type MessagesResponse struct {
	ID           string                 `json:"id"`
	Type         string                 `json:"type"`
	Role         string                 `json:"role"`
	Content      []ResponseContentBlock `json:"content"`
	Model        string                 `json:"model"`
	StopReason   *string                `json:"stop_reason"`
	StopSequence *string                `json:"stop_sequence"`
	Usage        Usage                  `json:"usage"`
}

// ResponseContentBlock is a response-direction content block: text or
// tool_use. Text is a pointer so an empty text block still serializes as
// {"type":"text","text":""} while tool_use blocks omit the field entirely.
type ResponseContentBlock struct {
	Type string  `json:"type"`
	Text *string `json:"text,omitempty"`

	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// NewTextContentBlock builds a text block.
func NewTextContentBlock(text string) ResponseContentBlock {
	return ResponseContentBlock{Type: BlockTypeText, Text: &text}
}

// NewToolUseContentBlock builds a tool_use block. Input must be valid JSON;
// callers substitute {} when the upstream arguments are empty or malformed.
func NewToolUseContentBlock(id, name string, input json.RawMessage) ResponseContentBlock {
	return ResponseContentBlock{Type: BlockTypeToolUse, ID: id, Name: name, Input: input}
}

// Usage is the token accounting attached to responses and message_start.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}
