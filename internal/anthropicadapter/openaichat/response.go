package openaichat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/m0n0x41d/anthropic-proxy/internal/anthropicadapter/types"
)

// toMessagesResponse translates a buffered Chat Completions response into an
// Anthropic message. fallbackModel is the resolved request model, used when
// the upstream omits its own.
func toMessagesResponse(res *chatResponse, fallbackModel string) (*types.MessagesResponse, error) {
	if len(res.Choices) == 0 {
		return nil, types.NewErrorResponse(types.ErrorTypeAPI, "no choices in upstream response")
	}
	choice := res.Choices[0]

	var content []types.ResponseContentBlock
	if choice.Message.Content != nil && *choice.Message.Content != "" {
		content = append(content, types.NewTextContentBlock(*choice.Message.Content))
	}
	for _, call := range choice.Message.ToolCalls {
		id := call.ID
		if id == "" {
			id = newToolCallID()
		}
		content = append(content, types.NewToolUseContentBlock(
			id,
			call.Function.Name,
			parseToolArguments(call.Function.Arguments),
		))
	}
	// A response with neither text nor tool calls still needs one block.
	if len(content) == 0 {
		content = append(content, types.NewTextContentBlock(""))
	}

	id := res.ID
	if id == "" {
		id = newMessageID()
	}
	model := res.Model
	if model == "" {
		model = fallbackModel
	}

	stopReason := toStopReason(choice.FinishReason)

	var usage types.Usage
	if res.Usage != nil {
		usage = types.Usage{
			InputTokens:  res.Usage.PromptTokens,
			OutputTokens: res.Usage.CompletionTokens,
		}
	}

	return &types.MessagesResponse{
		ID:         id,
		Type:       "message",
		Role:       "assistant",
		Content:    content,
		Model:      model,
		StopReason: &stopReason,
		Usage:      usage,
	}, nil
}

// toStopReason maps upstream finish reasons to Anthropic stop reasons.
//
// ContentFilter transformation: the upstream signals filtered output via
// finish_reason="content_filter" but still returns the (truncated) content;
// Anthropic has no matching stop reason, so it maps to end_turn and the
// content speaks for itself. A missing finish reason also maps to end_turn.
func toStopReason(finishReason string) string {
	switch finishReason {
	case "stop":
		return types.StopReasonEndTurn
	case "length":
		return types.StopReasonMaxTokens
	case "tool_calls":
		return types.StopReasonToolUse
	case "content_filter":
		return types.StopReasonEndTurn
	case "":
		return types.StopReasonEndTurn
	default:
		return types.StopReasonEndTurn
	}
}

// parseToolArguments normalizes an upstream arguments string into the JSON
// document carried by a tool_use block. Empty or malformed arguments fall
// back to an empty object.
func parseToolArguments(arguments string) json.RawMessage {
	trimmed := strings.TrimSpace(arguments)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return json.RawMessage("{}")
	}
	return json.RawMessage(trimmed)
}

// newMessageID generates an Anthropic-style message ID (msg_<token>).
// Used when the upstream response carries no ID of its own and for
// synthesized streaming message envelopes.
func newMessageID() string {
	token := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("msg_%s", token)
}

// newToolCallID generates an OpenAI-style tool call ID (format: call_<8-char-uuid>).
func newToolCallID() string {
	return fmt.Sprintf("call_%s", uuid.New().String()[:8])
}
