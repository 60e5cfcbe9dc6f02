package openaichat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m0n0x41d/anthropic-proxy/internal/anthropicadapter/types"
)

// resolveModel applies the configured model overrides: reasoning requests
// (thinking enabled) prefer the reasoning model; otherwise, including
// reasoning requests with no reasoning model configured, the completion
// model is used, and the client's model is the final fallback.
func resolveModel(req types.MessagesRequest, cfg Config) string {
	if req.Thinking.Enabled() && cfg.ReasoningModel != "" {
		return cfg.ReasoningModel
	}
	if cfg.CompletionModel != "" {
		return cfg.CompletionModel
	}
	return req.Model
}

// fromMessagesRequest translates an Anthropic Messages request into a Chat
// Completions request. The returned string is the resolved model, echoed
// back to the client in responses so it sees what actually ran.
func fromMessagesRequest(ctx context.Context, req types.MessagesRequest, cfg Config, stream bool) (*chatRequest, string, error) {
	logDroppedFields(ctx, req)

	model := resolveModel(req, cfg)

	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if sys, ok := fromSystemPrompt(req.System); ok {
		messages = append(messages, sys)
	}

	for i, msg := range req.Messages {
		converted, err := fromMessage(msg)
		if err != nil {
			return nil, "", fmt.Errorf("message %d: %w", i, err)
		}
		messages = append(messages, converted...)
	}

	return &chatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.StopSequences,
		Stream:      stream,
		Tools:       fromTools(req.Tools),
	}, model, nil
}

// fromSystemPrompt converts the system union into one leading system
// message. Text blocks are joined with a blank line between them.
func fromSystemPrompt(system *types.SystemPrompt) (chatMessage, bool) {
	if system == nil {
		return chatMessage{}, false
	}

	var text string
	if system.IsText {
		text = system.Text
	} else {
		parts := make([]string, 0, len(system.Blocks))
		for _, block := range system.Blocks {
			parts = append(parts, block.Text)
		}
		text = strings.Join(parts, "\n\n")
	}

	if text == "" {
		return chatMessage{}, false
	}
	return chatMessage{Role: "system", Content: textContent(text)}, true
}

// fromMessage converts a single Anthropic message into one or more upstream
// messages: tool_result blocks fan out into role:"tool" messages, the
// remaining blocks collapse into one message carrying content and/or
// tool_calls.
func fromMessage(msg types.Message) ([]chatMessage, error) {
	if msg.Content.IsText {
		return []chatMessage{{Role: msg.Role, Content: textContent(msg.Content.Text)}}, nil
	}

	var (
		result    []chatMessage
		parts     []contentPart
		toolCalls []toolCall
	)

	for i, block := range msg.Content.Blocks {
		switch block.Type {
		case types.BlockTypeText:
			parts = append(parts, contentPart{Type: "text", Text: block.Text})

		case types.BlockTypeImage:
			part, err := fromImageBlock(block)
			if err != nil {
				return nil, fmt.Errorf("content block %d: %w", i, err)
			}
			parts = append(parts, part)

		case types.BlockTypeToolUse:
			arguments := "{}"
			if len(block.Input) > 0 {
				arguments = string(block.Input)
			}
			toolCalls = append(toolCalls, toolCall{
				ID:   block.ID,
				Type: "function",
				Function: functionCall{
					Name:      block.Name,
					Arguments: arguments,
				},
			})

		case types.BlockTypeToolResult:
			// Tool results become separate messages with role "tool".
			// An is_error result is forwarded verbatim; the upstream has no
			// error marker on tool messages.
			result = append(result, chatMessage{
				Role:       "tool",
				ToolCallID: block.ToolUseID,
				Content:    textContent(flattenToolResult(block.Content)),
			})

		case types.BlockTypeThinking:
			// Thinking blocks have no upstream equivalent in requests.

		default:
			return nil, fmt.Errorf("content block %d: unsupported type %q", i, block.Type)
		}
	}

	if len(parts) > 0 || len(toolCalls) > 0 {
		result = append(result, assembleMessage(msg.Role, parts, toolCalls))
	}

	return result, nil
}

// assembleMessage builds the upstream message carrying the walked parts and
// tool calls. Assistant text concatenates into a plain string (required
// alongside tool_calls); user content collapses to a string when it is a
// single text part and stays a parts array otherwise.
func assembleMessage(role string, parts []contentPart, toolCalls []toolCall) chatMessage {
	out := chatMessage{Role: role, ToolCalls: toolCalls}

	if role == "assistant" {
		var text strings.Builder
		for _, part := range parts {
			text.WriteString(part.Text)
		}
		out.Content = textContent(text.String())
		return out
	}

	if len(parts) == 1 && parts[0].Type == "text" {
		out.Content = textContent(parts[0].Text)
		return out
	}
	out.Content = &chatContent{Parts: parts}
	return out
}

// fromImageBlock converts a base64 image block into an image_url part with
// a data URL.
func fromImageBlock(block types.ContentBlock) (contentPart, error) {
	source := block.Source
	if source == nil {
		return contentPart{}, fmt.Errorf("image block missing source")
	}
	if source.Type != "base64" {
		return contentPart{}, fmt.Errorf("unsupported image source type %q", source.Type)
	}
	if source.MediaType == "" || source.Data == "" {
		return contentPart{}, fmt.Errorf("image source requires media_type and data")
	}

	return contentPart{
		Type:     "image_url",
		ImageURL: &imageURL{URL: "data:" + source.MediaType + ";base64," + source.Data},
	}, nil
}

// flattenToolResult stringifies a tool_result body: strings pass through
// verbatim, text block sequences join with newlines.
func flattenToolResult(content *types.ToolResultContent) string {
	if content == nil {
		return ""
	}
	if content.IsText {
		return content.Text
	}

	texts := make([]string, 0, len(content.Blocks))
	for _, block := range content.Blocks {
		texts = append(texts, block.Text)
	}
	return strings.Join(texts, "\n")
}

// fromTools converts tool definitions to function tools. Synthetic batch
// tools are filtered out; they have no upstream equivalent.
func fromTools(tools []types.Tool) []chatTool {
	if len(tools) == 0 {
		return nil
	}

	out := make([]chatTool, 0, len(tools))
	for _, tool := range tools {
		if tool.Type == "BatchTool" || tool.Name == "BatchTool" {
			continue
		}
		out = append(out, chatTool{
			Type: "function",
			Function: chatFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  cleanSchema(tool.InputSchema),
			},
		})
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// cleanSchema strips schema constructs some upstreams reject, currently
// "format": "uri", recursing through properties and items. The input map is
// left untouched.
func cleanSchema(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}

	out := make(map[string]any, len(schema))
	for key, value := range schema {
		if key == "format" && value == "uri" {
			continue
		}
		out[key] = value
	}

	if props, ok := out["properties"].(map[string]any); ok {
		cleaned := make(map[string]any, len(props))
		for name, prop := range props {
			if propSchema, ok := prop.(map[string]any); ok {
				cleaned[name] = cleanSchema(propSchema)
			} else {
				cleaned[name] = prop
			}
		}
		out["properties"] = cleaned
	}

	if items, ok := out["items"].(map[string]any); ok {
		out["items"] = cleanSchema(items)
	}

	return out
}

// logDroppedFields records fields that are silently dropped because the
// upstream protocol has no equivalent.
func logDroppedFields(ctx context.Context, req types.MessagesRequest) {
	drop := func(field string) {
		slog.DebugContext(ctx, "dropping unsupported request field", "field", field)
	}

	if req.ToolChoice != nil {
		drop("tool_choice")
	}
	if req.TopK != nil {
		drop("top_k")
	}
	if req.Thinking != nil {
		drop("thinking")
	}
	if req.Metadata != nil {
		drop("metadata")
	}
	if req.ServiceTier != nil {
		drop("service_tier")
	}
	if req.ContextManagement != nil {
		drop("context_management")
	}
	if req.Container != nil {
		drop("container")
	}
}
