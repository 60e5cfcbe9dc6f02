// Package openaichat adapts Anthropic Messages requests to an
// OpenAI-compatible Chat Completions upstream, enabling Anthropic SDK
// clients to work with any such backend without code changes.
//
// The adapter handles:
//
//   - Message transformation: the system prompt becomes a leading system
//     message, user text/image blocks become content parts, tool_result
//     blocks fan out into role:"tool" messages, and assistant tool_use
//     blocks become tool_calls entries.
//
//   - Tool calling: tool definitions map to function tools, tool-call IDs
//     are preserved (or generated when the upstream omits them), and
//     streamed argument fragments are reassembled per upstream slot index.
//
//   - Streaming: translates Chat Completions delta chunks into the Messages
//     event grammar (message_start, content_block_start/delta/stop,
//     message_delta, message_stop) with stable block indices, heartbeat
//     pings, and an idle-read timeout.
//
// # Adapters
//
// CreateMessageAdapter: Anthropic Messages → OpenAI Chat Completions
package openaichat
