package types

// Stream event names of the Messages event grammar, in emission order.
const (
	EventTypeMessageStart      = "message_start"
	EventTypeContentBlockStart = "content_block_start"
	EventTypeContentBlockDelta = "content_block_delta"
	EventTypeContentBlockStop  = "content_block_stop"
	EventTypeMessageDelta      = "message_delta"
	EventTypeMessageStop       = "message_stop"
	EventTypePing              = "ping"
	EventTypeError             = "error"
)

// Delta discriminators inside content_block_delta events.
const (
	DeltaTypeText      = "text_delta"
	DeltaTypeInputJSON = "input_json_delta"
)

// StreamEvent is implemented by every event of the Messages SSE grammar.
// EventType doubles as the SSE "event:" line and the payload's "type" field.
type StreamEvent interface {
	EventType() string
}

// MessageStartEvent opens the stream, exactly once, before any other event.
type MessageStartEvent struct {
	Type    string           `json:"type"`
	Message MessagesResponse `json:"message"`
}

func (MessageStartEvent) EventType() string { return EventTypeMessageStart }

// NewMessageStartEvent synthesizes the message envelope for a stream:
// empty content, null stop reason, usage seeded with the input token count.
func NewMessageStartEvent(id, model string, inputTokens int64) *MessageStartEvent {
	return &MessageStartEvent{
		Type: EventTypeMessageStart,
		Message: MessagesResponse{
			ID:      id,
			Type:    "message",
			Role:    "assistant",
			Content: []ResponseContentBlock{},
			Model:   model,
			Usage:   Usage{InputTokens: inputTokens},
		},
	}
}

// ContentBlockStartEvent opens the content block at Index.
type ContentBlockStartEvent struct {
	Type         string               `json:"type"`
	Index        int                  `json:"index"`
	ContentBlock ResponseContentBlock `json:"content_block"`
}

func (ContentBlockStartEvent) EventType() string { return EventTypeContentBlockStart }

// ContentBlockDeltaEvent carries one fragment for the block at Index.
type ContentBlockDeltaEvent struct {
	Type  string            `json:"type"`
	Index int               `json:"index"`
	Delta ContentBlockDelta `json:"delta"`
}

func (ContentBlockDeltaEvent) EventType() string { return EventTypeContentBlockDelta }

// ContentBlockDelta is the fragment payload: text_delta carries Text,
// input_json_delta carries PartialJSON (an opaque argument fragment,
// never parsed mid-stream).
type ContentBlockDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
}

// ContentBlockStopEvent closes the content block at Index.
type ContentBlockStopEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

func (ContentBlockStopEvent) EventType() string { return EventTypeContentBlockStop }

// MessageDeltaEvent carries the terminal stop reason and output usage.
type MessageDeltaEvent struct {
	Type  string            `json:"type"`
	Delta MessageDelta      `json:"delta"`
	Usage MessageDeltaUsage `json:"usage"`
}

func (MessageDeltaEvent) EventType() string { return EventTypeMessageDelta }

// MessageDelta is the delta payload of message_delta. StopSequence is
// always serialized (as null when unset).
type MessageDelta struct {
	StopReason   string  `json:"stop_reason"`
	StopSequence *string `json:"stop_sequence"`
}

// MessageDeltaUsage is the incremental usage attached to message_delta.
type MessageDeltaUsage struct {
	OutputTokens int64 `json:"output_tokens"`
}

// MessageStopEvent terminates the stream, exactly once, last.
type MessageStopEvent struct {
	Type string `json:"type"`
}

func (MessageStopEvent) EventType() string { return EventTypeMessageStop }

// PingEvent is a heartbeat keeping intermediaries from closing idle streams.
type PingEvent struct {
	Type string `json:"type"`
}

func (PingEvent) EventType() string { return EventTypePing }
