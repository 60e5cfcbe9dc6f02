package openaichat

import (
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/m0n0x41d/anthropic-proxy/internal/anthropicadapter/types"
)

const (
	// doneSentinel terminates a Chat Completions SSE stream.
	doneSentinel = "[DONE]"

	// heartbeatInterval is the upstream silence after which a ping event is
	// emitted to keep intermediaries from closing the connection.
	heartbeatInterval = 15 * time.Second

	// defaultIdleTimeout bounds the gap between upstream reads.
	defaultIdleTimeout = 10 * time.Minute
)

// streamState is the per-stream translation state. It is owned by a single
// stream iterator and never shared.
type streamState struct {
	messageID string
	model     string

	started   bool
	nextIndex int
	// textIndex is the block index of the currently open text block, -1 when none.
	textIndex int
	// slots maps upstream tool-call slot indices to their block records.
	// Slot indices are assigned by the upstream and are distinct from the
	// Anthropic content-block indices.
	slots map[int]*toolSlot

	inputTokens  int64
	outputTokens int64
	finishReason string
}

// toolSlot tracks one upstream tool-call slot: the Anthropic block index it
// was assigned, its identity, and the accumulated argument fragments.
type toolSlot struct {
	index int
	id    string
	name  string
	args  strings.Builder
}

func newStreamState(model string) *streamState {
	return &streamState{
		messageID: newMessageID(),
		model:     model,
		textIndex: -1,
		slots:     make(map[int]*toolSlot),
	}
}

// next allocates the next content-block index. Indices are assigned in
// emission order and never change afterwards.
func (s *streamState) next() int {
	index := s.nextIndex
	s.nextIndex++
	return index
}

// blocksOpened reports whether any content block was ever started.
func (s *streamState) blocksOpened() bool {
	return s.nextIndex > 0
}

// onChunk folds one upstream chunk into the state and returns the Anthropic
// events it produces, in emission order. Within a chunk, text deltas are
// emitted before tool-call deltas.
func (s *streamState) onChunk(chunk *chatChunk) []types.StreamEvent {
	var events []types.StreamEvent

	if chunk.Usage != nil {
		// Last writer wins; upstreams typically send usage once at the end.
		s.outputTokens = chunk.Usage.CompletionTokens
		if !s.started {
			s.inputTokens = chunk.Usage.PromptTokens
		}
	}

	if !s.started {
		s.started = true
		if chunk.Model != "" {
			s.model = chunk.Model
		}
		events = append(events, types.NewMessageStartEvent(s.messageID, s.model, s.inputTokens))
	}

	for _, choice := range chunk.Choices {
		// Only choices[0] is consumed; multi-choice behavior is unspecified.
		if choice.Index != 0 {
			continue
		}

		if choice.Delta.Content != "" {
			events = append(events, s.onTextDelta(choice.Delta.Content)...)
		}
		for _, call := range choice.Delta.ToolCalls {
			events = append(events, s.onToolCallDelta(call)...)
		}
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			s.finishReason = *choice.FinishReason
		}
	}

	return events
}

// onTextDelta opens a text block if none is open and emits the fragment.
func (s *streamState) onTextDelta(text string) []types.StreamEvent {
	var events []types.StreamEvent

	if s.textIndex < 0 {
		s.textIndex = s.next()
		events = append(events, &types.ContentBlockStartEvent{
			Type:         types.EventTypeContentBlockStart,
			Index:        s.textIndex,
			ContentBlock: types.NewTextContentBlock(""),
		})
	}

	events = append(events, &types.ContentBlockDeltaEvent{
		Type:  types.EventTypeContentBlockDelta,
		Index: s.textIndex,
		Delta: types.ContentBlockDelta{Type: types.DeltaTypeText, Text: text},
	})
	return events
}

// onToolCallDelta routes a tool-call fragment to its slot, opening a new
// tool_use block (and closing any open text block) on first sight of the slot.
func (s *streamState) onToolCallDelta(call chunkToolCall) []types.StreamEvent {
	var events []types.StreamEvent

	slot, ok := s.slots[call.Index]
	if !ok {
		if s.textIndex >= 0 {
			events = append(events, &types.ContentBlockStopEvent{
				Type:  types.EventTypeContentBlockStop,
				Index: s.textIndex,
			})
			s.textIndex = -1
		}

		id := call.ID
		if id == "" {
			id = newToolCallID()
		}
		var name string
		if call.Function != nil {
			name = call.Function.Name
		}

		slot = &toolSlot{index: s.next(), id: id, name: name}
		s.slots[call.Index] = slot

		// Some upstreams send the function name only in a later fragment, so
		// the start event may carry an empty name. Deferring the start would
		// require buffering argument fragments instead.
		events = append(events, &types.ContentBlockStartEvent{
			Type:         types.EventTypeContentBlockStart,
			Index:        slot.index,
			ContentBlock: types.NewToolUseContentBlock(id, name, json.RawMessage("{}")),
		})
	} else if call.Function != nil && call.Function.Name != "" && slot.name == "" {
		slot.name = call.Function.Name
	}

	if call.Function != nil && call.Function.Arguments != "" {
		slot.args.WriteString(call.Function.Arguments)
		events = append(events, &types.ContentBlockDeltaEvent{
			Type:  types.EventTypeContentBlockDelta,
			Index: slot.index,
			Delta: types.ContentBlockDelta{
				Type:        types.DeltaTypeInputJSON,
				PartialJSON: call.Function.Arguments,
			},
		})
	}

	return events
}

// finish closes all open blocks in index order and emits the terminal
// message_delta and message_stop events.
func (s *streamState) finish() []types.StreamEvent {
	var events []types.StreamEvent

	if s.textIndex >= 0 {
		events = append(events, &types.ContentBlockStopEvent{
			Type:  types.EventTypeContentBlockStop,
			Index: s.textIndex,
		})
		s.textIndex = -1
	}

	indices := make([]int, 0, len(s.slots))
	for _, slot := range s.slots {
		indices = append(indices, slot.index)
	}
	sort.Ints(indices)
	for _, index := range indices {
		events = append(events, &types.ContentBlockStopEvent{
			Type:  types.EventTypeContentBlockStop,
			Index: index,
		})
	}
	s.slots = make(map[int]*toolSlot)

	events = append(events,
		&types.MessageDeltaEvent{
			Type: types.EventTypeMessageDelta,
			Delta: types.MessageDelta{
				StopReason: toStopReason(s.finishReason),
			},
			Usage: types.MessageDeltaUsage{OutputTokens: s.outputTokens},
		},
		&types.MessageStopEvent{Type: types.EventTypeMessageStop},
	)
	return events
}

// streamEvents turns the upstream SSE response into the Messages event
// sequence. The returned sequence owns res.Body and closes it on every exit
// path; dropping the iterator mid-stream cancels the upstream read.
//
// Decoding runs on a pump goroutine so the select loop can multiplex chunk
// arrival, the heartbeat, the idle timeout, and context cancellation.
func (a *CreateMessageAdapter) streamEvents(
	ctx context.Context,
	res *http.Response,
	state *streamState,
) iter.Seq2[types.StreamEvent, error] {
	return func(yield func(types.StreamEvent, error) bool) {
		defer func() { _ = res.Body.Close() }()

		type decoded struct {
			event ssestream.Event
			err   error
		}
		chunks := make(chan decoded)
		done := make(chan struct{})
		defer close(done)

		go func() {
			defer close(chunks)
			decoder := ssestream.NewDecoder(res)
			for decoder.Next() {
				select {
				case chunks <- decoded{event: decoder.Event()}:
				case <-done:
					return
				}
			}
			if err := decoder.Err(); err != nil {
				select {
				case chunks <- decoded{err: err}:
				case <-done:
				}
			}
		}()

		emit := func(events []types.StreamEvent) bool {
			for _, event := range events {
				if !yield(event, nil) {
					return false
				}
			}
			return true
		}

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()
		idle := time.NewTimer(a.idleTimeout())
		defer idle.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case <-heartbeat.C:
				if !yield(&types.PingEvent{Type: types.EventTypePing}, nil) {
					return
				}

			case <-idle.C:
				if state.started && state.blocksOpened() {
					emit(state.finish())
				} else {
					yield(nil, types.NewErrorResponse(types.ErrorTypeAPI,
						"upstream idle timeout exceeded"))
				}
				return

			case d, ok := <-chunks:
				if !ok {
					// Upstream closed without a [DONE] sentinel; treat a
					// started stream as complete, an empty one as a failure.
					if state.started {
						emit(state.finish())
					} else {
						yield(nil, types.NewErrorResponse(types.ErrorTypeAPI,
							"upstream closed stream without data"))
					}
					return
				}
				if d.err != nil {
					if ctx.Err() != nil {
						return
					}
					yield(nil, fromTransportError(d.err))
					return
				}

				resetIdleTimer(idle, a.idleTimeout())
				heartbeat.Reset(heartbeatInterval)

				data := bytes.TrimSpace(d.event.Data)
				if len(data) == 0 {
					continue
				}
				if string(data) == doneSentinel {
					if state.started {
						emit(state.finish())
					} else {
						yield(nil, types.NewErrorResponse(types.ErrorTypeAPI,
							"upstream closed stream without data"))
					}
					return
				}

				var chunk chatChunk
				if err := json.Unmarshal(data, &chunk); err != nil {
					slog.DebugContext(ctx, "skipping malformed upstream chunk", "error", err)
					continue
				}
				if !emit(state.onChunk(&chunk)) {
					return
				}
			}
		}
	}
}

// resetIdleTimer rearms a timer that has not fired, draining a concurrent
// expiry if one slipped in.
func resetIdleTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
