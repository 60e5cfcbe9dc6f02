package openaichat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/m0n0x41d/anthropic-proxy/internal/anthropicadapter/types"
)

// mockUpstreamTransport returns pre-recorded responses without network calls.
type mockUpstreamTransport struct {
	responseStatus int
	responseBody   string
	isStreaming    bool
}

func (m *mockUpstreamTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	contentType := "application/json"
	if m.isStreaming {
		contentType = "text/event-stream"
	}

	return &http.Response{
		StatusCode: m.responseStatus,
		Body:       io.NopCloser(strings.NewReader(m.responseBody)),
		Header:     http.Header{"Content-Type": []string{contentType}},
		Request:    req,
	}, nil
}

// bodyTransport serves an arbitrary reader as a streaming response body,
// for tests that need to control the timing of upstream reads.
type bodyTransport struct {
	body io.ReadCloser
}

func (b *bodyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       b.body,
		Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
		Request:    req,
	}, nil
}

// sseBody joins data payloads into an upstream SSE stream.
func sseBody(payloads ...string) string {
	var sb strings.Builder
	for _, payload := range payloads {
		sb.WriteString("data: ")
		sb.WriteString(payload)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func asErrorResponse(err error, target **types.ErrorResponse) bool {
	return errors.As(err, target)
}

// runStream drives a streaming request against a mock upstream and collects
// the translated events and the first stream error.
func runStream(t *testing.T, transport http.RoundTripper, cfg Config) ([]types.StreamEvent, error) {
	t.Helper()

	adapter, err := New("http://upstream.test", cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	req := decodeRequest(t, `{"model":"m","max_tokens":10,"stream":true,"messages":[{"role":"user","content":"hi"}]}`)
	stream, err := adapter.ProcessStreamingRequest(context.Background(), req, transport)
	if err != nil {
		t.Fatalf("ProcessStreamingRequest failed: %v", err)
	}

	var events []types.StreamEvent
	for event, err := range stream {
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
	return events, nil
}

// eventTypes lists the event names in emission order, skipping pings.
func eventTypes(events []types.StreamEvent) []string {
	var names []string
	for _, event := range events {
		if event.EventType() == types.EventTypePing {
			continue
		}
		names = append(names, event.EventType())
	}
	return names
}

// checkEventGrammar asserts the structural invariants of the Messages event
// grammar: exactly one message_start first and one message_stop last, and a
// start → delta* → stop lifecycle per block index.
func checkEventGrammar(t *testing.T, events []types.StreamEvent) {
	t.Helper()

	const (
		blockOpen = iota
		blockClosed
	)
	blocks := make(map[int]int)
	starts, stops := 0, 0

	for i, event := range events {
		switch e := event.(type) {
		case *types.MessageStartEvent:
			starts++
			if i != 0 {
				t.Errorf("message_start at position %d, want 0", i)
			}
		case *types.MessageStopEvent:
			stops++
			if i != len(events)-1 {
				t.Errorf("message_stop at position %d, want last", i)
			}
		case *types.ContentBlockStartEvent:
			if _, seen := blocks[e.Index]; seen {
				t.Errorf("duplicate content_block_start for index %d", e.Index)
			}
			blocks[e.Index] = blockOpen
		case *types.ContentBlockDeltaEvent:
			if state, seen := blocks[e.Index]; !seen || state != blockOpen {
				t.Errorf("content_block_delta for index %d outside open block", e.Index)
			}
		case *types.ContentBlockStopEvent:
			if state, seen := blocks[e.Index]; !seen || state != blockOpen {
				t.Errorf("content_block_stop for index %d without open block", e.Index)
			}
			blocks[e.Index] = blockClosed
		case *types.PingEvent, *types.MessageDeltaEvent:
		default:
			t.Errorf("unexpected event type %T", event)
		}
	}

	if starts != 1 {
		t.Errorf("message_start count = %d, want 1", starts)
	}
	if stops != 1 {
		t.Errorf("message_stop count = %d, want 1", stops)
	}
	for index, state := range blocks {
		if state != blockClosed {
			t.Errorf("block %d never closed", index)
		}
	}
}

func TestStreamPlainText(t *testing.T) {
	transport := &mockUpstreamTransport{
		responseStatus: http.StatusOK,
		isStreaming:    true,
		responseBody: sseBody(
			`{"id":"c1","model":"gpt-fast","choices":[{"index":0,"delta":{"role":"assistant","content":"Hel"}}]}`,
			`{"choices":[{"index":0,"delta":{"content":"lo"}}]}`,
			`{"choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
			`[DONE]`,
		),
	}

	events, err := runStream(t, transport, Config{})
	if err != nil {
		t.Fatalf("stream error: %v", err)
	}
	checkEventGrammar(t, events)

	want := []string{
		"message_start",
		"content_block_start",
		"content_block_delta",
		"content_block_delta",
		"content_block_stop",
		"message_delta",
		"message_stop",
	}
	got := eventTypes(events)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("event sequence = %v, want %v", got, want)
	}

	start := events[0].(*types.MessageStartEvent)
	if !strings.HasPrefix(start.Message.ID, "msg_") {
		t.Errorf("message ID = %q, want msg_ prefix", start.Message.ID)
	}
	if start.Message.Model != "gpt-fast" {
		t.Errorf("message model = %q, want upstream model", start.Message.Model)
	}
	if start.Message.StopReason != nil {
		t.Errorf("message_start stop_reason = %v, want null", start.Message.StopReason)
	}

	blockStart := events[1].(*types.ContentBlockStartEvent)
	if blockStart.Index != 0 || blockStart.ContentBlock.Type != types.BlockTypeText ||
		*blockStart.ContentBlock.Text != "" {
		t.Errorf("unexpected content_block_start: %+v", blockStart)
	}

	first := events[2].(*types.ContentBlockDeltaEvent)
	second := events[3].(*types.ContentBlockDeltaEvent)
	if first.Delta.Text != "Hel" || second.Delta.Text != "lo" {
		t.Errorf("text deltas = %q, %q", first.Delta.Text, second.Delta.Text)
	}

	messageDelta := events[5].(*types.MessageDeltaEvent)
	if messageDelta.Delta.StopReason != types.StopReasonEndTurn {
		t.Errorf("stop_reason = %q, want end_turn", messageDelta.Delta.StopReason)
	}
	if messageDelta.Delta.StopSequence != nil {
		t.Errorf("stop_sequence = %v, want null", messageDelta.Delta.StopSequence)
	}
}

func TestStreamSingleToolCall(t *testing.T) {
	transport := &mockUpstreamTransport{
		responseStatus: http.StatusOK,
		isStreaming:    true,
		responseBody: sseBody(
			`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"c1","function":{"name":"f","arguments":"{\"a\":"}}]}}]}`,
			`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"1}"}}]}}]}`,
			`{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
			`[DONE]`,
		),
	}

	events, err := runStream(t, transport, Config{})
	if err != nil {
		t.Fatalf("stream error: %v", err)
	}
	checkEventGrammar(t, events)

	want := []string{
		"message_start",
		"content_block_start",
		"content_block_delta",
		"content_block_delta",
		"content_block_stop",
		"message_delta",
		"message_stop",
	}
	if got := eventTypes(events); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("event sequence = %v, want %v", got, want)
	}

	blockStart := events[1].(*types.ContentBlockStartEvent)
	if blockStart.ContentBlock.Type != types.BlockTypeToolUse ||
		blockStart.ContentBlock.ID != "c1" || blockStart.ContentBlock.Name != "f" ||
		string(blockStart.ContentBlock.Input) != "{}" {
		t.Errorf("unexpected tool_use start: %+v", blockStart.ContentBlock)
	}

	// Reassembled fragments must parse to the tool input the client will see.
	var assembled strings.Builder
	for _, event := range events {
		if delta, ok := event.(*types.ContentBlockDeltaEvent); ok {
			if delta.Delta.Type != types.DeltaTypeInputJSON {
				t.Errorf("unexpected delta type %q in tool-only stream", delta.Delta.Type)
			}
			assembled.WriteString(delta.Delta.PartialJSON)
		}
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(assembled.String()), &input); err != nil {
		t.Fatalf("assembled arguments %q do not parse: %v", assembled.String(), err)
	}
	if input["a"] != float64(1) {
		t.Errorf("assembled input = %v", input)
	}

	messageDelta := events[5].(*types.MessageDeltaEvent)
	if messageDelta.Delta.StopReason != types.StopReasonToolUse {
		t.Errorf("stop_reason = %q, want tool_use", messageDelta.Delta.StopReason)
	}
}

// TestStreamMixedTextAndTool verifies the open text block closes before the
// tool_use block opens, and indices stay stable.
func TestStreamMixedTextAndTool(t *testing.T) {
	transport := &mockUpstreamTransport{
		responseStatus: http.StatusOK,
		isStreaming:    true,
		responseBody: sseBody(
			`{"choices":[{"index":0,"delta":{"content":"Let me check."}}]}`,
			`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"c1","function":{"name":"f","arguments":"{}"}}]}}]}`,
			`{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
			`[DONE]`,
		),
	}

	events, err := runStream(t, transport, Config{})
	if err != nil {
		t.Fatalf("stream error: %v", err)
	}
	checkEventGrammar(t, events)

	want := []string{
		"message_start",
		"content_block_start", // text, index 0
		"content_block_delta",
		"content_block_stop",  // text closes before the tool block opens
		"content_block_start", // tool_use, index 1
		"content_block_delta",
		"content_block_stop",
		"message_delta",
		"message_stop",
	}
	if got := eventTypes(events); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("event sequence = %v, want %v", got, want)
	}

	textStart := events[1].(*types.ContentBlockStartEvent)
	toolStart := events[4].(*types.ContentBlockStartEvent)
	if textStart.Index != 0 || toolStart.Index != 1 {
		t.Errorf("indices = %d, %d, want 0, 1", textStart.Index, toolStart.Index)
	}
}

// TestStreamConcurrentToolSlots verifies two upstream slots map to distinct
// block indices with independently routed argument fragments.
func TestStreamConcurrentToolSlots(t *testing.T) {
	transport := &mockUpstreamTransport{
		responseStatus: http.StatusOK,
		isStreaming:    true,
		responseBody: sseBody(
			`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"c1","function":{"name":"f","arguments":"{\"a\""}}]}}]}`,
			`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":1,"id":"c2","function":{"name":"g","arguments":"{\"b\""}}]}}]}`,
			`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":":1}"}},{"index":1,"function":{"arguments":":2}"}}]}}]}`,
			`{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
			`[DONE]`,
		),
	}

	events, err := runStream(t, transport, Config{})
	if err != nil {
		t.Fatalf("stream error: %v", err)
	}
	checkEventGrammar(t, events)

	assembled := map[int]*strings.Builder{}
	for _, event := range events {
		if delta, ok := event.(*types.ContentBlockDeltaEvent); ok {
			if assembled[delta.Index] == nil {
				assembled[delta.Index] = &strings.Builder{}
			}
			assembled[delta.Index].WriteString(delta.Delta.PartialJSON)
		}
	}
	if got := assembled[0].String(); got != `{"a":1}` {
		t.Errorf("slot 0 arguments = %q", got)
	}
	if got := assembled[1].String(); got != `{"b":2}` {
		t.Errorf("slot 1 arguments = %q", got)
	}
}

// TestStreamLateToolName covers upstreams that send the function name only
// in a later fragment: the start event carries an empty name.
func TestStreamLateToolName(t *testing.T) {
	transport := &mockUpstreamTransport{
		responseStatus: http.StatusOK,
		isStreaming:    true,
		responseBody: sseBody(
			`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"c1"}]}}]}`,
			`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"name":"f","arguments":"{}"}}]}}]}`,
			`{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
			`[DONE]`,
		),
	}

	events, err := runStream(t, transport, Config{})
	if err != nil {
		t.Fatalf("stream error: %v", err)
	}
	checkEventGrammar(t, events)

	starts := 0
	for _, event := range events {
		if start, ok := event.(*types.ContentBlockStartEvent); ok {
			starts++
			if start.ContentBlock.ID != "c1" {
				t.Errorf("tool_use id = %q, want c1", start.ContentBlock.ID)
			}
		}
	}
	if starts != 1 {
		t.Errorf("content_block_start count = %d, want 1 (no re-emission on late name)", starts)
	}
}

func TestStreamBoundaryBehaviors(t *testing.T) {
	t.Run("empty content deltas open no block", func(t *testing.T) {
		transport := &mockUpstreamTransport{
			responseStatus: http.StatusOK,
			isStreaming:    true,
			responseBody: sseBody(
				`{"choices":[{"index":0,"delta":{"role":"assistant","content":""}}]}`,
				`{"choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
				`[DONE]`,
			),
		}

		events, err := runStream(t, transport, Config{})
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		want := []string{"message_start", "message_delta", "message_stop"}
		if got := eventTypes(events); fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("event sequence = %v, want %v", got, want)
		}
	})

	t.Run("tool-only stream has no text block", func(t *testing.T) {
		transport := &mockUpstreamTransport{
			responseStatus: http.StatusOK,
			isStreaming:    true,
			responseBody: sseBody(
				`{"choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"c1","function":{"name":"f","arguments":"{}"}}]}}]}`,
				`{"choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
				`[DONE]`,
			),
		}

		events, err := runStream(t, transport, Config{})
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		for _, event := range events {
			if start, ok := event.(*types.ContentBlockStartEvent); ok {
				if start.ContentBlock.Type == types.BlockTypeText {
					t.Error("text block opened in tool-only stream")
				}
			}
		}
	})

	t.Run("no usage yields zero counts", func(t *testing.T) {
		transport := &mockUpstreamTransport{
			responseStatus: http.StatusOK,
			isStreaming:    true,
			responseBody: sseBody(
				`{"choices":[{"index":0,"delta":{"content":"hi"}}]}`,
				`[DONE]`,
			),
		}

		events, err := runStream(t, transport, Config{})
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		start := events[0].(*types.MessageStartEvent)
		if start.Message.Usage.InputTokens != 0 || start.Message.Usage.OutputTokens != 0 {
			t.Errorf("message_start usage = %+v, want zeros", start.Message.Usage)
		}
		for _, event := range events {
			if delta, ok := event.(*types.MessageDeltaEvent); ok {
				if delta.Usage.OutputTokens != 0 {
					t.Errorf("message_delta usage = %+v, want zero", delta.Usage)
				}
			}
		}
	})

	t.Run("usage propagates from chunks", func(t *testing.T) {
		transport := &mockUpstreamTransport{
			responseStatus: http.StatusOK,
			isStreaming:    true,
			responseBody: sseBody(
				`{"choices":[{"index":0,"delta":{"content":"hi"}}],"usage":{"prompt_tokens":7,"completion_tokens":1,"total_tokens":8}}`,
				`{"choices":[{"index":0,"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":7,"completion_tokens":12,"total_tokens":19}}`,
				`[DONE]`,
			),
		}

		events, err := runStream(t, transport, Config{})
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		start := events[0].(*types.MessageStartEvent)
		if start.Message.Usage.InputTokens != 7 {
			t.Errorf("input tokens = %d, want 7", start.Message.Usage.InputTokens)
		}
		// Last writer wins on output tokens.
		for _, event := range events {
			if delta, ok := event.(*types.MessageDeltaEvent); ok {
				if delta.Usage.OutputTokens != 12 {
					t.Errorf("output tokens = %d, want 12", delta.Usage.OutputTokens)
				}
			}
		}
	})

	t.Run("malformed chunks are skipped", func(t *testing.T) {
		transport := &mockUpstreamTransport{
			responseStatus: http.StatusOK,
			isStreaming:    true,
			responseBody: sseBody(
				`{"choices":[{"index":0,"delta":{"content":"Hel"}}]}`,
				`{this is not json`,
				`{"choices":[{"index":0,"delta":{"content":"lo"}}]}`,
				`[DONE]`,
			),
		}

		events, err := runStream(t, transport, Config{})
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		checkEventGrammar(t, events)

		var text strings.Builder
		for _, event := range events {
			if delta, ok := event.(*types.ContentBlockDeltaEvent); ok {
				text.WriteString(delta.Delta.Text)
			}
		}
		if text.String() != "Hello" {
			t.Errorf("text = %q, want Hello", text.String())
		}
	})

	t.Run("missing finish reason maps to end_turn", func(t *testing.T) {
		transport := &mockUpstreamTransport{
			responseStatus: http.StatusOK,
			isStreaming:    true,
			responseBody: sseBody(
				`{"choices":[{"index":0,"delta":{"content":"hi"}}]}`,
				`[DONE]`,
			),
		}

		events, err := runStream(t, transport, Config{})
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		for _, event := range events {
			if delta, ok := event.(*types.MessageDeltaEvent); ok {
				if delta.Delta.StopReason != types.StopReasonEndTurn {
					t.Errorf("stop_reason = %q, want end_turn", delta.Delta.StopReason)
				}
			}
		}
	})
}

// TestStreamUpstreamRejection verifies pre-stream failures surface as plain
// errors, so the handler can still answer with a JSON body.
func TestStreamUpstreamRejection(t *testing.T) {
	adapter, err := New("http://upstream.test", Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	transport := &mockUpstreamTransport{
		responseStatus: http.StatusUnauthorized,
		responseBody:   `{"error":{"message":"bad key","type":"invalid_api_key"}}`,
	}

	req := decodeRequest(t, `{"model":"m","max_tokens":10,"stream":true,"messages":[{"role":"user","content":"hi"}]}`)
	_, err = adapter.ProcessStreamingRequest(context.Background(), req, transport)
	if err == nil {
		t.Fatal("expected pre-stream error")
	}

	var errResp *types.ErrorResponse
	if !asErrorResponse(err, &errResp) {
		t.Fatalf("error is not an ErrorResponse: %v", err)
	}
	if errResp.Err.Type != types.ErrorTypeAuthentication {
		t.Errorf("error type = %q, want authentication_error", errResp.Err.Type)
	}
	if errResp.Err.Message != "bad key" {
		t.Errorf("error message = %q, want upstream message", errResp.Err.Message)
	}
}

// TestStreamEmptyUpstream verifies a stream that ends without chunks fails
// rather than fabricating an empty message.
func TestStreamEmptyUpstream(t *testing.T) {
	transport := &mockUpstreamTransport{
		responseStatus: http.StatusOK,
		isStreaming:    true,
		responseBody:   sseBody(`[DONE]`),
	}

	events, err := runStream(t, transport, Config{})
	if err == nil {
		t.Fatal("expected error for empty upstream stream")
	}
	if len(events) != 0 {
		t.Errorf("events = %v, want none", eventTypes(events))
	}
	var errResp *types.ErrorResponse
	if !asErrorResponse(err, &errResp) || errResp.Err.Type != types.ErrorTypeAPI {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestStreamEOFWithoutDone verifies a started stream that loses its [DONE]
// sentinel still closes with the full terminal sequence.
func TestStreamEOFWithoutDone(t *testing.T) {
	transport := &mockUpstreamTransport{
		responseStatus: http.StatusOK,
		isStreaming:    true,
		responseBody: sseBody(
			`{"choices":[{"index":0,"delta":{"content":"hi"}}]}`,
			`{"choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		),
	}

	events, err := runStream(t, transport, Config{})
	if err != nil {
		t.Fatalf("stream error: %v", err)
	}
	checkEventGrammar(t, events)
}

func TestStreamIdleTimeout(t *testing.T) {
	t.Run("before any chunk fails the stream", func(t *testing.T) {
		pr, pw := io.Pipe()
		defer func() { _ = pw.Close() }()

		events, err := runStream(t, &bodyTransport{body: pr}, Config{IdleTimeout: 30 * time.Millisecond})
		if err == nil {
			t.Fatal("expected idle timeout error")
		}
		if len(events) != 0 {
			t.Errorf("events = %v, want none", eventTypes(events))
		}
		var errResp *types.ErrorResponse
		if !asErrorResponse(err, &errResp) || errResp.Err.Type != types.ErrorTypeAPI {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("after an open block closes gracefully", func(t *testing.T) {
		pr, pw := io.Pipe()
		go func() {
			_, _ = io.WriteString(pw, sseBody(`{"choices":[{"index":0,"delta":{"content":"hi"}}]}`))
			// Keep the pipe open so the stream goes silent instead of ending.
		}()
		defer func() { _ = pw.Close() }()

		events, err := runStream(t, &bodyTransport{body: pr}, Config{IdleTimeout: 50 * time.Millisecond})
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		checkEventGrammar(t, events)

		got := eventTypes(events)
		if got[len(got)-1] != types.EventTypeMessageStop {
			t.Errorf("last event = %q, want message_stop", got[len(got)-1])
		}
	})
}

// TestStreamCancellation verifies no events are emitted after the request
// context is canceled.
func TestStreamCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		_, _ = io.WriteString(pw, sseBody(`{"choices":[{"index":0,"delta":{"content":"hi"}}]}`))
	}()
	defer func() { _ = pw.Close() }()

	adapter, err := New("http://upstream.test", Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := decodeRequest(t, `{"model":"m","max_tokens":10,"stream":true,"messages":[{"role":"user","content":"hi"}]}`)
	stream, err := adapter.ProcessStreamingRequest(ctx, req, &bodyTransport{body: pr})
	if err != nil {
		t.Fatalf("ProcessStreamingRequest failed: %v", err)
	}

	var events []types.StreamEvent
	for event, err := range stream {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		events = append(events, event)
		// Cancel as soon as the stream is live; the iterator must then end
		// without emitting terminal events.
		cancel()
	}

	for _, event := range events {
		switch event.EventType() {
		case types.EventTypeMessageDelta, types.EventTypeMessageStop:
			t.Errorf("terminal event %q emitted after cancellation", event.EventType())
		}
	}
}
