// Package types provides Anthropic Messages API types for server-side
// request/response handling.
//
// The types are hand-written rather than borrowed from anthropic-sdk-go:
//
//  1. SERVER-SIDE vs CLIENT-SIDE: the SDK is designed for making outbound
//     API calls TO Anthropic. This proxy receives inbound requests FROM
//     clients and translates them to an OpenAI-compatible upstream. The
//     SDK's param/union wrappers are built for request construction, not
//     for decoding arbitrary client JSON.
//
//  2. UNION FIELDS: the Messages API has several string-or-array unions
//     (message content, system prompt, tool_result content). These decode
//     naturally with small custom UnmarshalJSON implementations over plain
//     structs, which work directly with json.NewDecoder().
//
//  3. FIELD SUBSET: the proxy only understands the fields it can forward.
//     Unsupported fields are retained as json.RawMessage so their dropping
//     can be logged, without modeling their full schemas.
package types
