package llm

import "context"

// Client is the interface that all LLM providers must implement.
//
// Chat is a single round trip: given a conversation and a set of tool
// declarations (the {type: function, function: {...}} wire form built
// by the tool registry), it returns either a direct answer or one or
// more tool call requests. All transport, decoding, and authentication
// failures are reported as ordinary errors.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}
