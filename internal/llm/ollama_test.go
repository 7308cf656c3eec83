package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOllamaChat(t *testing.T) {
	var gotReq ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "qwen3:4b",
			"message": {"role": "assistant", "content": "Hi!"},
			"done": true,
			"prompt_eval_count": 12,
			"eval_count": 4
		}`))
	}))
	defer server.Close()

	c := NewOllamaClient(server.URL, testLogger())

	resp, err := c.Chat(context.Background(), "qwen3:4b", []Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "hello"},
	}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if gotReq.Stream {
		t.Error("request asked for streaming")
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[1].Content != "hello" {
		t.Errorf("unexpected request messages: %+v", gotReq.Messages)
	}

	if resp.Message.Content != "Hi!" {
		t.Errorf("content = %q", resp.Message.Content)
	}
	if resp.InputTokens != 12 || resp.OutputTokens != 4 {
		t.Errorf("tokens = %d/%d, want 12/4", resp.InputTokens, resp.OutputTokens)
	}
}

func TestOllamaChatToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"model": "qwen3:4b",
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [
					{"function": {"name": "web_search", "arguments": {"query": "news"}}}
				]
			},
			"done": true
		}`))
	}))
	defer server.Close()

	c := NewOllamaClient(server.URL, testLogger())

	resp, err := c.Chat(context.Background(), "qwen3:4b", []Message{{Role: "user", Content: "news?"}}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if len(resp.Message.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(resp.Message.ToolCalls))
	}
	tc := resp.Message.ToolCalls[0]
	if tc.Name != "web_search" {
		t.Errorf("name = %q", tc.Name)
	}

	// Arguments must be normalized to a raw JSON string.
	var args map[string]any
	if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
		t.Fatalf("arguments %q not valid JSON: %v", tc.Arguments, err)
	}
	if args["query"] != "news" {
		t.Errorf("args = %v", args)
	}
}

func TestOllamaChatAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	c := NewOllamaClient(server.URL, testLogger())

	if _, err := c.Chat(context.Background(), "missing", nil, nil); err == nil {
		t.Fatal("expected error for HTTP 404")
	}
}

func TestParseTextToolCalls(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantName string
		wantNil  bool
	}{
		{
			name:     "bare object",
			content:  `{"name": "get_time", "arguments": {}}`,
			wantName: "get_time",
		},
		{
			name:     "array",
			content:  `[{"name": "web_search", "arguments": {"query": "x"}}]`,
			wantName: "web_search",
		},
		{
			name:     "tagged",
			content:  `<tool_call>{"name": "get_time", "arguments": {}}</tool_call>`,
			wantName: "get_time",
		},
		{
			name:     "tagged without closing tag",
			content:  `<tool_call>{"name": "get_time", "arguments": {}}`,
			wantName: "get_time",
		},
		{name: "plain prose", content: "The time is 3pm.", wantNil: true},
		{name: "empty", content: "", wantNil: true},
		{name: "object without name", content: `{"arguments": {}}`, wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := parseTextToolCalls(tt.content)
			if tt.wantNil {
				if calls != nil {
					t.Errorf("parseTextToolCalls(%q) = %v, want nil", tt.content, calls)
				}
				return
			}
			if len(calls) == 0 || calls[0].Name != tt.wantName {
				t.Errorf("parseTextToolCalls(%q) = %v, want call named %q", tt.content, calls, tt.wantName)
			}
		})
	}
}

func TestOllamaPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %q, want /api/tags", r.URL.Path)
		}
		w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	c := NewOllamaClient(server.URL, testLogger())
	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
