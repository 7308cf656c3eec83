package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apexlabs/apex-agent/internal/agent"
	"github.com/apexlabs/apex-agent/internal/memory"
)

// stubResolver returns a fixed outcome and records inputs.
type stubResolver struct {
	outcome agent.Outcome
	inputs  []string
}

func (s *stubResolver) Resolve(ctx context.Context, userText string) agent.Outcome {
	s.inputs = append(s.inputs, userText)
	if strings.TrimSpace(userText) == "" {
		return agent.Outcome{Reply: agent.EmptyInputReply, Status: agent.StatusError}
	}
	return s.outcome
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, resolver Resolver, store *memory.TurnStore) *Server {
	t.Helper()
	return NewServer("", 0, resolver, store, "system prompt", testLogger())
}

func postChat(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChatOK(t *testing.T) {
	resolver := &stubResolver{outcome: agent.Outcome{
		Reply:  "It is 3pm.",
		Status: agent.StatusOK,
		Tool:   "get_time",
	}}
	server := newTestServer(t, resolver, nil)

	rec := postChat(t, server.Handler(), `{"message": "what time is it?"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Reply != "It is 3pm." {
		t.Errorf("reply = %q", resp.Reply)
	}
	if resp.Response != resp.Reply {
		t.Errorf("response %q does not mirror reply %q", resp.Response, resp.Reply)
	}
	if resp.Status != agent.StatusOK {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.Tool != "get_time" {
		t.Errorf("tool = %q", resp.Tool)
	}
	if resp.TurnID == "" {
		t.Error("turn_id is empty")
	}
}

// An empty message is a valid request: the turn resolves with the
// fixed reply and status error, but the HTTP layer still answers 200.
func TestChatEmptyMessage(t *testing.T) {
	resolver := &stubResolver{}
	server := newTestServer(t, resolver, nil)

	for _, body := range []string{`{"message": ""}`, `{}`} {
		rec := postChat(t, server.Handler(), body)

		if rec.Code != http.StatusOK {
			t.Errorf("body %s: status = %d, want 200", body, rec.Code)
		}
		var resp ChatResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Reply != agent.EmptyInputReply {
			t.Errorf("body %s: reply = %q", body, resp.Reply)
		}
		if resp.Status != agent.StatusError {
			t.Errorf("body %s: status = %q", body, resp.Status)
		}
	}
}

func TestChatMalformedBody(t *testing.T) {
	resolver := &stubResolver{}
	server := newTestServer(t, resolver, nil)

	rec := postChat(t, server.Handler(), `{"message": `)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(resolver.inputs) != 0 {
		t.Errorf("orchestrator was invoked for a malformed body")
	}
}

func TestChatRecordsTurn(t *testing.T) {
	store, err := memory.NewTurnStore(filepath.Join(t.TempDir(), "turns.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	resolver := &stubResolver{outcome: agent.Outcome{
		Reply:  "answer",
		Status: agent.StatusOK,
		Tool:   "web_search",
		Model:  "test-model",
	}}
	server := newTestServer(t, resolver, store)

	postChat(t, server.Handler(), `{"message": "question"}`)

	turns, err := store.RecentTurns(10)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("recorded %d turns, want 1", len(turns))
	}
	turn := turns[0]
	if turn.UserText != "question" || turn.Reply != "answer" || turn.Tool != "web_search" {
		t.Errorf("recorded turn = %+v", turn)
	}
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, &stubResolver{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "healthy" {
		t.Errorf("body = %v", body)
	}
}

func TestVersion(t *testing.T) {
	server := newTestServer(t, &stubResolver{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/version", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["version"] == "" {
		t.Errorf("body = %v", body)
	}
}

func TestPrompt(t *testing.T) {
	server := newTestServer(t, &stubResolver{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/prompt", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["prompt"] != "system prompt" {
		t.Errorf("prompt = %q", body["prompt"])
	}
}

func TestTurnsWithoutStore(t *testing.T) {
	server := newTestServer(t, &stubResolver{}, nil)

	for _, path := range []string{"/v1/turns", "/v1/stats"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", path, rec.Code)
		}
	}
}

func TestStats(t *testing.T) {
	store, err := memory.NewTurnStore(filepath.Join(t.TempDir(), "turns.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	resolver := &stubResolver{outcome: agent.Outcome{Reply: "ok", Status: agent.StatusOK}}
	server := newTestServer(t, resolver, store)
	handler := server.Handler()

	postChat(t, handler, `{"message": "one"}`)
	postChat(t, handler, `{"message": "two"}`)

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var stats memory.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalTurns != 2 {
		t.Errorf("total_turns = %d, want 2", stats.TotalTurns)
	}
	if stats.ByStatus[agent.StatusOK] != 2 {
		t.Errorf("by_status = %v", stats.ByStatus)
	}
}
