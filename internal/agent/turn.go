// Package agent implements the turn orchestration loop: one user
// message in, exactly one reply out, with at most one tool invocation
// in between and a reply guaranteed on every path.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/apexlabs/apex-agent/internal/llm"
	"github.com/apexlabs/apex-agent/internal/tools"
)

// Outcome statuses. A turn that recovered from a failure still carries
// a reply; Status tells the caller which kind of turn it was.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Fixed replies for the paths where the model never produced text.
const (
	// EmptyInputReply answers an empty or whitespace-only message.
	// No backend call is made for these.
	EmptyInputReply = "Please type a message."

	// NoContentReply stands in when the model legally returns no
	// content at all.
	NoContentReply = "I couldn't generate a response."
)

// Outcome is the only externally visible artifact of a turn.
// Reply is never empty.
type Outcome struct {
	Reply  string `json:"reply"`
	Status string `json:"status"`
	Tool   string `json:"tool,omitempty"`  // tool executed this turn, if any
	Model  string `json:"model,omitempty"` // model that produced the reply
}

// Orchestrator resolves one user turn. It holds no per-turn state:
// concurrent Resolve calls are independent, and instances are safe to
// reuse across turns.
type Orchestrator struct {
	logger       *slog.Logger
	llm          llm.Client
	model        string
	registry     *tools.Registry
	systemPrompt string
}

// New creates a turn orchestrator. The registry may be empty, in which
// case every turn resolves as a direct answer.
func New(logger *slog.Logger, client llm.Client, model string, registry *tools.Registry, systemPrompt string) *Orchestrator {
	return &Orchestrator{
		logger:       logger,
		llm:          client,
		model:        model,
		registry:     registry,
		systemPrompt: systemPrompt,
	}
}

// Resolve processes one user message to completion. Every path returns
// an Outcome with a non-empty Reply; no input makes Resolve panic or
// return an error to the caller. Failures below the synthesis stage
// terminate the turn with Status=error and a diagnostic reply; a failed
// synthesis call degrades to the raw tool result and stays ok.
func (o *Orchestrator) Resolve(ctx context.Context, userText string) Outcome {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return Outcome{Reply: EmptyInputReply, Status: StatusError}
	}

	o.logger.Info("turn started", "model", o.model, "chars", len(userText))

	messages := []llm.Message{
		{Role: "system", Content: o.systemPrompt},
		{Role: "user", Content: userText},
	}

	resp, err := o.llm.Chat(ctx, o.model, messages, o.registry.List())
	if err != nil {
		o.logger.Error("inference failed", "error", err)
		return Outcome{
			Reply:  fmt.Sprintf("I couldn't reach the language model: %v", err),
			Status: StatusError,
			Model:  o.model,
		}
	}

	if len(resp.Message.ToolCalls) == 0 {
		reply := strings.TrimSpace(resp.Message.Content)
		if reply == "" {
			reply = NoContentReply
		}
		o.logger.Info("turn completed", "tool", "", "status", StatusOK)
		return Outcome{Reply: reply, Status: StatusOK, Model: resp.Model}
	}

	// One tool per turn: the first requested call wins, the rest are
	// dropped before they can have any effect.
	call := resp.Message.ToolCalls[0]
	if n := len(resp.Message.ToolCalls); n > 1 {
		o.logger.Warn("model requested multiple tools, executing first only",
			"tool", call.Name, "discarded", n-1)
	}

	o.logger.Info("executing tool", "tool", call.Name)

	result, err := o.registry.Execute(ctx, call.Name, call.Arguments)
	if err != nil {
		return o.toolFailure(call.Name, err, resp.Model)
	}

	reply, synthesized := o.synthesize(ctx, messages, call, result)
	status := "raw"
	if synthesized {
		status = "synthesized"
	}
	o.logger.Info("turn completed", "tool", call.Name, "reply", status)

	return Outcome{Reply: reply, Status: StatusOK, Tool: call.Name, Model: resp.Model}
}

// toolFailure renders a tool-layer error as the final reply. The
// failure is informative, not swallowed: the reply names the tool and
// carries the underlying message.
func (o *Orchestrator) toolFailure(name string, err error, model string) Outcome {
	var unavailable *tools.ErrToolUnavailable
	var badArgs *tools.ErrBadArguments

	var reply string
	switch {
	case errors.As(err, &unavailable):
		o.logger.Error("unknown tool requested", "tool", name)
		reply = fmt.Sprintf("The model requested an unrecognized capability %q, so I couldn't complete that.", name)
	case errors.As(err, &badArgs):
		o.logger.Error("tool arguments unparseable", "tool", name, "error", err)
		reply = fmt.Sprintf("The model produced invalid arguments for %s: %v", name, badArgs.Cause)
	default:
		o.logger.Error("tool execution failed", "tool", name, "error", err)
		reply = fmt.Sprintf("The %s tool failed: %v", name, err)
	}

	return Outcome{Reply: reply, Status: StatusError, Tool: name, Model: model}
}

// synthesize runs the second model call that turns raw tool output
// into prose. Tools are omitted so the model can only answer directly.
// Synthesis is best-effort: on failure or empty content the raw tool
// result is returned as the reply, and the turn is still a success.
func (o *Orchestrator) synthesize(ctx context.Context, messages []llm.Message, call llm.ToolCall, result string) (reply string, synthesized bool) {
	messages = append(messages,
		llm.Message{Role: "assistant", ToolCalls: []llm.ToolCall{call}},
		llm.Message{Role: "tool", Content: result, ToolCallID: call.ID},
	)

	resp, err := o.llm.Chat(ctx, o.model, messages, nil)
	if err != nil {
		o.logger.Warn("synthesis failed, returning raw tool result", "tool", call.Name, "error", err)
		return result, false
	}

	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		o.logger.Warn("synthesis returned no content, returning raw tool result", "tool", call.Name)
		return result, false
	}

	return text, true
}
