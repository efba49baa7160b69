package hook

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/stephanjoseph/SaneProcess-sub003/internal/enforce"
)

// Exit statuses understood by the agent runtime.
const (
	ExitAllow = 0
	ExitWarn  = 1
	ExitBlock = 2
)

// Hook event names.
const (
	EventSessionStart  = "SessionStart"
	EventPrompt        = "UserPromptSubmit"
	EventPreTool       = "PreToolUse"
	EventPostTool      = "PostToolUse"
	EventTaskCompleted = "TaskCompleted"
)

// Category maps a tool name onto the action category the enforcer gates.
func Category(toolName string) string {
	switch toolName {
	case "Bash":
		return enforce.CategoryShell
	case "Edit", "Write", "MultiEdit", "NotebookEdit":
		return enforce.CategoryFileEdit
	case "TaskUpdate", "TaskCompleted":
		return enforce.CategoryTaskCompletion
	default:
		return enforce.CategoryOther
	}
}

// ExitCode is the process status for a verdict outcome.
func ExitCode(o enforce.Outcome) int {
	switch o {
	case enforce.Block:
		return ExitBlock
	case enforce.Warn:
		return ExitWarn
	default:
		return ExitAllow
	}
}

// Response is the structured document a hook may print on stdout.
type Response struct {
	HookSpecificOutput *SpecificOutput `json:"hookSpecificOutput,omitempty"`
	SystemMessage      string          `json:"systemMessage,omitempty"`
}

// SpecificOutput carries event-scoped context back to the agent.
type SpecificOutput struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

// ContextResponse builds a response that injects text into the agent's context.
func ContextResponse(event, text string) Response {
	return Response{HookSpecificOutput: &SpecificOutput{HookEventName: event, AdditionalContext: text}}
}

// WriteResponse encodes r as a single JSON line.
func WriteResponse(w io.Writer, r Response) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode hook response: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// Report writes a verdict's rationale to stderr when it has one to show and
// returns the exit status to use.
func Report(stderr io.Writer, v enforce.Verdict) int {
	if v.Outcome != enforce.Allow {
		fmt.Fprintln(stderr, v.Message())
	}
	return ExitCode(v.Outcome)
}
