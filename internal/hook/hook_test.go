package hook

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephanjoseph/SaneProcess-sub003/internal/enforce"
)

func TestDecode_ToolDocument(t *testing.T) {
	doc := `{"session_id":"s1","hook_event_name":"PreToolUse","tool_name":"Bash","tool_input":{"command":"go test ./..."}}`
	in, err := Decode(strings.NewReader(doc), true)
	require.NoError(t, err)
	assert.Equal(t, "s1", in.SessionID)
	assert.Equal(t, "Bash", in.ToolName)
	assert.Equal(t, "go test ./...", in.Command())
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		requireTool bool
	}{
		{"empty", "", false},
		{"whitespace", "  \n", false},
		{"not json", "{nope", false},
		{"array", `[1,2]`, false},
		{"missing tool name", `{"session_id":"s"}`, true},
		{"empty tool name", `{"tool_name":""}`, true},
		{"tool input not object", `{"tool_name":"Bash","tool_input":"ls"}`, true},
		{"session id wrong type", `{"session_id":7}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc), tt.requireTool)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput), "got %v", err)
		})
	}
}

func TestDecode_EventWithoutTool(t *testing.T) {
	in, err := Decode(strings.NewReader(`{"prompt":"implement login","session_id":"x"}`), false)
	require.NoError(t, err)
	assert.Equal(t, "implement login", in.Prompt)
	assert.Empty(t, in.ToolName)
}

func TestFilePath(t *testing.T) {
	in := &Input{ToolInput: map[string]any{"notebook_path": "a.ipynb"}}
	assert.Equal(t, "a.ipynb", in.FilePath())
	assert.Empty(t, (&Input{}).FilePath())
}

func TestFailed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want bool
	}{
		{"no response", `{"tool_name":"Bash"}`, false},
		{"string response", `{"tool_name":"Bash","tool_response":"ok"}`, false},
		{"success", `{"tool_name":"Bash","tool_response":{"exit_code":0,"stdout":"ok"}}`, false},
		{"is_error", `{"tool_name":"Edit","tool_response":{"is_error":true}}`, true},
		{"interrupted", `{"tool_name":"Bash","tool_response":{"interrupted":true}}`, true},
		{"nonzero exit", `{"tool_name":"Bash","tool_response":{"exit_code":2}}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := Decode(strings.NewReader(tt.doc), true)
			require.NoError(t, err)
			assert.Equal(t, tt.want, in.Failed())
		})
	}
}

func TestCategory(t *testing.T) {
	tests := map[string]string{
		"Bash":         enforce.CategoryShell,
		"Edit":         enforce.CategoryFileEdit,
		"Write":        enforce.CategoryFileEdit,
		"MultiEdit":    enforce.CategoryFileEdit,
		"NotebookEdit": enforce.CategoryFileEdit,
		"TaskUpdate":   enforce.CategoryTaskCompletion,
		"Read":         enforce.CategoryOther,
		"":             enforce.CategoryOther,
	}
	for tool, want := range tests {
		assert.Equal(t, want, Category(tool), tool)
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitAllow, ExitCode(enforce.Allow))
	assert.Equal(t, ExitWarn, ExitCode(enforce.Warn))
	assert.Equal(t, ExitBlock, ExitCode(enforce.Block))
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	code := Report(&buf, enforce.Verdict{Outcome: enforce.Allow, Reason: "all checks passed"})
	assert.Equal(t, ExitAllow, code)
	assert.Empty(t, buf.String())

	code = Report(&buf, enforce.Verdict{Outcome: enforce.Block, Reason: "file-edit requires research first", Remedy: "read first"})
	assert.Equal(t, ExitBlock, code)
	assert.Contains(t, buf.String(), "BLOCKED: file-edit requires research first")
}

func TestWriteResponse(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResponse(&buf, ContextResponse(EventPrompt, "Requirements: research, plan")))
	assert.JSONEq(t,
		`{"hookSpecificOutput":{"hookEventName":"UserPromptSubmit","additionalContext":"Requirements: research, plan"}}`,
		buf.String())
}
