// Package hook speaks the agent hook protocol: one JSON invocation document
// on stdin, a verdict as the exit status, rationale on stderr, and an
// optional structured response on stdout.
package hook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// maxInputBytes caps how much of stdin is read.
const maxInputBytes = 4 << 20

const (
	eventSchemaURL = "https://saneprocess.dev/schema/hook-event.json"
	toolSchemaURL  = "https://saneprocess.dev/schema/hook-tool.json"
)

const eventSchema = `{
  "type": "object",
  "properties": {
    "session_id": {"type": "string"},
    "hook_event_name": {"type": "string"},
    "prompt": {"type": "string"},
    "task_subject": {"type": "string"},
    "source": {"type": "string"},
    "cwd": {"type": "string"}
  }
}`

const toolSchema = `{
  "allOf": [{"$ref": "hook-event.json"}],
  "required": ["tool_name"],
  "properties": {
    "tool_name": {"type": "string", "minLength": 1},
    "tool_input": {"type": "object"}
  }
}`

// Input is the invocation document delivered to every hook.
type Input struct {
	SessionID     string         `json:"session_id"`
	HookEventName string         `json:"hook_event_name,omitempty"`
	ToolName      string         `json:"tool_name,omitempty"`
	ToolInput     map[string]any `json:"tool_input,omitempty"`
	ToolResponse  any            `json:"tool_response,omitempty"`
	Prompt        string         `json:"prompt,omitempty"`
	TaskSubject   string         `json:"task_subject,omitempty"`
	Source        string         `json:"source,omitempty"`
	Cwd           string         `json:"cwd,omitempty"`
}

var (
	schemaOnce sync.Once
	schemas    map[string]*jsonschema.Schema
	schemaErr  error
)

func compileSchemas() (map[string]*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(eventSchemaURL, strings.NewReader(eventSchema)); err != nil {
			schemaErr = err
			return
		}
		if err := c.AddResource(toolSchemaURL, strings.NewReader(toolSchema)); err != nil {
			schemaErr = err
			return
		}
		schemas = make(map[string]*jsonschema.Schema, 2)
		for _, url := range []string{eventSchemaURL, toolSchemaURL} {
			s, err := c.Compile(url)
			if err != nil {
				schemaErr = fmt.Errorf("compile %s: %w", url, err)
				return
			}
			schemas[url] = s
		}
	})
	return schemas, schemaErr
}

// Decode reads and validates one invocation document. requireTool demands
// a tool_name, as PreToolUse and PostToolUse documents carry.
func Decode(r io.Reader, requireTool bool) (*Input, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrInvalidInput, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidInput)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	compiled, err := compileSchemas()
	if err != nil {
		return nil, fmt.Errorf("hook schema: %w", err)
	}
	url := eventSchemaURL
	if requireTool {
		url = toolSchemaURL
	}
	if err := compiled[url].Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return &in, nil
}

// Command returns tool_input.command for shell tools.
func (in *Input) Command() string {
	return stringField(in.ToolInput, "command")
}

// FilePath returns the file a tool targets, if any.
func (in *Input) FilePath() string {
	for _, key := range []string{"file_path", "notebook_path", "path"} {
		if v := stringField(in.ToolInput, key); v != "" {
			return v
		}
	}
	return ""
}

// Failed reports whether a PostToolUse response describes a failure: an
// is_error flag, an interrupted run, or a non-zero exit code.
func (in *Input) Failed() bool {
	resp, ok := in.ToolResponse.(map[string]any)
	if !ok {
		return false
	}
	if b, _ := resp["is_error"].(bool); b {
		return true
	}
	if b, _ := resp["interrupted"].(bool); b {
		return true
	}
	for _, key := range []string{"exit_code", "exitCode", "returncode"} {
		if n, ok := resp[key].(float64); ok && n != 0 {
			return true
		}
	}
	return false
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}
