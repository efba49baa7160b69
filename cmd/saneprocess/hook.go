package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stephanjoseph/SaneProcess-sub003/internal/enforce"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/hook"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/probe"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/safety"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/triggers"
)

// promptActor attributes safety toggles made from the prompt stream.
const promptActor = "user-prompt"

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Agent runtime hook entry points",
	Long: `Hook commands read one JSON invocation document on stdin.

Exit status: 0 allow, 1 warn (proceeds), 2 block.
Rationale goes to stderr; structured output, if any, to stdout.
Any internal failure allows the action.`,
}

func init() {
	rootCmd.AddCommand(hookCmd)
	hookCmd.AddCommand(
		newHookCommand("session-start", "Reset the breaker and, on a fresh session, the requirement set", runSessionStart),
		newHookCommand("prompt", "Classify a user prompt and update requirements", runPrompt),
		newHookCommand("pre-tool", "Allow, warn or block a proposed tool call", runPreTool),
		newHookCommand("post-tool", "Record a tool outcome and any satisfied requirements", runPostTool),
		newHookCommand("task-completed", "Gate a task completion", runTaskCompleted),
	)
}

// hookFunc runs one hook and returns its exit status.
type hookFunc func(s *services, stdin io.Reader, stdout, stderr io.Writer) int

func newHookCommand(use, short string, fn hookFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return exitWith(runHook(cmd, fn))
		},
	}
}

// runHook fails open: missing services, a kill switch or a panic allow the
// action.
func runHook(cmd *cobra.Command, fn hookFunc) int {
	if svc == nil {
		return hook.ExitAllow
	}
	return safety.FailOpen(logger, cmd.Name(), func() int {
		return fn(svc, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	})
}

func isHookCommand(cmd *cobra.Command) bool {
	return cmd.Parent() == hookCmd
}

// decodeOrAllow reports false for input the hook must ignore; such
// invocations allow the action and change no state.
func decodeOrAllow(stdin io.Reader, requireTool bool) (*hook.Input, bool) {
	in, err := hook.Decode(stdin, requireTool)
	if err != nil {
		logger.Warn("hook input rejected, allowing", zap.Error(err))
		return nil, false
	}
	return in, true
}

func runSessionStart(s *services, stdin io.Reader, _, _ io.Writer) int {
	in, ok := decodeOrAllow(stdin, false)
	if !ok {
		return hook.ExitAllow
	}
	if _, err := s.breaker.Reset(); err != nil {
		logger.Warn("breaker reset failed", zap.Error(err))
	}
	switch in.Source {
	case "", "startup", "clear":
		if err := s.tracker.Reset(); err != nil {
			logger.Warn("requirement reset failed", zap.Error(err))
		}
	}
	logger.Info("session started", zap.String("session_id", in.SessionID), zap.String("source", in.Source))
	return hook.ExitAllow
}

func runPrompt(s *services, stdin io.Reader, stdout, _ io.Writer) int {
	in, ok := decodeOrAllow(stdin, false)
	if !ok {
		return hook.ExitAllow
	}

	var notes []string
	switch s.tracker.Classifier().Control(in.Prompt) {
	case triggers.ControlSkip:
		if _, err := s.gate.RequestSkip(); err != nil {
			logger.Warn("skip request failed", zap.Error(err))
		} else {
			notes = append(notes, "Skip armed: the next blocked action will be allowed once.")
		}
	case triggers.ControlSafetyOff:
		if _, err := s.gate.SetActive(true, promptActor); err != nil {
			logger.Warn("safety toggle failed", zap.Error(err))
		} else {
			notes = append(notes, "Safety off: process checks are suspended until turned back on.")
		}
	case triggers.ControlSafetyOn:
		if _, err := s.gate.SetActive(false, promptActor); err != nil {
			logger.Warn("safety toggle failed", zap.Error(err))
		} else {
			notes = append(notes, "Safety on: process checks are enforced.")
		}
	}

	tr := s.tracker.Classify(in.Prompt)
	if _, err := s.tracker.Apply(tr); err != nil {
		logger.Warn("requirement update failed", zap.Error(err))
	}
	if pending := s.tracker.Requirements().Pending(); len(pending) > 0 {
		notes = append(notes, fmt.Sprintf("Pending process steps: %s.", strings.Join(pending, ", ")))
	}
	logger.Debug("prompt classified", zap.String("kind", string(tr.Kind)), zap.Strings("matched", tr.Matched))

	if len(notes) == 0 {
		return hook.ExitAllow
	}
	if err := hook.WriteResponse(stdout, hook.ContextResponse(hook.EventPrompt, strings.Join(notes, "\n"))); err != nil {
		logger.Warn("write hook response", zap.Error(err))
	}
	return hook.ExitAllow
}

func runPreTool(s *services, stdin io.Reader, _, stderr io.Writer) int {
	in, ok := decodeOrAllow(stdin, true)
	if !ok {
		return hook.ExitAllow
	}
	v := s.enforcer.Evaluate(actionFor(in, hook.Category(in.ToolName)))
	return hook.Report(stderr, v)
}

func runPostTool(s *services, stdin io.Reader, _, stderr io.Writer) int {
	in, ok := decodeOrAllow(stdin, true)
	if !ok {
		return hook.ExitAllow
	}
	failed := in.Failed()
	command := in.Command()

	if failed {
		st, tripped, err := s.breaker.Fail()
		if err != nil {
			logger.Warn("breaker failure not recorded", zap.Error(err))
		} else if tripped {
			fmt.Fprintf(stderr, "WARNING: %d consecutive failures, circuit breaker is now open\n  Fix: investigate the failures, then run `saneprocess breaker reset`\n", st.FailureCount)
			return hook.ExitWarn
		}
	} else {
		if _, err := s.breaker.RecordSuccess(); err != nil {
			logger.Warn("breaker success not recorded", zap.Error(err))
		}
		for _, name := range s.tracker.Classifier().Satisfied(in.ToolName, command) {
			_, err := s.tracker.MarkSatisfied(name)
			switch {
			case errors.Is(err, triggers.ErrUnknownRequirement):
				logger.Debug("satisfier matched a requirement not in the set", zap.String("requirement", name))
			case err != nil:
				logger.Warn("requirement not marked", zap.String("requirement", name), zap.Error(err))
			}
		}
	}

	if command != "" && s.tracker.Classifier().IsBuildCommand(command) {
		if _, err := s.probe.Record(!failed, command, ""); err != nil {
			logger.Warn("build result not recorded", zap.Error(err))
		}
	}
	return hook.ExitAllow
}

func runTaskCompleted(s *services, stdin io.Reader, _, stderr io.Writer) int {
	in, ok := decodeOrAllow(stdin, false)
	if !ok {
		return hook.ExitAllow
	}
	a := actionFor(in, enforce.CategoryTaskCompletion)
	v := s.enforcer.Evaluate(a)
	if v.Outcome != enforce.Allow || v.Rule != enforce.RuleDefault {
		return hook.Report(stderr, v)
	}

	r, err := s.probe.Signal(context.Background())
	if err != nil {
		logger.Debug("no build signal", zap.Error(err))
		return hook.ExitAllow
	}
	if r.Status != probe.StatusFail {
		return hook.ExitAllow
	}
	warn := enforce.Verdict{
		Outcome: enforce.Warn,
		Rule:    enforce.RuleBuildSignal,
		Reason:  fmt.Sprintf("the last build/test run failed (%s at %s)", r.Command, r.At.Format("15:04:05")),
		Remedy:  "re-run the build and tests before marking the task done",
	}
	s.enforcer.Record(a, warn)
	return hook.Report(stderr, warn)
}

func actionFor(in *hook.Input, category string) enforce.Action {
	detail := map[string]any{}
	if in.ToolName != "" {
		detail["tool"] = in.ToolName
	}
	if c := in.Command(); c != "" {
		detail["command"] = c
	}
	if p := in.FilePath(); p != "" {
		detail["file_path"] = p
	}
	if in.TaskSubject != "" {
		detail["task_subject"] = in.TaskSubject
	}
	return enforce.Action{Category: category, Detail: detail, SessionID: in.SessionID}
}
