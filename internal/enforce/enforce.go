// Package enforce combines the bypass gate, the circuit breaker, and the
// requirement set into a single allow/block verdict per proposed action.
//
// Precedence, first match wins:
//
//  1. safety toggle off                 -> Allow
//  2. skip token consumed               -> Allow (one time)
//  3. circuit breaker open              -> Block
//  4. category has unmet requirements   -> Block
//  5. otherwise                         -> Allow
//
// The skip token is only offered to actions that rules 3 or 4 would block,
// so an action that passes anyway never spends it.
package enforce

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stephanjoseph/SaneProcess-sub003/internal/audit"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/breaker"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/bypass"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/triggers"
)

// Action categories produced by the tool classifier.
const (
	CategoryShell          = "shell-command"
	CategoryFileEdit       = "file-edit"
	CategoryTaskCompletion = "task-completion"
	CategoryOther          = "other"
)

// auditSource tags audit records written by the enforcer.
const auditSource = "enforce"

// Requirements maps an action category to the requirement names it needs.
type Requirements map[string][]string

// DefaultRequirements returns the built-in category mapping.
func DefaultRequirements() Requirements {
	return Requirements{
		CategoryFileEdit:       {"research", "plan"},
		CategoryShell:          {},
		CategoryTaskCompletion: {"verify"},
	}
}

// Action is a proposed action as classified by the hook layer.
type Action struct {
	Category  string         `json:"category"`
	Detail    map[string]any `json:"detail,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
}

// Enforcer renders verdicts. It holds no state of its own.
type Enforcer struct {
	gate     *bypass.Gate
	breaker  *breaker.Breaker
	tracker  *triggers.Tracker
	required Requirements
	audit    *audit.Log
}

// New creates an enforcer. A nil required mapping uses DefaultRequirements.
func New(gate *bypass.Gate, br *breaker.Breaker, tr *triggers.Tracker, required Requirements, log *audit.Log) *Enforcer {
	if required == nil {
		required = DefaultRequirements()
	}
	return &Enforcer{
		gate:     gate,
		breaker:  br,
		tracker:  tr,
		required: required,
		audit:    log,
	}
}

// Evaluate decides a single action and appends the decision to the audit log.
func (e *Enforcer) Evaluate(a Action) Verdict {
	v := e.decide(a)
	e.Record(a, v)
	return v
}

// Record appends a verdict to the audit log.
func (e *Enforcer) Record(a Action, v Verdict) {
	_ = e.audit.Append(audit.Record{ //nolint:errcheck // audit is best-effort
		Source:    auditSource,
		Detail:    v.Reason,
		SessionID: a.SessionID,
		Verdict:   string(v.Outcome),
		Rule:      string(v.Rule),
		Category:  a.Category,
	})
}

func (e *Enforcer) decide(a Action) Verdict {
	if e.gate.IsActive() {
		return Verdict{Outcome: Allow, Rule: RuleSafetyOff, Reason: "safety off"}
	}

	v := e.check(a)
	if v.Outcome == Block && e.gate.SkipPending() && e.gate.ConsumeSkipOnce(a.SessionID) {
		return Verdict{Outcome: Allow, Rule: RuleSkipUsed, Reason: "skip used: " + v.Reason}
	}
	return v
}

// check applies the blocking rules on their own.
func (e *Enforcer) check(a Action) Verdict {
	if e.breaker.IsTripped() {
		st := e.breaker.State()
		return Verdict{
			Outcome: Block,
			Rule:    RuleCircuitOpen,
			Reason:  fmt.Sprintf("circuit open: too many consecutive failures (threshold %d)", e.breaker.Threshold()),
			Remedy:  circuitRemedy(st),
		}
	}

	if unmet := e.tracker.Requirements().Unmet(e.required[a.Category]); len(unmet) > 0 {
		return Verdict{
			Outcome: Block,
			Rule:    RuleRequirements,
			Reason:  fmt.Sprintf("%s requires %s first", a.Category, strings.Join(unmet, ", ")),
			Remedy:  fmt.Sprintf("complete %s, or ask the user to say \"skip once\"", strings.Join(unmet, " and ")),
			Unmet:   unmet,
		}
	}

	return Verdict{Outcome: Allow, Rule: RuleDefault, Reason: "all checks passed"}
}

// RequiredFor returns the requirement names a category needs, sorted.
func (e *Enforcer) RequiredFor(category string) []string {
	out := append([]string(nil), e.required[category]...)
	sort.Strings(out)
	return out
}

func circuitRemedy(st breaker.State) string {
	remedy := "stop and investigate the failures, then run `saneprocess breaker reset` or start a new session"
	if st.LastFailureAt != nil {
		remedy = fmt.Sprintf("last failure at %s; %s", st.LastFailureAt.Format("15:04:05"), remedy)
	}
	return remedy
}
