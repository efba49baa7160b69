package enforce

import (
	"fmt"
	"strings"
)

// Outcome is the decision rendered for one proposed action.
type Outcome string

const (
	Allow Outcome = "allow"
	Block Outcome = "block"
	Warn  Outcome = "warn"
)

// Rule names the precedence rule that produced a verdict.
type Rule string

const (
	RuleSafetyOff    Rule = "safety_off"
	RuleSkipUsed     Rule = "skip_used"
	RuleCircuitOpen  Rule = "circuit_open"
	RuleRequirements Rule = "requirements_unmet"
	RuleDefault      Rule = "default"
	RuleBuildSignal  Rule = "build_signal"
)

// Verdict is the total result of evaluating an action.
type Verdict struct {
	Outcome Outcome  `json:"outcome"`
	Rule    Rule     `json:"rule"`
	Reason  string   `json:"reason"`
	Remedy  string   `json:"remedy,omitempty"`
	Unmet   []string `json:"unmet,omitempty"`
}

// Allowed reports whether the action may proceed (Allow or Warn).
func (v Verdict) Allowed() bool {
	return v.Outcome != Block
}

// Message renders the human-readable rationale.
func (v Verdict) Message() string {
	var b strings.Builder
	switch v.Outcome {
	case Block:
		b.WriteString("BLOCKED: ")
	case Warn:
		b.WriteString("WARNING: ")
	}
	b.WriteString(v.Reason)
	if v.Remedy != "" {
		fmt.Fprintf(&b, "\n  Fix: %s", v.Remedy)
	}
	return b.String()
}
