package enforce

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephanjoseph/SaneProcess-sub003/internal/audit"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/breaker"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/bypass"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/storage"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/triggers"
)

type fixture struct {
	store    *storage.Store
	gate     *bypass.Gate
	breaker  *breaker.Breaker
	tracker  *triggers.Tracker
	audit    *audit.Log
	enforcer *Enforcer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := storage.NewStore(storage.WithDir(filepath.Join(t.TempDir(), ".saneprocess")))
	log := audit.New(s)
	f := &fixture{
		store:   s,
		gate:    bypass.New(s, log),
		breaker: breaker.New(s),
		tracker: triggers.NewTracker(s, &triggers.Classifier{}),
		audit:   log,
	}
	f.enforcer = New(f.gate, f.breaker, f.tracker, nil, log)
	return f
}

func (f *fixture) trip(t *testing.T) {
	t.Helper()
	for i := 0; i < breaker.DefaultThreshold; i++ {
		_, err := f.breaker.RecordFailure()
		require.NoError(t, err)
	}
	require.True(t, f.breaker.IsTripped())
}

func TestEvaluate_DefaultAllow(t *testing.T) {
	f := newFixture(t)
	v := f.enforcer.Evaluate(Action{Category: CategoryShell})
	assert.Equal(t, Allow, v.Outcome)
	assert.Equal(t, RuleDefault, v.Rule)
}

func TestEvaluate_SafetyOffWinsOverTrippedBreaker(t *testing.T) {
	f := newFixture(t)
	f.trip(t)
	_, err := f.gate.SetActive(true, "tester")
	require.NoError(t, err)

	v := f.enforcer.Evaluate(Action{Category: CategoryShell})
	assert.Equal(t, Allow, v.Outcome)
	assert.Equal(t, RuleSafetyOff, v.Rule)
	assert.Equal(t, "safety off", v.Reason)
}

func TestEvaluate_CircuitOpenBlocks(t *testing.T) {
	f := newFixture(t)
	f.trip(t)

	v := f.enforcer.Evaluate(Action{Category: CategoryShell})
	assert.Equal(t, Block, v.Outcome)
	assert.Equal(t, RuleCircuitOpen, v.Rule)
	assert.Contains(t, v.Reason, "circuit open")
	assert.NotEmpty(t, v.Remedy)
	assert.False(t, v.Allowed())
}

func TestEvaluate_SkipAllowsOnceThroughOpenCircuit(t *testing.T) {
	f := newFixture(t)
	f.trip(t)
	_, err := f.gate.RequestSkip()
	require.NoError(t, err)

	v := f.enforcer.Evaluate(Action{Category: CategoryFileEdit, SessionID: "s1"})
	assert.Equal(t, Allow, v.Outcome)
	assert.Equal(t, RuleSkipUsed, v.Rule)

	v = f.enforcer.Evaluate(Action{Category: CategoryFileEdit, SessionID: "s1"})
	assert.Equal(t, Block, v.Outcome)
	assert.Equal(t, RuleCircuitOpen, v.Rule)
}

func TestEvaluate_SkipKeptForBlockedAction(t *testing.T) {
	f := newFixture(t)
	_, err := f.tracker.Apply(triggers.Trigger{Kind: triggers.KindFreshStart, Requirements: []string{"plan"}})
	require.NoError(t, err)
	_, err = f.gate.RequestSkip()
	require.NoError(t, err)

	// Actions that pass on their own leave the token alone.
	for _, category := range []string{CategoryOther, CategoryShell} {
		v := f.enforcer.Evaluate(Action{Category: category})
		assert.Equal(t, RuleDefault, v.Rule, category)
		assert.True(t, f.gate.SkipPending(), "token spent by %s", category)
	}

	v := f.enforcer.Evaluate(Action{Category: CategoryFileEdit})
	assert.Equal(t, Allow, v.Outcome)
	assert.Equal(t, RuleSkipUsed, v.Rule)
	assert.Contains(t, v.Reason, "plan")
	assert.False(t, f.gate.SkipPending())

	v = f.enforcer.Evaluate(Action{Category: CategoryFileEdit})
	assert.Equal(t, Block, v.Outcome)
	assert.Equal(t, RuleRequirements, v.Rule)
}

func TestEvaluate_SafetyOffLeavesSkipPending(t *testing.T) {
	f := newFixture(t)
	f.trip(t)
	_, err := f.gate.RequestSkip()
	require.NoError(t, err)
	_, err = f.gate.SetActive(true, "tester")
	require.NoError(t, err)

	v := f.enforcer.Evaluate(Action{Category: CategoryShell})
	assert.Equal(t, RuleSafetyOff, v.Rule)
	assert.True(t, f.gate.SkipPending())
}

func TestEvaluate_UnmetRequirementBlocksUntilSatisfied(t *testing.T) {
	f := newFixture(t)
	_, err := f.tracker.Apply(triggers.Trigger{Kind: triggers.KindFreshStart, Requirements: []string{"plan"}})
	require.NoError(t, err)

	action := Action{Category: CategoryFileEdit, Detail: map[string]any{"file_path": "main.go"}}
	v := f.enforcer.Evaluate(action)
	assert.Equal(t, Block, v.Outcome)
	assert.Equal(t, RuleRequirements, v.Rule)
	assert.Equal(t, []string{"plan"}, v.Unmet)
	assert.Contains(t, v.Reason, "plan")

	_, err = f.tracker.MarkSatisfied("plan")
	require.NoError(t, err)

	v = f.enforcer.Evaluate(action)
	assert.Equal(t, Allow, v.Outcome)
	assert.Equal(t, RuleDefault, v.Rule)
}

func TestEvaluate_RequirementsOnlyApplyToTheirCategory(t *testing.T) {
	f := newFixture(t)
	_, err := f.tracker.Apply(triggers.Trigger{Kind: triggers.KindFreshStart, Requirements: []string{"plan", "verify"}})
	require.NoError(t, err)

	assert.Equal(t, Allow, f.enforcer.Evaluate(Action{Category: CategoryShell}).Outcome)
	assert.Equal(t, Allow, f.enforcer.Evaluate(Action{Category: CategoryOther}).Outcome)

	v := f.enforcer.Evaluate(Action{Category: CategoryTaskCompletion})
	assert.Equal(t, Block, v.Outcome)
	assert.Equal(t, []string{"verify"}, v.Unmet)
}

func TestEvaluate_CustomRequirementMapping(t *testing.T) {
	f := newFixture(t)
	e := New(f.gate, f.breaker, f.tracker, Requirements{CategoryShell: {"commit"}}, f.audit)
	_, err := f.tracker.Apply(triggers.Trigger{Kind: triggers.KindAdditive, Requirements: []string{"commit"}})
	require.NoError(t, err)

	assert.Equal(t, Block, e.Evaluate(Action{Category: CategoryShell}).Outcome)
	assert.Equal(t, Allow, e.Evaluate(Action{Category: CategoryFileEdit}).Outcome)
	assert.Equal(t, []string{"commit"}, e.RequiredFor(CategoryShell))
}

func TestEvaluate_AuditsEveryDecision(t *testing.T) {
	f := newFixture(t)
	f.enforcer.Evaluate(Action{Category: CategoryShell, SessionID: "a"})
	f.trip(t)
	f.enforcer.Evaluate(Action{Category: CategoryShell, SessionID: "b"})

	recs, err := f.audit.Records()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "allow", recs[0].Verdict)
	assert.Equal(t, "default", recs[0].Rule)
	assert.Equal(t, "block", recs[1].Verdict)
	assert.Equal(t, "circuit_open", recs[1].Rule)
	assert.Equal(t, "b", recs[1].SessionID)
}

func TestVerdictMessage(t *testing.T) {
	v := Verdict{Outcome: Block, Reason: "file-edit requires plan first", Remedy: "complete plan"}
	assert.Equal(t, "BLOCKED: file-edit requires plan first\n  Fix: complete plan", v.Message())

	w := Verdict{Outcome: Warn, Reason: "last build failed"}
	assert.Equal(t, "WARNING: last build failed", w.Message())
	assert.True(t, w.Allowed())
}
