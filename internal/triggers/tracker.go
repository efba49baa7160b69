// Package triggers turns free text into procedural requirements and keeps
// the session's requirement set.
package triggers

import (
	"fmt"
	"sort"
	"time"

	"github.com/stephanjoseph/SaneProcess-sub003/internal/storage"
)

// RecordName is the requirement set record name.
const RecordName = "requirements"

// RequirementSet maps requirement name to whether it is satisfied.
type RequirementSet map[string]bool

// Unmet returns the names in required that are present and unsatisfied.
// Names absent from the set were never asked for and do not block.
func (rs RequirementSet) Unmet(required []string) []string {
	var out []string
	for _, name := range required {
		if satisfied, ok := rs[name]; ok && !satisfied {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Pending returns every unsatisfied requirement, sorted.
func (rs RequirementSet) Pending() []string {
	var out []string
	for name, satisfied := range rs {
		if !satisfied {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (rs RequirementSet) clone() RequirementSet {
	out := make(RequirementSet, len(rs))
	for k, v := range rs {
		out[k] = v
	}
	return out
}

// State is the persisted requirement set document.
type State struct {
	Requirements RequirementSet `json:"requirements" yaml:"requirements"`
	LastTrigger  Kind           `json:"last_trigger,omitempty" yaml:"last_trigger,omitempty"`
	Matched      []string       `json:"matched,omitempty" yaml:"matched,omitempty"`
	UpdatedAt    time.Time      `json:"updated_at" yaml:"updated_at"`
}

// Tracker classifies text and maintains the requirement set. Writes are
// unlocked: a lost union race only delays visibility.
type Tracker struct {
	classifier *Classifier
	rec        *storage.Record[State]
	now        func() time.Time
}

// NewTracker creates a tracker backed by s.
func NewTracker(s *storage.Store, c *Classifier) *Tracker {
	return &Tracker{
		classifier: c,
		rec:        storage.NewRecord[State](s, RecordName),
		now:        time.Now,
	}
}

// Classifier returns the compiled pattern table.
func (t *Tracker) Classifier() *Classifier {
	return t.classifier
}

// Classify evaluates text against the pattern table.
func (t *Tracker) Classify(text string) Trigger {
	return t.classifier.Classify(text)
}

// State returns the persisted document.
func (t *Tracker) State() State {
	st := t.rec.Load(State{})
	if st.Requirements == nil {
		st.Requirements = RequirementSet{}
	}
	return st
}

// Requirements returns the current requirement set.
func (t *Tracker) Requirements() RequirementSet {
	return t.State().Requirements
}

// Apply folds a trigger into the stored set. Fresh-start replaces it with
// the triggered requirements, all unsatisfied; additive adds missing keys
// and keeps satisfied entries; none changes nothing.
func (t *Tracker) Apply(tr Trigger) (RequirementSet, error) {
	st := t.State()

	var next RequirementSet
	switch tr.Kind {
	case KindFreshStart:
		next = make(RequirementSet, len(tr.Requirements))
		for _, name := range tr.Requirements {
			next[name] = false
		}
	case KindAdditive:
		next = st.Requirements.clone()
		for _, name := range tr.Requirements {
			if _, ok := next[name]; !ok {
				next[name] = false
			}
		}
	default:
		return st.Requirements, nil
	}

	st.Requirements = next
	st.LastTrigger = tr.Kind
	st.Matched = tr.Matched
	st.UpdatedAt = t.now().UTC()
	if err := t.rec.Save(st); err != nil {
		return nil, err
	}
	return next, nil
}

// MarkSatisfied sets one requirement's flag to true.
func (t *Tracker) MarkSatisfied(name string) (RequirementSet, error) {
	st := t.State()
	satisfied, ok := st.Requirements[name]
	if !ok {
		return st.Requirements, fmt.Errorf("%w: %s", ErrUnknownRequirement, name)
	}
	if satisfied {
		return st.Requirements, nil
	}

	st.Requirements[name] = true
	st.UpdatedAt = t.now().UTC()
	if err := t.rec.Save(st); err != nil {
		return nil, err
	}
	return st.Requirements, nil
}

// Reset clears the requirement set.
func (t *Tracker) Reset() error {
	return t.rec.Save(State{Requirements: RequirementSet{}, UpdatedAt: t.now().UTC()})
}
