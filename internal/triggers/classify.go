package triggers

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Trigger is the result of classifying free text.
type Trigger struct {
	Kind         Kind     `json:"kind"`
	Requirements []string `json:"requirements,omitempty"`
	Matched      []string `json:"matched,omitempty"`
}

// Control is a manual override requested by a user phrase.
type Control string

const (
	ControlNone      Control = ""
	ControlSkip      Control = "skip"
	ControlSafetyOff Control = "safety_off"
	ControlSafetyOn  Control = "safety_on"
)

type compiledRule struct {
	rule    Rule
	matches []*regexp.Regexp
}

type compiledSatisfier struct {
	requirement string
	tools       map[string]bool
	commands    []*regexp.Regexp
}

// Classifier is a compiled Table. It holds no state; identical text always
// yields the identical classification.
type Classifier struct {
	rules      []compiledRule
	satisfiers []compiledSatisfier
	skip       []*regexp.Regexp
	safetyOff  []*regexp.Regexp
	safetyOn   []*regexp.Regexp
	build      []*regexp.Regexp
}

// Compile compiles every keyword and pattern in t.
func Compile(t *Table) (*Classifier, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	c := &Classifier{}
	for _, r := range t.Triggers {
		matches, err := compileAll(r.Keywords, r.Patterns)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		c.rules = append(c.rules, compiledRule{rule: r, matches: matches})
	}

	for _, s := range t.Satisfiers {
		cmds, err := compileAll(nil, s.CommandPatterns)
		if err != nil {
			return nil, fmt.Errorf("satisfier %q: %w", s.Requirement, err)
		}
		tools := make(map[string]bool, len(s.Tools))
		for _, tool := range s.Tools {
			tools[strings.ToLower(tool)] = true
		}
		c.satisfiers = append(c.satisfiers, compiledSatisfier{requirement: s.Requirement, tools: tools, commands: cmds})
	}

	var err error
	if c.skip, err = compileAll(t.Controls.Skip, nil); err != nil {
		return nil, fmt.Errorf("skip controls: %w", err)
	}
	if c.safetyOff, err = compileAll(t.Controls.SafetyOff, nil); err != nil {
		return nil, fmt.Errorf("safety_off controls: %w", err)
	}
	if c.safetyOn, err = compileAll(t.Controls.SafetyOn, nil); err != nil {
		return nil, fmt.Errorf("safety_on controls: %w", err)
	}
	if c.build, err = compileAll(nil, t.BuildPatterns); err != nil {
		return nil, fmt.Errorf("build patterns: %w", err)
	}
	return c, nil
}

// Classify evaluates text against the trigger rules. Any fresh-start match
// wins over additive matches; requirements of all matching rules of the
// winning kind are unioned.
func (c *Classifier) Classify(text string) Trigger {
	fresh, additive := newSet(), newSet()
	var freshNames, additiveNames []string

	for _, cr := range c.rules {
		if !anyMatch(cr.matches, text) {
			continue
		}
		switch cr.rule.Kind {
		case KindFreshStart:
			fresh.add(cr.rule.Requirements...)
			freshNames = append(freshNames, cr.rule.Name)
		case KindAdditive:
			additive.add(cr.rule.Requirements...)
			additiveNames = append(additiveNames, cr.rule.Name)
		}
	}

	switch {
	case len(freshNames) > 0:
		return Trigger{Kind: KindFreshStart, Requirements: fresh.sorted(), Matched: freshNames}
	case len(additiveNames) > 0:
		return Trigger{Kind: KindAdditive, Requirements: additive.sorted(), Matched: additiveNames}
	default:
		return Trigger{Kind: KindNone}
	}
}

// Control returns the override a user phrase asks for. Turning safety back
// on takes precedence over everything else.
func (c *Classifier) Control(text string) Control {
	switch {
	case anyMatch(c.safetyOn, text):
		return ControlSafetyOn
	case anyMatch(c.safetyOff, text):
		return ControlSafetyOff
	case anyMatch(c.skip, text):
		return ControlSkip
	default:
		return ControlNone
	}
}

// Satisfied returns the requirements completed by a successful tool event.
func (c *Classifier) Satisfied(toolName, command string) []string {
	out := newSet()
	tool := strings.ToLower(toolName)
	for _, s := range c.satisfiers {
		if s.tools[tool] || (command != "" && anyMatch(s.commands, command)) {
			out.add(s.requirement)
		}
	}
	return out.sorted()
}

// IsBuildCommand reports whether a shell command is a build or test run.
func (c *Classifier) IsBuildCommand(command string) bool {
	return command != "" && anyMatch(c.build, command)
}

// compileAll turns keywords into case-insensitive word-boundary matches and
// patterns into case-insensitive regular expressions.
func compileAll(keywords, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(keywords)+len(patterns))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		out = append(out, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(kw)+`\b`))
	}
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func anyMatch(res []*regexp.Regexp, text string) bool {
	for _, re := range res {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

type set map[string]struct{}

func newSet() set { return set{} }

func (s set) add(names ...string) {
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			s[n] = struct{}{}
		}
	}
}

func (s set) sorted() []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
