package main

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/stephanjoseph/SaneProcess-sub003/embedded"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/audit"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/breaker"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/bypass"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/config"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/enforce"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/probe"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/storage"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/triggers"
)

// errNotInitialized is returned by operator commands when setup failed.
var errNotInitialized = errors.New("saneprocess state is not initialized")

// services is every stateful component, wired against one state directory.
type services struct {
	store    *storage.Store
	audit    *audit.Log
	gate     *bypass.Gate
	breaker  *breaker.Breaker
	tracker  *triggers.Tracker
	enforcer *enforce.Enforcer
	probe    *probe.Probe
}

// svc is set by setup; nil when setup failed.
var svc *services

func newServices(c *config.Config, log *zap.Logger) (*services, error) {
	store := storage.NewStore(storage.WithDir(c.StatePath()), storage.WithLogger(log))
	if err := store.Init(); err != nil {
		return nil, err
	}

	classifier, err := loadClassifier(c, log)
	if err != nil {
		return nil, err
	}

	s := &services{store: store, audit: audit.New(store)}
	s.gate = bypass.New(store, s.audit)
	s.breaker = breaker.New(store, breaker.WithThreshold(c.Breaker.Threshold))
	s.tracker = triggers.NewTracker(store, classifier)
	s.enforcer = enforce.New(s.gate, s.breaker, s.tracker, requirementsFor(c), s.audit)
	s.probe = probe.New(store,
		probe.WithBuildHost(c.Probe.BuildHost),
		probe.WithTimeout(c.ProbeTimeout()),
		probe.WithMaxAge(c.ProbeMaxAge()),
	)
	return s, nil
}

// loadClassifier compiles the configured pattern table, falling back to the
// embedded default when the override is missing or invalid.
func loadClassifier(c *config.Config, log *zap.Logger) (*triggers.Classifier, error) {
	if c.TriggersFile != "" {
		table, err := triggers.LoadTable(c.TriggersFile)
		if err == nil {
			var classifier *triggers.Classifier
			if classifier, err = triggers.Compile(table); err == nil {
				return classifier, nil
			}
		}
		log.Warn("pattern table override rejected, using embedded default",
			zap.String("path", c.TriggersFile), zap.Error(err))
	}

	table, err := triggers.ParseTable(embedded.TriggersYAML, embedded.TriggersFormat)
	if err != nil {
		return nil, fmt.Errorf("embedded pattern table: %w", err)
	}
	return triggers.Compile(table)
}

// requirementsFor overlays configured categories on the built-in mapping.
func requirementsFor(c *config.Config) enforce.Requirements {
	req := enforce.DefaultRequirements()
	for category, names := range c.Requirements {
		req[category] = names
	}
	return req
}

// requireServices is used by operator commands, which unlike hooks report
// setup failure.
func requireServices() (*services, error) {
	if svc == nil {
		return nil, errNotInitialized
	}
	return svc, nil
}
