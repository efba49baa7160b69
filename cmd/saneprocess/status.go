package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stephanjoseph/SaneProcess-sub003/internal/audit"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/formatter"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/probe"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/triggers"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show every piece of process state",
	Long: `Show the safety toggle, skip token, circuit breaker, requirement set,
last build result and the most recent audit entry in one view.

Examples:
  saneprocess status
  saneprocess status -o json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type statusView struct {
	StateDir     string         `json:"state_dir" yaml:"state_dir"`
	Safety       string         `json:"safety" yaml:"safety"`
	SkipPending  bool           `json:"skip_pending" yaml:"skip_pending"`
	Breaker      breakerView    `json:"breaker" yaml:"breaker"`
	Requirements triggers.State `json:"requirements" yaml:"requirements"`
	Build        probe.Result   `json:"build" yaml:"build"`
	AuditEntries int            `json:"audit_entries" yaml:"audit_entries"`
	LastAudit    *audit.Record  `json:"last_audit,omitempty" yaml:"last_audit,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}

	view := statusView{
		StateDir:     s.store.Dir,
		Safety:       onOff(!s.gate.IsActive()),
		SkipPending:  s.gate.SkipPending(),
		Breaker:      breakerView{State: s.breaker.State(), Threshold: s.breaker.Threshold()},
		Requirements: s.tracker.State(),
		Build:        s.probe.Last(),
	}
	records, err := s.audit.Records()
	if err != nil {
		return fmt.Errorf("read audit log: %w", err)
	}
	view.AuditEntries = len(records)
	if n := len(records); n > 0 {
		view.LastAudit = &records[n-1]
	}

	return render(cmd.OutOrStdout(), view, func(w io.Writer) error {
		fmt.Fprintf(w, "State: %s\n\n", view.StateDir)
		tbl := formatter.NewTable(w, "COMPONENT", "STATE", "DETAIL").SetMaxWidth(2, 72)
		tbl.AddRow("safety", view.Safety, "")
		tbl.AddRow("skip", pendingLabel(view.SkipPending), "")
		tbl.AddRow("breaker", breakerLabel(view.Breaker), fmt.Sprintf("%d/%d failures", view.Breaker.FailureCount, view.Breaker.Threshold))
		tbl.AddRow("requirements", requirementsLabel(view.Requirements.Requirements), strings.Join(view.Requirements.Requirements.Pending(), ", "))
		tbl.AddRow("build", string(view.Build.Status), describeResult(view.Build))
		lastAudit := ""
		if view.LastAudit != nil {
			lastAudit = fmt.Sprintf("%s %s %s", view.LastAudit.Source, view.LastAudit.Verdict, view.LastAudit.Detail)
		}
		tbl.AddRow("audit", fmt.Sprintf("%d entries", view.AuditEntries), lastAudit)
		return tbl.Render()
	})
}

func pendingLabel(pending bool) string {
	if pending {
		return "armed"
	}
	return "none"
}

func breakerLabel(v breakerView) string {
	if v.Tripped {
		return "OPEN"
	}
	return "closed"
}

func requirementsLabel(rs triggers.RequirementSet) string {
	pending := len(rs.Pending())
	if pending == 0 {
		return "met"
	}
	return fmt.Sprintf("%d pending", pending)
}
