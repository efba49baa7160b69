package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stephanjoseph/SaneProcess-sub003/internal/enforce"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/formatter"
	"github.com/stephanjoseph/SaneProcess-sub003/internal/triggers"
)

var requirementsCmd = &cobra.Command{
	Use:     "requirements",
	Aliases: []string{"req"},
	Short:   "Inspect or edit the requirement set",
	Long: `Inspect or edit the session's outstanding procedural requirements.

Examples:
  saneprocess requirements show
  saneprocess requirements satisfy research
  saneprocess requirements reset`,
}

var requirementsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show requirements and whether each is satisfied",
	Args:  cobra.NoArgs,
	RunE:  runRequirementsShow,
}

var requirementsSatisfyCmd = &cobra.Command{
	Use:   "satisfy <name>",
	Short: "Mark a requirement satisfied",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequirementsSatisfy,
}

var requirementsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the requirement set",
	Args:  cobra.NoArgs,
	RunE:  runRequirementsReset,
}

func init() {
	rootCmd.AddCommand(requirementsCmd)
	requirementsCmd.AddCommand(requirementsShowCmd, requirementsSatisfyCmd, requirementsResetCmd)
}

func runRequirementsShow(cmd *cobra.Command, args []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}
	return renderRequirements(cmd.OutOrStdout(), s)
}

func runRequirementsSatisfy(cmd *cobra.Command, args []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}
	if _, err := s.tracker.MarkSatisfied(args[0]); err != nil {
		return err
	}
	return renderRequirements(cmd.OutOrStdout(), s)
}

func runRequirementsReset(cmd *cobra.Command, args []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}
	if err := s.tracker.Reset(); err != nil {
		return fmt.Errorf("reset requirements: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Requirement set cleared.")
	return nil
}

type requirementsView struct {
	triggers.State `yaml:",inline"`
	Gates          map[string][]string `json:"gates" yaml:"gates"`
}

var gatedCategories = []string{enforce.CategoryFileEdit, enforce.CategoryShell, enforce.CategoryTaskCompletion}

func renderRequirements(w io.Writer, s *services) error {
	view := requirementsView{State: s.tracker.State(), Gates: map[string][]string{}}
	for _, category := range gatedCategories {
		view.Gates[category] = s.enforcer.RequiredFor(category)
	}
	st := view.State

	return render(w, view, func(w io.Writer) error {
		if len(st.Requirements) == 0 {
			fmt.Fprintln(w, "No outstanding requirements.")
		} else {
			names := make([]string, 0, len(st.Requirements))
			for name := range st.Requirements {
				names = append(names, name)
			}
			sort.Strings(names)

			tbl := formatter.NewTable(w, "REQUIREMENT", "STATUS")
			for _, name := range names {
				status := "pending"
				if st.Requirements[name] {
					status = "satisfied"
				}
				tbl.AddRow(name, status)
			}
			if err := tbl.Render(); err != nil {
				return err
			}
			if len(st.Matched) > 0 {
				fmt.Fprintf(w, "\nLast trigger: %s (%s)\n", st.LastTrigger, strings.Join(st.Matched, ", "))
			}
		}

		fmt.Fprintln(w, "\nGates:")
		for _, category := range gatedCategories {
			required := strings.Join(view.Gates[category], ", ")
			if required == "" {
				required = "(none)"
			}
			fmt.Fprintf(w, "  %-16s %s\n", category, required)
		}
		return nil
	})
}
