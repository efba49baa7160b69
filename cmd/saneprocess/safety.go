package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/stephanjoseph/SaneProcess-sub003/internal/bypass"
)

var safetyCmd = &cobra.Command{
	Use:   "safety",
	Short: "Turn process guardrails on or off",
	Long: `Turn process guardrails on or off.

With safety off every action is allowed and recorded in the audit log.

Examples:
  saneprocess safety off
  saneprocess safety status -o json`,
}

var safetyOnCmd = &cobra.Command{
	Use:   "on",
	Short: "Enforce process checks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSafety(cmd, true)
	},
}

var safetyOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Suspend process checks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSafety(cmd, false)
	},
}

var safetyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the safety toggle",
	Args:  cobra.NoArgs,
	RunE:  runSafetyStatus,
}

func init() {
	rootCmd.AddCommand(safetyCmd)
	safetyCmd.AddCommand(safetyOnCmd, safetyOffCmd, safetyStatusCmd)
}

func setSafety(cmd *cobra.Command, on bool) error {
	s, err := requireServices()
	if err != nil {
		return err
	}
	// Safety on means the bypass is inactive.
	st, err := s.gate.SetActive(!on, GetCurrentUser())
	if err != nil {
		return fmt.Errorf("set safety: %w", err)
	}
	return renderSafety(cmd.OutOrStdout(), st)
}

func runSafetyStatus(cmd *cobra.Command, args []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}
	return renderSafety(cmd.OutOrStdout(), s.gate.State())
}

type safetyView struct {
	Safety    string    `json:"safety" yaml:"safety"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty" yaml:"updated_by,omitempty"`
}

func renderSafety(w io.Writer, st bypass.State) error {
	view := safetyView{Safety: onOff(!st.Active), UpdatedAt: st.UpdatedAt, UpdatedBy: st.UpdatedBy}
	return render(w, view, func(w io.Writer) error {
		fmt.Fprintf(w, "Safety: %s\n", view.Safety)
		if st.UpdatedBy != "" {
			fmt.Fprintf(w, "  changed by %s at %s\n", st.UpdatedBy, st.UpdatedAt.Local().Format(time.RFC3339))
		}
		return nil
	})
}
