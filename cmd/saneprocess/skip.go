package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var skipCmd = &cobra.Command{
	Use:   "skip",
	Short: "Let exactly one action bypass process checks",
	Long: `Arm a single-use skip token.

The next action that reaches the enforcer consumes it and is allowed. A
second skip while one is pending replaces it; tokens never accumulate.`,
	Args: cobra.NoArgs,
	RunE: runSkip,
}

func init() {
	rootCmd.AddCommand(skipCmd)
}

func runSkip(cmd *cobra.Command, args []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}
	st, err := s.gate.RequestSkip()
	if err != nil {
		return fmt.Errorf("request skip: %w", err)
	}
	return render(cmd.OutOrStdout(), st, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Skip armed (%s): the next blocked action is allowed once.\n", st.ID)
		return err
	})
}
