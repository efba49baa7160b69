package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/stephanjoseph/SaneProcess-sub003/internal/breaker"
)

var breakerCmd = &cobra.Command{
	Use:   "breaker",
	Short: "Inspect or drive the circuit breaker",
	Long: `Inspect or drive the consecutive-failure circuit breaker.

Once tripped the breaker blocks every action until it is reset here or a
new session starts. Successes reset the count but never close it.`,
}

func init() {
	rootCmd.AddCommand(breakerCmd)
	breakerCmd.AddCommand(
		newBreakerCommand("status", "Show breaker state", func(b *breaker.Breaker) (breaker.State, error) {
			return b.State(), nil
		}),
		newBreakerCommand("reset", "Close the breaker and clear the failure count", (*breaker.Breaker).Reset),
		newBreakerCommand("fail", "Record a failure", (*breaker.Breaker).RecordFailure),
		newBreakerCommand("succeed", "Record a success", (*breaker.Breaker).RecordSuccess),
	)
}

func newBreakerCommand(use, short string, op func(*breaker.Breaker) (breaker.State, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := requireServices()
			if err != nil {
				return err
			}
			st, err := op(s.breaker)
			if err != nil {
				return err
			}
			return renderBreaker(cmd.OutOrStdout(), st, s.breaker.Threshold())
		},
	}
}

type breakerView struct {
	breaker.State `yaml:",inline"`
	Threshold     int `json:"threshold" yaml:"threshold"`
}

func renderBreaker(w io.Writer, st breaker.State, threshold int) error {
	return render(w, breakerView{State: st, Threshold: threshold}, func(w io.Writer) error {
		state := "closed"
		if st.Tripped {
			state = "OPEN"
		}
		fmt.Fprintf(w, "Circuit breaker: %s (%d/%d consecutive failures)\n", state, st.FailureCount, threshold)
		if st.LastFailureAt != nil {
			fmt.Fprintf(w, "  last failure: %s\n", st.LastFailureAt.Local().Format(time.RFC3339))
		}
		return nil
	})
}
