package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/stephanjoseph/SaneProcess-sub003/internal/formatter"
)

var auditLimit int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent audit log entries",
	Long: `Show the most recent entries of the append-only audit log.

Every verdict and skip consumption is recorded. Use -o jsonl to export
the raw log.`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 20, "Number of entries to show (0 for all)")
}

func runAudit(cmd *cobra.Command, args []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}
	records, err := s.audit.Records()
	if err != nil {
		return fmt.Errorf("read audit log: %w", err)
	}
	if auditLimit > 0 && len(records) > auditLimit {
		records = records[len(records)-auditLimit:]
	}

	if GetOutput() == "jsonl" {
		return formatter.WriteJSONL(cmd.OutOrStdout(), records)
	}
	return render(cmd.OutOrStdout(), records, func(w io.Writer) error {
		if len(records) == 0 {
			_, err := fmt.Fprintln(w, "No audit entries.")
			return err
		}
		tbl := formatter.NewTable(w, "TIME", "SOURCE", "VERDICT", "CATEGORY", "DETAIL").SetMaxWidth(4, 60)
		for _, r := range records {
			tbl.AddRow(r.UsedAt.Local().Format(time.DateTime), r.Source, r.Verdict, r.Category, r.Detail)
		}
		return tbl.Render()
	})
}
