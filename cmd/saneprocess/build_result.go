package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/stephanjoseph/SaneProcess-sub003/internal/probe"
)

var (
	buildPass    bool
	buildFail    bool
	buildCommand string
	buildDetail  string
)

var buildResultCmd = &cobra.Command{
	Use:   "build-result",
	Short: "Record or inspect the build/test outcome consulted at task completion",
}

var buildResultRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a build/test outcome",
	Long: `Record the outcome of a build or test run.

Examples:
  make test && saneprocess build-result record --pass || saneprocess build-result record --fail`,
	Args: cobra.NoArgs,
	RunE: runBuildResultRecord,
}

var buildResultShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the last recorded outcome and what the probe makes of it",
	Args:  cobra.NoArgs,
	RunE:  runBuildResultShow,
}

func init() {
	rootCmd.AddCommand(buildResultCmd)
	buildResultCmd.AddCommand(buildResultRecordCmd, buildResultShowCmd)
	buildResultRecordCmd.Flags().BoolVar(&buildPass, "pass", false, "The run passed")
	buildResultRecordCmd.Flags().BoolVar(&buildFail, "fail", false, "The run failed")
	buildResultRecordCmd.Flags().StringVar(&buildCommand, "command", "", "Command that was run")
	buildResultRecordCmd.Flags().StringVar(&buildDetail, "detail", "", "Free-form detail")
	buildResultRecordCmd.MarkFlagsMutuallyExclusive("pass", "fail")
	buildResultRecordCmd.MarkFlagsOneRequired("pass", "fail")
}

func runBuildResultRecord(cmd *cobra.Command, args []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}
	if buildPass == buildFail {
		return errors.New("exactly one of --pass or --fail is required")
	}
	r, err := s.probe.Record(buildPass, buildCommand, buildDetail)
	if err != nil {
		return fmt.Errorf("record build result: %w", err)
	}
	return render(cmd.OutOrStdout(), r, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Build result recorded: %s\n", r.Status)
		return err
	})
}

type buildView struct {
	Last  probe.Result `json:"last" yaml:"last"`
	Probe probe.Result `json:"probe" yaml:"probe"`
}

func runBuildResultShow(cmd *cobra.Command, args []string) error {
	s, err := requireServices()
	if err != nil {
		return err
	}
	view := buildView{Last: s.probe.Last(), Probe: s.probe.Check(context.Background())}
	return render(cmd.OutOrStdout(), view, func(w io.Writer) error {
		fmt.Fprintf(w, "Last recorded: %s\n", describeResult(view.Last))
		fmt.Fprintf(w, "Probe:         %s\n", describeResult(view.Probe))
		return nil
	})
}

func describeResult(r probe.Result) string {
	out := string(r.Status)
	if !r.At.IsZero() {
		out += " at " + r.At.Local().Format("2006-01-02 15:04:05")
	}
	if r.Command != "" {
		out += " (" + r.Command + ")"
	}
	if r.Detail != "" {
		out += ": " + r.Detail
	}
	return out
}
