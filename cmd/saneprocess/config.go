package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stephanjoseph/SaneProcess-sub003/internal/config"
)

var (
	configShow bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View saneprocess configuration.

Configuration priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (SANEPROCESS_*)
  3. Project config (.saneprocess/config.yaml)
  4. Home config (~/.saneprocess/config.yaml)
  5. Defaults

Environment variables:
  SANEPROCESS_CONFIG            - Explicit project config file path
  SANEPROCESS_OUTPUT            - Default output format (table, json, yaml)
  SANEPROCESS_STATE_DIR         - State directory path
  SANEPROCESS_VERBOSE           - Diagnostics to stderr (true/1)
  SANEPROCESS_TRIGGERS_FILE     - Pattern table override (.yaml, .json, .jsonc)
  SANEPROCESS_BREAKER_THRESHOLD - Consecutive failures that trip the breaker
  SANEPROCESS_BUILD_HOST        - host:port the build probe must reach
  SANEPROCESS_PROBE_TIMEOUT     - Probe deadline (e.g. 2s)
  SANEPROCESS_PROBE_MAX_AGE     - How long a build result counts (e.g. 30m)

Examples:
  saneprocess config --show           # Show resolved configuration
  saneprocess config --show -o json   # Output as JSON`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().BoolVar(&configShow, "show", false, "Show resolved configuration with sources")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if !configShow {
		return cmd.Help()
	}

	resolved := config.Resolve(output, stateDir, GetVerbose())
	w := cmd.OutOrStdout()

	if GetOutput() == "json" {
		data, err := json.MarshalIndent(resolved, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	fmt.Fprintln(w, "saneprocess Configuration")
	fmt.Fprintln(w, "=========================")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Config files:")
	home, _ := os.UserHomeDir()
	printConfigFile(w, "Home:   ", filepath.Join(home, ".saneprocess", "config.yaml"))
	projectConfig := strings.TrimSpace(os.Getenv("SANEPROCESS_CONFIG"))
	if projectConfig == "" {
		cwd, _ := os.Getwd()
		projectConfig = filepath.Join(cwd, ".saneprocess", "config.yaml")
	}
	printConfigFile(w, "Project:", projectConfig)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Resolved values:")
	fmt.Fprintf(w, "  output:            %v  (from %s)\n", resolved.Output.Value, resolved.Output.Source)
	fmt.Fprintf(w, "  state_dir:         %v  (from %s)\n", resolved.StateDir.Value, resolved.StateDir.Source)
	fmt.Fprintf(w, "  verbose:           %v  (from %s)\n", resolved.Verbose.Value, resolved.Verbose.Source)
	fmt.Fprintf(w, "  triggers_file:     %v  (from %s)\n", resolved.TriggersFile.Value, resolved.TriggersFile.Source)
	fmt.Fprintf(w, "  breaker.threshold: %v  (from %s)\n", resolved.BreakerThreshold.Value, resolved.BreakerThreshold.Source)
	fmt.Fprintf(w, "  probe.build_host:  %v  (from %s)\n", resolved.ProbeBuildHost.Value, resolved.ProbeBuildHost.Source)
	fmt.Fprintf(w, "  probe.timeout:     %v  (from %s)\n", resolved.ProbeTimeout.Value, resolved.ProbeTimeout.Source)
	fmt.Fprintf(w, "  probe.max_age:     %v  (from %s)\n", resolved.ProbeMaxAge.Value, resolved.ProbeMaxAge.Source)
	fmt.Fprintf(w, "  requirements:      %v  (from %s)\n", resolved.Requirements.Value, resolved.Requirements.Source)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables (if set):")
	envVars := []string{
		"SANEPROCESS_CONFIG",
		"SANEPROCESS_OUTPUT",
		"SANEPROCESS_STATE_DIR",
		"SANEPROCESS_VERBOSE",
		"SANEPROCESS_TRIGGERS_FILE",
		"SANEPROCESS_BREAKER_THRESHOLD",
		"SANEPROCESS_BUILD_HOST",
		"SANEPROCESS_PROBE_TIMEOUT",
		"SANEPROCESS_PROBE_MAX_AGE",
	}
	anySet := false
	for _, env := range envVars {
		if v := os.Getenv(env); v != "" {
			fmt.Fprintf(w, "  %s=%s\n", env, v)
			anySet = true
		}
	}
	if !anySet {
		fmt.Fprintln(w, "  (none set)")
	}

	return nil
}

func printConfigFile(w io.Writer, label, path string) {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "  ✓ %s %s\n", label, path)
	} else {
		fmt.Fprintf(w, "  ✗ %s %s (not found)\n", label, path)
	}
}
