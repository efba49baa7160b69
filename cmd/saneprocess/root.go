package main

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stephanjoseph/SaneProcess-sub003/internal/config"
)

var (
	// Global flags
	verbose  bool
	output   string
	cfgFile  string
	stateDir string

	// Set in PersistentPreRunE.
	cfg    *config.Config
	logger = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "saneprocess",
	Short: "Process guardrails for autonomous coding agents",
	Long: `saneprocess gates an agent's tool calls behind the procedure its prompts imply.

Hook Commands (wired into the agent runtime):
  hook session-start    Reset the breaker and requirement set
  hook prompt           Classify a prompt and update requirements
  hook pre-tool         Allow or block a tool call
  hook post-tool        Record tool outcome and satisfied steps
  hook task-completed   Gate task completion

Operator Commands:
  safety       Turn guardrails on or off
  skip         Let exactly one blocked action through
  breaker      Inspect or reset the circuit breaker
  requirements Inspect or edit the requirement set
  build-result Record a build/test outcome
  status       Show all state
  config       Show resolved configuration
  version      Show version information`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		syncConfigFlagToEnv()
		err := setup()
		if err != nil && isHookCommand(cmd) {
			// Hooks fail open; they check svc before acting.
			logger.Warn("setup failed, hook will allow", zap.Error(err))
			return nil
		}
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync() //nolint:errcheck // best-effort flush
	},
}

// exitError carries a non-zero exit status whose message was already
// written by the command.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// exitWith returns nil for 0 and an exitError otherwise.
func exitWith(code int) error {
	if code == 0 {
		return nil
	}
	return &exitError{code: code}
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	var ee *exitError
	if errors.As(err, &ee) {
		os.Exit(ee.code)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Send diagnostics to stderr at debug level")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "Output format (table, json, yaml; audit also takes jsonl) (default table)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./.saneprocess/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "State directory (default: .saneprocess)")
}

// setup loads configuration, builds the logger and wires the services.
func setup() error {
	loaded, loadErr := config.Load(&config.Config{
		Output:   output,
		StateDir: stateDir,
		Verbose:  verbose,
	})
	cfg = loaded

	l, err := newLogger(cfg)
	if err != nil {
		l = zap.NewNop()
	}
	logger = l
	if loadErr != nil {
		logger.Warn("project config unreadable, using defaults", zap.Error(loadErr))
	}

	svc, err = newServices(cfg, logger)
	return err
}

// newLogger writes diagnostics to the state directory, keeping stderr
// free for verdict rationale. Verbose mode logs to stderr at debug level.
func newLogger(c *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		zc.OutputPaths = []string{"stderr"}
		zc.ErrorOutputPaths = []string{"stderr"}
		return zc.Build()
	}
	if err := os.MkdirAll(c.StatePath(), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	zc.OutputPaths = []string{c.DiagnosticsPath()}
	zc.ErrorOutputPaths = []string{c.DiagnosticsPath()}
	return zc.Build()
}

// GetVerbose returns the verbose flag value for use by subcommands.
func GetVerbose() bool {
	return verbose
}

// GetOutput returns the resolved output format.
func GetOutput() string {
	if cfg != nil && cfg.Output != "" {
		return cfg.Output
	}
	if output != "" {
		return output
	}
	return "table"
}

// GetConfigFile returns the config file path for use by subcommands.
func GetConfigFile() string {
	return cfgFile
}

func syncConfigFlagToEnv() {
	path := strings.TrimSpace(GetConfigFile())
	if path == "" {
		return
	}
	_ = os.Setenv("SANEPROCESS_CONFIG", path)
}

// GetCurrentUser returns the current system username.
// Uses os/user package for reliable identity, not spoofable via env vars.
func GetCurrentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}
