// Package config provides configuration management for saneprocess.
// Configuration is loaded from (highest to lowest priority):
// 1. Command-line flags
// 2. Environment variables (SANEPROCESS_*)
// 3. Project config (.saneprocess/config.yaml in cwd)
// 4. Home config (~/.saneprocess/config.yaml)
// 5. Defaults
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all saneprocess configuration.
type Config struct {
	// Output controls the default output format (table, json, yaml).
	Output string `yaml:"output" json:"output"`

	// StateDir is the per-project state directory (default: .saneprocess).
	StateDir string `yaml:"state_dir" json:"state_dir"`

	// Verbose sends diagnostics to stderr instead of the diagnostics log.
	Verbose bool `yaml:"verbose" json:"verbose"`

	// TriggersFile overrides the embedded pattern table (.yaml, .json, .jsonc).
	TriggersFile string `yaml:"triggers_file" json:"triggers_file"`

	// Requirements maps action category to required requirement names.
	// Nil means the built-in mapping.
	Requirements map[string][]string `yaml:"requirements" json:"requirements,omitempty"`

	// Breaker settings
	Breaker BreakerConfig `yaml:"breaker" json:"breaker"`

	// Probe settings
	Probe ProbeConfig `yaml:"probe" json:"probe"`
}

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	// Threshold is the consecutive failure count that trips the breaker.
	Threshold int `yaml:"threshold" json:"threshold"`
}

// ProbeConfig holds build probe settings.
type ProbeConfig struct {
	// BuildHost is an optional host:port that must answer for build results to count.
	BuildHost string `yaml:"build_host" json:"build_host"`

	// Timeout bounds each probe (Go duration string).
	Timeout string `yaml:"timeout" json:"timeout"`

	// MaxAge is how long a build result stays meaningful (Go duration string).
	MaxAge string `yaml:"max_age" json:"max_age"`
}

// Default config values (used in resolution and validation).
const (
	defaultOutput       = "table"
	defaultStateDir     = ".saneprocess"
	defaultThreshold    = 3
	defaultProbeTimeout = "2s"
	defaultProbeMaxAge  = "30m"

	// DiagnosticsFile is the diagnostics log name inside the state directory.
	DiagnosticsFile = "diagnostics.log"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Output:   defaultOutput,
		StateDir: defaultStateDir,
		Verbose:  false,
		Breaker: BreakerConfig{
			Threshold: defaultThreshold,
		},
		Probe: ProbeConfig{
			Timeout: defaultProbeTimeout,
			MaxAge:  defaultProbeMaxAge,
		},
	}
}

// Load loads configuration with proper precedence.
// Priority: flags > env > project > home > defaults
func Load(flagOverrides *Config) (*Config, error) {
	cfg := Default()

	homeConfig, _ := loadFromPath(homeConfigPath())
	if homeConfig != nil {
		cfg = merge(cfg, homeConfig)
	}

	// A broken project file is reported, but env and flags still apply.
	var projectErr error
	projectConfig, err := loadFromPath(projectConfigPath())
	if err != nil && !os.IsNotExist(err) {
		projectErr = err
	}
	if projectConfig != nil {
		cfg = merge(cfg, projectConfig)
	}

	cfg = applyEnv(cfg)

	if flagOverrides != nil {
		cfg = merge(cfg, flagOverrides)
	}

	return cfg, projectErr
}

// StatePath returns the state directory as an absolute path. Relative
// directories resolve against CLAUDE_PROJECT_DIR when set, else the cwd.
func (c *Config) StatePath() string {
	if filepath.IsAbs(c.StateDir) {
		return c.StateDir
	}
	base := strings.TrimSpace(os.Getenv("CLAUDE_PROJECT_DIR"))
	if base == "" {
		base, _ = os.Getwd()
	}
	return filepath.Join(base, c.StateDir)
}

// DiagnosticsPath returns the diagnostics log file path.
func (c *Config) DiagnosticsPath() string {
	return filepath.Join(c.StatePath(), DiagnosticsFile)
}

// ProbeTimeout parses Probe.Timeout, falling back to the default.
func (c *Config) ProbeTimeout() time.Duration {
	return parseDuration(c.Probe.Timeout, defaultProbeTimeout)
}

// ProbeMaxAge parses Probe.MaxAge, falling back to the default.
func (c *Config) ProbeMaxAge() time.Duration {
	return parseDuration(c.Probe.MaxAge, defaultProbeMaxAge)
}

func parseDuration(v, def string) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(def)
	return d
}

// homeConfigPath returns the home config path.
func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".saneprocess", "config.yaml")
}

// projectConfigPath returns the project config path.
func projectConfigPath() string {
	if override := strings.TrimSpace(os.Getenv("SANEPROCESS_CONFIG")); override != "" {
		return override
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, ".saneprocess", "config.yaml")
}

// loadFromPath loads config from a YAML file.
func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv applies environment variable overrides.
func applyEnv(cfg *Config) *Config {
	if v := os.Getenv("SANEPROCESS_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("SANEPROCESS_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if os.Getenv("SANEPROCESS_VERBOSE") == "true" || os.Getenv("SANEPROCESS_VERBOSE") == "1" {
		cfg.Verbose = true
	}
	if v := os.Getenv("SANEPROCESS_TRIGGERS_FILE"); v != "" {
		cfg.TriggersFile = v
	}
	if v := os.Getenv("SANEPROCESS_BREAKER_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Breaker.Threshold = n
		}
	}
	if v := os.Getenv("SANEPROCESS_BUILD_HOST"); v != "" {
		cfg.Probe.BuildHost = v
	}
	if v := os.Getenv("SANEPROCESS_PROBE_TIMEOUT"); v != "" {
		cfg.Probe.Timeout = v
	}
	if v := os.Getenv("SANEPROCESS_PROBE_MAX_AGE"); v != "" {
		cfg.Probe.MaxAge = v
	}
	return cfg
}

// mergeStr overwrites dst with src when src is non-empty.
func mergeStr(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// mergeInt overwrites dst with src when src is non-zero.
func mergeInt(dst *int, src int) {
	if src != 0 {
		*dst = src
	}
}

// merge merges src into dst, with src values taking precedence.
func merge(dst, src *Config) *Config {
	mergeStr(&dst.Output, src.Output)
	mergeStr(&dst.StateDir, src.StateDir)
	if src.Verbose {
		dst.Verbose = true
	}
	mergeStr(&dst.TriggersFile, src.TriggersFile)
	if src.Requirements != nil {
		dst.Requirements = src.Requirements
	}

	mergeInt(&dst.Breaker.Threshold, src.Breaker.Threshold)
	mergeProbe(&dst.Probe, &src.Probe)

	return dst
}

// mergeProbe merges probe-specific config fields.
func mergeProbe(dst, src *ProbeConfig) {
	mergeStr(&dst.BuildHost, src.BuildHost)
	mergeStr(&dst.Timeout, src.Timeout)
	mergeStr(&dst.MaxAge, src.MaxAge)
}

// Source represents where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceHome    Source = "~/.saneprocess/config.yaml"
	SourceProject Source = ".saneprocess/config.yaml"
	SourceEnv     Source = "environment"
	SourceFlag    Source = "flag"
)

// getEnvString returns the value and whether the env var was set.
func getEnvString(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

// getEnvBool returns the boolean value and whether it was truthy.
func getEnvBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "true" || v == "1" {
		return true, true
	}
	return false, false
}

// resolveStringField resolves a string through the precedence chain.
func resolveStringField(home, project, env, flag, def string) resolved {
	result := resolved{Value: def, Source: SourceDefault}
	if home != "" {
		result = resolved{Value: home, Source: SourceHome}
	}
	if project != "" {
		result = resolved{Value: project, Source: SourceProject}
	}
	if env != "" {
		result = resolved{Value: env, Source: SourceEnv}
	}
	if flag != "" {
		result = resolved{Value: flag, Source: SourceFlag}
	}
	return result
}

// ResolvedConfig shows config values with their sources.
type ResolvedConfig struct {
	Output           resolved `json:"output"`
	StateDir         resolved `json:"state_dir"`
	Verbose          resolved `json:"verbose"`
	TriggersFile     resolved `json:"triggers_file"`
	BreakerThreshold resolved `json:"breaker_threshold"`
	ProbeBuildHost   resolved `json:"probe_build_host"`
	ProbeTimeout     resolved `json:"probe_timeout"`
	ProbeMaxAge      resolved `json:"probe_max_age"`
	Requirements     resolved `json:"requirements"`
}

type resolved struct {
	Value  interface{} `json:"value"`
	Source Source      `json:"source"`
}

// layer flattens one config file into the string fields Resolve tracks.
type layer struct {
	output, stateDir, triggersFile, threshold, buildHost, timeout, maxAge string
	verbose                                                               bool
	requirements                                                          map[string][]string
}

func layerOf(cfg *Config) layer {
	if cfg == nil {
		return layer{}
	}
	l := layer{
		output:       cfg.Output,
		stateDir:     cfg.StateDir,
		triggersFile: cfg.TriggersFile,
		buildHost:    cfg.Probe.BuildHost,
		timeout:      cfg.Probe.Timeout,
		maxAge:       cfg.Probe.MaxAge,
		verbose:      cfg.Verbose,
		requirements: cfg.Requirements,
	}
	if cfg.Breaker.Threshold != 0 {
		l.threshold = strconv.Itoa(cfg.Breaker.Threshold)
	}
	return l
}

// Resolve returns configuration with source tracking.
// Uses precedence chain: flags > env > project > home > defaults.
func Resolve(flagOutput, flagStateDir string, flagVerbose bool) *ResolvedConfig {
	homeConfig, _ := loadFromPath(homeConfigPath())
	projectConfig, _ := loadFromPath(projectConfigPath())
	home, project := layerOf(homeConfig), layerOf(projectConfig)

	envOutput, _ := getEnvString("SANEPROCESS_OUTPUT")
	envStateDir, _ := getEnvString("SANEPROCESS_STATE_DIR")
	envVerbose, envVerboseSet := getEnvBool("SANEPROCESS_VERBOSE")
	envTriggers, _ := getEnvString("SANEPROCESS_TRIGGERS_FILE")
	envThreshold, _ := getEnvString("SANEPROCESS_BREAKER_THRESHOLD")
	envBuildHost, _ := getEnvString("SANEPROCESS_BUILD_HOST")
	envTimeout, _ := getEnvString("SANEPROCESS_PROBE_TIMEOUT")
	envMaxAge, _ := getEnvString("SANEPROCESS_PROBE_MAX_AGE")

	rc := &ResolvedConfig{
		Output:           resolveStringField(home.output, project.output, envOutput, flagOutput, defaultOutput),
		StateDir:         resolveStringField(home.stateDir, project.stateDir, envStateDir, flagStateDir, defaultStateDir),
		Verbose:          resolved{Value: false, Source: SourceDefault},
		TriggersFile:     resolveStringField(home.triggersFile, project.triggersFile, envTriggers, "", "(embedded)"),
		BreakerThreshold: resolveStringField(home.threshold, project.threshold, envThreshold, "", strconv.Itoa(defaultThreshold)),
		ProbeBuildHost:   resolveStringField(home.buildHost, project.buildHost, envBuildHost, "", "(none)"),
		ProbeTimeout:     resolveStringField(home.timeout, project.timeout, envTimeout, "", defaultProbeTimeout),
		ProbeMaxAge:      resolveStringField(home.maxAge, project.maxAge, envMaxAge, "", defaultProbeMaxAge),
		Requirements:     resolved{Value: "(built-in)", Source: SourceDefault},
	}

	// Requirements come only from config files; project replaces home.
	if home.requirements != nil {
		rc.Requirements = resolved{Value: home.requirements, Source: SourceHome}
	}
	if project.requirements != nil {
		rc.Requirements = resolved{Value: project.requirements, Source: SourceProject}
	}

	// Verbose has OR semantics through the chain
	if home.verbose {
		rc.Verbose = resolved{Value: true, Source: SourceHome}
	}
	if project.verbose {
		rc.Verbose = resolved{Value: true, Source: SourceProject}
	}
	if envVerboseSet && envVerbose {
		rc.Verbose = resolved{Value: true, Source: SourceEnv}
	}
	if flagVerbose {
		rc.Verbose = resolved{Value: true, Source: SourceFlag}
	}

	return rc
}
