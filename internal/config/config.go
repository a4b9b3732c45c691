package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for relmap.
type Config struct {
	General    GeneralConfig    `json:"general"`
	Slack      SlackConfig      `json:"slack"`
	Classifier ClassifierConfig `json:"classifier"`
	Strength   StrengthConfig   `json:"strength"`
	Labeler    LabelerConfig    `json:"labeler"`
	History    HistoryConfig    `json:"history"`
}

type GeneralConfig struct {
	InputDir          string `json:"inputDir"`
	OutputDir         string `json:"outputDir"`
	LogLevel          string `json:"logLevel"`
	WindowDays        int    `json:"windowDays"` // trailing message window
	DrawIOOptionsFile string `json:"drawIoOptionsFile"`
}

type SlackConfig struct {
	Token              string `json:"token,omitempty"`     // prefer tokenFile or RELMAP_SLACK_TOKEN
	TokenFile          string `json:"tokenFile,omitempty"`
	PageLimit          int    `json:"pageLimit"`
	ChannelConcurrency int    `json:"channelConcurrency"`
	ThreadConcurrency  int    `json:"threadConcurrency"`
}

type ClassifierConfig struct {
	// ThreadPropagation treats thread replies as directed at every
	// earlier speaker in the thread.
	ThreadPropagation bool `json:"threadPropagation"`
	// NonConversationalSubtypes overrides the built-in skip list when set.
	NonConversationalSubtypes []string `json:"nonConversationalSubtypes,omitempty"`
}

type StrengthConfig struct {
	Policy    string `json:"policy"` // "tier" | "bucket"
	Divisions int    `json:"divisions"`
}

type LabelerConfig struct {
	Enabled     bool   `json:"enabled"`
	APIKey      string `json:"apiKey,omitempty"` // prefer apiKeyFile or RELMAP_OPENAI_API_KEY
	APIKeyFile  string `json:"apiKeyFile,omitempty"`
	BaseURL     string `json:"baseUrl,omitempty"` // any OpenAI-compatible endpoint
	Model       string `json:"model,omitempty"`
	PromptFile  string `json:"promptFile,omitempty"`
	TextBudget  int    `json:"textBudget,omitempty"`
	Concurrency int    `json:"concurrency,omitempty"`
}

type HistoryConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath"`
}

// ChannelCacheDir is where per-channel message snapshots land.
func (c *Config) ChannelCacheDir() string {
	return filepath.Join(c.General.OutputDir, "messages", "channels")
}

// UserDumpDir is where per-participant debug CSVs land.
func (c *Config) UserDumpDir() string {
	return filepath.Join(c.General.OutputDir, "messages", "user")
}

func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".relmap"
	}
	return filepath.Join(home, ".relmap")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.InputDir = ExpandPath(cfg.General.InputDir)
	cfg.General.OutputDir = ExpandPath(cfg.General.OutputDir)
	cfg.General.DrawIOOptionsFile = ExpandPath(cfg.General.DrawIOOptionsFile)
	cfg.Slack.TokenFile = ExpandPath(cfg.Slack.TokenFile)
	cfg.Labeler.APIKeyFile = ExpandPath(cfg.Labeler.APIKeyFile)
	cfg.Labeler.PromptFile = ExpandPath(cfg.Labeler.PromptFile)
	cfg.History.DBPath = ExpandPath(cfg.History.DBPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.WindowDays < 1 || cfg.General.WindowDays > 365 {
		errs = append(errs, "general.windowDays must be between 1 and 365")
	}
	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.Slack.PageLimit < 1 || cfg.Slack.PageLimit > 1000 {
		errs = append(errs, "slack.pageLimit must be between 1 and 1000")
	}
	if cfg.Slack.ChannelConcurrency < 1 || cfg.Slack.ChannelConcurrency > 32 {
		errs = append(errs, "slack.channelConcurrency must be between 1 and 32")
	}
	if cfg.Slack.ThreadConcurrency < 1 || cfg.Slack.ThreadConcurrency > 32 {
		errs = append(errs, "slack.threadConcurrency must be between 1 and 32")
	}

	switch cfg.Strength.Policy {
	case "tier", "bucket":
		// valid
	default:
		errs = append(errs, "strength.policy must be one of: tier, bucket")
	}
	if cfg.Strength.Divisions < 1 || cfg.Strength.Divisions > 10 {
		errs = append(errs, "strength.divisions must be between 1 and 10")
	}

	if cfg.Labeler.Concurrency < 0 || cfg.Labeler.Concurrency > 32 {
		errs = append(errs, "labeler.concurrency must be between 0 and 32")
	}

	if cfg.History.Enabled && cfg.History.DBPath == "" {
		errs = append(errs, "history.dbPath is required when history is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset
// or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// ResolveSecret resolves a credential: environment variable first, then the
// configured file, then the config literal. An empty result is not an error
// here; callers decide whether the secret is mandatory.
func ResolveSecret(envName, filePath, literal string) (string, error) {
	if v := os.Getenv(envName); v != "" {
		return strings.TrimSpace(v), nil
	}
	if filePath != "" {
		data, err := os.ReadFile(ExpandPath(filePath))
		if err != nil {
			if os.IsNotExist(err) && literal != "" {
				return literal, nil
			}
			return "", fmt.Errorf("cannot read secret file %s: %w", filePath, err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return literal, nil
}
