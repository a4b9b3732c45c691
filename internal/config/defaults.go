package config

import "path/filepath"

// Environment variables that override the configured secrets.
const (
	EnvSlackToken   = "RELMAP_SLACK_TOKEN"
	EnvOpenAIAPIKey = "RELMAP_OPENAI_API_KEY"
)

func Defaults() *Config {
	base := DefaultConfigDir()
	inputDir := filepath.Join(base, "input")

	return &Config{
		General: GeneralConfig{
			InputDir:          inputDir,
			OutputDir:         filepath.Join(base, "output"),
			LogLevel:          "info",
			WindowDays:        7,
			DrawIOOptionsFile: filepath.Join(inputDir, "drawioOptions.yaml"),
		},
		Slack: SlackConfig{
			TokenFile:          filepath.Join(inputDir, "slackApiToken.txt"),
			PageLimit:          1000,
			ChannelConcurrency: 4,
			ThreadConcurrency:  8,
		},
		Classifier: ClassifierConfig{
			ThreadPropagation: true,
		},
		Strength: StrengthConfig{
			Policy:    "tier",
			Divisions: 5,
		},
		Labeler: LabelerConfig{
			Enabled:     false,
			APIKeyFile:  filepath.Join(inputDir, "openaiApiKey.txt"),
			PromptFile:  filepath.Join(inputDir, "labelPrompt.txt"),
			TextBudget:  8192,
			Concurrency: 4,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  filepath.Join(base, "history.db"),
		},
	}
}
