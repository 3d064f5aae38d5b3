package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// MaxPromptLength is the hard upper bound for a user-supplied prompt.
// Oversized input fails validation; it is never truncated.
const MaxPromptLength = 19000

// Config holds all configuration for the junie-agent binaries, assembled once
// at process start and passed into the decision functions explicitly.
type Config struct {
	// Trigger settings
	TriggerPhrase   string
	AssigneeTrigger string
	LabelTrigger    string

	// Run settings
	CreateNewBranchForPR bool
	ResolveConflicts     bool
	Prompt               string
	BaseBranch           string
	RunID                string

	// Agent CLI settings
	JunieBin   string
	JunieModel string

	// GitHub App settings
	GitHubAppID         string
	GitHubPrivateKey    string
	GitHubWebhookSecret string

	// Server settings (webhook mode)
	Port int

	// Dispatcher settings (webhook mode)
	DispatcherWorkers           int
	DispatcherQueueSize         int
	DispatcherMaxAttempts       int
	DispatcherRetryInitial      time.Duration
	DispatcherRetryMax          time.Duration
	DispatcherBackoffMultiplier float64
}

// LoadAction loads configuration for a GitHub Actions run. Inputs arrive as
// INPUT_* environment variables the way the Actions runner injects them, with
// GitHub App credentials alongside.
func LoadAction() (*Config, error) {
	cfg := &Config{
		TriggerPhrase:        getInput("TRIGGER_PHRASE", "@junie"),
		AssigneeTrigger:      getInput("ASSIGNEE_TRIGGER", ""),
		LabelTrigger:         getInput("LABEL_TRIGGER", ""),
		CreateNewBranchForPR: getInputBool("CREATE_NEW_BRANCH_FOR_PR", false),
		ResolveConflicts:     getInputBool("RESOLVE_CONFLICTS", false),
		Prompt:               getInput("PROMPT", ""),
		BaseBranch:           getInput("BASE_BRANCH", ""),
		RunID:                getEnv("GITHUB_RUN_ID", ""),
		JunieBin:             getInput("JUNIE_BIN", "junie"),
		JunieModel:           getInput("JUNIE_MODEL", ""),
		GitHubAppID:          os.Getenv("GITHUB_APP_ID"),
		GitHubPrivateKey:     normalizePrivateKey(os.Getenv("GITHUB_PRIVATE_KEY")),
	}

	if err := cfg.validateRun(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadServer loads configuration for the long-running webhook server.
func LoadServer() (*Config, error) {
	cfg := &Config{
		TriggerPhrase:               getEnv("TRIGGER_PHRASE", "@junie"),
		AssigneeTrigger:             os.Getenv("ASSIGNEE_TRIGGER"),
		LabelTrigger:                os.Getenv("LABEL_TRIGGER"),
		CreateNewBranchForPR:        getEnvBool("CREATE_NEW_BRANCH_FOR_PR", false),
		ResolveConflicts:            getEnvBool("RESOLVE_CONFLICTS", false),
		BaseBranch:                  os.Getenv("BASE_BRANCH"),
		JunieBin:                    getEnv("JUNIE_BIN", "junie"),
		JunieModel:                  os.Getenv("JUNIE_MODEL"),
		GitHubAppID:                 os.Getenv("GITHUB_APP_ID"),
		GitHubPrivateKey:            normalizePrivateKey(os.Getenv("GITHUB_PRIVATE_KEY")),
		GitHubWebhookSecret:         os.Getenv("GITHUB_WEBHOOK_SECRET"),
		Port:                        getEnvInt("PORT", 8000),
		DispatcherWorkers:           getEnvInt("DISPATCHER_WORKERS", 4),
		DispatcherQueueSize:         getEnvInt("DISPATCHER_QUEUE_SIZE", 16),
		DispatcherMaxAttempts:       getEnvInt("DISPATCHER_MAX_ATTEMPTS", 3),
		DispatcherRetryInitial:      time.Duration(getEnvInt("DISPATCHER_RETRY_SECONDS", 15)) * time.Second,
		DispatcherRetryMax:          time.Duration(getEnvInt("DISPATCHER_RETRY_MAX_SECONDS", 300)) * time.Second,
		DispatcherBackoffMultiplier: getEnvFloat("DISPATCHER_BACKOFF_MULTIPLIER", 2.0),
	}

	if err := cfg.validateRun(); err != nil {
		return nil, err
	}
	if cfg.GitHubWebhookSecret == "" {
		return nil, fmt.Errorf("GITHUB_WEBHOOK_SECRET is required")
	}
	cfg.applyDispatcherDefaults()
	return cfg, nil
}

// validateRun checks the settings shared by both modes.
func (c *Config) validateRun() error {
	if err := ValidatePrompt(c.Prompt); err != nil {
		return err
	}
	if c.GitHubAppID == "" {
		return fmt.Errorf("GITHUB_APP_ID is required")
	}
	if c.GitHubPrivateKey == "" {
		return fmt.Errorf("GITHUB_PRIVATE_KEY is required")
	}
	return nil
}

// ValidatePrompt enforces the prompt size limit. The error names both the
// actual and the maximum size; oversized input is never truncated.
func ValidatePrompt(prompt string) error {
	if n := len(prompt); n > MaxPromptLength {
		return fmt.Errorf("prompt is too long: %d characters (maximum %d)", n, MaxPromptLength)
	}
	return nil
}

func (c *Config) applyDispatcherDefaults() {
	if c.DispatcherWorkers <= 0 {
		c.DispatcherWorkers = 4
	}
	if c.DispatcherQueueSize <= 0 {
		c.DispatcherQueueSize = 16
	}
	if c.DispatcherMaxAttempts <= 0 {
		c.DispatcherMaxAttempts = 3
	}
	if c.DispatcherRetryInitial <= 0 {
		c.DispatcherRetryInitial = 15 * time.Second
	}
	if c.DispatcherRetryMax < c.DispatcherRetryInitial {
		c.DispatcherRetryMax = 5 * time.Minute
	}
	if c.DispatcherBackoffMultiplier < 1 {
		c.DispatcherBackoffMultiplier = 2
	}
}

// normalizePrivateKey cleans up PEM material that arrives through environment
// variables: surrounding quotes, CRLF line endings and escaped newlines.
func normalizePrivateKey(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "\"") && strings.HasSuffix(trimmed, "\"") {
		trimmed = strings.TrimPrefix(trimmed, "\"")
		trimmed = strings.TrimSuffix(trimmed, "\"")
	}
	if strings.HasPrefix(trimmed, "'") && strings.HasSuffix(trimmed, "'") {
		trimmed = strings.TrimPrefix(trimmed, "'")
		trimmed = strings.TrimSuffix(trimmed, "'")
	}

	trimmed = strings.ReplaceAll(trimmed, "\r\n", "\n")
	trimmed = strings.ReplaceAll(trimmed, "\r", "\n")
	if strings.Contains(trimmed, "\\n") {
		trimmed = strings.ReplaceAll(trimmed, "\\r", "")
		trimmed = strings.ReplaceAll(trimmed, "\\n", "\n")
	}

	return trimmed
}

// getInput reads a GitHub Actions input (INPUT_<NAME>), falling back to the
// plain environment variable and then the default.
func getInput(name, defaultValue string) string {
	if value := os.Getenv("INPUT_" + name); value != "" {
		return value
	}
	return getEnv(name, defaultValue)
}

func getInputBool(name string, defaultValue bool) bool {
	if value := os.Getenv("INPUT_" + name); value != "" {
		return parseBool(value, defaultValue)
	}
	return getEnvBool(name, defaultValue)
}

// getEnv gets environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return parseBool(value, defaultValue)
	}
	return defaultValue
}

func parseBool(value string, defaultValue bool) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvInt gets environment variable as int with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
