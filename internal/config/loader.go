package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		v:         viper.New(),
		envPrefix: "DOCPANEL",
	}
}

// NewLoaderWithViper creates a loader using an existing viper instance.
// This allows integration with CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{
		v:         v,
		envPrefix: "DOCPANEL",
	}
}

// WithConfigFile sets an explicit config file path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Viper returns the underlying viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load loads configuration from all sources.
// Precedence (highest to lowest):
// 1. CLI flags (set via viper.BindPFlag)
// 2. Environment variables (DOCPANEL_*)
// 3. Project config (.docpanel.yaml in current directory)
// 4. User config (~/.config/docpanel/config.yaml)
// 5. Defaults
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(".docpanel")
		l.v.SetConfigType("yaml")

		// Project config takes precedence over user config
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "docpanel"))
		}
	}

	// Read config file (ignore not found)
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults configures default values.
func (l *Loader) setDefaults() {
	// Log defaults
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")

	// Server defaults
	l.v.SetDefault("server.addr", ":8394")
	l.v.SetDefault("server.heartbeat_interval", "15s")

	// Analysis defaults
	l.v.SetDefault("analysis.expert_count", 4)
	l.v.SetDefault("analysis.context_budget", 16000)
	l.v.SetDefault("analysis.prompt_overhead", 1200)
	l.v.SetDefault("analysis.overlap_pages", 2)
	l.v.SetDefault("analysis.max_concurrent_calls", 4)
	l.v.SetDefault("analysis.call_timeout", "2m")
	l.v.SetDefault("analysis.max_retries", 3)
	l.v.SetDefault("analysis.confidence_threshold", 0.5)
	l.v.SetDefault("analysis.second_pass", true)
	l.v.SetDefault("analysis.session_ttl", "1h")
	l.v.SetDefault("analysis.guardrails",
		"Answer only from the provided document text. Cite page numbers for every answer. "+
			"If the text does not answer a question, say so instead of guessing.")

	// Evaluator defaults
	l.v.SetDefault("evaluator.provider", "openai")
	l.v.SetDefault("evaluator.model", "gpt-4o-mini")
	l.v.SetDefault("evaluator.api_key_env", "OPENAI_API_KEY")
	l.v.SetDefault("evaluator.temperature", 0.1)
	l.v.SetDefault("evaluator.max_tokens", 2048)
	l.v.SetDefault("evaluator.rate_limit", 2.0)
	l.v.SetDefault("evaluator.burst", 4)

	// State defaults
	l.v.SetDefault("state.path", ".docpanel/sessions.db")
}

// Validate checks configuration invariants that viper cannot express.
func Validate(cfg *Config) error {
	if cfg.Analysis.ExpertCount < 1 {
		return fmt.Errorf("analysis.expert_count must be at least 1, got %d", cfg.Analysis.ExpertCount)
	}
	if cfg.Analysis.ContextBudget <= cfg.Analysis.PromptOverhead {
		return fmt.Errorf("analysis.context_budget (%d) must exceed analysis.prompt_overhead (%d)",
			cfg.Analysis.ContextBudget, cfg.Analysis.PromptOverhead)
	}
	if cfg.Analysis.OverlapPages < 0 {
		return fmt.Errorf("analysis.overlap_pages must not be negative, got %d", cfg.Analysis.OverlapPages)
	}
	if cfg.Analysis.MaxConcurrentCalls < 1 {
		return fmt.Errorf("analysis.max_concurrent_calls must be at least 1, got %d", cfg.Analysis.MaxConcurrentCalls)
	}
	if cfg.Analysis.ConfidenceThreshold < 0 || cfg.Analysis.ConfidenceThreshold > 1 {
		return fmt.Errorf("analysis.confidence_threshold must be in [0,1], got %g", cfg.Analysis.ConfidenceThreshold)
	}
	for name, val := range map[string]string{
		"analysis.call_timeout":     cfg.Analysis.CallTimeout,
		"analysis.session_ttl":      cfg.Analysis.SessionTTL,
		"server.heartbeat_interval": cfg.Server.HeartbeatInterval,
	} {
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("%s: invalid duration %q", name, val)
		}
	}
	return nil
}

// Duration parses a configured duration string, falling back to def when the
// value is empty or malformed. Config validation catches malformed values at
// load time; the fallback keeps zero-value configs usable in tests.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
