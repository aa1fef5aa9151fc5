package config

// Config holds all application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Evaluator EvaluatorConfig `mapstructure:"evaluator"`
	State     StateConfig     `mapstructure:"state"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Addr              string `mapstructure:"addr"`
	HeartbeatInterval string `mapstructure:"heartbeat_interval"`
}

// AnalysisConfig configures session orchestration.
type AnalysisConfig struct {
	ExpertCount         int     `mapstructure:"expert_count"`
	ContextBudget       int     `mapstructure:"context_budget"` // tokens per expert call
	PromptOverhead      int     `mapstructure:"prompt_overhead"`
	OverlapPages        int     `mapstructure:"overlap_pages"`
	MaxConcurrentCalls  int     `mapstructure:"max_concurrent_calls"`
	CallTimeout         string  `mapstructure:"call_timeout"`
	MaxRetries          int     `mapstructure:"max_retries"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	SecondPass          bool    `mapstructure:"second_pass"`
	SessionTTL          string  `mapstructure:"session_ttl"`
	Guardrails          string  `mapstructure:"guardrails"`
}

// EvaluatorConfig configures the external evaluation capability.
type EvaluatorConfig struct {
	Provider    string  `mapstructure:"provider"` // openai, mock
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base_url"`
	APIKeyEnv   string  `mapstructure:"api_key_env"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	RateLimit   float64 `mapstructure:"rate_limit"` // calls per second
	Burst       int     `mapstructure:"burst"`
}

// StateConfig configures session history persistence.
type StateConfig struct {
	Path string `mapstructure:"path"`
}
