package cmd

import (
	"fmt"
	"time"

	"github.com/docpanel-ai/docpanel/internal/adapters/evaluator"
	"github.com/docpanel-ai/docpanel/internal/adapters/ingest"
	"github.com/docpanel-ai/docpanel/internal/budget"
	"github.com/docpanel-ai/docpanel/internal/config"
	"github.com/docpanel-ai/docpanel/internal/core"
	"github.com/docpanel-ai/docpanel/internal/service"
)

// buildEvaluator selects the evaluator backend from config, or the mock
// when dryRun is set.
func buildEvaluator(cfg *config.Config, dryRun bool) (core.Evaluator, error) {
	if dryRun {
		return evaluator.NewMockEvaluator(), nil
	}

	switch cfg.Evaluator.Provider {
	case "openai":
		return evaluator.NewOpenAIEvaluator(evaluator.OpenAIConfig{
			Model:       cfg.Evaluator.Model,
			BaseURL:     cfg.Evaluator.BaseURL,
			APIKeyEnv:   cfg.Evaluator.APIKeyEnv,
			Temperature: float32(cfg.Evaluator.Temperature),
			MaxTokens:   cfg.Evaluator.MaxTokens,
		}, logger)
	case "mock":
		return evaluator.NewMockEvaluator(), nil
	default:
		return nil, fmt.Errorf("unknown evaluator provider %q", cfg.Evaluator.Provider)
	}
}

// buildRunner assembles the analysis pipeline from config.
func buildRunner(cfg *config.Config, eval core.Evaluator) *service.AnalysisRunner {
	runnerCfg := service.RunnerConfig{
		ExpertCount:         cfg.Analysis.ExpertCount,
		ContextBudget:       cfg.Analysis.ContextBudget,
		PromptOverhead:      cfg.Analysis.PromptOverhead,
		OverlapPages:        cfg.Analysis.OverlapPages,
		Concurrency:         cfg.Analysis.MaxConcurrentCalls,
		CallTimeout:         config.Duration(cfg.Analysis.CallTimeout, 2*time.Minute),
		MaxRetries:          cfg.Analysis.MaxRetries,
		ConfidenceThreshold: cfg.Analysis.ConfidenceThreshold,
		SecondPass:          cfg.Analysis.SecondPass,
		Guardrails:          cfg.Analysis.Guardrails,
		RateLimit: service.RateLimiterConfig{
			MaxTokens:  float64(cfg.Evaluator.Burst),
			RefillRate: cfg.Evaluator.RateLimit,
		},
	}

	return service.NewAnalysisRunner(runnerCfg, ingest.NewTextFileSource(), eval, budget.NewEstimator("cl100k_base"), logger)
}
