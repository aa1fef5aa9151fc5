// Package evaluator provides core.Evaluator implementations: an OpenAI
// chat-completion backend and a deterministic mock for tests and dry runs.
package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/docpanel-ai/docpanel/internal/core"
	"github.com/docpanel-ai/docpanel/internal/logging"
)

// OpenAIConfig configures the OpenAI evaluator.
type OpenAIConfig struct {
	Model       string
	BaseURL     string
	APIKeyEnv   string
	Temperature float32
	MaxTokens   int
}

// OpenAIEvaluator answers questions through the OpenAI chat completion API.
// Each Evaluate call is one expert turn: window text plus a question block,
// expecting a JSON array back.
type OpenAIEvaluator struct {
	client *openai.Client
	config OpenAIConfig
	logger *logging.Logger
}

// NewOpenAIEvaluator creates an OpenAI-backed evaluator. The API key is
// read from the environment variable named in the config (default
// OPENAI_API_KEY).
func NewOpenAIEvaluator(cfg OpenAIConfig, logger *logging.Logger) (*OpenAIEvaluator, error) {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	apiKey := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	if apiKey == "" {
		return nil, core.ErrValidation("MISSING_API_KEY",
			fmt.Sprintf("environment variable %s is not set", cfg.APIKeyEnv))
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIEvaluator{
		client: openai.NewClientWithConfig(clientCfg),
		config: cfg,
		logger: logger,
	}, nil
}

// Name returns the adapter identifier.
func (e *OpenAIEvaluator) Name() string {
	return "openai/" + e.config.Model
}

// candidateJSON is the shape each expert is instructed to emit.
type candidateJSON struct {
	QuestionID string  `json:"question_id"`
	Answer     string  `json:"answer"`
	Pages      []int   `json:"pages"`
	Confidence float64 `json:"confidence"`
	Footnote   string  `json:"footnote,omitempty"`
}

const systemPrompt = `You are a document analyst. You receive a page range from a larger document and a list of questions. Answer only from the given text.

Respond with a JSON array. For each question you can answer from the text, emit one object:
  {"question_id": "...", "answer": "...", "pages": [..], "confidence": 0.0-1.0, "footnote": "..."}

Rules:
- Omit questions the text does not answer. Never guess.
- "pages" lists the page numbers (as printed in the [Page N] markers) that support the answer.
- "confidence" reflects how directly the text supports the answer.
- "footnote" is an optional short quote supporting the answer.
- Output ONLY the JSON array, no prose.`

// Evaluate sends one chat completion and parses the JSON candidate list.
func (e *OpenAIEvaluator) Evaluate(ctx context.Context, req core.EvalRequest) ([]core.AnswerCandidate, error) {
	prompt := buildPrompt(req)

	chatReq := openai.ChatCompletionRequest{
		Model: e.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: e.config.Temperature,
	}
	if e.config.MaxTokens > 0 {
		chatReq.MaxTokens = e.config.MaxTokens
	}

	resp, err := e.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, classifyAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, core.ErrEvaluation("EMPTY_RESPONSE", "no choices returned")
	}

	candidates, err := parseCandidates(resp.Choices[0].Message.Content, req)
	if err != nil {
		// Malformed output from one call is transient; a retry usually
		// produces parseable JSON.
		return nil, err
	}

	e.logger.Debug("evaluation complete",
		"window", req.Window.Index,
		"questions", len(req.Questions),
		"candidates", len(candidates),
		"tokens_used", resp.Usage.TotalTokens,
	)
	return candidates, nil
}

func buildPrompt(req core.EvalRequest) string {
	var b strings.Builder
	if req.Guardrails != "" {
		b.WriteString("Constraints:\n")
		b.WriteString(req.Guardrails)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Document pages %s:\n\n%s\n\nQuestions:\n", req.Window.PageRange(), req.Window.Text)
	for _, q := range req.Questions {
		fmt.Fprintf(&b, "- [%s] %s\n", q.ID, q.Text)
	}
	return b.String()
}

// parseCandidates tolerates fenced code blocks around the JSON array.
func parseCandidates(content string, req core.EvalRequest) ([]core.AnswerCandidate, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var raw []candidateJSON
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, core.ErrEvaluation(core.CodeParseFailed, "parsing candidate array").WithCause(err)
	}

	candidates := make([]core.AnswerCandidate, 0, len(raw))
	for _, c := range raw {
		if c.QuestionID == "" || strings.TrimSpace(c.Answer) == "" {
			continue
		}
		candidates = append(candidates, core.AnswerCandidate{
			QuestionID: c.QuestionID,
			Text:       c.Answer,
			Pages:      c.Pages,
			Confidence: c.Confidence,
			Footnote:   c.Footnote,
		})
	}
	return candidates, nil
}

// classifyAPIError maps transport and API failures onto domain errors so the
// retry policy can tell transient trouble from permanent rejection.
func classifyAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return core.ErrRateLimit("upstream rate limited").WithCause(err)
		case http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return core.ErrEvaluation("UPSTREAM_ERROR", apiErr.Message).WithCause(err)
		default:
			// 4xx rejections do not improve on retry.
			return core.ErrEvaluation("API_ERROR", apiErr.Message).WithRetryable(false).WithCause(err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return core.ErrTimeout("evaluation call timed out").WithCause(err)
	}
	// Network-level failures are retryable.
	return core.ErrEvaluation("TRANSPORT_ERROR", err.Error()).WithCause(err)
}
