package evaluator

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/docpanel-ai/docpanel/internal/core"
)

func TestNewOpenAIEvaluatorRequiresKey(t *testing.T) {
	t.Setenv("DOCPANEL_TEST_KEY", "")
	_, err := NewOpenAIEvaluator(OpenAIConfig{APIKeyEnv: "DOCPANEL_TEST_KEY"}, nil)
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
	var de *core.DomainError
	if !errors.As(err, &de) || de.Code != "MISSING_API_KEY" {
		t.Fatalf("got %v, want MISSING_API_KEY validation error", err)
	}
}

func TestNewOpenAIEvaluatorDefaults(t *testing.T) {
	t.Setenv("DOCPANEL_TEST_KEY", "sk-test")
	e, err := NewOpenAIEvaluator(OpenAIConfig{APIKeyEnv: "DOCPANEL_TEST_KEY"}, nil)
	if err != nil {
		t.Fatalf("NewOpenAIEvaluator: %v", err)
	}
	if e.Name() != "openai/"+openai.GPT4oMini {
		t.Errorf("Name() = %q", e.Name())
	}
}

func TestParseCandidates(t *testing.T) {
	req := core.EvalRequest{}

	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{
			name:    "plain array",
			content: `[{"question_id":"q1","answer":"Acme Corp","pages":[3],"confidence":0.9}]`,
			want:    1,
		},
		{
			name: "fenced json block",
			content: "```json\n" +
				`[{"question_id":"q1","answer":"Acme Corp","pages":[3],"confidence":0.9}]` +
				"\n```",
			want: 1,
		},
		{
			name: "bare fence",
			content: "```\n" +
				`[{"question_id":"q1","answer":"yes","pages":[1],"confidence":0.5}]` +
				"\n```",
			want: 1,
		},
		{
			name: "skips blank answers and missing ids",
			content: `[
				{"question_id":"q1","answer":"kept","pages":[1],"confidence":0.8},
				{"question_id":"q2","answer":"   ","pages":[1],"confidence":0.8},
				{"question_id":"","answer":"orphan","pages":[1],"confidence":0.8}
			]`,
			want: 1,
		},
		{
			name:    "empty array",
			content: `[]`,
			want:    0,
		},
		{
			name:    "prose instead of json",
			content: "The document does not mention revenue.",
			wantErr: true,
		},
		{
			name:    "object instead of array",
			content: `{"question_id":"q1","answer":"x"}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCandidates(tt.content, req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				var de *core.DomainError
				if !errors.As(err, &de) || de.Code != core.CodeParseFailed {
					t.Fatalf("got %v, want %s", err, core.CodeParseFailed)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCandidates: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("candidates = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestParseCandidatesFields(t *testing.T) {
	got, err := parseCandidates(
		`[{"question_id":"q1","answer":"Delaware","pages":[2,3],"confidence":0.85,"footnote":"incorporated in Delaware"}]`,
		core.EvalRequest{})
	if err != nil {
		t.Fatalf("parseCandidates: %v", err)
	}
	c := got[0]
	if c.QuestionID != "q1" || c.Text != "Delaware" || c.Footnote != "incorporated in Delaware" {
		t.Errorf("candidate = %+v", c)
	}
	if len(c.Pages) != 2 || c.Pages[0] != 2 || c.Pages[1] != 3 {
		t.Errorf("pages = %v, want [2 3]", c.Pages)
	}
	if c.Confidence != 0.85 {
		t.Errorf("confidence = %g, want 0.85", c.Confidence)
	}
}

func TestClassifyAPIError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantCategory  core.ErrorCategory
		wantRetryable bool
	}{
		{
			name:          "rate limited",
			err:           &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests},
			wantCategory:  core.ErrCatRateLimit,
			wantRetryable: true,
		},
		{
			name:          "server error",
			err:           &openai.APIError{HTTPStatusCode: http.StatusBadGateway, Message: "bad gateway"},
			wantCategory:  core.ErrCatEvaluation,
			wantRetryable: true,
		},
		{
			name:          "client rejection",
			err:           &openai.APIError{HTTPStatusCode: http.StatusBadRequest, Message: "invalid model"},
			wantCategory:  core.ErrCatEvaluation,
			wantRetryable: false,
		},
		{
			name:          "deadline",
			err:           context.DeadlineExceeded,
			wantCategory:  core.ErrCatTimeout,
			wantRetryable: true,
		},
		{
			name:          "transport",
			err:           errors.New("connection refused"),
			wantCategory:  core.ErrCatEvaluation,
			wantRetryable: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyAPIError(tt.err)
			var de *core.DomainError
			if !errors.As(got, &de) {
				t.Fatalf("error type = %T, want *core.DomainError", got)
			}
			if de.Category != tt.wantCategory {
				t.Errorf("category = %q, want %q", de.Category, tt.wantCategory)
			}
			if de.Retryable != tt.wantRetryable {
				t.Errorf("retryable = %v, want %v", de.Retryable, tt.wantRetryable)
			}
		})
	}
}
