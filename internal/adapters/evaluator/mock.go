package evaluator

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/docpanel-ai/docpanel/internal/core"
)

// MockEvaluator is a deterministic evaluator for tests and dry runs. It
// answers a question when any keyword from the question text appears in the
// window, with a confidence derived from a stable hash of question id and
// window index. The same inputs always produce the same candidates.
type MockEvaluator struct {
	mu    sync.Mutex
	calls int

	// Delay simulates upstream latency per call.
	Delay time.Duration

	// FailEvery makes every Nth call fail with a retryable error. Zero
	// disables injected failures.
	FailEvery int

	// Scripted answers override keyword matching: question id to answer
	// text. Scripted questions are answered in every window.
	Scripted map[string]string
}

// NewMockEvaluator creates a deterministic mock evaluator.
func NewMockEvaluator() *MockEvaluator {
	return &MockEvaluator{}
}

// Name returns the adapter identifier.
func (m *MockEvaluator) Name() string {
	return "mock"
}

// Calls returns the number of Evaluate invocations so far.
func (m *MockEvaluator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Evaluate produces deterministic candidates from the window text.
func (m *MockEvaluator) Evaluate(ctx context.Context, req core.EvalRequest) ([]core.AnswerCandidate, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.FailEvery > 0 && call%m.FailEvery == 0 {
		return nil, core.ErrEvaluation("INJECTED_FAILURE", fmt.Sprintf("injected failure on call %d", call))
	}

	lowerText := strings.ToLower(req.Window.Text)
	var candidates []core.AnswerCandidate
	for _, q := range req.Questions {
		if answer, ok := m.Scripted[q.ID]; ok {
			candidates = append(candidates, core.AnswerCandidate{
				QuestionID: q.ID,
				Text:       answer,
				Pages:      req.Window.Pages(),
				Confidence: stableConfidence(q.ID, req.Window.Index),
			})
			continue
		}
		if keyword, ok := matchKeyword(q.Text, lowerText); ok {
			candidates = append(candidates, core.AnswerCandidate{
				QuestionID: q.ID,
				Text:       fmt.Sprintf("The document discusses %s on pages %s.", keyword, req.Window.PageRange()),
				Pages:      req.Window.Pages(),
				Confidence: stableConfidence(q.ID, req.Window.Index),
				Footnote:   fmt.Sprintf("keyword %q matched", keyword),
			})
		}
	}
	return candidates, nil
}

// matchKeyword returns the first question word of four letters or more that
// appears in the window text.
func matchKeyword(question, lowerText string) (string, bool) {
	for _, word := range strings.Fields(strings.ToLower(question)) {
		word = strings.Trim(word, "?.,:;\"'")
		if len(word) < 4 {
			continue
		}
		if strings.Contains(lowerText, word) {
			return word, true
		}
	}
	return "", false
}

// stableConfidence maps (question, window) to a value in [0.5, 1.0).
func stableConfidence(questionID string, windowIndex int) float64 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s/%d", questionID, windowIndex)
	return 0.5 + float64(h.Sum32()%500)/1000.0
}
