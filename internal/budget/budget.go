package budget

import (
	"fmt"

	"github.com/docpanel-ai/docpanel/internal/core"
)

// Plan is the window and partition plan for one session. Identical inputs
// always produce identical plans, so re-runs are reproducible.
type Plan struct {
	WindowPages   int
	OverlapPages  int
	TotalPages    int
	TokensPerPage int
	Assignments   []core.ExpertAssignment
}

// WindowCount returns the number of windows the sequencer will produce.
func (p *Plan) WindowCount() int {
	if p.TotalPages <= 0 || p.WindowPages <= 0 {
		return 0
	}
	if p.TotalPages <= p.WindowPages {
		return 1
	}
	step := p.WindowPages - p.OverlapPages
	if step < 1 {
		step = 1
	}
	// First window plus one per step until the document end is covered.
	n := 1
	for start := 1 + step; start <= p.TotalPages; start += step {
		n++
		if start+p.WindowPages-1 >= p.TotalPages {
			break
		}
	}
	return n
}

// Optimizer computes window plans from document size, the per-call context
// budget, and the configured expert count.
type Optimizer struct {
	ContextBudget  int // tokens available per expert call
	PromptOverhead int // guardrails and prompt scaffolding
	ExpertCount    int
	OverlapPages   int
	Estimator      *Estimator
}

// NewOptimizer creates an optimizer. A nil estimator defaults to the
// character heuristic.
func NewOptimizer(contextBudget, promptOverhead, expertCount, overlapPages int, est *Estimator) *Optimizer {
	if est == nil {
		est = NewHeuristicEstimator()
	}
	return &Optimizer{
		ContextBudget:  contextBudget,
		PromptOverhead: promptOverhead,
		ExpertCount:    expertCount,
		OverlapPages:   overlapPages,
		Estimator:      est,
	}
}

// BuildPlan computes the window plan and expert/question partition for the
// document. The partition is fixed for the whole session and reused for
// every window.
func (o *Optimizer) BuildPlan(doc *core.Document, qs *core.QuestionSet) (*Plan, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if o.ExpertCount < 1 {
		return nil, core.ErrValidation(core.CodeNoExperts, "expert count must be at least 1")
	}
	questions := qs.All()
	if len(questions) == 0 {
		return nil, core.ErrValidation(core.CodeInvalidQuestionSet, "question set has no questions")
	}

	assignments := Partition(questions, o.ExpertCount)

	// The window must fit the budget alongside the largest expert's
	// question block and the shared prompt overhead.
	maxQuestionTokens := 0
	byID := make(map[string]core.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	for _, a := range assignments {
		t := 0
		for _, id := range a.QuestionIDs {
			t += o.Estimator.Count(byID[id].Text)
		}
		if t > maxQuestionTokens {
			maxQuestionTokens = t
		}
	}

	available := o.ContextBudget - o.PromptOverhead - maxQuestionTokens
	if available <= 0 {
		return nil, core.ErrValidation("CONTEXT_BUDGET_TOO_SMALL",
			fmt.Sprintf("context budget %d cannot fit prompt overhead %d plus %d question tokens",
				o.ContextBudget, o.PromptOverhead, maxQuestionTokens))
	}

	tokensPerPage := o.tokensPerPage(doc)
	windowPages := available / tokensPerPage
	if windowPages < 1 {
		windowPages = 1
	}
	if windowPages > doc.PageCount() {
		windowPages = doc.PageCount()
	}
	// Windows must advance past the overlap or the sequence never ends.
	if windowPages <= o.OverlapPages {
		windowPages = o.OverlapPages + 1
	}

	return &Plan{
		WindowPages:   windowPages,
		OverlapPages:  o.OverlapPages,
		TotalPages:    doc.PageCount(),
		TokensPerPage: tokensPerPage,
		Assignments:   assignments,
	}, nil
}

func (o *Optimizer) tokensPerPage(doc *core.Document) int {
	total := 0
	for _, p := range doc.Pages {
		total += o.Estimator.Count(p.Text)
	}
	per := total / doc.PageCount()
	if per < 1 {
		per = 1
	}
	return per
}

// Partition splits questions into expertCount roughly equal contiguous
// groups, preserving section order. Deterministic for a given input. The
// second pass reuses it to spread gap questions across the session's
// experts, so no single call ever carries a larger question block than the
// plan budgeted for.
func Partition(questions []core.Question, expertCount int) []core.ExpertAssignment {
	n := len(questions)
	if expertCount > n {
		expertCount = n
	}
	assignments := make([]core.ExpertAssignment, 0, expertCount)
	for i := 0; i < expertCount; i++ {
		lo := i * n / expertCount
		hi := (i + 1) * n / expertCount
		ids := make([]string, 0, hi-lo)
		for _, q := range questions[lo:hi] {
			ids = append(ids, q.ID)
		}
		assignments = append(assignments, core.ExpertAssignment{
			Expert:      fmt.Sprintf("expert-%d", i+1),
			QuestionIDs: ids,
		})
	}
	return assignments
}
