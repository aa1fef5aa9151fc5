package service

import (
	"context"

	"github.com/docpanel-ai/docpanel/internal/budget"
	"github.com/docpanel-ai/docpanel/internal/core"
	"github.com/docpanel-ai/docpanel/internal/logging"
)

// SecondPass performs the single bounded gap-targeted pass after the first
// full window sweep. It re-partitions the gap questions across the session's
// experts, dispatches them against every window again, and merges the
// results through the same accumulator. It runs at most once and never loops
// seeking further improvement, so its cost is predictable.
type SecondPass struct {
	dispatcher *Dispatcher
	experts    int
	logger     *logging.Logger
	done       bool
}

// NewSecondPass creates a second-pass processor reusing the session's
// dispatcher and expert count.
func NewSecondPass(dispatcher *Dispatcher, experts int, logger *logging.Logger) *SecondPass {
	if experts < 1 {
		experts = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SecondPass{
		dispatcher: dispatcher,
		experts:    experts,
		logger:     logger,
	}
}

// Run dispatches the gap questions against the windows and merges results.
// Folding goes through Accumulator.Merge, which raises confidence and page
// sets monotonically, so an already-answered question can never regress.
// Returns the number of candidates merged.
//
// Run is called by the session's single worker; a second invocation exceeds
// the pass budget and is rejected.
func (sp *SecondPass) Run(ctx context.Context, windows []core.Window, gaps []string, qs *core.QuestionSet, acc *Accumulator) (int, error) {
	if sp.done {
		return 0, core.ErrSecondPassBudget("second pass already performed for this session")
	}
	sp.done = true

	if len(gaps) == 0 {
		return 0, nil
	}

	gapSet := gapQuestionSet(qs, gaps)
	if gapSet.Len() == 0 {
		return 0, nil
	}

	// Spread the gaps across the session's experts so no call carries a
	// larger question block than the window plan budgeted for.
	assignments := budget.Partition(gapSet.All(), sp.experts)

	merged := 0
	for _, window := range windows {
		select {
		case <-ctx.Done():
			return merged, ctx.Err()
		default:
		}

		result := sp.dispatcher.DispatchWindow(ctx, window, assignments, gapSet)
		if err := acc.MergeAll(result.Candidates); err != nil {
			return merged, err
		}
		merged += len(result.Candidates)
	}

	sp.logger.Info("second pass finished",
		"gaps", len(gaps),
		"candidates", merged,
	)
	return merged, nil
}

// gapQuestionSet builds a question set restricted to the gap question ids,
// preserving section structure.
func gapQuestionSet(qs *core.QuestionSet, gaps []string) *core.QuestionSet {
	wanted := make(map[string]bool, len(gaps))
	for _, id := range gaps {
		wanted[id] = true
	}

	out := &core.QuestionSet{Name: qs.Name}
	for _, section := range qs.Sections {
		var kept []core.Question
		for _, q := range section.Questions {
			if wanted[q.ID] {
				kept = append(kept, q)
			}
		}
		if len(kept) > 0 {
			out.Sections = append(out.Sections, core.QuestionSection{
				Name:      section.Name,
				Questions: kept,
			})
		}
	}
	return out
}
