package budget

import "github.com/docpanel-ai/docpanel/internal/core"

// Sequence produces the ordered, finite window sequence for the plan.
// Windows cover the full document with the configured overlap; the last
// window is truncated to the document end rather than padded. Computed once
// per session and not restartable mid-sequence.
func Sequence(doc *core.Document, plan *Plan, est *Estimator) []core.Window {
	if doc.PageCount() == 0 || plan.WindowPages < 1 {
		return nil
	}
	if est == nil {
		est = NewHeuristicEstimator()
	}

	step := plan.WindowPages - plan.OverlapPages
	if step < 1 {
		step = 1
	}

	var windows []core.Window
	for start := 1; start <= doc.PageCount(); start += step {
		end := start + plan.WindowPages - 1
		if end > doc.PageCount() {
			end = doc.PageCount()
		}
		text := doc.TextRange(start, end)
		windows = append(windows, core.Window{
			Index:     len(windows),
			FirstPage: start,
			LastPage:  end,
			Text:      text,
			Tokens:    est.Count(text),
		})
		if end == doc.PageCount() {
			break
		}
	}
	return windows
}
