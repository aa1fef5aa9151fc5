package core

import "sort"

// AnswerCandidate is one answer produced by a single expert for a single
// window. Created only by dispatcher tasks and never mutated afterwards.
type AnswerCandidate struct {
	QuestionID  string  `json:"question_id"`
	Text        string  `json:"text"`
	Pages       []int   `json:"pages,omitempty"`
	Confidence  float64 `json:"confidence"`
	WindowIndex int     `json:"window_index"`
	Footnote    string  `json:"footnote,omitempty"`
}

// StoredAnswer is a distinct candidate as held by the accumulator, carrying
// the number of observations folded into it and the cumulative cited pages.
type StoredAnswer struct {
	QuestionID  string  `json:"question_id"`
	Text        string  `json:"text"`
	Pages       []int   `json:"pages,omitempty"` // sorted, deduplicated
	Confidence  float64 `json:"confidence"`
	WindowIndex int     `json:"window_index"` // earliest originating window
	Footnote    string  `json:"footnote,omitempty"`
	MergeCount  int     `json:"merge_count"`
}

// AnswerSet is a point-in-time snapshot of the accumulated answers, keyed by
// question id. Safe to read concurrently; the accumulator hands out deep
// copies only.
type AnswerSet map[string][]StoredAnswer

// Primary returns the selected best candidate for a question: highest
// confidence, ties broken by highest merge count, then earliest window.
func (as AnswerSet) Primary(questionID string) (StoredAnswer, bool) {
	answers := as[questionID]
	if len(answers) == 0 {
		return StoredAnswer{}, false
	}
	best := answers[0]
	for _, a := range answers[1:] {
		if betterAnswer(a, best) {
			best = a
		}
	}
	return best, true
}

// Alternates returns the non-primary candidates for a question, best first.
func (as AnswerSet) Alternates(questionID string) []StoredAnswer {
	answers := as[questionID]
	if len(answers) < 2 {
		return nil
	}
	sorted := make([]StoredAnswer, len(answers))
	copy(sorted, answers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return betterAnswer(sorted[i], sorted[j])
	})
	return sorted[1:]
}

// Answered reports whether the question has a primary answer with confidence
// at or above the threshold.
func (as AnswerSet) Answered(questionID string, threshold float64) bool {
	primary, ok := as.Primary(questionID)
	return ok && primary.Confidence >= threshold
}

func betterAnswer(a, b StoredAnswer) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.MergeCount != b.MergeCount {
		return a.MergeCount > b.MergeCount
	}
	return a.WindowIndex < b.WindowIndex
}

// UnionPages merges two sorted page sets into a new sorted, deduplicated set.
func UnionPages(a, b []int) []int {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(a)+len(b))
	for _, p := range a {
		seen[p] = true
	}
	for _, p := range b {
		seen[p] = true
	}
	out := make([]int, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
