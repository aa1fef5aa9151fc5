package service

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/docpanel-ai/docpanel/internal/core"
)

// Accumulator is the per-session merge/dedup engine. It ingests answer
// candidates from any window in any order and maintains, per question, the
// set of distinct answers. Merging is atomic and commutative with respect to
// arrival order; readers obtain fully consistent copies via Snapshot.
type Accumulator struct {
	mu        sync.RWMutex
	questions map[string]core.Question
	order     []string // question ids in configuration order
	answers   map[string][]*storedEntry
}

type storedEntry struct {
	questionID  string
	text        string
	normalized  string
	pages       []int
	confidence  float64
	windowIndex int
	footnote    string
	mergeCount  int
}

// NewAccumulator creates an accumulator for the session's question set.
func NewAccumulator(qs *core.QuestionSet) *Accumulator {
	a := &Accumulator{
		questions: make(map[string]core.Question),
		answers:   make(map[string][]*storedEntry),
	}
	for _, q := range qs.All() {
		a.questions[q.ID] = q
		a.order = append(a.order, q.ID)
	}
	return a
}

// Merge folds a candidate into the accumulated set. A candidate with the
// same normalized text as a stored entry is folded in: merge count
// incremented, cited pages unioned, confidence raised to the maximum of the
// two. Any other candidate is stored as a new distinct entry.
//
// Merge-time folding is restricted to normalized equality. Substring
// containment is not transitive, so folding on it here would make the
// stored set depend on arrival order; containment collapses at read time
// instead, in Snapshot, where the full entry set is known.
//
// A candidate referencing a question outside the session configuration is an
// invariant violation and reports an internal error.
func (a *Accumulator) Merge(c core.AnswerCandidate) error {
	if _, ok := a.questions[c.QuestionID]; !ok {
		return core.ErrInternal(core.CodeUnknownQuestion,
			"answer candidate references unknown question "+c.QuestionID)
	}

	normalized := normalizeAnswer(c.Text)
	if normalized == "" {
		// Blank answers carry no evidence.
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if entry := a.findExact(c.QuestionID, normalized); entry != nil {
		entry.mergeCount++
		entry.pages = core.UnionPages(entry.pages, c.Pages)
		if c.Confidence > entry.confidence {
			entry.confidence = c.Confidence
		}
		if c.WindowIndex < entry.windowIndex {
			entry.windowIndex = c.WindowIndex
		}
		// Equal-content ties keep the lexicographically smaller original
		// phrasing; the footnote travels with whichever phrasing is kept.
		if c.Text < entry.text {
			entry.text = c.Text
			entry.footnote = c.Footnote
		}
		return nil
	}

	a.answers[c.QuestionID] = append(a.answers[c.QuestionID], &storedEntry{
		questionID:  c.QuestionID,
		text:        c.Text,
		normalized:  normalized,
		pages:       core.UnionPages(c.Pages, nil),
		confidence:  c.Confidence,
		windowIndex: c.WindowIndex,
		footnote:    c.Footnote,
		mergeCount:  1,
	})
	return nil
}

// MergeAll merges a batch of candidates, stopping at the first invariant
// violation.
func (a *Accumulator) MergeAll(candidates []core.AnswerCandidate) error {
	for _, c := range candidates {
		if err := a.Merge(c); err != nil {
			return err
		}
	}
	return nil
}

// findExact returns the stored entry with the same normalized text, or nil.
func (a *Accumulator) findExact(questionID, normalized string) *storedEntry {
	for _, entry := range a.answers[questionID] {
		if entry.normalized == normalized {
			return entry
		}
	}
	return nil
}

// Snapshot returns a fully consistent, point-in-time copy of the accumulated
// answer set. Entries whose normalized text is contained in a longer entry's
// are collapsed into it, then the survivors are sorted canonically (best
// candidate first). Both steps are pure functions of the stored set, so
// snapshots of the same logical state are identical regardless of the order
// candidates arrived in.
func (a *Accumulator) Snapshot() core.AnswerSet {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(core.AnswerSet, len(a.answers))
	for qid, entries := range a.answers {
		if len(entries) == 0 {
			continue
		}
		collapsed := collapseContainment(entries)
		copied := make([]core.StoredAnswer, len(collapsed))
		for i, e := range collapsed {
			copied[i] = core.StoredAnswer{
				QuestionID:  e.questionID,
				Text:        e.text,
				Pages:       e.pages,
				Confidence:  e.confidence,
				WindowIndex: e.windowIndex,
				Footnote:    e.footnote,
				MergeCount:  e.mergeCount,
			}
		}
		sort.SliceStable(copied, func(i, j int) bool {
			return canonicalLess(copied[i], copied[j])
		})
		out[qid] = copied
	}
	return out
}

// collapseContainment folds every entry whose normalized text is a substring
// of a longer entry's into that entry: merge counts summed, pages unioned,
// confidence maxed, earliest window kept. The longer phrasing and its
// footnote survive. Entries are processed longest first with a
// lexicographic tiebreak, and a short entry folds into the first survivor
// containing it, so the result depends only on the entry set. Operates on
// copies; the stored entries are never mutated.
func collapseContainment(entries []*storedEntry) []*storedEntry {
	ordered := make([]*storedEntry, len(entries))
	for i, e := range entries {
		c := *e
		c.pages = append([]int(nil), e.pages...)
		ordered[i] = &c
	}
	sort.Slice(ordered, func(i, j int) bool {
		if len(ordered[i].normalized) != len(ordered[j].normalized) {
			return len(ordered[i].normalized) > len(ordered[j].normalized)
		}
		return ordered[i].normalized < ordered[j].normalized
	})

	kept := make([]*storedEntry, 0, len(ordered))
	for _, e := range ordered {
		var host *storedEntry
		for _, k := range kept {
			if strings.Contains(k.normalized, e.normalized) {
				host = k
				break
			}
		}
		if host == nil {
			kept = append(kept, e)
			continue
		}
		host.mergeCount += e.mergeCount
		host.pages = core.UnionPages(host.pages, e.pages)
		if e.confidence > host.confidence {
			host.confidence = e.confidence
		}
		if e.windowIndex < host.windowIndex {
			host.windowIndex = e.windowIndex
		}
	}
	return kept
}

// Gaps returns the ids of questions with no primary answer or a primary
// below the confidence threshold, in configuration order.
func (a *Accumulator) Gaps(threshold float64) []string {
	snapshot := a.Snapshot()

	a.mu.RLock()
	order := a.order
	a.mu.RUnlock()

	var gaps []string
	for _, qid := range order {
		if !snapshot.Answered(qid, threshold) {
			gaps = append(gaps, qid)
		}
	}
	return gaps
}

// QuestionCount returns the number of configured questions.
func (a *Accumulator) QuestionCount() int {
	return len(a.order)
}

func canonicalLess(x, y core.StoredAnswer) bool {
	if x.Confidence != y.Confidence {
		return x.Confidence > y.Confidence
	}
	if x.MergeCount != y.MergeCount {
		return x.MergeCount > y.MergeCount
	}
	if x.WindowIndex != y.WindowIndex {
		return x.WindowIndex < y.WindowIndex
	}
	return x.Text < y.Text
}

// normalizeAnswer lowercases, strips punctuation, and collapses whitespace
// so trivially different phrasings compare equal.
func normalizeAnswer(text string) string {
	text = strings.ToLower(text)

	var builder strings.Builder
	prevSpace := true
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			builder.WriteRune(r)
			prevSpace = false
		} else if !prevSpace {
			builder.WriteRune(' ')
			prevSpace = true
		}
	}

	return strings.TrimSpace(builder.String())
}
