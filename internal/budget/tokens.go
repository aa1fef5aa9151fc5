// Package budget computes deterministic window plans and expert/question
// partitions so every expert call fits the evaluation capability's context
// limit.
package budget

import (
	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE encoding used for token estimation.
const DefaultEncoding = "cl100k_base"

// fallbackCharsPerToken approximates English prose when no encoding is
// available (e.g., offline environments where the BPE file cannot be
// fetched).
const fallbackCharsPerToken = 4

// Estimator estimates token counts for prompt budgeting. Estimation only
// has to be consistent, not exact: the same text must always produce the
// same count so window plans are reproducible.
type Estimator struct {
	enc *tiktoken.Tiktoken
}

// NewEstimator creates an estimator for the given encoding, falling back to
// a character-based heuristic when the encoding cannot be loaded.
func NewEstimator(encoding string) *Estimator {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return &Estimator{}
	}
	return &Estimator{enc: enc}
}

// NewHeuristicEstimator creates an estimator that only uses the character
// heuristic. Used in tests for full determinism without the BPE data.
func NewHeuristicEstimator() *Estimator {
	return &Estimator{}
}

// Count returns the estimated token count for text.
func (e *Estimator) Count(text string) int {
	if text == "" {
		return 0
	}
	if e.enc != nil {
		return len(e.enc.Encode(text, nil, nil))
	}
	n := len(text) / fallbackCharsPerToken
	if n == 0 {
		n = 1
	}
	return n
}
