package core

import (
	"context"
	"time"
)

// =============================================================================
// Evaluator Port
// =============================================================================

// EvalRequest is one expert call against the external evaluation capability.
type EvalRequest struct {
	Window     Window
	Questions  []Question
	Guardrails string
	Timeout    time.Duration
}

// Evaluator is the external text-evaluation capability. Implementations are
// treated as black boxes; the dispatcher imposes timeouts and retries
// transient failures.
type Evaluator interface {
	// Name returns the adapter identifier (e.g., "openai", "mock").
	Name() string

	// Evaluate answers the request's questions against the window text.
	// Returned candidates must reference only question ids present in the
	// request.
	Evaluate(ctx context.Context, req EvalRequest) ([]AnswerCandidate, error)
}

// =============================================================================
// Document Source Port
// =============================================================================

// DocumentSource produces page-indexed plain text for a document reference.
// Binary extraction strategies live behind this boundary.
type DocumentSource interface {
	Load(ctx context.Context, ref string) (*Document, error)
}

// =============================================================================
// Session Store Port
// =============================================================================

// SessionStore persists terminal sessions so their results remain queryable
// after the in-memory registry reclaims them.
type SessionStore interface {
	// SaveTerminal upserts a terminal session record.
	SaveTerminal(ctx context.Context, rec *SessionRecord) error

	// Get retrieves a persisted record by session id.
	Get(ctx context.Context, id SessionID) (*SessionRecord, error)

	// List returns persisted records, most recent first.
	List(ctx context.Context, limit int) ([]*SessionRecord, error)

	// Close releases store resources.
	Close() error
}
