package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docpanel-ai/docpanel/internal/core"
	"github.com/docpanel-ai/docpanel/internal/events"
	"github.com/docpanel-ai/docpanel/internal/logging"
)

// Dispatcher fans one window out to every expert assignment, joins on all of
// them, and returns that window's candidates. One dispatcher serves one
// session; the join in DispatchWindow is a hard barrier, so the pipeline
// never advances past a window with expert calls still in flight.
type Dispatcher struct {
	sessionID   core.SessionID
	evaluator   core.Evaluator
	retry       *RetryPolicy
	limiter     *RateLimiter
	concurrency int
	callTimeout time.Duration
	guardrails  string
	bus         *events.Bus
	logger      *logging.Logger
}

// DispatcherConfig holds dispatcher tuning.
type DispatcherConfig struct {
	Concurrency int
	CallTimeout time.Duration
	Guardrails  string
	MaxRetries  int
	RateLimit   RateLimiterConfig
	Retry       *RetryPolicy // overrides the evaluator policy when set
}

// DefaultDispatcherConfig returns default configuration.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Concurrency: 4,
		CallTimeout: 2 * time.Minute,
		MaxRetries:  3,
		RateLimit:   DefaultRateLimiterConfig(),
	}
}

// NewDispatcher creates a dispatcher for one session.
func NewDispatcher(sessionID core.SessionID, evaluator core.Evaluator, cfg DispatcherConfig, bus *events.Bus, logger *logging.Logger) *Dispatcher {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 2 * time.Minute
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	retry := cfg.Retry
	if retry == nil {
		retry = EvaluatorRetryPolicy(cfg.MaxRetries)
	}
	return &Dispatcher{
		sessionID:   sessionID,
		evaluator:   evaluator,
		retry:       retry,
		limiter:     NewRateLimiter(cfg.RateLimit),
		concurrency: cfg.Concurrency,
		callTimeout: cfg.CallTimeout,
		guardrails:  cfg.Guardrails,
		bus:         bus,
		logger:      logger.WithSession(string(sessionID)),
	}
}

// WindowResult is the joined outcome of one window's expert dispatch.
type WindowResult struct {
	WindowIndex int
	Candidates  []core.AnswerCandidate
	Unresolved  []string // question ids left unresolved by failed experts
}

// DispatchWindow runs every expert assignment for the window with bounded
// concurrency and blocks until all of them have terminated: successfully, by
// exhausting retries, or by timeout. A single expert failure never aborts
// the window; its questions are reported as unresolved instead.
func (d *Dispatcher) DispatchWindow(ctx context.Context, window core.Window, assignments []core.ExpertAssignment, qs *core.QuestionSet) *WindowResult {
	result := &WindowResult{WindowIndex: window.Index}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for _, assignment := range assignments {
		assignment := assignment
		g.Go(func() error {
			candidates, err := d.runExpert(gctx, window, assignment, qs)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Unresolved = append(result.Unresolved, assignment.QuestionIDs...)
				d.logger.WithWindow(window.Index).WithExpert(assignment.Expert).Warn("expert failed for window",
					"questions", len(assignment.QuestionIDs),
					"error", err,
				)
			} else {
				result.Candidates = append(result.Candidates, candidates...)
			}
			if d.bus != nil {
				d.bus.Publish(events.NewExpertResultEvent(string(d.sessionID), window.Index, assignment.Expert, len(candidates), err))
			}
			// Expert failures are contained; never cancel sibling experts.
			return nil
		})
	}

	// Join barrier: the window is complete only once every task terminated.
	_ = g.Wait()

	sort.Strings(result.Unresolved)
	return result
}

// runExpert performs one expert's evaluation call with rate limiting, retry,
// and the caller-imposed timeout.
func (d *Dispatcher) runExpert(ctx context.Context, window core.Window, assignment core.ExpertAssignment, qs *core.QuestionSet) ([]core.AnswerCandidate, error) {
	questions := make([]core.Question, 0, len(assignment.QuestionIDs))
	for _, id := range assignment.QuestionIDs {
		if q, ok := qs.ByID(id); ok {
			questions = append(questions, q)
		}
	}
	if len(questions) == 0 {
		return nil, nil
	}

	if err := d.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	var raw []core.AnswerCandidate
	err := d.retry.ExecuteWithNotify(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
		defer cancel()

		var evalErr error
		raw, evalErr = d.evaluator.Evaluate(callCtx, core.EvalRequest{
			Window:     window,
			Questions:  questions,
			Guardrails: d.guardrails,
			Timeout:    d.callTimeout,
		})
		return evalErr
	}, func(attempt int, err error, delay time.Duration) {
		d.logger.WithWindow(window.Index).WithExpert(assignment.Expert).Debug("retrying expert call",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
	})
	if err != nil {
		return nil, core.ErrEvaluation(core.CodeEvaluatorFailed,
			fmt.Sprintf("expert %s exhausted evaluation attempts", assignment.Expert)).
			WithRetryable(false).WithCause(err)
	}

	return sanitizeCandidates(raw, assignment, window), nil
}

// sanitizeCandidates drops candidates for questions outside the expert's
// assignment, stamps the originating window, and clamps confidence to [0,1].
// The evaluation capability is a black box; its output is not trusted to
// respect the request.
func sanitizeCandidates(raw []core.AnswerCandidate, assignment core.ExpertAssignment, window core.Window) []core.AnswerCandidate {
	assigned := make(map[string]bool, len(assignment.QuestionIDs))
	for _, id := range assignment.QuestionIDs {
		assigned[id] = true
	}

	out := make([]core.AnswerCandidate, 0, len(raw))
	for _, c := range raw {
		if !assigned[c.QuestionID] {
			continue
		}
		c.WindowIndex = window.Index
		if c.Confidence < 0 {
			c.Confidence = 0
		}
		if c.Confidence > 1 {
			c.Confidence = 1
		}
		out = append(out, c)
	}
	return out
}
