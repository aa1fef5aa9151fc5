package service

import (
	"context"
	"time"

	"github.com/docpanel-ai/docpanel/internal/budget"
	"github.com/docpanel-ai/docpanel/internal/core"
	"github.com/docpanel-ai/docpanel/internal/events"
	"github.com/docpanel-ai/docpanel/internal/logging"
)

// RunnerConfig holds per-session pipeline tuning.
type RunnerConfig struct {
	ExpertCount         int
	ContextBudget       int
	PromptOverhead      int
	OverlapPages        int
	Concurrency         int
	CallTimeout         time.Duration
	MaxRetries          int
	ConfidenceThreshold float64
	SecondPass          bool
	Guardrails          string
	RateLimit           RateLimiterConfig
}

// DefaultRunnerConfig returns default configuration.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		ExpertCount:         4,
		ContextBudget:       16000,
		PromptOverhead:      1200,
		OverlapPages:        2,
		Concurrency:         4,
		CallTimeout:         2 * time.Minute,
		MaxRetries:          3,
		ConfidenceThreshold: 0.5,
		SecondPass:          true,
		RateLimit:           DefaultRateLimiterConfig(),
	}
}

// AnalysisRunner executes the complete pipeline for one session: ingestion,
// budget planning, window sequencing, per-window expert dispatch,
// accumulation, the second pass, and the terminal state transition. The
// runner itself is stateless; everything per-session arrives as arguments.
type AnalysisRunner struct {
	config    RunnerConfig
	source    core.DocumentSource
	evaluator core.Evaluator
	estimator *budget.Estimator
	logger    *logging.Logger
}

// NewAnalysisRunner creates an analysis runner.
func NewAnalysisRunner(config RunnerConfig, source core.DocumentSource, evaluator core.Evaluator, estimator *budget.Estimator, logger *logging.Logger) *AnalysisRunner {
	if estimator == nil {
		estimator = budget.NewHeuristicEstimator()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &AnalysisRunner{
		config:    config,
		source:    source,
		evaluator: evaluator,
		estimator: estimator,
		logger:    logger,
	}
}

// Run drives one session from ACTIVE to a terminal state. The worker checks
// the cooperative stop flag only at window-boundary checkpoints, never
// mid-merge or mid-dispatch, and performs the STOPPING -> PARTIAL transition
// itself, once.
func (r *AnalysisRunner) Run(ctx context.Context, sess *core.Session, docRef string, qs *core.QuestionSet, acc *Accumulator, bus *events.Bus) error {
	logger := r.logger.WithSession(string(sess.ID()))

	doc, err := r.source.Load(ctx, docRef)
	if err != nil {
		return r.fail(sess, bus, logger, core.ErrIngestion("LOAD_FAILED", "loading document").WithCause(err))
	}

	optimizer := budget.NewOptimizer(r.config.ContextBudget, r.config.PromptOverhead, r.config.ExpertCount, r.config.OverlapPages, r.estimator)
	plan, err := optimizer.BuildPlan(doc, qs)
	if err != nil {
		return r.fail(sess, bus, logger, err)
	}

	windows := budget.Sequence(doc, plan, r.estimator)
	if len(windows) == 0 {
		return r.fail(sess, bus, logger, core.ErrIngestion("NO_WINDOWS", "document produced no windows"))
	}
	sess.SetTotalWindows(len(windows))

	logger.Info("starting analysis",
		"document", doc.Name,
		"pages", doc.PageCount(),
		"windows", len(windows),
		"window_pages", plan.WindowPages,
		"overlap_pages", plan.OverlapPages,
		"experts", len(plan.Assignments),
		"questions", qs.Len(),
	)
	bus.Publish(events.NewAnalysisStartedEvent(string(sess.ID()), doc.Name, len(windows), len(plan.Assignments), qs.Len()))

	dispatcher := NewDispatcher(sess.ID(), r.evaluator, DispatcherConfig{
		Concurrency: r.config.Concurrency,
		CallTimeout: r.config.CallTimeout,
		Guardrails:  r.config.Guardrails,
		MaxRetries:  r.config.MaxRetries,
		RateLimit:   r.config.RateLimit,
	}, bus, r.logger)

	for _, window := range windows {
		bus.Publish(events.NewWindowProcessingEvent(string(sess.ID()), window.Index, len(windows), window.PageRange()))

		result := dispatcher.DispatchWindow(ctx, window, plan.Assignments, qs)
		if err := acc.MergeAll(result.Candidates); err != nil {
			// Merge only rejects candidates for unknown questions; reaching
			// this is a programming defect, not an operational condition.
			return r.fail(sess, bus, logger, err)
		}
		sess.RecordWindow()

		bus.Publish(events.NewWindowCompleteEvent(string(sess.ID()), window.Index, len(windows), len(result.Candidates), len(result.Unresolved)))

		// Window-boundary checkpoint: the only place a stop takes effect.
		if ctx.Err() != nil {
			sess.RequestStop()
		}
		if sess.StopRequested() {
			return r.finishPartial(sess, bus, logger, acc, qs)
		}
	}

	if r.config.SecondPass {
		gaps := acc.Gaps(r.config.ConfidenceThreshold)
		if len(gaps) > 0 {
			logger.Info("starting second pass", "gaps", len(gaps))
			bus.Publish(events.NewSecondPassStartedEvent(string(sess.ID()), len(gaps)))

			sp := NewSecondPass(dispatcher, r.config.ExpertCount, logger)
			if _, err := sp.Run(ctx, windows, gaps, qs, acc); err != nil {
				if ctx.Err() != nil {
					sess.RequestStop()
					return r.finishPartial(sess, bus, logger, acc, qs)
				}
				// Second-pass budget or dispatch trouble falls back silently
				// to first-pass results; the session still completes.
				logger.Warn("second pass abandoned, keeping first-pass results", "error", err)
			}
			sess.RecordSecondPass()
		}
	}

	// Terminal transition. A stop request can land at any moment after the
	// last checkpoint; deciding between COMPLETED and PARTIAL under the
	// session mutex keeps a late stop from failing the session.
	status, err := sess.CompleteOrPartial()
	if err != nil {
		return r.fail(sess, bus, logger, err)
	}
	partial := status == core.SessionStatusPartial

	snapshot := acc.Snapshot()
	answered := countAnswered(snapshot, qs)
	if partial {
		logger.Info("analysis stopped, partial results kept",
			"answered", answered,
			"total", qs.Len(),
		)
	} else {
		logger.Info("analysis completed",
			"answered", answered,
			"total", qs.Len(),
		)
	}
	bus.PublishPriority(events.NewAnalysisDoneEvent(string(sess.ID()), partial, answered, qs.Len(), sessionDuration(sess)))
	return nil
}

// finishPartial performs the single atomic STOPPING -> PARTIAL transition
// and announces the partial result.
func (r *AnalysisRunner) finishPartial(sess *core.Session, bus *events.Bus, logger *logging.Logger, acc *Accumulator, qs *core.QuestionSet) error {
	if err := sess.MarkPartial(); err != nil {
		return r.fail(sess, bus, logger, err)
	}

	snapshot := acc.Snapshot()
	answered := countAnswered(snapshot, qs)
	logger.Info("analysis stopped, partial results kept",
		"windows_completed", sess.View().WindowsCompleted,
		"answered", answered,
		"total", qs.Len(),
	)
	bus.PublishPriority(events.NewAnalysisDoneEvent(string(sess.ID()), true, answered, qs.Len(), sessionDuration(sess)))
	return nil
}

// fail transitions the session to FAILED with error detail.
func (r *AnalysisRunner) fail(sess *core.Session, bus *events.Bus, logger *logging.Logger, err error) error {
	sess.Fail(err)
	logger.Error("analysis failed", "error", err)
	bus.PublishPriority(events.NewAnalysisFailedEvent(string(sess.ID()), err.Error()))
	return err
}

func countAnswered(snapshot core.AnswerSet, qs *core.QuestionSet) int {
	answered := 0
	for _, q := range qs.All() {
		if _, ok := snapshot.Primary(q.ID); ok {
			answered++
		}
	}
	return answered
}

func sessionDuration(sess *core.Session) time.Duration {
	view := sess.View()
	if view.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if view.CompletedAt != nil {
		end = *view.CompletedAt
	}
	return end.Sub(*view.StartedAt)
}
