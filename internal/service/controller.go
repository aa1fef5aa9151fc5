package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docpanel-ai/docpanel/internal/core"
	"github.com/docpanel-ai/docpanel/internal/events"
	"github.com/docpanel-ai/docpanel/internal/logging"
)

// sessionHandle bundles everything the controller tracks for one live
// session. The session's own mutex guards status; the accumulator guards
// answers. The handle itself is immutable after registration.
type sessionHandle struct {
	session   *core.Session
	questions *core.QuestionSet
	acc       *Accumulator
	bus       *events.Bus
	cancel    context.CancelFunc
}

// Controller owns the session registry. Every API-facing operation goes
// through it: starting an analysis, stopping one, reading progress and
// results, and streaming events. Terminal sessions are persisted to the
// store before the janitor evicts them, so a results query never races
// eviction into a not-found.
type Controller struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionHandle

	runner *AnalysisRunner
	store  core.SessionStore
	logger *logging.Logger

	ttl         time.Duration
	janitorStop chan struct{}
	janitorDone chan struct{}
	wg          sync.WaitGroup
}

// NewController creates a controller and starts its expiry janitor.
// store may be nil, in which case terminal sessions are lost on eviction.
func NewController(runner *AnalysisRunner, store core.SessionStore, ttl time.Duration, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	c := &Controller{
		sessions:    make(map[core.SessionID]*sessionHandle),
		runner:      runner,
		store:       store,
		logger:      logger,
		ttl:         ttl,
		janitorStop: make(chan struct{}),
		janitorDone: make(chan struct{}),
	}
	go c.janitor()
	return c
}

// StartAnalysis registers a new session and spawns its worker. The session
// is registered, and visible to queries, before the first window is
// dispatched. The worker runs on a context detached from the caller's so an
// HTTP request ending does not cancel the analysis.
func (c *Controller) StartAnalysis(ctx context.Context, docRef string, qs *core.QuestionSet) (core.SessionID, error) {
	if err := qs.Validate(); err != nil {
		return "", err
	}

	id := core.SessionID(uuid.New().String())
	sess := core.NewSession(id, docRef, qs.Name)

	handle := &sessionHandle{
		session:   sess,
		questions: qs,
		acc:       NewAccumulator(qs),
		bus:       events.New(256),
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	handle.cancel = cancel

	c.mu.Lock()
	c.sessions[id] = handle
	c.mu.Unlock()

	if err := sess.Start(); err != nil {
		c.mu.Lock()
		delete(c.sessions, id)
		c.mu.Unlock()
		cancel()
		return "", err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		_ = c.runner.Run(workerCtx, sess, docRef, qs, handle.acc, handle.bus)
		c.persistTerminal(handle)
	}()

	c.logger.Info("analysis started", "session_id", string(id), "document", docRef, "question_set", qs.Name)
	return id, nil
}

// Stop requests cooperative shutdown of a session. It sets the stop flag
// and returns immediately; the worker finishes its in-flight window before
// honoring it. Stopping an already-stopping or terminal session is a no-op.
func (c *Controller) Stop(ctx context.Context, id core.SessionID) error {
	c.mu.RLock()
	handle, ok := c.sessions[id]
	c.mu.RUnlock()

	if ok {
		if handle.session.RequestStop() {
			c.logger.Info("stop requested", "session_id", string(id))
		}
		return nil
	}

	// Evicted terminal sessions are already stopped; only a genuinely
	// unknown id is an error.
	if c.store != nil {
		if _, err := c.store.Get(ctx, id); err == nil {
			return nil
		}
	}
	return core.ErrNotFound(core.CodeSessionNotFound, "session not found: "+string(id))
}

// Get returns the current progress view of a session.
func (c *Controller) Get(ctx context.Context, id core.SessionID) (core.SessionView, error) {
	c.mu.RLock()
	handle, ok := c.sessions[id]
	c.mu.RUnlock()

	if ok {
		return handle.session.View(), nil
	}
	if c.store != nil {
		if rec, err := c.store.Get(ctx, id); err == nil {
			return rec.View, nil
		}
	}
	return core.SessionView{}, core.ErrNotFound(core.CodeSessionNotFound, "session not found: "+string(id))
}

// Results compiles the current report for a session. For a live session it
// snapshots the accumulator, so results reflect every fully merged window
// and never a half-merged one. The report is flagged partial for anything
// short of COMPLETED.
func (c *Controller) Results(ctx context.Context, id core.SessionID) (*core.Report, core.SessionView, error) {
	c.mu.RLock()
	handle, ok := c.sessions[id]
	c.mu.RUnlock()

	if ok {
		view := handle.session.View()
		// Failed sessions report their error through the view only,
		// matching what the store persists for them.
		if view.Status == core.SessionStatusFailed {
			return nil, view, nil
		}
		partial := view.Status != core.SessionStatusCompleted
		report := CompileReport(id, handle.questions, handle.acc.Snapshot(), partial)
		return report, view, nil
	}
	if c.store != nil {
		if rec, err := c.store.Get(ctx, id); err == nil {
			return rec.Report, rec.View, nil
		}
	}
	return nil, core.SessionView{}, core.ErrNotFound(core.CodeSessionNotFound, "session not found: "+string(id))
}

// List returns views of all known sessions, live first, newest first.
func (c *Controller) List(ctx context.Context, limit int) ([]core.SessionView, error) {
	c.mu.RLock()
	views := make([]core.SessionView, 0, len(c.sessions))
	seen := make(map[core.SessionID]bool, len(c.sessions))
	for id, handle := range c.sessions {
		views = append(views, handle.session.View())
		seen[id] = true
	}
	c.mu.RUnlock()

	if c.store != nil {
		recs, err := c.store.List(ctx, limit)
		if err != nil {
			c.logger.Warn("listing stored sessions", "error", err)
		}
		for _, rec := range recs {
			if !seen[rec.View.ID] {
				views = append(views, rec.View)
			}
		}
	}

	sort.Slice(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	if limit > 0 && len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

// Subscribe returns the event stream for a live session plus an unsubscribe
// function. Terminal-but-retained sessions still accept subscribers; the
// stream simply stays quiet.
func (c *Controller) Subscribe(id core.SessionID) (<-chan events.Event, func(), error) {
	c.mu.RLock()
	handle, ok := c.sessions[id]
	c.mu.RUnlock()

	if !ok {
		return nil, nil, core.ErrNotFound(core.CodeSessionNotFound, "session not found: "+string(id))
	}
	ch := handle.bus.Subscribe()
	return ch, func() { handle.bus.Unsubscribe(ch) }, nil
}

// Close stops the janitor, cancels all workers, and waits for them to
// finish their current window and reach a terminal state.
func (c *Controller) Close() error {
	close(c.janitorStop)
	<-c.janitorDone

	c.mu.RLock()
	for _, handle := range c.sessions {
		handle.session.RequestStop()
		handle.cancel()
	}
	c.mu.RUnlock()

	c.wg.Wait()

	c.mu.Lock()
	for id, handle := range c.sessions {
		handle.bus.Close()
		delete(c.sessions, id)
	}
	c.mu.Unlock()
	return nil
}

// persistTerminal writes a terminal session's record to the store. Failures
// are logged, not fatal: the in-memory handle still serves queries until
// eviction.
func (c *Controller) persistTerminal(handle *sessionHandle) {
	if c.store == nil {
		return
	}
	view := handle.session.View()
	partial := view.Status != core.SessionStatusCompleted

	rec := &core.SessionRecord{View: view}
	if view.Status != core.SessionStatusFailed {
		rec.Report = CompileReport(view.ID, handle.questions, handle.acc.Snapshot(), partial)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.store.SaveTerminal(ctx, rec); err != nil {
		c.logger.Error("persisting terminal session", "session_id", string(view.ID), "error", err)
	}
}

// janitor evicts terminal sessions that have been idle past the TTL. Only
// terminal sessions are candidates; a long-running active session never
// expires out from under its worker.
func (c *Controller) janitor() {
	defer close(c.janitorDone)

	interval := c.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.janitorStop:
			return
		case <-ticker.C:
			c.evictExpired(time.Now())
		}
	}
}

func (c *Controller) evictExpired(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, handle := range c.sessions {
		if !handle.session.IsTerminal() {
			continue
		}
		if handle.session.IdleSince(now) < c.ttl {
			continue
		}
		handle.bus.Close()
		delete(c.sessions, id)
		c.logger.Debug("session evicted", "session_id", string(id))
	}
}
