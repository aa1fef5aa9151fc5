package core

import (
	"fmt"
	"sync"
	"time"
)

// SessionID uniquely identifies an analysis session.
type SessionID string

// SessionStatus represents the current state of a session.
//
// Transitions are monotonic along:
//
//	PENDING -> ACTIVE -> STOPPING -> PARTIAL
//	                  -> COMPLETED
//	any non-terminal  -> FAILED
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusStopping  SessionStatus = "stopping"
	SessionStatusPartial   SessionStatus = "partial"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
)

// Session is one end-to-end analysis run. All status mutation goes through
// the guarded transition methods so concurrent readers always resolve the
// session to exactly one status.
type Session struct {
	mu sync.RWMutex

	id           SessionID
	status       SessionStatus
	documentName string
	questionSet  string
	errDetail    string

	totalWindows     int
	windowsCompleted int
	secondPassDone   bool

	createdAt    time.Time
	startedAt    *time.Time
	completedAt  *time.Time
	lastActivity time.Time
}

// NewSession creates a session in PENDING state.
func NewSession(id SessionID, documentName, questionSet string) *Session {
	now := time.Now()
	return &Session{
		id:           id,
		status:       SessionStatusPending,
		documentName: documentName,
		questionSet:  questionSet,
		createdAt:    now,
		lastActivity: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() SessionID {
	return s.id
}

// Status returns the current status.
func (s *Session) Status() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Start transitions PENDING -> ACTIVE.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != SessionStatusPending {
		return ErrState(CodeInvalidState, fmt.Sprintf("cannot start session in %s state", s.status))
	}
	s.status = SessionStatusActive
	now := time.Now()
	s.startedAt = &now
	s.lastActivity = now
	return nil
}

// RequestStop transitions ACTIVE -> STOPPING. It only sets the cooperative
// flag; the worker performs the PARTIAL transition at the next window
// boundary. Idempotent: calls on an already stopping or terminal session are
// no-ops. Returns true if this call initiated the stop.
func (s *Session) RequestStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status {
	case SessionStatusActive, SessionStatusPending:
		s.status = SessionStatusStopping
		s.lastActivity = time.Now()
		return true
	default:
		return false
	}
}

// StopRequested reports whether a stop has been requested. Workers check
// this only at window-boundary checkpoints.
func (s *Session) StopRequested() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status == SessionStatusStopping
}

// MarkPartial transitions STOPPING -> PARTIAL. Performed once, atomically,
// by the worker itself after it halts at a checkpoint.
func (s *Session) MarkPartial() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != SessionStatusStopping {
		return ErrState(CodeInvalidState, fmt.Sprintf("cannot mark session partial in %s state", s.status))
	}
	s.status = SessionStatusPartial
	s.finish()
	return nil
}

// Complete transitions ACTIVE -> COMPLETED.
func (s *Session) Complete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != SessionStatusActive {
		return ErrState(CodeInvalidState, fmt.Sprintf("cannot complete session in %s state", s.status))
	}
	s.status = SessionStatusCompleted
	s.finish()
	return nil
}

// CompleteOrPartial performs the worker's final transition in one guarded
// step: ACTIVE -> COMPLETED, or STOPPING -> PARTIAL when a stop request
// landed after the worker's last checkpoint. Deciding under the mutex means
// a late stop can never make Complete fail. Returns the terminal status
// reached.
func (s *Session) CompleteOrPartial() (SessionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status {
	case SessionStatusActive:
		s.status = SessionStatusCompleted
	case SessionStatusStopping:
		s.status = SessionStatusPartial
	default:
		return s.status, ErrState(CodeInvalidState, fmt.Sprintf("cannot finish session in %s state", s.status))
	}
	s.finish()
	return s.status, nil
}

// Fail transitions any non-terminal state -> FAILED, carrying error detail.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isTerminal() {
		return
	}
	s.status = SessionStatusFailed
	if err != nil {
		s.errDetail = err.Error()
	}
	s.finish()
}

func (s *Session) finish() {
	now := time.Now()
	s.completedAt = &now
	s.lastActivity = now
}

// IsTerminal returns true if the session is in a terminal state.
func (s *Session) IsTerminal() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isTerminal()
}

func (s *Session) isTerminal() bool {
	return s.status == SessionStatusPartial ||
		s.status == SessionStatusCompleted ||
		s.status == SessionStatusFailed
}

// Readable reports whether a results query must succeed for this session.
func (s *Session) Readable() bool {
	switch s.Status() {
	case SessionStatusActive, SessionStatusStopping, SessionStatusPartial, SessionStatusCompleted:
		return true
	default:
		return false
	}
}

// RecordWindow updates progress counters after a window's join barrier.
func (s *Session) RecordWindow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windowsCompleted++
	s.lastActivity = time.Now()
}

// SetTotalWindows records the planned window count.
func (s *Session) SetTotalWindows(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalWindows = n
	s.lastActivity = time.Now()
}

// RecordSecondPass marks the second pass as done.
func (s *Session) RecordSecondPass() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secondPassDone = true
	s.lastActivity = time.Now()
}

// Touch updates the last-activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// IdleSince returns the duration since the last recorded activity.
func (s *Session) IdleSince(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastActivity)
}

// SessionView is an immutable snapshot of session metadata for API readers.
type SessionView struct {
	ID               SessionID     `json:"id"`
	Status           SessionStatus `json:"status"`
	DocumentName     string        `json:"document_name"`
	QuestionSet      string        `json:"question_set"`
	TotalWindows     int           `json:"total_windows"`
	WindowsCompleted int           `json:"windows_completed"`
	SecondPassDone   bool          `json:"second_pass_done"`
	Error            string        `json:"error,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	StartedAt        *time.Time    `json:"started_at,omitempty"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
}

// View returns a consistent snapshot of the session metadata.
func (s *Session) View() SessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionView{
		ID:               s.id,
		Status:           s.status,
		DocumentName:     s.documentName,
		QuestionSet:      s.questionSet,
		TotalWindows:     s.totalWindows,
		WindowsCompleted: s.windowsCompleted,
		SecondPassDone:   s.secondPassDone,
		Error:            s.errDetail,
		CreatedAt:        s.createdAt,
		StartedAt:        s.startedAt,
		CompletedAt:      s.completedAt,
	}
}
