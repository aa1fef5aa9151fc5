package events

import "time"

// Event type constants for analysis progress events.
const (
	TypeAnalysisStarted   = "analysis_started"
	TypeWindowProcessing  = "window_processing"
	TypeWindowComplete    = "window_complete"
	TypeExpertResult      = "expert_result"
	TypeSecondPassStarted = "second_pass_started"
	TypeAnalysisDone      = "analysis_done"
	TypeAnalysisFailed    = "analysis_failed"
	TypeHeartbeat         = "heartbeat"
)

// AnalysisStartedEvent is emitted when a session's worker begins.
type AnalysisStartedEvent struct {
	BaseEvent
	DocumentName string `json:"document_name"`
	TotalWindows int    `json:"total_windows"`
	Experts      int    `json:"experts"`
	Questions    int    `json:"questions"`
}

// NewAnalysisStartedEvent creates a new analysis started event.
func NewAnalysisStartedEvent(sessionID, documentName string, totalWindows, experts, questions int) AnalysisStartedEvent {
	return AnalysisStartedEvent{
		BaseEvent:    NewBaseEvent(TypeAnalysisStarted, sessionID),
		DocumentName: documentName,
		TotalWindows: totalWindows,
		Experts:      experts,
		Questions:    questions,
	}
}

// WindowProcessingEvent is emitted when a window's expert dispatch begins.
type WindowProcessingEvent struct {
	BaseEvent
	WindowIndex  int    `json:"window_index"`
	TotalWindows int    `json:"total_windows"`
	PageRange    string `json:"page_range"`
}

// NewWindowProcessingEvent creates a new window processing event.
func NewWindowProcessingEvent(sessionID string, index, total int, pageRange string) WindowProcessingEvent {
	return WindowProcessingEvent{
		BaseEvent:    NewBaseEvent(TypeWindowProcessing, sessionID),
		WindowIndex:  index,
		TotalWindows: total,
		PageRange:    pageRange,
	}
}

// WindowCompleteEvent is emitted after a window's join barrier is satisfied
// and its evidence has been merged.
type WindowCompleteEvent struct {
	BaseEvent
	WindowIndex  int `json:"window_index"`
	TotalWindows int `json:"total_windows"`
	Candidates   int `json:"candidates"`
	Unresolved   int `json:"unresolved"`
}

// NewWindowCompleteEvent creates a new window complete event.
func NewWindowCompleteEvent(sessionID string, index, total, candidates, unresolved int) WindowCompleteEvent {
	return WindowCompleteEvent{
		BaseEvent:    NewBaseEvent(TypeWindowComplete, sessionID),
		WindowIndex:  index,
		TotalWindows: total,
		Candidates:   candidates,
		Unresolved:   unresolved,
	}
}

// ExpertResultEvent is emitted when one expert's call for a window finishes.
type ExpertResultEvent struct {
	BaseEvent
	WindowIndex int    `json:"window_index"`
	Expert      string `json:"expert"`
	Candidates  int    `json:"candidates"`
	Failed      bool   `json:"failed"`
	Error       string `json:"error,omitempty"`
}

// NewExpertResultEvent creates a new expert result event.
func NewExpertResultEvent(sessionID string, windowIndex int, expert string, candidates int, err error) ExpertResultEvent {
	e := ExpertResultEvent{
		BaseEvent:   NewBaseEvent(TypeExpertResult, sessionID),
		WindowIndex: windowIndex,
		Expert:      expert,
		Candidates:  candidates,
	}
	if err != nil {
		e.Failed = true
		e.Error = err.Error()
	}
	return e
}

// SecondPassStartedEvent is emitted when the gap-targeted second pass begins.
type SecondPassStartedEvent struct {
	BaseEvent
	Gaps int `json:"gaps"`
}

// NewSecondPassStartedEvent creates a new second pass started event.
func NewSecondPassStartedEvent(sessionID string, gaps int) SecondPassStartedEvent {
	return SecondPassStartedEvent{
		BaseEvent: NewBaseEvent(TypeSecondPassStarted, sessionID),
		Gaps:      gaps,
	}
}

// AnalysisDoneEvent is emitted once when a session reaches PARTIAL or
// COMPLETED. Partial indicates the run was stopped before exhausting all
// windows.
type AnalysisDoneEvent struct {
	BaseEvent
	Partial  bool          `json:"partial"`
	Answered int           `json:"answered"`
	Total    int           `json:"total"`
	Duration time.Duration `json:"duration"`
}

// NewAnalysisDoneEvent creates a new analysis done event.
func NewAnalysisDoneEvent(sessionID string, partial bool, answered, total int, duration time.Duration) AnalysisDoneEvent {
	return AnalysisDoneEvent{
		BaseEvent: NewBaseEvent(TypeAnalysisDone, sessionID),
		Partial:   partial,
		Answered:  answered,
		Total:     total,
		Duration:  duration,
	}
}

// AnalysisFailedEvent is emitted once when a session reaches FAILED.
type AnalysisFailedEvent struct {
	BaseEvent
	Error string `json:"error"`
}

// NewAnalysisFailedEvent creates a new analysis failed event.
func NewAnalysisFailedEvent(sessionID, errDetail string) AnalysisFailedEvent {
	return AnalysisFailedEvent{
		BaseEvent: NewBaseEvent(TypeAnalysisFailed, sessionID),
		Error:     errDetail,
	}
}

// HeartbeatEvent is emitted periodically while a session is idle between
// external calls so a consumer can tell the stream is alive.
type HeartbeatEvent struct {
	BaseEvent
	Status string `json:"status"`
}

// NewHeartbeatEvent creates a new heartbeat event.
func NewHeartbeatEvent(sessionID, status string) HeartbeatEvent {
	return HeartbeatEvent{
		BaseEvent: NewBaseEvent(TypeHeartbeat, sessionID),
		Status:    status,
	}
}
