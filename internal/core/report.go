package core

import "time"

// Report is the structured result compiled from an accumulator snapshot plus
// the question configuration. The same shape is served for partial and final
// results.
type Report struct {
	SessionID   SessionID       `json:"session_id"`
	QuestionSet string          `json:"question_set"`
	Partial     bool            `json:"partial"`
	GeneratedAt time.Time       `json:"generated_at"`
	Sections    []ReportSection `json:"sections"`
	Answered    int             `json:"answered"`
	Total       int             `json:"total"`
}

// ReportSection groups compiled answers under the section heading from the
// question configuration.
type ReportSection struct {
	Name      string           `json:"name"`
	Questions []ReportQuestion `json:"questions"`
}

// ReportQuestion is the compiled result for one question.
type ReportQuestion struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	Answer     *ReportAnswer  `json:"answer,omitempty"`
	Alternates []ReportAnswer `json:"alternates,omitempty"`
}

// ReportAnswer carries one candidate's answer fields.
type ReportAnswer struct {
	Text        string  `json:"text"`
	Pages       []int   `json:"pages,omitempty"`
	Confidence  float64 `json:"confidence"`
	Footnote    string  `json:"footnote,omitempty"`
	MergeCount  int     `json:"merge_count"`
	WindowIndex int     `json:"window_index"`
}

// SessionRecord is the persisted form of a terminal session: its metadata
// plus the compiled report at the moment it finished.
type SessionRecord struct {
	View   SessionView `json:"view"`
	Report *Report     `json:"report,omitempty"`
}
