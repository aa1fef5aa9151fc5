package service

import (
	"time"

	"github.com/docpanel-ai/docpanel/internal/core"
)

// CompileReport is the output compiler: a pure transform from an accumulator
// snapshot plus the question configuration into the structured result tree.
// Partial and final results flow through this one code path so their shapes
// never drift apart.
func CompileReport(sessionID core.SessionID, qs *core.QuestionSet, snapshot core.AnswerSet, partial bool) *core.Report {
	report := &core.Report{
		SessionID:   sessionID,
		QuestionSet: qs.Name,
		Partial:     partial,
		GeneratedAt: time.Now(),
		Total:       qs.Len(),
	}

	for _, section := range qs.Sections {
		rs := core.ReportSection{Name: section.Name}
		for _, q := range section.Questions {
			rq := core.ReportQuestion{
				ID:   q.ID,
				Text: q.Text,
			}
			if primary, ok := snapshot.Primary(q.ID); ok {
				rq.Answer = reportAnswer(primary)
				report.Answered++
				for _, alt := range snapshot.Alternates(q.ID) {
					rq.Alternates = append(rq.Alternates, *reportAnswer(alt))
				}
			}
			rs.Questions = append(rs.Questions, rq)
		}
		report.Sections = append(report.Sections, rs)
	}

	return report
}

func reportAnswer(a core.StoredAnswer) *core.ReportAnswer {
	pages := make([]int, len(a.Pages))
	copy(pages, a.Pages)
	return &core.ReportAnswer{
		Text:        a.Text,
		Pages:       pages,
		Confidence:  a.Confidence,
		Footnote:    a.Footnote,
		MergeCount:  a.MergeCount,
		WindowIndex: a.WindowIndex,
	}
}
