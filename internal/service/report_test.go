package service

import (
	"testing"

	"github.com/docpanel-ai/docpanel/internal/core"
)

func TestCompileReport(t *testing.T) {
	qs := twoQuestionSet()
	acc := NewAccumulator(qs)
	_ = acc.MergeAll([]core.AnswerCandidate{
		{QuestionID: "q1", Text: "Revenue was 10M", Pages: []int{3}, Confidence: 0.8, WindowIndex: 0},
		{QuestionID: "q1", Text: "A different take", Pages: []int{9}, Confidence: 0.4, WindowIndex: 2},
	})

	report := CompileReport("sess-1", qs, acc.Snapshot(), false)

	if report.SessionID != "sess-1" || report.QuestionSet != "t" {
		t.Fatalf("unexpected header %+v", report)
	}
	if report.Partial {
		t.Fatalf("expected final report")
	}
	if report.Answered != 1 || report.Total != 2 {
		t.Fatalf("expected 1/2 answered, got %d/%d", report.Answered, report.Total)
	}
	if len(report.Sections) != 1 || len(report.Sections[0].Questions) != 2 {
		t.Fatalf("expected full question skeleton, got %+v", report.Sections)
	}

	q1 := report.Sections[0].Questions[0]
	if q1.Answer == nil || q1.Answer.Text != "Revenue was 10M" {
		t.Fatalf("expected primary answer, got %+v", q1.Answer)
	}
	if len(q1.Alternates) != 1 || q1.Alternates[0].Text != "A different take" {
		t.Fatalf("expected one alternate, got %+v", q1.Alternates)
	}

	// Unanswered questions appear with no answer rather than being dropped.
	q2 := report.Sections[0].Questions[1]
	if q2.Answer != nil || q2.ID != "q2" {
		t.Fatalf("expected unanswered skeleton entry, got %+v", q2)
	}
}

func TestCompileReport_PartialFlag(t *testing.T) {
	qs := twoQuestionSet()
	report := CompileReport("s", qs, core.AnswerSet{}, true)
	if !report.Partial {
		t.Fatalf("expected partial flag carried through")
	}
	if report.Answered != 0 || report.Total != 2 {
		t.Fatalf("unexpected counts %d/%d", report.Answered, report.Total)
	}
}

func TestCompileReport_SameShapePartialAndFinal(t *testing.T) {
	qs := twoQuestionSet()
	acc := NewAccumulator(qs)
	_ = acc.Merge(core.AnswerCandidate{QuestionID: "q2", Text: "answer", Confidence: 0.7})

	partial := CompileReport("s", qs, acc.Snapshot(), true)
	final := CompileReport("s", qs, acc.Snapshot(), false)

	if len(partial.Sections) != len(final.Sections) {
		t.Fatalf("partial and final reports differ in shape")
	}
	if partial.Answered != final.Answered {
		t.Fatalf("partial and final reports differ in counts")
	}
}
