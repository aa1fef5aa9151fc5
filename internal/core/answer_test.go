package core

import (
	"reflect"
	"testing"
)

func TestAnswerSet_Primary(t *testing.T) {
	as := AnswerSet{
		"q1": {
			{QuestionID: "q1", Text: "low", Confidence: 0.4, MergeCount: 1, WindowIndex: 0},
			{QuestionID: "q1", Text: "high", Confidence: 0.9, MergeCount: 1, WindowIndex: 3},
			{QuestionID: "q1", Text: "mid", Confidence: 0.7, MergeCount: 5, WindowIndex: 1},
		},
	}

	primary, ok := as.Primary("q1")
	if !ok || primary.Text != "high" {
		t.Fatalf("expected highest confidence to win, got %+v", primary)
	}
	if _, ok := as.Primary("missing"); ok {
		t.Fatalf("expected no primary for unknown question")
	}
}

func TestAnswerSet_PrimaryTieBreaks(t *testing.T) {
	// Same confidence: higher merge count wins.
	as := AnswerSet{
		"q1": {
			{Text: "once", Confidence: 0.8, MergeCount: 1, WindowIndex: 0},
			{Text: "thrice", Confidence: 0.8, MergeCount: 3, WindowIndex: 2},
		},
	}
	primary, _ := as.Primary("q1")
	if primary.Text != "thrice" {
		t.Fatalf("expected merge count tie-break, got %+v", primary)
	}

	// Same confidence and merge count: earlier window wins.
	as["q1"] = []StoredAnswer{
		{Text: "late", Confidence: 0.8, MergeCount: 2, WindowIndex: 4},
		{Text: "early", Confidence: 0.8, MergeCount: 2, WindowIndex: 1},
	}
	primary, _ = as.Primary("q1")
	if primary.Text != "early" {
		t.Fatalf("expected window tie-break, got %+v", primary)
	}
}

func TestAnswerSet_Alternates(t *testing.T) {
	as := AnswerSet{
		"q1": {
			{Text: "c", Confidence: 0.3},
			{Text: "a", Confidence: 0.9},
			{Text: "b", Confidence: 0.6},
		},
	}

	alts := as.Alternates("q1")
	if len(alts) != 2 || alts[0].Text != "b" || alts[1].Text != "c" {
		t.Fatalf("unexpected alternates %+v", alts)
	}

	as["solo"] = []StoredAnswer{{Text: "only"}}
	if alts := as.Alternates("solo"); alts != nil {
		t.Fatalf("expected no alternates for single candidate, got %+v", alts)
	}
}

func TestAnswerSet_Answered(t *testing.T) {
	as := AnswerSet{
		"q1": {{Text: "weak", Confidence: 0.3}},
		"q2": {{Text: "strong", Confidence: 0.8}},
	}

	if as.Answered("q1", 0.5) {
		t.Fatalf("expected low-confidence answer to count as gap")
	}
	if !as.Answered("q2", 0.5) {
		t.Fatalf("expected high-confidence answer to count")
	}
	if as.Answered("missing", 0.5) {
		t.Fatalf("expected unknown question to count as gap")
	}
}

func TestUnionPages(t *testing.T) {
	tests := []struct {
		name string
		a, b []int
		want []int
	}{
		{"disjoint", []int{1, 2}, []int{5, 6}, []int{1, 2, 5, 6}},
		{"overlapping", []int{1, 3, 5}, []int{3, 4, 5}, []int{1, 3, 4, 5}},
		{"one empty", nil, []int{2, 1}, []int{1, 2}},
		{"both empty", nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnionPages(tt.a, tt.b)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("UnionPages(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
