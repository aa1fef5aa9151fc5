package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/docpanel-ai/docpanel/internal/core"
)

const validQuestionsYAML = `name: due-diligence
sections:
  - name: Corporate
    questions:
      - id: corp-01
        text: What is the legal name of the company?
        weight: 0.8
      - id: corp-02
        text: In which jurisdiction is the company incorporated?
  - name: Financial
    questions:
      - id: fin-01
        text: What was total revenue for the last fiscal year?
        weight: 1
`

func TestParseQuestionSet(t *testing.T) {
	qs, err := ParseQuestionSet([]byte(validQuestionsYAML))
	if err != nil {
		t.Fatalf("ParseQuestionSet: %v", err)
	}
	if qs.Name != "due-diligence" {
		t.Errorf("name = %q, want due-diligence", qs.Name)
	}
	if qs.Len() != 3 {
		t.Errorf("Len() = %d, want 3", qs.Len())
	}
	q, ok := qs.ByID("fin-01")
	if !ok {
		t.Fatal("ByID(fin-01) not found")
	}
	if q.Section != "Financial" {
		t.Errorf("section = %q, want Financial", q.Section)
	}
}

func TestParseQuestionSetErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed yaml", "name: [unclosed"},
		{"missing name", "sections:\n  - name: A\n    questions:\n      - id: q1\n        text: t\n"},
		{"empty sections", "name: x\nsections: []\n"},
		{"question without id", "name: x\nsections:\n  - name: A\n    questions:\n      - text: t\n"},
		{"question without text", "name: x\nsections:\n  - name: A\n    questions:\n      - id: q1\n"},
		{"weight out of range", "name: x\nsections:\n  - name: A\n    questions:\n      - id: q1\n        text: t\n        weight: 1.5\n"},
		{"duplicate ids", "name: x\nsections:\n  - name: A\n    questions:\n      - id: q1\n        text: t\n  - name: B\n    questions:\n      - id: q1\n        text: u\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuestionSet([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var de *core.DomainError
			if !errors.As(err, &de) {
				t.Fatalf("error type = %T, want *core.DomainError", err)
			}
			if de.Code != core.CodeInvalidQuestionSet {
				t.Errorf("code = %q, want %q", de.Code, core.CodeInvalidQuestionSet)
			}
		})
	}
}

func TestLoadQuestionSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "questions.yaml")
	if err := os.WriteFile(path, []byte(validQuestionsYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	qs, err := LoadQuestionSet(path)
	if err != nil {
		t.Fatalf("LoadQuestionSet: %v", err)
	}
	if qs.Len() != 3 {
		t.Errorf("Len() = %d, want 3", qs.Len())
	}

	if _, err := LoadQuestionSet(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
