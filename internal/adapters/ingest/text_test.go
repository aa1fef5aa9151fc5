package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docpanel-ai/docpanel/internal/core"
)

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTextFileSourceFormFeeds(t *testing.T) {
	path := writeDoc(t, "report.txt", "first page\fsecond page\fthird page")

	doc, err := NewTextFileSource().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Name != "report.txt" {
		t.Errorf("name = %q, want report.txt", doc.Name)
	}
	if len(doc.Pages) != 3 {
		t.Fatalf("pages = %d, want 3", len(doc.Pages))
	}
	for i, p := range doc.Pages {
		if p.Number != i+1 {
			t.Errorf("page %d numbered %d", i, p.Number)
		}
	}
	if doc.Pages[1].Text != "second page" {
		t.Errorf("page 2 text = %q", doc.Pages[1].Text)
	}
}

func TestTextFileSourceBlankPagesSkipped(t *testing.T) {
	path := writeDoc(t, "gaps.txt", "one\f   \n\f\ftwo")

	doc, err := NewTextFileSource().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("pages = %d, want 2", len(doc.Pages))
	}
	if doc.Pages[1].Number != 2 {
		t.Errorf("blank pages must not leave numbering holes, got %d", doc.Pages[1].Number)
	}
}

func TestTextFileSourceLineSplitting(t *testing.T) {
	lines := make([]string, 25)
	for i := range lines {
		lines[i] = "line"
	}
	path := writeDoc(t, "plain.txt", strings.Join(lines, "\n"))

	src := &TextFileSource{LinesPerPage: 10}
	doc, err := src.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Pages) != 3 {
		t.Fatalf("pages = %d, want 3 with 10 lines per page", len(doc.Pages))
	}
	if n := strings.Count(doc.Pages[2].Text, "line"); n != 5 {
		t.Errorf("last page has %d lines, want 5", n)
	}
}

func TestTextFileSourceMissingFile(t *testing.T) {
	_, err := NewTextFileSource().Load(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	var de *core.DomainError
	if !errors.As(err, &de) || de.Category != core.ErrCatIngestion {
		t.Fatalf("got %v, want ingestion error", err)
	}
}

func TestTextFileSourceEmptyFile(t *testing.T) {
	path := writeDoc(t, "empty.txt", "   \n  ")
	if _, err := NewTextFileSource().Load(context.Background(), path); err == nil {
		t.Fatal("expected error for document with no pages")
	}
}

func TestTextFileSourceCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewTextFileSource().Load(ctx, "anything.txt"); err == nil {
		t.Fatal("expected context error")
	}
}
