package core

import (
	"errors"
	"testing"
)

func TestDocumentValidate(t *testing.T) {
	doc := &Document{Name: "report.txt", Pages: []Page{{Number: 1, Text: "hello"}}}
	if err := doc.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	empty := &Document{Name: "empty.txt"}
	err := empty.Validate()
	if err == nil {
		t.Fatal("expected error for document without pages")
	}
	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatalf("got %T, want *DomainError", err)
	}
	if de.Category != ErrCatIngestion || de.Code != CodeEmptyDocument {
		t.Errorf("got %s/%s, want %s/%s", de.Category, de.Code, ErrCatIngestion, CodeEmptyDocument)
	}
}
