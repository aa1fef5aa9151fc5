package core

import "strings"

// Page is one page of extracted document text. Page numbers are 1-based.
type Page struct {
	Number int
	Text   string
}

// Document is the page-indexed plain text produced by ingestion.
type Document struct {
	Name  string
	Pages []Page
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// TextRange joins the text of pages first..last inclusive (1-based).
// Out-of-range bounds are clamped to the document.
func (d *Document) TextRange(first, last int) string {
	if first < 1 {
		first = 1
	}
	if last > len(d.Pages) {
		last = len(d.Pages)
	}
	if first > last {
		return ""
	}
	var b strings.Builder
	for i := first; i <= last; i++ {
		if i > first {
			b.WriteString("\n")
		}
		b.WriteString(d.Pages[i-1].Text)
	}
	return b.String()
}

// Validate checks document invariants.
func (d *Document) Validate() error {
	if len(d.Pages) == 0 {
		return ErrIngestion(CodeEmptyDocument, "document has no pages")
	}
	return nil
}
