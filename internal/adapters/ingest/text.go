// Package ingest loads documents into page-indexed plain text.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docpanel-ai/docpanel/internal/core"
)

// DefaultLinesPerPage is the synthetic page size for text without form feeds.
const DefaultLinesPerPage = 40

// TextFileSource implements core.DocumentSource for plain text files. Pages
// are delimited by form-feed characters; text without any form feed is cut
// into synthetic pages of LinesPerPage lines so windowing still has a page
// axis to work with.
type TextFileSource struct {
	LinesPerPage int
}

// NewTextFileSource creates a text file source with the default page size.
func NewTextFileSource() *TextFileSource {
	return &TextFileSource{LinesPerPage: DefaultLinesPerPage}
}

// Load reads the file at ref and splits it into pages.
func (s *TextFileSource) Load(ctx context.Context, ref string) (*core.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, core.ErrIngestion("READ_FAILED", fmt.Sprintf("reading %s", ref)).WithCause(err)
	}

	doc := &core.Document{
		Name:  filepath.Base(ref),
		Pages: splitPages(string(data), s.linesPerPage()),
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *TextFileSource) linesPerPage() int {
	if s.LinesPerPage > 0 {
		return s.LinesPerPage
	}
	return DefaultLinesPerPage
}

func splitPages(text string, linesPerPage int) []core.Page {
	var chunks []string
	if strings.ContainsRune(text, '\f') {
		chunks = strings.Split(text, "\f")
	} else {
		chunks = splitByLines(text, linesPerPage)
	}

	pages := make([]core.Page, 0, len(chunks))
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		pages = append(pages, core.Page{
			Number: len(pages) + 1,
			Text:   chunk,
		})
	}
	return pages
}

func splitByLines(text string, linesPerPage int) []string {
	lines := strings.Split(text, "\n")
	var chunks []string
	for start := 0; start < len(lines); start += linesPerPage {
		end := start + linesPerPage
		if end > len(lines) {
			end = len(lines)
		}
		chunks = append(chunks, strings.Join(lines[start:end], "\n"))
	}
	return chunks
}
