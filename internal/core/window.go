package core

import "fmt"

// Window is a contiguous, possibly overlapping slice of document text
// processed as one unit. Windows are immutable once produced by the
// sequencer; the dispatcher and accumulator only read them.
type Window struct {
	Index     int    // 0-based position in document order
	FirstPage int    // 1-based, inclusive
	LastPage  int    // 1-based, inclusive
	Text      string // joined page text
	Tokens    int    // estimated token count of Text
}

// PageRange returns a human-readable page range like "9-18".
func (w Window) PageRange() string {
	return fmt.Sprintf("%d-%d", w.FirstPage, w.LastPage)
}

// Pages returns the page numbers covered by the window.
func (w Window) Pages() []int {
	if w.LastPage < w.FirstPage {
		return nil
	}
	pages := make([]int, 0, w.LastPage-w.FirstPage+1)
	for p := w.FirstPage; p <= w.LastPage; p++ {
		pages = append(pages, p)
	}
	return pages
}
