// Package pagination computes the page links shown by paginated lists: the
// first and last pages, a window around the current one and ellipses for the
// gaps in between.
package pagination

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PageMarker is a page number or Ellipsis.
type PageMarker int

// Ellipsis stands for two or more hidden pages.
const Ellipsis PageMarker = -1

const ellipsisText = "..."

// windowSize is the max number of interior pages shown around the current one.
const windowSize = 5

func IsEllipsis(m PageMarker) bool { return m == Ellipsis }

// MarshalJSON encodes ellipses as "..." and pages as numbers.
func (m PageMarker) MarshalJSON() ([]byte, error) {
	if IsEllipsis(m) {
		return []byte(`"` + ellipsisText + `"`), nil
	}
	return strconv.AppendInt(nil, int64(m), 10), nil
}

// Sequence returns the page markers to render for currentPage out of
// pagesCount pages. Lists with one page or less need no pagination and get
// an empty sequence. currentPage is clamped to [1, pagesCount].
func Sequence(currentPage, pagesCount int) []PageMarker {
	if pagesCount <= 1 {
		return []PageMarker{}
	}
	currentPage = min(max(currentPage, 1), pagesCount)

	// Interior pages are 2..pagesCount-1.
	first, last := 2, pagesCount-1
	start, end := first, last
	if last-first+1 > windowSize {
		start = currentPage - windowSize/2
		end = currentPage + windowSize/2
		if start < first {
			end += first - start
			start = first
		}
		if end > last {
			start -= end - last
			end = last
		}
	}

	pages := make([]PageMarker, 0, windowSize+4)
	pages = append(pages, 1)
	pages = appendGap(pages, first, start)
	for p := start; p <= end; p++ {
		pages = append(pages, PageMarker(p))
	}
	pages = appendGap(pages, end+1, last+1)
	return append(pages, PageMarker(pagesCount))
}

// appendGap appends the hidden pages in [from, to). A single hidden page is
// shown as itself rather than as an ellipsis.
func appendGap(pages []PageMarker, from, to int) []PageMarker {
	switch hidden := to - from; {
	case hidden == 1:
		return append(pages, PageMarker(from))
	case hidden >= 2:
		return append(pages, Ellipsis)
	}
	return pages
}

// KeyFor returns a key that is unique within a sequence: the page number, or
// a key built from the position for ellipses.
func KeyFor(m PageMarker, index int) string {
	if IsEllipsis(m) {
		return ellipsisText + "_" + strconv.Itoa(index)
	}
	return strconv.Itoa(int(m))
}

var printer = message.NewPrinter(language.English)

// Prettify renders a marker for display, with thousands separators.
func Prettify(m PageMarker) string {
	if IsEllipsis(m) {
		return ellipsisText
	}
	return printer.Sprintf("%d", int(m))
}

// PagesCount is the number of pages needed for total items.
func PagesCount(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// Paginator describes a page of a list, ready to be rendered.
type Paginator struct {
	CurrentPage  int          `json:"currentPage"`
	PagesCount   int          `json:"pagesCount"`
	ItemsPerPage int          `json:"itemsPerPage"`
	TotalItems   int          `json:"totalItems"`
	Pages        []PageMarker `json:"pages"`
}

// String renders the markers for a terminal, with the current page in
// brackets, e.g. "1 ... 4 [5] 6 ... 1,200".
func (p Paginator) String() string {
	parts := make([]string, 0, len(p.Pages))
	for _, m := range p.Pages {
		s := Prettify(m)
		if int(m) == p.CurrentPage {
			s = "[" + s + "]"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

func NewPaginator(currentPage, perPage, total int) Paginator {
	count := PagesCount(total, perPage)
	return Paginator{
		CurrentPage:  currentPage,
		PagesCount:   count,
		ItemsPerPage: perPage,
		TotalItems:   total,
		Pages:        Sequence(currentPage, count),
	}
}
