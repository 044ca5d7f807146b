// Package pagination computes the page window and page count for the
// paginated list views. It is a pure helper with no storage awareness.
package pagination

import "errors"

// ErrInvalidPage is returned when the requested page is not a positive
// integer. Out-of-range (but positive) pages are clamped, never rejected.
var ErrInvalidPage = errors.New("page number must be a positive integer")

// Page describes one window over a record collection.
type Page struct {
	Offset      int
	Limit       int
	CurrentPage int
	TotalPages  int
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool {
	return p.CurrentPage > 1
}

// HasNext reports whether a further page exists.
func (p Page) HasNext() bool {
	return p.CurrentPage < p.TotalPages
}

// PrevPage returns the previous page number, clamped to 1.
func (p Page) PrevPage() int {
	if p.CurrentPage <= 1 {
		return 1
	}

	return p.CurrentPage - 1
}

// NextPage returns the next page number, clamped to the last page.
func (p Page) NextPage() int {
	if p.CurrentPage >= p.TotalPages {
		return p.TotalPages
	}

	return p.CurrentPage + 1
}

// Paginate derives the window for requestedPage over totalItems records.
// TotalPages is at least 1 even for an empty collection, and CurrentPage
// always lands inside [1, TotalPages]. pageSize must be positive; it comes
// from validated configuration, not from request input.
func Paginate(totalItems, pageSize, requestedPage int) (Page, error) {
	if requestedPage < 1 {
		return Page{}, ErrInvalidPage
	}

	if totalItems < 0 {
		totalItems = 0
	}

	totalPages := (totalItems + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	currentPage := requestedPage
	if currentPage > totalPages {
		currentPage = totalPages
	}

	return Page{
		Offset:      (currentPage - 1) * pageSize,
		Limit:       pageSize,
		CurrentPage: currentPage,
		TotalPages:  totalPages,
	}, nil
}
