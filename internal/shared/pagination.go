package shared

import "slices"

// PerPageOptions are the page sizes offered by listings.
var PerPageOptions = []int{5, 10, 20, 50}

// DefaultPerPage applies when the requested size is not offered.
const DefaultPerPage = 10

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NormalizePage clamps page to >= 1 and perPage to one of PerPageOptions.
func NormalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if !slices.Contains(PerPageOptions, perPage) {
		perPage = DefaultPerPage
	}
	return page, perPage
}

// NewPagination computes page metadata for total rows.
func NewPagination(page, perPage, total int) Pagination {
	page, perPage = NormalizePage(page, perPage)
	pages := (total + perPage - 1) / perPage
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: pages}
}

// Offset is the zero-based row offset of the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a following page exists.
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }

// PrevPage returns the previous page number.
func (p Pagination) PrevPage() int { return p.Page - 1 }

// NextPage returns the following page number.
func (p Pagination) NextPage() int { return p.Page + 1 }

// PerPageOptions exposes the offered sizes to templates.
func (p Pagination) PerPageOptions() []int { return PerPageOptions }
