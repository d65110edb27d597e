package listing

import (
	"fmt"

	"skirental/internal/models"
)

type PageResult struct {
	TotalRecords int64 `json:"total_records"`
	TotalPages   int   `json:"total_pages"`
	CurrentPage  int   `json:"current_page"`
	PageSize     int   `json:"page_size"`
	IsOutOfRange bool  `json:"is_out_of_range"`
}

// PageOutOfRangeError is returned when a page outside 1..TotalPages is requested.
type PageOutOfRangeError struct {
	Requested  int
	TotalPages int
}

func (e *PageOutOfRangeError) Error() string {
	return fmt.Sprintf("page %d is out of range (1..%d)", e.Requested, e.TotalPages)
}

// Paginate computes page bounds. There is always at least one page, so an empty
// listing still renders page 1.
func Paginate(totalRecords int64, pageNumber, pageSize int) PageResult {
	if pageSize < 1 {
		pageSize = models.DefaultPageSize
	}
	if totalRecords < 0 {
		totalRecords = 0
	}

	totalPages := int((totalRecords + int64(pageSize) - 1) / int64(pageSize))
	if totalPages < 1 {
		totalPages = 1
	}

	return PageResult{
		TotalRecords: totalRecords,
		TotalPages:   totalPages,
		CurrentPage:  pageNumber,
		PageSize:     pageSize,
		IsOutOfRange: pageNumber < 1 || pageNumber > totalPages,
	}
}

// Offset is the first record of the page. It refuses to compute one for an
// out-of-range page.
func (p PageResult) Offset() (int, error) {
	if p.IsOutOfRange {
		return 0, &PageOutOfRangeError{Requested: p.CurrentPage, TotalPages: p.TotalPages}
	}
	return (p.CurrentPage - 1) * p.PageSize, nil
}

func (p PageResult) HasPrevious() bool {
	return !p.IsOutOfRange && p.CurrentPage > 1
}

func (p PageResult) HasNext() bool {
	return !p.IsOutOfRange && p.CurrentPage < p.TotalPages
}
