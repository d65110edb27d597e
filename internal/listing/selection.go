package listing

import (
	"strconv"
	"strings"

	"skirental/internal/models"
)

type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
	SortNone SortDirection = "NONE"
)

// ParseSortDirection accepts asc/desc case-insensitively; "none" and "idle" mean unsorted.
// Anything else sorts ascending.
func ParseSortDirection(raw string) SortDirection {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "desc":
		return SortDesc
	case "none", "idle":
		return SortNone
	default:
		return SortAsc
	}
}

// FilterSelection is the requested search; ColumnKey is untrusted.
type FilterSelection struct {
	ColumnKey  string `json:"column"`
	SearchText string `json:"search"`
}

// SortSelection is the requested ordering; ColumnKey is untrusted.
type SortSelection struct {
	ColumnKey string        `json:"column"`
	Direction SortDirection `json:"direction"`
}

func ParseFilterSelection(column, search string) FilterSelection {
	return FilterSelection{
		ColumnKey:  strings.TrimSpace(column),
		SearchText: strings.TrimSpace(search),
	}
}

func ParseSortSelection(column, direction string) SortSelection {
	return SortSelection{
		ColumnKey: strings.TrimSpace(column),
		Direction: ParseSortDirection(direction),
	}
}

type PageRequest struct {
	PageNumber int `json:"page"`
	PageSize   int `json:"total"`
}

type PageDefaults struct {
	PageSize    int
	MaxPageSize int
}

// ParsePageRequest reads the page and total query values. Values that are not positive
// integers fall back to the defaults instead of failing the request.
func ParsePageRequest(rawPage, rawTotal string, d PageDefaults) PageRequest {
	if d.PageSize < 1 {
		d.PageSize = models.DefaultPageSize
	}
	if d.MaxPageSize < 1 {
		d.MaxPageSize = models.MaxPageSize
	}

	req := PageRequest{PageNumber: models.DefaultPageNumber, PageSize: d.PageSize}
	if n, err := strconv.Atoi(strings.TrimSpace(rawPage)); err == nil && n > 0 {
		req.PageNumber = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(rawTotal)); err == nil && n > 0 {
		req.PageSize = n
	}
	if req.PageSize > d.MaxPageSize {
		req.PageSize = d.MaxPageSize
	}
	return req
}
