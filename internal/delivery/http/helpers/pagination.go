package helpers

import (
	"net/http"
	"strconv"
)

// Pagination query parameter defaults and limits.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PaginationParams holds the parsed pagination query parameters.
type PaginationParams struct {
	Page     int
	PageSize int
}

// Limit returns the page size as a SQL LIMIT value.
func (p PaginationParams) Limit() int { return p.PageSize }

// Offset returns the SQL OFFSET for the current page.
func (p PaginationParams) Offset() int { return (p.Page - 1) * p.PageSize }

// ParsePagination reads page and page_size from the request query string,
// clamps them to valid ranges, and returns PaginationParams.
// Invalid or missing values fall back to defaults.
func ParsePagination(r *http.Request) PaginationParams {
	page := DefaultPage
	if s := r.URL.Query().Get("page"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 1 {
			page = v
		}
	}
	pageSize := DefaultPageSize
	if s := r.URL.Query().Get("page_size"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 1 {
			pageSize = v
			if pageSize > MaxPageSize {
				pageSize = MaxPageSize
			}
		}
	}
	return PaginationParams{Page: page, PageSize: pageSize}
}

// PaginationMeta is the pagination metadata included in paginated list responses.
// swagger:model PaginationMeta
type PaginationMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Count    int `json:"count"`
}

// NewPaginationMeta builds PaginationMeta from the current page, page size, and
// the number of items returned in this page.
func NewPaginationMeta(p PaginationParams, count int) PaginationMeta {
	return PaginationMeta{Page: p.Page, PageSize: p.PageSize, Count: count}
}
