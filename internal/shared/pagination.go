package shared

import (
	"math"
	"strconv"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
	// MaxPage keeps (page-1)*perPage within int for any accepted perPage.
	MaxPage = math.MaxInt / maxPerPage
)

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	page, perPage = normalizePage(page, perPage)
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// PageParams parses page and per_page query values, falling back to defaults.
func PageParams(rawPage, rawPerPage string) (page, perPage int) {
	page, _ = strconv.Atoi(rawPage)
	perPage, _ = strconv.Atoi(rawPerPage)
	return normalizePage(page, perPage)
}

// Offset returns the row offset for page.
func Offset(page, perPage int) int {
	page, perPage = normalizePage(page, perPage)
	return (page - 1) * perPage
}

func normalizePage(page, perPage int) (int, int) {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	if page <= 0 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	return page, perPage
}
