// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// DefaultPageSize is used when the caller does not ask for a page size.
const DefaultPageSize = 10

// MaxPageSize bounds response size regardless of caller input.
const MaxPageSize = 100

// Clamp normalizes page and pageSize: page >= 1 and
// 1 <= pageSize <= MaxPageSize. A non-positive pageSize becomes
// DefaultPageSize.
func Clamp(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// Offset returns the number of documents to skip for a (clamped) page.
func Offset(page, pageSize int) int64 {
	page, pageSize = Clamp(page, pageSize)
	return int64(page-1) * int64(pageSize)
}

// Pages returns ceil(total/limit). A zero total yields zero pages.
func Pages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// ParseRequest reads the "page" and "limit" query parameters and clamps
// them. Missing or non-numeric values fall back to the defaults.
func ParseRequest(r *http.Request) (page, pageSize int) {
	page = atoiOr(query.Get(r, "page"), 1)
	pageSize = atoiOr(query.Get(r, "limit"), DefaultPageSize)
	return Clamp(page, pageSize)
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
