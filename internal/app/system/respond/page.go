package respond

import "github.com/dalemusser/confhub/internal/app/system/paging"

// PageMeta describes one page of a paginated list.
type PageMeta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// Page is the pagination envelope carried in Envelope.Data.
type Page[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}

// NewPage builds a Page. Items is never serialized as null.
func NewPage[T any](items []T, total int64, page, limit int) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Data: items,
		Meta: PageMeta{
			Total: total,
			Page:  page,
			Limit: limit,
			Pages: paging.Pages(total, limit),
		},
	}
}
