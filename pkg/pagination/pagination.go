package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit    = 20
	MaxLimit        = 100
	DefaultPageSize = 10
)

// Params holds limit/offset paging for store-side list queries.
type Params struct {
	Limit  int
	Offset int
}

// FromContext reads limit/offset, or page/page_size when the client pages
// by number.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	if c.QueryParam("page") != "" {
		page, size := PageFromContext(c)
		return Params{Limit: size, Offset: (page - 1) * size}
	}

	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Params{Limit: limit, Offset: offset}
}

// PageFromContext reads 1-based page and page_size query parameters.
func PageFromContext(c echo.Context) (page, size int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	size, _ = strconv.Atoi(c.QueryParam("page_size"))
	return Normalize(page, size)
}

// Normalize clamps page to >= 1 and size to 1..MaxLimit.
func Normalize(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxLimit {
		size = MaxLimit
	}
	return page, size
}

// Response wraps a limit/offset list.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
}

func NewResponse(data interface{}, total, limit, offset int) *Response {
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}

// TotalPages returns the number of pages needed for total items.
func TotalPages(total, size int) int {
	if size <= 0 || total == 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Slice returns the items on the given 1-based page. Out-of-range pages
// yield an empty slice.
func Slice[T any](items []T, page, size int) []T {
	page, size = Normalize(page, size)
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
