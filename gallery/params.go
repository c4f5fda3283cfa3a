package gallery

import (
	"net/url"
	"strconv"
	"strings"
)

// Query carries the browsing parameters of a gallery request.
type Query struct {
	Category   string
	ExternalID string
	Page       int
	PerPage    int
	Columns    GridColumns
	Image      string
}

// ParseImageParam converts a 1-based deep link into a 0-based index. Anything
// non-numeric or outside [1, length] is treated as absent.
func ParseImageParam(raw string, length int) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > length {
		return 0, false
	}
	return n - 1, true
}

// ParseQuery reads browsing parameters, replacing malformed values with
// defaults.
func ParseQuery(values url.Values) Query {
	q := Query{
		Category:   values.Get("category"),
		ExternalID: values.Get("folder"),
		Page:       1,
		PerPage:    DefaultPageSize,
		Columns:    ParseGridColumns(values.Get("columns")),
		Image:      values.Get(ImageParam),
	}
	if n, err := strconv.Atoi(values.Get("page")); err == nil && n >= 1 {
		q.Page = n
	}
	if n, err := strconv.Atoi(values.Get("perPage")); err == nil && n >= 1 && n <= MaxPageSize {
		q.PerPage = n
	}
	return q
}
