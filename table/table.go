// Package table implements the search, sort and pagination behind the data
// table widget.
package table

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// DefaultPerPage matches the widget's page size.
const DefaultPerPage = 5

// MaxPerPage caps the page size a caller may ask for.
const MaxPerPage = 100

// Query selects a page of rows.
type Query struct {
	Search  string
	SortKey string
	Desc    bool
	Page    int
	PerPage int
}

// Page is one page of a filtered, sorted result.
type Page[T any] struct {
	Rows       []T `json:"rows"`
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Fields exposes a row's columns by key.
type Fields[T any] func(T) map[string]any

// Apply keeps the rows where any column contains q.Search (case-insensitive),
// sorts them by q.SortKey when set, and cuts out the requested page. Rows is
// empty when the page lies past the end.
func Apply[T any](rows []T, q Query, fields Fields[T]) Page[T] {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	q.PerPage = min(q.PerPage, MaxPerPage)

	needle := strings.ToLower(strings.TrimSpace(q.Search))
	filtered := make([]T, 0, len(rows))
	for _, row := range rows {
		if needle == "" || matches(fields(row), needle) {
			filtered = append(filtered, row)
		}
	}

	if q.SortKey != "" {
		slices.SortStableFunc(filtered, func(a, b T) int {
			c := compare(fields(a)[q.SortKey], fields(b)[q.SortKey])
			if q.Desc {
				return -c
			}
			return c
		})
	}

	total := len(filtered)
	out := Page[T]{
		Rows:       []T{},
		Page:       q.Page,
		PerPage:    q.PerPage,
		Total:      total,
		TotalPages: (total + q.PerPage - 1) / q.PerPage,
	}
	// Compared before multiplying so a huge page number cannot overflow.
	if q.Page-1 < out.TotalPages {
		start := (q.Page - 1) * q.PerPage
		out.Rows = filtered[start:min(start+q.PerPage, total)]
	}
	return out
}

func matches(cols map[string]any, needle string) bool {
	for _, v := range cols {
		if strings.Contains(strings.ToLower(fmt.Sprint(v)), needle) {
			return true
		}
	}
	return false
}

func compare(a, b any) int {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return cmp.Compare(x, y)
		}
	}
	if x, ok := a.(time.Time); ok {
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
