package storage

import (
	"strings"
	"time"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type TaskFilter struct {
	UserID    string
	Completed *bool

	// Lower bounds are inclusive, upper bounds exclusive.
	CreatedFrom  *time.Time
	CreatedUntil *time.Time
	UpdatedFrom  *time.Time
	UpdatedUntil *time.Time

	// Every term must be found in the title or the description.
	SearchTerms []string
	Ordering    []OrderField

	Limit  int
	Offset int
}

type OrderField struct {
	Column string
	Desc   bool
}

var orderableColumns = map[string]struct{}{
	"created_at": {},
	"updated_at": {},
	"title":      {},
	"id":         {},
}

var defaultOrdering = []OrderField{{Column: "created_at", Desc: true}}

// ParseOrdering turns "title,-created_at" into order fields. Unknown
// columns are dropped and an empty result falls back to newest first.
// The id column is appended as a tie-breaker unless already present.
func ParseOrdering(raw string) []OrderField {
	var fields []OrderField
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		column := strings.TrimPrefix(part, "-")
		if _, ok := orderableColumns[column]; !ok || seen[column] {
			continue
		}
		seen[column] = true
		fields = append(fields, OrderField{Column: column, Desc: desc})
	}

	if len(fields) == 0 {
		fields = append(fields, defaultOrdering...)
	}
	if !seen["id"] {
		fields = append(fields, OrderField{Column: "id", Desc: fields[0].Desc})
	}
	return fields
}

// SplitSearchTerms splits a search string on whitespace and commas.
func SplitSearchTerms(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

// EscapeLike escapes the LIKE wildcards of s using backslash.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func ClampPageSize(size int) int {
	switch {
	case size <= 0:
		return DefaultPageSize
	case size > MaxPageSize:
		return MaxPageSize
	default:
		return size
	}
}
