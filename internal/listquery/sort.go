package listquery

import (
	"fmt"
	"strings"
)

// SortOrder is the direction of a column sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ErrInvalidSortOrder is returned for values other than asc and desc.
var ErrInvalidSortOrder = fmt.Errorf("listquery: sort order must be %q or %q", SortAsc, SortDesc)

// ParseSortOrder normalises a sort order value.
func ParseSortOrder(raw string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(raw))); o {
	case SortAsc, SortDesc:
		return o, nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidSortOrder, raw)
	}
}

// Sort is the column sort of a list view. An empty Field leaves ordering to
// the server.
type Sort struct {
	Field string
	Order SortOrder
}

// Toggle returns the sort after a click on field: the active column flips
// direction, any other column starts ascending.
func (s Sort) Toggle(field string) Sort {
	if s.Field == field && s.Order == SortAsc {
		return Sort{Field: field, Order: SortDesc}
	}
	return Sort{Field: field, Order: SortAsc}
}

// Active reports whether an explicit sort is selected.
func (s Sort) Active() bool {
	return s.Field != ""
}
