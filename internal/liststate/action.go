package liststate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/odyssey-erp/memberdash/internal/listquery"
)

var (
	// ErrPageOutOfRange is returned when navigating past the last known page.
	ErrPageOutOfRange = errors.New("liststate: page out of range")
	// ErrEmptySortField is returned when toggling sort without a column.
	ErrEmptySortField = errors.New("liststate: sort field required")
	// ErrUnknownAction is returned for unrecognised action kinds.
	ErrUnknownAction = errors.New("liststate: unknown action")
)

// ActionKind names a state transition.
type ActionKind int

const (
	ActionMount ActionKind = iota
	ActionSearchChanged
	ActionStatusChanged
	ActionSortToggled
	ActionPageChanged
	ActionLimitChanged
	ActionRefresh
)

func (k ActionKind) String() string {
	switch k {
	case ActionMount:
		return "mount"
	case ActionSearchChanged:
		return "search"
	case ActionStatusChanged:
		return "status"
	case ActionSortToggled:
		return "sort"
	case ActionPageChanged:
		return "page"
	case ActionLimitChanged:
		return "limit"
	case ActionRefresh:
		return "refresh"
	default:
		return fmt.Sprintf("action(%d)", int(k))
	}
}

// Action is a named mutation request.
type Action struct {
	Kind   ActionKind
	Search string
	Status listquery.Status
	Field  string
	Page   int
	Limit  int
}

// Mount is dispatched once when the view is created.
func Mount() Action { return Action{Kind: ActionMount} }

// SearchChanged records new free text.
func SearchChanged(search string) Action { return Action{Kind: ActionSearchChanged, Search: search} }

// StatusChanged records a new status filter.
func StatusChanged(status listquery.Status) Action {
	return Action{Kind: ActionStatusChanged, Status: status}
}

// SortToggled records a click on a sortable column.
func SortToggled(field string) Action { return Action{Kind: ActionSortToggled, Field: field} }

// PageChanged navigates to page.
func PageChanged(page int) Action { return Action{Kind: ActionPageChanged, Page: page} }

// LimitChanged switches the page size.
func LimitChanged(limit int) Action { return Action{Kind: ActionLimitChanged, Limit: limit} }

// Refresh re-fetches the current state.
func Refresh() Action { return Action{Kind: ActionRefresh} }

type effect int

const (
	effectNone effect = iota
	effectFetchNow
	effectFetchDebounced
)

// reduce applies a to s. Filter and sort changes are debounced; mount,
// navigation and refresh fetch immediately.
func reduce(s State, a Action) (State, effect, error) {
	switch a.Kind {
	case ActionMount, ActionRefresh:
		return s, effectFetchNow, nil

	case ActionSearchChanged:
		if a.Search == s.Filter.Search {
			return s, effectNone, nil
		}
		s.Filter.Search = a.Search
		return s, effectFetchDebounced, nil

	case ActionStatusChanged:
		status := a.Status
		if status == "" {
			status = listquery.StatusAll
		}
		if _, err := listquery.ParseStatus(string(status)); err != nil {
			return s, effectNone, err
		}
		if status == s.Filter.Status {
			return s, effectNone, nil
		}
		s.Filter.Status = status
		return s, effectFetchDebounced, nil

	case ActionSortToggled:
		field := strings.TrimSpace(a.Field)
		if field == "" {
			return s, effectNone, ErrEmptySortField
		}
		s.Sort = s.Sort.Toggle(field)
		return s, effectFetchDebounced, nil

	case ActionPageChanged:
		if a.Page < 1 {
			return s, effectNone, listquery.ErrInvalidPage
		}
		if s.Pagination.TotalPages > 0 && a.Page > s.Pagination.TotalPages {
			return s, effectNone, fmt.Errorf("%w: %d > %d", ErrPageOutOfRange, a.Page, s.Pagination.TotalPages)
		}
		s.Pagination.Page = a.Page
		return s, effectFetchNow, nil

	case ActionLimitChanged:
		if !listquery.ValidLimit(a.Limit) {
			return s, effectNone, fmt.Errorf("%w: %d", listquery.ErrInvalidLimit, a.Limit)
		}
		s.Pagination.Limit = a.Limit
		s.Pagination.Page = 1
		return s, effectFetchNow, nil
	}
	return s, effectNone, fmt.Errorf("%w: %s", ErrUnknownAction, a.Kind)
}
