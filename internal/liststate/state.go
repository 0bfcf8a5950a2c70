package liststate

import (
	"errors"

	"github.com/odyssey-erp/memberdash/internal/collection"
	"github.com/odyssey-erp/memberdash/internal/listquery"
)

// Phase is the controller's position in the Idle -> Loading -> Success|Failed
// cycle.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseFailed  Phase = "failed"
)

// ErrorKind classifies the last recorded fetch failure.
type ErrorKind string

const (
	ErrorNone    ErrorKind = ""
	ErrorAuth    ErrorKind = "auth"
	ErrorNetwork ErrorKind = "network"
	ErrorServer  ErrorKind = "server"
)

// User-facing messages stored in State.Error.
const (
	MessageSessionExpired = "Your session has expired. Please sign in again."
	MessageFetchFailed    = "Failed to fetch users"
)

// State is the single record a list view renders from. Only the controller
// mutates it; callers receive copies.
type State struct {
	Filter     listquery.Filter
	Sort       listquery.Sort
	Pagination collection.Pagination
	Rows       []collection.Record
	Counts     collection.Counts

	Phase     Phase
	Loading   bool
	Pending   bool
	Error     string
	ErrorKind ErrorKind

	// Seq is the sequence number of the most recently issued fetch and
	// Applied the sequence number whose response is currently shown.
	Seq     uint64
	Applied uint64
}

// Initial returns the state of a freshly mounted view.
func Initial() State {
	return State{
		Filter:     listquery.Filter{Status: listquery.StatusAll},
		Sort:       listquery.Sort{Order: listquery.SortAsc},
		Pagination: collection.Pagination{Page: listquery.DefaultPage, Limit: listquery.DefaultLimit},
		Rows:       []collection.Record{},
		Phase:      PhaseIdle,
		Loading:    true,
	}
}

// Query renders the outgoing query for the current state.
func (s State) Query() listquery.Query {
	return listquery.Build(s.Filter, s.Sort, listquery.Page{Page: s.Pagination.Page, Limit: s.Pagination.Limit})
}

// HasError reports whether the last fetch failed.
func (s State) HasError() bool {
	return s.Error != ""
}

func (s State) clone() State {
	out := s
	out.Rows = append([]collection.Record(nil), s.Rows...)
	return out
}

// UserMessage maps a fetch error onto the string shown in the error slot.
// Server-supplied messages are passed through verbatim.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var serverErr *collection.ServerError
	switch {
	case collection.IsAuth(err):
		return MessageSessionExpired
	case errors.As(err, &serverErr) && serverErr.Message != "":
		return serverErr.Message
	default:
		return MessageFetchFailed
	}
}

func kindOf(err error) ErrorKind {
	var netErr *collection.NetworkError
	switch {
	case err == nil:
		return ErrorNone
	case collection.IsAuth(err):
		return ErrorAuth
	case errors.As(err, &netErr):
		return ErrorNetwork
	default:
		return ErrorServer
	}
}
