// Package listquery turns the member list's filter, sort and paging state into
// the query sent to the remote collection endpoint.
package listquery

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query parameter names understood by the collection endpoint.
const (
	ParamPage      = "page"
	ParamLimit     = "limit"
	ParamSearch    = "search"
	ParamStatus    = "status"
	ParamSortBy    = "sortBy"
	ParamSortOrder = "sortOrder"
)

// Defaults applied when a list view mounts.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// PageSizes lists the page sizes a user may pick.
var PageSizes = []int{10, 25, 50, 100}

var (
	// ErrInvalidStatus is returned for unknown status filter values.
	ErrInvalidStatus = errors.New("listquery: invalid status")
	// ErrInvalidLimit is returned for page sizes outside PageSizes.
	ErrInvalidLimit = errors.New("listquery: invalid limit")
	// ErrInvalidPage is returned for page numbers below 1.
	ErrInvalidPage = errors.New("listquery: page must be >= 1")
)

// Status filters members by account state.
type Status string

const (
	StatusAll      Status = "ALL"
	StatusActive   Status = "ACTIVE"
	StatusPending  Status = "PENDING"
	StatusInactive Status = "INACTIVE"
)

// Statuses lists the concrete statuses in display order.
var Statuses = []Status{StatusActive, StatusPending, StatusInactive}

// ParseStatus maps a form value onto a Status. The empty string means ALL.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToUpper(strings.TrimSpace(raw))); s {
	case "", StatusAll:
		return StatusAll, nil
	case StatusActive, StatusPending, StatusInactive:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

// ValidLimit reports whether limit is one of PageSizes.
func ValidLimit(limit int) bool {
	for _, size := range PageSizes {
		if size == limit {
			return true
		}
	}
	return false
}

// Filter is the free-text and status filter of a list view.
type Filter struct {
	Search string
	Status Status
}

// Page is the client-owned part of pagination.
type Page struct {
	Page  int
	Limit int
}

// Query is the canonical payload sent to the collection endpoint. Empty
// optional fields are omitted from the encoded form.
type Query struct {
	Page      int
	Limit     int
	Search    string
	Status    Status
	SortBy    string
	SortOrder SortOrder
}

// Build renders filter, sort and page state into a Query. It is pure: equal
// inputs always produce equal queries.
func Build(filter Filter, sort Sort, page Page) Query {
	q := Query{Page: page.Page, Limit: page.Limit}
	if search := strings.TrimSpace(filter.Search); search != "" {
		q.Search = search
	}
	if filter.Status != "" && filter.Status != StatusAll {
		q.Status = filter.Status
	}
	if sort.Field != "" {
		q.SortBy = sort.Field
		q.SortOrder = sort.Order
		if q.SortOrder == "" {
			q.SortOrder = SortAsc
		}
	}
	return q
}

type pair struct {
	key   string
	value string
}

// pairs returns the present parameters in their fixed order.
func (q Query) pairs() []pair {
	out := []pair{
		{ParamPage, strconv.Itoa(q.Page)},
		{ParamLimit, strconv.Itoa(q.Limit)},
	}
	if q.Search != "" {
		out = append(out, pair{ParamSearch, q.Search})
	}
	if q.Status != "" {
		out = append(out, pair{ParamStatus, string(q.Status)})
	}
	if q.SortBy != "" {
		out = append(out, pair{ParamSortBy, q.SortBy}, pair{ParamSortOrder, string(q.SortOrder)})
	}
	return out
}

// Keys lists the parameter names present in the query, in encoding order.
func (q Query) Keys() []string {
	ps := q.pairs()
	keys := make([]string, 0, len(ps))
	for _, p := range ps {
		keys = append(keys, p.key)
	}
	return keys
}

// Values returns the query as url.Values holding only present keys.
func (q Query) Values() url.Values {
	values := url.Values{}
	for _, p := range q.pairs() {
		values.Set(p.key, p.value)
	}
	return values
}

// Encode renders the query string with keys in a stable order
// (page, limit, search, status, sortBy, sortOrder).
func (q Query) Encode() string {
	var b strings.Builder
	for i, p := range q.pairs() {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

// String implements fmt.Stringer.
func (q Query) String() string {
	return q.Encode()
}
