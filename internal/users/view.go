package users

import (
	"github.com/odyssey-erp/memberdash/internal/collection"
	"github.com/odyssey-erp/memberdash/internal/listquery"
	"github.com/odyssey-erp/memberdash/internal/liststate"
	"github.com/odyssey-erp/memberdash/internal/pagination"
)

// SortFields lists the columns the collection endpoint can sort by.
var SortFields = []string{"firstName", "lastName", "email", "mobile", "status"}

// StatusOption is one entry of the status select.
type StatusOption struct {
	Value    string
	Label    string
	Selected bool
}

// PageView is what pages/users.html renders.
type PageView struct {
	Search    string
	Statuses  []StatusOption
	SortField string
	SortOrder string
	// SortArrow mirrors the active order on the "Member name" header.
	SortArrow string
	Total     int
	Active    int
	Rows      []collection.Record
	Controls  pagination.Controls
	Loading   bool
	Pending   bool
	Error     string
	Expired   bool
	// Ready is false until the first response has been applied.
	Ready bool
}

func newPageView(s liststate.State) PageView {
	p := s.Pagination
	v := PageView{
		Search:    s.Filter.Search,
		SortField: s.Sort.Field,
		SortOrder: string(s.Sort.Order),
		SortArrow: "↑",
		Total:     p.Total,
		Active:    s.Counts.ActiveCount,
		Rows:      s.Rows,
		Controls:  pagination.NewControls(p.Page, p.Limit, p.Total, p.TotalPages),
		Loading:   s.Loading,
		Pending:   s.Pending,
		Error:     s.Error,
		Expired:   s.ErrorKind == liststate.ErrorAuth,
		Ready:     s.Applied > 0,
	}
	if s.Sort.Order == listquery.SortDesc {
		v.SortArrow = "↓"
	}
	v.Statuses = statusOptions(s.Filter.Status)
	return v
}

func statusOptions(selected listquery.Status) []StatusOption {
	opts := []StatusOption{{Value: "", Label: "All Status", Selected: selected == listquery.StatusAll || selected == ""}}
	for _, st := range []listquery.Status{listquery.StatusActive, listquery.StatusPending, listquery.StatusInactive} {
		opts = append(opts, StatusOption{Value: string(st), Label: labelFor(st), Selected: st == selected})
	}
	return opts
}

func labelFor(st listquery.Status) string {
	switch st {
	case listquery.StatusActive:
		return "Active"
	case listquery.StatusPending:
		return "Pending"
	case listquery.StatusInactive:
		return "Inactive"
	}
	return "All Status"
}

// StateResponse is the JSON snapshot served to the page script.
type StateResponse struct {
	Rows       []collection.Record   `json:"rows"`
	Counts     collection.Counts     `json:"counts"`
	Pagination collection.Pagination `json:"pagination"`
	Loading    bool                  `json:"loading"`
	Pending    bool                  `json:"pending"`
	Error      *string               `json:"error"`
	ErrorKind  string                `json:"errorKind,omitempty"`
	Filter     filterJSON            `json:"filter"`
	Sort       sortJSON              `json:"sort"`
	Controls   pagination.Controls   `json:"controls"`
	Seq        uint64                `json:"seq"`
}

type filterJSON struct {
	Search string `json:"search"`
	Status string `json:"status"`
}

type sortJSON struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

func newStateResponse(s liststate.State) StateResponse {
	p := s.Pagination
	resp := StateResponse{
		Rows:       s.Rows,
		Counts:     s.Counts,
		Pagination: p,
		Loading:    s.Loading,
		Pending:    s.Pending,
		ErrorKind:  string(s.ErrorKind),
		Filter:     filterJSON{Search: s.Filter.Search, Status: string(s.Filter.Status)},
		Sort:       sortJSON{Field: s.Sort.Field, Order: string(s.Sort.Order)},
		Controls:   pagination.NewControls(p.Page, p.Limit, p.Total, p.TotalPages),
		Seq:        s.Seq,
	}
	if resp.Rows == nil {
		resp.Rows = []collection.Record{}
	}
	if s.HasError() {
		msg := s.Error
		resp.Error = &msg
	}
	return resp
}
