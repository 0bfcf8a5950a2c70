package collection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/odyssey-erp/memberdash/internal/listquery"
)

// RecordID accepts both numeric and string identifiers from the endpoint.
type RecordID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("collection: record id: %w", err)
	}
	*id = RecordID(n.String())
	return nil
}

// Record is one member row.
type Record struct {
	ID        RecordID         `json:"id"`
	Photo     string           `json:"photo"`
	FirstName string           `json:"firstName"`
	LastName  string           `json:"lastName"`
	Mobile    string           `json:"mobile"`
	Email     string           `json:"email"`
	Status    listquery.Status `json:"status"`
}

// FullName joins first and last name.
func (r Record) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// Counts holds per-status totals across the whole collection.
type Counts struct {
	ActiveCount   int `json:"activeCount"`
	PendingCount  int `json:"pendingCount"`
	InactiveCount int `json:"inactiveCount"`
}

// Pagination is the server's view of the current page.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// Result is one page fetched from the collection endpoint.
type Result struct {
	Rows       []Record
	Counts     Counts
	Pagination Pagination
}

type pageResponse struct {
	Users      []Record   `json:"users"`
	Counts     Counts     `json:"counts"`
	Pagination Pagination `json:"pagination"`
}

type errorResponse struct {
	Message string `json:"message"`
}
