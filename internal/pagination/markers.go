// Package pagination derives the pagination control of a list view from its
// page, limit and totals. Everything here is pure and safe to call on every
// render.
package pagination

import (
	"fmt"

	"github.com/odyssey-erp/memberdash/internal/listquery"
)

// Viewport is the width class the control is rendered for.
type Viewport int

const (
	ViewportWide Viewport = iota
	ViewportNarrow
)

// Delta is the number of neighbours kept on each side of the current page.
func (v Viewport) Delta() int {
	if v == ViewportNarrow {
		return 1
	}
	return 2
}

func (v Viewport) String() string {
	if v == ViewportNarrow {
		return "narrow"
	}
	return "wide"
}

// Marker is a page number or an ellipsis placeholder.
type Marker struct {
	Page     int  `json:"page,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
	Current  bool `json:"current,omitempty"`
}

func (m Marker) String() string {
	if m.Ellipsis {
		return "..."
	}
	return fmt.Sprint(m.Page)
}

// Markers lists the markers for the given viewport.
func Markers(current, totalPages int, viewport Viewport) []Marker {
	return MarkersWithDelta(current, totalPages, viewport.Delta())
}

// MarkersWithDelta keeps the first and last page plus every page within delta
// of current; each gap collapses into a single ellipsis.
func MarkersWithDelta(current, totalPages, delta int) []Marker {
	if totalPages <= 0 {
		return nil
	}
	if delta < 0 {
		delta = 0
	}
	start := max(2, current-delta)
	end := totalPages - 1
	if current < end-delta {
		end = current + delta
	}

	markers := make([]Marker, 0, 2*delta+5)
	markers = append(markers, Marker{Page: 1, Current: current == 1})
	switch {
	case start <= end:
		if start > 2 {
			markers = append(markers, Marker{Ellipsis: true})
		}
		for i := start; i <= end; i++ {
			markers = append(markers, Marker{Page: i, Current: i == current})
		}
		if end < totalPages-1 {
			markers = append(markers, Marker{Ellipsis: true})
		}
	case totalPages > 2:
		// current is out of range; the middle collapses entirely.
		markers = append(markers, Marker{Ellipsis: true})
	}
	if totalPages > 1 {
		markers = append(markers, Marker{Page: totalPages, Current: current == totalPages})
	}
	return markers
}

// Range is the "showing start-end of total" window.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
	Total int `json:"total"`
}

// NewRange computes the window for page at limit items per page. A page past
// the end yields an empty window.
func NewRange(page, limit, total int) Range {
	if total <= 0 || limit <= 0 || page <= 0 {
		return Range{Total: max(total, 0)}
	}
	start := (page-1)*limit + 1
	end := min(page*limit, total)
	if start > end {
		return Range{Total: total}
	}
	return Range{Start: start, End: end, Total: total}
}

// Empty reports whether the window contains no items.
func (r Range) Empty() bool {
	return r.Start == 0
}

func (r Range) String() string {
	if r.Empty() {
		return fmt.Sprintf("0 of %d", r.Total)
	}
	return fmt.Sprintf("%d-%d of %d", r.Start, r.End, r.Total)
}

// Controls is everything the pagination partial renders.
type Controls struct {
	Page       int      `json:"page"`
	Limit      int      `json:"limit"`
	TotalPages int      `json:"totalPages"`
	Wide       []Marker `json:"wide"`
	Narrow     []Marker `json:"narrow"`
	Range      Range    `json:"range"`
	RangeText  string   `json:"rangeText"`
	HasPrev    bool     `json:"hasPrev"`
	HasNext    bool     `json:"hasNext"`
	PrevPage   int      `json:"prevPage"`
	NextPage   int      `json:"nextPage"`
	PageSizes  []int    `json:"pageSizes"`
}

// NewControls builds the control for both viewport classes; the stylesheet
// shows one per breakpoint.
func NewControls(page, limit, total, totalPages int) Controls {
	rng := NewRange(page, limit, total)
	return Controls{
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		Wide:       Markers(page, totalPages, ViewportWide),
		Narrow:     Markers(page, totalPages, ViewportNarrow),
		Range:      rng,
		RangeText:  rng.String(),
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
		PrevPage:   max(page-1, 1),
		NextPage:   min(page+1, max(totalPages, 1)),
		PageSizes:  append([]int(nil), listquery.PageSizes...),
	}
}
