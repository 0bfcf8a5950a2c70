package overview

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Chart defaults.
const (
	chartWidth   = 480
	chartHeight  = 260
	chartPadding = 32.0
	chartTicks   = 4
	axisColor    = "#64748b"
	gridColor    = "#cbd5e1"
)

// Bar is one labelled value in the status chart.
type Bar struct {
	Label  string
	Value  int
	Fill   string
	Stroke string
}

// StatusBars orders the summary as Active, Inactive, Pending.
func StatusBars(s Summary) []Bar {
	return []Bar{
		{Label: "Active", Value: s.Active, Fill: "rgba(34, 197, 94, 0.2)", Stroke: "rgb(34, 197, 94)"},
		{Label: "Inactive", Value: s.Inactive, Fill: "rgba(239, 68, 68, 0.2)", Stroke: "rgb(239, 68, 68)"},
		{Label: "Pending", Value: s.Pending, Fill: "rgba(234, 179, 8, 0.2)", Stroke: "rgb(234, 179, 8)"},
	}
}

// RenderBars draws a single-series bar chart as inline SVG.
func RenderBars(title string, bars []Bar) (template.HTML, error) {
	if len(bars) == 0 {
		return "", fmt.Errorf("overview: at least one bar required")
	}
	maxVal := 0
	for _, b := range bars {
		if b.Value < 0 {
			return "", fmt.Errorf("overview: negative value for %s", b.Label)
		}
		if b.Value > maxVal {
			maxVal = b.Value
		}
	}
	top := niceCeil(maxVal)

	plotW := chartWidth - 2*chartPadding
	plotH := chartHeight - 2*chartPadding
	scale := plotH / float64(top)
	bottom := chartPadding + plotH
	slot := plotW / float64(len(bars))
	barW := slot * 0.5

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="status-chart-title">`, chartWidth, chartHeight)
	fmt.Fprintf(&b, `<title id="status-chart-title">%s</title>`, template.HTMLEscapeString(title))

	for i := 0; i <= chartTicks; i++ {
		value := top * i / chartTicks
		y := bottom - float64(value)*scale
		fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="0.5" stroke-dasharray="2,4" aria-hidden="true"></line>`, chartPadding, y, chartPadding+plotW, y, gridColor)
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="end">%d</text>`, chartPadding-6, y+4, axisColor, value)
	}
	fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="1"></line>`, chartPadding, bottom, chartPadding+plotW, bottom, axisColor)

	for i, bar := range bars {
		h := float64(bar.Value) * scale
		x := chartPadding + float64(i)*slot + (slot-barW)/2
		fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" stroke="%s" stroke-width="1"><title>%s: %d</title></rect>`,
			x, bottom-h, barW, h, bar.Fill, bar.Stroke, template.HTMLEscapeString(bar.Label), bar.Value)
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="11" text-anchor="middle">%s</text>`, x+barW/2, bottom+16, axisColor, template.HTMLEscapeString(bar.Label))
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

// niceCeil rounds max up so the tick labels are whole numbers.
func niceCeil(max int) int {
	if max <= 0 {
		return chartTicks
	}
	step := int(math.Ceil(float64(max) / chartTicks))
	return step * chartTicks
}
