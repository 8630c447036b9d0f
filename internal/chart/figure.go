// Package chart turns chart specifications and custom requests into
// plotly-compatible figures, and exports them as HTML, Mermaid or tables.
package chart

import (
	"math"
	"time"
)

// Trace types.
const (
	TypeScatter   = "scatter"
	TypeBar       = "bar"
	TypeHistogram = "histogram"
	TypeHeatmap   = "heatmap"
	TypePie       = "pie"
	TypeBox       = "box"
)

const (
	templateWhite = "plotly_white"
	colorScaleCor = "RdBu_r"
)

// Figure is a rendered chart: traces plus layout, serialized as plotly JSON.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is one plotly trace. X and Y hold float64, time.Time, string or nil
// for a missing cell.
type Trace struct {
	Type         string      `json:"type"`
	Name         string      `json:"name,omitempty"`
	Mode         string      `json:"mode,omitempty"`
	X            []any       `json:"x,omitempty"`
	Y            []any       `json:"y,omitempty"`
	Z            [][]float64 `json:"z,omitempty"`
	Text         [][]string  `json:"text,omitempty"`
	TextTemplate string      `json:"texttemplate,omitempty"`
	Labels       []any       `json:"labels,omitempty"`
	Values       []any       `json:"values,omitempty"`
	Orientation  string      `json:"orientation,omitempty"`
	Opacity      float64     `json:"opacity,omitempty"`
	Hole         float64     `json:"hole,omitempty"`
	TextInfo     string      `json:"textinfo,omitempty"`
	ColorScale   string      `json:"colorscale,omitempty"`
	ZMid         *float64    `json:"zmid,omitempty"`
	Fill         string      `json:"fill,omitempty"`
	StackGroup   string      `json:"stackgroup,omitempty"`
	NBinsX       int         `json:"nbinsx,omitempty"`
	Marker       *Marker     `json:"marker,omitempty"`
}

// Marker styles trace points or bars. Size is a number or a per-point slice.
type Marker struct {
	Color string `json:"color,omitempty"`
	Size  any    `json:"size,omitempty"`
}

// Layout is the subset of plotly layout attributes the renderer sets.
type Layout struct {
	Title     *Text  `json:"title,omitempty"`
	XAxis     *Axis  `json:"xaxis,omitempty"`
	YAxis     *Axis  `json:"yaxis,omitempty"`
	Template  string `json:"template,omitempty"`
	HoverMode string `json:"hovermode,omitempty"`
	BarMode   string `json:"barmode,omitempty"`
}

// Text is a plotly title object.
type Text struct {
	Text string `json:"text"`
}

// Axis holds axis settings.
type Axis struct {
	Title *Text  `json:"title,omitempty"`
	Side  string `json:"side,omitempty"`
}

// Title returns the figure title, or "".
func (f *Figure) Title() string {
	if f == nil || f.Layout.Title == nil {
		return ""
	}
	return f.Layout.Title.Text
}

func newLayout(title, xTitle, yTitle string) Layout {
	l := Layout{Template: templateWhite}
	if title != "" {
		l.Title = &Text{Text: title}
	}
	if xTitle != "" {
		l.XAxis = &Axis{Title: &Text{Text: xTitle}}
	}
	if yTitle != "" {
		l.YAxis = &Axis{Title: &Text{Text: yTitle}}
	}
	return l
}

// num converts a float to a JSON-safe cell: NaN and infinities become nil.
func num(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// cellString formats a trace cell for text exports.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	case float64:
		return formatFloat(x)
	case int64:
		return formatFloat(float64(x))
	case string:
		return x
	}
	return ""
}
