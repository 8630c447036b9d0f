package chart

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/flowviz-cli/internal/analysis"
	"github.com/KaramelBytes/flowviz-cli/internal/dataset"
)

// ChartType names a user-selectable custom chart.
type ChartType string

const (
	ChartLine      ChartType = "line"
	ChartBar       ChartType = "bar"
	ChartScatter   ChartType = "scatter"
	ChartPie       ChartType = "pie"
	ChartBox       ChartType = "box"
	ChartHeatmap   ChartType = "heatmap"
	ChartArea      ChartType = "area"
	ChartHistogram ChartType = "histogram"
)

// ChartTypes lists the custom chart types in menu order.
var ChartTypes = []ChartType{ChartLine, ChartBar, ChartScatter, ChartPie, ChartBox, ChartHeatmap, ChartArea, ChartHistogram}

var (
	ErrUnknownColumn    = errors.New("unknown column")
	ErrUnknownChartType = errors.New("unknown chart type")
	ErrNotNumeric       = errors.New("column is not numeric")
	ErrMissingSelection = errors.New("missing column selection")
)

const (
	colorBarVertical   = "#06b6d4"
	colorBarHorizontal = "#10b981"
	colorHistogram     = "#10b981"
	colorScatter       = "#8b5cf6"
	defaultBins        = 30
	defaultMarkerSize  = 8
)

// CustomRequest describes a user-built chart. Which fields apply depends on
// Type: X is the x axis, the pie names column, the box category column or
// the histogram column; Y holds the value column(s).
type CustomRequest struct {
	Type        ChartType `json:"type"`
	Title       string    `json:"title,omitempty"`
	X           string    `json:"x,omitempty"`
	Y           []string  `json:"y,omitempty"`
	Color       string    `json:"color,omitempty"`
	Size        string    `json:"size,omitempty"`
	Orientation string    `json:"orientation,omitempty"` // "v" (default) or "h"
	Columns     []string  `json:"columns,omitempty"`
	Bins        int       `json:"bins,omitempty"`
}

// BuildCustom validates the request against ds and builds the figure.
func BuildCustom(ds *dataset.Dataset, req CustomRequest) (*Figure, error) {
	switch ChartType(strings.ToLower(string(req.Type))) {
	case ChartLine:
		return Line(ds, req.X, req.Y, req.Title)
	case ChartBar:
		y, err := first(req.Y)
		if err != nil {
			return nil, err
		}
		return Bar(ds, req.X, y, req.Orientation, req.Title)
	case ChartScatter:
		y, err := first(req.Y)
		if err != nil {
			return nil, err
		}
		return Scatter(ds, req.X, y, req.Color, req.Size, req.Title)
	case ChartPie:
		y, err := first(req.Y)
		if err != nil {
			return nil, err
		}
		return Pie(ds, req.X, y, req.Title)
	case ChartBox:
		y, err := first(req.Y)
		if err != nil {
			return nil, err
		}
		return Box(ds, req.X, y, req.Title)
	case ChartHeatmap:
		cols := req.Columns
		if len(cols) == 0 {
			cols = req.Y
		}
		return Heatmap(ds, cols, req.Title)
	case ChartArea:
		return Area(ds, req.X, req.Y, req.Title)
	case ChartHistogram:
		return Histogram(ds, req.X, req.Bins, req.Title)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownChartType, req.Type)
}

// Line draws one lines+markers trace per y column against x, in row order.
func Line(ds *dataset.Dataset, x string, ys []string, title string) (*Figure, error) {
	xcol, ycols, err := xAndNumeric(ds, x, ys)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = fmt.Sprintf("%s over %s", strings.Join(ys, ", "), x)
	}
	fig := &Figure{Layout: newLayout(title, x, "Values")}
	fig.Layout.HoverMode = "x unified"
	xs := cells(xcol)
	for _, c := range ycols {
		fig.Data = append(fig.Data, Trace{Type: TypeScatter, Mode: "lines+markers", Name: c.Name, X: xs, Y: cells(c)})
	}
	return fig, nil
}

// Bar draws y against x. A text x column is aggregated to per-group sums;
// orientation "h" draws horizontal bars sorted ascending by value.
func Bar(ds *dataset.Dataset, x, y, orientation, title string) (*Figure, error) {
	xcol, err := column(ds, x)
	if err != nil {
		return nil, err
	}
	ycol, err := numericColumn(ds, y)
	if err != nil {
		return nil, err
	}
	var labels, values []any
	if xcol.Kind == dataset.KindText {
		keys, sums := analysis.GroupSums(ds, x, y)
		for i := range keys {
			labels = append(labels, keys[i])
			values = append(values, sums[i])
		}
	} else {
		labels, values = cells(xcol), cells(ycol)
	}
	if title == "" {
		title = fmt.Sprintf("%s by %s", y, x)
	}
	horizontal := strings.EqualFold(orientation, "h")
	if !horizontal {
		fig := &Figure{Layout: newLayout(title, x, y)}
		fig.Data = []Trace{{Type: TypeBar, X: labels, Y: values, Marker: &Marker{Color: colorBarVertical}}}
		return fig, nil
	}
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return lessCell(values[idx[a]], values[idx[b]]) })
	sl, sv := make([]any, len(idx)), make([]any, len(idx))
	for i, j := range idx {
		sl[i], sv[i] = labels[j], values[j]
	}
	fig := &Figure{Layout: newLayout(title, y, x)}
	fig.Data = []Trace{{Type: TypeBar, Orientation: "h", X: sv, Y: sl, Marker: &Marker{Color: colorBarHorizontal}}}
	return fig, nil
}

// Scatter plots y against x. A color column splits points into one trace
// per distinct value (first-appearance order); a size column sizes points.
func Scatter(ds *dataset.Dataset, x, y, color, size, title string) (*Figure, error) {
	xcol, err := column(ds, x)
	if err != nil {
		return nil, err
	}
	ycol, err := column(ds, y)
	if err != nil {
		return nil, err
	}
	var sizeCol *dataset.Column
	if size != "" {
		if sizeCol, err = numericColumn(ds, size); err != nil {
			return nil, err
		}
	}
	if title == "" {
		title = fmt.Sprintf("%s vs %s", y, x)
	}
	fig := &Figure{Layout: newLayout(title, x, y)}
	if color == "" {
		m := &Marker{Color: colorScatter, Size: defaultMarkerSize}
		if sizeCol != nil {
			m.Size = cells(sizeCol)
		}
		fig.Data = []Trace{{Type: TypeScatter, Mode: "markers", X: cells(xcol), Y: cells(ycol), Marker: m}}
		return fig, nil
	}
	ccol, err := column(ds, color)
	if err != nil {
		return nil, err
	}
	for _, g := range groupRows(ccol) {
		t := Trace{Type: TypeScatter, Mode: "markers", Name: g.key}
		var sizes []any
		for _, r := range g.rows {
			t.X = append(t.X, cellAt(xcol, r))
			t.Y = append(t.Y, cellAt(ycol, r))
			if sizeCol != nil {
				sizes = append(sizes, floatCell(sizeCol, r))
			}
		}
		if sizeCol != nil {
			t.Marker = &Marker{Size: sizes}
		}
		fig.Data = append(fig.Data, t)
	}
	return fig, nil
}

// Pie sums values per distinct name and draws a donut chart.
func Pie(ds *dataset.Dataset, names, values, title string) (*Figure, error) {
	if _, err := column(ds, names); err != nil {
		return nil, err
	}
	if _, err := numericColumn(ds, values); err != nil {
		return nil, err
	}
	keys, sums := analysis.GroupSums(ds, names, values)
	labels := make([]any, len(keys))
	vals := make([]any, len(keys))
	for i := range keys {
		labels[i], vals[i] = keys[i], sums[i]
	}
	if title == "" {
		title = fmt.Sprintf("%s by %s", values, names)
	}
	fig := &Figure{Layout: newLayout(title, "", "")}
	fig.Data = []Trace{{Type: TypePie, Labels: labels, Values: vals, Hole: 0.3, TextInfo: "label+percent"}}
	return fig, nil
}

// Box draws one box per category, in first-appearance order.
func Box(ds *dataset.Dataset, category, value, title string) (*Figure, error) {
	ccol, err := column(ds, category)
	if err != nil {
		return nil, err
	}
	vcol, err := numericColumn(ds, value)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = fmt.Sprintf("%s distribution by %s", value, category)
	}
	fig := &Figure{Layout: newLayout(title, category, value)}
	for _, g := range groupRows(ccol) {
		t := Trace{Type: TypeBox, Name: g.key}
		for _, r := range g.rows {
			t.Y = append(t.Y, floatCell(vcol, r))
		}
		fig.Data = append(fig.Data, t)
	}
	return fig, nil
}

// Heatmap draws the correlation matrix of the selected numeric columns.
func Heatmap(ds *dataset.Dataset, columns []string, title string) (*Figure, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: heatmap needs columns", ErrMissingSelection)
	}
	for _, c := range columns {
		if _, err := numericColumn(ds, c); err != nil {
			return nil, err
		}
	}
	if title == "" {
		title = "Correlation Heatmap"
	}
	return renderHeatmap(ds, title, columns), nil
}

// Area stacks one filled trace per y column.
func Area(ds *dataset.Dataset, x string, ys []string, title string) (*Figure, error) {
	xcol, ycols, err := xAndNumeric(ds, x, ys)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = "Stacked Area: " + strings.Join(ys, ", ")
	}
	fig := &Figure{Layout: newLayout(title, x, "Values")}
	fig.Layout.HoverMode = "x unified"
	xs := cells(xcol)
	for i, c := range ycols {
		fill := "tonexty"
		if i == 0 {
			fill = "tozeroy"
		}
		fig.Data = append(fig.Data, Trace{Type: TypeScatter, Mode: "lines", Name: c.Name, X: xs, Y: cells(c), Fill: fill, StackGroup: "one"})
	}
	return fig, nil
}

// Histogram bins one numeric column; bins <= 0 uses 30.
func Histogram(ds *dataset.Dataset, col string, bins int, title string) (*Figure, error) {
	c, err := numericColumn(ds, col)
	if err != nil {
		return nil, err
	}
	if bins <= 0 {
		bins = defaultBins
	}
	if title == "" {
		title = "Distribution of " + col
	}
	fig := &Figure{Layout: newLayout(title, col, "Frequency")}
	fig.Data = []Trace{{Type: TypeHistogram, X: floats(c.Values()), NBinsX: bins, Marker: &Marker{Color: colorHistogram}}}
	return fig, nil
}

func first(ys []string) (string, error) {
	if len(ys) == 0 || ys[0] == "" {
		return "", fmt.Errorf("%w: y", ErrMissingSelection)
	}
	return ys[0], nil
}

func column(ds *dataset.Dataset, name string) (*dataset.Column, error) {
	if name == "" {
		return nil, ErrMissingSelection
	}
	c, ok := ds.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return c, nil
}

func numericColumn(ds *dataset.Dataset, name string) (*dataset.Column, error) {
	c, err := column(ds, name)
	if err != nil {
		return nil, err
	}
	if !c.Kind.IsNumeric() {
		return nil, fmt.Errorf("%w: %q", ErrNotNumeric, name)
	}
	return c, nil
}

func xAndNumeric(ds *dataset.Dataset, x string, ys []string) (*dataset.Column, []*dataset.Column, error) {
	xcol, err := column(ds, x)
	if err != nil {
		return nil, nil, err
	}
	if len(ys) == 0 {
		return nil, nil, fmt.Errorf("%w: y", ErrMissingSelection)
	}
	out := make([]*dataset.Column, 0, len(ys))
	for _, y := range ys {
		c, err := numericColumn(ds, y)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, c)
	}
	return xcol, out, nil
}

type rowGroup struct {
	key  string
	rows []int
}

// groupRows splits row indices by the column's value in first-appearance
// order. Missing cells are dropped.
func groupRows(col *dataset.Column) []rowGroup {
	var groups []rowGroup
	pos := map[string]int{}
	for i := 0; i < col.Len(); i++ {
		key, ok := col.String(i)
		if !ok {
			continue
		}
		j, seen := pos[key]
		if !seen {
			j = len(groups)
			pos[key] = j
			groups = append(groups, rowGroup{key: key})
		}
		groups[j].rows = append(groups[j].rows, i)
	}
	return groups
}

func cellAt(col *dataset.Column, i int) any {
	if col.Kind.IsNumeric() {
		return floatCell(col, i)
	}
	return stringCell(col, i)
}

// lessCell orders numeric cells ascending with missing values first.
func lessCell(a, b any) bool {
	fa, aok := a.(float64)
	fb, bok := b.(float64)
	if !aok || !bok {
		return !aok && bok
	}
	return fa < fb
}
