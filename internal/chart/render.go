package chart

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/KaramelBytes/flowviz-cli/internal/analysis"
	"github.com/KaramelBytes/flowviz-cli/internal/dataset"
)

// ErrUnsupportedSpec is returned for a specification kind Render does not know.
var ErrUnsupportedSpec = errors.New("unsupported chart specification")

// Render turns a specification into a figure. Columns the specification
// names that are absent from ds, or not numeric where numbers are needed,
// drop their series; the figure is still returned.
func Render(ds *dataset.Dataset, spec analysis.Spec) (*Figure, error) {
	switch s := spec.(type) {
	case analysis.TimeSeriesSpec:
		return renderTimeSeries(ds, s), nil
	case *analysis.TimeSeriesSpec:
		return renderTimeSeries(ds, *s), nil
	case analysis.HeatmapSpec:
		return renderHeatmap(ds, s.Title, s.Columns), nil
	case *analysis.HeatmapSpec:
		return renderHeatmap(ds, s.Title, s.Columns), nil
	case analysis.DistributionSpec:
		return renderDistribution(ds, s), nil
	case *analysis.DistributionSpec:
		return renderDistribution(ds, *s), nil
	case analysis.CategorySpec:
		return renderCategory(ds, s), nil
	case *analysis.CategorySpec:
		return renderCategory(ds, *s), nil
	case analysis.TopNSpec:
		return renderTopN(ds, s), nil
	case *analysis.TopNSpec:
		return renderTopN(ds, *s), nil
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupportedSpec, spec)
}

// RenderAll renders every specification in order, skipping unsupported ones.
func RenderAll(ds *dataset.Dataset, specs []analysis.Spec) []*Figure {
	out := make([]*Figure, 0, len(specs))
	for _, s := range specs {
		fig, err := Render(ds, s)
		if err != nil {
			continue
		}
		out = append(out, fig)
	}
	return out
}

type timedRow struct {
	at  time.Time
	row int
}

// parseTimes parses the x column and returns the rows that parsed, sorted
// ascending by time (stable on ties).
func parseTimes(col *dataset.Column, format analysis.DatetimeFormat) []timedRow {
	var rows []timedRow
	for i := 0; i < col.Len(); i++ {
		s, ok := col.String(i)
		if !ok {
			continue
		}
		if t, ok := analysis.ParseWithFormat(format, s); ok {
			rows = append(rows, timedRow{at: t, row: i})
		}
	}
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].at.Before(rows[b].at) })
	return rows
}

func renderTimeSeries(ds *dataset.Dataset, s analysis.TimeSeriesSpec) *Figure {
	fig := &Figure{Layout: newLayout(s.Title, s.X, "Values")}
	fig.Layout.HoverMode = "x unified"
	xcol, ok := ds.Column(s.X)
	if !ok {
		return fig
	}
	rows := parseTimes(xcol, s.DateFormat)
	xs := make([]any, len(rows))
	for i, r := range rows {
		xs[i] = r.at
	}
	for _, name := range s.Y {
		ycol, ok := ds.NumericColumn(name)
		if !ok {
			continue
		}
		ys := make([]any, len(rows))
		for i, r := range rows {
			ys[i] = floatCell(ycol, r.row)
		}
		fig.Data = append(fig.Data, Trace{Type: TypeScatter, Mode: "lines+markers", Name: name, X: xs, Y: ys})
	}
	return fig
}

func renderHeatmap(ds *dataset.Dataset, title string, columns []string) *Figure {
	fig := &Figure{Layout: newLayout(title, "", "")}
	fig.Layout.XAxis = &Axis{Side: "bottom"}
	m := analysis.Correlate(ds, columns)
	if len(m.Columns) == 0 {
		return fig
	}
	labels := make([]any, len(m.Columns))
	for i, c := range m.Columns {
		labels[i] = c
	}
	text := make([][]string, len(m.Values))
	for i, row := range m.Values {
		text[i] = make([]string, len(row))
		for j, v := range row {
			text[i][j] = formatFloat(round2(v))
		}
	}
	zero := 0.0
	fig.Data = append(fig.Data, Trace{
		Type:         TypeHeatmap,
		X:            labels,
		Y:            labels,
		Z:            m.Values,
		Text:         text,
		TextTemplate: "%{text}",
		ColorScale:   colorScaleCor,
		ZMid:         &zero,
	})
	return fig
}

func renderDistribution(ds *dataset.Dataset, s analysis.DistributionSpec) *Figure {
	fig := &Figure{Layout: newLayout(s.Title, "Value", "Frequency")}
	fig.Layout.BarMode = "overlay"
	for _, name := range s.Columns {
		col, ok := ds.NumericColumn(name)
		if !ok {
			continue
		}
		fig.Data = append(fig.Data, Trace{Type: TypeHistogram, Name: name, X: floats(col.Values()), Opacity: 0.7})
	}
	return fig
}

func renderCategory(ds *dataset.Dataset, s analysis.CategorySpec) *Figure {
	fig := &Figure{Layout: newLayout(s.Title, s.Category, "Average Value")}
	groups := analysis.GroupMeans(ds, s.Category, s.Values)
	if len(groups) == 0 {
		return fig
	}
	keys := make([]any, len(groups))
	for i, g := range groups {
		keys[i] = g.Key
	}
	for _, name := range s.Values {
		if _, ok := ds.NumericColumn(name); !ok {
			continue
		}
		ys := make([]any, len(groups))
		for i, g := range groups {
			ys[i] = num(g.Means[name])
		}
		fig.Data = append(fig.Data, Trace{Type: TypeBar, Name: name, X: keys, Y: ys})
	}
	return fig
}

func renderTopN(ds *dataset.Dataset, s analysis.TopNSpec) *Figure {
	fig := &Figure{Layout: newLayout(s.Title, s.Value, s.Category)}
	val, ok := ds.NumericColumn(s.Value)
	if !ok {
		return fig
	}
	cat, ok := ds.Column(s.Category)
	if !ok {
		return fig
	}
	rows := topRows(val, s.N)
	// Horizontal bars draw bottom-up, so ascending order puts the largest on top.
	xs := make([]any, 0, len(rows))
	ys := make([]any, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		xs = append(xs, val.Num[rows[i]])
		ys = append(ys, stringCell(cat, rows[i]))
	}
	fig.Data = append(fig.Data, Trace{Type: TypeBar, Orientation: "h", X: xs, Y: ys})
	return fig
}

// topRows returns the indices of the n largest non-missing values, largest
// first; ties keep row order.
func topRows(col *dataset.Column, n int) []int {
	var rows []int
	for i := 0; i < col.Len(); i++ {
		if _, ok := col.Float(i); ok {
			rows = append(rows, i)
		}
	}
	sort.SliceStable(rows, func(a, b int) bool { return col.Num[rows[a]] > col.Num[rows[b]] })
	if n >= 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

func floatCell(col *dataset.Column, i int) any {
	if v, ok := col.Float(i); ok {
		return v
	}
	return nil
}

func stringCell(col *dataset.Column, i int) any {
	if s, ok := col.String(i); ok {
		return s
	}
	return nil
}

// cells returns a column as trace cells: numbers for numeric columns,
// strings otherwise.
func cells(col *dataset.Column) []any {
	out := make([]any, col.Len())
	for i := range out {
		if col.Kind.IsNumeric() {
			out[i] = floatCell(col, i)
		} else {
			out[i] = stringCell(col, i)
		}
	}
	return out
}

func floats(vs []float64) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
