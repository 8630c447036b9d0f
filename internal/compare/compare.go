// Package compare implements period-over-period comparison of two datasets
// that share numeric columns.
package compare

import (
	"math"

	"github.com/KaramelBytes/flowviz-cli/internal/analysis"
	"github.com/KaramelBytes/flowviz-cli/internal/chart"
	"github.com/KaramelBytes/flowviz-cli/internal/dataset"
	"github.com/shopspring/decimal"
)

// Column headers used by Summary.Table.
const (
	ColMetric   = "Metric"
	ColPrevious = "Previous Month"
	ColCurrent  = "Current Month"
	ColChange   = "Change (%)"
)

const (
	colorPrevious = "#764ba2"
	colorCurrent  = "#667eea"
)

// Row is the comparison of one shared numeric column.
type Row struct {
	Metric    string  `json:"metric"`
	Previous  float64 `json:"previous"`
	Current   float64 `json:"current"`
	ChangePct float64 `json:"change_pct"`
}

// Summary is one row per shared numeric column.
type Summary struct {
	Rows []Row `json:"rows"`
}

// Empty reports whether the summary has no rows.
func (s Summary) Empty() bool { return len(s.Rows) == 0 }

// SharedNumericColumns returns the numeric columns present in both datasets,
// in the current dataset's column order.
func SharedNumericColumns(current, previous *dataset.Dataset) []string {
	var out []string
	for _, name := range current.NumericNames() {
		if _, ok := previous.NumericColumn(name); ok {
			out = append(out, name)
		}
	}
	return out
}

// Summarize compares the column totals of the shared numeric columns.
// Without shared columns it returns nil and an empty Summary.
func Summarize(current, previous *dataset.Dataset) ([]string, Summary) {
	cols := SharedNumericColumns(current, previous)
	if len(cols) == 0 {
		return nil, Summary{}
	}
	s := Summary{Rows: make([]Row, 0, len(cols))}
	for _, name := range cols {
		cur := total(current, name)
		prev := total(previous, name)
		s.Rows = append(s.Rows, Row{
			Metric:    name,
			Previous:  prev,
			Current:   cur,
			ChangePct: roundPct(pctChange(cur, prev)),
		})
	}
	return cols, s
}

// OverallChange is the percent change of the grand total over cols.
func OverallChange(current, previous *dataset.Dataset, cols []string) float64 {
	var cur, prev float64
	for _, name := range cols {
		cur += total(current, name)
		prev += total(previous, name)
	}
	return pctChange(cur, prev)
}

// AverageDifference is the mean of the current column means minus the mean
// of the previous column means. Columns without values are left out of the
// outer mean.
func AverageDifference(current, previous *dataset.Dataset, cols []string) float64 {
	d := meanOfMeans(current, cols) - meanOfMeans(previous, cols)
	if math.IsNaN(d) {
		return 0
	}
	return d
}

// MetricChange is the percent change of one column's total.
func MetricChange(current, previous *dataset.Dataset, col string) float64 {
	return pctChange(total(current, col), total(previous, col))
}

// Chart draws the two column totals side by side.
func Chart(current, previous *dataset.Dataset, col string) *chart.Figure {
	prev, cur := total(previous, col), total(current, col)
	layout := chart.Layout{
		Title:    &chart.Text{Text: col + " - Month over Month"},
		XAxis:    &chart.Axis{Title: &chart.Text{Text: "Period"}},
		YAxis:    &chart.Axis{Title: &chart.Text{Text: col}},
		Template: "plotly_white",
	}
	return &chart.Figure{
		Data: []chart.Trace{
			{Type: chart.TypeBar, Name: "Previous Month", X: []any{"Previous Month"}, Y: []any{prev}, Marker: &chart.Marker{Color: colorPrevious}},
			{Type: chart.TypeBar, Name: "Current Month", X: []any{"Current Month"}, Y: []any{cur}, Marker: &chart.Marker{Color: colorCurrent}},
		},
		Layout: layout,
	}
}

// Table converts the summary to a dataset for CSV/XLSX export.
func (s Summary) Table() *dataset.Dataset {
	n := len(s.Rows)
	metrics := make([]string, n)
	prev := make([]float64, n)
	cur := make([]float64, n)
	change := make([]float64, n)
	for i, r := range s.Rows {
		metrics[i], prev[i], cur[i], change[i] = r.Metric, r.Previous, r.Current, r.ChangePct
	}
	return dataset.MustNew("comparison",
		dataset.TextColumn(ColMetric, metrics),
		dataset.NumericColumn(ColPrevious, prev),
		dataset.NumericColumn(ColCurrent, cur),
		dataset.NumericColumn(ColChange, change),
	)
}

// FromTable reads a summary back from a dataset written by Table.
func FromTable(ds *dataset.Dataset) (Summary, bool) {
	m, ok1 := ds.Column(ColMetric)
	p, ok2 := ds.NumericColumn(ColPrevious)
	c, ok3 := ds.NumericColumn(ColCurrent)
	ch, ok4 := ds.NumericColumn(ColChange)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return Summary{}, false
	}
	var s Summary
	for i := 0; i < ds.NumRows(); i++ {
		name, _ := m.String(i)
		s.Rows = append(s.Rows, Row{Metric: name, Previous: p.Num[i], Current: c.Num[i], ChangePct: ch.Num[i]})
	}
	return s, true
}

func total(ds *dataset.Dataset, name string) float64 {
	col, _ := ds.NumericColumn(name)
	return analysis.Sum(col)
}

func meanOfMeans(ds *dataset.Dataset, cols []string) float64 {
	var sum float64
	var n int
	for _, name := range cols {
		col, ok := ds.NumericColumn(name)
		if !ok {
			continue
		}
		m := analysis.Mean(col)
		if math.IsNaN(m) {
			continue
		}
		sum += m
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// pctChange is (cur-prev)/prev*100, and 0 when prev is 0.
func pctChange(cur, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}

func roundPct(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
