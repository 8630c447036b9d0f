package chart

import (
	"math"
	"strconv"

	"github.com/KaramelBytes/flowviz-cli/internal/dataset"
)

// Table flattens the figure into rows for CSV/XLSX export. Heatmaps become
// a labeled matrix; pies a label/value table; everything else a long
// series/x/y table with one row per point.
func (f *Figure) Table() *dataset.Dataset {
	name := f.Title()
	if len(f.Data) > 0 {
		switch t := f.Data[0]; t.Type {
		case TypeHeatmap:
			return heatmapTable(name, t)
		case TypePie:
			return pairTable(name, "label", "value", t.Labels, t.Values)
		}
	}
	var series, xs, ys []string
	for i, t := range f.Data {
		label := t.Name
		if label == "" {
			label = "series " + strconv.Itoa(i+1)
		}
		n := len(t.X)
		if len(t.Y) > n {
			n = len(t.Y)
		}
		for j := 0; j < n; j++ {
			series = append(series, label)
			xs = append(xs, cellAtIndex(t.X, j))
			ys = append(ys, cellAtIndex(t.Y, j))
		}
	}
	return dataset.MustNew(name,
		dataset.TextColumn("series", series),
		inferred("x", xs),
		inferred("y", ys),
	)
}

func heatmapTable(name string, t Trace) *dataset.Dataset {
	labels := make([]string, len(t.Y))
	for i, l := range t.Y {
		labels[i] = cellString(l)
	}
	cols := []dataset.Column{dataset.TextColumn("column", labels)}
	for j, l := range t.X {
		vals := make([]float64, len(t.Z))
		for i := range t.Z {
			if j < len(t.Z[i]) {
				vals[i] = t.Z[i][j]
			}
		}
		cols = append(cols, dataset.NumericColumn(cellString(l), vals))
	}
	ds, err := dataset.New(name, cols...)
	if err != nil {
		return dataset.MustNew(name)
	}
	return ds
}

func pairTable(name, k, v string, keys, vals []any) *dataset.Dataset {
	ks := make([]string, len(keys))
	vs := make([]string, len(keys))
	for i := range keys {
		ks[i] = cellString(keys[i])
		vs[i] = cellAtIndex(vals, i)
	}
	return dataset.MustNew(name, dataset.TextColumn(k, ks), inferred(v, vs))
}

func cellAtIndex(cells []any, i int) string {
	if i >= len(cells) {
		return ""
	}
	return cellString(cells[i])
}

// inferred builds a numeric column when every non-empty cell is a number.
func inferred(name string, cells []string) dataset.Column {
	vals := make([]float64, len(cells))
	for i, s := range cells {
		if s == "" {
			vals[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return dataset.TextColumn(name, cells)
		}
		vals[i] = v
	}
	return dataset.NumericColumn(name, vals)
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
