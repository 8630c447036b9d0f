package analysis

import (
	"math"
	"sort"

	"github.com/KaramelBytes/flowviz-cli/internal/dataset"
)

// NumSummary holds running statistics for one numeric column.
type NumSummary struct {
	Count          int
	Sum            float64
	Min, Max, Mean float64
	m2             float64
}

// Add folds x into the summary (Welford update).
func (s *NumSummary) Add(x float64) {
	if s.Count == 0 {
		s.Min, s.Max = x, x
	}
	s.Count++
	s.Sum += x
	if x < s.Min {
		s.Min = x
	}
	if x > s.Max {
		s.Max = x
	}
	delta := x - s.Mean
	s.Mean += delta / float64(s.Count)
	s.m2 += delta * (x - s.Mean)
}

// Variance returns the sample variance (n-1), NaN below two values.
func (s *NumSummary) Variance() float64 {
	if s.Count < 2 {
		return math.NaN()
	}
	return s.m2 / float64(s.Count-1)
}

// Std returns the sample standard deviation.
func (s *NumSummary) Std() float64 { return math.Sqrt(s.Variance()) }

// Summarize folds every non-missing value of a numeric column.
func Summarize(col *dataset.Column) NumSummary {
	var s NumSummary
	if col == nil {
		return s
	}
	for i := 0; i < col.Len(); i++ {
		if x, ok := col.Float(i); ok {
			s.Add(x)
		}
	}
	return s
}

// SampleVariance is the n-1 variance of a column's non-missing values.
func SampleVariance(col *dataset.Column) float64 {
	s := Summarize(col)
	return s.Variance()
}

// Sum adds the non-missing values of a column; an absent column sums to 0.
func Sum(col *dataset.Column) float64 {
	s := Summarize(col)
	return s.Sum
}

// Mean averages the non-missing values; NaN when there are none.
func Mean(col *dataset.Column) float64 {
	s := Summarize(col)
	if s.Count == 0 {
		return math.NaN()
	}
	return s.Mean
}

// DistinctCount counts distinct non-missing values.
func DistinctCount(col *dataset.Column) int {
	seen := make(map[string]struct{})
	for i := 0; i < col.Len(); i++ {
		if s, ok := col.String(i); ok {
			seen[s] = struct{}{}
		}
	}
	return len(seen)
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// pairAcc accumulates pairwise-complete means and co-moments for one
// column pair with Welford updates, so large offsets do not cancel.
type pairAcc struct {
	n            float64
	meanX, meanY float64
	m2X, m2Y     float64
	coM          float64
}

func (pa *pairAcc) add(x, y float64) {
	pa.n++
	dx := x - pa.meanX
	pa.meanX += dx / pa.n
	dy := y - pa.meanY
	pa.meanY += dy / pa.n
	pa.m2X += dx * (x - pa.meanX)
	pa.m2Y += dy * (y - pa.meanY)
	pa.coM += dx * (y - pa.meanY)
}

func (pa *pairAcc) r() float64 {
	if pa.n < 2 {
		return 0
	}
	denom := math.Sqrt(pa.m2X * pa.m2Y)
	var r float64
	if denom != 0 {
		r = pa.coM / denom
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		r = 0
	}
	return r
}

// Correlate computes the Pearson matrix over the named numeric columns,
// using rows where both values of a pair are present. Names that are absent
// or not numeric are skipped. Undefined coefficients are 0; the diagonal is 1.
func Correlate(ds *dataset.Dataset, names []string) *CorrMatrix {
	var cols []*dataset.Column
	var kept []string
	for _, name := range names {
		if c, ok := ds.NumericColumn(name); ok {
			cols = append(cols, c)
			kept = append(kept, name)
		}
	}
	n := len(cols)
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
		mat[i][i] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			var pa pairAcc
			for row := 0; row < ds.NumRows(); row++ {
				x, okx := cols[a].Float(row)
				y, oky := cols[b].Float(row)
				if !okx || !oky {
					continue
				}
				pa.add(x, y)
			}
			r := pa.r()
			mat[a][b] = r
			mat[b][a] = r
		}
	}
	return &CorrMatrix{Columns: kept, Values: mat}
}

// GroupMean is the per-group mean of one or more value columns.
type GroupMean struct {
	Key   string
	Size  int
	Means map[string]float64 // NaN when the group has no values for a column
}

// GroupMeans groups rows by the category column (missing keys dropped) and
// averages each value column. Groups come back sorted by key.
func GroupMeans(ds *dataset.Dataset, category string, values []string) []GroupMean {
	cat, ok := ds.Column(category)
	if !ok {
		return nil
	}
	type gAcc struct {
		size int
		sums map[string]*NumSummary
	}
	groups := map[string]*gAcc{}
	var keys []string
	for row := 0; row < ds.NumRows(); row++ {
		key, ok := cat.String(row)
		if !ok {
			continue
		}
		g := groups[key]
		if g == nil {
			g = &gAcc{sums: map[string]*NumSummary{}}
			groups[key] = g
			keys = append(keys, key)
		}
		g.size++
		for _, name := range values {
			c, ok := ds.NumericColumn(name)
			if !ok {
				continue
			}
			s := g.sums[name]
			if s == nil {
				s = &NumSummary{}
				g.sums[name] = s
			}
			if x, ok := c.Float(row); ok {
				s.Add(x)
			}
		}
	}
	sortGroupKeys(ds, category, keys)
	out := make([]GroupMean, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		gm := GroupMean{Key: k, Size: g.size, Means: map[string]float64{}}
		for name, s := range g.sums {
			if s.Count == 0 {
				gm.Means[name] = math.NaN()
				continue
			}
			gm.Means[name] = s.Mean
		}
		out = append(out, gm)
	}
	return out
}

// GroupSums is GroupMeans' additive sibling: per-group totals of one column,
// sorted by key.
func GroupSums(ds *dataset.Dataset, category, value string) (keys []string, sums []float64) {
	cat, ok := ds.Column(category)
	val, vok := ds.NumericColumn(value)
	if !ok || !vok {
		return nil, nil
	}
	idx := map[string]int{}
	for row := 0; row < ds.NumRows(); row++ {
		key, ok := cat.String(row)
		if !ok {
			continue
		}
		if _, seen := idx[key]; !seen {
			idx[key] = len(keys)
			keys = append(keys, key)
		}
	}
	sortGroupKeys(ds, category, keys)
	pos := make(map[string]int, len(keys))
	for i, k := range keys {
		pos[k] = i
	}
	sums = make([]float64, len(keys))
	for row := 0; row < ds.NumRows(); row++ {
		key, ok := cat.String(row)
		if !ok {
			continue
		}
		if x, ok := val.Float(row); ok {
			sums[pos[key]] += x
		}
	}
	return keys, sums
}

// sortGroupKeys orders keys numerically for numeric category columns and
// lexically otherwise.
func sortGroupKeys(ds *dataset.Dataset, category string, keys []string) {
	if c, ok := ds.NumericColumn(category); ok {
		vals := map[string]float64{}
		for i := 0; i < c.Len(); i++ {
			if s, ok := c.String(i); ok {
				vals[s] = c.Num[i]
			}
		}
		sort.SliceStable(keys, func(i, j int) bool { return vals[keys[i]] < vals[keys[j]] })
		return
	}
	sort.Strings(keys)
}

// Quartiles returns q1, median and q3 of the values (linear interpolation).
func Quartiles(vals []float64) (q1, median, q3 float64) {
	if len(vals) == 0 {
		return 0, 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return quantile(cp, 0.25), quantile(cp, 0.5), quantile(cp, 0.75)
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		d := v - median
		if d < 0 {
			d = -d
		}
		dev[i] = d
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
