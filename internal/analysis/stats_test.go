package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/flowviz-cli/internal/dataset"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSummaryVariance(t *testing.T) {
	col := dataset.NumericColumn("x", []float64{2, 4, 4, 4, 5, 5, 7, 9})
	s := Summarize(&col)
	if s.Count != 8 || s.Min != 2 || s.Max != 9 || !approx(s.Mean, 5) {
		t.Fatalf("summary = %+v", s)
	}
	if !approx(s.Variance(), 32.0/7.0) {
		t.Fatalf("variance = %v", s.Variance())
	}
	one := dataset.NumericColumn("y", []float64{3})
	if !math.IsNaN(SampleVariance(&one)) {
		t.Fatalf("single value variance should be NaN")
	}
	if Sum(nil) != 0 {
		t.Fatalf("sum of absent column should be 0")
	}
}

func TestCorrelatePairwiseComplete(t *testing.T) {
	ds := dataset.MustNew("c",
		dataset.NumericColumn("a", []float64{1, 2, 3, 4, math.NaN()}),
		dataset.NumericColumn("b", []float64{2, 4, 6, 8, 100}),
		dataset.NumericColumn("c", []float64{4, 3, 2, 1, 0}),
		dataset.NumericColumn("k", []float64{7, 7, 7, 7, 7}),
		dataset.TextColumn("t", []string{"x", "y", "z", "w", "v"}),
	)
	m := Correlate(ds, []string{"a", "b", "c", "k", "t", "missing"})
	if got := strings.Join(m.Columns, ","); got != "a,b,c,k" {
		t.Fatalf("columns = %s", got)
	}
	if !approx(m.Values[0][1], 1) {
		t.Errorf("r(a,b) = %v, want 1", m.Values[0][1])
	}
	if !approx(m.Values[0][2], -1) {
		t.Errorf("r(a,c) = %v, want -1", m.Values[0][2])
	}
	if m.Values[0][3] != 0 {
		t.Errorf("constant column should correlate 0, got %v", m.Values[0][3])
	}
	for i := range m.Values {
		if m.Values[i][i] != 1 {
			t.Errorf("diagonal[%d] = %v", i, m.Values[i][i])
		}
		for j := range m.Values {
			if m.Values[i][j] != m.Values[j][i] {
				t.Errorf("not symmetric at %d,%d", i, j)
			}
			if m.Values[i][j] < -1 || m.Values[i][j] > 1 {
				t.Errorf("out of range at %d,%d: %v", i, j, m.Values[i][j])
			}
		}
	}
}

func TestCorrelateLargeOffsets(t *testing.T) {
	const off = 1e9
	ds := dataset.MustNew("big",
		dataset.NumericColumn("a", []float64{off + 1, off + 2, off + 3, off + 4}),
		dataset.NumericColumn("b", []float64{off + 2, off + 4, off + 6, off + 8}),
		dataset.NumericColumn("c", []float64{off + 8, off + 6, off + 4, off + 2}),
	)
	m := Correlate(ds, []string{"a", "b", "c"})
	if r := m.Values[0][1]; !approx(r, 1) {
		t.Errorf("r(a,b) = %v, want 1", r)
	}
	if r := m.Values[0][2]; !approx(r, -1) {
		t.Errorf("r(a,c) = %v, want -1", r)
	}
	if r := m.Values[1][2]; !approx(r, -1) {
		t.Errorf("r(b,c) = %v, want -1", r)
	}
}

func TestGroupMeansSortedAndDropsMissingKeys(t *testing.T) {
	ds := dataset.MustNew("g",
		dataset.TextColumn("Region", []string{"South", "North", "", "South"}),
		dataset.NumericColumn("Sales", []float64{10, 4, 99, 20}),
	)
	groups := GroupMeans(ds, "Region", []string{"Sales", "Nope"})
	if len(groups) != 2 || groups[0].Key != "North" || groups[1].Key != "South" {
		t.Fatalf("groups = %+v", groups)
	}
	if groups[1].Means["Sales"] != 15 || groups[1].Size != 2 {
		t.Fatalf("south = %+v", groups[1])
	}
	if _, ok := groups[0].Means["Nope"]; ok {
		t.Fatalf("absent value column should be skipped")
	}

	keys, sums := GroupSums(ds, "Region", "Sales")
	if strings.Join(keys, ",") != "North,South" || sums[0] != 4 || sums[1] != 30 {
		t.Fatalf("sums = %v %v", keys, sums)
	}
}

func TestGroupKeysNumericOrder(t *testing.T) {
	ds := dataset.MustNew("g",
		dataset.IntegerColumn("Year", []int64{2010, 9, 100}),
		dataset.NumericColumn("v", []float64{1, 2, 3}),
	)
	keys, _ := GroupSums(ds, "Year", "v")
	if got := strings.Join(keys, ","); got != "9,100,2010" {
		t.Fatalf("keys = %s", got)
	}
}

func TestQuartilesAndMAD(t *testing.T) {
	q1, med, q3 := Quartiles([]float64{5, 1, 3, 2, 4})
	if q1 != 2 || med != 3 || q3 != 4 {
		t.Fatalf("quartiles = %v %v %v", q1, med, q3)
	}
	m, mad := medianMAD([]float64{1, 1, 2, 2, 4, 6, 9})
	if m != 2 || mad != 1 {
		t.Fatalf("median/mad = %v/%v", m, mad)
	}
}
