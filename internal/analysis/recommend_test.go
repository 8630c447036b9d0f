package analysis

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/KaramelBytes/flowviz-cli/internal/dataset"
)

func kinds(specs []Spec) []ChartKind {
	out := make([]ChartKind, len(specs))
	for i, s := range specs {
		out[i] = s.Kind()
	}
	return out
}

func TestRecommendSalesScenario(t *testing.T) {
	specs := Recommend(salesFixture())
	want := []ChartKind{KindTimeSeries, KindDistribution, KindCategoryAnalysis, KindTopN}
	if got := kinds(specs); !reflect.DeepEqual(got, want) {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	ts := specs[0].(TimeSeriesSpec)
	if ts.X != "Date" || !reflect.DeepEqual(ts.Y, []string{"Revenue"}) || ts.DateFormat != FormatYMDDash {
		t.Errorf("time series = %+v", ts)
	}
	if ts.Title != "Time Series Analysis" || ts.Priority != 1 {
		t.Errorf("meta = %+v", ts.SpecMeta)
	}
	cat := specs[2].(CategorySpec)
	if cat.Title != "Analysis by Region" || cat.Category != "Region" {
		t.Errorf("category = %+v", cat)
	}
	top := specs[3].(TopNSpec)
	if top.Title != "Top 10 by Revenue" || top.N != 10 || top.Category != "Region" || top.Value != "Revenue" {
		t.Errorf("top n = %+v", top)
	}
	for i := 1; i < len(specs); i++ {
		if specs[i-1].Meta().Priority > specs[i].Meta().Priority {
			t.Fatalf("specs not sorted by priority: %v", kinds(specs))
		}
	}
}

func TestRecommendDistributionByVariance(t *testing.T) {
	ds := dataset.MustNew("v",
		dataset.NumericColumn("A", []float64{1, 2, 3, 4, 5}),      // 2.5
		dataset.NumericColumn("B", []float64{10, 20, 30, 40, 50}), // 250
		dataset.NumericColumn("C", []float64{1, 1, 1, 1, 2}),      // 0.2
		dataset.NumericColumn("D", []float64{0, 5, 10, 15, 20}),   // 62.5
	)
	var dist DistributionSpec
	for _, s := range Recommend(ds) {
		if d, ok := s.(DistributionSpec); ok {
			dist = d
		}
	}
	if got := strings.Join(dist.Columns, ","); got != "B,D,A" {
		t.Fatalf("distribution columns = %s, want B,D,A", got)
	}
}

func TestByVarianceUndefinedLastAndTiesStable(t *testing.T) {
	nan := math.NaN()
	ds := dataset.MustNew("v",
		dataset.NumericColumn("Single", []float64{5, nan, nan}),
		dataset.NumericColumn("X", []float64{1, 2, 3}),
		dataset.NumericColumn("Y", []float64{4, 5, 6}),
	)
	if got := strings.Join(byVariance(ds, ds.NumericNames()), ","); got != "X,Y,Single" {
		t.Fatalf("order = %s", got)
	}
}

func TestRecommendGating(t *testing.T) {
	t.Run("no datetime, two numeric", func(t *testing.T) {
		ds := dataset.MustNew("g",
			dataset.NumericColumn("a", []float64{1, 2}),
			dataset.NumericColumn("b", []float64{3, 1}),
		)
		got := kinds(Recommend(ds))
		want := []ChartKind{KindHeatmap, KindDistribution}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("kinds = %v, want %v", got, want)
		}
	})
	t.Run("one numeric has no heatmap", func(t *testing.T) {
		ds := dataset.MustNew("g", dataset.NumericColumn("a", []float64{1, 2}))
		for _, s := range Recommend(ds) {
			if s.Kind() == KindHeatmap {
				t.Fatalf("heatmap recommended with one numeric column")
			}
		}
	})
	t.Run("categorical only", func(t *testing.T) {
		ds := dataset.MustNew("g", dataset.TextColumn("r", []string{"North", "South"}))
		if specs := Recommend(ds); len(specs) != 0 {
			t.Fatalf("expected no specs, got %v", kinds(specs))
		}
	})
	t.Run("empty dataset", func(t *testing.T) {
		if specs := Recommend(dataset.MustNew("e")); len(specs) != 0 {
			t.Fatalf("expected no specs")
		}
	})
}

func TestRecommendLimits(t *testing.T) {
	var cols []dataset.Column
	cols = append(cols, dataset.TextColumn("Date", []string{"2024-01-01", "2024-01-02"}))
	for i := 0; i < 12; i++ {
		cols = append(cols, dataset.NumericColumn(fmt.Sprintf("n%d", i), []float64{float64(i), float64(i * 2)}))
	}
	specs := Recommend(dataset.MustNew("wide", cols...))
	for _, s := range specs {
		switch v := s.(type) {
		case TimeSeriesSpec:
			if len(v.Y) != 3 {
				t.Errorf("time series y = %v", v.Y)
			}
		case HeatmapSpec:
			if len(v.Columns) != 10 || v.Columns[0] != "n0" || v.Columns[9] != "n9" {
				t.Errorf("heatmap columns = %v", v.Columns)
			}
		case DistributionSpec:
			if len(v.Columns) != 3 {
				t.Errorf("distribution columns = %v", v.Columns)
			}
		}
	}
}

func TestCategoryRuleDistinctRange(t *testing.T) {
	ids := make([]string, 25)
	for i := range ids {
		ids[i] = fmt.Sprintf("id-%02d", i)
	}
	same := make([]string, 25)
	seg := make([]string, 25)
	vals := make([]float64, 25)
	for i := range same {
		same[i] = "only"
		seg[i] = []string{"alpha", "beta", "gamma"}[i%3]
		vals[i] = float64(i)
	}
	ds := dataset.MustNew("c",
		dataset.TextColumn("ID", ids),
		dataset.TextColumn("Const", same),
		dataset.TextColumn("Segment", seg),
		dataset.NumericColumn("Value", vals),
	)
	var cat *CategorySpec
	var top *TopNSpec
	for _, s := range Recommend(ds) {
		switch v := s.(type) {
		case CategorySpec:
			cat = &v
		case TopNSpec:
			top = &v
		}
	}
	if cat == nil || cat.Category != "Segment" {
		t.Fatalf("category spec = %+v", cat)
	}
	if top == nil || top.Category != "ID" {
		t.Fatalf("top n spec = %+v", top)
	}

	noneQualify := dataset.MustNew("c",
		dataset.TextColumn("ID", ids),
		dataset.NumericColumn("Value", vals),
	)
	outcomes := Explain(noneQualify)
	for _, o := range outcomes {
		if o.Rule == KindCategoryAnalysis && o.Fired {
			t.Fatalf("category rule should be silent")
		}
		if o.Rule == KindTopN && !o.Fired {
			t.Fatalf("top n should still fire: %+v", o)
		}
	}
}

func TestExplainReportsEveryRule(t *testing.T) {
	outcomes := Explain(salesFixture())
	if len(outcomes) != len(rules) {
		t.Fatalf("outcomes = %d, want %d", len(outcomes), len(rules))
	}
	for _, o := range outcomes {
		if o.Rule == KindHeatmap {
			if o.Fired || !strings.Contains(o.Reason, "2 numeric") {
				t.Fatalf("heatmap outcome = %+v", o)
			}
		} else if !o.Fired {
			t.Fatalf("%s should fire: %s", o.Rule, o.Reason)
		}
	}
}

func TestRecommendDeterministic(t *testing.T) {
	ds := salesFixture()
	first := Recommend(ds)
	for i := 0; i < 5; i++ {
		if again := Recommend(ds); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %v vs %v", i, kinds(first), kinds(again))
		}
	}
}
