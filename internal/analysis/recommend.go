package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/flowviz-cli/internal/dataset"
)

// ChartKind names a recommended chart family.
type ChartKind string

const (
	KindTimeSeries       ChartKind = "time_series"
	KindHeatmap          ChartKind = "heatmap"
	KindDistribution     ChartKind = "distribution"
	KindCategoryAnalysis ChartKind = "category_analysis"
	KindTopN             ChartKind = "top_n"
)

// Limits applied when building specifications.
const (
	maxTimeSeriesY    = 3
	maxHeatmapColumns = 10
	maxDistribution   = 3
	maxCategoryValues = 2
	minCategoryGroups = 2
	maxCategoryGroups = 20
	defaultTopN       = 10
)

// Spec is a chart specification produced by Recommend. Implementations are
// the *Spec structs of this package.
type Spec interface {
	Kind() ChartKind
	Meta() SpecMeta
}

// SpecMeta is shared by every specification. Priority 1 is the highest.
type SpecMeta struct {
	Title    string `json:"title"`
	Priority int    `json:"priority"`
}

// Meta returns the shared fields.
func (m SpecMeta) Meta() SpecMeta { return m }

type TimeSeriesSpec struct {
	SpecMeta
	X          string         `json:"x"`
	Y          []string       `json:"y"`
	DateFormat DatetimeFormat `json:"date_format,omitempty"`
}

func (TimeSeriesSpec) Kind() ChartKind { return KindTimeSeries }

type HeatmapSpec struct {
	SpecMeta
	Columns []string `json:"columns"`
}

func (HeatmapSpec) Kind() ChartKind { return KindHeatmap }

type DistributionSpec struct {
	SpecMeta
	Columns []string `json:"columns"`
}

func (DistributionSpec) Kind() ChartKind { return KindDistribution }

type CategorySpec struct {
	SpecMeta
	Category string   `json:"category"`
	Values   []string `json:"values"`
}

func (CategorySpec) Kind() ChartKind { return KindCategoryAnalysis }

type TopNSpec struct {
	SpecMeta
	Category string `json:"category"`
	Value    string `json:"value"`
	N        int    `json:"n"`
}

func (TopNSpec) Kind() ChartKind { return KindTopN }

// RuleOutcome records whether a rule fired for a dataset, and why not.
type RuleOutcome struct {
	Rule   ChartKind `json:"rule"`
	Fired  bool      `json:"fired"`
	Reason string    `json:"reason,omitempty"`
}

// rule is one predicate -> specification entry. build returns nil and a
// reason when the rule does not apply.
type rule struct {
	kind  ChartKind
	build func(ds *dataset.Dataset, c Classification) (Spec, string)
}

var rules = []rule{
	{KindTimeSeries, timeSeriesRule},
	{KindHeatmap, heatmapRule},
	{KindDistribution, distributionRule},
	{KindCategoryAnalysis, categoryRule},
	{KindTopN, topNRule},
}

// Recommend classifies ds and returns the chart specifications that apply,
// sorted by ascending priority. It never fails; an empty dataset gives no
// specifications.
func Recommend(ds *dataset.Dataset) []Spec {
	specs, _ := evaluate(ds, Classify(ds))
	return specs
}

// RecommendWith runs the rule table against an existing classification.
func RecommendWith(ds *dataset.Dataset, c Classification) []Spec {
	specs, _ := evaluate(ds, c)
	return specs
}

// Explain reports the outcome of every rule in table order.
func Explain(ds *dataset.Dataset) []RuleOutcome {
	_, outcomes := evaluate(ds, Classify(ds))
	return outcomes
}

// ExplainWith is Explain over an existing classification.
func ExplainWith(ds *dataset.Dataset, c Classification) []RuleOutcome {
	_, outcomes := evaluate(ds, c)
	return outcomes
}

func evaluate(ds *dataset.Dataset, c Classification) ([]Spec, []RuleOutcome) {
	specs := make([]Spec, 0, len(rules))
	outcomes := make([]RuleOutcome, 0, len(rules))
	for _, r := range rules {
		spec, reason := r.build(ds, c)
		if spec == nil {
			outcomes = append(outcomes, RuleOutcome{Rule: r.kind, Reason: reason})
			continue
		}
		specs = append(specs, spec)
		outcomes = append(outcomes, RuleOutcome{Rule: r.kind, Fired: true})
	}
	sort.SliceStable(specs, func(i, j int) bool {
		return specs[i].Meta().Priority < specs[j].Meta().Priority
	})
	return specs, outcomes
}

func timeSeriesRule(_ *dataset.Dataset, c Classification) (Spec, string) {
	if len(c.Datetime) == 0 {
		return nil, "no datetime column"
	}
	if len(c.Numeric) == 0 {
		return nil, "no numeric column"
	}
	x := c.Datetime[0]
	return TimeSeriesSpec{
		SpecMeta:   SpecMeta{Title: "Time Series Analysis", Priority: 1},
		X:          x,
		Y:          head(c.Numeric, maxTimeSeriesY),
		DateFormat: c.Formats[x],
	}, ""
}

func heatmapRule(_ *dataset.Dataset, c Classification) (Spec, string) {
	if len(c.Numeric) < 2 {
		return nil, fmt.Sprintf("needs at least 2 numeric columns, have %d", len(c.Numeric))
	}
	return HeatmapSpec{
		SpecMeta: SpecMeta{Title: "Correlation Heatmap", Priority: 2},
		Columns:  head(c.Numeric, maxHeatmapColumns),
	}, ""
}

func distributionRule(ds *dataset.Dataset, c Classification) (Spec, string) {
	if len(c.Numeric) == 0 {
		return nil, "no numeric column"
	}
	return DistributionSpec{
		SpecMeta: SpecMeta{Title: "Distribution Analysis", Priority: 3},
		Columns:  head(byVariance(ds, c.Numeric), maxDistribution),
	}, ""
}

func categoryRule(ds *dataset.Dataset, c Classification) (Spec, string) {
	if len(c.Categorical) == 0 {
		return nil, "no categorical column"
	}
	if len(c.Numeric) == 0 {
		return nil, "no numeric column"
	}
	for _, name := range c.Categorical {
		col, ok := ds.Column(name)
		if !ok {
			continue
		}
		if n := DistinctCount(col); n >= minCategoryGroups && n <= maxCategoryGroups {
			return CategorySpec{
				SpecMeta: SpecMeta{Title: "Analysis by " + name, Priority: 4},
				Category: name,
				Values:   head(c.Numeric, maxCategoryValues),
			}, ""
		}
	}
	return nil, fmt.Sprintf("no categorical column with %d-%d distinct values", minCategoryGroups, maxCategoryGroups)
}

func topNRule(_ *dataset.Dataset, c Classification) (Spec, string) {
	if len(c.Categorical) == 0 {
		return nil, "no categorical column"
	}
	if len(c.Numeric) == 0 {
		return nil, "no numeric column"
	}
	value := c.Numeric[0]
	return TopNSpec{
		SpecMeta: SpecMeta{Title: fmt.Sprintf("Top %d by %s", defaultTopN, value), Priority: 5},
		Category: c.Categorical[0],
		Value:    value,
		N:        defaultTopN,
	}, ""
}

// byVariance orders names by descending sample variance. Ties keep column
// order and undefined variances go last.
func byVariance(ds *dataset.Dataset, names []string) []string {
	type ranked struct {
		name string
		v    float64
	}
	rs := make([]ranked, 0, len(names))
	for _, name := range names {
		col, _ := ds.NumericColumn(name)
		rs = append(rs, ranked{name: name, v: SampleVariance(col)})
	}
	sort.SliceStable(rs, func(i, j int) bool {
		vi, vj := rs[i].v, rs[j].v
		if math.IsNaN(vj) {
			return !math.IsNaN(vi)
		}
		if math.IsNaN(vi) {
			return false
		}
		return vi > vj
	})
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.name
	}
	return out
}

func head(s []string, n int) []string {
	if len(s) > n {
		s = s[:n]
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
