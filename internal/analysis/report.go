package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/flowviz-cli/internal/dataset"
)

// Report is a markdown-friendly overview of a dataset and the charts
// recommended for it.
type Report struct {
	Name            string           `json:"name"`
	Rows            int              `json:"rows"`
	Cols            []ColumnSummary  `json:"columns"`
	Classification  Classification   `json:"classification"`
	Recommendations []Recommendation `json:"recommendations"`
	Rules           []RuleOutcome    `json:"rules"`
	Corr            *CorrMatrix      `json:"correlations,omitempty"`
	Samples         [][]string       `json:"samples,omitempty"`
}

// Recommendation pairs a specification with its kind for serialization.
type Recommendation struct {
	Kind ChartKind `json:"kind"`
	Spec Spec      `json:"spec"`
}

// ColumnSummary captures the role and statistics of one column.
type ColumnSummary struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"` // numeric|datetime|categorical
	NonNull int    `json:"non_null"`
	Missing int    `json:"missing"`
	Unique  int    `json:"unique"`
	// Numeric stats
	Min    float64 `json:"min,omitempty"`
	Max    float64 `json:"max,omitempty"`
	Mean   float64 `json:"mean,omitempty"`
	Std    float64 `json:"std,omitempty"`
	Median float64 `json:"median,omitempty"`
	MAD    float64 `json:"mad,omitempty"`
	// Datetime
	Format DatetimeFormat `json:"format,omitempty"`
	// Categorical
	TopValues []CategoryCount `json:"top_values,omitempty"`
}

// CategoryCount is a value and how often it occurs.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

const (
	reportTopValues = 5
	reportMaxPairs  = 10
)

// Analyze classifies ds, runs the rule table and collects per-column
// statistics. sampleRows bounds the head rows kept for the report.
func Analyze(ds *dataset.Dataset, sampleRows int) *Report {
	c := Classify(ds)
	specs, outcomes := evaluate(ds, c)
	rep := &Report{Name: ds.Name, Rows: ds.NumRows(), Classification: c, Rules: outcomes}
	for _, s := range specs {
		rep.Recommendations = append(rep.Recommendations, Recommendation{Kind: s.Kind(), Spec: s})
	}
	cols := ds.Columns()
	for i := range cols {
		rep.Cols = append(rep.Cols, summarizeColumn(&cols[i], c))
	}
	if len(c.Numeric) >= 2 {
		rep.Corr = Correlate(ds, c.Numeric)
	}
	for r := 0; r < ds.NumRows() && r < sampleRows; r++ {
		row := make([]string, len(cols))
		for j := range cols {
			row[j], _ = cols[j].String(r)
		}
		rep.Samples = append(rep.Samples, row)
	}
	return rep
}

func summarizeColumn(col *dataset.Column, c Classification) ColumnSummary {
	t, _ := c.TypeOf(col.Name)
	cs := ColumnSummary{Name: col.Name, Kind: t.String()}
	counts := map[string]int{}
	for i := 0; i < col.Len(); i++ {
		s, ok := col.String(i)
		if !ok {
			cs.Missing++
			continue
		}
		cs.NonNull++
		counts[s]++
	}
	cs.Unique = len(counts)
	switch t {
	case TypeNumeric:
		s := Summarize(col)
		if s.Count > 0 {
			cs.Min, cs.Max, cs.Mean = s.Min, s.Max, s.Mean
		}
		if s.Count > 1 {
			cs.Std = s.Std()
		}
		cs.Median, cs.MAD = medianMAD(col.Values())
	case TypeDatetime:
		cs.Format = c.Formats[col.Name]
	default:
		tops := make([]CategoryCount, 0, len(counts))
		for v, n := range counts {
			tops = append(tops, CategoryCount{Value: v, Count: n})
		}
		sort.Slice(tops, func(i, j int) bool {
			if tops[i].Count == tops[j].Count {
				return tops[i].Value < tops[j].Value
			}
			return tops[i].Count > tops[j].Count
		})
		if len(tops) > reportTopValues {
			tops = tops[:reportTopValues]
		}
		cs.TopValues = tops
	}
	return cs
}

// Markdown renders the report as sectioned plain text.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d (numeric %d, categorical %d, datetime %d)\n\n",
		len(r.Cols), len(r.Classification.Numeric), len(r.Classification.Categorical), len(r.Classification.Datetime)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case "numeric":
			if c.NonNull > 0 {
				b.WriteString(fmt.Sprintf(": min %.4g, max %.4g, mean %.4g, std %.4g, median %.4g", c.Min, c.Max, c.Mean, c.Std, c.Median))
			}
		case "datetime":
			b.WriteString(fmt.Sprintf(": format %s", c.Format))
		default:
			if len(c.TopValues) > 0 {
				b.WriteString(": top ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("\n[RECOMMENDATIONS]\n")
	if len(r.Recommendations) == 0 {
		b.WriteString("- none\n")
	}
	for i, rec := range r.Recommendations {
		m := rec.Spec.Meta()
		b.WriteString(fmt.Sprintf("%d. %s (%s, priority %d): %s\n", i+1, m.Title, rec.Kind, m.Priority, describe(rec.Spec)))
	}
	var skipped []RuleOutcome
	for _, o := range r.Rules {
		if !o.Fired {
			skipped = append(skipped, o)
		}
	}
	if len(skipped) > 0 {
		b.WriteString("\n[SKIPPED RULES]\n")
		for _, o := range skipped {
			b.WriteString(fmt.Sprintf("- %s: %s\n", o.Rule, o.Reason))
		}
	}

	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		type pr struct {
			A, B string
			R    float64
		}
		var pairs []pr
		n := len(r.Corr.Columns)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				pairs = append(pairs, pr{A: r.Corr.Columns[i], B: r.Corr.Columns[j], R: r.Corr.Values[i][j]})
			}
		}
		sort.SliceStable(pairs, func(i, j int) bool {
			return math.Abs(pairs[i].R) > math.Abs(pairs[j].R)
		})
		if len(pairs) > reportMaxPairs {
			pairs = pairs[:reportMaxPairs]
		}
		for _, p := range pairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", safeName(p.A), safeName(p.B), p.R))
		}
	}

	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n|")
		for range r.Cols {
			b.WriteString(" --- |")
		}
		b.WriteString("\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i, val := range row {
				if i > 0 {
					b.WriteString(" | ")
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	return b.String()
}

func describe(s Spec) string {
	switch v := s.(type) {
	case TimeSeriesSpec:
		return fmt.Sprintf("x=%s, y=%s, format %s", v.X, strings.Join(v.Y, ", "), v.DateFormat)
	case HeatmapSpec:
		return strings.Join(v.Columns, ", ")
	case DistributionSpec:
		return strings.Join(v.Columns, ", ")
	case CategorySpec:
		return fmt.Sprintf("mean of %s by %s", strings.Join(v.Values, ", "), v.Category)
	case TopNSpec:
		return fmt.Sprintf("top %d %s by %s", v.N, v.Category, v.Value)
	}
	return ""
}

func safeName(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
