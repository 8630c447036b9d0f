package analysis

import (
	"github.com/KaramelBytes/flowviz-cli/internal/dataset"
)

// ColumnType is the analysis role of a column, decided once per pass.
type ColumnType int

const (
	TypeCategorical ColumnType = iota
	TypeNumeric
	TypeDatetime
)

func (t ColumnType) String() string {
	switch t {
	case TypeNumeric:
		return "numeric"
	case TypeDatetime:
		return "datetime"
	default:
		return "categorical"
	}
}

// Classification partitions a dataset's columns. Every column appears in
// exactly one list, in the dataset's column order.
type Classification struct {
	Numeric     []string `json:"numeric"`
	Categorical []string `json:"categorical"`
	Datetime    []string `json:"datetime"`
	// Formats holds the detected fixed format of each datetime column.
	Formats map[string]DatetimeFormat `json:"formats,omitempty"`

	types map[string]ColumnType
}

// TypeOf returns the role assigned to a column.
func (c Classification) TypeOf(name string) (ColumnType, bool) {
	t, ok := c.types[name]
	return t, ok
}

// Len returns the number of classified columns.
func (c Classification) Len() int {
	return len(c.Numeric) + len(c.Categorical) + len(c.Datetime)
}

// Classify buckets columns into numeric, categorical and datetime. A text
// column becomes datetime when any non-missing value parses, with the
// detected fixed format when there is one.
func Classify(ds *dataset.Dataset) Classification {
	return classify(ds, anyParses)
}

// ClassifyStrict is Classify with a stricter datetime test: every
// non-missing value must parse with the generic parser.
func ClassifyStrict(ds *dataset.Dataset) Classification {
	return classify(ds, allParse)
}

type datetimeTest func(col *dataset.Column) (DatetimeFormat, bool)

func classify(ds *dataset.Dataset, isDatetime datetimeTest) Classification {
	c := Classification{Formats: map[string]DatetimeFormat{}, types: map[string]ColumnType{}}
	if ds == nil {
		return c
	}
	cols := ds.Columns()
	for i := range cols {
		col := &cols[i]
		switch {
		case col.Kind.IsNumeric():
			c.Numeric = append(c.Numeric, col.Name)
			c.types[col.Name] = TypeNumeric
		default:
			if f, ok := isDatetime(col); ok {
				c.Datetime = append(c.Datetime, col.Name)
				c.Formats[col.Name] = f
				c.types[col.Name] = TypeDatetime
				continue
			}
			c.Categorical = append(c.Categorical, col.Name)
			c.types[col.Name] = TypeCategorical
		}
	}
	return c
}

func anyParses(col *dataset.Column) (DatetimeFormat, bool) {
	f := DetectFormat(col)
	for i := 0; i < col.Len(); i++ {
		s, ok := col.String(i)
		if !ok {
			continue
		}
		if _, ok := ParseWithFormat(f, s); ok {
			return f, true
		}
	}
	return NoFixedFormat, false
}

func allParse(col *dataset.Column) (DatetimeFormat, bool) {
	seen := false
	for i := 0; i < col.Len(); i++ {
		s, ok := col.String(i)
		if !ok {
			continue
		}
		if _, ok := ParseTime(s); !ok {
			return NoFixedFormat, false
		}
		seen = true
	}
	if !seen {
		return NoFixedFormat, false
	}
	return DetectFormat(col), true
}
