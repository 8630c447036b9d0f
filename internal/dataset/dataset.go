package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Kind is the element kind of a column as decoded from the source file.
type Kind int

const (
	KindText Kind = iota
	KindInteger
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	default:
		return "text"
	}
}

// IsNumeric reports whether the kind holds numbers.
func (k Kind) IsNumeric() bool { return k == KindInteger || k == KindFloat }

var (
	ErrDuplicateColumn = errors.New("duplicate column name")
	ErrRaggedColumns   = errors.New("columns have different lengths")
)

// Column is a named sequence of cells of one element kind. Numeric columns
// store values in Num, text columns in Text; Null marks missing cells.
type Column struct {
	Name string
	Kind Kind
	Num  []float64
	Text []string
	Null []bool
}

// NumericColumn builds a float column. A NaN value is treated as missing.
func NumericColumn(name string, values []float64) Column {
	c := Column{Name: name, Kind: KindFloat, Num: make([]float64, len(values)), Null: make([]bool, len(values))}
	for i, v := range values {
		c.Num[i] = v
		c.Null[i] = math.IsNaN(v)
	}
	return c
}

// IntegerColumn builds an integer column.
func IntegerColumn(name string, values []int64) Column {
	c := Column{Name: name, Kind: KindInteger, Num: make([]float64, len(values)), Null: make([]bool, len(values))}
	for i, v := range values {
		c.Num[i] = float64(v)
	}
	return c
}

// TextColumn builds a text column. Empty strings are treated as missing.
func TextColumn(name string, values []string) Column {
	c := Column{Name: name, Kind: KindText, Text: make([]string, len(values)), Null: make([]bool, len(values))}
	for i, v := range values {
		c.Text[i] = v
		c.Null[i] = v == ""
	}
	return c
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Null) }

// Missing reports whether cell i is missing.
func (c *Column) Missing(i int) bool { return i < 0 || i >= len(c.Null) || c.Null[i] }

// Float returns cell i as a number. Text cells never convert.
func (c *Column) Float(i int) (float64, bool) {
	if !c.Kind.IsNumeric() || c.Missing(i) {
		return 0, false
	}
	return c.Num[i], true
}

// String returns cell i formatted as text.
func (c *Column) String(i int) (string, bool) {
	if c.Missing(i) {
		return "", false
	}
	switch c.Kind {
	case KindInteger:
		return strconv.FormatInt(int64(c.Num[i]), 10), true
	case KindFloat:
		return strconv.FormatFloat(c.Num[i], 'f', -1, 64), true
	default:
		return c.Text[i], true
	}
}

// Value returns cell i as float64, string or nil.
func (c *Column) Value(i int) any {
	if c.Missing(i) {
		return nil
	}
	switch c.Kind {
	case KindInteger:
		return int64(c.Num[i])
	case KindFloat:
		return c.Num[i]
	default:
		return c.Text[i]
	}
}

// Values returns the non-missing numbers of a numeric column.
func (c *Column) Values() []float64 {
	if !c.Kind.IsNumeric() {
		return nil
	}
	out := make([]float64, 0, len(c.Num))
	for i, v := range c.Num {
		if !c.Null[i] {
			out = append(out, v)
		}
	}
	return out
}

// Strings returns the non-missing cells of a text column, in row order.
func (c *Column) Strings() []string {
	out := make([]string, 0, c.Len())
	for i := 0; i < c.Len(); i++ {
		if s, ok := c.String(i); ok {
			out = append(out, s)
		}
	}
	return out
}

// Dataset is a rectangular table of named columns. It is never mutated
// after construction; operations derive new tables instead.
type Dataset struct {
	Name  string
	cols  []Column
	index map[string]int
	rows  int
}

// New validates the columns and builds a dataset.
func New(name string, cols ...Column) (*Dataset, error) {
	ds := &Dataset{Name: name, cols: cols, index: make(map[string]int, len(cols))}
	for i := range cols {
		if _, dup := ds.index[cols[i].Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, cols[i].Name)
		}
		ds.index[cols[i].Name] = i
		if i == 0 {
			ds.rows = cols[i].Len()
		} else if cols[i].Len() != ds.rows {
			return nil, fmt.Errorf("%w: %q has %d rows, want %d", ErrRaggedColumns, cols[i].Name, cols[i].Len(), ds.rows)
		}
	}
	return ds, nil
}

// MustNew is New for fixtures; it panics on invalid input.
func MustNew(name string, cols ...Column) *Dataset {
	ds, err := New(name, cols...)
	if err != nil {
		panic(err)
	}
	return ds
}

// NumRows returns the number of rows.
func (d *Dataset) NumRows() int { return d.rows }

// NumCols returns the number of columns.
func (d *Dataset) NumCols() int { return len(d.cols) }

// Columns returns the columns in their original order.
func (d *Dataset) Columns() []Column { return d.cols }

// Names returns column names in order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.cols))
	for i := range d.cols {
		out[i] = d.cols[i].Name
	}
	return out
}

// Column looks a column up by name.
func (d *Dataset) Column(name string) (*Column, bool) {
	if d == nil {
		return nil, false
	}
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return &d.cols[i], true
}

// NumericColumn looks a column up by name and requires a numeric kind.
func (d *Dataset) NumericColumn(name string) (*Column, bool) {
	c, ok := d.Column(name)
	if !ok || !c.Kind.IsNumeric() {
		return nil, false
	}
	return c, true
}

// NumericNames returns the names of integer and float columns in order.
func (d *Dataset) NumericNames() []string {
	if d == nil {
		return nil
	}
	var out []string
	for i := range d.cols {
		if d.cols[i].Kind.IsNumeric() {
			out = append(out, d.cols[i].Name)
		}
	}
	return out
}
