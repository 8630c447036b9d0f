package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes ds as comma-separated text with a header row. Missing
// cells are written empty so that ReadCSV restores them as missing.
func WriteCSV(w io.Writer, ds *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	cols := ds.Columns()
	rec := make([]string, len(cols))
	for i := 0; i < ds.NumRows(); i++ {
		for j := range cols {
			rec[j], _ = cols[j].String(i)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
