package csv

import (
	"encoding/csv"
	"fmt"
	"io"

	"dwetl/internal/dataset"
)

// WriteDataset writes ds as a header row followed by one record per row.
// Nulls are written as empty cells; dates and times use their short forms.
func WriteDataset(w io.Writer, ds *dataset.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Names()); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	cols := ds.Columns()
	rec := make([]string, len(cols))
	for i := 0; i < ds.NumRows(); i++ {
		for j, c := range cols {
			rec[j] = dataset.FormatValue(c.Type, c.Values[i])
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("csv: write row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}
	return nil
}
