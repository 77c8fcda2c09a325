// Package csv turns delimited text into a typed dataset.Dataset and back.
//
// Reading is lenient, as real bronze files are rarely clean: quotes are
// parsed lazily, short rows are padded with nulls and over-long rows are
// skipped with a warning. Column types are inferred from the cells unless an
// explicit type hint is supplied for the column.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"dwetl/internal/dataset"
)

// Options configures the reader. Zero values select the defaults.
type Options struct {
	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// NoHeader means the first row is data; columns are named col_1..col_n.
	NoHeader bool

	// Types pins the type of the named columns (header text as read, after
	// BOM removal and trimming). Columns not listed are inferred.
	Types map[string]dataset.ColumnType

	// Logger receives per-row and per-column warnings. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Stats summarizes one read.
type Stats struct {
	Rows           int
	SkippedRows    int
	DroppedColumns []string
}

// ReadDataset parses r fully and returns the typed dataset.
func ReadDataset(r io.Reader, opt Options) (*dataset.Dataset, Stats, error) {
	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}
	var st Stats

	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return dataset.MustNew(), st, nil
	}
	if err != nil {
		return nil, st, fmt.Errorf("csv: read header: %w", err)
	}

	var headers []string
	var cells [][]string
	if opt.NoHeader {
		headers = make([]string, len(first))
		for i := range first {
			headers[i] = "col_" + strconv.Itoa(i+1)
		}
		cells = append(cells, first)
	} else {
		headers = cleanHeaders(StripHeaderBOM(first))
	}
	width := len(headers)

	line := 1
	for {
		row, err := cr.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				log.Warn("csv: skipping row", "line", line, "err", err)
				st.SkippedRows++
				continue
			}
			return nil, st, fmt.Errorf("csv: read line %d: %w", line, err)
		}
		if len(row) > width {
			log.Warn("csv: skipping row with extra fields", "line", line, "want", width, "got", len(row))
			st.SkippedRows++
			continue
		}
		cells = append(cells, row)
	}

	raw := make([][]string, width)
	for j := range raw {
		raw[j] = make([]string, len(cells))
	}
	for i, row := range cells {
		for j := 0; j < width; j++ {
			if j < len(row) {
				raw[j][i] = row[j]
			}
		}
	}

	cols := make([]dataset.Column, 0, width)
	for j, name := range headers {
		typ, hinted := opt.Types[name]
		if !hinted {
			typ = dataset.InferType(raw[j])
		}
		vals, err := dataset.Coerce(raw[j], typ)
		if err != nil {
			log.Warn("csv: dropping column", "column", name, "type", typ, "err", err)
			st.DroppedColumns = append(st.DroppedColumns, name)
			continue
		}
		cols = append(cols, dataset.Column{Name: name, Type: typ, Values: vals})
	}

	ds, err := dataset.New(cols...)
	if err != nil {
		return nil, st, fmt.Errorf("csv: %w", err)
	}
	st.Rows = ds.NumRows()
	return ds, st, nil
}

// cleanHeaders trims header cells, names blank ones "unnamed_<index>" and
// resolves duplicates.
func cleanHeaders(in []string) []string {
	out := make([]string, len(in))
	for i, h := range in {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "unnamed_" + strconv.Itoa(i)
		}
		out[i] = h
	}
	return dataset.UniqueNames(out)
}
