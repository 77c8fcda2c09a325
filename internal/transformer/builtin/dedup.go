package builtin

import (
	"encoding/binary"
	"math"
	"time"

	"dwetl/internal/dataset"

	"github.com/zeebo/xxh3"
)

// DedupRows removes exact duplicate rows, keeping the first occurrence and
// preserving order. Rows are bucketed by an xxh3 hash of their encoded
// values and confirmed with a full value comparison, so hash collisions
// never merge distinct rows.
type DedupRows struct{}

func (DedupRows) Name() string { return "dedup_rows" }

func (DedupRows) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	n := ds.NumRows()
	cols := ds.Columns()
	buckets := make(map[uint64][]int, n)
	keep := make([]int, 0, n)
	var buf []byte

rows:
	for i := 0; i < n; i++ {
		buf = buf[:0]
		for _, c := range cols {
			buf = appendValue(buf, c.Values[i])
		}
		h := xxh3.Hash(buf)
		for _, j := range buckets[h] {
			if sameRow(cols, i, j) {
				continue rows
			}
		}
		buckets[h] = append(buckets[h], i)
		keep = append(keep, i)
	}
	if len(keep) == n {
		return ds, nil
	}
	return ds.SelectRows(keep), nil
}

func sameRow(cols []dataset.Column, i, j int) bool {
	for _, c := range cols {
		if !dataset.Equal(c.Values[i], c.Values[j]) {
			return false
		}
	}
	return true
}

// appendValue writes a type-tagged, length-prefixed encoding of v.
func appendValue(b []byte, v any) []byte {
	switch t := v.(type) {
	case nil:
		return append(b, 0)
	case int64:
		b = append(b, 1)
		return binary.LittleEndian.AppendUint64(b, uint64(t))
	case float64:
		b = append(b, 2)
		return binary.LittleEndian.AppendUint64(b, math.Float64bits(t))
	case bool:
		if t {
			return append(b, 3, 1)
		}
		return append(b, 3, 0)
	case string:
		b = append(b, 4)
		b = binary.AppendUvarint(b, uint64(len(t)))
		return append(b, t...)
	case []byte:
		b = append(b, 5)
		b = binary.AppendUvarint(b, uint64(len(t)))
		return append(b, t...)
	case time.Time:
		b = append(b, 6)
		b = binary.LittleEndian.AppendUint64(b, uint64(t.Unix()))
		return binary.LittleEndian.AppendUint32(b, uint32(t.Nanosecond()))
	case time.Duration:
		b = append(b, 7)
		return binary.LittleEndian.AppendUint64(b, uint64(t))
	default:
		s := dataset.String(t)
		b = append(b, 8)
		b = binary.AppendUvarint(b, uint64(len(s)))
		return append(b, s...)
	}
}
