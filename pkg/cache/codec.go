package cache

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/datanorm/datanorm/pkg/frame"
)

// The payload format is CSV with two header rows: column names, then
// dtypes. Index levels are serialized as leading columns; their names are
// kept separately so decoding can re-promote them. Empty cells decode as
// missing, which is lossless for every dtype except empty strings.

// indexColumnsSep separates index level names in the stored column list.
// The unit separator cannot appear in a sane column name.
const indexColumnsSep = "\x1f"

func encodeIndexColumns(names []string) string {
	return strings.Join(names, indexColumnsSep)
}

func decodeIndexColumns(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, indexColumnsSep)
}

// encodeFrame renders a frame as a CSV payload plus the index level names.
func encodeFrame(f *frame.Frame) (payload string, indexColumns []string, err error) {
	flat := f.Copy(false)
	indexColumns = flat.IndexLevels()
	if err := flat.ResetIndex(); err != nil {
		return "", nil, fmt.Errorf("flattening index: %w", err)
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)

	names := flat.Columns()
	dtypes := make([]string, len(names))
	cols := make([]*frame.Series, len(names))
	for i, name := range names {
		c, err := flat.Column(name)
		if err != nil {
			return "", nil, err
		}
		cols[i] = c
		dtypes[i] = string(c.DType())
	}
	if err := w.Write(names); err != nil {
		return "", nil, err
	}
	if err := w.Write(dtypes); err != nil {
		return "", nil, err
	}

	row := make([]string, len(cols))
	for i := 0; i < flat.NumRows(); i++ {
		for j, c := range cols {
			if c.IsNA(i) {
				row[j] = ""
			} else {
				row[j] = c.Strings()[i]
			}
		}
		if err := w.Write(row); err != nil {
			return "", nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", nil, err
	}
	return sb.String(), indexColumns, nil
}

// decodeFrame rebuilds a frame from a CSV payload and its index level
// names.
func decodeFrame(payload string, indexColumns []string) (*frame.Frame, error) {
	r := csv.NewReader(strings.NewReader(payload))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading cached payload: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("cached payload is missing its headers")
	}
	names, dtypes := records[0], records[1]
	if len(names) != len(dtypes) {
		return nil, fmt.Errorf("header length mismatch: %d names, %d dtypes", len(names), len(dtypes))
	}

	cols := make([]*frame.Series, len(names))
	for j, name := range names {
		cells := make([]any, len(records)-2)
		for i, rec := range records[2:] {
			if rec[j] != "" {
				cells[i] = rec[j]
			}
		}
		s, err := frame.NewSeries(name, frame.DType(dtypes[j]), cells)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		cols[j] = s
	}

	f, err := frame.New(cols...)
	if err != nil {
		return nil, err
	}
	if len(indexColumns) > 0 {
		if err := f.SetIndex(indexColumns); err != nil {
			return nil, err
		}
	}
	return f, nil
}
