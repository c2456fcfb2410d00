// Package peaklist loads experimental MS peak lists from CSV files.
package peaklist

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"mzmatch/pkg/core"
)

// Required peak list columns. Additional columns are ignored.
var requiredColumns = []string{"mz", "rt", "intensity"}

// Options configures a peak list load.
type Options struct {
	Source  string // name used in error messages
	BadRows core.BadRowPolicy
}

// Result is a loaded peak list plus any rows skipped under SkipBadRows.
type Result struct {
	Peaks   []core.Peak
	Skipped []*core.RowParseError
}

// LoadFile reads a peak list CSV from disk.
func LoadFile(path string, policy core.BadRowPolicy) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open peak list: %w", err)
	}
	defer f.Close()

	return Load(f, Options{Source: path, BadRows: policy})
}

// Load parses a peak list from CSV. The first record is the header; `mz`,
// `rt`, and `intensity` columns are required and must hold finite numeric
// values. Row order is preserved and each peak records its 1-based data row.
func Load(r io.Reader, opts Options) (*Result, error) {
	if opts.Source == "" {
		opts.Source = "peaklist"
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &core.SchemaError{Source: opts.Source, Column: requiredColumns[0]}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read peak list header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, &core.SchemaError{Source: opts.Source, Column: name}
		}
	}

	result := &Result{}
	row := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read peak list row: %w", err)
		}
		row++

		peak := core.Peak{Row: row}
		var badRow *core.RowParseError
		for _, name := range requiredColumns {
			v, perr := parseField(record, cols[name], opts.Source, row, name)
			if perr != nil {
				badRow = perr
				break
			}
			switch name {
			case "mz":
				peak.MZ = v
			case "rt":
				peak.RT = v
			case "intensity":
				peak.Intensity = v
			}
		}

		if badRow != nil {
			if opts.BadRows == core.SkipBadRows {
				result.Skipped = append(result.Skipped, badRow)
				continue
			}
			return nil, badRow
		}
		result.Peaks = append(result.Peaks, peak)
	}

	return result, nil
}

// parseField extracts one required numeric field from a CSV record.
func parseField(record []string, idx int, source string, row int, column string) (float64, *core.RowParseError) {
	if idx >= len(record) {
		return 0, &core.RowParseError{Source: source, Row: row, Column: column, Value: ""}
	}
	raw := strings.TrimSpace(record[idx])
	if raw == "" {
		return 0, &core.RowParseError{Source: source, Row: row, Column: column, Value: ""}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &core.RowParseError{Source: source, Row: row, Column: column, Value: raw, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &core.RowParseError{Source: source, Row: row, Column: column, Value: raw}
	}
	return v, nil
}
