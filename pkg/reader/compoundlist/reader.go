// Package compoundlist loads target compound definitions from an SQLite
// reference database.
package compoundlist

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"mzmatch/pkg/core"
)

// TableName is the reference table read from the compound database.
const TableName = "compoundlist"

// Required compound columns. Every column, required or not, is preserved as
// a passthrough attribute.
var requiredColumns = []string{"mass_to_charge_ratio", "retention_time", "retention_time_tolerance"}

// Result is a loaded compound list plus any rows skipped under SkipBadRows.
type Result struct {
	Compounds []core.CompoundTarget
	Skipped   []*core.RowParseError
}

// LoadFile reads the compoundlist table from an SQLite database file. The
// database is opened read-only and never modified.
func LoadFile(path string, policy core.BadRowPolicy) (*Result, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("compound database does not exist: %s", path)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open compound database: %w", err)
	}
	defer db.Close()

	return load(db, path, policy)
}

func load(db *sql.DB, source string, policy core.BadRowPolicy) (*Result, error) {
	rows, err := db.Query("SELECT * FROM " + TableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", TableName, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read table columns: %w", err)
	}
	colIndex := make(map[string]int, len(columns))
	for i, name := range columns {
		colIndex[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := colIndex[name]; !ok {
			return nil, &core.SchemaError{Source: source, Table: TableName, Column: name}
		}
	}

	result := &Result{}
	row := 0
	for rows.Next() {
		row++
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", row, err)
		}

		compound, badRow := buildCompound(columns, colIndex, values, source, row)
		if badRow != nil {
			if policy == core.SkipBadRows {
				result.Skipped = append(result.Skipped, badRow)
				continue
			}
			return nil, badRow
		}
		result.Compounds = append(result.Compounds, *compound)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate table %s: %w", TableName, err)
	}

	return result, nil
}

// buildCompound converts one scanned row into a CompoundTarget, preserving
// every column verbatim as a passthrough attribute.
func buildCompound(columns []string, colIndex map[string]int, values []any, source string, row int) (*core.CompoundTarget, *core.RowParseError) {
	compound := &core.CompoundTarget{Row: row}

	attrs := make(core.Attributes, len(columns))
	for i, name := range columns {
		attrs[i] = core.Attribute{Name: name, Value: normalizeValue(values[i])}
	}
	compound.Attrs = attrs

	// Expected m/z is mandatory per row.
	mz, ok := toFloat(values[colIndex["mass_to_charge_ratio"]])
	if !ok {
		return nil, parseError(source, row, "mass_to_charge_ratio", values[colIndex["mass_to_charge_ratio"]])
	}
	compound.MZ = mz

	// Retention time may be NULL: such a compound matches on mass alone.
	if v := values[colIndex["retention_time"]]; v != nil {
		rt, ok := toFloat(v)
		if !ok {
			return nil, parseError(source, row, "retention_time", v)
		}
		compound.RT = &rt
	}

	// Tolerance may be NULL: the run-level default applies.
	if v := values[colIndex["retention_time_tolerance"]]; v != nil {
		tol, ok := toFloat(v)
		if !ok {
			return nil, parseError(source, row, "retention_time_tolerance", v)
		}
		if !math.IsNaN(tol) {
			compound.RTTolerance = &tol
		}
	}

	return compound, nil
}

// normalizeValue rewrites driver byte slices as strings so attribute values
// survive row reuse and compare cleanly.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// toFloat coerces an SQLite dynamic value to float64.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case []byte:
		return parseFloatText(string(x))
	case string:
		return parseFloatText(x)
	default:
		return 0, false
	}
}

func parseFloatText(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseError(source string, row int, column string, v any) *core.RowParseError {
	return &core.RowParseError{
		Source: source,
		Row:    row,
		Column: column,
		Value:  fmt.Sprintf("%v", v),
	}
}
