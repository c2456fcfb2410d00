// Package export dumps tables from a result database to delimited files.
package export

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Table writes one table of a result database as CSV: a header row of column
// names, then data rows in insertion order. NULLs become empty fields. The
// database is opened read-only.
func Table(dbPath, table string, w io.Writer) error {
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open result database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query("SELECT * FROM " + quoteIdent(table))
	if err != nil {
		return fmt.Errorf("failed to query table %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("failed to read table columns: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	record := make([]string, len(columns))

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			record[i] = formatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate table %s: %w", table, err)
	}

	cw.Flush()
	return cw.Error()
}

// ToFile exports a table to a CSV file on disk.
func ToFile(dbPath, table, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	if err := Table(dbPath, table, f); err != nil {
		f.Close()
		os.Remove(outPath)
		return err
	}
	return f.Close()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case []byte:
		return string(x)
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
