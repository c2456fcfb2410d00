// Package sqlite persists match results to an SQLite database artifact.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"mzmatch/pkg/core"
)

const (
	// ResultsTable holds one row per (compound, matching peak) pair, or one
	// matched=0 row for an unmatched compound.
	ResultsTable = "match_results"
	// SummaryTable holds per-identified-compound aggregates.
	SummaryTable = "compound_summary"
)

// Writer assembles a result database. All writes go to a temporary file next
// to the target path; the target is replaced only on a successful Finalize,
// so a failed run leaves any prior output untouched.
type Writer struct {
	db          *sql.DB
	outputPath  string
	tmpPath     string
	columns     []string // compound passthrough column names, source order
	resultStmt  *sql.Stmt
	summaryStmt *sql.Stmt
	finalized   bool
}

// NewWriter creates a result database writer. The compound slice supplies the
// passthrough column set; the schema is fixed from it regardless of how many
// rows are eventually written.
func NewWriter(outputPath string, compounds []core.CompoundTarget) (*Writer, error) {
	columns := compoundColumns(compounds)
	tmpPath := outputPath + ".tmp"

	// A stale temp file from a crashed run would make sqlite reuse old data.
	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		return nil, &core.SinkWriteError{Path: outputPath, Err: err}
	}

	db, err := sql.Open("sqlite3", tmpPath)
	if err != nil {
		return nil, &core.SinkWriteError{Path: outputPath, Err: err}
	}

	w := &Writer{
		db:         db,
		outputPath: outputPath,
		tmpPath:    tmpPath,
		columns:    columns,
	}

	if err := w.createTables(compounds); err != nil {
		w.abort()
		return nil, &core.SinkWriteError{Path: outputPath, Err: err}
	}
	if err := w.prepareStatements(); err != nil {
		w.abort()
		return nil, &core.SinkWriteError{Path: outputPath, Err: err}
	}

	return w, nil
}

// compoundColumns returns the passthrough column names, falling back to the
// required reference columns when the compound list is empty so the output
// schema stays self-describing.
func compoundColumns(compounds []core.CompoundTarget) []string {
	if len(compounds) > 0 {
		return compounds[0].Attrs.Names()
	}
	return []string{"mass_to_charge_ratio", "retention_time", "retention_time_tolerance"}
}

// createTables creates the result schema. Compound passthrough columns keep
// their source names behind a compound_ prefix; their declared types are
// inferred from the loaded values.
func (w *Writer) createTables(compounds []core.CompoundTarget) error {
	types := inferColumnTypes(w.columns, compounds)

	var resultCols, summaryCols []string
	for i, name := range w.columns {
		col := fmt.Sprintf("%s %s", quoteIdent("compound_"+name), types[i])
		resultCols = append(resultCols, col)
		summaryCols = append(summaryCols, col)
	}
	resultCols = append(resultCols,
		"peak_mz REAL",
		"peak_rt REAL",
		"peak_intensity REAL",
		"matched BOOLEAN NOT NULL",
	)
	summaryCols = append(summaryCols,
		"total_intensity_ppm REAL",
		"observed_mz REAL",
		"mz_error_ppm REAL",
		"observed_rt REAL",
		"rt_error REAL",
		"peak_count INTEGER",
	)

	schema := fmt.Sprintf("CREATE TABLE %s (\n\t%s\n);\nCREATE TABLE %s (\n\t%s\n);",
		ResultsTable, strings.Join(resultCols, ",\n\t"),
		SummaryTable, strings.Join(summaryCols, ",\n\t"))

	if _, err := w.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// inferColumnTypes picks a declared type per passthrough column from the
// loaded values: INTEGER when every non-null value is an integer, REAL when
// numeric, TEXT otherwise.
func inferColumnTypes(columns []string, compounds []core.CompoundTarget) []string {
	types := make([]string, len(columns))
	for i, name := range columns {
		allInt, allNum, seen := true, true, false
		for j := range compounds {
			switch compounds[j].Attrs.Get(name).(type) {
			case nil:
				continue
			case int64:
				seen = true
			case float64:
				seen = true
				allInt = false
			default:
				seen = true
				allInt = false
				allNum = false
			}
		}
		switch {
		case seen && allInt:
			types[i] = "INTEGER"
		case seen && allNum:
			types[i] = "REAL"
		default:
			types[i] = "TEXT"
		}
	}
	return types
}

func (w *Writer) prepareStatements() error {
	var names []string
	for _, name := range w.columns {
		names = append(names, quoteIdent("compound_"+name))
	}

	resultNames := append(append([]string{}, names...), "peak_mz", "peak_rt", "peak_intensity", "matched")
	stmt, err := w.db.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ResultsTable, strings.Join(resultNames, ", "), placeholders(len(resultNames))))
	if err != nil {
		return fmt.Errorf("failed to prepare result statement: %w", err)
	}
	w.resultStmt = stmt

	summaryNames := append(append([]string{}, names...),
		"total_intensity_ppm", "observed_mz", "mz_error_ppm", "observed_rt", "rt_error", "peak_count")
	stmt, err = w.db.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		SummaryTable, strings.Join(summaryNames, ", "), placeholders(len(summaryNames))))
	if err != nil {
		return fmt.Errorf("failed to prepare summary statement: %w", err)
	}
	w.summaryStmt = stmt

	return nil
}

// WriteResults inserts the full match result sequence in order.
func (w *Writer) WriteResults(results []core.MatchResult) error {
	for i := range results {
		r := &results[i]
		args := w.compoundArgs(r.Compound)
		if r.Matched {
			args = append(args, r.Peak.MZ, r.Peak.RT, r.Peak.Intensity, true)
		} else {
			args = append(args, nil, nil, nil, false)
		}
		if _, err := w.resultStmt.Exec(args...); err != nil {
			w.abort()
			return &core.SinkWriteError{Path: w.outputPath, Err: err}
		}
	}
	return nil
}

// WriteSummaries inserts the identified-compound summary rows in order.
func (w *Writer) WriteSummaries(summaries []core.CompoundSummary) error {
	for i := range summaries {
		s := &summaries[i]
		args := w.compoundArgs(s.Compound)
		var rtErr any
		if s.RTError != nil {
			rtErr = *s.RTError
		}
		args = append(args, s.TotalIntensityPPM, s.ObservedMZ, s.MZErrorPPM, s.ObservedRT, rtErr, s.PeakCount)
		if _, err := w.summaryStmt.Exec(args...); err != nil {
			w.abort()
			return &core.SinkWriteError{Path: w.outputPath, Err: err}
		}
	}
	return nil
}

func (w *Writer) compoundArgs(c *core.CompoundTarget) []any {
	args := make([]any, 0, len(w.columns)+6)
	for _, name := range w.columns {
		args = append(args, c.Attrs.Get(name))
	}
	return args
}

// Finalize flushes the database and atomically replaces the output path.
func (w *Writer) Finalize() error {
	if w.finalized {
		return nil
	}
	if w.resultStmt != nil {
		w.resultStmt.Close()
	}
	if w.summaryStmt != nil {
		w.summaryStmt.Close()
	}
	if err := w.db.Close(); err != nil {
		os.Remove(w.tmpPath)
		return &core.SinkWriteError{Path: w.outputPath, Err: err}
	}
	if err := os.Rename(w.tmpPath, w.outputPath); err != nil {
		os.Remove(w.tmpPath)
		return &core.SinkWriteError{Path: w.outputPath, Err: err}
	}
	w.finalized = true
	return nil
}

// Close discards the temporary database unless Finalize already ran. Safe to
// defer alongside Finalize.
func (w *Writer) Close() error {
	if w.finalized {
		return nil
	}
	w.abort()
	return nil
}

func (w *Writer) abort() {
	if w.resultStmt != nil {
		w.resultStmt.Close()
		w.resultStmt = nil
	}
	if w.summaryStmt != nil {
		w.summaryStmt.Close()
		w.summaryStmt = nil
	}
	w.db.Close()
	os.Remove(w.tmpPath)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
