package core

import "fmt"

// BadRowPolicy controls how loaders react to a row whose required field is
// absent or non-numeric.
type BadRowPolicy int

const (
	// AbortOnBadRow fails on the first malformed row. Default, for
	// auditability.
	AbortOnBadRow BadRowPolicy = iota
	// SkipBadRows drops malformed rows and reports them as warnings.
	SkipBadRows
)

// SchemaError reports a required column missing from an input source.
// Fatal; raised before any row is processed.
type SchemaError struct {
	Source string // file path or table description
	Table  string // table name, empty for flat files
	Column string // missing column
}

func (e *SchemaError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s: table %s is missing required column %q", e.Source, e.Table, e.Column)
	}
	return fmt.Sprintf("%s: missing required column %q", e.Source, e.Column)
}

// RowParseError reports a row whose required field is absent or non-numeric.
type RowParseError struct {
	Source string
	Row    int // 1-based data row index
	Column string
	Value  string
	Err    error
}

func (e *RowParseError) Error() string {
	return fmt.Sprintf("%s: row %d: column %q has invalid value %q", e.Source, e.Row, e.Column, e.Value)
}

func (e *RowParseError) Unwrap() error { return e.Err }

// SinkWriteError reports a failure to create or write the output database.
// The sink guarantees no partial output is left visible when this is returned.
type SinkWriteError struct {
	Path string
	Err  error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("failed to write result database %s: %v", e.Path, e.Err)
}

func (e *SinkWriteError) Unwrap() error { return e.Err }
