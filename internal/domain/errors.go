package domain

import "fmt"

// ParseError reports a malformed date or number in a single source cell.
// Source identifies the file, Row and Col locate the cell (0-based).
type ParseError struct {
	Source string
	Row    int
	Col    int
	Cell   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: row %d col %d: %s (cell %q)", e.Source, e.Row, e.Col, e.Reason, e.Cell)
}

// SchemaError reports a weather file row whose width does not match the
// canonical column schema.
type SchemaError struct {
	Source string
	Row    int
	Got    int
	Want   int
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: row %d: %d columns, schema expects %d", e.Source, e.Row, e.Got, e.Want)
}

// ConfigError reports invalid pipeline configuration, such as a count block
// offset that does not land on the male column of a pair.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

// RetrievalError reports a failed archive fetch for one station-year. One
// station's failure never aborts the rest of the batch.
type RetrievalError struct {
	Station string
	Year    int
	Err     error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("fetch station %s year %d: %v", e.Station, e.Year, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }
