package weather

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/jszwec/csvutil"

	"github.com/berrylab/swd-weather-etl/internal/domain"
)

// Schema names the positional columns of a raw station daily file. The raw
// files carry no machine-readable header, so names come from an externally
// supplied canonical reference, never from the file itself.
type Schema struct {
	Columns []string
	Missing string // sentinel marking an unobserved value, e.g. "M"
}

// LoadSchema reads the canonical column list: the single header line of a
// known-good normalized file.
func LoadSchema(r io.Reader) (Schema, error) {
	cols, err := csv.NewReader(r).Read()
	if err != nil {
		return Schema{}, fmt.Errorf("read schema header: %w", err)
	}
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	return Schema{Columns: cols}, nil
}

// required canonical columns and where to put them.
var requiredColumns = []string{
	domain.ColMonth, domain.ColDay, domain.ColTminF, domain.ColTmaxF, domain.ColPrecip, domain.ColDD10,
}

// index resolves the position of each required column, rejecting schemas
// that cannot feed the normalizer.
func (s Schema) index() (map[string]int, error) {
	pos := make(map[string]int, len(s.Columns))
	for i, name := range s.Columns {
		pos[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := pos[name]; !ok {
			return nil, &domain.ConfigError{Field: "weather schema", Reason: "missing required column " + name}
		}
	}
	return pos, nil
}

// Normalize parses a station's raw daily file into typed rows and computes
// the running cumulative degree-day total.
//
// The first line is a human header and is skipped. Each remaining line is
// whitespace-delimited, one day per line, in chronological file order (a
// contract on the input, not validated). CUMDD10 accumulates the raw
// Fahrenheit-scale DD10 values before any unit conversion; the seasonal
// aggregator converts the finished totals.
//
// A width mismatch on the first data row makes the whole file untrustworthy
// and fails immediately with a SchemaError. Later malformed rows are
// collected and skipped; the returned rows are everything that parsed.
func Normalize(source string, r io.Reader, schema Schema) ([]domain.DailyWeather, error) {
	idx, err := schema.index()
	if err != nil {
		return nil, err
	}

	var (
		errs    *multierror.Error
		rows    []domain.DailyWeather
		cum     float64
		lineNo  int
		dataRow int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		if lineNo == 1 {
			continue // header
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		dataRow++

		if len(fields) != len(schema.Columns) {
			serr := &domain.SchemaError{Source: source, Row: lineNo - 1, Got: len(fields), Want: len(schema.Columns)}
			if dataRow == 1 {
				return nil, serr
			}
			errs = multierror.Append(errs, serr)
			continue
		}

		row, err := parseDailyRow(source, lineNo-1, fields, idx, schema.Missing)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}

		if row.DD10 != nil {
			cum += *row.DD10
		}
		total := cum
		row.CumDD10 = &total

		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return rows, fmt.Errorf("read %s: %w", source, err)
	}

	return rows, errs.ErrorOrNil()
}

func parseDailyRow(source string, rowIdx int, fields []string, idx map[string]int, missing string) (domain.DailyWeather, error) {
	month, err := strconv.Atoi(fields[idx[domain.ColMonth]])
	if err != nil || month < 1 || month > 12 {
		return domain.DailyWeather{}, &domain.ParseError{
			Source: source, Row: rowIdx, Col: idx[domain.ColMonth],
			Cell: fields[idx[domain.ColMonth]], Reason: "month is not 1-12",
		}
	}
	day, err := strconv.Atoi(fields[idx[domain.ColDay]])
	if err != nil || day < 1 || day > 31 {
		return domain.DailyWeather{}, &domain.ParseError{
			Source: source, Row: rowIdx, Col: idx[domain.ColDay],
			Cell: fields[idx[domain.ColDay]], Reason: "day is not 1-31",
		}
	}

	row := domain.DailyWeather{Month: month, Day: day}
	for _, f := range []struct {
		name string
		dst  **float64
	}{
		{domain.ColTminF, &row.TminF},
		{domain.ColTmaxF, &row.TmaxF},
		{domain.ColPrecip, &row.Precip},
		{domain.ColDD10, &row.DD10},
	} {
		v, err := parseMeasurement(fields[idx[f.name]], missing)
		if err != nil {
			return domain.DailyWeather{}, &domain.ParseError{
				Source: source, Row: rowIdx, Col: idx[f.name],
				Cell: fields[idx[f.name]], Reason: "unparseable " + f.name,
			}
		}
		*f.dst = v
	}
	return row, nil
}

// parseMeasurement maps the missing sentinel (or an empty cell) to nil and
// anything else to a float.
func parseMeasurement(cell, missing string) (*float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" || (missing != "" && cell == missing) {
		return nil, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// WriteNormalized writes rows as a delimited table under the canonical
// headers, missing values as empty fields.
func WriteNormalized(w io.Writer, rows []domain.DailyWeather) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("encode daily row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadNormalized reads a table produced by WriteNormalized.
func ReadNormalized(r io.Reader) ([]domain.DailyWeather, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("read normalized header: %w", err)
	}

	var rows []domain.DailyWeather
	for {
		var row domain.DailyWeather
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("decode normalized row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
