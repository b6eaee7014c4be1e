// Package trap turns the raw dual-header weekly trap-count table into
// normalized per-trap observations and per-trap seasonal totals, and joins
// them with historical trap metadata.
package trap

import (
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/berrylab/swd-weather-etl/internal/domain"
)

// Layout locates the count block inside the raw grid. The grid itself has
// date labels in the first row, sex labels in the second, fixed metadata
// columns on the left, and two aggregate total rows at the bottom which the
// layout must exclude via DataRows.
type Layout struct {
	StartRow int // first trap data row, below the two header rows
	StartCol int // first count column; must be the male column of a pair
	DataRows int // number of trap rows, excluding the trailing total rows
	NumCols  int // count columns end here (exclusive)
}

// Fixed metadata columns preceding the count block.
const (
	colLocation1 = 0
	colCropHost  = 1
	colLocation2 = 2
	colTrapID    = 3
)

const (
	dateRow = 0
	sexRow  = 1
)

// dateLayout is the only date format the source uses: month/day/year with no
// zero padding.
const dateLayout = "1/2/2006"

// Reshape decodes the raw grid into one TrapObservation per (trap row, date
// column, sex), row-major with male before female inside each pair.
//
// Malformed cells are collected as ParseErrors and their observations
// skipped; the rest of the grid is still decoded. The returned error is a
// multierror of everything collected, nil when the grid was clean. A layout
// that does not describe the grid at all returns a ConfigError alone.
func Reshape(source string, grid [][]string, layout Layout) ([]domain.TrapObservation, error) {
	if err := checkLayout(grid, layout); err != nil {
		return nil, err
	}

	var errs *multierror.Error
	dates := parsePairDates(source, grid[dateRow], layout, &errs)

	var obs []domain.TrapObservation
	for r := layout.StartRow; r < layout.StartRow+layout.DataRows; r++ {
		row := grid[r]
		trapID, err := parseTrapID(source, r, row)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}

		for c := layout.StartCol; c+1 < layout.NumCols; c += 2 {
			pair := (c - layout.StartCol) / 2
			for offset, sex := range []string{domain.SexMale, domain.SexFemale} {
				d := dates[2*pair+offset]
				if d.IsZero() {
					continue // date label failed to parse; already reported
				}
				count, err := parseCount(source, r, c+offset, row)
				if err != nil {
					errs = multierror.Append(errs, err)
					continue
				}
				obs = append(obs, domain.TrapObservation{
					Location1: cell(row, colLocation1),
					CropHost:  cell(row, colCropHost),
					Location2: cell(row, colLocation2),
					TrapID:    trapID,
					Sex:       sex,
					Date:      d,
					Count:     count,
				})
			}
		}
	}

	return obs, errs.ErrorOrNil()
}

func checkLayout(grid [][]string, layout Layout) error {
	if layout.StartRow < sexRow+1 {
		return &domain.ConfigError{Field: "start_row", Reason: "data rows begin below the two header rows"}
	}
	if layout.StartRow+layout.DataRows > len(grid) {
		return &domain.ConfigError{Field: "num_data_rows", Reason: "data block extends past the end of the grid"}
	}
	if layout.StartCol <= colTrapID {
		return &domain.ConfigError{Field: "start_column", Reason: "count block overlaps the metadata columns"}
	}
	if (layout.NumCols-layout.StartCol)%2 != 0 {
		return &domain.ConfigError{Field: "num_columns", Reason: "count block does not hold whole male/female pairs"}
	}

	// The sex header is the ground truth for pair alignment: a misconfigured
	// start column lands on a female cell.
	label := strings.ToLower(cell(grid[sexRow], layout.StartCol))
	if label != domain.SexMale && label != "m" {
		return &domain.ConfigError{Field: "start_column", Reason: "column is not the male column of a pair (sex header reads " + strconv.Quote(label) + ")"}
	}
	return nil
}

// parsePairDates parses the date label of every count column. The female
// column of a pair inherits the male date when its own label is blank, which
// is how the source writes the date once per pair.
func parsePairDates(source string, header []string, layout Layout, errs **multierror.Error) []time.Time {
	n := layout.NumCols - layout.StartCol
	dates := make([]time.Time, n)
	for i := 0; i < n; i++ {
		col := layout.StartCol + i
		label := cell(header, col)
		if label == "" && i%2 == 1 {
			dates[i] = dates[i-1]
			continue
		}
		d, err := time.ParseInLocation(dateLayout, label, time.UTC)
		if err != nil {
			*errs = multierror.Append(*errs, &domain.ParseError{
				Source: source, Row: dateRow, Col: col, Cell: label, Reason: "unparseable date label",
			})
			continue
		}
		dates[i] = d
	}
	return dates
}

func parseTrapID(source string, r int, row []string) (int, error) {
	raw := cell(row, colTrapID)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, &domain.ParseError{
			Source: source, Row: r, Col: colTrapID, Cell: raw, Reason: "trap id is not a positive integer",
		}
	}
	return id, nil
}

// parseCount maps a blank cell to nil (missing) and a numeric cell to its
// value. Anything else is a ParseError.
func parseCount(source string, r, c int, row []string) (*int, error) {
	raw := cell(row, c)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, &domain.ParseError{
			Source: source, Row: r, Col: c, Cell: raw, Reason: "count is not a non-negative integer",
		}
	}
	return &n, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
