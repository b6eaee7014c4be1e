// Command validate performs integrity checks over a finished analysis table
// and its normalized station weather files: column presence, key uniqueness,
// count arithmetic, physical ranges, and cumulative degree-day monotonicity.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -analysis analysis.csv \
//	  -weather-dir weather \
//	  -target-year 2019
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/berrylab/swd-weather-etl/internal/domain"
	"github.com/berrylab/swd-weather-etl/internal/weather"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

var trapColumns = []string{
	"trap_id", "station", "year",
	"total_SWD_spring", "total_SWD_summer", "SWD_June",
}

var weatherColumns = []string{
	"tmin_winter", "tmax_winter", "tmin_spring", "tmax_spring", "tmin_summer", "tmax_summer",
	"days_below_minus5_winter", "days_below_zero_winter",
	"DD_winter", "DD_spring", "DD_summer",
	"precipitation_winter", "precipitation_spring", "precipitation_summer",
}

func main() {
	analysis := flag.String("analysis", "", "path to the merged analysis CSV")
	weatherDir := flag.String("weather-dir", "", "directory of normalized station files (optional)")
	targetYear := flag.Int("target-year", 0, "year whose rows and station files are checked")
	flag.Parse()

	if *analysis == "" || *targetYear == 0 {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*analysis, *weatherDir, *targetYear); code != 0 {
		os.Exit(code)
	}
}

func run(analysisPath, weatherDir string, targetYear int) int {
	fmt.Println("=== Seasonal Analysis Integrity Validation ===")
	fmt.Println()

	rows, header, err := loadCSV(analysisPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load analysis table: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateShape(rows, header),
		validateCounts(rows),
		validateWeatherRanges(rows),
	}
	if weatherDir != "" {
		phases = append(phases, validateStationFiles(rows, weatherDir, targetYear))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d\n", len(rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

// csvRow is a parsed CSV row with field values keyed by header name.
type csvRow struct {
	lineNum int
	fields  map[string]string
}

func loadCSV(path string) ([]csvRow, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(all) < 2 {
		return nil, nil, fmt.Errorf("no data rows in %s", path)
	}

	header := all[0]
	var rows []csvRow
	for i, row := range all[1:] {
		fields := make(map[string]string, len(header))
		for j, h := range header {
			if j < len(row) {
				fields[h] = strings.TrimSpace(row[j])
			}
		}
		rows = append(rows, csvRow{lineNum: i + 2, fields: fields})
	}
	return rows, header, nil
}

// cellInt parses an integer cell; empty cells are missing, not zero.
func cellInt(row csvRow, col string) (int, bool, error) {
	s := row.fields[col]
	if s == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, fmt.Errorf("column %q: %q is not an integer", col, s)
	}
	return n, true, nil
}

func cellFloat(row csvRow, col string) (float64, bool, error) {
	s := row.fields[col]
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("column %q: %q is not numeric", col, s)
	}
	return v, true, nil
}

// ── Phase 1: Table Shape ──
// Required columns are present and (trap_id, year) identifies a row.

func validateShape(rows []csvRow, header []string) *phase {
	p := &phase{name: "Phase 1: Table Shape"}

	have := map[string]bool{}
	for _, h := range header {
		have[h] = true
	}
	for _, col := range append(append([]string{}, trapColumns...), weatherColumns...) {
		if !have[col] {
			p.errorf("missing column %q", col)
		}
	}

	seen := map[string]int{}
	for _, row := range rows {
		key := row.fields["trap_id"] + "|" + row.fields["year"]
		if prev, ok := seen[key]; ok {
			p.errorf("line %d: duplicate (trap_id, year) %s, first seen on line %d", row.lineNum, key, prev)
			continue
		}
		seen[key] = row.lineNum

		if row.fields["trap_id"] == "" {
			p.errorf("line %d: empty trap_id", row.lineNum)
		}
		if _, ok, err := cellInt(row, "year"); err != nil || !ok {
			p.errorf("line %d: bad year cell %q", row.lineNum, row.fields["year"])
		}
	}
	return p
}

// ── Phase 2: Count Integrity ──
// Seasonal totals are non-negative and June is bounded by the seasons it
// spans.

func validateCounts(rows []csvRow) *phase {
	p := &phase{name: "Phase 2: Count Integrity"}

	for _, row := range rows {
		counts := map[string]int{}
		for _, col := range []string{"total_SWD_spring", "total_SWD_summer", "SWD_June"} {
			n, ok, err := cellInt(row, col)
			if err != nil {
				p.errorf("line %d: %v", row.lineNum, err)
				continue
			}
			if !ok {
				p.errorf("line %d: column %q is empty; totals treat missing counts as zero", row.lineNum, col)
				continue
			}
			if n < 0 {
				p.errorf("line %d: column %q is negative (%d)", row.lineNum, col, n)
			}
			counts[col] = n
		}

		// June straddles the spring/summer boundary, so its total can never
		// exceed the two seasons combined.
		if counts["SWD_June"] > counts["total_SWD_spring"]+counts["total_SWD_summer"] {
			p.errorf("line %d: SWD_June (%d) exceeds spring+summer (%d)",
				row.lineNum, counts["SWD_June"], counts["total_SWD_spring"]+counts["total_SWD_summer"])
		}
	}
	return p
}

// ── Phase 3: Weather Ranges ──
// Seasonal summary cells are physically plausible or explicitly missing.

func validateWeatherRanges(rows []csvRow) *phase {
	p := &phase{name: "Phase 3: Weather Ranges"}

	for _, row := range rows {
		checkTempOrder(p, row, "winter")
		checkTempOrder(p, row, "spring")
		checkTempOrder(p, row, "summer")

		for _, col := range []string{"DD_winter", "DD_spring", "DD_summer"} {
			v, ok, err := cellFloat(row, col)
			if err != nil {
				p.errorf("line %d: %v", row.lineNum, err)
			} else if ok && v < 0 {
				p.errorf("line %d: %s is negative (%g); degree-days are clamped at zero", row.lineNum, col, v)
			}
		}

		for _, col := range []string{"precipitation_winter", "precipitation_spring", "precipitation_summer"} {
			v, ok, err := cellFloat(row, col)
			if err != nil {
				p.errorf("line %d: %v", row.lineNum, err)
			} else if ok && v < weather.MinSeasonalPrecipMM {
				p.errorf("line %d: %s is %g mm, below the %g mm recording floor; should be empty",
					row.lineNum, col, v, weather.MinSeasonalPrecipMM)
			}
		}

		checkColdDays(p, row)
	}
	return p
}

func checkTempOrder(p *phase, row csvRow, season string) {
	tmin, okMin, errMin := cellFloat(row, "tmin_"+season)
	tmax, okMax, errMax := cellFloat(row, "tmax_"+season)
	if errMin != nil {
		p.errorf("line %d: %v", row.lineNum, errMin)
	}
	if errMax != nil {
		p.errorf("line %d: %v", row.lineNum, errMax)
	}
	if okMin && okMax && tmin > tmax {
		p.errorf("line %d: tmin_%s (%g) exceeds tmax_%s (%g)", row.lineNum, season, tmin, season, tmax)
	}
}

func checkColdDays(p *phase, row csvRow) {
	frigid, okFrigid, err := cellInt(row, "days_below_minus5_winter")
	if err != nil {
		p.errorf("line %d: %v", row.lineNum, err)
		return
	}
	cold, okCold, err := cellInt(row, "days_below_zero_winter")
	if err != nil {
		p.errorf("line %d: %v", row.lineNum, err)
		return
	}

	if okFrigid != okCold {
		p.errorf("line %d: cold-day counts must be present or missing together", row.lineNum)
		return
	}
	if !okFrigid {
		return
	}

	// The winter window is at most 92 days (Dec 21 through Mar 20, leap year).
	const maxWinterDays = 92
	if frigid < 0 || cold < 0 || cold > maxWinterDays {
		p.errorf("line %d: cold-day counts out of range (%d, %d)", row.lineNum, frigid, cold)
	}
	if frigid > cold {
		p.errorf("line %d: days below -5 C (%d) exceeds days below 0 C (%d)", row.lineNum, frigid, cold)
	}
}

// ── Phase 4: Station Files ──
// Every station in the target year's rows has a normalized file whose
// cumulative degree-days never decrease.

func validateStationFiles(rows []csvRow, weatherDir string, targetYear int) *phase {
	p := &phase{name: "Phase 4: Station Files"}

	stations := map[string]bool{}
	for _, row := range rows {
		year, ok, err := cellInt(row, "year")
		if err != nil || !ok || year != targetYear {
			continue
		}
		if s := row.fields["station"]; s != "" {
			stations[s] = true
		}
	}

	for station := range stations {
		path := weather.NormalizedPath(weatherDir, station, targetYear)
		f, err := os.Open(path)
		if err != nil {
			p.errorf("station %s: missing normalized file %s", station, path)
			continue
		}
		daily, err := weather.ReadNormalized(f)
		f.Close()
		if err != nil {
			p.errorf("station %s: %v", station, err)
			continue
		}
		checkDaily(p, station, daily)
	}
	return p
}

func checkDaily(p *phase, station string, daily []domain.DailyWeather) {
	if len(daily) == 0 {
		p.errorf("station %s: normalized file has no rows", station)
		return
	}

	var prevCum float64
	for i, d := range daily {
		if d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > 31 {
			p.errorf("station %s row %d: bad calendar cell %d/%d", station, i, d.Month, d.Day)
		}
		if d.CumDD10 == nil {
			p.errorf("station %s row %d: missing cumulative degree-days", station, i)
			continue
		}
		if *d.CumDD10 < prevCum {
			p.errorf("station %s row %d: cumulative degree-days decreased (%g -> %g)",
				station, i, prevCum, *d.CumDD10)
		}
		prevCum = *d.CumDD10
	}
}
