// Command genfixture generates a synthetic but structurally faithful input
// set for local pipeline runs: a dual-header trap count grid, trap metadata,
// a weather schema, and raw daily station files laid out where the fetcher
// caches them, so a run needs no network.
//
// Usage:
//
//	go run ./cmd/genfixture -out testdata/fixture -target-year 2019 -reference-year 2018
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/berrylab/swd-weather-etl/internal/weather"
)

var (
	towns = []string{"Deerfield", "Whately", "Hadley", "Sunderland"}
	hosts = []string{"blueberry", "raspberry", "cherry", "blackberry"}
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for the fixture set")
	traps := flag.Int("traps", 8, "number of traps in the grid")
	stations := flag.Int("stations", 3, "number of weather stations")
	targetYear := flag.Int("target-year", 2019, "year of the generated counts and weather")
	referenceYear := flag.Int("reference-year", 2018, "year of the generated metadata rows")
	seed := flag.Int64("seed", 1, "random seed, fixed for reproducible fixtures")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *traps < 1 || *stations < 1 {
		return fmt.Errorf("-traps and -stations must be positive")
	}

	rng := rand.New(rand.NewSource(*seed))
	weatherDir := filepath.Join(*out, "weather")
	if err := os.MkdirAll(weatherDir, 0o755); err != nil {
		return err
	}

	stationIDs := make([]string, *stations)
	for i := range stationIDs {
		stationIDs[i] = fmt.Sprintf("C5%03d", 99+2*i)
	}

	dates := sampleDates(*targetYear)

	grid := trapGrid(rng, *traps, dates)
	if err := writeCSV(filepath.Join(*out, "counts.csv"), grid); err != nil {
		return err
	}
	log.Printf("counts.csv: %d traps x %d dates", *traps, len(dates))

	if err := writeCSV(filepath.Join(*out, "metadata.csv"), metadataRows(rng, *traps, stationIDs, *referenceYear)); err != nil {
		return err
	}
	log.Printf("metadata.csv: %d traps over %d stations", *traps, len(stationIDs))

	schema := [][]string{{"month", "day", "tmin_F", "tmax_F", "precip_in", "DD10"}}
	if err := writeCSV(filepath.Join(*out, "schema.csv"), schema); err != nil {
		return err
	}

	for _, station := range stationIDs {
		path := weather.RawPath(weatherDir, station, *targetYear)
		if err := os.WriteFile(path, stationDaily(rng, *targetYear), 0o644); err != nil {
			return err
		}
		log.Printf("wrote %s", path)
	}

	printEnv(*out, *traps, len(dates), *targetYear, *referenceYear)
	return nil
}

// sampleDates returns biweekly trapping dates from mid May through mid
// September, the field season.
func sampleDates(year int) []time.Time {
	var dates []time.Time
	d := time.Date(year, time.May, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.September, 15, 0, 0, 0, 0, time.UTC)
	for !d.After(end) {
		dates = append(dates, d)
		d = d.AddDate(0, 0, 14)
	}
	return dates
}

// trapGrid builds the dual-header layout: date labels once per male/female
// pair in row 0, sex labels in row 1, one row per trap, then aggregate total
// rows like the hand-maintained sheets carry.
func trapGrid(rng *rand.Rand, traps int, dates []time.Time) [][]string {
	width := 4 + 2*len(dates)

	dateRow := make([]string, width)
	sexRow := []string{"location", "crop", "sub", "trap"}
	for j, d := range dates {
		// The date is labeled once per pair, over the male column.
		dateRow[4+2*j] = d.Format("1/2/2006")
		sexRow = append(sexRow, "male", "female")
	}

	grid := [][]string{dateRow, sexRow}
	maleTotals := make([]int, len(dates))
	femaleTotals := make([]int, len(dates))

	for i := 0; i < traps; i++ {
		row := []string{
			towns[rng.Intn(len(towns))],
			hosts[rng.Intn(len(hosts))],
			fmt.Sprintf("block-%d", rng.Intn(4)+1),
			strconv.Itoa(1001 + i),
		}
		for j := range dates {
			row = append(row, countCell(rng, maleTotals, j), countCell(rng, femaleTotals, j))
		}
		grid = append(grid, row)
	}

	maleRow := make([]string, width)
	femaleRow := make([]string, width)
	maleRow[3] = "total males"
	femaleRow[3] = "total females"
	for j := range dates {
		maleRow[4+2*j] = strconv.Itoa(maleTotals[j])
		femaleRow[5+2*j] = strconv.Itoa(femaleTotals[j])
	}
	return append(grid, maleRow, femaleRow)
}

// countCell rolls one count, blank about one time in twenty: real sheets
// have unrecorded checks, and the reshape must keep them distinct from zero.
func countCell(rng *rand.Rand, totals []int, j int) string {
	if rng.Intn(20) == 0 {
		return ""
	}
	n := rng.Intn(30)
	totals[j] += n
	return strconv.Itoa(n)
}

func metadataRows(rng *rand.Rand, traps int, stations []string, referenceYear int) [][]string {
	rows := [][]string{{"trap_id", "town", "host", "station", "year"}}
	for i := 0; i < traps; i++ {
		rows = append(rows, []string{
			strconv.Itoa(1001 + i),
			towns[rng.Intn(len(towns))],
			hosts[rng.Intn(len(hosts))],
			stations[i%len(stations)],
			strconv.Itoa(referenceYear),
		})
	}
	return rows
}

// stationDaily emits a full calendar year of whitespace-delimited daily rows
// after a one-line banner, with seasonal temperature swing, base-50 F
// degree-days, and the occasional M sentinel.
func stationDaily(rng *rand.Rand, year int) []byte {
	var b []byte
	b = fmt.Appendf(b, "Daily summary for %d\n", year)

	d := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	for d.Year() == year {
		doy := float64(d.YearDay())
		swing := 28 * math.Sin(2*math.Pi*(doy-105)/365)
		tmax := 52 + swing + rng.Float64()*8
		tmin := tmax - 12 - rng.Float64()*10
		dd := math.Max(0, (tmin+tmax)/2-50)

		precip := "0.00"
		if rng.Intn(3) == 0 {
			precip = fmt.Sprintf("%.2f", rng.Float64()*1.2)
		}

		tminCell := fmt.Sprintf("%.0f", tmin)
		tmaxCell := fmt.Sprintf("%.0f", tmax)
		if rng.Intn(50) == 0 {
			tminCell, tmaxCell, precip = "M", "M", "M"
		}

		b = fmt.Appendf(b, "%d %d %s %s %s %.1f\n",
			int(d.Month()), d.Day(), tminCell, tmaxCell, precip, dd)
		d = d.AddDate(0, 0, 1)
	}
	return b
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func printEnv(out string, traps, dates, targetYear, referenceYear int) {
	fmt.Println("\n# Environment for running against this fixture:")
	fmt.Printf("TRAP_COUNTS_PATH=%s\n", filepath.Join(out, "counts.csv"))
	fmt.Printf("TRAP_METADATA_PATH=%s\n", filepath.Join(out, "metadata.csv"))
	fmt.Printf("WEATHER_SCHEMA_PATH=%s\n", filepath.Join(out, "schema.csv"))
	fmt.Printf("WEATHER_DIR=%s\n", filepath.Join(out, "weather"))
	fmt.Printf("OUTPUT_PATH=%s\n", filepath.Join(out, "analysis.csv"))
	fmt.Println("WEATHER_BASE_URL=http://localhost:0 # unused, station files are pre-cached")
	fmt.Printf("TARGET_YEAR=%d\n", targetYear)
	fmt.Printf("REFERENCE_YEAR=%d\n", referenceYear)
	fmt.Printf("TRAP_DATA_ROWS=%d\n", traps)
	fmt.Printf("TRAP_NUM_COLS=%d\n", 4+2*dates)
}
