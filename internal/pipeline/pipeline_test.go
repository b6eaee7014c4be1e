package pipeline

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berrylab/swd-weather-etl/internal/adapter/archive"
	"github.com/berrylab/swd-weather-etl/internal/config"
	"github.com/berrylab/swd-weather-etl/internal/domain"
	"github.com/berrylab/swd-weather-etl/internal/observability"
	"github.com/berrylab/swd-weather-etl/internal/tabular"
	"github.com/berrylab/swd-weather-etl/internal/trap"
	"github.com/berrylab/swd-weather-etl/internal/weather"
)

const countsCSV = `,,,,6/1/2019,,6/15/2019,
location,crop,sub,trap,male,female,male,female
Deerfield,blueberry,north,101,2,3,1,0
Deerfield,raspberry,south,102,0,1,,4
Whately,cherry,,103,5,2,2,2
,,,total males,7,,3,
,,,total females,,6,,6
`

const schemaCSV = "month,day,tmin_F,tmax_F,precip_in,DD10\n"

// January daily rows with degree-days 1,2,0,3,4, one fully masked day.
const stationDaily = `NEWA daily summary
1 1 28 41 0.10 1
1 2 30 44 0.00 2
1 3 M M M 0
1 4 25 39 0.25 3
1 5 31 45 M 4
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// archiveServer serves one station-year file and 404s everything else.
func archiveServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/C509919.txt" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(stationDaily))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func testConfig(t *testing.T, baseURL, metadataCSV string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	countsPath := filepath.Join(dir, "counts.csv")
	metadataPath := filepath.Join(dir, "metadata.csv")
	schemaPath := filepath.Join(dir, "schema.csv")
	writeFile(t, countsPath, countsCSV)
	writeFile(t, metadataPath, metadataCSV)
	writeFile(t, schemaPath, schemaCSV)

	return &config.Config{
		TrapCountsPath:   countsPath,
		TrapMetadataPath: metadataPath,
		HistoryPath:      filepath.Join(dir, "history.csv"),
		OutputPath:       filepath.Join(dir, "analysis.csv"),
		WeatherDir:       filepath.Join(dir, "weather"),
		SchemaPath:       schemaPath,

		BaseURL:      baseURL,
		FetchWorkers: 2,
		FetchTimeout: time.Second,

		ReferenceYear: 2018,
		TargetYear:    2019,

		TrapLayout:      trap.Layout{StartRow: 2, StartCol: 4, DataRows: 3, NumCols: 8},
		MissingSentinel: "M",
		MergePolicy:     config.MergeInner,
	}
}

func newTestPipeline(t *testing.T, cfg *config.Config) *Pipeline {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	client := archive.NewClient(cfg.BaseURL, time.Second, logger)
	return New(cfg, client, logger, observability.NewMetricsForTesting())
}

func TestRunEndToEnd(t *testing.T) {
	ts := archiveServer(t)
	cfg := testConfig(t, ts.URL, `trap_id,town,host,station,year
101,Deerfield,blueberry,C5099,2018
102,Whately,raspberry,C5099,2018
101,Deerfield,blueberry,C5099,2017
`)
	p := newTestPipeline(t, cfg)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 12, report.Observations)
	assert.Equal(t, 3, report.Traps)
	assert.Equal(t, 2, report.JoinedTraps)
	assert.Equal(t, []int{103}, report.DroppedTraps)
	assert.Equal(t, []string{"C5099"}, report.Stations)
	assert.Empty(t, report.FailedStations)
	assert.Empty(t, report.SkippedStations)
	assert.Equal(t, 1, report.Summaries)
	assert.Equal(t, 2, report.MergedRows)

	// The normalized station file carries the running degree-day total,
	// accumulated over the raw values in file order.
	nf, err := os.Open(weather.NormalizedPath(cfg.WeatherDir, "C5099", 2019))
	require.NoError(t, err)
	defer nf.Close()
	rows, err := weather.ReadNormalized(nf)
	require.NoError(t, err)
	wantCum := []float64{1, 3, 3, 6, 10}
	require.Len(t, rows, len(wantCum))
	for i, row := range rows {
		require.NotNil(t, row.CumDD10)
		assert.Equal(t, wantCum[i], *row.CumDD10, "row %d", i)
	}

	// The analysis table has one row per joined trap, tagged with the
	// target year and the station's seasonal summary.
	out := readTable(t, cfg.OutputPath)
	require.Equal(t, 2, out.Nrow())

	ids, err := out.Col(trap.ColTrapID).Int()
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{101, 102}, ids)

	years, err := out.Col(trap.ColYear).Int()
	require.NoError(t, err)
	assert.Equal(t, []int{2019, 2019}, years)

	for _, s := range out.Col(trap.ColStation).Records() {
		assert.Equal(t, "C5099", s)
	}

	june, err := out.Col("SWD_June").Int()
	require.NoError(t, err)
	for i, id := range ids {
		if id == 101 {
			// 2+3+1+0 across both June dates.
			assert.Equal(t, 6, june[i])
		}
	}

	// All four observed January minima are below freezing in Celsius.
	cold, err := out.Col("days_below_zero_winter").Int()
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4}, cold)

	// 0.35 in of winter rain is under the recording floor.
	for _, cell := range out.Col("precipitation_winter").Records() {
		assert.Equal(t, "NaN", cell)
	}

	// The annual rows were also appended to the history file.
	history := readTable(t, cfg.HistoryPath)
	assert.Equal(t, 2, history.Nrow())
	assert.Equal(t, 2, report.HistoryRows)
}

func TestRunFailedStationTolerated(t *testing.T) {
	ts := archiveServer(t)
	cfg := testConfig(t, ts.URL, `trap_id,town,host,station,year
101,Deerfield,blueberry,C5099,2018
102,Whately,raspberry,C9999,2018
103,Whately,cherry,C5099,2018
`)
	p := newTestPipeline(t, cfg)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Contains(t, report.FailedStations, "C9999")
	assert.Equal(t, 1, report.Summaries)

	// Inner merge keeps only traps whose station produced a summary.
	assert.Equal(t, 2, report.MergedRows)
	out := readTable(t, cfg.OutputPath)
	for _, s := range out.Col(trap.ColStation).Records() {
		assert.Equal(t, "C5099", s)
	}
}

func TestRunLeftMergeKeepsWeatherlessRows(t *testing.T) {
	ts := archiveServer(t)
	cfg := testConfig(t, ts.URL, `trap_id,town,host,station,year
101,Deerfield,blueberry,C5099,2018
102,Whately,raspberry,C9999,2018
`)
	cfg.MergePolicy = config.MergeLeft
	p := newTestPipeline(t, cfg)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.MergedRows)

	out := readTable(t, cfg.OutputPath)
	require.Equal(t, 2, out.Nrow())

	// The weatherless row keeps its trap data; its summary cells are missing.
	stations := out.Col(trap.ColStation).Records()
	cold := out.Col("days_below_zero_winter").Records()
	for i, s := range stations {
		if s == "C9999" {
			assert.Equal(t, "NaN", cold[i])
		} else {
			assert.Equal(t, "4", cold[i])
		}
	}
}

func TestRunRerunReplacesTargetYear(t *testing.T) {
	ts := archiveServer(t)
	cfg := testConfig(t, ts.URL, `trap_id,town,host,station,year
101,Deerfield,blueberry,C5099,2018
102,Whately,raspberry,C5099,2018
`)
	cfg.HistoryPath = "" // history append is intentionally not idempotent
	p := newTestPipeline(t, cfg)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	require.NoError(t, err)

	// Target-year rows are replaced, not duplicated.
	out := readTable(t, cfg.OutputPath)
	assert.Equal(t, 2, out.Nrow())
}

func TestCheckReadiness(t *testing.T) {
	ts := archiveServer(t)
	cfg := testConfig(t, ts.URL, `trap_id,town,host,station,year
101,Deerfield,blueberry,C5099,2018
`)
	p := newTestPipeline(t, cfg)

	assert.Error(t, p.CheckReadiness(context.Background()))

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestRunReportTimestamps(t *testing.T) {
	fixed := time.Date(2019, time.October, 1, 6, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fixed))
	defer domain.SetClock(nil)

	ts := archiveServer(t)
	cfg := testConfig(t, ts.URL, `trap_id,town,host,station,year
101,Deerfield,blueberry,C5099,2018
`)
	p := newTestPipeline(t, cfg)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fixed, report.StartedAt)
	assert.Equal(t, fixed, report.FinishedAt)
}

func readTable(t *testing.T, path string) dataframe.DataFrame {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	df, err := tabular.Read(f)
	require.NoError(t, err)
	return df
}
