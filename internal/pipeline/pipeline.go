// Package pipeline orchestrates the batch run: reshape trap counts,
// aggregate seasonal totals, join metadata, fetch and normalize station
// weather, summarize seasons, and merge everything into the analysis table.
package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/hashicorp/go-multierror"

	"github.com/berrylab/swd-weather-etl/internal/config"
	"github.com/berrylab/swd-weather-etl/internal/domain"
	"github.com/berrylab/swd-weather-etl/internal/observability"
	"github.com/berrylab/swd-weather-etl/internal/tabular"
	"github.com/berrylab/swd-weather-etl/internal/trap"
	"github.com/berrylab/swd-weather-etl/internal/weather"
)

// Pipeline runs the full trap/weather seasonal analysis batch.
type Pipeline struct {
	cfg     *config.Config
	fetcher *weather.Fetcher
	logger  *slog.Logger
	metrics *observability.Metrics

	completed  atomic.Bool
	lastReport atomic.Pointer[Report]
}

// New wires a Pipeline. The archive client is injected so tests can point it
// at a local server.
func New(cfg *config.Config, client weather.ArchiveClient, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		fetcher: weather.NewFetcher(client, cfg.WeatherDir, cfg.FetchWorkers, cfg.FetchTimeout, logger, metrics),
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness reports ready once a run has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.completed.Load() {
		return errors.New("no completed run yet")
	}
	return nil
}

// LastReport returns the most recent run's report, nil before the first run.
func (p *Pipeline) LastReport() *Report {
	return p.lastReport.Load()
}

// Run executes the batch once. Per-cell and per-station problems are
// collected into the report; only structural failures (unreadable sources,
// broken configuration) abort the run.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		TargetYear: p.cfg.TargetYear,
		StartedAt:  domain.Now(),
	}
	defer p.lastReport.Store(report)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	obs, err := p.reshapeStage(report)
	if err != nil {
		return report, err
	}

	totals := p.aggregateStage(obs, report)

	annual, err := p.joinStage(totals, report)
	if err != nil {
		return report, err
	}

	if err := p.historyStage(annual, report); err != nil {
		return report, err
	}

	summaries, err := p.weatherStage(ctx, report)
	if err != nil {
		return report, err
	}

	if err := p.mergeStage(annual, summaries, report); err != nil {
		return report, err
	}

	report.FinishedAt = domain.Now()
	p.completed.Store(true)
	p.logger.Info("run complete",
		"observations", report.Observations,
		"traps", report.Traps,
		"joined_traps", report.JoinedTraps,
		"stations", len(report.Stations),
		"failed_stations", len(report.FailedStations),
		"merged_rows", report.MergedRows,
	)
	return report, nil
}

// reshapeStage reads the raw trap grid and decodes it into observations.
func (p *Pipeline) reshapeStage(report *Report) ([]domain.TrapObservation, error) {
	defer p.stageTimer("reshape")()

	f, err := os.Open(p.cfg.TrapCountsPath)
	if err != nil {
		return nil, fmt.Errorf("open trap counts: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // header rows are ragged by design
	grid, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read trap counts: %w", err)
	}

	obs, err := trap.Reshape(filepath.Base(p.cfg.TrapCountsPath), grid, p.cfg.TrapLayout)
	if err != nil {
		var cerr *domain.ConfigError
		if errors.As(err, &cerr) {
			return nil, err
		}
		report.addIssues(err)
		p.countIssues(err)
	}

	report.Observations = len(obs)
	p.metrics.ObservationsParsed.Add(float64(len(obs)))
	p.logger.Info("trap counts reshaped", "observations", len(obs))
	return obs, nil
}

func (p *Pipeline) aggregateStage(obs []domain.TrapObservation, report *Report) []domain.TrapSeasonalTotals {
	defer p.stageTimer("aggregate")()

	totals := trap.Aggregate(obs)
	report.Traps = len(totals)
	p.logger.Info("seasonal totals aggregated", "traps", len(totals))
	return totals
}

// joinStage attaches reference-year metadata to the new totals.
func (p *Pipeline) joinStage(totals []domain.TrapSeasonalTotals, report *Report) (dataframe.DataFrame, error) {
	defer p.stageTimer("join")()

	f, err := os.Open(p.cfg.TrapMetadataPath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open trap metadata: %w", err)
	}
	defer f.Close()

	metadata, err := tabular.Read(f)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("load trap metadata: %w", err)
	}

	res, err := trap.JoinMetadata(totals, metadata, p.cfg.ReferenceYear, p.cfg.TargetYear)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	report.JoinedTraps = res.Rows.Nrow()
	report.DroppedTraps = res.DroppedTraps
	report.Stations = trap.Stations(res.Rows)
	if len(res.DroppedTraps) > 0 {
		// Deliberate inner-join policy; reported, never fatal.
		p.logger.Warn("traps dropped for missing metadata",
			"reference_year", p.cfg.ReferenceYear, "trap_ids", res.DroppedTraps)
	}
	return res.Rows, nil
}

// historyStage appends the annual rows to the historical dataset on disk,
// when one is configured.
func (p *Pipeline) historyStage(annual dataframe.DataFrame, report *Report) error {
	defer p.stageTimer("history")()

	if p.cfg.HistoryPath == "" {
		return nil
	}

	history := dataframe.DataFrame{}
	if f, err := os.Open(p.cfg.HistoryPath); err == nil {
		history, err = tabular.Read(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("load trap history: %w", err)
		}
	}

	updated, err := trap.AppendHistory(history, annual)
	if err != nil {
		return err
	}

	f, err := os.Create(p.cfg.HistoryPath)
	if err != nil {
		return fmt.Errorf("write trap history: %w", err)
	}
	defer f.Close()
	if err := tabular.Write(f, updated); err != nil {
		return err
	}

	report.HistoryRows = updated.Nrow()
	p.logger.Info("history updated", "path", p.cfg.HistoryPath, "rows", updated.Nrow())
	return nil
}

// weatherStage fetches, normalizes, and summarizes station weather for the
// stations the annual rows reference.
func (p *Pipeline) weatherStage(ctx context.Context, report *Report) ([]domain.SeasonalSummary, error) {
	year := p.cfg.TargetYear

	schemaFile, err := os.Open(p.cfg.SchemaPath)
	if err != nil {
		return nil, fmt.Errorf("open weather schema: %w", err)
	}
	schema, err := weather.LoadSchema(schemaFile)
	schemaFile.Close()
	if err != nil {
		return nil, err
	}
	schema.Missing = p.cfg.MissingSentinel

	if err := os.MkdirAll(p.cfg.WeatherDir, 0o755); err != nil {
		return nil, fmt.Errorf("create weather dir: %w", err)
	}

	stations := report.Stations

	fetchDone := p.stageTimer("fetch")
	results := p.fetcher.FetchAll(ctx, stations, year)
	fetchDone()

	report.FailedStations = map[string]string{}
	var fetched []string
	for station, err := range results {
		if err != nil {
			report.FailedStations[station] = err.Error()
			continue
		}
		fetched = append(fetched, station)
	}
	sort.Strings(fetched)

	defer p.stageTimer("summarize")()

	var summaries []domain.SeasonalSummary
	for _, station := range fetched {
		rows, err := p.normalizeStation(station, year, schema, report)
		if err != nil {
			// Structurally broken file: skip the station, keep the batch.
			report.SkippedStations = append(report.SkippedStations, station)
			p.logger.Warn("station file skipped", "station", station, "error", err)
			continue
		}
		summaries = append(summaries, weather.Summarize(rows, station, year))
	}

	report.Summaries = len(summaries)
	return summaries, nil
}

func (p *Pipeline) normalizeStation(station string, year int, schema weather.Schema, report *Report) ([]domain.DailyWeather, error) {
	rawPath := weather.RawPath(p.cfg.WeatherDir, station, year)
	f, err := os.Open(rawPath)
	if err != nil {
		return nil, fmt.Errorf("open raw station file: %w", err)
	}
	defer f.Close()

	rows, err := weather.Normalize(filepath.Base(rawPath), f, schema)
	if err != nil {
		if len(rows) == 0 {
			return nil, err
		}
		// Partial parse: report the bad rows, use the rest.
		report.addIssues(err)
		p.countIssues(err)
	}

	out, err := os.Create(weather.NormalizedPath(p.cfg.WeatherDir, station, year))
	if err != nil {
		return nil, fmt.Errorf("write normalized station file: %w", err)
	}
	defer out.Close()
	if err := weather.WriteNormalized(out, rows); err != nil {
		return nil, err
	}

	p.metrics.RowsNormalized.Add(float64(len(rows)))
	return rows, nil
}

func (p *Pipeline) stageTimer(stage string) func() {
	start := time.Now()
	return func() {
		p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

func (p *Pipeline) countIssues(err error) {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		p.metrics.ParseErrors.Add(float64(len(merr.Errors)))
		return
	}
	p.metrics.ParseErrors.Inc()
}
