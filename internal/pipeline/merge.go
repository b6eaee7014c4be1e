package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/jszwec/csvutil"

	"github.com/berrylab/swd-weather-etl/internal/config"
	"github.com/berrylab/swd-weather-etl/internal/domain"
	"github.com/berrylab/swd-weather-etl/internal/tabular"
	"github.com/berrylab/swd-weather-etl/internal/trap"
)

// mergeStage joins the annual trap rows with the station seasonal summaries
// and writes the analysis table, replacing any target-year rows already
// present in the output from a previous run.
func (p *Pipeline) mergeStage(annual dataframe.DataFrame, summaries []domain.SeasonalSummary, report *Report) error {
	defer p.stageTimer("merge")()

	if len(summaries) == 0 {
		return errors.New("no station summaries to merge; every station fetch or parse failed")
	}

	summaryDF, err := summariesFrame(summaries)
	if err != nil {
		return err
	}

	var merged dataframe.DataFrame
	switch p.cfg.MergePolicy {
	case config.MergeLeft:
		merged = annual.LeftJoin(summaryDF, trap.ColStation, trap.ColYear)
	default:
		merged = annual.InnerJoin(summaryDF, trap.ColStation, trap.ColYear)
	}
	if merged.Error() != nil {
		return fmt.Errorf("merge traps with weather: %w", merged.Error())
	}

	out := merged
	if prior, ok := p.priorOutput(); ok {
		out, err = trap.AppendHistory(prior, merged)
		if err != nil {
			return fmt.Errorf("append to prior output: %w", err)
		}
	}

	f, err := os.Create(p.cfg.OutputPath)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	defer f.Close()
	if err := tabular.Write(f, out); err != nil {
		return err
	}

	report.MergedRows = merged.Nrow()
	p.metrics.MergedRows.Set(float64(merged.Nrow()))
	p.logger.Info("analysis written",
		"path", p.cfg.OutputPath, "new_rows", merged.Nrow(), "total_rows", out.Nrow())
	return nil
}

// summariesFrame round-trips the summaries through their delimited form so
// nil measurements arrive in the frame as missing cells.
func summariesFrame(summaries []domain.SeasonalSummary) (dataframe.DataFrame, error) {
	b, err := csvutil.Marshal(summaries)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("encode summaries: %w", err)
	}
	df, err := tabular.Read(bytes.NewReader(b))
	if err != nil {
		return df, fmt.Errorf("load summaries: %w", err)
	}
	return df, nil
}

// priorOutput loads an existing analysis table with this run's target-year
// rows removed, so a rerun replaces rather than duplicates them. Returns
// false when there is no usable prior content.
func (p *Pipeline) priorOutput() (dataframe.DataFrame, bool) {
	f, err := os.Open(p.cfg.OutputPath)
	if err != nil {
		return dataframe.DataFrame{}, false
	}
	defer f.Close()

	prior, err := tabular.Read(f)
	if err != nil {
		p.logger.Warn("prior output unreadable, overwriting", "path", p.cfg.OutputPath, "error", err)
		return dataframe.DataFrame{}, false
	}

	kept := prior.Filter(dataframe.F{Colname: trap.ColYear, Comparator: series.Neq, Comparando: p.cfg.TargetYear})
	if kept.Error() != nil || kept.Nrow() == 0 {
		return dataframe.DataFrame{}, false
	}
	return kept, true
}
