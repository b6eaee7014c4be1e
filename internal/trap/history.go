package trap

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/berrylab/swd-weather-etl/internal/domain"
)

// Column names shared with the historical dataset.
const (
	ColTrapID  = "trap_id"
	ColStation = "station"
	ColYear    = "year"
)

// JoinResult carries the annual joined rows plus the trap IDs the inner join
// dropped for lack of metadata. Dropped traps are a deliberate policy, not an
// error: only traps with known station context are analyzable. They still
// must be reported.
type JoinResult struct {
	Rows         dataframe.DataFrame
	DroppedTraps []int
}

// JoinMetadata inner-joins seasonal totals with the metadata rows of the
// reference year on trap ID, then tags every joined row with the target year.
func JoinMetadata(totals []domain.TrapSeasonalTotals, metadata dataframe.DataFrame, referenceYear, targetYear int) (JoinResult, error) {
	totalsDF := dataframe.LoadStructs(totals)
	if totalsDF.Error() != nil {
		return JoinResult{}, fmt.Errorf("load totals: %w", totalsDF.Error())
	}

	ref := metadata.Filter(dataframe.F{Colname: ColYear, Comparator: series.Eq, Comparando: referenceYear})
	if ref.Error() != nil {
		return JoinResult{}, fmt.Errorf("filter metadata year %d: %w", referenceYear, ref.Error())
	}
	// The metadata year is the lookup key, not a fact about the new counts;
	// the joined rows carry the target year instead.
	ref = ref.Drop(ColYear)

	joined := totalsDF.InnerJoin(ref, ColTrapID)
	if joined.Error() != nil {
		return JoinResult{}, fmt.Errorf("join totals with metadata: %w", joined.Error())
	}

	yearTag := make([]int, joined.Nrow())
	for i := range yearTag {
		yearTag[i] = targetYear
	}
	joined = joined.Mutate(series.New(yearTag, series.Int, ColYear))
	if joined.Error() != nil {
		return JoinResult{}, fmt.Errorf("tag year: %w", joined.Error())
	}

	return JoinResult{
		Rows:         joined,
		DroppedTraps: droppedTraps(totals, joined),
	}, nil
}

func droppedTraps(totals []domain.TrapSeasonalTotals, joined dataframe.DataFrame) []int {
	kept := map[int]bool{}
	if joined.Nrow() > 0 {
		ids, err := joined.Col(ColTrapID).Int()
		if err == nil {
			for _, id := range ids {
				kept[id] = true
			}
		}
	}

	var dropped []int
	for _, t := range totals {
		if !kept[t.TrapID] {
			dropped = append(dropped, t.TrapID)
		}
	}
	sort.Ints(dropped)
	return dropped
}

// AppendHistory appends an annual batch to the historical dataset. Columns
// present on one side only are filled with an explicit missing marker on the
// other, never zero or empty text masquerading as data.
func AppendHistory(history, batch dataframe.DataFrame) (dataframe.DataFrame, error) {
	if history.Nrow() == 0 {
		return batch, nil
	}

	for _, name := range history.Names() {
		if !hasColumn(batch, name) {
			batch = batch.Mutate(missingColumn(name, history.Col(name).Type(), batch.Nrow()))
		}
	}
	for _, name := range batch.Names() {
		if !hasColumn(history, name) {
			history = history.Mutate(missingColumn(name, batch.Col(name).Type(), history.Nrow()))
		}
	}

	batch = batch.Select(history.Names())
	if batch.Error() != nil {
		return batch, fmt.Errorf("align batch columns: %w", batch.Error())
	}

	out := history.RBind(batch)
	if out.Error() != nil {
		return out, fmt.Errorf("append to history: %w", out.Error())
	}
	return out, nil
}

// Stations returns the sorted distinct station identifiers of a dataset,
// skipping missing cells. Deduping here keeps the fetcher at one request per
// station however many traps share it.
func Stations(df dataframe.DataFrame) []string {
	if df.Nrow() == 0 || !hasColumn(df, ColStation) {
		return nil
	}

	seen := map[string]bool{}
	for _, s := range df.Col(ColStation).Records() {
		if s == "" || s == "NaN" {
			continue
		}
		seen[s] = true
	}

	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// FilterYear returns the rows of df whose year column equals year.
func FilterYear(df dataframe.DataFrame, year int) (dataframe.DataFrame, error) {
	out := df.Filter(dataframe.F{Colname: ColYear, Comparator: series.Eq, Comparando: year})
	if out.Error() != nil {
		return out, fmt.Errorf("filter year %d: %w", year, out.Error())
	}
	return out, nil
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// missingColumn builds an all-missing series of the given type. Numeric
// columns use NaN elements, string columns empty cells; both serialize as
// empty fields.
func missingColumn(name string, t series.Type, n int) series.Series {
	if t == series.String {
		return series.New(make([]string, n), t, name)
	}
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = math.NaN()
	}
	return series.New(vals, t, name)
}
