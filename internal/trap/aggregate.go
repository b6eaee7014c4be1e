package trap

import (
	"sort"
	"time"

	"github.com/berrylab/swd-weather-etl/internal/domain"
)

// Aggregate groups observations by trap and sums counts into spring, summer,
// and June totals. Missing counts contribute zero. Output is sorted by
// ascending trap ID so repeated runs produce identical tables.
func Aggregate(obs []domain.TrapObservation) []domain.TrapSeasonalTotals {
	totals := make(map[int]*domain.TrapSeasonalTotals)
	for _, o := range obs {
		t, ok := totals[o.TrapID]
		if !ok {
			t = &domain.TrapSeasonalTotals{TrapID: o.TrapID}
			totals[o.TrapID] = t
		}

		count := 0
		if o.Count != nil {
			count = *o.Count
		}

		switch o.Season() {
		case domain.SeasonSpring:
			t.TotalSpring += count
		case domain.SeasonSummer:
			t.TotalSummer += count
		}
		if o.Date.Month() == time.June {
			t.JuneTotal += count
		}
	}

	ids := make([]int, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]domain.TrapSeasonalTotals, 0, len(ids))
	for _, id := range ids {
		out = append(out, *totals[id])
	}
	return out
}
