package trap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berrylab/swd-weather-etl/internal/domain"
)

func obsOn(trapID int, date time.Time, count int) domain.TrapObservation {
	return domain.TrapObservation{TrapID: trapID, Sex: domain.SexMale, Date: date, Count: &count}
}

func TestAggregate(t *testing.T) {
	june1 := time.Date(2019, time.June, 1, 0, 0, 0, 0, time.UTC)   // spring and June
	july4 := time.Date(2019, time.July, 4, 0, 0, 0, 0, time.UTC)   // summer
	june25 := time.Date(2019, time.June, 25, 0, 0, 0, 0, time.UTC) // summer and June

	obs := []domain.TrapObservation{
		obsOn(102, july4, 7),
		obsOn(101, june1, 2),
		obsOn(101, june25, 3),
		obsOn(101, july4, 1),
		{TrapID: 101, Sex: domain.SexFemale, Date: june1}, // missing count
	}

	totals := Aggregate(obs)
	require.Len(t, totals, 2)

	// Ascending trap ID regardless of input order.
	assert.Equal(t, 101, totals[0].TrapID)
	assert.Equal(t, 102, totals[1].TrapID)

	assert.Equal(t, 2, totals[0].TotalSpring) // June 1 only
	assert.Equal(t, 4, totals[0].TotalSummer) // June 25 + July 4
	assert.Equal(t, 5, totals[0].JuneTotal)   // June 1 + June 25, missing adds 0

	assert.Equal(t, 0, totals[1].TotalSpring)
	assert.Equal(t, 7, totals[1].TotalSummer)
	assert.Equal(t, 0, totals[1].JuneTotal)
}

// Total spring counts are conserved through grouping: the per-trap sums add
// back up to the sum over all spring observations.
func TestAggregateConservesSpringTotal(t *testing.T) {
	obs, err := Reshape("counts.csv", testGrid(), testLayout())
	require.NoError(t, err)

	want := 0
	for _, o := range obs {
		if o.Season() == domain.SeasonSpring && o.Count != nil {
			want += *o.Count
		}
	}

	got := 0
	for _, tot := range Aggregate(obs) {
		got += tot.TotalSpring
	}
	assert.Equal(t, want, got)
}

func TestAggregateEmpty(t *testing.T) {
	assert.Empty(t, Aggregate(nil))
}
