package trap

import (
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berrylab/swd-weather-etl/internal/domain"
	"github.com/berrylab/swd-weather-etl/internal/tabular"
)

const metadataCSV = `trap_id,town,host,station,year
101,Deerfield,blueberry,C5099,2018
102,Whately,raspberry,C5101,2018
101,Deerfield,blueberry,C5099,2017
104,Hadley,cherry,C5099,2018
`

func loadMetadata(t *testing.T) dataframe.DataFrame {
	t.Helper()
	df, err := tabular.Read(strings.NewReader(metadataCSV))
	require.NoError(t, err)
	return df
}

func TestJoinMetadata(t *testing.T) {
	totals := []domain.TrapSeasonalTotals{
		{TrapID: 101, TotalSpring: 5, TotalSummer: 4, JuneTotal: 6},
		{TrapID: 999, TotalSpring: 1},
	}

	res, err := JoinMetadata(totals, loadMetadata(t), 2018, 2019)
	require.NoError(t, err)

	// Traps without reference-year metadata are dropped, and reported.
	assert.Equal(t, 1, res.Rows.Nrow())
	assert.Equal(t, []int{999}, res.DroppedTraps)

	ids, err := res.Rows.Col(ColTrapID).Int()
	require.NoError(t, err)
	assert.Equal(t, []int{101}, ids)

	assert.Equal(t, "C5099", res.Rows.Col(ColStation).Records()[0])

	// The joined rows carry the new data's year, not the metadata's.
	years, err := res.Rows.Col(ColYear).Int()
	require.NoError(t, err)
	assert.Equal(t, []int{2019}, years)
}

func TestJoinMetadataRowBound(t *testing.T) {
	totals := []domain.TrapSeasonalTotals{
		{TrapID: 101}, {TrapID: 102}, {TrapID: 104}, {TrapID: 105},
	}
	meta := loadMetadata(t)

	res, err := JoinMetadata(totals, meta, 2018, 2019)
	require.NoError(t, err)

	refRows, err := FilterYear(meta, 2018)
	require.NoError(t, err)
	assert.LessOrEqual(t, res.Rows.Nrow(), len(totals))
	assert.LessOrEqual(t, res.Rows.Nrow(), refRows.Nrow())
	assert.Equal(t, []int{105}, res.DroppedTraps)
}

func TestAppendHistoryFillsMissingColumns(t *testing.T) {
	history, err := tabular.Read(strings.NewReader(
		"trap_id,station,year,SWD_June,lure\n101,C5099,2018,12,scentry\n"))
	require.NoError(t, err)

	batch, err := tabular.Read(strings.NewReader(
		"trap_id,station,year,SWD_June\n101,C5099,2019,6\n102,C5101,2019,0\n"))
	require.NoError(t, err)

	out, err := AppendHistory(history, batch)
	require.NoError(t, err)
	require.Equal(t, 3, out.Nrow())

	// The appended rows get an explicit missing lure, never a default.
	lures := out.Col("lure").Records()
	assert.Equal(t, "scentry", lures[0])
	assert.Equal(t, "", lures[1])
	assert.Equal(t, "", lures[2])

	june, err := out.Col("SWD_June").Int()
	require.NoError(t, err)
	assert.Equal(t, []int{12, 6, 0}, june)
}

func TestAppendHistoryToEmpty(t *testing.T) {
	batch, err := tabular.Read(strings.NewReader("trap_id,year\n101,2019\n"))
	require.NoError(t, err)

	out, err := AppendHistory(dataframe.DataFrame{}, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Nrow())
}

func TestStations(t *testing.T) {
	df, err := tabular.Read(strings.NewReader(
		"trap_id,station\n101,C5099\n102,C5101\n103,C5099\n104,\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"C5099", "C5101"}, Stations(df))
}
