package trap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berrylab/swd-weather-etl/internal/domain"
)

// testGrid mirrors the source layout: date labels once per pair in row 0,
// sex labels in row 1, three trap rows, then two aggregate total rows.
func testGrid() [][]string {
	return [][]string{
		{"", "", "", "", "6/1/2019", "", "6/15/2019", ""},
		{"location", "crop", "sub", "trap", "male", "female", "male", "female"},
		{"Deerfield", "blueberry", "north", "101", "2", "3", "1", "0"},
		{"Deerfield", "raspberry", "south", "102", "0", "1", "", "4"},
		{"Whately", "cherry", "", "103", "5", "2", "2", "2"},
		{"", "", "", "total males", "7", "", "3", ""},
		{"", "", "", "total females", "", "6", "", "6"},
	}
}

func testLayout() Layout {
	return Layout{StartRow: 2, StartCol: 4, DataRows: 3, NumCols: 8}
}

func TestReshape(t *testing.T) {
	obs, err := Reshape("counts.csv", testGrid(), testLayout())
	require.NoError(t, err)

	// 2 sexes x 3 traps x 2 dates.
	require.Len(t, obs, 12)

	first := obs[0]
	assert.Equal(t, 101, first.TrapID)
	assert.Equal(t, domain.SexMale, first.Sex)
	assert.Equal(t, time.Date(2019, time.June, 1, 0, 0, 0, 0, time.UTC), first.Date)
	require.NotNil(t, first.Count)
	assert.Equal(t, 2, *first.Count)
	assert.Equal(t, "Deerfield", first.Location1)
	assert.Equal(t, "blueberry", first.CropHost)
	assert.Equal(t, "north", first.Location2)

	// Row-major, male before female within each pair.
	assert.Equal(t, domain.SexFemale, obs[1].Sex)
	assert.Equal(t, obs[0].Date, obs[1].Date)
	assert.Equal(t, time.Date(2019, time.June, 15, 0, 0, 0, 0, time.UTC), obs[2].Date)
	assert.Equal(t, 102, obs[4].TrapID)

	// Blank count is missing, not zero.
	blank := obs[6] // trap 102, male, 6/15
	assert.Equal(t, domain.SexMale, blank.Sex)
	assert.Nil(t, blank.Count)

	// Zero is a real count.
	zero := obs[3] // trap 101, female, 6/15
	require.NotNil(t, zero.Count)
	assert.Equal(t, 0, *zero.Count)
}

func TestReshapeDeterministic(t *testing.T) {
	a, err := Reshape("counts.csv", testGrid(), testLayout())
	require.NoError(t, err)
	b, err := Reshape("counts.csv", testGrid(), testLayout())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestReshapeCollectsParseErrors(t *testing.T) {
	grid := testGrid()
	grid[3][5] = "lots" // non-numeric count for trap 102, female, 6/1

	obs, err := Reshape("counts.csv", grid, testLayout())
	require.Error(t, err)

	var perr *domain.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "counts.csv", perr.Source)
	assert.Equal(t, 3, perr.Row)
	assert.Equal(t, 5, perr.Col)

	// Only the bad cell's observation is missing.
	assert.Len(t, obs, 11)
}

func TestReshapeBadTrapIDSkipsRow(t *testing.T) {
	grid := testGrid()
	grid[4][3] = "n/a"

	obs, err := Reshape("counts.csv", grid, testLayout())
	require.Error(t, err)
	assert.Len(t, obs, 8)
	for _, o := range obs {
		assert.NotEqual(t, 103, o.TrapID)
	}
}

func TestReshapeConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
	}{
		{"start column on female cell", Layout{StartRow: 2, StartCol: 5, DataRows: 3, NumCols: 7}},
		{"start row inside headers", Layout{StartRow: 1, StartCol: 4, DataRows: 3, NumCols: 8}},
		{"data block past grid end", Layout{StartRow: 2, StartCol: 4, DataRows: 9, NumCols: 8}},
		{"odd count block width", Layout{StartRow: 2, StartCol: 4, DataRows: 3, NumCols: 7}},
		{"start column in metadata", Layout{StartRow: 2, StartCol: 2, DataRows: 3, NumCols: 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reshape("counts.csv", testGrid(), tt.layout)
			var cerr *domain.ConfigError
			require.ErrorAs(t, err, &cerr)
		})
	}
}
