package domain

import "time"

// Sex labels used in the second header row of the trap-count table.
const (
	SexMale   = "male"
	SexFemale = "female"
)

// TrapObservation is one normalized count: a single trap, date, and sex,
// produced from one cell of the raw dual-header grid. Count is nil when the
// source cell was blank; downstream aggregation treats nil as zero.
type TrapObservation struct {
	Location1 string
	CropHost  string
	Location2 string
	TrapID    int
	Sex       string
	Date      time.Time
	Count     *int
}

// Season returns the calendar season of the observation date.
func (o TrapObservation) Season() string { return Season(o.Date) }

// Month returns the full month name of the observation date.
func (o TrapObservation) Month() string { return MonthName(o.Date) }

// TrapSeasonalTotals holds per-trap season and June count totals for one
// year. Column names match the historical dataset schema.
type TrapSeasonalTotals struct {
	TrapID      int `dataframe:"trap_id"`
	TotalSpring int `dataframe:"total_SWD_spring"`
	TotalSummer int `dataframe:"total_SWD_summer"`
	JuneTotal   int `dataframe:"SWD_June"`
}
