package domain

import "time"

// Canonical column names for normalized per-station daily tables. The raw
// archive files carry no usable header; positions are named by an externally
// supplied reference schema using these identifiers.
const (
	ColMonth   = "month"
	ColDay     = "day"
	ColTminF   = "tmin_F"
	ColTmaxF   = "tmax_F"
	ColPrecip  = "precip_in"
	ColDD10    = "DD10"
	ColCumDD10 = "CUMDD10"
)

// DailyWeather is one normalized daily row for a station. Temperature,
// precipitation, and degree-day fields are nil where the raw file carried the
// missing-value sentinel. CumDD10 is the running sum of DD10 in file order,
// kept on the raw Fahrenheit scale; conversion happens at aggregation time.
type DailyWeather struct {
	Month   int      `csv:"month"`
	Day     int      `csv:"day"`
	TminF   *float64 `csv:"tmin_F"`
	TmaxF   *float64 `csv:"tmax_F"`
	Precip  *float64 `csv:"precip_in"`
	DD10    *float64 `csv:"DD10"`
	CumDD10 *float64 `csv:"CUMDD10"`
}

// Date anchors the row's month/day in the given year, midnight UTC.
func (d DailyWeather) Date(year int) time.Time {
	return time.Date(year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// SeasonalSummary is one row per (station, year) of seasonal weather
// statistics. Temperatures are Celsius, precipitation millimetres, degree-days
// Celsius-scale and floored at zero. Nil pointers are the explicit missing
// marker and serialize as empty fields.
type SeasonalSummary struct {
	Station string `csv:"station" dataframe:"station"`
	Year    int    `csv:"year" dataframe:"year"`

	TminWinter *float64 `csv:"tmin_winter" dataframe:"tmin_winter"`
	TmaxWinter *float64 `csv:"tmax_winter" dataframe:"tmax_winter"`
	TminSpring *float64 `csv:"tmin_spring" dataframe:"tmin_spring"`
	TmaxSpring *float64 `csv:"tmax_spring" dataframe:"tmax_spring"`
	TminSummer *float64 `csv:"tmin_summer" dataframe:"tmin_summer"`
	TmaxSummer *float64 `csv:"tmax_summer" dataframe:"tmax_summer"`

	DaysBelowMinus5Winter *int `csv:"days_below_minus5_winter" dataframe:"days_below_minus5_winter"`
	DaysBelowZeroWinter   *int `csv:"days_below_zero_winter" dataframe:"days_below_zero_winter"`

	DDWinter *float64 `csv:"DD_winter" dataframe:"DD_winter"`
	DDSpring *float64 `csv:"DD_spring" dataframe:"DD_spring"`
	DDSummer *float64 `csv:"DD_summer" dataframe:"DD_summer"`

	PrecipWinter *float64 `csv:"precipitation_winter" dataframe:"precipitation_winter"`
	PrecipSpring *float64 `csv:"precipitation_spring" dataframe:"precipitation_spring"`
	PrecipSummer *float64 `csv:"precipitation_summer" dataframe:"precipitation_summer"`
}
