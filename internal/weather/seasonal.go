package weather

import (
	"time"

	"github.com/berrylab/swd-weather-etl/internal/domain"
)

// MinSeasonalPrecipMM is the data-quality floor for seasonal precipitation:
// a season summing below 20 mm almost certainly has unreported days, so the
// value is left missing rather than recorded as an implausibly dry season.
const MinSeasonalPrecipMM = 20.0

// Thresholds for winter cold-day counts, in Celsius.
const (
	coldDayThreshold  = 0.0
	frigidUnderMinus5 = -5.0
)

// seasonWindows holds the year-specific date windows the summary statistics
// are computed over. Cumulative windows share one start (prior-year Dec 21)
// and differ only in end date; exclusive windows tile the year without
// overlap. Both derive from the same boundary constants as the season
// classifier.
type seasonWindows struct {
	winterStart time.Time // prior-year Dec 21

	springStart time.Time // Mar 21
	summerStart time.Time // Jun 21
	fallStart   time.Time // Sep 21

	winterCumEnd time.Time // Mar 20, CUMDD10 read here for DD_winter
	springCumEnd time.Time // Jun 20
	summerCumEnd time.Time // Sep 20
}

func windowsFor(year int) seasonWindows {
	springStart := domain.SpringStart.In(year)
	summerStart := domain.SummerStart.In(year)
	fallStart := domain.FallStart.In(year)
	return seasonWindows{
		winterStart:  domain.WinterStart.In(year - 1),
		springStart:  springStart,
		summerStart:  summerStart,
		fallStart:    fallStart,
		winterCumEnd: springStart.AddDate(0, 0, -1),
		springCumEnd: summerStart.AddDate(0, 0, -1),
		summerCumEnd: fallStart.AddDate(0, 0, -1),
	}
}

// convertedDay is one daily row after unit conversion: temperatures Celsius,
// precipitation millimetres, cumulative degree-days Celsius-scale and floored
// at zero.
type convertedDay struct {
	date   time.Time
	tminC  *float64
	tmaxC  *float64
	precip *float64
	cumDD  *float64
}

func convertDay(d domain.DailyWeather, year int) convertedDay {
	out := convertedDay{date: d.Date(year)}
	if d.TminF != nil {
		v := domain.FToC(*d.TminF)
		out.tminC = &v
	}
	if d.TmaxF != nil {
		v := domain.FToC(*d.TmaxF)
		out.tmaxC = &v
	}
	if d.Precip != nil {
		v := domain.InchesToMM(*d.Precip)
		out.precip = &v
	}
	if d.CumDD10 != nil {
		v := domain.ClampDD(domain.FDegreeDaysToC(*d.CumDD10))
		out.cumDD = &v
	}
	return out
}

// Summarize computes the seasonal weather summary for one station-year from
// its normalized daily table. A single-year file holds no prior-December
// rows, so the winter windows effectively cover Jan 1 through the spring
// boundary; the window constants still carry the full definition.
func Summarize(rows []domain.DailyWeather, station string, year int) domain.SeasonalSummary {
	w := windowsFor(year)

	days := make([]convertedDay, 0, len(rows))
	for _, r := range rows {
		days = append(days, convertDay(r, year))
	}

	s := domain.SeasonalSummary{Station: station, Year: year}

	s.TminWinter, s.TmaxWinter = meanTemps(days, w.winterStart, w.springStart)
	s.TminSpring, s.TmaxSpring = meanTemps(days, w.springStart, w.summerStart)
	s.TminSummer, s.TmaxSummer = meanTemps(days, w.summerStart, w.fallStart)

	s.DaysBelowMinus5Winter, s.DaysBelowZeroWinter = winterColdDays(days, w)

	s.DDWinter = cumDDAt(days, w.winterCumEnd)
	s.DDSpring = cumDDAt(days, w.springCumEnd)
	s.DDSummer = cumDDAt(days, w.summerCumEnd)

	s.PrecipWinter = seasonPrecip(days, w.winterStart, w.springStart)
	s.PrecipSpring = seasonPrecip(days, w.springStart, w.summerStart)
	s.PrecipSummer = seasonPrecip(days, w.summerStart, w.fallStart)

	return s
}

// inWindow reports membership in the half-open window [start, end).
func inWindow(d time.Time, start, end time.Time) bool {
	return !d.Before(start) && d.Before(end)
}

// meanTemps averages daily min and max temperatures over a window, skipping
// missing days. A window with no observed days yields missing, never zero.
func meanTemps(days []convertedDay, start, end time.Time) (*float64, *float64) {
	var minSum, maxSum float64
	var minN, maxN int
	for _, d := range days {
		if !inWindow(d.date, start, end) {
			continue
		}
		if d.tminC != nil {
			minSum += *d.tminC
			minN++
		}
		if d.tmaxC != nil {
			maxSum += *d.tmaxC
			maxN++
		}
	}

	var tmin, tmax *float64
	if minN > 0 {
		v := minSum / float64(minN)
		tmin = &v
	}
	if maxN > 0 {
		v := maxSum / float64(maxN)
		tmax = &v
	}
	return tmin, tmax
}

// winterColdDays counts days in the cumulative winter window (start through
// the Mar 20 end, inclusive) with observed minimum temperature below -5 and
// below 0 Celsius. With no winter rows at all both counts are missing.
func winterColdDays(days []convertedDay, w seasonWindows) (*int, *int) {
	var belowMinus5, belowZero int
	seen := false
	for _, d := range days {
		if !inWindow(d.date, w.winterStart, w.winterCumEnd.AddDate(0, 0, 1)) {
			continue
		}
		seen = true
		if d.tminC == nil {
			continue
		}
		if *d.tminC < frigidUnderMinus5 {
			belowMinus5++
		}
		if *d.tminC < coldDayThreshold {
			belowZero++
		}
	}
	if !seen {
		return nil, nil
	}
	return &belowMinus5, &belowZero
}

// cumDDAt reads the converted cumulative degree-day total on the window's
// end date. The value is a point read, never a sum over the window; a
// missing end-date row leaves the season's total missing.
func cumDDAt(days []convertedDay, end time.Time) *float64 {
	for _, d := range days {
		if d.date.Equal(end) {
			return d.cumDD
		}
	}
	return nil
}

// seasonPrecip sums daily precipitation over the exclusive window, recording
// the result only when it clears the data-quality floor.
func seasonPrecip(days []convertedDay, start, end time.Time) *float64 {
	var sum float64
	for _, d := range days {
		if inWindow(d.date, start, end) && d.precip != nil {
			sum += *d.precip
		}
	}
	if sum < MinSeasonalPrecipMM {
		return nil
	}
	return &sum
}
