package domain

const (
	mmPerInch = 25.4

	// Degree-day totals are accumulated temperature differences, so the
	// Fahrenheit offset cancels and only the 5/9 scale applies.
	fToCScale = 5.0 / 9.0
)

// InchesToMM converts a length in inches to millimetres.
func InchesToMM(in float64) float64 { return in * mmPerInch }

// MMToInches converts a length in millimetres to inches.
func MMToInches(mm float64) float64 { return mm / mmPerInch }

// FToC converts a temperature in degrees Fahrenheit to Celsius.
func FToC(f float64) float64 { return (f - 32) * fToCScale }

// CToF converts a temperature in degrees Celsius to Fahrenheit.
func CToF(c float64) float64 { return c/fToCScale + 32 }

// FDegreeDaysToC rescales a Fahrenheit-base degree-day total to Celsius base.
func FDegreeDaysToC(dd float64) float64 { return dd * fToCScale }

// ClampDD floors a degree-day total at zero. A negative total means "no
// accumulation", never negative thermal exposure.
func ClampDD(dd float64) float64 {
	if dd < 0 {
		return 0
	}
	return dd
}
