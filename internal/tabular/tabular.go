// Package tabular reads and writes gota dataframes as delimited text with
// the pipeline's missing-value convention: empty fields, never NaN tokens.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
)

// Read loads a delimited table with a header row. Empty cells and the usual
// NA spellings become missing values.
func Read(r io.Reader) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.NaNValues([]string{"", "NA", "NaN"}),
	)
	if df.Error() != nil {
		return df, fmt.Errorf("read table: %w", df.Error())
	}
	return df, nil
}

// Write serializes a dataframe as delimited text. gota renders missing
// values as the NaN token; the output contract wants empty fields, so they
// are blanked on the way out.
func Write(w io.Writer, df dataframe.DataFrame) error {
	if df.Error() != nil {
		return fmt.Errorf("write table: %w", df.Error())
	}

	cw := csv.NewWriter(w)
	for _, record := range df.Records() {
		for i, cell := range record {
			if cell == "NaN" {
				record[i] = ""
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
