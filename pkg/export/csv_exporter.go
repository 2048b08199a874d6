package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Recap is a downloadable snapshot of one export domain. Rows are
// positional and follow the same column order as the spreadsheet tabs,
// so the recap endpoints and the sheets pipeline share row builders.
type Recap struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// CSVRenderer renders recaps into CSV bytes.
type CSVRenderer struct{}

// NewCSVRenderer builds a CSV renderer.
func NewCSVRenderer() *CSVRenderer {
	return &CSVRenderer{}
}

// Render produces CSV encoded bytes for the recap.
func (r *CSVRenderer) Render(recap Recap) ([]byte, error) {
	if len(recap.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(recap.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range recap.Rows {
		record := make([]string, len(recap.Headers))
		copy(record, row)
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
