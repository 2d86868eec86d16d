package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Column describes one field of an attendance sheet.
type Column struct {
	Key   string
	Label string
	// Width is a relative weight used by the PDF layout. Zero means 1.
	Width float64
}

// Sheet is a titled table ready to be rendered.
type Sheet struct {
	Title    string
	Subtitle string
	Columns  []Column
	Rows     []map[string]string
}

func (s Sheet) validate() error {
	if len(s.Columns) == 0 {
		return fmt.Errorf("sheet requires at least one column")
	}
	return nil
}

// CSVExporter renders sheets into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes. The first line holds column labels.
func (e *CSVExporter) Render(sheet Sheet) ([]byte, error) {
	if err := sheet.validate(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	labels := make([]string, len(sheet.Columns))
	for i, col := range sheet.Columns {
		labels[i] = col.Label
		if labels[i] == "" {
			labels[i] = col.Key
		}
	}
	if err := writer.Write(labels); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range sheet.Rows {
		record := make([]string, len(sheet.Columns))
		for i, col := range sheet.Columns {
			record[i] = row[col.Key]
		}
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
