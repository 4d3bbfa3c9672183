package importer

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/finsplit-dev/finsplit/internal/model"
)

// CSVDecoder reads a statement saved as CSV. The file is one sheet.
type CSVDecoder struct{}

// Format returns the decoder name.
func (d *CSVDecoder) Format() string { return "csv" }

// Extensions returns the file extensions this decoder handles.
func (d *CSVDecoder) Extensions() []string { return []string{".csv"} }

// Decode reads all records. Statement exports have ragged banner lines, so
// records may differ in length.
func (d *CSVDecoder) Decode(r io.Reader) ([]model.RawSheet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading statement CSV: %w", err)
	}
	return []model.RawSheet{rawSheet("csv", textGrid(records))}, nil
}
