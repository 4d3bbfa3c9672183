package importer

import (
	"fmt"
	"io"
	"os"

	"github.com/shakinm/xlsReader/xls"

	"github.com/finsplit-dev/finsplit/internal/model"
)

// XLSDecoder reads legacy BIFF8 workbooks.
type XLSDecoder struct{}

// Format returns the decoder name.
func (d *XLSDecoder) Format() string { return "xls" }

// Extensions returns the file extensions this decoder handles.
func (d *XLSDecoder) Extensions() []string { return []string{".xls"} }

// Decode returns every worksheet in workbook order, with every cell as the
// text the reader reports for it. The reader needs a file on disk, so the
// upload is spooled to a temporary file first.
func (d *XLSDecoder) Decode(r io.Reader) ([]model.RawSheet, error) {
	tmp, err := os.CreateTemp("", "finsplit-*.xls")
	if err != nil {
		return nil, fmt.Errorf("spooling workbook: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("spooling workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("spooling workbook: %w", err)
	}

	book, err := xls.OpenFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}

	var sheets []model.RawSheet
	for i := 0; i < book.GetNumberSheets(); i++ {
		sheet, err := book.GetSheet(i)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %d: %w", i, err)
		}
		if sheet == nil {
			continue
		}

		var records [][]string
		for _, row := range sheet.GetRows() {
			var rec []string
			for _, col := range row.GetCols() {
				rec = append(rec, col.GetString())
			}
			records = append(records, rec)
		}
		sheets = append(sheets, rawSheet(sheet.GetName(), textGrid(records)))
	}
	return sheets, nil
}
