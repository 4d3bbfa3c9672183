// Package importer decodes uploaded statement files into raw worksheets and
// manages the import directory.
package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/finsplit-dev/finsplit/internal/model"
)

// TimestampLayout is how date-styled numeric cells are rendered.
const TimestampLayout = "2006-01-02 15:04:05"

// XLSXDecoder reads Office Open XML workbooks.
type XLSXDecoder struct{}

// Format returns the decoder name.
func (d *XLSXDecoder) Format() string { return "xlsx" }

// Extensions returns the file extensions this decoder handles.
func (d *XLSXDecoder) Extensions() []string { return []string{".xlsx", ".xlsm"} }

// Decode returns every worksheet in workbook order. The first row of each
// worksheet becomes Columns; the rest become Rows. Numeric cells keep their
// stored value regardless of number format, except date-styled ones, which
// become timestamps.
func (d *XLSXDecoder) Decode(r io.Reader) ([]model.RawSheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	props, err := f.GetWorkbookProps()
	if err != nil {
		return nil, fmt.Errorf("reading workbook properties: %w", err)
	}
	wb := &workbook{f: f, date1904: props.Date1904 != nil && *props.Date1904, dateStyle: make(map[int]bool)}

	var sheets []model.RawSheet
	for _, name := range f.GetSheetList() {
		grid, err := wb.sheet(name)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", name, err)
		}
		sheets = append(sheets, rawSheet(name, grid))
	}
	return sheets, nil
}

type workbook struct {
	f         *excelize.File
	date1904  bool
	dateStyle map[int]bool
}

func (wb *workbook) sheet(name string) ([][]model.Cell, error) {
	values, err := wb.f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	grid := make([][]model.Cell, len(values))
	for r, rec := range values {
		cells := make([]model.Cell, len(rec))
		for c, v := range rec {
			if v == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			cells[c], err = wb.cell(name, axis, v)
			if err != nil {
				return nil, fmt.Errorf("cell %s: %w", axis, err)
			}
		}
		grid[r] = cells
	}
	return grid, nil
}

// cell converts one stored value. Text stays text; numbers become number
// cells unless their style is a date format.
func (wb *workbook) cell(sheet, axis, value string) (model.Cell, error) {
	typ, err := wb.f.GetCellType(sheet, axis)
	if err != nil {
		return model.Cell{}, err
	}

	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
	case excelize.CellTypeBool, excelize.CellTypeDate, excelize.CellTypeError:
		shown, err := wb.f.GetCellValue(sheet, axis)
		if err != nil {
			return model.Cell{}, err
		}
		return model.StringCell(shown), nil
	default:
		return model.StringCell(value), nil
	}

	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return model.StringCell(value), nil
	}

	isDate, err := wb.isDateStyled(sheet, axis)
	if err != nil {
		return model.Cell{}, err
	}
	if !isDate {
		return model.NumberCell(n), nil
	}
	t, err := excelize.ExcelDateToTime(n, wb.date1904)
	if err != nil {
		return model.NumberCell(n), nil
	}
	return model.StringCell(t.Format(TimestampLayout)), nil
}

func (wb *workbook) isDateStyled(sheet, axis string) (bool, error) {
	idx, err := wb.f.GetCellStyle(sheet, axis)
	if err != nil {
		return false, err
	}
	if idx == 0 {
		return false, nil
	}
	if isDate, ok := wb.dateStyle[idx]; ok {
		return isDate, nil
	}

	style, err := wb.f.GetStyle(idx)
	if err != nil {
		return false, err
	}
	isDate := builtInDateFormats[style.NumFmt]
	if style.CustomNumFmt != nil {
		isDate = isDateFormatCode(*style.CustomNumFmt)
	}
	wb.dateStyle[idx] = isDate
	return isDate, nil
}

// builtInDateFormats are the reserved number format IDs that render dates or
// times, including the locale-specific ones.
var builtInDateFormats = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true, 22: true,
	27: true, 28: true, 29: true, 30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true,
	45: true, 46: true, 47: true,
	50: true, 51: true, 52: true, 53: true, 54: true, 55: true, 56: true, 57: true, 58: true,
}

// isDateFormatCode reports whether a custom number format uses date or time
// tokens outside quoted literals and bracketed sections.
func isDateFormatCode(code string) bool {
	var b strings.Builder
	inQuote, inBracket, escaped := false, false, false
	for _, r := range code {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(r)
		}
	}
	plain := strings.ToLower(b.String())
	if plain == "general" {
		return false
	}
	return strings.ContainsAny(plain, "ymdhs")
}

// rawSheet splits a cell grid into a label row and positional data rows.
func rawSheet(name string, grid [][]model.Cell) model.RawSheet {
	sheet := model.RawSheet{Name: name}
	if len(grid) == 0 {
		return sheet
	}
	sheet.Columns = make([]string, len(grid[0]))
	for i, c := range grid[0] {
		sheet.Columns[i] = c.String()
	}
	sheet.Rows = grid[1:]
	return sheet
}

// textGrid converts string records to string cells.
func textGrid(records [][]string) [][]model.Cell {
	grid := make([][]model.Cell, len(records))
	for r, rec := range records {
		cells := make([]model.Cell, len(rec))
		for c, v := range rec {
			cells[c] = model.StringCell(v)
		}
		grid[r] = cells
	}
	return grid
}
