// Package fixture builds statement workbooks for tests.
package fixture

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Header is the column header row of a statement, as the bank prints it.
var Header = []string{
	"Account", "Entity Code", "Credit", "Debit", "Original Master Name",
	"Memo/ Description", "Transaction Date", "Transaction ID",
}

// Grid returns a full worksheet: the label row a spreadsheet reader consumes,
// eleven banner rows, the header row and body.
func Grid(body ...[]string) [][]string {
	grid := [][]string{{"Bank Statement Export"}}
	for i := 1; i <= 11; i++ {
		grid = append(grid, []string{fmt.Sprintf("banner line %d", i)})
	}
	grid = append(grid, Header)
	return append(grid, body...)
}

// Txn returns a transaction row.
func Txn(entity, credit, debit, master, memo, date, id string) []string {
	return []string{"", entity, credit, debit, master, memo, date, id}
}

// XLSX renders each grid as one worksheet and returns the workbook bytes.
// Every cell is written as text.
func XLSX(t testing.TB, grids ...[][]string) []byte {
	t.Helper()
	f := newWorkbook(t, grids)
	defer f.Close()
	return write(t, f)
}

// Typed is a cell written with a typed value and an optional number format.
// Cell is an A1 reference on Sheet1.
type Typed struct {
	Cell         string
	Value        any
	NumFmt       int
	CustomNumFmt string
}

// XLSXTyped renders grid as Sheet1 and then overwrites the given cells with
// typed, formatted values.
func XLSXTyped(t testing.TB, grid [][]string, cells ...Typed) []byte {
	t.Helper()
	f := newWorkbook(t, [][][]string{grid})
	defer f.Close()

	for _, c := range cells {
		require.NoError(t, f.SetCellValue("Sheet1", c.Cell, c.Value))
		if c.NumFmt == 0 && c.CustomNumFmt == "" {
			continue
		}
		style := &excelize.Style{NumFmt: c.NumFmt}
		if c.CustomNumFmt != "" {
			style.CustomNumFmt = &c.CustomNumFmt
		}
		id, err := f.NewStyle(style)
		require.NoError(t, err)
		require.NoError(t, f.SetCellStyle("Sheet1", c.Cell, c.Cell, id))
	}
	return write(t, f)
}

func newWorkbook(t testing.TB, grids [][][]string) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	for i, grid := range grids {
		name := fmt.Sprintf("Sheet%d", i+1)
		if i > 0 {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range grid {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			values := make([]any, len(row))
			for c, v := range row {
				values[c] = v
			}
			require.NoError(t, f.SetSheetRow(name, cell, &values))
		}
	}
	return f
}

func write(t testing.TB, f *excelize.File) []byte {
	t.Helper()
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// CSV renders grid as CSV bytes.
func CSV(t testing.TB, grid [][]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	require.NoError(t, w.WriteAll(grid))
	return buf.Bytes()
}
