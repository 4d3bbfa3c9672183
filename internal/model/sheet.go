package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Column labels of a normalized statement row.
const (
	ColAccountDetails     = "Account Details"
	ColEntityCode         = "Entity Code"
	ColCredit             = "Credit"
	ColDebit              = "Debit"
	ColOriginalMasterName = "Original Master Name"
	ColMemo               = "Memo/ Description"
	ColTransactionDate    = "Transaction Date"
	ColTransactionID      = "Transaction ID"
)

// CellKind tells what a raw cell holds.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellString
	CellNumber
)

// Cell is an untyped spreadsheet value.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// StringCell returns a text cell. The empty string yields an empty cell.
func StringCell(s string) Cell {
	if s == "" {
		return Cell{}
	}
	return Cell{Kind: CellString, Text: s}
}

// NumberCell returns a numeric cell.
func NumberCell(f float64) Cell {
	return Cell{Kind: CellNumber, Number: f}
}

// IsEmpty reports whether the cell is missing, blank text, or NaN.
func (c Cell) IsEmpty() bool {
	switch c.Kind {
	case CellString:
		return c.Text == ""
	case CellNumber:
		return math.IsNaN(c.Number)
	default:
		return true
	}
}

// String returns the raw string form of the cell. Empty cells render as "".
func (c Cell) String() string {
	if c.IsEmpty() {
		return ""
	}
	if c.Kind == CellNumber {
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	}
	return c.Text
}

// MarshalJSON encodes empty cells as null, numbers as numbers, text as strings.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch {
	case c.IsEmpty():
		return []byte("null"), nil
	case c.Kind == CellNumber:
		return json.Marshal(c.Number)
	default:
		return json.Marshal(c.Text)
	}
}

// UnmarshalJSON accepts null, a JSON string, or a JSON number.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*c = Cell{}
	case string:
		*c = StringCell(x)
	case float64:
		*c = NumberCell(x)
	default:
		return fmt.Errorf("unsupported cell value %s", data)
	}
	return nil
}

// RawSheet is one decoded worksheet. Columns holds the decoder's own label
// row (the first worksheet row); Rows are the positional rows beneath it.
type RawSheet struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns,omitempty"`
	Rows    [][]Cell `json:"rows"`
}

// NormalizedRow maps column labels to raw cells.
type NormalizedRow map[string]Cell

// Get returns the cell under label, or an empty cell if the column is absent.
func (r NormalizedRow) Get(label string) Cell {
	return r[label]
}
