// Package export writes the stored ledger in portable formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/finsplit-dev/finsplit/internal/model"
)

// Header is the CSV header for exported transactions. Column names match the
// ledger table.
const Header = "amount,name,date,memo,account number,account name,Transaction ID"

const (
	numFields      = 7
	colAmount      = 0
	colName        = 1
	colDate        = 2
	colMemo        = 3
	colAcctNumber  = 4
	colAcctName    = 5
	colTransaction = 6
)

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(t model.Transaction) []string {
	row := make([]string, numFields)
	row[colAmount] = t.Amount.StringFixed(2)
	row[colName] = t.Name
	row[colDate] = t.Date
	row[colMemo] = t.Memo
	row[colAcctNumber] = t.AccountNumber
	row[colAcctName] = t.AccountName
	row[colTransaction] = t.TransactionID
	return row
}

// WriteTransactions writes txns to w, header first.
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, t := range txns {
		if err := cw.Write(MarshalTransaction(t)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
