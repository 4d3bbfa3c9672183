package model

import "github.com/shopspring/decimal"

// Transaction is one canonical ledger record. All seven fields together form
// the dedup key.
type Transaction struct {
	Amount        decimal.Decimal `json:"amount"`
	Name          string          `json:"name"`
	Date          string          `json:"date"`
	Memo          string          `json:"memo"`
	AccountNumber string          `json:"account_number"`
	AccountName   string          `json:"account_name"`
	TransactionID string          `json:"transaction_id"`
}

// SameAs reports whether t and o carry identical values in all seven fields.
// Amounts compare by value, so 1234.50 and 1234.5 are the same.
func (t Transaction) SameAs(o Transaction) bool {
	return t.Amount.Equal(o.Amount) &&
		t.Name == o.Name &&
		t.Date == o.Date &&
		t.Memo == o.Memo &&
		t.AccountNumber == o.AccountNumber &&
		t.AccountName == o.AccountName &&
		t.TransactionID == o.TransactionID
}
