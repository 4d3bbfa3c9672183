// Package ledger classifies normalized statement rows and builds canonical
// transactions from them.
package ledger

import (
	"github.com/finsplit-dev/finsplit/internal/acctno"
	"github.com/finsplit-dev/finsplit/internal/model"
)

// RowKind is what Classify decided a row was.
type RowKind int

const (
	// RowBlank has neither account details nor an entity code.
	RowBlank RowKind = iota
	// RowHeader announced a new account.
	RowHeader
	// RowIgnoredHeader had account details that were not an account number.
	RowIgnoredHeader
	// RowTransaction produced a transaction.
	RowTransaction
)

func (k RowKind) String() string {
	switch k {
	case RowBlank:
		return "blank"
	case RowHeader:
		return "header"
	case RowIgnoredHeader:
		return "ignored-header"
	case RowTransaction:
		return "transaction"
	default:
		return "unknown"
	}
}

// Outcome is the result of classifying one row. Transaction is set only for
// RowTransaction; AmountFallback reports an unparseable amount cell.
type Outcome struct {
	Kind           RowKind
	Transaction    model.Transaction
	AmountFallback bool
}

// Classify folds one row into the running account context. It returns the
// context to use for the next row.
//
// An account-details cell that does not start with an account number leaves
// the previous account active, so later transactions keep that account.
func Classify(acct model.AccountContext, row model.NormalizedRow) (model.AccountContext, Outcome) {
	details := row.Get(model.ColAccountDetails)
	entity := row.Get(model.ColEntityCode)

	if details.IsEmpty() && entity.IsEmpty() {
		return acct, Outcome{Kind: RowBlank}
	}

	if !details.IsEmpty() {
		number, name, ok := acctno.Split(details.String())
		if !ok {
			return acct, Outcome{Kind: RowIgnoredHeader}
		}
		return model.AccountContext{Number: number, Name: name}, Outcome{Kind: RowHeader}
	}

	amountCell := row.Get(model.ColCredit)
	if amountCell.IsEmpty() {
		amountCell = row.Get(model.ColDebit)
	}
	amount := ParseCurrency(amountCell.String())

	memo := row.Get(model.ColMemo).String()
	name := memo
	if master := row.Get(model.ColOriginalMasterName); !master.IsEmpty() {
		name = master.String()
	}

	return acct, Outcome{
		Kind: RowTransaction,
		Transaction: model.Transaction{
			Amount:        amount.Value,
			Name:          name,
			Date:          row.Get(model.ColTransactionDate).String(),
			Memo:          memo,
			AccountNumber: acct.Number,
			AccountName:   acct.Name,
			TransactionID: row.Get(model.ColTransactionID).String(),
		},
		AmountFallback: amount.Fallback,
	}
}
