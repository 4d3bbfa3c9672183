package ledger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/finsplit-dev/finsplit/internal/model"
)

// Inserter persists a transaction unless an identical one is already stored.
// It reports whether a new record was written.
type Inserter interface {
	Insert(ctx context.Context, txn model.Transaction) (bool, error)
}

// Result summarizes one sheet walk.
type Result struct {
	Transactions   []model.Transaction
	Inserted       int
	Duplicates     int
	Blank          int
	Headers        int
	IgnoredHeaders int
	Fallbacks      int
	Unassigned     int // transactions seen before any account header
}

// Builder walks normalized rows of one sheet and writes the transactions it
// finds.
type Builder struct {
	store Inserter
	log   zerolog.Logger
}

// NewBuilder creates a Builder writing to store.
func NewBuilder(store Inserter, log zerolog.Logger) *Builder {
	return &Builder{store: store, log: log}
}

// Build classifies rows in order, starting from an empty account context,
// and inserts every transaction as soon as it is produced. A store error
// stops the walk; rows inserted before it stay committed.
func (b *Builder) Build(ctx context.Context, rows []model.NormalizedRow) (Result, error) {
	var res Result
	var acct model.AccountContext

	for i, row := range rows {
		var out Outcome
		acct, out = Classify(acct, row)

		switch out.Kind {
		case RowBlank:
			res.Blank++
		case RowHeader:
			res.Headers++
			b.log.Debug().Int("row", i+1).Str("account_number", acct.Number).Str("account_name", acct.Name).Msg("account header")
		case RowIgnoredHeader:
			res.IgnoredHeaders++
			b.log.Debug().Int("row", i+1).Str("details", row.Get(model.ColAccountDetails).String()).Msg("ignoring unrecognized account details")
		case RowTransaction:
			if out.AmountFallback {
				res.Fallbacks++
				b.log.Debug().Int("row", i+1).Str("transaction_id", out.Transaction.TransactionID).Msg("unparseable amount stored as zero")
			}
			if acct.IsZero() {
				res.Unassigned++
				b.log.Debug().Int("row", i+1).Msg("transaction before any account header")
			}
			inserted, err := b.store.Insert(ctx, out.Transaction)
			if err != nil {
				return res, fmt.Errorf("row %d: inserting transaction: %w", i+1, err)
			}
			if inserted {
				res.Inserted++
			} else {
				res.Duplicates++
			}
			res.Transactions = append(res.Transactions, out.Transaction)
		}
	}
	return res, nil
}
