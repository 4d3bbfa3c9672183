// Package accounts lists the bank accounts that appear in the ledger.
package accounts

import (
	"github.com/shopspring/decimal"

	"github.com/finsplit-dev/finsplit/internal/model"
)

// Account is one account number/name pair seen in the ledger.
type Account struct {
	Number       string          `json:"account_number"`
	Name         string          `json:"account_name"`
	Transactions int             `json:"transactions"`
	Total        decimal.Decimal `json:"total"`
}

type key struct{ number, name string }

// Service provides in-memory lookup over the accounts of a ledger.
type Service struct {
	accounts []Account
	byNumber map[string][]int
}

// FromTransactions builds a Service from stored transactions. Accounts keep
// first-seen order. Transactions read before any account header have an empty
// number and name and are grouped as their own account.
func FromTransactions(txns []model.Transaction) *Service {
	s := &Service{byNumber: make(map[string][]int)}
	index := make(map[key]int)
	for _, t := range txns {
		k := key{t.AccountNumber, t.AccountName}
		i, ok := index[k]
		if !ok {
			i = len(s.accounts)
			index[k] = i
			s.accounts = append(s.accounts, Account{Number: t.AccountNumber, Name: t.AccountName, Total: decimal.Zero})
			s.byNumber[t.AccountNumber] = append(s.byNumber[t.AccountNumber], i)
		}
		s.accounts[i].Transactions++
		s.accounts[i].Total = s.accounts[i].Total.Add(t.Amount)
	}
	return s
}

// All returns all accounts.
func (s *Service) All() []Account {
	return s.accounts
}

// Get returns the accounts recorded under number. One number can carry more
// than one name when statements spell it differently.
func (s *Service) Get(number string) []Account {
	var out []Account
	for _, i := range s.byNumber[number] {
		out = append(out, s.accounts[i])
	}
	return out
}

// Exists reports whether any transaction was recorded under number.
func (s *Service) Exists(number string) bool {
	_, ok := s.byNumber[number]
	return ok
}
