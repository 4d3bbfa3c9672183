// Package report aggregates stored transactions for display.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/finsplit-dev/finsplit/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Slice is the total for one transaction name.
type Slice struct {
	Name    string          `json:"name"`
	Total   decimal.Decimal `json:"total"`
	Count   int             `json:"count"`
	Percent decimal.Decimal `json:"percent"` // share of Summary.Total, 0-100
}

// Summary is the per-name breakdown of a ledger.
type Summary struct {
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
	Slices []Slice         `json:"slices"`
}

// Summarize groups txns by name and sums their amounts. Slices are ordered
// by total, largest first; equal totals keep first-seen order. Percentages
// are zero when the grand total is zero.
func Summarize(txns []model.Transaction) Summary {
	index := make(map[string]int)
	var slices []Slice
	total := decimal.Zero

	for _, t := range txns {
		i, ok := index[t.Name]
		if !ok {
			i = len(slices)
			index[t.Name] = i
			slices = append(slices, Slice{Name: t.Name, Total: decimal.Zero})
		}
		slices[i].Total = slices[i].Total.Add(t.Amount)
		slices[i].Count++
		total = total.Add(t.Amount)
	}

	for i := range slices {
		slices[i].Percent = decimal.Zero
		if !total.IsZero() {
			slices[i].Percent = slices[i].Total.Mul(hundred).DivRound(total, 2)
		}
	}

	sort.SliceStable(slices, func(a, b int) bool {
		return slices[a].Total.GreaterThan(slices[b].Total)
	})

	return Summary{Total: total, Count: len(txns), Slices: slices}
}
