package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is the result of parsing a currency cell. Fallback is set when the
// text could not be parsed and Value is the zero sentinel.
type Amount struct {
	Value    decimal.Decimal
	Fallback bool
}

// ParseCurrency reads strings like "$1,234.56". A single leading and trailing
// "$" are stripped and every "," is dropped. Unparseable input yields zero
// with Fallback set; it never fails.
func ParseCurrency(s string) Amount {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(s, "$")
	s = strings.ReplaceAll(s, ",", "")

	v, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{Value: decimal.Zero, Fallback: true}
	}
	return Amount{Value: v}
}
