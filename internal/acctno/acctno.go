// Package acctno recognizes the fixed-format account numbers that open an
// account section in a bank statement sheet.
package acctno

import "regexp"

// Length is the width of a formatted account number, e.g. "1234-567-8901".
const Length = 13

var pattern = regexp.MustCompile(`^\d{4}-\d{3}-\d{4}$`)

// Match reports whether s is exactly one formatted account number.
func Match(s string) bool {
	return pattern.MatchString(s)
}

// Split cuts an account-details cell into its leading account number and the
// trailing account name. The name is everything after the number, untrimmed.
// ok is false when the first Length characters are not an account number.
func Split(details string) (number, name string, ok bool) {
	if len(details) < Length {
		return "", "", false
	}
	candidate := details[:Length]
	if !Match(candidate) {
		return "", "", false
	}
	return candidate, details[Length:], true
}
