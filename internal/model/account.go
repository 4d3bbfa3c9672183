package model

// AccountContext is the account most recently announced by a header row
// while walking one sheet. The zero value means no header has been seen.
type AccountContext struct {
	Number string
	Name   string
}

// IsZero reports whether no account header has been seen yet.
func (a AccountContext) IsZero() bool {
	return a.Number == "" && a.Name == ""
}
