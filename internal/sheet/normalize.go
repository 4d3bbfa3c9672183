// Package sheet turns a decoded statement worksheet into labeled rows.
package sheet

import (
	"errors"
	"fmt"

	"github.com/finsplit-dev/finsplit/internal/model"
)

// BannerRows is the number of leading metadata rows in a statement sheet.
const BannerRows = 11

// ErrSheetTooShort is returned when a sheet ends before its header row.
var ErrSheetTooShort = errors.New("sheet too short")

// Normalize drops the banner region, promotes the next row to column labels
// and returns the rows beneath it keyed by label. The first column is always
// labeled "Account Details".
func Normalize(raw model.RawSheet) ([]model.NormalizedRow, error) {
	if len(raw.Rows) <= BannerRows {
		return nil, fmt.Errorf("%w: %d rows, need at least %d", ErrSheetTooShort, len(raw.Rows), BannerRows+1)
	}

	labels := headerLabels(raw.Rows[BannerRows])
	body := raw.Rows[BannerRows+1:]

	rows := make([]model.NormalizedRow, 0, len(body))
	for _, cells := range body {
		row := make(model.NormalizedRow, len(labels))
		for pos, label := range labels {
			if label == "" {
				continue
			}
			if _, dup := row[label]; dup {
				continue
			}
			if pos < len(cells) {
				row[label] = cells[pos]
			} else {
				row[label] = model.Cell{}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// headerLabels returns one label per header position. Unlabeled positions
// are "" and get dropped.
func headerLabels(header []model.Cell) []string {
	n := len(header)
	if n == 0 {
		n = 1
	}
	labels := make([]string, n)
	for i := range labels {
		if i < len(header) {
			labels[i] = header[i].String()
		}
	}
	labels[0] = model.ColAccountDetails
	return labels
}
