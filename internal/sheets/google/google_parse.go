package google

import (
	"fmt"
	"strings"

	"spendwise/internal/core"
	"spendwise/internal/recurring"
)

// parseRecurringRows converts a values matrix (as returned by the Sheets
// API) into demo-shape records. Row ids are "sheet-<row number>".
func parseRecurringRows(values [][]any) []recurring.LocalRecord {
	var out []recurring.LocalRecord
	for i, row := range values {
		cols := toStrings(row)
		if len(cols) < 5 {
			continue
		}
		// Skip a header row
		if i == 0 {
			if _, err := core.ParseDate(cols[0]); err != nil {
				continue
			}
		}
		if cols[1] == "" && cols[4] == "" {
			continue
		}
		active := true
		out = append(out, recurring.LocalRecord{
			ID:          fmt.Sprintf("sheet-%d", i+1),
			NextPayment: cols[0],
			Description: cols[1],
			Category:    cols[2],
			Frequency:   cols[3],
			Amount:      recurring.RawAmount(cols[4]),
			Active:      &active,
		})
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
