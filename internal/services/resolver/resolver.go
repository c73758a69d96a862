// Package resolver maps inconsistently labeled statement line items onto canonical fields.
package resolver

import (
	"strings"

	"FinKPI/internal/domain/models"
)

// Resolve returns the series of the row that best matches candidates.
//
// An exact match on the trimmed, lower-cased label wins, trying candidates in
// priority order. Failing that, rows are scanned in table order and the first row
// whose label contains any candidate (checked in priority order) is returned.
// ok is false when the table is empty or nothing matches.
func Resolve(table *models.StatementTable, candidates []string) (series models.Series, ok bool) {
	if table.IsEmpty() {
		return nil, false
	}

	labels := make([]string, len(table.Rows))
	index := make(map[string]int, len(table.Rows))
	for i, row := range table.Rows {
		key := normalize(row.Label)
		labels[i] = key
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}

	for _, c := range candidates {
		if i, hit := index[normalize(c)]; hit {
			return table.Series(i), true
		}
	}

	for i, label := range labels {
		for _, c := range candidates {
			if strings.Contains(label, normalize(c)) {
				return table.Series(i), true
			}
		}
	}
	return nil, false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
