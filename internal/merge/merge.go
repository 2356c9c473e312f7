// Package merge combines the fields read from both sides of a card.
package merge

import (
	"strings"

	"github.com/lehigh-university-libraries/cardscanner/internal/models"
)

// Merge builds one record from two extractions. For every field the first
// non-empty value wins, so a is always preferred over b. The chosen phone has
// all whitespace removed.
func Merge(a, b models.ExtractedFields) models.MergedRecord {
	var m models.MergedRecord
	for _, field := range models.MergeFields {
		v := a.Get(field)
		if v == "" {
			v = b.Get(field)
		}
		m.Set(field, v)
	}
	m.Phone = normalizePhone(m.Phone)
	return m
}

func normalizePhone(p string) string {
	return strings.Join(strings.Fields(p), "")
}
