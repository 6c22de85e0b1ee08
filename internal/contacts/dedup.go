// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package contacts

import (
	"strings"

	"github.com/pdiddy/pubmed-contacts/pkg/types"
)

// rowKey is the normalized (title, author, email) triple two rows must share
// to count as the same entry.
type rowKey struct {
	title, author, email string
}

func keyOf(r types.ResultRow) rowKey {
	return rowKey{
		title:  normalizeField(r.Title),
		author: normalizeField(r.Author),
		email:  normalizeField(r.Email),
	}
}

func normalizeField(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Deduplicate drops rows whose normalized key was already seen, keeping the
// first occurrence and the original order. It returns the kept rows and the
// number removed.
func Deduplicate(rows []types.ResultRow) ([]types.ResultRow, int) {
	seen := make(map[rowKey]struct{}, len(rows))
	unique := make([]types.ResultRow, 0, len(rows))
	for _, r := range rows {
		k := keyOf(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, r)
	}
	return unique, len(rows) - len(unique)
}
