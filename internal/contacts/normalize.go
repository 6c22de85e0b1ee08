// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package contacts turns raw article records into deduplicated
// (title, author, email) rows under a user-supplied filter configuration.
//
// The pipeline is a sequential fold: each record is normalized, checked
// against the record-level filters, mined for e-mail addresses, and expanded
// into one row per surviving (author, email) pair. Rows from all records are
// deduplicated once at the end of the run.
package contacts

import (
	"strings"

	"github.com/pdiddy/pubmed-contacts/pkg/types"
)

// NormalizedRecord is the canonical view of an ArticleRecord with defaults
// substituted for missing fields.
type NormalizedRecord struct {
	PMID         string
	Title        string
	Abstract     string
	Authors      []NormalizedAuthor
	Affiliations []string
}

// NormalizedAuthor pairs an author's display name with the raw name parts
// and the author's own affiliation text.
type NormalizedAuthor struct {
	DisplayName string
	LastName    string
	ForeName    string
	Affiliation string
}

// Known reports whether the author has a non-blank last name.
func (a NormalizedAuthor) Known() bool {
	return strings.TrimSpace(a.LastName) != ""
}

// Normalize derives the canonical view of rec. It never fails: a missing
// title becomes types.NoTitle and a missing last name becomes
// types.UnknownAuthor.
func Normalize(rec types.ArticleRecord) NormalizedRecord {
	n := NormalizedRecord{
		PMID:         rec.PMID,
		Title:        rec.Title,
		Abstract:     rec.Abstract,
		Affiliations: rec.Affiliations,
	}
	if n.Title == "" {
		n.Title = types.NoTitle
	}

	n.Authors = make([]NormalizedAuthor, 0, len(rec.Authors))
	for _, a := range rec.Authors {
		n.Authors = append(n.Authors, NormalizedAuthor{
			DisplayName: DisplayName(a.LastName, a.ForeName),
			LastName:    a.LastName,
			ForeName:    a.ForeName,
			Affiliation: a.Affiliation,
		})
	}
	return n
}

// DisplayName resolves an author's display name: "First Last" when both are
// present, "Last" when only the last name is, and types.UnknownAuthor when
// the last name is missing or blank.
func DisplayName(lastName, foreName string) string {
	last := strings.TrimSpace(lastName)
	if last == "" {
		return types.UnknownAuthor
	}
	first := strings.TrimSpace(foreName)
	if first == "" {
		return last
	}
	return first + " " + last
}
