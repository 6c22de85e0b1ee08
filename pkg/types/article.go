// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the pubmed-contacts pipeline:
// raw article records delivered by the record source, the filter configuration
// that governs extraction, and the flat result rows handed to export.
package types

// ArticleRecord is one bibliographic record as delivered by the record source.
// Missing fields are left empty; the contacts normalizer substitutes defaults.
type ArticleRecord struct {
	// PMID is the PubMed identifier of the article.
	PMID string `json:"pmid" yaml:"pmid"`

	// Title is the article title. Empty means absent.
	Title string `json:"title" yaml:"title"`

	// Abstract is the article abstract. Empty means absent.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists the article authors in source order.
	Authors []AuthorEntry `json:"authors" yaml:"authors"`

	// Affiliations holds every affiliation string attached to the article,
	// including those attached to individual authors.
	Affiliations []string `json:"affiliations,omitempty" yaml:"affiliations,omitempty"`
}

// AuthorEntry is one author of an ArticleRecord. Empty strings mean absent.
type AuthorEntry struct {
	LastName    string `json:"last_name,omitempty" yaml:"last_name,omitempty"`
	ForeName    string `json:"fore_name,omitempty" yaml:"fore_name,omitempty"`
	Affiliation string `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`
}

// MalformedRecord identifies a record the source could not turn into an
// ArticleRecord. The pipeline skips it and surfaces a warning.
type MalformedRecord struct {
	PMID   string `json:"pmid,omitempty" yaml:"pmid,omitempty"`
	Reason string `json:"reason" yaml:"reason"`
}

// ArticleBatch is the result of fetching one batch of identifiers.
type ArticleBatch struct {
	Records   []ArticleRecord
	Malformed []MalformedRecord
}
