// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package contacts

import (
	"strings"

	"github.com/pdiddy/pubmed-contacts/pkg/types"
)

// Filter applies a FilterConfig to normalized records. Substring tests are
// case-insensitive; the lower-cased needles are computed once in NewFilter.
type Filter struct {
	cfg         types.FilterConfig
	keywords    []string
	title       string
	authorName  string
	emailDomain string
}

// NewFilter prepares cfg for matching. Blank keywords are dropped, so a list
// that contains only blanks behaves like an empty list.
func NewFilter(cfg types.FilterConfig) *Filter {
	f := &Filter{
		cfg:         cfg,
		title:       strings.ToLower(cfg.TitleSubstring),
		authorName:  strings.ToLower(cfg.AuthorNameSubstring),
		emailDomain: strings.ToLower(cfg.EmailDomainSubstring),
	}
	for _, kw := range cfg.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			f.keywords = append(f.keywords, kw)
		}
	}
	return f
}

// Config returns the configuration the filter was built from.
func (f *Filter) Config() types.FilterConfig { return f.cfg }

// MatchRecord applies the record-level filters (keyword, then title).
func (f *Filter) MatchRecord(rec NormalizedRecord) bool {
	if f.cfg.EnableKeywordFilter && !f.matchKeywords(rec.Title, rec.Abstract) {
		return false
	}
	if f.title != "" && !strings.Contains(strings.ToLower(rec.Title), f.title) {
		return false
	}
	return true
}

// matchKeywords reports whether title or abstract mentions any keyword.
// An empty keyword list matches everything.
func (f *Filter) matchKeywords(title, abstract string) bool {
	if len(f.keywords) == 0 {
		return true
	}
	text := strings.ToLower(title + " " + abstract)
	for _, kw := range f.keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// AuthorRows applies the per-author and per-email filters and returns the
// rows the author contributes to the article titled title. emails are the
// author's resolved addresses (see ResolveEmails).
func (f *Filter) AuthorRows(title string, author NormalizedAuthor, emails []string) []types.ResultRow {
	if f.cfg.OnlyKnownAuthors && !author.Known() {
		return nil
	}
	if f.authorName != "" && !strings.Contains(strings.ToLower(author.DisplayName), f.authorName) {
		return nil
	}
	if len(emails) == 0 {
		if f.cfg.OnlyWithEmails {
			return nil
		}
		return []types.ResultRow{{Title: title, Author: author.DisplayName, Email: types.NoEmailFound}}
	}

	var rows []types.ResultRow
	for _, email := range emails {
		if f.emailDomain != "" && !strings.Contains(strings.ToLower(email), f.emailDomain) {
			continue
		}
		rows = append(rows, types.ResultRow{Title: title, Author: author.DisplayName, Email: email})
	}
	return rows
}
