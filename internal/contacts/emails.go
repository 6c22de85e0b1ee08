// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package contacts

import "regexp"

// emailPattern matches e-mail-shaped substrings in affiliation prose. It does
// not validate addresses against RFC 5322.
var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// ExtractEmails returns the distinct addresses found in text, in order of
// first occurrence and with their original casing. Empty text yields nil.
func ExtractEmails(text string) []string {
	if text == "" {
		return nil
	}
	matches := emailPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	return appendDistinct(nil, matches...)
}

// ArticleEmails aggregates the addresses found in every affiliation string
// attached to the record, independent of which author each belongs to.
func ArticleEmails(rec NormalizedRecord) []string {
	var emails []string
	for _, aff := range rec.Affiliations {
		emails = appendDistinct(emails, ExtractEmails(aff)...)
	}
	return emails
}

// ResolveEmails returns the addresses attributed to author. The author's own
// affiliation wins; when it has none, the whole article set is used unless
// strict is set. Several authors without personal affiliation text can
// therefore resolve to the same article-wide set.
func ResolveEmails(author NormalizedAuthor, articleEmails []string, strict bool) []string {
	own := ExtractEmails(author.Affiliation)
	if len(own) > 0 || strict {
		return own
	}
	return articleEmails
}

func appendDistinct(dst []string, values ...string) []string {
	for _, v := range values {
		dup := false
		for _, d := range dst {
			if d == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}
