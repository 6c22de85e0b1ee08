// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Sentinel values that stand in for absent data inside a ResultRow.
const (
	NoTitle       = "No title"
	UnknownAuthor = "Unknown Author"
	NoEmailFound  = "No email found"
)

// ResultRow is one (title, author, email) entry of the extraction output.
// Author is never empty and Email is either an extracted address or
// NoEmailFound.
type ResultRow struct {
	Title  string `json:"title" yaml:"title"`
	Author string `json:"author" yaml:"author"`
	Email  string `json:"email" yaml:"email"`
}

// HasEmail reports whether the row carries a real address rather than the
// NoEmailFound sentinel.
func (r ResultRow) HasEmail() bool {
	return r.Email != "" && r.Email != NoEmailFound
}
