// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubmed

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/pubmed-contacts/pkg/types"
)

// ParseSearch decodes an esearch XML response into the list of PMIDs.
func ParseSearch(r io.Reader) ([]string, int, error) {
	var res eSearchResult
	if err := xml.NewDecoder(r).Decode(&res); err != nil {
		return nil, 0, fmt.Errorf("%w: esearch: %v", ErrInvalidResponse, err)
	}
	if res.Error != "" {
		return nil, 0, &APIError{Endpoint: "esearch.fcgi", Message: res.Error}
	}
	ids := make([]string, 0, len(res.IDs))
	for _, id := range res.IDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, res.Count, nil
}

// ParseArticleSet streams an efetch PubmedArticleSet document. Each
// PubmedArticle is decoded on its own; articles lacking the citation
// structure are reported in Malformed instead of failing the batch. Book
// records are ignored. A syntax error fails the whole batch.
func ParseArticleSet(r io.Reader) (types.ArticleBatch, error) {
	var batch types.ArticleBatch

	dec := xml.NewDecoder(r)
	dec.Entity = xml.HTMLEntity

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return batch, nil
		}
		if err != nil {
			return types.ArticleBatch{}, fmt.Errorf("%w: efetch: %v", ErrInvalidResponse, err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "PubmedArticle":
			var pa pubmedArticle
			if err := dec.DecodeElement(&pa, &se); err != nil {
				return types.ArticleBatch{}, fmt.Errorf("%w: efetch: %v", ErrInvalidResponse, err)
			}
			rec, reason := pa.record()
			if reason != "" {
				batch.Malformed = append(batch.Malformed, types.MalformedRecord{PMID: pa.pmid(), Reason: reason})
				continue
			}
			batch.Records = append(batch.Records, rec)
		case "PubmedBookArticle":
			if err := dec.Skip(); err != nil {
				return types.ArticleBatch{}, fmt.Errorf("%w: efetch: %v", ErrInvalidResponse, err)
			}
		case "ERROR":
			var msg string
			if err := dec.DecodeElement(&msg, &se); err != nil {
				return types.ArticleBatch{}, fmt.Errorf("%w: efetch: %v", ErrInvalidResponse, err)
			}
			return types.ArticleBatch{}, &APIError{Endpoint: "efetch.fcgi", Message: strings.TrimSpace(msg)}
		}
	}
}

// E-utilities XML structures.
type eSearchResult struct {
	Count int      `xml:"Count"`
	IDs   []string `xml:"IdList>Id"`
	Error string   `xml:"ERROR"`
}

type pubmedArticle struct {
	MedlineCitation *medlineCitation `xml:"MedlineCitation"`
}

type medlineCitation struct {
	PMID          string         `xml:"PMID"`
	Article       *article       `xml:"Article"`
	Investigators []investigator `xml:"InvestigatorList>Investigator"`
}

type article struct {
	Title       markupText   `xml:"ArticleTitle"`
	Abstract    []markupText `xml:"Abstract>AbstractText"`
	Authors     []author     `xml:"AuthorList>Author"`
	Affiliation markupText   `xml:"Affiliation"`
}

type author struct {
	LastName        string            `xml:"LastName"`
	ForeName        string            `xml:"ForeName"`
	Affiliation     markupText        `xml:"Affiliation"`
	AffiliationInfo []affiliationInfo `xml:"AffiliationInfo"`
}

type investigator struct {
	AffiliationInfo []affiliationInfo `xml:"AffiliationInfo"`
}

type affiliationInfo struct {
	Affiliation markupText `xml:"Affiliation"`
}

func (pa pubmedArticle) pmid() string {
	if pa.MedlineCitation == nil {
		return ""
	}
	return strings.TrimSpace(pa.MedlineCitation.PMID)
}

// record converts the decoded article into an ArticleRecord, or returns the
// reason it cannot.
func (pa pubmedArticle) record() (types.ArticleRecord, string) {
	mc := pa.MedlineCitation
	switch {
	case mc == nil:
		return types.ArticleRecord{}, "missing MedlineCitation element"
	case strings.TrimSpace(mc.PMID) == "":
		return types.ArticleRecord{}, "missing PMID"
	case mc.Article == nil:
		return types.ArticleRecord{}, "missing Article element"
	}

	a := mc.Article
	rec := types.ArticleRecord{
		PMID:  strings.TrimSpace(mc.PMID),
		Title: a.Title.String(),
	}

	var sections []string
	for _, t := range a.Abstract {
		if s := t.String(); s != "" {
			sections = append(sections, s)
		}
	}
	rec.Abstract = strings.Join(sections, " ")

	rec.Affiliations = appendText(rec.Affiliations, a.Affiliation)
	for _, au := range a.Authors {
		affs := au.affiliations()
		entry := types.AuthorEntry{
			LastName: au.LastName,
			ForeName: au.ForeName,
		}
		if len(affs) > 0 {
			entry.Affiliation = affs[0]
		}
		rec.Authors = append(rec.Authors, entry)
		rec.Affiliations = append(rec.Affiliations, affs...)
	}
	for _, inv := range mc.Investigators {
		for _, info := range inv.AffiliationInfo {
			rec.Affiliations = appendText(rec.Affiliations, info.Affiliation)
		}
	}
	return rec, ""
}

// affiliations lists the author's affiliation strings, structured
// AffiliationInfo entries first and the pre-2014 flat element last.
func (au author) affiliations() []string {
	var out []string
	for _, info := range au.AffiliationInfo {
		out = appendText(out, info.Affiliation)
	}
	return appendText(out, au.Affiliation)
}

func appendText(dst []string, t markupText) []string {
	if s := t.String(); s != "" {
		return append(dst, s)
	}
	return dst
}

// markupText captures an element's raw content so inline markup such as
// <i> or <sup> inside titles and abstracts can be flattened to plain text.
type markupText struct {
	Inner string `xml:",innerxml"`
}

func (m markupText) String() string {
	if !strings.ContainsAny(m.Inner, "<&") {
		return strings.TrimSpace(m.Inner)
	}

	dec := xml.NewDecoder(strings.NewReader(m.Inner))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return strings.TrimSpace(m.Inner)
			}
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			b.Write(cd)
		}
	}
	return strings.TrimSpace(b.String())
}
