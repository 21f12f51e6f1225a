// Package pid holds the pure identifier primitives: input normalization and
// v3 token generation. Nothing here touches the database.
package pid

import (
	"strings"
	"unicode/utf8"
)

// Storage widths of the `docs` table columns. Over-length input is truncated
// to these on the way in, never rejected.
const (
	MaxCode      = 23 // v2, v3, aop
	MaxFilename  = 50
	MaxSurname   = 30
	MaxTitle     = 50
	MaxOtherPids = 200
	MaxStatus    = 15
)

// OriginProvided marks a v3 that arrived with the submission. Generated and
// recovered origins are filled in later by the allocator and the matcher.
const (
	OriginProvided  = "provided"
	OriginGenerated = "generated"
)

// Raw is a document submission as received from a caller: free-form strings,
// all optional except V2 (validated downstream, not here).
type Raw struct {
	V2         string
	V3         string
	AOP        string
	Filename   string
	DOI        string
	Status     string
	PubYear    string
	IssueOrder string
	Volume     string
	Number     string
	Suppl      string
	Elocation  string
	Fpage      string
	Lpage      string

	FirstAuthorSurname string
	LastAuthorSurname  string
	ArticleTitle       string
	OtherPids          string
}

// Input is the normalized, fixed attribute set the engine works with.
type Input struct {
	V2         string `json:"v2"`
	V3         string `json:"v3"`
	V3Origin   string `json:"v3_origin"`
	AOP        string `json:"aop"`
	Filename   string `json:"filename"`
	DOI        string `json:"doi"`
	ISSN       string `json:"issn"`
	PubYear    string `json:"pub_year"`
	IssueOrder string `json:"issue_order"`
	Volume     string `json:"volume"`
	Number     string `json:"number"`
	Suppl      string `json:"suppl"`
	Elocation  string `json:"elocation"`
	Fpage      string `json:"fpage"`
	Lpage      string `json:"lpage"`

	FirstAuthorSurname string `json:"first_author_surname"`
	LastAuthorSurname  string `json:"last_author_surname"`
	ArticleTitle       string `json:"article_title"`
	OtherPids          string `json:"other_pids"`
	Status             string `json:"status"`
}

// Normalize canonicalizes a raw submission: truncates each field to its
// storage width, upper-cases the designated text fields, reduces issue-order
// to its last 4 characters zero-padded to width 4, and derives the ISSN from
// positions [1:10) of the truncated v2. An absent issue-order stays empty
// rather than "0000", so ahead-of-print rows keep a blank issue position.
// V3Origin is "provided" when the caller supplied a v3, otherwise empty
// until allocation. Pure function, no I/O.
func Normalize(raw Raw) Input {
	v2 := truncate(raw.V2, MaxCode)

	return Input{
		V2:         v2,
		V3:         truncate(raw.V3, MaxCode),
		V3Origin:   origin(raw.V3),
		AOP:        truncate(raw.AOP, MaxCode),
		Filename:   truncate(raw.Filename, MaxFilename),
		DOI:        strings.ToUpper(raw.DOI),
		ISSN:       issn(v2),
		PubYear:    raw.PubYear,
		IssueOrder: padIssueOrder(raw.IssueOrder),
		Volume:     strings.ToUpper(raw.Volume),
		Number:     strings.ToUpper(raw.Number),
		Suppl:      strings.ToUpper(raw.Suppl),
		Elocation:  strings.ToUpper(raw.Elocation),
		Fpage:      strings.ToUpper(raw.Fpage),
		Lpage:      strings.ToUpper(raw.Lpage),

		FirstAuthorSurname: strings.ToUpper(truncate(raw.FirstAuthorSurname, MaxSurname)),
		LastAuthorSurname:  strings.ToUpper(truncate(raw.LastAuthorSurname, MaxSurname)),
		ArticleTitle:       strings.ToUpper(truncate(raw.ArticleTitle, MaxTitle)),
		OtherPids:          truncate(raw.OtherPids, MaxOtherPids),
		Status:             strings.ToUpper(truncate(raw.Status, MaxStatus)),
	}
}

func origin(v3 string) string {
	if v3 != "" {
		return OriginProvided
	}
	return ""
}

// truncate cuts s to at most n characters, never splitting a rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// issn is positions [1:10) of the v2 code, e.g. "S1234-5678..." -> "1234-5678".
func issn(v2 string) string {
	if len(v2) < 2 {
		return ""
	}
	if len(v2) < 10 {
		return v2[1:]
	}
	return v2[1:10]
}

// padIssueOrder keeps the last 4 characters and left-pads with zeros:
// "1" -> "0001", "20231" -> "0231". An empty value stays empty-padded
// ("0000" is never produced; "" maps to "").
func padIssueOrder(s string) string {
	if s == "" {
		return ""
	}
	if len(s) > 4 {
		s = s[len(s)-4:]
	}
	return strings.Repeat("0", 4-len(s)) + s
}
