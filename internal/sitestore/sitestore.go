// Package sitestore is the read-only view onto the new-site content store.
// The registration engine never writes here; the migration driver consults
// it to carry already-published v3 codes into the registry unchanged.
package sitestore

import (
	"context"
	"strings"
)

// Article is a publicly visible document in the new-site store. ID is the
// canonical v3; PID holds the issue-level v2; OtherPids is a space-separated
// list of additional codes the article has been known by.
type Article struct {
	ID        string `gorm:"column:id;primaryKey" json:"id"`
	PID       string `gorm:"column:pid;index" json:"pid"`
	AOPPid    string `gorm:"column:aop_pid;index" json:"aop_pid"`
	DOI       string `gorm:"column:doi;index" json:"doi"`
	OtherPids string `gorm:"column:other_pids" json:"other_pids"`
	IsPublic  bool   `gorm:"column:is_public;index" json:"is_public"`
}

func (Article) TableName() string {
	return "articles"
}

// Carries reports whether the article is known by code: as its issue-level
// pid, its aop pid, or one of its listed aliases.
func (a *Article) Carries(code string) bool {
	if code == "" {
		return false
	}
	if a.PID == code || a.AOPPid == code {
		return true
	}
	for _, other := range strings.Fields(a.OtherPids) {
		if other == code {
			return true
		}
	}
	return false
}

// ArticleFinder locates a public article by any of its identifier
// generations. The cascade is v3, then doi, then aop, then v2; the first
// non-empty result set wins, and within it only rows that actually carry the
// queried v2/aop code are accepted.
type ArticleFinder interface {
	Find(ctx context.Context, doi, v2, v3, aop string) (*Article, error)
}
