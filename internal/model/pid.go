package model

import (
	"time"
)

// PrefixLen is the number of trailing characters a v2/aop code carries
// beyond its issue-family prefix.
const PrefixLen = 5

// Pid is the transitional registration schema (table `pids`). It bridges the
// legacy (v2, v3) table and the current `docs` table during migration. Both
// v2 and v3 are unique here; prefix_v2/prefix_aop hold the code minus its
// last 5 characters for fast "same issue family" matching.
type Pid struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	V2        string `gorm:"column:v2;size:23;uniqueIndex" json:"v2"`
	V3        string `gorm:"column:v3;size:23;uniqueIndex" json:"v3"`
	AOP       string `gorm:"column:aop;size:23;index" json:"aop"`
	Filename  string `gorm:"column:filename;size:80;index" json:"filename"`
	PrefixV2  string `gorm:"column:prefix_v2;size:18;index" json:"prefix_v2"`
	PrefixAOP string `gorm:"column:prefix_aop;size:18;index" json:"prefix_aop"`
	DOI       string `gorm:"column:doi;size:80;index" json:"doi"`
	Status    string `gorm:"column:status;size:6" json:"status"`

	Created time.Time `gorm:"autoCreateTime" json:"created"`
	Updated time.Time `gorm:"autoUpdateTime" json:"updated"`
}

func (Pid) TableName() string {
	return "pids"
}

// Prefix returns the issue-family prefix of a v2/aop code: the code minus
// its trailing 5 characters, or "" when the code is too short to carry one.
func Prefix(code string) string {
	if len(code) <= PrefixLen {
		return ""
	}
	return code[:len(code)-PrefixLen]
}
