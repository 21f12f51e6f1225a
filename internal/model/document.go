package model

import (
	"time"
)

// Document is the current registration schema (table `docs`). One row per
// observed (v2, document) pair. The canonical v3 is minted once and must
// survive schema migrations unchanged; a v3 may be shared by more than one
// row when the same document is re-observed under a new v2, so uniqueness
// is enforced on the (v2, v3) pair, not on v3 alone.
type Document struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	V2       string `gorm:"column:v2;size:23;index;not null;uniqueIndex:uidx_docs_v2_v3,priority:1" json:"v2"`
	V3       string `gorm:"column:v3;size:23;index;not null;uniqueIndex:uidx_docs_v2_v3,priority:2" json:"v3"`
	V3Origin string `gorm:"column:v3_origin;size:23;not null" json:"v3_origin"`
	AOP      string `gorm:"column:aop;size:23;index" json:"aop"`

	Filename   string `gorm:"column:filename;size:50;index" json:"filename"`
	DOI        string `gorm:"column:doi;size:50;index" json:"doi"`
	ISSN       string `gorm:"column:issn;size:9;index;not null" json:"issn"`
	PubYear    string `gorm:"column:pub_year;size:4;index;not null" json:"pub_year"`
	IssueOrder string `gorm:"column:issue_order;size:4;index;not null" json:"issue_order"`
	Volume     string `gorm:"column:volume;size:10;index" json:"volume"`
	Number     string `gorm:"column:number;size:10;index" json:"number"`
	Suppl      string `gorm:"column:suppl;size:10;index" json:"suppl"`
	Elocation  string `gorm:"column:elocation;size:10;index" json:"elocation"`
	Fpage      string `gorm:"column:fpage;size:10;index" json:"fpage"`
	Lpage      string `gorm:"column:lpage;size:10;index" json:"lpage"`

	FirstAuthorSurname string `gorm:"column:first_author_surname;size:30;index" json:"first_author_surname"`
	LastAuthorSurname  string `gorm:"column:last_author_surname;size:30;index" json:"last_author_surname"`

	ArticleTitle string `gorm:"column:article_title;size:50" json:"article_title"`
	OtherPids    string `gorm:"column:other_pids;size:200" json:"other_pids"`
	Status       string `gorm:"column:status;size:15" json:"status"`

	Created time.Time `gorm:"autoCreateTime" json:"created"`
	Updated time.Time `gorm:"autoUpdateTime" json:"updated"`
}

func (Document) TableName() string {
	return "docs"
}
