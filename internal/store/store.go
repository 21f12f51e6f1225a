package store

import (
	"context"
	"errors"

	"github.com/emrgen/pidkeeper/internal/model"
)

var (
	// ErrDuplicateKey reports a uniqueness-constraint violation on insert,
	// kept distinct from other storage failures so callers can tell a lost
	// race from a broken connection.
	ErrDuplicateKey = errors.New("duplicate key")
)

type Store interface {
	DocumentStore
	PidStore
	PidVersionStore
	// V3Exists reports whether v3 is present in any of the three record
	// tables (docs, pids, pid_versions).
	V3Exists(ctx context.Context, v3 string) (bool, error)
	Transaction(ctx context.Context, f func(tx Store) error) error
	Migrate() error
}

// IssueKey is the bibliographic equality key for "same document, same issue"
// detection. No DB-level uniqueness is enforced on it; ambiguity is handled
// at query time.
type IssueKey struct {
	ISSN               string
	PubYear            string
	DOI                string
	FirstAuthorSurname string
	LastAuthorSurname  string
	IssueOrder         string
	Elocation          string
	Fpage              string
	Lpage              string
}

// DuplicateGroup is one bibliographic key holding more than one distinct v3:
// the orphan aliases produced by concurrent first-sight registrations.
type DuplicateGroup struct {
	ISSN               string `json:"issn"`
	PubYear            string `json:"pub_year"`
	IssueOrder         string `json:"issue_order"`
	DOI                string `json:"doi"`
	FirstAuthorSurname string `json:"first_author_surname"`
	V3Count            int64  `json:"v3_count"`
}

type DocumentStore interface {
	// CreateDocument inserts a new registration row. A uniqueness violation
	// is returned as ErrDuplicateKey.
	CreateDocument(ctx context.Context, doc *model.Document) error
	// FindIssueDocument queries by the full bibliographic key, optionally
	// narrowed by v2 (v2 == "" skips the discriminator). When several rows
	// match, the latest (highest id) wins; nil means no match.
	FindIssueDocument(ctx context.Context, key IssueKey, v2 string) (*model.Document, error)
	// FindAOPCandidates queries by document identity alone with the
	// issue-position fields forced empty, i.e. the shape of a pre-print row.
	FindAOPCandidates(ctx context.Context, key IssueKey) ([]*model.Document, error)
	// GetDocumentByV3 returns the latest row carrying v3, or nil.
	GetDocumentByV3(ctx context.Context, v3 string) (*model.Document, error)
	// FindDuplicateDocuments lists bibliographic keys mapped to more than
	// one distinct v3.
	FindDuplicateDocuments(ctx context.Context) ([]DuplicateGroup, error)
}

type PidStore interface {
	CreatePid(ctx context.Context, p *model.Pid) error
	UpdatePid(ctx context.Context, p *model.Pid) error
	// FindPidsByFilenameDOI queries the transitional table by the exact
	// (filename, upper-cased doi) pair.
	FindPidsByFilenameDOI(ctx context.Context, filename, doi string) ([]*model.Pid, error)
	// FindPid runs the weak-signal cascade over the transitional table:
	// (doi, filename), (prefix, filename) for aop then v2, doi alone, then
	// the aop and v2 codes against both code columns. First hit wins.
	FindPid(ctx context.Context, v2, filename, doi, aop string) (*model.Pid, error)
}

type PidVersionStore interface {
	CreatePidVersion(ctx context.Context, pv *model.PidVersion) error
	// FindPidVersionsByV2 returns every legacy row for v2 (the column also
	// holds historical aop codes).
	FindPidVersionsByV2(ctx context.Context, v2 string) ([]*model.PidVersion, error)
	// FindLatestPidVersion returns the highest-id legacy row matching either
	// code, or nil.
	FindLatestPidVersion(ctx context.Context, v2, aop string) (*model.PidVersion, error)
}
