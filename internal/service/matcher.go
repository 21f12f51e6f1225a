package service

import (
	"context"
	"fmt"

	"github.com/emrgen/pidkeeper/internal/model"
	"github.com/emrgen/pidkeeper/internal/pid"
	"github.com/emrgen/pidkeeper/internal/store"
)

// MatchSource tags which schema generation a match came from, replacing the
// old habit of sniffing row attributes to tell generations apart.
type MatchSource int

const (
	// SourceNone means no prior record describes this document.
	SourceNone MatchSource = iota
	// SourceCurrent is an issue-exact hit in the `docs` table.
	SourceCurrent
	// SourceAOP is a promoted pre-print recovered from the `docs` table.
	SourceAOP
	// SourceTransitional is a hit in the `pids` table.
	SourceTransitional
	// SourceLegacy is a hit in the `pid_versions` table.
	SourceLegacy
)

// Match is the matcher's outcome. For SourceCurrent the full Document is
// carried; the weaker sources carry only the recovered v3 fragment used to
// seed a new record.
type Match struct {
	Source   MatchSource
	Document *model.Document

	V3       string
	V3Origin string
	AOP      string
}

type matcher struct {
	store store.Store
}

func issueKey(in pid.Input) store.IssueKey {
	return store.IssueKey{
		ISSN:               in.ISSN,
		PubYear:            in.PubYear,
		DOI:                in.DOI,
		FirstAuthorSurname: in.FirstAuthorSurname,
		LastAuthorSurname:  in.LastAuthorSurname,
		IssueOrder:         in.IssueOrder,
		Elocation:          in.Elocation,
		Fpage:              in.Fpage,
		Lpage:              in.Lpage,
	}
}

// findIssue is cascade step 1: the full bibliographic key narrowed by the
// input's v2, then the same key without v2 (the v2 may have changed between
// observations). The strongest possible signal; short-circuits everything
// else, including a caller-supplied v3.
func (m *matcher) findIssue(ctx context.Context, in pid.Input) (*model.Document, error) {
	key := issueKey(in)

	doc, err := m.store.FindIssueDocument(ctx, key, in.V2)
	if err != nil {
		return nil, err
	}
	if doc != nil {
		return doc, nil
	}

	return m.store.FindIssueDocument(ctx, key, "")
}

// recover is cascade step 2, tried only when step 1 found nothing: AOP
// promotion, then the transitional table by (filename, doi), then the legacy
// table by v2. First non-empty fragment wins; more than one candidate at any
// sub-step raises ErrMoreThanOneRecord rather than picking one.
func (m *matcher) recover(ctx context.Context, in pid.Input) (*Match, error) {
	match, err := m.recoverAOP(ctx, in)
	if err != nil || match != nil {
		return match, err
	}

	match, err = m.recoverTransitional(ctx, in)
	if err != nil || match != nil {
		return match, err
	}

	return m.recoverLegacy(ctx, in)
}

func (m *matcher) recoverAOP(ctx context.Context, in pid.Input) (*Match, error) {
	found, err := m.store.FindAOPCandidates(ctx, issueKey(in))
	if err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		doc := found[0]
		// the pre-print's own v2 becomes this record's aop code
		return &Match{
			Source:   SourceAOP,
			V3:       doc.V3,
			V3Origin: fmt.Sprintf("docs_%d", doc.ID),
			AOP:      doc.V2,
		}, nil
	}
	return nil, fmt.Errorf("%w: aop version of %q", ErrMoreThanOneRecord, in.DOI)
}

func (m *matcher) recoverTransitional(ctx context.Context, in pid.Input) (*Match, error) {
	found, err := m.store.FindPidsByFilenameDOI(ctx, in.Filename, in.DOI)
	if err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		p := found[0]
		return &Match{
			Source:   SourceTransitional,
			V3:       p.V3,
			V3Origin: fmt.Sprintf("pids_%d", p.ID),
			AOP:      p.AOP,
		}, nil
	}
	return nil, fmt.Errorf("%w: pids rows for %q %q", ErrMoreThanOneRecord, in.Filename, in.DOI)
}

func (m *matcher) recoverLegacy(ctx context.Context, in pid.Input) (*Match, error) {
	found, err := m.store.FindPidVersionsByV2(ctx, in.V2)
	if err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		pv := found[0]
		return &Match{
			Source:   SourceLegacy,
			V3:       pv.V3,
			V3Origin: fmt.Sprintf("pid_versions_%d", pv.ID),
		}, nil
	}
	return nil, fmt.Errorf("%w: pid_versions rows for %q", ErrMoreThanOneRecord, in.V2)
}
