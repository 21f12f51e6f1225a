package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/pidkeeper/internal/model"
	"github.com/emrgen/pidkeeper/internal/tester"
)

func setup(t *testing.T) *GormStore {
	t.Helper()
	tester.Setup()
	return NewGormStore(tester.TestDB())
}

func TestGormStore_CreateDocument_Duplicate(t *testing.T) {
	s := setup(t)
	ctx := context.TODO()

	doc := &model.Document{V2: "S0044-59672023000501", V3: "v3aaaaaaaaaaaaaaaaaaaaa"}
	require.NoError(t, s.CreateDocument(ctx, doc))

	dup := &model.Document{V2: "S0044-59672023000501", V3: "v3aaaaaaaaaaaaaaaaaaaaa"}
	err := s.CreateDocument(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicateKey)

	// same v3 under a different v2 is an alias, not a violation
	alias := &model.Document{V2: "S0044-59672023000599", V3: "v3aaaaaaaaaaaaaaaaaaaaa"}
	assert.NoError(t, s.CreateDocument(ctx, alias))
}

func TestGormStore_FindIssueDocument(t *testing.T) {
	s := setup(t)
	ctx := context.TODO()

	key := IssueKey{
		ISSN:               "0044-5967",
		PubYear:            "2023",
		DOI:                "10.1590/ABC",
		FirstAuthorSurname: "SILVA",
		IssueOrder:         "0005",
		Fpage:              "101",
	}

	require.NoError(t, s.CreateDocument(ctx, &model.Document{
		V2: "S0044-59672023000501", V3: "older3aaaaaaaaaaaaaaaaa",
		ISSN: key.ISSN, PubYear: key.PubYear, DOI: key.DOI,
		FirstAuthorSurname: key.FirstAuthorSurname, IssueOrder: key.IssueOrder, Fpage: key.Fpage,
	}))
	require.NoError(t, s.CreateDocument(ctx, &model.Document{
		V2: "S0044-59672023000599", V3: "newer3aaaaaaaaaaaaaaaaa",
		ISSN: key.ISSN, PubYear: key.PubYear, DOI: key.DOI,
		FirstAuthorSurname: key.FirstAuthorSurname, IssueOrder: key.IssueOrder, Fpage: key.Fpage,
	}))

	// narrowed by v2
	doc, err := s.FindIssueDocument(ctx, key, "S0044-59672023000501")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "older3aaaaaaaaaaaaaaaaa", doc.V3)

	// without v2 the latest row wins
	doc, err = s.FindIssueDocument(ctx, key, "")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "newer3aaaaaaaaaaaaaaaaa", doc.V3)

	// a different issue position misses
	other := key
	other.Fpage = "202"
	doc, err = s.FindIssueDocument(ctx, other, "")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestGormStore_FindAOPCandidates(t *testing.T) {
	s := setup(t)
	ctx := context.TODO()

	key := IssueKey{
		ISSN:               "0044-5967",
		PubYear:            "2023",
		DOI:                "10.1590/ABC",
		FirstAuthorSurname: "SILVA",
	}

	// a pre-print: document identity filled, issue position empty
	require.NoError(t, s.CreateDocument(ctx, &model.Document{
		V2: "S0044-59672023005001", V3: "aop3aaaaaaaaaaaaaaaaaaa",
		ISSN: key.ISSN, PubYear: key.PubYear, DOI: key.DOI,
		FirstAuthorSurname: key.FirstAuthorSurname,
	}))
	// the same identity already placed in an issue must not be a candidate
	require.NoError(t, s.CreateDocument(ctx, &model.Document{
		V2: "S0044-59672023000501", V3: "issue3aaaaaaaaaaaaaaaaa",
		ISSN: key.ISSN, PubYear: key.PubYear, DOI: key.DOI,
		FirstAuthorSurname: key.FirstAuthorSurname, Volume: "53", Fpage: "101",
	}))

	found, err := s.FindAOPCandidates(ctx, key)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "aop3aaaaaaaaaaaaaaaaaaa", found[0].V3)
}

func TestGormStore_FindPid_Cascade(t *testing.T) {
	s := setup(t)
	ctx := context.TODO()

	byDOI := &model.Pid{
		V2: "S0001-00002023000001", V3: "pid3doiaaaaaaaaaaaaaaaa",
		Filename: "a01.xml", DOI: "10.1/DOI-A",
		PrefixV2: model.Prefix("S0001-00002023000001"),
	}
	require.NoError(t, s.CreatePid(ctx, byDOI))

	byPrefix := &model.Pid{
		V2: "S0002-00002023000001", V3: "pid3prefixaaaaaaaaaaaaa",
		Filename: "a02.xml",
		PrefixV2: model.Prefix("S0002-00002023000001"),
	}
	require.NoError(t, s.CreatePid(ctx, byPrefix))

	// (doi, filename) beats everything
	p, err := s.FindPid(ctx, "S9999-99992023000001", "a01.xml", "10.1/DOI-A", "")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, byDOI.V3, p.V3)

	// (prefix_v2, filename) for a sibling code in the same issue family
	p, err = s.FindPid(ctx, "S0002-00002023000099", "a02.xml", "", "")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, byPrefix.V3, p.V3)

	// doi alone, without filename
	p, err = s.FindPid(ctx, "", "", "10.1/DOI-A", "")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, byDOI.V3, p.V3)

	// exact v2 as last resort
	p, err = s.FindPid(ctx, "S0002-00002023000001", "", "", "")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, byPrefix.V3, p.V3)

	p, err = s.FindPid(ctx, "S9999-99992023000001", "nope.xml", "", "")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestGormStore_FindLatestPidVersion(t *testing.T) {
	s := setup(t)
	ctx := context.TODO()

	require.NoError(t, s.CreatePidVersion(ctx, &model.PidVersion{V2: "S0001-00002020000001", V3: "legacy3old"}))
	require.NoError(t, s.CreatePidVersion(ctx, &model.PidVersion{V2: "S0001-00002020000001", V3: "legacy3new"}))

	row, err := s.FindLatestPidVersion(ctx, "S0001-00002020000001", "")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "legacy3new", row.V3)

	row, err = s.FindLatestPidVersion(ctx, "", "")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestGormStore_V3Exists(t *testing.T) {
	s := setup(t)
	ctx := context.TODO()

	require.NoError(t, s.CreateDocument(ctx, &model.Document{V2: "S1", V3: "indocsaaaaaaaaaaaaaaaaa"}))
	require.NoError(t, s.CreatePid(ctx, &model.Pid{V2: "S2", V3: "inpidsaaaaaaaaaaaaaaaaa"}))
	require.NoError(t, s.CreatePidVersion(ctx, &model.PidVersion{V2: "S3", V3: "inversionsaaaaaaaaaaaaa"}))

	for _, v3 := range []string{"indocsaaaaaaaaaaaaaaaaa", "inpidsaaaaaaaaaaaaaaaaa", "inversionsaaaaaaaaaaaaa"} {
		exists, err := s.V3Exists(ctx, v3)
		require.NoError(t, err)
		assert.True(t, exists, "%s should exist", v3)
	}

	exists, err := s.V3Exists(ctx, "nowhereaaaaaaaaaaaaaaaa")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGormStore_FindDuplicateDocuments(t *testing.T) {
	s := setup(t)
	ctx := context.TODO()

	base := model.Document{
		ISSN: "0044-5967", PubYear: "2023", DOI: "10.1590/DUP",
		FirstAuthorSurname: "SILVA", IssueOrder: "0005", Fpage: "101",
	}

	one := base
	one.V2, one.V3 = "S0044-59672023000501", "dupv3oneaaaaaaaaaaaaaaa"
	require.NoError(t, s.CreateDocument(ctx, &one))

	two := base
	two.V2, two.V3 = "S0044-59672023000599", "dupv3twoaaaaaaaaaaaaaaa"
	require.NoError(t, s.CreateDocument(ctx, &two))

	groups, err := s.FindDuplicateDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, int64(2), groups[0].V3Count)
	assert.Equal(t, "10.1590/DUP", groups[0].DOI)
}
