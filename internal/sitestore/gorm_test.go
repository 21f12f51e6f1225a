package sitestore

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Int64

func setup(t *testing.T, articles ...*Article) *GormFinder {
	t.Helper()

	dsn := fmt.Sprintf("file:sitestore_test_%d?mode=memory&cache=shared", seq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Article{}))

	for _, a := range articles {
		require.NoError(t, db.Create(a).Error)
	}
	return NewGormFinder(db)
}

func TestArticle_Carries(t *testing.T) {
	a := &Article{
		PID:       "S0044-59672023000501",
		AOPPid:    "S0044-59672023005001",
		OtherPids: "S0044-59672023000599 S0044-59671999000101",
	}

	assert.True(t, a.Carries("S0044-59672023000501"))
	assert.True(t, a.Carries("S0044-59672023005001"))
	assert.True(t, a.Carries("S0044-59671999000101"))
	assert.False(t, a.Carries("S9999-99992023000501"))
	assert.False(t, a.Carries(""))
}

func TestGormFinder_ByV3(t *testing.T) {
	f := setup(t, &Article{
		ID: "site3aaaaaaaaaaaaaaaaaa", PID: "S0044-59672023000501", IsPublic: true,
	})

	a, err := f.Find(context.TODO(), "", "S0044-59672023000501", "site3aaaaaaaaaaaaaaaaaa", "")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "site3aaaaaaaaaaaaaaaaaa", a.ID)
}

func TestGormFinder_ByDOI(t *testing.T) {
	f := setup(t, &Article{
		ID: "site3aaaaaaaaaaaaaaaaaa", PID: "S0044-59672023000501",
		DOI: "10.1590/ABC", IsPublic: true,
	})

	a, err := f.Find(context.TODO(), "10.1590/ABC", "S0044-59672023000501", "", "")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "site3aaaaaaaaaaaaaaaaaa", a.ID)
}

func TestGormFinder_ByCode(t *testing.T) {
	f := setup(t, &Article{
		ID: "site3aaaaaaaaaaaaaaaaaa", PID: "S0044-59672023000501",
		AOPPid: "S0044-59672023005001", IsPublic: true,
	})

	// found through its aop code
	a, err := f.Find(context.TODO(), "", "", "", "S0044-59672023005001")
	require.NoError(t, err)
	require.NotNil(t, a)

	// found through an alias in other_pids
	f = setup(t, &Article{
		ID: "site3bbbbbbbbbbbbbbbbbb", PID: "S0044-59672023000501",
		OtherPids: "S0044-59671999000101", IsPublic: true,
	})
	a, err = f.Find(context.TODO(), "", "S0044-59671999000101", "", "")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "site3bbbbbbbbbbbbbbbbbb", a.ID)
}

func TestGormFinder_CodeFilterRejects(t *testing.T) {
	// a doi hit whose row does not carry the queried v2 must not win, and
	// weaker lookups must not override the non-empty result set
	f := setup(t,
		&Article{ID: "site3doiaaaaaaaaaaaaaaa", PID: "S1111-11112023000101",
			DOI: "10.1590/ABC", IsPublic: true},
		&Article{ID: "site3codeaaaaaaaaaaaaaa", PID: "S2222-22222023000101",
			IsPublic: true},
	)

	a, err := f.Find(context.TODO(), "10.1590/ABC", "S2222-22222023000101", "", "")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestGormFinder_PrivateExcluded(t *testing.T) {
	f := setup(t, &Article{
		ID: "site3aaaaaaaaaaaaaaaaaa", PID: "S0044-59672023000501", IsPublic: false,
	})

	a, err := f.Find(context.TODO(), "", "S0044-59672023000501", "", "")
	require.NoError(t, err)
	assert.Nil(t, a)
}
