package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/pidkeeper/internal/model"
	"github.com/emrgen/pidkeeper/internal/store"
	"github.com/emrgen/pidkeeper/internal/tester"
)

func TestManage_MissingV2(t *testing.T) {
	tester.Setup()
	svc := NewPidService(store.NewGormStore(tester.TestDB()), nil)

	res := svc.Manage(context.TODO(), PidInput{Filename: "a01.xml"})
	assert.Nil(t, res.Saved)
	assert.Equal(t, ErrMissingV2.Error(), res.Error)
}

func TestManage_CreatesWithGeneratedV3(t *testing.T) {
	tester.Setup()
	svc := NewPidService(store.NewGormStore(tester.TestDB()), seqGen())

	res := svc.Manage(context.TODO(), PidInput{
		V2:       "S0044-59672023000501",
		Filename: "a01.xml",
		DOI:      "10.1590/ABC",
		Status:   "active",
	})
	require.Empty(t, res.Error)
	assert.Nil(t, res.Registered)
	require.NotNil(t, res.Saved)

	assert.Equal(t, "pids", res.Saved.Source)
	assert.Equal(t, "v3x00000000000000000001", res.Saved.V3)
	assert.Equal(t, "S0044-59672023000501", res.Saved.V2)
}

func TestManage_SecondSubmissionBackfills(t *testing.T) {
	tester.Setup()
	svc := NewPidService(store.NewGormStore(tester.TestDB()), seqGen())
	ctx := context.TODO()

	first := svc.Manage(ctx, PidInput{V2: "S0044-59672023000501", Filename: "a01.xml"})
	require.NotNil(t, first.Saved)

	// re-observed with the doi this time; the stored v3 must not change
	second := svc.Manage(ctx, PidInput{
		V2:       "S0044-59672023000501",
		Filename: "a01.xml",
		DOI:      "10.1590/ABC",
	})
	require.Empty(t, second.Error)
	require.NotNil(t, second.Registered)
	require.NotNil(t, second.Saved)

	assert.Equal(t, first.Saved.V3, second.Saved.V3)
	assert.Equal(t, "10.1590/ABC", second.Saved.DOI)
}

func TestManage_UpdateNeverBlanksFields(t *testing.T) {
	tester.Setup()
	svc := NewPidService(store.NewGormStore(tester.TestDB()), seqGen())
	ctx := context.TODO()

	first := svc.Manage(ctx, PidInput{
		V2:       "S0044-59672023000501",
		Filename: "a01.xml",
		DOI:      "10.1590/ABC",
		Status:   "active",
	})
	require.NotNil(t, first.Saved)

	// a sparse resubmission keeps the stored doi and status
	second := svc.Manage(ctx, PidInput{V2: "S0044-59672023000501", Filename: "a01.xml"})
	require.NotNil(t, second.Saved)
	assert.Equal(t, "10.1590/ABC", second.Saved.DOI)
	assert.Equal(t, "active", second.Saved.Status)
}

func TestManage_LegacyV3CarriedForward(t *testing.T) {
	tester.Setup()
	s := store.NewGormStore(tester.TestDB())
	svc := NewPidService(s, seqGen())
	ctx := context.TODO()

	require.NoError(t, s.CreatePidVersion(ctx, &model.PidVersion{
		V2: "S0044-59672020000101", V3: "legacy3aaaaaaaaaaaaaaaa",
	}))

	res := svc.Manage(ctx, PidInput{V2: "S0044-59672020000101", Filename: "a05.xml"})
	require.Empty(t, res.Error)
	require.NotNil(t, res.Registered)
	assert.Equal(t, "pid_versions", res.Registered.Source)
	require.NotNil(t, res.Saved)
	assert.Equal(t, "legacy3aaaaaaaaaaaaaaaa", res.Saved.V3)
}

func TestManage_ProvidedV3Kept(t *testing.T) {
	tester.Setup()
	svc := NewPidService(store.NewGormStore(tester.TestDB()), seqGen())

	res := svc.Manage(context.TODO(), PidInput{
		V2: "S0044-59672023000501",
		V3: "caller3aaaaaaaaaaaaaaaa",
	})
	require.NotNil(t, res.Saved)
	assert.Equal(t, "caller3aaaaaaaaaaaaaaaa", res.Saved.V3)
}

func TestManage_LongFilenameWarns(t *testing.T) {
	tester.Setup()
	svc := NewPidService(store.NewGormStore(tester.TestDB()), seqGen())

	// the 80th character is multibyte; the cut must not split it
	long := strings.Repeat("x", 79) + "ção-estudo.xml"
	res := svc.Manage(context.TODO(), PidInput{V2: "S0044-59672023000501", Filename: long})
	require.Empty(t, res.Error)
	require.NotNil(t, res.Saved)

	assert.Equal(t, long, res.Warning["filename"])
	assert.Equal(t, strings.Repeat("x", 79)+"ç", res.Saved.Filename)
	assert.Equal(t, maxPidFilename, utf8.RuneCountInString(res.Saved.Filename))
	assert.True(t, utf8.ValidString(res.Saved.Filename))
}

func TestManage_PrefixesStored(t *testing.T) {
	tester.Setup()
	s := store.NewGormStore(tester.TestDB())
	svc := NewPidService(s, seqGen())
	ctx := context.TODO()

	res := svc.Manage(ctx, PidInput{
		V2:  "S0044-59672023000501",
		AOP: "S0044-59672023005001",
	})
	require.NotNil(t, res.Saved)

	row, err := s.FindPid(ctx, "S0044-59672023000501", "", "", "")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, model.Prefix("S0044-59672023000501"), row.PrefixV2)
	assert.Equal(t, model.Prefix("S0044-59672023005001"), row.PrefixAOP)
}
