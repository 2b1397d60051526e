package store_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vetkit/vetkit/internal/criteria"
	"github.com/vetkit/vetkit/internal/semver"
	"github.com/vetkit/vetkit/internal/store"
)

const (
	autocfgPackageNameConstant = "autocfg"
	base64PackageNameConstant  = "base64"
)

func newTable(testInstance *testing.T) *criteria.Table {
	table, buildError := criteria.NewTable(nil)
	require.NoError(testInstance, buildError)
	return table
}

func TestNewStoreNormalizesCriteriaToClosure(testInstance *testing.T) {
	testInstance.Parallel()

	table := newTable(testInstance)

	builtStore, buildError := store.NewStore(table, store.Inputs{
		Fulls: []store.FullAudit{
			{
				Package:  autocfgPackageNameConstant,
				Version:  semver.MustParse("1.1.0"),
				Criteria: criteria.NewSet(criteria.SafeToDeploy),
			},
		},
	})
	require.NoError(testInstance, buildError)

	fulls := builtStore.FullAudits(autocfgPackageNameConstant)
	require.Len(testInstance, fulls, 1)
	require.True(testInstance, fulls[0].Criteria.Contains(criteria.SafeToRun))
	require.True(testInstance, fulls[0].Criteria.Contains(criteria.SafeToDeploy))
}

func TestNewStoreRejectsUnknownCriterion(testInstance *testing.T) {
	testInstance.Parallel()

	table := newTable(testInstance)

	_, buildError := store.NewStore(table, store.Inputs{
		Fulls: []store.FullAudit{
			{
				Package:  autocfgPackageNameConstant,
				Version:  semver.MustParse("1.1.0"),
				Criteria: criteria.NewSet("not-a-real-criterion"),
			},
		},
	})
	require.Error(testInstance, buildError)
	require.IsType(testInstance, &store.ReferenceError{}, buildError)
}

func TestNewStoreRejectsDeltaCycle(testInstance *testing.T) {
	testInstance.Parallel()

	table := newTable(testInstance)

	_, buildError := store.NewStore(table, store.Inputs{
		Deltas: []store.DeltaAudit{
			{Package: base64PackageNameConstant, From: semver.MustParse("0.1.0"), To: semver.MustParse("0.4.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy)},
			{Package: base64PackageNameConstant, From: semver.MustParse("0.4.0"), To: semver.MustParse("0.1.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy)},
		},
	})
	require.Error(testInstance, buildError)
	require.IsType(testInstance, &store.CycleError{}, buildError)
}

func TestKnownVersionsCollectsFromAllSources(testInstance *testing.T) {
	testInstance.Parallel()

	table := newTable(testInstance)

	builtStore, buildError := store.NewStore(table, store.Inputs{
		Fulls: []store.FullAudit{
			{Package: base64PackageNameConstant, Version: semver.MustParse("0.1.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy)},
		},
		Deltas: []store.DeltaAudit{
			{Package: base64PackageNameConstant, From: semver.MustParse("0.1.0"), To: semver.MustParse("0.4.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy)},
		},
		Exemptions: []store.Exemption{
			{Package: base64PackageNameConstant, Version: semver.MustParse("0.9.0"), Criteria: criteria.NewSet(criteria.SafeToRun), Suggest: true},
		},
	})
	require.NoError(testInstance, buildError)

	versions := builtStore.KnownVersions(base64PackageNameConstant)
	require.Len(testInstance, versions, 3)
	require.True(testInstance, versions[0].Equal(semver.MustParse("0.1.0")))
	require.True(testInstance, versions[2].Equal(semver.MustParse("0.9.0")))
}

func TestViolationOverridesAudit(testInstance *testing.T) {
	testInstance.Parallel()

	table := newTable(testInstance)

	builtStore, buildError := store.NewStore(table, store.Inputs{
		Fulls: []store.FullAudit{
			{Package: "x", Version: semver.MustParse("2.0.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy)},
		},
		Violations: []store.Violation{
			{Package: "x", Range: mustParseRange(testInstance, ">=1.0, <3.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy)},
		},
	})
	require.NoError(testInstance, buildError)

	require.True(testInstance, builtStore.IsViolated("x", semver.MustParse("2.0.0"), criteria.NewSet(criteria.SafeToDeploy)))
}

// Violation closure runs opposite to audit closure: a SafeToRun violation
// also poisons SafeToDeploy (which depends on SafeToRun), but a
// SafeToDeploy violation does not poison SafeToRun.
func TestViolationClosureIsUpwardNotDownward(testInstance *testing.T) {
	testInstance.Parallel()

	table := newTable(testInstance)

	weakViolationStore, buildError := store.NewStore(table, store.Inputs{
		Violations: []store.Violation{
			{Package: "x", Range: mustParseRange(testInstance, ">=1.0, <3.0"), Criteria: criteria.NewSet(criteria.SafeToRun)},
		},
	})
	require.NoError(testInstance, buildError)
	require.True(testInstance, weakViolationStore.IsViolated("x", semver.MustParse("2.0.0"), criteria.NewSet(criteria.SafeToRun)))
	require.True(testInstance, weakViolationStore.IsViolated("x", semver.MustParse("2.0.0"), criteria.NewSet(criteria.SafeToDeploy)))

	strongViolationStore, buildError := store.NewStore(table, store.Inputs{
		Violations: []store.Violation{
			{Package: "x", Range: mustParseRange(testInstance, ">=1.0, <3.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy)},
		},
	})
	require.NoError(testInstance, buildError)
	require.True(testInstance, strongViolationStore.IsViolated("x", semver.MustParse("2.0.0"), criteria.NewSet(criteria.SafeToDeploy)))
	require.False(testInstance, strongViolationStore.IsViolated("x", semver.MustParse("2.0.0"), criteria.NewSet(criteria.SafeToRun)))
}

func mustParseRange(testInstance *testing.T, raw string) semver.Range {
	parsedRange, parseError := semver.ParseRange(raw)
	require.NoError(testInstance, parseError)
	return parsedRange
}
