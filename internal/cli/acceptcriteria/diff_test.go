package acceptcriteria_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vetkit/vetkit/internal/cli/acceptcriteria"
	"github.com/vetkit/vetkit/internal/criteria"
)

func TestDiffDetectsCosmeticDescriptionChange(testInstance *testing.T) {
	fromTable, fromError := criteria.NewTable([]criteria.Entry{{Name: "audited", Description: "reviewed"}})
	require.NoError(testInstance, fromError)
	toTable, toError := criteria.NewTable([]criteria.Entry{{Name: "audited", Description: "reviewed by a human"}})
	require.NoError(testInstance, toError)

	changes := acceptcriteria.Diff(fromTable, toTable)
	require.Len(testInstance, changes, 1)
	require.Equal(testInstance, "audited", changes[0].Name)
	require.True(testInstance, changes[0].DescriptionChanged)
	require.False(testInstance, changes[0].ImpliesChanged)
	require.False(testInstance, changes[0].ClosureChanged)
}

func TestDiffDetectsClosureWideningImplication(testInstance *testing.T) {
	fromTable, fromError := criteria.NewTable([]criteria.Entry{{Name: "audited", Description: "reviewed"}})
	require.NoError(testInstance, fromError)
	toTable, toError := criteria.NewTable([]criteria.Entry{{Name: "audited", Description: "reviewed", Implies: []string{criteria.SafeToRun}}})
	require.NoError(testInstance, toError)

	changes := acceptcriteria.Diff(fromTable, toTable)
	require.Len(testInstance, changes, 1)
	require.True(testInstance, changes[0].ImpliesChanged)
	require.True(testInstance, changes[0].ClosureChanged)
}

func TestDiffReportsNothingWhenTablesMatch(testInstance *testing.T) {
	entries := []criteria.Entry{{Name: "audited", Description: "reviewed"}}
	fromTable, fromError := criteria.NewTable(entries)
	require.NoError(testInstance, fromError)
	toTable, toError := criteria.NewTable(entries)
	require.NoError(testInstance, toError)

	require.Empty(testInstance, acceptcriteria.Diff(fromTable, toTable))
}

func TestDiffDetectsAddedCriterion(testInstance *testing.T) {
	fromTable, fromError := criteria.NewTable(nil)
	require.NoError(testInstance, fromError)
	toTable, toError := criteria.NewTable([]criteria.Entry{{Name: "no-unsafe", Description: "no unsafe code"}})
	require.NoError(testInstance, toError)

	changes := acceptcriteria.Diff(fromTable, toTable)
	require.Len(testInstance, changes, 1)
	require.False(testInstance, changes[0].ExistsInFrom)
	require.True(testInstance, changes[0].ExistsInTo)
}
