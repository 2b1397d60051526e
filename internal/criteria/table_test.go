package criteria_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vetkit/vetkit/internal/criteria"
)

const (
	auditedCriterionNameConstant = "audited"
	fuzzedCriterionNameConstant  = "fuzzed"
	unknownCriterionNameConstant = "does-not-exist"
)

func TestNewTableInjectsBuiltins(testInstance *testing.T) {
	testInstance.Parallel()

	table, buildError := criteria.NewTable(nil)
	require.NoError(testInstance, buildError)
	require.True(testInstance, table.Exists(criteria.SafeToRun))
	require.True(testInstance, table.Exists(criteria.SafeToDeploy))

	closure := table.Closure(criteria.NewSet(criteria.SafeToDeploy))
	require.True(testInstance, closure.Contains(criteria.SafeToRun))
	require.True(testInstance, closure.Contains(criteria.SafeToDeploy))
}

func TestNewTableRejectsUnknownImplies(testInstance *testing.T) {
	testInstance.Parallel()

	_, buildError := criteria.NewTable([]criteria.Entry{
		{Name: auditedCriterionNameConstant, Implies: []string{unknownCriterionNameConstant}},
	})
	require.Error(testInstance, buildError)
}

func TestNewTableRejectsDuplicateNames(testInstance *testing.T) {
	testInstance.Parallel()

	_, buildError := criteria.NewTable([]criteria.Entry{
		{Name: auditedCriterionNameConstant},
		{Name: auditedCriterionNameConstant},
	})
	require.Error(testInstance, buildError)
}

func TestNewTableRejectsImpliesCycle(testInstance *testing.T) {
	testInstance.Parallel()

	_, buildError := criteria.NewTable([]criteria.Entry{
		{Name: "a", Implies: []string{"b"}},
		{Name: "b", Implies: []string{"c"}},
		{Name: "c", Implies: []string{"a"}},
	})
	require.Error(testInstance, buildError)
}

func TestTableSatisfiesUsesClosure(testInstance *testing.T) {
	testInstance.Parallel()

	table, buildError := criteria.NewTable([]criteria.Entry{
		{Name: auditedCriterionNameConstant, Implies: []string{criteria.SafeToDeploy}},
		{Name: fuzzedCriterionNameConstant},
	})
	require.NoError(testInstance, buildError)

	require.True(testInstance, table.Satisfies(
		criteria.NewSet(auditedCriterionNameConstant),
		criteria.NewSet(criteria.SafeToRun),
	))
	require.False(testInstance, table.Satisfies(
		criteria.NewSet(criteria.SafeToRun),
		criteria.NewSet(criteria.SafeToDeploy),
	))
}

func TestTableReverseClosureClosesUpward(testInstance *testing.T) {
	testInstance.Parallel()

	table, buildError := criteria.NewTable([]criteria.Entry{
		{Name: auditedCriterionNameConstant, Implies: []string{criteria.SafeToDeploy}},
		{Name: fuzzedCriterionNameConstant},
	})
	require.NoError(testInstance, buildError)

	// SafeToRun is the weakest criterion; flagging it poisons everything
	// that transitively implies it.
	fromWeakest := table.ReverseClosure(criteria.NewSet(criteria.SafeToRun))
	require.True(testInstance, fromWeakest.Contains(criteria.SafeToRun))
	require.True(testInstance, fromWeakest.Contains(criteria.SafeToDeploy))
	require.True(testInstance, fromWeakest.Contains(auditedCriterionNameConstant))
	require.False(testInstance, fromWeakest.Contains(fuzzedCriterionNameConstant))

	// SafeToDeploy is stronger than SafeToRun but weaker than the custom
	// criterion; flagging it poisons only what implies it, not what it
	// itself implies.
	fromMiddle := table.ReverseClosure(criteria.NewSet(criteria.SafeToDeploy))
	require.True(testInstance, fromMiddle.Contains(criteria.SafeToDeploy))
	require.True(testInstance, fromMiddle.Contains(auditedCriterionNameConstant))
	require.False(testInstance, fromMiddle.Contains(criteria.SafeToRun))
}

func TestTableMeetAndJoin(testInstance *testing.T) {
	testInstance.Parallel()

	table, buildError := criteria.NewTable([]criteria.Entry{
		{Name: auditedCriterionNameConstant, Implies: []string{criteria.SafeToDeploy}},
		{Name: fuzzedCriterionNameConstant},
	})
	require.NoError(testInstance, buildError)

	a := criteria.NewSet(auditedCriterionNameConstant)
	b := criteria.NewSet(fuzzedCriterionNameConstant)

	joined := table.Join(a, b)
	require.True(testInstance, joined.Contains(auditedCriterionNameConstant))
	require.True(testInstance, joined.Contains(fuzzedCriterionNameConstant))
	require.True(testInstance, joined.Contains(criteria.SafeToDeploy))

	met := table.Meet(a, b)
	require.False(testInstance, met.Contains(auditedCriterionNameConstant))
	require.False(testInstance, met.Contains(fuzzedCriterionNameConstant))
}

func TestTableValidateNames(testInstance *testing.T) {
	testInstance.Parallel()

	table, buildError := criteria.NewTable(nil)
	require.NoError(testInstance, buildError)

	require.NoError(testInstance, table.ValidateNames(criteria.SafeToRun))
	require.Error(testInstance, table.ValidateNames(unknownCriterionNameConstant))
}

func TestEmptySetSatisfiesOnlyEmptyDemand(testInstance *testing.T) {
	testInstance.Parallel()

	table, buildError := criteria.NewTable(nil)
	require.NoError(testInstance, buildError)

	require.True(testInstance, table.Satisfies(criteria.NewSet(), criteria.NewSet()))
	require.False(testInstance, table.Satisfies(criteria.NewSet(), criteria.NewSet(criteria.SafeToRun)))
}
