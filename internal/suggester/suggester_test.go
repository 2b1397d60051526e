package suggester_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vetkit/vetkit/internal/criteria"
	"github.com/vetkit/vetkit/internal/graphview"
	"github.com/vetkit/vetkit/internal/resolver"
	"github.com/vetkit/vetkit/internal/semver"
	"github.com/vetkit/vetkit/internal/store"
	"github.com/vetkit/vetkit/internal/suggester"
)

const appPackageNameConstant = "app"

func newTable(testInstance *testing.T) *criteria.Table {
	table, buildError := criteria.NewTable(nil)
	require.NoError(testInstance, buildError)
	return table
}

func singleDependencyGraph(testInstance *testing.T, dependencyName, dependencyVersion string) (*graphview.Graph, graphview.NodeID) {
	graph := graphview.NewGraph()

	appID := graphview.MakeNodeID(appPackageNameConstant, semver.MustParse("0.0.0"))
	require.NoError(testInstance, graph.AddNode(graphview.Node{
		ID: appID, PackageName: appPackageNameConstant, Version: semver.MustParse("0.0.0"), IsWorkspaceMember: true,
	}))

	depVersion := semver.MustParse(dependencyVersion)
	depID := graphview.MakeNodeID(dependencyName, depVersion)
	require.NoError(testInstance, graph.AddNode(graphview.Node{
		ID: depID, PackageName: dependencyName, Version: depVersion, IsThirdParty: true,
	}))

	require.NoError(testInstance, graph.AddEdge(appID, graphview.Edge{To: depID, Kind: graphview.EdgeNormal}))

	return graph, depID
}

type stubOracle struct {
	costByEndpoint map[string]int
}

func (oracle *stubOracle) EstimateCost(_ context.Context, packageName string, fromVersion *semver.Version, toVersion semver.Version) (int, error) {
	key := packageName + "|"
	if fromVersion != nil {
		key += fromVersion.String()
	}
	key += "|" + toVersion.String()
	if cost, found := oracle.costByEndpoint[key]; found {
		return cost, nil
	}
	return 1000, nil
}

// Broken delta chain: full base64 0.1.0, deltas 0.1.0->0.4.0 and
// 0.8.1->0.9.0->0.13.0, but the 0.4.0->0.8.1 hop is missing. The demand on
// 0.13.0 is unmet; the suggester should propose bridging from 0.4.0 (the
// richest still-reached version) rather than re-auditing from scratch,
// because that candidate is cheaper in the stub oracle.
func TestSuggestProposesCheapestBridgingDelta(testInstance *testing.T) {
	testInstance.Parallel()

	table := newTable(testInstance)
	dataStore, buildError := store.NewStore(table, store.Inputs{
		Fulls: []store.FullAudit{
			{Package: "base64", Version: semver.MustParse("0.1.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy)},
		},
		Deltas: []store.DeltaAudit{
			{Package: "base64", From: semver.MustParse("0.1.0"), To: semver.MustParse("0.4.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy)},
			{Package: "base64", From: semver.MustParse("0.8.1"), To: semver.MustParse("0.9.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy)},
			{Package: "base64", From: semver.MustParse("0.9.0"), To: semver.MustParse("0.13.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy)},
		},
		Policies: []store.Policy{{Package: appPackageNameConstant, Criteria: criteria.NewSet(criteria.SafeToDeploy)}},
	})
	require.NoError(testInstance, buildError)

	graph, depID := singleDependencyGraph(testInstance, "base64", "0.13.0")

	result := resolver.Resolve(table, dataStore, graph)
	require.NotEmpty(testInstance, result.Verdicts[depID].Unmet)

	oracle := &stubOracle{costByEndpoint: map[string]int{
		"base64||0.13.0":        500,
		"base64|0.4.0|0.13.0":   12,
		"base64|0.1.0|0.13.0":   300,
	}}

	report := suggester.Suggest(context.Background(), table, dataStore, graph, result, oracle, suggester.Options{})
	require.Len(testInstance, report.Suggestions, 1)

	best := report.Suggestions[0]
	require.Equal(testInstance, "base64", best.PackageName)
	require.Equal(testInstance, suggester.ActionDelta, best.Action.Kind)
	require.Equal(testInstance, "0.4.0", best.Action.From.String())
	require.Equal(testInstance, 12, best.Cost)
	require.Equal(testInstance, []graphview.NodeID{graphview.MakeNodeID(appPackageNameConstant, semver.MustParse("0.0.0"))}, best.ParentChain)
}

// A violation hit is never suggestable: re-auditing cannot clear it, so the
// suggester must not propose anything for it.
func TestSuggestSkipsViolatedNode(testInstance *testing.T) {
	testInstance.Parallel()

	table := newTable(testInstance)
	dataStore, buildError := store.NewStore(table, store.Inputs{
		Fulls: []store.FullAudit{
			{Package: "autocfg", Version: semver.MustParse("1.1.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy)},
		},
		Violations: []store.Violation{
			{Package: "autocfg", Range: mustParseRange(testInstance, ">=1.0, <2.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy)},
		},
		Policies: []store.Policy{{Package: appPackageNameConstant, Criteria: criteria.NewSet(criteria.SafeToDeploy)}},
	})
	require.NoError(testInstance, buildError)

	graph, depID := singleDependencyGraph(testInstance, "autocfg", "1.1.0")

	result := resolver.Resolve(table, dataStore, graph)
	require.Len(testInstance, result.Verdicts[depID].Unmet, 1)
	require.Equal(testInstance, resolver.ReasonBlockedByViolation, result.Verdicts[depID].Unmet[0].Reason.Kind)

	oracle := &stubOracle{costByEndpoint: map[string]int{"autocfg||1.1.0": 9}}

	report := suggester.Suggest(context.Background(), table, dataStore, graph, result, oracle, suggester.Options{})
	require.Empty(testInstance, report.Suggestions)
	require.Empty(testInstance, report.Diagnostics)
}

func mustParseRange(testInstance *testing.T, raw string) semver.Range {
	parsedRange, parseError := semver.ParseRange(raw)
	require.NoError(testInstance, parseError)
	return parsedRange
}

func TestSuggestShallowModeSkipsDescendantCost(testInstance *testing.T) {
	testInstance.Parallel()

	table := newTable(testInstance)
	dataStore, buildError := store.NewStore(table, store.Inputs{
		Policies: []store.Policy{{Package: appPackageNameConstant, Criteria: criteria.NewSet(criteria.SafeToDeploy)}},
	})
	require.NoError(testInstance, buildError)

	graph, depID := singleDependencyGraph(testInstance, "autocfg", "1.1.0")

	result := resolver.Resolve(table, dataStore, graph)
	require.NotEmpty(testInstance, result.Verdicts[depID].Unmet)

	oracle := &stubOracle{costByEndpoint: map[string]int{"autocfg||1.1.0": 9}}

	shallowReport := suggester.Suggest(context.Background(), table, dataStore, graph, result, oracle, suggester.Options{Shallow: true})
	require.Len(testInstance, shallowReport.Suggestions, 1)
	require.Equal(testInstance, shallowReport.Suggestions[0].Cost, shallowReport.Suggestions[0].TotalCost)

	deepReport := suggester.Suggest(context.Background(), table, dataStore, graph, result, oracle, suggester.Options{})
	require.Len(testInstance, deepReport.Suggestions, 1)
	require.Equal(testInstance, 9, deepReport.Suggestions[0].TotalCost)
}
