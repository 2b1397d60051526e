package resolver_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vetkit/vetkit/internal/criteria"
	"github.com/vetkit/vetkit/internal/graphview"
	"github.com/vetkit/vetkit/internal/resolver"
	"github.com/vetkit/vetkit/internal/semver"
	"github.com/vetkit/vetkit/internal/store"
)

const appPackageNameConstant = "app"

func newTable(testInstance *testing.T) *criteria.Table {
	table, buildError := criteria.NewTable(nil)
	require.NoError(testInstance, buildError)
	return table
}

// singleDependencyGraph builds a two-node graph: a workspace member app
// depending normally on one third-party package at one version.
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

func defaultPolicy() store.Policy {
	return store.Policy{Package: appPackageNameConstant, Criteria: criteria.NewSet(criteria.SafeToDeploy)}
}

// exemptionWithDependencyGraph builds a three-node graph: a workspace
// member app depending normally on parentName, which in turn depends
// normally on childName. Used to exercise exemption roots against a
// dependency of the exempted package itself.
func exemptionWithDependencyGraph(testInstance *testing.T, parentName, parentVersion, childName, childVersion string) (*graphview.Graph, graphview.NodeID, graphview.NodeID) {
	graph := graphview.NewGraph()

	appID := graphview.MakeNodeID(appPackageNameConstant, semver.MustParse("0.0.0"))
	require.NoError(testInstance, graph.AddNode(graphview.Node{
		ID: appID, PackageName: appPackageNameConstant, Version: semver.MustParse("0.0.0"), IsWorkspaceMember: true,
	}))

	parentSemver := semver.MustParse(parentVersion)
	parentID := graphview.MakeNodeID(parentName, parentSemver)
	require.NoError(testInstance, graph.AddNode(graphview.Node{
		ID: parentID, PackageName: parentName, Version: parentSemver, IsThirdParty: true,
	}))
	require.NoError(testInstance, graph.AddEdge(appID, graphview.Edge{To: parentID, Kind: graphview.EdgeNormal}))

	childSemver := semver.MustParse(childVersion)
	childID := graphview.MakeNodeID(childName, childSemver)
	require.NoError(testInstance, graph.AddNode(graphview.Node{
		ID: childID, PackageName: childName, Version: childSemver, IsThirdParty: true,
	}))
	require.NoError(testInstance, graph.AddEdge(parentID, graphview.Edge{To: childID, Kind: graphview.EdgeNormal}))

	return graph, parentID, childID
}

// Simple full audit chain.
func TestResolveSimpleFullAuditChain(testInstance *testing.T) {
	testInstance.Parallel()

	table := newTable(testInstance)
	dataStore, buildError := store.NewStore(table, store.Inputs{
		Fulls: []store.FullAudit{
			{Package: "autocfg", Version: semver.MustParse("1.1.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy)},
		},
		Policies: []store.Policy{defaultPolicy()},
	})
	require.NoError(testInstance, buildError)

	graph, depID := singleDependencyGraph(testInstance, "autocfg", "1.1.0")

	result := resolver.Resolve(table, dataStore, graph)

	verdict := result.Verdicts[depID]
	require.NotNil(testInstance, verdict)
	require.True(testInstance, verdict.Satisfied[criteria.SafeToDeploy])
	require.Empty(testInstance, verdict.Unmet)
	require.False(testInstance, verdict.RelicsOnExemption)
}

// Delta chain: full base64 0.1.0, then four deltas up to 0.13.0.
func TestResolveDeltaChain(testInstance *testing.T) {
	testInstance.Parallel()

	table := newTable(testInstance)
	dataStore, buildError := store.NewStore(table, store.Inputs{
		Fulls: []store.FullAudit{
			{Package: "base64", Version: semver.MustParse("0.1.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy)},
		},
		Deltas: []store.DeltaAudit{
			{Package: "base64", From: semver.MustParse("0.1.0"), To: semver.MustParse("0.4.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy)},
			{Package: "base64", From: semver.MustParse("0.4.0"), To: semver.MustParse("0.8.1"), Criteria: criteria.NewSet(criteria.SafeToDeploy)},
			{Package: "base64", From: semver.MustParse("0.8.1"), To: semver.MustParse("0.9.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy)},
			{Package: "base64", From: semver.MustParse("0.9.0"), To: semver.MustParse("0.13.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy)},
		},
		Policies: []store.Policy{defaultPolicy()},
	})
	require.NoError(testInstance, buildError)

	graph, depID := singleDependencyGraph(testInstance, "base64", "0.13.0")

	result := resolver.Resolve(table, dataStore, graph)

	verdict := result.Verdicts[depID]
	require.True(testInstance, verdict.Satisfied[criteria.SafeToDeploy])
	require.Equal(testInstance, resolver.WitnessDelta, verdict.Witnesses[criteria.SafeToDeploy].Kind)
	require.Equal(testInstance, 4, verdict.Witnesses[criteria.SafeToDeploy].ChainLength)
}

// Broken delta chain: same as above minus the 0.4.0 -> 0.8.1 hop.
func TestResolveBrokenDeltaChainLeavesCriterionUnmet(testInstance *testing.T) {
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
		Policies: []store.Policy{defaultPolicy()},
	})
	require.NoError(testInstance, buildError)

	graph, depID := singleDependencyGraph(testInstance, "base64", "0.13.0")

	result := resolver.Resolve(table, dataStore, graph)

	verdict := result.Verdicts[depID]
	require.False(testInstance, verdict.Satisfied[criteria.SafeToDeploy])
	require.Len(testInstance, verdict.Unmet, 1)
	require.Equal(testInstance, resolver.ReasonNoPathFromRoot, verdict.Unmet[0].Reason.Kind)
}

// Custom criteria union: audited and fuzzed reach bitflags 1.3.2 via two
// independent delta chains rooted at two different full audits.
func TestResolveCustomCriteriaUnion(testInstance *testing.T) {
	testInstance.Parallel()

	const (
		auditedCriterionConstant = "audited"
		fuzzedCriterionConstant  = "fuzzed"
	)

	table, buildError := criteria.NewTable([]criteria.Entry{
		{Name: auditedCriterionConstant, Description: "independently audited", Implies: []string{criteria.SafeToDeploy}},
		{Name: fuzzedCriterionConstant, Description: "fuzz-tested"},
	})
	require.NoError(testInstance, buildError)

	dataStore, storeError := store.NewStore(table, store.Inputs{
		Fulls: []store.FullAudit{
			{Package: "bitflags", Version: semver.MustParse("0.1.0"), Criteria: criteria.NewSet(auditedCriterionConstant)},
			{Package: "bitflags", Version: semver.MustParse("0.2.0"), Criteria: criteria.NewSet(fuzzedCriterionConstant)},
		},
		Deltas: []store.DeltaAudit{
			{Package: "bitflags", From: semver.MustParse("0.1.0"), To: semver.MustParse("1.3.2"), Criteria: criteria.NewSet(auditedCriterionConstant)},
			{Package: "bitflags", From: semver.MustParse("0.2.0"), To: semver.MustParse("1.3.2"), Criteria: criteria.NewSet(fuzzedCriterionConstant)},
		},
		Policies: []store.Policy{
			{Package: appPackageNameConstant, Criteria: criteria.NewSet(auditedCriterionConstant, fuzzedCriterionConstant)},
		},
	})
	require.NoError(testInstance, storeError)

	graph, depID := singleDependencyGraph(testInstance, "bitflags", "1.3.2")

	result := resolver.Resolve(table, dataStore, graph)

	verdict := result.Verdicts[depID]
	require.True(testInstance, verdict.Satisfied[auditedCriterionConstant])
	require.True(testInstance, verdict.Satisfied[fuzzedCriterionConstant])
	require.True(testInstance, verdict.Satisfied[criteria.SafeToDeploy])
	require.Empty(testInstance, verdict.Unmet)
}

// Dependency-criteria: clap's full audit demands less of atty than of
// bitflags, and bitflags must independently satisfy both audited and fuzzed.
func TestResolveDependencyCriteriaPropagation(testInstance *testing.T) {
	testInstance.Parallel()

	const (
		auditedCriterionConstant = "audited"
		fuzzedCriterionConstant  = "fuzzed"
	)

	table, buildError := criteria.NewTable([]criteria.Entry{
		{Name: auditedCriterionConstant, Description: "independently audited"},
		{Name: fuzzedCriterionConstant, Description: "fuzz-tested"},
	})
	require.NoError(testInstance, buildError)

	graph := graphview.NewGraph()
	appID := graphview.MakeNodeID(appPackageNameConstant, semver.MustParse("0.0.0"))
	require.NoError(testInstance, graph.AddNode(graphview.Node{
		ID: appID, PackageName: appPackageNameConstant, Version: semver.MustParse("0.0.0"), IsWorkspaceMember: true,
	}))

	clapID := graphview.MakeNodeID("clap", semver.MustParse("3.1.8"))
	require.NoError(testInstance, graph.AddNode(graphview.Node{
		ID: clapID, PackageName: "clap", Version: semver.MustParse("3.1.8"), IsThirdParty: true,
	}))
	require.NoError(testInstance, graph.AddEdge(appID, graphview.Edge{To: clapID, Kind: graphview.EdgeNormal}))

	attyID := graphview.MakeNodeID("atty", semver.MustParse("0.2.14"))
	require.NoError(testInstance, graph.AddNode(graphview.Node{
		ID: attyID, PackageName: "atty", Version: semver.MustParse("0.2.14"), IsThirdParty: true,
	}))
	require.NoError(testInstance, graph.AddEdge(clapID, graphview.Edge{To: attyID, Kind: graphview.EdgeNormal}))

	bitflagsID := graphview.MakeNodeID("bitflags", semver.MustParse("1.3.2"))
	require.NoError(testInstance, graph.AddNode(graphview.Node{
		ID: bitflagsID, PackageName: "bitflags", Version: semver.MustParse("1.3.2"), IsThirdParty: true,
	}))
	require.NoError(testInstance, graph.AddEdge(clapID, graphview.Edge{To: bitflagsID, Kind: graphview.EdgeNormal}))

	dataStore, storeError := store.NewStore(table, store.Inputs{
		Fulls: []store.FullAudit{
			{
				Package:  "clap",
				Version:  semver.MustParse("3.1.8"),
				Criteria: criteria.NewSet(criteria.SafeToDeploy),
				DependencyCriteria: map[string]criteria.Set{
					"atty":     criteria.NewSet(criteria.SafeToRun),
					"bitflags": criteria.NewSet(auditedCriterionConstant, fuzzedCriterionConstant),
				},
			},
			{Package: "atty", Version: semver.MustParse("0.2.14"), Criteria: criteria.NewSet(criteria.SafeToRun)},
			{Package: "bitflags", Version: semver.MustParse("1.3.2"), Criteria: criteria.NewSet(auditedCriterionConstant, fuzzedCriterionConstant)},
		},
		Policies: []store.Policy{defaultPolicy()},
	})
	require.NoError(testInstance, storeError)

	result := resolver.Resolve(table, dataStore, graph)

	clapVerdict := result.Verdicts[clapID]
	require.True(testInstance, clapVerdict.Satisfied[criteria.SafeToDeploy])

	attyVerdict := result.Verdicts[attyID]
	require.True(testInstance, attyVerdict.Satisfied[criteria.SafeToRun])
	require.False(testInstance, attyVerdict.Satisfied[criteria.SafeToDeploy])

	bitflagsVerdict := result.Verdicts[bitflagsID]
	require.True(testInstance, bitflagsVerdict.Satisfied[auditedCriterionConstant])
	require.True(testInstance, bitflagsVerdict.Satisfied[fuzzedCriterionConstant])
}

// Violation overrides audit.
func TestResolveViolationOverridesAudit(testInstance *testing.T) {
	testInstance.Parallel()

	table := newTable(testInstance)
	dataStore, buildError := store.NewStore(table, store.Inputs{
		Fulls: []store.FullAudit{
			{Package: "x", Version: semver.MustParse("2.0.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy)},
		},
		Violations: []store.Violation{
			{Package: "x", Range: mustParseRange(testInstance, ">=1.0, <3.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy)},
		},
		Policies: []store.Policy{defaultPolicy()},
	})
	require.NoError(testInstance, buildError)

	graph, depID := singleDependencyGraph(testInstance, "x", "2.0.0")

	result := resolver.Resolve(table, dataStore, graph)

	verdict := result.Verdicts[depID]
	require.False(testInstance, verdict.Satisfied[criteria.SafeToDeploy])
	require.True(testInstance, verdict.Violated[criteria.SafeToDeploy])
	require.Len(testInstance, verdict.Unmet, 1)
	require.Equal(testInstance, resolver.ReasonBlockedByViolation, verdict.Unmet[0].Reason.Kind)
}

func TestResolveExemptionSatisfiesAndIsReportedAsUsed(testInstance *testing.T) {
	testInstance.Parallel()

	table := newTable(testInstance)
	dataStore, buildError := store.NewStore(table, store.Inputs{
		Exemptions: []store.Exemption{
			{Package: "autocfg", Version: semver.MustParse("1.1.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy), Suggest: true},
		},
		Policies: []store.Policy{defaultPolicy()},
	})
	require.NoError(testInstance, buildError)

	graph, depID := singleDependencyGraph(testInstance, "autocfg", "1.1.0")

	result := resolver.Resolve(table, dataStore, graph)

	verdict := result.Verdicts[depID]
	require.True(testInstance, verdict.Satisfied[criteria.SafeToDeploy])
	require.True(testInstance, verdict.RelicsOnExemption)
	require.Equal(testInstance, resolver.WitnessExemption, verdict.Witnesses[criteria.SafeToDeploy].Kind)

	require.Len(testInstance, result.UsedExemptions, 1)
	require.Equal(testInstance, "autocfg", result.UsedExemptions[0].Package)
	require.Equal(testInstance, criteria.SafeToDeploy, result.UsedExemptions[0].Criterion)
}

// An exemption grandfathers the package itself; it must not also demand its
// own criteria of the exempted package's dependencies. A completely
// unaudited child must not drag the exempted parent down to unmet.
func TestResolveExemptionImposesNoDemandOnItsOwnDependency(testInstance *testing.T) {
	testInstance.Parallel()

	table := newTable(testInstance)
	dataStore, buildError := store.NewStore(table, store.Inputs{
		Exemptions: []store.Exemption{
			{Package: "autocfg", Version: semver.MustParse("1.1.0"), Criteria: criteria.NewSet(criteria.SafeToDeploy), Suggest: true},
		},
		Policies: []store.Policy{defaultPolicy()},
	})
	require.NoError(testInstance, buildError)

	graph, parentID, childID := exemptionWithDependencyGraph(testInstance, "autocfg", "1.1.0", "unaudited-leaf", "0.1.0")

	result := resolver.Resolve(table, dataStore, graph)

	parentVerdict := result.Verdicts[parentID]
	require.True(testInstance, parentVerdict.Satisfied[criteria.SafeToDeploy])
	require.True(testInstance, parentVerdict.RelicsOnExemption)
	require.Empty(testInstance, parentVerdict.Unmet)

	// No demand reaches the child, so the resolver records no verdict for it.
	_, childHasVerdict := result.Verdicts[childID]
	require.False(testInstance, childHasVerdict)
}

func mustParseRange(testInstance *testing.T, raw string) semver.Range {
	parsedRange, parseError := semver.ParseRange(raw)
	require.NoError(testInstance, parseError)
	return parsedRange
}
