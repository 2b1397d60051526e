package resolver

import (
	"sort"

	"github.com/vetkit/vetkit/internal/criteria"
	"github.com/vetkit/vetkit/internal/graphview"
	"github.com/vetkit/vetkit/internal/store"
)

// chosenWitness is the fixed, store-derived witness decision for one
// (node, criterion) pair. It never changes across worklist rounds: the
// static tie-break order (prefer full audits, then shorter delta chains,
// then local over imported, then lexicographic source identifier) is
// applied once and is independent of how dependency demand later resolves,
// which keeps the overall worklist monotone and guarantees termination —
// see the resolved Open Question in SPEC_FULL.md §4.4.
type chosenWitness struct {
	found bool
	chain chain
}

type nodeState struct {
	node      *graphview.Node
	demand    criteria.Set
	witnesses map[string]chosenWitness
}

// Resolve runs Pass A (supply reachability, computed lazily and cached per
// package/criterion) and Pass B (worklist demand propagation) over graph
// using dataStore's audits, exemptions, violations, and policy, and returns
// a verdict for every third-party node; a node that never received demand
// gets an empty one.
func Resolve(table *criteria.Table, dataStore *store.Store, graph *graphview.Graph) *Result {
	result := newResult()

	reachabilityCache := make(map[string]reachability)
	reachedFor := func(packageName, criterionName string) reachability {
		key := packageName + "\x00" + criterionName
		if cached, found := reachabilityCache[key]; found {
			return cached
		}
		computed := computeReachability(table, dataStore, packageName, criterionName)
		reachabilityCache[key] = computed
		return computed
	}

	states := make(map[graphview.NodeID]*nodeState)
	for _, node := range graph.Nodes() {
		states[node.ID] = &nodeState{node: node, demand: make(criteria.Set), witnesses: make(map[string]chosenWitness)}
	}

	parents := make(map[graphview.NodeID][]graphview.NodeID)
	for _, node := range graph.Nodes() {
		for _, edge := range node.Edges {
			parents[edge.To] = append(parents[edge.To], node.ID)
		}
	}

	queue := make([]graphview.NodeID, 0, len(states))
	queued := make(map[graphview.NodeID]bool, len(states))
	enqueue := func(id graphview.NodeID) {
		if queued[id] {
			return
		}
		queued[id] = true
		queue = append(queue, id)
	}

	for _, member := range graph.WorkspaceMembers() {
		policy, hasPolicy := dataStore.Policy(member.PackageName)
		demand := criteria.NewSet(criteria.SafeToDeploy)
		if hasPolicy {
			demand = policy.Criteria
		}
		growDemand(states[member.ID], table.Closure(demand))
		enqueue(member.ID)
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		queued[id] = false

		state := states[id]

		if state.node.IsThirdParty {
			verdictChanged := resolveThirdPartyNode(table, dataStore, reachedFor, state, states, result)
			if verdictChanged {
				for _, parentID := range parents[id] {
					enqueue(parentID)
				}
			}
		}

		propagateToChildren(table, dataStore, state, states, enqueue)
	}

	for _, node := range graph.Nodes() {
		if _, recorded := result.Verdicts[node.ID]; node.IsThirdParty && !recorded {
			result.Verdicts[node.ID] = newVerdict(node.ID, node.PackageName)
		}
	}

	result.UsedExemptions = collectUsedExemptions(result, graph)

	return result
}

func growDemand(state *nodeState, addition criteria.Set) bool {
	grew := false
	for name := range addition {
		if !state.demand.Contains(name) {
			state.demand[name] = struct{}{}
			grew = true
		}
	}
	return grew
}

func resolveThirdPartyNode(
	table *criteria.Table,
	dataStore *store.Store,
	reachedFor func(packageName, criterionName string) reachability,
	state *nodeState,
	states map[graphview.NodeID]*nodeState,
	result *Result,
) bool {
	node := state.node
	verdict, existed := result.Verdicts[node.ID]
	if !existed {
		verdict = newVerdict(node.ID, node.PackageName)
		result.Verdicts[node.ID] = verdict
	}

	previousUnmetCount := len(verdict.Unmet)
	previousSatisfiedCount := len(verdict.Satisfied)

	verdict.Unmet = nil
	verdict.RelicsOnExemption = false

	hasAnyAuditData := len(dataStore.FullAudits(node.PackageName)) > 0 ||
		len(dataStore.DeltaAudits(node.PackageName)) > 0 ||
		len(dataStore.Exemptions(node.PackageName)) > 0

	sortedDemand := make([]string, 0, len(state.demand))
	for name := range state.demand {
		sortedDemand = append(sortedDemand, name)
	}
	sort.Strings(sortedDemand)

	for _, criterionName := range sortedDemand {
		verdict.Demanded[criterionName] = true

		witness, known := state.witnesses[criterionName]
		if !known {
			candidates := reachedFor(node.PackageName, criterionName).Candidates(node.Version)
			if len(candidates) == 0 {
				witness = chosenWitness{found: false}
			} else {
				witness = chosenWitness{found: true, chain: candidates[0]}
			}
			state.witnesses[criterionName] = witness
		}

		if !witness.found {
			if dataStore.IsViolated(node.PackageName, node.Version, criteria.NewSet(criterionName)) {
				verdict.Violated[criterionName] = true
				verdict.Unmet = append(verdict.Unmet, UnmetDemand{Criterion: criterionName, Reason: Reason{Kind: ReasonBlockedByViolation}})
				continue
			}
			reason := ReasonNoPathFromRoot
			if !hasAnyAuditData {
				reason = ReasonNoAudits
			}
			verdict.Unmet = append(verdict.Unmet, UnmetDemand{Criterion: criterionName, Reason: Reason{Kind: reason}})
			continue
		}

		dependencyOK, failingChild, failingCriterion := checkDependencySoundness(table, node, witness.chain, states, result)
		if dependencyOK {
			verdict.Satisfied[criterionName] = true
			verdict.Witnesses[criterionName] = witnessFromChain(witness.chain)
			if witness.chain.UsesExemption() {
				verdict.RelicsOnExemption = true
			}
		} else {
			delete(verdict.Satisfied, criterionName)
			verdict.Unmet = append(verdict.Unmet, UnmetDemand{
				Criterion: criterionName,
				Reason:    Reason{Kind: ReasonDependencyUnmet, Child: failingChild, ChildCriterion: failingCriterion},
			})
		}
	}

	// Leave out an unmet criterion that another unmet, non-violated criterion
	// of this node implies: closing the stronger one closes it too.
	reported := make([]UnmetDemand, 0, len(verdict.Unmet))
nextUnmet:
	for _, unmet := range verdict.Unmet {
		for _, other := range verdict.Unmet {
			if other.Criterion != unmet.Criterion && other.Reason.Kind != ReasonBlockedByViolation && table.Closure(criteria.NewSet(other.Criterion)).Contains(unmet.Criterion) {
				continue nextUnmet
			}
		}
		reported = append(reported, unmet)
	}
	verdict.Unmet = reported

	return len(verdict.Unmet) != previousUnmetCount || len(verdict.Satisfied) != previousSatisfiedCount
}

// checkDependencySoundness validates that chosen's dependency preconditions
// hold against the dependant node's current third-party graph children.
// First-party children are transparent passthroughs: their own third-party
// descendants are what actually gets checked as demand keeps propagating.
func checkDependencySoundness(
	table *criteria.Table,
	node *graphview.Node,
	chosen chain,
	states map[graphview.NodeID]*nodeState,
	result *Result,
) (bool, graphview.NodeID, string) {
	for _, edge := range node.Edges {
		if !edgeEligible(node, edge) {
			continue
		}
		childState, known := states[edge.To]
		if !known || !childState.node.IsThirdParty {
			continue
		}

		demand := chosen.DependencyDemand(table, childState.node.PackageName)
		if len(demand) == 0 {
			continue
		}

		childVerdict, hasVerdict := result.Verdicts[edge.To]
		if !hasVerdict {
			return false, edge.To, firstSortedName(demand)
		}
		for name := range demand {
			if !childVerdict.Satisfied[name] {
				return false, edge.To, name
			}
		}
	}
	return true, "", ""
}

func firstSortedName(set criteria.Set) string {
	names := set.Sorted()
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

func edgeEligible(node *graphview.Node, edge graphview.Edge) bool {
	if !edge.IsDev() {
		return true
	}
	return node.IsWorkspaceMember
}

// propagateToChildren forwards state's demand across eligible edges.
//
// A workspace-member root with a policy forwards, per direct dependency,
// that policy's (possibly per-dependency-overridden) demand rather than its
// own required set verbatim — the policy's DependencyCriteria overrides
// exist precisely to let a root demand less (or more) of one dependency
// than of the rest of its graph.
//
// Any other first-party node forwards its received demand unchanged.
//
// A third-party node forwards, per child, the union of dependency-criteria
// preconditions carried by its chosen witnesses — a fixed function of
// state.witnesses, so this can be recomputed every round without ever
// retracting demand already sent.
func propagateToChildren(
	table *criteria.Table,
	dataStore *store.Store,
	state *nodeState,
	states map[graphview.NodeID]*nodeState,
	enqueue func(graphview.NodeID),
) {
	node := state.node

	var policy store.Policy
	var hasPolicy bool
	if !node.IsThirdParty {
		policy, hasPolicy = dataStore.Policy(node.PackageName)
	}

	for _, edge := range node.Edges {
		if !edgeEligible(node, edge) {
			continue
		}
		if edge.IsDev() && !(hasPolicy && policy.IncludeDevDemands) {
			continue
		}

		childState, known := states[edge.To]
		if !known {
			continue
		}

		var demandForChild criteria.Set
		switch {
		case node.IsThirdParty:
			demandForChild = make(criteria.Set)
			for _, witness := range state.witnesses {
				if !witness.found {
					continue
				}
				for name := range witness.chain.DependencyDemand(table, childState.node.PackageName) {
					demandForChild[name] = struct{}{}
				}
			}
		case hasPolicy:
			demandForChild = table.Closure(policy.DependencyDemand(childState.node.PackageName))
		default:
			demandForChild = state.demand
		}

		if growDemand(childState, demandForChild) {
			enqueue(edge.To)
		}
	}
}

func collectUsedExemptions(result *Result, graph *graphview.Graph) []ExemptionUse {
	seen := make(map[string]bool)
	used := make([]ExemptionUse, 0)
	for nodeID, verdict := range result.Verdicts {
		node, found := graph.Node(nodeID)
		if !found {
			continue
		}
		versionString := node.Version.String()
		for criterionName, witness := range verdict.Witnesses {
			if witness.Kind != WitnessExemption {
				continue
			}
			key := verdict.PackageName + "\x00" + versionString + "\x00" + criterionName
			if seen[key] {
				continue
			}
			seen[key] = true
			used = append(used, ExemptionUse{Package: verdict.PackageName, Version: versionString, Criterion: criterionName})
		}
	}
	sort.Slice(used, func(i, j int) bool {
		if used[i].Package != used[j].Package {
			return used[i].Package < used[j].Package
		}
		if used[i].Version != used[j].Version {
			return used[i].Version < used[j].Version
		}
		return used[i].Criterion < used[j].Criterion
	})
	return used
}
