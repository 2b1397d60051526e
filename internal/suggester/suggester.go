package suggester

import (
	"context"
	"sort"

	"github.com/vetkit/vetkit/internal/criteria"
	"github.com/vetkit/vetkit/internal/difforacle"
	"github.com/vetkit/vetkit/internal/graphview"
	"github.com/vetkit/vetkit/internal/resolver"
	"github.com/vetkit/vetkit/internal/store"
)

// Options configures a single Suggest call.
type Options struct {
	// Shallow restricts suggestions to the unsatisfied node itself; when
	// false (the default), unaudited dependencies reachable from the node
	// are traversed too and their cheapest cost is folded into the node's
	// TotalCost.
	Shallow bool
	// OracleConcurrency bounds how many EstimateCost calls run at once.
	// Zero selects a sane default.
	OracleConcurrency int
}

// Diagnostic records an oracle failure for one candidate action; the
// candidate is simply omitted from ranking rather than aborting the run.
type Diagnostic struct {
	PackageName string
	Action      Action
	Cause       error
}

// Suggestion is one ranked proposal to close a single unmet (package,
// criterion) gap.
type Suggestion struct {
	Node        graphview.NodeID
	PackageName string
	Version     string
	Criterion   string
	Action      Action
	// Cost is this node's own estimated review cost.
	Cost int
	// TotalCost additionally folds in the cost of unaudited dependencies
	// this node's candidate action would still leave unaudited, unless
	// Options.Shallow was set.
	TotalCost   int
	ParentChain []graphview.NodeID
}

// Report is the full ranked output of a Suggest call.
type Report struct {
	Suggestions []Suggestion
	Diagnostics []Diagnostic
}

// Suggest enumerates and costs candidate actions for every unmet (node,
// criterion) pair in result, and returns them ranked cheapest first.
func Suggest(executionContext context.Context, table *criteria.Table, dataStore *store.Store, graph *graphview.Graph, result *resolver.Result, oracle difforacle.Oracle, options Options) *Report {
	parents := buildParentIndex(graph)

	requests := make([]costRequest, 0)
	unmetByNode := make(map[graphview.NodeID][]resolver.UnmetDemand)

	for nodeID, verdict := range result.Verdicts {
		if len(verdict.Unmet) == 0 {
			continue
		}
		unmetByNode[nodeID] = verdict.Unmet

		node, found := graph.Node(nodeID)
		if !found {
			continue
		}
		for _, unmet := range verdict.Unmet {
			if unmet.Reason.Kind == resolver.ReasonBlockedByViolation {
				continue
			}
			requests = append(requests, candidateRequests(table, dataStore, node, unmet.Criterion)...)
		}
	}

	costs := evaluateCosts(executionContext, oracle, requests, options.OracleConcurrency)

	nodeOwnCost := make(map[graphview.NodeID]int)
	suggestions := make([]Suggestion, 0)
	diagnostics := make([]Diagnostic, 0)

	nodeIDs := make([]graphview.NodeID, 0, len(unmetByNode))
	for nodeID := range unmetByNode {
		nodeIDs = append(nodeIDs, nodeID)
	}
	sort.Slice(nodeIDs, func(i, j int) bool { return nodeIDs[i] < nodeIDs[j] })

	for _, nodeID := range nodeIDs {
		node, found := graph.Node(nodeID)
		if !found {
			continue
		}

		for _, unmet := range unmetByNode[nodeID] {
			if unmet.Reason.Kind == resolver.ReasonBlockedByViolation {
				continue
			}
			candidateActions := candidateRequests(table, dataStore, node, unmet.Criterion)

			best, bestFound, cause := cheapestCandidate(candidateActions, costs)
			if !bestFound {
				if cause != nil {
					diagnostics = append(diagnostics, Diagnostic{PackageName: node.PackageName, Cause: cause})
				}
				continue
			}

			suggestions = append(suggestions, Suggestion{
				Node:        nodeID,
				PackageName: node.PackageName,
				Version:     node.Version.String(),
				Criterion:   unmet.Criterion,
				Action:      best.action,
				Cost:        best.cost,
				ParentChain: parentChain(parents, nodeID),
			})

			nodeOwnCost[nodeID] += best.cost
		}
	}

	if !options.Shallow {
		totalCostMemo := make(map[graphview.NodeID]int)
		for index := range suggestions {
			suggestions[index].TotalCost = totalDescendantCost(graph, unmetByNode, nodeOwnCost, totalCostMemo, suggestions[index].Node, make(map[graphview.NodeID]bool))
		}
	} else {
		for index := range suggestions {
			suggestions[index].TotalCost = suggestions[index].Cost
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].TotalCost != suggestions[j].TotalCost {
			return suggestions[i].TotalCost < suggestions[j].TotalCost
		}
		return suggestions[i].PackageName < suggestions[j].PackageName
	})

	return &Report{Suggestions: suggestions, Diagnostics: diagnostics}
}

// candidateRequests enumerates the full-audit action plus one delta action
// per version already reached for criterionName.
func candidateRequests(table *criteria.Table, dataStore *store.Store, node *graphview.Node, criterionName string) []costRequest {
	requests := []costRequest{
		{packageName: node.PackageName, action: Action{Kind: ActionFull, To: node.Version}},
	}

	for _, reachedVersion := range resolver.ReachedVersions(table, dataStore, node.PackageName, criterionName) {
		if reachedVersion.Equal(node.Version) {
			continue
		}
		from := reachedVersion
		requests = append(requests, costRequest{
			packageName: node.PackageName,
			action:      Action{Kind: ActionDelta, From: &from, To: node.Version},
		})
	}

	return requests
}

type costedAction struct {
	action Action
	cost   int
}

func cheapestCandidate(requests []costRequest, costs map[string]costResult) (costedAction, bool, error) {
	var best costedAction
	found := false
	var lastError error

	for _, request := range requests {
		result, known := costs[request.key()]
		if !known {
			continue
		}
		if result.diagnostic != nil {
			lastError = result.diagnostic
			continue
		}
		if !found || result.cost < best.cost {
			best = costedAction{action: request.action, cost: result.cost}
			found = true
		}
	}

	return best, found, lastError
}

func buildParentIndex(graph *graphview.Graph) map[graphview.NodeID][]graphview.NodeID {
	parents := make(map[graphview.NodeID][]graphview.NodeID)
	for _, node := range graph.Nodes() {
		for _, edge := range node.Edges {
			parents[edge.To] = append(parents[edge.To], node.ID)
		}
	}
	return parents
}

// parentChain walks parents back to a workspace member, picking the first
// recorded parent at each step (sufficient for reporting purposes; a node
// may have several valid ancestor chains, any one of them explains why the
// node is in the graph at all).
func parentChain(parents map[graphview.NodeID][]graphview.NodeID, nodeID graphview.NodeID) []graphview.NodeID {
	chain := make([]graphview.NodeID, 0)
	current := nodeID
	visited := make(map[graphview.NodeID]bool)
	for {
		candidates := parents[current]
		if len(candidates) == 0 {
			break
		}
		next := candidates[0]
		if visited[next] {
			break
		}
		visited[next] = true
		chain = append(chain, next)
		current = next
	}
	return chain
}

// totalDescendantCost recursively sums the own cost of node plus every
// still-unaudited dependency's own cost, memoized per node and guarded
// against revisiting a node already on the current recursion stack (the
// dependency graph is acyclic, but defends against a malformed input).
func totalDescendantCost(graph *graphview.Graph, unmetByNode map[graphview.NodeID][]resolver.UnmetDemand, nodeOwnCost map[graphview.NodeID]int, memo map[graphview.NodeID]int, nodeID graphview.NodeID, onStack map[graphview.NodeID]bool) int {
	if cached, done := memo[nodeID]; done {
		return cached
	}
	if onStack[nodeID] {
		return 0
	}
	onStack[nodeID] = true
	defer delete(onStack, nodeID)

	total := nodeOwnCost[nodeID]

	node, found := graph.Node(nodeID)
	if found {
		for _, edge := range node.Edges {
			if _, unmetChild := unmetByNode[edge.To]; !unmetChild {
				continue
			}
			total += totalDescendantCost(graph, unmetByNode, nodeOwnCost, memo, edge.To, onStack)
		}
	}

	memo[nodeID] = total
	return total
}
