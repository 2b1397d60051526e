// Package filtergraph implements the small query language used to reduce a
// dependency graph before resolution, for debugging and test fixtures. It
// never runs during normal resolution; it is a pre-pass the CLI applies
// when --filter-graph is given.
package filtergraph

import (
	"github.com/vetkit/vetkit/internal/graphview"
	"github.com/vetkit/vetkit/internal/semver"
)

// Query evaluates to true or false for a single graph node.
type Query interface {
	Evaluate(node *graphview.Node) bool
}

type anyQuery struct{ children []Query }

func (query anyQuery) Evaluate(node *graphview.Node) bool {
	for _, child := range query.children {
		if child.Evaluate(node) {
			return true
		}
	}
	return false
}

type allQuery struct{ children []Query }

func (query allQuery) Evaluate(node *graphview.Node) bool {
	for _, child := range query.children {
		if !child.Evaluate(node) {
			return false
		}
	}
	return true
}

type notQuery struct{ child Query }

func (query notQuery) Evaluate(node *graphview.Node) bool {
	return !query.child.Evaluate(node)
}

type nameQuery struct{ name string }

func (query nameQuery) Evaluate(node *graphview.Node) bool {
	return node.PackageName == query.name
}

type versionQuery struct{ version semver.Version }

func (query versionQuery) Evaluate(node *graphview.Node) bool {
	return node.Version.Equal(query.version)
}

type isRootQuery struct{ want bool }

func (query isRootQuery) Evaluate(node *graphview.Node) bool {
	return node.IsWorkspaceMember == query.want
}

type isWorkspaceMemberQuery struct{ want bool }

func (query isWorkspaceMemberQuery) Evaluate(node *graphview.Node) bool {
	return node.IsWorkspaceMember == query.want
}

type isThirdPartyQuery struct{ want bool }

func (query isThirdPartyQuery) Evaluate(node *graphview.Node) bool {
	return node.IsThirdParty == query.want
}

type isDevOnlyQuery struct{ want bool }

func (query isDevOnlyQuery) Evaluate(node *graphview.Node) bool {
	return node.IsDevOnly == query.want
}

// Mode selects whether matching nodes are kept or dropped.
type Mode int

// Supported modes.
const (
	ModeInclude Mode = iota
	ModeExclude
)

// Filter pairs a Mode with the Query it applies.
type Filter struct {
	Mode  Mode
	Query Query
}

// retains reports whether node survives the filter in isolation, before the
// workspace-member reachability rebuild Apply performs.
func (filter Filter) retains(node *graphview.Node) bool {
	matched := filter.Query.Evaluate(node)
	if filter.Mode == ModeExclude {
		return !matched
	}
	return matched
}

// Apply evaluates filter against every node in graph, then rebuilds a new
// graph containing every surviving workspace member plus every node
// transitively reachable from one through edges whose target also
// survived. A retained non-workspace node unreachable from any surviving
// workspace member is silently dropped.
func Apply(graph *graphview.Graph, filter Filter) *graphview.Graph {
	retained := make(map[graphview.NodeID]bool)
	for _, node := range graph.Nodes() {
		if filter.retains(node) {
			retained[node.ID] = true
		}
	}

	reachable := make(map[graphview.NodeID]bool)
	var walk func(id graphview.NodeID)
	walk = func(id graphview.NodeID) {
		if reachable[id] {
			return
		}
		reachable[id] = true
		node, found := graph.Node(id)
		if !found {
			return
		}
		for _, edge := range node.Edges {
			if retained[edge.To] {
				walk(edge.To)
			}
		}
	}

	for _, member := range graph.WorkspaceMembers() {
		if retained[member.ID] {
			walk(member.ID)
		}
	}

	rebuilt := graphview.NewGraph()
	for _, node := range graph.Nodes() {
		if !reachable[node.ID] {
			continue
		}
		_ = rebuilt.AddNode(graphview.Node{
			ID:                node.ID,
			PackageName:       node.PackageName,
			Version:           node.Version,
			IsWorkspaceMember: node.IsWorkspaceMember,
			IsThirdParty:      node.IsThirdParty,
			IsDevOnly:         node.IsDevOnly,
		})
	}
	for _, node := range graph.Nodes() {
		if !reachable[node.ID] {
			continue
		}
		for _, edge := range node.Edges {
			if reachable[edge.To] {
				_ = rebuilt.AddEdge(node.ID, edge)
			}
		}
	}

	return rebuilt
}
