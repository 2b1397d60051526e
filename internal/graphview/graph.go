package graphview

import (
	"fmt"
	"sort"

	"github.com/vetkit/vetkit/internal/semver"
)

const (
	duplicateNodeTemplateConstant     = "node %q already present in graph"
	unknownNodeTemplateConstant       = "node %q is not present in graph"
	duplicateEdgeTargetTemplateConstant = "edge target %q is not present in graph"
)

// NodeID uniquely identifies a (package name, version) pair.
type NodeID string

// MakeNodeID builds the canonical identifier for a package name and version.
func MakeNodeID(packageName string, version semver.Version) NodeID {
	return NodeID(packageName + "@" + version.String())
}

// EdgeKind classifies a dependency edge the way the host package manager
// reports it.
type EdgeKind int

// Supported edge kinds.
const (
	EdgeNormal EdgeKind = iota
	EdgeDev
	EdgeBuild
)

// Edge connects a node to one of its dependencies.
type Edge struct {
	To   NodeID
	Kind EdgeKind
}

// IsDev reports whether the edge is only exercised for development/test
// purposes.
func (edge Edge) IsDev() bool {
	return edge.Kind == EdgeDev
}

// Node is a single (package name, version) vertex in the graph.
type Node struct {
	ID                NodeID
	PackageName       string
	Version           semver.Version
	IsWorkspaceMember bool
	IsThirdParty      bool
	IsDevOnly         bool
	Edges             []Edge
}

// Graph is an immutable-after-construction view of the resolved dependency
// graph.
type Graph struct {
	nodes map[NodeID]*Node
	order []NodeID
}

// NewGraph returns an empty, mutable builder for a Graph. Build it up via
// AddNode/AddEdge (and, for loaders, direct field mutation through Node);
// the resolver and filter graph treat the result as read-only from then on.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[NodeID]*Node)}
}

// AddNode registers node in the graph. It is an error to add the same ID
// twice.
func (graph *Graph) AddNode(node Node) error {
	if _, exists := graph.nodes[node.ID]; exists {
		return fmt.Errorf(duplicateNodeTemplateConstant, node.ID)
	}
	stored := node
	graph.nodes[node.ID] = &stored
	graph.order = append(graph.order, node.ID)
	return nil
}

// AddEdge appends an edge from an existing node to an existing node.
func (graph *Graph) AddEdge(from NodeID, edge Edge) error {
	fromNode, exists := graph.nodes[from]
	if !exists {
		return fmt.Errorf(unknownNodeTemplateConstant, from)
	}
	if _, exists := graph.nodes[edge.To]; !exists {
		return fmt.Errorf(duplicateEdgeTargetTemplateConstant, edge.To)
	}
	fromNode.Edges = append(fromNode.Edges, edge)
	return nil
}

// Node returns the node with the given ID, if present.
func (graph *Graph) Node(id NodeID) (*Node, bool) {
	node, exists := graph.nodes[id]
	return node, exists
}

// Nodes returns every node in deterministic insertion order.
func (graph *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(graph.order))
	for _, id := range graph.order {
		nodes = append(nodes, graph.nodes[id])
	}
	return nodes
}

// SortedNodes returns every node ordered by (package name, version).
func (graph *Graph) SortedNodes() []*Node {
	nodes := graph.Nodes()
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].PackageName != nodes[j].PackageName {
			return nodes[i].PackageName < nodes[j].PackageName
		}
		return nodes[i].Version.Less(nodes[j].Version)
	})
	return nodes
}

// WorkspaceMembers returns every node flagged as a workspace member, the
// roots from which policy demand originates.
func (graph *Graph) WorkspaceMembers() []*Node {
	members := make([]*Node, 0)
	for _, node := range graph.SortedNodes() {
		if node.IsWorkspaceMember {
			members = append(members, node)
		}
	}
	return members
}
