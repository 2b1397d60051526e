// Package graphinput decodes the host package manager's resolved
// dependency graph export into the engine's graphview.Graph. The engine
// never parses this format itself; this package is the concrete adapter
// for the common case of a JSON metadata export.
package graphinput

import (
	"encoding/json"
	"fmt"

	"github.com/vetkit/vetkit/internal/graphview"
	"github.com/vetkit/vetkit/internal/semver"
)

const (
	kindNormalStringConstant = "normal"
	kindDevStringConstant    = "dev"
	kindBuildStringConstant  = "build"

	decodeErrorTemplateConstant       = "failed to decode graph document: %w"
	unknownEdgeKindTemplateConstant    = "package %q dependency %q has unknown edge kind %q"
	malformedVersionTemplateConstant   = "package %q has a malformed version %q: %w"
	duplicatePackageTemplateConstant   = "package %q version %q is declared more than once"
	unknownDependencyTemplateConstant  = "package %q dependency %q@%q is not declared in the package list"
)

// DependencyDocument is one outgoing edge in PackageDocument.Dependencies.
type DependencyDocument struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
	Kind    string `json:"kind" yaml:"kind"`
}

// PackageDocument is one node in Document.Packages.
type PackageDocument struct {
	Name              string               `json:"name" yaml:"name"`
	Version           string               `json:"version" yaml:"version"`
	IsWorkspaceMember bool                 `json:"is_workspace_member" yaml:"is_workspace_member"`
	Dependencies      []DependencyDocument `json:"dependencies" yaml:"dependencies"`
}

// Document is the top-level shape of a package manager's graph export.
type Document struct {
	Packages []PackageDocument `json:"packages" yaml:"packages"`
}

// Parse decodes a JSON graph document.
func Parse(data []byte) (Document, error) {
	var document Document
	if decodeError := json.Unmarshal(data, &document); decodeError != nil {
		return Document{}, fmt.Errorf(decodeErrorTemplateConstant, decodeError)
	}
	return document, nil
}

// BuildGraph converts a parsed Document into a graphview.Graph. A node is
// third-party unless flagged as a workspace member. is_dev_only is derived:
// a node is dev-only if every edge that reaches it from a workspace member
// is a dev edge — computed once the full node/edge set is known.
func BuildGraph(document Document) (*graphview.Graph, error) {
	graph := graphview.NewGraph()

	type pendingNode struct {
		id      graphview.NodeID
		name    string
		version semver.Version
		member  bool
	}

	nodesByKey := make(map[string]pendingNode, len(document.Packages))

	for _, packageDocument := range document.Packages {
		version, parseError := semver.Parse(packageDocument.Version)
		if parseError != nil {
			return nil, fmt.Errorf(malformedVersionTemplateConstant, packageDocument.Name, packageDocument.Version, parseError)
		}
		key := packageDocument.Name + "@" + version.String()
		if _, exists := nodesByKey[key]; exists {
			return nil, fmt.Errorf(duplicatePackageTemplateConstant, packageDocument.Name, packageDocument.Version)
		}

		id := graphview.MakeNodeID(packageDocument.Name, version)
		nodesByKey[key] = pendingNode{id: id, name: packageDocument.Name, version: version, member: packageDocument.IsWorkspaceMember}

		if addError := graph.AddNode(graphview.Node{
			ID:                id,
			PackageName:       packageDocument.Name,
			Version:           version,
			IsWorkspaceMember: packageDocument.IsWorkspaceMember,
			IsThirdParty:      !packageDocument.IsWorkspaceMember,
		}); addError != nil {
			return nil, addError
		}
	}

	for _, packageDocument := range document.Packages {
		fromVersion, _ := semver.Parse(packageDocument.Version)
		fromID := graphview.MakeNodeID(packageDocument.Name, fromVersion)

		for _, dependency := range packageDocument.Dependencies {
			dependencyVersion, parseError := semver.Parse(dependency.Version)
			if parseError != nil {
				return nil, fmt.Errorf(malformedVersionTemplateConstant, dependency.Name, dependency.Version, parseError)
			}
			key := dependency.Name + "@" + dependencyVersion.String()
			if _, known := nodesByKey[key]; !known {
				return nil, fmt.Errorf(unknownDependencyTemplateConstant, packageDocument.Name, dependency.Name, dependency.Version)
			}

			kind, kindError := parseEdgeKind(packageDocument.Name, dependency.Name, dependency.Kind)
			if kindError != nil {
				return nil, kindError
			}

			if addError := graph.AddEdge(fromID, graphview.Edge{To: graphview.MakeNodeID(dependency.Name, dependencyVersion), Kind: kind}); addError != nil {
				return nil, addError
			}
		}
	}

	markDevOnlyNodes(graph)

	return graph, nil
}

func parseEdgeKind(fromName, toName, raw string) (graphview.EdgeKind, error) {
	switch raw {
	case "", kindNormalStringConstant:
		return graphview.EdgeNormal, nil
	case kindDevStringConstant:
		return graphview.EdgeDev, nil
	case kindBuildStringConstant:
		return graphview.EdgeBuild, nil
	default:
		return 0, fmt.Errorf(unknownEdgeKindTemplateConstant, fromName, toName, raw)
	}
}

// markDevOnlyNodes flags as dev-only every non-workspace node that no path
// of non-dev (normal or build) edges from a workspace member reaches: a node
// reached by at least one such path is not dev-only, even if it is also
// reachable via a dev edge elsewhere.
func markDevOnlyNodes(graph *graphview.Graph) {
	reachedNonDev := make(map[graphview.NodeID]bool)
	exploredAnyPath := make(map[graphview.NodeID]bool)

	var walk func(id graphview.NodeID, throughNonDevOnly bool)
	walk = func(id graphview.NodeID, throughNonDevOnly bool) {
		if throughNonDevOnly {
			if reachedNonDev[id] {
				return
			}
			reachedNonDev[id] = true
		} else if exploredAnyPath[id] {
			return
		}
		exploredAnyPath[id] = true

		node, found := graph.Node(id)
		if !found {
			return
		}
		for _, edge := range node.Edges {
			walk(edge.To, throughNonDevOnly && !edge.IsDev())
		}
	}

	for _, member := range graph.WorkspaceMembers() {
		walk(member.ID, true)
	}

	for _, node := range graph.Nodes() {
		if node.IsWorkspaceMember {
			continue
		}
		if !reachedNonDev[node.ID] {
			node.IsDevOnly = true
		}
	}
}
