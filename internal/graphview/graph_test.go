package graphview_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vetkit/vetkit/internal/graphview"
	"github.com/vetkit/vetkit/internal/semver"
)

func TestGraphAddNodeAndEdge(testInstance *testing.T) {
	testInstance.Parallel()

	graph := graphview.NewGraph()

	rootID := graphview.MakeNodeID("app", semver.MustParse("0.0.0"))
	depID := graphview.MakeNodeID("autocfg", semver.MustParse("1.1.0"))

	require.NoError(testInstance, graph.AddNode(graphview.Node{
		ID: rootID, PackageName: "app", Version: semver.MustParse("0.0.0"), IsWorkspaceMember: true,
	}))
	require.NoError(testInstance, graph.AddNode(graphview.Node{
		ID: depID, PackageName: "autocfg", Version: semver.MustParse("1.1.0"), IsThirdParty: true,
	}))
	require.NoError(testInstance, graph.AddEdge(rootID, graphview.Edge{To: depID, Kind: graphview.EdgeNormal}))

	rootNode, found := graph.Node(rootID)
	require.True(testInstance, found)
	require.Len(testInstance, rootNode.Edges, 1)
	require.Equal(testInstance, depID, rootNode.Edges[0].To)

	members := graph.WorkspaceMembers()
	require.Len(testInstance, members, 1)
	require.Equal(testInstance, "app", members[0].PackageName)
}

func TestGraphRejectsDuplicateNode(testInstance *testing.T) {
	testInstance.Parallel()

	graph := graphview.NewGraph()
	id := graphview.MakeNodeID("app", semver.MustParse("0.0.0"))

	require.NoError(testInstance, graph.AddNode(graphview.Node{ID: id, PackageName: "app"}))
	require.Error(testInstance, graph.AddNode(graphview.Node{ID: id, PackageName: "app"}))
}

func TestGraphRejectsEdgeToUnknownNode(testInstance *testing.T) {
	testInstance.Parallel()

	graph := graphview.NewGraph()
	id := graphview.MakeNodeID("app", semver.MustParse("0.0.0"))
	require.NoError(testInstance, graph.AddNode(graphview.Node{ID: id, PackageName: "app"}))

	missing := graphview.MakeNodeID("missing", semver.MustParse("1.0.0"))
	require.Error(testInstance, graph.AddEdge(id, graphview.Edge{To: missing}))
}
