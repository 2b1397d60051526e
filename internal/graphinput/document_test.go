package graphinput_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vetkit/vetkit/internal/graphinput"
	"github.com/vetkit/vetkit/internal/graphview"
	"github.com/vetkit/vetkit/internal/semver"
)

const sampleGraphDocumentConstant = `
{
  "packages": [
    {
      "name": "app",
      "version": "0.0.0",
      "is_workspace_member": true,
      "dependencies": [
        {"name": "autocfg", "version": "1.1.0", "kind": "normal"},
        {"name": "criterion", "version": "0.5.1", "kind": "dev"}
      ]
    },
    {"name": "autocfg", "version": "1.1.0", "dependencies": []},
    {"name": "criterion", "version": "0.5.1", "dependencies": []}
  ]
}
`

func TestBuildGraphFromDocument(testInstance *testing.T) {
	testInstance.Parallel()

	document, parseError := graphinput.Parse([]byte(sampleGraphDocumentConstant))
	require.NoError(testInstance, parseError)

	graph, buildError := graphinput.BuildGraph(document)
	require.NoError(testInstance, buildError)

	autocfgID := graphview.MakeNodeID("autocfg", semver.MustParse("1.1.0"))
	autocfgNode, found := graph.Node(autocfgID)
	require.True(testInstance, found)
	require.True(testInstance, autocfgNode.IsThirdParty)
	require.False(testInstance, autocfgNode.IsDevOnly)

	criterionID := graphview.MakeNodeID("criterion", semver.MustParse("0.5.1"))
	criterionNode, found := graph.Node(criterionID)
	require.True(testInstance, found)
	require.True(testInstance, criterionNode.IsDevOnly)
}

func TestBuildGraphRejectsUnknownDependency(testInstance *testing.T) {
	testInstance.Parallel()

	document, parseError := graphinput.Parse([]byte(`
{
  "packages": [
    {"name": "app", "version": "0.0.0", "is_workspace_member": true, "dependencies": [{"name": "missing", "version": "1.0.0", "kind": "normal"}]}
  ]
}
`))
	require.NoError(testInstance, parseError)

	_, buildError := graphinput.BuildGraph(document)
	require.Error(testInstance, buildError)
}
