package graphinput_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vetkit/vetkit/internal/graphinput"
	"github.com/vetkit/vetkit/internal/graphview"
	"github.com/vetkit/vetkit/internal/semver"
)

const sampleYAMLGraphDocumentConstant = `
packages:
  - name: app
    version: 0.0.0
    is_workspace_member: true
    dependencies:
      - name: autocfg
        version: 1.1.0
        kind: normal
  - name: autocfg
    version: 1.1.0
    dependencies: []
`

func TestParseYAMLGraphDocument(testInstance *testing.T) {
	testInstance.Parallel()

	document, parseError := graphinput.ParseYAML([]byte(sampleYAMLGraphDocumentConstant))
	require.NoError(testInstance, parseError)

	graph, buildError := graphinput.BuildGraph(document)
	require.NoError(testInstance, buildError)

	_, found := graph.Node(graphview.MakeNodeID("autocfg", semver.MustParse("1.1.0")))
	require.True(testInstance, found)
}
