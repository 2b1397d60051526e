package cli_test

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vetkit/vetkit/internal/cli"
	"github.com/vetkit/vetkit/internal/criteria"
	"github.com/vetkit/vetkit/internal/graphview"
	"github.com/vetkit/vetkit/internal/semver"
	"github.com/vetkit/vetkit/internal/store"
)

const checkTestPackageNameConstant = "left-pad"

func checkTestTable(testInstance *testing.T) *criteria.Table {
	table, tableError := criteria.NewTable(nil)
	require.NoError(testInstance, tableError)
	return table
}

func checkTestWorkspace(testInstance *testing.T) *cli.Workspace {
	table := checkTestTable(testInstance)

	dataStore, storeError := store.NewStore(table, store.Inputs{})
	require.NoError(testInstance, storeError)

	graph := graphview.NewGraph()
	appID := graphview.MakeNodeID("app", semver.MustParse("0.0.0"))
	require.NoError(testInstance, graph.AddNode(graphview.Node{
		ID: appID, PackageName: "app", Version: semver.MustParse("0.0.0"), IsWorkspaceMember: true,
	}))
	dependencyID := graphview.MakeNodeID(checkTestPackageNameConstant, semver.MustParse("1.0.0"))
	require.NoError(testInstance, graph.AddNode(graphview.Node{
		ID: dependencyID, PackageName: checkTestPackageNameConstant, Version: semver.MustParse("1.0.0"), IsThirdParty: true,
	}))
	require.NoError(testInstance, graph.AddEdge(appID, graphview.Edge{To: dependencyID, Kind: graphview.EdgeNormal}))

	return &cli.Workspace{Table: table, Store: dataStore, Graph: graph}
}

func TestCheckCommandExitCodes(testInstance *testing.T) {
	testCases := []struct {
		name             string
		expectedExitCode int
		expectNoError    bool
	}{
		{name: "UnmetDemandReturnsExitCodeOne", expectedExitCode: 1},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			workspace := checkTestWorkspace(testInstance)

			builder := cli.CheckCommandBuilder{
				LoggerProvider:        func() *zap.Logger { return zap.NewNop() },
				ConfigurationProvider: func() cli.Configuration { return cli.Configuration{} },
				GlobalOptionsProvider: func(*cobra.Command) (cli.GlobalOptions, error) {
					return cli.GlobalOptions{OutputFormat: cli.OutputFormatHuman}, nil
				},
				WorkspaceProvider: func(*cobra.Command, bool) (*cli.Workspace, error) {
					return workspace, nil
				},
			}

			command, buildError := builder.Build()
			require.NoError(testInstance, buildError)

			executionError := command.RunE(command, nil)
			require.Error(testInstance, executionError)

			var exitError *cli.CommandExitError
			require.ErrorAs(testInstance, executionError, &exitError)
			require.Equal(testInstance, testCase.expectedExitCode, exitError.ExitCode)
		})
	}
}
