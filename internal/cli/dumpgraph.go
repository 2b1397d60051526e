package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

const (
	dumpGraphCommandUseConstant              = "dump-graph"
	dumpGraphCommandShortDescriptionConstant = "Print the loaded dependency graph"
	dumpGraphCommandLongDescriptionConstant  = "dump-graph prints every node of the loaded dependency graph, after --filter-graph pruning if one was given, sorted by package name and version."
	dumpGraphUnexpectedArgumentsMessageConstant = "dump-graph does not accept positional arguments"
	dumpGraphExecutionErrorTemplateConstant     = "dump-graph failed: %w"
)

// DumpGraphCommandBuilder assembles the dump-graph subcommand.
type DumpGraphCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	GlobalOptionsProvider GlobalOptionsProvider
	WorkspaceProvider     WorkspaceProvider
}

type dumpGraphNodeView struct {
	PackageName       string   `json:"package_name"`
	Version           string   `json:"version"`
	IsWorkspaceMember bool     `json:"is_workspace_member"`
	IsThirdParty      bool     `json:"is_third_party"`
	IsDevOnly         bool     `json:"is_dev_only"`
	Dependencies      []string `json:"dependencies"`
}

// Build constructs the dump-graph command.
func (builder *DumpGraphCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   dumpGraphCommandUseConstant,
		Short: dumpGraphCommandShortDescriptionConstant,
		Long:  dumpGraphCommandLongDescriptionConstant,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *DumpGraphCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return &CommandExitError{Cause: fmt.Errorf(dumpGraphUnexpectedArgumentsMessageConstant), ExitCode: exitCodeFatalError}
	}

	globalOptions, optionsError := builder.GlobalOptionsProvider(command)
	if optionsError != nil {
		return &CommandExitError{Cause: fmt.Errorf(dumpGraphExecutionErrorTemplateConstant, optionsError), ExitCode: exitCodeFatalError}
	}

	workspace, workspaceError := builder.WorkspaceProvider(command, false)
	if workspaceError != nil {
		return &CommandExitError{Cause: fmt.Errorf(dumpGraphExecutionErrorTemplateConstant, workspaceError), ExitCode: exitCodeFatalError}
	}

	nodes := workspace.Graph.SortedNodes()
	views := make([]dumpGraphNodeView, 0, len(nodes))
	for _, node := range nodes {
		dependencies := make([]string, 0, len(node.Edges))
		for _, edge := range node.Edges {
			target, found := workspace.Graph.Node(edge.To)
			if !found {
				continue
			}
			dependencies = append(dependencies, fmt.Sprintf("%s@%s", target.PackageName, target.Version.String()))
		}
		views = append(views, dumpGraphNodeView{
			PackageName:       node.PackageName,
			Version:           node.Version.String(),
			IsWorkspaceMember: node.IsWorkspaceMember,
			IsThirdParty:      node.IsThirdParty,
			IsDevOnly:         node.IsDevOnly,
			Dependencies:      dependencies,
		})
	}

	if globalOptions.OutputFormat == OutputFormatJSON {
		encoder := json.NewEncoder(command.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(views)
	}

	for _, view := range views {
		kind := "third-party"
		if view.IsWorkspaceMember {
			kind = "workspace"
		}
		fmt.Fprintf(command.OutOrStdout(), "%s@%s [%s] -> %v\n", view.PackageName, view.Version, kind, view.Dependencies)
	}
	return nil
}
