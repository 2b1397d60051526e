package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vetkit/vetkit/internal/auditfile"
	"github.com/vetkit/vetkit/internal/cli/acceptcriteria"
)

const (
	acceptCriteriaChangeCommandUseConstant              = "accept-criteria-change <import-name>"
	acceptCriteriaChangeCommandShortDescriptionConstant = "Review how an imported peer's criteria definitions changed"
	acceptCriteriaChangeCommandLongDescriptionConstant  = "accept-criteria-change diffs the named peer's current criteria table against the local one and reports which criteria changed description or implication, and whether that change actually widens or narrows what the criterion means (a closure change) or is purely cosmetic."
	acceptCriteriaChangeExactlyOneArgumentMessageConstant = "accept-criteria-change requires exactly one import name"
	acceptCriteriaChangeUnknownImportTemplateConstant     = "no import named %q is configured"
	acceptCriteriaChangeExecutionErrorTemplateConstant    = "accept-criteria-change failed: %w"
	acceptCriteriaChangeClosureChangedMessageConstant     = "criteria closure changed, review required"
)

// AcceptCriteriaChangeCommandBuilder assembles the accept-criteria-change
// subcommand.
type AcceptCriteriaChangeCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	WorkspaceProvider     WorkspaceProvider
}

// Build constructs the accept-criteria-change command.
func (builder *AcceptCriteriaChangeCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   acceptCriteriaChangeCommandUseConstant,
		Short: acceptCriteriaChangeCommandShortDescriptionConstant,
		Long:  acceptCriteriaChangeCommandLongDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *AcceptCriteriaChangeCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) != 1 {
		return &CommandExitError{Cause: fmt.Errorf(acceptCriteriaChangeExactlyOneArgumentMessageConstant), ExitCode: exitCodeFatalError}
	}
	importName := arguments[0]

	workspace, workspaceError := builder.WorkspaceProvider(command, true)
	if workspaceError != nil {
		return &CommandExitError{Cause: fmt.Errorf(acceptCriteriaChangeExecutionErrorTemplateConstant, workspaceError), ExitCode: exitCodeFatalError}
	}

	importedDocument, importFound := workspace.Imports[importName]
	if !importFound {
		return &CommandExitError{Cause: fmt.Errorf(acceptCriteriaChangeUnknownImportTemplateConstant, importName), ExitCode: exitCodeFatalError}
	}

	importedTable, tableError := auditfile.BuildCriteriaTable(importedDocument)
	if tableError != nil {
		return &CommandExitError{Cause: fmt.Errorf(acceptCriteriaChangeExecutionErrorTemplateConstant, tableError), ExitCode: exitCodeFatalError}
	}

	changes := acceptcriteria.Diff(workspace.Table, importedTable)
	if len(changes) == 0 {
		fmt.Fprintf(command.OutOrStdout(), "no criteria changes from %s\n", importName)
		return nil
	}

	closureChanged := false
	for _, change := range changes {
		status := "cosmetic"
		if change.ClosureChanged {
			status = "closure-changing"
			closureChanged = true
		}
		fmt.Fprintf(command.OutOrStdout(), "%s: %s\n", change.Name, status)
		if change.DescriptionChanged {
			fmt.Fprintf(command.OutOrStdout(), "  description: %q -> %q\n", change.OldDescription, change.NewDescription)
		}
		if change.ImpliesChanged {
			fmt.Fprintf(command.OutOrStdout(), "  implies: %v -> %v\n", change.OldImplies, change.NewImplies)
		}
	}

	if closureChanged {
		builder.LoggerProvider().Warn(acceptCriteriaChangeClosureChangedMessageConstant, zap.String("import_name", importName))
		return &CommandExitError{Cause: fmt.Errorf(acceptCriteriaChangeClosureChangedMessageConstant), ExitCode: exitCodeUnmetDemand}
	}
	return nil
}
