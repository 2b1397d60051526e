package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vetkit/vetkit/internal/resolver"
)

const (
	checkCommandUseConstant              = "check"
	checkCommandShortDescriptionConstant = "Resolve the dependency graph against audited criteria"
	checkCommandLongDescriptionConstant  = "check loads the audit store and dependency graph, runs the resolver, and reports which third-party package versions satisfy the project's demanded criteria."
	unexpectedArgumentsErrorMessageConstant = "check does not accept positional arguments"
	checkExecutionErrorTemplateConstant     = "check failed: %w"
	checkCompletedMessageConstant           = "check completed"
	checkUnmetDemandsFieldConstant          = "has_unmet_demands"
)

// exitCodeUnmetDemand and exitCodeFatalError distinguish a resolver-reported
// unmet demand from a fatal load/schema error, per SPEC_FULL.md §6.
const (
	exitCodeUnmetDemand = 1
	exitCodeFatalError  = 2
)

// CommandExitError carries the process exit code a fatal CLI error should
// produce, alongside its human-readable cause.
type CommandExitError struct {
	Cause    error
	ExitCode int
}

func (exitError *CommandExitError) Error() string {
	return exitError.Cause.Error()
}

func (exitError *CommandExitError) Unwrap() error {
	return exitError.Cause
}

// CheckCommandBuilder assembles the check subcommand (also the CLI's
// default verb when no subcommand is named).
type CheckCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	GlobalOptionsProvider GlobalOptionsProvider
	WorkspaceProvider     WorkspaceProvider
}

// Build constructs the check command.
func (builder *CheckCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   checkCommandUseConstant,
		Short: checkCommandShortDescriptionConstant,
		Long:  checkCommandLongDescriptionConstant,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *CheckCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errors.New(unexpectedArgumentsErrorMessageConstant)
	}

	globalOptions, optionsError := builder.GlobalOptionsProvider(command)
	if optionsError != nil {
		return &CommandExitError{Cause: optionsError, ExitCode: exitCodeFatalError}
	}

	workspace, workspaceError := builder.WorkspaceProvider(command, false)
	if workspaceError != nil {
		return &CommandExitError{Cause: fmt.Errorf(checkExecutionErrorTemplateConstant, workspaceError), ExitCode: exitCodeFatalError}
	}

	result := resolver.Resolve(workspace.Table, workspace.Store, workspace.Graph)

	if renderError := RenderCheckResult(command.OutOrStdout(), workspace.Graph, result, globalOptions.OutputFormat); renderError != nil {
		return &CommandExitError{Cause: fmt.Errorf(checkExecutionErrorTemplateConstant, renderError), ExitCode: exitCodeFatalError}
	}

	hasUnmet := AnyUnmet(result)
	builder.LoggerProvider().Info(checkCompletedMessageConstant, zap.Bool(checkUnmetDemandsFieldConstant, hasUnmet))

	if hasUnmet {
		return &CommandExitError{Cause: errors.New("one or more demands are unmet"), ExitCode: exitCodeUnmetDemand}
	}
	return nil
}
