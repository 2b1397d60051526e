package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vetkit/vetkit/internal/auditfile"
	"github.com/vetkit/vetkit/internal/resolver"
)

const (
	gcCommandUseConstant              = "gc"
	gcCommandShortDescriptionConstant = "Drop exemptions the resolver no longer needs"
	gcCommandLongDescriptionConstant  = "gc runs the resolver and removes every exemption entry that contributed to no satisfied verdict, leaving entries marked suggest=false untouched regardless of use."
	gcUnexpectedArgumentsMessageConstant = "gc does not accept positional arguments"
	gcExecutionErrorTemplateConstant     = "gc failed: %w"
	gcCompletedMessageConstant           = "exemptions collected"
)

// GCCommandBuilder assembles the gc subcommand.
type GCCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	WorkspaceProvider     WorkspaceProvider
}

// Build constructs the gc command.
func (builder *GCCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   gcCommandUseConstant,
		Short: gcCommandShortDescriptionConstant,
		Long:  gcCommandLongDescriptionConstant,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *GCCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return &CommandExitError{Cause: fmt.Errorf(gcUnexpectedArgumentsMessageConstant), ExitCode: exitCodeFatalError}
	}

	workspace, workspaceError := builder.WorkspaceProvider(command, false)
	if workspaceError != nil {
		return &CommandExitError{Cause: fmt.Errorf(gcExecutionErrorTemplateConstant, workspaceError), ExitCode: exitCodeFatalError}
	}

	result := resolver.Resolve(workspace.Table, workspace.Store, workspace.Graph)

	usedCriteriaByPackageVersion := make(map[string]map[string]bool)
	for _, use := range result.UsedExemptions {
		key := use.Package + "@" + use.Version
		if usedCriteriaByPackageVersion[key] == nil {
			usedCriteriaByPackageVersion[key] = make(map[string]bool)
		}
		usedCriteriaByPackageVersion[key][use.Criterion] = true
	}

	document := workspace.PolicyDocument
	removedCount := 0

	for packageName, entries := range document.Exemptions {
		kept := make([]auditfile.ExemptionEntryDocument, 0, len(entries))
		for _, entry := range entries {
			if entry.Suggest != nil && !*entry.Suggest {
				kept = append(kept, entry)
				continue
			}
			key := packageName + "@" + entry.Version
			usedCriteria := usedCriteriaByPackageVersion[key]
			entryIsUsed := false
			for _, criterionName := range entry.Criteria {
				if usedCriteria[criterionName] {
					entryIsUsed = true
					break
				}
			}
			if entryIsUsed {
				kept = append(kept, entry)
				continue
			}
			removedCount++
		}
		document.Exemptions[packageName] = kept
	}

	configuration := builder.ConfigurationProvider()
	if writeError := encodeAndWrite(configuration.Paths.PolicyFile, document, auditfile.EncodeConfig); writeError != nil {
		return &CommandExitError{Cause: fmt.Errorf(gcExecutionErrorTemplateConstant, writeError), ExitCode: exitCodeFatalError}
	}

	builder.LoggerProvider().Info(gcCompletedMessageConstant, zap.Int("removed_count", removedCount))
	fmt.Fprintf(command.OutOrStdout(), "removed %d unused exemption(s)\n", removedCount)
	return nil
}
