package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vetkit/vetkit/internal/auditfile"
	"github.com/vetkit/vetkit/internal/semver"
)

const (
	recordViolationCommandUseConstant              = "record-violation <package> <version-range>"
	recordViolationCommandShortDescriptionConstant = "Record that a version range fails a criterion"
	recordViolationCommandLongDescriptionConstant  = "record-violation appends a violation entry to audits.toml, which overrides any audit or exemption that would otherwise cover a matching version."
	recordViolationWrongArgumentCountMessageConstant = "record-violation requires exactly a package name and a version range"
	recordViolationCriteriaFlagNameConstant          = "criteria"
	recordViolationCriteriaFlagUsageConstant         = "Criteria this violation poisons (repeatable); defaults to safe-to-run."
	recordViolationInvalidRangeTemplateConstant      = "invalid version range %q: %w"
	recordViolationExecutionErrorTemplateConstant    = "record-violation failed: %w"
	recordViolationCompletedMessageConstant          = "violation recorded"
)

// RecordViolationCommandBuilder assembles the record-violation subcommand.
type RecordViolationCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	WorkspaceProvider     WorkspaceProvider
}

// Build constructs the record-violation command.
func (builder *RecordViolationCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   recordViolationCommandUseConstant,
		Short: recordViolationCommandShortDescriptionConstant,
		Long:  recordViolationCommandLongDescriptionConstant,
		Args:  cobra.ExactArgs(2),
		RunE:  builder.run,
	}
	command.Flags().StringSlice(recordViolationCriteriaFlagNameConstant, []string{"safe-to-run"}, recordViolationCriteriaFlagUsageConstant)
	return command, nil
}

func (builder *RecordViolationCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) != 2 {
		return &CommandExitError{Cause: fmt.Errorf(recordViolationWrongArgumentCountMessageConstant), ExitCode: exitCodeFatalError}
	}
	packageName, versionRange := arguments[0], arguments[1]

	if _, rangeError := semver.ParseRange(versionRange); rangeError != nil {
		return &CommandExitError{Cause: fmt.Errorf(recordViolationInvalidRangeTemplateConstant, versionRange, rangeError), ExitCode: exitCodeFatalError}
	}

	criteriaNames, _ := command.Flags().GetStringSlice(recordViolationCriteriaFlagNameConstant)

	workspace, workspaceError := builder.WorkspaceProvider(command, true)
	if workspaceError != nil {
		return &CommandExitError{Cause: fmt.Errorf(recordViolationExecutionErrorTemplateConstant, workspaceError), ExitCode: exitCodeFatalError}
	}
	if validationError := workspace.Table.ValidateNames(criteriaNames...); validationError != nil {
		return &CommandExitError{Cause: fmt.Errorf(recordViolationExecutionErrorTemplateConstant, validationError), ExitCode: exitCodeFatalError}
	}

	entry := auditfile.ViolationEntryDocument{
		Version:  versionRange,
		Criteria: auditfile.StringOrSlice(criteriaNames),
	}

	document := workspace.AuditsDocument
	if document.Violations == nil {
		document.Violations = make(map[string][]auditfile.ViolationEntryDocument)
	}
	document.Violations[packageName] = append(document.Violations[packageName], entry)

	configuration := builder.ConfigurationProvider()
	if writeError := encodeAndWrite(configuration.Paths.AuditsFile, document, auditfile.EncodeAudits); writeError != nil {
		return &CommandExitError{Cause: fmt.Errorf(recordViolationExecutionErrorTemplateConstant, writeError), ExitCode: exitCodeFatalError}
	}

	builder.LoggerProvider().Info(recordViolationCompletedMessageConstant, zap.String("package_name", packageName), zap.String("range", versionRange))
	fmt.Fprintf(command.OutOrStdout(), "recorded violation for %s %s\n", packageName, versionRange)
	return nil
}
