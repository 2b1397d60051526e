package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vetkit/vetkit/internal/auditfile"
)

const (
	certifyCommandUseConstant              = "certify <package> <version>"
	certifyCommandShortDescriptionConstant = "Record a full audit for a package version"
	certifyCommandLongDescriptionConstant  = "certify appends a full-audit entry under the named criteria to audits.toml. Pass --from to record a delta audit instead."
	certifyWrongArgumentCountMessageConstant = "certify requires exactly a package name and a version"
	certifyFromFlagNameConstant               = "from"
	certifyFromFlagUsageConstant              = "Record a delta audit from this version instead of a full audit."
	certifyCriteriaFlagNameConstant           = "criteria"
	certifyCriteriaFlagUsageConstant          = "Criteria this audit satisfies (repeatable); defaults to safe-to-deploy."
	certifyNotesFlagNameConstant              = "notes"
	certifyNotesFlagUsageConstant             = "Free-form notes to attach to the audit entry."
	certifyExecutionErrorTemplateConstant     = "certify failed: %w"
	certifyCompletedMessageConstant           = "audit recorded"
)

// CertifyCommandBuilder assembles the certify subcommand.
type CertifyCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	WorkspaceProvider     WorkspaceProvider
}

// Build constructs the certify command.
func (builder *CertifyCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   certifyCommandUseConstant,
		Short: certifyCommandShortDescriptionConstant,
		Long:  certifyCommandLongDescriptionConstant,
		Args:  cobra.ExactArgs(2),
		RunE:  builder.run,
	}
	command.Flags().String(certifyFromFlagNameConstant, "", certifyFromFlagUsageConstant)
	command.Flags().StringSlice(certifyCriteriaFlagNameConstant, []string{"safe-to-deploy"}, certifyCriteriaFlagUsageConstant)
	command.Flags().String(certifyNotesFlagNameConstant, "", certifyNotesFlagUsageConstant)
	return command, nil
}

func (builder *CertifyCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) != 2 {
		return &CommandExitError{Cause: fmt.Errorf(certifyWrongArgumentCountMessageConstant), ExitCode: exitCodeFatalError}
	}
	packageName, version := arguments[0], arguments[1]

	fromFlagValue, _ := command.Flags().GetString(certifyFromFlagNameConstant)
	criteriaNames, _ := command.Flags().GetStringSlice(certifyCriteriaFlagNameConstant)
	notes, _ := command.Flags().GetString(certifyNotesFlagNameConstant)

	workspace, workspaceError := builder.WorkspaceProvider(command, true)
	if workspaceError != nil {
		return &CommandExitError{Cause: fmt.Errorf(certifyExecutionErrorTemplateConstant, workspaceError), ExitCode: exitCodeFatalError}
	}
	if validationError := workspace.Table.ValidateNames(criteriaNames...); validationError != nil {
		return &CommandExitError{Cause: fmt.Errorf(certifyExecutionErrorTemplateConstant, validationError), ExitCode: exitCodeFatalError}
	}

	entry := auditfile.AuditEntryDocument{
		Criteria: auditfile.StringOrSlice(criteriaNames),
		Notes:    notes,
	}
	if len(fromFlagValue) > 0 {
		entry.Delta = fmt.Sprintf("%s -> %s", fromFlagValue, version)
	} else {
		entry.Version = version
	}

	document := workspace.AuditsDocument
	if document.Audits == nil {
		document.Audits = make(map[string][]auditfile.AuditEntryDocument)
	}
	document.Audits[packageName] = append(document.Audits[packageName], entry)

	configuration := builder.ConfigurationProvider()
	if writeError := encodeAndWrite(configuration.Paths.AuditsFile, document, auditfile.EncodeAudits); writeError != nil {
		return &CommandExitError{Cause: fmt.Errorf(certifyExecutionErrorTemplateConstant, writeError), ExitCode: exitCodeFatalError}
	}

	builder.LoggerProvider().Info(certifyCompletedMessageConstant, zap.String("package_name", packageName), zap.String("criteria", strings.Join(criteriaNames, ",")))
	fmt.Fprintf(command.OutOrStdout(), "recorded audit for %s %s\n", packageName, version)
	return nil
}

func encodeAndWrite[documentType any](path string, document documentType, encode func(documentType) ([]byte, error)) error {
	encoded, encodeError := encode(document)
	if encodeError != nil {
		return encodeError
	}
	return os.WriteFile(path, encoded, 0o644)
}
