package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vetkit/vetkit/internal/auditfile"
)

const (
	addExemptionCommandUseConstant              = "add-exemption <package> <version>"
	addExemptionCommandShortDescriptionConstant = "Grandfather a package version without a full review"
	addExemptionCommandLongDescriptionConstant  = "add-exemption appends an exemption entry to config.toml, marking a version trusted under the named criteria without recording a full audit."
	addExemptionWrongArgumentCountMessageConstant = "add-exemption requires exactly a package name and a version"
	addExemptionCriteriaFlagNameConstant          = "criteria"
	addExemptionCriteriaFlagUsageConstant         = "Criteria this exemption covers (repeatable); defaults to safe-to-deploy."
	addExemptionNoSuggestFlagNameConstant         = "no-suggest"
	addExemptionNoSuggestFlagUsageConstant        = "Hide this exemption from gc's cleanup suggestions."
	addExemptionExecutionErrorTemplateConstant    = "add-exemption failed: %w"
	addExemptionCompletedMessageConstant          = "exemption recorded"
)

// AddExemptionCommandBuilder assembles the add-exemption subcommand.
type AddExemptionCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	WorkspaceProvider     WorkspaceProvider
}

// Build constructs the add-exemption command.
func (builder *AddExemptionCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   addExemptionCommandUseConstant,
		Short: addExemptionCommandShortDescriptionConstant,
		Long:  addExemptionCommandLongDescriptionConstant,
		Args:  cobra.ExactArgs(2),
		RunE:  builder.run,
	}
	command.Flags().StringSlice(addExemptionCriteriaFlagNameConstant, []string{"safe-to-deploy"}, addExemptionCriteriaFlagUsageConstant)
	command.Flags().Bool(addExemptionNoSuggestFlagNameConstant, false, addExemptionNoSuggestFlagUsageConstant)
	return command, nil
}

func (builder *AddExemptionCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) != 2 {
		return &CommandExitError{Cause: fmt.Errorf(addExemptionWrongArgumentCountMessageConstant), ExitCode: exitCodeFatalError}
	}
	packageName, version := arguments[0], arguments[1]

	criteriaNames, _ := command.Flags().GetStringSlice(addExemptionCriteriaFlagNameConstant)
	noSuggest, _ := command.Flags().GetBool(addExemptionNoSuggestFlagNameConstant)

	workspace, workspaceError := builder.WorkspaceProvider(command, true)
	if workspaceError != nil {
		return &CommandExitError{Cause: fmt.Errorf(addExemptionExecutionErrorTemplateConstant, workspaceError), ExitCode: exitCodeFatalError}
	}
	if validationError := workspace.Table.ValidateNames(criteriaNames...); validationError != nil {
		return &CommandExitError{Cause: fmt.Errorf(addExemptionExecutionErrorTemplateConstant, validationError), ExitCode: exitCodeFatalError}
	}

	suggestValue := !noSuggest
	entry := auditfile.ExemptionEntryDocument{
		Version:  version,
		Criteria: auditfile.StringOrSlice(criteriaNames),
		Suggest:  &suggestValue,
	}

	document := workspace.PolicyDocument
	if document.Exemptions == nil {
		document.Exemptions = make(map[string][]auditfile.ExemptionEntryDocument)
	}
	document.Exemptions[packageName] = append(document.Exemptions[packageName], entry)

	configuration := builder.ConfigurationProvider()
	if writeError := encodeAndWrite(configuration.Paths.PolicyFile, document, auditfile.EncodeConfig); writeError != nil {
		return &CommandExitError{Cause: fmt.Errorf(addExemptionExecutionErrorTemplateConstant, writeError), ExitCode: exitCodeFatalError}
	}

	builder.LoggerProvider().Info(addExemptionCompletedMessageConstant, zap.String("package_name", packageName), zap.String("version", version))
	fmt.Fprintf(command.OutOrStdout(), "recorded exemption for %s %s\n", packageName, version)
	return nil
}
