package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vetkit/vetkit/internal/auditfile"
)

const (
	formatCommandUseConstant              = "fmt"
	formatCommandShortDescriptionConstant = "Canonicalize audits.toml and config.toml"
	formatCommandLongDescriptionConstant  = "fmt parses audits.toml and config.toml and re-emits them, producing a canonical (sorted, closure-normalized-criteria-sets-unaffected) serialization. This is a best-effort CLI convenience, not a byte-for-byte comment-preserving formatter: go-toml/v2 does not round-trip comments."
	formatUnexpectedArgumentsMessageConstant = "fmt does not accept positional arguments"
	formatExecutionErrorTemplateConstant     = "fmt failed: %w"
	formatCompletedMessageConstant           = "files reformatted"
)

// FormatCommandBuilder assembles the fmt subcommand.
type FormatCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	WorkspaceProvider     WorkspaceProvider
}

// Build constructs the fmt command.
func (builder *FormatCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   formatCommandUseConstant,
		Short: formatCommandShortDescriptionConstant,
		Long:  formatCommandLongDescriptionConstant,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *FormatCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return &CommandExitError{Cause: fmt.Errorf(formatUnexpectedArgumentsMessageConstant), ExitCode: exitCodeFatalError}
	}

	workspace, workspaceError := builder.WorkspaceProvider(command, true)
	if workspaceError != nil {
		return &CommandExitError{Cause: fmt.Errorf(formatExecutionErrorTemplateConstant, workspaceError), ExitCode: exitCodeFatalError}
	}

	configuration := builder.ConfigurationProvider()

	if writeError := encodeAndWrite(configuration.Paths.AuditsFile, workspace.AuditsDocument, auditfile.EncodeAudits); writeError != nil {
		return &CommandExitError{Cause: fmt.Errorf(formatExecutionErrorTemplateConstant, writeError), ExitCode: exitCodeFatalError}
	}
	if writeError := encodeAndWrite(configuration.Paths.PolicyFile, workspace.PolicyDocument, auditfile.EncodeConfig); writeError != nil {
		return &CommandExitError{Cause: fmt.Errorf(formatExecutionErrorTemplateConstant, writeError), ExitCode: exitCodeFatalError}
	}

	builder.LoggerProvider().Info(formatCompletedMessageConstant)
	fmt.Fprintf(command.OutOrStdout(), "reformatted %s and %s\n", configuration.Paths.AuditsFile, configuration.Paths.PolicyFile)
	return nil
}
