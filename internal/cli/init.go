package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vetkit/vetkit/internal/auditfile"
)

const (
	initCommandUseConstant              = "init"
	initCommandShortDescriptionConstant = "Create empty audits.toml and config.toml"
	initCommandLongDescriptionConstant  = "init writes a minimal audits.toml (declaring the two built-in criteria) and config.toml if they do not already exist."
	initUnexpectedArgumentsMessageConstant = "init does not accept positional arguments"
	initFileExistsTemplateConstant         = "%s already exists; remove it first or edit it directly"
	initWriteErrorTemplateConstant         = "failed to write %s: %w"
	initCompletedMessageConstant           = "workspace initialized"
)

// InitCommandBuilder assembles the init subcommand.
type InitCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
}

// Build constructs the init command.
func (builder *InitCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   initCommandUseConstant,
		Short: initCommandShortDescriptionConstant,
		Long:  initCommandLongDescriptionConstant,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *InitCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errors.New(initUnexpectedArgumentsMessageConstant)
	}

	configuration := builder.ConfigurationProvider()

	auditsDocument := auditfile.AuditsDocument{
		Criteria: map[string]auditfile.CriteriaEntryDocument{
			"safe-to-run":    {Description: "safe to build and run locally"},
			"safe-to-deploy": {Description: "safe to ship in a production build", Implies: auditfile.StringOrSlice{"safe-to-run"}},
		},
	}
	encodedAudits, encodeError := auditfile.EncodeAudits(auditsDocument)
	if encodeError != nil {
		return encodeError
	}
	if writeError := writeIfAbsent(configuration.Paths.AuditsFile, encodedAudits); writeError != nil {
		return writeError
	}

	encodedPolicy, encodePolicyError := auditfile.EncodeConfig(auditfile.ConfigDocument{})
	if encodePolicyError != nil {
		return encodePolicyError
	}
	if writeError := writeIfAbsent(configuration.Paths.PolicyFile, encodedPolicy); writeError != nil {
		return writeError
	}

	builder.LoggerProvider().Info(initCompletedMessageConstant, zap.String("audits_file", configuration.Paths.AuditsFile), zap.String("policy_file", configuration.Paths.PolicyFile))
	fmt.Fprintf(command.OutOrStdout(), "wrote %s and %s\n", configuration.Paths.AuditsFile, configuration.Paths.PolicyFile)
	return nil
}

func writeIfAbsent(path string, content []byte) error {
	if _, statError := os.Stat(path); statError == nil {
		return fmt.Errorf(initFileExistsTemplateConstant, path)
	} else if !os.IsNotExist(statError) {
		return statError
	}
	if writeError := os.WriteFile(path, content, 0o644); writeError != nil {
		return fmt.Errorf(initWriteErrorTemplateConstant, path, writeError)
	}
	return nil
}
