package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vetkit/vetkit/internal/difforacle"
	"github.com/vetkit/vetkit/internal/resolver"
	"github.com/vetkit/vetkit/internal/suggester"
)

const (
	suggestCommandUseConstant              = "suggest"
	suggestCommandShortDescriptionConstant = "Suggest the cheapest audits that would close unmet demands"
	suggestCommandLongDescriptionConstant  = "suggest runs the resolver, then for every unmet (package, criterion) proposes the cheapest full or delta audit, costed by the diff oracle."
	suggestUnexpectedArgumentsMessageConstant = "suggest does not accept positional arguments"
	suggestExecutionErrorTemplateConstant     = "suggest failed: %w"
	sourceURLTemplateFlagNameConstant         = "source-url-template"
	sourceURLTemplateFlagUsageConstant        = "fmt template (package, version) used to fetch a package's source archive."
	defaultSourceURLTemplateConstant          = "https://registry.example/%s/%s.tar.gz"
)

// SuggestCommandBuilder assembles the suggest subcommand.
type SuggestCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	GlobalOptionsProvider GlobalOptionsProvider
	WorkspaceProvider     WorkspaceProvider
}

// Build constructs the suggest command.
func (builder *SuggestCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   suggestCommandUseConstant,
		Short: suggestCommandShortDescriptionConstant,
		Long:  suggestCommandLongDescriptionConstant,
		RunE:  builder.run,
	}
	command.Flags().String(sourceURLTemplateFlagNameConstant, defaultSourceURLTemplateConstant, sourceURLTemplateFlagUsageConstant)
	return command, nil
}

func (builder *SuggestCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errors.New(suggestUnexpectedArgumentsMessageConstant)
	}

	globalOptions, optionsError := builder.GlobalOptionsProvider(command)
	if optionsError != nil {
		return &CommandExitError{Cause: optionsError, ExitCode: exitCodeFatalError}
	}

	workspace, workspaceError := builder.WorkspaceProvider(command, false)
	if workspaceError != nil {
		return &CommandExitError{Cause: fmt.Errorf(suggestExecutionErrorTemplateConstant, workspaceError), ExitCode: exitCodeFatalError}
	}

	result := resolver.Resolve(workspace.Table, workspace.Store, workspace.Graph)

	configuration := builder.ConfigurationProvider()
	urlTemplate, _ := command.Flags().GetString(sourceURLTemplateFlagNameConstant)

	fetcher := difforacle.NewHTTPSourceFetcher(urlTemplate, nil)
	shellOracle := difforacle.NewShellOracle(fetcher, difforacle.NewOSCommandRunner(), configuration.Oracle.DiffCommand, builder.LoggerProvider())
	cachingOracle := difforacle.NewCachingOracle(shellOracle, afero.NewOsFs(), configuration.Paths.CacheDirectory)

	report := suggester.Suggest(command.Context(), workspace.Table, workspace.Store, workspace.Graph, result, cachingOracle, suggester.Options{
		Shallow:           globalOptions.Shallow,
		OracleConcurrency: configuration.Oracle.Concurrency,
	})

	if globalOptions.OutputFormat == OutputFormatJSON {
		encoder := json.NewEncoder(command.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	fmt.Fprint(command.OutOrStdout(), report.Render())
	builder.LoggerProvider().Info(suggestCommandUseConstant, zap.Int("suggestion_count", len(report.Suggestions)), zap.Int("diagnostic_count", len(report.Diagnostics)))
	return nil
}
