package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vetkit/vetkit/internal/auditfile"
	"github.com/vetkit/vetkit/internal/importer"
)

const (
	fetchImportsCommandUseConstant              = "fetch-imports"
	fetchImportsCommandShortDescriptionConstant = "Refresh imports.lock from configured peer audit sources"
	fetchImportsCommandLongDescriptionConstant  = "fetch-imports downloads every peer audit file named in configuration and writes the result to imports.lock. A peer that fails to fetch falls back to its previously cached copy and is reported as a diagnostic rather than aborting the run; --locked forbids fetching anything not already cached, and --frozen forbids network access entirely."
	fetchImportsUnexpectedArgumentsMessageConstant = "fetch-imports does not accept positional arguments"
	fetchImportsExecutionErrorTemplateConstant     = "fetch-imports failed: %w"
	fetchImportsCompletedMessageConstant           = "imports fetched"
	fetchImportsDiagnosticMessageConstant          = "import diagnostic"
)

// FetchImportsCommandBuilder assembles the fetch-imports subcommand.
type FetchImportsCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	GlobalOptionsProvider GlobalOptionsProvider
	WorkspaceProvider     WorkspaceProvider
}

// Build constructs the fetch-imports command.
func (builder *FetchImportsCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   fetchImportsCommandUseConstant,
		Short: fetchImportsCommandShortDescriptionConstant,
		Long:  fetchImportsCommandLongDescriptionConstant,
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *FetchImportsCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return &CommandExitError{Cause: fmt.Errorf(fetchImportsUnexpectedArgumentsMessageConstant), ExitCode: exitCodeFatalError}
	}

	globalOptions, globalOptionsError := builder.GlobalOptionsProvider(command)
	if globalOptionsError != nil {
		return &CommandExitError{Cause: fmt.Errorf(fetchImportsExecutionErrorTemplateConstant, globalOptionsError), ExitCode: exitCodeFatalError}
	}

	workspace, workspaceError := builder.WorkspaceProvider(command, true)
	if workspaceError != nil {
		return &CommandExitError{Cause: fmt.Errorf(fetchImportsExecutionErrorTemplateConstant, workspaceError), ExitCode: exitCodeFatalError}
	}

	configuration := builder.ConfigurationProvider()

	sources := make([]importer.PeerSource, 0, len(configuration.Imports.Sources))
	for _, sourceConfiguration := range configuration.Imports.Sources {
		sources = append(sources, importer.PeerSource{Name: sourceConfiguration.Name, URL: sourceConfiguration.URL})
	}

	fetcher := importer.NewFetcher(nil, builder.LoggerProvider(), configuration.Imports.Concurrency)
	fetched, diagnostics := fetcher.FetchAll(command.Context(), sources, workspace.Imports, importer.RunOptions{
		Locked: globalOptions.Locked,
		Frozen: globalOptions.Frozen,
	})

	for _, diagnostic := range diagnostics {
		builder.LoggerProvider().Warn(fetchImportsDiagnosticMessageConstant,
			zap.String("import_name", diagnostic.ImportName), zap.Error(diagnostic.Cause))
		fmt.Fprintf(command.ErrOrStderr(), "warning: %s: %v\n", diagnostic.ImportName, diagnostic.Cause)
	}

	importsDocument := auditfile.ImportsDocument{Imports: fetched}
	if writeError := encodeAndWrite(configuration.Paths.ImportsFile, importsDocument, auditfile.EncodeImports); writeError != nil {
		return &CommandExitError{Cause: fmt.Errorf(fetchImportsExecutionErrorTemplateConstant, writeError), ExitCode: exitCodeFatalError}
	}

	importNames := make([]string, 0, len(fetched))
	for importName := range fetched {
		importNames = append(importNames, importName)
	}
	sort.Strings(importNames)

	builder.LoggerProvider().Info(fetchImportsCompletedMessageConstant,
		zap.Int("fetched_count", len(fetched)), zap.Int("diagnostic_count", len(diagnostics)))
	fmt.Fprintf(command.OutOrStdout(), "wrote %d import(s) to %s (%d diagnostic(s))\n", len(importNames), configuration.Paths.ImportsFile, len(diagnostics))
	return nil
}
