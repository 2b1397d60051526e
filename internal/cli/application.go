package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	vetkitconfig "github.com/vetkit/vetkit/internal/config"
	vetkitlog "github.com/vetkit/vetkit/internal/log"
)

const (
	applicationNameConstant             = "vetkit"
	applicationShortDescriptionConstant = "Supply-chain audit resolution for package dependency graphs"
	applicationLongDescriptionConstant  = "vetkit decides, for every third-party package version in a dependency graph, which audit criteria are satisfied and suggests the cheapest audits that would close any gap."

	configFlagNameConstant   = "config"
	configFlagUsageConstant  = "Optional path to vetkit's own runtime configuration (YAML)."
	logLevelFlagNameConstant  = "log-level"
	logLevelFlagUsageConstant = "Override the configured log level."
	logFormatFlagNameConstant  = "log-format"
	logFormatFlagUsageConstant = "Override the configured log format (structured or console)."
	auditsFlagNameConstant    = "audits-file"
	auditsFlagUsageConstant   = "Path to audits.toml."
	policyFlagNameConstant    = "policy-file"
	policyFlagUsageConstant   = "Path to config.toml (exemptions and policy)."
	importsFlagNameConstant   = "imports-file"
	importsFlagUsageConstant  = "Path to imports.lock."
	graphFlagNameConstant     = "graph-file"
	graphFlagUsageConstant    = "Path to the resolved dependency graph export."
	lockedFlagNameConstant    = "locked"
	lockedFlagUsageConstant   = "Forbid fetching anything not already cached."
	frozenFlagNameConstant    = "frozen"
	frozenFlagUsageConstant   = "Forbid any network access at all."
	shallowFlagNameConstant   = "shallow"
	shallowFlagUsageConstant  = "Suggest mode: do not attribute unaudited-dependency cost to the ancestor."
	filterGraphFlagNameConstant  = "filter-graph"
	filterGraphFlagUsageConstant = "Filter-graph expression applied to the dependency graph before resolution."
	outputFormatFlagNameConstant  = "output-format"
	outputFormatFlagUsageConstant = "Report format: human or json."

	environmentPrefixConstant    = "VETKIT"
	configurationNameConstant    = "vetkit"
	configurationTypeConstant    = "yaml"
	defaultSearchPathConstant    = "."

	configurationLoadErrorTemplateConstant = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant    = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant        = "unable to flush logger: %w"
	outputFormatParseErrorTemplateConstant = "invalid --output-format: %w"

	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
)

// GlobalOptions mirrors the CLI's run-wide flags, consulted by every
// subcommand that touches the graph, the importer, or the suggester.
type GlobalOptions struct {
	Locked       bool
	Frozen       bool
	Shallow      bool
	FilterGraph  string
	OutputFormat OutputFormat
}

// LoggerProvider supplies the application's current zap logger.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies the application's loaded Configuration.
type ConfigurationProvider func() Configuration

// GlobalOptionsProvider supplies the parsed global flags for the command
// currently executing.
type GlobalOptionsProvider func(command *cobra.Command) (GlobalOptions, error)

// WorkspaceProvider loads the engine's inputs, honoring the current
// Configuration's paths and the command's --filter-graph flag.
type WorkspaceProvider func(command *cobra.Command, skipGraph bool) (*Workspace, error)

// Application wires the cobra root command, configuration loader, and
// structured logger, following cmd/cli/application.go's Application.
type Application struct {
	rootCommand         *cobra.Command
	configurationLoader *vetkitconfig.Loader
	loggerFactory       *vetkitlog.Factory
	logger              *zap.Logger
	configuration       Configuration
	configurationPath   string
	logLevelFlagValue   string
	logFormatFlagValue  string
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	application := &Application{
		configurationLoader: vetkitconfig.NewLoader(configurationNameConstant, configurationTypeConstant, environmentPrefixConstant, []string{defaultSearchPathConstant}),
		loggerFactory:       vetkitlog.NewFactory(),
		logger:              zap.NewNop(),
	}

	rootCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
	}

	rootCommand.SetContext(context.Background())
	rootCommand.PersistentFlags().StringVar(&application.configurationPath, configFlagNameConstant, "", configFlagUsageConstant)
	rootCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	rootCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	rootCommand.PersistentFlags().String(auditsFlagNameConstant, "", auditsFlagUsageConstant)
	rootCommand.PersistentFlags().String(policyFlagNameConstant, "", policyFlagUsageConstant)
	rootCommand.PersistentFlags().String(importsFlagNameConstant, "", importsFlagUsageConstant)
	rootCommand.PersistentFlags().String(graphFlagNameConstant, "", graphFlagUsageConstant)
	rootCommand.PersistentFlags().Bool(lockedFlagNameConstant, false, lockedFlagUsageConstant)
	rootCommand.PersistentFlags().Bool(frozenFlagNameConstant, false, frozenFlagUsageConstant)
	rootCommand.PersistentFlags().Bool(shallowFlagNameConstant, false, shallowFlagUsageConstant)
	rootCommand.PersistentFlags().String(filterGraphFlagNameConstant, "", filterGraphFlagUsageConstant)
	rootCommand.PersistentFlags().String(outputFormatFlagNameConstant, "", outputFormatFlagUsageConstant)

	loggerProvider := func() *zap.Logger { return application.logger }
	configurationProvider := func() Configuration { return application.configuration }
	globalOptionsProvider := application.resolveGlobalOptions
	workspaceProvider := application.loadWorkspaceForCommand

	checkBuilder := CheckCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider, GlobalOptionsProvider: globalOptionsProvider, WorkspaceProvider: workspaceProvider}
	checkCommand, checkBuildError := checkBuilder.Build()
	if checkBuildError == nil {
		rootCommand.AddCommand(checkCommand)
		rootCommand.RunE = checkCommand.RunE
	}

	suggestBuilder := SuggestCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider, GlobalOptionsProvider: globalOptionsProvider, WorkspaceProvider: workspaceProvider}
	if suggestCommand, buildError := suggestBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(suggestCommand)
	}

	initBuilder := InitCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider}
	if initCommand, buildError := initBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(initCommand)
	}

	inspectBuilder := InspectCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider, GlobalOptionsProvider: globalOptionsProvider, WorkspaceProvider: workspaceProvider}
	if inspectCommand, buildError := inspectBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(inspectCommand)
	}

	diffBuilder := DiffCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider}
	if diffCommand, buildError := diffBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(diffCommand)
	}

	certifyBuilder := CertifyCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider, WorkspaceProvider: workspaceProvider}
	if certifyCommand, buildError := certifyBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(certifyCommand)
	}

	addExemptionBuilder := AddExemptionCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider, WorkspaceProvider: workspaceProvider}
	if addExemptionCommand, buildError := addExemptionBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(addExemptionCommand)
	}

	recordViolationBuilder := RecordViolationCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider, WorkspaceProvider: workspaceProvider}
	if recordViolationCommand, buildError := recordViolationBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(recordViolationCommand)
	}

	fmtBuilder := FormatCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider, WorkspaceProvider: workspaceProvider}
	if formatCommand, buildError := fmtBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(formatCommand)
	}

	regenerateBuilder := RegenerateCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider, GlobalOptionsProvider: globalOptionsProvider, WorkspaceProvider: workspaceProvider}
	if regenerateCommand, buildError := regenerateBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(regenerateCommand)
	}

	gcBuilder := GCCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider, WorkspaceProvider: workspaceProvider}
	if gcCommand, buildError := gcBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(gcCommand)
	}

	fetchImportsBuilder := FetchImportsCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider, GlobalOptionsProvider: globalOptionsProvider, WorkspaceProvider: workspaceProvider}
	if fetchImportsCommand, buildError := fetchImportsBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(fetchImportsCommand)
	}

	dumpGraphBuilder := DumpGraphCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider, GlobalOptionsProvider: globalOptionsProvider, WorkspaceProvider: workspaceProvider}
	if dumpGraphCommand, buildError := dumpGraphBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(dumpGraphCommand)
	}

	acceptCriteriaBuilder := AcceptCriteriaChangeCommandBuilder{LoggerProvider: loggerProvider, ConfigurationProvider: configurationProvider, WorkspaceProvider: workspaceProvider}
	if acceptCriteriaCommand, buildError := acceptCriteriaBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(acceptCriteriaCommand)
	}

	helpMarkdownBuilder := HelpMarkdownCommandBuilder{RootCommandProvider: func() *cobra.Command { return rootCommand }}
	if helpMarkdownCommand, buildError := helpMarkdownBuilder.Build(); buildError == nil {
		rootCommand.AddCommand(helpMarkdownCommand)
	}

	application.rootCommand = rootCommand
	return application
}

// Execute runs the configured cobra command hierarchy and ensures the
// logger is flushed on every exit path.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes it.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := DefaultConfigurationValues()

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationPath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	logger, loggerCreationError := application.loggerFactory.CreateLogger(vetkitlog.Level(application.configuration.Common.LogLevel), vetkitlog.Format(application.configuration.Common.LogFormat))
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}
	application.logger = logger

	application.logger.Info(configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, loadedConfiguration.ConfigFileUsed),
	)

	return nil
}

func (application *Application) resolveGlobalOptions(command *cobra.Command) (GlobalOptions, error) {
	locked, _ := command.Flags().GetBool(lockedFlagNameConstant)
	frozen, _ := command.Flags().GetBool(frozenFlagNameConstant)
	shallow, _ := command.Flags().GetBool(shallowFlagNameConstant)
	filterGraph, _ := command.Flags().GetString(filterGraphFlagNameConstant)
	outputFormatFlagValue, _ := command.Flags().GetString(outputFormatFlagNameConstant)

	selectedOutputFormat := application.configuration.Common.OutputFormat
	if len(outputFormatFlagValue) > 0 {
		selectedOutputFormat = outputFormatFlagValue
	}
	parsedOutputFormat, parseError := ParseOutputFormat(selectedOutputFormat)
	if parseError != nil {
		return GlobalOptions{}, fmt.Errorf(outputFormatParseErrorTemplateConstant, parseError)
	}

	return GlobalOptions{
		Locked:       locked,
		Frozen:       frozen,
		Shallow:      shallow,
		FilterGraph:  filterGraph,
		OutputFormat: parsedOutputFormat,
	}, nil
}

func (application *Application) loadWorkspaceForCommand(command *cobra.Command, skipGraph bool) (*Workspace, error) {
	configuration := application.configuration

	options := LoadOptions{
		AuditsPath:  selectStringValue(application.flagString(command, auditsFlagNameConstant), configuration.Paths.AuditsFile),
		PolicyPath:  selectStringValue(application.flagString(command, policyFlagNameConstant), configuration.Paths.PolicyFile),
		ImportsPath: selectStringValue(application.flagString(command, importsFlagNameConstant), configuration.Paths.ImportsFile),
		GraphPath:   selectStringValue(application.flagString(command, graphFlagNameConstant), configuration.Paths.GraphFile),
		SkipGraph:   skipGraph,
	}
	if !skipGraph {
		options.FilterGraphExpr, _ = command.Flags().GetString(filterGraphFlagNameConstant)
	}

	return LoadWorkspace(options)
}

func (application *Application) flagString(command *cobra.Command, flagName string) string {
	value, _ := command.Flags().GetString(flagName)
	return value
}

func selectStringValue(candidates ...string) string {
	for _, candidate := range candidates {
		if len(strings.TrimSpace(candidate)) > 0 {
			return candidate
		}
	}
	return ""
}

func (application *Application) flushLogger() error {
	return application.syncLoggerInstance(application.logger)
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}
	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}
	flagSetsToInspect := []*pflag.FlagSet{command.PersistentFlags(), command.InheritedFlags()}
	if rootCommand := command.Root(); rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}
	for _, flagSet := range flagSetsToInspect {
		if flagSet != nil && flagSet.Changed(flagName) {
			return true
		}
	}
	return false
}
