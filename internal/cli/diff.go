package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/vetkit/vetkit/internal/difforacle"
	"github.com/vetkit/vetkit/internal/semver"
)

const (
	diffCommandUseConstant              = "diff <package> <to-version>"
	diffCommandShortDescriptionConstant = "Estimate the diff-size cost of auditing a version"
	diffCommandLongDescriptionConstant  = "diff reports the diff oracle's estimated cost for auditing <package> at <to-version>, either as a full audit or, with --from, as a delta from an already-audited version."
	diffWrongArgumentCountMessageConstant = "diff requires exactly a package name and a to-version"
	diffFromFlagNameConstant              = "from"
	diffFromFlagUsageConstant             = "Audited version to diff from; omitted means a full-source estimate."
	diffInvalidToVersionTemplateConstant  = "invalid to-version %q: %w"
	diffInvalidFromVersionTemplateConstant = "invalid --from version %q: %w"
	diffExecutionErrorTemplateConstant     = "diff failed: %w"
)

// DiffCommandBuilder assembles the diff subcommand.
type DiffCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
}

// Build constructs the diff command.
func (builder *DiffCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   diffCommandUseConstant,
		Short: diffCommandShortDescriptionConstant,
		Long:  diffCommandLongDescriptionConstant,
		Args:  cobra.ExactArgs(2),
		RunE:  builder.run,
	}
	command.Flags().String(diffFromFlagNameConstant, "", diffFromFlagUsageConstant)
	command.Flags().String(sourceURLTemplateFlagNameConstant, defaultSourceURLTemplateConstant, sourceURLTemplateFlagUsageConstant)
	return command, nil
}

func (builder *DiffCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) != 2 {
		return &CommandExitError{Cause: fmt.Errorf(diffWrongArgumentCountMessageConstant), ExitCode: exitCodeFatalError}
	}
	packageName := arguments[0]

	toVersion, toVersionError := semver.Parse(arguments[1])
	if toVersionError != nil {
		return &CommandExitError{Cause: fmt.Errorf(diffInvalidToVersionTemplateConstant, arguments[1], toVersionError), ExitCode: exitCodeFatalError}
	}

	var fromVersionPointer *semver.Version
	fromFlagValue, _ := command.Flags().GetString(diffFromFlagNameConstant)
	if len(fromFlagValue) > 0 {
		fromVersion, fromVersionError := semver.Parse(fromFlagValue)
		if fromVersionError != nil {
			return &CommandExitError{Cause: fmt.Errorf(diffInvalidFromVersionTemplateConstant, fromFlagValue, fromVersionError), ExitCode: exitCodeFatalError}
		}
		fromVersionPointer = &fromVersion
	}

	configuration := builder.ConfigurationProvider()
	urlTemplate, _ := command.Flags().GetString(sourceURLTemplateFlagNameConstant)

	fetcher := difforacle.NewHTTPSourceFetcher(urlTemplate, nil)
	shellOracle := difforacle.NewShellOracle(fetcher, difforacle.NewOSCommandRunner(), configuration.Oracle.DiffCommand, builder.LoggerProvider())
	cachingOracle := difforacle.NewCachingOracle(shellOracle, afero.NewOsFs(), configuration.Paths.CacheDirectory)

	cost, costError := cachingOracle.EstimateCost(command.Context(), packageName, fromVersionPointer, toVersion)
	if costError != nil {
		return &CommandExitError{Cause: fmt.Errorf(diffExecutionErrorTemplateConstant, costError), ExitCode: exitCodeFatalError}
	}

	fmt.Fprintf(command.OutOrStdout(), "%d\n", cost)
	return nil
}
