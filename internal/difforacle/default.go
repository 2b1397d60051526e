package difforacle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/vetkit/vetkit/internal/semver"
)

const (
	shellOracleStartedMessageConstant       = "estimating diff cost"
	shellOracleCompletedMessageConstant     = "estimated diff cost"
	shellOracleFetchFailedTemplateConstant  = "diff oracle: failed to fetch source for %s@%s: %w"
	shellOracleDiffFailedTemplateConstant   = "diff oracle: failed to diff %s %s: %w"

	packageNameLogKeyConstant = "package_name"
	fromVersionLogKeyConstant = "from_version"
	toVersionLogKeyConstant   = "to_version"
	costLogKeyConstant        = "cost"
)

// CommandRunner abstracts the external process invocation the default
// oracle needs, in the same spirit as the rest of the CLI's command
// execution: a single seam the tests substitute with a recording fake
// instead of touching the real filesystem or network.
type CommandRunner interface {
	Run(executionContext context.Context, name string, arguments []string, workingDirectory string) (standardOutput string, exitCode int, err error)
}

// OSCommandRunner runs commands with os/exec, the production CommandRunner.
type OSCommandRunner struct{}

// NewOSCommandRunner constructs the os/exec-backed CommandRunner.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{}
}

// Run implements CommandRunner using os/exec.CommandContext.
func (runner *OSCommandRunner) Run(executionContext context.Context, name string, arguments []string, workingDirectory string) (string, int, error) {
	command := exec.CommandContext(executionContext, name, arguments...)
	if workingDirectory != "" {
		command.Dir = workingDirectory
	}

	var standardOutputBuffer bytes.Buffer
	command.Stdout = &standardOutputBuffer
	command.Stderr = &standardOutputBuffer

	runError := command.Run()
	if runError != nil {
		var exitError *exec.ExitError
		if errors.As(runError, &exitError) {
			return standardOutputBuffer.String(), exitError.ExitCode(), nil
		}
		return "", 0, runError
	}

	return standardOutputBuffer.String(), 0, nil
}

// SourceFetcher retrieves the unpacked source tree for a package version
// and returns the local directory holding it. Callers are responsible for
// removing the directory once done; ShellOracle does this itself via
// defer os.RemoveAll.
type SourceFetcher interface {
	FetchSource(executionContext context.Context, packageName string, version semver.Version) (directory string, cleanup func(), err error)
}

// ShellOracle is the default Oracle: it fetches both endpoints' source
// trees via fetcher and measures the cost with an external diff-compatible
// tool, following the same external-command-execution idiom used
// throughout the CLI rather than reimplementing a diff algorithm in Go.
type ShellOracle struct {
	fetcher       SourceFetcher
	commandRunner CommandRunner
	diffCommand   string
	logger        *zap.Logger
}

// NewShellOracle constructs a ShellOracle. diffCommand names the external
// diff-compatible tool to invoke (e.g. "diff"); logger may be nil.
func NewShellOracle(fetcher SourceFetcher, commandRunner CommandRunner, diffCommand string, logger *zap.Logger) *ShellOracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShellOracle{fetcher: fetcher, commandRunner: commandRunner, diffCommand: diffCommand, logger: logger}
}

// EstimateCost fetches toVersion's source tree and, for a delta estimate,
// fromVersion's as well, then shells out to diffCommand with the
// recursive-unified-diff flags and counts changed lines. For a full
// estimate (fromVersion nil) it diffs os.DevNull against the fetched tree
// with the same flags and counts the resulting added lines.
func (oracle *ShellOracle) EstimateCost(executionContext context.Context, packageName string, fromVersion *semver.Version, toVersion semver.Version) (int, error) {
	oracle.logger.Debug(shellOracleStartedMessageConstant,
		zap.String(packageNameLogKeyConstant, packageName),
		zap.String(toVersionLogKeyConstant, toVersion.String()))

	toDirectory, toCleanup, fetchError := oracle.fetcher.FetchSource(executionContext, packageName, toVersion)
	if fetchError != nil {
		return 0, fmt.Errorf(shellOracleFetchFailedTemplateConstant, packageName, toVersion.String(), fetchError)
	}
	defer toCleanup()

	if fromVersion == nil {
		cost, countError := oracle.countLines(executionContext, toDirectory)
		if countError != nil {
			return 0, countError
		}
		oracle.logCompleted(packageName, "", toVersion.String(), cost)
		return cost, nil
	}

	fromDirectory, fromCleanup, fromFetchError := oracle.fetcher.FetchSource(executionContext, packageName, *fromVersion)
	if fromFetchError != nil {
		return 0, fmt.Errorf(shellOracleFetchFailedTemplateConstant, packageName, fromVersion.String(), fromFetchError)
	}
	defer fromCleanup()

	cost, diffError := oracle.diffLines(executionContext, fromDirectory, toDirectory)
	if diffError != nil {
		return 0, fmt.Errorf(shellOracleDiffFailedTemplateConstant, fromVersion.String(), toVersion.String(), diffError)
	}

	oracle.logCompleted(packageName, fromVersion.String(), toVersion.String(), cost)
	return cost, nil
}

func (oracle *ShellOracle) logCompleted(packageName, fromVersion, toVersion string, cost int) {
	oracle.logger.Debug(shellOracleCompletedMessageConstant,
		zap.String(packageNameLogKeyConstant, packageName),
		zap.String(fromVersionLogKeyConstant, fromVersion),
		zap.String(toVersionLogKeyConstant, toVersion),
		zap.Int(costLogKeyConstant, cost))
}

func (oracle *ShellOracle) diffLines(executionContext context.Context, fromDirectory, toDirectory string) (int, error) {
	output, _, runError := oracle.commandRunner.Run(executionContext, oracle.diffCommand, []string{"-ruN", fromDirectory, toDirectory}, "")
	if runError != nil {
		return 0, runError
	}
	return countChangedLines(output), nil
}

func (oracle *ShellOracle) countLines(executionContext context.Context, directory string) (int, error) {
	output, _, runError := oracle.commandRunner.Run(executionContext, oracle.diffCommand, []string{"-ruN", os.DevNull, directory}, "")
	if runError != nil {
		return 0, runError
	}
	return countChangedLines(output), nil
}

// countChangedLines counts unified-diff body lines (those beginning with
// '+' or '-', excluding the "+++"/"---" file headers).
func countChangedLines(output string) int {
	count := 0
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, "+++") || strings.HasPrefix(line, "---") {
			continue
		}
		if strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-") {
			count++
		}
	}
	return count
}
