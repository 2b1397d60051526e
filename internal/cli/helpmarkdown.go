package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

const (
	helpMarkdownCommandUseConstant              = "help-markdown <output-directory>"
	helpMarkdownCommandShortDescriptionConstant = "Render command help as Markdown"
	helpMarkdownCommandLongDescriptionConstant  = "help-markdown writes one Markdown file per command, rooted at the given directory, for publishing alongside documentation. It is hidden from the default help listing."
	helpMarkdownExactlyOneArgumentMessageConstant = "help-markdown requires exactly one output directory"
	helpMarkdownExecutionErrorTemplateConstant    = "help-markdown failed: %w"
)

// HelpMarkdownCommandBuilder assembles the hidden help-markdown subcommand.
type HelpMarkdownCommandBuilder struct {
	RootCommandProvider func() *cobra.Command
}

// Build constructs the help-markdown command.
func (builder *HelpMarkdownCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:    helpMarkdownCommandUseConstant,
		Short:  helpMarkdownCommandShortDescriptionConstant,
		Long:   helpMarkdownCommandLongDescriptionConstant,
		Args:   cobra.ExactArgs(1),
		Hidden: true,
		RunE:   builder.run,
	}
	return command, nil
}

func (builder *HelpMarkdownCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) != 1 {
		return &CommandExitError{Cause: fmt.Errorf(helpMarkdownExactlyOneArgumentMessageConstant), ExitCode: exitCodeFatalError}
	}
	outputDirectory := arguments[0]

	if mkdirError := os.MkdirAll(outputDirectory, 0o755); mkdirError != nil {
		return &CommandExitError{Cause: fmt.Errorf(helpMarkdownExecutionErrorTemplateConstant, mkdirError), ExitCode: exitCodeFatalError}
	}

	if genError := doc.GenMarkdownTree(builder.RootCommandProvider(), outputDirectory); genError != nil {
		return &CommandExitError{Cause: fmt.Errorf(helpMarkdownExecutionErrorTemplateConstant, genError), ExitCode: exitCodeFatalError}
	}
	return nil
}
