package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/vetkit/vetkit/internal/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
	defaultFatalExitCodeConstant = 2
)

// main executes the vetkit command-line application.
func main() {
	executionError := cli.Execute()
	if executionError == nil {
		return
	}

	fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)

	var exitError *cli.CommandExitError
	if errors.As(executionError, &exitError) {
		os.Exit(exitError.ExitCode)
	}
	os.Exit(defaultFatalExitCodeConstant)
}
