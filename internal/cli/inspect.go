package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vetkit/vetkit/internal/resolver"
)

const (
	inspectCommandUseConstant              = "inspect <package>"
	inspectCommandShortDescriptionConstant = "Show everything known about one package"
	inspectCommandLongDescriptionConstant  = "inspect prints the full audits, delta audits, exemptions, violations, policy, and resolver verdict known for a single package name."
	inspectExactlyOneArgumentMessageConstant = "inspect requires exactly one package name"
	inspectExecutionErrorTemplateConstant    = "inspect failed: %w"
)

// InspectCommandBuilder assembles the inspect subcommand.
type InspectCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	GlobalOptionsProvider GlobalOptionsProvider
	WorkspaceProvider     WorkspaceProvider
}

type inspectView struct {
	PackageName  string                  `json:"package_name"`
	KnownVersions []string               `json:"known_versions"`
	FullAuditCount int                   `json:"full_audit_count"`
	DeltaAuditCount int                  `json:"delta_audit_count"`
	ExemptionCount int                   `json:"exemption_count"`
	ViolationCount int                   `json:"violation_count"`
	HasPolicy      bool                  `json:"has_policy"`
	Verdicts       []inspectVerdictView  `json:"verdicts"`
}

type inspectVerdictView struct {
	Version string   `json:"version"`
	Unmet   []string `json:"unmet"`
}

// Build constructs the inspect command.
func (builder *InspectCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   inspectCommandUseConstant,
		Short: inspectCommandShortDescriptionConstant,
		Long:  inspectCommandLongDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *InspectCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) != 1 {
		return errors.New(inspectExactlyOneArgumentMessageConstant)
	}
	packageName := arguments[0]

	globalOptions, optionsError := builder.GlobalOptionsProvider(command)
	if optionsError != nil {
		return &CommandExitError{Cause: optionsError, ExitCode: exitCodeFatalError}
	}

	workspace, workspaceError := builder.WorkspaceProvider(command, false)
	if workspaceError != nil {
		return &CommandExitError{Cause: fmt.Errorf(inspectExecutionErrorTemplateConstant, workspaceError), ExitCode: exitCodeFatalError}
	}

	view := inspectView{
		PackageName:     packageName,
		FullAuditCount:  len(workspace.Store.FullAudits(packageName)),
		DeltaAuditCount: len(workspace.Store.DeltaAudits(packageName)),
		ExemptionCount:  len(workspace.Store.Exemptions(packageName)),
		ViolationCount:  len(workspace.Store.Violations(packageName)),
	}
	_, view.HasPolicy = workspace.Store.Policy(packageName)
	for _, version := range workspace.Store.KnownVersions(packageName) {
		view.KnownVersions = append(view.KnownVersions, version.String())
	}

	result := resolver.Resolve(workspace.Table, workspace.Store, workspace.Graph)
	for _, node := range workspace.Graph.SortedNodes() {
		if node.PackageName != packageName {
			continue
		}
		verdict, found := result.Verdicts[node.ID]
		if !found {
			continue
		}
		unmet := make([]string, 0, len(verdict.Unmet))
		for _, demand := range verdict.Unmet {
			unmet = append(unmet, demand.Criterion)
		}
		view.Verdicts = append(view.Verdicts, inspectVerdictView{Version: node.Version.String(), Unmet: unmet})
	}

	if globalOptions.OutputFormat == OutputFormatJSON {
		encoder := json.NewEncoder(command.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(view)
	}

	fmt.Fprintf(command.OutOrStdout(), "%s: %d full, %d delta, %d exemptions, %d violations, policy=%v\n",
		view.PackageName, view.FullAuditCount, view.DeltaAuditCount, view.ExemptionCount, view.ViolationCount, view.HasPolicy)
	for _, verdictView := range view.Verdicts {
		if len(verdictView.Unmet) == 0 {
			fmt.Fprintf(command.OutOrStdout(), "  %s: satisfied\n", verdictView.Version)
			continue
		}
		fmt.Fprintf(command.OutOrStdout(), "  %s: unmet %v\n", verdictView.Version, verdictView.Unmet)
	}
	return nil
}
