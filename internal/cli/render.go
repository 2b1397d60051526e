package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/vetkit/vetkit/internal/graphview"
	"github.com/vetkit/vetkit/internal/resolver"
)

// OutputFormat selects how check/suggest/inspect render their reports.
type OutputFormat string

// Supported output formats.
const (
	OutputFormatHuman OutputFormat = "human"
	OutputFormatJSON  OutputFormat = "json"
)

const unsupportedOutputFormatTemplateConstant = "unsupported output format %q"

// ParseOutputFormat validates a --output-format flag value.
func ParseOutputFormat(raw string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case OutputFormatHuman, "":
		return OutputFormatHuman, nil
	case OutputFormatJSON:
		return OutputFormatJSON, nil
	default:
		return "", fmt.Errorf(unsupportedOutputFormatTemplateConstant, raw)
	}
}

var reasonKindNames = map[resolver.ReasonKind]string{
	resolver.ReasonNoAudits:          "no_audits",
	resolver.ReasonNoPathFromRoot:    "no_path_from_root",
	resolver.ReasonBlockedByViolation: "blocked_by_violation",
	resolver.ReasonDependencyUnmet:   "dependency_unmet",
}

// verdictView is the JSON-friendly projection of a resolver.Verdict used by
// both the human and JSON renderers.
type verdictView struct {
	Package           string   `json:"package"`
	Version           string   `json:"version"`
	Satisfied         []string `json:"satisfied"`
	Unmet             []string `json:"unmet"`
	Violated          []string `json:"violated,omitempty"`
	ReliesOnExemption bool     `json:"relies_on_exemption,omitempty"`
}

func buildVerdictViews(graph *graphview.Graph, result *resolver.Result) []verdictView {
	views := make([]verdictView, 0, len(result.Verdicts))
	for _, node := range graph.SortedNodes() {
		verdict, found := result.Verdicts[node.ID]
		if !found {
			continue
		}
		view := verdictView{
			Package:           verdict.PackageName,
			Version:           node.Version.String(),
			ReliesOnExemption: verdict.RelicsOnExemption,
		}
		for name := range verdict.Satisfied {
			view.Satisfied = append(view.Satisfied, name)
		}
		sort.Strings(view.Satisfied)
		for _, unmet := range verdict.Unmet {
			reasonName := reasonKindNames[unmet.Reason.Kind]
			if unmet.Reason.Kind == resolver.ReasonDependencyUnmet {
				view.Unmet = append(view.Unmet, fmt.Sprintf("%s (%s via %s/%s)", unmet.Criterion, reasonName, unmet.Reason.Child, unmet.Reason.ChildCriterion))
			} else {
				view.Unmet = append(view.Unmet, fmt.Sprintf("%s (%s)", unmet.Criterion, reasonName))
			}
		}
		for name := range verdict.Violated {
			view.Violated = append(view.Violated, name)
		}
		sort.Strings(view.Violated)
		views = append(views, view)
	}
	return views
}

// RenderCheckResult writes result to writer in the requested format.
func RenderCheckResult(writer io.Writer, graph *graphview.Graph, result *resolver.Result, format OutputFormat) error {
	views := buildVerdictViews(graph, result)

	if format == OutputFormatJSON {
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(views)
	}

	for _, view := range views {
		if len(view.Unmet) == 0 {
			fmt.Fprintf(writer, "ok   %s %s (%s)\n", view.Package, view.Version, strings.Join(view.Satisfied, ", "))
			continue
		}
		fmt.Fprintf(writer, "FAIL %s %s unmet: %s\n", view.Package, view.Version, strings.Join(view.Unmet, "; "))
	}
	return nil
}

// AnyUnmet reports whether result carries at least one unsatisfied verdict,
// used by the CLI to select the "unmet demand" exit code.
func AnyUnmet(result *resolver.Result) bool {
	for _, verdict := range result.Verdicts {
		if !verdict.IsFullySatisfied() {
			return true
		}
	}
	return false
}
