package suggester

import (
	"fmt"
	"strings"
)

// Render produces the human-readable suggestion listing, one line per
// suggestion, ordered the way the Report already ranks them.
func (report *Report) Render() string {
	var builder strings.Builder
	for _, suggestion := range report.Suggestions {
		chainNames := make([]string, 0, len(suggestion.ParentChain))
		for _, ancestor := range suggestion.ParentChain {
			chainNames = append(chainNames, string(ancestor))
		}

		fmt.Fprintf(&builder, "%s %s [%s]: %s (cost %d, total %d) via %s\n",
			suggestion.PackageName,
			suggestion.Version,
			suggestion.Criterion,
			suggestion.Action.String(),
			suggestion.Cost,
			suggestion.TotalCost,
			strings.Join(chainNames, " <- "))
	}
	for _, diagnostic := range report.Diagnostics {
		fmt.Fprintf(&builder, "diagnostic: %s: %v\n", diagnostic.PackageName, diagnostic.Cause)
	}
	return builder.String()
}
