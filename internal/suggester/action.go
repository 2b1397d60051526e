// Package suggester turns a resolver verdict map with unmet demands into a
// ranked list of candidate audits a reviewer could write to close the gap,
// costed by a pluggable diff-size oracle.
package suggester

import (
	"fmt"

	"github.com/vetkit/vetkit/internal/semver"
)

// ActionKind distinguishes a from-scratch review from an incremental one.
type ActionKind int

// Supported action kinds.
const (
	ActionFull ActionKind = iota
	ActionDelta
)

// Action is one candidate audit a reviewer could write.
type Action struct {
	Kind ActionKind
	From *semver.Version
	To   semver.Version
}

// String renders the action the way the report prints it, e.g.
// "full audit of 1.1.0" or "delta audit 0.1.0 -> 0.4.0".
func (action Action) String() string {
	if action.Kind == ActionFull {
		return fmt.Sprintf("full audit of %s", action.To.String())
	}
	return fmt.Sprintf("delta audit %s -> %s", action.From.String(), action.To.String())
}
