// Package difforacle estimates the review cost of moving a package from one
// version to another, or of reviewing a version from scratch. The resolver
// never touches this package directly; the suggester asks it for costs when
// ranking candidate audits to propose.
package difforacle

import (
	"context"

	"github.com/vetkit/vetkit/internal/semver"
)

// Oracle estimates the review cost of a candidate audit. fromVersion nil
// means a full-source review cost rather than an incremental delta.
type Oracle interface {
	EstimateCost(executionContext context.Context, packageName string, fromVersion *semver.Version, toVersion semver.Version) (int, error)
}

// costKey identifies one (package, from, to) triple for caching purposes.
// fromVersion is the empty string for a full-source estimate.
type costKey struct {
	packageName string
	fromVersion string
	toVersion   string
}

func makeCostKey(packageName string, fromVersion *semver.Version, toVersion semver.Version) costKey {
	from := ""
	if fromVersion != nil {
		from = fromVersion.String()
	}
	return costKey{packageName: packageName, fromVersion: from, toVersion: toVersion.String()}
}
