package store

import (
	"github.com/vetkit/vetkit/internal/criteria"
	"github.com/vetkit/vetkit/internal/semver"
)

// Source records the provenance of an audit, exemption, or violation entry:
// either the project's own local file, or a named foreign import.
type Source struct {
	ImportName string
}

// IsLocal reports whether the entry originated in the project's own files
// rather than an imported peer audit set.
func (source Source) IsLocal() bool {
	return len(source.ImportName) == 0
}

// Identifier returns a stable string used for lexicographic tie-breaking
// between witnesses: the empty string for local entries (which always sort
// first) or the import name otherwise.
func (source Source) Identifier() string {
	return source.ImportName
}

// FullAudit asserts that a specific version of a package satisfies a
// criteria set, provided every dependency satisfies its own (possibly
// overridden) criteria.
type FullAudit struct {
	Package             string
	Version             semver.Version
	Criteria            criteria.Set
	DependencyCriteria  map[string]criteria.Set
	Notes                string
	Source               Source
}

// DependencyDemand returns the criteria this audit requires of dependency,
// defaulting to the audit's own criteria when no override is present.
func (audit FullAudit) DependencyDemand(dependency string) criteria.Set {
	if overridden, present := audit.DependencyCriteria[dependency]; present {
		return overridden
	}
	return audit.Criteria
}

// DeltaAudit asserts that the incremental review from From to To satisfies a
// criteria set under the same dependency precondition as FullAudit.
type DeltaAudit struct {
	Package            string
	From               semver.Version
	To                 semver.Version
	Criteria           criteria.Set
	DependencyCriteria map[string]criteria.Set
	Notes              string
	Source             Source
}

// DependencyDemand returns the criteria this delta requires of dependency,
// defaulting to the delta's own criteria when no override is present.
func (delta DeltaAudit) DependencyDemand(dependency string) criteria.Set {
	if overridden, present := delta.DependencyCriteria[dependency]; present {
		return overridden
	}
	return delta.Criteria
}

// Violation asserts that no version in Range satisfies Criteria, overriding
// any audit that would otherwise cover a matching version.
type Violation struct {
	Package  string
	Range    semver.Range
	Criteria criteria.Set
	Source   Source
}

// Exemption is an unreviewed, full-audit-equivalent grandfathering of a
// version under a criteria set. Suggest controls whether gc/cleanup tooling
// should propose removing it.
type Exemption struct {
	Package  string
	Version  semver.Version
	Criteria criteria.Set
	Suggest  bool
	Source   Source
}

// Policy is the demand side: the criteria a workspace-member root requires
// of its dependencies, plus optional per-direct-dependency overrides.
type Policy struct {
	Package            string
	Criteria           criteria.Set
	DependencyCriteria map[string]criteria.Set
	IncludeDevDemands  bool
}

// DependencyDemand returns the criteria this policy requires of dependency,
// defaulting to the policy's own criteria when no override is present.
func (policy Policy) DependencyDemand(dependency string) criteria.Set {
	if overridden, present := policy.DependencyCriteria[dependency]; present {
		return overridden
	}
	return policy.Criteria
}
