package store

import (
	"fmt"
	"sort"

	"github.com/vetkit/vetkit/internal/criteria"
	"github.com/vetkit/vetkit/internal/semver"
)

const (
	unknownCriterionInEntryTemplateConstant = "%q references unknown criterion %q"
	deltaCycleTemplateConstant               = "package %q has a cyclic delta audit chain under criterion %q"
)

// Store is the normalized, immutable audit store described in the data
// model: full audits, delta audits, exemptions, violations, and policy,
// indexed by package name. It is built once via NewStore and never mutated.
type Store struct {
	table      *criteria.Table
	fulls      map[string][]FullAudit
	deltas     map[string][]DeltaAudit
	exemptions map[string][]Exemption
	violations map[string][]Violation
	policies   map[string]Policy
}

// Inputs bundles the raw (pre-normalization) entries a loader produces from
// the persisted audits/config/imports documents.
type Inputs struct {
	Fulls      []FullAudit
	Deltas     []DeltaAudit
	Exemptions []Exemption
	Violations []Violation
	Policies   []Policy
}

// NewStore validates inputs against table, closes every criteria set under
// table's implies relation, checks the delta DAG for cycles per
// (package, criterion), and returns the resulting immutable Store.
func NewStore(table *criteria.Table, inputs Inputs) (*Store, error) {
	store := &Store{
		table:      table,
		fulls:      make(map[string][]FullAudit),
		deltas:     make(map[string][]DeltaAudit),
		exemptions: make(map[string][]Exemption),
		violations: make(map[string][]Violation),
		policies:   make(map[string]Policy),
	}

	for _, full := range inputs.Fulls {
		normalized, normalizeError := normalizeFull(table, full)
		if normalizeError != nil {
			return nil, normalizeError
		}
		store.fulls[normalized.Package] = append(store.fulls[normalized.Package], normalized)
	}

	for _, delta := range inputs.Deltas {
		normalized, normalizeError := normalizeDelta(table, delta)
		if normalizeError != nil {
			return nil, normalizeError
		}
		store.deltas[normalized.Package] = append(store.deltas[normalized.Package], normalized)
	}

	for _, exemption := range inputs.Exemptions {
		if validateError := table.ValidateNames(exemption.Criteria.Sorted()...); validateError != nil {
			return nil, &ReferenceError{Cause: fmt.Sprintf(unknownCriterionInEntryTemplateConstant, exemption.Package, validateError)}
		}
		exemption.Criteria = table.Closure(exemption.Criteria)
		store.exemptions[exemption.Package] = append(store.exemptions[exemption.Package], exemption)
	}

	for _, violation := range inputs.Violations {
		if validateError := table.ValidateNames(violation.Criteria.Sorted()...); validateError != nil {
			return nil, &ReferenceError{Cause: fmt.Sprintf(unknownCriterionInEntryTemplateConstant, violation.Package, validateError)}
		}
		// Violations close in the opposite direction from audits: violating
		// a weaker criterion also poisons every stronger criterion that
		// implies it, not the other way around.
		violation.Criteria = table.ReverseClosure(violation.Criteria)
		store.violations[violation.Package] = append(store.violations[violation.Package], violation)
	}

	for _, policy := range inputs.Policies {
		if validateError := table.ValidateNames(policy.Criteria.Sorted()...); validateError != nil {
			return nil, &ReferenceError{Cause: fmt.Sprintf(unknownCriterionInEntryTemplateConstant, policy.Package, validateError)}
		}
		policy.Criteria = table.Closure(policy.Criteria)
		for dependencyName, dependencySet := range policy.DependencyCriteria {
			policy.DependencyCriteria[dependencyName] = table.Closure(dependencySet)
		}
		store.policies[policy.Package] = policy
	}

	for packageName := range store.deltas {
		if cycleError := detectDeltaCycles(table, packageName, store.deltas[packageName]); cycleError != nil {
			return nil, cycleError
		}
	}

	sortEntries(store)

	return store, nil
}

func normalizeFull(table *criteria.Table, full FullAudit) (FullAudit, error) {
	if validateError := table.ValidateNames(full.Criteria.Sorted()...); validateError != nil {
		return FullAudit{}, &ReferenceError{Cause: fmt.Sprintf(unknownCriterionInEntryTemplateConstant, full.Package, validateError)}
	}
	full.Criteria = table.Closure(full.Criteria)
	for dependencyName, dependencySet := range full.DependencyCriteria {
		if validateError := table.ValidateNames(dependencySet.Sorted()...); validateError != nil {
			return FullAudit{}, &ReferenceError{Cause: fmt.Sprintf(unknownCriterionInEntryTemplateConstant, dependencyName, validateError)}
		}
		full.DependencyCriteria[dependencyName] = table.Closure(dependencySet)
	}
	return full, nil
}

func normalizeDelta(table *criteria.Table, delta DeltaAudit) (DeltaAudit, error) {
	if validateError := table.ValidateNames(delta.Criteria.Sorted()...); validateError != nil {
		return DeltaAudit{}, &ReferenceError{Cause: fmt.Sprintf(unknownCriterionInEntryTemplateConstant, delta.Package, validateError)}
	}
	delta.Criteria = table.Closure(delta.Criteria)
	for dependencyName, dependencySet := range delta.DependencyCriteria {
		if validateError := table.ValidateNames(dependencySet.Sorted()...); validateError != nil {
			return DeltaAudit{}, &ReferenceError{Cause: fmt.Sprintf(unknownCriterionInEntryTemplateConstant, dependencyName, validateError)}
		}
		delta.DependencyCriteria[dependencyName] = table.Closure(dependencySet)
	}
	return delta, nil
}

// detectDeltaCycles checks, for every criterion touched by any delta of
// packageName, that the subgraph of deltas whose closure contains that
// criterion is acyclic over version nodes.
func detectDeltaCycles(table *criteria.Table, packageName string, deltas []DeltaAudit) error {
	touchedCriteria := make(map[string]struct{})
	for _, delta := range deltas {
		for _, name := range delta.Criteria.Sorted() {
			touchedCriteria[name] = struct{}{}
		}
	}

	criterionNames := make([]string, 0, len(touchedCriteria))
	for name := range touchedCriteria {
		criterionNames = append(criterionNames, name)
	}
	sort.Strings(criterionNames)

	for _, criterionName := range criterionNames {
		adjacency := make(map[string][]string)
		for _, delta := range deltas {
			if !delta.Criteria.Contains(criterionName) {
				continue
			}
			adjacency[delta.From.String()] = append(adjacency[delta.From.String()], delta.To.String())
		}
		if hasCycle(adjacency) {
			return &CycleError{Cause: fmt.Sprintf(deltaCycleTemplateConstant, packageName, criterionName)}
		}
	}

	return nil
}

func hasCycle(adjacency map[string][]string) bool {
	const (
		stateUnvisited = 0
		stateVisiting  = 1
		stateDone      = 2
	)
	state := make(map[string]int)

	nodes := make([]string, 0, len(adjacency))
	for node := range adjacency {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	var walk func(node string) bool
	walk = func(node string) bool {
		switch state[node] {
		case stateVisiting:
			return true
		case stateDone:
			return false
		}
		state[node] = stateVisiting
		for _, next := range adjacency[node] {
			if walk(next) {
				return true
			}
		}
		state[node] = stateDone
		return false
	}

	for _, node := range nodes {
		if state[node] == stateUnvisited {
			if walk(node) {
				return true
			}
		}
	}
	return false
}

func sortEntries(store *Store) {
	for packageName := range store.fulls {
		entries := store.fulls[packageName]
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Source.Identifier() < entries[j].Source.Identifier()
		})
		store.fulls[packageName] = entries
	}
	for packageName := range store.deltas {
		entries := store.deltas[packageName]
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Source.Identifier() < entries[j].Source.Identifier()
		})
		store.deltas[packageName] = entries
	}
	for packageName := range store.exemptions {
		entries := store.exemptions[packageName]
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Source.Identifier() < entries[j].Source.Identifier()
		})
		store.exemptions[packageName] = entries
	}
}

// CriteriaTable returns the validated criteria table backing this store.
func (store *Store) CriteriaTable() *criteria.Table {
	return store.table
}

// FullAudits returns the full audits recorded for packageName, in
// deterministic (source-identifier) order.
func (store *Store) FullAudits(packageName string) []FullAudit {
	return store.fulls[packageName]
}

// DeltaAudits returns the delta audits recorded for packageName.
func (store *Store) DeltaAudits(packageName string) []DeltaAudit {
	return store.deltas[packageName]
}

// Exemptions returns the exemptions recorded for packageName.
func (store *Store) Exemptions(packageName string) []Exemption {
	return store.exemptions[packageName]
}

// Violations returns the violations recorded for packageName.
func (store *Store) Violations(packageName string) []Violation {
	return store.violations[packageName]
}

// Policy returns the policy recorded for a workspace-member package and
// whether one was found.
func (store *Store) Policy(packageName string) (Policy, bool) {
	policy, found := store.policies[packageName]
	return policy, found
}

// KnownVersions returns every version of packageName observed anywhere in
// the store (full audits, delta endpoints, exemptions), sorted ascending.
func (store *Store) KnownVersions(packageName string) []semver.Version {
	seen := make(map[string]semver.Version)
	record := func(version semver.Version) {
		seen[version.String()] = version
	}

	for _, full := range store.fulls[packageName] {
		record(full.Version)
	}
	for _, delta := range store.deltas[packageName] {
		record(delta.From)
		record(delta.To)
	}
	for _, exemption := range store.exemptions[packageName] {
		record(exemption.Version)
	}

	versions := make([]semver.Version, 0, len(seen))
	for _, version := range seen {
		versions = append(versions, version)
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Less(versions[j])
	})
	return versions
}

// IsViolated reports whether any violation for packageName matches version
// for a criterion in closedDemand.
func (store *Store) IsViolated(packageName string, version semver.Version, closedDemand criteria.Set) bool {
	for _, violation := range store.Violations(packageName) {
		if !violation.Range.Contains(version) {
			continue
		}
		for name := range closedDemand {
			if violation.Criteria.Contains(name) {
				return true
			}
		}
	}
	return false
}

// ViolatedCriteria returns the subset of closedDemand that is forbidden for
// (packageName, version) by a violation entry.
func (store *Store) ViolatedCriteria(packageName string, version semver.Version, closedDemand criteria.Set) criteria.Set {
	violated := make(criteria.Set)
	for _, violation := range store.Violations(packageName) {
		if !violation.Range.Contains(version) {
			continue
		}
		for name := range closedDemand {
			if violation.Criteria.Contains(name) {
				violated[name] = struct{}{}
			}
		}
	}
	return violated
}
