package resolver

import (
	"fmt"
	"sort"

	"github.com/vetkit/vetkit/internal/criteria"
	"github.com/vetkit/vetkit/internal/semver"
	"github.com/vetkit/vetkit/internal/store"
)

// candidatesPerVersionCap bounds how many distinct root-to-version chains
// are carried through the DAG walk. Pass B only ever uses the first-ranked
// chain per version; an unbounded carry would let chain counts blow up
// combinatorially on densely delta-audited packages.
const candidatesPerVersionCap = 6

// link is a single hop in a chain: either a root (full audit or exemption)
// with no predecessor, or a delta audit extending a shorter chain.
type link struct {
	isDelta    bool
	isFull     bool
	isExemption bool
	full       store.FullAudit
	delta      store.DeltaAudit
	exemption  store.Exemption
}

func (linkValue link) dependencyDemand(dependency string) criteria.Set {
	switch {
	case linkValue.isDelta:
		return linkValue.delta.DependencyDemand(dependency)
	case linkValue.isExemption:
		// An exemption is equivalent to a full audit with no dependency
		// precondition: it grandfathers the version itself without asserting
		// anything about what it depends on.
		return criteria.Set{}
	default:
		return linkValue.full.DependencyDemand(dependency)
	}
}

func (linkValue link) source() store.Source {
	switch {
	case linkValue.isDelta:
		return linkValue.delta.Source
	case linkValue.isExemption:
		return linkValue.exemption.Source
	default:
		return linkValue.full.Source
	}
}

// chain is a directed path from a trusted root to a target version of a
// package, witnessing that the target satisfies one criterion.
type chain struct {
	links []link
}

// Hops returns the number of delta audits in the chain (0 for a bare root).
func (c chain) Hops() int {
	hops := 0
	for _, l := range c.links {
		if l.isDelta {
			hops++
		}
	}
	return hops
}

// UsesExemption reports whether the chain's root is an exemption, which
// marks the resulting verdict as relying on unreviewed technical debt.
func (c chain) UsesExemption() bool {
	return len(c.links) > 0 && c.links[0].isExemption
}

// IsLocalOnly reports whether every link in the chain originated locally
// rather than from an imported peer audit set.
func (c chain) IsLocalOnly() bool {
	for _, l := range c.links {
		if !l.source().IsLocal() {
			return false
		}
	}
	return true
}

// DependencyDemand returns the union, across every link in the chain, of
// the criteria that link requires of dependency. All links' preconditions
// must hold simultaneously, since every audit along the path independently
// asserted its own dependency precondition.
func (c chain) DependencyDemand(table *criteria.Table, dependency string) criteria.Set {
	result := make(criteria.Set)
	for _, l := range c.links {
		demand := l.dependencyDemand(dependency)
		for name := range table.Closure(demand) {
			result[name] = struct{}{}
		}
	}
	return result
}

// signature is a deterministic string used only for final lexicographic
// tie-breaking between otherwise-equal chains.
func (c chain) signature() string {
	signature := ""
	for _, l := range c.links {
		signature += fmt.Sprintf("|%v|%s|%s", l.isFull, l.source().Identifier(), chainLinkVersionKey(l))
	}
	return signature
}

func chainLinkVersionKey(l link) string {
	switch {
	case l.isDelta:
		return l.delta.From.String() + "->" + l.delta.To.String()
	case l.isExemption:
		return l.exemption.Version.String()
	default:
		return l.full.Version.String()
	}
}

// rank produces the comparison tuple used to order candidate chains when
// their dependency cost ties: (hops, rootIsExemption, anyImported, signature).
type rank struct {
	hops            int
	rootIsExemption int
	anyImported     int
	signature       string
}

func (c chain) rank() rank {
	rootIsExemption := 0
	if c.UsesExemption() {
		rootIsExemption = 1
	}
	anyImported := 0
	if !c.IsLocalOnly() {
		anyImported = 1
	}
	return rank{hops: c.Hops(), rootIsExemption: rootIsExemption, anyImported: anyImported, signature: c.signature()}
}

func lessRank(a, b rank) bool {
	if a.hops != b.hops {
		return a.hops < b.hops
	}
	if a.rootIsExemption != b.rootIsExemption {
		return a.rootIsExemption < b.rootIsExemption
	}
	if a.anyImported != b.anyImported {
		return a.anyImported < b.anyImported
	}
	return a.signature < b.signature
}

// reachability answers, for one package and one criterion, which versions
// are reached and by which candidate chains, ordered by static preference.
type reachability struct {
	candidatesByVersion map[string][]chain
}

// Reached reports whether version is reachable under the criterion this
// reachability was computed for.
func (r reachability) Reached(version semver.Version) bool {
	candidates, found := r.candidatesByVersion[version.String()]
	return found && len(candidates) > 0
}

// Candidates returns the ranked candidate chains for version, best first.
func (r reachability) Candidates(version semver.Version) []chain {
	return r.candidatesByVersion[version.String()]
}

// computeReachability implements Pass A for a single (package, criterion)
// pair: a memoized walk of the acyclic delta DAG restricted to edges whose
// criteria set contains criterionName, seeded from full-audit and exemption
// roots, excluding any version a violation forbids for this criterion.
func computeReachability(table *criteria.Table, dataStore *store.Store, packageName string, criterionName string) reachability {
	closedCriterionSet := criteria.NewSet(criterionName)

	isViolated := func(version semver.Version) bool {
		return dataStore.IsViolated(packageName, version, closedCriterionSet)
	}

	roots := make(map[string]chain)
	for _, full := range dataStore.FullAudits(packageName) {
		if !full.Criteria.Contains(criterionName) {
			continue
		}
		if isViolated(full.Version) {
			continue
		}
		key := full.Version.String()
		roots[key] = chain{links: []link{{isFull: true, full: full}}}
	}
	for _, exemption := range dataStore.Exemptions(packageName) {
		if !exemption.Criteria.Contains(criterionName) {
			continue
		}
		if isViolated(exemption.Version) {
			continue
		}
		key := exemption.Version.String()
		if _, alreadyFull := roots[key]; alreadyFull {
			continue
		}
		roots[key] = chain{links: []link{{isExemption: true, exemption: exemption}}}
	}

	incoming := make(map[string][]store.DeltaAudit)
	for _, delta := range dataStore.DeltaAudits(packageName) {
		if !delta.Criteria.Contains(criterionName) {
			continue
		}
		incoming[delta.To.String()] = append(incoming[delta.To.String()], delta)
	}

	memo := make(map[string][]chain)
	visiting := make(map[string]bool)

	var resolveVersion func(versionKey string, version semver.Version) []chain
	resolveVersion = func(versionKey string, version semver.Version) []chain {
		if cached, done := memo[versionKey]; done {
			return cached
		}
		if visiting[versionKey] {
			// The delta DAG is validated acyclic at store construction; this
			// guards against a caller-supplied store that skipped validation.
			return nil
		}
		if isViolated(version) {
			memo[versionKey] = nil
			return nil
		}
		visiting[versionKey] = true

		candidates := make([]chain, 0, candidatesPerVersionCap)
		if rootChain, isRoot := roots[versionKey]; isRoot {
			candidates = append(candidates, rootChain)
		}
		for _, delta := range incoming[versionKey] {
			predecessorCandidates := resolveVersion(delta.From.String(), delta.From)
			for _, predecessorChain := range predecessorCandidates {
				extended := chain{links: append(append([]link{}, predecessorChain.links...), link{isDelta: true, delta: delta})}
				candidates = append(candidates, extended)
			}
		}

		sort.Slice(candidates, func(i, j int) bool {
			return lessRank(candidates[i].rank(), candidates[j].rank())
		})
		candidates = dedupeAndCap(candidates)

		visiting[versionKey] = false
		memo[versionKey] = candidates
		return candidates
	}

	allVersions := dataStore.KnownVersions(packageName)
	for _, version := range allVersions {
		resolveVersion(version.String(), version)
	}

	return reachability{candidatesByVersion: memo}
}

func dedupeAndCap(candidates []chain) []chain {
	seen := make(map[string]bool, len(candidates))
	deduped := make([]chain, 0, len(candidates))
	for _, candidate := range candidates {
		signature := candidate.signature()
		if seen[signature] {
			continue
		}
		seen[signature] = true
		deduped = append(deduped, candidate)
		if len(deduped) >= candidatesPerVersionCap {
			break
		}
	}
	return deduped
}
