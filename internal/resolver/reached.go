package resolver

import (
	"sort"

	"github.com/vetkit/vetkit/internal/criteria"
	"github.com/vetkit/vetkit/internal/semver"
	"github.com/vetkit/vetkit/internal/store"
)

// ReachedVersions exposes Pass A's reachability computation for a single
// (package, criterion) pair to callers outside the resolver — chiefly the
// suggester, which needs to know which versions of a package are already
// provably C-satisfied in order to propose the cheapest bridging delta.
func ReachedVersions(table *criteria.Table, dataStore *store.Store, packageName, criterionName string) []semver.Version {
	reachedSet := computeReachability(table, dataStore, packageName, criterionName)

	versions := make([]semver.Version, 0)
	for _, version := range dataStore.KnownVersions(packageName) {
		if reachedSet.Reached(version) {
			versions = append(versions, version)
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Less(versions[j])
	})
	return versions
}
