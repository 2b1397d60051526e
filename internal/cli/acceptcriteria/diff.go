// Package acceptcriteria compares the criteria table declared by a local
// audits file against the one declared by an imported peer's audits file,
// so a reviewer can tell whether a peer's changed criterion description or
// implication actually widens or narrows what this project's own criteria
// closure means before blindly accepting the peer's update.
package acceptcriteria

import (
	"sort"

	"github.com/vetkit/vetkit/internal/criteria"
)

// ChangedCriterion describes how one criterion's definition differs between
// the "from" (currently trusted) table and the "to" (newly offered) table.
type ChangedCriterion struct {
	Name                string
	ExistsInFrom        bool
	ExistsInTo          bool
	DescriptionChanged  bool
	OldDescription      string
	NewDescription      string
	ImpliesChanged      bool
	OldImplies          []string
	NewImplies          []string
	ClosureChanged      bool
}

// Diff reports every criterion whose description or implication set differs
// between fromTable and toTable, in sorted name order. ClosureChanged is set
// when the criterion's own forward closure (computed within its own table)
// differs between the two tables, meaning the change is not cosmetic: a
// dependency certified under the old meaning may no longer be certified
// under the new one, or vice versa.
func Diff(fromTable *criteria.Table, toTable *criteria.Table) []ChangedCriterion {
	nameSet := make(map[string]bool)
	for _, name := range fromTable.Names() {
		nameSet[name] = true
	}
	for _, name := range toTable.Names() {
		nameSet[name] = true
	}
	names := make([]string, 0, len(nameSet))
	for name := range nameSet {
		names = append(names, name)
	}
	sort.Strings(names)

	changes := make([]ChangedCriterion, 0)
	for _, name := range names {
		fromEntry, fromExists := fromTable.Entry(name)
		toEntry, toExists := toTable.Entry(name)

		descriptionChanged := fromEntry.Description != toEntry.Description
		impliesChanged := !equalStringSets(fromEntry.Implies, toEntry.Implies)
		if fromExists == toExists && !descriptionChanged && !impliesChanged {
			continue
		}

		changes = append(changes, ChangedCriterion{
			Name:               name,
			ExistsInFrom:       fromExists,
			ExistsInTo:         toExists,
			DescriptionChanged: descriptionChanged,
			OldDescription:     fromEntry.Description,
			NewDescription:     toEntry.Description,
			ImpliesChanged:     impliesChanged,
			OldImplies:         fromEntry.Implies,
			NewImplies:         toEntry.Implies,
			ClosureChanged:     !fromTable.Closure(criteria.NewSet(name)).Equal(toTable.Closure(criteria.NewSet(name))),
		})
	}
	return changes
}

func equalStringSets(left []string, right []string) bool {
	if len(left) != len(right) {
		return false
	}
	leftSorted := append([]string(nil), left...)
	rightSorted := append([]string(nil), right...)
	sort.Strings(leftSorted)
	sort.Strings(rightSorted)
	for index := range leftSorted {
		if leftSorted[index] != rightSorted[index] {
			return false
		}
	}
	return true
}
