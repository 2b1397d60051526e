package criteria

import (
	"fmt"
	"sort"
)

const (
	// SafeToRun is the weakest built-in criterion: it is safe to execute the
	// package's build scripts and test suite in a sandboxed environment.
	SafeToRun = "safe-to-run"
	// SafeToDeploy implies SafeToRun and additionally certifies the package is
	// safe to ship in a production artifact.
	SafeToDeploy = "safe-to-deploy"

	unknownCriterionTemplateConstant   = "unknown criterion %q"
	duplicateCriterionTemplateConstant = "criterion %q declared more than once"
	impliesCycleTemplateConstant       = "criteria implication graph has a cycle involving %q"
)

// Entry describes a single named criterion: its human description and the
// criteria it implies. The implies relation is transitive; Table.Closure
// forward-closes a Set under it.
type Entry struct {
	Name        string
	Description string
	Implies     []string
}

// Table is the validated, immutable set of criteria known to a project. It is
// constructed once via NewTable and never mutated afterward.
type Table struct {
	entries map[string]Entry
	order   []string
}

// NewTable validates the supplied entries (no unknown implies targets, no
// duplicate names, the implies graph is acyclic) and returns an immutable
// Table. The two built-in criteria are injected automatically if absent.
func NewTable(entries []Entry) (*Table, error) {
	builtins := []Entry{
		{Name: SafeToRun, Description: "safe to build and run locally"},
		{Name: SafeToDeploy, Description: "safe to ship in a production build", Implies: []string{SafeToRun}},
	}

	byName := make(map[string]Entry, len(entries)+len(builtins))
	order := make([]string, 0, len(entries)+len(builtins))

	register := func(entry Entry) error {
		if _, exists := byName[entry.Name]; exists {
			return fmt.Errorf(duplicateCriterionTemplateConstant, entry.Name)
		}
		byName[entry.Name] = entry
		order = append(order, entry.Name)
		return nil
	}

	for _, builtin := range builtins {
		if registerError := register(builtin); registerError != nil {
			return nil, registerError
		}
	}

	for _, entry := range entries {
		if entry.Name == SafeToRun || entry.Name == SafeToDeploy {
			// Projects are permitted to redeclare the built-ins (e.g. to extend
			// their description); later declarations win but do not duplicate
			// the implication edges already registered above.
			existing := byName[entry.Name]
			existing.Description = entry.Description
			byName[entry.Name] = existing
			continue
		}
		if registerError := register(entry); registerError != nil {
			return nil, registerError
		}
	}

	for _, name := range order {
		for _, implied := range byName[name].Implies {
			if _, exists := byName[implied]; !exists {
				return nil, fmt.Errorf(unknownCriterionTemplateConstant, implied)
			}
		}
	}

	if cycleNode, hasCycle := detectCycle(byName); hasCycle {
		return nil, fmt.Errorf(impliesCycleTemplateConstant, cycleNode)
	}

	return &Table{entries: byName, order: order}, nil
}

// Exists reports whether name is a known criterion.
func (table *Table) Exists(name string) bool {
	_, exists := table.entries[name]
	return exists
}

// Names returns all known criterion names in declaration order.
func (table *Table) Names() []string {
	names := make([]string, len(table.order))
	copy(names, table.order)
	return names
}

// Entries returns every known criterion's full definition in declaration
// order.
func (table *Table) Entries() []Entry {
	entries := make([]Entry, len(table.order))
	for index, name := range table.order {
		entries[index] = table.entries[name]
	}
	return entries
}

// Entry returns the definition of a single known criterion.
func (table *Table) Entry(name string) (Entry, bool) {
	entry, exists := table.entries[name]
	return entry, exists
}

// ValidateNames returns a ReferenceError-shaped error for the first name in
// names that is not a known criterion, or nil if all are known.
func (table *Table) ValidateNames(names ...string) error {
	for _, name := range names {
		if !table.Exists(name) {
			return fmt.Errorf(unknownCriterionTemplateConstant, name)
		}
	}
	return nil
}

// Closure forward-closes set under the implies relation.
func (table *Table) Closure(set Set) Set {
	closed := make(Set, len(set))
	var visit func(name string)
	visit = func(name string) {
		if _, already := closed[name]; already {
			return
		}
		closed[name] = struct{}{}
		entry, known := table.entries[name]
		if !known {
			return
		}
		for _, implied := range entry.Implies {
			visit(implied)
		}
	}
	for name := range set {
		visit(name)
	}
	return closed
}

// ReverseClosure closes set upward under the implies relation: for every
// name in set, it also includes every criterion whose forward closure
// contains name. This is the dual of Closure, and is the direction that
// applies to violations rather than audits: violating a weaker criterion
// (e.g. SafeToRun) also violates every stronger criterion that depends on
// it (e.g. SafeToDeploy), but violating a stronger criterion does not by
// itself violate the weaker ones it implies.
func (table *Table) ReverseClosure(set Set) Set {
	closed := make(Set, len(set))
	for name := range set {
		closed[name] = struct{}{}
	}
	for _, candidateName := range table.order {
		candidateClosure := table.Closure(NewSet(candidateName))
		for name := range set {
			if _, contains := candidateClosure[name]; contains {
				closed[candidateName] = struct{}{}
				break
			}
		}
	}
	return closed
}

// Satisfies reports whether the closure of have is a superset of the closure
// of need.
func (table *Table) Satisfies(have, need Set) bool {
	closedHave := table.Closure(have)
	closedNeed := table.Closure(need)
	for name := range closedNeed {
		if _, present := closedHave[name]; !present {
			return false
		}
	}
	return true
}

// Meet returns the intersection of the closures of a and b: the criteria
// guaranteed to hold when only one of two alternatives was actually taken.
func (table *Table) Meet(a, b Set) Set {
	closedA := table.Closure(a)
	closedB := table.Closure(b)
	result := make(Set)
	for name := range closedA {
		if _, present := closedB[name]; present {
			result[name] = struct{}{}
		}
	}
	return result
}

// Join returns the union of the closures of a and b: the criteria known when
// both alternatives are independently established on the same version.
func (table *Table) Join(a, b Set) Set {
	result := table.Closure(a)
	for name := range table.Closure(b) {
		result[name] = struct{}{}
	}
	return result
}

func detectCycle(entries map[string]Entry) (string, bool) {
	const (
		stateUnvisited = 0
		stateVisiting  = 1
		stateDone      = 2
	)
	state := make(map[string]int, len(entries))

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var cyclicNode string
	var walk func(name string) bool
	walk = func(name string) bool {
		switch state[name] {
		case stateVisiting:
			cyclicNode = name
			return true
		case stateDone:
			return false
		}
		state[name] = stateVisiting
		for _, implied := range entries[name].Implies {
			if walk(implied) {
				return true
			}
		}
		state[name] = stateDone
		return false
	}

	for _, name := range names {
		if state[name] == stateUnvisited {
			if walk(name) {
				return cyclicNode, true
			}
		}
	}
	return "", false
}
