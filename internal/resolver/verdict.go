package resolver

import (
	"github.com/vetkit/vetkit/internal/graphview"
)

// ReasonKind enumerates why a criterion went unmet for a node.
type ReasonKind int

// Supported unmet-demand reasons.
const (
	ReasonNoAudits ReasonKind = iota
	ReasonNoPathFromRoot
	ReasonBlockedByViolation
	ReasonDependencyUnmet
)

// Reason explains a single unmet criterion. Child and ChildCriterion are
// only populated for ReasonDependencyUnmet.
type Reason struct {
	Kind           ReasonKind
	Child          graphview.NodeID
	ChildCriterion string
}

// UnmetDemand pairs a demanded-but-unproven criterion with why it failed.
type UnmetDemand struct {
	Criterion string
	Reason    Reason
}

// WitnessKind classifies the kind of audit chain used to justify a
// satisfied criterion.
type WitnessKind int

// Supported witness kinds.
const (
	WitnessFull WitnessKind = iota
	WitnessDelta
	WitnessExemption
)

// Witness records which audit chain the resolver used to justify a
// satisfied criterion, for provenance and exemption-minimality accounting.
type Witness struct {
	Kind         WitnessKind
	ChainLength  int
	SourceLocal  bool
	SourceImport string
}

// ExemptionUse identifies a single exemption entry the resolver actually
// relied on to produce a satisfied verdict.
type ExemptionUse struct {
	Package   string
	Version   string
	Criterion string
}

// Verdict is the resolver's conclusion for one third-party graph node.
type Verdict struct {
	Node               graphview.NodeID
	PackageName        string
	Demanded           map[string]bool
	Satisfied          map[string]bool
	Violated           map[string]bool
	RelicsOnExemption  bool
	Witnesses          map[string]Witness
	Unmet              []UnmetDemand
}

func newVerdict(node graphview.NodeID, packageName string) *Verdict {
	return &Verdict{
		Node:        node,
		PackageName: packageName,
		Demanded:    make(map[string]bool),
		Satisfied:   make(map[string]bool),
		Violated:    make(map[string]bool),
		Witnesses:   make(map[string]Witness),
	}
}

// IsFullySatisfied reports whether every demanded criterion was satisfied.
func (verdict *Verdict) IsFullySatisfied() bool {
	return len(verdict.Unmet) == 0
}

func witnessFromChain(c chain) Witness {
	witness := Witness{ChainLength: c.Hops()}
	switch {
	case c.UsesExemption():
		witness.Kind = WitnessExemption
	case c.Hops() == 0:
		witness.Kind = WitnessFull
	default:
		witness.Kind = WitnessDelta
	}
	witness.SourceLocal = c.IsLocalOnly()
	if !witness.SourceLocal && len(c.links) > 0 {
		witness.SourceImport = c.links[len(c.links)-1].source().Identifier()
	}
	return witness
}

// Result is the resolver's output for an entire graph: one verdict per
// third-party node, plus the minimal set of exemptions actually relied on.
type Result struct {
	Verdicts       map[graphview.NodeID]*Verdict
	UsedExemptions []ExemptionUse
}

func newResult() *Result {
	return &Result{Verdicts: make(map[graphview.NodeID]*Verdict)}
}
