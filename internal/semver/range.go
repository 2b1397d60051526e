package semver

import (
	"fmt"
	"strings"
)

const (
	operatorGreaterEqualConstant = ">="
	operatorLessEqualConstant    = "<="
	operatorGreaterConstant      = ">"
	operatorLessConstant         = "<"
	operatorEqualConstant        = "="

	malformedRangeTemplateConstant     = "malformed version range %q: %w"
	malformedConstraintTemplateConstant = "malformed range constraint %q"
)

// constraint is a single "<op><version>" term, e.g. ">=1.0".
type constraint struct {
	operator string
	version  Version
}

func (c constraint) matches(candidate Version) bool {
	comparison := candidate.Compare(c.version)
	switch c.operator {
	case operatorGreaterEqualConstant:
		return comparison >= 0
	case operatorLessEqualConstant:
		return comparison <= 0
	case operatorGreaterConstant:
		return comparison > 0
	case operatorLessConstant:
		return comparison < 0
	default:
		return comparison == 0
	}
}

// Range is a conjunction of constraints, such as ">=1.0, <3.0" meaning every
// version V with 1.0 <= V < 3.0. A bare version with no operator is an exact
// match. An empty Range matches every version.
type Range struct {
	constraints []constraint
	text        string
}

// ParseRange parses a comma-separated list of "<op><version>" constraints.
func ParseRange(raw string) (Range, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Range{text: trimmed}, nil
	}

	terms := strings.Split(trimmed, ",")
	constraints := make([]constraint, 0, len(terms))
	for _, term := range terms {
		parsedConstraint, parseError := parseConstraint(term)
		if parseError != nil {
			return Range{}, fmt.Errorf(malformedRangeTemplateConstant, raw, parseError)
		}
		constraints = append(constraints, parsedConstraint)
	}

	return Range{constraints: constraints, text: trimmed}, nil
}

func parseConstraint(term string) (constraint, error) {
	trimmedTerm := strings.TrimSpace(term)
	if len(trimmedTerm) == 0 {
		return constraint{}, fmt.Errorf(malformedConstraintTemplateConstant, term)
	}

	for _, operator := range []string{operatorGreaterEqualConstant, operatorLessEqualConstant, operatorGreaterConstant, operatorLessConstant, operatorEqualConstant} {
		if strings.HasPrefix(trimmedTerm, operator) {
			versionText := strings.TrimSpace(strings.TrimPrefix(trimmedTerm, operator))
			version, parseError := Parse(versionText)
			if parseError != nil {
				return constraint{}, parseError
			}
			return constraint{operator: operator, version: version}, nil
		}
	}

	version, parseError := Parse(trimmedTerm)
	if parseError != nil {
		return constraint{}, parseError
	}
	return constraint{operator: operatorEqualConstant, version: version}, nil
}

// Contains reports whether candidate satisfies every constraint in the
// range. An empty Range contains every version.
func (versionRange Range) Contains(candidate Version) bool {
	for _, eachConstraint := range versionRange.constraints {
		if !eachConstraint.matches(candidate) {
			return false
		}
	}
	return true
}

// String renders the range's original textual form.
func (versionRange Range) String() string {
	return versionRange.text
}
