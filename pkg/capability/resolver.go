package capability

import (
	"strconv"
	"strings"
)

// RequirementsSatisfied reports whether a worker with the given capabilities
// qualifies for work carrying the given requirements.
//
// A requirement on a capability the worker does not declare is evaluated
// against an absent value. When the worker declares the capability one or
// more times, at least one of the declared values must satisfy the constraint.
func RequirementsSatisfied(requirements Requirements, capabilities Capabilities) bool {
	if len(requirements) == 0 {
		return true
	}

	values := capabilities.Map()
	for _, requirement := range requirements {
		if !requirementSatisfied(requirement, values[requirement.CapabilityName]) {
			return false
		}
	}
	return true
}

func requirementSatisfied(requirement Requirement, values []string) bool {
	if len(values) == 0 {
		return evaluate(requirement.Constraint, nil)
	}

	for i := range values {
		if evaluate(requirement.Constraint, &values[i]) {
			return true
		}
	}
	return false
}

// Evaluates the constraint against a capability value, nil meaning absent.
// Malformed constraints evaluate to false.
func evaluate(c Constraint, value *string) bool {
	switch c.Type {
	case ConstraintAbsent:
		return value == nil

	case ConstraintEqual:
		return value != nil && *value == c.Value

	case ConstraintLessThan:
		return value != nil && compare(*value, c.Value) < 0

	case ConstraintGreaterThan:
		return value != nil && compare(*value, c.Value) > 0

	case ConstraintNot:
		if len(c.Constraints) != 1 {
			return false
		}
		return !evaluate(c.Constraints[0], value)

	case ConstraintAll:
		for _, operand := range c.Constraints {
			if !evaluate(operand, value) {
				return false
			}
		}
		return true

	case ConstraintAny:
		for _, operand := range c.Constraints {
			if evaluate(operand, value) {
				return true
			}
		}
		return false

	default:
		return false
	}
}

// Numeric comparison when both sides parse as numbers, lexicographic otherwise.
func compare(a, b string) int {
	af, aerr := strconv.ParseFloat(strings.TrimSpace(a), 64)
	bf, berr := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if aerr == nil && berr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}
