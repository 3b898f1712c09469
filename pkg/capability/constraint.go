package capability

import (
	"fmt"
	"strings"
)

type ConstraintType string

const (
	ConstraintAbsent      ConstraintType = "absent"
	ConstraintEqual       ConstraintType = "equal"
	ConstraintLessThan    ConstraintType = "lessThan"
	ConstraintGreaterThan ConstraintType = "greaterThan"
	ConstraintNot         ConstraintType = "not"
	ConstraintAll         ConstraintType = "all"
	ConstraintAny         ConstraintType = "any"
)

// A boolean expression over a single capability value.
//
// Value is the operand of equal, lessThan and greaterThan.
// Constraints holds the operands of all and any, and the single operand of not.
type Constraint struct {
	Type        ConstraintType `json:"type" yaml:"type"`
	Value       string         `json:"value,omitempty" yaml:"value,omitempty"`
	Constraints []Constraint   `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

func Absent() Constraint {
	return Constraint{Type: ConstraintAbsent}
}

func Equal(value string) Constraint {
	return Constraint{Type: ConstraintEqual, Value: value}
}

func LessThan(value string) Constraint {
	return Constraint{Type: ConstraintLessThan, Value: value}
}

func GreaterThan(value string) Constraint {
	return Constraint{Type: ConstraintGreaterThan, Value: value}
}

func Not(c Constraint) Constraint {
	return Constraint{Type: ConstraintNot, Constraints: []Constraint{c}}
}

func All(cs ...Constraint) Constraint {
	return Constraint{Type: ConstraintAll, Constraints: cs}
}

func Any(cs ...Constraint) Constraint {
	return Constraint{Type: ConstraintAny, Constraints: cs}
}

func (c Constraint) String() string {
	switch c.Type {
	case ConstraintAbsent:
		return "absent"
	case ConstraintEqual:
		return fmt.Sprintf("== %q", c.Value)
	case ConstraintLessThan:
		return fmt.Sprintf("< %q", c.Value)
	case ConstraintGreaterThan:
		return fmt.Sprintf("> %q", c.Value)
	case ConstraintNot, ConstraintAll, ConstraintAny:
		operands := make([]string, len(c.Constraints))
		for i, operand := range c.Constraints {
			operands[i] = operand.String()
		}
		return fmt.Sprintf("%s(%s)", c.Type, strings.Join(operands, ", "))
	default:
		return fmt.Sprintf("invalid(%s)", c.Type)
	}
}

// A constraint on the named capability, attached to a bucket.
type Requirement struct {
	CapabilityName string     `json:"capabilityName" yaml:"capabilityName"`
	Constraint     Constraint `json:"constraint" yaml:"constraint"`
}

func (r Requirement) String() string {
	return r.CapabilityName + " " + r.Constraint.String()
}

// Requirements are conjunctive, every one must be satisfied.
type Requirements []Requirement

// Require creates a requirement on the named capability.
func Require(name string, constraint Constraint) Requirement {
	return Requirement{CapabilityName: name, Constraint: constraint}
}
