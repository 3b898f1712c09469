package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func caps(pairs ...string) Capabilities {
	c := NewCapabilities()
	for i := 0; i+1 < len(pairs); i += 2 {
		c.Add(pairs[i], pairs[i+1])
	}
	return c
}

func TestRequirementsSatisfied(t *testing.T) {
	worker := caps(
		"os.major", "13",
		"xcode.version", "15.3",
		"arch", "arm64",
		"simulator.runtime", "iOS 16.4",
		"simulator.runtime", "iOS 17.2",
	)

	tests := []struct {
		name         string
		requirements Requirements
		expected     bool
	}{
		{"no requirements", nil, true},
		{"equal", Requirements{Require("arch", Equal("arm64"))}, true},
		{"not equal", Requirements{Require("os.major", Equal("14"))}, false},
		{"numeric less than", Requirements{Require("os.major", LessThan("14"))}, true},
		{"numeric not greater", Requirements{Require("os.major", GreaterThan("13"))}, false},
		{"numeric beats lexicographic", Requirements{Require("xcode.version", GreaterThan("9.1"))}, true},
		{"string fallback", Requirements{Require("arch", LessThan("x86_64"))}, true},
		{"any duplicate value matches", Requirements{Require("simulator.runtime", Equal("iOS 17.2"))}, true},
		{"no duplicate value matches", Requirements{Require("simulator.runtime", Equal("iOS 15.0"))}, false},
		{"absent on missing", Requirements{Require("gpu", Absent())}, true},
		{"absent on present", Requirements{Require("arch", Absent())}, false},
		{"missing capability", Requirements{Require("gpu", Equal("yes"))}, false},
		{"not on missing", Requirements{Require("gpu", Not(Equal("yes")))}, true},
		{"not on present", Requirements{Require("arch", Not(Equal("arm64")))}, false},
		{"all", Requirements{Require("os.major", All(GreaterThan("12"), LessThan("14")))}, true},
		{"all failing", Requirements{Require("os.major", All(GreaterThan("13"), LessThan("14")))}, false},
		{"any", Requirements{Require("os.major", Any(Equal("12"), Equal("13")))}, true},
		{"any empty", Requirements{Require("os.major", Any())}, false},
		{"all empty", Requirements{Require("os.major", All())}, true},
		{"conjunctive", Requirements{
			Require("arch", Equal("arm64")),
			Require("os.major", Equal("14")),
		}, false},
		{"malformed not", Requirements{Require("arch", Constraint{Type: ConstraintNot})}, false},
		{"unknown type", Requirements{Require("arch", Constraint{Type: "regex", Value: ".*"})}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, RequirementsSatisfied(test.requirements, worker))
		})
	}
}

func TestCapabilityGate(t *testing.T) {
	requirements := Requirements{Require("os.major", Equal("14"))}
	assert.False(t, RequirementsSatisfied(requirements, caps("os.major", "13")))
	assert.True(t, RequirementsSatisfied(requirements, caps("os.major", "14")))
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, compare("2", "10"))
	assert.Equal(t, 1, compare("10", "2.5"))
	assert.Equal(t, 0, compare("1.0", "1"))
	// 14.4.1 is not a number, so the comparison is lexicographic
	assert.Equal(t, 1, compare("14.4.1", "14.10"))
}

func TestConstraintString(t *testing.T) {
	c := All(GreaterThan("12"), Not(Equal("13")))
	assert.Equal(t, `all(> "12", not(== "13"))`, c.String())
	assert.Equal(t, `os.major == "14"`, Require("os.major", Equal("14")).String())
}
