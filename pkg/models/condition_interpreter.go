package models

import (
	"strconv"
	"strings"
)

// ConditionInterpreter evaluates the minimal expression grammar used by
// CONDITION nodes against a string variable map:
//
//	<var> > <int>          integer comparison, missing variables read as "0"
//	<var> == "<literal>"   string equality, missing variables read as ""
//
// Anything else evaluates to false. The ">" form is tried before "==".
type ConditionInterpreter struct{}

// Evaluate returns the truth value of expression against vars.
func (ConditionInterpreter) Evaluate(expression string, vars map[string]string) bool {
	if expression == "" {
		return false
	}

	if strings.Contains(expression, ">") {
		parts := splitOperands(expression, ">")
		if len(parts) != 2 {
			return false
		}

		value, ok := vars[strings.TrimSpace(parts[0])]
		if !ok {
			value = "0"
		}

		left, err := strconv.Atoi(value)
		if err != nil {
			return false
		}

		right, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return false
		}

		return left > right
	}

	if strings.Contains(expression, "==") {
		parts := splitOperands(expression, "==")
		if len(parts) != 2 {
			return false
		}

		expected := strings.ReplaceAll(strings.TrimSpace(parts[1]), `"`, "")

		return vars[strings.TrimSpace(parts[0])] == expected
	}

	return false
}

// splitOperands splits on sep and drops trailing empty operands, so "x >"
// yields a single operand.
func splitOperands(expression, sep string) []string {
	parts := strings.Split(expression, sep)
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}

	return parts
}
