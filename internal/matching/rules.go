package matching

import (
	"regexp"
	"strings"
)

// MustBeEmptySentinel is the reserved cell value asserting that a field
// must be empty in the actual event. Case-sensitive.
const MustBeEmptySentinel = "MUSS_LEER_SEIN"

// Rule is the parsed expectation for one expected cell value.
// Only Ignore, MustBeEmpty, Exact, and Tolerance implement it.
type Rule interface {
	rule() // sealed
}

// Ignore skips the field entirely; no mismatch is possible.
type Ignore struct{}

func (Ignore) rule() {}

// MustBeEmpty asserts the actual value is nil or all-whitespace.
type MustBeEmpty struct{}

func (MustBeEmpty) rule() {}

// Exact asserts equality with the expected value (numeric equality for
// numeric fields, normalized string equality otherwise).
type Exact struct {
	Value any
}

func (Exact) rule() {}

// Tolerance holds an unevaluated tolerance expression such as
// "3,14+-0,2". The original string is kept; evaluation happens against the
// actual value at validation time.
type Tolerance struct {
	Expression string
}

func (Tolerance) rule() {}

const numberPattern = `[+-]?\d+(?:[.,]\d+)?`

var (
	plusMinusPattern = regexp.MustCompile(`^\s*(` + numberPattern + `)\s*\+\-\s*(` + numberPattern + `)\s*$`)
	plusPattern      = regexp.MustCompile(`^\s*(` + numberPattern + `)\s*\+\s*(` + numberPattern + `)\s*$`)
	minusPattern     = regexp.MustCompile(`^\s*(` + numberPattern + `)\s*\-\s*(` + numberPattern + `)\s*$`)
)

// ParseRule classifies a raw expected cell value into an explicit rule.
// Rules are stateless and recomputed per validation call.
func ParseRule(raw any) Rule {
	if raw == nil {
		return Ignore{}
	}
	s, ok := raw.(string)
	if !ok {
		return Exact{Value: raw}
	}
	stripped := strings.TrimSpace(s)
	if stripped == "" {
		return Ignore{}
	}
	if stripped == MustBeEmptySentinel {
		return MustBeEmpty{}
	}
	if isToleranceExpression(stripped) {
		return Tolerance{Expression: stripped}
	}
	return Exact{Value: stripped}
}

func isToleranceExpression(value string) bool {
	return plusMinusPattern.MatchString(value) ||
		plusPattern.MatchString(value) ||
		minusPattern.MatchString(value)
}
