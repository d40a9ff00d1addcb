package matching

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseDecimal interprets a value as an exact decimal number. Strings
// accept either "." or "," as the decimal separator; booleans are never
// numbers.
func parseDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case nil:
		return decimal.Decimal{}, false
	case bool:
		return decimal.Decimal{}, false
	case decimal.Decimal:
		return v, true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt32(v), true
	case int64:
		return decimal.NewFromInt(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case float64:
		return decimal.NewFromFloat(v), true
	case string:
		stripped := strings.TrimSpace(v)
		if stripped == "" {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(normalizeDecimalSeparators(stripped))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	default:
		return decimal.Decimal{}, false
	}
}

// normalizeDecimalSeparators maps locale-flavored number text onto the
// canonical "." decimal point. When both separators appear, the later one
// in the string is the decimal point and the other is a grouping
// separator.
func normalizeDecimalSeparators(value string) string {
	hasComma := strings.Contains(value, ",")
	hasDot := strings.Contains(value, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(value, ",") > strings.LastIndex(value, ".") {
			value = strings.ReplaceAll(value, ".", "")
			return strings.ReplaceAll(value, ",", ".")
		}
		return strings.ReplaceAll(value, ",", "")
	case hasComma:
		return strings.ReplaceAll(value, ",", ".")
	default:
		return value
	}
}

// evaluateTolerance checks an actual number against a tolerance
// expression. The second return reports whether the expression matched one
// of the tolerance grammars at all.
func evaluateTolerance(expression string, actual decimal.Decimal) (matched, applied bool) {
	text := strings.TrimSpace(expression)

	if m := plusMinusPattern.FindStringSubmatch(text); m != nil {
		center, tol, ok := parseToleranceParts(m[1], m[2])
		// |actual - center| <= tolerance
		return ok && actual.Sub(center).Abs().Cmp(tol) <= 0, true
	}
	if m := plusPattern.FindStringSubmatch(text); m != nil {
		center, tol, ok := parseToleranceParts(m[1], m[2])
		// actual <= center + tolerance
		return ok && actual.Cmp(center.Add(tol)) <= 0, true
	}
	if m := minusPattern.FindStringSubmatch(text); m != nil {
		center, tol, ok := parseToleranceParts(m[1], m[2])
		// actual >= center - tolerance
		return ok && actual.Cmp(center.Sub(tol)) >= 0, true
	}
	return false, false
}

func parseToleranceParts(centerRaw, toleranceRaw string) (center, tolerance decimal.Decimal, ok bool) {
	center, centerOK := parseDecimal(centerRaw)
	tolerance, toleranceOK := parseDecimal(toleranceRaw)
	return center, tolerance, centerOK && toleranceOK
}

// tryTolerance applies a tolerance expression to an actual value. Not
// applied when the expected value is not a string or the actual value is
// not numeric.
func tryTolerance(expected, actual any) (matched, applied bool) {
	expression, ok := expected.(string)
	if !ok {
		return false, false
	}
	actualNumber, ok := parseDecimal(actual)
	if !ok {
		return false, false
	}
	return evaluateTolerance(expression, actualNumber)
}
