package literal

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Compare implements the total order within the compatibility classes:
// same-family numerics by value, same-language strings
// lexicographically, booleans false<true, datetimes chronologically.
// ok is false for incomparable pairs (different languages, cross-datatype
// non-numerics, NaN); callers must treat that as a reportable precondition
// violation, not a panic.
func (l Literal) Compare(other Literal) (cmp int, ok bool) {
	if l.kind == KindNumeric && other.kind == KindNumeric {
		return l.compareNumeric(other)
	}
	if l.kind != other.kind {
		return 0, false
	}
	switch l.kind {
	case KindString:
		if l.lang != other.lang {
			return 0, false
		}
		return compareStrings(l.lexical, other.lexical), true
	case KindBoolean:
		return compareBools(l.boolVal, other.boolVal), true
	case KindDatetime:
		switch {
		case l.timeVal.Before(other.timeVal):
			return -1, true
		case l.timeVal.After(other.timeVal):
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}

func (l Literal) compareNumeric(other Literal) (int, bool) {
	// Integer-family and decimal values compare as exact decimals; a
	// big.Float would round a long decimal to a 64-bit mantissa.
	lExact := l.numKind == KindDecimal || l.numKind.isIntegerFamily()
	rExact := other.numKind == KindDecimal || other.numKind.isIntegerFamily()
	if lExact && rExact {
		ld, rd := l.decVal, other.decVal
		if l.numKind.isIntegerFamily() {
			ld = decimal.NewFromBigInt(l.intVal, 0)
		}
		if other.numKind.isIntegerFamily() {
			rd = decimal.NewFromBigInt(other.intVal, 0)
		}
		return ld.Cmp(rd), true
	}
	// asBigFloat reports not-ok for NaN, so an incomparable pair falls
	// through here rather than panicking inside big.Float.
	lf, lok := l.asBigFloat()
	rf, rok := other.asBigFloat()
	if !lok || !rok {
		return 0, false
	}
	return lf.Cmp(rf), true
}

func isNaN(l Literal) bool {
	if l.kind != KindNumeric {
		return false
	}
	switch l.numKind {
	case KindDouble:
		return l.f64Val != l.f64Val
	case KindFloat:
		return l.f32Val != l.f32Val
	}
	return false
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBools(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

// MustCompare panics on an incomparable pair; reserved for tests and
// callers that have already established comparability.
func (l Literal) MustCompare(other Literal) int {
	c, ok := l.Compare(other)
	if !ok {
		panic(fmt.Sprintf("incomparable literals: %v vs %v", l, other))
	}
	return c
}
