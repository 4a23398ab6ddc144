package literal

import "math/big"

// Match implements structural equality: StringLiterals
// compare lexical form and language tag, DatatypeLiterals compare datatype
// and lexical form, numerics compare numerically across variants so
// `"42"^^xsd:integer` equals an explicit integer(42), and any other
// cross-variant pairing is false.
func (l Literal) Match(other Literal) bool {
	if l.kind == KindNumeric && other.kind == KindNumeric {
		return l.numericEqual(other)
	}
	if l.kind != other.kind {
		return false
	}
	switch l.kind {
	case KindString:
		return l.lexical == other.lexical && l.lang == other.lang
	case KindDatatype:
		return l.lexical == other.lexical && l.datatype == other.datatype
	case KindBoolean:
		return l.boolVal == other.boolVal
	case KindDatetime:
		return l.timeVal.Equal(other.timeVal)
	case KindWrongDatatype:
		return l.lexical == other.lexical && l.datatype == other.datatype
	}
	return false
}

func (l Literal) numericEqual(other Literal) bool {
	lf, lok := l.asBigFloat()
	rf, rok := other.asBigFloat()
	if !lok || !rok {
		return false
	}
	return lf.Cmp(rf) == 0
}

// asBigFloat widens any numeric variant to a big.Float for cross-variant
// comparison, so `"42"^^xsd:integer` equals an explicit integer(42).
// NaN doubles and floats report not-ok: "NaN"^^xsd:double is a valid
// literal, and big.NewFloat panics on a NaN argument.
func (l Literal) asBigFloat() (*big.Float, bool) {
	if l.kind != KindNumeric {
		return nil, false
	}
	if l.numKind.isIntegerFamily() {
		return new(big.Float).SetInt(l.intVal), true
	}
	switch l.numKind {
	case KindDecimal:
		f, _ := new(big.Float).SetString(l.decVal.String())
		return f, f != nil
	case KindDouble:
		if isNaN(l) {
			return nil, false
		}
		return big.NewFloat(l.f64Val), true
	case KindFloat:
		if isNaN(l) {
			return nil, false
		}
		return big.NewFloat(float64(l.f32Val)), true
	}
	return nil, false
}
