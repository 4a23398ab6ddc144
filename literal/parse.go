package literal

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FromLexical parses lexical against datatype. A recognised XSD datatype
// that fails to parse produces a WrongDatatypeLiteral carrying the parse
// error, rather than an error return: malformed input is data, not a
// reason to abort.
func FromLexical(lexical, datatype string) Literal {
	switch datatype {
	case XSDString:
		return String(lexical, "")
	case XSDBoolean:
		b, err := parseBool(lexical)
		if err != nil {
			return WrongDatatype(lexical, datatype, err.Error())
		}
		return Boolean(b)
	case XSDDateTime:
		t, err := parseDateTime(lexical)
		if err != nil {
			return WrongDatatype(lexical, datatype, err.Error())
		}
		return Datetime(t)
	case XSDDecimal:
		d, err := decimal.NewFromString(strings.TrimSpace(lexical))
		if err != nil {
			return WrongDatatype(lexical, datatype, err.Error())
		}
		return Decimal(d)
	case XSDDouble:
		f, err := strconv.ParseFloat(strings.TrimSpace(lexical), 64)
		if err != nil {
			return WrongDatatype(lexical, datatype, err.Error())
		}
		return Double(f)
	case XSDFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(lexical), 32)
		if err != nil {
			return WrongDatatype(lexical, datatype, err.Error())
		}
		return Float(float32(f))
	}

	if kind, ok := integerKindFor(datatype); ok {
		n, err := parseBigInt(lexical)
		if err != nil {
			return WrongDatatype(lexical, datatype, err.Error())
		}
		lit, err := rangeChecked(kind, n)
		if err != nil {
			return WrongDatatype(lexical, datatype, err.Error())
		}
		return lit
	}

	// Not a recognised XSD type: carry the lexical form unchanged.
	return Datatype(lexical, datatype)
}

func integerKindFor(datatype string) (NumericKind, bool) {
	switch datatype {
	case XSDInteger:
		return KindInteger, true
	case XSDLong:
		return KindLong, true
	case XSDShort:
		return KindShort, true
	case XSDByte:
		return KindByte, true
	case XSDUnsignedInt:
		return KindUnsignedInt, true
	case XSDUnsignedLong:
		return KindUnsignedLong, true
	case XSDUnsignedShort:
		return KindUnsignedShort, true
	case XSDUnsignedByte:
		return KindUnsignedByte, true
	case XSDNonNegativeInteger:
		return KindNonNegativeInteger, true
	case XSDNonPositiveInteger:
		return KindNonPositiveInteger, true
	case XSDPositiveInteger:
		return KindPositiveInteger, true
	case XSDNegativeInteger:
		return KindNegativeInteger, true
	}
	return 0, false
}

func parseBigInt(lexical string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(lexical), 10)
	if !ok {
		return nil, fmt.Errorf("%q is not a valid integer", lexical)
	}
	return n, nil
}

// rangeChecked applies the same range constraints as the constructors in
// literal.go, returning an error (rather than panicking) so FromLexical can
// fold it into a WrongDatatypeLiteral.
func rangeChecked(kind NumericKind, n *big.Int) (Literal, error) {
	switch kind {
	case KindNonNegativeInteger, KindUnsignedByte, KindUnsignedShort, KindUnsignedInt, KindUnsignedLong:
		if n.Sign() < 0 {
			return Literal{}, fmt.Errorf("%s requires a non-negative value, got %s", datatypeName(kind), n)
		}
	case KindNonPositiveInteger:
		if n.Sign() > 0 {
			return Literal{}, fmt.Errorf("nonPositiveInteger requires <= 0, got %s", n)
		}
	case KindPositiveInteger:
		if n.Sign() <= 0 {
			return Literal{}, fmt.Errorf("positiveInteger requires > 0, got %s", n)
		}
	case KindNegativeInteger:
		if n.Sign() >= 0 {
			return Literal{}, fmt.Errorf("negativeInteger requires < 0, got %s", n)
		}
	}
	if err := checkBitWidth(kind, n); err != nil {
		return Literal{}, err
	}
	return integerLit(kind, n), nil
}

func datatypeName(k NumericKind) string { return strings.TrimPrefix(k.Datatype(), xsdNS) }

func checkBitWidth(kind NumericKind, n *big.Int) error {
	var bits int
	var signed bool
	switch kind {
	case KindByte:
		bits, signed = 8, true
	case KindShort:
		bits, signed = 16, true
	case KindLong:
		bits, signed = 64, true
	case KindUnsignedByte:
		bits, signed = 8, false
	case KindUnsignedShort:
		bits, signed = 16, false
	case KindUnsignedInt:
		bits, signed = 32, false
	case KindUnsignedLong:
		bits, signed = 64, false
	default:
		return nil
	}
	if signed {
		max := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
		min := new(big.Int).Neg(max)
		max.Sub(max, big.NewInt(1))
		if n.Cmp(min) < 0 || n.Cmp(max) > 0 {
			return fmt.Errorf("%s out of range for %d-bit signed integer", n, bits)
		}
	} else {
		max := new(big.Int).Lsh(big.NewInt(1), uint(bits))
		max.Sub(max, big.NewInt(1))
		if n.Sign() < 0 || n.Cmp(max) > 0 {
			return fmt.Errorf("%s out of range for %d-bit unsigned integer", n, bits)
		}
	}
	return nil
}

func parseBool(lexical string) (bool, error) {
	switch strings.TrimSpace(lexical) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a valid xsd:boolean", lexical)
}

var dateTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func parseDateTime(lexical string) (time.Time, error) {
	lexical = strings.TrimSpace(lexical)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, lexical); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a valid xsd:dateTime", lexical)
}

// AsChecked re-validates a DatatypeLiteral by attempting FromLexical with
// its own datatype, producing either a native variant or a
// WrongDatatypeLiteral. It is idempotent: called on an already-native
// variant or a WrongDatatypeLiteral, it returns the receiver unchanged.
func (l Literal) AsChecked() Literal {
	if l.kind != KindDatatype {
		return l
	}
	checked := FromLexical(l.lexical, l.datatype)
	if checked.kind == KindDatatype {
		// datatype still unrecognised: nothing changed.
		return l
	}
	return checked
}
