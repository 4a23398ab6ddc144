// Package literal implements the type-safe RDF literal model:
// lexical↔value conversion for the recognised XSD datatypes,
// structural match, total ordering within compatibility classes, and a
// WrongDatatypeLiteral carrier that preserves malformed input instead of
// aborting parsing.
//
// A single struct with a kind tag keeps the union closed and FromLexical
// a single dispatch, instead of spreading the variants over N Go types.
package literal

import (
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// XSD datatype IRIs recognised natively. Anything else round-trips as a
// DatatypeLiteral unless parsing is attempted and fails, in which case it
// becomes a WrongDatatypeLiteral.
const (
	xsdNS = "http://www.w3.org/2001/XMLSchema#"

	XSDString             = xsdNS + "string"
	XSDBoolean             = xsdNS + "boolean"
	XSDInteger             = xsdNS + "integer"
	XSDLong                = xsdNS + "long"
	XSDShort               = xsdNS + "short"
	XSDByte                = xsdNS + "byte"
	XSDDecimal             = xsdNS + "decimal"
	XSDDouble              = xsdNS + "double"
	XSDFloat               = xsdNS + "float"
	XSDUnsignedByte        = xsdNS + "unsignedByte"
	XSDUnsignedShort       = xsdNS + "unsignedShort"
	XSDUnsignedInt         = xsdNS + "unsignedInt"
	XSDUnsignedLong        = xsdNS + "unsignedLong"
	XSDNonNegativeInteger  = xsdNS + "nonNegativeInteger"
	XSDNonPositiveInteger  = xsdNS + "nonPositiveInteger"
	XSDPositiveInteger     = xsdNS + "positiveInteger"
	XSDNegativeInteger     = xsdNS + "negativeInteger"
	XSDDateTime            = xsdNS + "dateTime"

	RDFLangString = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
)

// NumericKind tags the variant carried by a NumericLiteral, mirroring
// tagged union over {integer, decimal, double, float, long,
// short, byte, unsignedInt, unsignedLong, unsignedShort, unsignedByte,
// nonNegativeInteger, nonPositiveInteger, positiveInteger, negativeInteger}.
type NumericKind int

const (
	KindInteger NumericKind = iota
	KindLong
	KindShort
	KindByte
	KindUnsignedInt
	KindUnsignedLong
	KindUnsignedShort
	KindUnsignedByte
	KindNonNegativeInteger
	KindNonPositiveInteger
	KindPositiveInteger
	KindNegativeInteger
	KindDecimal
	KindDouble
	KindFloat
)

func (k NumericKind) Datatype() string {
	switch k {
	case KindInteger:
		return XSDInteger
	case KindLong:
		return XSDLong
	case KindShort:
		return XSDShort
	case KindByte:
		return XSDByte
	case KindUnsignedInt:
		return XSDUnsignedInt
	case KindUnsignedLong:
		return XSDUnsignedLong
	case KindUnsignedShort:
		return XSDUnsignedShort
	case KindUnsignedByte:
		return XSDUnsignedByte
	case KindNonNegativeInteger:
		return XSDNonNegativeInteger
	case KindNonPositiveInteger:
		return XSDNonPositiveInteger
	case KindPositiveInteger:
		return XSDPositiveInteger
	case KindNegativeInteger:
		return XSDNegativeInteger
	case KindDecimal:
		return XSDDecimal
	case KindDouble:
		return XSDDouble
	case KindFloat:
		return XSDFloat
	}
	return ""
}

// isIntegerFamily reports whether k is backed by an arbitrary-precision
// integer (Int field) rather than Dec/Float64/Float32.
func (k NumericKind) isIntegerFamily() bool {
	switch k {
	case KindDecimal, KindDouble, KindFloat:
		return false
	default:
		return true
	}
}

// Kind tags the Literal variant
type Kind int

const (
	KindString Kind = iota
	KindDatatype
	KindNumeric
	KindBoolean
	KindDatetime
	KindWrongDatatype
)

// Literal is the concrete, type-safe RDF literal value. Every field is
// read through the accessor methods below; the zero value is not a valid
// Literal (use one of the constructors).
type Literal struct {
	kind Kind

	// StringLiteral
	lexical string
	lang    string // only meaningful when kind == KindString

	// DatatypeLiteral / WrongDatatypeLiteral
	datatype string
	parseErr string // only meaningful when kind == KindWrongDatatype

	// NumericLiteral
	numKind NumericKind
	intVal  *big.Int
	decVal  decimal.Decimal
	f64Val  float64
	f32Val  float32

	// BooleanLiteral
	boolVal bool

	// DatetimeLiteral
	timeVal time.Time
}

func (l Literal) Kind() Kind { return l.kind }

// LanguageTag holds a BCP47 language tag, kept as a plain string because
// this package treats tags structurally (prefix, equality) rather than
// validating their grammar — IRI/tag syntax validation is an external
// collaborator
type LanguageTag = string

// String constructs a plain or language-tagged string literal.
func String(lexical string, lang LanguageTag) Literal {
	return Literal{kind: KindString, lexical: lexical, lang: lang}
}

// Datatype constructs a DatatypeLiteral for a datatype this package does
// not natively understand. Use FromLexical to get native-variant parsing
// for recognised XSD types.
func Datatype(lexical, datatype string) Literal {
	return Literal{kind: KindDatatype, lexical: lexical, datatype: datatype}
}

// WrongDatatype constructs a literal that preserves a malformed lexical
// form alongside the parse error, so validators can report a typed error
// instead of aborting.
func WrongDatatype(lexical, datatype, parseErr string) Literal {
	return Literal{kind: KindWrongDatatype, lexical: lexical, datatype: datatype, parseErr: parseErr}
}

func Boolean(b bool) Literal { return Literal{kind: KindBoolean, boolVal: b} }

func Datetime(t time.Time) Literal { return Literal{kind: KindDatetime, timeVal: t} }

// --- Numeric constructors, one per recognised XSD variant ---

func integerLit(k NumericKind, n *big.Int) Literal {
	return Literal{kind: KindNumeric, numKind: k, intVal: n}
}

func Integer(n int64) Literal { return integerLit(KindInteger, big.NewInt(n)) }
func Long(n int64) Literal    { return integerLit(KindLong, big.NewInt(n)) }

func Short(n int16) (Literal, error) {
	return integerLit(KindShort, big.NewInt(int64(n))), nil
}

func Byte(n int8) (Literal, error) {
	return integerLit(KindByte, big.NewInt(int64(n))), nil
}

func UnsignedInt(n uint32) Literal { return integerLit(KindUnsignedInt, new(big.Int).SetUint64(uint64(n))) }
func UnsignedLong(n uint64) Literal {
	return integerLit(KindUnsignedLong, new(big.Int).SetUint64(n))
}
func UnsignedShort(n uint16) Literal {
	return integerLit(KindUnsignedShort, new(big.Int).SetUint64(uint64(n)))
}
func UnsignedByte(n uint8) Literal {
	return integerLit(KindUnsignedByte, new(big.Int).SetUint64(uint64(n)))
}

// NonNegativeInteger enforces n >= 0; the other bounded constructors
// apply their range constraints the same way.
func NonNegativeInteger(n *big.Int) (Literal, error) {
	if n.Sign() < 0 {
		return Literal{}, fmt.Errorf("nonNegativeInteger: %s is negative", n)
	}
	return integerLit(KindNonNegativeInteger, n), nil
}

func NonPositiveInteger(n *big.Int) (Literal, error) {
	if n.Sign() > 0 {
		return Literal{}, fmt.Errorf("nonPositiveInteger: %s is positive", n)
	}
	return integerLit(KindNonPositiveInteger, n), nil
}

func PositiveInteger(n *big.Int) (Literal, error) {
	if n.Sign() <= 0 {
		return Literal{}, fmt.Errorf("positiveInteger: %s is not positive", n)
	}
	return integerLit(KindPositiveInteger, n), nil
}

func NegativeInteger(n *big.Int) (Literal, error) {
	if n.Sign() >= 0 {
		return Literal{}, fmt.Errorf("negativeInteger: %s is not negative", n)
	}
	return integerLit(KindNegativeInteger, n), nil
}

func Decimal(d decimal.Decimal) Literal {
	return Literal{kind: KindNumeric, numKind: KindDecimal, decVal: d}
}

func Double(f float64) Literal {
	return Literal{kind: KindNumeric, numKind: KindDouble, f64Val: f}
}

func Float(f float32) Literal {
	return Literal{kind: KindNumeric, numKind: KindFloat, f32Val: f}
}

// Datatype returns the literal's datatype IRI — plain
// strings map to xsd:string, language-tagged strings to rdf:langString,
// numerics to their variant-specific XSD IRI.
func (l Literal) Datatype() string {
	switch l.kind {
	case KindString:
		if l.lang != "" {
			return RDFLangString
		}
		return XSDString
	case KindDatatype, KindWrongDatatype:
		return l.datatype
	case KindNumeric:
		return l.numKind.Datatype()
	case KindBoolean:
		return XSDBoolean
	case KindDatetime:
		return XSDDateTime
	}
	return ""
}

// Lang returns the language tag of a StringLiteral, or "" if none / not a
// string literal.
func (l Literal) Lang() LanguageTag {
	if l.kind == KindString {
		return l.lang
	}
	return ""
}

// ParseError returns the stored parse-error message of a
// WrongDatatypeLiteral, or "" otherwise.
func (l Literal) ParseError() string {
	if l.kind == KindWrongDatatype {
		return l.parseErr
	}
	return ""
}

// NumericKind returns the numeric variant tag; only meaningful when
// Kind() == KindNumeric.
func (l Literal) NumericKind() NumericKind { return l.numKind }

// BoolValue, TimeValue, IntValue, DecimalValue, Float64Value, Float32Value
// are raw accessors for the corresponding variants; callers must check
// Kind()/NumericKind() first.
func (l Literal) BoolValue() bool             { return l.boolVal }
func (l Literal) TimeValue() time.Time        { return l.timeVal }
func (l Literal) IntValue() *big.Int          { return l.intVal }
func (l Literal) DecimalValue() decimal.Decimal { return l.decVal }
func (l Literal) Float64Value() float64       { return l.f64Val }
func (l Literal) Float32Value() float32       { return l.f32Val }

// LexicalForm renders the literal back to its lexical text. For every
// literal produced by FromLexical, re-encoding with
// FromLexical(l.LexicalForm(), l.Datatype()) must yield a Literal matching
// the original under Match.
func (l Literal) LexicalForm() string {
	switch l.kind {
	case KindString, KindDatatype, KindWrongDatatype:
		return l.lexical
	case KindBoolean:
		if l.boolVal {
			return "true"
		}
		return "false"
	case KindDatetime:
		return l.timeVal.Format("2006-01-02T15:04:05.999999999Z07:00")
	case KindNumeric:
		if l.numKind.isIntegerFamily() {
			return l.intVal.String()
		}
		switch l.numKind {
		case KindDecimal:
			return l.decVal.String()
		case KindDouble:
			return formatFloat64(l.f64Val)
		case KindFloat:
			return formatFloat32(l.f32Val)
		}
	}
	return ""
}

func formatFloat64(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatFloat32(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

func (l Literal) String() string {
	switch l.kind {
	case KindString:
		if l.lang != "" {
			return fmt.Sprintf("%q@%s", l.lexical, l.lang)
		}
		return strconv.Quote(l.lexical)
	case KindWrongDatatype:
		return fmt.Sprintf("%q^^%s (invalid: %s)", l.lexical, l.datatype, l.parseErr)
	default:
		return fmt.Sprintf("%q^^%s", l.LexicalForm(), l.Datatype())
	}
}
