package compiler

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/shopspring/decimal"
	"github.com/twinfer/shexcore/literal"
	"github.com/twinfer/shexcore/rbe"
	"github.com/twinfer/shexcore/rdfmodel"
	"github.com/twinfer/shexcore/rdfxerrors"
	"github.com/twinfer/shexcore/shexast"
	"github.com/twinfer/shexcore/shexir"
)

// compileNodeConstraint compiles the composite match condition of a
// node constraint: node kind, datatype, XSD facets, and value set are
// ANDed together; a single condition named "." is emitted when nothing
// is present.
func (c *compilation) compileNodeConstraint(ast shexast.NodeConstraint) (shexir.CompiledNodeConstraint, error) {
	var conds []rbe.MatchCond
	var labelParts []string

	if ast.NodeKind != nil {
		conds = append(conds, nodeKindCond(*ast.NodeKind))
		labelParts = append(labelParts, nodeKindLabel(*ast.NodeKind))
	}
	if ast.Datatype != "" {
		conds = append(conds, datatypeCond(ast.Datatype))
		labelParts = append(labelParts, ast.Datatype)
	}
	if ast.Length != nil {
		conds = append(conds, lengthCond(*ast.Length))
	}
	if ast.MinLength != nil {
		conds = append(conds, minLengthCond(*ast.MinLength))
	}
	if ast.MaxLength != nil {
		conds = append(conds, maxLengthCond(*ast.MaxLength))
	}
	if ast.Pattern != "" {
		cond, err := patternCond(ast.Pattern, ast.Flags)
		if err != nil {
			return shexir.CompiledNodeConstraint{}, err
		}
		conds = append(conds, cond)
	}
	if ast.MinInclusive != "" {
		conds = append(conds, boundCond(ast.Datatype, ast.MinInclusive, boundMinInclusive))
	}
	if ast.MinExclusive != "" {
		conds = append(conds, boundCond(ast.Datatype, ast.MinExclusive, boundMinExclusive))
	}
	if ast.MaxInclusive != "" {
		conds = append(conds, boundCond(ast.Datatype, ast.MaxInclusive, boundMaxInclusive))
	}
	if ast.MaxExclusive != "" {
		conds = append(conds, boundCond(ast.Datatype, ast.MaxExclusive, boundMaxExclusive))
	}
	if ast.TotalDigits != nil {
		conds = append(conds, totalDigitsCond(*ast.TotalDigits))
	}
	if ast.FractionDigits != nil {
		conds = append(conds, fractionDigitsCond(*ast.FractionDigits))
	}
	if len(ast.Values) > 0 {
		conds = append(conds, valueSetCond(ast.Values))
	}

	var final rbe.MatchCond
	display := "."
	if len(labelParts) > 0 {
		display = strings.Join(labelParts, " ")
	}
	switch len(conds) {
	case 0:
		final = rbe.Single(".", func(rdfmodel.Term) ([]rbe.Obligation, error) { return nil, nil })
	case 1:
		final = conds[0]
	default:
		final = rbe.AndConds(conds...)
	}
	return shexir.CompiledNodeConstraint{AST: ast, Cond: final, Display: display}, nil
}

func nodeKindLabel(k shexast.NodeKind) string {
	switch k {
	case shexast.NodeKindIRI:
		return "IRI"
	case shexast.NodeKindBNode:
		return "BNODE"
	case shexast.NodeKindLiteral:
		return "LITERAL"
	default:
		return "NONLITERAL"
	}
}

func nodeKindCond(k shexast.NodeKind) rbe.MatchCond {
	return rbe.Single("nodeKind", func(t rdfmodel.Term) ([]rbe.Obligation, error) {
		ok := false
		switch k {
		case shexast.NodeKindIRI:
			ok = t.Kind() == rdfmodel.KindIRI
		case shexast.NodeKindBNode:
			ok = t.Kind() == rdfmodel.KindBlank
		case shexast.NodeKindLiteral:
			ok = t.Kind() == rdfmodel.KindLiteral
		case shexast.NodeKindNonLiteral:
			ok = t.Kind() != rdfmodel.KindLiteral
		}
		if !ok {
			return nil, nodeKindError(k, t)
		}
		return nil, nil
	})
}

func nodeKindError(k shexast.NodeKind, t rdfmodel.Term) error {
	term := t.String()
	switch k {
	case shexast.NodeKindIRI:
		return &rdfxerrors.NodeKindIri{Term: term}
	case shexast.NodeKindBNode:
		return &rdfxerrors.NodeKindBNode{Term: term}
	case shexast.NodeKindLiteral:
		return &rdfxerrors.NodeKindLiteral{Term: term}
	default:
		return &rdfxerrors.NodeKindNonLiteral{Term: term}
	}
}

// datatypeCond compares the literal's checked datatype IRI, delegating
// to the literal model's AsChecked re-validation.
func datatypeCond(datatype string) rbe.MatchCond {
	return rbe.Single("datatype:"+datatype, func(t rdfmodel.Term) ([]rbe.Obligation, error) {
		if t.Kind() != rdfmodel.KindLiteral {
			return nil, &rdfxerrors.DatatypeNoLiteral{Term: t.String()}
		}
		checked := t.Literal().AsChecked()
		if checked.Kind() == literal.KindWrongDatatype {
			return nil, &rdfxerrors.WrongDatatypeLiteralMatch{
				Lexical:  checked.LexicalForm(),
				Datatype: checked.Datatype(),
				Parse:    checked.ParseError(),
			}
		}
		if checked.Datatype() != datatype {
			return nil, &rdfxerrors.DatatypeDontMatch{Expected: datatype, Actual: checked.Datatype()}
		}
		return nil, nil
	})
}

func lengthCond(n int) rbe.MatchCond {
	return rbe.Single("length", func(t rdfmodel.Term) ([]rbe.Obligation, error) {
		lf := lexicalOf(t)
		if len([]rune(lf)) != n {
			return nil, &rdfxerrors.LengthError{Got: len([]rune(lf)), Want: n}
		}
		return nil, nil
	})
}

func minLengthCond(n int) rbe.MatchCond {
	return rbe.Single("minlength", func(t rdfmodel.Term) ([]rbe.Obligation, error) {
		if len([]rune(lexicalOf(t))) < n {
			return nil, &rdfxerrors.MinLengthError{Got: len([]rune(lexicalOf(t))), Want: n}
		}
		return nil, nil
	})
}

func maxLengthCond(n int) rbe.MatchCond {
	return rbe.Single("maxlength", func(t rdfmodel.Term) ([]rbe.Obligation, error) {
		if len([]rune(lexicalOf(t))) > n {
			return nil, &rdfxerrors.MaxLengthError{Got: len([]rune(lexicalOf(t))), Want: n}
		}
		return nil, nil
	})
}

func lexicalOf(t rdfmodel.Term) string {
	switch t.Kind() {
	case rdfmodel.KindLiteral:
		return t.Literal().LexicalForm()
	case rdfmodel.KindIRI:
		return t.IRI()
	case rdfmodel.KindBlank:
		return t.BlankID()
	}
	return ""
}

// patternCond backs the `pattern` facet with dlclark/regexp2, which
// supports the Unicode character classes and lookaround XSD regex
// allows and Go's stdlib regexp does not.
func patternCond(pattern, flags string) (rbe.MatchCond, error) {
	opts := regexp2.None
	if strings.Contains(flags, "i") {
		opts |= regexp2.IgnoreCase
	}
	if strings.Contains(flags, "s") {
		opts |= regexp2.Singleline
	}
	if strings.Contains(flags, "x") {
		opts |= regexp2.IgnorePatternWhitespace
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return rbe.MatchCond{}, &rdfxerrors.InvalidRegex{Pattern: pattern, Reason: err.Error()}
	}
	return rbe.Single("pattern:"+pattern, func(t rdfmodel.Term) ([]rbe.Obligation, error) {
		if t.Kind() != rdfmodel.KindLiteral {
			return nil, &rdfxerrors.PatternNodeNotLiteral{Term: t.String()}
		}
		lf := t.Literal().LexicalForm()
		matched, err := re.MatchString(lf)
		if err != nil {
			return nil, &rdfxerrors.InvalidRegex{Pattern: pattern, Reason: err.Error()}
		}
		if !matched {
			return nil, &rdfxerrors.PatternError{Value: lf, Pattern: pattern}
		}
		return nil, nil
	}), nil
}

type boundKind int

const (
	boundMinInclusive boundKind = iota
	boundMinExclusive
	boundMaxInclusive
	boundMaxExclusive
)

// boundCond compiles a minInclusive/minExclusive/maxInclusive/maxExclusive
// facet. Comparison goes through the literal model so it stays exact for
// xsd:decimal rather than widening through float64.
func boundCond(datatype, bound string, kind boundKind) rbe.MatchCond {
	boundLit := literal.FromLexical(bound, orDefault(datatype, literal.XSDDecimal))
	return rbe.Single("bound", func(t rdfmodel.Term) ([]rbe.Obligation, error) {
		if t.Kind() != rdfmodel.KindLiteral {
			return nil, &rdfxerrors.DatatypeNoLiteral{Term: t.String()}
		}
		val := t.Literal().AsChecked()
		cmp, ok := val.Compare(boundLit)
		if !ok {
			return nil, fmt.Errorf("compiler: %s is not comparable to bound %s", val, boundLit)
		}
		switch kind {
		case boundMinInclusive:
			if cmp < 0 {
				return nil, &rdfxerrors.MinInclusiveError{Got: val.LexicalForm(), Want: bound}
			}
		case boundMinExclusive:
			if cmp <= 0 {
				return nil, &rdfxerrors.MinExclusiveError{Got: val.LexicalForm(), Want: bound}
			}
		case boundMaxInclusive:
			if cmp > 0 {
				return nil, &rdfxerrors.MaxInclusiveError{Got: val.LexicalForm(), Want: bound}
			}
		case boundMaxExclusive:
			if cmp >= 0 {
				return nil, &rdfxerrors.MaxExclusiveError{Got: val.LexicalForm(), Want: bound}
			}
		}
		return nil, nil
	})
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// totalDigitsCond and fractionDigitsCond use shopspring/decimal so the
// digit count is exact for arbitrary-precision decimals.
func totalDigitsCond(n int) rbe.MatchCond {
	return rbe.Single("totaldigits", func(t rdfmodel.Term) ([]rbe.Obligation, error) {
		d, err := decimal.NewFromString(lexicalOf(t))
		if err != nil {
			return nil, &rdfxerrors.DatatypeNoLiteral{Term: t.String()}
		}
		got := digitCount(d)
		if got > n {
			return nil, &rdfxerrors.TotalDigitsError{Got: got, Want: n}
		}
		return nil, nil
	})
}

func fractionDigitsCond(n int) rbe.MatchCond {
	return rbe.Single("fractiondigits", func(t rdfmodel.Term) ([]rbe.Obligation, error) {
		d, err := decimal.NewFromString(lexicalOf(t))
		if err != nil {
			return nil, &rdfxerrors.DatatypeNoLiteral{Term: t.String()}
		}
		got := -int(d.Exponent())
		if got < 0 {
			got = 0
		}
		if got > n {
			return nil, &rdfxerrors.FractionDigitsError{Got: got, Want: n}
		}
		return nil, nil
	})
}

func digitCount(d decimal.Decimal) int {
	coeff := d.Coefficient()
	s := coeff.String()
	s = strings.TrimPrefix(s, "-")
	return len(s)
}
