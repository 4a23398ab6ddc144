package compiler

import (
	"strings"

	"github.com/twinfer/shexcore/rbe"
	"github.com/twinfer/shexcore/rdfmodel"
	"github.com/twinfer/shexcore/rdfxerrors"
	"github.com/twinfer/shexcore/shexast"
)

// valueSetCond compiles a NodeConstraint's value set into a single
// MatchCond: the term matches if any member accepts it and no
// exclusion vetoes that acceptance
func valueSetCond(values []shexast.ValueSetValue) rbe.MatchCond {
	return rbe.Single("valueSet", func(t rdfmodel.Term) ([]rbe.Obligation, error) {
		for _, v := range values {
			if valueMatches(v, t) {
				return nil, nil
			}
		}
		return nil, &rdfxerrors.PatternError{Value: t.String(), Pattern: "valueSet"}
	})
}

func valueMatches(v shexast.ValueSetValue, t rdfmodel.Term) bool {
	switch v.Kind {
	case shexast.VSObjectValue:
		return objectValueMatches(v, t)
	case shexast.VSIRIStem:
		return t.Kind() == rdfmodel.KindIRI && strings.HasPrefix(t.IRI(), v.Stem) && !excluded(v.Exclusions, t.IRI())
	case shexast.VSIRIStemRange:
		return t.Kind() == rdfmodel.KindIRI && strings.HasPrefix(t.IRI(), v.Stem) && !excludedByStems(v.Exclusions, t.IRI())
	case shexast.VSLiteralStem:
		return t.Kind() == rdfmodel.KindLiteral && strings.HasPrefix(t.Literal().LexicalForm(), v.Stem) && !excluded(v.Exclusions, t.Literal().LexicalForm())
	case shexast.VSLiteralStemRange:
		return t.Kind() == rdfmodel.KindLiteral && strings.HasPrefix(t.Literal().LexicalForm(), v.Stem) && !excludedByStems(v.Exclusions, t.Literal().LexicalForm())
	case shexast.VSLanguage:
		return t.Kind() == rdfmodel.KindLiteral && t.Literal().Lang() == v.Lang
	case shexast.VSLanguageStem:
		return t.Kind() == rdfmodel.KindLiteral && strings.HasPrefix(t.Literal().Lang(), v.Stem)
	case shexast.VSLanguageStemRange:
		return t.Kind() == rdfmodel.KindLiteral && strings.HasPrefix(t.Literal().Lang(), v.Stem) && !excludedByStems(v.Exclusions, t.Literal().Lang())
	}
	return false
}

func objectValueMatches(v shexast.ValueSetValue, t rdfmodel.Term) bool {
	if v.IRI != "" {
		return t.Kind() == rdfmodel.KindIRI && t.IRI() == v.IRI
	}
	if t.Kind() != rdfmodel.KindLiteral {
		return false
	}
	lit := t.Literal()
	return lit.LexicalForm() == v.Lexical && lit.Datatype() == v.Datatype && lit.Lang() == v.Lang
}

// excluded reports whether value exactly matches an excluded literal
// value (a non-stem exclusion).
func excluded(exclusions []shexast.StemExclusion, value string) bool {
	for _, ex := range exclusions {
		if !ex.IsStem && ex.Value == value {
			return true
		}
	}
	return false
}

// excludedByStems reports whether value matches any excluded value or
// falls under any excluded sub-stem "Exclusions remove
// literal matches OR stem sub-prefixes".
func excludedByStems(exclusions []shexast.StemExclusion, value string) bool {
	for _, ex := range exclusions {
		if ex.IsStem {
			if strings.HasPrefix(value, ex.Value) {
				return true
			}
		} else if ex.Value == value {
			return true
		}
	}
	return false
}
