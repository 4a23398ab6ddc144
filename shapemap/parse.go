package shapemap

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/scanner"

	"github.com/twinfer/shexcore/literal"
	"github.com/twinfer/shexcore/rdfmodel"
)

const (
	kwStart = "START"
	kwFocus = "FOCUS"
)

// initEntryScanner initializes and configures a scanner for parsing
// compact shape-map entries. Identifiers include ':' so prefixed names
// and blank-node labels tokenize as a single ident.
func initEntryScanner(r io.Reader) *scanner.Scanner {
	var s scanner.Scanner
	s.Init(r)
	s.Mode = scanner.ScanIdents | scanner.ScanStrings | scanner.ScanInts | scanner.ScanFloats
	s.IsIdentRune = func(ch rune, i int) bool {
		return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' ||
			(ch >= '0' && ch <= '9' && i > 0) || ch == ':' || ch == '-'
	}
	return &s
}

// parseError creates a formatted error message with scanner position
// information.
func parseError(s *scanner.Scanner, format string, args ...any) error {
	pos := s.Pos()
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("shapemap: parse error at %s: %s", pos, msg)
}

// ParseCompact parses the compact textual shape-map form: a
// comma-separated list of `node@shape` associations, where node is an
// IRI, prefixed name, blank node, literal, or `{...}` triple pattern,
// and shape is an IRI, prefixed name, or START. A `!` before the shape
// flips the expected polarity. Prefixed names resolve against prefixes.
func ParseCompact(r io.Reader, prefixes *rdfmodel.PrefixMap) ([]Entry, error) {
	s := initEntryScanner(r)
	var entries []Entry
	for {
		entry, err := parseEntry(s, prefixes)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
		tok := s.Scan()
		if tok == scanner.EOF {
			return entries, nil
		}
		if tok != ',' {
			return nil, parseError(s, "expected ',' or end of input, got %q", s.TokenText())
		}
	}
}

// ParseCompactString parses a compact shape map from a string. For
// files or streams, use ParseCompact.
func ParseCompactString(input string, prefixes *rdfmodel.PrefixMap) ([]Entry, error) {
	return ParseCompact(strings.NewReader(input), prefixes)
}

func parseEntry(s *scanner.Scanner, prefixes *rdfmodel.PrefixMap) (Entry, error) {
	node, err := parseNodeSelector(s, prefixes)
	if err != nil {
		return Entry{}, err
	}
	if tok := s.Scan(); tok != '@' {
		return Entry{}, parseError(s, "expected '@' after node selector, got %q", s.TokenText())
	}
	expected := Positive
	tok := s.Scan()
	if tok == '!' {
		expected = Negative
		tok = s.Scan()
	}
	shape, err := parseShapeSelector(s, tok, prefixes)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Node: node, Shape: shape, Expected: expected}, nil
}

func parseNodeSelector(s *scanner.Scanner, prefixes *rdfmodel.PrefixMap) (Selector, error) {
	tok := s.Scan()
	switch tok {
	case '{':
		return parseTriplePattern(s, prefixes)
	case scanner.EOF:
		return Selector{}, parseError(s, "unexpected EOF")
	default:
		node, err := parseTerm(s, tok, prefixes)
		if err != nil {
			return Selector{}, err
		}
		return Selector{Kind: SelConcrete, Node: node}, nil
	}
}

// parseTriplePattern parses `{FOCUS <p> obj}` or `{subj <p> FOCUS}`,
// with `_` as the wildcard for the non-focus position.
func parseTriplePattern(s *scanner.Scanner, prefixes *rdfmodel.PrefixMap) (Selector, error) {
	sel := Selector{Kind: SelTriplePattern}

	tok := s.Scan()
	if tok == scanner.Ident && s.TokenText() == kwFocus {
		sel.FocusIsSubject = true
	} else {
		other, err := parsePatternTerm(s, tok, prefixes)
		if err != nil {
			return Selector{}, err
		}
		sel.Other = other
	}

	pred, err := parsePredicate(s, prefixes)
	if err != nil {
		return Selector{}, err
	}
	sel.Predicate = pred

	tok = s.Scan()
	if sel.FocusIsSubject {
		other, err := parsePatternTerm(s, tok, prefixes)
		if err != nil {
			return Selector{}, err
		}
		sel.Other = other
	} else {
		if tok != scanner.Ident || s.TokenText() != kwFocus {
			return Selector{}, parseError(s, "triple pattern needs FOCUS in subject or object position, got %q", s.TokenText())
		}
	}

	if tok := s.Scan(); tok != '}' {
		return Selector{}, parseError(s, "expected '}' to end triple pattern, got %q", s.TokenText())
	}
	return sel, nil
}

// parsePatternTerm parses a concrete term or the `_` wildcard (nil).
func parsePatternTerm(s *scanner.Scanner, tok rune, prefixes *rdfmodel.PrefixMap) (*rdfmodel.Node, error) {
	if tok == scanner.Ident && s.TokenText() == "_" {
		return nil, nil
	}
	node, err := parseTerm(s, tok, prefixes)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func parsePredicate(s *scanner.Scanner, prefixes *rdfmodel.PrefixMap) (string, error) {
	tok := s.Scan()
	switch tok {
	case '<':
		return readIRI(s)
	case scanner.Ident:
		iri, ok := prefixes.Expand(s.TokenText())
		if !ok {
			return "", parseError(s, "unknown prefix in %q", s.TokenText())
		}
		return iri, nil
	}
	return "", parseError(s, "expected a predicate IRI, got %q", s.TokenText())
}

// parseTerm parses one concrete RDF term starting at the already
// scanned token tok.
func parseTerm(s *scanner.Scanner, tok rune, prefixes *rdfmodel.PrefixMap) (rdfmodel.Node, error) {
	switch tok {
	case '<':
		iri, err := readIRI(s)
		if err != nil {
			return rdfmodel.Node{}, err
		}
		return rdfmodel.IRINode(iri), nil

	case scanner.Ident:
		text := s.TokenText()
		if rest, ok := strings.CutPrefix(text, "_:"); ok {
			return rdfmodel.BlankNode(rest), nil
		}
		if iri, ok := prefixes.Expand(text); ok {
			return rdfmodel.IRINode(iri), nil
		}
		return rdfmodel.Node{}, parseError(s, "unknown prefix in %q", text)

	case scanner.String:
		unquoted, err := strconv.Unquote(s.TokenText())
		if err != nil {
			return rdfmodel.Node{}, parseError(s, "could not unquote string %q: %v", s.TokenText(), err)
		}
		// An optional ^^datatype suffix turns the plain string into a
		// typed literal via the literal model's lexical parsing.
		if s.Peek() == '^' {
			s.Next()
			if s.Next() != '^' {
				return rdfmodel.Node{}, parseError(s, "expected '^^' before datatype")
			}
			datatype, err := parsePredicate(s, prefixes)
			if err != nil {
				return rdfmodel.Node{}, err
			}
			return rdfmodel.LiteralNode(literal.FromLexical(unquoted, datatype)), nil
		}
		return rdfmodel.LiteralNode(literal.String(unquoted, "")), nil

	case scanner.Int:
		n, err := strconv.ParseInt(s.TokenText(), 10, 64)
		if err != nil {
			return rdfmodel.Node{}, parseError(s, "could not parse int %q: %v", s.TokenText(), err)
		}
		return rdfmodel.LiteralNode(literal.Integer(n)), nil
	}
	return rdfmodel.Node{}, parseError(s, "unexpected token %q", s.TokenText())
}

// readIRI consumes runes up to the closing '>' after a '<' token.
func readIRI(s *scanner.Scanner) (string, error) {
	var sb strings.Builder
	for {
		ch := s.Next()
		if ch == scanner.EOF {
			return "", parseError(s, "unterminated IRI")
		}
		if ch == '>' {
			return sb.String(), nil
		}
		sb.WriteRune(ch)
	}
}

func parseShapeSelector(s *scanner.Scanner, tok rune, prefixes *rdfmodel.PrefixMap) (ShapeSelector, error) {
	switch tok {
	case '<':
		iri, err := readIRI(s)
		if err != nil {
			return ShapeSelector{}, err
		}
		return ShapeSelector{IRI: iri}, nil
	case scanner.Ident:
		text := s.TokenText()
		if text == kwStart {
			return ShapeSelector{Start: true}, nil
		}
		iri, ok := prefixes.Expand(text)
		if !ok {
			return ShapeSelector{}, parseError(s, "unknown prefix in %q", text)
		}
		return ShapeSelector{IRI: iri}, nil
	}
	return ShapeSelector{}, parseError(s, "expected a shape selector, got %q", s.TokenText())
}
