package shapemap

import (
	"testing"

	"github.com/twinfer/shexcore/rdfmodel"
)

func testPrefixes() *rdfmodel.PrefixMap {
	m := rdfmodel.NewPrefixMap()
	m.Insert("ex", "http://example.org/")
	m.Insert("xsd", "http://www.w3.org/2001/XMLSchema#")
	return m
}

func TestParseCompact(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, entries []Entry)
	}{
		{
			name:  "bare IRI",
			input: "<http://example.org/x>@<http://example.org/S>",
			check: func(t *testing.T, entries []Entry) {
				if len(entries) != 1 {
					t.Fatalf("got %d entries, want 1", len(entries))
				}
				e := entries[0]
				if e.Node.Kind != SelConcrete || e.Node.Node.IRI() != "http://example.org/x" {
					t.Errorf("node = %v", e.Node)
				}
				if e.Shape.IRI != "http://example.org/S" || e.Expected != Positive {
					t.Errorf("shape = %v expected = %v", e.Shape, e.Expected)
				}
			},
		},
		{
			name:  "prefixed names and negation",
			input: "ex:x@!ex:S",
			check: func(t *testing.T, entries []Entry) {
				e := entries[0]
				if e.Node.Node.IRI() != "http://example.org/x" {
					t.Errorf("node = %v", e.Node.Node)
				}
				if e.Shape.IRI != "http://example.org/S" || e.Expected != Negative {
					t.Errorf("shape = %v expected = %v", e.Shape, e.Expected)
				}
			},
		},
		{
			name:  "blank node and START",
			input: "_:b1@START",
			check: func(t *testing.T, entries []Entry) {
				e := entries[0]
				if e.Node.Node.Kind() != rdfmodel.KindBlank || e.Node.Node.BlankID() != "b1" {
					t.Errorf("node = %v", e.Node.Node)
				}
				if !e.Shape.Start {
					t.Error("shape selector is not START")
				}
			},
		},
		{
			name:  "typed literal",
			input: `"5"^^xsd:integer@ex:S`,
			check: func(t *testing.T, entries []Entry) {
				node := entries[0].Node.Node
				if node.Kind() != rdfmodel.KindLiteral {
					t.Fatalf("node = %v, want literal", node)
				}
				if got := node.Literal().Datatype(); got != "http://www.w3.org/2001/XMLSchema#integer" {
					t.Errorf("datatype = %s", got)
				}
			},
		},
		{
			name:  "focus-subject triple pattern",
			input: `{FOCUS ex:p "a"}@ex:S`,
			check: func(t *testing.T, entries []Entry) {
				sel := entries[0].Node
				if sel.Kind != SelTriplePattern || !sel.FocusIsSubject {
					t.Fatalf("selector = %+v", sel)
				}
				if sel.Predicate != "http://example.org/p" {
					t.Errorf("predicate = %s", sel.Predicate)
				}
				if sel.Other == nil || sel.Other.Kind() != rdfmodel.KindLiteral {
					t.Errorf("other = %v", sel.Other)
				}
			},
		},
		{
			name:  "focus-object wildcard pattern",
			input: "{_ ex:p FOCUS}@ex:S",
			check: func(t *testing.T, entries []Entry) {
				sel := entries[0].Node
				if sel.Kind != SelTriplePattern || sel.FocusIsSubject {
					t.Fatalf("selector = %+v", sel)
				}
				if sel.Other != nil {
					t.Errorf("wildcard subject parsed as %v", sel.Other)
				}
			},
		},
		{
			name:  "multiple entries",
			input: "ex:x@ex:S, ex:y@!ex:T",
			check: func(t *testing.T, entries []Entry) {
				if len(entries) != 2 {
					t.Fatalf("got %d entries, want 2", len(entries))
				}
				if entries[1].Expected != Negative {
					t.Error("second entry should be negative")
				}
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := ParseCompactString(tc.input, testPrefixes())
			if err != nil {
				t.Fatalf("ParseCompactString(%q): %v", tc.input, err)
			}
			tc.check(t, entries)
		})
	}
}

func TestParseCompactErrors(t *testing.T) {
	inputs := []string{
		"",
		"ex:x",
		"ex:x@",
		"unknown:x@ex:S",
		"<http://example.org/x@ex:S",
		"{ex:a ex:p ex:b}@ex:S", // no FOCUS position
	}
	for _, input := range inputs {
		if _, err := ParseCompactString(input, testPrefixes()); err == nil {
			t.Errorf("ParseCompactString(%q) succeeded, want error", input)
		}
	}
}
