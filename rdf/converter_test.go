package rdf

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/twinfer/shexcore/literal"
	"github.com/twinfer/shexcore/rdfmodel"
)

const (
	ex  = "http://example.org/"
	xsd = "http://www.w3.org/2001/XMLSchema#"
)

func sampleTriples() []rdfmodel.Triple {
	return []rdfmodel.Triple{
		{
			Subject:   rdfmodel.IRINode(ex + "alice"),
			Predicate: rdfmodel.NewPredicate(ex + "knows"),
			Object:    rdfmodel.IRINode(ex + "bob"),
		},
		{
			Subject:   rdfmodel.IRINode(ex + "alice"),
			Predicate: rdfmodel.NewPredicate(ex + "age"),
			Object:    rdfmodel.LiteralNode(literal.FromLexical("30", xsd+"integer")),
		},
		{
			Subject:   rdfmodel.BlankNode("b0"),
			Predicate: rdfmodel.NewPredicate(ex + "label"),
			Object:    rdfmodel.LiteralNode(literal.String("bonjour", "fr")),
		},
	}
}

func TestTripleQuadRoundTrip(t *testing.T) {
	triples := sampleTriples()
	dataset, err := TriplesToDataset(triples)
	if err != nil {
		t.Fatalf("TriplesToDataset: %v", err)
	}
	back, err := DatasetToTriples(dataset, "")
	if err != nil {
		t.Fatalf("DatasetToTriples: %v", err)
	}
	if len(back) != len(triples) {
		t.Fatalf("round trip produced %d triples, want %d", len(back), len(triples))
	}
	for i, orig := range triples {
		got := back[i]
		if !got.Subject.Equal(orig.Subject) || !got.Predicate.Equal(orig.Predicate) || !got.Object.Equal(orig.Object) {
			t.Errorf("triple %d: got %v, want %v", i, got, orig)
		}
	}
}

func TestQuotedTripleHasNoQuadForm(t *testing.T) {
	inner := rdfmodel.Triple{
		Subject:   rdfmodel.IRINode(ex + "a"),
		Predicate: rdfmodel.NewPredicate(ex + "p"),
		Object:    rdfmodel.IRINode(ex + "b"),
	}
	_, err := TripleToQuad(rdfmodel.Triple{
		Subject:   rdfmodel.TripleNode(inner),
		Predicate: rdfmodel.NewPredicate(ex + "q"),
		Object:    rdfmodel.IRINode(ex + "c"),
	})
	if err == nil {
		t.Fatal("quoted-triple subject must fail quad conversion")
	}
}

func TestMalformedLiteralSurvivesConversion(t *testing.T) {
	triples := []rdfmodel.Triple{{
		Subject:   rdfmodel.IRINode(ex + "x"),
		Predicate: rdfmodel.NewPredicate(ex + "age"),
		Object:    rdfmodel.LiteralNode(literal.FromLexical("old", xsd+"integer")),
	}}
	dataset, err := TriplesToDataset(triples)
	if err != nil {
		t.Fatalf("TriplesToDataset: %v", err)
	}
	back, err := DatasetToTriples(dataset, "")
	if err != nil {
		t.Fatalf("DatasetToTriples: %v", err)
	}
	lit := back[0].Object.Literal()
	if lit.Kind() != literal.KindWrongDatatype {
		t.Fatalf("malformed integer came back as %v, want WrongDatatypeLiteral", lit)
	}
	if diff := cmp.Diff("old", lit.LexicalForm()); diff != "" {
		t.Errorf("lexical form mismatch (-want +got):\n%s", diff)
	}
}
