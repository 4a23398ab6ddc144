package memgraph

import (
	"testing"

	"github.com/twinfer/shexcore/literal"
	"github.com/twinfer/shexcore/rdfmodel"
)

func triple(s, p, o string) rdfmodel.Triple {
	return rdfmodel.Triple{
		Subject:   rdfmodel.IRINode(s),
		Predicate: rdfmodel.NewPredicate(p),
		Object:    rdfmodel.IRINode(o),
	}
}

func TestInsertAndLookup(t *testing.T) {
	g := New()
	alice := "http://ex/alice"
	name := "http://ex/name"
	knows := "http://ex/knows"
	bob := "http://ex/bob"

	if err := g.InsertTriple(triple(alice, knows, bob)); err != nil {
		t.Fatalf("InsertTriple: %v", err)
	}
	if err := g.InsertTriple(rdfmodel.Triple{
		Subject:   rdfmodel.IRINode(alice),
		Predicate: rdfmodel.NewPredicate(name),
		Object:    rdfmodel.LiteralNode(literal.String("Alice", "")),
	}); err != nil {
		t.Fatalf("InsertTriple: %v", err)
	}

	got := g.TriplesWithSubject(rdfmodel.IRINode(alice))
	if len(got) != 2 {
		t.Fatalf("expected 2 triples for alice, got %d", len(got))
	}

	dup := g.InsertTriple(triple(alice, knows, bob))
	if dup != nil {
		t.Fatalf("duplicate insert should be a no-op, got %v", dup)
	}
	if len(g.AllTriples()) != 2 {
		t.Fatalf("duplicate insert must not grow the graph")
	}
}

func TestNeighbourhoodRemainder(t *testing.T) {
	g := New()
	alice := "http://ex/alice"
	name := "http://ex/name"
	age := "http://ex/age"
	email := "http://ex/email"

	g.InsertTriple(rdfmodel.Triple{Subject: rdfmodel.IRINode(alice), Predicate: rdfmodel.NewPredicate(name), Object: rdfmodel.LiteralNode(literal.String("Alice", ""))})
	g.InsertTriple(rdfmodel.Triple{Subject: rdfmodel.IRINode(alice), Predicate: rdfmodel.NewPredicate(age), Object: rdfmodel.LiteralNode(literal.Integer(30))})
	g.InsertTriple(rdfmodel.Triple{Subject: rdfmodel.IRINode(alice), Predicate: rdfmodel.NewPredicate(email), Object: rdfmodel.LiteralNode(literal.String("a@ex", ""))})

	matched, remainder, err := g.Neighbourhood(rdfmodel.IRINode(alice), []rdfmodel.Predicate{rdfmodel.NewPredicate(name)})
	if err != nil {
		t.Fatalf("Neighbourhood: %v", err)
	}
	if len(matched[name]) != 1 {
		t.Fatalf("expected 1 matched object for name, got %d", len(matched[name]))
	}
	if !remainder.Contains(age) || !remainder.Contains(email) {
		t.Errorf("remainder should contain age and email, got %v", remainder.Elements())
	}
	if remainder.Contains(name) {
		t.Errorf("remainder must not contain a requested predicate")
	}
}

func TestNeighbourhoodOnLiteralSubjectIsEmpty(t *testing.T) {
	g := New()
	lit := rdfmodel.LiteralNode(literal.Integer(1))
	matched, remainder, err := g.Neighbourhood(lit, nil)
	if err != nil {
		t.Fatalf("Neighbourhood: %v", err)
	}
	if len(matched) != 0 || remainder.Len() != 0 {
		t.Errorf("a literal has no outgoing arcs, got matched=%v remainder=%v", matched, remainder)
	}
}

func TestRemoveTriple(t *testing.T) {
	g := New()
	alice, knows, bob := "http://ex/alice", "http://ex/knows", "http://ex/bob"
	g.InsertTriple(triple(alice, knows, bob))
	g.RemoveTriple(triple(alice, knows, bob))
	if len(g.AllTriples()) != 0 {
		t.Errorf("expected empty graph after removal")
	}
}
