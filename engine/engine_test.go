package engine_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/twinfer/shexcore/compiler"
	"github.com/twinfer/shexcore/engine"
	"github.com/twinfer/shexcore/literal"
	"github.com/twinfer/shexcore/memgraph"
	"github.com/twinfer/shexcore/rdfmodel"
	"github.com/twinfer/shexcore/rdfxerrors"
	"github.com/twinfer/shexcore/shexast"
	"github.com/twinfer/shexcore/shexir"
)

const (
	ex  = "http://example.org/"
	xsd = "http://www.w3.org/2001/XMLSchema#"
)

func iri(local string) rdfmodel.Node { return rdfmodel.IRINode(ex + local) }

func lit(lexical, datatype string) rdfmodel.Node {
	return rdfmodel.LiteralNode(literal.FromLexical(lexical, datatype))
}

func pred(local string) rdfmodel.Predicate { return rdfmodel.NewPredicate(ex + local) }

func graph(t *testing.T, triples ...rdfmodel.Triple) *memgraph.Graph {
	t.Helper()
	g := memgraph.New()
	for _, tr := range triples {
		if err := g.InsertTriple(tr); err != nil {
			t.Fatalf("InsertTriple(%v): %v", tr, err)
		}
	}
	return g
}

func compile(t *testing.T, schema *shexast.Schema) *shexir.SchemaIR {
	t.Helper()
	ir, err := compiler.Compile(schema)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return ir
}

func run(t *testing.T, ir *shexir.SchemaIR, g *memgraph.Graph, node rdfmodel.Node, label string) (*engine.Engine, engine.Atom) {
	t.Helper()
	idx, err := ir.GetShapeLabelIdx(shexir.ShapeLabel{IRI: ex + label})
	if err != nil {
		t.Fatalf("GetShapeLabelIdx(%s): %v", label, err)
	}
	eng := engine.New(ir, g)
	atom := engine.Atom{Node: node, Idx: idx}
	eng.SetShapeMap([]engine.Atom{atom})
	if err := eng.ValidatePending(); err != nil {
		t.Fatalf("ValidatePending: %v", err)
	}
	return eng, atom
}

func intConstraint(min, max string) *shexast.ShapeExpr {
	nc := shexast.NodeConstraintExpr(shexast.NodeConstraint{
		Datatype:     xsd + "integer",
		MinInclusive: min,
		MaxInclusive: max,
	})
	return &nc
}

func TestIntegerFacet(t *testing.T) {
	schema := &shexast.Schema{Shapes: []shexast.ShapeDecl{{
		Label: shexast.IRILabel(ex + "A"),
		Expr: shexast.ShapeExprOf(shexast.ShapeDef{
			Expr: ptr(shexast.TC(ex+"p", intConstraint("3", "10"))),
		}),
	}}}
	g := graph(t, rdfmodel.Triple{Subject: iri("x"), Predicate: pred("p"), Object: lit("5", xsd+"integer")})
	eng, atom := run(t, compile(t, schema), g, iri("x"), "A")
	if !eng.Typing().Holds(atom.Node, atom.Idx) {
		t.Fatalf("expected :x @ :A positive, got errors %v", eng.Errors(atom))
	}
}

func TestIntegerFacetOutOfRange(t *testing.T) {
	schema := &shexast.Schema{Shapes: []shexast.ShapeDecl{{
		Label: shexast.IRILabel(ex + "A"),
		Expr: shexast.ShapeExprOf(shexast.ShapeDef{
			Expr: ptr(shexast.TC(ex+"p", intConstraint("3", "10"))),
		}),
	}}}
	g := graph(t, rdfmodel.Triple{Subject: iri("x"), Predicate: pred("p"), Object: lit("42", xsd+"integer")})
	eng, atom := run(t, compile(t, schema), g, iri("x"), "A")
	if eng.Typing().Holds(atom.Node, atom.Idx) {
		t.Fatal("expected :x @ :A negative")
	}
	var maxErr *rdfxerrors.MaxInclusiveError
	if !errorsAs(eng.Errors(atom), &maxErr) {
		t.Fatalf("expected MaxInclusiveError in %v", eng.Errors(atom))
	}
}

func TestWrongDatatypeCarried(t *testing.T) {
	schema := &shexast.Schema{Shapes: []shexast.ShapeDecl{{
		Label: shexast.IRILabel(ex + "A"),
		Expr: shexast.ShapeExprOf(shexast.ShapeDef{
			Expr: ptr(shexast.TC(ex+"p", ncPtr(shexast.NodeConstraint{Datatype: xsd + "integer"}))),
		}),
	}}}
	g := graph(t, rdfmodel.Triple{Subject: iri("x"), Predicate: pred("p"), Object: lit("hello", xsd+"integer")})
	eng, atom := run(t, compile(t, schema), g, iri("x"), "A")
	if eng.Typing().Holds(atom.Node, atom.Idx) {
		t.Fatal("expected :x @ :A negative")
	}
	var wrong *rdfxerrors.WrongDatatypeLiteralMatch
	if !errorsAs(eng.Errors(atom), &wrong) {
		t.Fatalf("expected WrongDatatypeLiteralMatch in %v", eng.Errors(atom))
	}
	if wrong.Lexical != "hello" || wrong.Datatype != xsd+"integer" {
		t.Fatalf("error carries %q^^%s, want hello^^xsd:integer", wrong.Lexical, wrong.Datatype)
	}
}

func TestClosedShapeRejectsExtraPredicate(t *testing.T) {
	schema := &shexast.Schema{Shapes: []shexast.ShapeDecl{{
		Label: shexast.IRILabel(ex + "A"),
		Expr: shexast.ShapeExprOf(shexast.ShapeDef{
			Closed: true,
			Expr:   ptr(shexast.TC(ex+"p", nil)),
		}),
	}}}
	g := graph(t,
		rdfmodel.Triple{Subject: iri("x"), Predicate: pred("p"), Object: lit("a", xsd+"string")},
		rdfmodel.Triple{Subject: iri("x"), Predicate: pred("q"), Object: lit("b", xsd+"string")},
	)
	eng, atom := run(t, compile(t, schema), g, iri("x"), "A")
	if eng.Typing().Holds(atom.Node, atom.Idx) {
		t.Fatal("expected :x @ :A negative")
	}
	var closed *rdfxerrors.ClosedShapeWithRemainderPreds
	if !errorsAs(eng.Errors(atom), &closed) {
		t.Fatalf("expected ClosedShapeWithRemainderPreds in %v", eng.Errors(atom))
	}
	if len(closed.Remainder) != 1 || closed.Remainder[0] != ex+"q" {
		t.Fatalf("remainder = %v, want [%sq]", closed.Remainder, ex)
	}
}

func TestOrFallbackBranch(t *testing.T) {
	schema := &shexast.Schema{Shapes: []shexast.ShapeDecl{
		{
			Label: shexast.IRILabel(ex + "A"),
			Expr: shexast.OrExpr(
				shexast.RefExpr(shexast.IRILabel(ex+"B")),
				shexast.RefExpr(shexast.IRILabel(ex+"C")),
			),
		},
		{
			Label: shexast.IRILabel(ex + "B"),
			Expr: shexast.ShapeExprOf(shexast.ShapeDef{
				Expr: ptr(shexast.TC(ex+"p", ncPtr(shexast.NodeConstraint{Datatype: xsd + "integer"}))),
			}),
		},
		{
			Label: shexast.IRILabel(ex + "C"),
			Expr: shexast.ShapeExprOf(shexast.ShapeDef{
				Expr: ptr(shexast.TC(ex+"p", ncPtr(shexast.NodeConstraint{Datatype: xsd + "string"}))),
			}),
		},
	}}
	g := graph(t, rdfmodel.Triple{Subject: iri("x"), Predicate: pred("p"), Object: lit("hi", xsd+"string")})
	eng, atom := run(t, compile(t, schema), g, iri("x"), "A")
	if !eng.Typing().Holds(atom.Node, atom.Idx) {
		t.Fatalf("expected :x @ :A positive, got %v", eng.Errors(atom))
	}
	reasons := eng.Reasons(atom)
	if len(reasons) != 1 || reasons[0].Type != engine.ReasonShapeOr {
		t.Fatalf("reasons = %v, want a single ShapeOr", reasons)
	}
	if reasons[0].Branch != 1 {
		t.Fatalf("OR matched branch %d, want 1 (the :C fallback)", reasons[0].Branch)
	}
}

func TestExtendsPartition(t *testing.T) {
	schema := &shexast.Schema{Shapes: []shexast.ShapeDecl{
		{
			Label: shexast.IRILabel(ex + "Parent"),
			Expr: shexast.ShapeExprOf(shexast.ShapeDef{
				Expr: ptr(shexast.TC(ex+"p", nil)),
			}),
		},
		{
			Label: shexast.IRILabel(ex + "Child"),
			Expr: shexast.ShapeExprOf(shexast.ShapeDef{
				Extends: []shexast.ShapeLabel{shexast.IRILabel(ex + "Parent")},
				Expr:    ptr(shexast.TC(ex+"q", nil)),
			}),
		},
	}}
	g := graph(t,
		rdfmodel.Triple{Subject: iri("x"), Predicate: pred("p"), Object: lit("a", xsd+"string")},
		rdfmodel.Triple{Subject: iri("x"), Predicate: pred("q"), Object: lit("b", xsd+"string")},
	)
	eng, atom := run(t, compile(t, schema), g, iri("x"), "Child")
	if !eng.Typing().Holds(atom.Node, atom.Idx) {
		t.Fatalf("expected :x @ :Child positive, got %v", eng.Errors(atom))
	}
	reasons := eng.Reasons(atom)
	if len(reasons) != 1 || reasons[0].Type != engine.ReasonShapeExtends {
		t.Fatalf("reasons = %v, want a single ShapeExtends", reasons)
	}
	if len(reasons[0].Sub) != 2 {
		t.Fatalf("extends reason has %d contributor entries, want 2", len(reasons[0].Sub))
	}
}

func TestRecursionViaReference(t *testing.T) {
	next := shexast.RefExpr(shexast.IRILabel(ex + "S"))
	schema := &shexast.Schema{Shapes: []shexast.ShapeDecl{{
		Label: shexast.IRILabel(ex + "S"),
		Expr: shexast.ShapeExprOf(shexast.ShapeDef{
			Expr: ptr(shexast.TCCard(ex+"next", &next, 0, 1)),
		}),
	}}}
	g := graph(t,
		rdfmodel.Triple{Subject: iri("a"), Predicate: pred("next"), Object: iri("b")},
		rdfmodel.Triple{Subject: iri("b"), Predicate: pred("next"), Object: iri("c")},
	)
	ir := compile(t, schema)

	eng, atom := run(t, ir, g, iri("a"), "S")
	if !eng.Typing().Holds(atom.Node, atom.Idx) {
		t.Fatalf("expected :a @ :S positive, got %v", eng.Errors(atom))
	}
	// The terminal node has no :next and satisfies the optional
	// constraint with an empty bag.
	if !eng.Typing().Holds(iri("c"), atom.Idx) {
		t.Fatal("expected :c @ :S to have been proved while validating :a")
	}
}

func TestSelfReferentialStarTerminates(t *testing.T) {
	self := shexast.RefExpr(shexast.IRILabel(ex + "S"))
	schema := &shexast.Schema{Shapes: []shexast.ShapeDecl{{
		Label: shexast.IRILabel(ex + "S"),
		Expr: shexast.ShapeExprOf(shexast.ShapeDef{
			Expr: ptr(shexast.TCCard(ex+"p", &self, 0, -1)),
		}),
	}}}
	// A cycle: x -> y -> x.
	g := graph(t,
		rdfmodel.Triple{Subject: iri("x"), Predicate: pred("p"), Object: iri("y")},
		rdfmodel.Triple{Subject: iri("y"), Predicate: pred("p"), Object: iri("x")},
	)
	eng, atom := run(t, compile(t, schema), g, iri("x"), "S")
	if !eng.Typing().Holds(atom.Node, atom.Idx) {
		t.Fatalf("expected :x @ :S positive on a cyclic graph, got %v", eng.Errors(atom))
	}
}

func TestAbstractShapeDispatch(t *testing.T) {
	schema := &shexast.Schema{Shapes: []shexast.ShapeDecl{
		{
			Label:    shexast.IRILabel(ex + "A"),
			Abstract: true,
			Expr:     shexast.ShapeExprOf(shexast.ShapeDef{}),
		},
		{
			Label: shexast.IRILabel(ex + "B"),
			Expr: shexast.ShapeExprOf(shexast.ShapeDef{
				Extends: []shexast.ShapeLabel{shexast.IRILabel(ex + "A")},
				Expr:    ptr(shexast.TC(ex+"p", nil)),
			}),
		},
	}}
	g := graph(t, rdfmodel.Triple{Subject: iri("x"), Predicate: pred("p"), Object: lit("a", xsd+"string")})
	ir := compile(t, schema)

	eng, atom := run(t, ir, g, iri("x"), "A")
	if !eng.Typing().Holds(atom.Node, atom.Idx) {
		t.Fatalf("expected :x @ :A positive via descendant :B, got %v", eng.Errors(atom))
	}
	reasons := eng.Reasons(atom)
	if len(reasons) != 1 || reasons[0].Type != engine.ReasonDescendantShape {
		t.Fatalf("reasons = %v, want DescendantShape", reasons)
	}
	bIdx, err := ir.GetShapeLabelIdx(shexir.ShapeLabel{IRI: ex + "B"})
	if err != nil {
		t.Fatal(err)
	}
	if !eng.Typing().Holds(iri("x"), bIdx) {
		t.Fatal("descendant success must appear in the typing too")
	}
}

func TestAbstractShapeWithoutDescendants(t *testing.T) {
	schema := &shexast.Schema{Shapes: []shexast.ShapeDecl{{
		Label:    shexast.IRILabel(ex + "A"),
		Abstract: true,
		Expr:     shexast.ShapeExprOf(shexast.ShapeDef{}),
	}}}
	eng, atom := run(t, compile(t, schema), graph(t), iri("x"), "A")
	var noDesc *rdfxerrors.AbstractShapeNoDescendants
	if !errorsAs(eng.Errors(atom), &noDesc) {
		t.Fatalf("expected AbstractShapeNoDescendants, got %v", eng.Errors(atom))
	}
}

func TestZeroZeroCardinalityAcceptsOnlyEmpty(t *testing.T) {
	schema := &shexast.Schema{Shapes: []shexast.ShapeDecl{{
		Label: shexast.IRILabel(ex + "A"),
		Expr: shexast.ShapeExprOf(shexast.ShapeDef{
			Expr: ptr(shexast.TCCard(ex+"p", nil, 0, 0)),
		}),
	}}}
	ir := compile(t, schema)

	eng, atom := run(t, ir, graph(t), iri("empty"), "A")
	if !eng.Typing().Holds(atom.Node, atom.Idx) {
		t.Fatalf("empty neighbourhood must satisfy {0,0}, got %v", eng.Errors(atom))
	}

	g := graph(t, rdfmodel.Triple{Subject: iri("x"), Predicate: pred("p"), Object: lit("a", xsd+"string")})
	eng, atom = run(t, ir, g, iri("x"), "A")
	if eng.Typing().Holds(atom.Node, atom.Idx) {
		t.Fatal("one :p triple must violate {0,0}")
	}
}

func TestDoubleNegation(t *testing.T) {
	inner := shexast.ShapeExprOf(shexast.ShapeDef{Expr: ptr(shexast.TC(ex+"p", nil))})
	schema := &shexast.Schema{Shapes: []shexast.ShapeDecl{{
		Label: shexast.IRILabel(ex + "A"),
		Expr:  shexast.NotExpr(shexast.NotExpr(inner)),
	}}}
	g := graph(t, rdfmodel.Triple{Subject: iri("x"), Predicate: pred("p"), Object: lit("a", xsd+"string")})
	eng, atom := run(t, compile(t, schema), g, iri("x"), "A")
	if !eng.Typing().Holds(atom.Node, atom.Idx) {
		t.Fatalf("NOT NOT x must behave as x, got %v", eng.Errors(atom))
	}
}

func TestMaxStepsReached(t *testing.T) {
	schema := &shexast.Schema{Shapes: []shexast.ShapeDecl{{
		Label: shexast.IRILabel(ex + "A"),
		Expr:  shexast.ShapeExprOf(shexast.ShapeDef{Expr: ptr(shexast.TC(ex+"p", nil))}),
	}}}
	ir := compile(t, schema)
	idx, err := ir.GetShapeLabelIdx(shexir.ShapeLabel{IRI: ex + "A"})
	if err != nil {
		t.Fatal(err)
	}
	g := graph(t, rdfmodel.Triple{Subject: iri("x"), Predicate: pred("p"), Object: lit("a", xsd+"string")})

	eng := engine.New(ir, g, engine.WithMaxSteps(1))
	eng.SetShapeMap([]engine.Atom{
		{Node: iri("x"), Idx: idx},
		{Node: iri("y"), Idx: idx},
	})
	err = eng.ValidatePending()
	var maxed *rdfxerrors.MaxStepsReached
	if !errors.As(err, &maxed) {
		t.Fatalf("expected MaxStepsReached, got %v", err)
	}
	// Already-proven atoms stay in the typing.
	if !eng.Typing().Holds(iri("x"), idx) {
		t.Fatal("atom proved before the budget ran out must remain in the typing")
	}
}

func TestDeterministicReruns(t *testing.T) {
	schema := &shexast.Schema{Shapes: []shexast.ShapeDecl{
		{
			Label: shexast.IRILabel(ex + "A"),
			Expr: shexast.OrExpr(
				shexast.RefExpr(shexast.IRILabel(ex+"B")),
				shexast.RefExpr(shexast.IRILabel(ex+"B")),
			),
		},
		{
			Label: shexast.IRILabel(ex + "B"),
			Expr:  shexast.ShapeExprOf(shexast.ShapeDef{Expr: ptr(shexast.TC(ex+"p", nil))}),
		},
	}}
	g := graph(t, rdfmodel.Triple{Subject: iri("x"), Predicate: pred("p"), Object: lit("a", xsd+"string")})
	ir := compile(t, schema)

	var snapshots []string
	for i := 0; i < 2; i++ {
		eng, _ := run(t, ir, g, iri("x"), "A")
		var sb strings.Builder
		if _, err := eng.Result().WriteTo(&sb); err != nil {
			t.Fatal(err)
		}
		snapshots = append(snapshots, sb.String())
	}
	if snapshots[0] != snapshots[1] {
		t.Fatalf("two runs differ:\n%s\n%s", snapshots[0], snapshots[1])
	}
}

func TestTypingStoreWarmStart(t *testing.T) {
	schema := &shexast.Schema{Shapes: []shexast.ShapeDecl{{
		Label: shexast.IRILabel(ex + "A"),
		Expr:  shexast.ShapeExprOf(shexast.ShapeDef{Expr: ptr(shexast.TC(ex+"p", nil))}),
	}}}
	ir := compile(t, schema)
	idx, err := ir.GetShapeLabelIdx(shexir.ShapeLabel{IRI: ex + "A"})
	if err != nil {
		t.Fatal(err)
	}
	g := graph(t, rdfmodel.Triple{Subject: iri("x"), Predicate: pred("p"), Object: lit("a", xsd+"string")})

	store := newFakeStore()
	eng := engine.New(ir, g, engine.WithTypingStore(store))
	eng.SetShapeMap([]engine.Atom{{Node: iri("x"), Idx: idx}})
	if err := eng.ValidatePending(); err != nil {
		t.Fatal(err)
	}
	if !store.Conforms(iri("x").String(), int(idx)) {
		t.Fatal("proved atom not written through to the store")
	}

	// A second engine over an empty graph accepts the cached atom
	// without re-proving it.
	warm := engine.New(ir, graph(t), engine.WithTypingStore(store))
	warm.SetShapeMap([]engine.Atom{{Node: iri("x"), Idx: idx}})
	if err := warm.ValidatePending(); err != nil {
		t.Fatal(err)
	}
	if !warm.Typing().Holds(iri("x"), idx) {
		t.Fatal("warm start did not accept the cached atom")
	}
}

type fakeStore struct{ rows map[string]bool }

func newFakeStore() *fakeStore { return &fakeStore{rows: make(map[string]bool)} }

func (f *fakeStore) AddConforms(node string, idx int) bool {
	k := node + "#" + string(rune('0'+idx))
	if f.rows[k] {
		return false
	}
	f.rows[k] = true
	return true
}

func (f *fakeStore) Conforms(node string, idx int) bool {
	return f.rows[node+"#"+string(rune('0'+idx))]
}

func ptr(te shexast.TripleExpr) *shexast.TripleExpr { return &te }

func ncPtr(nc shexast.NodeConstraint) *shexast.ShapeExpr {
	e := shexast.NodeConstraintExpr(nc)
	return &e
}

// errorsAs scans an error list (including wrapped and joined causes)
// for a target type.
func errorsAs(errs []error, target any) bool {
	for _, err := range errs {
		if errors.As(err, target) {
			return true
		}
	}
	return false
}
