package shexir

import (
	"testing"

	"github.com/twinfer/shexcore/rbe"
)

func TestNewIndexIdempotentPerLabel(t *testing.T) {
	ir := NewSchemaIR()
	a := ShapeLabel{IRI: "http://ex/A"}
	first := ir.NewIndex(a, "")
	second := ir.NewIndex(a, "")
	if first != second {
		t.Errorf("NewIndex allocated %d then %d for the same label", first, second)
	}
	b := ir.NewIndex(ShapeLabel{IRI: "http://ex/B"}, "")
	if b != first+1 {
		t.Errorf("indices are not dense: %d after %d", b, first)
	}
}

func TestSyntheticIndicesAreUnlabelled(t *testing.T) {
	ir := NewSchemaIR()
	idx := ir.NewSyntheticIndex("")
	info, err := ir.FindShapeIdx(idx)
	if err != nil {
		t.Fatalf("FindShapeIdx: %v", err)
	}
	if info.Label.IRI != "" || info.Label.Blank == "" {
		t.Errorf("synthetic slot should carry a blank placeholder label, got %v", info.Label)
	}
}

func TestReplaceShapeOutOfRange(t *testing.T) {
	ir := NewSchemaIR()
	if err := ir.ReplaceShape(5, ShapeExpr{Kind: KindEmpty}); err == nil {
		t.Error("ReplaceShape out of range should fail")
	}
}

func TestDescendantsPreOrder(t *testing.T) {
	// A <- B <- D, A <- C (diamond-free tree); descendants of A must be
	// B, D, C in depth-first pre-order.
	ir := NewSchemaIR()
	a := ir.NewIndex(ShapeLabel{IRI: "http://ex/A"}, "")
	b := ir.NewIndex(ShapeLabel{IRI: "http://ex/B"}, "")
	c := ir.NewIndex(ShapeLabel{IRI: "http://ex/C"}, "")
	d := ir.NewIndex(ShapeLabel{IRI: "http://ex/D"}, "")

	shape := func(extends ...ShapeLabelIdx) ShapeExpr {
		return ShapeExpr{Kind: KindShape, Shape: &CompiledShape{
			Extends:  extends,
			RbeTable: rbe.NewTable(rbe.EmptyRbe(), map[rbe.SymbolID]rbe.TableEntry{}),
		}}
	}
	ir.ReplaceShape(a, shape())
	ir.ReplaceShape(b, shape(a))
	ir.ReplaceShape(c, shape(a))
	ir.ReplaceShape(d, shape(b))

	got := ir.Descendants(a)
	want := []ShapeLabelIdx{b, d, c}
	if len(got) != len(want) {
		t.Fatalf("Descendants(A) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Descendants(A) = %v, want %v", got, want)
		}
	}
	if len(ir.Descendants(d)) != 0 {
		t.Error("a leaf shape has no descendants")
	}
}

func TestGetTripleExprsRejectsNonShape(t *testing.T) {
	ir := NewSchemaIR()
	idx := ir.NewIndex(ShapeLabel{IRI: "http://ex/A"}, "")
	ir.ReplaceShape(idx, ShapeExpr{Kind: KindEmpty})
	if _, err := ir.GetTripleExprs(idx); err == nil {
		t.Error("GetTripleExprs on a non-Shape index should fail")
	}
}
