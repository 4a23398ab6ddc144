// Package shexir is the compiled intermediate representation of a shape
// schema: shape expressions stored by dense integer index,
// with descendant/extends closure and per-layer triple-expression
// views. A single NewIndex allocator keeps the label↔index map
// bijective; compilation is single-threaded, so no locking is needed.
package shexir

import (
	"fmt"

	"github.com/twinfer/shexcore/rbe"
	"github.com/twinfer/shexcore/rdfmodel"
	"github.com/twinfer/shexcore/shexast"
)

// ShapeLabelIdx is shared with rbe so that rbe.MatchCond's Ref variant
// can name a shape index without a shexir->rbe->shexir import cycle.
type ShapeLabelIdx = rbe.ShapeLabelIdx

// ShapeLabel is the IR-level label, structurally identical to the AST's
// but kept as its own type so shexir never has to import shexast for
// anything besides compilation inputs.
type ShapeLabel struct {
	IRI   string
	Blank string
	Start bool
}

func (l ShapeLabel) String() string {
	switch {
	case l.Start:
		return "Start"
	case l.Blank != "":
		return "_:" + l.Blank
	default:
		return l.IRI
	}
}

func FromASTLabel(l shexast.ShapeLabel) ShapeLabel {
	return ShapeLabel{IRI: l.IRI, Blank: l.Blank}
}

// StartLabel is the synthetic label assigned to a schema's `start`
// declaration during compilation.
var StartLabel = ShapeLabel{Start: true}

// ExprKind discriminates the IR ShapeExpr union.
type ExprKind int

const (
	KindEmpty ExprKind = iota
	KindRef
	KindShapeAnd
	KindShapeOr
	KindShapeNot
	KindNodeConstraint
	KindShape
	KindExternal
)

// ShapeExpr is the compiled, index-based shape expression.
type ShapeExpr struct {
	Kind ExprKind

	RefIdx  ShapeLabelIdx   // KindRef
	Exprs   []ShapeLabelIdx // KindShapeAnd / KindShapeOr
	NotExpr ShapeLabelIdx   // KindShapeNot

	NC *CompiledNodeConstraint // KindNodeConstraint

	Shape *CompiledShape // KindShape
}

// CompiledNodeConstraint carries the original AST (for diagnostics), the
// compiled match condition, and a human-readable label.
type CompiledNodeConstraint struct {
	AST     shexast.NodeConstraint
	Cond    rbe.MatchCond
	Display string
}

// CompiledShape carries the derived views validation needs: the flat
// predicate list, extends ancestry, and per-layer triple-expression
// fragments.
type CompiledShape struct {
	Closed      bool
	Extra       []rdfmodel.Predicate
	RbeTable    rbe.RbeTable
	Extends     []ShapeLabelIdx
	Preds       []rdfmodel.Predicate
	Annotations []shexast.Annotation
	SemActs     []shexast.SemAct

	// Layers holds one entry per shape in the extends chain (this shape
	// first, then each ancestor in declaration order), enabling
	// GetTripleExprs's per-contributor partitioning.
	Layers []TripleExprLayer
}

// TripleExprLayer is one contributor's slice of a shape's combined
// triple expression, one per contributor in the extends chain.
type TripleExprLayer struct {
	Contributor ShapeLabel // the shape (self or an extends ancestor) that contributed this layer
	Fragment    rbe.Rbe
}

type shapeMeta struct {
	sourceIRI string
	abstract  bool
}

// SchemaIR is the authoritative compiled-schema store.
type SchemaIR struct {
	labels map[ShapeLabel]ShapeLabelIdx
	byIdx  []ShapeLabel
	exprs  []ShapeExpr
	meta   []shapeMeta
	prefix *rdfmodel.PrefixMap
}

func NewSchemaIR() *SchemaIR {
	return &SchemaIR{
		labels: make(map[ShapeLabel]ShapeLabelIdx),
		prefix: rdfmodel.NewPrefixMap(),
	}
}

func (ir *SchemaIR) PrefixMap() *rdfmodel.PrefixMap { return ir.prefix }

// NewIndex allocates a fresh index for label, recording sourceIRI for
// provenance. If label already has an index, it is returned unchanged —
// NewIndex is idempotent per label. Synthetic AND/OR/NOT sub-expressions
// get fresh, unlabelled slots via newSyntheticIndex instead.
func (ir *SchemaIR) NewIndex(label ShapeLabel, sourceIRI string) ShapeLabelIdx {
	if idx, ok := ir.labels[label]; ok {
		return idx
	}
	idx := ShapeLabelIdx(len(ir.exprs))
	ir.labels[label] = idx
	ir.byIdx = append(ir.byIdx, label)
	ir.exprs = append(ir.exprs, ShapeExpr{Kind: KindEmpty})
	ir.meta = append(ir.meta, shapeMeta{sourceIRI: sourceIRI})
	return idx
}

// newSyntheticIndex allocates an index with no label, for AND/OR/NOT
// sub-expressions, which each compile into a fresh synthetic slot.
func (ir *SchemaIR) newSyntheticIndex(sourceIRI string) ShapeLabelIdx {
	idx := ShapeLabelIdx(len(ir.exprs))
	ir.byIdx = append(ir.byIdx, ShapeLabel{Blank: fmt.Sprintf("synthetic%d", idx)})
	ir.exprs = append(ir.exprs, ShapeExpr{Kind: KindEmpty})
	ir.meta = append(ir.meta, shapeMeta{sourceIRI: sourceIRI})
	return idx
}

// NewSyntheticIndex is the exported form the compiler uses directly.
func (ir *SchemaIR) NewSyntheticIndex(sourceIRI string) ShapeLabelIdx {
	return ir.newSyntheticIndex(sourceIRI)
}

// AddShape allocates (or reuses) an index for label and immediately
// fills it with expr.
func (ir *SchemaIR) AddShape(label ShapeLabel, expr ShapeExpr, sourceIRI string) ShapeLabelIdx {
	idx := ir.NewIndex(label, sourceIRI)
	ir.exprs[idx] = expr
	return idx
}

// ReplaceShape fills a previously allocated index's expression, used by
// pass 2 of the compiler to resolve forward references and cycles.
func (ir *SchemaIR) ReplaceShape(idx ShapeLabelIdx, expr ShapeExpr) error {
	if int(idx) < 0 || int(idx) >= len(ir.exprs) {
		return fmt.Errorf("shexir: index %d out of range", idx)
	}
	ir.exprs[idx] = expr
	return nil
}

// SetAbstract marks idx as an abstract shape declaration.
func (ir *SchemaIR) SetAbstract(idx ShapeLabelIdx, abstract bool) {
	ir.meta[idx].abstract = abstract
}

// GetShapeLabelIdx resolves a label to its index.
func (ir *SchemaIR) GetShapeLabelIdx(label ShapeLabel) (ShapeLabelIdx, error) {
	idx, ok := ir.labels[label]
	if !ok {
		return 0, fmt.Errorf("shexir: no shape labelled %s", label)
	}
	return idx, nil
}

// ShapeInfo is the descriptive tuple FindShapeIdx returns.
type ShapeInfo struct {
	Label     ShapeLabel
	SourceIRI string
	Abstract  bool
}

// FindShapeIdx resolves an index back to its label and metadata.
func (ir *SchemaIR) FindShapeIdx(idx ShapeLabelIdx) (ShapeInfo, error) {
	if int(idx) < 0 || int(idx) >= len(ir.exprs) {
		return ShapeInfo{}, fmt.Errorf("shexir: index %d out of range", idx)
	}
	return ShapeInfo{Label: ir.byIdx[idx], SourceIRI: ir.meta[idx].sourceIRI, Abstract: ir.meta[idx].abstract}, nil
}

// Expr returns the compiled shape expression at idx.
func (ir *SchemaIR) Expr(idx ShapeLabelIdx) (ShapeExpr, error) {
	if int(idx) < 0 || int(idx) >= len(ir.exprs) {
		return ShapeExpr{}, fmt.Errorf("shexir: index %d out of range", idx)
	}
	return ir.exprs[idx], nil
}

// Len returns the number of allocated indices, labelled and synthetic.
func (ir *SchemaIR) Len() int { return len(ir.exprs) }

// DependsOn returns the shape indices the expression at idx directly
// references: Ref targets, AND/OR/NOT children, extends ancestors, and
// every shape a triple-constraint condition obliges. Used for
// dependency diagnostics between shapes.
func (ir *SchemaIR) DependsOn(idx ShapeLabelIdx) []ShapeLabelIdx {
	expr, err := ir.Expr(idx)
	if err != nil {
		return nil
	}
	var deps []ShapeLabelIdx
	switch expr.Kind {
	case KindRef:
		deps = append(deps, expr.RefIdx)
	case KindShapeAnd, KindShapeOr:
		deps = append(deps, expr.Exprs...)
	case KindShapeNot:
		deps = append(deps, expr.NotExpr)
	case KindShape:
		deps = append(deps, expr.Shape.Extends...)
		for _, id := range sortedSymbols(expr.Shape.RbeTable.Symbols) {
			deps = append(deps, expr.Shape.RbeTable.Symbols[id].Cond.Refs()...)
		}
	}
	return deps
}

func sortedSymbols(symbols map[rbe.SymbolID]rbe.TableEntry) []rbe.SymbolID {
	ids := make([]rbe.SymbolID, 0, len(symbols))
	for id := range symbols {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

func (ir *SchemaIR) IsAbstract(idx ShapeLabelIdx) bool {
	if int(idx) < 0 || int(idx) >= len(ir.meta) {
		return false
	}
	return ir.meta[idx].abstract
}

// Descendants returns every shape whose extends chain transitively
// includes idx, in deterministic depth-first pre-order over the
// extension DAG, excluding idx itself
func (ir *SchemaIR) Descendants(idx ShapeLabelIdx) []ShapeLabelIdx {
	children := make(map[ShapeLabelIdx][]ShapeLabelIdx)
	for i, expr := range ir.exprs {
		if expr.Kind != KindShape {
			continue
		}
		for _, anc := range expr.Shape.Extends {
			children[anc] = append(children[anc], ShapeLabelIdx(i))
		}
	}
	var out []ShapeLabelIdx
	visited := make(map[ShapeLabelIdx]bool)
	var visit func(ShapeLabelIdx)
	visit = func(cur ShapeLabelIdx) {
		for _, child := range children[cur] {
			if visited[child] {
				continue
			}
			visited[child] = true
			out = append(out, child)
			visit(child)
		}
	}
	visit(idx)
	return out
}

// GetPredsExtends returns the union of predicates mentioned by idx's
// triple expression and every ancestor via extends
func (ir *SchemaIR) GetPredsExtends(idx ShapeLabelIdx) ([]rdfmodel.Predicate, error) {
	expr, err := ir.Expr(idx)
	if err != nil {
		return nil, err
	}
	if expr.Kind != KindShape {
		return nil, fmt.Errorf("shexir: index %d is not a Shape", idx)
	}
	seen := make(map[string]bool)
	var preds []rdfmodel.Predicate
	add := func(ps []rdfmodel.Predicate) {
		for _, p := range ps {
			if !seen[p.IRI()] {
				seen[p.IRI()] = true
				preds = append(preds, p)
			}
		}
	}
	add(expr.Shape.Preds)
	for _, anc := range expr.Shape.Extends {
		ancPreds, err := ir.GetPredsExtends(anc)
		if err != nil {
			return nil, err
		}
		add(ancPreds)
	}
	return preds, nil
}

// GetTripleExprs returns one entry per shape in the extends chain in
// declaration order (self first), enabling per-layer partitioning
// during validation
func (ir *SchemaIR) GetTripleExprs(idx ShapeLabelIdx) ([]TripleExprLayer, error) {
	expr, err := ir.Expr(idx)
	if err != nil {
		return nil, err
	}
	if expr.Kind != KindShape {
		return nil, fmt.Errorf("shexir: index %d is not a Shape", idx)
	}
	return expr.Shape.Layers, nil
}
