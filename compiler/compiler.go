// Package compiler translates a shexast.Schema into a shexir.SchemaIR.
// Pass 1 allocates an index for every declared label (so forward
// references and cycles resolve), pass 2 walks each AST shape expression
// into its compiled IR form, compiling node constraints into
// rbe.MatchCond values and triple expressions into rbe.RbeTable values,
// and pass 3 stitches the extends layers.
//
// A single counter feeds every nested sub-expression a fresh, dense
// synthetic slot.
package compiler

import (
	"fmt"

	"github.com/twinfer/shexcore/rbe"
	"github.com/twinfer/shexcore/rdfmodel"
	"github.com/twinfer/shexcore/shexast"
	"github.com/twinfer/shexcore/shexir"
)

// Compile runs the compiler passes over schema and returns the
// resulting SchemaIR.
func Compile(schema *shexast.Schema) (*shexir.SchemaIR, error) {
	ir := shexir.NewSchemaIR()
	for alias, iri := range schema.Prefixes {
		ir.PrefixMap().Insert(alias, iri)
	}

	c := &compilation{
		ir:          ir,
		sourceIRI:   schema.Base,
		nextSymbol:  0,
		teDefs:      make(map[string]*shexast.TripleExpr),
		teExpanding: make(map[string]bool),
	}

	// Pass 1: allocate an index for every declared label, plus Start if
	// the schema declares one. Labelled triple expressions are collected
	// in the same sweep so a TripleExprRef may point forward.
	for i := range schema.Shapes {
		ir.NewIndex(shexir.FromASTLabel(schema.Shapes[i].Label), c.sourceIRI)
		if err := c.collectTELabels(schema.Shapes[i].Expr); err != nil {
			return nil, err
		}
	}
	if schema.Start != nil {
		ir.NewIndex(shexir.StartLabel, c.sourceIRI)
		if err := c.collectTELabels(*schema.Start); err != nil {
			return nil, err
		}
	}

	// Pass 2: compile each declaration's expression into its pre-allocated
	// slot via ReplaceShape.
	for _, decl := range schema.Shapes {
		idx, err := ir.GetShapeLabelIdx(shexir.FromASTLabel(decl.Label))
		if err != nil {
			return nil, err
		}
		expr, err := c.compileShapeExpr(decl.Expr)
		if err != nil {
			return nil, fmt.Errorf("compiler: shape %s: %w", decl.Label, err)
		}
		if err := ir.ReplaceShape(idx, expr); err != nil {
			return nil, err
		}
		ir.SetAbstract(idx, decl.Abstract)
	}
	if schema.Start != nil {
		idx, err := ir.GetShapeLabelIdx(shexir.StartLabel)
		if err != nil {
			return nil, err
		}
		expr, err := c.compileShapeExpr(*schema.Start)
		if err != nil {
			return nil, fmt.Errorf("compiler: start shape: %w", err)
		}
		if err := ir.ReplaceShape(idx, expr); err != nil {
			return nil, err
		}
	}

	// Pass 3: stitch extends layers and merge ancestor symbol tables.
	// Deferred until every declaration has compiled so a shape may extend
	// one declared after it.
	r := &extendsResolver{ir: ir, state: make(map[rbe.ShapeLabelIdx]int)}
	for idx := 0; idx < ir.Len(); idx++ {
		if err := r.resolve(rbe.ShapeLabelIdx(idx)); err != nil {
			return nil, err
		}
	}

	for _, imp := range schema.Imports {
		c.imports = append(c.imports, imp)
	}

	return ir, nil
}

const (
	resolveVisiting = 1
	resolveDone     = 2
)

// extendsResolver walks the extension DAG bottom-up, appending each
// ancestor's layers (and its symbol-table entries) to every shape that
// extends it, so the validator can match one layer per contributor with
// a single merged symbol table per shape.
type extendsResolver struct {
	ir    *shexir.SchemaIR
	state map[rbe.ShapeLabelIdx]int
}

func (r *extendsResolver) resolve(idx rbe.ShapeLabelIdx) error {
	switch r.state[idx] {
	case resolveDone:
		return nil
	case resolveVisiting:
		return fmt.Errorf("compiler: extends cycle through shape %d", idx)
	}
	expr, err := r.ir.Expr(idx)
	if err != nil {
		return err
	}
	if expr.Kind != shexir.KindShape {
		r.state[idx] = resolveDone
		return nil
	}
	r.state[idx] = resolveVisiting
	shape := expr.Shape
	for _, ancIdx := range shape.Extends {
		if err := r.resolve(ancIdx); err != nil {
			return err
		}
		ancExpr, err := r.ir.Expr(ancIdx)
		if err != nil {
			return err
		}
		if ancExpr.Kind != shexir.KindShape {
			continue
		}
		info, err := r.ir.FindShapeIdx(ancIdx)
		if err != nil {
			return err
		}
		for _, ancLayer := range ancExpr.Shape.Layers {
			contributor := ancLayer.Contributor
			if contributor == (shexir.ShapeLabel{}) {
				contributor = info.Label
			}
			shape.Layers = append(shape.Layers, shexir.TripleExprLayer{Contributor: contributor, Fragment: ancLayer.Fragment})
		}
		for id, entry := range ancExpr.Shape.RbeTable.Symbols {
			shape.RbeTable.Symbols[id] = entry
		}
	}
	r.state[idx] = resolveDone
	return nil
}

type compilation struct {
	ir         *shexir.SchemaIR
	sourceIRI  string
	nextSymbol int
	imports    []string

	// teDefs maps triple-expression labels to their definitions;
	// teExpanding guards TripleExprRef resolution against cycles.
	teDefs      map[string]*shexast.TripleExpr
	teExpanding map[string]bool
}

// collectTELabels records every labelled triple expression reachable
// from expr, so a TripleExprRef may name one declared in any shape,
// before or after the referencing one.
func (c *compilation) collectTELabels(expr shexast.ShapeExpr) error {
	switch expr.Kind {
	case shexast.SEShapeAnd:
		for _, child := range expr.And {
			if err := c.collectTELabels(child); err != nil {
				return err
			}
		}
	case shexast.SEShapeOr:
		for _, child := range expr.Or {
			if err := c.collectTELabels(child); err != nil {
				return err
			}
		}
	case shexast.SEShapeNot:
		return c.collectTELabels(*expr.Not)
	case shexast.SEShape:
		if expr.Shape.Expr != nil {
			return c.collectTripleExprLabels(expr.Shape.Expr)
		}
	}
	return nil
}

func (c *compilation) collectTripleExprLabels(te *shexast.TripleExpr) error {
	if te.Label != "" {
		if _, dup := c.teDefs[te.Label]; dup {
			return fmt.Errorf("compiler: triple expression label %q declared twice", te.Label)
		}
		c.teDefs[te.Label] = te
	}
	for i := range te.Exprs {
		if err := c.collectTripleExprLabels(&te.Exprs[i]); err != nil {
			return err
		}
	}
	if te.ValueExpr != nil {
		return c.collectTELabels(*te.ValueExpr)
	}
	return nil
}

func (c *compilation) freshSymbol() rbe.SymbolID {
	id := rbe.SymbolID(c.nextSymbol)
	c.nextSymbol++
	return id
}

// compileShapeExpr compiles an AST shape expression into IR form,
// allocating fresh synthetic indices for AND/OR/NOT sub-expressions.
func (c *compilation) compileShapeExpr(expr shexast.ShapeExpr) (shexir.ShapeExpr, error) {
	switch expr.Kind {
	case shexast.SEShapeRef:
		idx, err := c.ir.GetShapeLabelIdx(shexir.FromASTLabel(expr.Ref))
		if err != nil {
			return shexir.ShapeExpr{}, err
		}
		return shexir.ShapeExpr{Kind: shexir.KindRef, RefIdx: idx}, nil

	case shexast.SEShapeAnd:
		idxs, err := c.compileChildren(expr.And)
		if err != nil {
			return shexir.ShapeExpr{}, err
		}
		return shexir.ShapeExpr{Kind: shexir.KindShapeAnd, Exprs: idxs}, nil

	case shexast.SEShapeOr:
		idxs, err := c.compileChildren(expr.Or)
		if err != nil {
			return shexir.ShapeExpr{}, err
		}
		return shexir.ShapeExpr{Kind: shexir.KindShapeOr, Exprs: idxs}, nil

	case shexast.SEShapeNot:
		idx, err := c.compileSubExpr(*expr.Not)
		if err != nil {
			return shexir.ShapeExpr{}, err
		}
		return shexir.ShapeExpr{Kind: shexir.KindShapeNot, NotExpr: idx}, nil

	case shexast.SENodeConstraint:
		cnc, err := c.compileNodeConstraint(*expr.NC)
		if err != nil {
			return shexir.ShapeExpr{}, err
		}
		return shexir.ShapeExpr{Kind: shexir.KindNodeConstraint, NC: &cnc}, nil

	case shexast.SEShape:
		shape, err := c.compileShape(*expr.Shape)
		if err != nil {
			return shexir.ShapeExpr{}, err
		}
		return shexir.ShapeExpr{Kind: shexir.KindShape, Shape: shape}, nil

	case shexast.SEExternal:
		return shexir.ShapeExpr{Kind: shexir.KindExternal}, nil
	}
	return shexir.ShapeExpr{}, fmt.Errorf("compiler: unknown shape expr kind %d", expr.Kind)
}

// compileSubExpr compiles expr into a fresh synthetic index and returns
// that index, used for AND/OR/NOT children.
func (c *compilation) compileSubExpr(expr shexast.ShapeExpr) (rbe.ShapeLabelIdx, error) {
	idx := c.ir.NewSyntheticIndex(c.sourceIRI)
	compiled, err := c.compileShapeExpr(expr)
	if err != nil {
		return 0, err
	}
	if err := c.ir.ReplaceShape(idx, compiled); err != nil {
		return 0, err
	}
	return idx, nil
}

func (c *compilation) compileChildren(exprs []shexast.ShapeExpr) ([]rbe.ShapeLabelIdx, error) {
	idxs := make([]rbe.ShapeLabelIdx, 0, len(exprs))
	for _, e := range exprs {
		idx, err := c.compileSubExpr(e)
		if err != nil {
			return nil, err
		}
		idxs = append(idxs, idx)
	}
	return idxs, nil
}

// compileValueExpr compiles the value expression of a TripleConstraint
// into a MatchCond: nil means unconstrained ("."), a Ref produces
// rbe.RefCond, a nested Shape gets a fresh index and becomes a Ref, and
// a NodeConstraint compiles to Single directly.
func (c *compilation) compileValueExpr(expr *shexast.ShapeExpr) (rbe.MatchCond, error) {
	if expr == nil {
		return rbe.Single(".", func(rdfmodel.Term) ([]rbe.Obligation, error) { return nil, nil }), nil
	}
	if expr.Kind == shexast.SEShapeRef {
		idx, err := c.ir.GetShapeLabelIdx(shexir.FromASTLabel(expr.Ref))
		if err != nil {
			return rbe.MatchCond{}, err
		}
		return rbe.RefCond(idx), nil
	}
	if expr.Kind == shexast.SENodeConstraint {
		cnc, err := c.compileNodeConstraint(*expr.NC)
		if err != nil {
			return rbe.MatchCond{}, err
		}
		return cnc.Cond, nil
	}
	// Nested Shape / And / Or / Not / External: give it a fresh index
	// and reference it.
	idx, err := c.compileSubExpr(*expr)
	if err != nil {
		return rbe.MatchCond{}, err
	}
	return rbe.RefCond(idx), nil
}
