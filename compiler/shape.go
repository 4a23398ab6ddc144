package compiler

import (
	"fmt"

	"github.com/twinfer/shexcore/rbe"
	"github.com/twinfer/shexcore/rdfmodel"
	"github.com/twinfer/shexcore/shexast"
	"github.com/twinfer/shexcore/shexir"
)

// compileShape compiles a Shape AST node into its IR form: a compiled
// RbeTable, the flat predicate list, resolved extends indices, and the
// per-layer triple-expression views the schema IR exposes through
// GetTripleExprs.
func (c *compilation) compileShape(def shexast.ShapeDef) (*shexir.CompiledShape, error) {
	extends := make([]rbe.ShapeLabelIdx, 0, len(def.Extends))
	for _, label := range def.Extends {
		idx, err := c.ir.GetShapeLabelIdx(shexir.FromASTLabel(label))
		if err != nil {
			return nil, err
		}
		extends = append(extends, idx)
	}

	symbols := make(map[rbe.SymbolID]rbe.TableEntry)
	var preds []rdfmodel.Predicate
	var topLevel rbe.Rbe
	if def.Expr == nil {
		topLevel = rbe.EmptyRbe()
	} else {
		var err error
		topLevel, err = c.compileTripleExpr(*def.Expr, symbols, &preds)
		if err != nil {
			return nil, err
		}
	}

	// Only the shape's own layer is built here; ancestor layers are
	// stitched in by extendsResolver.resolve once every declaration has compiled,
	// so a shape may extend one declared after it.
	layers := []shexir.TripleExprLayer{{Contributor: shexir.ShapeLabel{}, Fragment: topLevel}}

	extra := make([]rdfmodel.Predicate, 0, len(def.Extra))
	for _, p := range def.Extra {
		extra = append(extra, rdfmodel.NewPredicate(p))
	}

	return &shexir.CompiledShape{
		Closed:      def.Closed,
		Extra:       extra,
		RbeTable:    rbe.NewTable(topLevel, symbols),
		Extends:     extends,
		Preds:       preds,
		Annotations: def.Annotations,
		SemActs:     def.SemActs,
		Layers:      layers,
	}, nil
}

// compileTripleExpr compiles a triple expression into an Rbe, populating
// symbols with every leaf it allocates and preds with every predicate it
// mentions: EachOf -> And, OneOf -> Or, TripleConstraint
// -> Symbol(pred, min, max) normalised via rbe.Normalise.
func (c *compilation) compileTripleExpr(expr shexast.TripleExpr, symbols map[rbe.SymbolID]rbe.TableEntry, preds *[]rdfmodel.Predicate) (rbe.Rbe, error) {
	switch expr.Kind {
	case shexast.TEEachOf:
		children := make([]rbe.Rbe, 0, len(expr.Exprs))
		for _, child := range expr.Exprs {
			compiled, err := c.compileTripleExpr(child, symbols, preds)
			if err != nil {
				return rbe.Rbe{}, err
			}
			children = append(children, compiled)
		}
		return rbe.And(children...), nil

	case shexast.TEOneOf:
		children := make([]rbe.Rbe, 0, len(expr.Exprs))
		for _, child := range expr.Exprs {
			compiled, err := c.compileTripleExpr(child, symbols, preds)
			if err != nil {
				return rbe.Rbe{}, err
			}
			children = append(children, compiled)
		}
		return rbe.Or(children...), nil

	case shexast.TETripleConstraint:
		cond, err := c.compileValueExpr(expr.ValueExpr)
		if err != nil {
			return rbe.Rbe{}, err
		}
		id := c.freshSymbol()
		symbols[id] = rbe.TableEntry{Predicate: expr.Predicate, Cond: cond}
		*preds = append(*preds, rdfmodel.NewPredicate(expr.Predicate))
		card := rbe.Cardinality{Min: 1, Max: 1}
		if expr.CardSet {
			card = rbe.Cardinality{Min: expr.Min, Max: expr.Max}
		}
		symbol := rbe.SymbolOf(id, card.Min, card.Max)
		return rbe.Normalise(symbol, card), nil

	case shexast.TETripleExprRef:
		// A reference is resolved by inlining its definition, allocating
		// fresh symbols per inclusion site; teExpanding rejects a
		// definition that reaches itself.
		def, ok := c.teDefs[expr.Ref]
		if !ok {
			return rbe.Rbe{}, fmt.Errorf("compiler: reference to undeclared triple expression %q", expr.Ref)
		}
		if c.teExpanding[expr.Ref] {
			return rbe.Rbe{}, fmt.Errorf("compiler: triple expression reference cycle through %q", expr.Ref)
		}
		c.teExpanding[expr.Ref] = true
		compiled, err := c.compileTripleExpr(*def, symbols, preds)
		delete(c.teExpanding, expr.Ref)
		return compiled, err
	}
	return rbe.Rbe{}, fmt.Errorf("compiler: unknown triple expression kind %d", expr.Kind)
}
