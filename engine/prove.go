package engine

import (
	"errors"

	"github.com/twinfer/shexcore/rbe"
	"github.com/twinfer/shexcore/rdfmodel"
	"github.com/twinfer/shexcore/rdfxerrors"
	"github.com/twinfer/shexcore/shexir"
)

// prove attempts to establish atom under the current hypothesis frame.
// It pushes the atom onto the frame, recursively discharges the atom's
// dependencies (skipping ancestors already assumed in the frame), then
// checks the atom's own shape expression against the candidate typing
// (permanent positives plus frame assumptions).
//
// A positive result is recorded permanently; a negative result is
// recorded in localNeg, which is scoped to the current top-level atom.
func (e *Engine) prove(atom Atom, hyp *hypFrame) ([]Reason, []error) {
	if entry, ok := e.typing.pos[atom.key()]; ok {
		return entry.Reasons, nil
	}
	if errs, ok := e.localNeg[atom.key()]; ok {
		return nil, errs
	}

	hyp.push(atom)
	for _, dep := range e.dependencies(atom) {
		if hyp.contains(dep) || e.typing.Holds(dep.Node, dep.Idx) {
			continue
		}
		// Successes land in the typing; failures stay tentative in
		// localNeg until the frame unwinds.
		e.prove(dep, hyp)
	}
	reasons, errs := e.checkNodeIdx(atom, hyp)
	hyp.pop()

	if errs != nil {
		e.localNeg[atom.key()] = errs
		return nil, errs
	}
	e.typing.addPos(atom, reasons)
	delete(e.localNeg, atom.key())
	if e.opts.store != nil {
		e.opts.store.AddConforms(atom.Node.String(), int(atom.Idx))
	}
	return reasons, nil
}

// dependencies enumerates the (node, idx) pairs atom's proof depends
// on: direct references of the shape expression paired with the same
// node, plus (object, referenced-shape) for every triple constraint
// whose predicate appears in the node's neighbourhood. Order follows
// the expression's sub-structure, then the neighbourhood order the RDF
// layer returns, so two runs enumerate identically.
func (e *Engine) dependencies(atom Atom) []Atom {
	expr, err := e.ir.Expr(atom.Idx)
	if err != nil {
		return nil
	}
	var deps []Atom
	switch expr.Kind {
	case shexir.KindRef:
		deps = append(deps, Atom{Node: atom.Node, Idx: expr.RefIdx})
	case shexir.KindShapeAnd, shexir.KindShapeOr:
		for _, child := range expr.Exprs {
			deps = append(deps, Atom{Node: atom.Node, Idx: child})
		}
	case shexir.KindShapeNot:
		deps = append(deps, Atom{Node: atom.Node, Idx: expr.NotExpr})
	case shexir.KindShape:
		bag, _, err := e.neighs(atom.Node, e.shapePreds(atom.Idx, expr.Shape))
		if err != nil {
			return deps
		}
		symbols := expr.Shape.RbeTable.Symbols
		for _, id := range sortedSymbolIDs(symbols) {
			entry := symbols[id]
			refs := entry.Cond.Refs()
			if len(refs) == 0 {
				continue
			}
			for _, pair := range bag {
				if pair.Predicate != entry.Predicate {
					continue
				}
				for _, r := range refs {
					deps = append(deps, Atom{Node: pair.Object, Idx: r})
				}
			}
		}
	}
	return deps
}

// shapePreds returns the predicate list used to fetch the node's
// neighbourhood: the union over the extends chain when the shape
// inherits, the shape's own predicates otherwise.
func (e *Engine) shapePreds(idx shexir.ShapeLabelIdx, shape *shexir.CompiledShape) []rdfmodel.Predicate {
	if len(shape.Extends) == 0 {
		return shape.Preds
	}
	preds, err := e.ir.GetPredsExtends(idx)
	if err != nil {
		return shape.Preds
	}
	return preds
}

// checkNodeIdx dispatches on the shape's abstractness: an abstract
// shape never validates a node directly and tries each descendant; a
// concrete shape checks itself first and falls back to descendants.
func (e *Engine) checkNodeIdx(atom Atom, hyp *hypFrame) ([]Reason, []error) {
	if _, err := e.ir.Expr(atom.Idx); err != nil {
		return nil, []error{&rdfxerrors.ShapeExprNotFound{Idx: int(atom.Idx)}}
	}

	if e.ir.IsAbstract(atom.Idx) {
		descendants := e.ir.Descendants(atom.Idx)
		if len(descendants) == 0 {
			return nil, []error{&rdfxerrors.AbstractShapeNoDescendants{Shape: e.shapeRef(atom.Idx)}}
		}
		reasons, descErrs := e.tryDescendants(atom, descendants, hyp)
		if reasons != nil {
			return reasons, nil
		}
		return nil, append(descErrs, &rdfxerrors.AbstractShapeError{Node: atom.Node, Shape: e.shapeRef(atom.Idx)})
	}

	reasons, errs := e.checkNodeShapeExpr(atom, hyp)
	if errs == nil {
		return reasons, nil
	}
	descendants := e.ir.Descendants(atom.Idx)
	if len(descendants) > 0 {
		if reasons, descErrs := e.tryDescendants(atom, descendants, hyp); reasons != nil {
			return reasons, nil
		} else {
			errs = append(errs, &rdfxerrors.DescendantsShapeError{Node: atom.Node, Shape: e.shapeRef(atom.Idx), Causes: descErrs})
		}
	}
	return nil, errs
}

// tryDescendants proves atom.Node against each descendant in turn.
// Success on any yields a DescendantShape reason; otherwise the
// per-descendant errors are returned.
func (e *Engine) tryDescendants(atom Atom, descendants []shexir.ShapeLabelIdx, hyp *hypFrame) ([]Reason, []error) {
	var errs []error
	for _, d := range descendants {
		dAtom := Atom{Node: atom.Node, Idx: d}
		if hyp.contains(dAtom) {
			continue
		}
		reasons, dErrs := e.prove(dAtom, hyp)
		if dErrs == nil {
			label, _ := e.labelOf(d)
			return []Reason{descendantReason(label, int(d), reasons)}, nil
		}
		errs = append(errs, &rdfxerrors.DescendantShapeError{
			Node:       atom.Node,
			Descendant: e.shapeRef(d),
			Cause:      joinCauses(dErrs),
		})
	}
	return nil, errs
}

// checkNodeShapeExpr evaluates the atom's shape expression against the
// candidate typing.
func (e *Engine) checkNodeShapeExpr(atom Atom, hyp *hypFrame) ([]Reason, []error) {
	expr, err := e.ir.Expr(atom.Idx)
	if err != nil {
		return nil, []error{&rdfxerrors.ShapeExprNotFound{Idx: int(atom.Idx)}}
	}
	t := &hypTyping{base: e.typing, hyp: hyp}

	switch expr.Kind {
	case shexir.KindEmpty:
		return []Reason{emptyReason()}, nil

	case shexir.KindRef:
		if t.Holds(atom.Node, expr.RefIdx) {
			return []Reason{refReason(int(expr.RefIdx))}, nil
		}
		return nil, []error{&rdfxerrors.ShapeRefFailed{Node: atom.Node, Shape: e.shapeRef(expr.RefIdx)}}

	case shexir.KindShapeAnd:
		var sub []Reason
		for _, child := range expr.Exprs {
			reasons, errs := e.prove(Atom{Node: atom.Node, Idx: child}, hyp)
			if errs != nil {
				return nil, []error{&rdfxerrors.ShapeAndError{
					Node:   atom.Node,
					Shape:  e.shapeRef(atom.Idx),
					Failed: e.shapeRef(child),
					Cause:  joinCauses(errs),
				}}
			}
			sub = append(sub, reasons...)
		}
		return []Reason{andReason(sub)}, nil

	case shexir.KindShapeOr:
		var branchErrs []error
		for i, child := range expr.Exprs {
			reasons, errs := e.prove(Atom{Node: atom.Node, Idx: child}, hyp)
			if errs == nil {
				return []Reason{orReason(i, reasons)}, nil
			}
			branchErrs = append(branchErrs, errs...)
		}
		return nil, []error{&rdfxerrors.ShapeOrError{Node: atom.Node, Shape: e.shapeRef(atom.Idx), Branches: branchErrs}}

	case shexir.KindShapeNot:
		_, errs := e.prove(Atom{Node: atom.Node, Idx: expr.NotExpr}, hyp)
		if errs != nil {
			label, _ := e.labelOf(expr.NotExpr)
			return []Reason{notReason(label, int(expr.NotExpr))}, nil
		}
		return nil, []error{&rdfxerrors.ShapeNotError{Node: atom.Node, Shape: e.shapeRef(atom.Idx), Inner: e.shapeRef(expr.NotExpr)}}

	case shexir.KindNodeConstraint:
		obligations, err := expr.NC.Cond.Evaluate(atom.Node)
		if err != nil {
			return nil, []error{err}
		}
		if missing := missingObligations(obligations, t); len(missing) > 0 {
			return nil, []error{&rdfxerrors.FailedPending{Node: atom.Node, Shape: e.shapeRef(atom.Idx), Pending: missing}}
		}
		return []Reason{nodeConstraintReason(expr.NC.Display)}, nil

	case shexir.KindShape:
		if len(expr.Shape.Extends) == 0 {
			return e.checkNodeShape(atom, expr.Shape, t)
		}
		return e.checkNodeShapeExtends(atom, expr.Shape, t)

	case shexir.KindExternal:
		if e.opts.external != nil {
			if err := e.opts.external(atom.Node, atom.Idx); err != nil {
				return nil, []error{err}
			}
		}
		return []Reason{externalReason()}, nil
	}
	return nil, []error{&rdfxerrors.ShapeExprNotFound{Idx: int(atom.Idx)}}
}

// checkNodeShape matches a non-inheriting shape: fetch the
// neighbourhood, enforce closedness, then accept the first RBE matching
// whose pending obligations already hold in the candidate typing.
func (e *Engine) checkNodeShape(atom Atom, shape *shexir.CompiledShape, t *hypTyping) ([]Reason, []error) {
	bag, remainder, err := e.neighs(atom.Node, shape.Preds)
	if err != nil {
		return nil, []error{err}
	}
	if shape.Closed {
		if extra := remainderBeyondExtra(remainder, shape.Extra); len(extra) > 0 {
			return nil, []error{&rdfxerrors.ClosedShapeWithRemainderPreds{Node: atom.Node, Shape: e.shapeRef(atom.Idx), Remainder: extra}}
		}
	}

	extra := make(map[string]bool, len(shape.Extra))
	for _, p := range shape.Extra {
		extra[p.IRI()] = true
	}
	var attemptErrs []error
	for res, matchErr := range shape.RbeTable.Matches(bag, t) {
		if matchErr != nil {
			attemptErrs = append(attemptErrs, matchErr)
			continue
		}
		if bad := unassignedBeyondExtra(bag, res.Unassigned, extra); bad != "" {
			attemptErrs = append(attemptErrs, &rdfxerrors.RbeError{Symbol: bad, Reason: "triple matches a constrained predicate but no condition accepts it"})
			continue
		}
		if missing := missingObligations(res.Pending, t); len(missing) > 0 {
			attemptErrs = append(attemptErrs, &rdfxerrors.FailedPending{Node: atom.Node, Shape: e.shapeRef(atom.Idx), Pending: missing})
			continue
		}
		label, _ := e.labelOf(atom.Idx)
		return []Reason{shapeReason(atom.Node.String(), label, int(atom.Idx))}, nil
	}
	if len(attemptErrs) == 0 {
		attemptErrs = append(attemptErrs, &rdfxerrors.RbeError{Symbol: "", Reason: "no matching assignment of the neighbourhood"})
	}
	return nil, []error{&rdfxerrors.ShapeFailed{Node: atom.Node, Shape: e.shapeRef(atom.Idx), Causes: attemptErrs}}
}

// checkNodeShapeExtends matches an inheriting shape by partitioning the
// neighbourhood across the extends layers: each contributor must match
// its assigned sub-bag. Partitions are enumerated deterministically,
// varying the last pair's assignment fastest.
func (e *Engine) checkNodeShapeExtends(atom Atom, shape *shexir.CompiledShape, t *hypTyping) ([]Reason, []error) {
	preds, err := e.ir.GetPredsExtends(atom.Idx)
	if err != nil {
		return nil, []error{err}
	}
	bag, remainder, err := e.neighs(atom.Node, preds)
	if err != nil {
		return nil, []error{err}
	}
	if shape.Closed {
		if extra := remainderBeyondExtra(remainder, shape.Extra); len(extra) > 0 {
			return nil, []error{&rdfxerrors.ClosedShapeWithRemainderPreds{Node: atom.Node, Shape: e.shapeRef(atom.Idx), Remainder: extra}}
		}
	}

	layers, err := e.ir.GetTripleExprs(atom.Idx)
	if err != nil {
		return nil, []error{err}
	}
	k := len(layers)
	assign := make([]int, len(bag))

	var lastErrs []error
	var tryPartition func(pos int) ([]Reason, bool)
	tryPartition = func(pos int) ([]Reason, bool) {
		if pos == len(bag) {
			reasons, errs := e.matchLayers(atom, shape, layers, bag, assign, t)
			if errs != nil {
				lastErrs = errs
				return nil, false
			}
			return reasons, true
		}
		for layer := 0; layer < k; layer++ {
			assign[pos] = layer
			if reasons, ok := tryPartition(pos + 1); ok {
				return reasons, true
			}
		}
		return nil, false
	}
	if reasons, ok := tryPartition(0); ok {
		return []Reason{extendsReason(reasons)}, nil
	}
	return nil, []error{&rdfxerrors.ShapeFailed{Node: atom.Node, Shape: e.shapeRef(atom.Idx), Causes: lastErrs}}
}

// matchLayers checks one partition: every layer's fragment must accept
// its assigned sub-bag with all pending obligations already in t.
func (e *Engine) matchLayers(atom Atom, shape *shexir.CompiledShape, layers []shexir.TripleExprLayer, bag []rbe.Pair, assign []int, t *hypTyping) ([]Reason, []error) {
	var reasons []Reason
	for i, layer := range layers {
		var sub []rbe.Pair
		for pos, a := range assign {
			if a == i {
				sub = append(sub, bag[pos])
			}
		}
		// Restrict the shared symbol table to this contributor's
		// fragment so a pair cannot be absorbed by another layer's
		// symbol; any pair the fragment cannot place invalidates the
		// whole partition.
		layerSymbols := make(map[rbe.SymbolID]rbe.TableEntry)
		for _, id := range layer.Fragment.SymbolIDs() {
			layerSymbols[id] = shape.RbeTable.Symbols[id]
		}
		table := rbe.NewTable(layer.Fragment, layerSymbols)
		matched := false
		var layerErrs []error
		for res, matchErr := range table.Matches(sub, t) {
			if matchErr != nil {
				layerErrs = append(layerErrs, matchErr)
				continue
			}
			if len(res.Unassigned) > 0 {
				layerErrs = append(layerErrs, &rdfxerrors.RbeError{
					Symbol: sub[res.Unassigned[0]].Predicate,
					Reason: "triple not consumed by contributor " + layer.Contributor.String(),
				})
				continue
			}
			if missing := missingObligations(res.Pending, t); len(missing) > 0 {
				layerErrs = append(layerErrs, &rdfxerrors.FailedPending{Node: atom.Node, Shape: e.shapeRef(atom.Idx), Pending: missing})
				continue
			}
			matched = true
			break
		}
		if !matched {
			if len(layerErrs) == 0 {
				layerErrs = append(layerErrs, &rbeNoMatch{contributor: layer.Contributor.String()})
			}
			return nil, layerErrs
		}
		label := layer.Contributor.String()
		if layer.Contributor == (shexir.ShapeLabel{}) {
			label, _ = e.labelOf(atom.Idx)
		}
		reasons = append(reasons, shapeReason(atom.Node.String(), label, int(atom.Idx)))
	}
	return reasons, nil
}

type rbeNoMatch struct{ contributor string }

func (e *rbeNoMatch) Error() string {
	return "no assignment of the sub-bag matches contributor " + e.contributor
}

// missingObligations returns the rendered obligations not yet in t.
func missingObligations(obligations []rbe.Obligation, t *hypTyping) []string {
	var missing []string
	for _, ob := range obligations {
		if !t.Holds(ob.Node, ob.Shape) {
			missing = append(missing, Atom{Node: ob.Node, Idx: ob.Shape}.String())
		}
	}
	return missing
}

// unassignedBeyondExtra returns the predicate of the first unassigned
// pair not covered by the shape's EXTRA list, or "" if every unassigned
// pair is tolerated.
func unassignedBeyondExtra(bag []rbe.Pair, unassigned []int, extra map[string]bool) string {
	for _, idx := range unassigned {
		if !extra[bag[idx].Predicate] {
			return bag[idx].Predicate
		}
	}
	return ""
}

// remainderBeyondExtra filters the closed-shape remainder against the
// shape's EXTRA list.
func remainderBeyondExtra(remainder []string, extra []rdfmodel.Predicate) []string {
	allowed := make(map[string]bool, len(extra))
	for _, p := range extra {
		allowed[p.IRI()] = true
	}
	var out []string
	for _, p := range remainder {
		if !allowed[p] {
			out = append(out, p)
		}
	}
	return out
}

// joinCauses folds an error list into one error that still carries
// every member, so composite kinds like ShapeAndError and
// DescendantShapeError keep their full nested explanation.
func joinCauses(errs []error) error {
	return errors.Join(errs...)
}

func sortedSymbolIDs(symbols map[rbe.SymbolID]rbe.TableEntry) []rbe.SymbolID {
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
