package engine

import (
	"sort"

	"github.com/twinfer/shexcore/rbe"
	"github.com/twinfer/shexcore/rdfmodel"
)

// neighs fetches the node's outgoing neighbourhood restricted to preds,
// returning the matched (predicate, object) pairs in predicate-request
// order and the sorted remainder predicates. A literal, which cannot be
// a subject, and a quoted triple, which is an opaque term, have no
// outgoing neighbourhood and return empty results.
//
// When the graph implements the OutgoingArcs capability the single
// hot-path call is used; otherwise the neighbourhood is derived from
// TriplesWithSubject.
func (e *Engine) neighs(node rdfmodel.Node, preds []rdfmodel.Predicate) ([]rbe.Pair, []string, error) {
	if !node.IsSubject() || node.Kind() == rdfmodel.KindTriple {
		return nil, nil, nil
	}

	// A shape may constrain the same predicate in several triple
	// constraints; the fetch list and the bag must still carry each
	// predicate once.
	preds = dedupePreds(preds)

	if oa, ok := e.rdf.(rdfmodel.OutgoingArcs); ok {
		matched, remainder, err := oa.Neighbourhood(node, preds)
		if err != nil {
			return nil, nil, err
		}
		var bag []rbe.Pair
		for _, p := range preds {
			for _, obj := range matched[p.IRI()] {
				bag = append(bag, rbe.Pair{Predicate: p.IRI(), Object: obj})
			}
		}
		return bag, remainder.Elements(), nil
	}

	wanted := make(map[string]bool, len(preds))
	for _, p := range preds {
		wanted[p.IRI()] = true
	}
	matched := make(map[string][]rdfmodel.Term)
	remainderSeen := make(map[string]bool)
	var remainder []string
	for _, t := range e.rdf.TriplesWithSubject(node) {
		iri := t.Predicate.IRI()
		if wanted[iri] {
			matched[iri] = append(matched[iri], t.Object)
		} else if !remainderSeen[iri] {
			remainderSeen[iri] = true
			remainder = append(remainder, iri)
		}
	}
	var bag []rbe.Pair
	for _, p := range preds {
		for _, obj := range matched[p.IRI()] {
			bag = append(bag, rbe.Pair{Predicate: p.IRI(), Object: obj})
		}
	}
	sort.Strings(remainder)
	return bag, remainder, nil
}

func dedupePreds(preds []rdfmodel.Predicate) []rdfmodel.Predicate {
	seen := make(map[string]bool, len(preds))
	out := preds[:0:0]
	for _, p := range preds {
		if !seen[p.IRI()] {
			seen[p.IRI()] = true
			out = append(out, p)
		}
	}
	return out
}
