// Package memgraph implements rdfmodel's Read, Builder and OutgoingArcs
// capability sets over a fully materialised, in-memory triple set — the
// reference implementation behind the polymorphic capability
// interfaces.
package memgraph

import (
	"fmt"
	"sort"

	"bitbucket.org/creachadair/stringset"
	"github.com/google/uuid"
	"github.com/twinfer/shexcore/jsonld"
	"github.com/twinfer/shexcore/rdfmodel"
)

// Graph is an in-memory RDF graph indexed by subject and by predicate.
type Graph struct {
	baseIRI string
	prefix  *rdfmodel.PrefixMap

	triples []rdfmodel.Triple
	bySubj  map[string][]int // subject.String() -> triple indices
	byPred  map[string][]int // predicate IRI -> triple indices
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		prefix: rdfmodel.NewPrefixMap(),
		bySubj: make(map[string][]int),
		byPred: make(map[string][]int),
	}
}

var (
	_ rdfmodel.Read         = (*Graph)(nil)
	_ rdfmodel.Builder      = (*Graph)(nil)
	_ rdfmodel.OutgoingArcs = (*Graph)(nil)
)

func (g *Graph) PrefixMap() *rdfmodel.PrefixMap { return g.prefix }

func (g *Graph) Qualify(iri string) string { return g.prefix.Qualify(iri) }

func (g *Graph) SetBaseIRI(iri string) { g.baseIRI = iri }

func (g *Graph) BaseIRI() string { return g.baseIRI }

func (g *Graph) InsertPrefix(alias, iri string) { g.prefix.Insert(alias, iri) }

func (g *Graph) ReplacePrefixMap(m *rdfmodel.PrefixMap) { g.prefix = m }

// FreshBlankNode mints a new blank node with a collision-free,
// caller-opaque label.
func (g *Graph) FreshBlankNode() rdfmodel.Node {
	return rdfmodel.BlankNode("b" + uuid.New().String())
}

// InsertTriple appends t and updates both indices. Duplicate triples are
// rejected silently; RDF graphs are sets.
func (g *Graph) InsertTriple(t rdfmodel.Triple) error {
	if !t.Subject.IsSubject() {
		return fmt.Errorf("memgraph: subject %s cannot be a literal", t.Subject)
	}
	for _, idx := range g.bySubj[t.Subject.String()] {
		if tripleEqual(g.triples[idx], t) {
			return nil
		}
	}
	idx := len(g.triples)
	g.triples = append(g.triples, t)
	g.bySubj[t.Subject.String()] = append(g.bySubj[t.Subject.String()], idx)
	g.byPred[t.Predicate.IRI()] = append(g.byPred[t.Predicate.IRI()], idx)
	return nil
}

func (g *Graph) RemoveTriple(t rdfmodel.Triple) error {
	filtered := g.triples[:0:0]
	for _, existing := range g.triples {
		if !tripleEqual(existing, t) {
			filtered = append(filtered, existing)
		}
	}
	g.triples = filtered
	g.reindex()
	return nil
}

func (g *Graph) reindex() {
	g.bySubj = make(map[string][]int)
	g.byPred = make(map[string][]int)
	for idx, t := range g.triples {
		g.bySubj[t.Subject.String()] = append(g.bySubj[t.Subject.String()], idx)
		g.byPred[t.Predicate.IRI()] = append(g.byPred[t.Predicate.IRI()], idx)
	}
}

func tripleEqual(a, b rdfmodel.Triple) bool {
	return a.Subject.Equal(b.Subject) && a.Predicate.Equal(b.Predicate) && a.Object.Equal(b.Object)
}

func (g *Graph) AllTriples() []rdfmodel.Triple {
	out := make([]rdfmodel.Triple, len(g.triples))
	copy(out, g.triples)
	return out
}

func (g *Graph) TriplesWithSubject(s rdfmodel.Subject) []rdfmodel.Triple {
	idxs := g.bySubj[s.String()]
	out := make([]rdfmodel.Triple, 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, g.triples[idx])
	}
	return out
}

func (g *Graph) TriplesWithPredicate(p rdfmodel.Predicate) []rdfmodel.Triple {
	idxs := g.byPred[p.IRI()]
	out := make([]rdfmodel.Triple, 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, g.triples[idx])
	}
	return out
}

func (g *Graph) TriplesMatching(s, p, o rdfmodel.Pattern) []rdfmodel.Triple {
	var out []rdfmodel.Triple
	for _, t := range g.triples {
		if !s.IsAny() && !s.Matches(t.Subject) {
			continue
		}
		if !p.IsAny() && !matchesPredicate(p, t.Predicate) {
			continue
		}
		if !o.IsAny() && !o.Matches(t.Object) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchesPredicate(p rdfmodel.Pattern, pred rdfmodel.Predicate) bool {
	if p.IsAny() {
		return true
	}
	return p.Term().Kind() == rdfmodel.KindIRI && p.Term().IRI() == pred.IRI()
}

// Neighbourhood implements the hot-path OutgoingArcs capability: a term
// that cannot occupy the subject position has no outgoing arcs and
// returns empty results; otherwise it
// buckets outgoing triples by requested predicate and collects every
// other outgoing predicate into remainder.
func (g *Graph) Neighbourhood(s rdfmodel.Subject, preds []rdfmodel.Predicate) (map[string][]rdfmodel.Term, stringset.Set, error) {
	matched := make(map[string][]rdfmodel.Term)
	remainder := stringset.New()
	if !s.IsSubject() {
		return matched, remainder, nil
	}
	wanted := stringset.New()
	for _, p := range preds {
		wanted.Add(p.IRI())
	}
	for _, idx := range g.bySubj[s.String()] {
		t := g.triples[idx]
		if wanted.Contains(t.Predicate.IRI()) {
			matched[t.Predicate.IRI()] = append(matched[t.Predicate.IRI()], t.Object)
		} else {
			remainder.Add(t.Predicate.IRI())
		}
	}
	return matched, remainder, nil
}

// Serialize renders the graph in the requested format. N-Quads is
// written directly (trivial, line-oriented), JSON-LD goes through the
// jsonld subpackage, and the remaining formats are
// external-collaborator concerns.
func (g *Graph) Serialize(format rdfmodel.Format) ([]byte, error) {
	switch format {
	case rdfmodel.FormatNQuads:
		return g.serializeNQuads(), nil
	case rdfmodel.FormatJSONLD:
		return jsonld.MarshalGraph(g.AllTriples())
	default:
		return nil, fmt.Errorf("memgraph: serialisation format %v needs an external parser/writer", format)
	}
}

func (g *Graph) serializeNQuads() []byte {
	sorted := make([]rdfmodel.Triple, len(g.triples))
	copy(sorted, g.triples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })
	var buf []byte
	for _, t := range sorted {
		buf = append(buf, t.String()...)
		buf = append(buf, '\n')
	}
	return buf
}
