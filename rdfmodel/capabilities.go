package rdfmodel

import (
	"context"

	"bitbucket.org/creachadair/stringset"
)

// Pattern is a triple-pattern slot: either a concrete value or Any,
// matching the TriplesMatching contract.
type Pattern struct {
	term Term
	any  bool
}

func Any() Pattern          { return Pattern{any: true} }
func Exact(t Term) Pattern { return Pattern{term: t} }

func (p Pattern) IsAny() bool { return p.any }
func (p Pattern) Term() Term  { return p.term }

func (p Pattern) Matches(t Term) bool {
	return p.any || p.term.Equal(t)
}

// PrefixMap maps short aliases to IRI prefixes, used to qualify IRIs for
// display and to resolve prefixed names. The core never validates IRI
// syntax itself; it only does string
// concatenation/stripping.
type PrefixMap struct {
	byAlias  map[string]string
	domain   stringset.Set
}

func NewPrefixMap() *PrefixMap {
	return &PrefixMap{byAlias: make(map[string]string), domain: stringset.New()}
}

func (m *PrefixMap) Insert(alias, iri string) {
	m.byAlias[alias] = iri
	m.domain.Add(alias)
}

// Qualify renders iri as "alias:local" using the longest matching prefix,
// or the bracketed absolute form if no prefix matches.
func (m *PrefixMap) Qualify(iri string) string {
	bestAlias, bestPrefix := "", ""
	for alias, prefix := range m.byAlias {
		if len(prefix) > len(bestPrefix) && len(iri) >= len(prefix) && iri[:len(prefix)] == prefix {
			bestAlias, bestPrefix = alias, prefix
		}
	}
	if bestPrefix == "" {
		return "<" + iri + ">"
	}
	return bestAlias + ":" + iri[len(bestPrefix):]
}

func (m *PrefixMap) Aliases() stringset.Set { return m.domain.Clone() }

// Expand resolves a prefixed name "alias:local" to an absolute IRI.
// ok is false when the alias is unknown or the input has no colon.
func (m *PrefixMap) Expand(prefixed string) (iri string, ok bool) {
	colon := -1
	for i, r := range prefixed {
		if r == ':' {
			colon = i
			break
		}
	}
	if colon < 0 {
		return "", false
	}
	prefix, found := m.byAlias[prefixed[:colon]]
	if !found {
		return "", false
	}
	return prefix + prefixed[colon+1:], true
}

// Core is the capability set every RDF implementation provides: term
// construction is handled by this package's Node/Predicate/Triple
// constructors directly, so Core here is reduced to qualification and
// prefix-map access.
type Core interface {
	PrefixMap() *PrefixMap
	Qualify(iri string) string
}

// Read is the read-side capability set: iteration and pattern-filtered
// lookup over a materialised graph.
type Read interface {
	Core
	AllTriples() []Triple
	TriplesWithSubject(s Subject) []Triple
	TriplesWithPredicate(p Predicate) []Triple
	TriplesMatching(s, p, o Pattern) []Triple
}

// OutgoingArcs is the hot path of shape validation: given a subject and
// a predicate list, return matched objects per
// predicate plus the "remainder" predicates that appeared in an outgoing
// triple of the subject but were not requested.
type OutgoingArcs interface {
	Neighbourhood(s Subject, preds []Predicate) (matched map[string][]Term, remainder stringset.Set, err error)
}

// Builder is the write-side capability set: insert/remove triples, base
// IRI, prefixes, fresh blank nodes, prefix-map replacement, serialisation.
type Builder interface {
	Core
	InsertTriple(t Triple) error
	RemoveTriple(t Triple) error
	SetBaseIRI(iri string)
	InsertPrefix(alias, iri string)
	FreshBlankNode() Node
	ReplacePrefixMap(m *PrefixMap)
	Serialize(format Format) ([]byte, error)
}

// Format names the serialisation formats supported by the
// reference in-memory implementation. Turtle/N-Triples/RDF-XML/TriG/N3
// parsing itself stays an external collaborator; only JSON-LD and
// N-Quads output is implemented: memgraph writes N-Quads itself and
// renders JSON-LD through the jsonld subpackage.
type Format int

const (
	FormatTurtle Format = iota
	FormatNTriples
	FormatRDFXML
	FormatNQuads
	FormatJSONLD
	FormatTriG
	FormatN3
)

// ReaderMode controls how a Read implementation's ingestion reacts to
// malformed input; strict mode aborts, lax mode logs and continues
// (a parser concern — the engine itself assumes a fully-materialised
// graph).
type ReaderMode int

const (
	ModeStrict ReaderMode = iota
	ModeLax
)

// AsyncRead mirrors Read for endpoint-backed implementations: analogous
// predicates/objects/subjects-by-pair queries that may suspend at a
// remote-fetch boundary.
type AsyncRead interface {
	Core
	TriplesWithSubjectAsync(ctx context.Context, s Subject) ([]Triple, error)
	TriplesWithPredicateAsync(ctx context.Context, p Predicate) ([]Triple, error)
	TriplesMatchingAsync(ctx context.Context, s, p, o Pattern) ([]Triple, error)
}

// Binding is one row of a SPARQL result set: variable name to bound term.
type Binding map[string]Term

// QueryResult is the result of a SPARQL SELECT/ASK/CONSTRUCT query.
type QueryResult struct {
	Bindings []Binding // SELECT
	Ask      bool      // ASK
	AskValue bool
	Triples  []Triple // CONSTRUCT
}

// Query is the SPARQL capability set, implemented only by the SPARQL
// endpoint adapter.
type Query interface {
	Select(ctx context.Context, query string) (QueryResult, error)
	Ask(ctx context.Context, query string) (bool, error)
	Construct(ctx context.Context, query string) ([]Triple, error)
}

// SourceLocator names where a schema, shape map, or RDF document comes
// from, without performing the fetch itself — the seam a CLI host would
// implement.
type SourceLocator interface {
	// Kind is one of "path", "inline", "url".
	Kind() string
	String() string
}

type PathLocator string

func (p PathLocator) Kind() string   { return "path" }
func (p PathLocator) String() string { return string(p) }

type InlineLocator string

func (InlineLocator) Kind() string   { return "inline" }
func (i InlineLocator) String() string { return string(i) }

type URLLocator string

func (URLLocator) Kind() string   { return "url" }
func (u URLLocator) String() string { return string(u) }
