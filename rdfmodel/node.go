// Package rdfmodel defines the RDF term model and the polymorphic RDF
// abstraction the engine depends on: Core, Read, the outgoing-arc
// fetch, Build, Async, and Query capability sets, expressed as Go
// interfaces so the engine is parameterised over a capability set
// rather than a concrete implementation.
//
// Conversions between this model and concrete serialisation forms live
// in the rdf and jsonld subpackages.
package rdfmodel

import (
	"fmt"

	"github.com/twinfer/shexcore/literal"
)

// NodeKind discriminates the Node union.
type NodeKind int

const (
	KindIRI NodeKind = iota
	KindBlank
	KindLiteral
	KindTriple
)

// Node is the discriminated RDF term value: IRI, blank node, literal, or
// (for RDF-star) a quoted Triple. Quoted triples are carried as opaque
// terms: they never match a literal facet and never produce a
// subject-side neighbourhood.
type Node struct {
	kind    NodeKind
	iri     string
	blankID string
	lit     literal.Literal
	triple  *Triple
}

func IRINode(iri string) Node           { return Node{kind: KindIRI, iri: iri} }
func BlankNode(id string) Node          { return Node{kind: KindBlank, blankID: id} }
func LiteralNode(l literal.Literal) Node { return Node{kind: KindLiteral, lit: l} }
func TripleNode(t Triple) Node          { return Node{kind: KindTriple, triple: &t} }

func (n Node) Kind() NodeKind       { return n.kind }
func (n Node) IRI() string          { return n.iri }
func (n Node) BlankID() string      { return n.blankID }
func (n Node) Literal() literal.Literal { return n.lit }
func (n Node) Triple() *Triple       { return n.triple }

// IsSubject reports whether n can appear as the subject of a triple
// (IRI, blank node, or quoted triple) — literals cannot, so they have
// no outgoing neighbourhood.
func (n Node) IsSubject() bool { return n.kind != KindLiteral }

func (n Node) Equal(other Node) bool {
	if n.kind != other.kind {
		return false
	}
	switch n.kind {
	case KindIRI:
		return n.iri == other.iri
	case KindBlank:
		return n.blankID == other.blankID
	case KindLiteral:
		return n.lit.Match(other.lit)
	case KindTriple:
		return n.triple.Subject.Equal(other.triple.Subject) &&
			n.triple.Predicate.Equal(other.triple.Predicate) &&
			n.triple.Object.Equal(other.triple.Object)
	}
	return false
}

func (n Node) String() string {
	switch n.kind {
	case KindIRI:
		return "<" + n.iri + ">"
	case KindBlank:
		return "_:" + n.blankID
	case KindLiteral:
		return n.lit.String()
	case KindTriple:
		return fmt.Sprintf("<<%s %s %s>>", n.triple.Subject, n.triple.Predicate, n.triple.Object)
	}
	return "?"
}

// Predicate wraps an absolute IRI
type Predicate struct {
	iri string
}

func NewPredicate(iri string) Predicate { return Predicate{iri: iri} }

func (p Predicate) IRI() string          { return p.iri }
func (p Predicate) Equal(o Predicate) bool { return p.iri == o.iri }
func (p Predicate) String() string        { return "<" + p.iri + ">" }

// Subject is the restriction of Node to {IRI, Blank, Triple} — the subject
// position of a triple.
type Subject = Node

// Term is the restriction of Node to {Subject, Literal} — any RDF term.
type Term = Node

// Triple is a (subject, predicate, object) fact.
type Triple struct {
	Subject   Subject
	Predicate Predicate
	Object    Term
}

func (t Triple) String() string {
	return fmt.Sprintf("%s %s %s .", t.Subject, t.Predicate, t.Object)
}

// SubjectToTerm and TermToObject perform the widening conversions
// between the subject, term, and object positions.
func SubjectToTerm(s Subject) Term { return s }

func TermToObject(t Term) Term { return t }
