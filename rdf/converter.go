// Package rdf converts between the engine's triple model and
// json-gold's RDF dataset form, the bridge both the JSON-LD
// serialisation surface and the SPARQL endpoint adapter build on.
package rdf

import (
	"fmt"
	"strings"

	"github.com/piprate/json-gold/ld"
	"github.com/twinfer/shexcore/literal"
	"github.com/twinfer/shexcore/rdfmodel"
	"github.com/twinfer/shexcore/rdfxerrors"
)

// DefaultGraph is the dataset graph name triples are placed in.
const DefaultGraph = "@default"

// TriplesToDataset converts a triple list to an RDF dataset in the
// default graph.
func TriplesToDataset(triples []rdfmodel.Triple) (*ld.RDFDataset, error) {
	dataset := ld.NewRDFDataset()
	for _, t := range triples {
		quad, err := TripleToQuad(t)
		if err != nil {
			return nil, fmt.Errorf("failed to convert triple to quad: %w", err)
		}
		dataset.Graphs[DefaultGraph] = append(dataset.Graphs[DefaultGraph], quad)
	}
	return dataset, nil
}

// TripleToQuad converts one triple into a default-graph quad.
func TripleToQuad(t rdfmodel.Triple) (*ld.Quad, error) {
	subject, err := NodeToLD(t.Subject)
	if err != nil {
		return nil, err
	}
	object, err := NodeToLD(t.Object)
	if err != nil {
		return nil, err
	}
	return ld.NewQuad(subject, ld.NewIRI(t.Predicate.IRI()), object, DefaultGraph), nil
}

// NodeToLD converts a node to its json-gold form. Quoted triples are
// opaque terms with no quad representation and fail the conversion.
func NodeToLD(n rdfmodel.Node) (ld.Node, error) {
	switch n.Kind() {
	case rdfmodel.KindIRI:
		return ld.NewIRI(n.IRI()), nil
	case rdfmodel.KindBlank:
		return ld.NewBlankNode("_:" + n.BlankID()), nil
	case rdfmodel.KindLiteral:
		lit := n.Literal()
		if lang := lit.Lang(); lang != "" {
			return ld.NewLiteral(lit.LexicalForm(), literal.RDFLangString, lang), nil
		}
		return ld.NewLiteral(lit.LexicalForm(), lit.Datatype(), ""), nil
	case rdfmodel.KindTriple:
		return nil, &rdfxerrors.TermToRDFNodeFailed{Reason: "quoted triples have no quad form"}
	}
	return nil, &rdfxerrors.TermToRDFNodeFailed{Reason: fmt.Sprintf("unknown node kind %d", n.Kind())}
}

// LDToNode converts a json-gold node back into the engine's model.
// Typed literals go through the literal model's lexical parsing so a
// malformed value survives as a WrongDatatypeLiteral instead of
// aborting the conversion. Both pointer and value node forms are
// accepted — constructors hand out pointers, but processor-built
// datasets have carried either across json-gold versions.
func LDToNode(node ld.Node) (rdfmodel.Node, error) {
	switch v := node.(type) {
	case *ld.IRI:
		return rdfmodel.IRINode(v.Value), nil
	case ld.IRI:
		return rdfmodel.IRINode(v.Value), nil
	case *ld.BlankNode:
		return rdfmodel.BlankNode(strings.TrimPrefix(v.Attribute, "_:")), nil
	case ld.BlankNode:
		return rdfmodel.BlankNode(strings.TrimPrefix(v.Attribute, "_:")), nil
	case *ld.Literal:
		return literalNode(*v), nil
	case ld.Literal:
		return literalNode(v), nil
	}
	return rdfmodel.Node{}, &rdfxerrors.TermToRDFNodeFailed{Reason: fmt.Sprintf("unknown ld node type %T", node)}
}

func literalNode(lit ld.Literal) rdfmodel.Node {
	if lit.Language != "" {
		return rdfmodel.LiteralNode(literal.String(lit.Value, lit.Language))
	}
	datatype := lit.Datatype
	if datatype == "" {
		datatype = literal.XSDString
	}
	return rdfmodel.LiteralNode(literal.FromLexical(lit.Value, datatype))
}

// DatasetToTriples converts one graph of a dataset back into triples,
// in quad order. graphName defaults to the default graph.
func DatasetToTriples(dataset *ld.RDFDataset, graphName string) ([]rdfmodel.Triple, error) {
	if graphName == "" {
		graphName = DefaultGraph
	}
	quads := dataset.Graphs[graphName]
	triples := make([]rdfmodel.Triple, 0, len(quads))
	for _, quad := range quads {
		t, err := QuadToTriple(quad)
		if err != nil {
			return nil, err
		}
		triples = append(triples, t)
	}
	return triples, nil
}

// QuadToTriple converts one quad, dropping its graph position.
func QuadToTriple(quad *ld.Quad) (rdfmodel.Triple, error) {
	subject, err := LDToNode(quad.Subject)
	if err != nil {
		return rdfmodel.Triple{}, err
	}
	predNode, err := LDToNode(quad.Predicate)
	if err != nil {
		return rdfmodel.Triple{}, err
	}
	if predNode.Kind() != rdfmodel.KindIRI {
		return rdfmodel.Triple{}, &rdfxerrors.TermToRDFNodeFailed{Reason: "quad predicate is not an IRI"}
	}
	object, err := LDToNode(quad.Object)
	if err != nil {
		return rdfmodel.Triple{}, err
	}
	return rdfmodel.Triple{
		Subject:   subject,
		Predicate: rdfmodel.NewPredicate(predNode.IRI()),
		Object:    object,
	}, nil
}
