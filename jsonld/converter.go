// Package jsonld serialises RDF graphs as JSON-LD documents, using
// json-gold as the processor and the rdf subpackage as the bridge
// between the engine's triple model and json-gold's dataset form. The
// wrappers implement json.MarshalerTo / json.UnmarshalerFrom so a
// graph can be streamed through a jsontext encoder alongside other
// validation output.
package jsonld

import (
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/piprate/json-gold/ld"
	"github.com/twinfer/shexcore/rdf"
	"github.com/twinfer/shexcore/rdfmodel"
)

// GraphJSONLD wraps a triple list for JSON-LD serialisation. Marshal
// emits the expanded JSON-LD form of the triples; Unmarshal accepts
// any JSON-LD document (including @graph containers) and converts it
// back to triples.
type GraphJSONLD struct {
	Triples []rdfmodel.Triple
}

// MarshalJSONTo implements json.MarshalerTo for GraphJSONLD.
func (g GraphJSONLD) MarshalJSONTo(enc *jsontext.Encoder) error {
	dataset, err := rdf.TriplesToDataset(g.Triples)
	if err != nil {
		return fmt.Errorf("failed to convert triples to RDF dataset: %w", err)
	}

	opts := ld.NewJsonLdOptions("")
	opts.UseNativeTypes = false

	doc, err := ld.NewJsonLdApi().FromRDF(dataset, opts)
	if err != nil {
		return fmt.Errorf("failed to convert RDF to JSON-LD: %w", err)
	}
	return json.MarshalEncode(enc, doc)
}

// UnmarshalJSONFrom implements json.UnmarshalerFrom for GraphJSONLD.
func (g *GraphJSONLD) UnmarshalJSONFrom(dec *jsontext.Decoder) error {
	raw, err := dec.ReadValue()
	if err != nil {
		return fmt.Errorf("failed to read JSON value: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal JSON-LD: %w", err)
	}

	proc := ld.NewJsonLdProcessor()
	opts := ld.NewJsonLdOptions("")

	datasetRaw, err := proc.ToRDF(doc, opts)
	if err != nil {
		return fmt.Errorf("failed to convert JSON-LD to RDF: %w", err)
	}
	dataset, ok := datasetRaw.(*ld.RDFDataset)
	if !ok {
		return fmt.Errorf("unexpected RDF dataset type: %T", datasetRaw)
	}

	triples, err := rdf.DatasetToTriples(dataset, "")
	if err != nil {
		return fmt.Errorf("failed to convert RDF to triples: %w", err)
	}
	g.Triples = triples
	return nil
}

// MarshalGraph renders a graph's triples as a JSON-LD document in one
// call, for callers that don't stream.
func MarshalGraph(triples []rdfmodel.Triple) ([]byte, error) {
	return json.Marshal(GraphJSONLD{Triples: triples})
}

// UnmarshalGraph parses a JSON-LD document into triples.
func UnmarshalGraph(data []byte) ([]rdfmodel.Triple, error) {
	var g GraphJSONLD
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	return g.Triples, nil
}
