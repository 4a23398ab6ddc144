// Package shapemap drives the validation engine from a user-supplied
// node→shape assignment: it parses the compact textual form, expands
// selectors against an RDF graph into concrete (node, shape-index)
// atoms, seeds the engine's pending set, and reports per-entry
// conformance against the expected polarity.
package shapemap

import (
	"fmt"

	"github.com/twinfer/shexcore/engine"
	"github.com/twinfer/shexcore/rdfmodel"
	"github.com/twinfer/shexcore/shexir"
)

// Polarity is the expected outcome of an entry.
type Polarity int

const (
	Positive Polarity = iota
	Negative
)

func (p Polarity) String() string {
	if p == Negative {
		return "nonconformant"
	}
	return "conformant"
}

// SelectorKind discriminates the node-selector union.
type SelectorKind int

const (
	SelConcrete SelectorKind = iota
	SelFocus
	SelTriplePattern
)

// Selector picks the nodes an entry applies to: a concrete term, or a
// triple pattern whose FOCUS position collects matching nodes. The
// bare Focus token is only meaningful inside a triple pattern.
type Selector struct {
	Kind SelectorKind

	Node rdfmodel.Node // SelConcrete

	// SelTriplePattern: {FOCUS p o} or {s p FOCUS}. Object/Subject is
	// nil for the `_` wildcard.
	FocusIsSubject bool
	Predicate      string
	Other          *rdfmodel.Node
}

// ShapeSelector picks the shape: a label IRI or the Start token.
type ShapeSelector struct {
	Start bool
	IRI   string
}

// Entry is one abstract shape-map association.
type Entry struct {
	Node     Selector
	Shape    ShapeSelector
	Expected Polarity
}

// Association is one expanded, concrete (node, shape-index) pairing,
// retaining the entry it came from.
type Association struct {
	Atom     engine.Atom
	Expected Polarity
	Entry    Entry
}

// Expand resolves every entry's selectors against the graph and
// schema, producing concrete associations. A triple-pattern selector
// yields one association per matching node, in graph iteration order.
func Expand(entries []Entry, rdf rdfmodel.Read, ir *shexir.SchemaIR) ([]Association, error) {
	var out []Association
	for _, entry := range entries {
		idx, err := resolveShape(entry.Shape, ir)
		if err != nil {
			return nil, err
		}
		nodes, err := selectNodes(entry.Node, rdf)
		if err != nil {
			return nil, err
		}
		for _, node := range nodes {
			out = append(out, Association{
				Atom:     engine.Atom{Node: node, Idx: idx},
				Expected: entry.Expected,
				Entry:    entry,
			})
		}
	}
	return out, nil
}

func resolveShape(sel ShapeSelector, ir *shexir.SchemaIR) (shexir.ShapeLabelIdx, error) {
	if sel.Start {
		idx, err := ir.GetShapeLabelIdx(shexir.StartLabel)
		if err != nil {
			return 0, fmt.Errorf("shapemap: schema declares no start shape: %w", err)
		}
		return idx, nil
	}
	idx, err := ir.GetShapeLabelIdx(shexir.ShapeLabel{IRI: sel.IRI})
	if err != nil {
		return 0, fmt.Errorf("shapemap: %w", err)
	}
	return idx, nil
}

func selectNodes(sel Selector, rdf rdfmodel.Read) ([]rdfmodel.Node, error) {
	switch sel.Kind {
	case SelConcrete:
		return []rdfmodel.Node{sel.Node}, nil

	case SelTriplePattern:
		pred := rdfmodel.Exact(rdfmodel.IRINode(sel.Predicate))
		other := rdfmodel.Any()
		if sel.Other != nil {
			other = rdfmodel.Exact(*sel.Other)
		}
		var triples []rdfmodel.Triple
		if sel.FocusIsSubject {
			triples = rdf.TriplesMatching(rdfmodel.Any(), pred, other)
		} else {
			triples = rdf.TriplesMatching(other, pred, rdfmodel.Any())
		}
		var nodes []rdfmodel.Node
		seen := make(map[string]bool)
		for _, t := range triples {
			focus := t.Object
			if sel.FocusIsSubject {
				focus = t.Subject
			}
			if key := focus.String(); !seen[key] {
				seen[key] = true
				nodes = append(nodes, focus)
			}
		}
		return nodes, nil
	}
	return nil, fmt.Errorf("shapemap: selector kind %d cannot stand alone", sel.Kind)
}

// ReportEntry is the per-association outcome.
type ReportEntry struct {
	Node     string          `json:"node"`
	Shape    string          `json:"shape"`
	Idx      int             `json:"idx"`
	Expected string          `json:"expected"`
	Conforms bool            `json:"conforms"`
	Matched  bool            `json:"matched"` // achieved polarity equals expected
	Reasons  []engine.Reason `json:"reasons,omitempty"`
	Errors   []string        `json:"errors,omitempty"`
}

// Report is the outcome of one driven validation run.
type Report struct {
	Entries []ReportEntry `json:"entries"`
}

// Matched reports whether every association achieved its expected
// polarity.
func (r Report) Matched() bool {
	for _, e := range r.Entries {
		if !e.Matched {
			return false
		}
	}
	return true
}

// Run expands the entries, seeds the engine, validates to quiescence,
// and compares each association's achieved polarity with its expected
// one. A run-level failure (step budget) is returned alongside the
// partial report.
func Run(eng *engine.Engine, rdf rdfmodel.Read, ir *shexir.SchemaIR, entries []Entry) (Report, error) {
	assocs, err := Expand(entries, rdf, ir)
	if err != nil {
		return Report{}, err
	}
	atoms := make([]engine.Atom, len(assocs))
	for i, a := range assocs {
		atoms[i] = a.Atom
	}
	eng.SetShapeMap(atoms)
	runErr := eng.ValidatePending()

	var report Report
	for _, a := range assocs {
		conforms := eng.Typing().Holds(a.Atom.Node, a.Atom.Idx)
		entry := ReportEntry{
			Node:     a.Atom.Node.String(),
			Shape:    shapeDisplay(a, ir),
			Idx:      int(a.Atom.Idx),
			Expected: a.Expected.String(),
			Conforms: conforms,
			Matched:  conforms == (a.Expected == Positive),
		}
		if conforms {
			entry.Reasons = eng.Reasons(a.Atom)
		} else {
			for _, err := range eng.Errors(a.Atom) {
				entry.Errors = append(entry.Errors, err.Error())
			}
		}
		report.Entries = append(report.Entries, entry)
	}
	return report, runErr
}

func shapeDisplay(a Association, ir *shexir.SchemaIR) string {
	info, err := ir.FindShapeIdx(a.Atom.Idx)
	if err != nil {
		return fmt.Sprintf("#%d", a.Atom.Idx)
	}
	if info.Label.IRI != "" {
		return ir.PrefixMap().Qualify(info.Label.IRI)
	}
	return info.Label.String()
}
