// Package engine implements the fix-point validation algorithm: a
// worklist scheduler over pending (node, shape-index) atoms that
// recursively proves each atom's dependencies under a growing
// hypothesis frame, memoising positive proofs permanently and negative
// proofs per top-level atom. Shape inheritance is handled by
// enumerating partitions of the neighbourhood across the extends
// layers, and abstract shapes dispatch to their declared descendants.
package engine

import (
	"log"

	"github.com/dustin/go-humanize"
	"github.com/twinfer/shexcore/rdfmodel"
	"github.com/twinfer/shexcore/rdfxerrors"
	"github.com/twinfer/shexcore/shexir"
)

// DefaultMaxSteps bounds a run when no explicit budget is configured.
const DefaultMaxSteps = 1_000_000

// TypingStore is the optional persistence seam for proved atoms: a
// store can warm-start a later engine over the same schema and graph.
// The concrete SQL-backed implementation lives in the typingstore
// package; the engine only depends on this narrow interface.
type TypingStore interface {
	// AddConforms records a proved (node, shape-index) pair; reports
	// whether it was newly recorded.
	AddConforms(node string, idx int) bool
	// Conforms reports whether the pair was proved by an earlier run.
	Conforms(node string, idx int) bool
}

// ExternalResolver decides External shape expressions. A nil error
// means the node conforms. When no resolver is installed, External
// succeeds unconditionally.
type ExternalResolver func(node rdfmodel.Node, idx shexir.ShapeLabelIdx) error

type options struct {
	maxSteps int
	external ExternalResolver
	store    TypingStore
}

// Option configures an Engine.
type Option func(*options)

// WithMaxSteps sets the step budget: the counter is incremented on each
// popped atom, and once it has reached n the run stops with
// MaxStepsReached if atoms are still pending.
func WithMaxSteps(n int) Option {
	return func(o *options) { o.maxSteps = n }
}

// WithExternalResolver installs a host hook for External shape
// expressions.
func WithExternalResolver(fn ExternalResolver) Option {
	return func(o *options) { o.external = fn }
}

// WithTypingStore attaches a persistent typing cache. Every permanently
// proved atom is written through; atoms the store already holds are
// accepted without re-proving.
func WithTypingStore(ts TypingStore) Option {
	return func(o *options) { o.store = ts }
}

// Engine is the scope of all mutation during a validation run. The
// SchemaIR and the RDF graph are read-only and may be shared across
// concurrent engine instances.
type Engine struct {
	ir   *shexir.SchemaIR
	rdf  rdfmodel.Read
	opts options

	pending []Atom
	typing  *Typing
	steps   int

	// localNeg holds negative memo entries for the top-level atom
	// currently being proved; it is reset when the next atom is popped,
	// implementing per-top-level-proof scoping of negative results.
	localNeg map[string][]error

	runErrs []error
}

// New builds an engine over a compiled schema and a materialised graph.
func New(ir *shexir.SchemaIR, rdf rdfmodel.Read, opts ...Option) *Engine {
	o := options{maxSteps: DefaultMaxSteps}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		ir:     ir,
		rdf:    rdf,
		opts:   o,
		typing: NewTyping(),
	}
}

// SetShapeMap seeds the pending worklist with the given atoms.
func (e *Engine) SetShapeMap(entries []Atom) {
	e.pending = append(e.pending, entries...)
}

// ValidatePending runs the worklist to quiescence (or to the step
// budget), recording every atom's verdict in the typing.
func (e *Engine) ValidatePending() error {
	for len(e.pending) > 0 {
		if e.steps >= e.opts.maxSteps {
			err := &rdfxerrors.MaxStepsReached{Steps: e.opts.maxSteps}
			log.Printf("engine: stopped after %s steps with %s atoms still pending",
				humanize.Comma(int64(e.opts.maxSteps)), humanize.Comma(int64(len(e.pending))))
			e.runErrs = append(e.runErrs, err)
			return err
		}
		e.steps++
		atom := e.pending[0]
		e.pending = e.pending[1:]
		e.localNeg = make(map[string][]error)

		if e.typing.Holds(atom.Node, atom.Idx) {
			continue
		}
		if e.opts.store != nil && e.opts.store.Conforms(atom.Node.String(), int(atom.Idx)) {
			label, _ := e.labelOf(atom.Idx)
			e.typing.addPos(atom, []Reason{cachedReason(atom.Node.String(), label, int(atom.Idx))})
			continue
		}

		if _, errs := e.prove(atom, newHypFrame()); errs != nil {
			e.typing.addNeg(atom, errs)
		}
	}
	return nil
}

// Typing returns the accumulated typing.
func (e *Engine) Typing() *Typing { return e.typing }

// Reasons returns the reason list for a proved atom, or nil.
func (e *Engine) Reasons(a Atom) []Reason {
	if entry, ok := e.typing.pos[a.key()]; ok {
		return entry.Reasons
	}
	return nil
}

// Errors returns the error list for a refuted atom, or nil.
func (e *Engine) Errors(a Atom) []error {
	if entry, ok := e.typing.neg[a.key()]; ok {
		return entry.Errors
	}
	return nil
}

// Steps returns the number of atoms popped so far.
func (e *Engine) Steps() int { return e.steps }

// RunErrors returns run-level failures (currently only MaxStepsReached).
func (e *Engine) RunErrors() []error { return e.runErrs }

// labelOf renders idx's label qualified against the schema prefix map.
func (e *Engine) labelOf(idx shexir.ShapeLabelIdx) (string, error) {
	info, err := e.ir.FindShapeIdx(idx)
	if err != nil {
		return "", err
	}
	if info.Label.IRI != "" {
		return e.ir.PrefixMap().Qualify(info.Label.IRI), nil
	}
	return info.Label.String(), nil
}

func (e *Engine) shapeRef(idx shexir.ShapeLabelIdx) rdfxerrors.ShapeRef {
	label, _ := e.labelOf(idx)
	return rdfxerrors.ShapeRef{Label: label, Idx: int(idx)}
}
