package engine

import (
	"strconv"

	"github.com/twinfer/shexcore/rbe"
	"github.com/twinfer/shexcore/rdfmodel"
	"github.com/twinfer/shexcore/shexir"
)

// Atom is a (node, shape-index) pair, the unit the fix-point prover
// works over.
type Atom struct {
	Node rdfmodel.Node
	Idx  shexir.ShapeLabelIdx
}

// key is the canonical map key for an atom. Node values are not
// comparable (literals carry big.Int pointers), so memo maps are keyed
// on the rendered pair instead of the atom value itself.
func (a Atom) key() string {
	return a.Node.String() + "@" + strconv.Itoa(int(a.Idx))
}

func (a Atom) String() string { return a.key() }

// PosEntry records a proved atom and the reasons that prove it.
type PosEntry struct {
	Atom    Atom
	Reasons []Reason
}

// NegEntry records a refuted atom and the errors that refute it.
type NegEntry struct {
	Atom   Atom
	Errors []error
}

// Typing is the set of positive atoms proved during a run plus the
// negative atoms with their attached error lists. Positive atoms are
// monotonic within a run; insertion order is preserved so two runs over
// the same inputs report identical typings.
type Typing struct {
	pos      map[string]*PosEntry
	neg      map[string]*NegEntry
	posOrder []string
	negOrder []string
}

func NewTyping() *Typing {
	return &Typing{
		pos: make(map[string]*PosEntry),
		neg: make(map[string]*NegEntry),
	}
}

var _ rbe.TypingChecker = (*Typing)(nil)

// Holds reports whether (node, idx) is a proved positive.
func (t *Typing) Holds(node rdfmodel.Term, idx rbe.ShapeLabelIdx) bool {
	_, ok := t.pos[Atom{Node: node, Idx: idx}.key()]
	return ok
}

func (t *Typing) addPos(a Atom, reasons []Reason) {
	k := a.key()
	if _, ok := t.pos[k]; ok {
		return
	}
	t.pos[k] = &PosEntry{Atom: a, Reasons: reasons}
	t.posOrder = append(t.posOrder, k)
}

func (t *Typing) addNeg(a Atom, errs []error) {
	k := a.key()
	if _, ok := t.neg[k]; ok {
		return
	}
	t.neg[k] = &NegEntry{Atom: a, Errors: errs}
	t.negOrder = append(t.negOrder, k)
}

// Positives returns the proved atoms in proof order.
func (t *Typing) Positives() []PosEntry {
	out := make([]PosEntry, 0, len(t.posOrder))
	for _, k := range t.posOrder {
		out = append(out, *t.pos[k])
	}
	return out
}

// Negatives returns the refuted atoms in refutation order.
func (t *Typing) Negatives() []NegEntry {
	out := make([]NegEntry, 0, len(t.negOrder))
	for _, k := range t.negOrder {
		out = append(out, *t.neg[k])
	}
	return out
}

// hypFrame is the hypothesis stack of the current proof: atoms assumed
// true while their own dependencies are being discharged. Ancestors in
// the frame are dropped from dependency sets, which is what breaks
// semantic cycles like `<S> @<S>`.
type hypFrame struct {
	keys  []string
	inUse map[string]bool
}

func newHypFrame() *hypFrame {
	return &hypFrame{inUse: make(map[string]bool)}
}

func (h *hypFrame) push(a Atom) {
	k := a.key()
	h.keys = append(h.keys, k)
	h.inUse[k] = true
}

func (h *hypFrame) pop() {
	k := h.keys[len(h.keys)-1]
	h.keys = h.keys[:len(h.keys)-1]
	delete(h.inUse, k)
}

func (h *hypFrame) contains(a Atom) bool { return h.inUse[a.key()] }

// hypTyping is the candidate typing a proof checks against: the
// permanent positives plus the atoms currently assumed in the
// hypothesis frame.
type hypTyping struct {
	base *Typing
	hyp  *hypFrame
}

var _ rbe.TypingChecker = (*hypTyping)(nil)

func (t *hypTyping) Holds(node rdfmodel.Term, idx rbe.ShapeLabelIdx) bool {
	if t.base.Holds(node, idx) {
		return true
	}
	return t.hyp.contains(Atom{Node: node, Idx: idx})
}
