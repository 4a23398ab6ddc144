// Package shexast defines the abstract syntax tree a ShEx-Compact,
// ShEx-JSON, or SHACL-RDF front end produces. Parsing those textual
// forms is an external collaborator; this package only carries the tree
// the compiler package consumes.
package shexast

// FrontEnd names which surface syntax produced a Schema, so the compiler
// can apply front-end-specific defaults (SHACL's implicit `sh:closed
// false`, ShEx's explicit `CLOSED` keyword) while sharing one IR.
type FrontEnd int

const (
	FrontEndShEx FrontEnd = iota
	FrontEndSHACL
)

// Schema is the root of a parsed shape schema.
type Schema struct {
	FrontEnd FrontEnd
	Prefixes map[string]string
	Base     string
	Start    *ShapeExpr // nil if the schema declares no start shape
	Shapes   []ShapeDecl
	Imports  []string
}

// ShapeLabel names a declared shape: an absolute IRI or a blank-node
// label.
type ShapeLabel struct {
	IRI   string
	Blank string
}

func IRILabel(iri string) ShapeLabel { return ShapeLabel{IRI: iri} }
func BlankLabel(id string) ShapeLabel { return ShapeLabel{Blank: id} }

func (l ShapeLabel) IsBlank() bool { return l.Blank != "" }

func (l ShapeLabel) String() string {
	if l.IsBlank() {
		return "_:" + l.Blank
	}
	return l.IRI
}

// ShapeDecl is one top-level shape declaration.
type ShapeDecl struct {
	Label      ShapeLabel
	Expr       ShapeExpr
	Abstract   bool
	Restricts  []ShapeLabel // SHACL sh:node-style restriction references
}

// ShapeExprKind discriminates the ShapeExpr AST union.
type ShapeExprKind int

const (
	SEShapeRef ShapeExprKind = iota
	SEShapeAnd
	SEShapeOr
	SEShapeNot
	SENodeConstraint
	SEShape
	SEExternal
)

// ShapeExpr is the AST-level shape expression, mirroring the IR union
// one level up (before label resolution to indices).
type ShapeExpr struct {
	Kind  ShapeExprKind
	Ref   ShapeLabel
	And   []ShapeExpr
	Or    []ShapeExpr
	Not   *ShapeExpr
	NC    *NodeConstraint
	Shape *ShapeDef
}

// NodeConstraint is the AST form of a value-constraint node: node kind,
// datatype, XSD facets, and/or a value set. All fields are optional; the
// compiler ANDs together whichever are present.
type NodeConstraint struct {
	NodeKind *NodeKind
	Datatype string

	Length         *int
	MinLength      *int
	MaxLength      *int
	Pattern        string
	Flags          string
	MinInclusive   string
	MinExclusive   string
	MaxInclusive   string
	MaxExclusive   string
	TotalDigits    *int
	FractionDigits *int

	Values []ValueSetValue
}

// NodeKind is the AST node-kind facet: iri / bnode / literal / nonliteral.
type NodeKind int

const (
	NodeKindIRI NodeKind = iota
	NodeKindBNode
	NodeKindLiteral
	NodeKindNonLiteral
)

// ValueSetValueKind discriminates the value-set member union.
type ValueSetValueKind int

const (
	VSObjectValue ValueSetValueKind = iota
	VSIRIStem
	VSIRIStemRange
	VSLiteralStem
	VSLiteralStemRange
	VSLanguage
	VSLanguageStem
	VSLanguageStemRange
)

// ValueSetValue is one member of a NodeConstraint's value set.
type ValueSetValue struct {
	Kind ValueSetValueKind

	// ObjectValue: either an IRI or a literal lexical+datatype+lang.
	IRI      string
	Lexical  string
	Datatype string
	Lang     string

	// Stem forms.
	Stem       string
	Exclusions []StemExclusion
}

// StemExclusion is one excluded value or sub-stem within a stem range:
// an exclusion removes a literal match or a whole sub-prefix.
type StemExclusion struct {
	IsStem bool
	Value  string
}

// TripleExprKind discriminates the TripleExpr AST union.
type TripleExprKind int

const (
	TEEachOf TripleExprKind = iota
	TEOneOf
	TETripleConstraint
	TETripleExprRef
)

// TripleExpr is the AST form of a shape's triple expression. Label
// names the expression so other shapes can include it by reference;
// Ref is such an inclusion, resolved and inlined by the compiler.
type TripleExpr struct {
	Kind  TripleExprKind
	Label string
	Ref   string // TETripleExprRef

	// EachOf / OneOf.
	Exprs []TripleExpr

	// TripleConstraint. CardSet distinguishes an explicit cardinality
	// (including the degenerate {0,0}) from an absent one, which defaults
	// to {1,1}.
	Predicate string
	Inverse   bool
	ValueExpr *ShapeExpr // nil means unconstrained (any value)
	CardSet   bool
	Min       int
	Max       int // -1 means unbounded

	Annotations []Annotation
	SemActs     []SemAct
}

// Annotation is a ShEx annotation (predicate/value pair) attached to a
// triple constraint; carried through to the typing but never checked,
// as opaque pass-through metadata.
type Annotation struct {
	Predicate string
	Object    string
}

// SemAct is a ShEx semantic action; the compiler records it as a host
// extension point but never executes the code.
type SemAct struct {
	Name string
	Code string
}

// ShapeDef is the AST form of a full Shape (as opposed to a bare
// NodeConstraint)'s Shape variant.
type ShapeDef struct {
	Closed      bool
	Extra       []string
	Expr        *TripleExpr // nil means the empty triple expression
	Extends     []ShapeLabel
	Annotations []Annotation
	SemActs     []SemAct
}

// Constructors mirroring the compiler's expected call shape.

func RefExpr(label ShapeLabel) ShapeExpr { return ShapeExpr{Kind: SEShapeRef, Ref: label} }

func AndExpr(exprs ...ShapeExpr) ShapeExpr { return ShapeExpr{Kind: SEShapeAnd, And: exprs} }

func OrExpr(exprs ...ShapeExpr) ShapeExpr { return ShapeExpr{Kind: SEShapeOr, Or: exprs} }

func NotExpr(expr ShapeExpr) ShapeExpr { return ShapeExpr{Kind: SEShapeNot, Not: &expr} }

func NodeConstraintExpr(nc NodeConstraint) ShapeExpr {
	return ShapeExpr{Kind: SENodeConstraint, NC: &nc}
}

func ShapeExprOf(def ShapeDef) ShapeExpr { return ShapeExpr{Kind: SEShape, Shape: &def} }

// TC builds a TripleConstraint with the default {1,1} cardinality.
func TC(predicate string, valueExpr *ShapeExpr) TripleExpr {
	return TripleExpr{Kind: TETripleConstraint, Predicate: predicate, ValueExpr: valueExpr}
}

// TCCard builds a TripleConstraint with an explicit cardinality; max -1
// means unbounded.
func TCCard(predicate string, valueExpr *ShapeExpr, min, max int) TripleExpr {
	return TripleExpr{Kind: TETripleConstraint, Predicate: predicate, ValueExpr: valueExpr, CardSet: true, Min: min, Max: max}
}

func EachOf(exprs ...TripleExpr) TripleExpr { return TripleExpr{Kind: TEEachOf, Exprs: exprs} }

func OneOf(exprs ...TripleExpr) TripleExpr { return TripleExpr{Kind: TEOneOf, Exprs: exprs} }

// TERef builds a reference to a triple expression labelled elsewhere in
// the schema.
func TERef(label string) TripleExpr { return TripleExpr{Kind: TETripleExprRef, Ref: label} }

// Labelled names te so TERef inclusions can resolve to it.
func Labelled(label string, te TripleExpr) TripleExpr {
	te.Label = label
	return te
}

func ExternalExpr() ShapeExpr { return ShapeExpr{Kind: SEExternal} }
