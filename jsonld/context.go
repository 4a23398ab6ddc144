package jsonld

// XSDNamespace and RDFNamespace are the vocabularies the literal model
// emits datatypes in.
const (
	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"
	RDFNamespace = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
)

// DefaultContext returns a JSON-LD context mapping the namespaces this
// module's serialisation uses. Callers embedding a graph into a larger
// document can merge it into their own @context.
func DefaultContext() map[string]interface{} {
	return map[string]interface{}{
		"xsd": XSDNamespace,
		"rdf": RDFNamespace,
	}
}
