// Package sparqlendpoint is the remote-graph adapter: it implements
// the AsyncRead and Query capability sets over HTTP GET against a
// SPARQL endpoint, with content-type negotiation per query kind.
// Suspension happens only at the remote-fetch boundary; the validator
// itself never blocks on the network.
package sparqlendpoint

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/twinfer/shexcore/jsonld"
	"github.com/twinfer/shexcore/literal"
	"github.com/twinfer/shexcore/rdfmodel"
)

// Accept headers per query kind.
const (
	acceptSPARQLResults = "application/sparql-results+json"
	acceptJSONLD        = "application/ld+json"
)

// Client issues SPARQL queries over HTTP GET with a URL-encoded
// `query` parameter.
type Client struct {
	endpoint string
	http     *http.Client
	prefix   *rdfmodel.PrefixMap
}

var (
	_ rdfmodel.AsyncRead = (*Client)(nil)
	_ rdfmodel.Query     = (*Client)(nil)
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client (30s timeout).
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithPrefixMap installs a prefix map for qualification.
func WithPrefixMap(m *rdfmodel.PrefixMap) ClientOption {
	return func(c *Client) { c.prefix = m }
}

// New returns a client for the given endpoint URL.
func New(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
		prefix:   rdfmodel.NewPrefixMap(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) PrefixMap() *rdfmodel.PrefixMap { return c.prefix }

func (c *Client) Qualify(iri string) string { return c.prefix.Qualify(iri) }

// get issues the query and returns the response body. The caller owns
// closing.
func (c *Client) get(ctx context.Context, query, accept string) (io.ReadCloser, error) {
	u := c.endpoint + "?query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("sparqlendpoint: failed to build request: %w", err)
	}
	req.Header.Set("Accept", accept)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sparqlendpoint: request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, fmt.Errorf("sparqlendpoint: endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return resp.Body, nil
}

// sparqlResults is the application/sparql-results+json wire form.
type sparqlResults struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Boolean *bool `json:"boolean"`
	Results struct {
		Bindings []map[string]sparqlTerm `json:"bindings"`
	} `json:"results"`
}

type sparqlTerm struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype"`
	Lang     string `json:"xml:lang"`
}

func (st sparqlTerm) node() (rdfmodel.Node, error) {
	switch st.Type {
	case "uri":
		return rdfmodel.IRINode(st.Value), nil
	case "bnode":
		return rdfmodel.BlankNode(st.Value), nil
	case "literal", "typed-literal":
		if st.Lang != "" {
			return rdfmodel.LiteralNode(literal.String(st.Value, st.Lang)), nil
		}
		datatype := st.Datatype
		if datatype == "" {
			datatype = literal.XSDString
		}
		return rdfmodel.LiteralNode(literal.FromLexical(st.Value, datatype)), nil
	}
	return rdfmodel.Node{}, fmt.Errorf("sparqlendpoint: unknown term type %q", st.Type)
}

// Select runs a SELECT query and returns the variable bindings.
func (c *Client) Select(ctx context.Context, query string) (rdfmodel.QueryResult, error) {
	body, err := c.get(ctx, query, acceptSPARQLResults)
	if err != nil {
		return rdfmodel.QueryResult{}, err
	}
	defer body.Close()

	var wire sparqlResults
	if err := json.UnmarshalRead(body, &wire); err != nil {
		return rdfmodel.QueryResult{}, fmt.Errorf("sparqlendpoint: failed to decode results: %w", err)
	}

	result := rdfmodel.QueryResult{}
	for _, row := range wire.Results.Bindings {
		binding := make(rdfmodel.Binding, len(row))
		for name, term := range row {
			node, err := term.node()
			if err != nil {
				return rdfmodel.QueryResult{}, err
			}
			binding[name] = node
		}
		result.Bindings = append(result.Bindings, binding)
	}
	return result, nil
}

// Ask runs an ASK query.
func (c *Client) Ask(ctx context.Context, query string) (bool, error) {
	body, err := c.get(ctx, query, acceptSPARQLResults)
	if err != nil {
		return false, err
	}
	defer body.Close()

	var wire sparqlResults
	if err := json.UnmarshalRead(body, &wire); err != nil {
		return false, fmt.Errorf("sparqlendpoint: failed to decode results: %w", err)
	}
	if wire.Boolean == nil {
		return false, fmt.Errorf("sparqlendpoint: ASK response carries no boolean")
	}
	return *wire.Boolean, nil
}

// Construct runs a CONSTRUCT query, requesting JSON-LD and converting
// the document into triples.
func (c *Client) Construct(ctx context.Context, query string) ([]rdfmodel.Triple, error) {
	body, err := c.get(ctx, query, acceptJSONLD)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("sparqlendpoint: failed to read CONSTRUCT body: %w", err)
	}
	return jsonld.UnmarshalGraph(data)
}

// --- AsyncRead ---

// TriplesWithSubjectAsync fetches the outgoing triples of s.
func (c *Client) TriplesWithSubjectAsync(ctx context.Context, s rdfmodel.Subject) ([]rdfmodel.Triple, error) {
	subjTerm, err := sparqlTermString(s)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT ?p ?o WHERE { %s ?p ?o }", subjTerm)
	result, err := c.Select(ctx, query)
	if err != nil {
		return nil, err
	}
	var triples []rdfmodel.Triple
	for _, b := range result.Bindings {
		p, pok := b["p"]
		o, ook := b["o"]
		if !pok || !ook || p.Kind() != rdfmodel.KindIRI {
			continue
		}
		triples = append(triples, rdfmodel.Triple{Subject: s, Predicate: rdfmodel.NewPredicate(p.IRI()), Object: o})
	}
	return triples, nil
}

// TriplesWithPredicateAsync fetches every triple with predicate p.
func (c *Client) TriplesWithPredicateAsync(ctx context.Context, p rdfmodel.Predicate) ([]rdfmodel.Triple, error) {
	query := fmt.Sprintf("SELECT ?s ?o WHERE { ?s <%s> ?o }", p.IRI())
	result, err := c.Select(ctx, query)
	if err != nil {
		return nil, err
	}
	var triples []rdfmodel.Triple
	for _, b := range result.Bindings {
		s, sok := b["s"]
		o, ook := b["o"]
		if !sok || !ook {
			continue
		}
		triples = append(triples, rdfmodel.Triple{Subject: s, Predicate: p, Object: o})
	}
	return triples, nil
}

// TriplesMatchingAsync fetches triples matching the pattern, with Any
// positions becoming query variables.
func (c *Client) TriplesMatchingAsync(ctx context.Context, s, p, o rdfmodel.Pattern) ([]rdfmodel.Triple, error) {
	sTerm, err := patternTerm(s, "?s")
	if err != nil {
		return nil, err
	}
	pTerm, err := patternTerm(p, "?p")
	if err != nil {
		return nil, err
	}
	oTerm, err := patternTerm(o, "?o")
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT ?s ?p ?o WHERE { %s %s %s }", sTerm, pTerm, oTerm)
	result, err := c.Select(ctx, query)
	if err != nil {
		return nil, err
	}

	var triples []rdfmodel.Triple
	for _, b := range result.Bindings {
		subj := bound(b, "s", s)
		pred := bound(b, "p", p)
		obj := bound(b, "o", o)
		if pred.Kind() != rdfmodel.KindIRI {
			continue
		}
		triples = append(triples, rdfmodel.Triple{Subject: subj, Predicate: rdfmodel.NewPredicate(pred.IRI()), Object: obj})
	}
	return triples, nil
}

func bound(b rdfmodel.Binding, name string, pattern rdfmodel.Pattern) rdfmodel.Node {
	if !pattern.IsAny() {
		return pattern.Term()
	}
	return b[name]
}

func patternTerm(p rdfmodel.Pattern, variable string) (string, error) {
	if p.IsAny() {
		return variable, nil
	}
	return sparqlTermString(p.Term())
}

// sparqlTermString renders a node in SPARQL surface syntax. Blank
// nodes cannot be addressed across requests and are rejected.
func sparqlTermString(n rdfmodel.Node) (string, error) {
	switch n.Kind() {
	case rdfmodel.KindIRI:
		return "<" + n.IRI() + ">", nil
	case rdfmodel.KindLiteral:
		lit := n.Literal()
		quoted := strconv.Quote(lit.LexicalForm())
		if lang := lit.Lang(); lang != "" {
			return quoted + "@" + lang, nil
		}
		if dt := lit.Datatype(); dt != literal.XSDString {
			return quoted + "^^<" + dt + ">", nil
		}
		return quoted, nil
	case rdfmodel.KindBlank:
		return "", fmt.Errorf("sparqlendpoint: blank node _:%s cannot be addressed remotely", n.BlankID())
	}
	return "", fmt.Errorf("sparqlendpoint: node %v has no SPARQL surface form", n)
}
