package sparqlendpoint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/twinfer/shexcore/rdfmodel"
)

const selectResponse = `{
	"head": {"vars": ["p", "o"]},
	"results": {"bindings": [
		{
			"p": {"type": "uri", "value": "http://example.org/age"},
			"o": {"type": "literal", "value": "30", "datatype": "http://www.w3.org/2001/XMLSchema#integer"}
		},
		{
			"p": {"type": "uri", "value": "http://example.org/name"},
			"o": {"type": "literal", "value": "Alice", "xml:lang": "en"}
		}
	]}
}`

func TestSelectAndAccept(t *testing.T) {
	var gotQuery, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/sparql-results+json")
		w.Write([]byte(selectResponse))
	}))
	defer srv.Close()

	client := New(srv.URL)
	result, err := client.Select(context.Background(), "SELECT ?p ?o WHERE { <http://example.org/alice> ?p ?o }")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if gotAccept != "application/sparql-results+json" {
		t.Errorf("Accept = %q", gotAccept)
	}
	if !strings.HasPrefix(gotQuery, "SELECT") {
		t.Errorf("query not forwarded: %q", gotQuery)
	}
	if len(result.Bindings) != 2 {
		t.Fatalf("got %d bindings, want 2", len(result.Bindings))
	}
	age := result.Bindings[0]["o"]
	if age.Kind() != rdfmodel.KindLiteral || age.Literal().LexicalForm() != "30" {
		t.Errorf("first object = %v", age)
	}
	name := result.Bindings[1]["o"]
	if name.Literal().Lang() != "en" {
		t.Errorf("language tag lost: %v", name)
	}
}

func TestAsk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"head": {}, "boolean": true}`))
	}))
	defer srv.Close()

	ok, err := New(srv.URL).Ask(context.Background(), "ASK { ?s ?p ?o }")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !ok {
		t.Error("Ask = false, want true")
	}
}

func TestTriplesWithSubjectAsync(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q, _ := url.QueryUnescape(r.URL.RawQuery)
		if !strings.Contains(q, "<http://example.org/alice>") {
			t.Errorf("subject not inlined into query: %s", q)
		}
		w.Write([]byte(selectResponse))
	}))
	defer srv.Close()

	triples, err := New(srv.URL).TriplesWithSubjectAsync(context.Background(), rdfmodel.IRINode("http://example.org/alice"))
	if err != nil {
		t.Fatalf("TriplesWithSubjectAsync: %v", err)
	}
	if len(triples) != 2 {
		t.Fatalf("got %d triples, want 2", len(triples))
	}
	if triples[0].Predicate.IRI() != "http://example.org/age" {
		t.Errorf("predicate = %s", triples[0].Predicate.IRI())
	}
}

func TestConstructViaJSONLD(t *testing.T) {
	var gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/ld+json")
		w.Write([]byte(`[{"@id": "http://example.org/alice", "http://example.org/knows": [{"@id": "http://example.org/bob"}]}]`))
	}))
	defer srv.Close()

	triples, err := New(srv.URL).Construct(context.Background(), "CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }")
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	if gotAccept != "application/ld+json" {
		t.Errorf("Accept = %q", gotAccept)
	}
	if len(triples) != 1 {
		t.Fatalf("got %d triples, want 1", len(triples))
	}
	if triples[0].Object.IRI() != "http://example.org/bob" {
		t.Errorf("object = %v", triples[0].Object)
	}
}

func TestErrorStatusSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "malformed query", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Select(context.Background(), "SELECT")
	if err == nil || !strings.Contains(err.Error(), "malformed query") {
		t.Fatalf("error should carry the endpoint body, got %v", err)
	}
}

func TestBlankNodeSubjectRejected(t *testing.T) {
	client := New("http://unused.invalid")
	_, err := client.TriplesWithSubjectAsync(context.Background(), rdfmodel.BlankNode("b0"))
	if err == nil {
		t.Fatal("blank-node subjects cannot be addressed remotely")
	}
}
