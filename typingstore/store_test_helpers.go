package typingstore

import (
	"strings"
	"testing"

	"github.com/google/mangle/ast"
	"github.com/google/mangle/factstore"
)

// runSuite exercises one store implementation through the shared
// FactStore contract plus the typing-specific helpers. Both backends
// run the same suite.
func runSuite(t *testing.T, newStore func() (*Store, error)) {
	t.Helper()

	t.Run("AddContainsRemove", func(t *testing.T) {
		store := mustStore(t, newStore)
		atom := ConformsAtom("<http://example.org/x>", 0)

		if store.Contains(atom) {
			t.Error("empty store claims to contain an atom")
		}
		if !store.Add(atom) {
			t.Error("first Add returned false")
		}
		if store.Add(atom) {
			t.Error("second Add of the same atom returned true")
		}
		if !store.Contains(atom) {
			t.Error("store does not contain the added atom")
		}
		if !store.Remove(atom) {
			t.Error("Remove of a present atom returned false")
		}
		if store.Remove(atom) {
			t.Error("Remove of an absent atom returned true")
		}
	})

	t.Run("VerdictHelpers", func(t *testing.T) {
		store := mustStore(t, newStore)
		if !store.AddConforms("<http://example.org/x>", 1) {
			t.Error("AddConforms returned false")
		}
		if !store.Conforms("<http://example.org/x>", 1) {
			t.Error("Conforms lost the pair")
		}
		if store.Conforms("<http://example.org/x>", 2) {
			t.Error("Conforms reports a pair with a different shape index")
		}
		if !store.AddViolates("<http://example.org/y>", 1) {
			t.Error("AddViolates returned false")
		}
		if store.Conforms("<http://example.org/y>", 1) {
			t.Error("a violates row must not satisfy Conforms")
		}
		if !store.Violates("<http://example.org/y>", 1) {
			t.Error("Violates lost the pair")
		}
	})

	t.Run("RejectsForeignPredicates", func(t *testing.T) {
		store := mustStore(t, newStore)
		foreign := ast.Atom{
			Predicate: ast.PredicateSym{Symbol: "person", Arity: 2},
			Args:      []ast.BaseTerm{ast.String("a"), ast.Number(1)},
		}
		if store.Add(foreign) {
			t.Error("store accepted an atom over a foreign predicate")
		}
	})

	t.Run("GetFactsPatterns", func(t *testing.T) {
		store := mustStore(t, newStore)
		store.AddConforms("<http://example.org/a>", 0)
		store.AddConforms("<http://example.org/a>", 1)
		store.AddConforms("<http://example.org/b>", 0)
		store.AddViolates("<http://example.org/a>", 2)

		if got := countFacts(t, store, ast.NewQuery(ConformsPredicate)); got != 3 {
			t.Errorf("all-conforms query returned %d atoms, want 3", got)
		}
		// Bind the node argument.
		pattern := ast.Atom{
			Predicate: ConformsPredicate,
			Args:      []ast.BaseTerm{ast.String("<http://example.org/a>"), ast.Variable{Symbol: "S"}},
		}
		if got := countFacts(t, store, pattern); got != 2 {
			t.Errorf("node-bound query returned %d atoms, want 2", got)
		}
		// Bind the shape argument.
		pattern = ast.Atom{
			Predicate: ConformsPredicate,
			Args:      []ast.BaseTerm{ast.Variable{Symbol: "N"}, ast.Number(0)},
		}
		if got := countFacts(t, store, pattern); got != 2 {
			t.Errorf("shape-bound query returned %d atoms, want 2", got)
		}
	})

	t.Run("ListPredicatesAndCount", func(t *testing.T) {
		store := mustStore(t, newStore)
		store.AddConforms("<http://example.org/a>", 0)
		store.AddViolates("<http://example.org/b>", 0)

		preds := store.ListPredicates()
		if len(preds) != 2 {
			t.Fatalf("ListPredicates returned %v, want conforms/2 and violates/2", preds)
		}
		if got := store.EstimateFactCount(); got != 2 {
			t.Errorf("EstimateFactCount = %d, want 2", got)
		}
	})

	t.Run("Merge", func(t *testing.T) {
		dst := mustStore(t, newStore)
		src := factstore.NewSimpleInMemoryStore()
		src.Add(ConformsAtom("<http://example.org/a>", 0))
		src.Add(ConformsAtom("<http://example.org/b>", 3))

		dst.Merge(src)
		if !dst.Conforms("<http://example.org/a>", 0) || !dst.Conforms("<http://example.org/b>", 3) {
			t.Error("Merge dropped verdicts")
		}
	})

	t.Run("WriteToReadFromRoundTrip", func(t *testing.T) {
		src := mustStore(t, newStore)
		src.AddConforms("<http://example.org/a>", 0)
		src.AddViolates("<http://example.org/b>", 7)

		var sb strings.Builder
		if _, err := src.WriteTo(&sb); err != nil {
			t.Fatalf("WriteTo: %v", err)
		}

		dst := mustStore(t, newStore)
		if _, err := dst.ReadFrom(strings.NewReader(sb.String())); err != nil {
			t.Fatalf("ReadFrom: %v", err)
		}
		if !dst.Conforms("<http://example.org/a>", 0) {
			t.Error("round trip lost the conforms verdict")
		}
		if !dst.Violates("<http://example.org/b>", 7) {
			t.Error("round trip lost the violates verdict")
		}
	})
}

func mustStore(t *testing.T, newStore func() (*Store, error)) *Store {
	t.Helper()
	store, err := newStore()
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func countFacts(t *testing.T, store *Store, pattern ast.Atom) int {
	t.Helper()
	count := 0
	if err := store.GetFacts(pattern, func(ast.Atom) error {
		count++
		return nil
	}); err != nil {
		t.Fatalf("GetFacts: %v", err)
	}
	return count
}
