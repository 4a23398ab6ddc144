package typingstore

import (
	"fmt"
	"testing"

	"github.com/google/mangle/ast"
)

func benchStore(b *testing.B) *Store {
	b.Helper()
	store, err := NewSQLite(":memory:")
	if err != nil {
		b.Fatalf("failed to create store: %v", err)
	}
	b.Cleanup(func() { store.Close() })
	return store
}

func BenchmarkAddConforms(b *testing.B) {
	store := benchStore(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.AddConforms(fmt.Sprintf("<http://example.org/n%d>", i), i%16)
	}
}

func BenchmarkConformsHit(b *testing.B) {
	store := benchStore(b)
	for i := 0; i < 1000; i++ {
		store.AddConforms(fmt.Sprintf("<http://example.org/n%d>", i), i%16)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		n := i % 1000
		store.Conforms(fmt.Sprintf("<http://example.org/n%d>", n), n%16)
	}
}

func BenchmarkBatchInsert(b *testing.B) {
	atoms := make([]ast.Atom, 2000)
	for i := range atoms {
		atoms[i] = ConformsAtom(fmt.Sprintf("<http://example.org/n%d>", i), i%16)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		store := benchStore(b)
		b.StartTimer()
		if err := store.batchInsert(atoms); err != nil {
			b.Fatalf("batchInsert: %v", err)
		}
	}
}
