package typingstore

import (
	"path/filepath"
	"testing"
)

func TestSQLiteStoreInMemory(t *testing.T) {
	runSuite(t, func() (*Store, error) {
		return NewSQLite(":memory:")
	})
}

func TestSQLiteStoreOnDisk(t *testing.T) {
	dir := t.TempDir()
	i := 0
	runSuite(t, func() (*Store, error) {
		i++
		return NewSQLite(filepath.Join(dir, "typings_"+string(rune('a'+i))+".db"))
	})
}

func TestSQLiteWithPragma(t *testing.T) {
	store, err := NewSQLite(":memory:", WithPragma("synchronous", "NORMAL"))
	if err != nil {
		t.Fatalf("NewSQLite with pragma override: %v", err)
	}
	defer store.Close()

	if !store.AddConforms("<http://example.org/x>", 0) {
		t.Error("store with overridden pragma rejected an add")
	}
}
