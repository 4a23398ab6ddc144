package rbe

import (
	"testing"

	"github.com/twinfer/shexcore/literal"
	"github.com/twinfer/shexcore/rdfmodel"
)

func noopCond(name string) MatchCond {
	return Single(name, func(rdfmodel.Term) ([]Obligation, error) { return nil, nil })
}

func TestCardinalityAccepts(t *testing.T) {
	cases := []struct {
		c    Cardinality
		n    int
		want bool
	}{
		{Cardinality{0, 0}, 0, true},
		{Cardinality{0, 0}, 1, false},
		{Cardinality{0, Unbounded}, 0, true},
		{Cardinality{0, Unbounded}, 1000, true},
		{Cardinality{1, 1}, 1, true},
		{Cardinality{1, 1}, 0, false},
		{Cardinality{1, 1}, 2, false},
	}
	for _, tc := range cases {
		if got := tc.c.Accepts(tc.n); got != tc.want {
			t.Errorf("%v.Accepts(%d) = %v, want %v", tc.c, tc.n, got, tc.want)
		}
	}
}

func TestNormalise(t *testing.T) {
	sym := SymbolOf(0, 1, 1)
	if got := Normalise(sym, Cardinality{1, 1}); got.Kind() != KindSymbol {
		t.Errorf("{1,1} should stay a plain symbol, got %v", got.Kind())
	}
	if got := Normalise(sym, Cardinality{0, Unbounded}); got.Kind() != KindStar {
		t.Errorf("{0,*} should normalise to Star, got %v", got.Kind())
	}
	if got := Normalise(sym, Cardinality{1, Unbounded}); got.Kind() != KindPlus {
		t.Errorf("{1,*} should normalise to Plus, got %v", got.Kind())
	}
	if got := Normalise(sym, Cardinality{2, 3}); got.Kind() != KindRepeat {
		t.Errorf("{2,3} should normalise to Repeat, got %v", got.Kind())
	}
}

func TestMatchesSingleRequired(t *testing.T) {
	table := NewTable(SymbolOf(0, 1, 1), map[SymbolID]TableEntry{
		0: {Predicate: "http://ex/name", Cond: noopCond(".")},
	})
	bag := []Pair{{Predicate: "http://ex/name", Object: rdfmodel.LiteralNode(literal.String("Alice", ""))}}

	var got []MatchResult
	for res, err := range table.Matches(bag, nil) {
		if err != nil {
			continue
		}
		got = append(got, res)
		break
	}
	if len(got) == 0 {
		t.Fatalf("expected at least one accepted matching")
	}
}

func TestMatchesEmptyBagRejectsRequiredSymbol(t *testing.T) {
	table := NewTable(SymbolOf(0, 1, 1), map[SymbolID]TableEntry{
		0: {Predicate: "http://ex/name", Cond: noopCond(".")},
	})
	sawSuccess := false
	for res, err := range table.Matches(nil, nil) {
		if err == nil {
			sawSuccess = true
			_ = res
		}
	}
	if sawSuccess {
		t.Errorf("an empty bag must not satisfy a required symbol")
	}
}

func TestMatchesStarAcceptsEmptyBag(t *testing.T) {
	table := NewTable(Star(SymbolOf(0, 1, 1)), map[SymbolID]TableEntry{
		0: {Predicate: "http://ex/tag", Cond: noopCond(".")},
	})
	sawSuccess := false
	for _, err := range table.Matches(nil, nil) {
		if err == nil {
			sawSuccess = true
		}
	}
	if !sawSuccess {
		t.Errorf("Star should accept the empty bag")
	}
}
