package id

import (
	"sort"
	"testing"
)

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 10000; i++ {
		v := New()
		if seen[v] {
			t.Fatalf("duplicate id: %s", v)
		}
		seen[v] = true
	}
}

func TestNewIsMonotonic(t *testing.T) {
	// ids generated in sequence must sort in generation order
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = New()
	}
	if !sort.StringsAreSorted(ids) {
		t.Fatal("ids are not lexicographically ordered by generation time")
	}
}

func TestNewLength(t *testing.T) {
	if got := len(New()); got != 26 {
		t.Fatalf("want 26-char ULID, got %d", got)
	}
}
