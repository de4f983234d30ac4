package rank

import (
	"testing"

	"pgregory.net/rapid"
)

func TestDescending(t *testing.T) {
	type row struct {
		id    string
		score float64
	}
	rows := []row{{"a", 1}, {"b", 3}, {"c", 3}, {"d", 0}}

	got := Descending(rows, func(r row) float64 { return r.score })

	want := []string{"b", "c", "a", "d"}
	for i, r := range got {
		if r.Item.id != want[i] {
			t.Errorf("position %d = %s, want %s", i, r.Item.id, want[i])
		}
		if r.Rank != i+1 {
			t.Errorf("rank of %s = %d, want %d", r.Item.id, r.Rank, i+1)
		}
	}
}

func TestDescendingEmpty(t *testing.T) {
	if got := Descending[int](nil, func(int) float64 { return 0 }); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}

func TestDescendingRanksAreContiguous(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.SliceOf(rapid.IntRange(0, 5)).Draw(t, "keys")
		got := Descending(keys, func(k int) float64 { return float64(k) })

		if len(got) != len(keys) {
			t.Fatalf("len = %d, want %d", len(got), len(keys))
		}
		for i, r := range got {
			if r.Rank != i+1 {
				t.Fatalf("rank %d at position %d", r.Rank, i)
			}
			if i > 0 && got[i-1].Item < r.Item {
				t.Fatalf("not descending at %d: %v", i, got)
			}
		}
	})
}
