package rank

import "sort"

// Ranked pairs an item with its 1-based rank.
type Ranked[T any] struct {
	Item T
	Rank int
}

// Descending orders items by key, highest first, and assigns ranks 1..K.
// The sort is stable: on equal keys the item seen first ranks higher, so no
// two items share a rank and the sequence has no gaps.
func Descending[T any](items []T, key func(T) float64) []Ranked[T] {
	out := make([]Ranked[T], len(items))
	for i, it := range items {
		out[i] = Ranked[T]{Item: it}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return key(out[i].Item) > key(out[j].Item)
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
