package engine

// ring is a fixed-capacity newest-first buffer.
//
// Push prepends; once capacity is reached the oldest entry is evicted.
// It replaces the ad hoc slice-and-truncate bookkeeping around bounded
// history and undo collections with a single type.
type ring[T any] struct {
	cap   int
	items []T
}

// newRing creates a ring with the given capacity.
func newRing[T any](capacity int) *ring[T] {
	return &ring[T]{cap: capacity, items: make([]T, 0, capacity)}
}

// Push prepends an item, evicting the oldest if the ring is full.
func (r *ring[T]) Push(item T) {
	if len(r.items) == r.cap {
		r.items = r.items[:r.cap-1]
	}
	r.items = append([]T{item}, r.items...)
}

// Items returns a copy of the contents, newest first.
func (r *ring[T]) Items() []T {
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

// Len returns the number of stored items.
func (r *ring[T]) Len() int {
	return len(r.items)
}

// Replace swaps the item at index i. Used for the one-shot undoable to
// not-undoable transition; records themselves are never replaced.
func (r *ring[T]) Replace(i int, item T) {
	r.items[i] = item
}

// At returns the item at index i (0 = newest).
func (r *ring[T]) At(i int) T {
	return r.items[i]
}

// Clear removes all items.
func (r *ring[T]) Clear() {
	r.items = r.items[:0]
}
