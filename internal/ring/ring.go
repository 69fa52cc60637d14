// Package ring provides a fixed-capacity FIFO buffer that overwrites its
// oldest entry once full.
package ring

// Ring is not safe for concurrent use; owners guard it with their own lock.
type Ring[T any] struct {
	values []T
	head   int // next write position
	count  int
	total  uint64
}

func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}
	return &Ring[T]{values: make([]T, capacity)}
}

func (r *Ring[T]) Push(v T) {
	r.values[r.head] = v
	r.head = (r.head + 1) % len(r.values)
	if r.count < len(r.values) {
		r.count++
	}
	r.total++
}

func (r *Ring[T]) Len() int { return r.count }

func (r *Ring[T]) Cap() int { return len(r.values) }

// Total is the number of pushes ever made, including evicted entries.
func (r *Ring[T]) Total() uint64 { return r.total }

// At returns the i-th retained entry, 0 being the oldest.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.count {
		panic("ring: index out of range")
	}
	return r.values[r.index(i)]
}

// Items copies the retained entries, oldest first.
func (r *Ring[T]) Items() []T {
	return r.Tail(r.count)
}

// Tail copies the n most recent entries, oldest first.
func (r *Ring[T]) Tail(n int) []T {
	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return []T{}
	}
	out := make([]T, n)
	start := r.count - n
	for i := 0; i < n; i++ {
		out[i] = r.values[r.index(start+i)]
	}
	return out
}

// Last copies the n most recent entries, newest first.
func (r *Ring[T]) Last(n int) []T {
	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return []T{}
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = r.values[r.index(r.count-1-i)]
	}
	return out
}

// Since copies the entries pushed after the mark returned by an earlier call
// to Total, oldest first. Entries already evicted are skipped.
func (r *Ring[T]) Since(mark uint64) []T {
	if mark >= r.total {
		return []T{}
	}
	n := r.total - mark
	if n > uint64(r.count) {
		n = uint64(r.count)
	}
	return r.Tail(int(n))
}

func (r *Ring[T]) index(i int) int {
	oldest := r.head - r.count
	if oldest < 0 {
		oldest += len(r.values)
	}
	return (oldest + i) % len(r.values)
}
