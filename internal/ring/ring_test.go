package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_FillsThenEvictsOldest(t *testing.T) {
	r := New[int](1000)
	for i := 0; i < 1001; i++ {
		r.Push(i)
	}

	assert.Equal(t, 1000, r.Len())
	assert.Equal(t, uint64(1001), r.Total())
	assert.Equal(t, 1, r.At(0), "earliest sample should have been evicted")
	assert.Equal(t, 1000, r.At(999))

	items := r.Items()
	require.Len(t, items, 1000)
	assert.Equal(t, 1, items[0])
	assert.Equal(t, 1000, items[len(items)-1])
}

func TestRing_PartialFill(t *testing.T) {
	r := New[string](4)
	r.Push("a")
	r.Push("b")

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 4, r.Cap())
	assert.Equal(t, []string{"a", "b"}, r.Items())
	assert.Equal(t, []string{"b", "a"}, r.Last(5))
}

func TestRing_TailAndLast(t *testing.T) {
	r := New[int](5)
	for i := 1; i <= 8; i++ {
		r.Push(i)
	}
	// retained: 4 5 6 7 8
	assert.Equal(t, []int{6, 7, 8}, r.Tail(3))
	assert.Equal(t, []int{8, 7, 6}, r.Last(3))
	assert.Equal(t, []int{}, r.Tail(0))
	assert.Equal(t, []int{4, 5, 6, 7, 8}, r.Tail(10))
}

func TestRing_Since(t *testing.T) {
	r := New[int](3)
	r.Push(1)
	mark := r.Total()
	r.Push(2)
	r.Push(3)

	assert.Equal(t, []int{2, 3}, r.Since(mark))
	assert.Empty(t, r.Since(r.Total()))

	// more pushes than capacity since the mark: only retained entries come back
	mark = r.Total()
	for i := 4; i <= 8; i++ {
		r.Push(i)
	}
	assert.Equal(t, []int{6, 7, 8}, r.Since(mark))
}

func TestRing_ItemsIsACopy(t *testing.T) {
	r := New[int](2)
	r.Push(1)
	items := r.Items()
	items[0] = 42
	assert.Equal(t, 1, r.At(0))
}

func TestRing_InvalidCapacity(t *testing.T) {
	assert.Panics(t, func() { New[int](0) })
}
