package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingKeepsMostRecent(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 5; i++ {
		r.Append(i)
		assert.LessOrEqual(t, r.Len(), 3)
	}

	assert.Equal(t, []int{3, 4, 5}, r.Snapshot())
}

func TestRingPartial(t *testing.T) {
	r := NewRing[string](20)
	r.Append("a")
	r.Append("b")
	assert.Equal(t, []string{"a", "b"}, r.Snapshot())
	assert.Equal(t, 2, r.Len())
}

func TestRingReset(t *testing.T) {
	r := NewRing[int](2)
	r.Append(1)
	r.Append(2)
	r.Append(3)
	r.Reset()
	assert.Zero(t, r.Len())
	assert.Empty(t, r.Snapshot())

	r.Append(9)
	assert.Equal(t, []int{9}, r.Snapshot())
}

func TestRingSnapshotIsCopy(t *testing.T) {
	r := NewRing[int](2)
	r.Append(1)
	snap := r.Snapshot()
	snap[0] = 42
	assert.Equal(t, []int{1}, r.Snapshot())
}
