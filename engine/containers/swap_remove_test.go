package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSwapRemoveMiddle(t *testing.T) {
	data := []string{"a", "b", "c", "d"}
	data, moved := SwapRemove(data, 1)
	assert.True(t, moved)
	assert.Equal(t, []string{"a", "d", "c"}, data)
}

func TestSwapRemoveLast(t *testing.T) {
	data := []int{1, 2, 3}
	data, moved := SwapRemove(data, 2)
	assert.False(t, moved)
	assert.Equal(t, []int{1, 2}, data)
}

func TestSwapRemoveClearsTail(t *testing.T) {
	a, b := new(int), new(int)
	data := []*int{a, b}
	var moved bool
	data, moved = SwapRemove(data, 0)
	assert.True(t, moved)
	assert.Equal(t, []*int{b}, data)
	// the vacated backing slot must not keep the pointer alive
	assert.Nil(t, data[:2][1])
}

func TestIndexOf(t *testing.T) {
	assert.Equal(t, 2, IndexOf([]int{4, 5, 6}, 6))
	assert.Equal(t, -1, IndexOf([]int{4, 5, 6}, 7))
}
