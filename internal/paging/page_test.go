package paging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, Request{Page: 1, Limit: DefaultLimit}, Normalize(0, 0))
	assert.Equal(t, Request{Page: 3, Limit: MaxLimit}, Normalize(3, 1000))
	assert.Equal(t, 20, Normalize(3, 10).Offset())
}

func TestNew(t *testing.T) {
	p := New([]int{4, 5}, Request{Page: 2, Limit: 3}, 5)
	assert.Equal(t, 2, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.True(t, p.HasPrev)

	empty := New[int](nil, Request{Page: 1, Limit: 10}, 0)
	assert.NotNil(t, empty.Items)
	assert.Zero(t, empty.TotalPages)
	assert.False(t, empty.HasNext)
}

func TestMap(t *testing.T) {
	p := Map(New([]int{1, 2}, Request{Page: 1, Limit: 2}, 4), func(i int) string {
		return string(rune('a' + i))
	})
	assert.Equal(t, []string{"b", "c"}, p.Items)
	assert.True(t, p.HasNext)
	assert.Equal(t, int64(4), p.Total)
}
