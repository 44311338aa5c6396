package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, Pagination{Page: 0, Size: DefaultSize}, Pagination{Page: -3}.Normalize())
	assert.Equal(t, Pagination{Page: 2, Size: MaxSize}, Pagination{Page: 2, Size: 1000}.Normalize())
	assert.Equal(t, 40, Pagination{Page: 2, Size: 20}.Offset())
}

func TestNewPage(t *testing.T) {
	page := NewPage([]int{1, 2}, Pagination{Page: 1, Size: 2}, 5)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, int64(5), page.TotalElements)
	assert.False(t, page.First)
	assert.False(t, page.Last)

	empty := NewPage[int](nil, Pagination{}, 0)
	assert.NotNil(t, empty.Content)
	assert.Equal(t, 0, empty.TotalPages)
	assert.True(t, empty.First)
	assert.True(t, empty.Last)

	mapped := Map(page, func(v int) string { return string(rune('a' + v)) })
	assert.Equal(t, []string{"b", "c"}, mapped.Content)
	assert.Equal(t, page.TotalPages, mapped.TotalPages)
}
