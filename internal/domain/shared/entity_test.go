package shared

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewBaseEntity(t *testing.T) {
	e := NewBaseEntity()
	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.Equal(t, e.CreatedAt, e.UpdatedAt)
	assert.Equal(t, e.ID, e.GetID())
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name  string
		items []int
		size  int
		want  [][]int
	}{
		{name: "empty", items: nil, size: 3, want: nil},
		{name: "exact multiple", items: []int{1, 2, 3, 4}, size: 2, want: [][]int{{1, 2}, {3, 4}}},
		{name: "remainder", items: []int{1, 2, 3, 4, 5}, size: 2, want: [][]int{{1, 2}, {3, 4}, {5}}},
		{name: "size larger than input", items: []int{1, 2}, size: 10, want: [][]int{{1, 2}}},
		{name: "non-positive size", items: []int{1, 2, 3}, size: 0, want: [][]int{{1, 2, 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Chunk(tt.items, tt.size))
		})
	}
}

func TestChunk_AppendDoesNotClobberNextChunk(t *testing.T) {
	chunks := Chunk([]int{1, 2, 3, 4}, 2)
	_ = append(chunks[0], 99)
	assert.Equal(t, []int{3, 4}, chunks[1])
}
