package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePaginationParams(t *testing.T) {
	tests := []struct {
		query        string
		wantPage     int
		wantPageSize int
		wantOffset   int
	}{
		{query: "", wantPage: 1, wantPageSize: DefaultPageSize, wantOffset: 0},
		{query: "page=3&pageSize=10", wantPage: 3, wantPageSize: 10, wantOffset: 20},
		{query: "page=-1&pageSize=0", wantPage: 1, wantPageSize: DefaultPageSize, wantOffset: 0},
		{query: "pageSize=5000", wantPage: 1, wantPageSize: MaxPageSize, wantOffset: 0},
		{query: "page=abc", wantPage: 1, wantPageSize: DefaultPageSize, wantOffset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/items?"+tt.query, nil)
			p := ParsePaginationParams(r)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantPageSize, p.PageSize)
			assert.Equal(t, tt.wantOffset, p.Offset)
		})
	}
}

func TestNewPaginatedResponse(t *testing.T) {
	resp := NewPaginatedResponse([]int{1, 2}, 2, 10, 25)
	assert.Equal(t, 3, resp.TotalPages)
	assert.True(t, resp.HasNext)
	assert.True(t, resp.HasPrevious)

	resp = NewPaginatedResponse([]int{}, 1, 10, 0)
	assert.Equal(t, 0, resp.TotalPages)
	assert.False(t, resp.HasNext)
	assert.False(t, resp.HasPrevious)
}
