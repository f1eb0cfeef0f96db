package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalPagesFor(t *testing.T) {
	tests := []struct {
		total, limit, want int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
		{5, 0, 0},
		{5, -1, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TotalPagesFor(tt.total, tt.limit),
			"total=%d limit=%d", tt.total, tt.limit)
	}
}
