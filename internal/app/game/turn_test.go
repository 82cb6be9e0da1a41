package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdvanceTurn(t *testing.T) {
	tests := []struct {
		name        string
		orderLen    int
		current     int
		wantNext    int
		wantWrapped bool
	}{
		{name: "middle of rotation", orderLen: 4, current: 1, wantNext: 2, wantWrapped: false},
		{name: "last slot wraps", orderLen: 4, current: 3, wantNext: 0, wantWrapped: true},
		{name: "single slot always wraps", orderLen: 1, current: 0, wantNext: 0, wantWrapped: true},
		{name: "empty order is inert", orderLen: 0, current: 0, wantNext: 0, wantWrapped: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, wrapped := advanceTurn(tt.orderLen, tt.current)
			assert.Equal(t, tt.wantNext, next)
			assert.Equal(t, tt.wantWrapped, wrapped)
		})
	}
}

func TestAdvanceTurnFullRotation(t *testing.T) {
	const orderLen = 5

	idx := 0
	wraps := 0
	visited := make(map[int]int)

	// two full cycles visit every slot exactly twice and wrap exactly twice
	for i := 0; i < orderLen*2; i++ {
		var wrapped bool
		idx, wrapped = advanceTurn(orderLen, idx)
		if wrapped {
			wraps++
		}
		visited[idx]++
	}

	assert.Equal(t, 2, wraps)
	for slot := 0; slot < orderLen; slot++ {
		assert.Equal(t, 2, visited[slot], "slot %d", slot)
	}
}
