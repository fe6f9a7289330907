package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchExhausted(t *testing.T) {
	tests := []struct {
		name   string
		bought int
		sold   int
		want   bool
	}{
		{"untouched batch", 5, 0, false},
		{"one unit left", 5, 4, false},
		{"exactly sold out", 5, 5, true},
		{"oversold", 5, 6, true},
		{"zero bought never closes", 0, 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, batchExhausted(tt.bought, tt.sold))
		})
	}
}
