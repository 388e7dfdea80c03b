package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTransactionIDShape(t *testing.T) {
	id := NewTransactionID()
	parts := strings.SplitN(id, "-", 3)
	assert.Len(t, parts, 3)
	assert.Equal(t, "TXN", parts[0])
	assert.Len(t, parts[1], 14) // UTC timestamp component
	assert.Len(t, parts[2], 32) // uuid hex without dashes
}

func TestNewTransactionIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewTransactionID()
		assert.False(t, seen[id], id)
		seen[id] = true
	}
}
