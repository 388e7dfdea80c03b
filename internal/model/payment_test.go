package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from PaymentStatus
		to   PaymentStatus
		want bool
	}{
		{"pending to approved", PaymentPending, PaymentApproved, true},
		{"pending to rejected", PaymentPending, PaymentRejected, true},
		{"pending to processing skips approval", PaymentPending, PaymentProcessing, false},
		{"approved to processing", PaymentApproved, PaymentProcessing, true},
		{"approved to completed skips processing", PaymentApproved, PaymentCompleted, false},
		{"processing to completed", PaymentProcessing, PaymentCompleted, true},
		{"processing to failed", PaymentProcessing, PaymentFailed, true},
		{"completed is terminal", PaymentCompleted, PaymentProcessing, false},
		{"failed is terminal", PaymentFailed, PaymentProcessing, false},
		{"rejected is terminal", PaymentRejected, PaymentApproved, false},
		{"no self transition", PaymentProcessing, PaymentProcessing, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(PaymentCompleted))
	assert.True(t, Terminal(PaymentFailed))
	assert.True(t, Terminal(PaymentRejected))
	assert.False(t, Terminal(PaymentPending))
	assert.False(t, Terminal(PaymentApproved))
	assert.False(t, Terminal(PaymentProcessing))
	assert.False(t, Terminal(PaymentStatus("bogus")))
}

func TestDeletable(t *testing.T) {
	for _, s := range []PaymentStatus{PaymentPending, PaymentApproved, PaymentRejected, PaymentFailed} {
		assert.True(t, Deletable(s), string(s))
	}
	for _, s := range []PaymentStatus{PaymentProcessing, PaymentCompleted} {
		assert.False(t, Deletable(s), string(s))
	}
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(PaymentPending))
	assert.False(t, ValidStatus(PaymentStatus("PENDING")))
	assert.False(t, ValidStatus(PaymentStatus("")))
}
