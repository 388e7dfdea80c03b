package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/payment-workflow/internal/model"
)

func TestDefaultOutcomeRate(t *testing.T) {
	const draws = 20000
	successes := 0
	for i := 0; i < draws; i++ {
		if DefaultOutcome() {
			successes++
		}
	}
	rate := float64(successes) / draws
	// Wide tolerance keeps the test stable while still catching an
	// inverted or constant draw.
	assert.Greater(t, rate, 0.70)
	assert.Less(t, rate, 0.90)
}

func TestViewPaymentMapsAllFields(t *testing.T) {
	now := time.Now().UTC()
	approver := uint64(2)
	reason := "card declined"
	p := model.Payment{
		ID:            10,
		UserID:        1,
		Amount:        99.99,
		Currency:      "USD",
		Method:        "card",
		Status:        model.PaymentFailed,
		TransactionID: "TXN-x",
		ApprovedBy:    &approver,
		ApprovedAt:    &now,
		FailureReason: &reason,
		Metadata:      map[string]string{"order": "42"},
		CreatedAt:     now,
	}
	v := viewPayment(p)
	assert.Equal(t, p.ID, v.ID)
	assert.Equal(t, p.UserID, v.UserID)
	assert.InDelta(t, p.Amount, v.Amount, 0.0001)
	assert.Equal(t, p.Status, v.Status)
	assert.Equal(t, &approver, v.ApprovedBy)
	assert.Equal(t, &reason, v.FailureReason)
	assert.Equal(t, "42", v.Metadata["order"])
}
