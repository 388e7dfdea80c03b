// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records settled payments.
package queue

// PaymentProcessedEvent is published when the processing of a payment
// resolves, whether it completed or failed. It contains enough
// information for downstream consumers to log, notify, or trigger
// analytics without querying the primary database.
type PaymentProcessedEvent struct {
	PaymentID     uint64  `json:"payment_id"`
	UserID        uint64  `json:"user_id"`
	ProcessedBy   uint64  `json:"processed_by"`
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
	FailureReason string  `json:"failure_reason,omitempty"`
	ProcessedAt   string  `json:"processed_at"`
}
