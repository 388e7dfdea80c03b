package model

import "time"

// PaymentStatus enumerates the lifecycle states of a payment.
// pending is the initial state; completed, failed and rejected are
// terminal. Every legal move between states is encoded in the
// transitions table below and nowhere else.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentApproved   PaymentStatus = "approved"
	PaymentRejected   PaymentStatus = "rejected"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
)

// DefaultRejectReason is recorded when a payment is rejected without
// a caller-supplied reason.
const DefaultRejectReason = "rejected by approver"

// GatewayDeclineReason is the fixed failure reason recorded when the
// processing outcome draw fails.
const GatewayDeclineReason = "payment declined by gateway"

// transitions maps each status to the set of statuses reachable from it.
var transitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:    {PaymentApproved, PaymentRejected},
	PaymentApproved:   {PaymentProcessing},
	PaymentProcessing: {PaymentCompleted, PaymentFailed},
}

// ValidStatus reports whether s is a member of the payment status
// enumeration. Used when filtering list queries by status.
func ValidStatus(s PaymentStatus) bool {
	switch s {
	case PaymentPending, PaymentApproved, PaymentRejected,
		PaymentProcessing, PaymentCompleted, PaymentFailed:
		return true
	}
	return false
}

// CanTransition reports whether moving a payment from one status to
// another is legal under the workflow state machine.
func CanTransition(from, to PaymentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is defined from s.
func Terminal(s PaymentStatus) bool {
	return len(transitions[s]) == 0 && ValidStatus(s)
}

// Deletable reports whether a payment in status s may be deleted.
// Records that are being processed or already settled must be kept.
func Deletable(s PaymentStatus) bool {
	return s != PaymentProcessing && s != PaymentCompleted
}

// Payment mirrors the `payments` table. The owning user is fixed at
// creation; approver and processor are filled in by the workflow
// transitions together with their timestamps. TransactionID is
// generated once at creation and unique across all payments.
//
// Fields:
//  ID            – primary key identifier.
//  UserID        – owner of the payment, immutable after creation.
//  Amount        – monetary amount, strictly greater than zero.
//  Currency      – ISO 4217 currency code.
//  Description   – free-text description.
//  Method        – payment-method tag (e.g. card, bank_transfer).
//  Status        – current workflow status.
//  TransactionID – globally unique transaction identifier.
//  ApprovedBy    – user who approved or rejected (nullable).
//  ApprovedAt    – when the approve/reject decision was taken.
//  ProcessedBy   – user who triggered processing (nullable).
//  ProcessedAt   – when processing started.
//  CompletedAt   – when processing finished successfully.
//  FailureReason – why the payment was rejected or declined.
//  Metadata      – open JSON bag supplied by the creator.
type Payment struct {
	ID            uint64            // payments.id
	UserID        uint64            // payments.user_id
	Amount        float64           // payments.amount
	Currency      string            // payments.currency
	Description   string            // payments.description
	Method        string            // payments.method
	Status        PaymentStatus     // payments.status
	TransactionID string            // payments.transaction_id
	ApprovedBy    *uint64           // payments.approved_by (nullable)
	ApprovedAt    *time.Time        // payments.approved_at (nullable)
	ProcessedBy   *uint64           // payments.processed_by (nullable)
	ProcessedAt   *time.Time        // payments.processed_at (nullable)
	CompletedAt   *time.Time        // payments.completed_at (nullable)
	FailureReason *string           // payments.failure_reason (nullable)
	Metadata      map[string]string // payments.metadata (JSON column)
	CreatedAt     time.Time         // payments.created_at
	UpdatedAt     time.Time         // payments.updated_at
}
