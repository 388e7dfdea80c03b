package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/iliyamo/payment-workflow/internal/model"
)

// PaymentRepo provides persistence for payments and their workflow
// transitions. Every transition is written with a conditional UPDATE
// on the current status column, so a record whose status changed
// between read and write is never mutated; the caller receives a
// TransitionError naming the status actually held.
type PaymentRepo struct{ DB *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{DB: db} }

const paymentColumns = "id,user_id,amount,currency,description,method,status,transaction_id," +
	"approved_by,approved_at,processed_by,processed_at,completed_at,failure_reason,metadata,created_at,updated_at"

// Create inserts a payment in pending status and populates its
// generated ID. Status and TransactionID must already be set by the
// caller.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	meta, err := encodeMetadata(p.Metadata)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO payments (user_id, amount, currency, description, method, status, transaction_id, metadata) VALUES (?,?,?,?,?,?,?,?)",
		p.UserID, p.Amount, p.Currency, p.Description, p.Method, p.Status, p.TransactionID, meta)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID fetches a payment by id.
func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (model.Payment, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE id=? LIMIT 1", id)
	return scanPayment(row)
}

// PaymentFilter narrows and pages the payment listing. A zero
// OwnerID means no owner filter; callers without the global read
// permission must always set OwnerID to their own id. An empty
// Status means no status filter.
type PaymentFilter struct {
	OwnerID uint64
	Status  model.PaymentStatus
	Page    int
	PerPage int
}

// List returns a page of payments plus the total count matching the
// filter, newest first.
func (r *PaymentRepo) List(ctx context.Context, f PaymentFilter) ([]model.Payment, int, error) {
	where := "1=1"
	args := []interface{}{}
	if f.OwnerID != 0 {
		where += " AND user_id=?"
		args = append(args, f.OwnerID)
	}
	if f.Status != "" {
		where += " AND status=?"
		args = append(args, f.Status)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payments WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(f.Page, f.PerPage)
	args = append(args, limit, offset)
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE "+where+" ORDER BY id DESC LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	payments := []model.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		payments = append(payments, p)
	}
	return payments, total, rows.Err()
}

// Approve moves a pending payment to approved, recording the
// approver and the decision time.
func (r *PaymentRepo) Approve(ctx context.Context, id, approverID uint64, at time.Time) error {
	return r.transition(ctx, "approve", id,
		"UPDATE payments SET status=?, approved_by=?, approved_at=? WHERE id=? AND status=?",
		model.PaymentApproved, approverID, at, id, model.PaymentPending)
}

// Reject moves a pending payment to rejected, recording the approver,
// the decision time and the failure reason.
func (r *PaymentRepo) Reject(ctx context.Context, id, approverID uint64, at time.Time, reason string) error {
	return r.transition(ctx, "reject", id,
		"UPDATE payments SET status=?, approved_by=?, approved_at=?, failure_reason=? WHERE id=? AND status=?",
		model.PaymentRejected, approverID, at, reason, id, model.PaymentPending)
}

// MarkProcessing moves an approved payment to processing, recording
// the processor and the start time. This is the first of the two
// writes performed by the process operation.
func (r *PaymentRepo) MarkProcessing(ctx context.Context, id, processorID uint64, at time.Time) error {
	return r.transition(ctx, "process", id,
		"UPDATE payments SET status=?, processed_by=?, processed_at=? WHERE id=? AND status=?",
		model.PaymentProcessing, processorID, at, id, model.PaymentApproved)
}

// Complete resolves a processing payment to completed, recording the
// completion time.
func (r *PaymentRepo) Complete(ctx context.Context, id uint64, at time.Time) error {
	return r.transition(ctx, "complete", id,
		"UPDATE payments SET status=?, completed_at=? WHERE id=? AND status=?",
		model.PaymentCompleted, at, id, model.PaymentProcessing)
}

// Fail resolves a processing payment to failed, recording the
// failure reason.
func (r *PaymentRepo) Fail(ctx context.Context, id uint64, reason string) error {
	return r.transition(ctx, "fail", id,
		"UPDATE payments SET status=?, failure_reason=? WHERE id=? AND status=?",
		model.PaymentFailed, reason, id, model.PaymentProcessing)
}

// Delete removes a payment unless it is processing or completed. The
// status guard is repeated in SQL so a concurrent transition cannot
// slip a protected record through.
func (r *PaymentRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM payments WHERE id=? AND status NOT IN (?,?)",
		id, model.PaymentProcessing, model.PaymentCompleted)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		p, err := r.GetByID(ctx, id)
		if err != nil {
			return err // sql.ErrNoRows -> 404
		}
		return &TransitionError{Trigger: "delete", Current: p.Status}
	}
	return nil
}

// transition executes a conditional status update. When no row was
// changed it re-reads the record to distinguish a missing payment
// (sql.ErrNoRows) from an illegal source state (TransitionError).
func (r *PaymentRepo) transition(ctx context.Context, trigger string, id uint64, query string, args ...interface{}) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		p, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return &TransitionError{Trigger: trigger, Current: p.Status}
	}
	return nil
}

func scanPayment(s scanner) (model.Payment, error) {
	var p model.Payment
	var (
		approvedBy  sql.NullInt64
		approvedAt  sql.NullTime
		processedBy sql.NullInt64
		processedAt sql.NullTime
		completedAt sql.NullTime
		reason      sql.NullString
		meta        []byte
	)
	err := s.Scan(&p.ID, &p.UserID, &p.Amount, &p.Currency, &p.Description, &p.Method,
		&p.Status, &p.TransactionID,
		&approvedBy, &approvedAt, &processedBy, &processedAt, &completedAt, &reason,
		&meta, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Payment{}, err
	}
	if approvedBy.Valid {
		v := uint64(approvedBy.Int64)
		p.ApprovedBy = &v
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		p.ApprovedAt = &t
	}
	if processedBy.Valid {
		v := uint64(processedBy.Int64)
		p.ProcessedBy = &v
	}
	if processedAt.Valid {
		t := processedAt.Time
		p.ProcessedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		p.CompletedAt = &t
	}
	if reason.Valid {
		v := reason.String
		p.FailureReason = &v
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &p.Metadata); err != nil {
			return model.Payment{}, err
		}
	}
	return p, nil
}

func encodeMetadata(meta map[string]string) ([]byte, error) {
	if meta == nil {
		meta = map[string]string{}
	}
	return json.Marshal(meta)
}
