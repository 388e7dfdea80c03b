package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/payment-workflow/internal/auth"
	"github.com/iliyamo/payment-workflow/internal/model"
	"github.com/iliyamo/payment-workflow/internal/queue"
	"github.com/iliyamo/payment-workflow/internal/repository"
	"github.com/iliyamo/payment-workflow/internal/utils"
)

// processSuccessRate is the probability that the simulated gateway
// accepts a payment during processing.
const processSuccessRate = 0.80

// PaymentHandler bundles dependencies for the payment workflow
// endpoints. Outcome is the processing success draw; production
// wiring uses DefaultOutcome, tests substitute a deterministic one.
type PaymentHandler struct {
	Payments  *repository.PaymentRepo
	Publisher *queue.Publisher
	Outcome   func() bool
}

func NewPaymentHandler(p *repository.PaymentRepo, pub *queue.Publisher) *PaymentHandler {
	return &PaymentHandler{Payments: p, Publisher: pub, Outcome: DefaultOutcome}
}

// DefaultOutcome draws the processing result with the fixed success
// probability.
func DefaultOutcome() bool {
	return rand.Float64() < processSuccessRate
}

type paymentView struct {
	ID            uint64              `json:"id"`
	UserID        uint64              `json:"user_id"`
	Amount        float64             `json:"amount"`
	Currency      string              `json:"currency"`
	Description   string              `json:"description"`
	Method        string              `json:"method"`
	Status        model.PaymentStatus `json:"status"`
	TransactionID string              `json:"transaction_id"`
	ApprovedBy    *uint64             `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time          `json:"approved_at,omitempty"`
	ProcessedBy   *uint64             `json:"processed_by,omitempty"`
	ProcessedAt   *time.Time          `json:"processed_at,omitempty"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
	FailureReason *string             `json:"failure_reason,omitempty"`
	Metadata      map[string]string   `json:"metadata,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

func viewPayment(p model.Payment) paymentView {
	return paymentView{
		ID:            p.ID,
		UserID:        p.UserID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Description:   p.Description,
		Method:        p.Method,
		Status:        p.Status,
		TransactionID: p.TransactionID,
		ApprovedBy:    p.ApprovedBy,
		ApprovedAt:    p.ApprovedAt,
		ProcessedBy:   p.ProcessedBy,
		ProcessedAt:   p.ProcessedAt,
		CompletedAt:   p.CompletedAt,
		FailureReason: p.FailureReason,
		Metadata:      p.Metadata,
		CreatedAt:     p.CreatedAt,
	}
}

type createPaymentReq struct {
	Amount      float64           `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	Method      string            `json:"method"`
	Metadata    map[string]string `json:"metadata"`
}

type rejectReq struct {
	Reason string `json:"reason"`
}

// Create registers a new payment owned by the caller. It always
// starts in pending with a freshly generated transaction identifier.
func (h *PaymentHandler) Create(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthenticated")
	}
	if !auth.HasAny(caller.Permissions, auth.PermPaymentsCreate) {
		return forbidden(c, caller, auth.PermPaymentsCreate)
	}

	var req createPaymentReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	var errs []ErrorDetail
	if req.Amount <= 0 {
		errs = append(errs, ErrorDetail{Field: "amount", Message: "must be greater than zero"})
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(req.Currency) != 3 {
		errs = append(errs, ErrorDetail{Field: "currency", Message: "must be a 3-letter currency code"})
	}
	if strings.TrimSpace(req.Method) == "" {
		errs = append(errs, ErrorDetail{Field: "method", Message: "required"})
	}
	if len(errs) > 0 {
		return fail(c, http.StatusBadRequest, "validation failed", errs...)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p := model.Payment{
		UserID:        caller.ID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Description:   req.Description,
		Method:        strings.TrimSpace(req.Method),
		Status:        model.PaymentPending,
		TransactionID: utils.NewTransactionID(),
		Metadata:      req.Metadata,
	}
	if err := h.Payments.Create(ctx, &p); err != nil {
		return fail(c, http.StatusInternalServerError, "create payment failed")
	}
	return respond(c, http.StatusCreated, "payment created", viewPayment(p))
}

// List returns payments, newest first. Callers without the global
// read permission only ever see their own records, whatever filters
// they pass; callers holding it may filter by arbitrary owner.
func (h *PaymentHandler) List(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthenticated")
	}
	if !auth.HasAny(caller.Permissions, auth.PermPaymentsRead, auth.PermPaymentsReadAll) {
		return forbidden(c, caller, auth.PermPaymentsRead, auth.PermPaymentsReadAll)
	}

	filter := repository.PaymentFilter{
		Page:    queryInt(c, "page", 1),
		PerPage: queryInt(c, "per_page", 20),
	}
	if caller.Permissions.Has(auth.PermPaymentsReadAll) {
		filter.OwnerID = uint64(queryInt(c, "user_id", 0))
	} else {
		filter.OwnerID = caller.ID
	}
	if s := c.QueryParam("status"); s != "" {
		status := model.PaymentStatus(s)
		if !model.ValidStatus(status) {
			return fail(c, http.StatusBadRequest, "validation failed",
				ErrorDetail{Field: "status", Message: "unknown status " + s})
		}
		filter.Status = status
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	payments, total, err := h.Payments.List(ctx, filter)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "list payments failed")
	}
	views := make([]paymentView, 0, len(payments))
	for _, p := range payments {
		views = append(views, viewPayment(p))
	}
	return respond(c, http.StatusOK, "ok", echo.Map{
		"payments": views,
		"meta":     listMeta{Page: filter.Page, PerPage: filter.PerPage, Total: total},
	})
}

// Get returns a single payment. Owners may always read their own
// record; anyone else needs the global read permission.
func (h *PaymentHandler) Get(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthenticated")
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid payment id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Payments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusNotFound, "payment not found")
		}
		return fail(c, http.StatusInternalServerError, "load payment failed")
	}
	if !auth.IsOwnerOrPermitted(p.UserID, caller.ID, caller.Permissions, auth.PermPaymentsReadAll) {
		return forbidden(c, caller, auth.PermPaymentsReadAll)
	}
	return respond(c, http.StatusOK, "ok", viewPayment(p))
}

// Approve moves a pending payment to approved, attributing the
// decision to the caller.
func (h *PaymentHandler) Approve(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthenticated")
	}
	if !auth.HasAny(caller.Permissions, auth.PermPaymentsApprove) {
		return forbidden(c, caller, auth.PermPaymentsApprove)
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid payment id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Payments.Approve(ctx, id, caller.ID, time.Now().UTC()); err != nil {
		return h.transitionFailure(c, err)
	}
	p, err := h.Payments.GetByID(ctx, id)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "load payment failed")
	}
	return respond(c, http.StatusOK, "payment approved", viewPayment(p))
}

// Reject moves a pending payment to rejected. The optional body
// reason is recorded; a default text is used when none is supplied.
func (h *PaymentHandler) Reject(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthenticated")
	}
	if !auth.HasAny(caller.Permissions, auth.PermPaymentsApprove) {
		return forbidden(c, caller, auth.PermPaymentsApprove)
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid payment id")
	}
	var req rejectReq
	_ = c.Bind(&req) // body is optional
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = model.DefaultRejectReason
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Payments.Reject(ctx, id, caller.ID, time.Now().UTC(), reason); err != nil {
		return h.transitionFailure(c, err)
	}
	p, err := h.Payments.GetByID(ctx, id)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "load payment failed")
	}
	return respond(c, http.StatusOK, "payment rejected", viewPayment(p))
}

// Process runs the two-phase settlement of an approved payment: it
// first persists the processing status with the caller's attribution,
// then resolves the outcome draw and persists the terminal state
// before returning. If this process dies between the two writes the
// record stays in processing and needs administrative repair; process
// refuses to re-run on such a record because processing is not a
// legal source state.
func (h *PaymentHandler) Process(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthenticated")
	}
	if !auth.HasAny(caller.Permissions, auth.PermPaymentsProcess) {
		return forbidden(c, caller, auth.PermPaymentsProcess)
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid payment id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Payments.MarkProcessing(ctx, id, caller.ID, time.Now().UTC()); err != nil {
		return h.transitionFailure(c, err)
	}

	if h.Outcome() {
		err = h.Payments.Complete(ctx, id, time.Now().UTC())
	} else {
		err = h.Payments.Fail(ctx, id, model.GatewayDeclineReason)
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "resolve payment failed")
	}

	p, err := h.Payments.GetByID(ctx, id)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "load payment failed")
	}
	h.publishProcessed(ctx, p)

	msg := "payment completed"
	if p.Status == model.PaymentFailed {
		msg = "payment failed"
	}
	return respond(c, http.StatusOK, msg, viewPayment(p))
}

// Delete removes a payment unless it is processing or completed.
// Owners may delete their own records; anyone else needs
// payments:delete.
func (h *PaymentHandler) Delete(c echo.Context) error {
	caller, ok := callerFrom(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "unauthenticated")
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid payment id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Payments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusNotFound, "payment not found")
		}
		return fail(c, http.StatusInternalServerError, "load payment failed")
	}
	if !auth.IsOwnerOrPermitted(p.UserID, caller.ID, caller.Permissions, auth.PermPaymentsDelete) {
		return forbidden(c, caller, auth.PermPaymentsDelete)
	}
	if err := h.Payments.Delete(ctx, p.ID); err != nil {
		return h.transitionFailure(c, err)
	}
	return respond(c, http.StatusOK, "payment deleted", nil)
}

// transitionFailure maps repository errors from workflow writes onto
// HTTP responses. Illegal source states answer 400 naming the status
// the record actually held.
func (h *PaymentHandler) transitionFailure(c echo.Context, err error) error {
	var te *repository.TransitionError
	if errors.As(err, &te) {
		return fail(c, http.StatusBadRequest, te.Error(),
			ErrorDetail{Field: "status", Message: string(te.Current)})
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fail(c, http.StatusNotFound, "payment not found")
	}
	return fail(c, http.StatusInternalServerError, "payment update failed")
}

// publishProcessed emits the lifecycle event for a settled payment.
// Publish failures are logged and otherwise ignored; the state change
// has already been persisted.
func (h *PaymentHandler) publishProcessed(ctx context.Context, p model.Payment) {
	if h.Publisher == nil {
		return
	}
	ev := queue.PaymentProcessedEvent{
		PaymentID:     p.ID,
		UserID:        p.UserID,
		TransactionID: p.TransactionID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        string(p.Status),
		ProcessedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if p.ProcessedBy != nil {
		ev.ProcessedBy = *p.ProcessedBy
	}
	if p.FailureReason != nil {
		ev.FailureReason = *p.FailureReason
	}
	if err := h.Publisher.PublishPaymentProcessed(ctx, ev); err != nil {
		log.Printf("payment-events: publish failed for payment %d: %v", p.ID, err)
	}
}
