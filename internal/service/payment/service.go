package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
	"github.com/Additional-Code/tenzai/internal/entity"
	orderrepo "github.com/Additional-Code/tenzai/internal/repository/order"
	paymentrepo "github.com/Additional-Code/tenzai/internal/repository/payment"
	ordersvc "github.com/Additional-Code/tenzai/internal/service/order"
	"github.com/Additional-Code/tenzai/internal/store"
	"github.com/Additional-Code/tenzai/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/tenzai/service/payment")

// Service runs payment transactions against orders.
type Service struct {
	payments    *paymentrepo.Repository
	orders      *orderrepo.Repository
	workflow    *ordersvc.Service
	promptPayID string
	validity    time.Duration
	loc         *time.Location
	logger      *zap.Logger
	now         func() time.Time
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Payments *paymentrepo.Repository
	Orders   *orderrepo.Repository
	Workflow *ordersvc.Service
	Config   config.Config
	Logger   *zap.Logger
}

// NewService wires a payment Service.
func NewService(p Params) *Service {
	loc := p.Config.Order.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validity := p.Config.Payment.QRValidity
	if validity <= 0 {
		validity = time.Hour
	}
	return &Service{
		payments:    p.Payments,
		orders:      p.Orders,
		workflow:    p.Workflow,
		promptPayID: p.Config.Payment.PromptPayID,
		validity:    validity,
		loc:         loc,
		logger:      logger,
		now:         time.Now,
	}
}

// PromptPayPayload renders the simplified PromptPay QR payload.
func PromptPayPayload(promptPayID string, amount decimal.Decimal, ref string) string {
	return fmt.Sprintf("promptpay://%s/%s/%s", promptPayID, amount.StringFixed(2), ref)
}

// Initiate opens a pending transaction covering the order's net amount.
func (s *Service) Initiate(ctx context.Context, orderNumber string, method entity.PaymentMethod) (*entity.PaymentTransaction, error) {
	if !s.workflow.Writer().SupportsPayments() {
		return nil, errorbank.Unprocessable("payment transactions are not available in this migration mode",
			errorbank.WithDetail("mode", s.workflow.Writer().Mode()))
	}
	if method == "" {
		method = entity.PaymentPromptPay
	}
	if !method.Valid() {
		return nil, errorbank.BadRequest("unsupported payment method", errorbank.WithDetail("field", "method"))
	}

	ctx, span := serviceTracer.Start(ctx, "PaymentService.Initiate", trace.WithAttributes(attribute.String("order.number", orderNumber)))
	defer span.End()

	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, s.orderError(span, err, orderNumber)
	}
	if order.PaymentStatus == entity.PaymentPaid {
		return nil, errorbank.Conflict("order is already paid", errorbank.WithDetail("order_number", orderNumber))
	}
	if order.Status == entity.StatusCancelled {
		return nil, errorbank.Unprocessable("order is cancelled", errorbank.WithDetail("order_number", orderNumber))
	}

	now := s.now().In(s.loc)
	amount := order.Payable()
	tx := &entity.PaymentTransaction{
		OrderID:        order.ID,
		TransactionRef: fmt.Sprintf("TXN_%s_%s", order.OrderNumber, strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])),
		Amount:         amount,
		Method:         method,
		Status:         entity.TransactionPending,
		CreatedAt:      now,
	}
	if method == entity.PaymentPromptPay || method == entity.PaymentQR {
		validUntil := now.Add(s.validity)
		tx.QRPayload = PromptPayPayload(s.promptPayID, amount, order.OrderNumber)
		tx.ValidUntil = &validUntil
	}

	created, err := s.payments.Create(ctx, tx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, store.Translate(err, "failed to create payment transaction")
	}
	s.logger.Info("payment initiated",
		zap.String("order_number", order.OrderNumber),
		zap.String("transaction_ref", created.TransactionRef),
		zap.String("amount", amount.StringFixed(2)),
	)
	return created, nil
}

// SubmitSlip records a customer's transfer slip and moves the transaction to verifying.
func (s *Service) SubmitSlip(ctx context.Context, txID, slipRef string) (*entity.PaymentTransaction, error) {
	if strings.TrimSpace(slipRef) == "" {
		return nil, errorbank.BadRequest("slip reference is required", errorbank.WithDetail("field", "slip_url"))
	}
	ctx, span := serviceTracer.Start(ctx, "PaymentService.SubmitSlip", trace.WithAttributes(attribute.String("payment.id", txID)))
	defer span.End()

	tx, err := s.transition(ctx, txID, entity.TransactionVerifying)
	if err != nil {
		return nil, err
	}
	now := s.now().In(s.loc)
	if err := s.payments.Patch(ctx, tx.ID, map[string]any{
		"status":           entity.TransactionVerifying,
		"slip_url":         slipRef,
		"slip_uploaded_at": now,
		"updated_at":       now,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, store.Translate(err, "failed to record payment slip")
	}
	tx.Status = entity.TransactionVerifying
	tx.SlipRef = slipRef
	tx.SlipUploadedAt = &now
	return tx, nil
}

// Confirm marks the transaction successful and the order paid, then advances a
// pending order to confirmed. A failed advance is logged; the payment stands.
func (s *Service) Confirm(ctx context.Context, txID, verifier string) (*entity.PaymentTransaction, error) {
	ctx, span := serviceTracer.Start(ctx, "PaymentService.Confirm", trace.WithAttributes(attribute.String("payment.id", txID)))
	defer span.End()

	if verifier == "" {
		verifier = entity.SystemActor
	}
	tx, err := s.transition(ctx, txID, entity.TransactionSuccess)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	if err := s.payments.Patch(ctx, tx.ID, map[string]any{
		"status":      entity.TransactionSuccess,
		"verified_at": now,
		"verified_by": verifier,
		"updated_at":  now,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, store.Translate(err, "failed to confirm payment")
	}
	tx.Status = entity.TransactionSuccess
	tx.VerifiedAt = &now
	tx.VerifiedBy = verifier

	order, err := s.settleOrder(ctx, tx.OrderID, entity.PaymentPaid)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order settle failed")
		return nil, err
	}

	if order.Status == entity.StatusPending {
		if _, err := s.workflow.UpdateStatus(ctx, ordersvc.UpdateStatusInput{
			OrderNumber: order.OrderNumber,
			Status:      string(entity.StatusConfirmed),
			Actor:       verifier,
			Reason:      "payment confirmed",
		}); err != nil {
			span.RecordError(err)
			s.logger.Warn("order confirm after payment failed",
				zap.String("order_number", order.OrderNumber),
				zap.String("transaction_ref", tx.TransactionRef),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("payment confirmed",
		zap.String("order_number", order.OrderNumber),
		zap.String("transaction_ref", tx.TransactionRef),
		zap.String("verified_by", verifier),
	)
	return tx, nil
}

// Fail marks the transaction failed and the order's payment as failed.
func (s *Service) Fail(ctx context.Context, txID, verifier, reason string) (*entity.PaymentTransaction, error) {
	ctx, span := serviceTracer.Start(ctx, "PaymentService.Fail", trace.WithAttributes(attribute.String("payment.id", txID)))
	defer span.End()

	if verifier == "" {
		verifier = entity.SystemActor
	}
	tx, err := s.transition(ctx, txID, entity.TransactionFailed)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	if err := s.payments.Patch(ctx, tx.ID, map[string]any{
		"status":         entity.TransactionFailed,
		"verified_at":    now,
		"verified_by":    verifier,
		"failure_reason": reason,
		"updated_at":     now,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, store.Translate(err, "failed to record payment failure")
	}
	tx.Status = entity.TransactionFailed
	tx.VerifiedAt = &now
	tx.VerifiedBy = verifier
	tx.FailureReason = reason

	if _, err := s.settleOrder(ctx, tx.OrderID, entity.PaymentFailed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order settle failed")
		return nil, err
	}
	s.logger.Warn("payment failed", zap.String("transaction_ref", tx.TransactionRef), zap.String("reason", reason))
	return tx, nil
}

// NoPayment is the status reported for orders without any transaction.
const NoPayment = "no_payment"

// StatusView summarises the payment state of an order.
type StatusView struct {
	OrderNumber   string                     `json:"order_number"`
	PaymentStatus entity.PaymentStatus       `json:"payment_status"`
	Status        string                     `json:"status"`
	Transaction   *entity.PaymentTransaction `json:"transaction,omitempty"`
}

// Status reports the latest transaction of an order, or NoPayment.
func (s *Service) Status(ctx context.Context, orderNumber string) (*StatusView, error) {
	ctx, span := serviceTracer.Start(ctx, "PaymentService.Status", trace.WithAttributes(attribute.String("order.number", orderNumber)))
	defer span.End()

	order, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, s.orderError(span, err, orderNumber)
	}
	view := &StatusView{OrderNumber: order.OrderNumber, PaymentStatus: order.PaymentStatus, Status: NoPayment}

	tx, err := s.payments.LatestForOrder(ctx, order.ID)
	if errors.Is(err, paymentrepo.ErrNotFound) {
		return view, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, store.Translate(err, "failed to load payment status")
	}
	view.Status = string(tx.Status)
	view.Transaction = tx
	return view, nil
}

func (s *Service) transition(ctx context.Context, txID string, to entity.TransactionStatus) (*entity.PaymentTransaction, error) {
	tx, err := s.payments.Get(ctx, txID)
	if errors.Is(err, paymentrepo.ErrNotFound) {
		return nil, errorbank.NotFound("payment transaction not found", errorbank.WithDetail("transaction_id", txID))
	}
	if err != nil {
		return nil, store.Translate(err, "failed to load payment transaction")
	}
	if !entity.CanTransitionTransaction(tx.Status, to) {
		return nil, errorbank.Unprocessable("illegal payment transition",
			errorbank.WithDetail("from", tx.Status),
			errorbank.WithDetail("to", to),
		)
	}
	return tx, nil
}

func (s *Service) settleOrder(ctx context.Context, orderID string, status entity.PaymentStatus) (*entity.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if errors.Is(err, orderrepo.ErrNotFound) {
		return nil, errorbank.NotFound("order not found", errorbank.WithDetail("order_id", orderID))
	}
	if err != nil {
		return nil, store.Translate(err, "failed to load order")
	}
	if err := s.orders.Patch(ctx, order.ID, map[string]any{
		"payment_status": status,
		"updated_at":     s.now().In(s.loc),
	}); err != nil {
		return nil, store.Translate(err, "failed to update order payment status")
	}
	order.PaymentStatus = status
	s.workflow.InvalidateView(ctx, order.OrderNumber)
	return order, nil
}

func (s *Service) orderError(span trace.Span, err error, orderNumber string) error {
	if errors.Is(err, orderrepo.ErrNotFound) {
		return errorbank.NotFound("order not found", errorbank.WithDetail("order_number", orderNumber))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "repository error")
	return store.Translate(err, "failed to load order")
}
