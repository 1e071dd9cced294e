package payment

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/tenzai/internal/entity"
	"github.com/Additional-Code/tenzai/internal/repository"
	"github.com/Additional-Code/tenzai/internal/store"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/tenzai/repository/payment")

const table = "payment_transactions"

// ErrNotFound is returned when a transaction is missing.
var ErrNotFound = errors.New("payment transaction not found")

// Repository persists payment transactions.
type Repository struct {
	store *store.Client
}

// NewRepository wires a repository over the record store client.
func NewRepository(client *store.Client) *Repository {
	return &Repository{store: client}
}

// Create inserts tx and returns the stored row, reading it back by reference when not echoed.
func (r *Repository) Create(ctx context.Context, tx *entity.PaymentTransaction) (*entity.PaymentTransaction, error) {
	ctx, span := repoTracer.Start(ctx, "PaymentRepository.Create", trace.WithAttributes(attribute.String("payment.ref", tx.TransactionRef)))
	defer span.End()

	var rows []entity.PaymentTransaction
	echoed, err := r.store.Insert(ctx, table, tx, &rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, err
	}
	if echoed && len(rows) > 0 {
		return &rows[0], nil
	}
	return r.findOne(ctx, store.From(table).Eq("transaction_ref", tx.TransactionRef).Limit(1))
}

// Get fetches a transaction by id.
func (r *Repository) Get(ctx context.Context, id string) (*entity.PaymentTransaction, error) {
	ctx, span := repoTracer.Start(ctx, "PaymentRepository.Get", trace.WithAttributes(attribute.String("payment.id", id)))
	defer span.End()

	tx, err := r.findOne(ctx, store.From(table).Eq("id", id).Limit(1))
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
	}
	return tx, err
}

// LatestForOrder returns the most recent transaction of an order.
func (r *Repository) LatestForOrder(ctx context.Context, orderID string) (*entity.PaymentTransaction, error) {
	ctx, span := repoTracer.Start(ctx, "PaymentRepository.LatestForOrder", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	tx, err := r.findOne(ctx, store.From(table).Eq("order_id", orderID).Order("created_at", true).Limit(1))
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
	}
	return tx, err
}

// Patch updates the transaction with id.
func (r *Repository) Patch(ctx context.Context, id string, patch map[string]any) error {
	ctx, span := repoTracer.Start(ctx, "PaymentRepository.Patch", trace.WithAttributes(attribute.String("payment.id", id)))
	defer span.End()

	if err := r.store.Update(ctx, store.From(table).Eq("id", id), patch); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	return nil
}

func (r *Repository) findOne(ctx context.Context, q *store.Query) (*entity.PaymentTransaction, error) {
	var rows []entity.PaymentTransaction
	err := repository.Read(ctx, func(ctx context.Context) error {
		return r.store.Select(ctx, q, store.Service, &rows)
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}
