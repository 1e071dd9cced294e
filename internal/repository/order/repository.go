package order

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/tenzai/internal/entity"
	"github.com/Additional-Code/tenzai/internal/repository"
	"github.com/Additional-Code/tenzai/internal/store"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/tenzai/repository/order")

const (
	ordersTable      = "orders"
	itemsTable       = "order_items"
	historyTable     = "order_status_history"
	staffActionTable = "staff_actions"
)

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// Repository encapsulates record store access for orders and their children.
type Repository struct {
	store *store.Client
}

// NewRepository wires a repository backed by the record store client.
func NewRepository(client *store.Client) *Repository {
	return &Repository{store: client}
}

// Insert persists an order row and returns the stored representation.
// When the store does not echo the row it is read back by order number.
func (r *Repository) Insert(ctx context.Context, row map[string]any) (*entity.Order, error) {
	number, _ := row["order_number"].(string)
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Insert", trace.WithAttributes(attribute.String("order.number", number)))
	defer span.End()

	var rows []entity.Order
	echoed, err := r.store.Insert(ctx, ordersTable, row, &rows)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, err
	}
	if echoed && len(rows) > 0 {
		return &rows[0], nil
	}
	return r.GetByNumber(ctx, number)
}

// GetByNumber fetches an order by its caller-facing number.
func (r *Repository) GetByNumber(ctx context.Context, number string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByNumber", trace.WithAttributes(attribute.String("order.number", number)))
	defer span.End()

	var rows []entity.Order
	err := repository.Read(ctx, func(ctx context.Context) error {
		return r.store.Select(ctx, store.From(ordersTable).Eq("order_number", number).Limit(1), store.Anon, &rows)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	if len(rows) == 0 {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// GetByID fetches an order by primary key.
func (r *Repository) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	var rows []entity.Order
	err := repository.Read(ctx, func(ctx context.Context) error {
		return r.store.Select(ctx, store.From(ordersTable).Eq("id", id).Limit(1), store.Service, &rows)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	if len(rows) == 0 {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// NumberExists reports whether an order already carries number.
func (r *Repository) NumberExists(ctx context.Context, number string) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.NumberExists", trace.WithAttributes(attribute.String("order.number", number)))
	defer span.End()

	var rows []struct {
		ID string `json:"id"`
	}
	err := repository.Read(ctx, func(ctx context.Context) error {
		return r.store.Select(ctx, store.From(ordersTable).Eq("order_number", number).Select("id").Limit(1), store.Service, &rows)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return false, err
	}
	return len(rows) > 0, nil
}

// ListSince returns orders created at or after since, newest first.
func (r *Repository) ListSince(ctx context.Context, since time.Time, limit int) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListSince")
	defer span.End()

	q := store.From(ordersTable).
		Gte("created_at", since.Format(time.RFC3339)).
		Order("created_at", true)
	if limit > 0 {
		q = q.Limit(limit)
	}
	rows := make([]entity.Order, 0)
	err := repository.Read(ctx, func(ctx context.Context) error {
		return r.store.Select(ctx, q, store.Anon, &rows)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return rows, nil
}

// Patch updates the order with id.
func (r *Repository) Patch(ctx context.Context, id string, patch map[string]any) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Patch", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if err := r.store.Update(ctx, store.From(ordersTable).Eq("id", id), patch); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	return nil
}

// Delete removes the order with id. Only used to compensate a half-written order.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Delete", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if err := r.store.Delete(ctx, store.From(ordersTable).Eq("id", id)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}
	return nil
}

// InsertItems persists all line items in one call.
func (r *Repository) InsertItems(ctx context.Context, items []entity.OrderItem) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.InsertItems", trace.WithAttributes(attribute.Int("order.items", len(items))))
	defer span.End()

	if len(items) == 0 {
		return nil
	}
	if _, err := r.store.Insert(ctx, itemsTable, items, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return err
	}
	return nil
}

// Items returns the line items of an order with the joined menu name when available.
func (r *Repository) Items(ctx context.Context, orderID string) ([]entity.OrderItem, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Items", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	items := make([]entity.OrderItem, 0)
	err := repository.Read(ctx, func(ctx context.Context) error {
		return r.store.Select(ctx, store.From(itemsTable).Eq("order_id", orderID).Select("*,menus(name,price)"), store.Anon, &items)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return items, nil
}

// AppendHistory writes one audit entry.
func (r *Repository) AppendHistory(ctx context.Context, entry entity.OrderStatusHistory) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.AppendHistory", trace.WithAttributes(attribute.String("order.id", entry.OrderID)))
	defer span.End()

	if _, err := r.store.Insert(ctx, historyTable, entry, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return err
	}
	return nil
}

// History returns the audit trail of an order, oldest first.
func (r *Repository) History(ctx context.Context, orderID string) ([]entity.OrderStatusHistory, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.History", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	entries := make([]entity.OrderStatusHistory, 0)
	err := repository.Read(ctx, func(ctx context.Context) error {
		return r.store.Select(ctx, store.From(historyTable).Eq("order_id", orderID).Order("created_at", false), store.Service, &entries)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return entries, nil
}

// LogStaffAction records a staff action row.
func (r *Repository) LogStaffAction(ctx context.Context, action entity.StaffAction) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.LogStaffAction", trace.WithAttributes(attribute.String("staff.id", action.StaffID)))
	defer span.End()

	if _, err := r.store.Insert(ctx, staffActionTable, action, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return err
	}
	return nil
}
