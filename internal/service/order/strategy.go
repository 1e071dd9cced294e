package order

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/config"
	"github.com/Additional-Code/tenzai/internal/entity"
	repo "github.com/Additional-Code/tenzai/internal/repository/order"
)

// StatusChange describes one transition for the audit trail.
type StatusChange struct {
	From   entity.OrderStatus
	To     entity.OrderStatus
	Actor  string
	Reason string
}

// Writer persists orders according to the schema migration mode.
type Writer interface {
	CreateOrder(ctx context.Context, draft *entity.Order) (*entity.Order, error)
	UpdateStatus(ctx context.Context, current *entity.Order, patch map[string]any, change StatusChange) error
	SupportsHistory() bool
	SupportsPayments() bool
	Mode() string
}

// NewWriter selects the writer for mode.
func NewWriter(mode string, repository *repo.Repository, logger *zap.Logger) (Writer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := auditor{repo: repository, logger: logger}
	switch mode {
	case config.MigrationLegacy, "":
		return &legacyWriter{repo: repository}, nil
	case config.MigrationDual:
		return &dualWriter{auditor: base}, nil
	case config.MigrationEnhanced:
		return &enhancedWriter{auditor: base}, nil
	default:
		return nil, fmt.Errorf("unsupported migration mode: %s", mode)
	}
}

func legacyColumns(o *entity.Order) map[string]any {
	return map[string]any{
		"order_number":   o.OrderNumber,
		"customer_id":    o.CustomerID,
		"customer_name":  o.CustomerName,
		"customer_phone": o.CustomerPhone,
		"total_amount":   o.TotalAmount,
		"order_type":     o.OrderType,
		"payment_method": o.PaymentMethod,
		"payment_status": o.PaymentStatus,
		"status":         o.Status,
		"notes":          o.Notes,
		"created_at":     o.CreatedAt,
	}
}

func enhancedColumns(o *entity.Order) map[string]any {
	cols := map[string]any{
		"delivery_fee":    o.DeliveryFee,
		"discount_amount": o.DiscountAmount,
		"tax_amount":      o.TaxAmount,
		"net_amount":      o.NetAmount,
		"metadata":        o.Metadata,
		"updated_at":      o.CreatedAt,
	}
	if o.DeliveryAddress != "" {
		cols["delivery_address"] = o.DeliveryAddress
	}
	return cols
}

type legacyWriter struct {
	repo *repo.Repository
}

func (w *legacyWriter) CreateOrder(ctx context.Context, draft *entity.Order) (*entity.Order, error) {
	return w.repo.Insert(ctx, legacyColumns(draft))
}

func (w *legacyWriter) UpdateStatus(ctx context.Context, current *entity.Order, patch map[string]any, _ StatusChange) error {
	return w.repo.Patch(ctx, current.ID, patch)
}

func (w *legacyWriter) SupportsHistory() bool  { return false }
func (w *legacyWriter) SupportsPayments() bool { return false }
func (w *legacyWriter) Mode() string           { return config.MigrationLegacy }

// auditor appends history and staff actions. Every append is best-effort:
// the status change it describes has already been applied.
type auditor struct {
	repo   *repo.Repository
	logger *zap.Logger
}

func (a auditor) record(ctx context.Context, order *entity.Order, change StatusChange, description string) {
	actor := change.Actor
	if actor == "" {
		actor = entity.SystemActor
	}
	entry := entity.OrderStatusHistory{
		OrderID:     order.ID,
		OldStatus:   change.From,
		NewStatus:   change.To,
		ChangedBy:   actor,
		Description: description,
		Notes:       change.Reason,
		CreatedAt:   order.CreatedAt,
	}
	if order.UpdatedAt != nil {
		entry.CreatedAt = *order.UpdatedAt
	}
	if err := a.repo.AppendHistory(ctx, entry); err != nil {
		a.logger.Warn("status history append failed", zap.String("order_number", order.OrderNumber), zap.Error(err))
	}

	if actor == entity.SystemActor || change.From == "" {
		return
	}
	action := entity.StaffAction{
		StaffID:     actor,
		ActionType:  "UPDATE",
		TargetType:  "orders",
		TargetID:    order.ID,
		Description: fmt.Sprintf("Changed order %s status to %s", order.OrderNumber, change.To),
		Metadata: map[string]any{
			"old_status": change.From,
			"new_status": change.To,
			"reason":     change.Reason,
		},
		CreatedAt: entry.CreatedAt,
	}
	if err := a.repo.LogStaffAction(ctx, action); err != nil {
		a.logger.Warn("staff action log failed", zap.String("order_number", order.OrderNumber), zap.Error(err))
	}
}

func (a auditor) updateStatus(ctx context.Context, current *entity.Order, patch map[string]any, change StatusChange) error {
	if err := a.repo.Patch(ctx, current.ID, patch); err != nil {
		return err
	}
	audited := *current
	if ts, ok := patch["updated_at"].(time.Time); ok {
		audited.UpdatedAt = &ts
	}
	a.record(ctx, &audited, change, fmt.Sprintf("Status changed from %s to %s", change.From, change.To))
	return nil
}

type dualWriter struct {
	auditor
}

// CreateOrder writes the legacy row authoritatively, then backfills the
// enhanced columns. Failures of the enhanced half are logged only.
func (w *dualWriter) CreateOrder(ctx context.Context, draft *entity.Order) (*entity.Order, error) {
	created, err := w.repo.Insert(ctx, legacyColumns(draft))
	if err != nil {
		return nil, err
	}
	if err := w.repo.Patch(ctx, created.ID, enhancedColumns(draft)); err != nil {
		w.logger.Warn("enhanced order columns write failed", zap.String("order_number", created.OrderNumber), zap.Error(err))
	} else {
		created.DeliveryFee = draft.DeliveryFee
		created.DiscountAmount = draft.DiscountAmount
		created.TaxAmount = draft.TaxAmount
		created.NetAmount = draft.NetAmount
		created.Metadata = draft.Metadata
	}
	w.record(ctx, created, StatusChange{To: created.Status}, "Order created")
	return created, nil
}

func (w *dualWriter) UpdateStatus(ctx context.Context, current *entity.Order, patch map[string]any, change StatusChange) error {
	return w.updateStatus(ctx, current, patch, change)
}

func (w *dualWriter) SupportsHistory() bool  { return true }
func (w *dualWriter) SupportsPayments() bool { return true }
func (w *dualWriter) Mode() string           { return config.MigrationDual }

type enhancedWriter struct {
	auditor
}

// CreateOrder writes every column in one call.
func (w *enhancedWriter) CreateOrder(ctx context.Context, draft *entity.Order) (*entity.Order, error) {
	row := legacyColumns(draft)
	for k, v := range enhancedColumns(draft) {
		row[k] = v
	}
	created, err := w.repo.Insert(ctx, row)
	if err != nil {
		return nil, err
	}
	w.record(ctx, created, StatusChange{To: created.Status}, "Order created")
	return created, nil
}

func (w *enhancedWriter) UpdateStatus(ctx context.Context, current *entity.Order, patch map[string]any, change StatusChange) error {
	return w.updateStatus(ctx, current, patch, change)
}

func (w *enhancedWriter) SupportsHistory() bool  { return true }
func (w *enhancedWriter) SupportsPayments() bool { return true }
func (w *enhancedWriter) Mode() string           { return config.MigrationEnhanced }
