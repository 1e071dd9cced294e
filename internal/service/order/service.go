package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/cache"
	"github.com/Additional-Code/tenzai/internal/config"
	"github.com/Additional-Code/tenzai/internal/entity"
	"github.com/Additional-Code/tenzai/internal/messaging"
	customerrepo "github.com/Additional-Code/tenzai/internal/repository/customer"
	repo "github.com/Additional-Code/tenzai/internal/repository/order"
	"github.com/Additional-Code/tenzai/internal/store"
	"github.com/Additional-Code/tenzai/pkg/errorbank"
)

var (
	serviceTracer = otel.Tracer("github.com/Additional-Code/tenzai/service/order")
	serviceMeter  = otel.Meter("github.com/Additional-Code/tenzai/service/order")
)

const compensationReason = "system: item persistence failed"

// CustomerResolver finds or creates the customer placing an order.
type CustomerResolver interface {
	FindOrCreate(ctx context.Context, name, phone string, channel entity.Channel, channelUserID string) (string, error)
}

// Notifier schedules fire-and-forget notifications. Implementations must not block.
type Notifier interface {
	NotifyStaff(order entity.Order)
	NotifyCustomer(order entity.Order, channel entity.Channel, channelUserID string)
}

// CreateResult is returned to the caller of a checkout.
type CreateResult struct {
	OrderNumber string             `json:"order_number"`
	OrderID     string             `json:"order_id"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	Status      entity.OrderStatus `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
}

// UpdateStatusInput asks for a lifecycle transition.
type UpdateStatusInput struct {
	OrderNumber string
	Status      string
	Actor       string
	Reason      string
}

// Service drives order creation, lookup and the status lifecycle.
type Service struct {
	repo      *repo.Repository
	customers *customerrepo.Repository
	resolver  CustomerResolver
	writer    Writer
	notifier  Notifier
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
	numbers   *NumberGenerator
	cfg       config.Order
	now       func() time.Time

	createdCounter metric.Int64Counter
	changedCounter metric.Int64Counter
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Customers  *customerrepo.Repository
	Resolver   CustomerResolver
	Writer     Writer
	Notifier   Notifier `optional:"true"`
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
	Publisher  messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	orderCfg := p.Config.Order
	if orderCfg.Location == nil {
		orderCfg.Location = time.UTC
	}
	if orderCfg.NumberAttempts <= 0 {
		orderCfg.NumberAttempts = 5
	}
	if orderCfg.MinPhoneLength <= 0 {
		orderCfg.MinPhoneLength = 9
	}
	created, _ := serviceMeter.Int64Counter("orders.created")
	changed, _ := serviceMeter.Int64Counter("orders.status_changed")

	return &Service{
		repo:      p.Repository,
		customers: p.Customers,
		resolver:  p.Resolver,
		writer:    p.Writer,
		notifier:  p.Notifier,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    logger,
		publisher: p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
		},
		numbers:        NewNumberGenerator(orderCfg.Location),
		cfg:            orderCfg,
		now:            time.Now,
		createdCounter: created,
		changedCounter: changed,
	}
}

// Writer exposes the active migration strategy.
func (s *Service) Writer() Writer {
	return s.writer
}

// Create validates a checkout, resolves the customer, allocates a number and
// persists the order with its items. Notifications are scheduled, never awaited.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	computed, err := validate(&in, s.cfg.MinPhoneLength)
	if err != nil {
		return nil, err
	}

	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(
		attribute.String("order.channel", string(in.Channel)),
		attribute.Int("order.items", len(in.Items)),
	))
	defer span.End()

	customerID, err := s.resolver.FindOrCreate(ctx, in.CustomerName, in.CustomerPhone, in.Channel, in.ChannelUserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "customer resolution failed")
		return nil, err
	}

	number, err := s.allocateNumber(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "number allocation failed")
		return nil, store.Translate(err, "failed to allocate order number")
	}
	span.SetAttributes(attribute.String("order.number", number))

	draft := s.draft(in, customerID, number, computed)

	created, err := s.writer.CreateOrder(ctx, draft)
	if store.IsConflict(err) {
		draft.OrderNumber = s.numbers.Fallback()
		s.logger.Warn("order number taken at insert, using fallback",
			zap.String("order_number", number),
			zap.String("fallback", draft.OrderNumber),
		)
		created, err = s.writer.CreateOrder(ctx, draft)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order insert failed")
		return nil, store.Translate(err, "failed to create order")
	}

	if err := s.repo.InsertItems(ctx, itemRows(created.ID, in.Items)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "item insert failed")
		s.compensate(ctx, created)
		return nil, store.Translate(err, "failed to create order items")
	}

	s.logger.Info("order created",
		zap.String("order_number", created.OrderNumber),
		zap.String("order_id", created.ID),
		zap.String("customer_id", customerID),
		zap.String("total_amount", created.TotalAmount.StringFixed(2)),
		zap.String("mode", s.writer.Mode()),
	)
	s.createdCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", string(in.Channel))))

	if s.notifier != nil {
		s.notifier.NotifyStaff(*created)
		s.notifier.NotifyCustomer(*created, in.Channel, in.ChannelUserID)
	}
	s.publish(ctx, Event{
		Type:          EventCreated,
		OrderID:       created.ID,
		OrderNumber:   created.OrderNumber,
		CustomerID:    customerID,
		Status:        created.Status,
		Channel:       in.Channel,
		ChannelUserID: in.ChannelUserID,
		TotalAmount:   created.TotalAmount,
		OccurredAt:    created.CreatedAt,
	})

	status := created.Status
	if status == "" {
		status = entity.StatusPending
	}
	return &CreateResult{
		OrderNumber: created.OrderNumber,
		OrderID:     created.ID,
		TotalAmount: created.TotalAmount,
		Status:      status,
		CreatedAt:   created.CreatedAt,
	}, nil
}

func (s *Service) draft(in CreateInput, customerID, number string, computed decimal.Decimal) *entity.Order {
	declared := computed
	if in.TotalAmount != nil {
		declared = *in.TotalAmount
	}
	metadata := map[string]any{"channel": in.Channel}

	total := declared
	tolerance := decimal.NewFromFloat(s.cfg.TotalTolerance)
	if declared.Sub(computed).Abs().GreaterThan(tolerance) {
		s.logger.Warn("order total mismatch",
			zap.String("order_number", number),
			zap.String("declared", declared.StringFixed(2)),
			zap.String("computed", computed.StringFixed(2)),
			zap.String("policy", s.cfg.TotalPolicy),
		)
		metadata["total_mismatch"] = map[string]any{"declared": declared, "computed": computed}
		if s.cfg.TotalPolicy == config.TotalRecompute {
			total = computed
		}
	}

	return &entity.Order{
		OrderNumber:     number,
		CustomerID:      customerID,
		CustomerName:    in.CustomerName,
		CustomerPhone:   in.CustomerPhone,
		Status:          entity.StatusPending,
		OrderType:       in.OrderType,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   entity.PaymentUnpaid,
		TotalAmount:     total,
		DeliveryFee:     in.DeliveryFee,
		DiscountAmount:  in.DiscountAmount,
		TaxAmount:       in.TaxAmount,
		NetAmount:       entity.ComputeNetAmount(total, in.DeliveryFee, in.DiscountAmount, in.TaxAmount),
		DeliveryAddress: in.DeliveryAddress,
		Notes:           in.Notes,
		Metadata:        metadata,
		CreatedAt:       s.now().In(s.cfg.Location),
	}
}

func itemRows(orderID string, items []ItemInput) []entity.OrderItem {
	rows := make([]entity.OrderItem, 0, len(items))
	for _, item := range items {
		var menuID *string
		if item.MenuID != "" {
			id := item.MenuID
			menuID = &id
		}
		rows = append(rows, entity.OrderItem{
			OrderID:    orderID,
			MenuID:     menuID,
			MenuName:   item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.Price,
			TotalPrice: entity.LineTotal(item.Quantity, item.Price),
			Notes:      item.Notes,
		})
	}
	return rows
}

// allocateNumber tries random candidates, then the time-only fallback.
func (s *Service) allocateNumber(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= s.cfg.NumberAttempts; attempt++ {
		candidate := s.numbers.Candidate()
		exists, err := s.repo.NumberExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		s.logger.Debug("order number collision", zap.String("candidate", candidate), zap.Int("attempt", attempt))
	}
	fallback := s.numbers.Fallback()
	s.logger.Warn("order number attempts exhausted, using fallback", zap.String("order_number", fallback))
	return fallback, nil
}

// compensate undoes a half-written order; its own failure is only logged.
func (s *Service) compensate(ctx context.Context, created *entity.Order) {
	var err error
	switch s.cfg.RollbackPolicy {
	case config.RollbackDelete:
		err = s.repo.Delete(ctx, created.ID)
	default:
		err = s.repo.Patch(ctx, created.ID, map[string]any{
			"status":           entity.StatusCancelled,
			"cancelled_reason": compensationReason,
			"updated_at":       s.now().In(s.cfg.Location),
		})
	}
	if err != nil {
		s.logger.Error("order compensation failed",
			zap.String("order_number", created.OrderNumber),
			zap.String("policy", s.cfg.RollbackPolicy),
			zap.Error(err),
		)
		return
	}
	s.logger.Warn("order compensated after item failure",
		zap.String("order_number", created.OrderNumber),
		zap.String("policy", s.cfg.RollbackPolicy),
	)
}

// UpdateStatus moves an order along the lifecycle. Requesting the current
// status again is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, in UpdateStatusInput) (*entity.Order, error) {
	target, err := entity.ParseStatus(in.Status)
	if err != nil {
		return nil, errorbank.BadRequest("invalid status",
			errorbank.WithDetail("field", "status"),
			errorbank.WithDetail("reason", "unsupported"),
			errorbank.WithDetail("allowed", entity.Statuses),
		)
	}

	ctx, span := serviceTracer.Start(ctx, "OrderService.UpdateStatus", trace.WithAttributes(
		attribute.String("order.number", in.OrderNumber),
		attribute.String("order.status", string(target)),
	))
	defer span.End()

	current, err := s.repo.GetByNumber(ctx, in.OrderNumber)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found", errorbank.WithDetail("order_number", in.OrderNumber))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, store.Translate(err, "failed to load order")
	}

	if current.Status == target {
		return current, nil
	}
	if !entity.CanTransition(current.Status, target) {
		return nil, errorbank.Unprocessable("illegal status transition",
			errorbank.WithDetail("from", current.Status),
			errorbank.WithDetail("to", target),
		)
	}

	now := s.now().In(s.cfg.Location)
	patch := map[string]any{
		"status":     target,
		"updated_at": now,
	}
	if target == entity.StatusCompleted {
		patch["completed_at"] = now
	}
	if target == entity.StatusCancelled && in.Reason != "" {
		patch["cancelled_reason"] = in.Reason
	}

	actor := in.Actor
	if actor == "" {
		actor = entity.SystemActor
	}
	change := StatusChange{From: current.Status, To: target, Actor: actor, Reason: in.Reason}
	if err := s.writer.UpdateStatus(ctx, current, patch, change); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status update failed")
		return nil, store.Translate(err, "failed to update order status")
	}

	updated := *current
	updated.Status = target
	updated.UpdatedAt = &now
	if target == entity.StatusCompleted {
		updated.CompletedAt = &now
	}
	if reason, ok := patch["cancelled_reason"].(string); ok {
		updated.CancelledReason = reason
	}

	s.logger.Info("order status changed",
		zap.String("order_number", updated.OrderNumber),
		zap.String("from", string(change.From)),
		zap.String("to", string(change.To)),
		zap.String("actor", actor),
	)
	s.changedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(target))))
	s.InvalidateView(ctx, updated.OrderNumber)

	channel, channelUserID := s.customerChannel(ctx, updated.CustomerID)
	s.publish(ctx, Event{
		Type:           EventStatusChanged,
		OrderID:        updated.ID,
		OrderNumber:    updated.OrderNumber,
		CustomerID:     updated.CustomerID,
		Status:         target,
		PreviousStatus: change.From,
		Channel:        channel,
		ChannelUserID:  channelUserID,
		TotalAmount:    updated.TotalAmount,
		Actor:          actor,
		Reason:         in.Reason,
		OccurredAt:     now,
	})
	return &updated, nil
}

// customerChannel derives where status updates for a customer should go.
func (s *Service) customerChannel(ctx context.Context, customerID string) (entity.Channel, string) {
	if s.customers == nil || customerID == "" {
		return "", ""
	}
	c, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		s.logger.Warn("customer channel lookup failed", zap.String("customer_id", customerID), zap.Error(err))
		return "", ""
	}
	if entity.IsGenericIdentifier(c.ChannelIdentifier) {
		return entity.ChannelWeb, ""
	}
	return entity.ChannelOf(c.ChannelIdentifier), entity.UserIDOf(c.ChannelIdentifier)
}

// Get returns the tracking view of an order, consulting cache when available.
func (s *Service) Get(ctx context.Context, number string) (*OrderView, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.String("order.number", number)))
	defer span.End()

	if view, err := s.getFromCache(ctx, number); err == nil {
		return view, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.String("order_number", number), zap.Error(err))
	}

	order, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found", errorbank.WithDetail("order_number", number))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, store.Translate(err, "failed to load order")
	}

	items, err := s.repo.Items(ctx, order.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, store.Translate(err, "failed to load order items")
	}

	var history []entity.OrderStatusHistory
	if s.writer.SupportsHistory() {
		history, err = s.repo.History(ctx, order.ID)
		if err != nil {
			s.logger.Warn("order history read failed", zap.String("order_number", number), zap.Error(err))
			history = nil
		}
	}

	view := buildView(order, items, history, s.cfg.Location)
	if err := s.storeInCache(ctx, view); err != nil {
		s.logger.Warn("orders cache write failed", zap.String("order_number", number), zap.Error(err))
	}
	return view, nil
}

// Today lists the orders created since local midnight, newest first.
func (s *Service) Today(ctx context.Context) (*TodayView, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Today")
	defer span.End()

	now := s.now().In(s.cfg.Location)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.cfg.Location)

	orders, err := s.repo.ListSince(ctx, midnight, 0)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, store.Translate(err, "failed to load today's orders")
	}
	return &TodayView{
		Date:       now.Format("2006-01-02"),
		LocalTime:  now,
		TotalCount: len(orders),
		Orders:     orders,
	}, nil
}

// InvalidateView drops the cached tracking view of an order.
func (s *Service) InvalidateView(ctx context.Context, number string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cacheKey(number)); err != nil {
		s.logger.Warn("orders cache invalidate failed", zap.String("order_number", number), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, event Event) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal order event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte(event.OrderNumber), payload); err != nil {
		s.logger.Error("publish order event", zap.String("type", event.Type), zap.Error(err))
	}
}

func (s *Service) cacheKey(number string) string {
	return fmt.Sprintf("orders:view:%s", number)
}

func (s *Service) getFromCache(ctx context.Context, number string) (*OrderView, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(number))
	if err != nil {
		return nil, err
	}
	var view OrderView
	if err := json.Unmarshal(bytes, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *Service) storeInCache(ctx context.Context, view *OrderView) error {
	if s.cache == nil || view == nil {
		return nil
	}
	bytes, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cacheKey(view.OrderNumber), bytes, s.cacheTTL)
}
