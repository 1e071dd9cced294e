package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/tenzai/internal/cache"
	"github.com/Additional-Code/tenzai/internal/config"
	"github.com/Additional-Code/tenzai/internal/entity"
	"github.com/Additional-Code/tenzai/internal/messaging"
	customerrepo "github.com/Additional-Code/tenzai/internal/repository/customer"
	repo "github.com/Additional-Code/tenzai/internal/repository/order"
	customersvc "github.com/Additional-Code/tenzai/internal/service/customer"
	"github.com/Additional-Code/tenzai/internal/store/storetest"
	"github.com/Additional-Code/tenzai/pkg/errorbank"
)

var bangkok = time.FixedZone("ICT", 7*60*60)

type recordingNotifier struct {
	mu        sync.Mutex
	staff     []string
	customers []string
}

func (n *recordingNotifier) NotifyStaff(o entity.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.staff = append(n.staff, o.OrderNumber)
}

func (n *recordingNotifier) NotifyCustomer(o entity.Order, channel entity.Channel, userID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.customers = append(n.customers, string(channel)+":"+userID+":"+o.OrderNumber)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ []byte, value []byte) error {
	var e Event
	if err := json.Unmarshal(value, &e); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Consume(ctx context.Context, _ messaging.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (p *recordingPublisher) Topic() string { return "orders.events" }

type fixture struct {
	svc       *Service
	fake      *storetest.Server
	notifier  *recordingNotifier
	publisher *recordingPublisher
	cache     *cache.MemoryStore
}

func newFixture(t *testing.T, mode string, mutate ...func(*config.Config)) fixture {
	t.Helper()
	cfg := config.Config{
		Cache:     config.Cache{DefaultTTL: time.Minute},
		Messaging: config.Messaging{Enabled: true},
		Order: config.Order{
			Location:       bangkok,
			MigrationMode:  mode,
			NumberAttempts: 5,
			TotalTolerance: 0.01,
			TotalPolicy:    config.TotalTrustClient,
			RollbackPolicy: config.RollbackCancel,
			MinPhoneLength: 9,
		},
	}
	for _, m := range mutate {
		m(&cfg)
	}

	fake := storetest.New(t)
	client := fake.Client()
	orders := repo.NewRepository(client)
	customers := customerrepo.NewRepository(client)
	writer, err := NewWriter(mode, orders, zap.NewNop())
	require.NoError(t, err)

	f := fixture{
		fake:      fake,
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
		cache:     cache.NewMemory(),
	}
	f.svc = NewService(Params{
		Repository: orders,
		Customers:  customers,
		Resolver:   customersvc.NewResolver(customers, cfg, zap.NewNop()),
		Writer:     writer,
		Notifier:   f.notifier,
		Cache:      f.cache,
		Config:     cfg,
		Logger:     zap.NewNop(),
		Publisher:  f.publisher,
	})
	fixed := time.Date(2025, 1, 2, 12, 0, 0, 0, bangkok)
	f.svc.now = func() time.Time { return fixed }
	f.svc.numbers.now = f.svc.now
	return f
}

func price(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func validInput() CreateInput {
	total := price(350)
	return CreateInput{
		CustomerName:  "Somchai",
		CustomerPhone: "0812345678",
		OrderType:     entity.OrderPickup,
		Items: []ItemInput{
			{MenuID: "m1", Name: "Salmon Sushi", Quantity: 2, Price: price(100)},
			{Name: "Tuna Roll", Quantity: 1, Price: price(150)},
		},
		TotalAmount: &total,
	}
}

func detail(t *testing.T, err error, key string) any {
	t.Helper()
	var appErr *errorbank.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	return appErr.Details()[key]
}

func TestCreatePersistsOrderAndItems(t *testing.T) {
	f := newFixture(t, config.MigrationLegacy)

	res, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^T0102[0-9A-F]{4}$`), res.OrderNumber)
	require.Equal(t, entity.StatusPending, res.Status)
	require.True(t, res.TotalAmount.Equal(price(350)))

	orders := f.fake.Rows("orders")
	require.Len(t, orders, 1)
	assert.Equal(t, res.OrderID, orders[0]["id"])
	assert.Equal(t, "pending", orders[0]["status"])
	assert.Equal(t, "unpaid", orders[0]["payment_status"])
	assert.Equal(t, "cash", orders[0]["payment_method"])
	assert.NotContains(t, orders[0], "net_amount")

	items := f.fake.Rows("order_items")
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, res.OrderID, item["order_id"])
	}
	assert.EqualValues(t, 200, items[0]["total_price"])
	assert.Nil(t, items[1]["menu_id"])
	require.Len(t, f.fake.CallsTo(http.MethodPost, "order_items"), 1)

	assert.Equal(t, []string{res.OrderNumber}, f.notifier.staff)
	assert.Equal(t, []string{"WEB::" + res.OrderNumber}, f.notifier.customers)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, EventCreated, f.publisher.events[0].Type)
	assert.Empty(t, f.fake.Rows("order_status_history"))
}

func TestCreateValidationOrder(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateInput)
		field  string
		reason string
	}{
		{"missing name", func(in *CreateInput) { in.CustomerName = " "; in.CustomerPhone = "" }, "customer_name", "required"},
		{"missing phone", func(in *CreateInput) { in.CustomerPhone = ""; in.Items = nil }, "customer_phone", "required"},
		{"short phone", func(in *CreateInput) { in.CustomerPhone = "0812" }, "customer_phone", "too_short"},
		{"no items", func(in *CreateInput) { in.Items = nil; in.OrderType = "drone" }, "items", "empty"},
		{"zero quantity", func(in *CreateInput) { in.Items[0].Quantity = 0 }, "items.quantity", "out_of_range"},
		{"negative price", func(in *CreateInput) { in.Items[1].Price = price(-1) }, "items.price", "out_of_range"},
		{"bad order type", func(in *CreateInput) { in.OrderType = "drone" }, "order_type", "unsupported"},
		{"missing order type", func(in *CreateInput) { in.OrderType = "" }, "order_type", "unsupported"},
		{"bad payment method", func(in *CreateInput) { in.PaymentMethod = "crypto" }, "payment_method", "unsupported"},
		{"zero total", func(in *CreateInput) { zero := decimal.Zero; in.TotalAmount = &zero }, "total_amount", "out_of_range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, config.MigrationLegacy)
			in := validInput()
			tt.mutate(&in)

			_, err := f.svc.Create(context.Background(), in)
			require.Error(t, err)
			assert.True(t, errorbank.IsKind(err, errorbank.KindBadRequest))
			assert.Equal(t, tt.field, detail(t, err, "field"))
			assert.Equal(t, tt.reason, detail(t, err, "reason"))
			assert.Empty(t, f.fake.Calls())
		})
	}
}

func TestCreateRetriesNumberCollision(t *testing.T) {
	f := newFixture(t, config.MigrationLegacy)
	f.fake.Seed("orders", map[string]any{"order_number": "T0102AAAA"})
	suffixes := []string{"AAAA", "AAAA", "BBBB"}
	f.svc.numbers.suffix = func() string {
		s := suffixes[0]
		suffixes = suffixes[1:]
		return s
	}

	res, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.Equal(t, "T0102BBBB", res.OrderNumber)
}

func TestCreateFallsBackAfterExhaustedAttempts(t *testing.T) {
	f := newFixture(t, config.MigrationLegacy)
	f.fake.Seed("orders", map[string]any{"order_number": "T0102AAAA"})
	f.svc.numbers.suffix = func() string { return "AAAA" }

	res, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.Equal(t, "T25010212000000", res.OrderNumber)
	require.Len(t, f.fake.CallsTo(http.MethodGet, "orders"), 5)
}

func TestCreateUsesFallbackOnInsertConflict(t *testing.T) {
	f := newFixture(t, config.MigrationLegacy)
	f.fake.Unique("orders", "order_number")
	f.fake.Fail(http.MethodPost, "orders", http.StatusConflict, 1)

	res, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.Equal(t, "T25010212000000", res.OrderNumber)
}

func TestCreateTrustsDeclaredTotalAndFlagsMismatch(t *testing.T) {
	f := newFixture(t, config.MigrationEnhanced)
	in := validInput()
	declared := price(300)
	in.TotalAmount = &declared

	res, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.True(t, res.TotalAmount.Equal(price(300)))

	order := f.fake.Rows("orders")[0]
	assert.EqualValues(t, 300, order["total_amount"])
	assert.EqualValues(t, 300, order["net_amount"])
	metadata, ok := order["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, metadata, "total_mismatch")
}

func TestCreateRecomputePolicy(t *testing.T) {
	f := newFixture(t, config.MigrationLegacy, func(cfg *config.Config) {
		cfg.Order.TotalPolicy = config.TotalRecompute
	})
	in := validInput()
	declared := price(300)
	in.TotalAmount = &declared

	res, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.True(t, res.TotalAmount.Equal(price(350)))
}

func TestCreateCompensatesItemFailure(t *testing.T) {
	f := newFixture(t, config.MigrationLegacy)
	f.fake.Fail(http.MethodPost, "order_items", http.StatusBadRequest, 0)

	_, err := f.svc.Create(context.Background(), validInput())
	require.Error(t, err)
	assert.True(t, errorbank.IsKind(err, errorbank.KindInternal))

	orders := f.fake.Rows("orders")
	require.Len(t, orders, 1)
	assert.Equal(t, "cancelled", orders[0]["status"])
	assert.Equal(t, compensationReason, orders[0]["cancelled_reason"])
	assert.Empty(t, f.notifier.staff)
	assert.Empty(t, f.publisher.events)
}

func TestCreateCompensationDeletePolicy(t *testing.T) {
	f := newFixture(t, config.MigrationLegacy, func(cfg *config.Config) {
		cfg.Order.RollbackPolicy = config.RollbackDelete
	})
	f.fake.Fail(http.MethodPost, "order_items", http.StatusInternalServerError, 0)

	_, err := f.svc.Create(context.Background(), validInput())
	require.Error(t, err)
	assert.Empty(t, f.fake.Rows("orders"))
}

func TestCreateDualWriteBackfillsAndAudits(t *testing.T) {
	f := newFixture(t, config.MigrationDual)
	in := validInput()
	in.DeliveryFee = price(40)

	res, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)

	order := f.fake.Rows("orders")[0]
	assert.EqualValues(t, 390, order["net_amount"])
	history := f.fake.Rows("order_status_history")
	require.Len(t, history, 1)
	assert.Equal(t, res.OrderID, history[0]["order_id"])
	assert.Equal(t, "pending", history[0]["new_status"])
	assert.Equal(t, "system", history[0]["changed_by"])
}

func TestCreateDualWriteSurvivesEnhancedFailure(t *testing.T) {
	f := newFixture(t, config.MigrationDual)
	f.fake.Fail(http.MethodPatch, "orders", http.StatusInternalServerError, 0)
	f.fake.Fail(http.MethodPost, "order_status_history", http.StatusInternalServerError, 0)

	res, err := f.svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.NotEmpty(t, res.OrderNumber)
}

func seedOrder(f fixture, status entity.OrderStatus) {
	f.fake.Seed("customers", map[string]any{"id": "c1", "phone": "0812345678", "line_user_id": "LINE_U1"})
	f.fake.Seed("orders", map[string]any{
		"id":             "o1",
		"order_number":   "T0102ABCD",
		"customer_id":    "c1",
		"customer_name":  "Somchai",
		"status":         status,
		"total_amount":   350,
		"payment_status": "unpaid",
		"created_at":     "2025-01-02T10:00:00+07:00",
	})
	f.fake.Seed("order_items",
		map[string]any{"order_id": "o1", "menu_name": "Salmon Sushi", "quantity": 2, "unit_price": 100, "total_price": 200},
		map[string]any{"order_id": "o1", "menu_name": "", "quantity": 1, "unit_price": 150, "total_price": 150, "menus": map[string]any{"name": "Tuna Roll"}},
	)
}

func TestUpdateStatusRejectsUnknownBeforeStore(t *testing.T) {
	f := newFixture(t, config.MigrationLegacy)

	_, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{OrderNumber: "T0102ABCD", Status: "shipped"})
	require.True(t, errorbank.IsKind(err, errorbank.KindBadRequest))
	require.Empty(t, f.fake.Calls())
	assert.Contains(t, detail(t, err, "allowed"), entity.StatusCancelled)
	assert.Contains(t, detail(t, err, "allowed"), entity.StatusCompleted)
}

func TestUpdateStatusNotFound(t *testing.T) {
	f := newFixture(t, config.MigrationLegacy)

	_, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{OrderNumber: "T0102NONE", Status: "confirmed"})
	require.True(t, errorbank.IsKind(err, errorbank.KindNotFound))
}

func TestUpdateStatusRejectsBackwardMove(t *testing.T) {
	f := newFixture(t, config.MigrationLegacy)
	seedOrder(f, entity.StatusReady)

	_, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{OrderNumber: "T0102ABCD", Status: "preparing"})
	require.True(t, errorbank.IsKind(err, errorbank.KindUnprocessableEntity))
	require.Empty(t, f.fake.CallsTo(http.MethodPatch, "orders"))
}

func TestUpdateStatusSameStatusIsNoop(t *testing.T) {
	f := newFixture(t, config.MigrationLegacy)
	seedOrder(f, entity.StatusConfirmed)

	order, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{OrderNumber: "T0102ABCD", Status: "confirmed"})
	require.NoError(t, err)
	require.Equal(t, entity.StatusConfirmed, order.Status)
	require.Empty(t, f.fake.CallsTo(http.MethodPatch, "orders"))
	require.Empty(t, f.publisher.events)
}

func TestUpdateStatusCompletedStampsTime(t *testing.T) {
	f := newFixture(t, config.MigrationLegacy)
	seedOrder(f, entity.StatusReady)

	order, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{OrderNumber: "T0102ABCD", Status: "completed"})
	require.NoError(t, err)
	require.NotNil(t, order.CompletedAt)

	row := f.fake.Rows("orders")[0]
	assert.Equal(t, "completed", row["status"])
	assert.NotEmpty(t, row["completed_at"])
	assert.Empty(t, f.fake.Rows("order_status_history"))

	require.Len(t, f.publisher.events, 1)
	event := f.publisher.events[0]
	assert.Equal(t, EventStatusChanged, event.Type)
	assert.Equal(t, entity.StatusReady, event.PreviousStatus)
	assert.Equal(t, entity.ChannelLine, event.Channel)
	assert.Equal(t, "U1", event.ChannelUserID)
}

func TestUpdateStatusCancelWithReasonAudited(t *testing.T) {
	f := newFixture(t, config.MigrationDual)
	seedOrder(f, entity.StatusPending)

	order, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{
		OrderNumber: "T0102ABCD",
		Status:      "cancelled",
		Actor:       "LINE_STAFF1",
		Reason:      "rejected via LINE",
	})
	require.NoError(t, err)
	require.Equal(t, "rejected via LINE", order.CancelledReason)

	row := f.fake.Rows("orders")[0]
	assert.Equal(t, "rejected via LINE", row["cancelled_reason"])

	history := f.fake.Rows("order_status_history")
	require.Len(t, history, 1)
	assert.Equal(t, "pending", history[0]["old_status"])
	assert.Equal(t, "cancelled", history[0]["new_status"])
	assert.Equal(t, "LINE_STAFF1", history[0]["changed_by"])

	actions := f.fake.Rows("staff_actions")
	require.Len(t, actions, 1)
	assert.Equal(t, "LINE_STAFF1", actions[0]["staff_id"])
	assert.Equal(t, "o1", actions[0]["target_id"])
}

func TestUpdateStatusEnhancedToleratesAuditFailure(t *testing.T) {
	f := newFixture(t, config.MigrationEnhanced)
	seedOrder(f, entity.StatusPending)
	f.fake.Fail(http.MethodPost, "order_status_history", http.StatusInternalServerError, 0)

	_, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{OrderNumber: "T0102ABCD", Status: "confirmed"})
	require.NoError(t, err)
	require.Equal(t, "confirmed", f.fake.Rows("orders")[0]["status"])
}

func TestUpdateStatusStoreFailure(t *testing.T) {
	f := newFixture(t, config.MigrationLegacy)
	seedOrder(f, entity.StatusPending)
	f.fake.Fail(http.MethodPatch, "orders", http.StatusInternalServerError, 0)

	_, err := f.svc.UpdateStatus(context.Background(), UpdateStatusInput{OrderNumber: "T0102ABCD", Status: "confirmed"})
	require.True(t, errorbank.IsKind(err, errorbank.KindInternal))
}

func TestGetRendersTimelineAndItems(t *testing.T) {
	f := newFixture(t, config.MigrationLegacy)
	seedOrder(f, entity.StatusPreparing)

	view, err := f.svc.Get(context.Background(), "T0102ABCD")
	require.NoError(t, err)
	require.Equal(t, "T0102ABCD", view.OrderNumber)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "Salmon Sushi", view.Items[0].Name)
	assert.Equal(t, "Tuna Roll", view.Items[1].Name)

	completed := map[entity.OrderStatus]bool{}
	for _, step := range view.Timeline {
		completed[step.Status] = step.Completed
	}
	assert.Equal(t, map[entity.OrderStatus]bool{
		entity.StatusPending:   true,
		entity.StatusConfirmed: true,
		entity.StatusPreparing: true,
		entity.StatusReady:     false,
		entity.StatusCompleted: false,
	}, completed)

	cached, err := f.cache.Get(context.Background(), "orders:view:T0102ABCD")
	require.NoError(t, err)
	require.Contains(t, string(cached), "T0102ABCD")
}

func TestGetCancelledShowsOnlyPending(t *testing.T) {
	f := newFixture(t, config.MigrationLegacy)
	seedOrder(f, entity.StatusCancelled)

	view, err := f.svc.Get(context.Background(), "T0102ABCD")
	require.NoError(t, err)
	for _, step := range view.Timeline {
		assert.Equal(t, step.Status == entity.StatusPending, step.Completed, step.Status)
	}
}

func TestGetNotFound(t *testing.T) {
	f := newFixture(t, config.MigrationLegacy)

	_, err := f.svc.Get(context.Background(), "T0102NONE")
	require.True(t, errorbank.IsKind(err, errorbank.KindNotFound))
}

func TestStatusChangeInvalidatesView(t *testing.T) {
	f := newFixture(t, config.MigrationLegacy)
	seedOrder(f, entity.StatusPending)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, "T0102ABCD")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, UpdateStatusInput{OrderNumber: "T0102ABCD", Status: "confirmed"})
	require.NoError(t, err)

	_, err = f.cache.Get(ctx, "orders:view:T0102ABCD")
	require.ErrorIs(t, err, cache.ErrCacheMiss)

	view, err := f.svc.Get(ctx, "T0102ABCD")
	require.NoError(t, err)
	require.Equal(t, entity.StatusConfirmed, view.Status)
}

func TestTodayListsLocalDay(t *testing.T) {
	f := newFixture(t, config.MigrationLegacy)
	f.fake.Seed("orders",
		map[string]any{"order_number": "T0101LATE", "created_at": "2025-01-01T23:59:00+07:00"},
		map[string]any{"order_number": "T0102EARL", "created_at": "2025-01-01T17:30:00Z"},
		map[string]any{"order_number": "T0102NOON", "created_at": "2025-01-02T11:00:00+07:00"},
	)

	today, err := f.svc.Today(context.Background())
	require.NoError(t, err)
	require.Equal(t, "2025-01-02", today.Date)
	require.Equal(t, 2, today.TotalCount)
	require.Equal(t, "T0102NOON", today.Orders[0].OrderNumber)
	require.Equal(t, "T0102EARL", today.Orders[1].OrderNumber)
}

func TestOrderLifecycleAcrossMigrationModes(t *testing.T) {
	modes := []string{config.MigrationLegacy, config.MigrationDual, config.MigrationEnhanced}

	for _, mode := range modes {
		t.Run(mode, func(t *testing.T) {
			f := newFixture(t, mode)
			ctx := context.Background()
			in := CreateInput{
				CustomerName:  "Test",
				CustomerPhone: "0812345678",
				OrderType:     entity.OrderPickup,
				Items:         []ItemInput{{Name: "Roll", Quantity: 2, Price: price(150)}},
			}

			res, err := f.svc.Create(ctx, in)
			require.NoError(t, err)
			require.True(t, res.TotalAmount.Equal(price(300)), "total %s", res.TotalAmount)

			view, err := f.svc.Get(ctx, res.OrderNumber)
			require.NoError(t, err)
			require.True(t, view.TotalAmount.Equal(price(300)))
			for _, step := range view.Timeline {
				assert.Equal(t, step.Status == entity.StatusPending, step.Completed, step.Status)
			}

			for _, next := range []entity.OrderStatus{entity.StatusConfirmed, entity.StatusPreparing, entity.StatusReady, entity.StatusCompleted} {
				_, err := f.svc.UpdateStatus(ctx, UpdateStatusInput{OrderNumber: res.OrderNumber, Status: string(next)})
				require.NoError(t, err, next)
			}
			view, err = f.svc.Get(ctx, res.OrderNumber)
			require.NoError(t, err)
			require.Equal(t, entity.StatusCompleted, view.Status)
			require.Len(t, view.Timeline, 5)
			for _, step := range view.Timeline {
				assert.True(t, step.Completed, step.Status)
			}

			seen := map[string]bool{res.OrderNumber: true}
			in.Channel = entity.ChannelLine
			for i := 0; i < 30; i++ {
				in.ChannelUserID = "U" + string(rune('A'+i%3))
				again, err := f.svc.Create(ctx, in)
				require.NoError(t, err)
				require.False(t, seen[again.OrderNumber], "duplicate number %s", again.OrderNumber)
				seen[again.OrderNumber] = true
			}
			require.Len(t, seen, 31)
			require.Len(t, f.fake.Rows("customers"), 1)
		})
	}
}
