package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/tenzai/internal/entity"
)

// ItemView is a line item as shown on the tracking page.
type ItemView struct {
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Notes      string          `json:"notes"`
}

// TimelineStep is one lifecycle step with its reached flag.
type TimelineStep struct {
	Status    entity.OrderStatus `json:"status"`
	Text      string             `json:"text"`
	Completed bool               `json:"completed"`
}

// OrderView is the tracking projection of an order.
type OrderView struct {
	OrderID         string                      `json:"order_id"`
	OrderNumber     string                      `json:"order_number"`
	Status          entity.OrderStatus          `json:"status"`
	StatusText      string                      `json:"status_text"`
	CustomerID      string                      `json:"customer_id"`
	CustomerName    string                      `json:"customer_name"`
	CustomerPhone   string                      `json:"customer_phone"`
	TotalAmount     decimal.Decimal             `json:"total_amount"`
	NetAmount       decimal.Decimal             `json:"net_amount"`
	PaymentMethod   entity.PaymentMethod        `json:"payment_method"`
	PaymentStatus   entity.PaymentStatus        `json:"payment_status"`
	OrderType       entity.OrderType            `json:"order_type"`
	Notes           string                      `json:"notes"`
	CancelledReason string                      `json:"cancelled_reason,omitempty"`
	CreatedAt       time.Time                   `json:"created_at"`
	Items           []ItemView                  `json:"items"`
	Timeline        []TimelineStep              `json:"status_history"`
	AuditTrail      []entity.OrderStatusHistory `json:"audit_trail,omitempty"`
}

// TodayView lists the orders of the current local day.
type TodayView struct {
	Date       string         `json:"date"`
	LocalTime  time.Time      `json:"local_time"`
	TotalCount int            `json:"total_count"`
	Orders     []entity.Order `json:"orders"`
}

// Timeline renders the fixed five-step lifecycle for status.
func Timeline(status entity.OrderStatus) []TimelineStep {
	steps := make([]TimelineStep, 0, len(entity.Lifecycle))
	for _, step := range entity.Lifecycle {
		steps = append(steps, TimelineStep{
			Status:    step,
			Text:      entity.TimelineLabel(step),
			Completed: status.Reached(step),
		})
	}
	return steps
}

func buildView(o *entity.Order, items []entity.OrderItem, history []entity.OrderStatusHistory, loc *time.Location) *OrderView {
	view := &OrderView{
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		Status:          o.Status,
		StatusText:      entity.TimelineLabel(o.Status),
		CustomerID:      o.CustomerID,
		CustomerName:    orDefault(o.CustomerName, "N/A"),
		CustomerPhone:   orDefault(o.CustomerPhone, "N/A"),
		TotalAmount:     o.TotalAmount,
		NetAmount:       o.Payable(),
		PaymentMethod:   o.PaymentMethod,
		PaymentStatus:   entity.PaymentStatus(orDefault(string(o.PaymentStatus), string(entity.PaymentUnpaid))),
		OrderType:       entity.OrderType(orDefault(string(o.OrderType), string(entity.OrderPickup))),
		Notes:           o.Notes,
		CancelledReason: o.CancelledReason,
		CreatedAt:       o.CreatedAt.In(loc),
		Items:           make([]ItemView, 0, len(items)),
		Timeline:        Timeline(o.Status),
		AuditTrail:      history,
	}
	for _, item := range items {
		total := item.TotalPrice
		if total.IsZero() {
			total = entity.LineTotal(item.Quantity, item.UnitPrice)
		}
		view.Items = append(view.Items, ItemView{
			Name:       item.DisplayName(),
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: total,
			Notes:      item.Notes,
		})
	}
	return view
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
