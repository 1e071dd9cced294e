package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/tenzai/internal/entity"
)

// Event types published on the order topic.
const (
	EventCreated       = "order.created"
	EventStatusChanged = "order.status_changed"
)

// Event is the envelope published for every order lifecycle change.
type Event struct {
	Type           string             `json:"type"`
	OrderID        string             `json:"order_id"`
	OrderNumber    string             `json:"order_number"`
	CustomerID     string             `json:"customer_id,omitempty"`
	Status         entity.OrderStatus `json:"status"`
	PreviousStatus entity.OrderStatus `json:"previous_status,omitempty"`
	Channel        entity.Channel     `json:"channel,omitempty"`
	ChannelUserID  string             `json:"channel_user_id,omitempty"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	Actor          string             `json:"actor,omitempty"`
	Reason         string             `json:"reason,omitempty"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

// Order rebuilds the order fields carried by the event.
func (e Event) Order() entity.Order {
	return entity.Order{
		ID:          e.OrderID,
		OrderNumber: e.OrderNumber,
		CustomerID:  e.CustomerID,
		Status:      e.Status,
		TotalAmount: e.TotalAmount,
	}
}
