package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// DeliveryStatus is the outcome of a notification attempt.
type DeliveryStatus string

const (
	DeliverySent           DeliveryStatus = "sent"
	DeliveryFailed         DeliveryStatus = "failed"
	DeliverySkipped        DeliveryStatus = "skipped"
	DeliveryNotImplemented DeliveryStatus = "not_implemented"
)

// NotificationDelivery is a ledger row for one notification attempt.
type NotificationDelivery struct {
	bun.BaseModel `bun:"table:notification_deliveries"`

	ID          string         `bun:"id,pk" json:"id"`
	Kind        string         `bun:"kind,notnull" json:"kind"`
	OrderNumber string         `bun:"order_number" json:"order_number,omitempty"`
	Channel     string         `bun:"channel" json:"channel,omitempty"`
	Recipient   string         `bun:"recipient" json:"recipient,omitempty"`
	Status      DeliveryStatus `bun:"status,notnull" json:"status"`
	Error       string         `bun:"error" json:"error,omitempty"`
	CreatedAt   time.Time      `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"created_at"`
}
