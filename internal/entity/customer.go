package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is a cross-channel identity. Phone is the primary merge key;
// the channel identifier is an enrichment that may be upgraded in place.
type Customer struct {
	ID                string          `json:"id,omitempty"`
	DisplayName       string          `json:"display_name"`
	Phone             string          `json:"phone"`
	ChannelIdentifier string          `json:"line_user_id"`
	ChannelType       Channel         `json:"platform_type"`
	TotalOrders       int             `json:"total_orders"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
	Tags              []string        `json:"tags"`
	Metadata          map[string]any  `json:"metadata"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
