package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType is how the order leaves the kitchen.
type OrderType string

const (
	OrderPickup   OrderType = "pickup"
	OrderDelivery OrderType = "delivery"
)

// Valid reports whether t is a supported order type.
func (t OrderType) Valid() bool {
	return t == OrderPickup || t == OrderDelivery
}

// PaymentMethod is the customer's chosen way to pay.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCard         PaymentMethod = "card"
	PaymentQR           PaymentMethod = "qr"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentPromptPay    PaymentMethod = "promptpay"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentQR, PaymentBankTransfer, PaymentPromptPay:
		return true
	}
	return false
}

// PaymentStatus tracks settlement of an order.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Order is a purchase transaction. OrderNumber is immutable once assigned.
type Order struct {
	ID              string          `json:"id,omitempty"`
	OrderNumber     string          `json:"order_number"`
	CustomerID      string          `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	Status          OrderStatus     `json:"status"`
	OrderType       OrderType       `json:"order_type"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	NetAmount       decimal.Decimal `json:"net_amount"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	Notes           string          `json:"notes"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
	CancelledReason string          `json:"cancelled_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       *time.Time      `json:"updated_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

// ComputeNetAmount is total + delivery fee - discount + tax.
func ComputeNetAmount(total, deliveryFee, discount, tax decimal.Decimal) decimal.Decimal {
	return total.Add(deliveryFee).Sub(discount).Add(tax)
}

// Payable returns the amount a payment must cover, preferring the net amount when set.
func (o *Order) Payable() decimal.Decimal {
	if o.NetAmount.IsPositive() {
		return o.NetAmount
	}
	return ComputeNetAmount(o.TotalAmount, o.DeliveryFee, o.DiscountAmount, o.TaxAmount)
}

// OrderItem is a line item snapshot.
type OrderItem struct {
	ID         string          `json:"id,omitempty"`
	OrderID    string          `json:"order_id"`
	MenuID     *string         `json:"menu_id"`
	MenuName   string          `json:"menu_name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Notes      string          `json:"notes"`
	Menu       *MenuRef        `json:"menus,omitempty"`
}

// MenuRef is the joined menu row embedded in an item read.
type MenuRef struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// DisplayName prefers the joined menu name over the snapshotted one.
func (i OrderItem) DisplayName() string {
	if i.Menu != nil && i.Menu.Name != "" {
		return i.Menu.Name
	}
	if i.MenuName != "" {
		return i.MenuName
	}
	return "Unknown Item"
}

// LineTotal is quantity times unit price.
func LineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
