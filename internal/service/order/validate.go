package order

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/Additional-Code/tenzai/internal/entity"
	"github.com/Additional-Code/tenzai/pkg/errorbank"
)

// ItemInput is one cart line as submitted by the client.
type ItemInput struct {
	MenuID   string
	Name     string
	Quantity int
	Price    decimal.Decimal
	Notes    string
}

// CreateInput carries a checkout request.
type CreateInput struct {
	CustomerName    string
	CustomerPhone   string
	OrderType       entity.OrderType
	PaymentMethod   entity.PaymentMethod
	Items           []ItemInput
	TotalAmount     *decimal.Decimal
	DeliveryFee     decimal.Decimal
	DiscountAmount  decimal.Decimal
	TaxAmount       decimal.Decimal
	DeliveryAddress string
	Notes           string
	Channel         entity.Channel
	ChannelUserID   string
}

func invalid(field, reason, message string) error {
	return errorbank.BadRequest(message,
		errorbank.WithDetail("field", field),
		errorbank.WithDetail("reason", reason),
	)
}

// validate checks in in a fixed order, normalises defaults and returns the
// total computed from the items.
func validate(in *CreateInput, minPhoneLength int) (decimal.Decimal, error) {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)

	if in.CustomerName == "" {
		return decimal.Zero, invalid("customer_name", "required", "customer name is required")
	}
	if in.CustomerPhone == "" {
		return decimal.Zero, invalid("customer_phone", "required", "customer phone is required")
	}
	if countDigits(in.CustomerPhone) < minPhoneLength {
		return decimal.Zero, invalid("customer_phone", "too_short", "customer phone is too short")
	}
	if len(in.Items) == 0 {
		return decimal.Zero, invalid("items", "empty", "order must contain at least one item")
	}

	computed := decimal.Zero
	for i := range in.Items {
		item := &in.Items[i]
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			return decimal.Zero, invalid("items.name", "required", "item name is required")
		}
		if item.Quantity < 1 {
			return decimal.Zero, invalid("items.quantity", "out_of_range", "item quantity must be at least 1")
		}
		if item.Price.IsNegative() {
			return decimal.Zero, invalid("items.price", "out_of_range", "item price must not be negative")
		}
		computed = computed.Add(entity.LineTotal(item.Quantity, item.Price))
	}

	if !in.OrderType.Valid() {
		return decimal.Zero, invalid("order_type", "unsupported", "order type must be pickup or delivery")
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = entity.PaymentCash
	}
	if !in.PaymentMethod.Valid() {
		return decimal.Zero, invalid("payment_method", "unsupported", "unsupported payment method")
	}

	declared := computed
	if in.TotalAmount != nil {
		declared = *in.TotalAmount
	}
	if !declared.IsPositive() {
		return decimal.Zero, invalid("total_amount", "out_of_range", "total amount must be greater than zero")
	}

	if in.Channel == "" {
		in.Channel = entity.ChannelWeb
	}
	return computed, nil
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
