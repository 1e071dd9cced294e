package dto

import (
	"github.com/shopspring/decimal"

	"github.com/Additional-Code/tenzai/internal/entity"
	ordersvc "github.com/Additional-Code/tenzai/internal/service/order"
)

// OrderItemRequest is one cart line of a create-order request.
type OrderItemRequest struct {
	ID       string          `json:"id"`
	Name     string          `json:"name" validate:"max=200"`
	Quantity int             `json:"quantity" validate:"lte=99"`
	Price    decimal.Decimal `json:"price"`
	Notes    string          `json:"notes" validate:"max=500"`
}

// CreateOrderRequest is the web order form payload. Semantic checks such as
// required fields and positive totals happen in the workflow so they report
// in a fixed order; the tags here only bound sizes.
type CreateOrderRequest struct {
	CustomerName    string             `json:"customer_name" validate:"max=100"`
	CustomerPhone   string             `json:"customer_phone" validate:"max=15"`
	Items           []OrderItemRequest `json:"items" validate:"max=50,dive"`
	TotalAmount     *decimal.Decimal   `json:"total_amount"`
	OrderType       string             `json:"order_type"`
	PaymentMethod   string             `json:"payment_method"`
	DeliveryFee     decimal.Decimal    `json:"delivery_fee"`
	DiscountAmount  decimal.Decimal    `json:"discount_amount"`
	TaxAmount       decimal.Decimal    `json:"tax_amount"`
	DeliveryAddress string             `json:"delivery_address" validate:"max=500"`
	Notes           string             `json:"notes" validate:"max=1000"`
	Platform        string             `json:"platform" validate:"omitempty,oneof=WEB LINE FB IG web line fb ig"`
	PlatformUserID  string             `json:"platform_user_id" validate:"max=128"`
}

// ToInput converts the request into the workflow input.
func (r CreateOrderRequest) ToInput() ordersvc.CreateInput {
	items := make([]ordersvc.ItemInput, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, ordersvc.ItemInput{
			MenuID:   it.ID,
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    it.Price,
			Notes:    it.Notes,
		})
	}
	return ordersvc.CreateInput{
		CustomerName:    r.CustomerName,
		CustomerPhone:   r.CustomerPhone,
		OrderType:       entity.OrderType(r.OrderType),
		PaymentMethod:   entity.PaymentMethod(r.PaymentMethod),
		Items:           items,
		TotalAmount:     r.TotalAmount,
		DeliveryFee:     r.DeliveryFee,
		DiscountAmount:  r.DiscountAmount,
		TaxAmount:       r.TaxAmount,
		DeliveryAddress: r.DeliveryAddress,
		Notes:           r.Notes,
		Channel:         entity.ParseChannel(r.Platform),
		ChannelUserID:   r.PlatformUserID,
	}
}

// CreateOrderResponse acknowledges a created order.
type CreateOrderResponse struct {
	OrderNumber string             `json:"order_number"`
	OrderID     string             `json:"order_id"`
	Message     string             `json:"message"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	Status      entity.OrderStatus `json:"status"`
}

// UpdateStatusRequest moves an order to a new status.
type UpdateStatusRequest struct {
	Status    string `json:"status" validate:"required"`
	ChangedBy string `json:"changed_by" validate:"max=128"`
	Reason    string `json:"reason" validate:"max=500"`
}

// UpdateStatusResponse reports the new status.
type UpdateStatusResponse struct {
	OrderNumber string             `json:"order_number"`
	Status      entity.OrderStatus `json:"status"`
	Message     string             `json:"message"`
}
