package dto

// InitiatePaymentRequest opens a payment transaction for an order.
type InitiatePaymentRequest struct {
	OrderNumber string `json:"order_number" validate:"required,max=32"`
	Method      string `json:"method" validate:"omitempty,oneof=cash card qr bank_transfer promptpay"`
}

// SlipRequest attaches a transfer slip to a transaction.
type SlipRequest struct {
	SlipURL string `json:"slip_url" validate:"required,max=1024"`
}

// VerifyRequest confirms or fails a transaction.
type VerifyRequest struct {
	VerifiedBy string `json:"verified_by" validate:"max=128"`
	Reason     string `json:"reason" validate:"max=500"`
}

// StaffNotificationRequest records a notification sent outside the service.
type StaffNotificationRequest struct {
	OrderNumber      string `json:"order_number" validate:"max=32"`
	NotificationType string `json:"notification_type" validate:"max=64"`
	Channel          string `json:"channel" validate:"max=16"`
	Recipient        string `json:"recipient" validate:"max=128"`
	Message          string `json:"message" validate:"max=1000"`
	Status           string `json:"status" validate:"omitempty,oneof=sent failed skipped not_implemented"`
}
