package entity

import "time"

// SystemActor is recorded when no staff member triggered a change.
const SystemActor = "system"

// OrderStatusHistory is an append-only audit entry.
type OrderStatusHistory struct {
	ID          string      `json:"id,omitempty"`
	OrderID     string      `json:"order_id"`
	OldStatus   OrderStatus `json:"old_status"`
	NewStatus   OrderStatus `json:"new_status"`
	ChangedBy   string      `json:"changed_by"`
	Description string      `json:"description"`
	Notes       string      `json:"notes,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// StaffAction records what a staff member did to a target record.
type StaffAction struct {
	ID          string         `json:"id,omitempty"`
	StaffID     string         `json:"staff_id"`
	ActionType  string         `json:"action_type"`
	TargetType  string         `json:"target_type"`
	TargetID    string         `json:"target_id"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   time.Time      `json:"created_at"`
}
