package entity

import "fmt"

// OrderStatus is a node in the order lifecycle.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// Lifecycle is the forward path rendered on the tracking timeline.
var Lifecycle = []OrderStatus{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusCompleted}

// Statuses lists every accepted status value.
var Statuses = append(append([]OrderStatus{}, Lifecycle...), StatusCancelled)

var statusRank = map[OrderStatus]int{
	StatusPending:   0,
	StatusConfirmed: 1,
	StatusPreparing: 2,
	StatusReady:     3,
	StatusCompleted: 4,
	StatusCancelled: -1,
}

// ParseStatus validates raw against the fixed status enum.
func ParseStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if _, ok := statusRank[s]; !ok {
		return "", fmt.Errorf("unknown order status %q", raw)
	}
	return s, nil
}

// Valid reports whether s belongs to the enum.
func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether no transition may leave s.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Rank orders statuses along the lifecycle; cancelled ranks below pending.
func (s OrderStatus) Rank() int {
	r, ok := statusRank[s]
	if !ok {
		return -2
	}
	return r
}

// Reached reports whether s is at or past step on the lifecycle.
// Cancelled orders only count the initial step as reached.
func (s OrderStatus) Reached(step OrderStatus) bool {
	if s == StatusCancelled {
		return step == StatusPending
	}
	return s.Rank() >= step.Rank()
}

// CanTransition allows forward moves (skips included) and cancellation from
// any non-terminal status. Staying on the same status is not a transition.
func CanTransition(from, to OrderStatus) bool {
	if !from.Valid() || !to.Valid() || from == to || from.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return to.Rank() > from.Rank()
}

// TimelineLabel is the customer-facing caption for a lifecycle step.
func TimelineLabel(s OrderStatus) string {
	switch s {
	case StatusPending:
		return "รับออเดอร์แล้ว"
	case StatusConfirmed:
		return "ยืนยันออเดอร์"
	case StatusPreparing:
		return "กำลังเตรียมอาหาร"
	case StatusReady:
		return "เตรียมเสร็จแล้ว"
	case StatusCompleted:
		return "เสร็จสิ้น"
	case StatusCancelled:
		return "ยกเลิกแล้ว"
	default:
		return string(s)
	}
}
