package domain

import "time"

type OrderStatus string

const (
	StatusPending    OrderStatus = "pendiente"
	StatusConfirmed  OrderStatus = "confirmado"
	StatusInProgress OrderStatus = "en_proceso"
	StatusShipped    OrderStatus = "enviado"
	StatusDelivered  OrderStatus = "entregado"
	StatusCancelled  OrderStatus = "cancelado"
)

// Statuses lists every status in normal progression order, cancelado last.
var Statuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusInProgress,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Transition moves the order to status and appends one history entry.
// Only terminal states are locked; non-terminal states may move in any
// direction so an admin can correct mistakes.
func (o *Order) Transition(status OrderStatus, notes string, now time.Time) error {
	if !status.Valid() {
		return &ValidationError{Field: "status", Message: "unknown status " + string(status)}
	}
	if o.Status.Terminal() {
		return &InvalidTransitionError{OrderID: o.ID, From: o.Status, To: status, Reason: "order is in a terminal state"}
	}
	if o.Status == status {
		return &InvalidTransitionError{OrderID: o.ID, From: o.Status, To: status, Reason: "order already has this status"}
	}

	o.Status = status
	o.StatusHistory = append(o.StatusHistory, StatusEntry{Status: status, Timestamp: now, Notes: notes})
	o.UpdatedAt = now
	return nil
}
