package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderEventType string

const (
	EventOrderCreated       OrderEventType = "order.created"
	EventOrderStatusChanged OrderEventType = "order.status_changed"
)

// OrderEvent is published on the order events topic after a change commits.
// It carries the contact snapshot so consumers never read the orders schema.
type OrderEvent struct {
	Type             OrderEventType  `json:"type"`
	OrderID          string          `json:"order_id"`
	Status           OrderStatus     `json:"status"`
	Notes            string          `json:"notes,omitempty"`
	CustomerName     string          `json:"customer_name"`
	CustomerEmail    string          `json:"customer_email"`
	CustomerWhatsApp string          `json:"customer_whatsapp,omitempty"`
	Total            decimal.Decimal `json:"total"`
	ItemCount        int             `json:"item_count"`
	Timestamp        time.Time       `json:"timestamp"`
}

func NewOrderEvent(eventType OrderEventType, order *Order, notes string, at time.Time) OrderEvent {
	return OrderEvent{
		Type:             eventType,
		OrderID:          order.ID,
		Status:           order.Status,
		Notes:            notes,
		CustomerName:     order.CustomerName,
		CustomerEmail:    order.CustomerEmail,
		CustomerWhatsApp: order.CustomerWhatsApp,
		Total:            order.Total,
		ItemCount:        len(order.Items),
		Timestamp:        at,
	}
}
