package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentBankTransfer  PaymentMethod = "bank_transfer"
	PaymentPickupInStore PaymentMethod = "pickup_in_store"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentBankTransfer || m == PaymentPickupInStore
}

// LineItem is a purchased product as it was priced when the order was placed.
type LineItem struct {
	ProductID       string          `json:"product_id"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	PhoneBrand      string          `json:"phone_brand,omitempty"`
	PhoneModel      string          `json:"phone_model,omitempty"`
	CustomImageURL  string          `json:"custom_image_url,omitempty"`
	PreviewImageURL string          `json:"preview_image_url,omitempty"`
}

func (i LineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type StatusEntry struct {
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Notes     string      `json:"notes"`
}

type Order struct {
	ID               string          `json:"order_id"`
	UserID           string          `json:"user_id,omitempty"`
	CustomerName     string          `json:"customer_name"`
	CustomerEmail    string          `json:"customer_email"`
	CustomerPhone    string          `json:"customer_phone"`
	CustomerWhatsApp string          `json:"customer_whatsapp,omitempty"`
	ShippingAddress  string          `json:"shipping_address"`
	Items            []LineItem      `json:"items"`
	Total            decimal.Decimal `json:"total"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	Status           OrderStatus     `json:"status"`
	StatusHistory    []StatusEntry   `json:"status_history"`
	DesignApproved   bool            `json:"design_approved"`
	Notes            string          `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NewOrder builds a pending order from already-priced items. The total is
// fixed here and never recomputed.
func NewOrder(id, userID string, contact Contact, items []LineItem, method PaymentMethod, notes string, now time.Time) *Order {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}

	return &Order{
		ID:               id,
		UserID:           userID,
		CustomerName:     contact.Name,
		CustomerEmail:    contact.Email,
		CustomerPhone:    contact.Phone,
		CustomerWhatsApp: contact.WhatsApp,
		ShippingAddress:  contact.ShippingAddress,
		Items:            items,
		Total:            total,
		PaymentMethod:    method,
		Status:           StatusPending,
		StatusHistory: []StatusEntry{
			{Status: StatusPending, Timestamp: now, Notes: "Pedido creado"},
		},
		Notes:     notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ApproveDesign reports whether the flag changed.
func (o *Order) ApproveDesign(now time.Time) bool {
	if o.DesignApproved {
		return false
	}
	o.DesignApproved = true
	o.UpdatedAt = now
	return true
}

// Tracking returns the fields that may be shown to anyone holding the order id.
func (o *Order) Tracking() TrackingView {
	return TrackingView{
		OrderID:        o.ID,
		Status:         o.Status,
		StatusHistory:  o.StatusHistory,
		Items:          o.Items,
		Total:          o.Total,
		DesignApproved: o.DesignApproved,
		CreatedAt:      o.CreatedAt,
	}
}

type TrackingView struct {
	OrderID        string          `json:"order_id"`
	Status         OrderStatus     `json:"status"`
	StatusHistory  []StatusEntry   `json:"status_history"`
	Items          []LineItem      `json:"items"`
	Total          decimal.Decimal `json:"total"`
	DesignApproved bool            `json:"design_approved"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewOrderID returns a tracking code such as ORD-20261018-3FA2C1.
func NewOrderID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:6]
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), strings.ToUpper(suffix))
}
