package domain

import "time"

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
)

type NotificationType string

const (
	NotificationOrderCreated   NotificationType = "order_created"
	NotificationStatusUpdate   NotificationType = "status_update"
	NotificationDesignProposal NotificationType = "design_proposal"
)

const (
	DeliverySent   = "sent"
	DeliveryFailed = "failed"
)

// Message is what a channel sender delivers to one recipient.
type Message struct {
	To       string
	Subject  string
	Body     string
	ImageURL string
}

// Notification is the log record of one channel attempt.
type Notification struct {
	ID        string           `json:"notification_id"`
	OrderID   string           `json:"order_id"`
	Channel   Channel          `json:"channel"`
	Recipient string           `json:"recipient"`
	Type      NotificationType `json:"notification_type"`
	Message   string           `json:"message"`
	Status    string           `json:"status"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	SentAt    *time.Time       `json:"sent_at,omitempty"`
}

// DesignProposal asks the customer to approve a rendered case design.
type DesignProposal struct {
	OrderID         string `json:"order_id"`
	ImageURL        string `json:"proposal_image_url"`
	Message         string `json:"message"`
	SendViaWhatsApp bool   `json:"send_via_whatsapp"`
	SendViaEmail    bool   `json:"send_via_email"`
}

// ChannelResult reports the outcome of one channel in a dispatch.
type ChannelResult struct {
	Channel   Channel `json:"channel"`
	Recipient string  `json:"recipient,omitempty"`
	Delivered bool    `json:"delivered"`
	Error     string  `json:"error,omitempty"`
}
