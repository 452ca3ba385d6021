package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
	"github.com/labcelsanantonio-byte/LABCEL/internal/notify"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, deliveries []notify.Delivery) ([]domain.ChannelResult, error)
}

// AdminDirectory lists the administrators who hear about new orders.
type AdminDirectory interface {
	Admins(ctx context.Context) ([]domain.User, error)
}

type NotificationHandler struct {
	dispatcher Dispatcher
	admins     AdminDirectory
	logger     *slog.Logger
}

func NewNotificationHandler(dispatcher Dispatcher, admins AdminDirectory, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		dispatcher: dispatcher,
		admins:     admins,
		logger:     logger,
	}
}

// Handle turns one order event into notifications. Delivery failures are
// logged and recorded but never returned, so a dead channel cannot stall the
// consumer; undecodable events are skipped for the same reason.
func (h *NotificationHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		h.logger.Error("skipping undecodable order event", "error", err)
		return nil
	}

	h.logger.Info("processing order event", "order_id", event.OrderID, "type", event.Type, "status", event.Status)

	var deliveries []notify.Delivery
	switch event.Type {
	case domain.EventOrderCreated:
		deliveries = h.customerDeliveries(event, domain.NotificationOrderCreated, notify.OrderCreatedCustomerMessage(event))
		deliveries = append(deliveries, h.adminDeliveries(ctx, event)...)
	case domain.EventOrderStatusChanged:
		deliveries = h.customerDeliveries(event, domain.NotificationStatusUpdate, notify.StatusUpdateMessage(event))
	default:
		h.logger.Warn("ignoring unknown order event type", "type", event.Type, "order_id", event.OrderID)
		return nil
	}

	if len(deliveries) == 0 {
		return nil
	}

	results, err := h.dispatcher.Dispatch(ctx, deliveries)
	if err != nil {
		h.logger.Warn("some notifications failed", "order_id", event.OrderID, "error", err)
	}

	delivered := 0
	for _, r := range results {
		if r.Delivered {
			delivered++
		}
	}
	h.logger.Info("order event processed", "order_id", event.OrderID, "delivered", delivered, "attempted", len(results))
	return nil
}

// customerDeliveries always emails the customer and adds WhatsApp only when
// the checkout captured a number.
func (h *NotificationHandler) customerDeliveries(event domain.OrderEvent, kind domain.NotificationType, msg domain.Message) []notify.Delivery {
	deliveries := []notify.Delivery{{
		OrderID: event.OrderID,
		Channel: domain.ChannelEmail,
		Type:    kind,
		Message: msg,
	}}

	if event.CustomerWhatsApp != "" {
		wa := msg
		wa.To = event.CustomerWhatsApp
		deliveries = append(deliveries, notify.Delivery{
			OrderID: event.OrderID,
			Channel: domain.ChannelWhatsApp,
			Type:    kind,
			Message: wa,
		})
	}

	return deliveries
}

func (h *NotificationHandler) adminDeliveries(ctx context.Context, event domain.OrderEvent) []notify.Delivery {
	admins, err := h.admins.Admins(ctx)
	if err != nil {
		h.logger.Error("failed to load admins", "error", err, "order_id", event.OrderID)
		return nil
	}

	msg := notify.OrderCreatedAdminMessage(event)
	var deliveries []notify.Delivery
	for _, admin := range admins {
		if admin.Email != "" {
			m := msg
			m.To = admin.Email
			deliveries = append(deliveries, notify.Delivery{OrderID: event.OrderID, Channel: domain.ChannelEmail, Type: domain.NotificationOrderCreated, Message: m})
		}
		if admin.WhatsAppNumber != "" {
			m := msg
			m.To = admin.WhatsAppNumber
			deliveries = append(deliveries, notify.Delivery{OrderID: event.OrderID, Channel: domain.ChannelWhatsApp, Type: domain.NotificationOrderCreated, Message: m})
		}
	}
	return deliveries
}
