// Package notify delivers order notifications over email and WhatsApp and
// keeps a log of every attempt.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
)

const maxParallelSends = 8

// Sender delivers one message on one channel.
type Sender interface {
	Send(ctx context.Context, msg domain.Message) error
}

type Recorder interface {
	Record(ctx context.Context, n *domain.Notification) error
}

// Delivery is one message bound for one channel. An empty Message.To fails
// with domain.ErrNoRecipient.
type Delivery struct {
	OrderID string
	Channel domain.Channel
	Type    domain.NotificationType
	Message domain.Message
}

type Dispatcher struct {
	senders map[domain.Channel]Sender
	log     Recorder
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
	baseURL *url.URL

	attempts metric.Int64Counter
}

type Option func(*Dispatcher)

// WithPublicBaseURL sets the address relative image references, such as
// the ones returned by the upload endpoint, are resolved against before a
// message leaves the service.
func WithPublicBaseURL(base *url.URL) Option {
	return func(d *Dispatcher) { d.baseURL = base }
}

// NewDispatcher builds a dispatcher. Channels missing from senders fail every
// delivery; log may be nil.
func NewDispatcher(senders map[domain.Channel]Sender, log Recorder, timeout time.Duration, logger *slog.Logger, opts ...Option) (*Dispatcher, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("channel timeout must be positive, got %s", timeout)
	}

	attempts, err := otel.Meter("notify").Int64Counter("notifications.attempts",
		metric.WithDescription("Notification delivery attempts by channel and outcome"))
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		senders:  senders,
		log:      log,
		timeout:  timeout,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		attempts: attempts,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.baseURL != nil && !d.baseURL.IsAbs() {
		return nil, fmt.Errorf("public base url %q must be absolute", d.baseURL)
	}
	return d, nil
}

// Dispatch sends every delivery concurrently, each under its own timeout.
// Results keep the order of deliveries. The error joins one
// *domain.NotificationDeliveryError per failed delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, deliveries []Delivery) ([]domain.ChannelResult, error) {
	results := make([]domain.ChannelResult, len(deliveries))
	failures := make([]error, len(deliveries))

	var g errgroup.Group
	g.SetLimit(maxParallelSends)
	for i, delivery := range deliveries {
		g.Go(func() error {
			results[i], failures[i] = d.deliver(ctx, delivery)
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(failures...)
}

func (d *Dispatcher) deliver(ctx context.Context, delivery Delivery) (domain.ChannelResult, error) {
	result := domain.ChannelResult{Channel: delivery.Channel, Recipient: delivery.Message.To}

	err := d.send(ctx, delivery)
	notification := &domain.Notification{
		ID:        "notif_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		OrderID:   delivery.OrderID,
		Channel:   delivery.Channel,
		Recipient: delivery.Message.To,
		Type:      delivery.Type,
		Message:   delivery.Message.Body,
		CreatedAt: d.now(),
	}

	var deliveryErr error
	if err != nil {
		deliveryErr = &domain.NotificationDeliveryError{Channel: delivery.Channel, Err: err}
		result.Error = deliveryErr.Error()
		notification.Status = domain.DeliveryFailed
		notification.Error = err.Error()
		d.logger.Warn("notification failed", "order_id", delivery.OrderID, "channel", delivery.Channel, "type", delivery.Type, "error", err)
	} else {
		sentAt := d.now()
		result.Delivered = true
		notification.Status = domain.DeliverySent
		notification.SentAt = &sentAt
		d.logger.Info("notification sent", "order_id", delivery.OrderID, "channel", delivery.Channel, "type", delivery.Type)
	}

	d.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", string(delivery.Channel)),
		attribute.String("status", notification.Status),
	))

	if d.log != nil {
		if err := d.log.Record(context.WithoutCancel(ctx), notification); err != nil {
			d.logger.Error("failed to record notification", "error", err, "order_id", delivery.OrderID)
		}
	}

	return result, deliveryErr
}

func (d *Dispatcher) send(ctx context.Context, delivery Delivery) error {
	if strings.TrimSpace(delivery.Message.To) == "" {
		return domain.ErrNoRecipient
	}
	sender, ok := d.senders[delivery.Channel]
	if !ok {
		return fmt.Errorf("channel %s is not configured", delivery.Channel)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	return sender.Send(ctx, delivery.Message)
}

// DispatchProposal sends a design proposal on the channels it selects. It
// fails only when every selected channel failed.
func (d *Dispatcher) DispatchProposal(ctx context.Context, order *domain.Order, proposal domain.DesignProposal) ([]domain.ChannelResult, error) {
	imageURL, err := d.absoluteURL(proposal.ImageURL)
	if err != nil {
		return nil, err
	}
	proposal.ImageURL = imageURL
	msg := DesignProposalMessage(order, proposal)

	var deliveries []Delivery
	if proposal.SendViaEmail {
		m := msg
		m.To = order.CustomerEmail
		deliveries = append(deliveries, Delivery{OrderID: order.ID, Channel: domain.ChannelEmail, Type: domain.NotificationDesignProposal, Message: m})
	}
	if proposal.SendViaWhatsApp {
		m := msg
		m.To = order.CustomerWhatsApp
		deliveries = append(deliveries, Delivery{OrderID: order.ID, Channel: domain.ChannelWhatsApp, Type: domain.NotificationDesignProposal, Message: m})
	}

	results, err := d.Dispatch(ctx, deliveries)
	for _, r := range results {
		if r.Delivered {
			return results, nil
		}
	}
	return results, err
}

// absoluteURL resolves ref against the public base URL. Absolute references
// pass through untouched.
func (d *Dispatcher) absoluteURL(ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", &domain.ValidationError{Field: "image_url", Message: "malformed image url"}
	}
	if u.IsAbs() {
		return ref, nil
	}
	if d.baseURL == nil {
		return "", fmt.Errorf("image url %q is relative and no public base url is configured", ref)
	}
	return d.baseURL.ResolveReference(u).String(), nil
}
