package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
	"github.com/labcelsanantonio-byte/LABCEL/internal/validation"
)

const maxIDAttempts = 5

// Store persists orders. GetByID and Update return a nil order when the id
// is unknown.
type Store interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	Update(ctx context.Context, id string, mutate func(*domain.Order) (bool, error)) (*domain.Order, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Order, error)
	Stats(ctx context.Context, since time.Time) (*Stats, error)
}

// ProductLookup returns a nil product when the id is unknown.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type ProposalDispatcher interface {
	DispatchProposal(ctx context.Context, order *domain.Order, proposal domain.DesignProposal) ([]domain.ChannelResult, error)
}

type Service struct {
	store      Store
	catalog    ProductLookup
	publisher  Publisher
	dispatcher ProposalDispatcher
	logger     *slog.Logger
	now        func() time.Time

	ordersCreated metric.Int64Counter
	transitions   metric.Int64Counter
}

// NewService wires the lifecycle manager. publisher may be nil, in which case
// no order events are emitted.
func NewService(store Store, catalog ProductLookup, publisher Publisher, dispatcher ProposalDispatcher, logger *slog.Logger) (*Service, error) {
	meter := otel.Meter("orders")

	ordersCreated, err := meter.Int64Counter("orders.created",
		metric.WithDescription("Orders placed"))
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter("orders.status_transitions",
		metric.WithDescription("Order status transitions by target status"))
	if err != nil {
		return nil, err
	}

	return &Service{
		store:         store,
		catalog:       catalog,
		publisher:     publisher,
		dispatcher:    dispatcher,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
		ordersCreated: ordersCreated,
		transitions:   transitions,
	}, nil
}

// Create turns a checkout into a pending order. buyer is nil for guest checkout.
func (s *Service) Create(ctx context.Context, buyer *domain.User, checkout domain.Checkout) (*domain.Order, error) {
	if len(checkout.Items) == 0 {
		return nil, &domain.InvalidOrderError{Message: "order must contain at least one item"}
	}
	if err := validation.Struct(checkout); err != nil {
		return nil, err
	}

	items := make([]domain.LineItem, 0, len(checkout.Items))
	for i, line := range checkout.Items {
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("look up product %s: %w", line.ProductID, err)
		}
		if product == nil || !product.IsActive {
			return nil, &domain.ValidationError{
				Field:   fmt.Sprintf("items[%d].product_id", i),
				Message: "unknown or unavailable product " + line.ProductID,
			}
		}

		items = append(items, domain.LineItem{
			ProductID:       product.ID,
			ProductName:     product.Name,
			Quantity:        line.Quantity,
			Price:           product.Price,
			PhoneBrand:      line.PhoneBrand,
			PhoneModel:      line.PhoneModel,
			CustomImageURL:  line.CustomImageURL,
			PreviewImageURL: line.PreviewImageURL,
		})
	}

	var userID string
	if buyer != nil {
		userID = buyer.ID
	}

	now := s.now()
	contact := checkout.Contact
	contact.Email = strings.TrimSpace(contact.Email)
	order := domain.NewOrder("", userID, contact, items, checkout.PaymentMethod, checkout.Notes, now)

	if err := s.insertWithFreshID(ctx, order, now); err != nil {
		return nil, err
	}

	s.ordersCreated.Add(ctx, 1, metric.WithAttributes(attribute.String("payment_method", string(order.PaymentMethod))))
	s.publish(ctx, domain.NewOrderEvent(domain.EventOrderCreated, order, "", now))

	s.logger.Info("order created", "order_id", order.ID, "user_id", userID, "total", order.Total.String())
	return order, nil
}

func (s *Service) insertWithFreshID(ctx context.Context, order *domain.Order, now time.Time) error {
	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		order.ID = domain.NewOrderID(now)

		err := s.store.Create(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicateOrderID) {
			return fmt.Errorf("create order: %w", err)
		}

		s.logger.Warn("order id collision, regenerating", "order_id", order.ID, "attempt", attempt)
	}
	return fmt.Errorf("create order: no free order id after %d attempts", maxIDAttempts)
}

// Transition moves an order to status on behalf of an admin.
func (s *Service) Transition(ctx context.Context, actor *domain.User, id string, status domain.OrderStatus, notes string) (*domain.Order, error) {
	if err := requireAdmin(actor, "change order status"); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, &domain.ValidationError{Field: "status", Message: "unknown status " + string(status)}
	}

	now := s.now()
	order, err := s.store.Update(ctx, id, func(o *domain.Order) (bool, error) {
		return true, o.Transition(status, notes, now)
	})
	if err != nil {
		var transitionErr *domain.InvalidTransitionError
		if errors.As(err, &transitionErr) {
			s.logger.Warn("status transition rejected", "order_id", id, "from", transitionErr.From, "to", status)
		}
		return nil, err
	}
	if order == nil {
		return nil, &domain.NotFoundError{Resource: "order", ID: id}
	}

	s.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(status))))
	s.publish(ctx, domain.NewOrderEvent(domain.EventOrderStatusChanged, order, notes, now))

	s.logger.Info("order status updated", "order_id", order.ID, "status", order.Status, "actor", actor.ID)
	return order, nil
}

// ApproveDesign sets the sticky design approval flag. Approving twice is a no-op.
func (s *Service) ApproveDesign(ctx context.Context, actor *domain.User, id string) (*domain.Order, error) {
	if err := requireAdmin(actor, "approve designs"); err != nil {
		return nil, err
	}

	now := s.now()
	var changed bool
	order, err := s.store.Update(ctx, id, func(o *domain.Order) (bool, error) {
		changed = o.ApproveDesign(now)
		return changed, nil
	})
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, &domain.NotFoundError{Resource: "order", ID: id}
	}

	if changed {
		s.logger.Info("design approved", "order_id", id, "actor", actor.ID)
	}
	return order, nil
}

// SendDesignProposal fans a proposal out to the selected channels. The order
// itself is not modified.
func (s *Service) SendDesignProposal(ctx context.Context, actor *domain.User, proposal domain.DesignProposal) ([]domain.ChannelResult, error) {
	if err := requireAdmin(actor, "send design proposals"); err != nil {
		return nil, err
	}
	if !proposal.SendViaEmail && !proposal.SendViaWhatsApp {
		return nil, &domain.ValidationError{Field: "channels", Message: "select at least one channel"}
	}
	if strings.TrimSpace(proposal.ImageURL) == "" {
		return nil, &domain.ValidationError{Field: "proposal_image_url", Message: "is required"}
	}
	if strings.TrimSpace(proposal.Message) == "" {
		return nil, &domain.ValidationError{Field: "message", Message: "is required"}
	}

	order, err := s.store.GetByID(ctx, proposal.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, &domain.NotFoundError{Resource: "order", ID: proposal.OrderID}
	}

	results, err := s.dispatcher.DispatchProposal(ctx, order, proposal)
	if err != nil {
		s.logger.Error("design proposal not delivered", "order_id", order.ID, "error", err)
		return results, err
	}

	s.logger.Info("design proposal sent", "order_id", order.ID, "channels", len(results))
	return results, nil
}

// List returns the caller's orders, or every order for an admin. The status
// filter applies to admins only.
func (s *Service) List(ctx context.Context, actor *domain.User, status domain.OrderStatus) ([]domain.Order, error) {
	if actor == nil {
		return nil, &domain.AuthError{Reason: "sign in to list orders"}
	}
	if status != "" && !status.Valid() {
		return nil, &domain.ValidationError{Field: "status", Message: "unknown status " + string(status)}
	}

	filter := ListFilter{Limit: 500}
	if actor.IsAdmin() {
		filter.Status = status
	} else {
		filter.UserID = actor.ID
	}

	return s.store.List(ctx, filter)
}

// Get returns a full order to its owner or an admin.
func (s *Service) Get(ctx context.Context, actor *domain.User, id string) (*domain.Order, error) {
	if actor == nil {
		return nil, &domain.AuthError{Reason: "sign in to view orders"}
	}

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, &domain.NotFoundError{Resource: "order", ID: id}
	}
	if !actor.IsAdmin() && order.UserID != actor.ID {
		return nil, &domain.ForbiddenError{Action: "view this order"}
	}
	return order, nil
}

// Track is the unauthenticated lookup; the order id acts as a bearer capability.
func (s *Service) Track(ctx context.Context, id string) (*domain.TrackingView, error) {
	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, &domain.NotFoundError{Resource: "order", ID: id}
	}

	view := order.Tracking()
	return &view, nil
}

func (s *Service) Stats(ctx context.Context, actor *domain.User) (*Stats, error) {
	if err := requireAdmin(actor, "view statistics"); err != nil {
		return nil, err
	}

	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return s.store.Stats(ctx, startOfDay)
}

func (s *Service) publish(ctx context.Context, event domain.OrderEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event.OrderID, event); err != nil {
		s.logger.Error("failed to publish order event", "error", err, "order_id", event.OrderID, "type", event.Type)
	}
}

func requireAdmin(actor *domain.User, action string) error {
	if actor == nil {
		return &domain.AuthError{Reason: "sign in to " + action}
	}
	if !actor.IsAdmin() {
		return &domain.ForbiddenError{Action: action}
	}
	return nil
}
