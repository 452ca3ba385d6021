package orders

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labcelsanantonio-byte/LABCEL/internal/domain"
)

type memStore struct {
	mu        sync.Mutex
	orders    map[string]*domain.Order
	collide   int
	createErr error
}

func newMemStore() *memStore {
	return &memStore{orders: make(map[string]*domain.Order)}
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = append([]domain.LineItem(nil), o.Items...)
	c.StatusHistory = append([]domain.StatusEntry(nil), o.StatusHistory...)
	return &c
}

func (m *memStore) Create(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if m.collide > 0 {
		m.collide--
		return ErrDuplicateOrderID
	}
	if _, ok := m.orders[order.ID]; ok {
		return ErrDuplicateOrderID
	}
	m.orders[order.ID] = cloneOrder(order)
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(o), nil
}

func (m *memStore) Update(_ context.Context, id string, mutate func(*domain.Order) (bool, error)) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	working := cloneOrder(o)
	changed, err := mutate(working)
	if err != nil {
		return nil, err
	}
	if changed {
		m.orders[id] = cloneOrder(working)
	}
	return working, nil
}

func (m *memStore) List(_ context.Context, filter ListFilter) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Order{}
	for _, o := range m.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, *cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) Stats(_ context.Context, since time.Time) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &Stats{TotalRevenue: decimal.Zero}
	for _, o := range m.orders {
		stats.TotalOrders++
		switch o.Status {
		case domain.StatusPending:
			stats.PendingOrders++
		case domain.StatusDelivered:
			stats.CompletedOrders++
		}
		if o.Status != domain.StatusCancelled {
			stats.TotalRevenue = stats.TotalRevenue.Add(o.Total)
		}
		if !o.CreatedAt.Before(since) {
			stats.OrdersToday++
		}
	}
	return stats, nil
}

type fakeCatalog map[string]*domain.Product

func (f fakeCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	return f[id], nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event.(domain.OrderEvent))
	return p.err
}

type fakeDispatcher struct {
	proposals []domain.DesignProposal
	results   []domain.ChannelResult
	err       error
}

func (d *fakeDispatcher) DispatchProposal(_ context.Context, _ *domain.Order, proposal domain.DesignProposal) ([]domain.ChannelResult, error) {
	d.proposals = append(d.proposals, proposal)
	return d.results, d.err
}

var (
	admin    = &domain.User{ID: "user_admin", Role: domain.RoleAdmin}
	customer = &domain.User{ID: "user_ana", Role: domain.RoleCustomer}
	stranger = &domain.User{ID: "user_other", Role: domain.RoleCustomer}
)

func testCatalog() fakeCatalog {
	return fakeCatalog{
		"p1": {ID: "p1", Name: "Funda personalizada", Price: decimal.NewFromInt(180), IsActive: true},
		"p2": {ID: "p2", Name: "Funda rudo", Price: decimal.RequireFromString("249.90"), IsActive: true},
		"p9": {ID: "p9", Name: "Descontinuada", Price: decimal.NewFromInt(99), IsActive: false},
	}
}

type serviceFixture struct {
	svc        *Service
	store      *memStore
	publisher  *recordingPublisher
	dispatcher *fakeDispatcher
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		store:      newMemStore(),
		publisher:  &recordingPublisher{},
		dispatcher: &fakeDispatcher{},
	}
	svc, err := NewService(f.store, testCatalog(), f.publisher, f.dispatcher, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	f.svc = svc
	return f
}

func validCheckout(lines ...domain.CartLine) domain.Checkout {
	if len(lines) == 0 {
		lines = []domain.CartLine{{ProductID: "p1", Quantity: 2}}
	}
	return domain.Checkout{
		Items: lines,
		Contact: domain.Contact{
			Name:            "Ana López",
			Email:           "ana@example.com",
			Phone:           "+52 210 555 0101",
			WhatsApp:        "+5212105550101",
			ShippingAddress: "Av. Reforma 12",
		},
		PaymentMethod: domain.PaymentPickupInStore,
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("prices items from the catalog", func(t *testing.T) {
		f := newServiceFixture(t)

		order, err := f.svc.Create(ctx, nil, validCheckout())
		require.NoError(t, err)

		assert.True(t, order.Total.Equal(decimal.NewFromInt(360)), "total %s", order.Total)
		assert.Equal(t, domain.StatusPending, order.Status)
		require.Len(t, order.StatusHistory, 1)
		assert.Equal(t, domain.StatusPending, order.StatusHistory[0].Status)
		assert.Equal(t, "Funda personalizada", order.Items[0].ProductName)
		assert.Empty(t, order.UserID)
		assert.Regexp(t, `^ORD-\d{8}-[0-9A-F]{6}$`, order.ID)
	})

	t.Run("links the order to a signed-in buyer", func(t *testing.T) {
		f := newServiceFixture(t)

		order, err := f.svc.Create(ctx, customer, validCheckout())
		require.NoError(t, err)
		assert.Equal(t, customer.ID, order.UserID)
	})

	t.Run("publishes order.created", func(t *testing.T) {
		f := newServiceFixture(t)

		order, err := f.svc.Create(ctx, nil, validCheckout())
		require.NoError(t, err)

		require.Len(t, f.publisher.events, 1)
		event := f.publisher.events[0]
		assert.Equal(t, domain.EventOrderCreated, event.Type)
		assert.Equal(t, order.ID, event.OrderID)
		assert.Equal(t, 1, event.ItemCount)
	})

	t.Run("rejects an empty cart", func(t *testing.T) {
		f := newServiceFixture(t)
		checkout := validCheckout()
		checkout.Items = nil

		_, err := f.svc.Create(ctx, nil, checkout)

		var invalid *domain.InvalidOrderError
		assert.ErrorAs(t, err, &invalid)
		assert.Empty(t, f.store.orders)
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.svc.Create(ctx, nil, validCheckout(domain.CartLine{ProductID: "p1", Quantity: 0}))

		var validationErr *domain.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "items[0].quantity", validationErr.Field)
	})

	t.Run("rejects missing contact fields", func(t *testing.T) {
		f := newServiceFixture(t)
		checkout := validCheckout()
		checkout.Email = ""

		_, err := f.svc.Create(ctx, nil, checkout)

		var validationErr *domain.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "customer_email", validationErr.Field)
	})

	t.Run("rejects unknown payment method", func(t *testing.T) {
		f := newServiceFixture(t)
		checkout := validCheckout()
		checkout.PaymentMethod = "cash"

		_, err := f.svc.Create(ctx, nil, checkout)

		var validationErr *domain.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "payment_method", validationErr.Field)
	})

	t.Run("rejects unknown and inactive products", func(t *testing.T) {
		f := newServiceFixture(t)

		for _, id := range []string{"missing", "p9"} {
			_, err := f.svc.Create(ctx, nil, validCheckout(
				domain.CartLine{ProductID: "p1", Quantity: 1},
				domain.CartLine{ProductID: id, Quantity: 1},
			))

			var validationErr *domain.ValidationError
			require.ErrorAs(t, err, &validationErr, id)
			assert.Equal(t, "items[1].product_id", validationErr.Field)
		}
		assert.Empty(t, f.store.orders)
	})

	t.Run("regenerates the id on collision", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.collide = 2

		order, err := f.svc.Create(ctx, nil, validCheckout())
		require.NoError(t, err)
		assert.Contains(t, f.store.orders, order.ID)
	})

	t.Run("gives up after repeated collisions", func(t *testing.T) {
		f := newServiceFixture(t)
		f.store.collide = maxIDAttempts

		_, err := f.svc.Create(ctx, nil, validCheckout())
		assert.Error(t, err)
		assert.Empty(t, f.publisher.events)
	})

	t.Run("publish failure does not fail the order", func(t *testing.T) {
		f := newServiceFixture(t)
		f.publisher.err = errors.New("broker down")

		order, err := f.svc.Create(ctx, nil, validCheckout())
		require.NoError(t, err)
		assert.Contains(t, f.store.orders, order.ID)
	})

	t.Run("orders get pairwise distinct ids", func(t *testing.T) {
		f := newServiceFixture(t)
		seen := make(map[string]bool)

		for i := 0; i < 200; i++ {
			order, err := f.svc.Create(ctx, nil, validCheckout())
			require.NoError(t, err)
			require.False(t, seen[order.ID], "duplicate id %s", order.ID)
			seen[order.ID] = true
		}
	})
}

func TestService_Transition(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel from confirmado then ship is rejected", func(t *testing.T) {
		f := newServiceFixture(t)
		order, err := f.svc.Create(ctx, nil, validCheckout())
		require.NoError(t, err)

		_, err = f.svc.Transition(ctx, admin, order.ID, domain.StatusConfirmed, "pago recibido")
		require.NoError(t, err)

		cancelled, err := f.svc.Transition(ctx, admin, order.ID, domain.StatusCancelled, "cliente canceló")
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, cancelled.Status)
		assert.Len(t, cancelled.StatusHistory, 3)

		_, err = f.svc.Transition(ctx, admin, order.ID, domain.StatusShipped, "")
		var transitionErr *domain.InvalidTransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, domain.StatusCancelled, transitionErr.From)

		stored, _ := f.store.GetByID(ctx, order.ID)
		assert.Equal(t, domain.StatusCancelled, stored.Status)
		assert.Len(t, stored.StatusHistory, 3)
	})

	t.Run("publishes order.status_changed with notes", func(t *testing.T) {
		f := newServiceFixture(t)
		order, err := f.svc.Create(ctx, nil, validCheckout())
		require.NoError(t, err)

		_, err = f.svc.Transition(ctx, admin, order.ID, domain.StatusInProgress, "en taller")
		require.NoError(t, err)

		require.Len(t, f.publisher.events, 2)
		event := f.publisher.events[1]
		assert.Equal(t, domain.EventOrderStatusChanged, event.Type)
		assert.Equal(t, domain.StatusInProgress, event.Status)
		assert.Equal(t, "en taller", event.Notes)
	})

	t.Run("requires an admin", func(t *testing.T) {
		f := newServiceFixture(t)
		order, err := f.svc.Create(ctx, customer, validCheckout())
		require.NoError(t, err)

		_, err = f.svc.Transition(ctx, nil, order.ID, domain.StatusConfirmed, "")
		var authErr *domain.AuthError
		assert.ErrorAs(t, err, &authErr)

		_, err = f.svc.Transition(ctx, customer, order.ID, domain.StatusConfirmed, "")
		var forbidden *domain.ForbiddenError
		assert.ErrorAs(t, err, &forbidden)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.svc.Transition(ctx, admin, "ORD-20260101-000000", domain.StatusConfirmed, "")
		var notFound *domain.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("unknown status", func(t *testing.T) {
		f := newServiceFixture(t)
		order, err := f.svc.Create(ctx, nil, validCheckout())
		require.NoError(t, err)

		_, err = f.svc.Transition(ctx, admin, order.ID, "perdido", "")
		var validationErr *domain.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("concurrent transitions keep history consistent", func(t *testing.T) {
		f := newServiceFixture(t)
		order, err := f.svc.Create(ctx, nil, validCheckout())
		require.NoError(t, err)

		var wg sync.WaitGroup
		for _, status := range []domain.OrderStatus{domain.StatusConfirmed, domain.StatusInProgress, domain.StatusShipped} {
			wg.Add(1)
			go func(status domain.OrderStatus) {
				defer wg.Done()
				_, _ = f.svc.Transition(ctx, admin, order.ID, status, "")
			}(status)
		}
		wg.Wait()

		stored, _ := f.store.GetByID(ctx, order.ID)
		last := stored.StatusHistory[len(stored.StatusHistory)-1]
		assert.Equal(t, stored.Status, last.Status)
	})
}

func TestService_ApproveDesign(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	order, err := f.svc.Create(ctx, nil, validCheckout())
	require.NoError(t, err)

	first, err := f.svc.ApproveDesign(ctx, admin, order.ID)
	require.NoError(t, err)
	assert.True(t, first.DesignApproved)

	second, err := f.svc.ApproveDesign(ctx, admin, order.ID)
	require.NoError(t, err)
	assert.True(t, second.DesignApproved)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
	assert.Len(t, second.StatusHistory, 1)

	_, err = f.svc.ApproveDesign(ctx, customer, order.ID)
	var forbidden *domain.ForbiddenError
	assert.ErrorAs(t, err, &forbidden)
}

func TestService_SendDesignProposal(t *testing.T) {
	ctx := context.Background()

	newProposal := func(orderID string) domain.DesignProposal {
		return domain.DesignProposal{
			OrderID:         orderID,
			ImageURL:        "https://cdn.example.com/proposal.png",
			Message:         "¿Te gusta este diseño?",
			SendViaWhatsApp: true,
		}
	}

	t.Run("forwards the selected channels and leaves the order untouched", func(t *testing.T) {
		f := newServiceFixture(t)
		f.dispatcher.results = []domain.ChannelResult{{Channel: domain.ChannelWhatsApp, Delivered: true}}
		order, err := f.svc.Create(ctx, nil, validCheckout())
		require.NoError(t, err)

		results, err := f.svc.SendDesignProposal(ctx, admin, newProposal(order.ID))
		require.NoError(t, err)
		assert.Len(t, results, 1)

		require.Len(t, f.dispatcher.proposals, 1)
		assert.True(t, f.dispatcher.proposals[0].SendViaWhatsApp)
		assert.False(t, f.dispatcher.proposals[0].SendViaEmail)

		stored, _ := f.store.GetByID(ctx, order.ID)
		assert.Equal(t, order.UpdatedAt, stored.UpdatedAt)
		assert.False(t, stored.DesignApproved)
	})

	t.Run("requires at least one channel", func(t *testing.T) {
		f := newServiceFixture(t)
		proposal := newProposal("ORD-1")
		proposal.SendViaWhatsApp = false

		_, err := f.svc.SendDesignProposal(ctx, admin, proposal)
		var validationErr *domain.ValidationError
		assert.ErrorAs(t, err, &validationErr)
		assert.Empty(t, f.dispatcher.proposals)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.svc.SendDesignProposal(ctx, admin, newProposal("ORD-20260101-FFFFFF"))
		var notFound *domain.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("returns results alongside a delivery failure", func(t *testing.T) {
		f := newServiceFixture(t)
		deliveryErr := &domain.NotificationDeliveryError{Channel: domain.ChannelWhatsApp, Err: domain.ErrNoRecipient}
		f.dispatcher.results = []domain.ChannelResult{{Channel: domain.ChannelWhatsApp, Error: deliveryErr.Error()}}
		f.dispatcher.err = deliveryErr
		order, err := f.svc.Create(ctx, nil, validCheckout())
		require.NoError(t, err)

		results, err := f.svc.SendDesignProposal(ctx, admin, newProposal(order.ID))
		assert.ErrorIs(t, err, domain.ErrNoRecipient)
		assert.Len(t, results, 1)
	})
}

func TestService_ListAndGet(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	mine, err := f.svc.Create(ctx, customer, validCheckout())
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, stranger, validCheckout())
	require.NoError(t, err)
	guest, err := f.svc.Create(ctx, nil, validCheckout())
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, admin, guest.ID, domain.StatusConfirmed, "")
	require.NoError(t, err)

	t.Run("customers see only their orders", func(t *testing.T) {
		orders, err := f.svc.List(ctx, customer, "")
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, mine.ID, orders[0].ID)
	})

	t.Run("admins see everything and can filter", func(t *testing.T) {
		all, err := f.svc.List(ctx, admin, "")
		require.NoError(t, err)
		assert.Len(t, all, 3)

		confirmed, err := f.svc.List(ctx, admin, domain.StatusConfirmed)
		require.NoError(t, err)
		require.Len(t, confirmed, 1)
		assert.Equal(t, guest.ID, confirmed[0].ID)
	})

	t.Run("anonymous list is rejected", func(t *testing.T) {
		_, err := f.svc.List(ctx, nil, "")
		var authErr *domain.AuthError
		assert.ErrorAs(t, err, &authErr)
	})

	t.Run("owner and admin can read, others cannot", func(t *testing.T) {
		got, err := f.svc.Get(ctx, customer, mine.ID)
		require.NoError(t, err)
		assert.Equal(t, mine.CustomerEmail, got.CustomerEmail)

		_, err = f.svc.Get(ctx, admin, mine.ID)
		assert.NoError(t, err)

		_, err = f.svc.Get(ctx, stranger, mine.ID)
		var forbidden *domain.ForbiddenError
		assert.ErrorAs(t, err, &forbidden)
	})
}

func TestService_Track(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	order, err := f.svc.Create(ctx, nil, validCheckout())
	require.NoError(t, err)

	view, err := f.svc.Track(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, view.OrderID)
	assert.Equal(t, domain.StatusPending, view.Status)
	assert.True(t, view.Total.Equal(decimal.NewFromInt(360)))

	_, err = f.svc.Track(ctx, "ORD-19990101-ABCDEF")
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestService_Stats(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	delivered, err := f.svc.Create(ctx, nil, validCheckout())
	require.NoError(t, err)
	for _, status := range []domain.OrderStatus{domain.StatusConfirmed, domain.StatusShipped, domain.StatusDelivered} {
		_, err = f.svc.Transition(ctx, admin, delivered.ID, status, "")
		require.NoError(t, err)
	}
	cancelled, err := f.svc.Create(ctx, nil, validCheckout())
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, admin, cancelled.ID, domain.StatusCancelled, "")
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, nil, validCheckout(domain.CartLine{ProductID: "p2", Quantity: 1}))
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalOrders)
	assert.Equal(t, int64(1), stats.PendingOrders)
	assert.Equal(t, int64(1), stats.CompletedOrders)
	assert.Equal(t, int64(3), stats.OrdersToday)
	assert.True(t, stats.TotalRevenue.Equal(decimal.RequireFromString("609.90")), "revenue %s", stats.TotalRevenue)

	_, err = f.svc.Stats(ctx, customer)
	var forbidden *domain.ForbiddenError
	assert.ErrorAs(t, err, &forbidden)
}
