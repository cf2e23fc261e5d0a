package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rookgm/grocerycart/internal/models"
	"github.com/rookgm/grocerycart/internal/notify"
	"github.com/rookgm/grocerycart/internal/repository/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const sellerEmail = "seller@grocerycart.test"

type fakeNotifier struct {
	mu         sync.Mutex
	queued     []notify.Message
	delivered  []notify.Message
	attempts   []int
	deliverErr error
}

func (f *fakeNotifier) Notify(msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued = append(f.queued, msg)
	return nil
}

func (f *fakeNotifier) Deliver(_ context.Context, msg notify.Message, attempts int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, attempts)
	if f.deliverErr != nil {
		return f.deliverErr
	}
	f.delivered = append(f.delivered, msg)
	return nil
}

func (f *fakeNotifier) queuedTo(to string) []notify.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notify.Message
	for _, m := range f.queued {
		if m.To == to {
			out = append(out, m)
		}
	}
	return out
}

type fakeGateway struct {
	sessions []models.CheckoutSession
	err      error
	event    *models.PaymentEvent
}

func (f *fakeGateway) CreateSession(_ context.Context, s models.CheckoutSession) (string, error) {
	f.sessions = append(f.sessions, s)
	if f.err != nil {
		return "", f.err
	}
	return "https://checkout.test/session", nil
}

func (f *fakeGateway) ParseEvent(payload []byte, signature string) (*models.PaymentEvent, error) {
	if signature != "valid" {
		return nil, models.ErrInvalidSignature.Wrap(errors.New("signature mismatch"))
	}
	ev := *f.event
	return &ev, nil
}

type fixture struct {
	store      *memory.Store
	notifier   *fakeNotifier
	gateway    *fakeGateway
	ledger     *InventoryLedger
	pricing    *PricingEngine
	addresses  *AddressResolver
	orders     *OrderService
	reconciler *PaymentReconciler
	status     *StatusService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    memory.New(),
		notifier: &fakeNotifier{},
		gateway:  &fakeGateway{},
	}
	f.ledger = NewInventoryLedger(f.store, f.notifier, sellerEmail)
	f.pricing = NewPricingEngine(f.store, decimal.RequireFromString("0.02"))
	f.addresses = NewAddressResolver(f.store)
	payments := NewPaymentDispatcher(f.store, f.store, f.store, f.addresses, f.ledger, f.gateway, f.notifier)
	f.orders = NewOrderService(f.store, f.store, f.store, f.addresses, f.pricing, payments, true)
	f.reconciler = NewPaymentReconciler(f.store, f.store, f.store, f.ledger, f.gateway, f.notifier)
	f.status = NewStatusService(f.store, f.store, f.store, f.ledger, f.notifier, sellerEmail)

	f.store.PutProduct(models.Product{ID: "P1", Name: "Apples", Price: 600, OfferPrice: 500, Stock: 5, InStock: true})
	f.store.PutProduct(models.Product{ID: "P2", Name: "Milk", Price: 300, OfferPrice: 250, Stock: 1, InStock: true})
	f.store.PutUser(models.User{ID: "u1", Name: "Asha", Email: "asha@example.com", Cart: models.Cart{"P1": 2}})

	return f
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.store.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func guestAddress() *models.Address {
	return &models.Address{
		FirstName: "Ravi",
		LastName:  "Kumar",
		Email:     "ravi@example.com",
		Street:    "12 MG Road",
		City:      "Pune",
		State:     "MH",
		Zipcode:   "411001",
		Country:   "India",
		Phone:     "9999999999",
	}
}

func guestContact() *models.GuestContact {
	return &models.GuestContact{Name: "Ravi Kumar", Email: "ravi@example.com", Phone: "9999999999"}
}

func codRequest(items ...models.LineItem) PlaceOrderRequest {
	return PlaceOrderRequest{
		Items:       items,
		Address:     models.AddressInput{Value: guestAddress()},
		Guest:       guestContact(),
		PaymentType: models.PaymentCOD,
	}
}

func farFuture() time.Time {
	return time.Now().Add(time.Hour)
}
