package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"skirental/internal/events"
	"skirental/internal/models"
	"skirental/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) GetEquipment(ctx context.Context, id int64) (*models.Equipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Equipment), args.Error(1)
}

func (m *mockCatalog) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *mockCatalog) GetEmployer(ctx context.Context, id int64) (*models.Employer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Employer), args.Error(1)
}

func (m *mockCatalog) ListOwners(ctx context.Context) ([]*models.Employer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Employer), args.Error(1)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Available(ctx context.Context, id int64) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *mockLedger) Inventory(ctx context.Context, id int64) (*models.InventoryCount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryCount), args.Error(1)
}

type mockRentals struct {
	mock.Mock
}

func (m *mockRentals) CommitRental(ctx context.Context, r *models.Rental) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockRentals) GetRental(ctx context.Context, id int64) (*models.Rental, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rental), args.Error(1)
}

func (m *mockRentals) ReturnRental(ctx context.Context, ret *models.RentReturn) (*models.Rental, error) {
	args := m.Called(ctx, ret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rental), args.Error(1)
}

type mockCustomers struct {
	mock.Mock
}

func (m *mockCustomers) CreateCustomer(ctx context.Context, c *models.Customer) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockCustomers) DeleteCustomer(ctx context.Context, id int64) (*models.CustomerRemoval, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CustomerRemoval), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, n models.Notification) error {
	return m.Called(ctx, n).Error(0)
}

// eventRecorder subscribes to an event bus and keeps every event it sees.
type eventRecorder struct {
	mu     sync.Mutex
	events []*events.Event
}

func newEventBus(types ...string) (*events.EventBus, *eventRecorder) {
	bus := events.NewEventBus()
	rec := &eventRecorder{}
	for _, t := range types {
		bus.Subscribe(t, func(e *events.Event) error {
			rec.mu.Lock()
			defer rec.mu.Unlock()
			rec.events = append(rec.events, e)
			return nil
		})
	}
	return bus, rec
}

func (r *eventRecorder) all() []*events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*events.Event(nil), r.events...)
}

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func newSessions() *repository.MemorySessionRepository {
	return repository.NewMemorySessionRepository(repository.SessionOptions{LockWait: 20 * time.Millisecond})
}

var (
	rentStart = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	rentEnd   = rentStart.Add(26 * time.Hour)
)

func testCustomer() *models.Customer {
	return &models.Customer{ID: 5, FirstName: "Piotr", LastName: "Kowalski", Email: "piotr@example.com"}
}

func testSeller() *models.Employer {
	return &models.Employer{ID: 7, FirstName: "Jan", LastName: "Nowak", Email: "jan@example.com", Role: models.RoleSeller}
}

func testOwner() *models.Employer {
	return &models.Employer{ID: 1, FirstName: "Anna", LastName: "Wisniewska", Email: "anna@example.com", Role: models.RoleOwner}
}

func testEquipment() *models.Equipment {
	return &models.Equipment{
		ID:               101,
		Name:             "Atomic Redster",
		Barcode:          "SKI-101",
		CountInStore:     4,
		AvailableCount:   2,
		PricePerHour:     1000,
		PriceForNextHour: 500,
		PricePerDay:      5000,
	}
}

// seedCart stores a cart with one priced line for session.
func seedCart(t *testing.T, sessions *repository.MemorySessionRepository, session string, qty int) *models.Cart {
	t.Helper()
	cart := &models.Cart{
		SessionID:        session,
		CustomerID:       5,
		CustomerFullName: "Piotr Kowalski",
		CustomerEmail:    "piotr@example.com",
		EmployerID:       7,
		Status:           models.RentStatusOpened,
		RentStart:        rentStart,
		RentEnd:          rentEnd,
		TaxRate:          23,
		Lines: []models.CartLine{{
			EquipmentID:      101,
			EquipmentName:    "Atomic Redster",
			Quantity:         qty,
			UnitNetPrice:     6500,
			UnitDepositPrice: 2000,
			Totals: models.PriceUnits{
				NetPrice:     6500 * int64(qty),
				GrossPrice:   models.GrossOf(6500*int64(qty), 23),
				NetDeposit:   2000 * int64(qty),
				GrossDeposit: models.GrossOf(2000*int64(qty), 23),
			},
		}},
	}
	cart.Recalculate()
	if err := sessions.SetCart(context.Background(), cart); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	return cart
}
