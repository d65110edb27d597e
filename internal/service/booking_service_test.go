package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"skirental/internal/domain"
	"skirental/internal/events"
	"skirental/internal/models"
	"skirental/internal/pricing"
	"skirental/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type bookingFixture struct {
	svc      *BookingService
	sessions *repository.MemorySessionRepository
	catalog  *mockCatalog
	rentals  *mockRentals
	notifier *mockNotifier
	events   *eventRecorder
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	f := &bookingFixture{
		sessions: newSessions(),
		catalog:  new(mockCatalog),
		rentals:  new(mockRentals),
		notifier: new(mockNotifier),
	}
	bus, rec := newEventBus(events.EventRentCreated)
	f.events = rec
	f.svc = NewBookingService(f.sessions, f.catalog, f.rentals, f.notifier, bus, testLogger())
	return f
}

func TestBookingService_Commit(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newBookingFixture(t)
		cart := seedCart(t, f.sessions, "s1", 2)

		f.catalog.On("GetCustomer", ctx, int64(5)).Return(testCustomer(), nil).Once()
		f.rentals.On("CommitRental", ctx, mock.AnythingOfType("*models.Rental")).
			Run(func(args mock.Arguments) {
				args.Get(1).(*models.Rental).ID = 42
			}).Return(nil).Once()
		f.catalog.On("ListOwners", ctx).Return([]*models.Employer{testOwner()}, nil).Once()
		f.notifier.On("Notify", ctx, mock.Anything).Return(nil).Times(3)

		rental, err := f.svc.Commit(ctx, "s1", testSeller())
		require.NoError(t, err)

		assert.Equal(t, int64(42), rental.ID)
		assert.Equal(t, models.RentStatusRented, rental.Status)
		assert.True(t, strings.HasPrefix(rental.IssuedIdentifier, "RENT/"))
		assert.Equal(t, cart.Totals.NetPrice, rental.TotalNetPrice)
		assert.Equal(t, cart.Totals.NetDeposit, rental.TotalNetDeposit)
		assert.Equal(t, cart.Totals.GrossPrice, rental.TotalGrossPrice)
		assert.Equal(t, cart.Totals.GrossDeposit, rental.TotalGrossDeposit)
		assert.Equal(t, 23, rental.TaxRate)
		assert.Equal(t, int64(5), *rental.CustomerID)
		assert.Equal(t, int64(7), *rental.EmployerID)
		require.Len(t, rental.Lines, 1)
		assert.Equal(t, 2, rental.Lines[0].Quantity)
		assert.Equal(t, int64(13000), rental.Lines[0].TotalNetPrice)
		assert.Equal(t, int64(4000), rental.Lines[0].TotalNetDeposit)

		// cart is gone
		stored, err := f.sessions.GetCart(ctx, "s1")
		require.NoError(t, err)
		assert.Nil(t, stored)

		recipients := map[string]string{}
		for _, call := range f.notifier.Calls {
			n := call.Arguments.Get(1).(models.Notification)
			recipients[n.Recipient] = n.TemplateKey
		}
		assert.Equal(t, map[string]string{
			"piotr@example.com": models.TemplateRentCreatedCustomer,
			"jan@example.com":   models.TemplateRentCreatedEmployer,
			"anna@example.com":  models.TemplateRentCreatedOwner,
		}, recipients)

		published := f.events.all()
		require.Len(t, published, 1)
		var payload events.RentEventPayload
		require.NoError(t, published[0].Decode(&payload))
		assert.Equal(t, int64(42), payload.RentalID)
		assert.Equal(t, cart.Totals.GrossPrice, payload.TotalGrossPrice)

		f.rentals.AssertExpectations(t)
		f.notifier.AssertExpectations(t)
	})

	t.Run("EmptyCart", func(t *testing.T) {
		f := newBookingFixture(t)
		cart := seedCart(t, f.sessions, "s1", 1)
		cart.Lines = nil
		require.NoError(t, f.sessions.SetCart(ctx, cart))

		_, err := f.svc.Commit(ctx, "s1", testSeller())
		assert.ErrorIs(t, err, domain.ErrEmptyCart)
		f.rentals.AssertNotCalled(t, "CommitRental", mock.Anything, mock.Anything)
	})

	t.Run("NoCart", func(t *testing.T) {
		f := newBookingFixture(t)
		_, err := f.svc.Commit(ctx, "s1", testSeller())
		assert.ErrorIs(t, err, domain.ErrNoCart)
	})

	t.Run("InsufficientStockKeepsCart", func(t *testing.T) {
		f := newBookingFixture(t)
		seedCart(t, f.sessions, "s1", 2)

		f.catalog.On("GetCustomer", ctx, int64(5)).Return(testCustomer(), nil).Once()
		f.rentals.On("CommitRental", ctx, mock.Anything).
			Return(&domain.InsufficientStockError{EquipmentID: 101, Requested: 2, Available: 1}).Once()

		_, err := f.svc.Commit(ctx, "s1", testSeller())
		var stock *domain.InsufficientStockError
		require.True(t, errors.As(err, &stock))
		assert.Equal(t, int64(101), stock.EquipmentID)

		stored, err := f.sessions.GetCart(ctx, "s1")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Len(t, stored.Lines, 1)
		f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
		assert.Empty(t, f.events.all())
	})

	t.Run("NotificationFailureIsNotFatal", func(t *testing.T) {
		f := newBookingFixture(t)
		seedCart(t, f.sessions, "s1", 1)

		f.catalog.On("GetCustomer", ctx, int64(5)).Return(testCustomer(), nil).Once()
		f.rentals.On("CommitRental", ctx, mock.Anything).Return(nil).Once()
		f.catalog.On("ListOwners", ctx).Return(nil, errors.New("db down")).Once()
		f.notifier.On("Notify", ctx, mock.Anything).Return(errors.New("outbox full"))

		rental, err := f.svc.Commit(ctx, "s1", testSeller())
		require.NoError(t, err)
		assert.NotNil(t, rental)
		f.notifier.AssertNumberOfCalls(t, "Notify", 2)
	})

	t.Run("ForeignEmployerKeepsCart", func(t *testing.T) {
		f := newBookingFixture(t)
		seedCart(t, f.sessions, "s1", 1)

		_, err := f.svc.Commit(ctx, "s1", testOwner())
		assert.ErrorIs(t, err, domain.ErrForeignRental)
		f.rentals.AssertNotCalled(t, "CommitRental", mock.Anything, mock.Anything)

		stored, err := f.sessions.GetCart(ctx, "s1")
		require.NoError(t, err)
		assert.NotNil(t, stored)
	})

	t.Run("DeletedCustomerDiscardsCart", func(t *testing.T) {
		f := newBookingFixture(t)
		seedCart(t, f.sessions, "s1", 1)
		f.catalog.On("GetCustomer", ctx, int64(5)).Return(nil, domain.ErrNotFound).Once()

		_, err := f.svc.Commit(ctx, "s1", testSeller())
		assert.ErrorIs(t, err, domain.ErrNotFound)

		stored, err := f.sessions.GetCart(ctx, "s1")
		require.NoError(t, err)
		assert.Nil(t, stored)
	})
}

func TestBuildRental_FreezesCartTotals(t *testing.T) {
	start := rentStart
	end := start.Add(time.Hour)
	cart := &models.Cart{CustomerID: 5, EmployerID: 7, RentStart: start, RentEnd: end, TaxRate: 23}
	for id := int64(1); id <= 2; id++ {
		l, err := pricing.Quote(&models.Equipment{ID: id, Name: "Helmet", PricePerHour: 3},
			pricing.LineInput{Quantity: 1, DepositPrice: 3}, start, end, cart.TaxRate)
		require.NoError(t, err)
		cart.Lines = append(cart.Lines, l)
	}
	cart.Recalculate()

	rental := buildRental(cart, testSeller(), start)

	// per-line rounding: 2 x gross(3) = 8, while gross(6) would be 7
	assert.Equal(t, int64(8), cart.Totals.GrossPrice)
	assert.Equal(t, cart.Totals.NetPrice, rental.TotalNetPrice)
	assert.Equal(t, cart.Totals.GrossPrice, rental.TotalGrossPrice)
	assert.Equal(t, cart.Totals.GrossDeposit, rental.TotalGrossDeposit)
	require.Len(t, rental.Lines, 2)
	assert.Equal(t, int64(4), rental.Lines[0].TotalGrossPrice)
	assert.Equal(t, int64(4), rental.Lines[1].TotalGrossDeposit)
}

func TestNewIssuedIdentifier(t *testing.T) {
	id := NewIssuedIdentifier(RentIdentifierPrefix, rentStart)
	parts := strings.Split(id, "/")
	require.Len(t, parts, 3)
	assert.Equal(t, "RENT", parts[0])
	assert.Equal(t, "20250110", parts[1])
	assert.Len(t, parts[2], 8)
	assert.NotEqual(t, id, NewIssuedIdentifier(RentIdentifierPrefix, rentStart))
}
