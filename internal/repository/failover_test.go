package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"skirental/internal/domain"
	"skirental/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetCart(ctx context.Context, sessionID string) (*models.Cart, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

func (m *mockRepo) SetCart(ctx context.Context, cart *models.Cart) error {
	return m.Called(ctx, cart).Error(0)
}

func (m *mockRepo) ClearCart(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *mockRepo) GetListingState(ctx context.Context, sessionID, listing string) (*models.ListingState, error) {
	args := m.Called(ctx, sessionID, listing)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ListingState), args.Error(1)
}

func (m *mockRepo) SetListingState(ctx context.Context, state *models.ListingState) error {
	return m.Called(ctx, state).Error(0)
}

func (m *mockRepo) ClearListingState(ctx context.Context, sessionID, listing string) error {
	return m.Called(ctx, sessionID, listing).Error(0)
}

func (m *mockRepo) Lock(ctx context.Context, sessionID string) (func() error, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func() error), args.Error(1)
}

func TestFailoverSessionRepository(t *testing.T) {
	primary := new(mockRepo)
	fallback := new(mockRepo)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverSessionRepository(primary, fallback, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		cart := &models.Cart{SessionID: "a"}
		primary.On("GetCart", ctx, "a").Return(cart, nil).Once()

		got, err := repo.GetCart(ctx, "a")
		assert.NoError(t, err)
		assert.Equal(t, cart, got)
		primary.AssertExpectations(t)
	})

	t.Run("CartBusyIsNotAFailure", func(t *testing.T) {
		primary.On("Lock", ctx, "a").Return(nil, domain.ErrCartBusy).Once()

		_, err := repo.Lock(ctx, "a")
		assert.ErrorIs(t, err, domain.ErrCartBusy)
		assert.False(t, repo.isDown.Load())
		fallback.AssertNotCalled(t, "Lock", ctx, "a")
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		cart := &models.Cart{SessionID: "b"}
		primary.On("SetCart", ctx, cart).Return(errors.New("connection refused")).Once()
		fallback.On("SetCart", ctx, cart).Return(nil).Once()

		assert.NoError(t, repo.SetCart(ctx, cart))
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("StaysOnFallbackWhileDown", func(t *testing.T) {
		fallback.On("ClearCart", ctx, "b").Return(nil).Once()

		assert.NoError(t, repo.ClearCart(ctx, "b"))
		primary.AssertNotCalled(t, "ClearCart", ctx, "b")
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())

		state := &models.ListingState{SessionID: "c", Listing: "rents"}
		primary.On("GetListingState", ctx, "c", "rents").Return(state, nil).Once()

		got, err := repo.GetListingState(ctx, "c", "rents")
		assert.NoError(t, err)
		assert.Equal(t, state, got)
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("FailedRecoveryRestartsTimer", func(t *testing.T) {
		repo.isDown.Store(true)
		repo.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())

		primary.On("ClearListingState", ctx, "d", "rents").Return(errors.New("still down")).Once()
		fallback.On("ClearListingState", ctx, "d", "rents").Return(nil).Once()

		assert.NoError(t, repo.ClearListingState(ctx, "d", "rents"))
		assert.True(t, repo.isDown.Load())
		assert.False(t, repo.usePrimary())
	})
}
