package repository

import (
	"context"
	"testing"
	"time"

	"skirental/internal/domain"
	"skirental/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCart(sessionID string) *models.Cart {
	start := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	cart := &models.Cart{
		SessionID:  sessionID,
		CustomerID: 5,
		Status:     models.RentStatusOpened,
		RentStart:  start,
		RentEnd:    start.Add(26 * time.Hour),
		TaxRate:    23,
		Lines: []models.CartLine{
			{EquipmentID: 1, Quantity: 2, Totals: models.PriceUnits{NetPrice: 1000}},
		},
	}
	cart.Recalculate()
	return cart
}

func TestRedisSessionRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	repo := NewRedisSessionRepository(client, SessionOptions{
		CartTTL:  time.Hour,
		LockTTL:  time.Second,
		LockWait: 50 * time.Millisecond,
	})
	ctx := context.Background()

	t.Run("SetAndGetCart", func(t *testing.T) {
		cart := newTestCart("s1")
		require.NoError(t, repo.SetCart(ctx, cart))

		got, err := repo.GetCart(ctx, "s1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, cart.CustomerID, got.CustomerID)
		assert.Len(t, got.Lines, 1)
		assert.Equal(t, 2, got.UnitCount)
		assert.True(t, got.RentStart.Equal(cart.RentStart))
		assert.Equal(t, time.Hour, s.TTL("cart:s1"))
	})

	t.Run("CartExpires", func(t *testing.T) {
		require.NoError(t, repo.SetCart(ctx, newTestCart("s-exp")))
		s.FastForward(time.Hour + time.Second)
		got, err := repo.GetCart(ctx, "s-exp")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ClearCart", func(t *testing.T) {
		require.NoError(t, repo.SetCart(ctx, newTestCart("s2")))
		require.NoError(t, repo.ClearCart(ctx, "s2"))
		got, err := repo.GetCart(ctx, "s2")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ListingState", func(t *testing.T) {
		state := &models.ListingState{SessionID: "s1", Listing: "rents", FilterColumn: "client", SearchText: "kot", Direction: "DESC"}
		require.NoError(t, repo.SetListingState(ctx, state))

		got, err := repo.GetListingState(ctx, "s1", "rents")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "kot", got.SearchText)

		other, err := repo.GetListingState(ctx, "s1", "customers")
		require.NoError(t, err)
		assert.Nil(t, other)

		require.NoError(t, repo.ClearListingState(ctx, "s1", "rents"))
		got, err = repo.GetListingState(ctx, "s1", "rents")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("LockIsExclusive", func(t *testing.T) {
		unlock, err := repo.Lock(ctx, "s3")
		require.NoError(t, err)

		_, err = repo.Lock(ctx, "s3")
		assert.ErrorIs(t, err, domain.ErrCartBusy)

		// other sessions are independent
		unlockOther, err := repo.Lock(ctx, "s4")
		require.NoError(t, err)
		require.NoError(t, unlockOther())

		require.NoError(t, unlock())
		unlock, err = repo.Lock(ctx, "s3")
		require.NoError(t, err)
		require.NoError(t, unlock())
	})

	t.Run("StaleUnlockKeepsNewOwner", func(t *testing.T) {
		unlock, err := repo.Lock(ctx, "s5")
		require.NoError(t, err)

		s.FastForward(2 * time.Second) // lock TTL passed
		unlockNew, err := repo.Lock(ctx, "s5")
		require.NoError(t, err)

		require.NoError(t, unlock())
		assert.True(t, s.Exists("cart_lock:s5"))

		require.NoError(t, unlockNew())
		assert.False(t, s.Exists("cart_lock:s5"))
	})

	t.Run("LockHonoursContext", func(t *testing.T) {
		slow := NewRedisSessionRepository(client, SessionOptions{LockTTL: time.Minute, LockWait: time.Minute})
		unlock, err := slow.Lock(ctx, "s6")
		require.NoError(t, err)
		defer unlock()

		cctx, cancel := context.WithTimeout(ctx, 60*time.Millisecond)
		defer cancel()
		_, err = slow.Lock(cctx, "s6")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("NilClient", func(t *testing.T) {
		repo := NewRedisSessionRepository(nil, SessionOptions{})
		_, err := repo.GetCart(ctx, "x")
		assert.ErrorContains(t, err, "redis client is nil")
		_, err = repo.Lock(ctx, "x")
		assert.Error(t, err)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})

	t.Run("ServerDown", func(t *testing.T) {
		s.SetError("LOADING")
		defer s.SetError("")
		_, err := repo.GetCart(ctx, "s1")
		assert.Error(t, err)
	})
}
