package database

import (
	"context"
	"testing"

	"skirental/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventory_Snapshot(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	eq := seedEquipment(t, db, "SKI-INV", 5)

	available, err := db.Available(ctx, eq.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, available)

	inv, err := db.Inventory(ctx, eq.ID)
	require.NoError(t, err)
	assert.Equal(t, eq.ID, inv.EquipmentID)
	assert.Equal(t, 5, inv.TotalCapacity)
	assert.Equal(t, 0, inv.Reserved())

	_, err = db.Available(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReserveAndRelease(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	eq := seedEquipment(t, db, "SKI-RES", 3)

	inTx := func(fn func(tx *sqlx.Tx) error) error {
		return db.withTx(ctx, fn)
	}

	t.Run("ReserveWithinStock", func(t *testing.T) {
		require.NoError(t, inTx(func(tx *sqlx.Tx) error { return db.Reserve(ctx, tx, eq.ID, 2) }))
		available, err := db.Available(ctx, eq.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, available)
	})

	t.Run("ReserveBeyondStock", func(t *testing.T) {
		err := inTx(func(tx *sqlx.Tx) error { return db.Reserve(ctx, tx, eq.ID, 2) })
		var stockErr *domain.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, eq.ID, stockErr.EquipmentID)
		assert.Equal(t, 2, stockErr.Requested)
		assert.Equal(t, 1, stockErr.Available)

		available, err := db.Available(ctx, eq.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, available)
	})

	t.Run("ReserveUnknownEquipment", func(t *testing.T) {
		err := inTx(func(tx *sqlx.Tx) error { return db.Reserve(ctx, tx, 999, 1) })
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ReserveNonPositive", func(t *testing.T) {
		err := inTx(func(tx *sqlx.Tx) error { return db.Reserve(ctx, tx, eq.ID, 0) })
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	})

	t.Run("ReleaseBack", func(t *testing.T) {
		require.NoError(t, inTx(func(tx *sqlx.Tx) error { return db.Release(ctx, tx, eq.ID, 2) }))
		available, err := db.Available(ctx, eq.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, available)
	})

	t.Run("ReleaseAboveCapacity", func(t *testing.T) {
		err := inTx(func(tx *sqlx.Tx) error { return db.Release(ctx, tx, eq.ID, 1) })
		assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

		inv, err := db.Inventory(ctx, eq.ID)
		require.NoError(t, err)
		assert.Equal(t, inv.TotalCapacity, inv.AvailableCount)
	})
}
