package database

import (
	"context"
	"testing"

	"skirental/internal/domain"
	"skirental/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetCustomer(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	apartment := "4"
	c := seedCustomer(t, db, "maria", "Zielinska")
	got, err := db.GetCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "maria Zielinska", got.FullName())
	assert.Nil(t, got.ApartmentNr)

	c2 := &models.Customer{FirstName: "Adam", LastName: "Mazur", ApartmentNr: &apartment, City: "Krakow"}
	require.NoError(t, db.CreateCustomer(ctx, c2))
	got, err = db.GetCustomer(ctx, c2.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ApartmentNr)
	assert.Equal(t, "4", *got.ApartmentNr)

	_, err = db.GetCustomer(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteCustomer(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	skis := seedEquipment(t, db, "SKI-D", 5)
	customer := seedCustomer(t, db, "ewa", "Lis")
	other := seedCustomer(t, db, "tom", "Wolf")

	active := newRental("RENT/20250110/dddd0001", customer, nil, line(skis, 2))
	require.NoError(t, db.CommitRental(ctx, active))

	closed := newRental("RENT/20250110/dddd0002", customer, nil, line(skis, 1))
	require.NoError(t, db.CommitRental(ctx, closed))
	_, err := db.ReturnRental(ctx, &models.RentReturn{IssuedIdentifier: "RET/20250110/dddd0003", RentalID: closed.ID})
	require.NoError(t, err)

	unrelated := newRental("RENT/20250110/dddd0004", other, nil, line(skis, 1))
	require.NoError(t, db.CommitRental(ctx, unrelated))

	removal, err := db.DeleteCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{active.ID}, removal.DeletedRentalIDs)
	assert.Equal(t, 1, removal.DetachedRentals)
	assert.Equal(t, 2, removal.ReleasedUnits)

	_, err = db.GetCustomer(ctx, customer.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = db.GetRental(ctx, active.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	history, err := db.GetRental(ctx, closed.ID)
	require.NoError(t, err)
	assert.Nil(t, history.CustomerID)
	assert.Equal(t, models.RentStatusReturned, history.Status)

	// only the unrelated rental still holds a unit
	available, err := db.Available(ctx, skis.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, available)

	_, err = db.DeleteCustomer(ctx, customer.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
