package database

import (
	"context"
	"fmt"
	"time"

	"skirental/internal/domain"
	"skirental/internal/models"

	"github.com/jmoiron/sqlx"
)

const customerColumns = `id, first_name, last_name, pesel, email, phone_area_code, phone_number,
	street, building_nr, apartment_nr, postal_code, city, created_at`

func (db *DB) CreateCustomer(ctx context.Context, c *models.Customer) error {
	now := time.Now()
	id, err := insertID(ctx, db, `INSERT INTO customers (
			first_name, last_name, pesel, email, phone_area_code, phone_number,
			street, building_nr, apartment_nr, postal_code, city, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		c.FirstName, c.LastName, c.Pesel, c.Email, c.PhoneAreaCode, c.PhoneNumber,
		c.Street, c.BuildingNr, c.ApartmentNr, c.PostalCode, c.City, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	c.ID = id
	c.CreatedAt = now
	return nil
}

func (db *DB) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	var c models.Customer
	if err := db.GetContext(ctx, &c, db.Rebind(`SELECT `+customerColumns+` FROM customers WHERE id = ?`), id); err != nil {
		return nil, notFound(err, "customer", id)
	}
	return &c, nil
}

type customerRent struct {
	ID     int64  `db:"id"`
	Status string `db:"status"`
}

// DeleteCustomer removes a customer in one transaction. Rentals still out (RENTED) give
// their units back to the ledger and are deleted together with OPENED ones; RETURNED and
// CANCELLED rentals stay as history without the customer reference.
func (db *DB) DeleteCustomer(ctx context.Context, id int64) (*models.CustomerRemoval, error) {
	removal := &models.CustomerRemoval{CustomerID: id}

	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		var exists int
		if err := tx.GetContext(ctx, &exists, tx.Rebind(`SELECT COUNT(*) FROM customers WHERE id = ?`), id); err != nil {
			return fmt.Errorf("failed to check customer %d: %w", id, err)
		}
		if exists == 0 {
			return fmt.Errorf("customer %d: %w", id, domain.ErrNotFound)
		}

		var rents []customerRent
		err := tx.SelectContext(ctx, &rents, tx.Rebind(`SELECT id, status FROM rents WHERE customer_id = ? ORDER BY id`), id)
		if err != nil {
			return fmt.Errorf("failed to list rents of customer %d: %w", id, err)
		}

		for _, r := range rents {
			switch r.Status {
			case models.RentStatusRented:
				released, err := db.releaseLines(ctx, tx, r.ID)
				if err != nil {
					return err
				}
				removal.ReleasedUnits += released
				fallthrough
			case models.RentStatusOpened:
				if err := deleteRent(ctx, tx, r.ID); err != nil {
					return err
				}
				removal.DeletedRentalIDs = append(removal.DeletedRentalIDs, r.ID)
			default:
				removal.DetachedRentals++
			}
		}

		if removal.DetachedRentals > 0 {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE rents SET customer_id = NULL WHERE customer_id = ?`), id); err != nil {
				return fmt.Errorf("failed to detach rents of customer %d: %w", id, err)
			}
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM customers WHERE id = ?`), id); err != nil {
			return fmt.Errorf("failed to delete customer %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removal, nil
}

func deleteRent(ctx context.Context, tx *sqlx.Tx, rentID int64) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM rent_lines WHERE rent_id = ?`), rentID); err != nil {
		return fmt.Errorf("failed to delete lines of rent %d: %w", rentID, err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM rents WHERE id = ?`), rentID); err != nil {
		return fmt.Errorf("failed to delete rent %d: %w", rentID, err)
	}
	return nil
}
