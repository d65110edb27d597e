package database

import (
	"context"
	"fmt"
	"time"

	"skirental/internal/domain"
	"skirental/internal/models"

	"github.com/jmoiron/sqlx"
)

const rentColumns = `id, issued_identifier, issued_at, rent_start, rent_end, status, description,
	tax_rate, total_net_price, total_net_deposit, total_gross_price, total_gross_deposit,
	customer_id, employer_id, created_at`

const rentLineColumns = `id, rent_id, equipment_id, equipment_name, quantity, unit_net_price,
	unit_deposit_price, total_net_price, total_net_deposit, total_gross_price, total_gross_deposit, description`

// CommitRental reserves stock for every line and stores the rental with its lines in one
// transaction. Net and gross totals are stored as given: they are frozen at commit. The first line that cannot be reserved rolls everything back and its
// *domain.InsufficientStockError is returned unwrapped.
func (db *DB) CommitRental(ctx context.Context, rental *models.Rental) error {
	if len(rental.Lines) == 0 {
		return domain.ErrEmptyCart
	}

	now := time.Now()
	if rental.IssuedAt.IsZero() {
		rental.IssuedAt = now
	}

	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, line := range rental.Lines {
			if err := db.Reserve(ctx, tx, line.EquipmentID, line.Quantity); err != nil {
				return err
			}
		}

		id, err := insertID(ctx, tx, `INSERT INTO rents (
				issued_identifier, issued_at, rent_start, rent_end, status, description,
				tax_rate, total_net_price, total_net_deposit, total_gross_price, total_gross_deposit,
				customer_id, employer_id, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
			rental.IssuedIdentifier, rental.IssuedAt, rental.RentStart, rental.RentEnd, rental.Status,
			rental.Description, rental.TaxRate, rental.TotalNetPrice, rental.TotalNetDeposit,
			rental.TotalGrossPrice, rental.TotalGrossDeposit, rental.CustomerID, rental.EmployerID, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert rent: %w", err)
		}
		rental.ID = id

		for i := range rental.Lines {
			line := &rental.Lines[i]
			line.RentalID = id
			lineID, err := insertID(ctx, tx, `INSERT INTO rent_lines (
					rent_id, equipment_id, equipment_name, quantity, unit_net_price,
					unit_deposit_price, total_net_price, total_net_deposit, total_gross_price,
					total_gross_deposit, description
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
				id, line.EquipmentID, line.EquipmentName, line.Quantity, line.UnitNetPrice,
				line.UnitDepositPrice, line.TotalNetPrice, line.TotalNetDeposit, line.TotalGrossPrice,
				line.TotalGrossDeposit, line.Description,
			)
			if err != nil {
				return fmt.Errorf("failed to insert rent line for equipment %d: %w", line.EquipmentID, err)
			}
			line.ID = lineID
		}
		return nil
	})
	if err != nil {
		rental.ID = 0
		return err
	}

	rental.CreatedAt = now
	return nil
}

func (db *DB) GetRental(ctx context.Context, id int64) (*models.Rental, error) {
	return getRental(ctx, db, id)
}

func getRental(ctx context.Context, q queryer, id int64) (*models.Rental, error) {
	var r models.Rental
	if err := q.GetContext(ctx, &r, q.Rebind(`SELECT `+rentColumns+` FROM rents WHERE id = ?`), id); err != nil {
		return nil, notFound(err, "rent", id)
	}
	if err := q.SelectContext(ctx, &r.Lines,
		q.Rebind(`SELECT `+rentLineColumns+` FROM rent_lines WHERE rent_id = ? ORDER BY id`), id); err != nil {
		return nil, fmt.Errorf("failed to get lines of rent %d: %w", id, err)
	}
	return &r, nil
}

// ReturnRental closes a RENTED rental: the return document is stored, every line goes back
// to the ledger and the status becomes RETURNED. ret.RentalID selects the rental; the
// return totals are copied from it.
func (db *DB) ReturnRental(ctx context.Context, ret *models.RentReturn) (*models.Rental, error) {
	if ret.IssuedAt.IsZero() {
		ret.IssuedAt = time.Now()
	}

	var rental *models.Rental
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		rental, err = getRental(ctx, tx, ret.RentalID)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE rents SET status = ? WHERE id = ? AND status = ?`),
			models.RentStatusReturned, rental.ID, models.RentStatusRented)
		if err != nil {
			return fmt.Errorf("failed to update rent %d status: %w", rental.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("rent %d is %s: %w", rental.ID, rental.Status, domain.ErrNotRented)
		}

		if _, err := db.releaseLines(ctx, tx, rental.ID); err != nil {
			return err
		}

		ret.TotalNetPrice = rental.TotalNetPrice
		ret.TotalNetDeposit = rental.TotalNetDeposit
		ret.TotalGrossPrice = rental.TotalGrossPrice
		ret.TotalGrossDeposit = rental.TotalGrossDeposit
		id, err := insertID(ctx, tx, `INSERT INTO rent_returns (
				issued_identifier, issued_at, rent_id, description, total_net_price, total_net_deposit,
				total_gross_price, total_gross_deposit
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
			ret.IssuedIdentifier, ret.IssuedAt, rental.ID, ret.Description, ret.TotalNetPrice, ret.TotalNetDeposit,
			ret.TotalGrossPrice, ret.TotalGrossDeposit,
		)
		if err != nil {
			return fmt.Errorf("failed to insert return of rent %d: %w", rental.ID, err)
		}
		ret.ID = id
		rental.Status = models.RentStatusReturned
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rental, nil
}

// releaseLines gives back every unit of a rental and reports how many units moved.
func (db *DB) releaseLines(ctx context.Context, tx *sqlx.Tx, rentID int64) (int, error) {
	var lines []models.RentalLine
	err := tx.SelectContext(ctx, &lines, tx.Rebind(`SELECT `+rentLineColumns+` FROM rent_lines WHERE rent_id = ?`), rentID)
	if err != nil {
		return 0, fmt.Errorf("failed to get lines of rent %d: %w", rentID, err)
	}

	released := 0
	for _, l := range lines {
		if err := db.Release(ctx, tx, l.EquipmentID, l.Quantity); err != nil {
			return 0, err
		}
		released += l.Quantity
	}
	return released, nil
}
