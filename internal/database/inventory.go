package database

import (
	"context"
	"fmt"

	"skirental/internal/domain"
	"skirental/internal/models"

	"github.com/jmoiron/sqlx"
)

// Available is an advisory snapshot; only Reserve inside a rental transaction is
// authoritative.
func (db *DB) Available(ctx context.Context, equipmentID int64) (int, error) {
	inv, err := db.Inventory(ctx, equipmentID)
	if err != nil {
		return 0, err
	}
	return inv.AvailableCount, nil
}

func (db *DB) Inventory(ctx context.Context, equipmentID int64) (*models.InventoryCount, error) {
	return inventory(ctx, db, equipmentID)
}

func inventory(ctx context.Context, q queryer, equipmentID int64) (*models.InventoryCount, error) {
	var inv models.InventoryCount
	err := q.GetContext(ctx, &inv,
		q.Rebind(`SELECT id, count_in_store, available_count FROM equipment WHERE id = ?`), equipmentID)
	if err != nil {
		return nil, notFound(err, "equipment", equipmentID)
	}
	return &inv, nil
}

// Reserve takes qty units out of the available count. The check and the decrement are one
// conditional statement, so two transactions can never both take the last unit.
func (db *DB) Reserve(ctx context.Context, tx *sqlx.Tx, equipmentID int64, qty int) error {
	if qty < 1 {
		return domain.ErrInvalidQuantity
	}

	res, err := tx.ExecContext(ctx,
		tx.Rebind(`UPDATE equipment SET available_count = available_count - ? WHERE id = ? AND available_count >= ?`),
		qty, equipmentID, qty)
	if err != nil {
		return fmt.Errorf("failed to reserve equipment %d: %w", equipmentID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to reserve equipment %d: %w", equipmentID, err)
	} else if n == 1 {
		return nil
	}

	inv, err := inventory(ctx, tx, equipmentID)
	if err != nil {
		return err
	}
	return &domain.InsufficientStockError{EquipmentID: equipmentID, Requested: qty, Available: inv.AvailableCount}
}

// Release puts qty units back. It never lifts the available count above the store count.
func (db *DB) Release(ctx context.Context, tx *sqlx.Tx, equipmentID int64, qty int) error {
	if qty < 1 {
		return domain.ErrInvalidQuantity
	}

	res, err := tx.ExecContext(ctx,
		tx.Rebind(`UPDATE equipment SET available_count = available_count + ? WHERE id = ? AND available_count + ? <= count_in_store`),
		qty, equipmentID, qty)
	if err != nil {
		return fmt.Errorf("failed to release equipment %d: %w", equipmentID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to release equipment %d: %w", equipmentID, err)
	} else if n == 1 {
		return nil
	}

	if _, err := inventory(ctx, tx, equipmentID); err != nil {
		return err
	}
	return fmt.Errorf("release %d units of equipment %d: %w", qty, equipmentID, domain.ErrCapacityExceeded)
}
