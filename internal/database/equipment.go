package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"skirental/internal/domain"
	"skirental/internal/models"

	"github.com/jmoiron/sqlx"
)

const equipmentColumns = `id, name, model, barcode, description, count_in_store, available_count,
	price_per_hour, price_for_next_hour, price_per_day, value_cost, created_at, updated_at`

// CreateEquipment inserts a catalog item with every unit available.
func (db *DB) CreateEquipment(ctx context.Context, eq *models.Equipment) error {
	return createEquipment(ctx, db, eq)
}

func createEquipment(ctx context.Context, q queryer, eq *models.Equipment) error {
	if eq.CountInStore < 0 {
		return fmt.Errorf("equipment %s: %w", eq.Barcode, domain.ErrInvalidQuantity)
	}

	now := time.Now()
	id, err := insertID(ctx, q, `INSERT INTO equipment (
			name, model, barcode, description, count_in_store, available_count,
			price_per_hour, price_for_next_hour, price_per_day, value_cost, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		eq.Name, eq.Model, eq.Barcode, eq.Description, eq.CountInStore, eq.CountInStore,
		eq.PricePerHour, eq.PriceForNextHour, eq.PricePerDay, eq.ValueCost, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create equipment: %w", err)
	}

	eq.ID = id
	eq.AvailableCount = eq.CountInStore
	eq.CreatedAt = now
	eq.UpdatedAt = now
	return nil
}

func (db *DB) GetEquipment(ctx context.Context, id int64) (*models.Equipment, error) {
	var eq models.Equipment
	err := db.GetContext(ctx, &eq, db.Rebind(`SELECT `+equipmentColumns+` FROM equipment WHERE id = ?`), id)
	if err != nil {
		return nil, notFound(err, "equipment", id)
	}
	return &eq, nil
}

func (db *DB) ListEquipment(ctx context.Context) ([]*models.Equipment, error) {
	var items []*models.Equipment
	if err := db.SelectContext(ctx, &items, `SELECT `+equipmentColumns+` FROM equipment ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	return items, nil
}

type equipmentUpdate struct {
	ID             int64 `db:"id"`
	AvailableCount int   `db:"available_count"`
}

// UpsertEquipmentByBarcode creates the item or updates its description, prices and store
// count. Units already rented out stay reserved: the available count moves by the change in
// store count within the same statement, and the update is refused when the new count is
// below the rented units.
func (db *DB) UpsertEquipmentByBarcode(ctx context.Context, eq *models.Equipment) (created bool, err error) {
	if eq.CountInStore < 0 {
		return false, fmt.Errorf("equipment %s: %w", eq.Barcode, domain.ErrInvalidQuantity)
	}

	err = db.withTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now()
		var updated equipmentUpdate
		err := tx.GetContext(ctx, &updated, tx.Rebind(`UPDATE equipment SET
				name = ?, model = ?, description = ?,
				available_count = available_count + (? - count_in_store), count_in_store = ?,
				price_per_hour = ?, price_for_next_hour = ?, price_per_day = ?, value_cost = ?, updated_at = ?
			WHERE barcode = ? AND count_in_store - available_count <= ?
			RETURNING id, available_count`),
			eq.Name, eq.Model, eq.Description, eq.CountInStore, eq.CountInStore,
			eq.PricePerHour, eq.PriceForNextHour, eq.PricePerDay, eq.ValueCost, now,
			eq.Barcode, eq.CountInStore,
		)
		if err == nil {
			eq.ID = updated.ID
			eq.AvailableCount = updated.AvailableCount
			eq.UpdatedAt = now
			if err := tx.GetContext(ctx, &eq.CreatedAt,
				tx.Rebind(`SELECT created_at FROM equipment WHERE id = ?`), updated.ID); err != nil {
				return fmt.Errorf("failed to get equipment %d: %w", updated.ID, err)
			}
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to update equipment: %w", err)
		}

		// no row matched: the barcode is new or too many units are out
		var rented []int
		err = tx.SelectContext(ctx, &rented,
			tx.Rebind(`SELECT count_in_store - available_count FROM equipment WHERE barcode = ?`), eq.Barcode)
		if err != nil {
			return fmt.Errorf("failed to get equipment by barcode: %w", err)
		}
		if len(rented) > 0 {
			return fmt.Errorf("equipment %s has %d units rented, cannot shrink store to %d: %w",
				eq.Barcode, rented[0], eq.CountInStore, domain.ErrCapacityExceeded)
		}

		created = true
		return createEquipment(ctx, tx, eq)
	})
	return created, err
}
