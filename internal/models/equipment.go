package models

import "time"

type Equipment struct {
	ID               int64     `db:"id" json:"id" yaml:"id"`
	Name             string    `db:"name" json:"name" yaml:"name"`
	Model            string    `db:"model" json:"model" yaml:"model"`
	Barcode          string    `db:"barcode" json:"barcode" yaml:"barcode"`
	Description      string    `db:"description" json:"description" yaml:"description"`
	CountInStore     int       `db:"count_in_store" json:"count_in_store" yaml:"count_in_store"`
	AvailableCount   int       `db:"available_count" json:"available_count" yaml:"-"`
	PricePerHour     int64     `db:"price_per_hour" json:"price_per_hour" yaml:"price_per_hour"`
	PriceForNextHour int64     `db:"price_for_next_hour" json:"price_for_next_hour" yaml:"price_for_next_hour"`
	PricePerDay      int64     `db:"price_per_day" json:"price_per_day" yaml:"price_per_day"`
	ValueCost        int64     `db:"value_cost" json:"value_cost" yaml:"value_cost"`
	CreatedAt        time.Time `db:"created_at" json:"created_at" yaml:"-"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at" yaml:"-"`
}

// InventoryCount is the ledger view of a single equipment item.
type InventoryCount struct {
	EquipmentID    int64 `db:"id" json:"equipment_id"`
	TotalCapacity  int   `db:"count_in_store" json:"total_capacity"`
	AvailableCount int   `db:"available_count" json:"available_count"`
}

func (c InventoryCount) Reserved() int {
	return c.TotalCapacity - c.AvailableCount
}
