package models

import "time"

type Rental struct {
	ID                int64        `db:"id" json:"id"`
	IssuedIdentifier  string       `db:"issued_identifier" json:"issued_identifier"`
	IssuedAt          time.Time    `db:"issued_at" json:"issued_at"`
	RentStart         time.Time    `db:"rent_start" json:"rent_start"`
	RentEnd           time.Time    `db:"rent_end" json:"rent_end"`
	Status            string       `db:"status" json:"status"`
	Description       string       `db:"description" json:"description"`
	TaxRate           int          `db:"tax_rate" json:"tax_rate"`
	TotalNetPrice     int64        `db:"total_net_price" json:"total_net_price"`
	TotalNetDeposit   int64        `db:"total_net_deposit" json:"total_net_deposit"`
	TotalGrossPrice   int64        `db:"total_gross_price" json:"total_gross_price"`
	TotalGrossDeposit int64        `db:"total_gross_deposit" json:"total_gross_deposit"`
	CustomerID        *int64       `db:"customer_id" json:"customer_id,omitempty"`
	EmployerID        *int64       `db:"employer_id" json:"employer_id,omitempty"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
	Lines             []RentalLine `db:"-" json:"lines"`
}

func (r *Rental) BelongsTo(employerID int64) bool {
	return r.EmployerID != nil && *r.EmployerID == employerID
}

// RentalLine is a committed cart line with frozen prices.
type RentalLine struct {
	ID                int64  `db:"id" json:"id"`
	RentalID          int64  `db:"rent_id" json:"rent_id"`
	EquipmentID       int64  `db:"equipment_id" json:"equipment_id"`
	EquipmentName     string `db:"equipment_name" json:"equipment_name"`
	Quantity          int    `db:"quantity" json:"quantity"`
	UnitNetPrice      int64  `db:"unit_net_price" json:"unit_net_price"`
	UnitDepositPrice  int64  `db:"unit_deposit_price" json:"unit_deposit_price"`
	TotalNetPrice     int64  `db:"total_net_price" json:"total_net_price"`
	TotalNetDeposit   int64  `db:"total_net_deposit" json:"total_net_deposit"`
	TotalGrossPrice   int64  `db:"total_gross_price" json:"total_gross_price"`
	TotalGrossDeposit int64  `db:"total_gross_deposit" json:"total_gross_deposit"`
	Description       string `db:"description" json:"description"`
}

type RentReturn struct {
	ID                int64     `db:"id" json:"id"`
	IssuedIdentifier  string    `db:"issued_identifier" json:"issued_identifier"`
	IssuedAt          time.Time `db:"issued_at" json:"issued_at"`
	RentalID          int64     `db:"rent_id" json:"rent_id"`
	Description       string    `db:"description" json:"description"`
	TotalNetPrice     int64     `db:"total_net_price" json:"total_net_price"`
	TotalNetDeposit   int64     `db:"total_net_deposit" json:"total_net_deposit"`
	TotalGrossPrice   int64     `db:"total_gross_price" json:"total_gross_price"`
	TotalGrossDeposit int64     `db:"total_gross_deposit" json:"total_gross_deposit"`
}
