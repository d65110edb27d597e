package models

import "time"

// CustomerRecord is one row of the customers listing.
type CustomerRecord struct {
	ID          int64  `db:"id" json:"id"`
	FullName    string `db:"full_name" json:"full_name"`
	Pesel       string `db:"pesel" json:"pesel"`
	Email       string `db:"email" json:"email"`
	PhoneNumber string `db:"phone_number" json:"phone_number"`
	Address     string `db:"address" json:"address"`
}

// RentRecord is one row of the rents listing.
type RentRecord struct {
	ID               int64     `db:"id" json:"id"`
	IssuedIdentifier string    `db:"issued_identifier" json:"issued_identifier"`
	IssuedAt         time.Time `db:"issued_at" json:"issued_at"`
	Status           string    `db:"status" json:"status"`
	TotalNetPrice    int64     `db:"total_net_price" json:"total_price_netto"`
	TotalGrossPrice  int64     `db:"total_gross_price" json:"total_price_brutto"`
	Client           string    `db:"client" json:"client"`
	Employer         string    `db:"employer" json:"employer"`
}

// ReturnRecord is one row of the returns listing.
type ReturnRecord struct {
	ID                   int64     `db:"id" json:"id"`
	IssuedIdentifier     string    `db:"issued_identifier" json:"issued_identifier"`
	IssuedAt             time.Time `db:"issued_at" json:"issued_at"`
	TotalNetPrice        int64     `db:"total_net_price" json:"total_price_netto"`
	TotalGrossPrice      int64     `db:"total_gross_price" json:"total_price_brutto"`
	RentID               int64     `db:"rent_id" json:"rent_id"`
	RentIssuedIdentifier string    `db:"rent_issued_identifier" json:"rent_issued_identifier"`
	Employer             string    `db:"employer" json:"employer"`
}
