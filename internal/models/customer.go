package models

import (
	"strings"
	"time"
)

type Customer struct {
	ID            int64     `db:"id" json:"id"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name"`
	Pesel         string    `db:"pesel" json:"pesel"`
	Email         string    `db:"email" json:"email"`
	PhoneAreaCode string    `db:"phone_area_code" json:"phone_area_code"`
	PhoneNumber   string    `db:"phone_number" json:"phone_number"`
	Street        string    `db:"street" json:"street"`
	BuildingNr    string    `db:"building_nr" json:"building_nr"`
	ApartmentNr   *string   `db:"apartment_nr" json:"apartment_nr,omitempty"`
	PostalCode    string    `db:"postal_code" json:"postal_code"`
	City          string    `db:"city" json:"city"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type Employer struct {
	ID        int64     `db:"id" json:"id" yaml:"id"`
	FirstName string    `db:"first_name" json:"first_name" yaml:"first_name"`
	LastName  string    `db:"last_name" json:"last_name" yaml:"last_name"`
	Email     string    `db:"email" json:"email" yaml:"email"`
	Role      string    `db:"role" json:"role" yaml:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at" yaml:"-"`
}

func (e *Employer) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

func (e *Employer) IsOwner() bool {
	return e != nil && e.Role == RoleOwner
}

// CustomerRemoval summarises what a customer deletion touched.
type CustomerRemoval struct {
	CustomerID       int64   `json:"customer_id"`
	DeletedRentalIDs []int64 `json:"deleted_rental_ids"`
	DetachedRentals  int     `json:"detached_rentals"`
	ReleasedUnits    int     `json:"released_units"`
}
