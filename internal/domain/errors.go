package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrEmptyCart         = errors.New("cart has no equipment lines")
	ErrNoCart            = errors.New("no rental in progress for this session")
	ErrCartBusy          = errors.New("cart is being modified by another request")
	ErrInvalidRentWindow = errors.New("rent end must be after rent start")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidPrice      = errors.New("price must not be negative")
	ErrNotRented         = errors.New("rental is not in RENTED status")
	ErrForeignRental     = errors.New("rental belongs to another employer")
	ErrCapacityExceeded  = errors.New("release would exceed store capacity")
	ErrInvalidTaxRate    = errors.New("tax rate must be between 0 and 100")
	ErrInvalidCustomer   = errors.New("customer first name, last name and email are required")
	ErrInvalidEquipment  = errors.New("equipment name, barcode and a non-negative count are required")
)

// InsufficientStockError reports that fewer units are free than were requested.
type InsufficientStockError struct {
	EquipmentID int64
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for equipment %d: requested %d, available %d",
		e.EquipmentID, e.Requested, e.Available)
}

// DuplicateLineError reports a second cart line for the same equipment.
type DuplicateLineError struct {
	EquipmentID int64
}

func (e *DuplicateLineError) Error() string {
	return fmt.Sprintf("equipment %d is already in the cart", e.EquipmentID)
}

func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}
