package models

import (
	"math"
	"time"
)

// PriceUnits holds net and gross amounts in minor currency units.
type PriceUnits struct {
	NetPrice     int64 `json:"net_price"`
	GrossPrice   int64 `json:"gross_price"`
	NetDeposit   int64 `json:"net_deposit"`
	GrossDeposit int64 `json:"gross_deposit"`
}

func (p PriceUnits) Add(o PriceUnits) PriceUnits {
	return PriceUnits{
		NetPrice:     p.NetPrice + o.NetPrice,
		GrossPrice:   p.GrossPrice + o.GrossPrice,
		NetDeposit:   p.NetDeposit + o.NetDeposit,
		GrossDeposit: p.GrossDeposit + o.GrossDeposit,
	}
}

// GrossTotal is the amount charged up front: gross price plus gross deposit.
func (p PriceUnits) GrossTotal() int64 {
	return p.GrossPrice + p.GrossDeposit
}

type CartLine struct {
	EquipmentID      int64      `json:"equipment_id"`
	EquipmentName    string     `json:"equipment_name"`
	Quantity         int        `json:"quantity"`
	UnitNetPrice     int64      `json:"unit_net_price"`
	UnitDepositPrice int64      `json:"unit_deposit_price"`
	Description      string     `json:"description,omitempty"`
	Totals           PriceUnits `json:"totals"`
}

// Cart is the in-progress rental of one staff session.
type Cart struct {
	SessionID        string     `json:"session_id"`
	CustomerID       int64      `json:"customer_id"`
	CustomerFullName string     `json:"customer_full_name"`
	CustomerEmail    string     `json:"customer_email"`
	EmployerID       int64      `json:"employer_id"`
	Status           string     `json:"status"`
	RentStart        time.Time  `json:"rent_start"`
	RentEnd          time.Time  `json:"rent_end"`
	TaxRate          int        `json:"tax_rate"`
	Description      string     `json:"description,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	Lines            []CartLine `json:"lines"`
	Totals           PriceUnits `json:"totals"`
	Days             int        `json:"days"`
	Hours            int        `json:"hours"`
	UnitCount        int        `json:"unit_count"`
}

func (c *Cart) Line(equipmentID int64) (CartLine, bool) {
	for _, l := range c.Lines {
		if l.EquipmentID == equipmentID {
			return l, true
		}
	}
	return CartLine{}, false
}

func (c *Cart) HasLine(equipmentID int64) bool {
	_, ok := c.Line(equipmentID)
	return ok
}

// RemoveLine drops the line for equipmentID and reports whether anything was removed.
func (c *Cart) RemoveLine(equipmentID int64) bool {
	for i, l := range c.Lines {
		if l.EquipmentID == equipmentID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			c.Recalculate()
			return true
		}
	}
	return false
}

// Recalculate refreshes the derived totals from the current lines and rent window.
func (c *Cart) Recalculate() {
	var totals PriceUnits
	units := 0
	for _, l := range c.Lines {
		totals = totals.Add(l.Totals)
		units += l.Quantity
	}
	c.Totals = totals
	c.UnitCount = units
	c.Days, c.Hours = RentDuration(c.RentStart, c.RentEnd)
}

// GrossOf adds tax (percent) to a net amount, rounding half up.
func GrossOf(net int64, taxRate int) int64 {
	if taxRate <= 0 {
		return net
	}
	return net + (net*int64(taxRate)+50)/100
}

// RentDuration splits a rent window into whole days and remaining started hours.
func RentDuration(start, end time.Time) (days, hours int) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return 0, 0
	}
	total := int(math.Ceil(end.Sub(start).Hours()))
	return total / 24, total % 24
}
