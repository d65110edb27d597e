package pricing

import (
	"time"

	"skirental/internal/domain"
	"skirental/internal/models"
)

// Breakdown shows how a unit price was composed.
type Breakdown struct {
	Days      int   `json:"days"`
	Hours     int   `json:"hours"`
	DaysCost  int64 `json:"days_cost"`
	HoursCost int64 `json:"hours_cost"`
	UnitPrice int64 `json:"unit_price"`
}

// UnitPrice prices one unit of equipment for a rent window of whole days plus started
// hours. The first started hour costs PricePerHour and each further one PriceForNextHour;
// the hourly part never costs more than a full day.
func UnitPrice(eq *models.Equipment, days, hours int) Breakdown {
	b := Breakdown{Days: days, Hours: hours}
	b.DaysCost = int64(days) * eq.PricePerDay

	if hours > 0 {
		b.HoursCost = eq.PricePerHour + int64(hours-1)*eq.PriceForNextHour
		if eq.PricePerDay > 0 && b.HoursCost > eq.PricePerDay {
			b.HoursCost = eq.PricePerDay
		}
	}

	b.UnitPrice = b.DaysCost + b.HoursCost
	return b
}

// LineInput is what staff enter when adding equipment to a cart.
type LineInput struct {
	Quantity     int
	DepositPrice int64
	Description  string
}

// Quote computes a cart line for eq over the rent window.
func Quote(eq *models.Equipment, in LineInput, start, end time.Time, taxRate int) (models.CartLine, error) {
	if !end.After(start) {
		return models.CartLine{}, domain.ErrInvalidRentWindow
	}
	if in.Quantity < 1 {
		return models.CartLine{}, domain.ErrInvalidQuantity
	}
	if in.DepositPrice < 0 {
		return models.CartLine{}, domain.ErrInvalidPrice
	}

	days, hours := models.RentDuration(start, end)
	unit := UnitPrice(eq, days, hours)
	qty := int64(in.Quantity)

	netPrice := unit.UnitPrice * qty
	netDeposit := in.DepositPrice * qty

	return models.CartLine{
		EquipmentID:      eq.ID,
		EquipmentName:    eq.Name,
		Quantity:         in.Quantity,
		UnitNetPrice:     unit.UnitPrice,
		UnitDepositPrice: in.DepositPrice,
		Description:      in.Description,
		Totals: models.PriceUnits{
			NetPrice:     netPrice,
			GrossPrice:   models.GrossOf(netPrice, taxRate),
			NetDeposit:   netDeposit,
			GrossDeposit: models.GrossOf(netDeposit, taxRate),
		},
	}, nil
}
