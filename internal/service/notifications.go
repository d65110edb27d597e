package service

import (
	"context"
	"fmt"

	"skirental/internal/domain"
	"skirental/internal/models"

	"github.com/rs/zerolog"
)

// dispatch hands every notification to the notifier. Failures are logged and never returned:
// the operation that produced them has already been committed.
func dispatch(ctx context.Context, notifier domain.Notifier, logger *zerolog.Logger, batch []models.Notification) {
	if notifier == nil {
		return
	}
	for _, n := range batch {
		if n.Recipient == "" {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			logger.Error().Err(err).
				Str("recipient", n.Recipient).
				Str("template", n.TemplateKey).
				Msg("Failed to enqueue notification")
		}
	}
}

func rentTime(days, hours int) string {
	return fmt.Sprintf("%d days, %d hours", days, hours)
}

func cloneVars(vars map[string]any) map[string]any {
	out := make(map[string]any, len(vars)+1)
	for k, v := range vars {
		out[k] = v
	}
	return out
}

func rentCreatedNotifications(rental *models.Rental, cart *models.Cart, employer *models.Employer, owners []*models.Employer) []models.Notification {
	subject := "SkiRent Service | New rent: " + rental.IssuedIdentifier

	lines := make([]map[string]any, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		lines = append(lines, map[string]any{
			"name":              l.EquipmentName,
			"quantity":          l.Quantity,
			"total_net_price":   l.Totals.NetPrice,
			"total_gross_price": l.Totals.GrossPrice,
			"deposit_gross":     l.Totals.GrossDeposit,
		})
	}

	vars := map[string]any{
		"rent_identifier":     rental.IssuedIdentifier,
		"description":         rental.Description,
		"customer_full_name":  cart.CustomerFullName,
		"rent_start":          rental.RentStart,
		"rent_end":            rental.RentEnd,
		"rent_time":           rentTime(cart.Days, cart.Hours),
		"tax_rate":            rental.TaxRate,
		"total_net_price":     cart.Totals.NetPrice,
		"total_gross_price":   cart.Totals.GrossPrice,
		"total_gross_deposit": cart.Totals.GrossDeposit,
		"total_with_deposit":  cart.Totals.GrossTotal(),
		"equipment":           lines,
	}

	batch := []models.Notification{
		{
			Recipient:     cart.CustomerEmail,
			RecipientName: cart.CustomerFullName,
			TemplateKey:   models.TemplateRentCreatedCustomer,
			Subject:       subject,
			Variables:     vars,
		},
		{
			Recipient:     employer.Email,
			RecipientName: employer.FullName(),
			TemplateKey:   models.TemplateRentCreatedEmployer,
			Subject:       subject,
			Variables:     vars,
		},
	}

	ownerVars := cloneVars(vars)
	ownerVars["employer_full_name"] = employer.FullName()
	for _, o := range owners {
		batch = append(batch, models.Notification{
			Recipient:     o.Email,
			RecipientName: o.FullName(),
			TemplateKey:   models.TemplateRentCreatedOwner,
			Subject:       subject,
			Variables:     ownerVars,
		})
	}
	return batch
}

func rentReturnedNotifications(rental *models.Rental, ret *models.RentReturn, customer *models.Customer, employer *models.Employer) []models.Notification {
	subject := "SkiRent Service | Rent returned: " + rental.IssuedIdentifier
	vars := map[string]any{
		"rent_identifier":     rental.IssuedIdentifier,
		"return_identifier":   ret.IssuedIdentifier,
		"description":         ret.Description,
		"returned_at":         ret.IssuedAt,
		"total_net_price":     ret.TotalNetPrice,
		"total_gross_price":   ret.TotalGrossPrice,
		"total_gross_deposit": ret.TotalGrossDeposit,
	}

	var batch []models.Notification
	if customer != nil {
		batch = append(batch, models.Notification{
			Recipient:     customer.Email,
			RecipientName: customer.FullName(),
			TemplateKey:   models.TemplateRentReturnedCustomer,
			Subject:       subject,
			Variables:     vars,
		})
	}
	batch = append(batch, models.Notification{
		Recipient:     employer.Email,
		RecipientName: employer.FullName(),
		TemplateKey:   models.TemplateRentReturnedEmployer,
		Subject:       subject,
		Variables:     vars,
	})
	return batch
}
