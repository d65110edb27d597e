package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skirental/internal/domain"
	"skirental/internal/events"
	"skirental/internal/metrics"
	"skirental/internal/models"

	"github.com/rs/zerolog"
)

// BookingService turns the cart of a session into a committed rental.
type BookingService struct {
	sessions domain.SessionRepository
	catalog  domain.CatalogRepository
	rentals  domain.RentalRepository
	notifier domain.Notifier
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewBookingService(sessions domain.SessionRepository, catalog domain.CatalogRepository, rentals domain.RentalRepository, notifier domain.Notifier, eventBus domain.EventPublisher, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		sessions: sessions,
		catalog:  catalog,
		rentals:  rentals,
		notifier: notifier,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

// Commit reserves stock for every line and stores the rental in one transaction. Only the
// employer who started the cart may commit it. Totals are frozen from the cart. On
// success the parties are notified, the cart is discarded and rent_created is published;
// none of those steps can fail the commit. On failure the cart stays as it was.
func (s *BookingService) Commit(ctx context.Context, sessionID string, employer *models.Employer) (*models.Rental, error) {
	var rental *models.Rental
	var cart *models.Cart

	err := withSessionLock(ctx, s.sessions, s.logger, sessionID, func() error {
		var err error
		cart, err = s.sessions.GetCart(ctx, sessionID)
		if err != nil {
			return err
		}
		if cart == nil {
			return domain.ErrNoCart
		}
		if cart.EmployerID != employer.ID {
			return fmt.Errorf("cart of session %s: %w", sessionID, domain.ErrForeignRental)
		}
		if len(cart.Lines) == 0 {
			metrics.IncCommit("empty")
			return domain.ErrEmptyCart
		}

		if _, err := s.catalog.GetCustomer(ctx, cart.CustomerID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// the customer was deleted while the cart was pending
				if clearErr := s.sessions.ClearCart(ctx, sessionID); clearErr != nil {
					s.logger.Error().Err(clearErr).Str("session_id", sessionID).Msg("Failed to discard orphaned cart")
				}
			}
			return fmt.Errorf("customer of the cart: %w", err)
		}

		rental = buildRental(cart, employer, s.now())
		if err := s.rentals.CommitRental(ctx, rental); err != nil {
			if domain.IsInsufficientStock(err) {
				metrics.IncCommit("stock")
				metrics.IncStockConflict()
			} else {
				metrics.IncCommit("error")
			}
			return err
		}

		if err := s.sessions.ClearCart(ctx, sessionID); err != nil {
			s.logger.Error().Err(err).Str("session_id", sessionID).Int64("rental_id", rental.ID).Msg("Failed to discard committed cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncCommit("committed")
	s.logger.Info().
		Int64("rental_id", rental.ID).
		Str("issued_identifier", rental.IssuedIdentifier).
		Int64("employer_id", employer.ID).
		Int("lines", len(rental.Lines)).
		Msg("Rental committed")

	owners, err := s.catalog.ListOwners(ctx)
	if err != nil {
		s.logger.Error().Err(err).Int64("rental_id", rental.ID).Msg("Failed to list owners for notification")
	}
	dispatch(ctx, s.notifier, s.logger, rentCreatedNotifications(rental, cart, employer, owners))
	s.publishEvent(events.EventRentCreated, rental, "")

	return rental, nil
}

func buildRental(cart *models.Cart, employer *models.Employer, now time.Time) *models.Rental {
	customerID := cart.CustomerID
	employerID := employer.ID

	lines := make([]models.RentalLine, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		lines = append(lines, models.RentalLine{
			EquipmentID:       l.EquipmentID,
			EquipmentName:     l.EquipmentName,
			Quantity:          l.Quantity,
			UnitNetPrice:      l.UnitNetPrice,
			UnitDepositPrice:  l.UnitDepositPrice,
			TotalNetPrice:     l.Totals.NetPrice,
			TotalNetDeposit:   l.Totals.NetDeposit,
			TotalGrossPrice:   l.Totals.GrossPrice,
			TotalGrossDeposit: l.Totals.GrossDeposit,
			Description:       l.Description,
		})
	}

	return &models.Rental{
		IssuedIdentifier:  NewIssuedIdentifier(RentIdentifierPrefix, now),
		IssuedAt:          now,
		RentStart:         cart.RentStart,
		RentEnd:           cart.RentEnd,
		Status:            models.RentStatusRented,
		Description:       cart.Description,
		TaxRate:           cart.TaxRate,
		TotalNetPrice:     cart.Totals.NetPrice,
		TotalNetDeposit:   cart.Totals.NetDeposit,
		TotalGrossPrice:   cart.Totals.GrossPrice,
		TotalGrossDeposit: cart.Totals.GrossDeposit,
		CustomerID:        &customerID,
		EmployerID:        &employerID,
		Lines:             lines,
	}
}

func (s *BookingService) publishEvent(eventType string, rental *models.Rental, returnIdentifier string) {
	publishRentEvent(s.eventBus, s.logger, eventType, rental, returnIdentifier, s.now())
}

func publishRentEvent(bus domain.EventPublisher, logger *zerolog.Logger, eventType string, rental *models.Rental, returnIdentifier string, at time.Time) {
	if bus == nil {
		return
	}

	payload := events.RentEventPayload{
		RentalID:         rental.ID,
		IssuedIdentifier: rental.IssuedIdentifier,
		Status:           rental.Status,
		TotalNetPrice:    rental.TotalNetPrice,
		TotalGrossPrice:  rental.TotalGrossPrice,
		LineCount:        len(rental.Lines),
		ReturnIdentifier: returnIdentifier,
		At:               at,
	}
	if rental.CustomerID != nil {
		payload.CustomerID = *rental.CustomerID
	}
	if rental.EmployerID != nil {
		payload.EmployerID = *rental.EmployerID
	}

	if err := bus.PublishJSON(eventType, payload); err != nil {
		logger.Error().Err(err).Str("event_type", eventType).Int64("rental_id", rental.ID).Msg("publish event error")
	}
}
