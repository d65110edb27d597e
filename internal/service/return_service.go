package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skirental/internal/domain"
	"skirental/internal/events"
	"skirental/internal/models"

	"github.com/rs/zerolog"
)

type ReturnService struct {
	rentals  domain.RentalRepository
	catalog  domain.CatalogRepository
	notifier domain.Notifier
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewReturnService(rentals domain.RentalRepository, catalog domain.CatalogRepository, notifier domain.Notifier, eventBus domain.EventPublisher, logger *zerolog.Logger) *ReturnService {
	return &ReturnService{
		rentals:  rentals,
		catalog:  catalog,
		notifier: notifier,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

// Process closes a RENTED rental and gives its units back. Sellers may only return their
// own rentals; owners may return any.
func (s *ReturnService) Process(ctx context.Context, employer *models.Employer, rentalID int64, description string) (*models.RentReturn, error) {
	rental, err := s.rentals.GetRental(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if !employer.IsOwner() && !rental.BelongsTo(employer.ID) {
		return nil, fmt.Errorf("rent %d: %w", rentalID, domain.ErrForeignRental)
	}
	if rental.Status != models.RentStatusRented {
		return nil, fmt.Errorf("rent %d is %s: %w", rentalID, rental.Status, domain.ErrNotRented)
	}

	now := s.now()
	ret := &models.RentReturn{
		IssuedIdentifier: NewIssuedIdentifier(ReturnIdentifierPrefix, now),
		IssuedAt:         now,
		RentalID:         rentalID,
		Description:      description,
	}
	rental, err = s.rentals.ReturnRental(ctx, ret)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("rental_id", rental.ID).
		Str("return_identifier", ret.IssuedIdentifier).
		Int64("employer_id", employer.ID).
		Msg("Rental returned")

	var customer *models.Customer
	if rental.CustomerID != nil {
		customer, err = s.catalog.GetCustomer(ctx, *rental.CustomerID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error().Err(err).Int64("rental_id", rental.ID).Msg("Failed to load customer for notification")
		}
	}
	dispatch(ctx, s.notifier, s.logger, rentReturnedNotifications(rental, ret, customer, employer))
	publishRentEvent(s.eventBus, s.logger, events.EventRentReturned, rental, ret.IssuedIdentifier, now)

	return ret, nil
}
