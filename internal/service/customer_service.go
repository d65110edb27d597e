package service

import (
	"context"
	"strings"

	"skirental/internal/domain"
	"skirental/internal/events"
	"skirental/internal/models"

	"github.com/rs/zerolog"
)

type CustomerService struct {
	customers domain.CustomerRepository
	catalog   domain.CatalogRepository
	sessions  domain.SessionRepository
	eventBus  domain.EventPublisher
	logger    *zerolog.Logger
}

func NewCustomerService(customers domain.CustomerRepository, catalog domain.CatalogRepository, sessions domain.SessionRepository, eventBus domain.EventPublisher, logger *zerolog.Logger) *CustomerService {
	return &CustomerService{
		customers: customers,
		catalog:   catalog,
		sessions:  sessions,
		eventBus:  eventBus,
		logger:    logger,
	}
}

func (s *CustomerService) Create(ctx context.Context, c *models.Customer) error {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.TrimSpace(c.Email)
	if c.FirstName == "" || c.LastName == "" || c.Email == "" {
		return domain.ErrInvalidCustomer
	}
	if err := s.customers.CreateCustomer(ctx, c); err != nil {
		return err
	}
	s.logger.Info().Int64("customer_id", c.ID).Msg("Customer created")
	return nil
}

func (s *CustomerService) Get(ctx context.Context, id int64) (*models.Customer, error) {
	return s.catalog.GetCustomer(ctx, id)
}

// Delete removes the customer with their open rentals, giving rented units back to the
// ledger. A pending cart of the acting session that targets the customer is discarded.
func (s *CustomerService) Delete(ctx context.Context, sessionID string, actor *models.Employer, customerID int64) (*models.CustomerRemoval, error) {
	removal, err := s.customers.DeleteCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("customer_id", customerID).
		Ints64("deleted_rentals", removal.DeletedRentalIDs).
		Int("detached_rentals", removal.DetachedRentals).
		Int("released_units", removal.ReleasedUnits).
		Msg("Customer deleted")

	if sessionID != "" {
		s.discardCart(ctx, sessionID, customerID)
	}

	if s.eventBus != nil {
		payload := events.CustomerDeletedPayload{
			CustomerID:       customerID,
			DeletedRentalIDs: removal.DeletedRentalIDs,
			DetachedRentals:  removal.DetachedRentals,
			ReleasedUnits:    removal.ReleasedUnits,
		}
		if actor != nil {
			payload.DeletedBy = actor.ID
		}
		if err := s.eventBus.PublishJSON(events.EventCustomerDeleted, payload); err != nil {
			s.logger.Error().Err(err).Int64("customer_id", customerID).Msg("publish event error")
		}
	}
	return removal, nil
}

func (s *CustomerService) discardCart(ctx context.Context, sessionID string, customerID int64) {
	err := withSessionLock(ctx, s.sessions, s.logger, sessionID, func() error {
		cart, err := s.sessions.GetCart(ctx, sessionID)
		if err != nil || cart == nil || cart.CustomerID != customerID {
			return err
		}
		return s.sessions.ClearCart(ctx, sessionID)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Int64("customer_id", customerID).Msg("Failed to discard cart of deleted customer")
	}
}
