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
	"skirental/internal/pricing"

	"github.com/rs/zerolog"
)

var ErrSessionRequired = errors.New("session id is required")

// StartCartInput opens a rental for a customer. A nil TaxRate uses the configured default.
type StartCartInput struct {
	CustomerID  int64     `json:"customer_id"`
	RentStart   time.Time `json:"rent_start"`
	RentEnd     time.Time `json:"rent_end"`
	TaxRate     *int      `json:"tax_rate,omitempty"`
	Description string    `json:"description,omitempty"`
}

type AddLineInput struct {
	EquipmentID  int64  `json:"equipment_id"`
	Quantity     int    `json:"quantity"`
	DepositPrice int64  `json:"deposit_price"`
	Description  string `json:"description,omitempty"`
}

// CartService accumulates the lines of a rental in the session store. Every mutation runs
// under the session's cart lock.
type CartService struct {
	sessions       domain.SessionRepository
	catalog        domain.CatalogRepository
	ledger         domain.InventoryLedger
	eventBus       domain.EventPublisher
	defaultTaxRate int
	logger         *zerolog.Logger
	now            func() time.Time
}

func NewCartService(sessions domain.SessionRepository, catalog domain.CatalogRepository, ledger domain.InventoryLedger, eventBus domain.EventPublisher, defaultTaxRate int, logger *zerolog.Logger) *CartService {
	return &CartService{
		sessions:       sessions,
		catalog:        catalog,
		ledger:         ledger,
		eventBus:       eventBus,
		defaultTaxRate: defaultTaxRate,
		logger:         logger,
		now:            time.Now,
	}
}

// Start creates the cart of a session, replacing one that is still pending.
func (s *CartService) Start(ctx context.Context, sessionID string, employer *models.Employer, in StartCartInput) (*models.Cart, error) {
	if !in.RentEnd.After(in.RentStart) || in.RentStart.IsZero() {
		return nil, domain.ErrInvalidRentWindow
	}
	taxRate := s.defaultTaxRate
	if in.TaxRate != nil {
		taxRate = *in.TaxRate
	}
	if taxRate < 0 || taxRate > 100 {
		return nil, domain.ErrInvalidTaxRate
	}

	customer, err := s.catalog.GetCustomer(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}

	var cart *models.Cart
	err = s.withLock(ctx, sessionID, func() error {
		previous, err := s.sessions.GetCart(ctx, sessionID)
		if err != nil {
			return err
		}
		if previous != nil {
			s.logger.Info().Str("session_id", sessionID).Int64("customer_id", previous.CustomerID).Msg("Replacing pending cart")
		}

		cart = &models.Cart{
			SessionID:        sessionID,
			CustomerID:       customer.ID,
			CustomerFullName: customer.FullName(),
			CustomerEmail:    customer.Email,
			EmployerID:       employer.ID,
			Status:           models.RentStatusOpened,
			RentStart:        in.RentStart,
			RentEnd:          in.RentEnd,
			TaxRate:          taxRate,
			Description:      in.Description,
			CreatedAt:        s.now(),
			Lines:            []models.CartLine{},
		}
		cart.Recalculate()
		return s.sessions.SetCart(ctx, cart)
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// AddLine prices the equipment for the rent window and appends it. The stock check here is
// advisory; the reservation at commit re-checks the live count.
func (s *CartService) AddLine(ctx context.Context, sessionID string, in AddLineInput) (*models.Cart, error) {
	if in.Quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	var cart *models.Cart
	err := s.withLock(ctx, sessionID, func() error {
		var err error
		cart, err = s.load(ctx, sessionID)
		if err != nil {
			return err
		}
		if cart.HasLine(in.EquipmentID) {
			return &domain.DuplicateLineError{EquipmentID: in.EquipmentID}
		}

		eq, err := s.catalog.GetEquipment(ctx, in.EquipmentID)
		if err != nil {
			return err
		}
		available, err := s.ledger.Available(ctx, in.EquipmentID)
		if err != nil {
			return err
		}
		if available < in.Quantity {
			metrics.IncStockConflict()
			return &domain.InsufficientStockError{EquipmentID: in.EquipmentID, Requested: in.Quantity, Available: available}
		}

		line, err := pricing.Quote(eq, pricing.LineInput{
			Quantity:     in.Quantity,
			DepositPrice: in.DepositPrice,
			Description:  in.Description,
		}, cart.RentStart, cart.RentEnd, cart.TaxRate)
		if err != nil {
			return err
		}

		cart.Lines = append(cart.Lines, line)
		cart.Recalculate()
		return s.sessions.SetCart(ctx, cart)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("session_id", sessionID).Int64("equipment_id", in.EquipmentID).Int("quantity", in.Quantity).Msg("Cart line added")
	return cart, nil
}

// RemoveLine drops the line of an equipment; removing an absent line changes nothing.
func (s *CartService) RemoveLine(ctx context.Context, sessionID string, equipmentID int64) (*models.Cart, error) {
	var cart *models.Cart
	err := s.withLock(ctx, sessionID, func() error {
		var err error
		cart, err = s.load(ctx, sessionID)
		if err != nil {
			return err
		}
		if !cart.RemoveLine(equipmentID) {
			return nil
		}
		return s.sessions.SetCart(ctx, cart)
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) Get(ctx context.Context, sessionID string) (*models.Cart, error) {
	return s.load(ctx, sessionID)
}

// Cancel discards the cart. Nothing was reserved for it, so the ledger is not touched.
func (s *CartService) Cancel(ctx context.Context, sessionID string) error {
	var cart *models.Cart
	err := s.withLock(ctx, sessionID, func() error {
		var err error
		cart, err = s.load(ctx, sessionID)
		if err != nil {
			return err
		}
		return s.sessions.ClearCart(ctx, sessionID)
	})
	if err != nil {
		return err
	}

	if s.eventBus != nil {
		payload := events.CartEventPayload{SessionID: sessionID, CustomerID: cart.CustomerID, LineCount: len(cart.Lines)}
		if err := s.eventBus.PublishJSON(events.EventCartCancelled, payload); err != nil {
			s.logger.Error().Err(err).Str("session_id", sessionID).Msg("publish event error")
		}
	}
	return nil
}

func (s *CartService) load(ctx context.Context, sessionID string) (*models.Cart, error) {
	cart, err := s.sessions.GetCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, domain.ErrNoCart
	}
	return cart, nil
}

func (s *CartService) withLock(ctx context.Context, sessionID string, fn func() error) error {
	return withSessionLock(ctx, s.sessions, s.logger, sessionID, fn)
}

func withSessionLock(ctx context.Context, sessions domain.SessionRepository, logger *zerolog.Logger, sessionID string, fn func() error) error {
	if sessionID == "" {
		return ErrSessionRequired
	}
	unlock, err := sessions.Lock(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("lock cart of session %s: %w", sessionID, err)
	}
	defer func() {
		if err := unlock(); err != nil {
			logger.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to release cart lock")
		}
	}()
	return fn()
}
