package service

import (
	"context"
	"strings"

	"skirental/internal/domain"
	"skirental/internal/models"

	"github.com/rs/zerolog"
)

// CatalogStore is the record store surface for equipment and staff.
type CatalogStore interface {
	domain.CatalogRepository
	domain.InventoryLedger
	CreateEquipment(ctx context.Context, eq *models.Equipment) error
	UpsertEquipmentByBarcode(ctx context.Context, eq *models.Equipment) (bool, error)
	ListEquipment(ctx context.Context) ([]*models.Equipment, error)
	UpsertEmployerByEmail(ctx context.Context, e *models.Employer) error
}

type CatalogService struct {
	store  CatalogStore
	logger *zerolog.Logger
}

func NewCatalogService(store CatalogStore, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{store: store, logger: logger}
}

func validateEquipment(eq *models.Equipment) error {
	eq.Name = strings.TrimSpace(eq.Name)
	eq.Barcode = strings.TrimSpace(eq.Barcode)
	if eq.Name == "" || eq.Barcode == "" || eq.CountInStore < 0 {
		return domain.ErrInvalidEquipment
	}
	if eq.PricePerHour < 0 || eq.PriceForNextHour < 0 || eq.PricePerDay < 0 || eq.ValueCost < 0 {
		return domain.ErrInvalidPrice
	}
	return nil
}

func (s *CatalogService) CreateEquipment(ctx context.Context, eq *models.Equipment) error {
	if err := validateEquipment(eq); err != nil {
		return err
	}
	return s.store.CreateEquipment(ctx, eq)
}

// ImportEquipment creates or updates equipment matched by barcode.
func (s *CatalogService) ImportEquipment(ctx context.Context, items []models.Equipment) (created, updated int, err error) {
	for i := range items {
		eq := &items[i]
		if err := validateEquipment(eq); err != nil {
			return created, updated, err
		}
		isNew, err := s.store.UpsertEquipmentByBarcode(ctx, eq)
		if err != nil {
			return created, updated, err
		}
		if isNew {
			created++
		} else {
			updated++
		}
	}
	s.logger.Info().Int("created", created).Int("updated", updated).Msg("Equipment imported")
	return created, updated, nil
}

func (s *CatalogService) ImportEmployers(ctx context.Context, employers []models.Employer) error {
	for i := range employers {
		e := &employers[i]
		if e.Role != models.RoleOwner {
			e.Role = models.RoleSeller
		}
		if err := s.store.UpsertEmployerByEmail(ctx, e); err != nil {
			return err
		}
	}
	s.logger.Info().Int("employers", len(employers)).Msg("Employers imported")
	return nil
}

func (s *CatalogService) Equipment(ctx context.Context) ([]*models.Equipment, error) {
	return s.store.ListEquipment(ctx)
}

func (s *CatalogService) Employer(ctx context.Context, id int64) (*models.Employer, error) {
	return s.store.GetEmployer(ctx, id)
}

// Availability is the ledger snapshot of one equipment item.
func (s *CatalogService) Availability(ctx context.Context, equipmentID int64) (*models.InventoryCount, error) {
	return s.store.Inventory(ctx, equipmentID)
}
