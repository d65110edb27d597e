package domain

import (
	"context"

	"skirental/internal/listing"
	"skirental/internal/models"
)

// InventoryLedger exposes snapshot reads of the stock counts. Reserve and release only
// happen inside rental transactions of the record store.
type InventoryLedger interface {
	Available(ctx context.Context, equipmentID int64) (int, error)
	Inventory(ctx context.Context, equipmentID int64) (*models.InventoryCount, error)
}

type CatalogRepository interface {
	GetEquipment(ctx context.Context, id int64) (*models.Equipment, error)
	GetCustomer(ctx context.Context, id int64) (*models.Customer, error)
	GetEmployer(ctx context.Context, id int64) (*models.Employer, error)
	ListOwners(ctx context.Context) ([]*models.Employer, error)
}

type RentalRepository interface {
	CommitRental(ctx context.Context, rental *models.Rental) error
	GetRental(ctx context.Context, id int64) (*models.Rental, error)
	ReturnRental(ctx context.Context, ret *models.RentReturn) (*models.Rental, error)
}

type CustomerRepository interface {
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	DeleteCustomer(ctx context.Context, id int64) (*models.CustomerRemoval, error)
}

// ListingRepository executes listing queries built by the listing package.
type ListingRepository interface {
	Dialect() string
	CountListing(ctx context.Context, q *listing.ListQuery) (int64, error)
	SelectListing(ctx context.Context, q *listing.ListQuery, offset, limit int, dest interface{}) error
}

// SessionRepository keeps per-session state: the in-progress cart and the remembered
// listing selections. Get methods return nil, nil when nothing is stored.
type SessionRepository interface {
	GetCart(ctx context.Context, sessionID string) (*models.Cart, error)
	SetCart(ctx context.Context, cart *models.Cart) error
	ClearCart(ctx context.Context, sessionID string) error
	GetListingState(ctx context.Context, sessionID, listing string) (*models.ListingState, error)
	SetListingState(ctx context.Context, state *models.ListingState) error
	ClearListingState(ctx context.Context, sessionID, listing string) error
	// Lock serializes cart mutations of one session. The returned func releases the lock.
	Lock(ctx context.Context, sessionID string) (func() error, error)
}

// Notifier hands a message to the delivery pipeline. Callers log failures and move on.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
