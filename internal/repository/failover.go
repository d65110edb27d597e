package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"skirental/internal/domain"
	"skirental/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSessionRepository serves from the primary store and switches to the fallback when
// the primary errors. While down it retries the primary once a minute.
type FailoverSessionRepository struct {
	primary   domain.SessionRepository
	fallback  domain.SessionRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverSessionRepository(primary, fallback domain.SessionRepository, logger *zerolog.Logger) *FailoverSessionRepository {
	return &FailoverSessionRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverSessionRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary session repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

// usePrimary reports whether the primary should be tried: it is up, or it has been down
// long enough to deserve another attempt.
func (r *FailoverSessionRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

// passThrough lists errors that are answers from a healthy store, not store failures.
func passThrough(err error) bool {
	return errors.Is(err, domain.ErrCartBusy) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func call[T any](r *FailoverSessionRepository, primary, fallback func() (T, error)) (T, error) {
	if r.usePrimary() {
		v, err := primary()
		if err == nil || passThrough(err) {
			if err == nil && r.isDown.Swap(false) {
				r.logger.Info().Msg("Primary session repository recovered")
			}
			return v, err
		}
		r.markDown(err)
	}
	return fallback()
}

func exec(r *FailoverSessionRepository, primary, fallback func() error) error {
	_, err := call(r,
		func() (struct{}, error) { return struct{}{}, primary() },
		func() (struct{}, error) { return struct{}{}, fallback() },
	)
	return err
}

func (r *FailoverSessionRepository) GetCart(ctx context.Context, sessionID string) (*models.Cart, error) {
	return call(r,
		func() (*models.Cart, error) { return r.primary.GetCart(ctx, sessionID) },
		func() (*models.Cart, error) { return r.fallback.GetCart(ctx, sessionID) },
	)
}

func (r *FailoverSessionRepository) SetCart(ctx context.Context, cart *models.Cart) error {
	return exec(r,
		func() error { return r.primary.SetCart(ctx, cart) },
		func() error { return r.fallback.SetCart(ctx, cart) },
	)
}

func (r *FailoverSessionRepository) ClearCart(ctx context.Context, sessionID string) error {
	return exec(r,
		func() error { return r.primary.ClearCart(ctx, sessionID) },
		func() error { return r.fallback.ClearCart(ctx, sessionID) },
	)
}

func (r *FailoverSessionRepository) GetListingState(ctx context.Context, sessionID, listing string) (*models.ListingState, error) {
	return call(r,
		func() (*models.ListingState, error) { return r.primary.GetListingState(ctx, sessionID, listing) },
		func() (*models.ListingState, error) { return r.fallback.GetListingState(ctx, sessionID, listing) },
	)
}

func (r *FailoverSessionRepository) SetListingState(ctx context.Context, state *models.ListingState) error {
	return exec(r,
		func() error { return r.primary.SetListingState(ctx, state) },
		func() error { return r.fallback.SetListingState(ctx, state) },
	)
}

func (r *FailoverSessionRepository) ClearListingState(ctx context.Context, sessionID, listing string) error {
	return exec(r,
		func() error { return r.primary.ClearListingState(ctx, sessionID, listing) },
		func() error { return r.fallback.ClearListingState(ctx, sessionID, listing) },
	)
}

func (r *FailoverSessionRepository) Lock(ctx context.Context, sessionID string) (func() error, error) {
	return call(r,
		func() (func() error, error) { return r.primary.Lock(ctx, sessionID) },
		func() (func() error, error) { return r.fallback.Lock(ctx, sessionID) },
	)
}
