package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"skirental/internal/domain"
	"skirental/internal/models"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemorySessionRepository is the in-process session store used when redis is unavailable
// and in tests. Values are stored serialized so callers never share cart memory.
type MemorySessionRepository struct {
	entries sync.Map
	locksMu sync.Mutex
	locks   map[string]*sessionLock
	opts    SessionOptions
	now     func() time.Time
}

// sessionLock is a one-slot semaphore; refs counts the holder and every waiter so the
// entry is dropped only when nobody references it.
type sessionLock struct {
	sem  chan struct{}
	refs int
}

func NewMemorySessionRepository(opts SessionOptions) *MemorySessionRepository {
	return &MemorySessionRepository{
		locks: make(map[string]*sessionLock),
		opts:  opts.withDefaults(),
		now:   time.Now,
	}
}

func (r *MemorySessionRepository) GetCart(_ context.Context, sessionID string) (*models.Cart, error) {
	var cart models.Cart
	found, err := r.load(cartKey(sessionID), &cart)
	if err != nil || !found {
		return nil, err
	}
	return &cart, nil
}

func (r *MemorySessionRepository) SetCart(_ context.Context, cart *models.Cart) error {
	return r.store(cartKey(cart.SessionID), cart)
}

func (r *MemorySessionRepository) ClearCart(_ context.Context, sessionID string) error {
	r.entries.Delete(cartKey(sessionID))
	return nil
}

func (r *MemorySessionRepository) GetListingState(_ context.Context, sessionID, listing string) (*models.ListingState, error) {
	var state models.ListingState
	found, err := r.load(listingStateKey(sessionID, listing), &state)
	if err != nil || !found {
		return nil, err
	}
	return &state, nil
}

func (r *MemorySessionRepository) SetListingState(_ context.Context, state *models.ListingState) error {
	return r.store(listingStateKey(state.SessionID, state.Listing), state)
}

func (r *MemorySessionRepository) ClearListingState(_ context.Context, sessionID, listing string) error {
	r.entries.Delete(listingStateKey(sessionID, listing))
	return nil
}

// Lock uses a one-slot channel per session as a semaphore.
func (r *MemorySessionRepository) Lock(ctx context.Context, sessionID string) (func() error, error) {
	l := r.refLock(sessionID)

	release := func() func() error {
		var once sync.Once
		return func() error {
			once.Do(func() {
				<-l.sem
				r.unrefLock(sessionID, l)
			})
			return nil
		}
	}

	select {
	case l.sem <- struct{}{}:
		return release(), nil
	default:
	}

	timer := time.NewTimer(r.opts.LockWait)
	defer timer.Stop()
	select {
	case l.sem <- struct{}{}:
		return release(), nil
	case <-ctx.Done():
		r.unrefLock(sessionID, l)
		return nil, ctx.Err()
	case <-timer.C:
		r.unrefLock(sessionID, l)
		return nil, domain.ErrCartBusy
	}
}

func (r *MemorySessionRepository) refLock(sessionID string) *sessionLock {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	l, ok := r.locks[sessionID]
	if !ok {
		l = &sessionLock{sem: make(chan struct{}, 1)}
		r.locks[sessionID] = l
	}
	l.refs++
	return l
}

func (r *MemorySessionRepository) unrefLock(sessionID string, l *sessionLock) {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(r.locks, sessionID)
	}
}

func (r *MemorySessionRepository) load(key string, dest interface{}) (bool, error) {
	v, ok := r.entries.Load(key)
	if !ok {
		return false, nil
	}
	entry := v.(memoryEntry)
	if r.now().After(entry.expiresAt) {
		r.entries.Delete(key)
		return false, nil
	}
	return true, json.Unmarshal(entry.data, dest)
}

func (r *MemorySessionRepository) store(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.entries.Store(key, memoryEntry{data: data, expiresAt: r.now().Add(r.opts.CartTTL)})
	return nil
}
