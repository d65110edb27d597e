package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"skirental/internal/config"
	"skirental/internal/domain"
	"skirental/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockRetryInterval = 25 * time.Millisecond

// SessionOptions tunes how long session data lives and how cart locks behave.
type SessionOptions struct {
	CartTTL  time.Duration
	LockTTL  time.Duration
	LockWait time.Duration
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.CartTTL <= 0 {
		o.CartTTL = time.Duration(models.DefaultCartTTL) * time.Second
	}
	if o.LockTTL <= 0 {
		o.LockTTL = time.Duration(models.DefaultCartLockTTL) * time.Second
	}
	if o.LockWait < 0 {
		o.LockWait = 0
	}
	return o
}

// RedisSessionRepository keeps carts, listing selections and cart locks in redis.
type RedisSessionRepository struct {
	client *redis.Client
	opts   SessionOptions
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisSessionRepository(client *redis.Client, opts SessionOptions) *RedisSessionRepository {
	return &RedisSessionRepository{client: client, opts: opts.withDefaults()}
}

func cartKey(sessionID string) string {
	return "cart:" + sessionID
}

func cartLockKey(sessionID string) string {
	return "cart_lock:" + sessionID
}

func listingStateKey(sessionID, listing string) string {
	return fmt.Sprintf("listing_state:%s:%s", sessionID, listing)
}

var errNilClient = errors.New("redis client is nil")

func (r *RedisSessionRepository) GetCart(ctx context.Context, sessionID string) (*models.Cart, error) {
	var cart models.Cart
	found, err := r.getJSON(ctx, cartKey(sessionID), &cart)
	if err != nil || !found {
		return nil, err
	}
	return &cart, nil
}

func (r *RedisSessionRepository) SetCart(ctx context.Context, cart *models.Cart) error {
	return r.setJSON(ctx, cartKey(cart.SessionID), cart)
}

func (r *RedisSessionRepository) ClearCart(ctx context.Context, sessionID string) error {
	return r.del(ctx, cartKey(sessionID))
}

func (r *RedisSessionRepository) GetListingState(ctx context.Context, sessionID, listing string) (*models.ListingState, error) {
	var state models.ListingState
	found, err := r.getJSON(ctx, listingStateKey(sessionID, listing), &state)
	if err != nil || !found {
		return nil, err
	}
	return &state, nil
}

func (r *RedisSessionRepository) SetListingState(ctx context.Context, state *models.ListingState) error {
	return r.setJSON(ctx, listingStateKey(state.SessionID, state.Listing), state)
}

func (r *RedisSessionRepository) ClearListingState(ctx context.Context, sessionID, listing string) error {
	return r.del(ctx, listingStateKey(sessionID, listing))
}

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock takes the cart lock of a session with SET NX PX and a random token, retrying until
// LockWait passes. The unlock func deletes the key only while it still holds our token, so
// an expired lock taken over by another request is left alone.
func (r *RedisSessionRepository) Lock(ctx context.Context, sessionID string) (func() error, error) {
	if r.client == nil {
		return nil, errNilClient
	}

	key := cartLockKey(sessionID)
	token := uuid.NewString()
	deadline := time.Now().Add(r.opts.LockWait)

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.opts.LockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire cart lock: %w", err)
		}
		if ok {
			return func() error {
				if err := unlockScript.Run(context.WithoutCancel(ctx), r.client, []string{key}, token).Err(); err != nil {
					return fmt.Errorf("failed to release cart lock: %w", err)
				}
				return nil
			}, nil
		}

		if !time.Now().Before(deadline) {
			return nil, domain.ErrCartBusy
		}
		timer := time.NewTimer(lockRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *RedisSessionRepository) getJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if r.client == nil {
		return false, errNilClient
	}
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s from redis: %w", key, err)
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (r *RedisSessionRepository) setJSON(ctx context.Context, key string, value interface{}) error {
	if r.client == nil {
		return errNilClient
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, data, r.opts.CartTTL).Err(); err != nil {
		return fmt.Errorf("failed to set %s in redis: %w", key, err)
	}
	return nil
}

func (r *RedisSessionRepository) del(ctx context.Context, key string) error {
	if r.client == nil {
		return errNilClient
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s from redis: %w", key, err)
	}
	return nil
}

func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
