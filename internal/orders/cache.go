package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"golang.org/x/sync/singleflight"

	"github.com/ariefcatur/go-commerce-api/internal/events"
	kafkax "github.com/ariefcatur/go-commerce-api/internal/kafka"
	"github.com/ariefcatur/go-commerce-api/internal/redisx"
)

// CachedRepo keeps single-order reads in Redis. Writes through it drop the
// cached copy; other instances learn about writes from order events.
// Redis failures fall back to the underlying repo.
type CachedRepo struct {
	Repo
	rdb   *redis.Client
	ttl   time.Duration
	log   *slog.Logger
	group singleflight.Group
}

func NewCachedRepo(repo Repo, rdb *redis.Client, ttl time.Duration, log *slog.Logger) *CachedRepo {
	if ttl <= 0 {
		ttl = redisx.TTLOrderCache
	}
	return &CachedRepo{Repo: repo, rdb: rdb, ttl: ttl, log: log}
}

func orderKey(id string) string { return fmt.Sprintf(redisx.KeyOrder, id) }

func (c *CachedRepo) Order(ctx context.Context, id string) (Order, error) {
	key := orderKey(id)
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var o Order
		if err := json.Unmarshal(b, &o); err == nil {
			return o, nil
		}
		c.log.WarnContext(ctx, "dropping undecodable cached order", "order_id", id)
		_ = c.rdb.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		c.log.WarnContext(ctx, "order cache read failed", "order_id", id, "err", err)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		o, err := c.Repo.Order(ctx, id)
		if err != nil {
			return Order{}, err
		}
		if b, err := json.Marshal(o); err == nil {
			if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
				c.log.WarnContext(ctx, "order cache write failed", "order_id", id, "err", err)
			}
		}
		return o, nil
	})
	if err != nil {
		return Order{}, err
	}
	return v.(Order), nil
}

// FreshOrder reads id from the underlying repo, skipping Redis. Writers
// merge over this copy so a stale cache entry never reaches the store.
func (c *CachedRepo) FreshOrder(ctx context.Context, id string) (Order, error) {
	return c.Repo.Order(ctx, id)
}

func (c *CachedRepo) UpdateOrder(ctx context.Context, o Order) error {
	if err := c.Repo.UpdateOrder(ctx, o); err != nil {
		return err
	}
	c.Invalidate(ctx, o.ID)
	return nil
}

func (c *CachedRepo) DeleteOrder(ctx context.Context, id string) error {
	if err := c.Repo.DeleteOrder(ctx, id); err != nil {
		return err
	}
	c.Invalidate(ctx, id)
	return nil
}

func (c *CachedRepo) Invalidate(ctx context.Context, id string) {
	if err := c.rdb.Del(ctx, orderKey(id)).Err(); err != nil {
		c.log.WarnContext(ctx, "order cache invalidate failed", "order_id", id, "err", err)
	}
}

// CacheInvalidator drops cached orders named by order events. It needs only
// Redis, so it runs in the worker without a record store.
type CacheInvalidator struct {
	Redis *redis.Client
	Log   *slog.Logger
}

func (ci *CacheInvalidator) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.DecodeEnvelope(m)
	if err != nil {
		// Poison message: log and let it be committed.
		ci.Log.ErrorContext(ctx, "skipping undecodable order event", "offset", m.Offset, "err", err)
		return nil
	}
	switch env.EventType {
	case events.OrderUpdated, events.OrderDeleted:
	default:
		return nil
	}
	if env.CorrelationID == "" {
		return nil
	}
	if err := ci.Redis.Del(ctx, orderKey(env.CorrelationID)).Err(); err != nil {
		return fmt.Errorf("invalidate order %s: %w", env.CorrelationID, err)
	}
	ci.Log.DebugContext(ctx, "order cache invalidated", "order_id", env.CorrelationID, "event", env.EventType)
	return nil
}
