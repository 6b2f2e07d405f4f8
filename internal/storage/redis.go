package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nocdn/volumes/internal/bookmark"
	"github.com/nocdn/volumes/internal/logger"
)

var _ Repository = (*Redis)(nil)

const (
	// keyPrefixBookmark prefixes the JSON value of each bookmark.
	keyPrefixBookmark = "volumes:bookmark:"
	// keyByCreated is a sorted set of ids scored by creation time.
	keyByCreated = "volumes:bookmarks:by_created"
)

func bookmarkKey(id string) string {
	return keyPrefixBookmark + id
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	ConnectTimeout time.Duration // total time allowed for connection attempts
	RetryInterval  time.Duration // initial wait between attempts, doubles
	MaxWait        time.Duration // cap on the wait between attempts
	PingTimeout    time.Duration
}

func (o RedisOptions) withDefaults() RedisOptions {
	if strings.TrimSpace(o.Addr) == "" {
		o.Addr = "127.0.0.1:6379"
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 30 * time.Second
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 500 * time.Millisecond
	}
	if o.MaxWait <= 0 {
		o.MaxWait = 5 * time.Second
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = 2 * time.Second
	}
	return o
}

// Redis stores each bookmark as a JSON string and orders them with a
// sorted set keyed by creation time.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

// OpenRedis connects to Redis, retrying with exponential backoff until
// ConnectTimeout elapses.
func OpenRedis(ctx context.Context, opts RedisOptions, log logger.Logger) (*Redis, error) {
	opts = opts.withDefaults()
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := connectWithRetry(ctx, client, opts, log); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewRedis(client), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, now: time.Now}
}

func connectWithRetry(ctx context.Context, client *redis.Client, opts RedisOptions, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	log.Info("connecting to redis",
		logger.String("addr", opts.Addr),
		logger.Duration("timeout", opts.ConnectTimeout))

	wait := opts.RetryInterval
	for attempt := 1; ; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, opts.PingTimeout)
		err := client.Ping(pingCtx).Err()
		pingCancel()
		if err == nil {
			if attempt > 1 {
				log.Warn("connected to redis after retry",
					logger.String("addr", opts.Addr),
					logger.Int("attempts", attempt))
			} else {
				log.Info("connected to redis", logger.String("addr", opts.Addr))
			}
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Error("redis unavailable",
				logger.String("addr", opts.Addr),
				logger.Int("attempts", attempt),
				logger.Error(err))
			return fmt.Errorf("redis unavailable at %s after %d attempts: %w", opts.Addr, attempt, err)
		case <-timer.C:
			log.Warn("redis connection failed, retrying",
				logger.String("addr", opts.Addr),
				logger.Int("attempt", attempt),
				logger.Duration("next_retry_in", wait),
				logger.Error(err))
			wait *= 2
			if wait > opts.MaxWait {
				wait = opts.MaxWait
			}
		}
	}
}

func (r *Redis) List(ctx context.Context, limit int) ([]bookmark.Item, error) {
	ids, err := r.client.ZRevRange(ctx, keyByCreated, 0, int64(clampLimit(limit)-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmark ids: %w", err)
	}
	items := []bookmark.Item{}
	if len(ids) == 0 {
		return items, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = bookmarkKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmarks: %w", err)
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// Index entry without a value; skip it like a missing row.
			continue
		}
		item, err := decodeItem([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("bookmark %s: %w", ids[i], err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Redis) Get(ctx context.Context, id string) (bookmark.Item, error) {
	data, err := r.client.Get(ctx, bookmarkKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return bookmark.Item{}, ErrNotFound
		}
		return bookmark.Item{}, fmt.Errorf("failed to get bookmark: %w", err)
	}
	return decodeItem(data)
}

func (r *Redis) Create(ctx context.Context, draft bookmark.Draft) (bookmark.Item, error) {
	item, err := newItem(draft, r.now())
	if err != nil {
		return bookmark.Item{}, err
	}
	data, err := json.Marshal(item)
	if err != nil {
		return bookmark.Item{}, fmt.Errorf("failed to marshal bookmark: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, bookmarkKey(item.ID), data, 0)
		pipe.ZAdd(ctx, keyByCreated, redis.Z{
			Score:  float64(item.CreatedAt.UnixMilli()),
			Member: item.ID,
		})
		return nil
	})
	if err != nil {
		return bookmark.Item{}, fmt.Errorf("failed to save bookmark: %w", err)
	}
	return item, nil
}

func (r *Redis) Update(ctx context.Context, id string, patch bookmark.Patch) (bookmark.Item, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return bookmark.Item{}, err
	}
	updated, err := applyPatch(current, patch)
	if err != nil {
		return bookmark.Item{}, err
	}
	data, err := json.Marshal(updated)
	if err != nil {
		return bookmark.Item{}, fmt.Errorf("failed to marshal bookmark: %w", err)
	}
	// SET XX leaves a concurrently deleted key deleted.
	ok, err := r.client.SetXX(ctx, bookmarkKey(id), data, redis.KeepTTL).Result()
	if err != nil {
		return bookmark.Item{}, fmt.Errorf("failed to update bookmark: %w", err)
	}
	if !ok {
		return bookmark.Item{}, ErrNotFound
	}
	return updated, nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, bookmarkKey(id))
		pipe.ZRem(ctx, keyByCreated, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func decodeItem(data []byte) (bookmark.Item, error) {
	var item bookmark.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return bookmark.Item{}, fmt.Errorf("failed to unmarshal bookmark: %w", err)
	}
	if item.Tags == nil {
		item.Tags = []string{}
	}
	return item, nil
}
