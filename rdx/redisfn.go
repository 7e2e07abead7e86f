package rdx

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// ErrMiss is returned by RdxGet when the key is not cached.
var ErrMiss = errors.New("cache miss")

// Connect opens a redis client and pings it.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := conn.Ping(ctx).Err(); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "ping redis at %s", addr)
	}
	log.WithField("addr", addr).Info("connected to redis")
	return conn, nil
}

// Cache is a string cache with a fixed expiry.
type Cache struct {
	conn *redis.Client
	ttl  time.Duration
}

func NewCache(conn *redis.Client, ttl time.Duration) *Cache {
	return &Cache{conn: conn, ttl: ttl}
}

func (c *Cache) RdxGet(ctx context.Context, key string) (string, error) {
	val, err := c.conn.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrMiss
	}
	if err != nil {
		return "", errors.Wrapf(err, "redis get %s", key)
	}
	return val, nil
}

func (c *Cache) RdxSet(ctx context.Context, key, value string) error {
	if err := c.conn.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return errors.Wrapf(err, "redis set %s", key)
	}
	return nil
}

func (c *Cache) RdxDel(ctx context.Context, keys ...string) error {
	if err := c.conn.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(err, "redis del")
	}
	return nil
}
