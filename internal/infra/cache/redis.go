package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bryanwahyu/propvest/internal/domain/analysis"
)

const (
	keyPrefix  = "share:"
	defaultTTL = 10 * time.Minute
)

// Config for the redis connection backing the share cache.
type Config struct {
	URL         string        `yaml:"url"`
	PoolSize    int           `yaml:"pool_size"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// Connect parses the redis URL, tunes the pool and pings once.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, eris.Wrap(err, "redis: parse url")
	}
	opt.PoolSize = 10
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	opt.MinIdleConns = 2
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	if cfg.DialTimeout > 0 {
		opt.DialTimeout = cfg.DialTimeout
	}
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, opt.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, eris.Wrap(err, "redis: ping")
	}
	zap.L().Info("connected to redis", zap.String("addr", opt.Addr), zap.Int("db", opt.DB))
	return client, nil
}

// kv is the part of the redis client the cache uses.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// ShareCache stores public views as JSON under share:{publicId}.
type ShareCache struct {
	client kv
	ttl    time.Duration
}

func NewShareCache(client redis.Cmdable, ttl time.Duration) *ShareCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ShareCache{client: client, ttl: ttl}
}

func Key(publicID string) string { return keyPrefix + publicID }

func (c *ShareCache) Get(ctx context.Context, publicID string) (*analysis.PublicView, bool, error) {
	raw, err := c.client.Get(ctx, Key(publicID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "redis: get share")
	}
	var view analysis.PublicView
	if err := json.Unmarshal(raw, &view); err != nil {
		// entry rusak, anggap miss supaya dibaca ulang dari store
		zap.L().Warn("dropping undecodable share cache entry", zap.String("public_id", publicID), zap.Error(err))
		return nil, false, nil
	}
	return &view, true, nil
}

func (c *ShareCache) Set(ctx context.Context, publicID string, view analysis.PublicView) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return eris.Wrap(err, "redis: encode share")
	}
	return eris.Wrap(c.client.Set(ctx, Key(publicID), raw, c.ttl).Err(), "redis: set share")
}

func (c *ShareCache) Invalidate(ctx context.Context, publicID string) error {
	return eris.Wrap(c.client.Del(ctx, Key(publicID)).Err(), "redis: invalidate share")
}

var _ analysis.ShareCache = (*ShareCache)(nil)
