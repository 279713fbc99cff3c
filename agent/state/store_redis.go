package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

type RedisConfig struct {
	Addr         string        `split_words:"true" required:"true"`
	Password     string        `split_words:"true"`
	DB           int           `split_words:"true" default:"0"`
	DialTimeout  time.Duration `split_words:"true" default:"5s"`
	ReadTimeout  time.Duration `split_words:"true" default:"3s"`
	WriteTimeout time.Duration `split_words:"true" default:"3s"`
	PoolSize     int           `split_words:"true" default:"10"`
}

// RedisStore persists SessionState in a directly reachable Redis server.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore accepts either a redis:// URL or a host:port address.
func NewRedisStore(cfg RedisConfig, opts ...StoreOption) (*RedisStore, error) {
	redisOpts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	return NewRedisStoreWithClient(redis.NewClient(redisOpts), opts...)
}

// redisOptions builds client options from cfg. A password or DB carried by a
// redis:// URL wins over the config fields; non-zero timeouts and pool size
// always apply.
func redisOptions(cfg RedisConfig) (*redis.Options, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}

	opts, err := redis.ParseURL(addr)
	if err != nil {
		return &redis.Options{
			Addr:         addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: 1,
		}, nil
	}

	if opts.Password == "" {
		opts.Password = cfg.Password
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if opts.MinIdleConns == 0 {
		opts.MinIdleConns = 1
	}
	return opts, nil
}

func NewRedisStoreWithClient(client redis.UniversalClient, opts ...StoreOption) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	o, err := applyStoreOptions(opts)
	if err != nil {
		return nil, err
	}
	return &RedisStore{
		client:    client,
		keyPrefix: o.keyPrefix,
		ttl:       o.ttl,
	}, nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*SessionState, error) {
	key, err := sessionKey(s.keyPrefix, sessionID)
	if err != nil {
		return nil, err
	}

	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return decodeSession(payload)
}

func (s *RedisStore) Save(ctx context.Context, st *SessionState) error {
	payload, err := encodeSession(st)
	if err != nil {
		return err
	}
	key, err := sessionKey(s.keyPrefix, st.SessionID)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	key, err := sessionKey(s.keyPrefix, sessionID)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
