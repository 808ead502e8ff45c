// Package redisstore persists a hop contract's pending chain in Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	hop "github.com/branched-services/go-hop"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gomodule/redigo/redis"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "hop"

func timeoutDialOptions() []redis.DialOption {
	return []redis.DialOption{
		redis.DialConnectTimeout(5 * time.Second),
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
}

// NewPool returns a connection pool for the Redis server at addr.
func NewPool(addr string, opts ...redis.DialOption) *redis.Pool {
	opts = append(timeoutDialOptions(), opts...)
	return &redis.Pool{
		MaxIdle:     5,
		IdleTimeout: 4 * time.Minute,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr, opts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

// Store is a hop.Store backed by Redis. The two keys of a chain are written
// in a single MULTI/EXEC transaction.
type Store struct {
	pool        *redis.Pool
	commandsKey string
	targetKey   string
}

var _ hop.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*storeConfig)

type storeConfig struct {
	prefix string
}

// WithPrefix replaces DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(c *storeConfig) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// New returns a store for contract using connections from pool.
func New(pool *redis.Pool, contract common.Address, opts ...Option) *Store {
	cfg := &storeConfig{prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(cfg)
	}

	base := fmt.Sprintf("%s:%s", cfg.prefix, contract.Hex())
	return &Store{
		pool:        pool,
		commandsKey: base + ":" + hop.KeyPendingCommands,
		targetKey:   base + ":" + hop.KeyChainTarget,
	}
}

// Keys returns the pending_commands and chain_target keys.
func (s *Store) Keys() (commands, target string) {
	return s.commandsKey, s.targetKey
}

// Load implements hop.Store.
func (s *Store) Load(ctx context.Context) (hop.PendingChain, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return hop.PendingChain{}, fmt.Errorf("redisstore: %w", err)
	}
	defer conn.Close()

	values, err := redis.Values(conn.Do("MGET", s.commandsKey, s.targetKey))
	if err != nil {
		return hop.PendingChain{}, fmt.Errorf("redisstore: MGET: %w", err)
	}
	if len(values) != 2 {
		return hop.PendingChain{}, fmt.Errorf("redisstore: MGET returned %d values", len(values))
	}

	var p hop.PendingChain

	target, err := redis.String(values[1], nil)
	switch {
	case errors.Is(err, redis.ErrNil):
	case err != nil:
		return hop.PendingChain{}, fmt.Errorf("redisstore: reading %s: %w", s.targetKey, err)
	case !common.IsHexAddress(target):
		return hop.PendingChain{}, fmt.Errorf("redisstore: corrupt %s %q", s.targetKey, target)
	default:
		p.Target = common.HexToAddress(target)
	}

	data, err := redis.Bytes(values[0], nil)
	switch {
	case errors.Is(err, redis.ErrNil):
	case err != nil:
		return hop.PendingChain{}, fmt.Errorf("redisstore: reading %s: %w", s.commandsKey, err)
	default:
		cmds, err := hop.UnmarshalCommands(data)
		if err != nil {
			return hop.PendingChain{}, fmt.Errorf("redisstore: decoding %s: %w", s.commandsKey, err)
		}
		p.Remaining = cmds
	}

	return p, nil
}

// Save implements hop.Store.
func (s *Store) Save(ctx context.Context, p hop.PendingChain) error {
	data, err := hop.MarshalCommands(p.Remaining)
	if err != nil {
		return fmt.Errorf("redisstore: encoding %s: %w", hop.KeyPendingCommands, err)
	}

	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redisstore: %w", err)
	}
	defer conn.Close()

	if err := conn.Send("MULTI"); err != nil {
		return fmt.Errorf("redisstore: MULTI: %w", err)
	}
	if err := conn.Send("SET", s.commandsKey, data); err != nil {
		return fmt.Errorf("redisstore: SET: %w", err)
	}
	if err := conn.Send("SET", s.targetKey, p.Target.Hex()); err != nil {
		return fmt.Errorf("redisstore: SET: %w", err)
	}
	replies, err := redis.Values(conn.Do("EXEC"))
	if errors.Is(err, redis.ErrNil) {
		return errors.New("redisstore: EXEC: transaction aborted")
	}
	if err != nil {
		return fmt.Errorf("redisstore: EXEC: %w", err)
	}
	for _, r := range replies {
		if rerr, ok := r.(redis.Error); ok {
			return fmt.Errorf("redisstore: EXEC: %w", rerr)
		}
	}
	return nil
}

// Clear implements hop.Store.
func (s *Store) Clear(ctx context.Context) error {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redisstore: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Do("DEL", s.commandsKey, s.targetKey); err != nil {
		return fmt.Errorf("redisstore: DEL: %w", err)
	}
	return nil
}
