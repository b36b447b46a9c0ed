package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Presence counts open sockets per user.
type Presence interface {
	Connect(ctx context.Context, userID string) error
	Disconnect(ctx context.Context, userID string) error
	Online(ctx context.Context, userID string) (bool, error)
}

// LocalPresence keeps the counters in memory.
type LocalPresence struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewLocalPresence() *LocalPresence {
	return &LocalPresence{counts: make(map[string]int)}
}

func (p *LocalPresence) Connect(_ context.Context, userID string) error {
	p.mu.Lock()
	p.counts[userID]++
	p.mu.Unlock()
	return nil
}

func (p *LocalPresence) Disconnect(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.counts[userID] <= 1 {
		delete(p.counts, userID)
		return nil
	}
	p.counts[userID]--
	return nil
}

func (p *LocalPresence) Online(_ context.Context, userID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts[userID] > 0, nil
}

// RedisPresence keeps one counter key per user, shared by all instances.
// The key expires after ttl so a crashed instance cannot pin a user online.
type RedisPresence struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisPresence(rdb *redis.Client, prefix string, ttl time.Duration) *RedisPresence {
	return &RedisPresence{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (p *RedisPresence) key(userID string) string { return p.prefix + ":presence:" + userID }

func (p *RedisPresence) Connect(ctx context.Context, userID string) error {
	pipe := p.rdb.TxPipeline()
	pipe.Incr(ctx, p.key(userID))
	pipe.Expire(ctx, p.key(userID), p.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (p *RedisPresence) Disconnect(ctx context.Context, userID string) error {
	n, err := p.rdb.Decr(ctx, p.key(userID)).Result()
	if err != nil {
		return err
	}
	if n <= 0 {
		return p.rdb.Del(ctx, p.key(userID)).Err()
	}
	return nil
}

func (p *RedisPresence) Online(ctx context.Context, userID string) (bool, error) {
	n, err := p.rdb.Get(ctx, p.key(userID)).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
