package redis_session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/accountplan/config"
	"github.com/mohammad-safakhou/accountplan/session"
)

const (
	keyPrefix       = "accountplan:session:"
	defaultLockTTL  = 2 * time.Minute
	lockPollBackoff = 50 * time.Millisecond
)

// unlockScript deletes the lock only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// refreshScript extends the lock only while it still holds our token.
var refreshScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// Conn opens a client and verifies it with PING.
func Conn(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		DialTimeout: cfg.Timeout,
		Password:    cfg.Password,
		DB:          cfg.DB,
	})
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr(), err)
	}
	if pong != "PONG" {
		_ = client.Close()
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}
	return client, nil
}

// Store keeps sessions as JSON strings with a sliding TTL and guards each id
// with a SET NX lock.
type Store struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

type Option func(*Store)

// WithLockTTL sets how long a lock outlives a holder that stopped
// refreshing it.
func WithLockTTL(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTTL = d
		}
	}
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration, opts ...Option) *Store {
	s := &Store{client: client, ttl: ttl, lockTTL: defaultLockTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sessionKey(id string) string { return keyPrefix + id }
func lockKey(id string) string    { return keyPrefix + id + ":lock" }

func (store *Store) Load(ctx context.Context, id string) (*session.Session, error) {
	val, err := store.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	var s session.Session
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

func (store *Store) Save(ctx context.Context, s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := store.client.Set(ctx, sessionKey(s.ID), data, store.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

func (store *Store) Delete(ctx context.Context, id string) error {
	return store.client.Del(ctx, sessionKey(id)).Err()
}

// Lock polls SET NX until it owns the lock key or ctx is done. While held,
// the key's expiry is pushed forward every lockTTL/3; if the holder dies the
// key expires on its own after lockTTL.
func (store *Store) Lock(ctx context.Context, id string) (func(), error) {
	key := lockKey(id)
	token := uuid.NewString()
	for {
		ok, err := store.client.SetNX(ctx, key, token, store.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("lock session %s: %w", id, err)
		}
		if ok {
			break
		}
		t := time.NewTimer(lockPollBackoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go store.keepAlive(key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// unlock must run even if the request context is already cancelled
			_ = unlockScript.Run(context.Background(), store.client, []string{key}, token).Err()
		})
	}, nil
}

func (store *Store) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(store.lockTTL / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), store.lockTTL/3)
			n, err := refreshScript.Run(ctx, store.client, []string{key}, token, store.lockTTL.Milliseconds()).Int()
			cancel()
			if err == nil && n == 0 {
				// lost the key; nothing left to refresh
				return
			}
		}
	}
}
