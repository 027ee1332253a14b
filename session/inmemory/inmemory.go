package inmemory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/mohammad-safakhou/accountplan/session"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

type keyLock struct {
	sem  *semaphore.Weighted
	refs int
}

// Store keeps sessions in process memory, encoded as JSON so callers never
// share mutable state with the store.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]entry
	ttl      time.Duration
	now      func() time.Time

	locksMu sync.Mutex
	locks   map[string]*keyLock
}

// NewInMemorySessionStore returns a store; ttl <= 0 keeps sessions forever.
func NewInMemorySessionStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]entry),
		locks:    make(map[string]*keyLock),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (store *Store) Load(_ context.Context, id string) (*session.Session, error) {
	store.mu.RLock()
	e, ok := store.sessions[id]
	store.mu.RUnlock()
	if !ok || (!e.expiresAt.IsZero() && store.now().After(e.expiresAt)) {
		return nil, session.ErrNotFound
	}
	var s session.Session
	if err := json.Unmarshal(e.data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (store *Store) Save(_ context.Context, s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	e := entry{data: data}
	if store.ttl > 0 {
		e.expiresAt = store.now().Add(store.ttl)
	}
	store.mu.Lock()
	store.sessions[s.ID] = e
	store.mu.Unlock()
	return nil
}

func (store *Store) Delete(_ context.Context, id string) error {
	store.mu.Lock()
	delete(store.sessions, id)
	store.mu.Unlock()
	return nil
}

// Lock blocks until id is free or ctx is done.
func (store *Store) Lock(ctx context.Context, id string) (func(), error) {
	store.locksMu.Lock()
	l, ok := store.locks[id]
	if !ok {
		l = &keyLock{sem: semaphore.NewWeighted(1)}
		store.locks[id] = l
	}
	l.refs++
	store.locksMu.Unlock()

	if err := l.sem.Acquire(ctx, 1); err != nil {
		store.release(id, l)
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.sem.Release(1)
			store.release(id, l)
		})
	}, nil
}

func (store *Store) release(id string, l *keyLock) {
	store.locksMu.Lock()
	defer store.locksMu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(store.locks, id)
	}
}
