// Package session holds per-conversation state and the stores that keep it.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/mohammad-safakhou/accountplan/internal/plan"
)

// ErrNotFound is returned by Store.Load for an unknown or expired id.
var ErrNotFound = errors.New("session not found")

// PendingKind tags the question a session is waiting on.
type PendingKind string

const (
	PendingNone       PendingKind = ""
	PendingConflict   PendingKind = "conflict"
	PendingSuggestion PendingKind = "suggestion"
)

// Pending is the single open question of a session: nothing, a conflict
// topic awaiting "dig deeper?", or a company awaiting "research it?".
type Pending struct {
	Kind    PendingKind `json:"kind,omitempty"`
	Subject string      `json:"subject,omitempty"`
}

func NoPending() Pending { return Pending{} }

func AwaitingConflict(topic string) Pending {
	return Pending{Kind: PendingConflict, Subject: topic}
}

func AwaitingSuggestion(company string) Pending {
	return Pending{Kind: PendingSuggestion, Subject: company}
}

func (p Pending) None() bool { return p.Kind == PendingNone }

// Conflict returns the topic when a conflict answer is awaited.
func (p Pending) Conflict() (string, bool) {
	return p.Subject, p.Kind == PendingConflict
}

// Suggestion returns the company when a suggestion answer is awaited.
func (p Pending) Suggestion() (string, bool) {
	return p.Subject, p.Kind == PendingSuggestion
}

// Session is the state of one conversation.
type Session struct {
	ID        string           `json:"id"`
	Plan      *plan.Document   `json:"plan,omitempty"`
	Sources   []plan.SourceRef `json:"sources,omitempty"`
	LastQuery string           `json:"last_query,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Pending   Pending          `json:"pending"`
	CreatedAt time.Time        `json:"created_at"`
}

func New(id string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now}
}

func (s *Session) HasPlan() bool { return s != nil && s.Plan != nil }

// ReplacePlan installs a freshly synthesized plan. Any pending question is
// dropped.
func (s *Session) ReplacePlan(doc *plan.Document, sources []plan.SourceRef, query string, now time.Time) {
	s.Plan = doc
	s.Sources = append([]plan.SourceRef(nil), sources...)
	s.LastQuery = query
	s.Timestamp = now
	s.Pending = NoPending()
}

// Store persists sessions. Sessions are values: changes are visible to other
// callers only after Save.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	// Delete is idempotent.
	Delete(ctx context.Context, id string) error
	Locker
}

// Locker serialises work on one session id across requests.
type Locker interface {
	Lock(ctx context.Context, id string) (unlock func(), err error)
}

type StoreType string

const (
	InMemoryStore StoreType = "inmemory"
	RedisStore    StoreType = "redis"
)
