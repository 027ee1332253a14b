// Package progress records the human-readable steps of one request.
package progress

import (
	"fmt"
	"sync"
	"time"
)

// Entry is one step; TS is Unix seconds with sub-second precision.
type Entry struct {
	TS  float64 `json:"ts"`
	Msg string  `json:"msg"`
}

// Log is an ordered, request-local list of entries.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

func New() *Log { return &Log{now: time.Now} }

// NewWithClock is New with an injected clock.
func NewWithClock(now func() time.Time) *Log { return &Log{now: now} }

func (l *Log) Add(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ts := float64(l.now().UnixNano()) / float64(time.Second)
	l.entries = append(l.entries, Entry{TS: ts, Msg: msg})
}

func (l *Log) Addf(format string, args ...any) {
	l.Add(fmt.Sprintf(format, args...))
}

// Entries returns a copy; never nil.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Messages returns just the text of each entry.
func (l *Log) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Msg
	}
	return out
}
