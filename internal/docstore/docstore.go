// Package docstore keeps retrieved source documents in arrival order.
package docstore

import "sync"

// Document is one retrieved source.
type Document struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Store is append-only. Top returns the first k documents ever added.
type Store interface {
	Add(doc Document)
	Top(k int) []Document
	Len() int
}

// Memory is a process-wide Store.
type Memory struct {
	mu   sync.RWMutex
	docs []Document
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Add(doc Document) {
	m.mu.Lock()
	m.docs = append(m.docs, doc)
	m.mu.Unlock()
}

func (m *Memory) Top(k int) []Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k > len(m.docs) {
		k = len(m.docs)
	}
	if k <= 0 {
		return nil
	}
	out := make([]Document, k)
	copy(out, m.docs[:k])
	return out
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
