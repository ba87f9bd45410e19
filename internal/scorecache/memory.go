// Package scorecache provides matching.ScoreCache implementations.
package scorecache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/spigell/match-engine/internal/matching"
)

// Memory is a process-wide score table. Entries never expire.
type Memory struct {
	mu      sync.RWMutex
	entries map[matching.Key]matching.MatchScore

	hits   atomic.Int64
	misses atomic.Int64
}

var _ matching.ScoreCache = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{entries: make(map[matching.Key]matching.MatchScore)}
}

func (m *Memory) Get(_ context.Context, key matching.Key) (matching.MatchScore, bool) {
	m.mu.RLock()
	score, ok := m.entries[key]
	m.mu.RUnlock()

	if ok {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	return score, ok
}

// Put stores score under key. The last writer wins.
func (m *Memory) Put(_ context.Context, key matching.Key, score matching.MatchScore) {
	m.mu.Lock()
	m.entries[key] = score
	m.mu.Unlock()
}

// Len returns the number of cached scores.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Stats returns the hit and miss counts since creation.
func (m *Memory) Stats() (hits, misses int64) {
	return m.hits.Load(), m.misses.Load()
}
