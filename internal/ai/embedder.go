package ai

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spigell/match-engine/internal/domain"
)

// ErrEmptyEmbedding is returned when a provider answers with a degenerate vector.
var ErrEmptyEmbedding = errors.New("provider returned an empty embedding")

// Embedder turns free text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.Embedding, error)
	Model() string
}

const defaultMemoEntries = 4096

// Memo remembers embeddings of identical texts so repeated candidates do not
// hit the provider twice.
type Memo struct {
	inner      Embedder
	maxEntries int

	mu      sync.RWMutex
	vectors map[string]domain.Embedding
}

// NewMemo wraps inner. maxEntries <= 0 uses a default cap; once full, new
// vectors are returned but not remembered.
func NewMemo(inner Embedder, maxEntries int) *Memo {
	if maxEntries <= 0 {
		maxEntries = defaultMemoEntries
	}
	return &Memo{
		inner:      inner,
		maxEntries: maxEntries,
		vectors:    make(map[string]domain.Embedding),
	}
}

func (m *Memo) Embed(ctx context.Context, text string) (domain.Embedding, error) {
	text = strings.TrimSpace(text)
	sum := sha256.Sum256([]byte(text))
	key := fmt.Sprintf("%x", sum[:])

	m.mu.RLock()
	vec, ok := m.vectors[key]
	m.mu.RUnlock()
	if ok {
		return vec, nil
	}

	vec, err := m.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if !vec.Valid() {
		return nil, ErrEmptyEmbedding
	}

	m.mu.Lock()
	if len(m.vectors) < m.maxEntries {
		m.vectors[key] = vec
	}
	m.mu.Unlock()

	return vec, nil
}

func (m *Memo) Model() string {
	return m.inner.Model()
}

// Len returns the number of remembered vectors.
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}
