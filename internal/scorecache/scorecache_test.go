package scorecache

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/match-engine/internal/matching"
)

func sampleScore(candidate string) matching.MatchScore {
	return matching.MatchScore{
		SubjectID:   "p1",
		CandidateID: candidate,
		Overall:     0.72,
		SubScores:   &matching.SubScores{Sector: 1, Language: 0.6, Format: 0.3, Cultural: 0.5},
		Strategy:    matching.StrategyEmbedding,
		ComputedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestMemoryGetPut(t *testing.T) {
	ctx := context.Background()
	cache := NewMemory()
	key := matching.Key{SubjectID: "p1", CandidateID: "j1", Variant: "v1"}

	_, ok := cache.Get(ctx, key)
	assert.False(t, ok)

	cache.Put(ctx, key, sampleScore("j1"))
	got, ok := cache.Get(ctx, key)

	require.True(t, ok)
	assert.Equal(t, sampleScore("j1"), got)
	assert.Equal(t, 1, cache.Len())

	_, ok = cache.Get(ctx, matching.Key{SubjectID: "p1", CandidateID: "j1", Variant: "v2"})
	assert.False(t, ok)

	hits, misses := cache.Stats()
	assert.EqualValues(t, 1, hits)
	assert.EqualValues(t, 2, misses)
}

func TestMemoryConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	cache := NewMemory()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := matching.Key{SubjectID: "p1", CandidateID: fmt.Sprintf("j%d", i%10)}
			cache.Put(ctx, key, sampleScore(key.CandidateID))
			_, _ = cache.Get(ctx, key)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, cache.Len())
}

func TestTieredWithoutRedisUsesMemory(t *testing.T) {
	ctx := context.Background()
	cache := NewTiered(nil, nil, 0, zap.NewNop())
	key := matching.Key{SubjectID: "p1", CandidateID: "j1"}

	cache.Put(ctx, key, sampleScore("j1"))
	got, ok := cache.Get(ctx, key)

	require.True(t, ok)
	assert.Equal(t, 0.72, got.Overall)
	assert.Equal(t, 1, cache.Len())
}

func TestTieredBypassesUnreachableRedis(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.WarnLevel)
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	cache := NewTiered(NewMemory(), rdb, time.Minute, zap.New(core))

	_, ok := cache.Get(ctx, matching.Key{SubjectID: "p1", CandidateID: "missing"})
	assert.False(t, ok)

	key := matching.Key{SubjectID: "p1", CandidateID: "j1"}
	cache.Put(ctx, key, sampleScore("j1"))
	_, ok = cache.Get(ctx, key)
	assert.True(t, ok)

	assert.Equal(t, 1, logs.FilterMessage("redis unavailable, bypassing shared score cache").Len())
}

func TestConnectRejectsBadURL(t *testing.T) {
	assert.Nil(t, Connect(context.Background(), "", zap.NewNop()))
	assert.Nil(t, Connect(context.Background(), "not-a-url://", zap.NewNop()))
}

func TestRedisKeyIsStable(t *testing.T) {
	a := redisKey(matching.Key{SubjectID: "p", CandidateID: "j", Variant: "v"})
	b := redisKey(matching.Key{SubjectID: "p", CandidateID: "j", Variant: "v"})
	c := redisKey(matching.Key{SubjectID: "p", CandidateID: "j", Variant: "w"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, keyPrefix)
}

func TestTieredSharesScoresThroughRedis(t *testing.T) {
	url := os.Getenv("MATCH_ENGINE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("MATCH_ENGINE_TEST_REDIS_URL is not set")
	}

	ctx := context.Background()
	rdb := Connect(ctx, url, zap.NewNop())
	require.NotNil(t, rdb)
	t.Cleanup(func() { _ = rdb.Close() })

	key := matching.Key{SubjectID: "p1", CandidateID: fmt.Sprintf("j-%d", time.Now().UnixNano())}
	writer := NewTiered(NewMemory(), rdb, time.Minute, zap.NewNop())
	reader := NewTiered(NewMemory(), rdb, time.Minute, zap.NewNop())

	writer.Put(ctx, key, sampleScore(key.CandidateID))
	got, ok := reader.Get(ctx, key)

	require.True(t, ok)
	assert.Equal(t, 0.72, got.Overall)
	require.NotNil(t, got.SubScores)
	assert.Equal(t, 0.6, got.SubScores.Language)
	assert.Equal(t, 1, reader.Len())
	t.Cleanup(func() { rdb.Del(context.Background(), redisKey(key)) })
}
