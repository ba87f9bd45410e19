package scorecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spigell/match-engine/internal/logger"
	"github.com/spigell/match-engine/internal/matching"
)

const (
	keyPrefix = "matchengine:score:"
	// DefaultTTL bounds how long a score lives in Redis.
	DefaultTTL = 15 * time.Minute
)

// Tiered keeps scores in memory and shares them through Redis. Redis errors
// never fail a lookup; the cache falls back to memory and warns once.
type Tiered struct {
	l1  *Memory
	rdb redis.Cmdable
	ttl time.Duration
	log *zap.Logger

	warnedUnavailable atomic.Bool
}

var _ matching.ScoreCache = (*Tiered)(nil)

// NewTiered wraps l1 with a Redis tier. A nil rdb disables the Redis tier.
func NewTiered(l1 *Memory, rdb redis.Cmdable, ttl time.Duration, log *zap.Logger) *Tiered {
	if l1 == nil {
		l1 = NewMemory()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tiered{l1: l1, rdb: rdb, ttl: ttl, log: logger.WithFields(log)}
}

// Connect parses a redis:// URL and verifies the server responds. It returns
// nil and logs a warning when Redis is unreachable.
func Connect(ctx context.Context, url string, log *zap.Logger) *redis.Client {
	log = logger.WithFields(log)
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("invalid redis url, score cache stays in memory", zap.Error(err))
		return nil
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, score cache stays in memory", zap.String("addr", opts.Addr), zap.Error(err))
		_ = client.Close()
		return nil
	}

	log.Info("score cache connected to redis", zap.String("addr", opts.Addr))
	return client
}

func (t *Tiered) Get(ctx context.Context, key matching.Key) (matching.MatchScore, bool) {
	if score, ok := t.l1.Get(ctx, key); ok {
		return score, true
	}
	if t.rdb == nil {
		return matching.MatchScore{}, false
	}

	data, err := t.rdb.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			t.warnUnavailableOnce(err)
		}
		return matching.MatchScore{}, false
	}

	var score matching.MatchScore
	if err := json.Unmarshal(data, &score); err != nil {
		t.log.Debug("discarding corrupt cached score", zap.Error(err))
		return matching.MatchScore{}, false
	}

	t.l1.Put(ctx, key, score)
	return score, true
}

func (t *Tiered) Put(ctx context.Context, key matching.Key, score matching.MatchScore) {
	t.l1.Put(ctx, key, score)
	if t.rdb == nil {
		return
	}

	data, err := json.Marshal(score)
	if err != nil {
		return
	}
	if err := t.rdb.Set(ctx, redisKey(key), data, t.ttl).Err(); err != nil {
		t.warnUnavailableOnce(err)
	}
}

// Len returns the number of scores in the memory tier.
func (t *Tiered) Len() int {
	return t.l1.Len()
}

func (t *Tiered) warnUnavailableOnce(err error) {
	if t.warnedUnavailable.CompareAndSwap(false, true) {
		t.log.Warn("redis unavailable, bypassing shared score cache", zap.Error(err))
	}
}

func redisKey(key matching.Key) string {
	sum := sha256.Sum256([]byte(key.SubjectID + "|" + key.CandidateID + "|" + key.Variant))
	return keyPrefix + hex.EncodeToString(sum[:16])
}
