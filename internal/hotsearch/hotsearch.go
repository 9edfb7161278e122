package hotsearch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKey = "news:search:hot"

// Term is one searched query together with how often it was searched.
type Term struct {
	Query string  `json:"query"`
	Count float64 `json:"count"`
}

// Recorder counts search queries in a Redis sorted set.
type Recorder struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewRecorder(rdb *redis.Client, ttl time.Duration) *Recorder {
	return &Recorder{rdb: rdb, key: defaultKey, ttl: ttl}
}

// Record bumps the score of query. Queries are folded to lower case so
// "Go" and "go" share a counter. Empty queries are ignored.
func (r *Recorder) Record(ctx context.Context, query string) error {
	member := strings.ToLower(strings.TrimSpace(query))
	if member == "" {
		return nil
	}

	pipe := r.rdb.TxPipeline()
	pipe.ZIncrBy(ctx, r.key, 1, member)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record search %q: %w", member, err)
	}
	return nil
}

// Top returns up to n queries ordered by descending count.
func (r *Recorder) Top(ctx context.Context, n int) ([]Term, error) {
	if n <= 0 {
		return []Term{}, nil
	}
	zs, err := r.rdb.ZRevRangeWithScores(ctx, r.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read hot searches: %w", err)
	}
	out := make([]Term, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, Term{Query: member, Count: z.Score})
	}
	return out, nil
}
