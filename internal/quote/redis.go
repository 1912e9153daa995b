package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/stocktrack/backend/internal/models"
)

const (
	keyPrefix  = "quote:"
	tickersKey = "quote:tickers"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps snapshots in Redis so several instances can share one
// cache. Same contract as the memory store: no TTL on the keys, staleness
// stays advisory.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, ticker string) (models.Quote, bool, error) {
	payload, err := s.client.Get(ctx, keyPrefix+ticker).Result()
	if err == redis.Nil {
		return models.Quote{}, false, nil
	}
	if err != nil {
		return models.Quote{}, false, fmt.Errorf("redis get %s: %w", ticker, err)
	}

	var q models.Quote
	if err := json.Unmarshal([]byte(payload), &q); err != nil {
		return models.Quote{}, false, fmt.Errorf("decode cached quote %s: %w", ticker, err)
	}
	return q, true, nil
}

func (s *RedisStore) GetAll(ctx context.Context, tickers []string) (map[string]models.Quote, error) {
	if len(tickers) == 0 {
		return map[string]models.Quote{}, nil
	}

	keys := make([]string, len(tickers))
	for i, t := range tickers {
		keys[i] = keyPrefix + t
	}

	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	out := make(map[string]models.Quote, len(tickers))
	for i, val := range results {
		payload, ok := val.(string)
		if !ok || payload == "" {
			continue
		}
		var q models.Quote
		if err := json.Unmarshal([]byte(payload), &q); err != nil {
			continue
		}
		out[tickers[i]] = q
	}
	return out, nil
}

func (s *RedisStore) Put(ctx context.Context, q models.Quote) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode quote %s: %w", q.Ticker, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, keyPrefix+q.Ticker, payload, 0)
	pipe.SAdd(ctx, tickersKey, q.Ticker)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set %s: %w", q.Ticker, err)
	}
	return nil
}

func (s *RedisStore) Tickers(ctx context.Context) ([]string, error) {
	members, err := s.client.SMembers(ctx, tickersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	sort.Strings(members)
	return members, nil
}
