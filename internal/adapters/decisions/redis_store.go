package decisions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"travel-route-service/internal/domain"
	"travel-route-service/internal/platform/obs"
	"travel-route-service/internal/ports"

	"github.com/redis/go-redis/v9"
)

const defaultMaxAttempts = 100

// RedisDecisionStore keeps one JSON document per draft. Update uses
// WATCH/MULTI so concurrent writers for the same key retry instead of
// overwriting each other's read.
type RedisDecisionStore struct {
	client      *redis.Client
	prefix      string
	ttl         time.Duration
	maxAttempts int
}

// NewRedisDecisionStore stores keys under prefix. ttl 0 keeps decisions
// until deleted; pending approvals have no deadline.
func NewRedisDecisionStore(client *redis.Client, prefix string, ttl time.Duration) *RedisDecisionStore {
	return &RedisDecisionStore{
		client:      client,
		prefix:      prefix,
		ttl:         ttl,
		maxAttempts: defaultMaxAttempts,
	}
}

// aborted carries an UpdateFunc error through the WATCH callback.
type aborted struct{ err error }

func (a aborted) Error() string { return a.err.Error() }

func (s *RedisDecisionStore) key(k string) string { return s.prefix + k }

func (s *RedisDecisionStore) Get(ctx context.Context, key string) (_ domain.AuthorizationDecision, err error) {
	defer obs.Time(ctx, "decisions.redis.Get")(&err)

	b, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.AuthorizationDecision{}, fmt.Errorf("get decision %q: %w", key, domain.ErrDecisionNotFound)
	}
	if err != nil {
		return domain.AuthorizationDecision{}, fmt.Errorf("get decision %q: %w: %w", key, domain.ErrStoreUnavailable, err)
	}

	var d domain.AuthorizationDecision
	if err := json.Unmarshal(b, &d); err != nil {
		return domain.AuthorizationDecision{}, fmt.Errorf("get decision %q: decode: %w", key, err)
	}
	return d, nil
}

func (s *RedisDecisionStore) Update(ctx context.Context, key string, fn ports.UpdateFunc) (_ domain.AuthorizationDecision, err error) {
	defer obs.Time(ctx, "decisions.redis.Update")(&err)

	k := s.key(key)

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		var out domain.AuthorizationDecision

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			var cur *domain.AuthorizationDecision

			b, err := tx.Get(ctx, k).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return err
			default:
				var d domain.AuthorizationDecision
				if err := json.Unmarshal(b, &d); err != nil {
					return aborted{fmt.Errorf("decode decision %q: %w", key, err)}
				}
				cur = &d
			}

			next, err := fn(cur)
			if err != nil {
				return aborted{err}
			}
			if next == nil {
				return aborted{errors.New("update func returned nil")}
			}

			payload, err := json.Marshal(next)
			if err != nil {
				return aborted{fmt.Errorf("encode decision %q: %w", key, err)}
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, k, payload, s.ttl)
				return nil
			})
			if err == nil {
				out = *next
			}
			return err
		}, k)

		if err == nil {
			return out, nil
		}

		var ab aborted
		if errors.As(err, &ab) {
			return domain.AuthorizationDecision{}, ab.err
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return domain.AuthorizationDecision{}, fmt.Errorf("update decision %q: %w: %w", key, domain.ErrStoreUnavailable, err)
	}

	return domain.AuthorizationDecision{}, fmt.Errorf(
		"update decision %q: too much contention after %d attempts: %w",
		key, s.maxAttempts, domain.ErrStoreUnavailable,
	)
}
