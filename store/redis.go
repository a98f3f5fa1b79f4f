package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/tuneflow/tuning"
)

// feedbackCap bounds the per-agent feedback list.
const feedbackCap = 1000

// RedisStore keeps JSON documents in Redis. Adjustment batches use
// WATCH/MULTI so a concurrent writer aborts the transaction.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisStore creates a store using client. An empty prefix defaults to "tuneflow:".
func NewRedisStore(client redis.UniversalClient, keyPrefix string, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if keyPrefix == "" {
		keyPrefix = "tuneflow:"
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger.With(zap.String("component", "redis_store")),
	}
}

func (s *RedisStore) paramKey(name string) string     { return s.keyPrefix + "param:" + name }
func (s *RedisStore) paramOrderKey() string           { return s.keyPrefix + "params:order" }
func (s *RedisStore) strategyKey(id string) string    { return s.keyPrefix + "strategy:" + id }
func (s *RedisStore) strategyOrderKey() string        { return s.keyPrefix + "strategies:order" }
func (s *RedisStore) perfKey(id string) string        { return s.keyPrefix + "perf:" + id }
func (s *RedisStore) feedbackKey(agent string) string { return s.keyPrefix + "feedback:" + agent }

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close is a no-op; the cache manager owns the client.
func (s *RedisStore) Close() error { return nil }

func (s *RedisStore) CreateParameter(ctx context.Context, p *tuning.Parameter) error {
	return s.create(ctx, s.paramKey(p.Name), s.paramOrderKey(), p.Name, p, "parameter")
}

func (s *RedisStore) GetParameter(ctx context.Context, name string) (*tuning.Parameter, error) {
	var p tuning.Parameter
	if err := s.get(ctx, s.paramKey(name), &p, "parameter", name); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *RedisStore) ListParameters(ctx context.Context) ([]*tuning.Parameter, error) {
	names, err := s.client.LRange(ctx, s.paramOrderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list parameter names: %w", err)
	}
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = s.paramKey(n)
	}
	out := make([]*tuning.Parameter, 0, len(names))
	err = s.mget(ctx, keys, func(data []byte) error {
		var p tuning.Parameter
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		out = append(out, &p)
		return nil
	})
	return out, err
}

// ApplyAdjustments checks versions and writes under WATCH. A version mismatch
// or an aborted EXEC both report ErrVersionConflict.
func (s *RedisStore) ApplyAdjustments(ctx context.Context, cmds []tuning.AdjustmentCommand) error {
	if len(cmds) == 0 {
		return nil
	}
	keys := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		keys = append(keys, s.paramKey(cmd.Name))
	}

	txf := func(tx *redis.Tx) error {
		staged := make(map[string]*tuning.Parameter, len(cmds))
		order := make([]string, 0, len(cmds))
		for _, cmd := range cmds {
			p, ok := staged[cmd.Name]
			if !ok {
				data, err := tx.Get(ctx, s.paramKey(cmd.Name)).Bytes()
				if errors.Is(err, redis.Nil) {
					return fmt.Errorf("parameter %s: %w", cmd.Name, tuning.ErrNotFound)
				}
				if err != nil {
					return err
				}
				p = &tuning.Parameter{}
				if err := json.Unmarshal(data, p); err != nil {
					return fmt.Errorf("decode parameter %s: %w", cmd.Name, err)
				}
				staged[cmd.Name] = p
				order = append(order, cmd.Name)
			}
			if p.Version != cmd.ExpectedVersion {
				return fmt.Errorf("parameter %s at version %d, expected %d: %w",
					cmd.Name, p.Version, cmd.ExpectedVersion, tuning.ErrVersionConflict)
			}
			p.Apply(cmd.Record)
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, name := range order {
				data, err := json.Marshal(staged[name])
				if err != nil {
					return err
				}
				pipe.Set(ctx, s.paramKey(name), data, 0)
			}
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txf, keys...)
	if errors.Is(err, redis.TxFailedErr) {
		s.logger.Debug("adjustment transaction aborted by concurrent write")
		return fmt.Errorf("watched parameters changed: %w", tuning.ErrVersionConflict)
	}
	return err
}

func (s *RedisStore) CreateStrategy(ctx context.Context, st *tuning.Strategy) error {
	return s.create(ctx, s.strategyKey(st.ID), s.strategyOrderKey(), st.ID, st, "strategy")
}

func (s *RedisStore) GetStrategy(ctx context.Context, id string) (*tuning.Strategy, error) {
	var st tuning.Strategy
	if err := s.get(ctx, s.strategyKey(id), &st, "strategy", id); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *RedisStore) ListStrategies(ctx context.Context) ([]*tuning.Strategy, error) {
	ids, err := s.client.LRange(ctx, s.strategyOrderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list strategy ids: %w", err)
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.strategyKey(id)
	}
	out := make([]*tuning.Strategy, 0, len(ids))
	err = s.mget(ctx, keys, func(data []byte) error {
		var st tuning.Strategy
		if err := json.Unmarshal(data, &st); err != nil {
			return err
		}
		out = append(out, &st)
		return nil
	})
	return out, err
}

func (s *RedisStore) RecordPerformance(ctx context.Context, sample *tuning.PerformanceSample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.perfKey(sample.ID), data, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("performance %s: %w", sample.ID, tuning.ErrAlreadyExists)
	}
	return nil
}

func (s *RedisStore) GetPerformance(ctx context.Context, id string) (*tuning.PerformanceSample, error) {
	var sample tuning.PerformanceSample
	if err := s.get(ctx, s.perfKey(id), &sample, "performance", id); err != nil {
		return nil, err
	}
	return &sample, nil
}

func (s *RedisStore) RecordFeedback(ctx context.Context, f *tuning.AgentFeedback) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	key := s.feedbackKey(f.AgentID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, feedbackCap-1)
		return nil
	})
	return err
}

// RecentFeedback returns the newest limit records of each agent, newest first.
func (s *RedisStore) RecentFeedback(ctx context.Context, agentIDs []string, limit int) ([]tuning.AgentFeedback, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	out := make([]tuning.AgentFeedback, 0)
	for _, id := range agentIDs {
		items, err := s.client.LRange(ctx, s.feedbackKey(id), 0, stop).Result()
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			var f tuning.AgentFeedback
			if err := json.Unmarshal([]byte(item), &f); err != nil {
				return nil, fmt.Errorf("decode feedback for %s: %w", id, err)
			}
			out = append(out, f)
		}
	}
	return out, nil
}

// createScript 原子地登记顺序并写入文档。先 RPUSH 后 SET，
// RPUSH 失败时脚本中止且不留下孤立文档。
var createScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 1 then
		return 0
	end
	redis.call('RPUSH', KEYS[2], ARGV[2])
	redis.call('SET', KEYS[1], ARGV[1])
	return 1
`)

func (s *RedisStore) create(ctx context.Context, key, orderKey, id string, v any, kind string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	created, err := createScript.Run(ctx, s.client, []string{key, orderKey}, data, id).Int()
	if err != nil {
		return fmt.Errorf("create %s %s: %w", kind, id, err)
	}
	if created == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, tuning.ErrAlreadyExists)
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, key string, v any, kind, id string) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s %s: %w", kind, id, tuning.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *RedisStore) mget(ctx context.Context, keys []string, decode func([]byte) error) error {
	if len(keys) == 0 {
		return nil
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return err
	}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			s.logger.Warn("indexed key missing", zap.String("key", keys[i]))
			continue
		}
		if err := decode([]byte(str)); err != nil {
			return fmt.Errorf("decode %s: %w", keys[i], err)
		}
	}
	return nil
}

var _ tuning.Store = (*RedisStore)(nil)
