package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/abhisek/vocab/internal/review"
	"github.com/abhisek/vocab/internal/spacedrep"
)

// DefaultRedisPrefix namespaces every key the Redis store writes.
const DefaultRedisPrefix = "vocab"

// RedisOptions configures NewRedisStore.
type RedisOptions struct {
	Addr    string
	Prefix  string  // Key prefix. Default: DefaultRedisPrefix.
	MinEase float64 // Ease floor used to validate loaded states.
}

// RedisStore keeps scheduling states and day counters in Redis. States live
// in one hash keyed by item ID; each day is a hash of counters indexed by a
// sorted set. It implements review.StateStore, review.DayRecorder and
// review.DayReader.
type RedisStore struct {
	rdb     *goredis.Client
	prefix  string
	minEase float64
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultRedisPrefix
	}
	if opts.MinEase == 0 {
		opts.MinEase = spacedrep.MinEase
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{rdb: rdb, prefix: opts.Prefix, minEase: opts.MinEase}, nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) statesKey() string          { return s.prefix + ":states" }
func (s *RedisStore) daysKey() string            { return s.prefix + ":days" }
func (s *RedisStore) dayKey(d review.Day) string { return s.prefix + ":day:" + string(d) }

// Save writes the state of id as a JSON record.
func (s *RedisStore) Save(ctx context.Context, id spacedrep.ItemID, st spacedrep.State) error {
	raw, err := json.Marshal(spacedrep.ToRecord(id, st))
	if err != nil {
		return fmt.Errorf("marshal state %s: %w: %w", id, review.ErrRejected, err)
	}
	if err := s.rdb.HSet(ctx, s.statesKey(), string(id), raw).Err(); err != nil {
		return fmt.Errorf("save state %s: %w", id, err)
	}
	return nil
}

// Load returns the state of id, or nil if the item is unknown.
func (s *RedisStore) Load(ctx context.Context, id spacedrep.ItemID) (*spacedrep.State, error) {
	raw, err := s.rdb.HGet(ctx, s.statesKey(), string(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state %s: %w", id, err)
	}
	_, st, err := s.decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode state %s: %w", id, err)
	}
	return &st, nil
}

// Delete removes the state of id.
func (s *RedisStore) Delete(ctx context.Context, id spacedrep.ItemID) error {
	if err := s.rdb.HDel(ctx, s.statesKey(), string(id)).Err(); err != nil {
		return fmt.Errorf("delete state %s: %w", id, err)
	}
	return nil
}

// All returns every stored state.
func (s *RedisStore) All(ctx context.Context) (map[spacedrep.ItemID]spacedrep.State, error) {
	all, err := s.rdb.HGetAll(ctx, s.statesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("load states: %w", err)
	}
	out := make(map[spacedrep.ItemID]spacedrep.State, len(all))
	for field, raw := range all {
		id, st, err := s.decode([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("decode state %s: %w", field, err)
		}
		out[id] = st
	}
	return out, nil
}

func (s *RedisStore) decode(raw []byte) (spacedrep.ItemID, spacedrep.State, error) {
	var rec spacedrep.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return "", spacedrep.State{}, err
	}
	return spacedrep.FromRecord(rec, s.minEase)
}

// RecordDay increments the counters of day in one transaction.
func (s *RedisStore) RecordDay(ctx context.Context, day review.Day, delta review.DayDelta) error {
	t, err := time.Parse(review.DayLayout, string(day))
	if err != nil {
		return fmt.Errorf("parse day %q: %w: %w", day, review.ErrRejected, err)
	}

	key := s.dayKey(day)
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, "reviewed", int64(delta.Reviewed))
		pipe.HIncrBy(ctx, key, "introduced", int64(delta.Introduced))
		pipe.HIncrBy(ctx, key, "lapsed", int64(delta.Lapsed))
		pipe.HIncrBy(ctx, key, "matured", int64(delta.Matured))
		pipe.ZAdd(ctx, s.daysKey(), goredis.Z{Score: float64(t.Unix()), Member: string(day)})
		return nil
	})
	if err != nil {
		return fmt.Errorf("record day %s: %w", day, err)
	}
	return nil
}

// Days returns stored day aggregates, newest first. limit <= 0 returns all.
func (s *RedisStore) Days(ctx context.Context, limit int) ([]review.LearningDay, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	names, err := s.rdb.ZRevRange(ctx, s.daysKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}

	cmds := make([]*goredis.MapStringStringCmd, len(names))
	_, err = s.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, name := range names {
			cmds[i] = pipe.HGetAll(ctx, s.dayKey(review.Day(name)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load days: %w", err)
	}

	days := make([]review.LearningDay, 0, len(names))
	for i, name := range names {
		fields := cmds[i].Val()
		days = append(days, review.LearningDay{
			Day: review.Day(name),
			DayDelta: review.DayDelta{
				Reviewed:   atoi(fields["reviewed"]),
				Introduced: atoi(fields["introduced"]),
				Lapsed:     atoi(fields["lapsed"]),
				Matured:    atoi(fields["matured"]),
			},
		})
	}
	return days, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
