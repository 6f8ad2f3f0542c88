package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultSessionKeyPrefix namespaces session keys in Redis.
const DefaultSessionKeyPrefix = "quiz:session:"

// RedisSessionRepo implements SessionRepo on Redis. Every Save refreshes
// the key's TTL, so idle sessions expire on their own.
type RedisSessionRepo struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisSessionRepo returns a repo storing sessions under
// DefaultSessionKeyPrefix. A zero ttl keeps keys until deleted.
func NewRedisSessionRepo(rdb *redis.Client, ttl time.Duration) *RedisSessionRepo {
	return &RedisSessionRepo{rdb: rdb, ttl: ttl, prefix: DefaultSessionKeyPrefix}
}

// OpenRedis connects to Redis and verifies the connection.
func OpenRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

// redisSession is the JSON envelope stored under each key.
type redisSession struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Completed bool            `json:"completed"`
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"createdAt"`
	UpdatedAt int64           `json:"updatedAt"`
}

func (r *RedisSessionRepo) key(id string) string {
	return r.prefix + id
}

func (r *RedisSessionRepo) Save(ctx context.Context, rec *SessionRecord) error {
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	b, err := json.Marshal(redisSession{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Completed: rec.Completed,
		Data:      json.RawMessage(rec.Data),
		CreatedAt: rec.CreatedAt.Unix(),
		UpdatedAt: rec.UpdatedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", rec.ID, err)
	}
	if err := r.rdb.Set(ctx, r.key(rec.ID), b, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", rec.ID, err)
	}
	return nil
}

func (r *RedisSessionRepo) Get(ctx context.Context, id string) (*SessionRecord, error) {
	b, err := r.rdb.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return decodeRedisSession(b)
}

func (r *RedisSessionRepo) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// Sweep scans the key space. TTL already covers idle sessions when set;
// Sweep additionally applies the retention rules of opts.
func (r *RedisSessionRepo) Sweep(ctx context.Context, opts SweepOpts) (int, error) {
	if opts.CompletedBefore.IsZero() && opts.IdleBefore.IsZero() {
		return 0, nil
	}

	removed := 0
	iter := r.rdb.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		b, err := r.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // expired between SCAN and GET
		}
		if err != nil {
			return removed, fmt.Errorf("get %s: %w", key, err)
		}
		rec, err := decodeRedisSession(b)
		if err != nil {
			return removed, err
		}
		if !sweepable(rec, opts) {
			continue
		}
		if err := r.rdb.Del(ctx, key).Err(); err != nil {
			return removed, fmt.Errorf("delete %s: %w", key, err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan sessions: %w", err)
	}
	return removed, nil
}

func sweepable(rec *SessionRecord, opts SweepOpts) bool {
	if rec.Completed {
		return !opts.CompletedBefore.IsZero() && rec.CreatedAt.Before(opts.CompletedBefore)
	}
	return !opts.IdleBefore.IsZero() && rec.UpdatedAt.Before(opts.IdleBefore)
}

func decodeRedisSession(b []byte) (*SessionRecord, error) {
	var rs redisSession
	if err := json.Unmarshal(b, &rs); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &SessionRecord{
		ID:        rs.ID,
		UserID:    rs.UserID,
		Completed: rs.Completed,
		Data:      []byte(rs.Data),
		CreatedAt: time.Unix(rs.CreatedAt, 0).UTC(),
		UpdatedAt: time.Unix(rs.UpdatedAt, 0).UTC(),
	}, nil
}
