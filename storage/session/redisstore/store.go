// Package redisstore is a session.Store backed by Redis, for portals running more than one instance.
package redisstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/cace/core/session"
)

const keyPrefix = "cace:session:"

// Store keeps each token under "cace:session:<sid>". A non-zero TTL expires idle sessions;
// every read slides the expiry.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ session.Store = (*Store)(nil)

func New(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Connect opens a client and waits for the server to answer a PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return rdb, nil
}

func key(sid string) string {
	return keyPrefix + sid
}

func (s *Store) Save(ctx context.Context, sid, token string) error {
	if err := s.rdb.Set(ctx, key(sid), token, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "saving session token")
	}
	return nil
}

func (s *Store) Read(ctx context.Context, sid string) (string, bool, error) {
	token, err := s.rdb.Get(ctx, key(sid)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "reading session token")
	}
	if s.ttl > 0 {
		if err = s.rdb.Expire(ctx, key(sid), s.ttl).Err(); err != nil {
			return "", false, errors.Wrap(err, "refreshing session expiry")
		}
	}
	return token, true, nil
}

func (s *Store) Clear(ctx context.Context, sid string) error {
	if err := s.rdb.Del(ctx, key(sid)).Err(); err != nil {
		return errors.Wrap(err, "clearing session token")
	}
	return nil
}
