package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"myth-quiz-service/internal/app"
	"myth-quiz-service/internal/domain"
)

// createdField marks a session hash as existing even before any value is stored.
const createdField = "_created"

// SessionStore is a Redis implementation of app.SessionRepository.
// Each session is one hash: HSET quiz:session:{sessionID} {key} {value}.
// The hash expires after ttl of inactivity; every access refreshes it.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Create(ctx context.Context, sessionID string) error {
	key := s.key(sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, createdField, strconv.FormatInt(time.Now().Unix(), 10))
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *SessionStore) Open(ctx context.Context, sessionID string) (app.Storage, error) {
	if err := s.touch(ctx, sessionID); err != nil {
		return nil, err
	}
	return &sessionStorage{store: s, sessionID: sessionID}, nil
}

func (s *SessionStore) Drop(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("drop session: %w", err)
	}
	return nil
}

// touch refreshes the idle timer and reports a missing session.
func (s *SessionStore) touch(ctx context.Context, sessionID string) error {
	key := s.key(sessionID)
	if s.ttl <= 0 {
		n, err := s.client.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("check session: %w", err)
		}
		if n == 0 {
			return domain.ErrSessionNotFound
		}
		return nil
	}
	ok, err := s.client.Expire(ctx, key, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	if !ok {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}

type sessionStorage struct {
	store     *SessionStore
	sessionID string
}

func (st *sessionStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if err := st.store.touch(ctx, st.sessionID); err != nil {
		return nil, err
	}
	value, err := st.store.client.HGet(ctx, st.store.key(st.sessionID), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

func (st *sessionStorage) Set(ctx context.Context, key string, value []byte) error {
	if err := st.store.touch(ctx, st.sessionID); err != nil {
		return err
	}
	if err := st.store.client.HSet(ctx, st.store.key(st.sessionID), key, value).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (st *sessionStorage) Delete(ctx context.Context, key string) error {
	if err := st.store.touch(ctx, st.sessionID); err != nil {
		return err
	}
	if err := st.store.client.HDel(ctx, st.store.key(st.sessionID), key).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
