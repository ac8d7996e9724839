package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"myth-quiz-service/internal/domain"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, client := startRedis(t)
	store := NewSessionStore(client, time.Minute)
	ctx := context.Background()

	if err := store.Create(ctx, "s-1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected redis key to be set")
	}

	storage, err := store.Open(ctx, "s-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := storage.Set(ctx, "quizState", []byte(`{"currentArea":3}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := mr.HGet("quiz:session:s-1", "quizState"); got != `{"currentArea":3}` {
		t.Fatalf("unexpected hash field %q", got)
	}
	got, err := storage.Get(ctx, "quizState")
	if err != nil || string(got) != `{"currentArea":3}` {
		t.Fatalf("unexpected get result %q, %v", got, err)
	}
	if _, err := storage.Get(ctx, "quizResults"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := storage.Delete(ctx, "quizState"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := storage.Get(ctx, "quizState"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	if err := store.Drop(ctx, "s-1"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, err := store.Open(ctx, "s-1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionStoreExpiresIdleSessions(t *testing.T) {
	mr, client := startRedis(t)
	store := NewSessionStore(client, time.Minute)
	ctx := context.Background()

	_ = store.Create(ctx, "s-1")
	storage, err := store.Open(ctx, "s-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	mr.FastForward(45 * time.Second)
	if err := storage.Set(ctx, "quizState", []byte(`{}`)); err != nil {
		t.Fatalf("set before expiry: %v", err)
	}
	if ttl := mr.TTL("quiz:session:s-1"); ttl != time.Minute {
		t.Fatalf("expected ttl refreshed to a minute, got %v", ttl)
	}

	mr.FastForward(61 * time.Second)
	if _, err := storage.Get(ctx, "quizState"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}
}

func startRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}
