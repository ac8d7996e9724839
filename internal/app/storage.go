package app

import (
	"context"
	"encoding/json"
	"errors"

	"myth-quiz-service/internal/domain"
	"myth-quiz-service/internal/logging"
)

// Keys of the documents kept in a session's storage.
const (
	StateKey   = "quizState"
	ResultsKey = "quizResults"
)

// Storage is the key/value namespace of one quiz session. Get returns
// domain.ErrNotFound for absent keys.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// SessionRepository abstracts how session namespaces are stored (in-memory, Redis, etc).
// Namespaces expire after a period of inactivity.
type SessionRepository interface {
	Create(ctx context.Context, sessionID string) error
	Open(ctx context.Context, sessionID string) (Storage, error)
	Drop(ctx context.Context, sessionID string) error
}

// readJSON decodes the document under key into dest. It returns false when the
// key is absent or the document cannot be decoded; neither case is an error
// for the caller.
func readJSON(ctx context.Context, store Storage, key string, dest any, logger logging.Logger) bool {
	raw, err := store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("failed to read from session storage", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		logger.Warn("discarding unreadable document", "key", key, "error", err)
		return false
	}
	return true
}

// writeJSON stores v under key and reports success. Failures are logged only.
func writeJSON(ctx context.Context, store Storage, key string, v any, logger logging.Logger) bool {
	raw, err := json.Marshal(v)
	if err != nil {
		logger.Warn("failed to encode document", "key", key, "error", err)
		return false
	}
	if err := store.Set(ctx, key, raw); err != nil {
		logger.Warn("failed to write to session storage", "key", key, "error", err)
		return false
	}
	return true
}
