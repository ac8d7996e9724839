package redis

import (
	"bytes"
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"myth-quiz-service/internal/logging"
	"myth-quiz-service/internal/refdata"
)

const (
	questionsKey = "quiz:refdata:questions"
	scoringKey   = "quiz:refdata:scoring"
)

// ReferenceRepository caches the raw reference documents in Redis so that
// instances share one copy, and falls back to a loader on cache miss.
// Documents are stored as: SET quiz:refdata:{name} {json}
type ReferenceRepository struct {
	client *redis.Client
	loader refdata.Loader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	logger logging.Logger

	// the last parsed documents, reused while Redis serves the same bytes
	mu       sync.Mutex
	lastDocs refdata.Documents
	last     *refdata.Reference
}

func NewReferenceRepository(client *redis.Client, loader refdata.Loader, ttl time.Duration, logger logging.Logger) *ReferenceRepository {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ReferenceRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
	}
}

func (r *ReferenceRepository) Reference(ctx context.Context) (*refdata.Reference, error) {
	if ref, ok := r.fromCache(ctx); ok {
		return ref, nil
	}

	result, err, _ := r.sf.Do("refdata", func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if ref, ok := r.fromCache(ctx); ok {
			return ref, nil
		}

		docs, err := r.loader.LoadDocuments(ctx)
		if err != nil {
			return nil, err
		}
		ref, err := r.parse(docs)
		if err != nil {
			return nil, err
		}

		ttl := r.ttlWithJitter()
		pipe := r.client.Pipeline()
		pipe.Set(ctx, questionsKey, docs.Questions, ttl)
		pipe.Set(ctx, scoringKey, docs.Scoring, ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			r.logger.Warn("cache reference documents", "error", err)
		}
		return ref, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*refdata.Reference), nil
}

// Invalidate removes the cached documents so the next call reloads them.
func (r *ReferenceRepository) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, questionsKey, scoringKey).Err()
}

func (r *ReferenceRepository) fromCache(ctx context.Context) (*refdata.Reference, bool) {
	values, err := r.client.MGet(ctx, questionsKey, scoringKey).Result()
	if err != nil {
		r.logger.Warn("read cached reference documents", "error", err)
		return nil, false
	}
	docs, ok := documentsFromValues(values)
	if !ok {
		return nil, false
	}
	ref, err := r.parse(docs)
	if err != nil {
		r.logger.Warn("cached reference documents are invalid, reloading", "error", err)
		return nil, false
	}
	return ref, true
}

func (r *ReferenceRepository) parse(docs refdata.Documents) (*refdata.Reference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last != nil && bytes.Equal(r.lastDocs.Questions, docs.Questions) && bytes.Equal(r.lastDocs.Scoring, docs.Scoring) {
		return r.last, nil
	}
	ref, err := refdata.Parse(docs)
	if err != nil {
		return nil, err
	}
	if configured, derived, drift := ref.MaxScoreDrift(); drift {
		r.logger.Warn("configured max score differs from question count",
			"configured", configured, "questions", derived)
	}
	r.lastDocs, r.last = docs, ref
	return ref, nil
}

func documentsFromValues(values []interface{}) (refdata.Documents, bool) {
	if len(values) != 2 {
		return refdata.Documents{}, false
	}
	questions, ok := values[0].(string)
	if !ok || questions == "" {
		return refdata.Documents{}, false
	}
	scoring, ok := values[1].(string)
	if !ok || scoring == "" {
		return refdata.Documents{}, false
	}
	return refdata.Documents{Questions: []byte(questions), Scoring: []byte(scoring)}, true
}

func (r *ReferenceRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
