package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"myth-quiz-service/internal/logging"
	"myth-quiz-service/internal/refdata"
)

const referenceKey = "reference"

// ReferenceRepository caches parsed reference data with TTL to avoid
// repeated loads and schema validation.
type ReferenceRepository struct {
	loader refdata.Loader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	logger logging.Logger

	mu    sync.RWMutex
	entry *cachedReference
}

type cachedReference struct {
	ref       *refdata.Reference
	expiresAt time.Time
}

// NewReferenceRepository caches whatever loader returns for ttl. A ttl <= 0
// caches forever.
func NewReferenceRepository(loader refdata.Loader, ttl time.Duration, logger logging.Logger) *ReferenceRepository {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ReferenceRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
	}
}

func (r *ReferenceRepository) Reference(ctx context.Context) (*refdata.Reference, error) {
	if ref, ok := r.cached(r.clock()); ok {
		return ref, nil
	}

	result, err, _ := r.sf.Do(referenceKey, func() (interface{}, error) {
		now := r.clock()
		if ref, ok := r.cached(now); ok {
			return ref, nil
		}

		docs, err := r.loader.LoadDocuments(ctx)
		if err != nil {
			return nil, err
		}
		ref, err := refdata.Parse(docs)
		if err != nil {
			return nil, err
		}
		if configured, derived, drift := ref.MaxScoreDrift(); drift {
			r.logger.Warn("configured max score differs from question count",
				"configured", configured, "questions", derived)
		}

		r.mu.Lock()
		r.entry = &cachedReference{ref: ref, expiresAt: now.Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return ref, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*refdata.Reference), nil
}

// Invalidate forces the next call to reload.
func (r *ReferenceRepository) Invalidate() {
	r.mu.Lock()
	r.entry = nil
	r.mu.Unlock()
}

func (r *ReferenceRepository) cached(now time.Time) (*refdata.Reference, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.entry == nil {
		return nil, false
	}
	if r.ttl > 0 && !r.entry.expiresAt.After(now) {
		return nil, false
	}
	return r.entry.ref, true
}

func (r *ReferenceRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
