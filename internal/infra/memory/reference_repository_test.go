package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"myth-quiz-service/internal/domain"
	"myth-quiz-service/internal/logging"
	"myth-quiz-service/internal/refdata"
)

func TestReferenceRepositoryCaches(t *testing.T) {
	loader := &countingLoader{Loader: refdata.EmbeddedLoader{}}
	repo := NewReferenceRepository(loader, time.Minute, logging.NewNop())

	ref, err := repo.Reference(context.Background())
	if err != nil {
		t.Fatalf("get reference: %v", err)
	}
	if ref.AreaCount() != 5 {
		t.Fatalf("expected 5 areas, got %d", ref.AreaCount())
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.Reference(context.Background()); err != nil {
		t.Fatalf("get reference 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestReferenceRepositoryReloadsAfterExpiry(t *testing.T) {
	loader := &countingLoader{Loader: refdata.EmbeddedLoader{}}
	repo := NewReferenceRepository(loader, time.Minute, logging.NewNop())
	now := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	if _, err := repo.Reference(context.Background()); err != nil {
		t.Fatalf("get reference: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := repo.Reference(context.Background()); err != nil {
		t.Fatalf("get reference after expiry: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}

	repo.Invalidate()
	if _, err := repo.Reference(context.Background()); err != nil {
		t.Fatalf("get reference after invalidate: %v", err)
	}
	if loader.calls != 3 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls)
	}
}

func TestReferenceRepositoryPropagatesLoaderErrors(t *testing.T) {
	repo := NewReferenceRepository(refdata.NewStaticLoader(refdata.Documents{}), time.Minute, nil)

	if _, err := repo.Reference(context.Background()); !errors.Is(err, domain.ErrReferenceNotFound) {
		t.Fatalf("expected ErrReferenceNotFound, got %v", err)
	}
}

func TestReferenceRepositoryRejectsInvalidDocuments(t *testing.T) {
	docs := refdata.EmbeddedDocuments()
	docs.Scoring = []byte(`{"maxScore": "fifteen"}`)
	repo := NewReferenceRepository(refdata.NewStaticLoader(docs), time.Minute, nil)

	if _, err := repo.Reference(context.Background()); !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
}

type countingLoader struct {
	refdata.Loader
	calls int
}

func (l *countingLoader) LoadDocuments(ctx context.Context) (refdata.Documents, error) {
	l.calls++
	return l.Loader.LoadDocuments(ctx)
}
