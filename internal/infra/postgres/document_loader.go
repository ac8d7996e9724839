package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"myth-quiz-service/internal/domain"
	"myth-quiz-service/internal/refdata"
)

// DocumentLoader loads the reference documents (JSONB) from Postgres.
type DocumentLoader struct {
	pool *pgxpool.Pool
}

func NewDocumentLoader(pool *pgxpool.Pool) *DocumentLoader {
	return &DocumentLoader{pool: pool}
}

func (l *DocumentLoader) LoadDocuments(ctx context.Context) (refdata.Documents, error) {
	questions, err := l.load(ctx, refdata.DocQuestions)
	if err != nil {
		return refdata.Documents{}, err
	}
	scoring, err := l.load(ctx, refdata.DocScoring)
	if err != nil {
		return refdata.Documents{}, err
	}
	return refdata.Documents{Questions: questions, Scoring: scoring}, nil
}

func (l *DocumentLoader) load(ctx context.Context, name string) ([]byte, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM reference_documents WHERE name=$1`, name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load %s document: %w", name, domain.ErrReferenceNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s document: %w", name, err)
	}
	return raw, nil
}
