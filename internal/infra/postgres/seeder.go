package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"myth-quiz-service/internal/refdata"
)

// ReferenceDocument is one row of the reference_documents table.
type ReferenceDocument struct {
	bun.BaseModel `bun:"table:reference_documents"`

	Name      string    `bun:"name,pk"`
	Data      string    `bun:"data,type:jsonb,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

const upsertDocumentSQL = `INSERT INTO reference_documents (name, data, updated_at) VALUES (?, ?::jsonb, ?)
ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`

// SeedDocuments validates docs and upserts them, replacing existing rows.
// Invalid documents are rejected before anything is written.
func SeedDocuments(ctx context.Context, db *bun.DB, docs refdata.Documents, now time.Time) error {
	if _, err := refdata.Parse(docs); err != nil {
		return err
	}
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for name, data := range map[string][]byte{
			refdata.DocQuestions: docs.Questions,
			refdata.DocScoring:   docs.Scoring,
		} {
			if _, err := tx.ExecContext(ctx, upsertDocumentSQL, name, string(data), now); err != nil {
				return fmt.Errorf("seed %s document: %w", name, err)
			}
		}
		return nil
	})
}

// ListDocuments returns the stored document names and update times.
func ListDocuments(ctx context.Context, db *bun.DB) ([]ReferenceDocument, error) {
	var docs []ReferenceDocument
	err := db.NewSelect().
		Model(&docs).
		Column("name", "updated_at").
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reference documents: %w", err)
	}
	return docs, nil
}
