package refdata

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"myth-quiz-service/internal/domain"
)

//go:embed data/questions.json
var embeddedQuestions []byte

//go:embed data/scoring.json
var embeddedScoring []byte

// Loader fetches the raw reference documents from a backing store.
type Loader interface {
	LoadDocuments(ctx context.Context) (Documents, error)
}

// EmbeddedDocuments returns the documents compiled into the binary.
func EmbeddedDocuments() Documents {
	return Documents{
		Questions: append([]byte{}, embeddedQuestions...),
		Scoring:   append([]byte{}, embeddedScoring...),
	}
}

// Default parses the embedded documents.
func Default() (*Reference, error) {
	return Parse(EmbeddedDocuments())
}

// EmbeddedLoader serves the built-in documents (useful for tests/demos).
type EmbeddedLoader struct{}

func (EmbeddedLoader) LoadDocuments(context.Context) (Documents, error) {
	return EmbeddedDocuments(), nil
}

// StaticLoader serves documents held in memory.
type StaticLoader struct {
	docs Documents
}

func NewStaticLoader(docs Documents) *StaticLoader {
	return &StaticLoader{docs: docs}
}

func (l *StaticLoader) LoadDocuments(context.Context) (Documents, error) {
	if len(l.docs.Questions) == 0 || len(l.docs.Scoring) == 0 {
		return Documents{}, domain.ErrReferenceNotFound
	}
	return l.docs, nil
}

// FileLoader reads the documents from disk on every call.
type FileLoader struct {
	QuestionsPath string
	ScoringPath   string
}

func (l FileLoader) LoadDocuments(context.Context) (Documents, error) {
	questions, err := os.ReadFile(l.QuestionsPath)
	if err != nil {
		return Documents{}, fmt.Errorf("read questions document: %w", err)
	}
	scoring, err := os.ReadFile(l.ScoringPath)
	if err != nil {
		return Documents{}, fmt.Errorf("read scoring document: %w", err)
	}
	return Documents{Questions: questions, Scoring: scoring}, nil
}
