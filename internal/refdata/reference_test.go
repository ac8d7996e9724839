package refdata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myth-quiz-service/internal/domain"
)

func TestDefaultReference(t *testing.T) {
	ref, err := Default()
	require.NoError(t, err)

	areas := ref.Areas()
	require.Len(t, areas, 5)
	for i, area := range areas {
		assert.Equal(t, i+1, area.ID)
		assert.NotEmpty(t, area.Name)
		assert.Equal(t, 3, ref.QuestionCount(area.ID))
	}
	assert.Equal(t, 15, ref.TotalQuestions())
	assert.Equal(t, 15, ref.MaxScore())

	_, _, drift := ref.MaxScoreDrift()
	assert.False(t, drift)

	titles := ref.Scoring().Titles
	require.NotEmpty(t, titles)
	for i := 1; i < len(titles); i++ {
		assert.GreaterOrEqual(t, titles[i-1].MinScore, titles[i].MinScore)
	}
}

func TestQuestionLookupRespectsOwnership(t *testing.T) {
	ref, err := Default()
	require.NoError(t, err)

	q, ok := ref.Question(1, "q1a")
	require.True(t, ok)
	assert.Equal(t, "q1a", q.ID)

	_, ok = ref.Question(2, "q1a")
	assert.False(t, ok, "a question must not resolve under another area")

	owner, ok := ref.OwnerArea("q4b")
	require.True(t, ok)
	assert.Equal(t, 4, owner)
}

func TestParseNormalizesIDs(t *testing.T) {
	docs := Documents{
		Questions: []byte(`{
			"areas": {"1": "Only"},
			"questions": {"1": [
				{"id": " 1A ", "text": "?", "options": [{"id": " a ", "text": "yes", "correct": true}]}
			]}
		}`),
		Scoring: []byte(`{"maxScore": 1, "titles": [{"minScore": 0, "title": "All"}]}`),
	}
	ref, err := Parse(docs)
	require.NoError(t, err)

	q, ok := ref.Question(1, "q1a")
	require.True(t, ok)
	assert.Equal(t, "a", q.Options[0].ID)
	assert.Equal(t, DefaultCorrectExplanation, ref.Scoring().Explanations.Correct)
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	validScoring := []byte(`{"maxScore": 1, "titles": []}`)
	cases := map[string]Documents{
		"not json": {
			Questions: []byte(`{`),
			Scoring:   validScoring,
		},
		"schema violation": {
			Questions: []byte(`{"areas": {"1": "A"}, "questions": {"1": [{"id": "q1a"}]}}`),
			Scoring:   validScoring,
		},
		"unknown area": {
			Questions: []byte(`{"areas": {"1": "A"}, "questions": {"2": []}}`),
			Scoring:   validScoring,
		},
		"question in two areas": {
			Questions: []byte(`{"areas": {"1": "A", "2": "B"}, "questions": {
				"1": [{"id": "q1", "text": "", "options": [{"id": "a", "text": "", "correct": true}]}],
				"2": [{"id": "Q1", "text": "", "options": [{"id": "a", "text": "", "correct": true}]}]
			}}`),
			Scoring: validScoring,
		},
		"duplicate option": {
			Questions: []byte(`{"areas": {"1": "A"}, "questions": {"1": [
				{"id": "q1a", "text": "", "options": [
					{"id": "a", "text": "", "correct": true},
					{"id": "a ", "text": "", "correct": false}
				]}
			]}}`),
			Scoring: validScoring,
		},
		"tips for unknown area": {
			Questions: []byte(`{"areas": {"1": "A"}, "questions": {}}`),
			Scoring:   []byte(`{"maxScore": 0, "titles": [], "tipsByArea": {"3": ["x"]}}`),
		},
		"fractional max score": {
			Questions: []byte(`{"areas": {"1": "A"}, "questions": {}}`),
			Scoring:   []byte(`{"maxScore": 1.5, "titles": []}`),
		},
	}
	for name, docs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(docs)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidReference), "got %v", err)
		})
	}
}

func TestFileLoader(t *testing.T) {
	dir := t.TempDir()
	docs := EmbeddedDocuments()
	questionsPath := filepath.Join(dir, "questions.json")
	scoringPath := filepath.Join(dir, "scoring.json")
	require.NoError(t, os.WriteFile(questionsPath, docs.Questions, 0o600))
	require.NoError(t, os.WriteFile(scoringPath, docs.Scoring, 0o600))

	loaded, err := FileLoader{QuestionsPath: questionsPath, ScoringPath: scoringPath}.LoadDocuments(context.Background())
	require.NoError(t, err)
	_, err = Parse(loaded)
	require.NoError(t, err)

	_, err = FileLoader{QuestionsPath: filepath.Join(dir, "missing.json"), ScoringPath: scoringPath}.LoadDocuments(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "questions"))
}

func TestStaticLoaderWithoutDocuments(t *testing.T) {
	_, err := NewStaticLoader(Documents{}).LoadDocuments(context.Background())
	assert.ErrorIs(t, err, domain.ErrReferenceNotFound)
}
