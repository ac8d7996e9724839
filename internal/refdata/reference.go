// Package refdata holds the read-only quiz reference data: areas, questions
// and the scoring rules (title thresholds, tips, explanation templates).
package refdata

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"myth-quiz-service/internal/domain"
)

// Document names, also used as storage keys by the loaders.
const (
	DocQuestions = "questions"
	DocScoring   = "scoring"
)

// Fallback explanation templates used when the scoring document has none.
const (
	DefaultCorrectExplanation   = "Correct! {description}"
	DefaultIncorrectExplanation = "Not quite. The correct answer: {correct}. {description}"
)

// Documents are the raw JSON reference documents.
type Documents struct {
	Questions []byte
	Scoring   []byte
}

// Explanations are the templates for per-question feedback. Supported
// placeholders are {correct}, {selected} and {description}.
type Explanations struct {
	Correct   string `json:"correct"`
	Incorrect string `json:"incorrect"`
}

// Scoring is the parsed scoring document.
type Scoring struct {
	MaxScore     int
	Titles       []domain.Title // sorted by MinScore, highest first
	TipsByArea   map[int][]string
	DefaultTips  []string
	Explanations Explanations
}

// Reference is the immutable, validated reference data set.
type Reference struct {
	areas          []domain.Area
	names          map[int]string
	questions      map[int][]domain.Question
	owner          map[string]int
	scoring        Scoring
	totalQuestions int
}

type questionsDocument struct {
	Areas     map[string]string            `json:"areas"`
	Questions map[string][]domain.Question `json:"questions"`
}

type scoringDocument struct {
	MaxScore     int                 `json:"maxScore"`
	Titles       []domain.Title      `json:"titles"`
	TipsByArea   map[string][]string `json:"tipsByArea"`
	DefaultTips  []string            `json:"defaultTips"`
	Explanations *Explanations       `json:"explanations"`
}

// Parse validates both documents against their schemas and builds a Reference.
// Question and option IDs are canonicalized here so that lookups elsewhere
// only ever see one ID format.
func Parse(docs Documents) (*Reference, error) {
	if err := validateDocument(DocQuestions, docs.Questions); err != nil {
		return nil, err
	}
	if err := validateDocument(DocScoring, docs.Scoring); err != nil {
		return nil, err
	}

	var qdoc questionsDocument
	if err := json.Unmarshal(docs.Questions, &qdoc); err != nil {
		return nil, fmt.Errorf("%w: decode questions: %v", domain.ErrInvalidReference, err)
	}
	var sdoc scoringDocument
	if err := json.Unmarshal(docs.Scoring, &sdoc); err != nil {
		return nil, fmt.Errorf("%w: decode scoring: %v", domain.ErrInvalidReference, err)
	}

	ref := &Reference{
		names:     make(map[int]string, len(qdoc.Areas)),
		questions: make(map[int][]domain.Question, len(qdoc.Areas)),
		owner:     make(map[string]int),
	}

	for key, name := range qdoc.Areas {
		areaID, err := parseAreaID(key)
		if err != nil {
			return nil, err
		}
		ref.names[areaID] = name
		ref.areas = append(ref.areas, domain.Area{ID: areaID, Name: name})
	}
	sort.Slice(ref.areas, func(i, j int) bool { return ref.areas[i].ID < ref.areas[j].ID })

	for key, questions := range qdoc.Questions {
		areaID, err := parseAreaID(key)
		if err != nil {
			return nil, err
		}
		if _, ok := ref.names[areaID]; !ok {
			return nil, fmt.Errorf("%w: questions reference unknown area %d", domain.ErrInvalidReference, areaID)
		}
		normalized := make([]domain.Question, 0, len(questions))
		for _, q := range questions {
			q, err := normalizeQuestion(q)
			if err != nil {
				return nil, err
			}
			if other, dup := ref.owner[q.ID]; dup {
				return nil, fmt.Errorf("%w: question %s defined in areas %d and %d", domain.ErrInvalidReference, q.ID, other, areaID)
			}
			ref.owner[q.ID] = areaID
			normalized = append(normalized, q)
		}
		ref.questions[areaID] = normalized
		ref.totalQuestions += len(normalized)
	}

	scoring, err := buildScoring(sdoc, ref.names)
	if err != nil {
		return nil, err
	}
	ref.scoring = scoring
	return ref, nil
}

func parseAreaID(key string) (int, error) {
	areaID, err := strconv.Atoi(key)
	if err != nil || areaID < 1 {
		return 0, fmt.Errorf("%w: bad area id %q", domain.ErrInvalidReference, key)
	}
	return areaID, nil
}

func normalizeQuestion(q domain.Question) (domain.Question, error) {
	id := domain.NormalizeQuestionID(q.ID)
	if id == "" {
		return domain.Question{}, fmt.Errorf("%w: empty question id", domain.ErrInvalidReference)
	}
	q.ID = id

	options := make([]domain.Option, 0, len(q.Options))
	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		opt.ID = domain.NormalizeOptionID(opt.ID)
		if opt.ID == "" {
			return domain.Question{}, fmt.Errorf("%w: question %s has an option without id", domain.ErrInvalidReference, id)
		}
		if _, dup := seen[opt.ID]; dup {
			return domain.Question{}, fmt.Errorf("%w: question %s repeats option %s", domain.ErrInvalidReference, id, opt.ID)
		}
		seen[opt.ID] = struct{}{}
		options = append(options, opt)
	}
	q.Options = options
	return q, nil
}

func buildScoring(doc scoringDocument, areas map[int]string) (Scoring, error) {
	scoring := Scoring{
		MaxScore:    doc.MaxScore,
		Titles:      append([]domain.Title{}, doc.Titles...),
		TipsByArea:  make(map[int][]string, len(doc.TipsByArea)),
		DefaultTips: append([]string{}, doc.DefaultTips...),
		Explanations: Explanations{
			Correct:   DefaultCorrectExplanation,
			Incorrect: DefaultIncorrectExplanation,
		},
	}
	sort.SliceStable(scoring.Titles, func(i, j int) bool {
		return scoring.Titles[i].MinScore > scoring.Titles[j].MinScore
	})

	for key, tips := range doc.TipsByArea {
		areaID, err := parseAreaID(key)
		if err != nil {
			return Scoring{}, err
		}
		if _, ok := areas[areaID]; !ok {
			return Scoring{}, fmt.Errorf("%w: tips reference unknown area %d", domain.ErrInvalidReference, areaID)
		}
		scoring.TipsByArea[areaID] = append([]string{}, tips...)
	}

	if doc.Explanations != nil {
		if doc.Explanations.Correct != "" {
			scoring.Explanations.Correct = doc.Explanations.Correct
		}
		if doc.Explanations.Incorrect != "" {
			scoring.Explanations.Incorrect = doc.Explanations.Incorrect
		}
	}
	return scoring, nil
}

// Areas returns the areas in progression order.
func (r *Reference) Areas() []domain.Area {
	return append([]domain.Area{}, r.areas...)
}

// AreaCount is N, the number of areas; N+1 is the "ready for results" position.
func (r *Reference) AreaCount() int {
	return len(r.areas)
}

// HasArea reports whether the area exists.
func (r *Reference) HasArea(areaID int) bool {
	_, ok := r.names[areaID]
	return ok
}

// AreaName returns the human-readable area name, or "" for unknown areas.
func (r *Reference) AreaName(areaID int) string {
	return r.names[areaID]
}

// Questions returns the ordered questions of an area.
func (r *Reference) Questions(areaID int) []domain.Question {
	return append([]domain.Question{}, r.questions[areaID]...)
}

// Question resolves a question by area and canonical ID. A question that
// belongs to another area does not resolve.
func (r *Reference) Question(areaID int, questionID string) (domain.Question, bool) {
	if owner, ok := r.owner[questionID]; !ok || owner != areaID {
		return domain.Question{}, false
	}
	for _, q := range r.questions[areaID] {
		if q.ID == questionID {
			return q, true
		}
	}
	return domain.Question{}, false
}

// OwnerArea returns the area a canonical question ID belongs to.
func (r *Reference) OwnerArea(questionID string) (int, bool) {
	areaID, ok := r.owner[questionID]
	return areaID, ok
}

// QuestionCount is the number of questions in an area.
func (r *Reference) QuestionCount(areaID int) int {
	return len(r.questions[areaID])
}

// TotalQuestions is the number of questions across all areas.
func (r *Reference) TotalQuestions() int {
	return r.totalQuestions
}

// Scoring returns a copy of the scoring rules.
func (r *Reference) Scoring() Scoring {
	s := r.scoring
	s.Titles = append([]domain.Title{}, r.scoring.Titles...)
	s.DefaultTips = append([]string{}, r.scoring.DefaultTips...)
	s.TipsByArea = make(map[int][]string, len(r.scoring.TipsByArea))
	for areaID, tips := range r.scoring.TipsByArea {
		s.TipsByArea[areaID] = append([]string{}, tips...)
	}
	return s
}

// MaxScore is the configured maximum total score.
func (r *Reference) MaxScore() int {
	return r.scoring.MaxScore
}

// MaxScoreDrift reports whether the configured maximum differs from the
// number of questions actually defined.
func (r *Reference) MaxScoreDrift() (configured, derived int, drift bool) {
	return r.scoring.MaxScore, r.totalQuestions, r.scoring.MaxScore != r.totalQuestions
}
