package app

import (
	"context"
	"fmt"
	"time"

	"myth-quiz-service/internal/domain"
	"myth-quiz-service/internal/events"
	"myth-quiz-service/internal/logging"
	"myth-quiz-service/internal/refdata"
)

// Phase is the coarse lifecycle position of a quiz.
type Phase string

const (
	PhaseNotStarted      Phase = "not_started"
	PhaseInProgress      Phase = "in_progress"
	PhaseAwaitingResults Phase = "awaiting_results"
	PhaseCompleted       Phase = "completed"
)

// Scorer computes scores from raw answers.
type Scorer interface {
	CalculateScores(answers domain.Answers) domain.ScoreResult
}

// MachineConfig wires a Machine. Store and Reference are required.
type MachineConfig struct {
	Store     Storage
	Reference *refdata.Reference
	Scorer    Scorer
	Notifier  events.Notifier
	Logger    logging.Logger
	SessionID string
	Now       func() time.Time
}

// Machine owns the progression state of one quiz session. Every transition
// rewrites the whole state document; a failed write is logged and the
// in-memory state stays authoritative.
type Machine struct {
	store     Storage
	ref       *refdata.Reference
	scorer    Scorer
	notifier  events.Notifier
	logger    logging.Logger
	sessionID string
	now       func() time.Time

	state domain.QuizState
}

// NewMachine rehydrates the persisted state, falling back to defaults when it
// is absent or unreadable.
func NewMachine(ctx context.Context, cfg MachineConfig) *Machine {
	m := &Machine{
		store:     cfg.Store,
		ref:       cfg.Reference,
		scorer:    cfg.Scorer,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger,
		sessionID: cfg.SessionID,
		now:       cfg.Now,
	}
	if m.notifier == nil {
		m.notifier = events.NopNotifier{}
	}
	if m.logger == nil {
		m.logger = logging.NewNop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.state = m.load(ctx)
	return m
}

func (m *Machine) load(ctx context.Context) domain.QuizState {
	var state domain.QuizState
	if !readJSON(ctx, m.store, StateKey, &state, m.logger) {
		return domain.NewQuizState()
	}
	if state.CurrentArea < 1 {
		m.logger.Warn("discarding persisted state with invalid current area", "session", m.sessionID, "current_area", state.CurrentArea)
		return domain.NewQuizState()
	}
	if state.Answers == nil {
		state.Answers = make(map[int]domain.AreaAnswers)
	}
	for areaID, area := range state.Answers {
		if area.Answers == nil {
			area.Answers = domain.AnswerSet{}
			state.Answers[areaID] = area
		}
	}
	if state.CompletedAreas == nil {
		state.CompletedAreas = []int{}
	}
	return state
}

// State returns a copy of the current state.
func (m *Machine) State() domain.QuizState {
	return m.state.Clone()
}

// Phase derives the lifecycle position from the state.
func (m *Machine) Phase() Phase {
	switch {
	case m.state.QuizCompleted:
		return PhaseCompleted
	case m.state.CurrentArea > m.ref.AreaCount():
		return PhaseAwaitingResults
	case m.state.CurrentArea == 1 && len(m.state.Answers) == 0:
		return PhaseNotStarted
	default:
		return PhaseInProgress
	}
}

// SetUserName stores the display name as given; validation belongs to the form.
func (m *Machine) SetUserName(ctx context.Context, name string) {
	m.state.UserName = name
	m.persist(ctx)
	m.notify(ctx, events.EventQuizStarted, map[string]any{"userName": name})
}

// SetCurrentArea moves the area pointer. Bounds are the caller's concern.
func (m *Machine) SetCurrentArea(ctx context.Context, areaID int) {
	m.state.CurrentArea = areaID
	m.persist(ctx)
}

// SaveAnswers records the answers of an area, replacing any earlier
// submission, and marks the area completed. The caller guarantees the answers
// belong to the area; IDs are normalized here. score is a display hint and is
// clamped to the area's question count.
func (m *Machine) SaveAnswers(ctx context.Context, areaID int, answers domain.AnswerSet, score int) error {
	if areaID < 1 || areaID > m.ref.AreaCount() {
		return fmt.Errorf("%w: %d", domain.ErrAreaOutOfRange, areaID)
	}
	normalized := domain.NormalizeAnswerSet(answers)
	if len(normalized) == 0 {
		m.logger.Warn("no valid answers to save", "session", m.sessionID, "area", areaID)
		return domain.ErrNoValidAnswers
	}

	if score < 0 {
		score = 0
	}
	if limit := m.ref.QuestionCount(areaID); score > limit {
		score = limit
	}

	m.state.Answers[areaID] = domain.AreaAnswers{Answers: normalized, Score: score}
	if !m.state.IsAreaCompleted(areaID) {
		m.state.CompletedAreas = append(m.state.CompletedAreas, areaID)
	}
	m.persist(ctx)
	m.notify(ctx, events.EventQuestionAnswered, map[string]any{
		"area":     areaID,
		"answered": len(normalized),
		"score":    score,
	})
	return nil
}

// CompleteQuiz marks the quiz completed and writes the final results snapshot.
// The snapshot total is recomputed from the raw answers when a Scorer is set.
func (m *Machine) CompleteQuiz(ctx context.Context) domain.FinalResults {
	total := 0
	if m.scorer != nil {
		total = m.scorer.CalculateScores(m.state.RawAnswers()).TotalScore
	} else {
		for _, area := range m.state.Answers {
			total += area.Score
		}
	}

	results := domain.FinalResults{
		TotalScore:  total,
		Answers:     m.state.Clone().Answers,
		CompletedAt: m.now().UTC(),
	}
	writeJSON(ctx, m.store, ResultsKey, results, m.logger)

	m.state.QuizCompleted = true
	m.persist(ctx)
	m.notify(ctx, events.EventQuizCompleted, map[string]any{"totalScore": total})
	return results
}

// ResetQuiz replaces the whole state with defaults. The results snapshot is
// left in place.
func (m *Machine) ResetQuiz(ctx context.Context) {
	m.state = domain.NewQuizState()
	m.persist(ctx)
	m.notify(ctx, events.EventQuizReset, nil)
}

// FinalResults reads the snapshot written by CompleteQuiz, if any.
func (m *Machine) FinalResults(ctx context.Context) (domain.FinalResults, bool) {
	var results domain.FinalResults
	if !readJSON(ctx, m.store, ResultsKey, &results, m.logger) {
		return domain.FinalResults{}, false
	}
	return results, true
}

func (m *Machine) persist(ctx context.Context) bool {
	return writeJSON(ctx, m.store, StateKey, m.state, m.logger)
}

func (m *Machine) notify(ctx context.Context, eventType events.EventType, data map[string]any) {
	m.notifier.Notify(ctx, events.NewEvent(eventType, m.sessionID, data))
}
