package app

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"

	"myth-quiz-service/internal/domain"
	"myth-quiz-service/internal/events"
	"myth-quiz-service/internal/logging"
	"myth-quiz-service/internal/refdata"
	"myth-quiz-service/internal/scoring"
)

// ReferenceRepository loads reference data (from cache/backing store).
type ReferenceRepository interface {
	Reference(ctx context.Context) (*refdata.Reference, error)
}

const lockStripes = 64

// QuizService contains the quiz use cases. Each call rehydrates the session's
// Machine from storage, applies one transition and lets it persist.
type QuizService struct {
	sessions   SessionRepository
	references ReferenceRepository
	notifier   events.Notifier
	logger     logging.Logger
	now        func() time.Time

	// Calls on the same session are serialized; storage is read-modify-write.
	locks [lockStripes]sync.Mutex
}

func NewQuizService(sessions SessionRepository, references ReferenceRepository, notifier events.Notifier, logger logging.Logger) *QuizService {
	if notifier == nil {
		notifier = events.NopNotifier{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &QuizService{
		sessions:   sessions,
		references: references,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
	}
}

// NewQuizServiceWithClock is test-only for deterministic timestamps.
func NewQuizServiceWithClock(sessions SessionRepository, references ReferenceRepository, notifier events.Notifier, logger logging.Logger, now func() time.Time) *QuizService {
	s := NewQuizService(sessions, references, notifier, logger)
	s.now = now
	return s
}

// Reference returns the current reference data.
func (s *QuizService) Reference(ctx context.Context) (*refdata.Reference, error) {
	return s.references.Reference(ctx)
}

// StartSession creates a session namespace holding a fresh quiz state.
func (s *QuizService) StartSession(ctx context.Context) (string, domain.QuizState, error) {
	sessionID := uuid.NewString()
	if err := s.sessions.Create(ctx, sessionID); err != nil {
		return "", domain.QuizState{}, err
	}
	var state domain.QuizState
	err := s.withMachine(ctx, sessionID, func(m *Machine, _ *refdata.Reference) error {
		m.persist(ctx)
		state = m.State()
		return nil
	})
	if err != nil {
		return "", domain.QuizState{}, err
	}
	s.logger.Info("quiz session started", "session", sessionID)
	return sessionID, state, nil
}

// EndSession drops the session namespace, including any results snapshot.
func (s *QuizService) EndSession(ctx context.Context, sessionID string) error {
	unlock := s.lock(sessionID)
	defer unlock()
	return s.sessions.Drop(ctx, sessionID)
}

// State returns the persisted quiz state of a session.
func (s *QuizService) State(ctx context.Context, sessionID string) (domain.QuizState, error) {
	var state domain.QuizState
	err := s.withMachine(ctx, sessionID, func(m *Machine, _ *refdata.Reference) error {
		state = m.State()
		return nil
	})
	return state, err
}

// SetUserName stores the display name of the quiz taker.
func (s *QuizService) SetUserName(ctx context.Context, sessionID, name string) (domain.QuizState, error) {
	var state domain.QuizState
	err := s.withMachine(ctx, sessionID, func(m *Machine, _ *refdata.Reference) error {
		m.SetUserName(ctx, name)
		state = m.State()
		return nil
	})
	return state, err
}

// SetCurrentArea moves the area pointer for navigation.
func (s *QuizService) SetCurrentArea(ctx context.Context, sessionID string, areaID int) (domain.QuizState, error) {
	var state domain.QuizState
	err := s.withMachine(ctx, sessionID, func(m *Machine, _ *refdata.Reference) error {
		m.SetCurrentArea(ctx, areaID)
		state = m.State()
		return nil
	})
	return state, err
}

// SaveAnswers records an area's answers. When score is nil the display hint
// is computed from the answers; advance moves the pointer to the next area.
func (s *QuizService) SaveAnswers(ctx context.Context, sessionID string, areaID int, answers domain.AnswerSet, score *int, advance bool) (domain.QuizState, error) {
	var state domain.QuizState
	err := s.withMachine(ctx, sessionID, func(m *Machine, ref *refdata.Reference) error {
		var hint int
		if score != nil {
			hint = *score
		} else {
			engine := scoring.NewEngine(ref, s.logger)
			hint = engine.CalculateScores(domain.Answers{areaID: answers}).AreaScores[areaID]
		}
		if err := m.SaveAnswers(ctx, areaID, answers, hint); err != nil {
			return err
		}
		if advance {
			m.SetCurrentArea(ctx, areaID+1)
		}
		state = m.State()
		return nil
	})
	return state, err
}

// CompleteQuiz marks the quiz completed and snapshots the final results.
func (s *QuizService) CompleteQuiz(ctx context.Context, sessionID string) (domain.FinalResults, error) {
	var results domain.FinalResults
	err := s.withMachine(ctx, sessionID, func(m *Machine, _ *refdata.Reference) error {
		results = m.CompleteQuiz(ctx)
		return nil
	})
	return results, err
}

// ResetQuiz restores the default state for a retake.
func (s *QuizService) ResetQuiz(ctx context.Context, sessionID string) (domain.QuizState, error) {
	var state domain.QuizState
	err := s.withMachine(ctx, sessionID, func(m *Machine, _ *refdata.Reference) error {
		m.ResetQuiz(ctx)
		state = m.State()
		return nil
	})
	return state, err
}

// Results assembles the report for a session. domain.ErrQuizNotTaken and
// domain.ErrRestartQuiz both mean "send the user back to the start".
func (s *QuizService) Results(ctx context.Context, sessionID string) (domain.Report, error) {
	var report domain.Report
	err := s.withMachine(ctx, sessionID, func(m *Machine, ref *refdata.Reference) error {
		var snapshot *domain.FinalResults
		if results, ok := m.FinalResults(ctx); ok {
			snapshot = &results
		}
		assembler := NewAssembler(ref, scoring.NewEngine(ref, s.logger), s.logger)
		built, err := assembler.Build(m.State(), snapshot)
		if err != nil {
			return err
		}
		report = built
		m.notify(ctx, events.EventReportViewed, map[string]any{"totalScore": built.TotalScore, "title": built.Title})
		return nil
	})
	return report, err
}

// LogEvent forwards a client-side event to the notifier.
func (s *QuizService) LogEvent(ctx context.Context, sessionID string, eventType events.EventType, data map[string]any) {
	s.notifier.Notify(ctx, events.NewEvent(eventType, sessionID, data))
}

func (s *QuizService) withMachine(ctx context.Context, sessionID string, fn func(m *Machine, ref *refdata.Reference) error) error {
	unlock := s.lock(sessionID)
	defer unlock()

	ref, err := s.references.Reference(ctx)
	if err != nil {
		return err
	}
	store, err := s.sessions.Open(ctx, sessionID)
	if err != nil {
		return err
	}
	m := NewMachine(ctx, MachineConfig{
		Store:     store,
		Reference: ref,
		Scorer:    scoring.NewEngine(ref, s.logger),
		Notifier:  s.notifier,
		Logger:    s.logger,
		SessionID: sessionID,
		Now:       s.now,
	})
	return fn(m, ref)
}

func (s *QuizService) lock(sessionID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	mu := &s.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}
