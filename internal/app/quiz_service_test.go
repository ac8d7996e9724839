package app_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"myth-quiz-service/internal/app"
	"myth-quiz-service/internal/domain"
	"myth-quiz-service/internal/events"
	"myth-quiz-service/internal/infra/memory"
	"myth-quiz-service/internal/refdata"
)

func newTestService(t *testing.T) (*app.QuizService, *events.Recorder) {
	t.Helper()
	recorder := events.NewRecorder()
	sessions := memory.NewSessionStore(time.Hour)
	references := memory.NewReferenceRepository(refdata.EmbeddedLoader{}, time.Minute, nil)
	clock := func() time.Time { return time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC) }
	return app.NewQuizServiceWithClock(sessions, references, recorder, nil, clock), recorder
}

func TestQuizLifecycle(t *testing.T) {
	ctx := context.Background()
	service, recorder := newTestService(t)

	sessionID, state, err := service.StartSession(ctx)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if !reflect.DeepEqual(state, domain.NewQuizState()) {
		t.Fatalf("expected default state, got %+v", state)
	}

	if _, err := service.SetUserName(ctx, sessionID, "Alice"); err != nil {
		t.Fatalf("set user name: %v", err)
	}
	state, err = service.SaveAnswers(ctx, sessionID, 1, domain.AnswerSet{"q1a": {"a", "c"}, "q1b": {"b"}}, nil, true)
	if err != nil {
		t.Fatalf("save area 1: %v", err)
	}
	if state.CurrentArea != 2 || state.Answers[1].Score != 1 {
		t.Fatalf("expected area 2 with hint 1, got area=%d hint=%d", state.CurrentArea, state.Answers[1].Score)
	}
	if _, err := service.SaveAnswers(ctx, sessionID, 5, domain.AnswerSet{"q5a": {"b"}}, nil, false); err != nil {
		t.Fatalf("save area 5: %v", err)
	}

	results, err := service.CompleteQuiz(ctx, sessionID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if results.TotalScore != 2 || len(results.Answers) != 2 {
		t.Fatalf("unexpected final results %+v", results)
	}

	report, err := service.Results(ctx, sessionID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if report.UserName != "Alice" || report.TotalScore != 2 || report.Title != "Dating Newbie" {
		t.Fatalf("unexpected report %+v", report)
	}

	state, err = service.ResetQuiz(ctx, sessionID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !reflect.DeepEqual(state, domain.NewQuizState()) {
		t.Fatalf("expected default state after reset, got %+v", state)
	}
	if _, err := service.Results(ctx, sessionID); err != nil {
		t.Fatalf("results snapshot should survive reset: %v", err)
	}

	want := []events.EventType{
		events.EventQuizStarted,
		events.EventQuestionAnswered,
		events.EventQuestionAnswered,
		events.EventQuizCompleted,
		events.EventReportViewed,
		events.EventQuizReset,
		events.EventReportViewed,
	}
	if got := recorder.Types(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected events %v", got)
	}
	for _, event := range recorder.Events() {
		if event.SessionID != sessionID {
			t.Fatalf("event %s carries session %q", event.Type, event.SessionID)
		}
	}
}

func TestSaveAnswersClampsProvidedScore(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	sessionID, _, err := service.StartSession(ctx)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	score := 42
	state, err := service.SaveAnswers(ctx, sessionID, 3, domain.AnswerSet{"q3a": {"a"}}, &score, false)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if state.Answers[3].Score != 3 {
		t.Fatalf("expected hint clamped to 3, got %d", state.Answers[3].Score)
	}
	if state.CurrentArea != 1 {
		t.Fatalf("pointer should not move without advance, got %d", state.CurrentArea)
	}
}

func TestUnknownSession(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	if _, err := service.State(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := service.SaveAnswers(ctx, "missing", 1, domain.AnswerSet{"q1a": {"a"}}, nil, false); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestResultsBeforeAnswering(t *testing.T) {
	ctx := context.Background()
	service, recorder := newTestService(t)
	sessionID, _, err := service.StartSession(ctx)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	if _, err := service.Results(ctx, sessionID); !errors.Is(err, domain.ErrQuizNotTaken) {
		t.Fatalf("expected ErrQuizNotTaken, got %v", err)
	}
	if types := recorder.Types(); len(types) != 0 {
		t.Fatalf("no report was viewed, got events %v", types)
	}
}

func TestConcurrentSavesOnOneSession(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	sessionID, _, err := service.StartSession(ctx)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	answers := map[int]domain.AnswerSet{
		1: {"q1c": {"b"}},
		2: {"q2a": {"b"}},
		3: {"q3a": {"b"}},
		4: {"q4b": {"a"}},
		5: {"q5c": {"b"}},
	}
	var wg sync.WaitGroup
	errs := make(chan error, len(answers))
	for areaID, set := range answers {
		wg.Add(1)
		go func(areaID int, set domain.AnswerSet) {
			defer wg.Done()
			if _, err := service.SaveAnswers(ctx, sessionID, areaID, set, nil, false); err != nil {
				errs <- err
			}
		}(areaID, set)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("save: %v", err)
	}

	state, err := service.State(ctx, sessionID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if len(state.Answers) != 5 || len(state.CompletedAreas) != 5 {
		t.Fatalf("expected every area persisted, got %+v", state)
	}
}

func TestEndSession(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)
	sessionID, _, err := service.StartSession(ctx)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	if err := service.EndSession(ctx, sessionID); err != nil {
		t.Fatalf("end session: %v", err)
	}
	if _, err := service.State(ctx, sessionID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after end, got %v", err)
	}
}
