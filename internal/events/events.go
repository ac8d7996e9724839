// Package events is the fire-and-forget side channel for quiz activity.
// Nothing in the quiz core waits on it or depends on its success.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType names a quiz activity.
type EventType string

const (
	EventPageView         EventType = "PAGE_VIEW"
	EventQuizStarted      EventType = "QUIZ_STARTED"
	EventQuestionAnswered EventType = "QUESTION_ANSWERED"
	EventQuizCompleted    EventType = "QUIZ_COMPLETED"
	EventReportViewed     EventType = "REPORT_VIEWED"
	EventQuizReset        EventType = "QUIZ_RESET"
)

// KnownType reports whether t is one of the event types above.
func KnownType(t EventType) bool {
	switch t {
	case EventPageView, EventQuizStarted, EventQuestionAnswered, EventQuizCompleted, EventReportViewed, EventQuizReset:
		return true
	}
	return false
}

// Event is one entry of the activity log.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	SessionID string         `json:"sessionId,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

func NewEvent(eventType EventType, sessionID string, data map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Notifier accepts events without blocking the caller and never reports failure.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Event) {}

// Recorder keeps events in memory (for tests).
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event{}, r.events...)
}

// Types lists the recorded event types in order.
func (r *Recorder) Types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
