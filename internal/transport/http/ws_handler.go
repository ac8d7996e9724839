package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"myth-quiz-service/internal/app"
	"myth-quiz-service/internal/domain"
	"myth-quiz-service/internal/logging"
)

// WSHandler serves the command socket: one JSON command in, one or more
// JSON messages out, all scoped to the caller's session.
type WSHandler struct {
	service   *app.QuizService
	validator *validator.Validate
	logger    logging.Logger
	session   SessionOptions
	upgrader  websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, logger logging.Logger, session SessionOptions) *WSHandler {
	return &WSHandler{
		service:   service,
		validator: NewValidator(),
		logger:    logger,
		session:   session,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type redirectPayload struct {
	Redirect string `json:"redirect"`
}

var errUnsupportedCommand = errors.New("unsupported message type")

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz use cases.
// A request without a live session gets a new one, announced in a "session" message.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := sessionFromRequest(r)
	if sessionID == "" {
		sessionID = r.URL.Query().Get("session")
	}

	var first outboundMessage[any]
	header := http.Header{}
	if sessionID != "" {
		state, err := h.service.State(ctx, sessionID)
		switch {
		case err == nil:
			first = outboundMessage[any]{Type: "state", Payload: state}
		case errors.Is(err, domain.ErrSessionNotFound):
			sessionID = ""
		default:
			status, _ := classifyError(err)
			http.Error(w, err.Error(), status)
			return
		}
	}
	if sessionID == "" {
		var (
			state domain.QuizState
			err   error
		)
		sessionID, state, err = h.service.StartSession(ctx)
		if err != nil {
			h.logger.LogError(err, "ws start session failed")
			http.Error(w, "failed to start session", http.StatusInternalServerError)
			return
		}
		header.Add("Set-Cookie", sessionCookie(sessionID, h.session).String())
		first = outboundMessage[any]{Type: "session", Payload: sessionView{SessionID: sessionID, State: state}}
	}

	conn, err := h.upgrader.Upgrade(w, r, header)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Warn("ws write error", "error", err)
				// unblocks the read loop
				_ = conn.Close()
				return
			}
		}
	}()

	send <- first

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		select {
		case send <- h.dispatch(ctx, sessionID, inbound):
		case <-writerDone:
		}
	}

	close(send)
	<-writerDone
}

// dispatch runs one command and returns the message to send back.
func (h *WSHandler) dispatch(ctx context.Context, sessionID string, inbound inboundMessage) outboundMessage[any] {
	result, err := h.execute(ctx, sessionID, inbound)
	switch {
	case err == nil:
		return result
	case isRedirect(err):
		return outboundMessage[any]{Type: "redirect", Payload: redirectPayload{Redirect: "/"}}
	case errors.Is(err, errUnsupportedCommand):
		return errorMessage(err, "unsupported_command")
	case isPayloadError(err):
		return errorMessage(err, "invalid_payload")
	}
	status, code := classifyError(err)
	if status >= http.StatusInternalServerError {
		h.logger.LogError(err, "ws command failed", "type", inbound.Type)
	}
	return errorMessage(err, code)
}

func errorMessage(err error, code string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error(), Code: code}}
}

func (h *WSHandler) execute(ctx context.Context, sessionID string, inbound inboundMessage) (outboundMessage[any], error) {
	switch inbound.Type {
	case "setUserName":
		var payload setUserNameRequest
		if err := h.decode(inbound.Payload, &payload); err != nil {
			return outboundMessage[any]{}, err
		}
		state, err := h.service.SetUserName(ctx, sessionID, payload.Name)
		return stateMessage(state), err
	case "setCurrentArea":
		var payload setCurrentAreaRequest
		if err := h.decode(inbound.Payload, &payload); err != nil {
			return outboundMessage[any]{}, err
		}
		state, err := h.service.SetCurrentArea(ctx, sessionID, payload.AreaID)
		return stateMessage(state), err
	case "saveAnswers":
		var payload saveAreaAnswersRequest
		if err := h.decode(inbound.Payload, &payload); err != nil {
			return outboundMessage[any]{}, err
		}
		state, err := h.service.SaveAnswers(ctx, sessionID, payload.AreaID, domain.AnswerSet(payload.Answers), payload.Score, payload.Advance)
		return stateMessage(state), err
	case "completeQuiz":
		if _, err := h.service.CompleteQuiz(ctx, sessionID); err != nil {
			return outboundMessage[any]{}, err
		}
		return h.report(ctx, sessionID)
	case "resetQuiz":
		state, err := h.service.ResetQuiz(ctx, sessionID)
		return stateMessage(state), err
	case "results":
		return h.report(ctx, sessionID)
	default:
		return outboundMessage[any]{}, errUnsupportedCommand
	}
}

func (h *WSHandler) report(ctx context.Context, sessionID string) (outboundMessage[any], error) {
	report, err := h.service.Results(ctx, sessionID)
	if err != nil {
		return outboundMessage[any]{}, err
	}
	return outboundMessage[any]{Type: "report", Payload: report}, nil
}

func stateMessage(state domain.QuizState) outboundMessage[any] {
	return outboundMessage[any]{Type: "state", Payload: state}
}

// payloadError marks a malformed or invalid command payload.
type payloadError struct {
	err error
}

func (e payloadError) Error() string { return "invalid payload: " + e.err.Error() }
func (e payloadError) Unwrap() error { return e.err }

func isPayloadError(err error) bool {
	var pe payloadError
	return errors.As(err, &pe)
}

func (h *WSHandler) decode(raw json.RawMessage, dest any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return payloadError{err: err}
	}
	if err := h.validator.Struct(dest); err != nil {
		return payloadError{err: err}
	}
	return nil
}
