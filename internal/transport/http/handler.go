package http

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"myth-quiz-service/internal/app"
	"myth-quiz-service/internal/domain"
	"myth-quiz-service/internal/events"
	"myth-quiz-service/internal/export"
	"myth-quiz-service/internal/logging"
	"myth-quiz-service/internal/refdata"
)

// maxLogBody caps POST /api/logs payloads.
const maxLogBody = 1 << 20

// Handler serves the REST surface of the quiz.
type Handler struct {
	service   *app.QuizService
	validator *validator.Validate
	logger    logging.Logger
	session   SessionOptions
}

func NewHandler(service *app.QuizService, logger logging.Logger, session SessionOptions) *Handler {
	return &Handler{
		service:   service,
		validator: NewValidator(),
		logger:    logger,
		session:   session,
	}
}

type optionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type questionView struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Options []optionView `json:"options"`
}

type areaView struct {
	ID        int            `json:"id"`
	Name      string         `json:"name"`
	Questions []questionView `json:"questions"`
}

type referenceView struct {
	Areas    []areaView `json:"areas"`
	MaxScore int        `json:"maxScore"`
}

type sessionView struct {
	SessionID string           `json:"sessionId"`
	State     domain.QuizState `json:"state"`
}

// newReferenceView strips correct flags and explanations.
func newReferenceView(ref *refdata.Reference) referenceView {
	view := referenceView{MaxScore: ref.MaxScore()}
	for _, area := range ref.Areas() {
		av := areaView{ID: area.ID, Name: area.Name, Questions: []questionView{}}
		for _, q := range ref.Questions(area.ID) {
			qv := questionView{ID: q.ID, Text: q.Text, Options: make([]optionView, 0, len(q.Options))}
			for _, opt := range q.Options {
				qv.Options = append(qv.Options, optionView{ID: opt.ID, Text: opt.Text})
			}
			av.Questions = append(av.Questions, qv)
		}
		view.Areas = append(view.Areas, av)
	}
	return view
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "myth-quiz-service",
	})
}

// Reference returns areas and questions for rendering.
func (h *Handler) Reference(c *gin.Context) {
	ref, err := h.service.Reference(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReferenceView(ref))
}

// StartSession creates a session and sets the session cookie.
func (h *Handler) StartSession(c *gin.Context) {
	sessionID, state, err := h.service.StartSession(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	http.SetCookie(c.Writer, sessionCookie(sessionID, h.session))
	c.JSON(http.StatusCreated, sessionView{SessionID: sessionID, State: state})
}

// EndSession drops every key of the session and clears the cookie.
func (h *Handler) EndSession(c *gin.Context) {
	if err := h.service.EndSession(c.Request.Context(), currentSession(c)); err != nil {
		h.handleServiceError(c, err)
		return
	}
	http.SetCookie(c.Writer, expiredSessionCookie(h.session))
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetState(c *gin.Context) {
	state, err := h.service.State(c.Request.Context(), currentSession(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) SetUserName(c *gin.Context) {
	var req setUserNameRequest
	if !h.bind(c, &req) {
		return
	}
	state, err := h.service.SetUserName(c.Request.Context(), currentSession(c), req.Name)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) SetCurrentArea(c *gin.Context) {
	var req setCurrentAreaRequest
	if !h.bind(c, &req) {
		return
	}
	state, err := h.service.SetCurrentArea(c.Request.Context(), currentSession(c), req.AreaID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// SaveAnswers stores the answers of the area named in the path.
func (h *Handler) SaveAnswers(c *gin.Context) {
	areaID, err := strconv.Atoi(c.Param("areaId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid areaId",
			Details: err.Error(),
		})
		return
	}
	var req saveAnswersRequest
	if !h.bind(c, &req) {
		return
	}
	state, err := h.service.SaveAnswers(c.Request.Context(), currentSession(c), areaID, domain.AnswerSet(req.Answers), req.Score, req.Advance)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) CompleteQuiz(c *gin.Context) {
	results, err := h.service.CompleteQuiz(c.Request.Context(), currentSession(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *Handler) ResetQuiz(c *gin.Context) {
	state, err := h.service.ResetQuiz(c.Request.Context(), currentSession(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// Results returns the report, or a redirect payload when there is nothing to show.
func (h *Handler) Results(c *gin.Context) {
	report, err := h.service.Results(c.Request.Context(), currentSession(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ResultsXLSX returns the report as a spreadsheet download.
func (h *Handler) ResultsXLSX(c *gin.Context) {
	report, err := h.service.Results(c.Request.Context(), currentSession(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteReport(&buf, report); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="quiz-results.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// LogEvent accepts a client-side activity entry. The session is optional.
func (h *Handler) LogEvent(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxLogBody)

	var req logEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Message: "Payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
		return
	}
	h.service.LogEvent(c.Request.Context(), sessionFromRequest(c.Request), events.EventType(req.Type), req.Data)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// bind decodes and validates the JSON body, writing a 400 on failure.
func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return false
	}
	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
		return false
	}
	return true
}
