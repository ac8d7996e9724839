package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"myth-quiz-service/internal/domain"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// RedirectResponse tells the client to send the user back to the start.
type RedirectResponse struct {
	Redirect string `json:"redirect"`
	Message  string `json:"message,omitempty"`
}

// isRedirect reports errors after which the only sensible step is a restart.
func isRedirect(err error) bool {
	return errors.Is(err, domain.ErrQuizNotTaken) || errors.Is(err, domain.ErrRestartQuiz)
}

// classifyError maps a service error to a status code and a stable code string.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, domain.ErrAreaOutOfRange):
		return http.StatusBadRequest, "area_out_of_range"
	case errors.Is(err, domain.ErrNoValidAnswers):
		return http.StatusBadRequest, "no_valid_answers"
	case errors.Is(err, domain.ErrQuizNotTaken):
		return http.StatusConflict, "quiz_not_taken"
	case errors.Is(err, domain.ErrRestartQuiz):
		return http.StatusConflict, "restart_quiz"
	case errors.Is(err, domain.ErrReferenceNotFound), errors.Is(err, domain.ErrInvalidReference):
		return http.StatusServiceUnavailable, "reference_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (h *Handler) handleServiceError(c *gin.Context, err error) {
	if isRedirect(err) {
		c.JSON(http.StatusConflict, RedirectResponse{Redirect: "/", Message: err.Error()})
		return
	}
	status, code := classifyError(err)
	if status >= http.StatusInternalServerError {
		h.logger.LogError(err, "request failed", "path", c.Request.URL.Path)
		c.JSON(status, ErrorResponse{Message: "Internal server error", Code: code})
		return
	}
	c.JSON(status, ErrorResponse{Message: err.Error(), Code: code})
}
