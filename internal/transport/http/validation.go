package http

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"myth-quiz-service/internal/events"
)

// NewValidator returns a validator that reports JSON field names and knows
// the custom tags used by the request payloads.
func NewValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("event_type", func(fl validator.FieldLevel) bool {
		return events.KnownType(events.EventType(fl.Field().String()))
	})
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}

type setUserNameRequest struct {
	Name string `json:"name" validate:"max=100"`
}

type setCurrentAreaRequest struct {
	AreaID int `json:"areaId" validate:"min=1"`
}

type saveAnswersRequest struct {
	Answers map[string][]string `json:"answers" validate:"required"`
	Score   *int                `json:"score,omitempty" validate:"omitempty,min=0"`
	Advance bool                `json:"advance"`
}

// saveAreaAnswersRequest is the socket form that carries the area in the body.
type saveAreaAnswersRequest struct {
	AreaID int `json:"areaId" validate:"min=1"`
	saveAnswersRequest
}

type logEventRequest struct {
	Type string         `json:"type" validate:"required,event_type"`
	Data map[string]any `json:"data"`
}
