package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"myth-quiz-service/internal/logging"
)

// NewRouter wires the REST handlers and the command socket.
func NewRouter(h *Handler, ws *WSHandler, logger logging.Logger) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery(), RequestLogger(logger))
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, ErrorResponse{Message: "Method not allowed"})
	})

	router.GET("/healthz", h.Health)
	router.GET("/ws", gin.WrapF(ws.ServeWS))

	api := router.Group("/api")
	{
		api.GET("/reference", h.Reference)
		api.POST("/session", h.StartSession)
		api.POST("/logs", h.LogEvent)

		session := api.Group("", RequireSession())
		{
			session.DELETE("/session", h.EndSession)
			session.GET("/state", h.GetState)
			session.PUT("/state/name", h.SetUserName)
			session.PUT("/state/area", h.SetCurrentArea)
			session.POST("/areas/:areaId/answers", h.SaveAnswers)
			session.POST("/complete", h.CompleteQuiz)
			session.POST("/reset", h.ResetQuiz)
			session.GET("/results", h.Results)
			session.GET("/results.xlsx", h.ResultsXLSX)
		}
	}
	return router
}
