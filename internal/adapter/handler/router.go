package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/johnquangdev/minutemaestro/pkg/config"
)

// Router holds all handlers
type Router struct {
	cfg            *config.Config
	sessionHandler *Session
	eventsHandler  *Events
	metrics        http.Handler
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, sessionHandler *Session, eventsHandler *Events, metrics http.Handler) *Router {
	return &Router{
		cfg:            cfg,
		sessionHandler: sessionHandler,
		eventsHandler:  eventsHandler,
		metrics:        metrics,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)
	if rt.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(rt.metrics))
	}

	v1 := e.Group("/v1")
	rt.setupSessionRoutes(v1)
}

// setupSessionRoutes configures live session routes
func (rt *Router) setupSessionRoutes(g *echo.Group) {
	sessionGroup := g.Group("/session")

	sessionGroup.GET("", rt.sessionHandler.GetSession)
	sessionGroup.POST("/connect", rt.sessionHandler.Connect)
	sessionGroup.POST("/pause", rt.sessionHandler.Pause)
	sessionGroup.POST("/resume", rt.sessionHandler.Resume)
	sessionGroup.POST("/disconnect", rt.sessionHandler.Disconnect)
	sessionGroup.POST("/reset", rt.sessionHandler.Reset)
	sessionGroup.POST("/minutes", rt.sessionHandler.GenerateMinutes)

	if rt.eventsHandler != nil {
		sessionGroup.GET("/events", rt.eventsHandler.Stream)
	} else {
		sessionGroup.GET("/events", rt.notImplemented)
	}
}

// notImplemented returns 501 Not Implemented response
func (rt *Router) notImplemented(c echo.Context) error {
	return c.JSON(http.StatusNotImplemented, map[string]interface{}{
		"error":  "This endpoint is not yet implemented",
		"path":   c.Request().URL.Path,
		"method": c.Request().Method,
	})
}

// healthCheck returns health status
// @Summary      Health check
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "Service is healthy"
// @Router       /health [get]
func (rt *Router) healthCheck(c echo.Context) error {
	env := "development"
	if rt.cfg != nil {
		env = rt.cfg.Server.Environment
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": env,
	})
}
