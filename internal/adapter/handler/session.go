package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/minutemaestro/errors"
	"github.com/johnquangdev/minutemaestro/internal/adapter/presenter"
	sessionUsecase "github.com/johnquangdev/minutemaestro/internal/usecase/session"
)

// Session handles live session HTTP requests
type Session struct {
	service sessionUsecase.Service
	logger  *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service sessionUsecase.Service, logger *zap.Logger) *Session {
	return &Session{
		service: service,
		logger:  logger,
	}
}

// GetSession handles GET /v1/session
// @Summary      Get the live session
// @Description  Returns status, transcript, volume and last error of the current session
// @Tags         Session
// @Produce      json
// @Success      200  {object}  session.SessionResponse  "Current session view"
// @Router       /v1/session [get]
func (h *Session) GetSession(c echo.Context) error {
	return HandleSuccess(h.logger, c, presenter.ToSessionResponse(h.service.View()))
}

// Connect handles POST /v1/session/connect
// @Summary      Start recording
// @Description  Opens the microphone and the streaming connection. A no-op unless the session is IDLE or ERROR
// @Tags         Session
// @Produce      json
// @Success      200  {object}  session.SessionResponse  "Session is recording"
// @Failure      409  {object}  map[string]interface{}  "Connect was abandoned by a disconnect"
// @Failure      502  {object}  map[string]interface{}  "Streaming backend unreachable"
// @Failure      503  {object}  map[string]interface{}  "Microphone unavailable"
// @Failure      504  {object}  map[string]interface{}  "Handshake timed out"
// @Router       /v1/session/connect [post]
func (h *Session) Connect(c echo.Context) error {
	if err := h.service.Connect(c.Request().Context()); err != nil {
		return HandleError(h.logger, c, errors.FromDomain("connect", err))
	}
	return HandleSuccess(h.logger, c, presenter.ToSessionResponse(h.service.View()))
}

// Pause handles POST /v1/session/pause
// @Summary      Pause recording
// @Description  Stops forwarding audio; audio captured while paused is discarded
// @Tags         Session
// @Produce      json
// @Success      200  {object}  session.SessionResponse  "Session view after the command"
// @Router       /v1/session/pause [post]
func (h *Session) Pause(c echo.Context) error {
	h.service.Pause()
	return HandleSuccess(h.logger, c, presenter.ToSessionResponse(h.service.View()))
}

// Resume handles POST /v1/session/resume
// @Summary      Resume recording
// @Tags         Session
// @Produce      json
// @Success      200  {object}  session.SessionResponse  "Session view after the command"
// @Router       /v1/session/resume [post]
func (h *Session) Resume(c echo.Context) error {
	h.service.Resume()
	return HandleSuccess(h.logger, c, presenter.ToSessionResponse(h.service.View()))
}

// Disconnect handles POST /v1/session/disconnect
// @Summary      Stop recording
// @Description  Releases the microphone and the connection; the transcript is kept
// @Tags         Session
// @Produce      json
// @Success      200  {object}  session.SessionResponse  "Session is COMPLETED or IDLE"
// @Router       /v1/session/disconnect [post]
func (h *Session) Disconnect(c echo.Context) error {
	h.service.Disconnect()
	return HandleSuccess(h.logger, c, presenter.ToSessionResponse(h.service.View()))
}

// Reset handles POST /v1/session/reset
// @Summary      Reset the session
// @Description  Disconnects, clears the transcript and discards in-flight minutes
// @Tags         Session
// @Produce      json
// @Success      200  {object}  session.SessionResponse  "Session is IDLE"
// @Router       /v1/session/reset [post]
func (h *Session) Reset(c echo.Context) error {
	h.service.Reset()
	return HandleSuccess(h.logger, c, presenter.ToSessionResponse(h.service.View()))
}

// GenerateMinutes handles POST /v1/session/minutes
// @Summary      Generate meeting minutes
// @Description  Summarizes the finalized transcript into a summary, decisions and action items
// @Tags         Session
// @Produce      json
// @Success      200  {object}  session.MinutesResponse  "Generated minutes"
// @Failure      409  {object}  map[string]interface{}  "Session was reset while summarizing"
// @Failure      502  {object}  map[string]interface{}  "No finalized transcript or summarizer failure"
// @Failure      504  {object}  map[string]interface{}  "Summarizer timed out"
// @Router       /v1/session/minutes [post]
func (h *Session) GenerateMinutes(c echo.Context) error {
	minutes, err := h.service.GenerateMinutes(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, errors.FromDomain("minutes", err))
	}
	return HandleSuccess(h.logger, c, presenter.ToMinutesResponse(minutes))
}
