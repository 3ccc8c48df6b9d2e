package handler

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/minutemaestro/internal/adapter/presenter"
	sessionUsecase "github.com/johnquangdev/minutemaestro/internal/usecase/session"
)

const (
	eventsWriteWait    = 5 * time.Second
	eventsPongWait     = 60 * time.Second
	eventsPingInterval = (eventsPongWait * 9) / 10
)

// Events streams session notifications over a websocket
type Events struct {
	service  sessionUsecase.Service
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewEventsHandler creates a new events handler. Browser origins must be
// listed in allowedOrigins; "*" accepts any origin.
func NewEventsHandler(service sessionUsecase.Service, allowedOrigins []string, logger *zap.Logger) *Events {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Events{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

// Stream handles GET /v1/session/events
// @Summary      Session event feed
// @Description  Websocket feed; the first message is a snapshot, then status, fragment, volume and error events
// @Tags         Session
// @Success      101  {object}  session.EventMessage  "Switching protocols"
// @Failure      403  {object}  map[string]interface{}  "Origin not allowed"
// @Router       /v1/session/events [get]
func (h *Events) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already answered the request
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return nil
	}
	defer conn.Close()

	events, unsubscribe := h.service.Subscribe(0)
	defer unsubscribe()

	if err := h.write(conn, presenter.ToSnapshotMessage(h.service.View(), time.Now())); err != nil {
		return nil
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(eventsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := h.write(conn, presenter.ToEventMessage(ev)); err != nil {
				h.logger.Debug("Events subscriber went away", zap.Error(err))
				return nil
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventsWriteWait)); err != nil {
				return nil
			}
		case <-closed:
			return nil
		}
	}
}

func (h *Events) write(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
	return conn.WriteJSON(v)
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(strings.TrimSuffix(a, "/"), origin) {
				return true
			}
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}
