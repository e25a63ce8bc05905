package handler

import (
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/domain"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/feed"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/logging"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/infrastructure/uuid"
	"github.com/samimwebdev/ui-next-jsninja-sub001/internal/notification"
	"go.uber.org/zap"
)

// closeUnknownSession close code sent to a player page of an unknown session
const closeUnknownSession = 4404

// PlayerHub serves the player page of a video session
type PlayerHub interface {
	Serve(sessionID string, conn *websocket.Conn) error
}

// SocketHandler websocket endpoints, errors end the connection and are only logged
type SocketHandler struct {
	players PlayerHub
	feed    *feed.Hub
	store   *notification.Store
	ids     uuid.Generator
}

// NewSocketHandler .
func NewSocketHandler(players PlayerHub, feed *feed.Hub, store *notification.Store, ids uuid.Generator) *SocketHandler {
	return &SocketHandler{players: players, feed: feed, store: store, ids: ids}
}

// HandlePlayer bridge between the embedded player page and its video tracker
func (sh *SocketHandler) HandlePlayer(c echo.Context, conn *websocket.Conn) error {
	logger := logging.ExtractLoggerFromContext(c.Request().Context(), zap.NewNop())
	err := sh.players.Serve(c.Param("id"), conn)
	if errors.Is(err, domain.ErrSessionNotFound) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(closeUnknownSession, err.Error()),
			time.Now().Add(time.Second))
		return nil
	}
	logger.Debug("Player socket closed", zap.String("session.id", c.Param("id")), zap.Error(err))
	return nil
}

// HandleFeed push toasts and notification snapshots to the UI, starting with the current snapshot
func (sh *SocketHandler) HandleFeed(c echo.Context, conn *websocket.Conn) error {
	ctx := c.Request().Context()
	id, err := sh.ids.Generate()
	if err != nil {
		return err
	}
	s := sh.feed.Subscribe(id)
	defer sh.feed.Unsubscribe(s)

	err = sh.feed.Serve(ctx, s, conn, feed.Message{Event: feed.EventNotifications, Data: sh.store.Snapshot()})
	logging.ExtractLoggerFromContext(ctx, zap.NewNop()).Debug("Feed socket closed",
		zap.String("feed.subscriber", id),
		zap.Error(err),
	)
	return nil
}
