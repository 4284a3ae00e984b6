package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"pollblog-backend/mq"
	"pollblog-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	MessageResults = "results"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ResultsSource loads the current results of a question.
type ResultsSource interface {
	GetResultsForDisplay(ctx context.Context, id uint, now time.Time) (*service.QuestionResults, error)
}

// Handler upgrades results watchers and pushes fresh results after each vote.
type Handler struct {
	hub     *Hub
	results ResultsSource
	logger  *slog.Logger
	now     func() time.Time
}

func NewHandler(hub *Hub, results ResultsSource, logger *slog.Logger) *Handler {
	return &Handler{hub: hub, results: results, logger: logger.With("component", "ws"), now: time.Now}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.GET("/ws/polls/:id", h.HandleWebSocketConnection)
}

// OnEvent is subscribed to the event bus.
func (h *Handler) OnEvent(ctx context.Context, event mq.Event) error {
	if event.Type != mq.EventVoteRecorded || h.hub.ClientCount(event.QuestionID) == 0 {
		return nil
	}
	results, err := h.results.GetResultsForDisplay(ctx, event.QuestionID, h.now())
	if err != nil {
		return err
	}
	h.hub.Broadcast(Message{Type: MessageResults, QuestionID: event.QuestionID, Payload: results})
	return nil
}

func (h *Handler) HandleWebSocketConnection(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid question id"})
		return
	}
	questionID := uint(id)

	results, err := h.results.GetResultsForDisplay(c.Request.Context(), questionID, h.now())
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("loading results failed", "question_id", questionID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := newClient(questionID)
	if !h.hub.RegisterClient(client) {
		conn.Close()
		return
	}

	go h.writePump(conn, client, Message{Type: MessageResults, QuestionID: questionID, Payload: results})
	go h.readPump(conn, client)
}

func (h *Handler) readPump(conn *websocket.Conn, client *Client) {
	defer func() {
		h.hub.UnregisterClient(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket read failed", "error", err)
			}
			return
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, client *Client, snapshot Message) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(snapshot); err != nil {
		return
	}

	for {
		select {
		case message, ok := <-client.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
