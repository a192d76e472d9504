// Package ws serves a room's live play over a WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/kelimeoyunu/internal/api/apierr"
	"github.com/mcoot/kelimeoyunu/internal/feed"
	"github.com/mcoot/kelimeoyunu/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Pings are sent before the peer's pong deadline
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 1024
	sendBufferSize = 32
)

// Client message types
const (
	TypeReady       = "ready"
	TypeCurrentWord = "current_word"
	TypeSubmit      = "submit"
)

// Server message types
const (
	TypeEvent      = "event"
	TypeWordResult = "word_result"
	TypeError      = "error"
)

// Upgrader accepts any origin; access is checked on the token instead
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// RoomService is the part of the room manager a socket drives
type RoomService interface {
	Get(ctx context.Context, id model.RoomID) (*model.GameRoom, error)
	SetReady(ctx context.Context, id model.RoomID, userID model.UserID, ready bool) (*model.GameRoom, error)
	UpdateCurrentWord(ctx context.Context, id model.RoomID, userID model.UserID, word string) (*model.GameRoom, error)
	SubmitWord(ctx context.Context, id model.RoomID, userID model.UserID, raw string) (model.WordValidation, *model.GameRoom, error)
}

// Message is sent by the client
type Message struct {
	Type  string `json:"type"`
	Word  string `json:"word,omitempty"`
	Ready *bool  `json:"ready,omitempty"`
}

// Reply is sent by the server
type Reply struct {
	Type       string                `json:"type"`
	Event      *model.Event          `json:"event,omitempty"`
	Validation *model.WordValidation `json:"validation,omitempty"`
	Error      *apierr.APIError      `json:"error,omitempty"`
}

// Handler upgrades room connections
type Handler struct {
	rooms  RoomService
	feed   feed.Subscriber
	logger *slog.Logger
}

// NewHandler creates a new Handler
func NewHandler(rooms RoomService, subscriber feed.Subscriber, logger *slog.Logger) *Handler {
	return &Handler{
		rooms:  rooms,
		feed:   subscriber,
		logger: logger.With(slog.String("component", "ws")),
	}
}

type client struct {
	conn   *websocket.Conn
	roomID model.RoomID
	userID model.UserID
	send   chan Reply
}

// ServeRoom upgrades a seated player's connection. The socket receives every
// room event and accepts ready, current_word and submit messages.
func (h *Handler) ServeRoom(w http.ResponseWriter, r *http.Request, roomID model.RoomID, userID model.UserID) {
	room, err := h.rooms.Get(r.Context(), roomID)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	if room.GetPlayer(userID) == nil {
		apierr.WriteError(w, model.ErrNotInRoom)
		return
	}

	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := h.feed.Subscribe(ctx, model.RoomTopic(roomID))
	if err != nil {
		h.logger.Error("subscribe failed", slog.String("room_id", string(roomID)), slog.Any("error", err))
		_ = conn.Close()
		return
	}
	defer sub.Close()

	c := &client{
		conn:   conn,
		roomID: roomID,
		userID: userID,
		send:   make(chan Reply, sendBufferSize),
	}

	h.logger.Info("player connected",
		slog.String("room_id", string(roomID)),
		slog.String("user_id", string(userID)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		h.write(ctx, c, sub)
	}()

	h.read(ctx, c)
	cancel()
	<-done

	h.logger.Info("player disconnected",
		slog.String("room_id", string(roomID)),
		slog.String("user_id", string(userID)))
}

// read handles client messages until the connection fails
func (h *Handler) read(ctx context.Context, c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("read error", slog.String("user_id", string(c.userID)), slog.Any("error", err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			h.reply(ctx, c, errorReply(apierr.NewInvalidRequestError("Malformed message")))
			continue
		}

		if reply, ok := h.dispatch(ctx, c, msg); ok {
			h.reply(ctx, c, reply)
		}
	}
}

// dispatch applies one client message. Successful ready and current_word
// messages are answered by the room events they cause.
func (h *Handler) dispatch(ctx context.Context, c *client, msg Message) (Reply, bool) {
	switch msg.Type {
	case TypeReady:
		ready := msg.Ready == nil || *msg.Ready
		if _, err := h.rooms.SetReady(ctx, c.roomID, c.userID, ready); err != nil {
			return errorReply(err), true
		}
	case TypeCurrentWord:
		if _, err := h.rooms.UpdateCurrentWord(ctx, c.roomID, c.userID, msg.Word); err != nil {
			return errorReply(err), true
		}
	case TypeSubmit:
		v, _, err := h.rooms.SubmitWord(ctx, c.roomID, c.userID, msg.Word)
		if err != nil {
			return errorReply(err), true
		}
		return Reply{Type: TypeWordResult, Validation: &v}, true
	default:
		return errorReply(apierr.NewInvalidRequestError("Unknown message type")), true
	}
	return Reply{}, false
}

func (h *Handler) reply(ctx context.Context, c *client, reply Reply) {
	select {
	case c.send <- reply:
	case <-ctx.Done():
	}
}

func errorReply(err error) Reply {
	apiErr := apierr.From(err)
	return Reply{Type: TypeError, Error: &apiErr}
}

// write is the only writer on the connection
func (h *Handler) write(ctx context.Context, c *client, sub *feed.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		var reply Reply
		select {
		case event, ok := <-sub.C:
			if !ok {
				h.closeWith(c, websocket.CloseGoingAway, "feed closed")
				return
			}
			reply = Reply{Type: TypeEvent, Event: &event}

		case reply = <-c.send:

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue

		case <-ctx.Done():
			h.closeWith(c, websocket.CloseNormalClosure, "")
			return
		}

		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(reply); err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				h.logger.Warn("write error", slog.String("user_id", string(c.userID)), slog.Any("error", err))
			}
			return
		}
	}
}

func (h *Handler) closeWith(c *client, code int, text string) {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text),
		time.Now().Add(writeWait))
}
