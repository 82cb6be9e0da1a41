/*
Package game contains the core logic for the liar game.

This file defines the Client struct, one live WebSocket connection. The client is
the gateway between the wire and the room loops: it runs the read/write pumps,
validates frame shape and the fields only the gateway can check (room code format,
nickname length), resolves the target room through the registry, and queues the
event for that room's loop. Rejections never leave the offending connection.
*/
package game

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"liargame/internal/pkg/errs"
	"liargame/internal/pkg/logx"
	"liargame/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 4096

	// sendBuffer sizes the per-client outbound queue.
	sendBuffer = 64

	// MaxNicknameLen is the longest nickname the gateway accepts, in runes.
	MaxNicknameLen = 24
)

// Client represents an active WebSocket connection and its player identity.
type Client struct {
	// playerID is the opaque connection identity, assigned at upgrade time and
	// stable for the connection's lifetime.
	playerID string

	conn *websocket.Conn

	registry *Registry

	// room is set by the room loop on a successful join and read by the pumps.
	room atomic.Pointer[Room]

	// send is the buffered channel of frames waiting to go out to the client.
	send chan []byte

	sendCloseOnce sync.Once

	logger zerolog.Logger
}

// NewClient constructs a Client for a freshly upgraded connection.
func NewClient(registry *Registry, wsConn *websocket.Conn) *Client {
	playerID := randx.PlayerID()

	clientLogger := logx.Logger().With().
		Str("player_id", playerID).
		Logger()

	return &Client{
		playerID: playerID,
		conn:     wsConn,
		registry: registry,
		send:     make(chan []byte, sendBuffer),
		logger:   clientLogger,
	}
}

// PlayerID returns the connection's opaque identity.
func (c *Client) PlayerID() string {
	return c.playerID
}

// setRoom binds the client to the room it joined. Called by the room loop only.
func (c *Client) setRoom(r *Room) {
	c.room.Store(r)
}

// Room returns the room this connection has joined, or nil.
func (c *Client) Room() *Room {
	return c.room.Load()
}

// closeSend closes the outbound queue exactly once, which makes WritePump send a
// close frame and exit.
func (c *Client) closeSend() {
	c.sendCloseOnce.Do(func() {
		close(c.send)
	})
}

// ReadPump reads frames from the WebSocket connection until it fails or closes,
// then notifies the joined room (if any) of the disconnect.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (client close/going away)")
			}
			break
		}

		c.processInboundFrame(frame)
	}
}

// cleanupOnDisconnect routes the disconnect into the joined room's loop and closes
// the underlying connection.
func (c *Client) cleanupOnDisconnect() {
	if room := c.Room(); room != nil {
		room.notifyLeave(c)
	}

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Connection close error")
	}
}

// processInboundFrame parses one raw frame and routes the event.
func (c *Client) processInboundFrame(frame []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid JSON")
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	switch env.Type {
	case EventJoin:
		c.handleJoinEvent(env.Payload)

	case EventStartGame, EventSendChat, EventCallVote, EventSubmitVote, EventNextTurn, EventReturnToLobby:
		c.routeRoomEvent(env.Type, env.Payload)

	default:
		c.logger.Warn().Str("event_type", string(env.Type)).Msg("Client sent unsupported event type")
		c.SendError(errs.NewError(errs.ErrInvalidParams))
	}
}

// handleJoinEvent validates the join fields the gateway owns, resolves (or, for a
// reconnecting host, re-creates) the room, and queues the join for its loop.
func (c *Client) handleJoinEvent(payload json.RawMessage) {
	var p JoinPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	if c.Room() != nil {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	if p.Nickname == "" || len([]rune(p.Nickname)) > MaxNicknameLen {
		c.SendError(errs.NewError(errs.ErrNicknameInvalid))
		return
	}

	code := randx.NormalizeRoomCode(p.RoomID)
	if !randx.IsValidRoomCode(code) {
		c.SendError(errs.NewError(errs.ErrRoomNotFound, code))
		return
	}

	room := c.registry.GetOrCreate(code, p.CreateIfNotExists)
	if room == nil {
		c.SendError(errs.NewError(errs.ErrRoomNotFound, code))
		return
	}

	p.RoomID = code
	normalized, err := json.Marshal(p)
	if err != nil {
		c.SendError(errs.NewError(errs.ErrUnknown))
		return
	}

	room.deliver(c, EventJoin, normalized)
}

// routeRoomEvent resolves the room addressed by the payload and queues the event.
// The room loop does the membership, authorization, and state checks.
func (c *Client) routeRoomEvent(typ EventType, payload json.RawMessage) {
	code, ok := roomID(payload)
	if !ok {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	room := c.registry.Lookup(code)
	if room == nil {
		c.SendError(errs.NewError(errs.ErrRoomNotFound, code))
		return
	}

	room.deliver(c, typ, payload)
}

// WritePump writes queued frames to the WebSocket connection and keeps the
// heartbeat alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline")
				return
			}

			if !ok {
				// room closed the queue; say goodbye properly
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug().Err(err).Msg("Error writing close message")
				}
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Error().Err(err).Msg("Error writing message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Error().Err(err).Msg("Error writing ping")
				return
			}
		}
	}
}

// enqueue puts a marshaled frame on the outbound queue without blocking. A full or
// closed queue drops the frame; the slow client will be cleaned up by its pumps.
func (c *Client) enqueue(frame []byte) {
	defer func() {
		if recover() != nil {
			c.logger.Debug().Msg("Enqueue on closed send channel ignored")
		}
	}()

	select {
	case c.send <- frame:
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send queue full, dropping frame")
	}
}

// SendError sends an error notice to this connection only.
func (c *Client) SendError(customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	frame, err := NewNotice(NoticeError, ErrorPayload{
		Code:    customErr.Code,
		Message: customErr.Message,
	})

	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build error notice")
		return
	}

	c.enqueue(frame)
}
