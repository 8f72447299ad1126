package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"storybuddy/core"
	"storybuddy/protocol"
	"storybuddy/session"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The reading app serves its own client page; no cross-origin callers.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn binds one WebSocket connection to one delivery session. Frames are
// read on a dedicated goroutine but handled one at a time in arrival order,
// so word events for a batch go out in position order and a second
// generate_set cannot interleave with one in flight.
type wsConn struct {
	conn *websocket.Conn
	sess *session.Session
	log  *core.Logger

	writeMu sync.Mutex // protects writes
}

// handleWebSocket upgrades the connection and runs the session until the
// client disconnects. Session state dies with the connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.With(map[string]interface{}{"error": err}).Warn("websocket upgrade failed")
		return
	}

	sess := session.New(s.pipeline, s.settings.BatchSize, s.logger)
	c := &wsConn{
		conn: conn,
		sess: sess,
		log:  s.logger.With(map[string]interface{}{"session": sess.ID}),
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c.log.Info("session opened")
	c.run(ctx, cancel)
	c.log.Info("session closed")
}

// run pumps frames from a reader goroutine into a sequential handler loop.
// When the connection drops, the reader cancels ctx, so a batch still
// generating aborts instead of running to completion against a dead peer.
func (c *wsConn) run(ctx context.Context, cancel context.CancelFunc) {
	defer c.conn.Close()

	frames := make(chan []byte)
	go func() {
		defer close(frames)
		defer cancel()
		for {
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.log.With(map[string]interface{}{"error": err}).Debug("connection lost")
				}
				return
			}
			frames <- data
		}
	}()

	for data := range frames {
		c.handleMessage(ctx, data)
	}
}

func (c *wsConn) handleMessage(ctx context.Context, data []byte) {
	msgType, payload, err := protocol.Unmarshal(data)
	if err != nil {
		c.emitError("malformed message: " + err.Error())
		return
	}

	switch msgType {
	case protocol.MsgSetStory:
		p, err := protocol.UnmarshalPayload[protocol.SetStoryPayload](payload)
		if err != nil {
			c.emitError("invalid set_story payload: " + err.Error())
			return
		}
		total := c.sess.SetStory(p.Text)
		c.Emit(protocol.MsgStorySet, protocol.StorySetPayload{TotalWords: total})

	case protocol.MsgGenerateSet:
		p, err := protocol.UnmarshalPayload[protocol.GenerateSetPayload](payload)
		if err != nil {
			c.emitError("invalid generate_set payload: " + err.Error())
			return
		}
		if err := c.sess.GenerateSet(ctx, p.BatchIndex, c); err != nil {
			c.emitError(err.Error())
		}

	case protocol.MsgPing:
		c.Emit(protocol.MsgPong, nil)

	default:
		c.emitError("unknown message type: " + string(msgType))
	}
}

// Emit implements session.Emitter: one protocol envelope per text frame.
func (c *wsConn) Emit(msgType protocol.MessageType, payload interface{}) error {
	data, err := protocol.Marshal(msgType, payload)
	if err != nil {
		c.log.With(map[string]interface{}{"error": err, "type": string(msgType)}).Warn("failed to marshal message, dropping")
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) emitError(message string) {
	c.Emit(protocol.MsgError, protocol.ErrorPayload{Message: message})
}
