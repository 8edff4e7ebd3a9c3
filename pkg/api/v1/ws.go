// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/aperturehq/aperture/pkg/agent"
	"github.com/aperturehq/aperture/pkg/errors"
	"github.com/aperturehq/aperture/pkg/logger"
	"github.com/aperturehq/aperture/pkg/session"
	"github.com/aperturehq/aperture/pkg/store"
	"github.com/aperturehq/aperture/pkg/telemetry"
)

const (
	// writeWait bounds a single write to the peer.
	writeWait = 10 * time.Second

	// pongWait is how long the peer may stay silent before the read side
	// gives up; pings go out at pingPeriod to keep it alive.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendBufferFrames is the per-connection outbound queue. A peer that
	// lets it fill is disconnected as a slow consumer.
	sendBufferFrames = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Clients authenticate with a bearer token, not cookies, so
	// cross-origin upgrades carry no ambient authority.
	CheckOrigin: func(*http.Request) bool { return true },
}

// connectedFrame is the first frame on a freshly opened channel.
type connectedFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Restored  bool   `json:"restored,omitempty"`
}

// frameChannel
//
//	@Summary		Open the bidirectional frame channel
//	@Description	Upgrade to a WebSocket carrying commands in and session events out
//	@Tags			sessions
//	@Param			id	path	string	true	"Session ID"
//	@Success		101	{string}	string	"Switching Protocols"
//	@Router			/v1/sessions/{id}/ws [get]
func (s *SessionRoutes) frameChannel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		logger.Warnf("websocket upgrade failed for session %s: %v", id, err)
		return
	}

	rt, restored, err := s.manager.Connect(r.Context(), id)
	if err != nil {
		reason := "session unavailable"
		switch {
		case stderrors.Is(err, store.ErrNotFound):
			reason = "session not found"
		case errors.IsTransition(err):
			reason = "session has ended"
		}
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	c := &wsConn{
		conn:      conn,
		sessionID: id,
		maxFrame:  s.cfg.MaxMessageSizeBytes,
		metrics:   s.metrics,
		send:      make(chan []byte, sendBufferFrames),
		done:      make(chan struct{}),
	}
	c.run(r.Context(), rt, restored)
}

// wsConn is one frame-channel connection bound to one session. All writes
// to the peer go through the send queue; writePump is the only goroutine
// touching the socket's write side.
type wsConn struct {
	conn      *websocket.Conn
	sessionID string
	maxFrame  int64
	metrics   *telemetry.Metrics

	send chan []byte
	done chan struct{}

	closeOnce   sync.Once
	closeCode   int
	closeReason string
}

// run drives the connection until the peer goes away, the session ends, or
// the peer is dropped for falling behind.
func (c *wsConn) run(ctx context.Context, rt *session.Runtime, restored bool) {
	events, unsubscribe := rt.Subscribe(true)
	defer unsubscribe()

	c.enqueueJSON(connectedFrame{
		Type:      agent.EventConnected,
		SessionID: c.sessionID,
		Restored:  restored,
	})

	go c.writePump()
	go c.forwardEvents(events)

	c.readLoop(ctx, rt)
	c.closeWith(websocket.CloseNormalClosure, "")
}

// forwardEvents feeds the runtime's event stream into the send queue. The
// stream closing means the session ended or this subscriber was dropped.
func (c *wsConn) forwardEvents(events <-chan agent.Event) {
	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Errorf("failed to encode session event: %v", err)
			continue
		}
		c.enqueue(data)
	}
	c.closeWith(websocket.CloseNormalClosure, "session ended")
}

// readLoop parses and dispatches inbound frames. Per-frame failures are
// answered with framed errors; only transport failures end the loop.
func (c *wsConn) readLoop(ctx context.Context, rt *session.Runtime) {
	// Twice the logical limit is the hard transport backstop: frames over
	// the logical limit get a framed error, frames over the backstop kill
	// the connection.
	c.conn.SetReadLimit(c.maxFrame * 2)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debugf("session %s frame channel read ended: %v", c.sessionID, err)
			}
			return
		}

		if int64(len(data)) > c.maxFrame {
			c.metrics.InboundFrame("oversize")
			c.enqueueJSON(errorFrame{
				Type:    "error",
				Code:    codeFrameTooLarge,
				Message: fmt.Sprintf("frame size %d exceeds the %d byte limit", len(data), c.maxFrame),
			})
			continue
		}

		var frame commandFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.metrics.InboundFrame("invalid")
			c.enqueueJSON(errorFrame{Type: "error", Code: codeParseError, Message: "malformed JSON frame"})
			continue
		}
		c.metrics.InboundFrame(frame.Type)

		handler, ok := commandHandlers[frame.Type]
		if !ok {
			c.enqueueJSON(errorFrame{
				Type:    "error",
				ID:      frame.ID,
				Code:    codeUnknownCommand,
				Message: fmt.Sprintf("unknown command type %q", frame.Type),
			})
			continue
		}

		result, err := handler(ctx, rt, &frame)
		if err != nil {
			c.enqueueJSON(errorFrame{
				Type:    "error",
				ID:      frame.ID,
				Code:    frameErrorCode(err),
				Message: err.Error(),
			})
			continue
		}
		if frame.ID != "" {
			c.enqueueJSON(responseFrame{Type: "response", ID: frame.ID, Result: result})
		}
	}
}

// writePump owns the socket's write side: queued frames, keep-alive pings,
// and the final close frame.
func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.closeWith(websocket.CloseAbnormalClosure, "write failed")
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.closeWith(websocket.CloseAbnormalClosure, "ping failed")
				_ = c.conn.Close()
				return
			}
		case <-c.done:
			// A normal closure still owes the peer whatever is queued,
			// most importantly the final exit event. Backpressure and
			// transport closes skip the flush; the peer is not draining.
			if c.closeCode == websocket.CloseNormalClosure {
				c.flushQueued()
			}
			msg := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			_ = c.conn.Close()
			return
		}
	}
}

// flushQueued drains the send queue to the peer, stopping at the first
// write failure.
func (c *wsConn) flushQueued() {
	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

// enqueue hands a frame to the write pump. A full queue means the peer is
// not draining: it is disconnected rather than allowed to stall the
// session's fan-out.
func (c *wsConn) enqueue(data []byte) {
	select {
	case c.send <- data:
	case <-c.done:
	default:
		c.metrics.SubscriberDropped()
		c.closeWith(websocket.CloseTryAgainLater, "slow consumer")
	}
}

func (c *wsConn) enqueueJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Errorf("failed to encode frame: %v", err)
		return
	}
	c.enqueue(data)
}

// closeWith records the close code once and releases the write pump to
// deliver it. Subsequent calls keep the first code.
func (c *wsConn) closeWith(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.done)
	})
}
