package http

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"lingo-quiz-service/internal/app"
	"lingo-quiz-service/internal/domain"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsMaxMessage = 8 << 10
)

// WSHandler streams a user's progress updates and accepts answers over a websocket.
type WSHandler struct {
	progress *app.ProgressService
	feed     *app.ProgressFeed
	upgrader websocket.Upgrader
}

func NewWSHandler(progress *app.ProgressService, feed *app.ProgressFeed) *WSHandler {
	return &WSHandler{
		progress: progress,
		feed:     feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// wsConn is one live progress socket.
type wsConn struct {
	conn    *websocket.Conn
	userID  string
	replies chan outboundMessage
	updates <-chan domain.ProgressSnapshot
	done    chan struct{}
}

// ServeWS must run behind RequireAuth; the socket belongs to the session's user.
//
// Outbound messages: "report" once on connect, "progress" for every recorded
// attempt of the user (from any connection or the REST API), "answerResult"
// in reply to an inbound "answer", and "error".
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFrom(r.Context())
	if userID == "" {
		writeError(w, domain.ErrUnauthenticated)
		return
	}

	report, err := h.progress.GetProgress(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.feed.Subscribe(userID)
	defer cancel()

	c := &wsConn{
		conn:    conn,
		userID:  userID,
		replies: make(chan outboundMessage, 16),
		updates: updates,
		done:    make(chan struct{}),
	}
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop()
	}()

	c.reply(writerDone, outboundMessage{Type: "report", Payload: report})
	c.readLoop(writerDone, func(sub domain.AttemptSubmission) outboundMessage {
		snap, err := h.progress.RecordAttempt(r.Context(), userID, sub)
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage{Type: "answerResult", Payload: snap}
	})

	close(c.done)
	<-writerDone
}

// readLoop handles inbound messages until the peer goes away or stops answering pings.
func (c *wsConn) readLoop(writerDone <-chan struct{}, answer func(domain.AttemptSubmission) outboundMessage) {
	c.conn.SetReadLimit(wsMaxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var inbound inboundMessage
		if err := c.conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws read error for user %s: %v", c.userID, err)
			}
			return
		}

		var msg outboundMessage
		switch inbound.Type {
		case "answer":
			var sub domain.AttemptSubmission
			if err := json.Unmarshal(inbound.Payload, &sub); err != nil {
				msg = errorMessage(domain.Invalid("payload", "invalid answer payload"))
				break
			}
			msg = answer(sub)
		default:
			msg = outboundMessage{Type: "error", Payload: errorBody{Message: "unsupported message type"}}
		}
		if !c.reply(writerDone, msg) {
			return
		}
	}
}

// reply queues msg for the writer. It reports false once the writer has stopped.
func (c *wsConn) reply(writerDone <-chan struct{}, msg outboundMessage) bool {
	select {
	case c.replies <- msg:
		return true
	case <-writerDone:
		return false
	}
}

// writeLoop is the only goroutine writing to the connection.
func (c *wsConn) writeLoop() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		// unblocks readLoop when the writer fails first
		_ = c.conn.Close()
	}()

	for {
		var msg outboundMessage
		select {
		case msg = <-c.replies:
		case update, ok := <-c.updates:
			if !ok {
				return
			}
			msg = outboundMessage{Type: "progress", Payload: update}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		case <-c.done:
			return
		}

		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			log.Printf("ws write error for user %s: %v", c.userID, err)
			return
		}
	}
}

func errorMessage(err error) outboundMessage {
	_, body := errorResponse(err)
	return outboundMessage{Type: "error", Payload: body}
}
