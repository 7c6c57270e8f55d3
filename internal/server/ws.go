package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/signbridge/internal/app"
	"github.com/ayusman/signbridge/internal/logging"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 << 10,
	WriteBufferSize: 4 << 10,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsFrame is a text message carrying a base64 frame.
type wsFrame struct {
	Frame     string `json:"frame"`
	SessionID string `json:"session_id"`
}

// handleWebSocket streams recognition results over one connection. Binary
// messages are encoded images for the connection's session; text messages
// are JSON {frame, session_id}. Every message gets one JSON reply.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.FromContext(r.Context()).WithError(err).Warn("server: websocket upgrade failed")
		return
	}
	defer conn.Close()

	if !s.sockets.add(conn) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(wsWriteWait))
		return
	}
	defer s.sockets.remove(conn)

	ctx := r.Context()
	sessionID := app.SessionOrDefault(r.URL.Query().Get("session_id"))
	log := logging.FromContext(ctx).WithField("session_id", sessionID)
	log.Info("server: websocket client connected")

	conn.SetReadLimit(s.config.MaxUploadBytes)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	msgs := make(chan wsMessage)
	done := make(chan struct{})
	defer close(done)
	go readMessages(conn, msgs, done)

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case msg, ok := <-msgs:
			if !ok {
				log.Info("server: websocket client disconnected")
				return
			}
			reply := s.recognizeMessage(r, sessionID, msg)
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(reply); err != nil {
				log.WithError(err).Debug("server: websocket write failed")
				return
			}
		}
	}
}

type wsMessage struct {
	kind int
	data []byte
}

// readMessages owns all reads on conn until it fails or done closes.
func readMessages(conn *websocket.Conn, out chan<- wsMessage, done <-chan struct{}) {
	defer close(out)
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		select {
		case out <- wsMessage{kind: kind, data: data}:
		case <-done:
			return
		}
	}
}

func (s *Server) recognizeMessage(r *http.Request, sessionID string, msg wsMessage) any {
	ctx := r.Context()

	var (
		res *app.Result
		err error
	)
	switch msg.kind {
	case websocket.BinaryMessage:
		res, err = s.config.App.Recognize(ctx, sessionID, msg.data)
	default:
		var f wsFrame
		if jerr := json.Unmarshal(msg.data, &f); jerr != nil {
			return errorResponse{Detail: "Invalid JSON body"}
		}
		if f.SessionID == "" {
			f.SessionID = sessionID
		}
		res, err = s.config.App.RecognizeBase64(ctx, f.SessionID, f.Frame)
	}

	if err != nil {
		status, detail := recognizeError(err)
		logging.FromContext(ctx).WithFields(logrus.Fields{
			"status": status,
		}).WithError(err).Warn("server: websocket frame failed")
		return errorResponse{Detail: detail}
	}
	return res
}

// socketSet tracks live WebSocket connections. Hijacked connections are not
// closed by http.Server.Shutdown.
type socketSet struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

func newSocketSet() *socketSet {
	return &socketSet{conns: make(map[*websocket.Conn]struct{})}
}

// add registers conn and reports false once closeAll has run.
func (s *socketSet) add(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *socketSet) remove(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *socketSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// closeAll closes every connection, refuses new ones and waits for their
// handlers to return or ctx to end.
func (s *socketSet) closeAll(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	deadline := time.Now().Add(time.Second)
	for conn := range s.conns {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
