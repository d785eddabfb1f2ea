package websocket

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/roomchat/relay/internal/relay"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Session is one connection's transport half: it owns the gorilla conn and
// pumps the bounded outbound queue to the client as text frames.
type Session struct {
	ID   string
	Room string
	User string

	conn   *websocket.Conn
	out    *relay.Queue
	done   chan struct{}
	closed atomic.Int32
	log    *zap.Logger
}

func NewSession(id, room, user string, conn *websocket.Conn, out *relay.Queue, log *zap.Logger) *Session {
	return &Session{
		ID:   id,
		Room: room,
		User: user,
		conn: conn,
		out:  out,
		done: make(chan struct{}),
		log:  log,
	}
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Outbound is the queue the merger and private replies push into.
func (s *Session) Outbound() *relay.Queue {
	return s.out
}

func (s *Session) Start(ctx context.Context) {
	go s.writeLoop(ctx)
}

// Close ends the session with a normal closure status (client disconnect,
// server shutdown).
func (s *Session) Close() {
	s.CloseWithReason(websocket.CloseNormalClosure, "closing")
}

// CloseWithReason ends the session once; later calls are no-ops. An
// unrecoverable server-side error uses CloseInternalServerErr so the client
// sees an explicit failure, never a silent hang.
func (s *Session) CloseWithReason(code int, reason string) {
	if !s.closed.CompareAndSwap(0, 1) {
		return
	}

	s.log.Info("session: closing",
		zap.String("room", s.Room), zap.String("user", s.User),
		zap.Int("code", code), zap.String("reason", reason))
	close(s.done)
	s.out.Close()

	if s.conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		s.conn.Close()
	}
}

func (s *Session) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Warn("session: ping error",
					zap.String("room", s.Room), zap.String("user", s.User), zap.Error(err))
				s.CloseWithReason(websocket.CloseInternalServerErr, "ping failure")
				return
			}
		case <-s.out.Ready():
			if !s.drain() {
				return
			}
		}
	}
}

// drain writes everything currently buffered. Returns false when the
// session must end.
func (s *Session) drain() bool {
	for {
		payload, ok := s.out.TryPop()
		if !ok {
			return true
		}
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.log.Error("session: write error",
				zap.String("room", s.Room), zap.String("user", s.User), zap.Error(err))
			s.CloseWithReason(websocket.CloseInternalServerErr, "write failure")
			return false
		}
	}
}
