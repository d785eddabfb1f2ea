package websocket

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/roomchat/relay/internal/broker"
	"github.com/roomchat/relay/internal/history"
	"github.com/roomchat/relay/internal/observability"
	"github.com/roomchat/relay/internal/relay"
	"github.com/roomchat/relay/internal/store"
)

type Options struct {
	SendBuffer  int
	Mode        relay.Mode
	MaxInFlight int
}

// Handler upgrades /chat requests and wires each connection's dispatcher,
// merger, and session together for the life of the connection.
type Handler struct {
	registry *Registry
	rooms    *history.Registry
	broker   broker.Broker
	store    store.Store
	opts     Options
}

func NewHandler(registry *Registry, rooms *history.Registry, b broker.Broker, s store.Store, opts Options) *Handler {
	if opts.SendBuffer < 1 {
		opts.SendBuffer = 256
	}
	return &Handler{
		registry: registry,
		rooms:    rooms,
		broker:   b,
		store:    s,
		opts:     opts,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	room := queryParam(r, "room", "default")
	user := queryParam(r, "user", "anonymous")
	includeHistory := true
	if v := r.URL.Query().Get("includeHistory"); v != "" {
		b, err := strconv.ParseBool(v)
		includeHistory = err == nil && b
	}

	log := observability.GetLogger(r.Context())
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("upgrade error", zap.Error(err))
		return
	}

	// The request context dies with this handler; the connection outlives
	// it, so the session owns its own lifetime.
	ctx, cancel := context.WithCancel(context.Background())

	hist := h.rooms.ForRoom(room)
	queue := relay.NewQueue(h.opts.SendBuffer, func(n int) {
		observability.OutboundDroppedTotal.WithLabelValues(room).Add(float64(n))
		log.Warn("dropping oldest outbound messages",
			zap.String("room", room), zap.String("user", user), zap.Int("dropped", n))
	})
	session := NewSession(uuid.NewString(), room, user, conn, queue, log)

	merger := relay.NewMerger(queue, includeHistory)
	sub, err := h.broker.Subscribe(ctx, room, merger)
	if err != nil {
		log.Error("subscribe error", zap.String("room", room), zap.Error(err))
		session.CloseWithReason(websocket.CloseInternalServerErr, "subscribe failure")
		cancel()
		return
	}
	if includeHistory {
		merger.Replay(hist.Snapshot())
	}

	disp := relay.NewDispatcher(relay.DispatcherConfig{
		Room:        room,
		User:        user,
		Store:       h.store,
		History:     hist,
		Broker:      h.broker,
		Out:         queue,
		Mode:        h.opts.Mode,
		MaxInFlight: h.opts.MaxInFlight,
		Logger:      log,
	})

	h.registry.Add(session)
	observability.ConnectionsActive.WithLabelValues("chat-relay").Inc()
	log.Info("connected",
		zap.String("room", room), zap.String("user", user),
		zap.Bool("include_history", includeHistory))

	session.Start(ctx)
	go h.readLoop(ctx, cancel, session, disp, sub)
}

// readLoop drives the inbound half. When it returns, for any reason, the
// whole connection is torn down: subscription released, in-flight frames
// drained, session closed. Nothing keeps running for a dead connection.
func (h *Handler) readLoop(ctx context.Context, cancel context.CancelFunc, s *Session, disp *relay.Dispatcher, sub broker.Subscription) {
	log := s.log
	defer func() {
		cancel()
		sub.Close()
		disp.Wait()
		h.registry.Remove(s)
		s.Close()
		observability.ConnectionsActive.WithLabelValues("chat-relay").Dec()
		log.Info("disconnected", zap.String("room", s.Room), zap.String("user", s.User))
	}()

	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn("read loop error",
					zap.String("room", s.Room), zap.String("user", s.User), zap.Error(err))
			}
			return
		}
		disp.Dispatch(ctx, frame)
	}
}

func queryParam(r *http.Request, key, fallback string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return fallback
}
