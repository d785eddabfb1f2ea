// Package relay implements the connection-to-broker core: the inbound
// dispatcher that classifies and writes through frames, and the outbound
// queue and merger that bound what flows back to the transport.
package relay

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/roomchat/relay/internal/broker"
	"github.com/roomchat/relay/internal/codec"
	"github.com/roomchat/relay/internal/domain"
	"github.com/roomchat/relay/internal/history"
	"github.com/roomchat/relay/internal/observability"
	"github.com/roomchat/relay/internal/store"
)

type Mode string

const (
	// ModeSequential processes each frame fully before the next one starts.
	// Room message order matches arrival order.
	ModeSequential Mode = "sequential"

	// ModeConcurrent allows up to MaxInFlight frames in flight at once.
	// Higher throughput; publish order may differ from arrival order.
	ModeConcurrent Mode = "concurrent"
)

const DefaultMaxInFlight = 16

type DispatcherConfig struct {
	Room        string
	User        string
	Store       store.Store
	History     *history.Cache
	Broker      broker.Broker
	Out         *Queue
	Mode        Mode
	MaxInFlight int
	Logger      *zap.Logger
}

// Dispatcher consumes one connection's inbound frames: decode, route by
// envelope type, write through store + history + broker. A failure in any
// step loses that one frame only; the connection keeps going.
type Dispatcher struct {
	room    string
	user    string
	store   store.Store
	history *history.Cache
	broker  broker.Broker
	out     *Queue
	mode    Mode
	sem     chan struct{}
	wg      sync.WaitGroup
	log     *zap.Logger
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		room:    cfg.Room,
		user:    cfg.User,
		store:   cfg.Store,
		history: cfg.History,
		broker:  cfg.Broker,
		out:     cfg.Out,
		mode:    cfg.Mode,
		log:     cfg.Logger,
	}
	if d.log == nil {
		d.log = observability.GetLogger(context.Background())
	}
	if d.mode == "" {
		d.mode = ModeSequential
	}
	if d.mode == ModeConcurrent {
		maxInFlight := cfg.MaxInFlight
		if maxInFlight < 1 {
			maxInFlight = DefaultMaxInFlight
		}
		d.sem = make(chan struct{}, maxInFlight)
	}
	return d
}

// Dispatch handles one raw frame. In sequential mode it returns only after
// the frame's effects are complete; in concurrent mode it may return once a
// slot is acquired and the work is scheduled.
func (d *Dispatcher) Dispatch(ctx context.Context, frame []byte) {
	env, err := codec.Decode(frame)
	if err != nil {
		observability.DecodeErrorsTotal.Inc()
		d.log.Warn("dispatcher: dropping malformed frame",
			zap.String("room", d.room), zap.String("user", d.user), zap.Error(err))
		return
	}

	if d.sem == nil {
		d.process(ctx, env)
		return
	}

	select {
	case d.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	d.wg.Add(1)
	go func() {
		defer func() {
			<-d.sem
			d.wg.Done()
		}()
		d.process(ctx, env)
	}()
}

// Wait blocks until all in-flight frames are done. No-op in sequential mode.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) process(ctx context.Context, env codec.Envelope) {
	switch env.Type {
	case codec.TypeChatMessage:
		d.handleChatMessage(ctx, env.Chat)
	case codec.TypeLoadHistory:
		d.handleLoadHistory(ctx, env.History)
	}
}

func (d *Dispatcher) handleChatMessage(ctx context.Context, p *codec.ChatPayload) {
	msg := domain.NewChatMessage(d.room, d.user, p.Body, time.Now().UTC())
	msg.ID = p.ID

	saved, err := d.store.Save(ctx, msg)
	if err != nil {
		observability.StoreErrorsTotal.WithLabelValues("save").Inc()
		observability.MessagesTotal.WithLabelValues("chat_message", "store_error").Inc()
		d.log.Error("dispatcher: message lost, store save failed",
			zap.String("room", d.room), zap.String("user", d.user), zap.Error(err))
		return
	}

	payload, err := codec.Encode(*saved)
	if err != nil {
		observability.MessagesTotal.WithLabelValues("chat_message", "encode_error").Inc()
		d.log.Error("dispatcher: message lost, encoding failed",
			zap.String("room", d.room), zap.Error(err))
		return
	}

	entry := history.Entry{MessageID: saved.ID, Payload: payload}
	if p.ID == "" {
		d.history.Append(entry)
	} else {
		// Edits to messages already evicted from history are a no-op here;
		// only the durable store reflects them.
		d.history.Replace(entry)
	}

	if err := d.broker.Publish(ctx, d.room, payload); err != nil {
		observability.MessagesTotal.WithLabelValues("chat_message", "publish_error").Inc()
		d.log.Error("dispatcher: message stored but not broadcast",
			zap.String("room", d.room), zap.String("id", saved.ID), zap.Error(err))
		return
	}

	observability.MessagesTotal.WithLabelValues("chat_message", "ok").Inc()
}

// handleLoadHistory answers a paging request on this connection's own
// outbound queue. A private reply, not a room broadcast.
func (d *Dispatcher) handleLoadHistory(ctx context.Context, p *codec.HistoryPayload) {
	size := p.Size
	if size == 0 {
		size = d.history.Capacity()
	}

	messages, err := d.store.FindByRoom(ctx, d.room, p.Page, size)
	if err != nil {
		observability.StoreErrorsTotal.WithLabelValues("find_by_room").Inc()
		observability.MessagesTotal.WithLabelValues("load_history", "store_error").Inc()
		d.log.Error("dispatcher: history page failed",
			zap.String("room", d.room), zap.Int("page", p.Page), zap.Error(err))
		return
	}

	for _, msg := range messages {
		payload, err := codec.Encode(*msg)
		if err != nil {
			d.log.Error("dispatcher: skipping unencodable history row",
				zap.String("room", d.room), zap.String("id", msg.ID), zap.Error(err))
			continue
		}
		d.out.Push(payload)
	}

	observability.MessagesTotal.WithLabelValues("load_history", "ok").Inc()
}
