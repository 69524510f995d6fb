package room

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/shootout-backend/internal/engine"
	"github.com/DoyleJ11/shootout-backend/internal/progression"
	"github.com/DoyleJ11/shootout-backend/internal/roles"
)

// ErrClosed answers a Join that reached the room after it shut down.
var ErrClosed = errors.New("room closed")

const defaultIdleTimeout = 5 * time.Minute

type Msg interface{ isRoomMsg() }

// FromPeer carries a command from a seated peer.
type FromPeer struct {
	PeerID string
	Cmd    engine.Command
}

func (FromPeer) isRoomMsg() {}

type Join struct {
	PeerID string
	Name   string
	Outbox chan Update // where this peer wants to receive updates
	Reply  chan error  // optional, buffered; receives the join result
}

func (Join) isRoomMsg() {}

type Leave struct{ PeerID string }

func (Leave) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

// Update is what peers receive. Err is only set on updates addressed to the
// single peer whose command was rejected.
type Update struct {
	Version int
	State   engine.Snapshot
	Events  []engine.Event
	Err     error
}

type View struct {
	Code     string
	Version  int
	NumPeers int
	State    engine.Snapshot
}

type Options struct {
	Code         string
	Rules        engine.Rules
	TickInterval time.Duration
	Logger       *zap.Logger
	Awarder      progression.Awarder
	Rand         roles.Rand
	IdleTimeout  time.Duration // close after this long without peers; 5m when zero

	// OnClose runs on the room goroutine after the room has shut down.
	OnClose func(*Room)
}

type Room struct {
	code    string
	inbox   chan Msg
	match   *engine.Match
	version int
	last    engine.Snapshot
	peers   map[string]chan Update
	awarder progression.Awarder
	log     *zap.Logger
	tick    time.Duration
	idle    time.Duration
	empty   time.Time // when the room last became empty; zero while seated
	onClose func(*Room)
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, opts Options) *Room {
	ctx, cancel := context.WithCancel(parent)

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("room", opts.Code))

	tick := opts.TickInterval
	if tick <= 0 {
		tick = time.Second / 30
	}
	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = defaultIdleTimeout
	}

	match := engine.NewMatch(opts.Rules, engine.Deps{Logger: log, Rand: opts.Rand})
	r := &Room{
		code:    opts.Code,
		inbox:   make(chan Msg, 64),
		match:   match,
		last:    match.Snapshot(),
		peers:   make(map[string]chan Update),
		awarder: opts.Awarder,
		log:     log,
		tick:    tick,
		idle:    idle,
		empty:   time.Now(),
		onClose: opts.OnClose,
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}

	go r.loop()
	return r
}

func (r *Room) loop() {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if r.publish(r.match.Tick(dt)) {
				return
			}
			if r.idleFor(now) {
				r.log.Info("room idle, closing", zap.Duration("idle", r.idle))
				r.shutdown()
				return
			}

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				if r.join(msg) {
					return
				}

			case Leave:
				_, seated := r.peers[msg.PeerID]
				delete(r.peers, msg.PeerID)
				if r.publish(r.match.Leave(msg.PeerID)) {
					return
				}
				if seated && len(r.peers) == 0 {
					r.log.Info("last peer left, closing room")
					r.shutdown()
					return
				}

			case FromPeer:
				events, err := r.match.Apply(msg.PeerID, msg.Cmd)
				if err != nil {
					r.log.Warn("command rejected",
						zap.String("peer", msg.PeerID),
						zap.String("cmd", string(msg.Cmd.Type)),
						zap.Error(err),
					)
					r.sendTo(msg.PeerID, Update{Version: r.version, State: r.last, Err: err})
					break
				}
				if r.publish(events) {
					return
				}

			case GetState:
				msg.Reply <- View{
					Code:     r.code,
					Version:  r.version,
					NumPeers: len(r.peers),
					State:    r.last,
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

// idleFor reports whether the room has had no peers for the idle timeout.
func (r *Room) idleFor(now time.Time) bool {
	if len(r.peers) > 0 {
		r.empty = time.Time{}
		return false
	}
	if r.empty.IsZero() {
		r.empty = now
	}
	return now.Sub(r.empty) >= r.idle
}

// join seats the peer and reports whether the room shut down.
func (r *Room) join(msg Join) bool {
	events, err := r.match.Join(msg.PeerID, msg.Name)
	if msg.Reply != nil {
		msg.Reply <- err
	}
	if err != nil {
		r.log.Info("join refused", zap.String("peer", msg.PeerID), zap.Error(err))
		return false
	}

	r.peers[msg.PeerID] = msg.Outbox
	if len(events) == 0 {
		r.sendTo(msg.PeerID, Update{Version: r.version, State: r.last})
		return false
	}
	return r.publish(events)
}

// publish bumps the version and broadcasts when the match changed. It reports
// whether the room shut down as a result.
func (r *Room) publish(events []engine.Event) bool {
	snap := r.match.Snapshot()
	if len(events) == 0 && snap == r.last {
		return false
	}

	r.version++
	r.last = snap
	r.award(events)
	r.broadcast(Update{Version: r.version, State: snap, Events: events})

	if snap.Phase == engine.PhaseAborted {
		r.log.Info("match aborted, closing room", zap.Int("version", r.version))
		r.shutdown()
		return true
	}
	return false
}

func (r *Room) award(events []engine.Event) {
	for _, e := range events {
		if e.Type != engine.EvtCoinsAwarded {
			continue
		}
		if r.awarder == nil {
			r.log.Warn("no awarder configured, coins not credited", zap.String("peer", e.PeerID), zap.Int("coins", e.Value))
			continue
		}
		if err := r.awarder.Award(r.ctx, e.PeerID, e.Value); err != nil {
			r.log.Error("award coins", zap.String("peer", e.PeerID), zap.Int("coins", e.Value), zap.Error(err))
		}
	}
}

func (r *Room) shutdown() {
	for id, ch := range r.peers {
		close(ch) // no more updates
		delete(r.peers, id)
	}
	r.cancel()
	close(r.done)
	r.drain()
	if r.onClose != nil {
		r.onClose(r)
	}
}

// drain answers requests that were queued before the room shut down so their
// senders do not wait forever.
func (r *Room) drain() {
	for {
		select {
		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				if msg.Reply != nil {
					select {
					case msg.Reply <- ErrClosed:
					default:
					}
				}
			case GetState:
				select {
				case msg.Reply <- View{Code: r.code, Version: r.version, State: r.last}:
				default:
				}
			}
		default:
			return
		}
	}
}

func (r *Room) broadcast(u Update) {
	for id, ch := range r.peers {
		select {
		case ch <- u:
		default:
			// Slow peer: drop it. Its connection notices the closed outbox
			// and reports the disconnect.
			r.log.Warn("dropping slow peer", zap.String("peer", id))
			close(ch)
			delete(r.peers, id)
		}
	}
}

func (r *Room) sendTo(peerID string, u Update) {
	ch, ok := r.peers[peerID]
	if !ok {
		return
	}
	select {
	case ch <- u:
	default:
		r.log.Warn("dropping slow peer", zap.String("peer", peerID))
		close(ch)
		delete(r.peers, peerID)
	}
}

func (r *Room) Code() string { return r.code }

// Inbox exposes the room's mailbox to the transport layer and tests.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Send delivers msg unless the room has shut down or ctx ends first.
func (r *Room) Send(ctx context.Context, msg Msg) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.inbox <- msg:
		return true
	case <-r.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Done is closed once the room has shut down.
func (r *Room) Done() <-chan struct{} { return r.done }
