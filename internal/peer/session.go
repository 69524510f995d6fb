package peer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/DoyleJ11/shootout-backend/internal/engine"
	"github.com/DoyleJ11/shootout-backend/internal/precision"
	"github.com/DoyleJ11/shootout-backend/internal/roles"
	"github.com/DoyleJ11/shootout-backend/internal/types"
)

var ErrWrongRole = errors.New("local peer does not hold that role")
var ErrNoWelcome = errors.New("server did not send a welcome")

const notificationBuffer = 256

// Notification is one accepted update or one rejection from the server.
type Notification struct {
	Version int
	Events  []engine.Event
	Err     error
}

// Session is a connected peer. It never mutates match state itself: commands
// go upstream and the local mirror only follows what the room publishes.
type Session struct {
	conn   *websocket.Conn
	peerID string
	log    *zap.Logger

	mu     sync.RWMutex
	mirror engine.Mirror

	notes  chan Notification
	done   chan struct{}
	cancel context.CancelFunc
}

// Dial connects to the server at baseURL (http or ws scheme) and joins the
// room with the given code.
func Dial(ctx context.Context, baseURL, code, name string, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	q := url.Values{}
	q.Set("code", code)
	if name != "" {
		q.Set("name", name)
	}
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}

	var welcome types.ServerMessage
	if err := wsjson.Read(ctx, conn, &welcome); err != nil {
		conn.CloseNow()
		return nil, fmt.Errorf("read welcome: %w", err)
	}
	if welcome.Type != types.MsgWelcome || welcome.PeerID == "" {
		conn.CloseNow()
		return nil, ErrNoWelcome
	}

	readCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		conn:   conn,
		peerID: welcome.PeerID,
		log:    log.With(zap.String("room", code), zap.String("peer", welcome.PeerID)),
		notes:  make(chan Notification, notificationBuffer),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go s.readLoop(readCtx)
	return s, nil
}

func (s *Session) readLoop(ctx context.Context) {
	defer close(s.done)
	defer close(s.notes)

	for {
		var msg types.ServerMessage
		if err := wsjson.Read(ctx, s.conn, &msg); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				s.log.Debug("read", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case types.MsgUpdate:
			if msg.State == nil {
				continue
			}
			s.mu.Lock()
			applied := s.mirror.Apply(msg.Version, *msg.State)
			s.mu.Unlock()
			if applied {
				s.notify(Notification{Version: msg.Version, Events: msg.Events})
			}

		case types.MsgError:
			s.notify(Notification{Version: msg.Version, Err: errors.New(msg.Error)})
		}
	}
}

func (s *Session) notify(n Notification) {
	select {
	case s.notes <- n:
	default:
		s.log.Warn("notification buffer full, dropping", zap.Int("version", n.Version))
	}
}

func (s *Session) PeerID() string { return s.peerID }

// Notifications is closed when the connection ends.
func (s *Session) Notifications() <-chan Notification { return s.notes }

func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Snapshot() engine.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror.Snapshot()
}

func (s *Session) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror.Version()
}

func (s *Session) CurrentPhase() engine.Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror.CurrentPhase()
}

func (s *Session) Score() [2]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror.Score()
}

func (s *Session) RemainingTurnTime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror.RemainingTurnTime()
}

// CurrentRole is the local peer's role as last published.
func (s *Session) CurrentRole() roles.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mirror.CurrentRole(s.peerID)
}

func (s *Session) SelectRole(ctx context.Context, role roles.Role) error {
	return s.send(ctx, types.ClientMessage{Type: string(engine.CmdSelectRole), Role: string(role)})
}

func (s *Session) StartMatch(ctx context.Context) error {
	return s.send(ctx, types.ClientMessage{Type: string(engine.CmdStartMatch)})
}

func (s *Session) RequestRematch(ctx context.Context) error {
	return s.send(ctx, types.ClientMessage{Type: string(engine.CmdRequestRematch)})
}

// Shoot submits the beater's choice. The precision is whatever zone the bar
// shows at the moment of the call; the bar stops there. A nil bar shoots
// with Medium precision.
func (s *Session) Shoot(ctx context.Context, h engine.Horizontal, v engine.Vertical, bar *precision.Bar) error {
	zone := precision.Medium
	if bar != nil {
		zone = bar.Zone()
		bar.Stop()
	}
	return s.submit(ctx, roles.Beater, h, v, zone)
}

func (s *Session) Dive(ctx context.Context, h engine.Horizontal, v engine.Vertical) error {
	return s.submit(ctx, roles.GoalKeeper, h, v, "")
}

func (s *Session) submit(ctx context.Context, role roles.Role, h engine.Horizontal, v engine.Vertical, zone precision.Zone) error {
	if s.CurrentRole() != role {
		return ErrWrongRole
	}
	return s.send(ctx, types.ClientMessage{
		Type:       string(engine.CmdSubmitChoice),
		Role:       string(role),
		Horizontal: string(h),
		Vertical:   string(v),
		Precision:  string(zone),
	})
}

func (s *Session) send(ctx context.Context, msg types.ClientMessage) error {
	return wsjson.Write(ctx, s.conn, msg)
}

// Close leaves the room and waits for the reader to finish.
func (s *Session) Close() error {
	err := s.conn.Close(websocket.StatusNormalClosure, "bye")
	s.cancel()
	<-s.done
	return err
}
