package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/shootout-backend/internal/engine"
	"github.com/DoyleJ11/shootout-backend/internal/hub"
	"github.com/DoyleJ11/shootout-backend/internal/precision"
	"github.com/DoyleJ11/shootout-backend/internal/roles"
	"github.com/DoyleJ11/shootout-backend/internal/room"
	"github.com/DoyleJ11/shootout-backend/internal/types"
)

const (
	outboxSize   = 64
	writeTimeout = 3 * time.Second
)

var errUnknownType = errors.New("unknown message type")

func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		rm := h.Get(r.Context(), code)
		if rm == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			log.Info("websocket accept", zap.Error(err))
			return
		}
		defer conn.CloseNow()

		peerID := uuid.NewString()
		log := log.With(zap.String("room", code), zap.String("peer", peerID))
		ctx := r.Context()

		if err := write(ctx, conn, types.ServerMessage{Type: types.MsgWelcome, PeerID: peerID}); err != nil {
			return
		}

		out := make(chan room.Update, outboxSize)
		reply := make(chan error, 1)
		join := room.Join{PeerID: peerID, Name: r.URL.Query().Get("name"), Outbox: out, Reply: reply}
		if !rm.Send(ctx, join) {
			conn.Close(websocket.StatusGoingAway, "room closed")
			return
		}
		var joinErr error
		select {
		case joinErr = <-reply:
		case <-rm.Done():
			// The room may shut down before it reads our Join.
			select {
			case joinErr = <-reply:
			default:
				joinErr = room.ErrClosed
			}
		case <-ctx.Done():
			// The join may still land; make sure it does not hold a seat.
			rm.Send(context.Background(), room.Leave{PeerID: peerID})
			return
		}
		if joinErr != nil {
			log.Info("join refused", zap.Error(joinErr))
			_ = write(ctx, conn, types.ServerMessage{Type: types.MsgError, Error: joinErr.Error()})
			conn.Close(websocket.StatusPolicyViolation, joinErr.Error())
			return
		}
		log.Info("peer joined")
		defer func() {
			rm.Send(context.Background(), room.Leave{PeerID: peerID})
			log.Info("peer left")
		}()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(ctx)
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case u, ok := <-out:
					if !ok {
						// The room closed our outbox: it shut down or dropped us.
						conn.Close(websocket.StatusGoingAway, "room closed")
						return
					}
					if err := write(writeCtx, conn, toServerMessage(u)); err != nil {
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("read", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = write(ctx, conn, types.ServerMessage{Type: types.MsgError, Error: "bad json"})
				continue
			}

			cmd, err := ToEngineCommand(cm)
			if err != nil {
				_ = write(ctx, conn, types.ServerMessage{Type: types.MsgError, Error: err.Error()})
				continue
			}

			if !rm.Send(ctx, room.FromPeer{PeerID: peerID, Cmd: cmd}) {
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

func toServerMessage(u room.Update) types.ServerMessage {
	if u.Err != nil {
		return types.ServerMessage{Type: types.MsgError, Version: u.Version, Error: u.Err.Error()}
	}
	state := u.State
	return types.ServerMessage{Type: types.MsgUpdate, Version: u.Version, State: &state, Events: u.Events}
}

// ToEngineCommand validates a client message and converts it to a match
// command. Whether the sender may issue it is decided by the room.
func ToEngineCommand(m types.ClientMessage) (engine.Command, error) {
	switch m.Type {
	case string(engine.CmdSelectRole):
		role, err := roles.ParseRole(m.Role)
		if err != nil {
			return engine.Command{}, err
		}
		return engine.Command{Type: engine.CmdSelectRole, Role: role}, nil

	case string(engine.CmdSubmitChoice):
		role, err := roles.ParseRole(m.Role)
		if err != nil {
			return engine.Command{}, err
		}
		h, err := engine.ParseHorizontal(m.Horizontal)
		if err != nil {
			return engine.Command{}, err
		}
		v, err := engine.ParseVertical(m.Vertical)
		if err != nil {
			return engine.Command{}, err
		}
		var zone precision.Zone
		if m.Precision != "" {
			if zone, err = precision.ParseZone(m.Precision); err != nil {
				return engine.Command{}, err
			}
		}
		return engine.Command{Type: engine.CmdSubmitChoice, Role: role, Horizontal: h, Vertical: v, Precision: zone}, nil

	case string(engine.CmdStartMatch):
		return engine.Command{Type: engine.CmdStartMatch}, nil

	case string(engine.CmdRequestRematch):
		return engine.Command{Type: engine.CmdRequestRematch}, nil
	}
	return engine.Command{}, errUnknownType
}
