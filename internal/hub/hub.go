package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/shootout-backend/internal/room"
)

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Code  string
	Reply chan *room.Room
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

// EnsureRoom returns the room under Code, creating it if needed.
type EnsureRoom struct {
	Code  string
	Reply chan *room.Room
}

// RemoveRoom forgets Room if it is still the one registered under Code.
type RemoveRoom struct {
	Code string
	Room *room.Room
}

type ListRooms struct {
	Reply chan []string
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (EnsureRoom) isHubMsg()  {}
func (RemoveRoom) isHubMsg()  {}
func (ListRooms) isHubMsg()   {}
func (ShutdownHub) isHubMsg() {}

// Hub owns the code -> room registry. Every room it creates shares the
// template options; Code and OnClose are filled in per room.
type Hub struct {
	inbox    chan HubMsg
	rooms    map[string]*room.Room
	template room.Options
	log      *zap.Logger
	done     chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, template room.Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	log := template.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		rooms:    make(map[string]*room.Room),
		template: template,
		log:      log,
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub and every room it owned have been told to stop.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Send delivers msg unless the hub has stopped or ctx ends first.
func (h *Hub) Send(ctx context.Context, msg HubMsg) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.inbox <- msg:
		return true
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Get looks a room up by code. It returns nil if there is none.
func (h *Hub) Get(ctx context.Context, code string) *room.Room {
	reply := make(chan *room.Room, 1)
	if !h.Send(ctx, GetRoom{Code: code, Reply: reply}) {
		return nil
	}
	select {
	case rm := <-reply:
		return rm
	case <-ctx.Done():
		return nil
	}
}

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				if rm := h.rooms[msg.Code]; rm != nil {
					msg.Reply <- rm
					break
				}
				msg.Reply <- h.open(msg.Code)

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // May be nil

			case EnsureRoom:
				if rm := h.rooms[msg.Code]; rm != nil {
					msg.Reply <- rm
					break
				}
				msg.Reply <- h.open(msg.Code)

			case RemoveRoom:
				if rm := h.rooms[msg.Code]; rm != nil && (msg.Room == nil || rm == msg.Room) {
					delete(h.rooms, msg.Code)
					h.log.Info("room removed", zap.String("room", msg.Code), zap.Int("rooms", len(h.rooms)))
				}

			case ListRooms:
				codes := make([]string, 0, len(h.rooms))
				for code := range h.rooms {
					codes = append(codes, code)
				}
				msg.Reply <- codes

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) open(code string) *room.Room {
	opts := h.template
	opts.Code = code

	opts.OnClose = func(rm *room.Room) {
		// Runs on the room goroutine; never block it on a stopped hub.
		select {
		case h.inbox <- RemoveRoom{Code: rm.Code(), Room: rm}:
		case <-h.ctx.Done():
		}
	}
	rm := room.New(h.ctx, opts)
	h.rooms[code] = rm
	h.log.Info("room created", zap.String("room", code), zap.Int("rooms", len(h.rooms)))
	return rm
}

func (h *Hub) shutdown() {
	for _, rm := range h.rooms {
		rm.Send(h.ctx, room.Shutdown{})
	}
	clear(h.rooms)
	h.cancel()
}
