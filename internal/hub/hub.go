// Package hub keeps one room per team and starts rooms on first use.
package hub

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/towerman/internal/metrics"
	"github.com/DoyleJ11/towerman/internal/room"
	"github.com/DoyleJ11/towerman/internal/store"
)

const loadTimeout = 5 * time.Second

var ErrClosed = errors.New("hub closed")

type HubMsg interface{ isHubMsg() }

type Result struct {
	Room *room.Room
	Err  error
}

// EnsureRoom returns the team's room, loading the team from the store when
// the room is not running yet.
type EnsureRoom struct {
	TeamID string
	Reply  chan Result
}

type GetRoom struct {
	TeamID string
	Reply  chan *room.Room
}

// RemoveRoom shuts a room down, closing its clients.
type RemoveRoom struct {
	TeamID string
}

type ShutdownHub struct {
	Done chan struct{}
}

func (EnsureRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Config struct {
	Store   store.Store
	Logger  *zap.Logger
	Metrics *metrics.Recorder
}

type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHub(parent context.Context, cfg Config) *Hub {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub and its rooms have stopped.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Close stops the hub and every room.
func (h *Hub) Close(ctx context.Context) error {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ensure is EnsureRoom for callers that do not want to handle the reply channel.
func (h *Hub) Ensure(ctx context.Context, teamID string) (*room.Room, error) {
	reply := make(chan Result, 1)
	select {
	case h.inbox <- EnsureRoom{TeamID: teamID, Reply: reply}:
	case <-h.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-reply:
		return res.Room, res.Err
	case <-h.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Remove is RemoveRoom that gives up when ctx ends or the hub has stopped.
func (h *Hub) Remove(ctx context.Context, teamID string) error {
	select {
	case h.inbox <- RemoveRoom{TeamID: teamID}:
		return nil
	case <-h.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
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
			case EnsureRoom:
				if rm := h.live(msg.TeamID); rm != nil {
					msg.Reply <- Result{Room: rm}
					break
				}
				rm, err := h.start(msg.TeamID)
				if err != nil {
					msg.Reply <- Result{Err: err}
					break
				}
				h.rooms[msg.TeamID] = rm
				msg.Reply <- Result{Room: rm}

			case GetRoom:
				msg.Reply <- h.live(msg.TeamID) // may be nil

			case RemoveRoom:
				if rm := h.rooms[msg.TeamID]; rm != nil {
					rm.Send(room.Shutdown{})
					delete(h.rooms, msg.TeamID)
				}

			case ShutdownHub:
				h.shutdown()
				h.cancel()
				if msg.Done != nil {
					close(msg.Done)
				}
				return
			}
		}
	}
}

// live returns the running room of teamID, forgetting rooms that stopped.
func (h *Hub) live(teamID string) *room.Room {
	rm := h.rooms[teamID]
	if rm == nil {
		return nil
	}
	select {
	case <-rm.Done():
		delete(h.rooms, teamID)
		return nil
	default:
		return rm
	}
}

func (h *Hub) start(teamID string) (*room.Room, error) {
	ctx, cancel := context.WithTimeout(h.ctx, loadTimeout)
	defer cancel()

	t, err := h.cfg.Store.Team(ctx, teamID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(t.Members))
	for _, email := range t.Members {
		if u, err := h.cfg.Store.User(ctx, email); err == nil && u.Name != "" {
			names[email] = u.Name
		}
	}
	h.cfg.Logger.Info("starting room", zap.String("team", teamID))
	return room.New(h.ctx, room.NewState(t, names), room.Config{
		Store:   h.cfg.Store,
		Logger:  h.cfg.Logger,
		Metrics: h.cfg.Metrics,
	}), nil
}

func (h *Hub) shutdown() {
	for _, rm := range h.rooms {
		rm.Send(room.Shutdown{})
		<-rm.Done()
	}
	clear(h.rooms)
}
