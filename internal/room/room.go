// Package room runs one actor per team. Every connected client of a team
// joins its room; the room applies their events in order and fans the
// results out.
package room

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/towerman/internal/metrics"
	"github.com/DoyleJ11/towerman/internal/store"
	"github.com/DoyleJ11/towerman/internal/wire"
)

const persistTimeout = 3 * time.Second

type Msg interface{ isRoomMsg() }

type Join struct {
	ClientID string
	Email    string
	Outbox   chan []byte // encoded frames for this client
}

type Leave struct{ ClientID string }

type FromClient struct {
	ClientID string
	Event    wire.Event
}

// GetState reflects the room without racing the loop.
type GetState struct {
	Reply chan View
}

type Shutdown struct{}

func (Join) isRoomMsg()       {}
func (Leave) isRoomMsg()      {}
func (FromClient) isRoomMsg() {}
func (GetState) isRoomMsg()   {}
func (Shutdown) isRoomMsg()   {}

type View struct {
	Team       store.Team
	Game       string
	Playing    bool
	Capturing  bool
	Viewing    []string
	Photos     int
	NumClients int
}

type Config struct {
	Store   store.Store
	Logger  *zap.Logger
	Metrics *metrics.Recorder
}

type client struct {
	email string
	out   chan []byte
}

type Room struct {
	inbox   chan Msg
	state   State
	clients map[string]client
	store   store.Store
	log     *zap.Logger
	metrics *metrics.Recorder
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(parent context.Context, initial State, cfg Config) *Room {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	r := &Room{
		inbox:   make(chan Msg, 64),
		state:   initial,
		clients: make(map[string]client),
		store:   cfg.Store,
		log:     cfg.Logger.With(zap.String("team", initial.Team.ID)),
		metrics: cfg.Metrics,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	r.metrics.RoomStarted()
	go r.loop()
	return r
}

// Inbox lets the hub and the websocket layer talk to the room.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the room has shut down.
func (r *Room) Done() <-chan struct{} { return r.done }

// Send delivers m unless the room has shut down.
func (r *Room) Send(m Msg) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.inbox <- m:
		return true
	case <-r.done:
		return false
	}
}

func (r *Room) loop() {
	defer close(r.done)
	defer r.metrics.RoomStopped()
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.clients[msg.ClientID] = client{email: msg.Email, out: msg.Outbox}
				r.log.Debug("client joined", zap.String("client", msg.ClientID), zap.String("email", msg.Email))
				for _, ev := range Replay(r.state) {
					r.sendTo(msg.ClientID, ev)
				}

			case Leave:
				c, ok := r.clients[msg.ClientID]
				if !ok {
					break
				}
				delete(r.clients, msg.ClientID)
				r.departed(c.email)

			case FromClient:
				r.handle(msg.ClientID, msg.Event)

			case GetState:
				msg.Reply <- View{
					Team:       r.state.Team.Clone(),
					Game:       r.state.Game,
					Playing:    r.state.Playing,
					Capturing:  r.state.Capturing,
					Viewing:    r.state.viewers(),
					Photos:     len(r.state.Photos),
					NumClients: len(r.clients),
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handle(clientID string, ev wire.Event) {
	c, ok := r.clients[clientID]
	if !ok {
		return
	}
	if add, ok := ev.(wire.AddMember); ok && add.Name == "" && r.store != nil {
		if u, err := r.store.User(r.ctx, add.Email); err == nil {
			add.Name = u.Name
			ev = add
		}
	}

	out, next, err := Apply(r.state, c.email, ev)
	if err == nil && out.Persist && r.store != nil {
		ctx, cancel := context.WithTimeout(r.ctx, persistTimeout)
		if perr := r.store.SaveTeam(ctx, next.Team); perr != nil {
			r.log.Error("saving team", zap.Error(perr))
			err = errSaveFailed
		}
		cancel()
	}
	r.metrics.Event(string(ev.Kind()), err == nil)
	if err != nil {
		r.log.Debug("event rejected", zap.String("event", string(ev.Kind())), zap.String("email", c.email), zap.Error(err))
		r.sendFailure(clientID, failureEcho(ev), err.Error())
		return
	}

	if p, ok := ev.(wire.Photo); ok {
		r.metrics.PhotoAccepted(len(p.Photo))
	}
	r.state = next
	for _, e := range out.Reply {
		r.sendTo(clientID, e)
	}
	for _, e := range out.Broadcast {
		r.broadcast(e)
	}
}

// departed clears live flags when email has no connection left.
func (r *Room) departed(email string) {
	for _, c := range r.clients {
		if c.email == email {
			return
		}
	}
	out, next := Depart(r.state, email)
	r.state = next
	for _, e := range out.Broadcast {
		r.broadcast(e)
	}
}

func (r *Room) shutdown() {
	for id, c := range r.clients {
		close(c.out) // no more frames
		delete(r.clients, id)
	}
	r.cancel()
}

func (r *Room) sendTo(clientID string, ev wire.Event) {
	b, err := wire.Encode(ev)
	if err != nil {
		r.log.Error("encoding frame", zap.Error(err))
		return
	}
	r.deliver(clientID, b)
}

func (r *Room) sendFailure(clientID string, ev wire.Event, msg string) {
	b, err := wire.EncodeFailure(ev, msg)
	if err != nil {
		r.log.Error("encoding frame", zap.Error(err))
		return
	}
	r.deliver(clientID, b)
}

func (r *Room) broadcast(ev wire.Event) {
	b, err := wire.Encode(ev)
	if err != nil {
		r.log.Error("encoding frame", zap.Error(err))
		return
	}
	for id := range r.clients {
		r.deliver(id, b)
	}
}

// deliver drops a client whose outbox is full.
func (r *Room) deliver(clientID string, b []byte) {
	c, ok := r.clients[clientID]
	if !ok {
		return
	}
	select {
	case c.out <- b:
	default:
		r.log.Warn("dropping slow client", zap.String("client", clientID), zap.String("email", c.email))
		close(c.out)
		delete(r.clients, clientID)
		r.departed(c.email)
	}
}
