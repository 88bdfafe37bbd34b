// Package session keeps one client in sync with a team's live stream.
//
// A Session owns the roster, the photo cache, the upload queue and the
// transient error stack. All of them are mutated by a single control loop;
// network results are posted back to that loop as messages before they touch
// state. Readers on other goroutines use the snapshot accessors, which return
// values published after each mutation.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/towerman/internal/api"
	"github.com/DoyleJ11/towerman/internal/photocache"
	"github.com/DoyleJ11/towerman/internal/roster"
	"github.com/DoyleJ11/towerman/internal/uploads"
	"github.com/DoyleJ11/towerman/internal/wire"
)

var (
	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrDisconnected     = errors.New("disconnected")
	ErrHandshakeTimeout = errors.New("no acknowledgement from server")
	ErrClosed           = errors.New("session closed")
	ErrProvisionalTeam  = errors.New("team is not confirmed by the server yet")
	ErrSendBufferFull   = errors.New("send buffer full")
	ErrNoBackend        = errors.New("no backend configured")
)

// Backend is the HTTP side of the server. *api.Client implements it.
type Backend interface {
	Teams(ctx context.Context, token string) ([]roster.Team, error)
	CreateTeam(ctx context.Context, req api.CreateTeamRequest) (string, error)
	DeleteTeam(ctx context.Context, token, teamID string) error
	Auth(ctx context.Context, token, teamID string) (string, error)
}

type Config struct {
	SocketURL         string
	PingInterval      time.Duration
	HandshakeInterval time.Duration
	HandshakeAttempts int
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	ErrorTTL          time.Duration
	// ReadLimit caps one inbound frame. Photos arrive inline, so this is large.
	ReadLimit  int64
	HTTPClient *http.Client
	Backend    Backend
	Logger     *zap.Logger
}

func (c *Config) defaults() {
	if c.PingInterval <= 0 {
		c.PingInterval = 5 * time.Second
	}
	if c.HandshakeInterval <= 0 {
		c.HandshakeInterval = 200 * time.Millisecond
	}
	if c.HandshakeAttempts <= 0 {
		c.HandshakeAttempts = 5
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 3 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 3 * time.Second
	}
	if c.ErrorTTL <= 0 {
		c.ErrorTTL = 2500 * time.Millisecond
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 32 << 20
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

type Session struct {
	cfg Config
	log *zap.Logger

	inbox   chan msg
	updates chan Update
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	// owned by the loop
	roster  *roster.Roster
	cache   *photocache.Cache
	uploads *uploads.Queue
	errs    []string
	// inflight maps an unacknowledged upload to the stream it went out on.
	inflight map[string]*conn

	// connMu guards active and every write to state.
	connMu sync.Mutex
	active *conn
	state  atomic.Int32

	errSnap    atomic.Pointer[[]string]
	filterSnap atomic.Pointer[photocache.Filters]
}

func New(parent context.Context, cfg Config) *Session {
	cfg.defaults()
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		cfg:     cfg,
		log:     cfg.Logger,
		inbox:   make(chan msg, 64),
		updates: make(chan Update, 64),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		roster:  roster.New(),
		cache:   photocache.New(cfg.Logger.Named("photocache")),
		uploads: uploads.New(),

		inflight: make(map[string]*conn),
	}
	s.publishErrors()
	s.publishFilters()
	go s.loop()
	return s
}

type msg interface{ isSessionMsg() }

// call runs fn on the loop and replies with its error.
type call struct {
	fn    func() error
	reply chan error
}

type connectMsg struct {
	token string
	reply chan error
}

type frameMsg struct {
	c     *conn
	frame wire.Frame
}

type connLost struct {
	c   *conn
	err error
}

type expireError struct{}

func (call) isSessionMsg()        {}
func (connectMsg) isSessionMsg()  {}
func (frameMsg) isSessionMsg()    {}
func (connLost) isSessionMsg()    {}
func (expireError) isSessionMsg() {}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return

		case m := <-s.inbox:
			switch m := m.(type) {
			case call:
				m.reply <- m.fn()

			case connectMsg:
				s.startConn(m.token, m.reply)

			case frameMsg:
				if s.current() != m.c {
					s.log.Debug("frame from stale connection", zap.String("event", string(m.frame.Event.Kind())))
					break
				}
				s.dispatch(m.c, m.frame)

			case connLost:
				s.lost(m.c, m.err)

			case expireError:
				s.popError()
			}
		}
	}
}

// post hands m to the loop, giving up when ctx ends or the session closes.
func (s *Session) post(ctx context.Context, m msg) error {
	select {
	case s.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrClosed
	}
}

// do runs fn on the control loop and waits for its result.
func (s *Session) do(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	if err := s.post(ctx, call{fn: fn, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrClosed
	}
}

// Close disconnects and stops the control loop. Outstanding intents fail with ErrClosed.
func (s *Session) Close(ctx context.Context) error {
	var err error
	if c := s.disconnect(); c != nil {
		err = multierr.Append(err, c.wait(ctx))
	}
	s.cancel()
	select {
	case <-s.done:
	case <-ctx.Done():
		err = multierr.Append(err, ctx.Err())
	}
	return err
}

// Updates reports which part of the session changed. Notifications are
// dropped while the channel is full; readers re-read the snapshots.
func (s *Session) Updates() <-chan Update { return s.updates }

func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) Selected() (roster.Team, bool) { return s.roster.Selected() }

func (s *Session) Teams() []roster.Team { return s.roster.Teams() }

func (s *Session) Photos() []photocache.Series { return s.cache.All() }

func (s *Session) Filtered() []photocache.Series { return s.cache.Filtered() }

func (s *Session) Filters() photocache.Filters { return *s.filterSnap.Load() }

func (s *Session) Uploads() uploads.Snapshot { return s.uploads.Snapshot() }

// Errors returns the transient error stack, oldest first.
func (s *Session) Errors() []string { return *s.errSnap.Load() }

func (s *Session) notify(u Update) {
	select {
	case s.updates <- u:
	default:
	}
}

func (s *Session) publishFilters() {
	f := s.cache.Filters()
	s.filterSnap.Store(&f)
}
