package session

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/towerman/internal/wire"
)

type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

type Update int

const (
	UpdateState Update = iota + 1
	UpdateRoster
	UpdatePhotos
	UpdateUploads
	UpdateErrors
)

var pingFrame = mustEncode(wire.Ping{})

func mustEncode(ev wire.Event) []byte {
	b, err := wire.Encode(ev)
	if err != nil {
		panic(err)
	}
	return b
}

type outFrame struct {
	data []byte
	ping bool
}

// conn is one attempt at a stream connection. Its goroutines never touch
// session state; they post to the loop.
type conn struct {
	url    string
	out    chan outFrame
	acked  chan struct{} // closed by the loop on the server's ack
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// loop only
	waiter chan error
}

func (c *conn) enqueue(f outFrame) bool {
	select {
	case c.out <- f:
		return true
	default:
		return false
	}
}

// resolve reports the outcome of Connect to its caller, once.
func (c *conn) resolve(err error) {
	if c.waiter == nil {
		return
	}
	c.waiter <- err
	c.waiter = nil
}

func (c *conn) wait(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect opens the stream with a session token from Auth and blocks until
// the server acknowledges it. If ctx ends first the attempt is abandoned.
func (s *Session) Connect(ctx context.Context, token string) error {
	reply := make(chan error, 1)
	if err := s.post(ctx, connectMsg{token: token, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		s.Disconnect()
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrClosed
	}
}

// Disconnect tears down the stream. The state reads Disconnected as soon as
// it returns; it is safe to call at any time.
func (s *Session) Disconnect() {
	s.disconnect()
}

func (s *Session) disconnect() *conn {
	s.connMu.Lock()
	c := s.active
	s.active = nil
	s.state.Store(int32(Disconnected))
	s.connMu.Unlock()

	if c != nil {
		c.cancel()
		s.notify(UpdateState)
	}
	return c
}

func (s *Session) current() *conn {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.active
}

// connected returns the active connection once it has been acknowledged.
func (s *Session) connected() (*conn, bool) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.active == nil || State(s.state.Load()) != Connected {
		return nil, false
	}
	return s.active, true
}

func (s *Session) startConn(token string, reply chan error) {
	s.connMu.Lock()
	if s.active != nil {
		s.connMu.Unlock()
		reply <- ErrAlreadyConnected
		return
	}
	ctx, cancel := context.WithCancel(s.ctx)
	c := &conn{
		url:    s.cfg.SocketURL + "/?token=" + url.QueryEscape(token),
		out:    make(chan outFrame, 64),
		acked:  make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		waiter: reply,
	}
	s.active = c
	s.state.Store(int32(Connecting))
	s.connMu.Unlock()

	s.notify(UpdateState)
	go s.run(c)
}

// acknowledge moves a connecting stream to connected.
func (s *Session) acknowledge(c *conn) {
	s.connMu.Lock()
	ok := s.active == c && s.state.CompareAndSwap(int32(Connecting), int32(Connected))
	s.connMu.Unlock()
	if !ok {
		return
	}
	close(c.acked)
	c.resolve(nil)
	s.log.Info("connected")
	s.notify(UpdateState)
}

func (s *Session) lost(c *conn, err error) {
	s.connMu.Lock()
	wasActive := s.active == c
	if wasActive {
		s.active = nil
		s.state.Store(int32(Disconnected))
	}
	s.connMu.Unlock()

	if err == nil || errors.Is(err, context.Canceled) {
		err = ErrDisconnected
	}
	c.resolve(err)
	s.failInflight(c, ErrDisconnected.Error())
	if wasActive {
		s.log.Warn("connection lost", zap.Error(err))
		s.notify(UpdateState)
	}
}

// dropConn tears down c if it is still the active connection.
func (s *Session) dropConn(c *conn, err error) {
	s.connMu.Lock()
	if s.active != c {
		s.connMu.Unlock()
		return
	}
	s.connMu.Unlock()
	s.log.Warn("dropping connection", zap.Error(err))
	s.disconnect()
}

func (s *Session) run(c *conn) {
	defer close(c.done)
	defer c.cancel()

	ws, _, err := websocket.Dial(c.ctx, c.url, &websocket.DialOptions{HTTPClient: s.cfg.HTTPClient})
	if err != nil {
		_ = s.post(s.ctx, connLost{c: c, err: err})
		return
	}
	ws.SetReadLimit(s.cfg.ReadLimit)

	g, ctx := errgroup.WithContext(c.ctx)
	g.Go(func() error { return s.readLoop(ctx, c, ws) })
	g.Go(func() error { return s.writeLoop(ctx, c, ws) })
	g.Go(func() error { return s.awaitAck(ctx, c) })
	g.Go(func() error { return s.keepalive(ctx, c) })
	err = g.Wait()

	_ = ws.CloseNow()
	_ = s.post(s.ctx, connLost{c: c, err: err})
}

func (s *Session) readLoop(ctx context.Context, c *conn, ws *websocket.Conn) error {
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			s.log.Debug("ignoring binary frame")
			continue
		}
		f, err := wire.Decode(data)
		if err != nil {
			s.log.Warn("dropping frame", zap.Error(err))
			continue
		}
		if err := s.post(ctx, frameMsg{c: c, frame: f}); err != nil {
			return err
		}
	}
}

func (s *Session) writeLoop(ctx context.Context, c *conn, ws *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
			err := ws.Write(wctx, websocket.MessageText, f.data)
			cancel()
			if err == nil {
				continue
			}
			if f.ping {
				s.log.Debug("ping failed", zap.Error(err))
				continue
			}
			return err
		}
	}
}

// awaitAck pings until the server acknowledges, then gives up after the handshake timeout.
func (s *Session) awaitAck(ctx context.Context, c *conn) error {
	deadline := time.NewTimer(s.cfg.HandshakeTimeout)
	defer deadline.Stop()

	for i := 0; i < s.cfg.HandshakeAttempts; i++ {
		if i > 0 {
			select {
			case <-c.acked:
				return nil
			case <-ctx.Done():
				return nil
			case <-deadline.C:
				return ErrHandshakeTimeout
			case <-time.After(s.cfg.HandshakeInterval):
			}
		}
		select {
		case <-c.acked:
			return nil
		default:
		}
		c.enqueue(outFrame{data: pingFrame, ping: true})
	}

	select {
	case <-c.acked:
		return nil
	case <-ctx.Done():
		return nil
	case <-deadline.C:
		return ErrHandshakeTimeout
	}
}

// keepalive pings for as long as the connection lives. Failures are ignored.
func (s *Session) keepalive(ctx context.Context, c *conn) error {
	select {
	case <-c.acked:
	case <-ctx.Done():
		return nil
	}
	t := time.NewTicker(s.cfg.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if !c.enqueue(outFrame{data: pingFrame, ping: true}) {
				s.log.Debug("ping skipped, send buffer full")
			}
		}
	}
}
