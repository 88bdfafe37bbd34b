// Package ws upgrades stream requests and pumps frames between one socket and
// its team's room.
package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/towerman/internal/hub"
	"github.com/DoyleJ11/towerman/internal/metrics"
	"github.com/DoyleJ11/towerman/internal/room"
	"github.com/DoyleJ11/towerman/internal/store"
	"github.com/DoyleJ11/towerman/internal/wire"
)

// Identity is what a stream token stands for.
type Identity struct {
	Email  string
	TeamID string
}

// Lookup resolves a stream token issued by the auth endpoint.
type Lookup func(token string) (Identity, bool)

type Config struct {
	Hub     *hub.Hub
	Lookup  Lookup
	Logger  *zap.Logger
	Metrics *metrics.Recorder

	// ReadTimeout bounds the silence between two client frames. Clients
	// ping every few seconds, so a quiet socket is a dead one.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ReadLimit    int64
	OutboxSize   int
	// OriginPatterns loosens the same-origin check, e.g. "localhost:*" in dev.
	OriginPatterns []string
}

func (c *Config) defaults() {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 3 * time.Second
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 32 << 20
	}
	// photo_cache replays every photo the client lacks in one go
	if c.OutboxSize <= 0 {
		c.OutboxSize = 512
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

func Handler(cfg Config) http.HandlerFunc {
	cfg.defaults()
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		id, ok := cfg.Lookup(token)
		if !ok {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		rm, err := cfg.Hub.Ensure(r.Context(), id.TeamID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "team not found", http.StatusNotFound)
				return
			}
			cfg.Logger.Error("starting room", zap.String("team", id.TeamID), zap.Error(err))
			http.Error(w, "room unavailable", http.StatusInternalServerError)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: cfg.OriginPatterns,
		})
		if err != nil {
			return
		}
		defer conn.CloseNow()
		conn.SetReadLimit(cfg.ReadLimit)

		cfg.Metrics.ConnectionOpened()
		defer cfg.Metrics.ConnectionClosed()

		clientID := uuid.NewString()
		log := cfg.Logger.With(zap.String("client", clientID), zap.String("email", id.Email), zap.String("team", id.TeamID))

		out := make(chan []byte, cfg.OutboxSize)
		if !rm.Send(room.Join{ClientID: clientID, Email: id.Email, Outbox: out}) {
			_ = conn.Close(websocket.StatusTryAgainLater, "room closed")
			return
		}
		defer rm.Send(room.Leave{ClientID: clientID})
		log.Info("client connected")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		go writeLoop(ctx, cancel, conn, out, cfg.WriteTimeout, log)

		readLoop(ctx, conn, rm, clientID, cfg.ReadTimeout, log)
		log.Info("client disconnected")
	}
}

// writeLoop drains the outbox. The room closes the outbox when it drops the
// client or shuts down; the socket is closed then too.
func writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan []byte, timeout time.Duration, log *zap.Logger) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-out:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "room closed")
				return
			}
			wctx, wcancel := context.WithTimeout(ctx, timeout)
			err := conn.Write(wctx, websocket.MessageText, b)
			wcancel()
			if err != nil {
				log.Debug("write failed", zap.Error(err))
				return
			}
		}
	}
}

func readLoop(ctx context.Context, conn *websocket.Conn, rm *room.Room, clientID string, timeout time.Duration, log *zap.Logger) {
	for {
		rctx, cancel := context.WithTimeout(ctx, timeout)
		typ, data, err := conn.Read(rctx)
		cancel()
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if ctx.Err() == nil {
					log.Debug("read failed", zap.Error(err))
				}
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		f, err := wire.Decode(data)
		if err != nil {
			log.Warn("dropping frame", zap.Error(err))
			continue
		}
		if !rm.Send(room.FromClient{ClientID: clientID, Event: f.Event}) {
			return
		}
	}
}
