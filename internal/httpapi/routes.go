// Package httpapi serves the relay's HTTP surface: sign-in, team management,
// stream auth and the stream itself.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/towerman/internal/api"
	"github.com/DoyleJ11/towerman/internal/metrics"
	"github.com/DoyleJ11/towerman/internal/ws"
)

type Options struct {
	Metrics        *metrics.Recorder
	OriginPatterns []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

func SetupRoutes(d Deps, opt Options) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	h := handlers{Deps: d}
	stream := ws.Handler(ws.Config{
		Hub:            d.Hub,
		Lookup:         ws.Lookup(d.Tokens.Stream),
		Logger:         d.Logger.Named("ws"),
		Metrics:        opt.Metrics,
		ReadTimeout:    opt.ReadTimeout,
		WriteTimeout:   opt.WriteTimeout,
		OriginPatterns: opt.OriginPatterns,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(d.Logger))
	r.Use(opt.Metrics.Middleware)

	r.Post(api.PathSignIn, h.signIn)
	r.Get(api.PathTeams, h.teams)
	r.Post(api.PathCreateTeam, h.createTeam)
	r.Post(api.PathDeleteTeam, h.deleteTeam)
	r.Get(api.PathAuth, h.auth)
	r.Get("/healthz", healthz)
	if opt.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opt.Metrics.Handler())
	}

	// the client dials the socket at the root
	r.Get("/", stream)
	r.Get("/ws", stream)
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
