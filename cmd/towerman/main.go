// Command towerman follows a team's live stream from the terminal. With
// -upload it acts as the capture device and sends every image in a directory,
// tagging one play per image.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/towerman/internal/api"
	"github.com/DoyleJ11/towerman/internal/config"
	"github.com/DoyleJ11/towerman/internal/logging"
	"github.com/DoyleJ11/towerman/internal/roster"
	"github.com/DoyleJ11/towerman/internal/session"
)

type options struct {
	email  string
	name   string
	token  string
	team   string
	create string
	upload string
	game   string
}

func main() {
	var o options
	flag.StringVar(&o.email, "email", "", "account email (required)")
	flag.StringVar(&o.name, "name", "", "display name")
	flag.StringVar(&o.token, "token", "", "sign-in token (required)")
	flag.StringVar(&o.team, "team", "", "team id or name; defaults to the first team")
	flag.StringVar(&o.create, "create", "", "create a team with this name and use it")
	flag.StringVar(&o.upload, "upload", "", "directory of photos to send as the capturer")
	flag.StringVar(&o.game, "game", "", "start a game with this name before uploading")
	flag.Parse()

	if o.email == "" || o.token == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(o); err != nil {
		fmt.Fprintln(os.Stderr, "towerman:", err)
		os.Exit(1)
	}
}

func run(o options) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	log, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	client := api.NewClient(api.Config{BaseURL: cfg.ServerURL, HTTPClient: httpClient, Logger: log.Named("api")})
	s := session.New(ctx, session.Config{
		SocketURL:         cfg.SocketURL,
		PingInterval:      cfg.PingInterval,
		HandshakeInterval: cfg.HandshakeInterval,
		HandshakeAttempts: cfg.HandshakeAttempts,
		HandshakeTimeout:  cfg.HandshakeTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		ErrorTTL:          cfg.ErrorTTL,
		Backend:           client,
		Logger:            log.Named("session"),
	})
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.Close(cctx)
	}()

	if err := client.SignIn(ctx, o.email, o.name, o.token); err != nil {
		return err
	}
	if err := s.Refresh(ctx, o.token); err != nil {
		return err
	}
	if err := chooseTeam(ctx, s, o); err != nil {
		return err
	}

	if err := connect(ctx, s, o.token, log); err != nil {
		return err
	}
	if err := s.StartViewing(ctx); err != nil {
		return err
	}
	if err := s.RequestPhotos(ctx); err != nil {
		return err
	}

	if o.upload != "" {
		if err := capture(ctx, s, o, log); err != nil {
			return err
		}
	}
	return follow(ctx, s, o.token, log)
}

func chooseTeam(ctx context.Context, s *session.Session, o options) error {
	if o.create != "" {
		t, err := s.CreateTeam(ctx, roster.Member{Email: o.email, Name: o.name}, api.CreateTeamRequest{
			Token: o.token,
			Name:  o.create,
		})
		if err != nil {
			return err
		}
		fmt.Printf("created team %q (%s)\n", t.Name, t.ID)
		return nil
	}

	teams := s.Teams()
	if len(teams) == 0 {
		return errors.New("no teams; use -create")
	}
	for _, t := range teams {
		if o.team == "" || t.ID == o.team || t.Name == o.team {
			return s.SelectTeam(ctx, t.ID)
		}
	}
	return fmt.Errorf("team %q: %w", o.team, roster.ErrUnknownTeam)
}

// follow prints what changes until interrupted, reconnecting when the stream drops.
func follow(ctx context.Context, s *session.Session, token string, log *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-s.Updates():
			switch u {
			case session.UpdateState:
				fmt.Println("stream:", s.State())
				if s.State() == session.Disconnected && ctx.Err() == nil {
					if err := connect(ctx, s, token, log); err != nil {
						return err
					}
					_ = s.StartViewing(ctx)
					_ = s.RequestPhotos(ctx)
				}
			case session.UpdateRoster:
				printTeam(s)
			case session.UpdatePhotos:
				n := 0
				for _, series := range s.Photos() {
					for _, p := range series.Plays {
						n += len(p.Photos)
					}
				}
				fmt.Printf("photos: %d\n", n)
			case session.UpdateUploads:
				snap := s.Uploads()
				fmt.Printf("uploads: %.0f%% (%d pending)\n", snap.Progress*100, len(snap.Tasks))
			case session.UpdateErrors:
				for _, e := range s.Errors() {
					fmt.Println("error:", e)
				}
			}
		}
	}
}

func printTeam(s *session.Session) {
	t, ok := s.Selected()
	if !ok {
		return
	}
	game := "no game"
	if t.Game != nil {
		game = "game " + t.Game.Name
	}
	fmt.Printf("team %s: %s, %d members\n", t.Name, game, len(t.Members))
	for _, m := range t.Members {
		var flags string
		if m.IsCapturer {
			flags += " capturer"
		}
		if m.IsCapturing {
			flags += " capturing"
		}
		if m.IsViewing {
			flags += " viewing"
		}
		fmt.Printf("  %s <%s>%s\n", m.DisplayName(), m.Email, flags)
	}
}
