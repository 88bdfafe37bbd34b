package session

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/towerman/internal/api"
	"github.com/DoyleJ11/towerman/internal/photocache"
	"github.com/DoyleJ11/towerman/internal/photoname"
	"github.com/DoyleJ11/towerman/internal/play"
	"github.com/DoyleJ11/towerman/internal/roster"
	"github.com/DoyleJ11/towerman/internal/wire"
)

// send queues ev on the connected stream. It runs on the loop.
func (s *Session) send(ev wire.Event) error {
	c, ok := s.connected()
	if !ok {
		return ErrNotConnected
	}
	return s.sendOn(c, ev)
}

func (s *Session) sendOn(c *conn, ev wire.Event) error {
	b, err := wire.Encode(ev)
	if err != nil {
		return err
	}
	if !c.enqueue(outFrame{data: b}) {
		s.dropConn(c, ErrSendBufferFull)
		return ErrNotConnected
	}
	return nil
}

func (s *Session) StartGame(ctx context.Context, name string) error {
	return s.do(ctx, func() error { return s.send(wire.StartGame{Name: strings.TrimSpace(name)}) })
}

func (s *Session) EndGame(ctx context.Context) error {
	return s.do(ctx, func() error { return s.send(wire.EndGame{}) })
}

func (s *Session) RenameTeam(ctx context.Context, name string) error {
	if err := roster.ValidateTeamName(name); err != nil {
		return err
	}
	return s.do(ctx, func() error { return s.send(wire.RenameTeam{Name: strings.TrimSpace(name)}) })
}

// AddMember asks the server to add email to the selected team. The email and
// the member cap are checked before anything is sent.
func (s *Session) AddMember(ctx context.Context, email string) error {
	return s.do(ctx, func() error {
		t, ok := s.roster.Selected()
		if !ok {
			return roster.ErrNoTeamSelected
		}
		if err := roster.CheckAddMember(t, email); err != nil {
			return err
		}
		return s.send(wire.AddMember{Email: email})
	})
}

func (s *Session) RemoveMember(ctx context.Context, email string) error {
	return s.do(ctx, func() error {
		if err := s.checkMember(email); err != nil {
			return err
		}
		return s.send(wire.RemoveMember{Email: email})
	})
}

func (s *Session) SetCapturer(ctx context.Context, email string) error {
	return s.do(ctx, func() error {
		if err := s.checkMember(email); err != nil {
			return err
		}
		return s.send(wire.SetCapturer{Email: email})
	})
}

func (s *Session) StartCapturing(ctx context.Context) error {
	return s.do(ctx, func() error { return s.send(wire.StartCapturing{}) })
}

func (s *Session) StopCapturing(ctx context.Context) error {
	return s.do(ctx, func() error { return s.send(wire.StopCapturing{}) })
}

// StartViewing announces this client as a viewer; the server fills in who.
func (s *Session) StartViewing(ctx context.Context) error {
	return s.do(ctx, func() error { return s.send(wire.StartViewing{}) })
}

func (s *Session) StopViewing(ctx context.Context) error {
	return s.do(ctx, func() error { return s.send(wire.StopViewing{}) })
}

// RequestPhotos tells the server which photos are already cached so it only
// sends the rest.
func (s *Session) RequestPhotos(ctx context.Context) error {
	return s.do(ctx, func() error {
		names := s.cache.Names()
		if names == nil {
			names = []string{}
		}
		return s.send(wire.PhotoCache{Cached: names})
	})
}

// UploadPhoto sends one photo of p and tracks it until the server echoes it
// back. It returns the photo's wire name.
func (s *Session) UploadPhoto(ctx context.Context, p play.Play, index int, photo []byte) (string, error) {
	p = p.Canonical()
	if err := p.Validate(); err != nil {
		return "", err
	}
	if index < 0 {
		return "", photoname.ErrMalformed
	}
	name := photoname.Encode(p, index)
	err := s.do(ctx, func() error {
		c, ok := s.connected()
		if !ok {
			return ErrNotConnected
		}
		defer s.notify(UpdateUploads)
		s.uploads.Upload(name, photo, p)
		return s.sendPhoto(c, name, photo)
	})
	return name, err
}

// RetryFailed re-sends every upload that failed, whether the server rejected
// it or the stream dropped before it was acknowledged.
func (s *Session) RetryFailed(ctx context.Context) (int, error) {
	var n int
	err := s.do(ctx, func() error {
		c, ok := s.connected()
		if !ok {
			return ErrNotConnected
		}
		defer s.notify(UpdateUploads)
		for _, t := range s.uploads.Failed() {
			s.uploads.Upload(t.Name, t.Photo, t.Play)
			if err := s.sendPhoto(c, t.Name, t.Photo); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

// sendPhoto sends an armed upload on c. A photo that cannot be queued fails
// at once so RetryFailed picks it up.
func (s *Session) sendPhoto(c *conn, name string, photo []byte) error {
	if err := s.sendOn(c, wire.Photo{Play: name, Photo: photo}); err != nil {
		s.uploads.OnError(name, err.Error())
		return err
	}
	s.inflight[name] = c
	return nil
}

// failInflight fails the uploads that went out on c and were never acknowledged.
func (s *Session) failInflight(c *conn, msg string) {
	n := 0
	for name, on := range s.inflight {
		if on != c {
			continue
		}
		delete(s.inflight, name)
		if s.uploads.OnError(name, msg) {
			n++
		}
	}
	if n > 0 {
		s.notify(UpdateUploads)
	}
}

// resetUploads drops every task along with its stream bookkeeping.
func (s *Session) resetUploads() {
	s.uploads.Reset()
	clear(s.inflight)
}

// Filter narrows the filtered photo view. Omitted dimensions keep their value.
func (s *Session) Filter(ctx context.Context, u photocache.FilterUpdate) error {
	return s.do(ctx, func() error {
		s.cache.Filter(u)
		s.publishFilters()
		s.notify(UpdatePhotos)
		return nil
	})
}

// SelectTeam switches the active team. The stream, the photo cache and the
// upload queue belong to a selection, so all three are reset. An empty id
// deselects.
func (s *Session) SelectTeam(ctx context.Context, id string) error {
	return s.do(ctx, func() error {
		if cur, ok := s.roster.Selected(); ok && cur.ID == id {
			return nil
		}
		if id != "" && !slices.ContainsFunc(s.roster.Teams(), func(t roster.Team) bool { return t.ID == id }) {
			return roster.ErrUnknownTeam
		}
		s.disconnect()
		s.cache.Clear()
		s.resetUploads()
		s.notify(UpdatePhotos)
		s.notify(UpdateUploads)
		if err := s.roster.Select(id); err != nil {
			return err
		}
		s.notify(UpdateRoster)
		return nil
	})
}

// Refresh reloads the team list from the server.
func (s *Session) Refresh(ctx context.Context, token string) error {
	if s.cfg.Backend == nil {
		return ErrNoBackend
	}
	teams, err := s.cfg.Backend.Teams(ctx, token)
	if err != nil {
		return err
	}
	return s.do(ctx, func() error {
		s.roster.Load(teams)
		s.notify(UpdateRoster)
		return nil
	})
}

// SignOut forgets every team and drops the stream.
func (s *Session) SignOut(ctx context.Context) error {
	return s.do(ctx, func() error {
		s.disconnect()
		s.cache.Clear()
		s.resetUploads()
		s.roster.Unload()
		s.notify(UpdateRoster)
		return nil
	})
}

// CreateTeam adds a provisional team locally, selects it and asks the server
// to create it. The provisional team is confirmed with the server's id, or
// removed again if the server refuses. As on the server, req.Capturer holds
// the capturer role when it names a member and the owner holds it otherwise.
func (s *Session) CreateTeam(ctx context.Context, owner roster.Member, req api.CreateTeamRequest) (roster.Team, error) {
	if s.cfg.Backend == nil {
		return roster.Team{}, ErrNoBackend
	}
	if err := roster.ValidateEmail(owner.Email); err != nil {
		return roster.Team{}, err
	}
	if err := roster.CheckNewTeam(req.Name, req.MemberEmails); err != nil {
		return roster.Team{}, err
	}

	var others []roster.Member
	for _, e := range req.MemberEmails {
		if e != owner.Email {
			others = append(others, roster.Member{Email: e, IsCapturer: e == req.Capturer})
		}
	}
	if len(others)+1 > roster.MaxMembers {
		return roster.Team{}, roster.ErrTeamFull
	}

	var provisional roster.Team
	err := s.do(ctx, func() error {
		s.disconnect()
		s.cache.Clear()
		s.resetUploads()
		provisional = s.roster.Create(req.Name, owner, others...)
		s.notify(UpdateRoster)
		return nil
	})
	if err != nil {
		return roster.Team{}, err
	}

	id, createErr := s.cfg.Backend.CreateTeam(ctx, req)

	var team roster.Team
	err = s.do(context.WithoutCancel(ctx), func() error {
		defer s.notify(UpdateRoster)
		if createErr != nil {
			s.roster.Destroy(provisional.ID)
			return createErr
		}
		if err := s.roster.Confirm(provisional.ID, id); err != nil {
			return err
		}
		team, _ = s.roster.Selected()
		return nil
	})
	return team, err
}

// DeleteTeam deletes a team on the server and forgets it locally. Like any
// change of selection it leaves no team selected.
func (s *Session) DeleteTeam(ctx context.Context, token, id string) error {
	if s.cfg.Backend == nil {
		return ErrNoBackend
	}
	if err := s.cfg.Backend.DeleteTeam(ctx, token, id); err != nil {
		return err
	}
	return s.do(ctx, func() error {
		s.disconnect()
		s.cache.Clear()
		s.resetUploads()
		s.roster.Destroy(id)
		s.notify(UpdateRoster)
		return nil
	})
}

// Open authenticates against the selected team and connects to its stream.
func (s *Session) Open(ctx context.Context, token string) error {
	if s.cfg.Backend == nil {
		return ErrNoBackend
	}
	t, ok := s.roster.Selected()
	if !ok {
		return roster.ErrNoTeamSelected
	}
	if t.Provisional {
		return ErrProvisionalTeam
	}
	sessionToken, err := s.cfg.Backend.Auth(ctx, token, t.ID)
	if err != nil {
		return err
	}
	s.log.Debug("opening stream", zap.String("team", t.ID))
	return s.Connect(ctx, sessionToken)
}

func (s *Session) checkMember(email string) error {
	t, ok := s.roster.Selected()
	if !ok {
		return roster.ErrNoTeamSelected
	}
	if _, ok := t.Member(email); !ok {
		return roster.ErrUnknownMember
	}
	return nil
}
