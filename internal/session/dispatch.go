package session

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/towerman/internal/photocache"
	"github.com/DoyleJ11/towerman/internal/photoname"
	"github.com/DoyleJ11/towerman/internal/roster"
	"github.com/DoyleJ11/towerman/internal/wire"
)

const (
	defaultGameName = "New game"
	defaultTeamName = "New name"
	genericError    = "Server Error"
)

// dispatch applies one inbound frame. It runs on the loop.
func (s *Session) dispatch(c *conn, f wire.Frame) {
	switch ev := f.Event.(type) {
	case wire.Connection:
		s.resync()
		s.acknowledge(c)
		return
	case wire.Pong:
		s.acknowledge(c)
		return
	case wire.Ping, wire.PhotoCache:
		s.log.Debug("ignoring client-bound event", zap.String("event", string(ev.Kind())))
		return
	}

	if !f.Success {
		s.failed(f)
		return
	}

	var err error
	switch ev := f.Event.(type) {
	case wire.StartGame:
		name := ev.Name
		if name == "" {
			name = defaultGameName
		}
		err = s.roster.StartGame(name)

	case wire.EndGame:
		err = s.roster.EndGame()
		s.cache.Clear()
		s.notify(UpdatePhotos)

	case wire.RenameTeam:
		name := ev.Name
		if name == "" {
			name = defaultTeamName
		}
		err = s.roster.Rename(name)

	case wire.AddMember:
		if ev.Email == "" {
			s.log.Debug("add_member without email")
			return
		}
		err = s.roster.AddMember(roster.Member{Name: ev.Name, Email: ev.Email})

	case wire.RemoveMember:
		err = s.roster.RemoveMember(ev.Email)

	case wire.SetCapturer:
		err = s.roster.SetCapturer(ev.Email)

	case wire.StartCapturing:
		err = s.roster.SetCapturing(true)

	case wire.StopCapturing:
		err = s.roster.SetCapturing(false)

	case wire.StartViewing:
		err = s.setViewing(ev.Emails, true)

	case wire.StopViewing:
		err = s.setViewing(ev.Emails, false)

	case wire.Photo:
		s.receivePhoto(ev)
		return
	}

	if err != nil {
		s.log.Debug("event not applied", zap.String("event", string(f.Event.Kind())), zap.Error(err))
		return
	}
	s.notify(UpdateRoster)
}

// resync drops live state before the server replays it on a new stream, so
// nothing missed while offline survives.
func (s *Session) resync() {
	if s.roster.ResetLive() == nil {
		s.notify(UpdateRoster)
	}
	if s.cache.Len() > 0 {
		s.cache.Clear()
		s.notify(UpdatePhotos)
	}
}

// setViewing applies the flag to every known email; unknown ones are skipped.
func (s *Session) setViewing(emails []string, on bool) error {
	err := roster.ErrUnknownMember
	for _, email := range emails {
		if s.roster.SetViewing(email, on) == nil {
			err = nil
		}
	}
	return err
}

// failed routes a success=false frame to its error path.
func (s *Session) failed(f wire.Frame) {
	msg := f.Error
	if msg == "" {
		msg = genericError
	}
	switch ev := f.Event.(type) {
	case wire.Photo:
		delete(s.inflight, ev.Play)
		if ev.Play != "" && s.uploads.OnError(ev.Play, msg) {
			s.notify(UpdateUploads)
		}
	case wire.StopCapturing:
		if s.roster.SetCapturing(false) == nil {
			s.notify(UpdateRoster)
		}
	}
	s.log.Info("server rejected event", zap.String("event", string(f.Event.Kind())), zap.String("error", msg))
	s.pushError(msg)
}

// receivePhoto acknowledges our own upload by name, then caches the photo.
func (s *Session) receivePhoto(ev wire.Photo) {
	if ev.Name == "" {
		s.log.Debug("photo without name")
		return
	}
	delete(s.inflight, ev.Name)
	if s.uploads.OnDone(ev.Name) {
		s.notify(UpdateUploads)
	}
	if len(ev.Photo) == 0 {
		s.log.Debug("photo without data", zap.String("name", ev.Name))
		return
	}

	p, index, err := photoname.Decode(ev.Name)
	if err != nil {
		s.log.Warn("dropping photo", zap.String("name", ev.Name), zap.Error(err))
		return
	}
	if s.cache.Add(photocache.Photo{Play: p, Index: index, Data: ev.Photo}) {
		s.notify(UpdatePhotos)
	}
}
