package room

import (
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/DoyleJ11/towerman/internal/photoname"
	"github.com/DoyleJ11/towerman/internal/roster"
	"github.com/DoyleJ11/towerman/internal/store"
	"github.com/DoyleJ11/towerman/internal/wire"
)

var (
	ErrNotMember         = errors.New("you are not on this team")
	ErrNotOwner          = errors.New("only the team owner can do that")
	ErrNotCapturer       = errors.New("only the capturer can do that")
	ErrNoGame            = errors.New("no game running")
	ErrGameRunning       = errors.New("a game is already running")
	ErrCannotRemoveOwner = errors.New("the owner cannot be removed")
	ErrBadPhoto          = errors.New("photo is missing or badly named")
	ErrUnsupported       = errors.New("unsupported event")
)

type Photo struct {
	Name string
	Data []byte
}

// State is everything a room knows about its team. Apply never mutates the
// State it is given.
type State struct {
	Team      store.Team
	Names     map[string]string
	Game      string
	Playing   bool
	Capturing bool
	Viewing   map[string]bool
	Photos    []Photo
}

func NewState(t store.Team, names map[string]string) State {
	if names == nil {
		names = map[string]string{}
	}
	return State{Team: t.Clone(), Names: maps.Clone(names), Viewing: map[string]bool{}}
}

func (s State) clone() State {
	s.Team = s.Team.Clone()
	s.Names = maps.Clone(s.Names)
	s.Viewing = maps.Clone(s.Viewing)
	s.Photos = slices.Clip(s.Photos)
	return s
}

func (s State) hasPhoto(name string) bool {
	return slices.ContainsFunc(s.Photos, func(p Photo) bool { return p.Name == name })
}

func (s State) viewers() []string {
	out := slices.Collect(maps.Keys(s.Viewing))
	slices.Sort(out)
	return out
}

// Outcome is what Apply wants sent. Broadcast goes to every client of the
// room, Reply only to the sender. Persist is set when Team changed.
type Outcome struct {
	Broadcast []wire.Event
	Reply     []wire.Event
	Persist   bool
}

// Apply validates ev from sender against s and returns the next state.
func Apply(s State, sender string, ev wire.Event) (Outcome, State, error) {
	if !s.Team.HasMember(sender) {
		return Outcome{}, s, ErrNotMember
	}
	next := s.clone()
	var out Outcome

	switch ev := ev.(type) {
	case wire.Ping:
		out.Reply = []wire.Event{wire.Pong{}}

	case wire.StartGame:
		if s.Playing {
			return Outcome{}, s, ErrGameRunning
		}
		name := strings.TrimSpace(ev.Name)
		if name == "" {
			name = "New game"
		}
		next.Playing, next.Game = true, name
		next.Photos = nil
		out.Broadcast = []wire.Event{wire.StartGame{Name: name}}

	case wire.EndGame:
		if !s.Playing {
			return Outcome{}, s, ErrNoGame
		}
		next.Playing, next.Game = false, ""
		next.Photos = nil
		out.Broadcast = []wire.Event{wire.EndGame{}}

	case wire.RenameTeam:
		if sender != s.Team.Owner {
			return Outcome{}, s, ErrNotOwner
		}
		if err := roster.ValidateTeamName(ev.Name); err != nil {
			return Outcome{}, s, err
		}
		next.Team.Name = strings.TrimSpace(ev.Name)
		out.Broadcast = []wire.Event{wire.RenameTeam{Name: next.Team.Name}}
		out.Persist = true

	case wire.AddMember:
		if sender != s.Team.Owner {
			return Outcome{}, s, ErrNotOwner
		}
		if err := roster.ValidateEmail(ev.Email); err != nil {
			return Outcome{}, s, err
		}
		if s.Team.HasMember(ev.Email) {
			return Outcome{}, s, roster.ErrDuplicateMember
		}
		if len(s.Team.Members) >= roster.MaxMembers {
			return Outcome{}, s, roster.ErrTeamFull
		}
		next.Team.Members = append(next.Team.Members, ev.Email)
		if ev.Name != "" {
			next.Names[ev.Email] = ev.Name
		}
		out.Broadcast = []wire.Event{wire.AddMember{Name: next.Names[ev.Email], Email: ev.Email}}
		out.Persist = true

	case wire.RemoveMember:
		if sender != s.Team.Owner {
			return Outcome{}, s, ErrNotOwner
		}
		if ev.Email == s.Team.Owner {
			return Outcome{}, s, ErrCannotRemoveOwner
		}
		if !s.Team.HasMember(ev.Email) {
			return Outcome{}, s, roster.ErrUnknownMember
		}
		next.Team.Members = slices.DeleteFunc(next.Team.Members, func(e string) bool { return e == ev.Email })
		delete(next.Viewing, ev.Email)
		out.Broadcast = []wire.Event{wire.RemoveMember{Email: ev.Email}}
		if s.Team.Capturer == ev.Email {
			next.Team.Capturer = s.Team.Owner
			next.Capturing = false
			out.Broadcast = append(out.Broadcast, wire.SetCapturer{Email: s.Team.Owner})
		}
		out.Persist = true

	case wire.SetCapturer:
		if sender != s.Team.Owner {
			return Outcome{}, s, ErrNotOwner
		}
		if !s.Team.HasMember(ev.Email) {
			return Outcome{}, s, roster.ErrUnknownMember
		}
		if ev.Email != s.Team.Capturer {
			next.Team.Capturer = ev.Email
			next.Capturing = false
			out.Persist = true
		}
		out.Broadcast = []wire.Event{wire.SetCapturer{Email: ev.Email}}

	case wire.StartCapturing:
		if sender != s.capturer() {
			return Outcome{}, s, ErrNotCapturer
		}
		next.Capturing = true
		out.Broadcast = []wire.Event{wire.StartCapturing{}}

	case wire.StopCapturing:
		if sender != s.capturer() {
			return Outcome{}, s, ErrNotCapturer
		}
		next.Capturing = false
		out.Broadcast = []wire.Event{wire.StopCapturing{}}

	case wire.StartViewing:
		next.Viewing[sender] = true
		out.Broadcast = []wire.Event{wire.StartViewing{Emails: []string{sender}}}

	case wire.StopViewing:
		delete(next.Viewing, sender)
		out.Broadcast = []wire.Event{wire.StopViewing{Emails: []string{sender}}}

	case wire.Photo:
		if sender != s.capturer() {
			return Outcome{}, s, ErrNotCapturer
		}
		if !s.Playing {
			return Outcome{}, s, ErrNoGame
		}
		if len(ev.Photo) == 0 {
			return Outcome{}, s, ErrBadPhoto
		}
		if _, _, err := photoname.Decode(ev.Play); err != nil {
			return Outcome{}, s, ErrBadPhoto
		}
		if !s.hasPhoto(ev.Play) {
			next.Photos = append(next.Photos, Photo{Name: ev.Play, Data: ev.Photo})
		}
		out.Broadcast = []wire.Event{wire.Photo{Name: ev.Play, Photo: ev.Photo}}

	case wire.PhotoCache:
		cached := make(map[string]bool, len(ev.Cached))
		for _, n := range ev.Cached {
			cached[n] = true
		}
		for _, p := range s.Photos {
			if !cached[p.Name] {
				out.Reply = append(out.Reply, wire.Photo{Name: p.Name, Photo: p.Data})
			}
		}

	default:
		return Outcome{}, s, ErrUnsupported
	}
	return out, next, nil
}

// capturer is the team's capturer, the owner when none is recorded.
func (s State) capturer() string {
	if s.Team.Capturer == "" {
		return s.Team.Owner
	}
	return s.Team.Capturer
}

// Depart clears the live flags of email once its last connection is gone.
func Depart(s State, email string) (Outcome, State) {
	next := s.clone()
	var out Outcome
	if next.Viewing[email] {
		delete(next.Viewing, email)
		out.Broadcast = append(out.Broadcast, wire.StopViewing{Emails: []string{email}})
	}
	if next.Capturing && s.capturer() == email {
		next.Capturing = false
		out.Broadcast = append(out.Broadcast, wire.StopCapturing{})
	}
	return out, next
}

// Replay is what a joining client needs to catch up with the room.
func Replay(s State) []wire.Event {
	evs := []wire.Event{wire.Connection{TeamID: s.Team.ID}}
	if s.Playing {
		evs = append(evs, wire.StartGame{Name: s.Game})
	}
	if s.Capturing {
		evs = append(evs, wire.StartCapturing{})
	}
	if v := s.viewers(); len(v) > 0 {
		evs = append(evs, wire.StartViewing{Emails: v})
	}
	return evs
}

// failureEcho is the event a rejection is reported under. Photo rejections
// carry the photo name so the uploader can match them.
func failureEcho(ev wire.Event) wire.Event {
	if p, ok := ev.(wire.Photo); ok {
		return wire.Photo{Play: p.Play}
	}
	return ev
}

var errSaveFailed = errors.New("could not save team")
