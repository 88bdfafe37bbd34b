package api

import (
	"errors"
	"fmt"

	"github.com/DoyleJ11/towerman/internal/roster"
)

// ServerError is a {success:false} reply from the backend.
type ServerError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *ServerError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "server error"
	}
	return fmt.Sprintf("%s: %s", e.Endpoint, msg)
}

// AsServerError attempts to unwrap an error into a ServerError.
func AsServerError(err error) (*ServerError, bool) {
	var se *ServerError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

type RemoteMember struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RemoteTeam is a team as listed by the teams endpoint. The relay in this
// repository serves the same shape.
type RemoteTeam struct {
	TeamID   string         `json:"teamId"`
	Name     string         `json:"name"`
	Owner    RemoteMember   `json:"owner"`
	Members  []RemoteMember `json:"members"`
	Capturer string         `json:"capturer,omitempty"`
}

// ToTeam maps the listing to a roster team. The owner is always a member and
// holds the capturer role unless the listing names someone else on the team.
func (rt RemoteTeam) ToTeam() roster.Team {
	t := roster.Team{ID: rt.TeamID, Name: rt.Name, Owner: rt.Owner.Email}

	seen := map[string]bool{}
	add := func(m RemoteMember) {
		if m.Email == "" || seen[m.Email] {
			return
		}
		seen[m.Email] = true
		t.Members = append(t.Members, roster.Member{Name: m.Name, Email: m.Email})
	}
	add(rt.Owner)
	for _, m := range rt.Members {
		add(m)
	}

	capturer := rt.Owner.Email
	if rt.Capturer != "" && seen[rt.Capturer] {
		capturer = rt.Capturer
	}
	for i := range t.Members {
		t.Members[i].IsCapturer = t.Members[i].Email == capturer
	}
	return t
}
