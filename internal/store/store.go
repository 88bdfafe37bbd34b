// Package store persists the relay's users and teams.
package store

import (
	"context"
	"errors"
	"slices"
)

var ErrNotFound = errors.New("not found")
var ErrExists = errors.New("already exists")

type User struct {
	Email string
	Name  string
}

// Team is the persisted part of a team. Members holds emails and always
// includes the owner.
type Team struct {
	ID       string
	Name     string
	Owner    string
	Members  []string
	Capturer string
}

func (t Team) HasMember(email string) bool { return slices.Contains(t.Members, email) }

func (t Team) Clone() Team {
	t.Members = slices.Clone(t.Members)
	return t
}

type Store interface {
	UpsertUser(ctx context.Context, u User) error
	User(ctx context.Context, email string) (User, error)
	CreateTeam(ctx context.Context, t Team) error
	Team(ctx context.Context, id string) (Team, error)
	// TeamsFor lists the teams email owns or belongs to.
	TeamsFor(ctx context.Context, email string) ([]Team, error)
	SaveTeam(ctx context.Context, t Team) error
	DeleteTeam(ctx context.Context, id string) error
	Close() error
}
