package httpapi

import (
	"sync"

	"github.com/google/uuid"

	"github.com/DoyleJ11/towerman/internal/ws"
)

// Tokens maps sign-in tokens to users and stream tokens to a user on a team.
// Both live in memory; a relay restart signs everyone out.
type Tokens struct {
	mu      sync.RWMutex
	users   map[string]string
	streams map[string]ws.Identity
}

func NewTokens() *Tokens {
	return &Tokens{
		users:   make(map[string]string),
		streams: make(map[string]ws.Identity),
	}
}

// Bind makes token stand for email, replacing any previous binding.
func (t *Tokens) Bind(token, email string) {
	t.mu.Lock()
	t.users[token] = email
	t.mu.Unlock()
}

func (t *Tokens) Email(token string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	email, ok := t.users[token]
	return email, ok
}

// Issue returns a fresh stream token for email on teamID.
func (t *Tokens) Issue(email, teamID string) string {
	token := uuid.NewString()
	t.mu.Lock()
	t.streams[token] = ws.Identity{Email: email, TeamID: teamID}
	t.mu.Unlock()
	return token
}

func (t *Tokens) Stream(token string) (ws.Identity, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.streams[token]
	return id, ok
}

// RevokeTeam forgets every stream token of teamID.
func (t *Tokens) RevokeTeam(teamID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for tok, id := range t.streams {
		if id.TeamID == teamID {
			delete(t.streams, tok)
		}
	}
}
