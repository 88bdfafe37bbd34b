package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is a Store for development and tests.
type Memory struct {
	mu    sync.RWMutex
	users map[string]User
	teams map[string]Team
}

func NewMemory() *Memory {
	return &Memory{users: map[string]User{}, teams: map[string]Team{}}
}

func (m *Memory) UpsertUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Email] = u
	return nil
}

func (m *Memory) User(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) CreateTeam(_ context.Context, t Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[t.ID]; ok {
		return ErrExists
	}
	m.teams[t.ID] = t.Clone()
	return nil
}

func (m *Memory) Team(_ context.Context, id string) (Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.teams[id]
	if !ok {
		return Team{}, ErrNotFound
	}
	return t.Clone(), nil
}

func (m *Memory) TeamsFor(_ context.Context, email string) ([]Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Team
	for _, t := range m.teams {
		if t.Owner == email || t.HasMember(email) {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) SaveTeam(_ context.Context, t Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[t.ID]; !ok {
		return ErrNotFound
	}
	m.teams[t.ID] = t.Clone()
	return nil
}

func (m *Memory) DeleteTeam(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[id]; !ok {
		return ErrNotFound
	}
	delete(m.teams, id)
	return nil
}

func (m *Memory) Close() error { return nil }
