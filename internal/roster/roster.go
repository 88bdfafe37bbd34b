// Package roster keeps the in-memory model of the user's teams and the one
// currently selected. A Roster has a single writer; readers on any goroutine
// use Selected and Teams, which return snapshots published after each mutation.
package roster

import (
	"slices"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

type Roster struct {
	teams    []Team
	selected int // index into teams, -1 when none
	loaded   bool

	selectedSnap atomic.Pointer[Team]
	teamsSnap    atomic.Pointer[[]Team]
}

func New() *Roster {
	r := &Roster{selected: -1}
	r.publish()
	return r
}

// Selected returns a copy of the selected team, or false when none is selected.
func (r *Roster) Selected() (Team, bool) {
	t := r.selectedSnap.Load()
	if t == nil {
		return Team{}, false
	}
	return t.clone(), true
}

// Teams returns a copy of the team list.
func (r *Roster) Teams() []Team {
	snap := *r.teamsSnap.Load()
	teams := make([]Team, len(snap))
	for i, t := range snap {
		teams[i] = t.clone()
	}
	return teams
}

func (r *Roster) Loaded() bool { return r.loaded }

// Load replaces the team list with what the server returned. The selection is
// kept when the selected team is still present, together with its game and
// live flags, which the listing does not carry.
func (r *Roster) Load(teams []Team) {
	var prev Team
	var selectedID string
	if r.selected >= 0 {
		prev = r.teams[r.selected]
		selectedID = prev.ID
	}
	r.teams = make([]Team, len(teams))
	for i, t := range teams {
		r.teams[i] = t.clone()
	}
	r.loaded = true
	r.selected = r.index(selectedID)
	if r.selected >= 0 {
		r.teams[r.selected] = carryLive(prev, r.teams[r.selected])
	}
	r.publish()
}

// carryLive copies the game and live member flags of prev onto next.
func carryLive(prev, next Team) Team {
	if next.Game == nil && prev.Game != nil {
		g := *prev.Game
		next.Game = &g
	}
	for i, m := range next.Members {
		old, ok := prev.Member(m.Email)
		if !ok {
			continue
		}
		next.Members[i].IsViewing = m.IsViewing || old.IsViewing
		next.Members[i].IsCapturing = m.IsCapturing || (old.IsCapturing && m.IsCapturer)
	}
	return next
}

func (r *Roster) Unload() {
	r.teams = nil
	r.loaded = false
	r.selected = -1
	r.publish()
}

// Select makes id the selected team. An empty id deselects.
func (r *Roster) Select(id string) error {
	if id == "" {
		r.Deselect()
		return nil
	}
	i := r.index(id)
	if i < 0 {
		return ErrUnknownTeam
	}
	r.selected = i
	r.publish()
	return nil
}

func (r *Roster) Deselect() {
	r.selected = -1
	r.publish()
}

// Create adds a provisional team owned by owner and selects it. The first of
// others flagged IsCapturer holds the capturer role, the owner otherwise. The
// id is local until Confirm swaps in the server's id.
func (r *Roster) Create(name string, owner Member, others ...Member) Team {
	t := Team{
		ID:          uuid.NewString(),
		Provisional: true,
		Name:        strings.TrimSpace(name),
		Owner:       owner.Email,
		Members:     append([]Member{owner}, others...),
	}
	capturer := owner.Email
	if i := slices.IndexFunc(others, func(m Member) bool { return m.IsCapturer }); i >= 0 {
		capturer = others[i].Email
	}
	for i := range t.Members {
		t.Members[i].IsCapturer = t.Members[i].Email == capturer
		t.Members[i].IsCapturing = false
		t.Members[i].IsViewing = false
	}
	r.teams = append(r.teams, t)
	r.selected = len(r.teams) - 1
	r.publish()
	return t.clone()
}

// Confirm resolves a provisional team to the id the server assigned.
func (r *Roster) Confirm(provisionalID, serverID string) error {
	i := r.index(provisionalID)
	if i < 0 {
		return ErrUnknownTeam
	}
	r.teams[i].ID = serverID
	r.teams[i].Provisional = false
	r.publish()
	return nil
}

// Destroy deselects and removes the team.
func (r *Roster) Destroy(id string) {
	r.selected = -1
	if i := r.index(id); i >= 0 {
		r.teams = slices.Delete(r.teams, i, i+1)
	}
	r.publish()
}

func (r *Roster) Rename(name string) error {
	return r.mutate(func(t *Team) error {
		t.Name = strings.TrimSpace(name)
		return nil
	})
}

// SetID overwrites the selected team's id with a server-confirmed one.
func (r *Roster) SetID(id string) error {
	return r.mutate(func(t *Team) error {
		t.ID = id
		t.Provisional = false
		return nil
	})
}

// AddMember appends m to the selected team. The member cap is not enforced
// here, see CheckAddMember.
func (r *Roster) AddMember(m Member) error {
	return r.mutate(func(t *Team) error {
		if _, ok := t.Member(m.Email); ok {
			return ErrDuplicateMember
		}
		m.IsCapturer, m.IsCapturing, m.IsViewing = false, false, false
		t.Members = append(t.Members, m)
		if len(t.Members) == 1 {
			t.Members[0].IsCapturer = true
		}
		return nil
	})
}

func (r *Roster) RemoveMember(email string) error {
	return r.mutate(func(t *Team) error {
		if !t.removeMember(email) {
			return ErrUnknownMember
		}
		return nil
	})
}

func (r *Roster) SetCapturer(email string) error {
	return r.mutate(func(t *Team) error {
		if !t.setCapturer(email) {
			return ErrUnknownMember
		}
		return nil
	})
}

// SetCapturing flips the capturing flag of whoever holds the capturer role.
func (r *Roster) SetCapturing(on bool) error {
	return r.mutate(func(t *Team) error {
		i := slices.IndexFunc(t.Members, func(m Member) bool { return m.IsCapturer })
		if i < 0 {
			return ErrUnknownMember
		}
		t.Members[i].IsCapturing = on
		return nil
	})
}

func (r *Roster) SetViewing(email string, on bool) error {
	return r.mutate(func(t *Team) error {
		i := t.indexOf(email)
		if i < 0 {
			return ErrUnknownMember
		}
		t.Members[i].IsViewing = on
		return nil
	})
}

// ResetLive forgets the selected team's game and live member flags. A freshly
// opened stream replays whatever is still true.
func (r *Roster) ResetLive() error {
	return r.mutate(func(t *Team) error {
		t.Game = nil
		for i := range t.Members {
			t.Members[i].IsCapturing = false
			t.Members[i].IsViewing = false
		}
		return nil
	})
}

func (r *Roster) StartGame(name string) error {
	return r.mutate(func(t *Team) error {
		t.Game = &Game{Name: name}
		return nil
	})
}

func (r *Roster) EndGame() error {
	return r.mutate(func(t *Team) error {
		t.Game = nil
		return nil
	})
}

// mutate applies fn to a copy of the selected team and commits it only on success.
func (r *Roster) mutate(fn func(t *Team) error) error {
	if r.selected < 0 {
		return ErrNoTeamSelected
	}
	t := r.teams[r.selected].clone()
	if err := fn(&t); err != nil {
		return err
	}
	r.teams[r.selected] = t
	r.publish()
	return nil
}

func (r *Roster) index(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(r.teams, func(t Team) bool { return t.ID == id })
}

// publish replaces both snapshots; readers never observe a half-applied mutation.
func (r *Roster) publish() {
	teams := make([]Team, len(r.teams))
	for i, t := range r.teams {
		teams[i] = t.clone()
	}
	r.teamsSnap.Store(&teams)

	if r.selected < 0 {
		r.selectedSnap.Store(nil)
		return
	}
	sel := r.teams[r.selected].clone()
	r.selectedSnap.Store(&sel)
}
