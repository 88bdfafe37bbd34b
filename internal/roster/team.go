package roster

import "slices"

// Member is one person on a team. Email is the identity key.
type Member struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email"`
	IsCapturer  bool   `json:"isCapturer"`
	IsCapturing bool   `json:"isCapturing"`
	IsViewing   bool   `json:"isViewing"`
}

func (m Member) DisplayName() string {
	if m.Name == "" {
		return "Member"
	}
	return m.Name
}

// Game exists only while active.
type Game struct {
	Name string `json:"name"`
}

// Team is a value; the Roster hands out copies.
type Team struct {
	ID string `json:"id"`
	// Provisional is set for teams created locally whose server id has not been confirmed yet.
	Provisional bool     `json:"provisional"`
	Name        string   `json:"name"`
	Owner       string   `json:"owner"`
	Members     []Member `json:"members"`
	Game        *Game    `json:"game,omitempty"`
}

func (t Team) clone() Team {
	t.Members = slices.Clone(t.Members)
	if t.Game != nil {
		g := *t.Game
		t.Game = &g
	}
	return t
}

func (t Team) indexOf(email string) int {
	return slices.IndexFunc(t.Members, func(m Member) bool { return m.Email == email })
}

func (t Team) Member(email string) (Member, bool) {
	if i := t.indexOf(email); i >= 0 {
		return t.Members[i], true
	}
	return Member{}, false
}

func (t Team) OwnerMember() (Member, bool) { return t.Member(t.Owner) }

func (t Team) Capturer() (Member, bool) {
	i := slices.IndexFunc(t.Members, func(m Member) bool { return m.IsCapturer })
	if i < 0 {
		return Member{}, false
	}
	return t.Members[i], true
}

func (t Team) Capturing() (Member, bool) {
	i := slices.IndexFunc(t.Members, func(m Member) bool { return m.IsCapturing })
	if i < 0 {
		return Member{}, false
	}
	return t.Members[i], true
}

func (t Team) Viewers() []Member {
	var out []Member
	for _, m := range t.Members {
		if m.IsViewing {
			out = append(out, m)
		}
	}
	return out
}

// setCapturer makes email the only capturer. Capturing does not carry over.
func (t *Team) setCapturer(email string) bool {
	i := t.indexOf(email)
	if i < 0 {
		return false
	}
	for j := range t.Members {
		t.Members[j].IsCapturer = j == i
		t.Members[j].IsCapturing = t.Members[j].IsCapturing && j == i
	}
	return true
}

// removeMember drops email and hands the capturer role to the owner, or to the
// first remaining member when the owner is the one leaving.
func (t *Team) removeMember(email string) bool {
	i := t.indexOf(email)
	if i < 0 {
		return false
	}
	wasCapturer := t.Members[i].IsCapturer
	t.Members = slices.Delete(t.Members, i, i+1)

	if wasCapturer && len(t.Members) > 0 {
		if !t.setCapturer(t.Owner) {
			t.setCapturer(t.Members[0].Email)
		}
	}
	return true
}
