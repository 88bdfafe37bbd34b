package roster

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeMemberTeam() Team {
	return Team{
		ID:    "t1",
		Name:  "Varsity",
		Owner: "coach@example.com",
		Members: []Member{
			{Name: "Coach", Email: "coach@example.com"},
			{Name: "Ann", Email: "ann@example.com", IsCapturer: true, IsCapturing: true},
			{Name: "Bo", Email: "bo@example.com", IsViewing: true},
		},
	}
}

func loaded(t *testing.T, teams ...Team) *Roster {
	t.Helper()
	r := New()
	r.Load(teams)
	require.NoError(t, r.Select(teams[0].ID))
	return r
}

func TestRemoveCapturer_ReassignsOwner(t *testing.T) {
	r := loaded(t, threeMemberTeam())

	require.NoError(t, r.RemoveMember("ann@example.com"))

	team, ok := r.Selected()
	require.True(t, ok)
	require.Len(t, team.Members, 2)
	capturer, ok := team.Capturer()
	require.True(t, ok, "team left without a capturer")
	assert.Equal(t, "coach@example.com", capturer.Email)
	_, capturing := team.Capturing()
	assert.False(t, capturing)
}

func TestRemoveOwnerCapturer_FallsBackToFirstMember(t *testing.T) {
	team := threeMemberTeam()
	team.Members[0].IsCapturer = true
	team.Members[1].IsCapturer = false
	r := loaded(t, team)

	require.NoError(t, r.RemoveMember("coach@example.com"))

	sel, _ := r.Selected()
	capturer, ok := sel.Capturer()
	require.True(t, ok)
	assert.Equal(t, "ann@example.com", capturer.Email)
}

func TestRemoveNonCapturer_KeepsCapturer(t *testing.T) {
	r := loaded(t, threeMemberTeam())
	require.NoError(t, r.RemoveMember("bo@example.com"))

	sel, _ := r.Selected()
	capturer, _ := sel.Capturer()
	assert.Equal(t, "ann@example.com", capturer.Email)
	assert.ErrorIs(t, r.RemoveMember("bo@example.com"), ErrUnknownMember)
}

func TestSetCapturer_SingleHolder(t *testing.T) {
	r := loaded(t, threeMemberTeam())
	require.NoError(t, r.SetCapturer("bo@example.com"))

	sel, _ := r.Selected()
	count := 0
	for _, m := range sel.Members {
		if m.IsCapturer {
			count++
			assert.Equal(t, "bo@example.com", m.Email)
		}
		assert.False(t, m.IsCapturing, "capturing must not survive a capturer change")
	}
	assert.Equal(t, 1, count)
	assert.ErrorIs(t, r.SetCapturer("nobody@example.com"), ErrUnknownMember)
}

func TestSetCapturingAndViewing(t *testing.T) {
	r := loaded(t, threeMemberTeam())
	require.NoError(t, r.SetCapturing(false))
	require.NoError(t, r.SetViewing("coach@example.com", true))

	sel, _ := r.Selected()
	_, capturing := sel.Capturing()
	assert.False(t, capturing)
	assert.Len(t, sel.Viewers(), 2)
}

func TestGameLifecycle(t *testing.T) {
	r := loaded(t, threeMemberTeam())
	require.NoError(t, r.StartGame("Week 3"))
	sel, _ := r.Selected()
	require.NotNil(t, sel.Game)
	assert.Equal(t, "Week 3", sel.Game.Name)

	require.NoError(t, r.EndGame())
	sel, _ = r.Selected()
	assert.Nil(t, sel.Game)
}

func TestMutationsRequireSelection(t *testing.T) {
	r := New()
	r.Load([]Team{threeMemberTeam()})
	assert.ErrorIs(t, r.Rename("x"), ErrNoTeamSelected)
	assert.ErrorIs(t, r.StartGame("x"), ErrNoTeamSelected)
	assert.ErrorIs(t, r.Select("missing"), ErrUnknownTeam)
}

func TestCreateConfirm(t *testing.T) {
	r := New()
	created := r.Create("  JV  ", Member{Name: "Coach", Email: "coach@example.com"}, Member{Email: "ann@example.com", IsCapturer: true})
	assert.True(t, created.Provisional)
	assert.Equal(t, "JV", created.Name)

	sel, ok := r.Selected()
	require.True(t, ok)
	assert.Equal(t, created.ID, sel.ID)
	capturer, _ := sel.Capturer()
	assert.Equal(t, "ann@example.com", capturer.Email, "a requested capturer keeps the role")

	require.NoError(t, r.Confirm(created.ID, "srv-1"))
	sel, _ = r.Selected()
	assert.Equal(t, "srv-1", sel.ID)
	assert.False(t, sel.Provisional)
	assert.ErrorIs(t, r.Confirm(created.ID, "srv-2"), ErrUnknownTeam)
}

func TestDestroyDeselects(t *testing.T) {
	r := loaded(t, threeMemberTeam(), Team{ID: "t2", Name: "JV", Owner: "x@example.com"})
	r.Destroy("t1")
	_, ok := r.Selected()
	assert.False(t, ok)
	require.Len(t, r.Teams(), 1)
	assert.Equal(t, "t2", r.Teams()[0].ID)
}

func TestLoadKeepsSelection(t *testing.T) {
	r := loaded(t, threeMemberTeam())
	renamed := threeMemberTeam()
	renamed.Name = "Renamed"
	r.Load([]Team{{ID: "t0", Name: "Other"}, renamed})

	sel, ok := r.Selected()
	require.True(t, ok)
	assert.Equal(t, "Renamed", sel.Name)

	r.Unload()
	assert.False(t, r.Loaded())
	_, ok = r.Selected()
	assert.False(t, ok)
}

func TestSnapshotsAreCopies(t *testing.T) {
	r := loaded(t, threeMemberTeam())
	sel, _ := r.Selected()
	sel.Members[0].Name = "mutated"

	again, _ := r.Selected()
	assert.Equal(t, "Coach", again.Members[0].Name)
}

func TestAddMember_Duplicate(t *testing.T) {
	r := loaded(t, threeMemberTeam())
	require.NoError(t, r.AddMember(Member{Name: "Cy", Email: "cy@example.com", IsCapturer: true}))
	assert.ErrorIs(t, r.AddMember(Member{Email: "cy@example.com"}), ErrDuplicateMember)

	sel, _ := r.Selected()
	cy, ok := sel.Member("cy@example.com")
	require.True(t, ok)
	assert.False(t, cy.IsCapturer, "new members never arrive as capturer")
}

func TestConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	r := loaded(t, threeMemberTeam())

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			sel, ok := r.Selected()
			if !ok {
				continue
			}
			if sel.Name != "" && sel.Name != "Varsity" && sel.Name != "Renamed" {
				t.Errorf("torn read: %q", sel.Name)
				return
			}
		}
	}()

	for i := 0; i < 500; i++ {
		name := "Varsity"
		if i%2 == 0 {
			name = "Renamed"
		}
		require.NoError(t, r.Rename(name))
	}
	close(stop)
	wg.Wait()
}

func TestTeamsAreCopies(t *testing.T) {
	r := loaded(t, threeMemberTeam())
	teams := r.Teams()
	teams[0].Members[0].Name = "mutated"
	teams[0].Name = "mutated"

	again := r.Teams()
	assert.Equal(t, "Coach", again[0].Members[0].Name)
	assert.NotEqual(t, "mutated", again[0].Name)
}

func TestCreate_OwnerCapturesByDefault(t *testing.T) {
	r := New()
	created := r.Create("JV", Member{Email: "coach@example.com", IsViewing: true}, Member{Email: "ann@example.com", IsCapturing: true})

	capturer, ok := created.Capturer()
	require.True(t, ok)
	assert.Equal(t, "coach@example.com", capturer.Email)
	_, capturing := created.Capturing()
	assert.False(t, capturing)
	assert.Empty(t, created.Viewers())
}

func TestLoad_KeepsLiveStateOfSelection(t *testing.T) {
	r := loaded(t, threeMemberTeam())
	require.NoError(t, r.StartGame("Homecoming"))

	listed := threeMemberTeam()
	for i := range listed.Members {
		listed.Members[i].IsCapturing = false
		listed.Members[i].IsViewing = false
	}
	r.Load([]Team{listed})

	sel, ok := r.Selected()
	require.True(t, ok)
	require.NotNil(t, sel.Game)
	assert.Equal(t, "Homecoming", sel.Game.Name)
	capturing, ok := sel.Capturing()
	require.True(t, ok)
	assert.Equal(t, "ann@example.com", capturing.Email)
	bo, _ := sel.Member("bo@example.com")
	assert.True(t, bo.IsViewing)
}

func TestLoad_DropsCapturingWhenRoleMoved(t *testing.T) {
	r := loaded(t, threeMemberTeam())

	listed := threeMemberTeam()
	for i := range listed.Members {
		listed.Members[i].IsCapturer = listed.Members[i].Email == "coach@example.com"
		listed.Members[i].IsCapturing = false
	}
	r.Load([]Team{listed})

	sel, _ := r.Selected()
	_, capturing := sel.Capturing()
	assert.False(t, capturing)
}

func TestResetLive(t *testing.T) {
	r := loaded(t, threeMemberTeam())
	require.NoError(t, r.StartGame("Homecoming"))
	require.NoError(t, r.ResetLive())

	sel, _ := r.Selected()
	assert.Nil(t, sel.Game)
	_, capturing := sel.Capturing()
	assert.False(t, capturing)
	assert.Empty(t, sel.Viewers())
	capturer, _ := sel.Capturer()
	assert.Equal(t, "ann@example.com", capturer.Email, "roles survive")
}
