package play

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdvance(t *testing.T) {
	cases := []struct {
		name     string
		cur      Play
		last     ODK
		want     Play
		wantLast ODK
	}{
		{
			name:     "turnover on downs",
			cur:      Play{Quarter: 2, ODK: Offense, Down: 3, Distance: 6, StartLine: 20, EndLine: 22, Series: 4},
			last:     Offense,
			want:     Play{Quarter: 2, ODK: Defense, Down: 1, Distance: 10, StartLine: 22, EndLine: 22, Series: 5},
			wantLast: Defense,
		},
		{
			name:     "scoring play forces kickoff",
			cur:      Play{Quarter: 1, ODK: Offense, Down: 2, Distance: 4, StartLine: 3, EndLine: 0, Series: 2, Flagged: true},
			last:     Offense,
			want:     Play{Quarter: 1, ODK: Kicking, Down: 0, Distance: 4, StartLine: KickoffLine, EndLine: 0, Series: 2},
			wantLast: Offense,
		},
		{
			name:     "short gain advances the down",
			cur:      Play{Quarter: 1, ODK: Offense, Down: 1, Distance: 10, StartLine: 40, EndLine: 36, Series: 1},
			last:     Offense,
			want:     Play{Quarter: 1, ODK: Offense, Down: 2, Distance: 6, StartLine: 36, EndLine: 36, Series: 1},
			wantLast: Offense,
		},
		{
			name:     "loss grows the distance past ten",
			cur:      Play{Quarter: 1, ODK: Offense, Down: 1, Distance: 10, StartLine: 40, EndLine: 45, Series: 1},
			last:     Offense,
			want:     Play{Quarter: 1, ODK: Offense, Down: 2, Distance: 15, StartLine: 45, EndLine: 45, Series: 1},
			wantLast: Offense,
		},
		{
			name:     "first down achieved",
			cur:      Play{Quarter: 3, ODK: Offense, Down: 2, Distance: 5, StartLine: 50, EndLine: 38, Series: 6},
			last:     Offense,
			want:     Play{Quarter: 3, ODK: Offense, Down: 1, Distance: 10, StartLine: 38, EndLine: 38, Series: 6},
			wantLast: Offense,
		},
		{
			name:     "distance clamped near the goal",
			cur:      Play{Quarter: 4, ODK: Offense, Down: 1, Distance: 10, StartLine: 20, EndLine: 6, Series: 9},
			last:     Offense,
			want:     Play{Quarter: 4, ODK: Offense, Down: 1, Distance: 6, StartLine: 6, EndLine: 6, Series: 9},
			wantLast: Offense,
		},
		{
			name:     "defense gain sign flips",
			cur:      Play{Quarter: 2, ODK: Defense, Down: 1, Distance: 10, StartLine: 30, EndLine: 34, Series: 3},
			last:     Defense,
			want:     Play{Quarter: 2, ODK: Defense, Down: 2, Distance: 6, StartLine: 34, EndLine: 34, Series: 3},
			wantLast: Defense,
		},
		{
			name:     "kick hands the ball to the other side and mirrors the line",
			cur:      Play{Quarter: 1, ODK: Kicking, StartLine: 5, EndLine: 30, Series: 2},
			last:     Offense,
			want:     Play{Quarter: 1, ODK: Defense, Down: 1, Distance: 10, StartLine: -30, EndLine: -30, Series: 3},
			wantLast: Defense,
		},
		{
			name:     "opening kickoff loops to defense",
			cur:      Play{Quarter: 1, ODK: Kicking, StartLine: 5, EndLine: -25, Series: 1},
			last:     Kicking,
			want:     Play{Quarter: 1, ODK: Defense, Down: 1, Distance: 10, StartLine: 25, EndLine: 25, Series: 2},
			wantLast: Defense,
		},
		{
			name:     "kick ending at zero is not a score",
			cur:      Play{Quarter: 1, ODK: Kicking, StartLine: 5, EndLine: 0, Series: 1},
			last:     Defense,
			want:     Play{Quarter: 1, ODK: Offense, Down: 1, Distance: 10, StartLine: 0, EndLine: 0, Series: 2},
			wantLast: Offense,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, gotLast := Advance(tc.cur, tc.last)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantLast, gotLast)
		})
	}
}

func TestAdvance_AlwaysClearsFlag(t *testing.T) {
	plays := []Play{
		{Quarter: 1, ODK: Offense, Down: 1, Distance: 10, StartLine: 30, EndLine: 25, Flagged: true},
		{Quarter: 1, ODK: Offense, Down: 1, Distance: 10, StartLine: 3, EndLine: 0, Flagged: true},
		{Quarter: 1, ODK: Kicking, StartLine: 5, EndLine: 40, Flagged: true},
	}
	for _, p := range plays {
		next, _ := Advance(p, Offense)
		assert.False(t, next.Flagged, "flag survived advancing %+v", p)
	}
}

func TestAdvance_KickingNeverRemembered(t *testing.T) {
	next, last := Advance(Play{Quarter: 1, ODK: Offense, Down: 1, Distance: 10, StartLine: 8, EndLine: 0}, Offense)
	assert.Equal(t, Kicking, next.ODK)
	assert.Equal(t, Offense, last)
}

func TestTagger_Next(t *testing.T) {
	tg := NewTagger()
	assert.Equal(t, Kicking, tg.Play().ODK)

	tg.SetStartLine(5)
	tg.SetEndLine(-25)
	assert.True(t, tg.Edited())

	next := tg.Next()
	assert.False(t, tg.Edited())
	assert.Equal(t, Defense, next.ODK)
	assert.Equal(t, 25, next.StartLine)
	assert.Equal(t, Defense, tg.LastPossession())
}

func TestTagger_Setters(t *testing.T) {
	tg := NewTagger()
	assert.ErrorIs(t, tg.SetQuarter(0), ErrInvalidQuarter)
	assert.ErrorIs(t, tg.SetDown(2), ErrInvalidDown, "kicking plays have no down")

	assert.NoError(t, tg.SetODK(Offense))
	assert.Equal(t, 1, tg.Play().Down)
	assert.NoError(t, tg.SetDown(3))
	assert.ErrorIs(t, tg.SetODK("Z"), ErrInvalidODK)

	tg.ToggleFlag()
	assert.True(t, tg.Play().Flagged)

	assert.NoError(t, tg.SetODK(Kicking))
	assert.Equal(t, 0, tg.Play().Down)
}
