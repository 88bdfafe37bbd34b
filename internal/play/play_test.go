package play

import (
	"errors"
	"testing"
)

func TestGain(t *testing.T) {
	cases := []struct {
		name  string
		start int
		end   int
		want  int
	}{
		{name: "same half positive", start: 30, end: 22, want: 8},
		{name: "same half negative", start: -40, end: -35, want: -5},
		{name: "zero counts as positive half", start: 0, end: 10, want: -10},
		{name: "cross from own half", start: -45, end: 40, want: 25},
		{name: "cross back to own half", start: 45, end: -40, want: -25},
		{name: "no movement", start: 20, end: 20, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Gain(tc.start, tc.end)
			if got != tc.want {
				t.Fatalf("Gain(%d, %d): got %d, want %d", tc.start, tc.end, got, tc.want)
			}
			p := Play{StartLine: tc.start, EndLine: tc.end}
			if p.Gain() != got {
				t.Fatalf("Play.Gain disagrees with Gain: %d vs %d", p.Gain(), got)
			}
		})
	}
}

func TestGain_RecomputedOnMutation(t *testing.T) {
	p := Play{StartLine: 20, EndLine: 15}
	if p.Gain() != 5 {
		t.Fatalf("want 5, got %d", p.Gain())
	}
	p.EndLine = -50
	if p.Gain() != Gain(20, -50) {
		t.Fatalf("gain did not follow end line: %d", p.Gain())
	}
}

func TestOpposite(t *testing.T) {
	cases := map[ODK]ODK{Offense: Defense, Defense: Offense, Kicking: Defense}
	for in, want := range cases {
		if got := in.Opposite(); got != want {
			t.Fatalf("%s.Opposite(): got %s, want %s", in, got, want)
		}
	}
}

func TestOrdinal(t *testing.T) {
	cases := map[int]string{0: "0", 1: "1st", 2: "2nd", 3: "3rd", 4: "4th", 21: "21st"}
	for n, want := range cases {
		if got := Ordinal(n); got != want {
			t.Fatalf("Ordinal(%d): got %q, want %q", n, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		play Play
		want error
	}{
		{name: "valid offense", play: Play{Quarter: 2, ODK: Offense, Down: 2, Distance: 7, Series: 3}},
		{name: "valid kick", play: Play{Quarter: 1, ODK: Kicking, StartLine: 5, EndLine: -30}},
		{name: "quarter out of range", play: Play{Quarter: 5, ODK: Offense, Down: 1}, want: ErrInvalidQuarter},
		{name: "unknown symbol", play: Play{Quarter: 1, ODK: "X", Down: 1}, want: ErrInvalidODK},
		{name: "down out of range", play: Play{Quarter: 1, ODK: Defense, Down: 4}, want: ErrInvalidDown},
		{name: "kick with down", play: Play{Quarter: 1, ODK: Kicking, Down: 1}, want: ErrInvalidKick},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.play.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("Validate: got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCanonical(t *testing.T) {
	k := Play{Quarter: 3, ODK: Kicking, Down: 2, Distance: 10, Series: 8, StartLine: 5, EndLine: -20}.Canonical()
	if k.Down != 0 || k.Distance != 0 || k.Series != 0 {
		t.Fatalf("kick not canonical: %+v", k)
	}
	if k.StartLine != 5 || k.EndLine != -20 || k.Quarter != 3 {
		t.Fatalf("canonical kick lost field positions: %+v", k)
	}

	o := Play{Quarter: 3, ODK: Offense, Down: 2, Distance: 10, Series: 8}
	if o.Canonical() != o {
		t.Fatalf("non-kicking play must be unchanged")
	}
}
