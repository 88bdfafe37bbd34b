package play

import (
	"errors"
	"strconv"
)

var ErrInvalidQuarter = errors.New("invalid quarter")
var ErrInvalidODK = errors.New("invalid possession symbol")
var ErrInvalidDown = errors.New("invalid down")
var ErrInvalidKick = errors.New("kicking play carries down, distance or series")

// ODK is the possession role of a play.
type ODK string

const (
	Offense ODK = "O"
	Defense ODK = "D"
	Kicking ODK = "K"
)

// AllODK is the full symbol set, in display order.
var AllODK = []ODK{Offense, Defense, Kicking}

func ParseODK(s string) (ODK, bool) {
	switch ODK(s) {
	case Offense, Defense, Kicking:
		return ODK(s), true
	default:
		return "", false
	}
}

func (o ODK) Valid() bool {
	_, ok := ParseODK(string(o))
	return ok
}

// Opposite swaps offense and defense. Kicking follows the K -> D -> O -> K loop.
func (o ODK) Opposite() ODK {
	switch o {
	case Offense:
		return Defense
	case Defense:
		return Offense
	default:
		return Defense
	}
}

const (
	FieldFold         = 110
	KickoffLine       = 5
	FirstDownDistance = 10
	MaxDown           = 3
	MaxQuarter        = 4
)

// Play is one tagged game action. Gain is never stored, see Gain.
type Play struct {
	Quarter   int  `json:"quarter"`
	ODK       ODK  `json:"odk"`
	Down      int  `json:"down,omitempty"` // 0 when cleared (kicking plays)
	Distance  int  `json:"distance"`
	StartLine int  `json:"startLine"`
	EndLine   int  `json:"endLine"`
	Series    int  `json:"series"`
	Flagged   bool `json:"flagged"`
}

// Gain computes the net yards between start and end on the folded ±110 field.
// Crossing midfield flips the sign of the line, so the fold is added back.
func Gain(start, end int) int {
	if (start < 0 && end < 0) || (start >= 0 && end >= 0) {
		return start - end
	}
	if start < 0 {
		return start - end + FieldFold
	}
	return start - end - FieldFold
}

func (p Play) Gain() int { return Gain(p.StartLine, p.EndLine) }

func (p Play) IsKick() bool { return p.ODK == Kicking }

// Canonical clears the fields a kicking play cannot carry on the wire.
func (p Play) Canonical() Play {
	if p.ODK == Kicking {
		p.Down = 0
		p.Distance = 0
		p.Series = 0
	}
	return p
}

func (p Play) Validate() error {
	if p.Quarter < 1 || p.Quarter > MaxQuarter {
		return ErrInvalidQuarter
	}
	if !p.ODK.Valid() {
		return ErrInvalidODK
	}
	if p.ODK == Kicking {
		if p.Down != 0 || p.Distance != 0 || p.Series != 0 {
			return ErrInvalidKick
		}
		return nil
	}
	if p.Down < 1 || p.Down > MaxDown {
		return ErrInvalidDown
	}
	return nil
}

// Ordinal renders a down the way filters compare it: "1st", "2nd", "3rd", "0".
func Ordinal(n int) string {
	if n == 0 {
		return "0"
	}
	s := strconv.Itoa(n)
	switch n % 10 {
	case 1:
		return s + "st"
	case 2:
		return s + "nd"
	case 3:
		return s + "rd"
	default:
		return s + "th"
	}
}
