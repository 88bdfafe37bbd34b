// Package photoname maps a tagged play plus a photo index to the flat string
// that identifies the photo on the wire and in storage, and back.
//
// Layout, fields joined by "_":
//
//	Q{quarter}_S{series|-}_{odk}_D{down&distance|-}_{start}~{end}_G{gain}_{FLAGGED|}#{index}
//
// Kicking plays carry "-" in place of series and down. The relay may append
// "-{seq}" after the index; Decode ignores it.
package photoname

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/DoyleJ11/towerman/internal/play"
)

var ErrMalformed = errors.New("malformed photo name")

const (
	flaggedMarker = "FLAGGED"
	placeholder   = "-"
	fieldCount    = 7
)

// Encode renders the canonical form of p with the photo index appended.
func Encode(p play.Play, index int) string {
	return Name(p) + "#" + strconv.Itoa(index)
}

// Name is the play part of the photo name, shared by every photo of the play.
func Name(p play.Play) string {
	p = p.Canonical()

	series := placeholder
	down := placeholder
	if !p.IsKick() {
		series = strconv.Itoa(p.Series)
		down = strconv.Itoa(p.Down) + "&" + strconv.Itoa(p.Distance)
	}

	flag := ""
	if p.Flagged {
		flag = flaggedMarker
	}

	return fmt.Sprintf("Q%d_S%s_%s_D%s_%d~%d_G%d_%s",
		p.Quarter, series, p.ODK, down, p.StartLine, p.EndLine, p.Gain(), flag)
}

// Decode parses a photo name. Any field that does not parse, or a gain that
// disagrees with the lines, fails the whole name.
func Decode(name string) (play.Play, int, error) {
	hash := strings.LastIndex(name, "#")
	if hash < 0 {
		return play.Play{}, 0, fmt.Errorf("%w: no index in %q", ErrMalformed, name)
	}

	index, err := parseIndex(name[hash+1:])
	if err != nil {
		return play.Play{}, 0, fmt.Errorf("%w: %q: %v", ErrMalformed, name, err)
	}

	p, err := decodePlay(name[:hash])
	if err != nil {
		return play.Play{}, 0, fmt.Errorf("%w: %q: %v", ErrMalformed, name, err)
	}
	return p, index, nil
}

func parseIndex(s string) (int, error) {
	idx, seq, hasSeq := strings.Cut(s, "-")
	if hasSeq {
		if _, err := strconv.Atoi(seq); err != nil {
			return 0, fmt.Errorf("sequence %q", seq)
		}
	}
	n, err := strconv.Atoi(idx)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("index %q", idx)
	}
	return n, nil
}

func decodePlay(s string) (play.Play, error) {
	parts := strings.Split(s, "_")
	if len(parts) != fieldCount {
		return play.Play{}, fmt.Errorf("want %d fields, got %d", fieldCount, len(parts))
	}

	var p play.Play
	var err error

	if p.Quarter, err = prefixedInt(parts[0], "Q"); err != nil {
		return play.Play{}, err
	}

	odk, ok := play.ParseODK(parts[2])
	if !ok {
		return play.Play{}, fmt.Errorf("possession %q", parts[2])
	}
	p.ODK = odk

	series, ok := strings.CutPrefix(parts[1], "S")
	if !ok {
		return play.Play{}, fmt.Errorf("series %q", parts[1])
	}
	downDist, ok := strings.CutPrefix(parts[3], "D")
	if !ok {
		return play.Play{}, fmt.Errorf("down %q", parts[3])
	}

	if odk == play.Kicking {
		if series != placeholder || downDist != placeholder {
			return play.Play{}, fmt.Errorf("kicking play with series %q down %q", series, downDist)
		}
	} else {
		if p.Series, err = strconv.Atoi(series); err != nil || p.Series < 0 {
			return play.Play{}, fmt.Errorf("series %q", series)
		}
		down, dist, found := strings.Cut(downDist, "&")
		if !found {
			return play.Play{}, fmt.Errorf("down %q", downDist)
		}
		if p.Down, err = strconv.Atoi(down); err != nil {
			return play.Play{}, fmt.Errorf("down %q", down)
		}
		if p.Distance, err = strconv.Atoi(dist); err != nil {
			return play.Play{}, fmt.Errorf("distance %q", dist)
		}
	}

	start, end, found := strings.Cut(parts[4], "~")
	if !found {
		return play.Play{}, fmt.Errorf("lines %q", parts[4])
	}
	if p.StartLine, err = strconv.Atoi(start); err != nil {
		return play.Play{}, fmt.Errorf("start line %q", start)
	}
	if p.EndLine, err = strconv.Atoi(end); err != nil {
		return play.Play{}, fmt.Errorf("end line %q", end)
	}

	gain, err := prefixedInt(parts[5], "G")
	if err != nil {
		return play.Play{}, err
	}
	if gain != p.Gain() {
		return play.Play{}, fmt.Errorf("gain %d does not match lines %d~%d", gain, p.StartLine, p.EndLine)
	}

	switch parts[6] {
	case "":
	case flaggedMarker:
		p.Flagged = true
	default:
		return play.Play{}, fmt.Errorf("flag %q", parts[6])
	}

	if err := p.Validate(); err != nil {
		return play.Play{}, err
	}
	return p, nil
}

func prefixedInt(s, prefix string) (int, error) {
	rest, ok := strings.CutPrefix(s, prefix)
	if !ok {
		return 0, fmt.Errorf("field %q missing %q", s, prefix)
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("field %q", s)
	}
	return n, nil
}
