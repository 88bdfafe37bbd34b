package photocache

import (
	"slices"
	"strconv"

	"github.com/DoyleJ11/towerman/internal/play"
)

// Range is a closed interval.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (r Range) Contains(n int) bool { return n >= r.Min && n <= r.Max }

var (
	DefaultGain     = Range{Min: -30, Max: 99}
	DefaultDistance = Range{Min: -1, Max: 1}
)

// Filters is the sticky predicate set applied to the cache. An empty selection
// in a set dimension matches everything.
type Filters struct {
	ODK      []play.ODK
	Quarter  []string
	Down     []string
	Gain     Range
	Distance Range
	Flagged  bool
}

func DefaultFilters() Filters {
	return Filters{Gain: DefaultGain, Distance: DefaultDistance}
}

// FilterUpdate changes only the dimensions that are set.
type FilterUpdate struct {
	ODK      []play.ODK
	Quarter  []string
	Down     []string
	Gain     *Range
	Distance *Range
	Flagged  *bool
}

func (f Filters) Update(u FilterUpdate) Filters {
	if u.ODK != nil {
		f.ODK = slices.Clone(u.ODK)
	}
	if u.Quarter != nil {
		f.Quarter = slices.Clone(u.Quarter)
	}
	if u.Down != nil {
		f.Down = slices.Clone(u.Down)
	}
	if u.Gain != nil {
		f.Gain = *u.Gain
	}
	if u.Distance != nil {
		f.Distance = *u.Distance
	}
	if u.Flagged != nil {
		f.Flagged = *u.Flagged
	}
	return f
}

// ShowAll reports that no dimension constrains the result. Selecting every
// symbol of a dimension is the same as selecting none.
func (f Filters) ShowAll() bool {
	if len(f.ODK) != 0 && len(f.ODK) != len(play.AllODK) {
		return false
	}
	if len(f.Quarter) != 0 && len(f.Quarter) != play.MaxQuarter {
		return false
	}
	if len(f.Down) != 0 && len(f.Down) != play.MaxDown {
		return false
	}
	if f.Gain != DefaultGain || f.Distance != DefaultDistance {
		return false
	}
	return !f.Flagged
}

// Match evaluates the predicates against one play.
// Distance is tracked but not matched on yet; product has not settled its semantics.
func (f Filters) Match(p play.Play) bool {
	if len(f.ODK) != 0 && !slices.Contains(f.ODK, p.ODK) {
		return false
	}
	if len(f.Quarter) != 0 && !slices.Contains(f.Quarter, strconv.Itoa(p.Quarter)) {
		return false
	}
	if len(f.Down) != 0 && len(f.Down) != play.MaxDown && !slices.Contains(f.Down, play.Ordinal(p.Down)) {
		return false
	}
	if !f.Gain.Contains(p.Gain()) {
		return false
	}
	if f.Flagged && !p.Flagged {
		return false
	}
	return true
}
