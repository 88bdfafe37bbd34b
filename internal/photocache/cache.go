// Package photocache indexes received photos by series and play and serves
// filtered views of that index.
package photocache

import (
	"slices"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/DoyleJ11/towerman/internal/photoname"
	"github.com/DoyleJ11/towerman/internal/play"
)

// Photo is one received image bound to its play.
type Photo struct {
	Play  play.Play
	Index int
	Data  []byte
}

func (p Photo) Name() string { return photoname.Encode(p.Play, p.Index) }

// SeriesPlay holds the photos of one play in arrival order.
type SeriesPlay struct {
	Play   play.Play
	Photos [][]byte
}

type Series struct {
	Number int
	Plays  []SeriesPlay
}

// Cache has a single writer. Filtered, All and Names may be called from any
// goroutine; they return copies of the views published by the last mutation.
// Photo bytes are shared and must not be written to.
type Cache struct {
	logger  *zap.Logger
	series  []Series // append order
	names   map[string]struct{}
	order   []string
	filters Filters

	all      atomic.Pointer[[]Series]
	filtered atomic.Pointer[[]Series]
	namesPub atomic.Pointer[[]string]
}

func New(logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{
		logger:  logger,
		names:   make(map[string]struct{}),
		filters: DefaultFilters(),
	}
	c.publish()
	return c
}

// Add inserts photo unless its (name, index) pair is already cached.
// It reports whether the cache changed.
func (c *Cache) Add(photo Photo) bool {
	name := photo.Name()
	if _, dup := c.names[name]; dup {
		c.logger.Debug("photo already cached", zap.String("name", name))
		return false
	}
	c.names[name] = struct{}{}
	c.order = append(c.order, name)

	p := photo.Play.Canonical()
	si := slices.IndexFunc(c.series, func(s Series) bool { return s.Number == p.Series })
	if si < 0 {
		c.series = append(c.series, Series{Number: p.Series})
		si = len(c.series) - 1
	}

	plays := c.series[si].Plays
	pi := slices.IndexFunc(plays, func(sp SeriesPlay) bool { return sp.Play == p })
	if pi < 0 {
		c.series[si].Plays = append(plays, SeriesPlay{Play: p, Photos: [][]byte{photo.Data}})
	} else {
		plays[pi].Photos = append(plays[pi].Photos, photo.Data)
	}

	c.publish()
	return true
}

// Filter merges u into the sticky filter set and recomputes the filtered view.
func (c *Cache) Filter(u FilterUpdate) {
	c.filters = c.filters.Update(u)
	c.publish()
}

func (c *Cache) Filters() Filters { return c.filters }

// Clear drops every photo. Filters are kept.
func (c *Cache) Clear() {
	c.series = nil
	c.names = make(map[string]struct{})
	c.order = nil
	c.publish()
}

// Filtered is the current filtered view, most recent series first.
func (c *Cache) Filtered() []Series { return cloneSeries(*c.filtered.Load()) }

// All is the unfiltered index in arrival order.
func (c *Cache) All() []Series { return cloneSeries(*c.all.Load()) }

// Names lists the cached photo names in arrival order.
func (c *Cache) Names() []string { return slices.Clone(*c.namesPub.Load()) }

func (c *Cache) Len() int { return len(c.order) }

func (c *Cache) publish() {
	all := cloneSeries(c.series)
	c.all.Store(&all)

	names := slices.Clone(c.order)
	c.namesPub.Store(&names)

	filtered := c.recompute()
	c.filtered.Store(&filtered)
}

// recompute rebuilds the filtered view from the full index every time.
func (c *Cache) recompute() []Series {
	var out []Series
	if c.filters.ShowAll() {
		out = cloneSeries(c.series)
	} else {
		for _, s := range c.series {
			var plays []SeriesPlay
			for _, sp := range s.Plays {
				if c.filters.Match(sp.Play) {
					plays = append(plays, SeriesPlay{Play: sp.Play, Photos: slices.Clone(sp.Photos)})
				}
			}
			if len(plays) > 0 {
				out = append(out, Series{Number: s.Number, Plays: plays})
			}
		}
	}
	slices.SortStableFunc(out, func(a, b Series) int { return b.Number - a.Number })
	return out
}

func cloneSeries(in []Series) []Series {
	out := make([]Series, len(in))
	for i, s := range in {
		plays := make([]SeriesPlay, len(s.Plays))
		for j, sp := range s.Plays {
			plays[j] = SeriesPlay{Play: sp.Play, Photos: slices.Clone(sp.Photos)}
		}
		out[i] = Series{Number: s.Number, Plays: plays}
	}
	return out
}
