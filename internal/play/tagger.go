package play

// Tagger holds the play an operator is currently tagging on the capture device.
// It is not safe for concurrent use.
type Tagger struct {
	play Play
	last ODK

	changedDistance  bool
	changedStartLine bool
	changedEndLine   bool
}

// NewTagger starts a game at the opening kickoff.
func NewTagger() *Tagger {
	return &Tagger{
		play: Play{Quarter: 1, ODK: Kicking, Series: 1},
		last: Kicking,
	}
}

func (t *Tagger) Play() Play { return t.play }

func (t *Tagger) LastPossession() ODK { return t.last }

func (t *Tagger) SetQuarter(q int) error {
	if q < 1 || q > MaxQuarter {
		return ErrInvalidQuarter
	}
	t.play.Quarter = q
	return nil
}

func (t *Tagger) SetODK(o ODK) error {
	if !o.Valid() {
		return ErrInvalidODK
	}
	t.play.ODK = o
	if o == Kicking {
		t.play.Down = 0
	} else if t.play.Down == 0 {
		t.play.Down = 1
	}
	return nil
}

func (t *Tagger) SetDown(d int) error {
	if t.play.ODK == Kicking || d < 1 || d > MaxDown {
		return ErrInvalidDown
	}
	t.play.Down = d
	return nil
}

func (t *Tagger) SetDistance(d int) {
	t.play.Distance = d
	t.changedDistance = true
}

func (t *Tagger) SetStartLine(l int) {
	t.play.StartLine = l
	t.changedStartLine = true
}

func (t *Tagger) SetEndLine(l int) {
	t.play.EndLine = l
	t.changedEndLine = true
}

func (t *Tagger) SetSeries(s int) { t.play.Series = s }

func (t *Tagger) ToggleFlag() { t.play.Flagged = !t.play.Flagged }

// Edited reports whether the operator has overridden any line or distance since the last Next.
func (t *Tagger) Edited() bool {
	return t.changedDistance || t.changedStartLine || t.changedEndLine
}

// Next moves on to the following play and returns it.
func (t *Tagger) Next() Play {
	t.changedDistance = false
	t.changedStartLine = false
	t.changedEndLine = false
	t.play, t.last = Advance(t.play, t.last)
	return t.play
}
